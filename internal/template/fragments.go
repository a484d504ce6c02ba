package template

import (
	"fmt"
	"sort"

	"github.com/skylift/skylift/internal/domain"
)

// Logical IDs used across the synthesized stack.
const (
	resWebFunction   = "WebFunction"
	resWebAPI        = "WebApi"
	resAppTable      = "AppTable"
	resWebsiteBucket = "WebsiteBucket"
	resWebsitePolicy = "WebsiteBucketPolicy"
	resDistribution  = "Distribution"
)

// Managed CloudFront cache/origin-request policy IDs.
const (
	cachePolicyCachingOptimized      = "658327ea-f89d-4fab-a63d-7e88639e58f6"
	cachePolicyCachingDisabled       = "4135ea2d-6df8-44a3-9df3-4b5a84be39ad"
	originPolicyAllViewerExceptHost  = "b689b0a8-53d0-40ab-baf2-68738e2966ac"
	lambdaWebAdapterLayerVersion     = 25
	lambdaWebAdapterPublisherAccount = "753240598075"
)

func ref(logicalID string) *omap {
	return obj("Ref", logicalID)
}

func getAtt(logicalID, attribute string) *omap {
	return obj("Fn::GetAtt", []any{logicalID, attribute})
}

func sub(tpl string) *omap {
	return obj("Fn::Sub", tpl)
}

// webAdapterLayerArn returns the Lambda Web Adapter layer reference for the
// chosen architecture. The layer is the fixed integration fragment that maps
// ordinary web-framework request handling onto the Lambda invocation
// contract; only port, memory, timeout and runtime vary per deployment.
func webAdapterLayerArn(architecture string) *omap {
	layer := "LambdaAdapterLayerX86"
	if architecture == "arm64" {
		layer = "LambdaAdapterLayerArm64"
	}
	return sub(fmt.Sprintf("arn:aws:lambda:${AWS::Region}:%s:layer:%s:%d",
		lambdaWebAdapterPublisherAccount, layer, lambdaWebAdapterLayerVersion))
}

// functionEnvironment builds the function's environment block: the adapter
// wiring first, then the user's variables in sorted order, then the table
// name when a data store is provisioned.
func functionEnvironment(backend *domain.BackendConfig) *omap {
	vars := obj(
		"AWS_LAMBDA_EXEC_WRAPPER", "/opt/bootstrap",
		"PORT", fmt.Sprintf("%d", backend.Port),
	)
	keys := make([]string, 0, len(backend.Environment))
	for k := range backend.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vars.set(k, backend.Environment[k])
	}
	if backend.Database != nil {
		vars.set("TABLE_NAME", ref(resAppTable))
	}
	return obj("Variables", vars)
}

// webFunction declares the compute resource wrapping the user's handler with
// the Lambda Web Adapter.
func webFunction(backend *domain.BackendConfig) *omap {
	properties := obj(
		"FunctionName", sub("${AWS::StackName}-function"),
		"CodeUri", obj(
			"Bucket", ref("ArtifactsBucket"),
			"Key", ref("ArtifactsKey"),
		),
		"Handler", backend.StartupScript,
		"Runtime", backend.Runtime,
		"MemorySize", backend.MemorySize,
		"Timeout", backend.Timeout,
		"Architectures", []any{backend.Architecture},
		"Layers", []any{webAdapterLayerArn(backend.Architecture)},
		"Environment", functionEnvironment(backend),
		"Events", obj(
			"WebRequests", obj(
				"Type", "HttpApi",
				"Properties", obj("ApiId", ref(resWebAPI)),
			),
		),
	)
	if backend.Database != nil {
		properties.set("Policies", []any{
			obj("DynamoDBCrudPolicy", obj("TableName", ref(resAppTable))),
		})
	}
	return obj("Type", "AWS::Serverless::Function", "Properties", properties)
}

func webAPI(backend *domain.BackendConfig) *omap {
	return obj(
		"Type", "AWS::Serverless::HttpApi",
		"Properties", obj("StageName", backend.Stage),
	)
}

func appTable(db *domain.DatabaseConfig) *omap {
	keyType := db.PartitionKeyType
	if keyType == "" {
		keyType = "S"
	}
	return obj(
		"Type", "AWS::DynamoDB::Table",
		"Properties", obj(
			"TableName", db.TableName,
			"BillingMode", "PAY_PER_REQUEST",
			"AttributeDefinitions", []any{
				obj("AttributeName", db.PartitionKey, "AttributeType", keyType),
			},
			"KeySchema", []any{
				obj("AttributeName", db.PartitionKey, "KeyType", "HASH"),
			},
		),
	)
}

func websiteBucket(frontend *domain.FrontendConfig) *omap {
	return obj(
		"Type", "AWS::S3::Bucket",
		"Properties", obj(
			"BucketName", sub("${AWS::StackName}-website"),
			"WebsiteConfiguration", obj(
				"IndexDocument", frontend.IndexDocument,
				"ErrorDocument", frontend.ErrorDocument,
			),
			"PublicAccessBlockConfiguration", obj(
				"BlockPublicAcls", false,
				"BlockPublicPolicy", false,
				"IgnorePublicAcls", false,
				"RestrictPublicBuckets", false,
			),
		),
	)
}

func websiteBucketPolicy() *omap {
	return obj(
		"Type", "AWS::S3::BucketPolicy",
		"Properties", obj(
			"Bucket", ref(resWebsiteBucket),
			"PolicyDocument", obj(
				"Version", "2012-10-17",
				"Statement", []any{
					obj(
						"Effect", "Allow",
						"Principal", "*",
						"Action", "s3:GetObject",
						"Resource", sub("arn:aws:s3:::${WebsiteBucket}/*"),
					),
				},
			),
		),
	)
}

// websiteOriginDomain extracts the bucket's website endpoint host from its
// WebsiteURL attribute (which includes the scheme).
func websiteOriginDomain() *omap {
	return obj("Fn::Select", []any{1, obj("Fn::Split", []any{"://", getAtt(resWebsiteBucket, "WebsiteURL")})})
}

// distribution declares the CDN. Frontend deployments serve the website
// origin only; fullstack deployments additionally route /api/* to the HTTP
// API origin, uncached.
func distribution(frontend *domain.FrontendConfig, fullstack bool) *omap {
	origins := []any{
		obj(
			"Id", "website-origin",
			"DomainName", websiteOriginDomain(),
			"CustomOriginConfig", obj("OriginProtocolPolicy", "http-only"),
		),
	}
	if fullstack {
		origins = append(origins, obj(
			"Id", "api-origin",
			"DomainName", sub("${WebApi}.execute-api.${AWS::Region}.amazonaws.com"),
			"CustomOriginConfig", obj("OriginProtocolPolicy", "https-only"),
		))
	}

	config := obj(
		"Enabled", true,
		"Comment", sub("${AWS::StackName} web distribution"),
		"DefaultRootObject", frontend.IndexDocument,
		"Origins", origins,
		"DefaultCacheBehavior", obj(
			"TargetOriginId", "website-origin",
			"ViewerProtocolPolicy", "redirect-to-https",
			"AllowedMethods", []any{"GET", "HEAD"},
			"CachePolicyId", cachePolicyCachingOptimized,
		),
	)
	if fullstack {
		config.set("CacheBehaviors", []any{
			obj(
				"PathPattern", "/api/*",
				"TargetOriginId", "api-origin",
				"ViewerProtocolPolicy", "https-only",
				"AllowedMethods", []any{"GET", "HEAD", "OPTIONS", "PUT", "POST", "PATCH", "DELETE"},
				"CachePolicyId", cachePolicyCachingDisabled,
				"OriginRequestPolicyId", originPolicyAllViewerExceptHost,
			),
		})
	}
	config.set("CustomErrorResponses", []any{
		obj(
			"ErrorCode", 404,
			"ResponseCode", 200,
			"ResponsePagePath", "/"+frontend.ErrorDocument,
		),
	})

	return obj(
		"Type", "AWS::CloudFront::Distribution",
		"Properties", obj("DistributionConfig", config),
	)
}
