// Package template synthesizes CloudFormation/SAM documents for web-app
// deployments. Backends run unmodified web frameworks on Lambda behind the
// Lambda Web Adapter; frontends are served from S3 through CloudFront.
package template

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/skylift/skylift/internal/domain"
)

// Parameter names bound at submit time, after packaging.
const (
	ParamArtifactsBucket = "ArtifactsBucket"
	ParamArtifactsKey    = "ArtifactsKey"
)

// Synthesizer implements domain.TemplateSynthesizer. It is stateless; all
// variation comes from the spec.
type Synthesizer struct{}

func New() *Synthesizer { return &Synthesizer{} }

// Synthesize builds the template for a normalized spec. The same spec always
// yields a byte-identical body.
func (s *Synthesizer) Synthesize(spec domain.DeploymentSpec) (domain.Template, error) {
	if err := validateShape(spec); err != nil {
		return domain.Template{}, err
	}

	doc := obj(
		"AWSTemplateFormatVersion", "2010-09-09",
		"Transform", "AWS::Serverless-2016-10-31",
		"Description", fmt.Sprintf("skylift deployment for %s (%s)", spec.ProjectName, spec.DeploymentType),
	)

	var parameters []string
	if spec.DeploymentType.HasBackend() {
		parameters = []string{ParamArtifactsBucket, ParamArtifactsKey}
		doc.set("Parameters", obj(
			ParamArtifactsBucket, obj("Type", "String", "Description", "Bucket holding the packaged backend artifact"),
			ParamArtifactsKey, obj("Type", "String", "Description", "Object key of the packaged backend artifact"),
		))
	}

	resources := obj()
	var order []string
	add := func(logicalID string, r *omap) {
		resources.set(logicalID, r)
		order = append(order, logicalID)
	}

	if spec.DeploymentType.HasBackend() {
		backend := spec.Backend
		if backend.Database != nil {
			add(resAppTable, appTable(backend.Database))
		}
		add(resWebFunction, webFunction(backend))
		add(resWebAPI, webAPI(backend))
	}
	if spec.DeploymentType.HasFrontend() {
		frontend := spec.Frontend
		add(resWebsiteBucket, websiteBucket(frontend))
		add(resWebsitePolicy, websiteBucketPolicy())
		add(resDistribution, distribution(frontend, spec.DeploymentType == domain.DeploymentTypeFullstack))
	}
	doc.set("Resources", resources)
	doc.set("Outputs", outputs(spec))

	body, err := yaml.Marshal(doc)
	if err != nil {
		return domain.Template{}, fmt.Errorf("render template: %w", err)
	}
	return domain.Template{
		Body:       string(body),
		Resources:  order,
		Parameters: parameters,
	}, nil
}

// validateShape rejects specs whose type/configuration combination cannot
// produce a template. Full spec validation (filesystem checks) is the
// caller's concern; synthesis only needs the shape.
func validateShape(spec domain.DeploymentSpec) error {
	switch spec.DeploymentType {
	case domain.DeploymentTypeBackend, domain.DeploymentTypeFrontend, domain.DeploymentTypeFullstack:
	default:
		return fmt.Errorf("%w: unsupported deployment_type %q", domain.ErrInvalidSpec, spec.DeploymentType)
	}
	if spec.DeploymentType.HasBackend() && spec.Backend == nil {
		return fmt.Errorf("%w: %s deployments require backend_configuration", domain.ErrInvalidSpec, spec.DeploymentType)
	}
	if spec.DeploymentType.HasFrontend() && spec.Frontend == nil {
		return fmt.Errorf("%w: %s deployments require frontend_configuration", domain.ErrInvalidSpec, spec.DeploymentType)
	}
	if spec.Backend != nil && spec.Backend.Database != nil && spec.Backend.Database.PartitionKey == "" {
		return fmt.Errorf("%w: database partition_key is required", domain.ErrInvalidSpec)
	}
	return nil
}

// outputs exposes the provisioned resource identifiers the deployment record
// captures after the stack stabilizes.
func outputs(spec domain.DeploymentSpec) *omap {
	out := obj()
	if spec.DeploymentType.HasBackend() {
		out.set("FunctionArn", obj("Value", getAtt(resWebFunction, "Arn")))
		out.set("ApiEndpoint", obj("Value", sub("https://${WebApi}.execute-api.${AWS::Region}.amazonaws.com/"+spec.Backend.Stage)))
		if spec.Backend.Database != nil {
			out.set("TableName", obj("Value", ref(resAppTable)))
		}
	}
	if spec.DeploymentType.HasFrontend() {
		out.set("WebsiteBucketName", obj("Value", ref(resWebsiteBucket)))
		out.set("DistributionId", obj("Value", ref(resDistribution)))
		out.set("DistributionDomain", obj("Value", getAtt(resDistribution, "DomainName")))
	}
	return out
}
