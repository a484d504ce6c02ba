package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/sirupsen/logrus"

	"github.com/skylift/skylift/internal/domain"
)

type cloudFrontAPI interface {
	GetDistributionConfig(ctx context.Context, in *cloudfront.GetDistributionConfigInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionConfigOutput, error)
	UpdateDistribution(ctx context.Context, in *cloudfront.UpdateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.UpdateDistributionOutput, error)
	CreateInvalidation(ctx context.Context, in *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// CDN implements [domain.CDN] on CloudFront.
type CDN struct {
	CF  cloudFrontAPI
	Log logrus.FieldLogger
}

func NewCDN(cfg aws.Config, log logrus.FieldLogger) *CDN {
	return &CDN{CF: cloudfront.NewFromConfig(cfg), Log: log}
}

// AttachDomain adds the alias and certificate to the distribution using the
// read-config/modify/write-with-etag cycle CloudFront requires. Re-attaching
// an alias that is already present only refreshes the certificate.
func (c *CDN) AttachDomain(ctx context.Context, distributionID, domainName, certificateArn string) (domain.CDNDomainResult, error) {
	current, err := c.CF.GetDistributionConfig(ctx, &cloudfront.GetDistributionConfigInput{
		Id: aws.String(distributionID),
	})
	if err != nil {
		return domain.CDNDomainResult{}, fmt.Errorf("get distribution %s config: %w", distributionID, err)
	}
	config := current.DistributionConfig

	aliases := []string{domainName}
	if config.Aliases != nil {
		for _, existing := range config.Aliases.Items {
			if existing != domainName {
				aliases = append(aliases, existing)
			}
		}
	}
	config.Aliases = &cftypes.Aliases{
		Items:    aliases,
		Quantity: aws.Int32(int32(len(aliases))),
	}
	config.ViewerCertificate = &cftypes.ViewerCertificate{
		ACMCertificateArn:      aws.String(certificateArn),
		SSLSupportMethod:       cftypes.SSLSupportMethodSniOnly,
		MinimumProtocolVersion: cftypes.MinimumProtocolVersionTLSv122021,
	}

	updated, err := c.CF.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(distributionID),
		IfMatch:            current.ETag,
		DistributionConfig: config,
	})
	if err != nil {
		return domain.CDNDomainResult{}, fmt.Errorf("update distribution %s: %w", distributionID, err)
	}
	c.Log.WithFields(logrus.Fields{
		"distribution": distributionID,
		"domain":       domainName,
	}).Info("custom domain attached")

	result := domain.CDNDomainResult{}
	if updated.Distribution != nil && updated.Distribution.DomainName != nil {
		result.DistributionDomain = *updated.Distribution.DomainName
	}
	return result, nil
}

// Invalidate flushes the given paths from the distribution's cache.
func (c *CDN) Invalidate(ctx context.Context, distributionID string, paths []string, callerReference string) (string, error) {
	out, err := c.CF.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(callerReference),
			Paths: &cftypes.Paths{
				Items:    paths,
				Quantity: aws.Int32(int32(len(paths))),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("invalidate distribution %s: %w", distributionID, err)
	}
	id := ""
	if out.Invalidation != nil && out.Invalidation.Id != nil {
		id = *out.Invalidation.Id
	}
	c.Log.WithFields(logrus.Fields{
		"distribution": distributionID,
		"invalidation": id,
		"paths":        paths,
	}).Info("cache invalidation created")
	return id, nil
}
