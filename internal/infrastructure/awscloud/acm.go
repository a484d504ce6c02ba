package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"

	"github.com/skylift/skylift/internal/domain"
)

type acmAPI interface {
	DescribeCertificate(ctx context.Context, in *acm.DescribeCertificateInput, optFns ...func(*acm.Options)) (*acm.DescribeCertificateOutput, error)
}

// CertificateChecker implements [domain.CertificateChecker] on ACM.
// CloudFront only accepts certificates from us-east-1, so construct it with
// NewCertificateChecker rather than a region-bound config.
type CertificateChecker struct {
	ACM acmAPI
}

func NewCertificateChecker(cfg aws.Config) *CertificateChecker {
	cfg.Region = "us-east-1"
	return &CertificateChecker{ACM: acm.NewFromConfig(cfg)}
}

func (c *CertificateChecker) Status(ctx context.Context, certificateArn string) (domain.CertificateStatus, error) {
	out, err := c.ACM.DescribeCertificate(ctx, &acm.DescribeCertificateInput{
		CertificateArn: aws.String(certificateArn),
	})
	if err != nil {
		return "", fmt.Errorf("describe certificate %s: %w", certificateArn, err)
	}
	if out.Certificate == nil {
		return "", fmt.Errorf("certificate %s: %w", certificateArn, domain.ErrNotFound)
	}
	return domain.CertificateStatus(out.Certificate.Status), nil
}
