package application

import (
	"context"
	"fmt"
	"time"

	"github.com/skylift/skylift/internal/domain"
)

// ConfigureDomainInput binds a custom domain to a project's distribution.
type ConfigureDomainInput struct {
	ProjectName    string
	DomainName     string
	CertificateArn string
	// HostedZoneID names the Route 53 zone for the alias record. Required
	// when CreateRecord is set; ignored otherwise.
	HostedZoneID string
	// CreateRecord requests the Route 53 alias pointing the domain at the
	// distribution. Left false, the caller manages DNS.
	CreateRecord bool
}

// DomainBindingResult reports the binding outcome.
type DomainBindingResult struct {
	Record             domain.DeploymentRecord
	DistributionDomain string
	DNSChangeID        string
}

// DomainService binds custom domains to deployed distributions. The
// certificate precondition is checked before any mutation: an unvalidated
// certificate aborts the binding with the distribution untouched. Once the
// attachment has been submitted, every exit path persists what happened in
// the cloud, terminal status included.
type DomainService struct {
	Records      domain.RecordRepository
	CDN          domain.CDN
	Certificates domain.CertificateChecker
	DNS          domain.DNS
	Capabilities domain.Capabilities

	Now func() time.Time
}

func (s *DomainService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Configure attaches a custom domain and its certificate to the project's
// distribution and optionally upserts the DNS alias. The record passes
// through UPDATING and ends DEPLOYED, or FAILED with the failing stage and
// any resources already bound in the cloud preserved.
func (s *DomainService) Configure(ctx context.Context, in ConfigureDomainInput) (DomainBindingResult, error) {
	if !s.Capabilities.CanMutate() {
		return DomainBindingResult{}, domain.ErrWriteDisabled
	}
	if in.DomainName == "" || in.CertificateArn == "" {
		return DomainBindingResult{}, fmt.Errorf("%w: domain name and certificate ARN are required", domain.ErrInvalidSpec)
	}
	if in.CreateRecord && in.HostedZoneID == "" {
		return DomainBindingResult{}, fmt.Errorf("%w: a hosted zone ID is required to create the DNS record", domain.ErrInvalidSpec)
	}

	rec, err := s.Records.Get(ctx, in.ProjectName)
	if err != nil {
		return DomainBindingResult{}, err
	}
	distributionID := rec.Resources[domain.ResourceDistributionID]
	if distributionID == "" {
		return DomainBindingResult{}, fmt.Errorf("%w: project %q has no distribution to bind a domain to", domain.ErrNotFound, in.ProjectName)
	}
	if rec.Status != domain.StatusDeployed {
		return DomainBindingResult{}, fmt.Errorf("project %q is %s; domains can only be bound on a deployed project", in.ProjectName, rec.Status)
	}

	status, err := s.Certificates.Status(ctx, in.CertificateArn)
	if err != nil {
		return DomainBindingResult{}, fmt.Errorf("check certificate %s: %w", in.CertificateArn, err)
	}
	if status != domain.CertificateIssued {
		return DomainBindingResult{}, fmt.Errorf("%w: certificate %s is %s", domain.ErrCertificateNotReady, in.CertificateArn, status)
	}

	if _, err := s.Records.Mutate(ctx, in.ProjectName, func(r *domain.DeploymentRecord) error {
		r.Status = domain.StatusUpdating
		r.UpdatedAt = s.now()
		return nil
	}); err != nil {
		return DomainBindingResult{}, err
	}

	// Past this point cloud state may have changed; every exit closes the
	// record in a terminal state carrying whatever was already bound.
	fail := func(stage string, cause error, bound func(*domain.DeploymentRecord)) (DomainBindingResult, error) {
		failed, merr := s.Records.Mutate(ctx, in.ProjectName, func(r *domain.DeploymentRecord) error {
			if bound != nil {
				bound(r)
			}
			r.Status = domain.StatusFailed
			r.LastError = fmt.Sprintf("%s: %v", stage, cause)
			r.UpdatedAt = s.now()
			return nil
		})
		if merr != nil {
			return DomainBindingResult{}, fmt.Errorf("%s failed (%v); recording failure also failed: %w", stage, cause, merr)
		}
		return DomainBindingResult{Record: failed}, fmt.Errorf("%s: %w", stage, cause)
	}

	attached, err := s.CDN.AttachDomain(ctx, distributionID, in.DomainName, in.CertificateArn)
	if err != nil {
		return fail(fmt.Sprintf("attach domain %s to distribution %s", in.DomainName, distributionID), err, nil)
	}
	recordAttachment := func(r *domain.DeploymentRecord) {
		r.Resources[domain.ResourceCustomDomain] = in.DomainName
	}

	var changeID string
	if in.CreateRecord {
		changeID, err = s.DNS.UpsertAlias(ctx, in.HostedZoneID, in.DomainName, attached.DistributionDomain)
		if err != nil {
			return fail(fmt.Sprintf("upsert DNS alias %s", in.DomainName), err, recordAttachment)
		}
	}

	final, err := s.Records.Mutate(ctx, in.ProjectName, func(r *domain.DeploymentRecord) error {
		recordAttachment(r)
		if changeID != "" {
			r.Resources[domain.ResourceDNSRecordID] = changeID
		}
		r.Status = domain.StatusDeployed
		r.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return fail("record domain binding", err, recordAttachment)
	}
	return DomainBindingResult{
		Record:             final,
		DistributionDomain: attached.DistributionDomain,
		DNSChangeID:        changeID,
	}, nil
}
