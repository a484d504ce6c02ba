package application

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/skylift/skylift/internal/domain"
)

// UpdateFrontendInput is the caller-provided input for a frontend asset
// update.
type UpdateFrontendInput struct {
	ProjectName string
	AssetsDir   string
	// Invalidate requests a CDN cache invalidation after the upload.
	// Without it, cached assets age out on their own.
	Invalidate bool
}

// FrontendUpdateResult summarizes one asset update pass.
type FrontendUpdateResult struct {
	Record         domain.DeploymentRecord
	Uploaded       int
	InvalidationID string
}

// FrontendService swaps the static assets of a deployed frontend without
// re-running the stack. It never touches stack infrastructure; only bucket
// contents and the CDN cache change.
type FrontendService struct {
	Records      domain.RecordRepository
	Assets       domain.AssetStore
	CDN          domain.CDN
	Capabilities domain.Capabilities

	Now func() time.Time
}

func (s *FrontendService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Update uploads new assets to the project's website bucket and optionally
// invalidates the distribution cache. The record passes through UPDATING and
// ends DEPLOYED, or FAILED with the failing stage preserved.
func (s *FrontendService) Update(ctx context.Context, in UpdateFrontendInput) (FrontendUpdateResult, error) {
	if !s.Capabilities.CanMutate() {
		return FrontendUpdateResult{}, domain.ErrWriteDisabled
	}
	if info, err := os.Stat(in.AssetsDir); err != nil || !info.IsDir() {
		return FrontendUpdateResult{}, fmt.Errorf("%w: assets directory %q does not exist", domain.ErrInvalidSpec, in.AssetsDir)
	}

	rec, err := s.Records.Get(ctx, in.ProjectName)
	if err != nil {
		return FrontendUpdateResult{}, err
	}
	if !rec.HasFrontendResource() {
		return FrontendUpdateResult{}, fmt.Errorf("%w: project %q has no frontend origin", domain.ErrNotFound, in.ProjectName)
	}
	if rec.Status != domain.StatusDeployed {
		return FrontendUpdateResult{}, fmt.Errorf("project %q is %s; assets can only be updated on a deployed project", in.ProjectName, rec.Status)
	}
	bucket := rec.Resources[domain.ResourceBucketName]

	if _, err := s.Records.Mutate(ctx, in.ProjectName, func(r *domain.DeploymentRecord) error {
		r.Status = domain.StatusUpdating
		r.UpdatedAt = s.now()
		return nil
	}); err != nil {
		return FrontendUpdateResult{}, err
	}

	// Past this point the record is UPDATING; every exit must close it in a
	// terminal state with the failing stage and anything already changed in
	// the cloud preserved.
	fail := func(stage string, cause error, bound func(*domain.DeploymentRecord)) (FrontendUpdateResult, error) {
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
			return FrontendUpdateResult{}, fmt.Errorf("%s failed (%v); recording failure also failed: %w", stage, cause, merr)
		}
		return FrontendUpdateResult{Record: failed}, fmt.Errorf("%s: %w", stage, cause)
	}

	synced, err := s.Assets.SyncDir(ctx, bucket, in.AssetsDir)
	if err != nil {
		return fail(fmt.Sprintf("sync assets to %s", bucket), err, nil)
	}
	recordSync := func(r *domain.DeploymentRecord) {
		r.Resources[domain.ResourceAssetDigest] = synced.Digest
	}

	var invalidationID string
	if in.Invalidate {
		distributionID := rec.Resources[domain.ResourceDistributionID]
		if distributionID != "" {
			callerReference := fmt.Sprintf("%s-%d", in.ProjectName, s.now().Unix())
			invalidationID, err = s.CDN.Invalidate(ctx, distributionID, []string{"/*"}, callerReference)
			if err != nil {
				return fail(fmt.Sprintf("invalidate distribution %s", distributionID), err, recordSync)
			}
		}
	}

	final, err := s.Records.Mutate(ctx, in.ProjectName, func(r *domain.DeploymentRecord) error {
		recordSync(r)
		if invalidationID != "" {
			r.Resources[domain.ResourceInvalidationID] = invalidationID
		}
		r.Status = domain.StatusDeployed
		r.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return fail("record asset update", err, recordSync)
	}
	return FrontendUpdateResult{
		Record:         final,
		Uploaded:       synced.Uploaded,
		InvalidationID: invalidationID,
	}, nil
}
