// Package application composes the domain into caller-facing operations:
// deploy lifecycle, post-deploy mutators, and read-only queries. Services
// enforce the process-wide write capability at this boundary; everything
// below assumes authorization already happened.
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/skylift/skylift/internal/domain"
)

// DeployService manages deployment lifecycle and reconciles records against
// the engine's view of the world.
type DeployService struct {
	Records       domain.RecordRepository
	Engine        domain.Engine
	Orchestration *OrchestrationService
	Capabilities  domain.Capabilities
}

// Deploy runs one deploy attempt for a spec and returns the terminal record.
func (s *DeployService) Deploy(ctx context.Context, spec domain.DeploymentSpec) (domain.DeploymentRecord, error) {
	if !s.Capabilities.CanMutate() {
		return domain.DeploymentRecord{}, domain.ErrWriteDisabled
	}
	return s.Orchestration.Orchestrate(ctx, spec)
}

// Get retrieves a deployment record by project name.
func (s *DeployService) Get(ctx context.Context, projectName string) (domain.DeploymentRecord, error) {
	return s.Records.Get(ctx, projectName)
}

// List returns all deployment records.
func (s *DeployService) List(ctx context.Context) ([]domain.DeploymentRecord, error) {
	return s.Records.List(ctx)
}

// Status returns the record for a project, reconciled against the engine. A
// record claiming a deployed stack that no longer exists is moved to FAILED
// and reported with ErrDriftDetected; the record itself is kept so the
// project's history stays inspectable.
func (s *DeployService) Status(ctx context.Context, projectName string) (domain.DeploymentRecord, error) {
	rec, err := s.Records.Get(ctx, projectName)
	if err != nil {
		return domain.DeploymentRecord{}, err
	}
	if rec.Status != domain.StatusDeployed && rec.Status != domain.StatusUpdating {
		return rec, nil
	}

	_, err = s.Engine.Describe(ctx, rec.StackName)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, domain.ErrNotFound):
		rec, merr := s.Records.Mutate(ctx, projectName, func(r *domain.DeploymentRecord) error {
			r.Status = domain.StatusFailed
			r.LastError = fmt.Sprintf("stack %s no longer exists", r.StackName)
			return nil
		})
		if merr != nil {
			return domain.DeploymentRecord{}, merr
		}
		return rec, domain.ErrDriftDetected
	default:
		return rec, fmt.Errorf("describe stack %s: %w", rec.StackName, err)
	}
}

// Delete tears down the project's stack and removes its record. The stack is
// deleted first so a failure leaves the record pointing at whatever still
// exists.
func (s *DeployService) Delete(ctx context.Context, projectName string) error {
	if !s.Capabilities.CanMutate() {
		return domain.ErrWriteDisabled
	}
	rec, err := s.Records.Get(ctx, projectName)
	if err != nil {
		return err
	}
	if err := s.Engine.Delete(ctx, rec.StackName); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete stack %s: %w", rec.StackName, err)
	}
	return s.Records.Delete(ctx, projectName)
}
