package application

import (
	"context"
	"fmt"

	"github.com/skylift/skylift/internal/domain"
)

// OrchestrationService executes the deploy pipeline as a durable workflow.
type OrchestrationService struct {
	Workflow domain.DeployStarter
}

// Orchestrate starts the deploy workflow for a spec and waits for it to
// complete, returning the terminal record.
func (o *OrchestrationService) Orchestrate(ctx context.Context, spec domain.DeploymentSpec) (domain.DeploymentRecord, error) {
	handle, err := o.Workflow.Run(ctx, spec)
	if err != nil {
		return domain.DeploymentRecord{}, fmt.Errorf("start deploy workflow: %w", err)
	}
	return handle.AwaitResult(ctx)
}
