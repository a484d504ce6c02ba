package domain

import (
	"context"
	"time"
)

// StackStatus is the engine-reported state of a stack.
type StackStatus string

const (
	StackStatusInProgress StackStatus = "IN_PROGRESS"
	StackStatusSucceeded  StackStatus = "SUCCEEDED"
	StackStatusFailed     StackStatus = "FAILED"
)

// StackEvent is one raw event from the engine's event stream, kept for
// failure diagnostics.
type StackEvent struct {
	Timestamp time.Time `json:"timestamp"`
	LogicalID string    `json:"logical_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
}

// StackResult is the engine's view of a stack after a deploy or describe.
type StackResult struct {
	StackName    string            `json:"stack_name"`
	Status       StackStatus       `json:"status"`
	StatusReason string            `json:"status_reason,omitempty"`
	Outputs      map[string]string `json:"outputs,omitempty"`
	Events       []StackEvent      `json:"events,omitempty"`
}

// DeployStackInput is the submission payload for the engine.
type DeployStackInput struct {
	StackName    string            `json:"stack_name"`
	TemplateBody string            `json:"template_body"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// Engine is the contract over the external IaC deployment engine. It is an
// external collaborator boundary: skylift orchestrates it and tracks the
// result but never re-implements it.
//
// Deploy submits a create or update and returns without waiting for the
// stack to stabilize; the orchestrator polls Describe to completion. Deploy
// returns ErrNoChange when the submitted template matches the running stack,
// and *EngineError otherwise on failure. Describe returns ErrNotFound when
// the stack does not exist.
type Engine interface {
	Deploy(ctx context.Context, in DeployStackInput) (StackResult, error)
	Describe(ctx context.Context, stackName string) (StackResult, error)
	Delete(ctx context.Context, stackName string) error
}
