package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that a referenced project or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSpec indicates a caller-fixable problem with a deployment
	// spec. It is raised before any cloud call and never retried.
	ErrInvalidSpec = errors.New("invalid deployment spec")

	// ErrCertificateNotReady indicates the referenced certificate has not
	// been validated yet. The caller must finish validation externally;
	// the binder does not wait.
	ErrCertificateNotReady = errors.New("certificate not ready")

	// ErrDriftDetected indicates the record claims a deployed stack that no
	// longer exists in the cloud account.
	ErrDriftDetected = errors.New("deployment drift detected")

	// ErrStorage indicates the record store is unreadable or unwritable.
	ErrStorage = errors.New("record storage error")

	// ErrNoChange is returned by the engine when a submitted template is
	// identical to what is already running. The orchestrator treats it as a
	// successful no-op update.
	ErrNoChange = errors.New("no changes to deploy")

	// ErrWriteDisabled indicates a mutating operation was requested without
	// the write capability enabled at process start.
	ErrWriteDisabled = errors.New("write operations disabled")
)

// EngineError wraps a failure from the deployment engine. Transient failures
// (throttling, eventual-consistency lag) may be retried with backoff;
// permanent ones (malformed template, permission denied) surface immediately.
type EngineError struct {
	Op        string
	StackName string
	Transient bool
	Err       error
}

func (e *EngineError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("engine %s on stack %q: %s: %v", e.Op, e.StackName, kind, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// TransientEngineError wraps err as a retryable engine failure.
func TransientEngineError(op, stackName string, err error) error {
	return &EngineError{Op: op, StackName: stackName, Transient: true, Err: err}
}

// PermanentEngineError wraps err as a non-retryable engine failure.
func PermanentEngineError(op, stackName string, err error) error {
	return &EngineError{Op: op, StackName: stackName, Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable engine failure.
func IsTransient(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee) && ee.Transient
}
