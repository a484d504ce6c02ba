package domain

import "context"

// RecordRepository persists deployment records, one per project. Records
// survive process restarts; orchestrator and mutators run as independent
// invocations with no shared memory.
type RecordRepository interface {
	// Get returns the record for a project, or ErrNotFound. A corrupted
	// record is reported as absent with a logged warning, never a crash.
	Get(ctx context.Context, projectName string) (DeploymentRecord, error)

	// Put upserts a record atomically; concurrent writers for the same key
	// never interleave partial field updates.
	Put(ctx context.Context, rec DeploymentRecord) error

	// List returns all records.
	List(ctx context.Context) ([]DeploymentRecord, error)

	// Delete removes a record, or returns ErrNotFound.
	Delete(ctx context.Context, projectName string) error

	// Mutate runs fn against the current record under a scoped exclusive
	// acquisition of the project's key, then persists the result. Two
	// concurrent mutations of the same project cannot interleave field
	// writes. Returns ErrNotFound when no record exists.
	Mutate(ctx context.Context, projectName string, fn func(*DeploymentRecord) error) (DeploymentRecord, error)
}
