package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skylift/skylift/internal/domain"
)

// errCorruptRecord marks a row whose resources column cannot be decoded.
var errCorruptRecord = errors.New("corrupt record row")

// RecordRepo implements [domain.RecordRepository] backed by SQLite.
type RecordRepo struct {
	DB  *sql.DB
	Log logrus.FieldLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// keyLock returns the mutex serializing mutations for one project.
func (r *RecordRepo) keyLock(projectName string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks == nil {
		r.locks = make(map[string]*sync.Mutex)
	}
	l, ok := r.locks[projectName]
	if !ok {
		l = &sync.Mutex{}
		r.locks[projectName] = l
	}
	return l
}

func (r *RecordRepo) log() logrus.FieldLogger {
	if r.Log != nil {
		return r.Log
	}
	return logrus.StandardLogger()
}

const recordColumns = `project_name, deployment_type, status, stack_name, framework, region, resources, created_at, updated_at, last_error`

func (r *RecordRepo) Get(ctx context.Context, projectName string) (domain.DeploymentRecord, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM deployments WHERE project_name = ?`, projectName)
	rec, err := scanRecord(row)
	if errors.Is(err, errCorruptRecord) {
		// A single unreadable record must not crash callers; surface a
		// warning and report it as absent.
		r.log().WithField("project", projectName).WithError(err).
			Warn("deployment record is corrupted; treating as absent")
		return domain.DeploymentRecord{}, fmt.Errorf("project %q: %w", projectName, domain.ErrNotFound)
	}
	return rec, err
}

func (r *RecordRepo) Put(ctx context.Context, rec domain.DeploymentRecord) error {
	resources, err := json.Marshal(rec.Resources)
	if err != nil {
		return fmt.Errorf("%w: marshal resources: %v", domain.ErrStorage, err)
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO deployments (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_name) DO UPDATE SET
		   deployment_type = excluded.deployment_type,
		   status = excluded.status,
		   stack_name = excluded.stack_name,
		   framework = excluded.framework,
		   region = excluded.region,
		   resources = excluded.resources,
		   created_at = excluded.created_at,
		   updated_at = excluded.updated_at,
		   last_error = excluded.last_error`,
		rec.ProjectName, string(rec.DeploymentType), string(rec.Status), rec.StackName,
		rec.Framework, rec.Region, string(resources),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		rec.LastError,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert record: %v", domain.ErrStorage, err)
	}
	return nil
}

func (r *RecordRepo) List(ctx context.Context) ([]domain.DeploymentRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM deployments ORDER BY project_name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var records []domain.DeploymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if errors.Is(err, errCorruptRecord) {
			r.log().WithError(err).Warn("skipping corrupted deployment record")
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *RecordRepo) Delete(ctx context.Context, projectName string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM deployments WHERE project_name = ?`, projectName)
	if err != nil {
		return fmt.Errorf("%w: delete record: %v", domain.ErrStorage, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project %q: %w", projectName, domain.ErrNotFound)
	}
	return nil
}

// Mutate serializes read-modify-write per project: a keyed lock prevents
// in-process interleaving and the enclosing transaction keeps the row write
// atomic across processes.
func (r *RecordRepo) Mutate(ctx context.Context, projectName string, fn func(*domain.DeploymentRecord) error) (domain.DeploymentRecord, error) {
	lock := r.keyLock(projectName)
	lock.Lock()
	defer lock.Unlock()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DeploymentRecord{}, fmt.Errorf("%w: begin mutation: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM deployments WHERE project_name = ?`, projectName)
	rec, err := scanRecord(row)
	if errors.Is(err, errCorruptRecord) {
		r.log().WithField("project", projectName).WithError(err).
			Warn("deployment record is corrupted; treating as absent")
		return domain.DeploymentRecord{}, fmt.Errorf("project %q: %w", projectName, domain.ErrNotFound)
	}
	if err != nil {
		return domain.DeploymentRecord{}, err
	}

	if err := fn(&rec); err != nil {
		return domain.DeploymentRecord{}, err
	}

	resources, err := json.Marshal(rec.Resources)
	if err != nil {
		return domain.DeploymentRecord{}, fmt.Errorf("%w: marshal resources: %v", domain.ErrStorage, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE deployments
		 SET deployment_type = ?, status = ?, stack_name = ?, framework = ?, region = ?,
		     resources = ?, created_at = ?, updated_at = ?, last_error = ?
		 WHERE project_name = ?`,
		string(rec.DeploymentType), string(rec.Status), rec.StackName, rec.Framework, rec.Region,
		string(resources),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		rec.LastError, projectName,
	)
	if err != nil {
		return domain.DeploymentRecord{}, fmt.Errorf("%w: update record: %v", domain.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.DeploymentRecord{}, fmt.Errorf("%w: commit mutation: %v", domain.ErrStorage, err)
	}
	return rec, nil
}

func scanRecord(s scanner) (domain.DeploymentRecord, error) {
	var rec domain.DeploymentRecord
	var depType, status, resourcesJSON, createdAt, updatedAt string
	if err := s.Scan(&rec.ProjectName, &depType, &status, &rec.StackName,
		&rec.Framework, &rec.Region, &resourcesJSON, &createdAt, &updatedAt, &rec.LastError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, fmt.Errorf("%w", domain.ErrNotFound)
		}
		return rec, fmt.Errorf("%w: scan record: %v", domain.ErrStorage, err)
	}
	rec.DeploymentType = domain.DeploymentType(depType)
	rec.Status = domain.Status(status)

	if err := json.Unmarshal([]byte(resourcesJSON), &rec.Resources); err != nil {
		return rec, fmt.Errorf("%w: resources for %q: %v", errCorruptRecord, rec.ProjectName, err)
	}
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return rec, fmt.Errorf("%w: created_at for %q: %v", errCorruptRecord, rec.ProjectName, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return rec, fmt.Errorf("%w: updated_at for %q: %v", errCorruptRecord, rec.ProjectName, err)
	}
	return rec, nil
}
