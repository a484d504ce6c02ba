// Package recordrepotest provides contract tests for
// [domain.RecordRepository] implementations.
package recordrepotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/skylift/skylift/internal/domain"
)

// Factory creates a fresh [domain.RecordRepository] for each test.
type Factory func(t *testing.T) domain.RecordRepository

// Run exercises the [domain.RecordRepository] contract.
func Run(t *testing.T, factory Factory) {
	sampleRecord := func() domain.DeploymentRecord {
		return domain.DeploymentRecord{
			ProjectName:    "api1",
			DeploymentType: domain.DeploymentTypeBackend,
			Status:         domain.StatusDeployed,
			StackName:      "api1",
			Framework:      "express",
			Region:         "us-east-1",
			Resources: map[string]string{
				domain.ResourceFunctionArn: "arn:aws:lambda:us-east-1:123456789012:function:api1-function",
				domain.ResourceAPIEndpoint: "https://abc123.execute-api.us-east-1.amazonaws.com",
			},
			CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2026, 8, 1, 9, 5, 0, 0, time.UTC),
		}
	}

	t.Run("PutAndGet", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		rec := sampleRecord()

		if err := repo.Put(ctx, rec); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := repo.Get(ctx, "api1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if diff := cmp.Diff(rec, got); diff != "" {
			t.Errorf("record round-trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		rec := sampleRecord()
		_ = repo.Put(ctx, rec)

		rec.Status = domain.StatusFailed
		rec.LastError = "await-stack: deadline exceeded"
		if err := repo.Put(ctx, rec); err != nil {
			t.Fatalf("second Put: %v", err)
		}

		got, _ := repo.Get(ctx, "api1")
		if got.Status != domain.StatusFailed {
			t.Errorf("Status = %q, want %q", got.Status, domain.StatusFailed)
		}
		if got.LastError != rec.LastError {
			t.Errorf("LastError = %q, want %q", got.LastError, rec.LastError)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Get(context.Background(), "nonexistent")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get: got %v, want ErrNotFound", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		for _, name := range []string{"site1", "api1", "shop1"} {
			rec := sampleRecord()
			rec.ProjectName = name
			rec.StackName = name
			if err := repo.Put(ctx, rec); err != nil {
				t.Fatalf("Put %s: %v", name, err)
			}
		}
		got, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("List: got %d records, want 3", len(got))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		_ = repo.Put(ctx, sampleRecord())
		if err := repo.Delete(ctx, "api1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		_, err := repo.Get(ctx, "api1")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get after Delete: got %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		repo := factory(t)
		err := repo.Delete(context.Background(), "nonexistent")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Delete: got %v, want ErrNotFound", err)
		}
	})

	t.Run("MutateNotFound", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Mutate(context.Background(), "nonexistent", func(*domain.DeploymentRecord) error { return nil })
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Mutate: got %v, want ErrNotFound", err)
		}
	})

	t.Run("MutateAppliesWholeRecord", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		_ = repo.Put(ctx, sampleRecord())

		got, err := repo.Mutate(ctx, "api1", func(rec *domain.DeploymentRecord) error {
			rec.Status = domain.StatusUpdating
			rec.Resources[domain.ResourceAssetDigest] = "sha256:abcd"
			return nil
		})
		if err != nil {
			t.Fatalf("Mutate: %v", err)
		}
		if got.Status != domain.StatusUpdating {
			t.Errorf("Status = %q, want %q", got.Status, domain.StatusUpdating)
		}

		stored, _ := repo.Get(ctx, "api1")
		if stored.Resources[domain.ResourceAssetDigest] != "sha256:abcd" {
			t.Errorf("asset digest not persisted: %v", stored.Resources)
		}
	})

	t.Run("MutateFnErrorLeavesRecord", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		_ = repo.Put(ctx, sampleRecord())

		boom := errors.New("boom")
		_, err := repo.Mutate(ctx, "api1", func(rec *domain.DeploymentRecord) error {
			rec.Status = domain.StatusFailed
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Mutate: got %v, want fn error", err)
		}
		got, _ := repo.Get(ctx, "api1")
		if got.Status != domain.StatusDeployed {
			t.Errorf("Status after failed Mutate = %q, want unchanged %q", got.Status, domain.StatusDeployed)
		}
	})

	t.Run("ConcurrentMutationsDoNotInterleave", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		rec := sampleRecord()
		rec.Resources = map[string]string{"counter": "0"}
		_ = repo.Put(ctx, rec)

		const writers = 8
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Mutate(ctx, "api1", func(r *domain.DeploymentRecord) error {
					n := 0
					fmt.Sscanf(r.Resources["counter"], "%d", &n)
					r.Resources["counter"] = fmt.Sprintf("%d", n+1)
					return nil
				})
				if err != nil {
					t.Errorf("Mutate: %v", err)
				}
			}()
		}
		wg.Wait()

		got, _ := repo.Get(ctx, "api1")
		if got.Resources["counter"] != fmt.Sprintf("%d", writers) {
			t.Errorf("counter = %s, want %d (lost update)", got.Resources["counter"], writers)
		}
	})

	t.Run("ConcurrentPutsAreAtomic", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		const writers = 8
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec := sampleRecord()
				tag := fmt.Sprintf("writer-%d", i)
				rec.Framework = tag
				rec.LastError = tag
				rec.Resources = map[string]string{"owner": tag}
				if err := repo.Put(ctx, rec); err != nil {
					t.Errorf("Put: %v", err)
				}
			}(i)
		}
		wg.Wait()

		got, err := repo.Get(ctx, "api1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		// Whichever writer won, all of its fields must have won together.
		if got.Framework != got.LastError || got.Resources["owner"] != got.Framework {
			t.Errorf("mixed fields from different writers: framework=%q last_error=%q owner=%q",
				got.Framework, got.LastError, got.Resources["owner"])
		}
	})
}
