package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults for the deploy workflow's timing knobs.
const (
	DefaultDeployDeadline = 15 * time.Minute
	DefaultPollInterval   = 5 * time.Second
	DefaultSubmitAttempts = 4
)

// outputResourceRoles maps engine stack outputs onto the logical resource
// roles recorded for a project.
var outputResourceRoles = map[string]string{
	"FunctionArn":        ResourceFunctionArn,
	"ApiEndpoint":        ResourceAPIEndpoint,
	"WebsiteBucketName":  ResourceBucketName,
	"DistributionId":     ResourceDistributionID,
	"DistributionDomain": ResourceDistributionDomain,
	"TableName":          ResourceTableName,
}

// DeployWorkflow drives one deployment attempt as a sequence of idempotent
// activities: synthesize the template, open the record, package artifacts,
// submit the stack, await stabilization, sync frontend assets, and close the
// record. Whatever happens after the record is opened, the workflow closes it
// in a terminal state (DEPLOYED or FAILED); a failed attempt stays
// inspectable and is never rolled back to NOT_STARTED.
type DeployWorkflow struct {
	Records     RecordRepository
	Engine      Engine
	Synthesizer TemplateSynthesizer
	Packager    Packager
	Assets      AssetStore

	Now            func() time.Time
	Deadline       time.Duration // cap on total await time
	PollInterval   time.Duration // cap on per-poll spacing
	SubmitAttempts uint64        // bound on transient-failure retries
}

func (wf *DeployWorkflow) Name() string { return "deploy-webapp" }

func (wf *DeployWorkflow) now() time.Time {
	if wf.Now != nil {
		return wf.Now()
	}
	return time.Now().UTC()
}

func (wf *DeployWorkflow) deadline() time.Duration {
	if wf.Deadline > 0 {
		return wf.Deadline
	}
	return DefaultDeployDeadline
}

func (wf *DeployWorkflow) pollInterval() time.Duration {
	if wf.PollInterval > 0 {
		return wf.PollInterval
	}
	return DefaultPollInterval
}

func (wf *DeployWorkflow) submitAttempts() uint64 {
	if wf.SubmitAttempts > 0 {
		return wf.SubmitAttempts
	}
	return DefaultSubmitAttempts
}

// BeginRecordInput opens the record for a deploy attempt.
type BeginRecordInput struct {
	Spec DeploymentSpec `json:"spec"`
}

// SubmitInput wraps the engine submission payload.
type SubmitInput struct {
	Input DeployStackInput `json:"input"`
}

// SubmitOutput reports whether the engine had anything to change.
type SubmitOutput struct {
	NoChange bool `json:"no_change"`
}

// AwaitInput names the stack to poll to completion.
type AwaitInput struct {
	StackName string `json:"stack_name"`
}

// SyncAssetsInput names the origin bucket and local assets directory.
type SyncAssetsInput struct {
	Bucket string `json:"bucket"`
	Dir    string `json:"dir"`
}

// CompleteRecordInput closes the record in a terminal state.
type CompleteRecordInput struct {
	ProjectName string            `json:"project_name"`
	Status      Status            `json:"status"`
	Resources   map[string]string `json:"resources,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
}

// SynthesizeTemplate validates the spec and synthesizes its template. Pure;
// runs before any record or cloud mutation so invalid specs leave no trace.
func (wf *DeployWorkflow) SynthesizeTemplate() Activity[DeploymentSpec, Template] {
	return NewActivity("synthesize-template", func(_ context.Context, spec DeploymentSpec) (Template, error) {
		if err := spec.Validate(); err != nil {
			return Template{}, err
		}
		return wf.Synthesizer.Synthesize(spec)
	})
}

// BeginRecord creates or reopens the project record, moving it to
// IN_PROGRESS (first attempt or retry after failure) or UPDATING (a DEPLOYED
// stack is being updated). Destructive type changes are rejected here,
// before any cloud call.
func (wf *DeployWorkflow) BeginRecord() Activity[BeginRecordInput, DeploymentRecord] {
	return NewActivity("begin-record", func(ctx context.Context, in BeginRecordInput) (DeploymentRecord, error) {
		now := wf.now()
		spec := in.Spec

		existing, err := wf.Records.Get(ctx, spec.ProjectName)
		switch {
		case errors.Is(err, ErrNotFound):
			rec := DeploymentRecord{
				ProjectName:    spec.ProjectName,
				DeploymentType: spec.DeploymentType,
				Status:         StatusInProgress,
				StackName:      StackName(spec.ProjectName),
				Framework:      spec.FrameworkName(),
				Region:         spec.Region,
				Resources:      map[string]string{},
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := wf.Records.Put(ctx, rec); err != nil {
				return DeploymentRecord{}, err
			}
			return rec, nil
		case err != nil:
			return DeploymentRecord{}, err
		}

		if warning, destructive := DestructiveTypeChange(existing.DeploymentType, spec.DeploymentType); destructive {
			return DeploymentRecord{}, fmt.Errorf("%w: %s", ErrInvalidSpec, warning)
		}

		return wf.Records.Mutate(ctx, spec.ProjectName, func(rec *DeploymentRecord) error {
			if rec.Status == StatusDeployed {
				rec.Status = StatusUpdating
			} else {
				rec.Status = StatusInProgress
			}
			rec.DeploymentType = spec.DeploymentType
			rec.Framework = spec.FrameworkName()
			rec.Region = spec.Region
			rec.LastError = ""
			rec.UpdatedAt = now
			return nil
		})
	})
}

// PackageArtifacts archives the built backend artifacts and uploads them to
// the deployment artifact store.
func (wf *DeployWorkflow) PackageArtifacts() Activity[PackageInput, PackageOutput] {
	return NewActivity("package-artifacts", func(ctx context.Context, in PackageInput) (PackageOutput, error) {
		return wf.Packager.Package(ctx, in)
	})
}

// SubmitStack submits the stack to the engine, retrying transient failures
// with bounded exponential backoff. Permanent failures surface immediately;
// a no-change submission short-circuits the wait.
func (wf *DeployWorkflow) SubmitStack() Activity[SubmitInput, SubmitOutput] {
	return NewActivity("submit-stack", func(ctx context.Context, in SubmitInput) (SubmitOutput, error) {
		noChange := false
		op := func() error {
			_, err := wf.Engine.Deploy(ctx, in.Input)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, ErrNoChange):
				noChange = true
				return nil
			case IsTransient(err):
				return err
			default:
				return backoff.Permanent(err)
			}
		}
		policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), wf.submitAttempts()-1)
		if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
			return SubmitOutput{}, err
		}
		return SubmitOutput{NoChange: noChange}, nil
	})
}

// AwaitStack polls the engine until the stack reaches a terminal state or
// the deployment deadline expires. There is no cancellation channel into an
// in-flight deployment; on deadline expiry the attempt fails rather than
// blocking indefinitely.
func (wf *DeployWorkflow) AwaitStack() Activity[AwaitInput, StackResult] {
	return NewActivity("await-stack", func(ctx context.Context, in AwaitInput) (StackResult, error) {
		deadline := wf.now().Add(wf.deadline())
		ticker := time.NewTicker(wf.pollInterval())
		defer ticker.Stop()

		for {
			result, err := wf.Engine.Describe(ctx, in.StackName)
			if err != nil {
				return StackResult{}, err
			}
			switch result.Status {
			case StackStatusSucceeded:
				return result, nil
			case StackStatusFailed:
				return result, fmt.Errorf("stack %s failed: %s", in.StackName, result.StatusReason)
			}

			if wf.now().After(deadline) {
				return result, fmt.Errorf("stack %s did not stabilize within %s", in.StackName, wf.deadline())
			}
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-ticker.C:
			}
		}
	})
}

// SyncAssets uploads built frontend assets to the website bucket created by
// the stack.
func (wf *DeployWorkflow) SyncAssets() Activity[SyncAssetsInput, AssetSyncResult] {
	return NewActivity("sync-assets", func(ctx context.Context, in SyncAssetsInput) (AssetSyncResult, error) {
		return wf.Assets.SyncDir(ctx, in.Bucket, in.Dir)
	})
}

// CompleteRecord closes the record in a terminal state under the project's
// record lock.
func (wf *DeployWorkflow) CompleteRecord() Activity[CompleteRecordInput, DeploymentRecord] {
	return NewActivity("complete-record", func(ctx context.Context, in CompleteRecordInput) (DeploymentRecord, error) {
		return wf.Records.Mutate(ctx, in.ProjectName, func(rec *DeploymentRecord) error {
			rec.Status = in.Status
			rec.LastError = in.LastError
			if in.Resources != nil {
				rec.Resources = in.Resources
			}
			rec.UpdatedAt = wf.now()
			return nil
		})
	})
}

// Run executes one deploy attempt. Validation and synthesis failures return
// before any record or cloud mutation; once the record is open, every exit
// path closes it in a terminal state.
func (wf *DeployWorkflow) Run(runner DurableRunner, spec DeploymentSpec) (DeploymentRecord, error) {
	spec.Normalize()

	tpl, err := RunActivity(runner, wf.SynthesizeTemplate(), spec)
	if err != nil {
		return DeploymentRecord{}, err
	}

	rec, err := RunActivity(runner, wf.BeginRecord(), BeginRecordInput{Spec: spec})
	if err != nil {
		return DeploymentRecord{}, err
	}

	fail := func(stage string, cause error) (DeploymentRecord, error) {
		failed, cerr := RunActivity(runner, wf.CompleteRecord(), CompleteRecordInput{
			ProjectName: spec.ProjectName,
			Status:      StatusFailed,
			LastError:   fmt.Sprintf("%s: %v", stage, cause),
		})
		if cerr != nil {
			return DeploymentRecord{}, fmt.Errorf("project %s: %s failed (%v); recording failure also failed: %w",
				spec.ProjectName, stage, cause, cerr)
		}
		return failed, fmt.Errorf("project %s: %s: %w", spec.ProjectName, stage, cause)
	}

	parameters := map[string]string{}
	if spec.DeploymentType.HasBackend() {
		pkg, err := RunActivity(runner, wf.PackageArtifacts(), PackageInput{
			StackName:     rec.StackName,
			Region:        spec.Region,
			ArtifactsPath: spec.Backend.BuiltArtifactsPath,
		})
		if err != nil {
			return fail("package-artifacts", err)
		}
		parameters["ArtifactsBucket"] = pkg.Bucket
		parameters["ArtifactsKey"] = pkg.Key
	}

	submit, err := RunActivity(runner, wf.SubmitStack(), SubmitInput{Input: DeployStackInput{
		StackName:    rec.StackName,
		TemplateBody: tpl.Body,
		Parameters:   parameters,
		Tags: map[string]string{
			"skylift:project": spec.ProjectName,
			"skylift:managed": "true",
		},
	}})
	if err != nil {
		return fail("submit-stack", err)
	}

	resources := rec.Resources
	if resources == nil {
		resources = map[string]string{}
	}
	if !submit.NoChange {
		result, err := RunActivity(runner, wf.AwaitStack(), AwaitInput{StackName: rec.StackName})
		if err != nil {
			return fail("await-stack", err)
		}
		resources = resourcesFromOutputs(result.Outputs, resources)
	}

	if spec.DeploymentType.HasFrontend() {
		bucket := resources[ResourceBucketName]
		if bucket == "" {
			return fail("sync-assets", errors.New("stack outputs carry no website bucket"))
		}
		synced, err := RunActivity(runner, wf.SyncAssets(), SyncAssetsInput{
			Bucket: bucket,
			Dir:    spec.Frontend.BuiltAssetsPath,
		})
		if err != nil {
			return fail("sync-assets", err)
		}
		resources[ResourceAssetDigest] = synced.Digest
	}

	return RunActivity(runner, wf.CompleteRecord(), CompleteRecordInput{
		ProjectName: spec.ProjectName,
		Status:      StatusDeployed,
		Resources:   resources,
	})
}

// resourcesFromOutputs maps stack outputs onto resource roles, keeping prior
// mutation-owned roles (asset digest, custom domain) that stack outputs do
// not carry.
func resourcesFromOutputs(outputs map[string]string, prior map[string]string) map[string]string {
	resources := map[string]string{}
	for role, value := range prior {
		switch role {
		case ResourceAssetDigest, ResourceInvalidationID, ResourceCustomDomain, ResourceDNSRecordID:
			resources[role] = value
		}
	}
	for output, role := range outputResourceRoles {
		if v, ok := outputs[output]; ok && v != "" {
			resources[role] = v
		}
	}
	return resources
}
