package application_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skylift/skylift/internal/application"
	"github.com/skylift/skylift/internal/domain"
	"github.com/skylift/skylift/internal/infrastructure/sqlite"
	"github.com/skylift/skylift/internal/infrastructure/syncworkflow"
)

// fakeEngine scripts engine behavior at the cloud boundary.
type fakeEngine struct {
	mu          sync.Mutex
	deployErr   error
	describe    domain.StackResult
	describeErr error
	deleted     []string
}

func (f *fakeEngine) Deploy(_ context.Context, _ domain.DeployStackInput) (domain.StackResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deployErr != nil {
		return domain.StackResult{}, f.deployErr
	}
	return domain.StackResult{Status: domain.StackStatusInProgress}, nil
}

func (f *fakeEngine) Describe(_ context.Context, _ string) (domain.StackResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.describeErr != nil {
		return domain.StackResult{}, f.describeErr
	}
	return f.describe, nil
}

func (f *fakeEngine) Delete(_ context.Context, stackName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, stackName)
	return nil
}

type fakePackager struct{}

func (fakePackager) Package(_ context.Context, in domain.PackageInput) (domain.PackageOutput, error) {
	return domain.PackageOutput{Bucket: in.StackName + "-artifacts", Key: "artifacts/v1.zip", Digest: "v1"}, nil
}

type fakeAssets struct {
	mu      sync.Mutex
	err     error
	digest  string
	buckets []string
}

func (f *fakeAssets) SyncDir(_ context.Context, bucket, _ string) (domain.AssetSyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets = append(f.buckets, bucket)
	if f.err != nil {
		return domain.AssetSyncResult{}, f.err
	}
	digest := f.digest
	if digest == "" {
		digest = "assets-v1"
	}
	return domain.AssetSyncResult{Uploaded: 5, Digest: digest}, nil
}

type fakeCDN struct {
	attached      []string
	invalidations []string
	attachErr     error
	invalidateErr error
}

func (f *fakeCDN) AttachDomain(_ context.Context, distributionID, domainName, _ string) (domain.CDNDomainResult, error) {
	if f.attachErr != nil {
		return domain.CDNDomainResult{}, f.attachErr
	}
	f.attached = append(f.attached, distributionID+":"+domainName)
	return domain.CDNDomainResult{DistributionDomain: "d111.cloudfront.net"}, nil
}

func (f *fakeCDN) Invalidate(_ context.Context, distributionID string, _ []string, callerReference string) (string, error) {
	if f.invalidateErr != nil {
		return "", f.invalidateErr
	}
	f.invalidations = append(f.invalidations, distributionID+":"+callerReference)
	return "INV1", nil
}

type fakeCerts struct {
	status domain.CertificateStatus
}

func (f *fakeCerts) Status(_ context.Context, _ string) (domain.CertificateStatus, error) {
	return f.status, nil
}

type fakeDNS struct {
	upserts   []string
	upsertErr error
}

func (f *fakeDNS) UpsertAlias(_ context.Context, hostedZoneID, recordName, targetDomain string) (string, error) {
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	f.upserts = append(f.upserts, hostedZoneID+":"+recordName+":"+targetDomain)
	return "CHG1", nil
}

type fakeLogs struct {
	lastQuery domain.LogQuery
}

func (f *fakeLogs) Logs(_ context.Context, q domain.LogQuery) ([]domain.LogEvent, error) {
	f.lastQuery = q
	return []domain.LogEvent{{Timestamp: q.StartTime, Message: "START RequestId"}}, nil
}

type fakeMetrics struct {
	lastQuery domain.MetricQuery
}

func (f *fakeMetrics) Metrics(_ context.Context, q domain.MetricQuery) (domain.MetricSeries, error) {
	f.lastQuery = q
	return domain.MetricSeries{MetricName: q.MetricName}, nil
}

type testHarness struct {
	records  *sqlite.RecordRepo
	engine   *fakeEngine
	assets   *fakeAssets
	cdn      *fakeCDN
	certs    *fakeCerts
	dns      *fakeDNS
	logs     *fakeLogs
	metrics  *fakeMetrics
	deploy   *application.DeployService
	frontend *application.FrontendService
	domains  *application.DomainService
	observe  *application.ObserveService
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func setup(t *testing.T) *testHarness {
	t.Helper()
	db := sqlite.OpenTestDB(t)
	records := &sqlite.RecordRepo{DB: db, Log: quietLogger()}

	engine := &fakeEngine{describe: domain.StackResult{Status: domain.StackStatusSucceeded}}
	assets := &fakeAssets{}
	cdn := &fakeCDN{}
	certs := &fakeCerts{status: domain.CertificateIssued}
	dns := &fakeDNS{}
	logs := &fakeLogs{}
	metrics := &fakeMetrics{}

	wf := &domain.DeployWorkflow{
		Records:      records,
		Engine:       engine,
		Synthesizer:  synthStub{},
		Packager:     fakePackager{},
		Assets:       assets,
		Deadline:     time.Minute,
		PollInterval: time.Millisecond,
	}
	starter, err := (&syncworkflow.Engine{}).DeployRunner(wf)
	if err != nil {
		t.Fatalf("DeployRunner: %v", err)
	}
	caps := domain.Capabilities{AllowWrite: true}

	return &testHarness{
		records: records,
		engine:  engine,
		assets:  assets,
		cdn:     cdn,
		certs:   certs,
		dns:     dns,
		logs:    logs,
		metrics: metrics,
		deploy: &application.DeployService{
			Records:       records,
			Engine:        engine,
			Orchestration: &application.OrchestrationService{Workflow: starter},
			Capabilities:  caps,
		},
		frontend: &application.FrontendService{
			Records:      records,
			Assets:       assets,
			CDN:          cdn,
			Capabilities: caps,
		},
		domains: &application.DomainService{
			Records:      records,
			CDN:          cdn,
			Certificates: certs,
			DNS:          dns,
			Capabilities: caps,
		},
		observe: &application.ObserveService{
			Records: records,
			Logs:    logs,
			Metrics: metrics,
		},
	}
}

type synthStub struct{}

func (synthStub) Synthesize(spec domain.DeploymentSpec) (domain.Template, error) {
	return domain.Template{Body: "template-for-" + spec.ProjectName}, nil
}

func writeBackendProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	if err := os.MkdirAll(filepath.Join(dist, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dist, "run.sh"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return root
}

func backendSpec(t *testing.T, projectName string) domain.DeploymentSpec {
	t.Helper()
	return domain.DeploymentSpec{
		ProjectName:    projectName,
		DeploymentType: domain.DeploymentTypeBackend,
		ProjectRoot:    writeBackendProject(t),
		Region:         "eu-west-1",
		Backend: &domain.BackendConfig{
			BuiltArtifactsPath: "dist",
			Runtime:            "nodejs20.x",
			StartupScript:      "run.sh",
			Port:               8080,
		},
	}
}

func fullstackSpec(t *testing.T, projectName string) domain.DeploymentSpec {
	t.Helper()
	spec := backendSpec(t, projectName)
	spec.DeploymentType = domain.DeploymentTypeFullstack
	if err := os.MkdirAll(filepath.Join(spec.ProjectRoot, "web"), 0o755); err != nil {
		t.Fatal(err)
	}
	spec.Frontend = &domain.FrontendConfig{BuiltAssetsPath: "web"}
	return spec
}

func deployFullstack(t *testing.T, h *testHarness, projectName string) domain.DeploymentRecord {
	t.Helper()
	h.engine.describe = domain.StackResult{
		Status: domain.StackStatusSucceeded,
		Outputs: map[string]string{
			"FunctionArn":        "arn:aws:lambda:eu-west-1:123:function:f",
			"ApiEndpoint":        "https://abc.execute-api.eu-west-1.amazonaws.com/prod",
			"WebsiteBucketName":  projectName + "-website",
			"DistributionId":     "E2EXAMPLE",
			"DistributionDomain": "d111.cloudfront.net",
		},
	}
	rec, err := h.deploy.Deploy(context.Background(), fullstackSpec(t, projectName))
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	return rec
}

func TestDeploy_BackendEndToEnd(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.engine.describe = domain.StackResult{
		Status:  domain.StackStatusSucceeded,
		Outputs: map[string]string{"FunctionArn": "arn:f", "ApiEndpoint": "https://api"},
	}

	rec, err := h.deploy.Deploy(ctx, backendSpec(t, "orders-api"))
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if rec.Status != domain.StatusDeployed {
		t.Errorf("status = %s, want DEPLOYED", rec.Status)
	}

	stored, err := h.deploy.Get(ctx, "orders-api")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Resources[domain.ResourceFunctionArn] != "arn:f" {
		t.Errorf("stored resources = %v", stored.Resources)
	}
	if stored.Resources[domain.ResourceAPIEndpoint] != "https://api" {
		t.Errorf("stored resources = %v", stored.Resources)
	}
}

func TestDeploy_WriteDisabled(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.deploy.Capabilities = domain.Capabilities{}
	h.frontend.Capabilities = domain.Capabilities{}
	h.domains.Capabilities = domain.Capabilities{}

	if _, err := h.deploy.Deploy(ctx, backendSpec(t, "p")); !errors.Is(err, domain.ErrWriteDisabled) {
		t.Errorf("Deploy: got %v, want ErrWriteDisabled", err)
	}
	if err := h.deploy.Delete(ctx, "p"); !errors.Is(err, domain.ErrWriteDisabled) {
		t.Errorf("Delete: got %v, want ErrWriteDisabled", err)
	}
	if _, err := h.frontend.Update(ctx, application.UpdateFrontendInput{ProjectName: "p"}); !errors.Is(err, domain.ErrWriteDisabled) {
		t.Errorf("Update: got %v, want ErrWriteDisabled", err)
	}
	if _, err := h.domains.Configure(ctx, application.ConfigureDomainInput{ProjectName: "p"}); !errors.Is(err, domain.ErrWriteDisabled) {
		t.Errorf("Configure: got %v, want ErrWriteDisabled", err)
	}
}

func TestStatus_ReportsDriftWhenStackVanished(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.engine.describe = domain.StackResult{
		Status:  domain.StackStatusSucceeded,
		Outputs: map[string]string{"FunctionArn": "arn:f"},
	}
	if _, err := h.deploy.Deploy(ctx, backendSpec(t, "orders-api")); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	h.engine.describeErr = domain.ErrNotFound
	rec, err := h.deploy.Status(ctx, "orders-api")
	if !errors.Is(err, domain.ErrDriftDetected) {
		t.Fatalf("got %v, want ErrDriftDetected", err)
	}
	if rec.Status != domain.StatusFailed {
		t.Errorf("status = %s, want FAILED", rec.Status)
	}
	if !strings.Contains(rec.LastError, "no longer exists") {
		t.Errorf("last_error = %q", rec.LastError)
	}

	stored, err := h.deploy.Get(ctx, "orders-api")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != domain.StatusFailed {
		t.Errorf("drift not persisted: status = %s", stored.Status)
	}
}

func TestStatus_SkipsReconcileForNonDeployedRecords(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	if err := h.records.Put(ctx, domain.DeploymentRecord{
		ProjectName: "p", DeploymentType: domain.DeploymentTypeBackend,
		Status: domain.StatusFailed, StackName: "p",
	}); err != nil {
		t.Fatal(err)
	}
	h.engine.describeErr = errors.New("engine must not be called")

	rec, err := h.deploy.Status(ctx, "p")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rec.Status != domain.StatusFailed {
		t.Errorf("status = %s", rec.Status)
	}
}

func TestDelete_TearsDownStackThenRecord(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.engine.describe = domain.StackResult{Status: domain.StackStatusSucceeded}
	if _, err := h.deploy.Deploy(ctx, backendSpec(t, "orders-api")); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if err := h.deploy.Delete(ctx, "orders-api"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(h.engine.deleted) != 1 || h.engine.deleted[0] != "orders-api" {
		t.Errorf("stacks deleted: %v", h.engine.deleted)
	}
	if _, err := h.deploy.Get(ctx, "orders-api"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("record still present: %v", err)
	}
}

func TestFrontendUpdate_SwapsAssetsAndInvalidates(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	deployFullstack(t, h, "shop")

	assetsDir := t.TempDir()
	h.assets.digest = "assets-v2"
	result, err := h.frontend.Update(ctx, application.UpdateFrontendInput{
		ProjectName: "shop",
		AssetsDir:   assetsDir,
		Invalidate:  true,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Record.Status != domain.StatusDeployed {
		t.Errorf("status = %s, want DEPLOYED", result.Record.Status)
	}
	if result.Record.Resources[domain.ResourceAssetDigest] != "assets-v2" {
		t.Errorf("asset_digest = %q", result.Record.Resources[domain.ResourceAssetDigest])
	}
	if result.InvalidationID != "INV1" || result.Record.Resources[domain.ResourceInvalidationID] != "INV1" {
		t.Errorf("invalidation not recorded: %+v", result)
	}
	if len(h.cdn.invalidations) != 1 || !strings.HasPrefix(h.cdn.invalidations[0], "E2EXAMPLE:shop-") {
		t.Errorf("invalidations = %v", h.cdn.invalidations)
	}
	// Assets land in the website bucket, not the artifacts bucket.
	last := h.assets.buckets[len(h.assets.buckets)-1]
	if last != "shop-website" {
		t.Errorf("assets synced to %q", last)
	}
}

func TestFrontendUpdate_WithoutInvalidationLeavesCDNAlone(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	deployFullstack(t, h, "shop")

	if _, err := h.frontend.Update(ctx, application.UpdateFrontendInput{
		ProjectName: "shop",
		AssetsDir:   t.TempDir(),
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(h.cdn.invalidations) != 0 {
		t.Errorf("unexpected invalidations: %v", h.cdn.invalidations)
	}
}

func TestFrontendUpdate_BackendProjectHasNoFrontend(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.engine.describe = domain.StackResult{
		Status:  domain.StackStatusSucceeded,
		Outputs: map[string]string{"FunctionArn": "arn:f"},
	}
	if _, err := h.deploy.Deploy(ctx, backendSpec(t, "api-only")); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	_, err := h.frontend.Update(ctx, application.UpdateFrontendInput{
		ProjectName: "api-only",
		AssetsDir:   t.TempDir(),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestFrontendUpdate_SyncFailureMarksRecordFailed(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	deployFullstack(t, h, "shop")

	h.assets.err = errors.New("access denied")
	_, err := h.frontend.Update(ctx, application.UpdateFrontendInput{
		ProjectName: "shop",
		AssetsDir:   t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error")
	}

	rec, err := h.records.Get(ctx, "shop")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != domain.StatusFailed {
		t.Errorf("status = %s, want FAILED", rec.Status)
	}
	if !strings.Contains(rec.LastError, "access denied") {
		t.Errorf("last_error = %q", rec.LastError)
	}
}

func TestFrontendUpdate_InvalidationFailureMarksRecordFailed(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	deployFullstack(t, h, "shop")

	h.cdn.invalidateErr = errors.New("too many invalidations")
	_, err := h.frontend.Update(ctx, application.UpdateFrontendInput{
		ProjectName: "shop",
		AssetsDir:   t.TempDir(),
		Invalidate:  true,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	rec, err := h.records.Get(ctx, "shop")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != domain.StatusFailed {
		t.Errorf("status = %s, want FAILED", rec.Status)
	}
	if !strings.Contains(rec.LastError, "invalidate distribution E2EXAMPLE") ||
		!strings.Contains(rec.LastError, "too many invalidations") {
		t.Errorf("last_error = %q", rec.LastError)
	}
	// The assets were already swapped in the bucket; the record keeps that.
	if rec.Resources[domain.ResourceAssetDigest] == "" {
		t.Error("asset_digest lost after invalidation failure")
	}
}

func TestConfigureDomain_BindsDomainAndDNS(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	deployFullstack(t, h, "shop")

	result, err := h.domains.Configure(ctx, application.ConfigureDomainInput{
		ProjectName:    "shop",
		DomainName:     "shop.example.com",
		CertificateArn: "arn:aws:acm:us-east-1:123:certificate/abc",
		HostedZoneID:   "Z123",
		CreateRecord:   true,
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if result.Record.Status != domain.StatusDeployed {
		t.Errorf("status = %s, want DEPLOYED", result.Record.Status)
	}
	if result.DistributionDomain != "d111.cloudfront.net" {
		t.Errorf("distribution domain = %q", result.DistributionDomain)
	}
	if result.Record.Resources[domain.ResourceCustomDomain] != "shop.example.com" {
		t.Errorf("custom_domain = %q", result.Record.Resources[domain.ResourceCustomDomain])
	}
	if result.Record.Resources[domain.ResourceDNSRecordID] != "CHG1" {
		t.Errorf("dns_record_id = %q", result.Record.Resources[domain.ResourceDNSRecordID])
	}
	if len(h.dns.upserts) != 1 || h.dns.upserts[0] != "Z123:shop.example.com:d111.cloudfront.net" {
		t.Errorf("dns upserts = %v", h.dns.upserts)
	}
}

func TestConfigureDomain_PendingCertificateAborts(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	deployFullstack(t, h, "shop")

	h.certs.status = domain.CertificatePendingValidation
	_, err := h.domains.Configure(ctx, application.ConfigureDomainInput{
		ProjectName:    "shop",
		DomainName:     "shop.example.com",
		CertificateArn: "arn:cert",
	})
	if !errors.Is(err, domain.ErrCertificateNotReady) {
		t.Fatalf("got %v, want ErrCertificateNotReady", err)
	}
	if len(h.cdn.attached) != 0 {
		t.Errorf("distribution mutated despite pending certificate: %v", h.cdn.attached)
	}
	rec, err := h.records.Get(ctx, "shop")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Resources[domain.ResourceCustomDomain] != "" {
		t.Errorf("record mutated despite pending certificate: %v", rec.Resources)
	}
}

func TestConfigureDomain_NoDistribution(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.engine.describe = domain.StackResult{
		Status:  domain.StackStatusSucceeded,
		Outputs: map[string]string{"FunctionArn": "arn:f"},
	}
	if _, err := h.deploy.Deploy(ctx, backendSpec(t, "api-only")); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	_, err := h.domains.Configure(ctx, application.ConfigureDomainInput{
		ProjectName:    "api-only",
		DomainName:     "api.example.com",
		CertificateArn: "arn:cert",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestConfigureDomain_AttachFailureMarksRecordFailed(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	deployFullstack(t, h, "shop")

	h.cdn.attachErr = errors.New("precondition failed")
	_, err := h.domains.Configure(ctx, application.ConfigureDomainInput{
		ProjectName:    "shop",
		DomainName:     "shop.example.com",
		CertificateArn: "arn:cert",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	rec, err := h.records.Get(ctx, "shop")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != domain.StatusFailed {
		t.Errorf("status = %s, want FAILED", rec.Status)
	}
	if !strings.Contains(rec.LastError, "attach domain shop.example.com") ||
		!strings.Contains(rec.LastError, "precondition failed") {
		t.Errorf("last_error = %q", rec.LastError)
	}
	if rec.Resources[domain.ResourceCustomDomain] != "" {
		t.Errorf("custom_domain = %q recorded without an attachment", rec.Resources[domain.ResourceCustomDomain])
	}
}

func TestConfigureDomain_DNSFailureKeepsAttachmentOnRecord(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	deployFullstack(t, h, "shop")

	h.dns.upsertErr = errors.New("zone not found")
	_, err := h.domains.Configure(ctx, application.ConfigureDomainInput{
		ProjectName:    "shop",
		DomainName:     "shop.example.com",
		CertificateArn: "arn:cert",
		HostedZoneID:   "Z123",
		CreateRecord:   true,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(h.cdn.attached) != 1 {
		t.Fatalf("attached = %v, want one attachment", h.cdn.attached)
	}

	rec, err := h.records.Get(ctx, "shop")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != domain.StatusFailed {
		t.Errorf("status = %s, want FAILED", rec.Status)
	}
	// The alias is already on the distribution; the record must say so.
	if rec.Resources[domain.ResourceCustomDomain] != "shop.example.com" {
		t.Errorf("custom_domain = %q, want shop.example.com", rec.Resources[domain.ResourceCustomDomain])
	}
	if rec.Resources[domain.ResourceDNSRecordID] != "" {
		t.Errorf("dns_record_id = %q recorded without an upsert", rec.Resources[domain.ResourceDNSRecordID])
	}
	if !strings.Contains(rec.LastError, "upsert DNS alias shop.example.com") ||
		!strings.Contains(rec.LastError, "zone not found") {
		t.Errorf("last_error = %q", rec.LastError)
	}
}

func TestConfigureDomain_RecordOptOutSkipsDNS(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	deployFullstack(t, h, "shop")

	result, err := h.domains.Configure(ctx, application.ConfigureDomainInput{
		ProjectName:    "shop",
		DomainName:     "shop.example.com",
		CertificateArn: "arn:cert",
		HostedZoneID:   "Z123",
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if len(h.dns.upserts) != 0 {
		t.Errorf("dns upserts = %v, want none without CreateRecord", h.dns.upserts)
	}
	if result.DNSChangeID != "" {
		t.Errorf("dns change id = %q", result.DNSChangeID)
	}
	if result.Record.Resources[domain.ResourceCustomDomain] != "shop.example.com" {
		t.Errorf("custom_domain = %q", result.Record.Resources[domain.ResourceCustomDomain])
	}
}

func TestObserve_LogsScopedToFunctionLogGroup(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.engine.describe = domain.StackResult{
		Status:  domain.StackStatusSucceeded,
		Outputs: map[string]string{"FunctionArn": "arn:f"},
	}
	if _, err := h.deploy.Deploy(ctx, backendSpec(t, "orders-api")); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	events, err := h.observe.FetchLogs(ctx, application.LogsInput{ProjectName: "orders-api"})
	if err != nil {
		t.Fatalf("FetchLogs: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %v", events)
	}
	if h.logs.lastQuery.LogGroup != "/aws/lambda/orders-api-function" {
		t.Errorf("log group = %q", h.logs.lastQuery.LogGroup)
	}
}

func TestObserve_RequiresDeployedBackend(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	if err := h.records.Put(ctx, domain.DeploymentRecord{
		ProjectName: "p", DeploymentType: domain.DeploymentTypeBackend,
		Status: domain.StatusInProgress, StackName: "p",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.observe.FetchLogs(ctx, application.LogsInput{ProjectName: "p"}); err == nil {
		t.Error("logs served for an in-progress deployment")
	}

	if err := h.records.Put(ctx, domain.DeploymentRecord{
		ProjectName: "site", DeploymentType: domain.DeploymentTypeFrontend,
		Status: domain.StatusDeployed, StackName: "site",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.observe.FetchMetrics(ctx, application.MetricsInput{ProjectName: "site"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound for frontend-only project", err)
	}
}

func TestObserve_MetricDefaults(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.engine.describe = domain.StackResult{
		Status:  domain.StackStatusSucceeded,
		Outputs: map[string]string{"FunctionArn": "arn:f"},
	}
	if _, err := h.deploy.Deploy(ctx, backendSpec(t, "orders-api")); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if _, err := h.observe.FetchMetrics(ctx, application.MetricsInput{ProjectName: "orders-api"}); err != nil {
		t.Fatalf("FetchMetrics: %v", err)
	}
	q := h.metrics.lastQuery
	if q.Namespace != "AWS/Lambda" || q.MetricName != "Invocations" || q.Stat != "Sum" {
		t.Errorf("query defaults = %+v", q)
	}
	if q.Dimensions["FunctionName"] != "orders-api-function" {
		t.Errorf("dimensions = %v", q.Dimensions)
	}
	if q.Period != 5*time.Minute {
		t.Errorf("period = %s", q.Period)
	}
}

func TestObserve_APIMetricsScopedToAPIID(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	h.engine.describe = domain.StackResult{
		Status: domain.StackStatusSucceeded,
		Outputs: map[string]string{
			"FunctionArn": "arn:f",
			"ApiEndpoint": "https://ab12cd34.execute-api.eu-west-1.amazonaws.com",
		},
	}
	if _, err := h.deploy.Deploy(ctx, backendSpec(t, "orders-api")); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if _, err := h.observe.FetchMetrics(ctx, application.MetricsInput{
		ProjectName: "orders-api",
		MetricName:  "Latency",
	}); err != nil {
		t.Fatalf("FetchMetrics: %v", err)
	}
	q := h.metrics.lastQuery
	if q.Namespace != "AWS/ApiGateway" {
		t.Errorf("namespace = %q, want AWS/ApiGateway", q.Namespace)
	}
	if q.Dimensions["ApiId"] != "ab12cd34" {
		t.Errorf("dimensions = %v", q.Dimensions)
	}
}
