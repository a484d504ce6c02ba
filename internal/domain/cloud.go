package domain

import (
	"context"
	"time"
)

// PackageInput asks the packager to archive built artifacts and upload them
// to the deployment artifact store.
type PackageInput struct {
	StackName     string `json:"stack_name"`
	Region        string `json:"region"`
	ArtifactsPath string `json:"artifacts_path"`
}

// PackageOutput locates the uploaded artifact archive.
type PackageOutput struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Digest string `json:"digest"`
}

// Packager archives a built-artifacts directory and uploads it so the engine
// can reference it from the template.
type Packager interface {
	Package(ctx context.Context, in PackageInput) (PackageOutput, error)
}

// AssetSyncResult summarizes one asset upload pass.
type AssetSyncResult struct {
	Uploaded int    `json:"uploaded"`
	Digest   string `json:"digest"`
}

// AssetStore uploads built frontend assets to a static-asset origin.
type AssetStore interface {
	SyncDir(ctx context.Context, bucket, dir string) (AssetSyncResult, error)
}

// CDNDomainResult reports the distribution's canonical domain after a
// domain attachment.
type CDNDomainResult struct {
	DistributionDomain string
}

// CDN mutates an existing distribution. Implementations never create
// distributions; those are owned by the deployment stack.
type CDN interface {
	AttachDomain(ctx context.Context, distributionID, domainName, certificateArn string) (CDNDomainResult, error)
	Invalidate(ctx context.Context, distributionID string, paths []string, callerReference string) (string, error)
}

// CertificateStatus is the validation state of a TLS certificate.
type CertificateStatus string

const (
	CertificateIssued            CertificateStatus = "ISSUED"
	CertificatePendingValidation CertificateStatus = "PENDING_VALIDATION"
	CertificateExpired           CertificateStatus = "EXPIRED"
	CertificateFailed            CertificateStatus = "FAILED"
)

// CertificateChecker reads certificate validation state.
type CertificateChecker interface {
	Status(ctx context.Context, certificateArn string) (CertificateStatus, error)
}

// DNS creates alias records pointing a custom domain at the CDN.
type DNS interface {
	UpsertAlias(ctx context.Context, hostedZoneID, recordName, targetDomain string) (changeID string, err error)
}

// LogQuery selects log events for a deployed project.
type LogQuery struct {
	LogGroup      string
	StartTime     time.Time
	EndTime       time.Time
	FilterPattern string
	Limit         int
}

// LogEvent is one log line with its ingestion timestamp.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// MetricQuery selects metric datapoints for a deployed project.
type MetricQuery struct {
	Namespace  string
	MetricName string
	Dimensions map[string]string
	StartTime  time.Time
	EndTime    time.Time
	Period     time.Duration
	Stat       string
}

// MetricDatapoint is one aggregated metric sample.
type MetricDatapoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricSeries is the datapoints for one queried metric.
type MetricSeries struct {
	MetricName string            `json:"metric_name"`
	Datapoints []MetricDatapoint `json:"datapoints"`
}

// LogReader fetches logs keyed by a record's resource identifiers.
// Read-only pass-through.
type LogReader interface {
	Logs(ctx context.Context, q LogQuery) ([]LogEvent, error)
}

// MetricReader fetches metrics keyed by a record's resource identifiers.
// Read-only pass-through.
type MetricReader interface {
	Metrics(ctx context.Context, q MetricQuery) (MetricSeries, error)
}
