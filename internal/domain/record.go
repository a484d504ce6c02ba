package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DeploymentType classifies what a project ships: an HTTP backend, a static
// frontend, or both behind one CDN.
type DeploymentType string

const (
	DeploymentTypeBackend   DeploymentType = "backend"
	DeploymentTypeFrontend  DeploymentType = "frontend"
	DeploymentTypeFullstack DeploymentType = "fullstack"
)

// HasBackend reports whether the type includes a compute component.
func (t DeploymentType) HasBackend() bool {
	return t == DeploymentTypeBackend || t == DeploymentTypeFullstack
}

// HasFrontend reports whether the type includes a static-asset component.
func (t DeploymentType) HasFrontend() bool {
	return t == DeploymentTypeFrontend || t == DeploymentTypeFullstack
}

// Status is the lifecycle state of a persisted deployment record.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDeployed   Status = "DEPLOYED"
	StatusFailed     Status = "FAILED"
	StatusUpdating   Status = "UPDATING"
)

// Logical resource roles recorded in DeploymentRecord.Resources.
const (
	ResourceFunctionArn        = "function_arn"
	ResourceAPIEndpoint        = "api_endpoint"
	ResourceBucketName         = "bucket_name"
	ResourceDistributionID     = "distribution_id"
	ResourceDistributionDomain = "distribution_domain"
	ResourceTableName          = "table_name"
	ResourceAssetDigest        = "asset_digest"
	ResourceInvalidationID     = "invalidation_id"
	ResourceCustomDomain       = "custom_domain"
	ResourceDNSRecordID        = "dns_record_id"
)

// DatabaseConfig describes the optional DynamoDB table provisioned with a
// backend deployment.
type DatabaseConfig struct {
	TableName        string `json:"table_name"`
	PartitionKey     string `json:"partition_key"`
	PartitionKeyType string `json:"partition_key_type,omitempty"` // S, N or B; defaults to S
}

// BackendConfig configures the compute side of a deployment. The handler is
// started by a startup script inside the built artifacts and fronted by the
// Lambda Web Adapter, so Port is the port the framework listens on locally.
type BackendConfig struct {
	BuiltArtifactsPath string            `json:"built_artifacts_path"`
	Runtime            string            `json:"runtime"`
	Framework          string            `json:"framework,omitempty"`
	StartupScript      string            `json:"startup_script"`
	Port               int               `json:"port"`
	MemorySize         int               `json:"memory_size,omitempty"`
	Timeout            int               `json:"timeout,omitempty"`
	Architecture       string            `json:"architecture,omitempty"` // x86_64 or arm64
	Stage              string            `json:"stage,omitempty"`
	Environment        map[string]string `json:"environment,omitempty"`
	Database           *DatabaseConfig   `json:"database,omitempty"`
}

// FrontendConfig configures the static-asset side of a deployment.
type FrontendConfig struct {
	BuiltAssetsPath string `json:"built_assets_path"`
	Framework       string `json:"framework,omitempty"`
	IndexDocument   string `json:"index_document,omitempty"`
	ErrorDocument   string `json:"error_document,omitempty"`
	CustomDomain    string `json:"custom_domain,omitempty"`
	CertificateArn  string `json:"certificate_arn,omitempty"`
}

// DeploymentSpec is the caller-provided input to a deployment. ProjectName is
// the unique key; re-deploying under the same name updates the existing stack.
type DeploymentSpec struct {
	ProjectName    string          `json:"project_name"`
	DeploymentType DeploymentType  `json:"deployment_type"`
	ProjectRoot    string          `json:"project_root"`
	Region         string          `json:"region,omitempty"`
	Backend        *BackendConfig  `json:"backend_configuration,omitempty"`
	Frontend       *FrontendConfig `json:"frontend_configuration,omitempty"`
}

// Normalize resolves relative artifact paths against ProjectRoot and applies
// defaults for optional backend and frontend fields.
func (s *DeploymentSpec) Normalize() {
	if s.Backend != nil {
		if s.Backend.BuiltArtifactsPath != "" && !filepath.IsAbs(s.Backend.BuiltArtifactsPath) {
			s.Backend.BuiltArtifactsPath = filepath.Join(s.ProjectRoot, s.Backend.BuiltArtifactsPath)
		}
		if s.Backend.MemorySize == 0 {
			s.Backend.MemorySize = 512
		}
		if s.Backend.Timeout == 0 {
			s.Backend.Timeout = 30
		}
		if s.Backend.Architecture == "" {
			s.Backend.Architecture = "x86_64"
		}
		if s.Backend.Stage == "" {
			s.Backend.Stage = "prod"
		}
	}
	if s.Frontend != nil {
		if s.Frontend.BuiltAssetsPath != "" && !filepath.IsAbs(s.Frontend.BuiltAssetsPath) {
			s.Frontend.BuiltAssetsPath = filepath.Join(s.ProjectRoot, s.Frontend.BuiltAssetsPath)
		}
		if s.Frontend.IndexDocument == "" {
			s.Frontend.IndexDocument = "index.html"
		}
		if s.Frontend.ErrorDocument == "" {
			s.Frontend.ErrorDocument = s.Frontend.IndexDocument
		}
	}
}

// Validate checks the spec against its deployment type. It performs read-only
// filesystem existence checks but no network calls, so it is safe to run
// before any cloud-side effect.
func (s DeploymentSpec) Validate() error {
	if s.ProjectName == "" {
		return fmt.Errorf("%w: project_name is required", ErrInvalidSpec)
	}
	switch s.DeploymentType {
	case DeploymentTypeBackend, DeploymentTypeFrontend, DeploymentTypeFullstack:
	default:
		return fmt.Errorf("%w: unsupported deployment_type %q", ErrInvalidSpec, s.DeploymentType)
	}
	if s.ProjectRoot == "" {
		return fmt.Errorf("%w: project_root is required", ErrInvalidSpec)
	}
	if _, err := os.Stat(s.ProjectRoot); err != nil {
		return fmt.Errorf("%w: project_root %q does not exist", ErrInvalidSpec, s.ProjectRoot)
	}

	if s.DeploymentType.HasBackend() {
		if s.Backend == nil {
			return fmt.Errorf("%w: %s deployments require backend_configuration", ErrInvalidSpec, s.DeploymentType)
		}
		if err := s.Backend.validate(); err != nil {
			return err
		}
	}
	if s.DeploymentType.HasFrontend() {
		if s.Frontend == nil {
			return fmt.Errorf("%w: %s deployments require frontend_configuration", ErrInvalidSpec, s.DeploymentType)
		}
		if err := s.Frontend.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (b BackendConfig) validate() error {
	if b.Runtime == "" {
		return fmt.Errorf("%w: backend runtime is required", ErrInvalidSpec)
	}
	if b.Port <= 0 || b.Port > 65535 {
		return fmt.Errorf("%w: backend port %d is out of range", ErrInvalidSpec, b.Port)
	}
	if b.Architecture != "x86_64" && b.Architecture != "arm64" && b.Architecture != "" {
		return fmt.Errorf("%w: backend architecture %q is not supported", ErrInvalidSpec, b.Architecture)
	}
	info, err := os.Stat(b.BuiltArtifactsPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: built_artifacts_path %q does not exist", ErrInvalidSpec, b.BuiltArtifactsPath)
	}
	if b.StartupScript == "" {
		return fmt.Errorf("%w: backend startup_script is required", ErrInvalidSpec)
	}
	if filepath.IsAbs(b.StartupScript) {
		return fmt.Errorf("%w: startup_script must be relative to built_artifacts_path", ErrInvalidSpec)
	}
	if _, err := os.Stat(filepath.Join(b.BuiltArtifactsPath, b.StartupScript)); err != nil {
		return fmt.Errorf("%w: startup_script %q not found under built_artifacts_path", ErrInvalidSpec, b.StartupScript)
	}
	if err := b.checkDependencies(); err != nil {
		return err
	}
	return nil
}

// checkDependencies verifies that runtime dependencies were installed into the
// built artifacts before packaging. Runtimes without a recognizable layout are
// assumed complete.
func (b BackendConfig) checkDependencies() error {
	present := true
	instructions := ""
	switch {
	case strings.Contains(b.Runtime, "nodejs"):
		present = dirExists(filepath.Join(b.BuiltArtifactsPath, "node_modules"))
		instructions = "copy package.json into built_artifacts_path and run 'npm install --omit=dev' there"
	case strings.Contains(b.Runtime, "python"):
		present = dirExists(filepath.Join(b.BuiltArtifactsPath, "site-packages")) ||
			dirExists(filepath.Join(b.BuiltArtifactsPath, ".venv")) ||
			dirExists(filepath.Join(b.BuiltArtifactsPath, "dist-packages")) ||
			hasDistInfo(b.BuiltArtifactsPath)
		instructions = "copy requirements.txt into built_artifacts_path and run 'pip install -r requirements.txt -t .' there"
	case strings.Contains(b.Runtime, "ruby"):
		present = dirExists(filepath.Join(b.BuiltArtifactsPath, "vendor", "bundle"))
		instructions = "copy the Gemfile into built_artifacts_path and run 'bundle install' there"
	}
	if !present {
		return fmt.Errorf("%w: dependencies not found in %s for runtime %s; %s",
			ErrInvalidSpec, b.BuiltArtifactsPath, b.Runtime, instructions)
	}
	return nil
}

func (f FrontendConfig) validate() error {
	info, err := os.Stat(f.BuiltAssetsPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: built_assets_path %q does not exist", ErrInvalidSpec, f.BuiltAssetsPath)
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func hasDistInfo(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".dist-info") {
			return true
		}
	}
	return false
}

// DeploymentRecord is the persisted state for one project. The orchestrator
// is the only writer of Status; post-deploy mutators update only the resource
// roles relevant to their operation.
type DeploymentRecord struct {
	ProjectName    string            `json:"project_name"`
	DeploymentType DeploymentType    `json:"deployment_type"`
	Status         Status            `json:"status"`
	StackName      string            `json:"stack_name"`
	Framework      string            `json:"framework,omitempty"`
	Region         string            `json:"region,omitempty"`
	Resources      map[string]string `json:"resources"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	LastError      string            `json:"last_error,omitempty"`
}

// HasFrontendResource reports whether the record owns a static-asset origin a
// frontend update can act on.
func (r DeploymentRecord) HasFrontendResource() bool {
	return r.DeploymentType.HasFrontend() && r.Resources[ResourceBucketName] != ""
}

// StackName derives the engine stack name for a project. Stack names must
// start with a letter and contain only alphanumerics and hyphens.
func StackName(projectName string) string {
	var b strings.Builder
	for _, c := range projectName {
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '-' || c == '_' || c == '.':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" || !(name[0] >= 'a' && name[0] <= 'z' || name[0] >= 'A' && name[0] <= 'Z') {
		name = "app-" + name
	}
	return name
}

// Framework returns the framework recorded for the spec, preferring the
// backend one for fullstack deployments.
func (s DeploymentSpec) FrameworkName() string {
	if s.Backend != nil && s.Backend.Framework != "" {
		return s.Backend.Framework
	}
	if s.Frontend != nil {
		return s.Frontend.Framework
	}
	return ""
}

// DestructiveTypeChange reports whether redeploying an existing record under
// newType would drop provisioned resources. Backend/frontend swaps and any
// narrowing of a fullstack deployment delete running infrastructure, so they
// are rejected before the engine is invoked.
func DestructiveTypeChange(current, next DeploymentType) (string, bool) {
	if current == next || current == "" {
		return "", false
	}
	switch {
	case current == DeploymentTypeBackend && next == DeploymentTypeFrontend,
		current == DeploymentTypeFrontend && next == DeploymentTypeBackend,
		current == DeploymentTypeFullstack && next == DeploymentTypeBackend,
		current == DeploymentTypeFullstack && next == DeploymentTypeFrontend:
		return fmt.Sprintf("changing deployment type from %s to %s deletes existing resources; use fullstack to keep both components", current, next), true
	}
	return "", false
}
