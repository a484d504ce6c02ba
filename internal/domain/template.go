package domain

// Template is the synthesized infrastructure template for one deploy attempt.
// It is immutable once synthesized; a new attempt regenerates it from the
// current spec rather than patching a prior template.
type Template struct {
	// Body is the rendered template document handed to the engine.
	Body string `json:"body"`
	// Resources lists logical resource IDs in declaration order.
	Resources []string `json:"resources"`
	// Parameters are the parameter names the engine must bind at submit
	// time (artifact locations are only known after packaging).
	Parameters []string `json:"parameters,omitempty"`
}

// TemplateSynthesizer builds a template from a deployment spec. Synthesis is
// a pure, deterministic transformation: identical specs yield identical
// templates, which makes re-deploys idempotent and the synthesizer testable
// without cloud access.
type TemplateSynthesizer interface {
	Synthesize(spec DeploymentSpec) (Template, error)
}
