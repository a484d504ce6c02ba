// Package guidance serves static help content: how to prepare a project for
// each deployment type and which frameworks map to which defaults. Pure
// data, no cloud access.
package guidance

import (
	"fmt"
	"strings"

	"github.com/skylift/skylift/internal/domain"
)

// Topic is one help document.
type Topic struct {
	Title string
	Steps []string
	Notes []string
}

var helpByType = map[domain.DeploymentType]Topic{
	domain.DeploymentTypeBackend: {
		Title: "Deploying a backend web application",
		Steps: []string{
			"Build your application into a single directory (built_artifacts_path).",
			"Install production dependencies into that directory (node_modules, site-packages, or vendor/bundle).",
			"Add a startup script that launches your web server on the configured port.",
			"Run 'skylift deploy' with deployment_type backend and a backend_configuration.",
		},
		Notes: []string{
			"The application runs unmodified behind the Lambda Web Adapter; no handler rewrite is needed.",
			"Set database.table_name and database.partition_key to provision a DynamoDB table; its name is exported as TABLE_NAME.",
		},
	},
	domain.DeploymentTypeFrontend: {
		Title: "Deploying a frontend web application",
		Steps: []string{
			"Build your static assets (for example 'npm run build') into built_assets_path.",
			"Run 'skylift deploy' with deployment_type frontend and a frontend_configuration.",
			"Use 'skylift update-frontend' for later asset-only changes; the stack is untouched.",
		},
		Notes: []string{
			"Assets are served from S3 through CloudFront; single-page-app routes fall through to the error document.",
		},
	},
	domain.DeploymentTypeFullstack: {
		Title: "Deploying a fullstack web application",
		Steps: []string{
			"Prepare the backend as for a backend deployment and the frontend as for a frontend deployment.",
			"Run 'skylift deploy' with deployment_type fullstack and both configurations.",
		},
		Notes: []string{
			"The CDN routes /api/* to the backend uncached and everything else to the static assets.",
			"Serve API routes under /api on the backend, or calls from the frontend will hit the asset origin.",
		},
	},
}

// frameworkDefaults maps well-known web frameworks to the runtime and
// startup command a project built with them typically needs.
type FrameworkDefault struct {
	Framework     string
	Runtime       string
	StartupScript string
	DefaultPort   int
}

var frameworkDefaults = []FrameworkDefault{
	{Framework: "express", Runtime: "nodejs22.x", StartupScript: "run.sh (node server.js)", DefaultPort: 3000},
	{Framework: "nextjs", Runtime: "nodejs22.x", StartupScript: "run.sh (node server.js)", DefaultPort: 3000},
	{Framework: "flask", Runtime: "python3.13", StartupScript: "run.sh (gunicorn app:app)", DefaultPort: 8000},
	{Framework: "fastapi", Runtime: "python3.13", StartupScript: "run.sh (uvicorn main:app)", DefaultPort: 8000},
	{Framework: "django", Runtime: "python3.13", StartupScript: "run.sh (gunicorn project.wsgi)", DefaultPort: 8000},
	{Framework: "rails", Runtime: "ruby3.3", StartupScript: "run.sh (bundle exec rails server)", DefaultPort: 3000},
	{Framework: "react", Runtime: "", StartupScript: "", DefaultPort: 0},
	{Framework: "vue", Runtime: "", StartupScript: "", DefaultPort: 0},
}

// Help returns the help topic for a deployment type.
func Help(t domain.DeploymentType) (Topic, error) {
	topic, ok := helpByType[t]
	if !ok {
		return Topic{}, fmt.Errorf("no help for deployment type %q; one of backend, frontend, fullstack", t)
	}
	return topic, nil
}

// ForFramework looks up defaults for a framework name, case-insensitively.
// Frontend-only frameworks return defaults with an empty runtime.
func ForFramework(name string) (FrameworkDefault, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, fd := range frameworkDefaults {
		if fd.Framework == needle {
			return fd, true
		}
	}
	return FrameworkDefault{}, false
}

// Frameworks lists the known framework names.
func Frameworks() []string {
	names := make([]string, len(frameworkDefaults))
	for i, fd := range frameworkDefaults {
		names[i] = fd.Framework
	}
	return names
}
