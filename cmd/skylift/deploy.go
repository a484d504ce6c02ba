package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skylift/skylift/internal/domain"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a project",
	Long: `Deploy a project described by a spec file. Backends are packaged and run
behind the Lambda Web Adapter; frontends are uploaded to S3 and served
through CloudFront. Requires --allow-write.`,
	Run: runDeploy,
}

var deploySpecFile string

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().StringVarP(&deploySpecFile, "file", "f", "skylift.yaml", "Deployment spec file")
}

// loadSpec reads a YAML deployment spec. Relative project roots resolve
// against the spec file's directory, so a committed skylift.yaml works from
// anywhere.
func loadSpec(path string) (domain.DeploymentSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.DeploymentSpec{}, fmt.Errorf("read spec file: %w", err)
	}

	// The spec types carry json tags; go through JSON so YAML keys match
	// the documented field names.
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return domain.DeploymentSpec{}, fmt.Errorf("parse spec file %s: %w", path, err)
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return domain.DeploymentSpec{}, fmt.Errorf("parse spec file %s: %w", path, err)
	}
	var spec domain.DeploymentSpec
	if err := json.Unmarshal(buf, &spec); err != nil {
		return domain.DeploymentSpec{}, fmt.Errorf("parse spec file %s: %w", path, err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return domain.DeploymentSpec{}, err
	}
	if spec.ProjectRoot == "" {
		spec.ProjectRoot = base
	} else if !filepath.IsAbs(spec.ProjectRoot) {
		spec.ProjectRoot = filepath.Join(base, spec.ProjectRoot)
	}
	return spec, nil
}

func runDeploy(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()

	spec, err := loadSpec(deploySpecFile)
	if err != nil {
		log.Fatalf("Failed to load spec: %v", err)
	}

	a := newApp(ctx)
	defer a.close()

	if spec.Region == "" {
		spec.Region = a.cfg.AWS.Region
	}

	stop, err := a.startDeployEngine(ctx)
	if err != nil {
		log.Fatalf("Failed to start deploy engine: %v", err)
	}
	defer stop()

	rec, err := a.deploys.Deploy(ctx, spec)
	if err != nil {
		log.Fatalf("Deploy failed: %v", err)
	}

	fmt.Printf("Deployed %s (%s) as stack %s\n", rec.ProjectName, rec.DeploymentType, rec.StackName)
	printResources(rec)
}

func printResources(rec domain.DeploymentRecord) {
	if endpoint := rec.Resources[domain.ResourceAPIEndpoint]; endpoint != "" {
		fmt.Printf("  API endpoint:  %s\n", endpoint)
	}
	if dom := rec.Resources[domain.ResourceDistributionDomain]; dom != "" {
		fmt.Printf("  CDN domain:    https://%s\n", dom)
	}
	if custom := rec.Resources[domain.ResourceCustomDomain]; custom != "" {
		fmt.Printf("  Custom domain: https://%s\n", custom)
	}
	if bucket := rec.Resources[domain.ResourceBucketName]; bucket != "" {
		fmt.Printf("  Asset bucket:  %s\n", bucket)
	}
	if table := rec.Resources[domain.ResourceTableName]; table != "" {
		fmt.Printf("  Table:         %s\n", table)
	}
}
