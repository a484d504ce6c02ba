// Command skylift deploys web applications to AWS serverless
// infrastructure and manages their lifecycle.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig     string
	flagRegion     string
	flagProfile    string
	flagAllowWrite bool
)

var rootCmd = &cobra.Command{
	Use:   "skylift",
	Short: "Deploy web applications to AWS serverless infrastructure",
	Long: `skylift deploys backend, frontend, and fullstack web applications to AWS.
Backends run unmodified behind the Lambda Web Adapter; frontends are served
from S3 through CloudFront. Deployment state is tracked locally per project.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "AWS region override")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "AWS profile override")
	rootCmd.PersistentFlags().BoolVar(&flagAllowWrite, "allow-write", false, "enable mutating operations")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
