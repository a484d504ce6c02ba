package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/skylift/skylift/internal/application"
)

var updateFrontendCmd = &cobra.Command{
	Use:   "update-frontend [project]",
	Short: "Swap a deployed frontend's assets without redeploying the stack",
	Args:  cobra.ExactArgs(1),
	Run:   runUpdateFrontend,
}

var (
	frontendAssetsDir  string
	frontendInvalidate bool
)

func init() {
	rootCmd.AddCommand(updateFrontendCmd)
	updateFrontendCmd.Flags().StringVar(&frontendAssetsDir, "assets", "", "Directory of built assets (required)")
	updateFrontendCmd.Flags().BoolVar(&frontendInvalidate, "invalidate", false, "Invalidate the CDN cache after upload")
	updateFrontendCmd.MarkFlagRequired("assets")
}

func runUpdateFrontend(cmd *cobra.Command, args []string) {
	a := newApp(cmd.Context())
	defer a.close()

	result, err := a.frontend.Update(cmd.Context(), application.UpdateFrontendInput{
		ProjectName: args[0],
		AssetsDir:   frontendAssetsDir,
		Invalidate:  frontendInvalidate,
	})
	if err != nil {
		log.Fatalf("Failed to update frontend: %v", err)
	}

	fmt.Printf("Uploaded %d assets for %s\n", result.Uploaded, args[0])
	if result.InvalidationID != "" {
		fmt.Printf("CDN invalidation: %s\n", result.InvalidationID)
	}
}
