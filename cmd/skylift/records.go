package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skylift/skylift/internal/domain"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked deployments",
	Run:   runList,
}

var statusCmd = &cobra.Command{
	Use:   "status [project]",
	Short: "Show a deployment, reconciled against the live stack",
	Args:  cobra.ExactArgs(1),
	Run:   runStatus,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [project]",
	Short: "Tear down a deployment's stack and forget its record",
	Args:  cobra.ExactArgs(1),
	Run:   runDelete,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runList(cmd *cobra.Command, _ []string) {
	a := newApp(cmd.Context())
	defer a.close()

	records, err := a.deploys.List(cmd.Context())
	if err != nil {
		log.Fatalf("Failed to list deployments: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No deployments tracked.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tTYPE\tSTATUS\tSTACK\tUPDATED")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.ProjectName, rec.DeploymentType, rec.Status, rec.StackName,
			rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

func runStatus(cmd *cobra.Command, args []string) {
	a := newApp(cmd.Context())
	defer a.close()

	rec, err := a.deploys.Status(cmd.Context(), args[0])
	switch {
	case errors.Is(err, domain.ErrDriftDetected):
		fmt.Printf("Warning: stack %s no longer exists; record marked FAILED\n", rec.StackName)
	case err != nil:
		log.Fatalf("Failed to read status: %v", err)
	}

	fmt.Printf("Project: %s\n", rec.ProjectName)
	fmt.Printf("Type:    %s\n", rec.DeploymentType)
	fmt.Printf("Status:  %s\n", rec.Status)
	fmt.Printf("Stack:   %s\n", rec.StackName)
	if rec.Region != "" {
		fmt.Printf("Region:  %s\n", rec.Region)
	}
	if rec.LastError != "" {
		fmt.Printf("Error:   %s\n", rec.LastError)
	}
	printResources(rec)
}

func runDelete(cmd *cobra.Command, args []string) {
	a := newApp(cmd.Context())
	defer a.close()

	if err := a.deploys.Delete(cmd.Context(), args[0]); err != nil {
		log.Fatalf("Failed to delete deployment: %v", err)
	}
	fmt.Printf("Deleted deployment %s\n", args[0])
}
