package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skylift/skylift/internal/domain"
	"github.com/skylift/skylift/internal/guidance"
)

var guideCmd = &cobra.Command{
	Use:   "guide [backend|frontend|fullstack]",
	Short: "Show deployment guidance for a project type",
	Args:  cobra.ExactArgs(1),
	Run:   runGuide,
}

var frameworksCmd = &cobra.Command{
	Use:   "frameworks [name]",
	Short: "Show runtime defaults for known frameworks",
	Args:  cobra.MaximumNArgs(1),
	Run:   runFrameworks,
}

func init() {
	rootCmd.AddCommand(guideCmd)
	rootCmd.AddCommand(frameworksCmd)
}

func runGuide(cmd *cobra.Command, args []string) {
	topic, err := guidance.Help(domain.DeploymentType(args[0]))
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println(topic.Title)
	for i, step := range topic.Steps {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
	for _, note := range topic.Notes {
		fmt.Printf("  Note: %s\n", note)
	}
}

func runFrameworks(_ *cobra.Command, args []string) {
	if len(args) == 1 {
		fd, ok := guidance.ForFramework(args[0])
		if !ok {
			log.Fatalf("Unknown framework %q; known: %s", args[0], strings.Join(guidance.Frameworks(), ", "))
		}
		printFrameworks([]guidance.FrameworkDefault{fd})
		return
	}

	defaults := make([]guidance.FrameworkDefault, 0, len(guidance.Frameworks()))
	for _, name := range guidance.Frameworks() {
		fd, _ := guidance.ForFramework(name)
		defaults = append(defaults, fd)
	}
	printFrameworks(defaults)
}

func printFrameworks(defaults []guidance.FrameworkDefault) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRAMEWORK\tRUNTIME\tSTARTUP\tPORT")
	for _, fd := range defaults {
		runtime, startup, port := fd.Runtime, fd.StartupScript, fmt.Sprint(fd.DefaultPort)
		if runtime == "" {
			runtime, startup, port = "(static)", "-", "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fd.Framework, runtime, startup, port)
	}
	w.Flush()
}
