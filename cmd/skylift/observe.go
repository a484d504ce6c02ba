package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/skylift/skylift/internal/application"
)

var logsCmd = &cobra.Command{
	Use:   "logs [project]",
	Short: "Fetch recent function logs for a deployed project",
	Args:  cobra.ExactArgs(1),
	Run:   runLogs,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics [project]",
	Short: "Fetch a metric series for a deployed project",
	Args:  cobra.ExactArgs(1),
	Run:   runMetrics,
}

var (
	logsSince  time.Duration
	logsFilter string
	logsLimit  int
	logsGroup  string

	metricName   string
	metricSince  time.Duration
	metricPeriod time.Duration
	metricStat   string
)

func init() {
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(metricsCmd)

	logsCmd.Flags().DurationVar(&logsSince, "since", time.Hour, "How far back to read")
	logsCmd.Flags().StringVar(&logsFilter, "filter", "", "CloudWatch Logs filter pattern")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 0, "Maximum number of events (0 = service default)")
	logsCmd.Flags().StringVar(&logsGroup, "log-group", "", "Log group override (defaults to the function's group)")

	metricsCmd.Flags().StringVar(&metricName, "metric", "Invocations", "Metric name (Invocations, Errors, Duration, Count, Latency, ...)")
	metricsCmd.Flags().DurationVar(&metricSince, "since", time.Hour, "How far back to read")
	metricsCmd.Flags().DurationVar(&metricPeriod, "period", 5*time.Minute, "Aggregation period")
	metricsCmd.Flags().StringVar(&metricStat, "stat", "", "Statistic (Sum, Average, p99, ...)")
}

func runLogs(cmd *cobra.Command, args []string) {
	a := newApp(cmd.Context())
	defer a.close()

	events, err := a.observe.FetchLogs(cmd.Context(), application.LogsInput{
		ProjectName:   args[0],
		Since:         logsSince,
		FilterPattern: logsFilter,
		Limit:         logsLimit,
		LogGroup:      logsGroup,
	})
	if err != nil {
		log.Fatalf("Failed to fetch logs: %v", err)
	}
	if len(events) == 0 {
		fmt.Println("No log events in range.")
		return
	}
	for _, ev := range events {
		fmt.Printf("%s  %s\n", ev.Timestamp.Format(time.RFC3339), ev.Message)
	}
}

func runMetrics(cmd *cobra.Command, args []string) {
	a := newApp(cmd.Context())
	defer a.close()

	series, err := a.observe.FetchMetrics(cmd.Context(), application.MetricsInput{
		ProjectName: args[0],
		MetricName:  metricName,
		Since:       metricSince,
		Period:      metricPeriod,
		Stat:        metricStat,
	})
	if err != nil {
		log.Fatalf("Failed to fetch metrics: %v", err)
	}
	if len(series.Datapoints) == 0 {
		fmt.Printf("No %s datapoints in range.\n", series.MetricName)
		return
	}
	fmt.Printf("%s:\n", series.MetricName)
	for _, dp := range series.Datapoints {
		fmt.Printf("  %s  %g\n", dp.Timestamp.Format(time.RFC3339), dp.Value)
	}
}
