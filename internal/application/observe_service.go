package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skylift/skylift/internal/domain"
)

// LogsInput selects log events for a deployed project.
type LogsInput struct {
	ProjectName   string
	Since         time.Duration
	FilterPattern string
	Limit         int
	// LogGroup overrides the function log group derived from the stack name.
	LogGroup string
}

// MetricsInput selects one metric series for a deployed project.
type MetricsInput struct {
	ProjectName string
	MetricName  string
	Since       time.Duration
	Period      time.Duration
	Stat        string
}

// ObserveService reads logs and metrics for deployed projects. Read-only
// pass-through: queries are scoped by the record's resource identifiers and
// nothing is cached or transformed.
type ObserveService struct {
	Records domain.RecordRepository
	Logs    domain.LogReader
	Metrics domain.MetricReader

	Now func() time.Time
}

func (s *ObserveService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// deployedRecord loads the project record and checks it is observable.
func (s *ObserveService) deployedRecord(ctx context.Context, projectName string) (domain.DeploymentRecord, error) {
	rec, err := s.Records.Get(ctx, projectName)
	if err != nil {
		return domain.DeploymentRecord{}, err
	}
	if rec.Status != domain.StatusDeployed && rec.Status != domain.StatusUpdating {
		return domain.DeploymentRecord{}, fmt.Errorf("project %q is %s; logs and metrics need a deployed stack", projectName, rec.Status)
	}
	return rec, nil
}

// FetchLogs returns log events from the project's function log group.
func (s *ObserveService) FetchLogs(ctx context.Context, in LogsInput) ([]domain.LogEvent, error) {
	rec, err := s.deployedRecord(ctx, in.ProjectName)
	if err != nil {
		return nil, err
	}
	if !rec.DeploymentType.HasBackend() {
		return nil, fmt.Errorf("%w: project %q has no function to read logs from", domain.ErrNotFound, in.ProjectName)
	}

	since := in.Since
	if since <= 0 {
		since = time.Hour
	}
	logGroup := in.LogGroup
	if logGroup == "" {
		logGroup = "/aws/lambda/" + rec.StackName + "-function"
	}
	end := s.now()
	return s.Logs.Logs(ctx, domain.LogQuery{
		LogGroup:      logGroup,
		StartTime:     end.Add(-since),
		EndTime:       end,
		FilterPattern: in.FilterPattern,
		Limit:         in.Limit,
	})
}

// apiGatewayMetrics are the metric names CloudWatch publishes under
// AWS/ApiGateway rather than AWS/Lambda.
var apiGatewayMetrics = map[string]bool{
	"Count":              true,
	"Latency":            true,
	"IntegrationLatency": true,
	"4xx":                true,
	"5xx":                true,
	"DataProcessed":      true,
}

// apiID extracts the API id from a recorded endpoint URL
// (https://<id>.execute-api.<region>.amazonaws.com).
func apiID(endpoint string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	host, _, _ = strings.Cut(host, "/")
	id, _, _ := strings.Cut(host, ".")
	return id
}

// FetchMetrics returns one metric series for the project. Lambda metrics are
// scoped to the function; API metrics (Count, Latency, ...) to the HTTP API.
func (s *ObserveService) FetchMetrics(ctx context.Context, in MetricsInput) (domain.MetricSeries, error) {
	rec, err := s.deployedRecord(ctx, in.ProjectName)
	if err != nil {
		return domain.MetricSeries{}, err
	}
	if !rec.DeploymentType.HasBackend() {
		return domain.MetricSeries{}, fmt.Errorf("%w: project %q has no function to read metrics from", domain.ErrNotFound, in.ProjectName)
	}

	since := in.Since
	if since <= 0 {
		since = time.Hour
	}
	period := in.Period
	if period <= 0 {
		period = 5 * time.Minute
	}
	stat := in.Stat
	if stat == "" {
		stat = "Sum"
	}
	metricName := in.MetricName
	if metricName == "" {
		metricName = "Invocations"
	}

	namespace := "AWS/Lambda"
	dimensions := map[string]string{"FunctionName": rec.StackName + "-function"}
	if apiGatewayMetrics[metricName] {
		id := apiID(rec.Resources[domain.ResourceAPIEndpoint])
		if id == "" {
			return domain.MetricSeries{}, fmt.Errorf("%w: project %q has no API endpoint recorded", domain.ErrNotFound, in.ProjectName)
		}
		namespace = "AWS/ApiGateway"
		dimensions = map[string]string{"ApiId": id}
	}

	end := s.now()
	return s.Metrics.Metrics(ctx, domain.MetricQuery{
		Namespace:  namespace,
		MetricName: metricName,
		Dimensions: dimensions,
		StartTime:  end.Add(-since),
		EndTime:    end,
		Period:     period,
		Stat:       stat,
	})
}
