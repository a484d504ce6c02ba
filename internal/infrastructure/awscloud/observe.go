package awscloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/skylift/skylift/internal/domain"
)

type cloudWatchLogsAPI interface {
	FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

type cloudWatchAPI interface {
	GetMetricData(ctx context.Context, in *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// LogReader implements [domain.LogReader] on CloudWatch Logs.
type LogReader struct {
	CWL cloudWatchLogsAPI
}

func NewLogReader(cfg aws.Config) *LogReader {
	return &LogReader{CWL: cloudwatchlogs.NewFromConfig(cfg)}
}

func (r *LogReader) Logs(ctx context.Context, q domain.LogQuery) ([]domain.LogEvent, error) {
	in := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(q.LogGroup),
		StartTime:    aws.Int64(q.StartTime.UnixMilli()),
		EndTime:      aws.Int64(q.EndTime.UnixMilli()),
	}
	if q.FilterPattern != "" {
		in.FilterPattern = aws.String(q.FilterPattern)
	}
	if q.Limit > 0 {
		in.Limit = aws.Int32(int32(q.Limit))
	}

	out, err := r.CWL.FilterLogEvents(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("filter log events in %s: %w", q.LogGroup, err)
	}

	events := make([]domain.LogEvent, 0, len(out.Events))
	for _, ev := range out.Events {
		event := domain.LogEvent{}
		if ev.Timestamp != nil {
			event.Timestamp = time.UnixMilli(*ev.Timestamp).UTC()
		}
		if ev.Message != nil {
			event.Message = *ev.Message
		}
		events = append(events, event)
	}
	return events, nil
}

// MetricReader implements [domain.MetricReader] on CloudWatch.
type MetricReader struct {
	CW cloudWatchAPI
}

func NewMetricReader(cfg aws.Config) *MetricReader {
	return &MetricReader{CW: cloudwatch.NewFromConfig(cfg)}
}

func (r *MetricReader) Metrics(ctx context.Context, q domain.MetricQuery) (domain.MetricSeries, error) {
	dimensions := make([]cwtypes.Dimension, 0, len(q.Dimensions))
	for name, value := range q.Dimensions {
		dimensions = append(dimensions, cwtypes.Dimension{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}

	out, err := r.CW.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
		StartTime: aws.Time(q.StartTime),
		EndTime:   aws.Time(q.EndTime),
		MetricDataQueries: []cwtypes.MetricDataQuery{{
			Id: aws.String("m0"),
			MetricStat: &cwtypes.MetricStat{
				Metric: &cwtypes.Metric{
					Namespace:  aws.String(q.Namespace),
					MetricName: aws.String(q.MetricName),
					Dimensions: dimensions,
				},
				Period: aws.Int32(int32(q.Period / time.Second)),
				Stat:   aws.String(q.Stat),
			},
		}},
	})
	if err != nil {
		return domain.MetricSeries{}, fmt.Errorf("get metric %s/%s: %w", q.Namespace, q.MetricName, err)
	}

	series := domain.MetricSeries{MetricName: q.MetricName}
	for _, result := range out.MetricDataResults {
		for i := range result.Values {
			dp := domain.MetricDatapoint{Value: result.Values[i]}
			if i < len(result.Timestamps) {
				dp.Timestamp = result.Timestamps[i].UTC()
			}
			series.Datapoints = append(series.Datapoints, dp)
		}
	}
	return series, nil
}
