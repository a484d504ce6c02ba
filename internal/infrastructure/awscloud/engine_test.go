package awscloud

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	"github.com/skylift/skylift/internal/domain"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeCFN struct {
	describeOut *cloudformation.DescribeStacksOutput
	describeErr error
	createErr   error
	updateErr   error
	created     int
	updated     int
	deleted     int
	eventsOut   *cloudformation.DescribeStackEventsOutput
}

func (f *fakeCFN) CreateStack(_ context.Context, _ *cloudformation.CreateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	f.created++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &cloudformation.CreateStackOutput{}, nil
}

func (f *fakeCFN) UpdateStack(_ context.Context, _ *cloudformation.UpdateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
	f.updated++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &cloudformation.UpdateStackOutput{}, nil
}

func (f *fakeCFN) DeleteStack(_ context.Context, _ *cloudformation.DeleteStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	f.deleted++
	return &cloudformation.DeleteStackOutput{}, nil
}

func (f *fakeCFN) DescribeStacks(_ context.Context, _ *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.describeOut, nil
}

func (f *fakeCFN) DescribeStackEvents(_ context.Context, _ *cloudformation.DescribeStackEventsInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error) {
	if f.eventsOut != nil {
		return f.eventsOut, nil
	}
	return &cloudformation.DescribeStackEventsOutput{}, nil
}

func missingStackErr() error {
	return &smithy.GenericAPIError{Code: "ValidationError", Message: "Stack with id s does not exist"}
}

func TestEngine_DeployCreatesMissingStack(t *testing.T) {
	cfn := &fakeCFN{describeErr: missingStackErr()}
	e := &Engine{CFN: cfn, Log: testLogger()}

	result, err := e.Deploy(context.Background(), domain.DeployStackInput{StackName: "s", TemplateBody: "tpl"})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if cfn.created != 1 || cfn.updated != 0 {
		t.Errorf("created=%d updated=%d", cfn.created, cfn.updated)
	}
	if result.Status != domain.StackStatusInProgress {
		t.Errorf("status = %s", result.Status)
	}
}

func TestEngine_DeployUpdatesExistingStack(t *testing.T) {
	cfn := &fakeCFN{describeOut: &cloudformation.DescribeStacksOutput{
		Stacks: []cfntypes.Stack{{StackStatus: cfntypes.StackStatusCreateComplete}},
	}}
	e := &Engine{CFN: cfn, Log: testLogger()}

	if _, err := e.Deploy(context.Background(), domain.DeployStackInput{StackName: "s"}); err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if cfn.updated != 1 || cfn.created != 0 {
		t.Errorf("created=%d updated=%d", cfn.created, cfn.updated)
	}
}

func TestEngine_DeployNoUpdates(t *testing.T) {
	cfn := &fakeCFN{
		describeOut: &cloudformation.DescribeStacksOutput{
			Stacks: []cfntypes.Stack{{StackStatus: cfntypes.StackStatusUpdateComplete}},
		},
		updateErr: &smithy.GenericAPIError{Code: "ValidationError", Message: "No updates are to be performed."},
	}
	e := &Engine{CFN: cfn, Log: testLogger()}

	_, err := e.Deploy(context.Background(), domain.DeployStackInput{StackName: "s"})
	if !errors.Is(err, domain.ErrNoChange) {
		t.Fatalf("got %v, want ErrNoChange", err)
	}
}

func TestEngine_DeployClassifiesThrottling(t *testing.T) {
	cfn := &fakeCFN{
		describeOut: &cloudformation.DescribeStacksOutput{
			Stacks: []cfntypes.Stack{{StackStatus: cfntypes.StackStatusCreateComplete}},
		},
		updateErr: &smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded"},
	}
	e := &Engine{CFN: cfn, Log: testLogger()}

	_, err := e.Deploy(context.Background(), domain.DeployStackInput{StackName: "s"})
	if !domain.IsTransient(err) {
		t.Fatalf("throttling not classified transient: %v", err)
	}

	cfn.updateErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized"}
	_, err = e.Deploy(context.Background(), domain.DeployStackInput{StackName: "s"})
	if err == nil || domain.IsTransient(err) {
		t.Fatalf("access denied should be permanent: %v", err)
	}
}

func TestEngine_DescribeMissingStack(t *testing.T) {
	e := &Engine{CFN: &fakeCFN{describeErr: missingStackErr()}, Log: testLogger()}
	_, err := e.Describe(context.Background(), "s")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestEngine_DescribeMapsOutputsAndFailureEvents(t *testing.T) {
	cfn := &fakeCFN{
		describeOut: &cloudformation.DescribeStacksOutput{
			Stacks: []cfntypes.Stack{{
				StackStatus:       cfntypes.StackStatusRollbackComplete,
				StackStatusReason: aws.String("resource creation failed"),
			}},
		},
		eventsOut: &cloudformation.DescribeStackEventsOutput{
			StackEvents: []cfntypes.StackEvent{
				{
					ResourceStatus:       cfntypes.ResourceStatusCreateFailed,
					LogicalResourceId:    aws.String("WebFunction"),
					ResourceStatusReason: aws.String("invalid handler"),
				},
				{ResourceStatus: cfntypes.ResourceStatusCreateComplete},
			},
		},
	}
	e := &Engine{CFN: cfn, Log: testLogger()}

	result, err := e.Describe(context.Background(), "s")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if result.Status != domain.StackStatusFailed {
		t.Errorf("status = %s, want FAILED", result.Status)
	}
	if len(result.Events) != 1 || result.Events[0].LogicalID != "WebFunction" {
		t.Errorf("events = %+v", result.Events)
	}
}

func TestMapStackStatus(t *testing.T) {
	cases := map[cfntypes.StackStatus]domain.StackStatus{
		cfntypes.StackStatusCreateComplete:                     domain.StackStatusSucceeded,
		cfntypes.StackStatusUpdateComplete:                     domain.StackStatusSucceeded,
		cfntypes.StackStatusCreateInProgress:                   domain.StackStatusInProgress,
		cfntypes.StackStatusUpdateInProgress:                   domain.StackStatusInProgress,
		cfntypes.StackStatusUpdateCompleteCleanupInProgress:    domain.StackStatusInProgress,
		cfntypes.StackStatusCreateFailed:                       domain.StackStatusFailed,
		cfntypes.StackStatusRollbackComplete:                   domain.StackStatusFailed,
		cfntypes.StackStatusUpdateRollbackComplete:             domain.StackStatusFailed,
	}
	for in, want := range cases {
		if got := mapStackStatus(in); got != want {
			t.Errorf("mapStackStatus(%s) = %s, want %s", in, got, want)
		}
	}
}
