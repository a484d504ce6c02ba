// Package awscloud implements the domain's cloud-side ports against AWS:
// CloudFormation as the deployment engine, S3 for artifacts and assets,
// CloudFront, ACM and Route53 for the domain mutators, and CloudWatch for
// observability pass-through.
package awscloud

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	"github.com/skylift/skylift/internal/domain"
)

// cloudFormationAPI is the slice of the CloudFormation client the engine
// uses.
type cloudFormationAPI interface {
	CreateStack(ctx context.Context, in *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, in *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
	DeleteStack(ctx context.Context, in *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
	DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	DescribeStackEvents(ctx context.Context, in *cloudformation.DescribeStackEventsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error)
}

// Engine implements [domain.Engine] on CloudFormation.
type Engine struct {
	CFN cloudFormationAPI
	Log logrus.FieldLogger
}

func NewEngine(cfg aws.Config, log logrus.FieldLogger) *Engine {
	return &Engine{CFN: cloudformation.NewFromConfig(cfg), Log: log}
}

// Deploy submits a create or update for the stack and returns immediately.
// The caller polls Describe until the stack stabilizes.
func (e *Engine) Deploy(ctx context.Context, in domain.DeployStackInput) (domain.StackResult, error) {
	exists, err := e.stackExists(ctx, in.StackName)
	if err != nil {
		return domain.StackResult{}, classify("describe", in.StackName, err)
	}

	if exists {
		_, err = e.CFN.UpdateStack(ctx, &cloudformation.UpdateStackInput{
			StackName:    aws.String(in.StackName),
			TemplateBody: aws.String(in.TemplateBody),
			Parameters:   toParameters(in.Parameters),
			Tags:         toTags(in.Tags),
			Capabilities: stackCapabilities(),
		})
		if err != nil {
			if isNoUpdateError(err) {
				return domain.StackResult{}, domain.ErrNoChange
			}
			return domain.StackResult{}, classify("update", in.StackName, err)
		}
		e.Log.WithField("stack", in.StackName).Info("stack update submitted")
	} else {
		_, err = e.CFN.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:    aws.String(in.StackName),
			TemplateBody: aws.String(in.TemplateBody),
			Parameters:   toParameters(in.Parameters),
			Tags:         toTags(in.Tags),
			Capabilities: stackCapabilities(),
			OnFailure:    cfntypes.OnFailureRollback,
		})
		if err != nil {
			return domain.StackResult{}, classify("create", in.StackName, err)
		}
		e.Log.WithField("stack", in.StackName).Info("stack creation submitted")
	}

	return domain.StackResult{StackName: in.StackName, Status: domain.StackStatusInProgress}, nil
}

// Describe returns the stack's current state, outputs, and on failure the
// resource events that explain it.
func (e *Engine) Describe(ctx context.Context, stackName string) (domain.StackResult, error) {
	out, err := e.CFN.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if isStackMissingError(err) {
			return domain.StackResult{}, domain.ErrNotFound
		}
		return domain.StackResult{}, classify("describe", stackName, err)
	}
	if len(out.Stacks) == 0 {
		return domain.StackResult{}, domain.ErrNotFound
	}
	stack := out.Stacks[0]

	result := domain.StackResult{
		StackName: stackName,
		Status:    mapStackStatus(stack.StackStatus),
		Outputs:   toOutputs(stack.Outputs),
	}
	if stack.StackStatusReason != nil {
		result.StatusReason = *stack.StackStatusReason
	}
	if result.Status == domain.StackStatusFailed {
		result.Events = e.failureEvents(ctx, stackName)
		if result.StatusReason == "" && len(result.Events) > 0 {
			result.StatusReason = result.Events[0].Reason
		}
	}
	return result, nil
}

// Delete removes the stack. Deleting an absent stack is not an error.
func (e *Engine) Delete(ctx context.Context, stackName string) error {
	_, err := e.CFN.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if isStackMissingError(err) {
			return domain.ErrNotFound
		}
		return classify("delete", stackName, err)
	}
	e.Log.WithField("stack", stackName).Info("stack deletion submitted")
	return nil
}

func (e *Engine) stackExists(ctx context.Context, stackName string) (bool, error) {
	out, err := e.CFN.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if isStackMissingError(err) {
			return false, nil
		}
		return false, err
	}
	if len(out.Stacks) == 0 {
		return false, nil
	}
	// A stack stuck in REVIEW_IN_PROGRESS has no resources and cannot be
	// updated; treat it as absent so the deploy recreates it.
	return out.Stacks[0].StackStatus != cfntypes.StackStatusReviewInProgress, nil
}

// failureEvents collects the resource-level failure events for diagnostics.
// Best effort: an error here only loses detail.
func (e *Engine) failureEvents(ctx context.Context, stackName string) []domain.StackEvent {
	out, err := e.CFN.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		e.Log.WithField("stack", stackName).WithError(err).Warn("could not fetch stack events")
		return nil
	}
	var events []domain.StackEvent
	for _, ev := range out.StackEvents {
		status := string(ev.ResourceStatus)
		if !strings.HasSuffix(status, "_FAILED") {
			continue
		}
		event := domain.StackEvent{Status: status}
		if ev.Timestamp != nil {
			event.Timestamp = *ev.Timestamp
		}
		if ev.LogicalResourceId != nil {
			event.LogicalID = *ev.LogicalResourceId
		}
		if ev.ResourceStatusReason != nil {
			event.Reason = *ev.ResourceStatusReason
		}
		events = append(events, event)
		if len(events) == 10 {
			break
		}
	}
	return events
}

func stackCapabilities() []cfntypes.Capability {
	return []cfntypes.Capability{
		cfntypes.CapabilityCapabilityIam,
		cfntypes.CapabilityCapabilityAutoExpand,
	}
}

// mapStackStatus folds CloudFormation's status space into the engine
// contract. Rollbacks of any kind mean the attempt failed, even though the
// stack itself ends in a *_COMPLETE state.
func mapStackStatus(status cfntypes.StackStatus) domain.StackStatus {
	s := string(status)
	switch {
	case strings.HasSuffix(s, "_IN_PROGRESS"):
		return domain.StackStatusInProgress
	case strings.Contains(s, "ROLLBACK"), strings.HasSuffix(s, "_FAILED"):
		return domain.StackStatusFailed
	case strings.HasSuffix(s, "_COMPLETE"):
		return domain.StackStatusSucceeded
	default:
		return domain.StackStatusFailed
	}
}

func toParameters(params map[string]string) []cfntypes.Parameter {
	if len(params) == 0 {
		return nil
	}
	out := make([]cfntypes.Parameter, 0, len(params))
	for key, value := range params {
		out = append(out, cfntypes.Parameter{
			ParameterKey:   aws.String(key),
			ParameterValue: aws.String(value),
		})
	}
	return out
}

func toTags(tags map[string]string) []cfntypes.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]cfntypes.Tag, 0, len(tags))
	for key, value := range tags {
		out = append(out, cfntypes.Tag{Key: aws.String(key), Value: aws.String(value)})
	}
	return out
}

func toOutputs(outputs []cfntypes.Output) map[string]string {
	if len(outputs) == 0 {
		return nil
	}
	out := make(map[string]string, len(outputs))
	for _, o := range outputs {
		if o.OutputKey != nil && o.OutputValue != nil {
			out[*o.OutputKey] = *o.OutputValue
		}
	}
	return out
}

// transientErrorCodes are API error codes worth retrying with backoff.
var transientErrorCodes = map[string]bool{
	"Throttling":                  true,
	"ThrottlingException":         true,
	"RequestLimitExceeded":        true,
	"ServiceUnavailable":          true,
	"ServiceUnavailableException": true,
	"InternalFailure":             true,
	"RequestTimeout":              true,
}

// classify wraps an AWS error as a transient or permanent engine error.
func classify(op, stackName string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && transientErrorCodes[apiErr.ErrorCode()] {
		return domain.TransientEngineError(op, stackName, err)
	}
	return domain.PermanentEngineError(op, stackName, err)
}

// isNoUpdateError matches CloudFormation's refusal to update an unchanged
// stack. The API reports it as a generic ValidationError, so the message is
// the only discriminator.
func isNoUpdateError(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
}

func isStackMissingError(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
