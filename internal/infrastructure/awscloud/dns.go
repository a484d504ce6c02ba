package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/sirupsen/logrus"
)

// cloudFrontHostedZoneID is the fixed Route53 zone ID every CloudFront
// distribution aliases to.
const cloudFrontHostedZoneID = "Z2FDTNDATAQYW2"

type route53API interface {
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// DNS implements [domain.DNS] on Route53.
type DNS struct {
	Route53 route53API
	Log     logrus.FieldLogger
}

func NewDNS(cfg aws.Config, log logrus.FieldLogger) *DNS {
	return &DNS{Route53: route53.NewFromConfig(cfg), Log: log}
}

// UpsertAlias points recordName at the CloudFront distribution via an
// A-record alias. UPSERT makes re-binding the same domain idempotent.
func (d *DNS) UpsertAlias(ctx context.Context, hostedZoneID, recordName, targetDomain string) (string, error) {
	out, err := d.Route53.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(hostedZoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Comment: aws.String("skylift custom domain alias"),
			Changes: []r53types.Change{{
				Action: r53types.ChangeActionUpsert,
				ResourceRecordSet: &r53types.ResourceRecordSet{
					Name: aws.String(recordName),
					Type: r53types.RRTypeA,
					AliasTarget: &r53types.AliasTarget{
						DNSName:              aws.String(targetDomain),
						HostedZoneId:         aws.String(cloudFrontHostedZoneID),
						EvaluateTargetHealth: false,
					},
				},
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("upsert alias %s in zone %s: %w", recordName, hostedZoneID, err)
	}
	changeID := ""
	if out.ChangeInfo != nil && out.ChangeInfo.Id != nil {
		changeID = *out.ChangeInfo.Id
	}
	d.Log.WithFields(logrus.Fields{
		"zone":   hostedZoneID,
		"record": recordName,
		"target": targetDomain,
	}).Info("DNS alias upserted")
	return changeID, nil
}
