package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/skylift/skylift/internal/application"
	"github.com/skylift/skylift/internal/domain"
)

var configureDomainCmd = &cobra.Command{
	Use:   "configure-domain [project]",
	Short: "Bind a custom domain to a deployed distribution",
	Long: `Attach a custom domain and its ACM certificate to the project's CloudFront
distribution. The certificate must already be issued (validated) in
us-east-1. With --hosted-zone, the Route53 alias record is created too.`,
	Args: cobra.ExactArgs(1),
	Run:  runConfigureDomain,
}

var (
	domainName      string
	certificateArn  string
	hostedZoneID    string
	createDNSRecord bool
)

func init() {
	rootCmd.AddCommand(configureDomainCmd)
	configureDomainCmd.Flags().StringVar(&domainName, "domain", "", "Custom domain name (required)")
	configureDomainCmd.Flags().StringVar(&certificateArn, "cert-arn", "", "ACM certificate ARN in us-east-1 (required)")
	configureDomainCmd.Flags().StringVar(&hostedZoneID, "hosted-zone", "", "Route53 hosted zone ID for the alias record")
	configureDomainCmd.Flags().BoolVar(&createDNSRecord, "create-dns-record", true, "Create the Route53 alias when --hosted-zone is set")
	configureDomainCmd.MarkFlagRequired("domain")
	configureDomainCmd.MarkFlagRequired("cert-arn")
}

func runConfigureDomain(cmd *cobra.Command, args []string) {
	a := newApp(cmd.Context())
	defer a.close()

	result, err := a.domains.Configure(cmd.Context(), application.ConfigureDomainInput{
		ProjectName:    args[0],
		DomainName:     domainName,
		CertificateArn: certificateArn,
		HostedZoneID:   hostedZoneID,
		CreateRecord:   hostedZoneID != "" && createDNSRecord,
	})
	if errors.Is(err, domain.ErrCertificateNotReady) {
		log.Fatalf("Certificate is not issued yet; validate it in ACM and retry: %v", err)
	}
	if err != nil {
		log.Fatalf("Failed to configure domain: %v", err)
	}

	fmt.Printf("Bound %s to distribution %s\n", domainName, result.DistributionDomain)
	if result.DNSChangeID != "" {
		fmt.Printf("DNS change: %s\n", result.DNSChangeID)
	} else {
		fmt.Printf("Point a DNS alias or CNAME for %s at %s\n", domainName, result.DistributionDomain)
	}
}
