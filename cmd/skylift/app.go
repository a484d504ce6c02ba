package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	wfsqlite "github.com/cschleiden/go-workflows/backend/sqlite"
	"github.com/cschleiden/go-workflows/client"
	"github.com/cschleiden/go-workflows/worker"
	"github.com/sirupsen/logrus"

	"github.com/skylift/skylift/internal/application"
	"github.com/skylift/skylift/internal/config"
	"github.com/skylift/skylift/internal/domain"
	"github.com/skylift/skylift/internal/infrastructure/awscloud"
	"github.com/skylift/skylift/internal/infrastructure/goworkflows"
	"github.com/skylift/skylift/internal/infrastructure/sqlite"
	"github.com/skylift/skylift/internal/logging"
	"github.com/skylift/skylift/internal/template"
)

// app holds everything a subcommand needs: configuration, the record
// store, and the AWS-backed services. Subcommands build it with newApp
// and close it when done.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	db     *sql.DB
	awsCfg aws.Config

	records *sqlite.RecordRepo

	deploys  *application.DeployService
	frontend *application.FrontendService
	domains  *application.DomainService
	observe  *application.ObserveService
}

// newApp wires the full service stack. Startup failures are fatal; there
// is nothing sensible a subcommand can do with half an app.
func newApp(ctx context.Context) *app {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if flagRegion != "" {
		cfg.AWS.Region = flagRegion
	}
	if flagProfile != "" {
		cfg.AWS.Profile = flagProfile
	}
	if flagAllowWrite {
		cfg.AllowWrite = true
	}

	logger := logging.New(cfg.LogLevel)

	if cfg.Store.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			log.Fatalf("Failed to create store directory: %v", err)
		}
	}
	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open deployment store: %v", err)
	}

	awsCfg, err := awscloud.Session{Region: cfg.AWS.Region, Profile: cfg.AWS.Profile}.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}

	records := &sqlite.RecordRepo{DB: db, Log: logger}
	engine := awscloud.NewEngine(awsCfg, logger)
	assets := awscloud.NewAssetStore(awsCfg, logger)
	cdn := awscloud.NewCDN(awsCfg, logger)
	caps := domain.Capabilities{AllowWrite: cfg.AllowWrite}

	return &app{
		cfg:     cfg,
		log:     logger,
		db:      db,
		awsCfg:  awsCfg,
		records: records,
		deploys: &application.DeployService{
			Records:      records,
			Engine:       engine,
			Capabilities: caps,
		},
		frontend: &application.FrontendService{
			Records:      records,
			Assets:       assets,
			CDN:          cdn,
			Capabilities: caps,
		},
		domains: &application.DomainService{
			Records:      records,
			CDN:          cdn,
			Certificates: awscloud.NewCertificateChecker(awsCfg),
			DNS:          awscloud.NewDNS(awsCfg, logger),
			Capabilities: caps,
		},
		observe: &application.ObserveService{
			Records: records,
			Logs:    awscloud.NewLogReader(awsCfg),
			Metrics: awscloud.NewMetricReader(awsCfg),
		},
	}
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("closing deployment store")
	}
}

// startDeployEngine spins up the durable workflow engine and wires it into
// the deploy service. Only the deploy command pays this cost; read-only
// commands never start a worker. The returned stop function drains the
// worker.
func (a *app) startDeployEngine(ctx context.Context) (stop func(), err error) {
	wf := &domain.DeployWorkflow{
		Records:      a.records,
		Engine:       awscloud.NewEngine(a.awsCfg, a.log),
		Synthesizer:  template.New(),
		Packager:     awscloud.NewPackager(a.awsCfg, a.log),
		Assets:       awscloud.NewAssetStore(a.awsCfg, a.log),
		Deadline:     a.cfg.Deploy.Deadline,
		PollInterval: a.cfg.Deploy.PollInterval,
	}

	deadline := wf.Deadline
	if deadline <= 0 {
		deadline = domain.DefaultDeployDeadline
	}

	b := wfsqlite.NewInMemoryBackend()
	w := worker.New(b, nil)

	engine := &goworkflows.Engine{
		Worker: w,
		Client: client.New(b),
		// Leave headroom past the stack deadline for the other activities.
		Timeout: deadline + 5*time.Minute,
	}

	starter, err := engine.DeployRunner(wf)
	if err != nil {
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	if err := w.Start(workerCtx); err != nil {
		cancel()
		return nil, err
	}

	a.deploys.Orchestration = &application.OrchestrationService{Workflow: starter}
	return func() {
		cancel()
		_ = w.WaitForCompletion()
	}, nil
}
