package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/driftwatch-labs/driftwatch-go/internal/checks/health"
	"github.com/driftwatch-labs/driftwatch-go/internal/checks/performance"
	"github.com/driftwatch-labs/driftwatch-go/internal/checks/quality"
	"github.com/driftwatch-labs/driftwatch-go/internal/dataset"
	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/drift"
	"github.com/driftwatch-labs/driftwatch-go/internal/inference"
	"github.com/driftwatch-labs/driftwatch-go/internal/monitorspec"
	"github.com/driftwatch-labs/driftwatch-go/internal/platform/env"
	"github.com/driftwatch-labs/driftwatch-go/internal/platform/metrics"
	platformstore "github.com/driftwatch-labs/driftwatch-go/internal/platform/objectstore"
	"github.com/driftwatch-labs/driftwatch-go/internal/platform/postgres"
	"github.com/driftwatch-labs/driftwatch-go/internal/repo"
	repopg "github.com/driftwatch-labs/driftwatch-go/internal/repo/postgres"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
	"github.com/driftwatch-labs/driftwatch-go/internal/workflow"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	specPath := env.String("DRIFTWATCH_SPEC_PATH", "monitoring.yaml")
	spec, err := monitorspec.Load(specPath)
	if err != nil {
		logger.Error("invalid monitoring spec", "path", specPath, "error", err)
		os.Exit(2)
	}

	runInterval, err := env.Duration("DRIFTWATCH_RUN_INTERVAL", 24*time.Hour)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	retryDelay, err := env.Duration("DRIFTWATCH_RETRY_DELAY", workflow.DefaultRetryDelay)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	ledgerEnabled, err := env.Bool("DRIFTWATCH_LEDGER_ENABLED", true)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	storeCfg, err := platformstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	client, err := platformstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	if err := platformstore.EnsureBuckets(ctx, client, storeCfg); err != nil {
		logger.Error("ensure buckets", "error", err)
		os.Exit(1)
	}
	store, err := objectstore.NewMinioStoreWithClient(client)
	if err != nil {
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}

	metricsCfg, err := metrics.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid metrics config", "error", err)
		os.Exit(2)
	}
	sink, err := metrics.NewInfluxSink(metricsCfg)
	if err != nil {
		logger.Error("metrics backend unavailable", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	inferenceCfg, err := inference.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid inference config", "error", err)
		os.Exit(2)
	}
	descriptor, err := inference.NewHTTPDescriptor(inferenceCfg)
	if err != nil {
		logger.Error("inference descriptor unavailable", "error", err)
		os.Exit(1)
	}

	var ledger repo.TaskExecutionRepository
	if ledgerEnabled {
		dbCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			logger.Error("invalid database config", "error", err)
			os.Exit(2)
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			logger.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			logger.Error("ledger schema", "error", err)
			os.Exit(1)
		}
		ledger = repopg.NewTaskExecutionStore(db)
	}

	qualityChecker, err := quality.NewChecker(store, storeCfg.BucketData, sink, logger)
	if err != nil {
		logger.Error("build quality checker", "error", err)
		os.Exit(2)
	}
	performanceChecker, err := performance.NewChecker(store, storeCfg.BucketData, sink, logger)
	if err != nil {
		logger.Error("build performance checker", "error", err)
		os.Exit(2)
	}
	healthChecker, err := health.NewChecker(descriptor, sink, sink, store, storeCfg.BucketData, spec.FunctionName, logger)
	if err != nil {
		logger.Error("build health checker", "error", err)
		os.Exit(2)
	}
	assembler, err := dataset.NewAssembler(store, storeCfg.BucketData, logger)
	if err != nil {
		logger.Error("build assembler", "error", err)
		os.Exit(2)
	}
	suiteOpts := drift.Options{
		Significance: spec.Thresholds.Significance,
		MissingSlack: spec.Thresholds.MissingSlack,
		Numerical:    spec.Columns.Numerical,
		Categorical:  spec.Columns.Categorical,
	}
	suite, err := drift.NewRunner(store, storeCfg.BucketData, assembler, suiteOpts, logger)
	if err != nil {
		logger.Error("build drift runner", "error", err)
		os.Exit(2)
	}
	reporter, err := drift.NewGenerator(store, storeCfg.BucketReports, assembler, logger)
	if err != nil {
		logger.Error("build report generator", "error", err)
		os.Exit(2)
	}

	p := &pipeline{
		quality:     qualityChecker,
		performance: performanceChecker,
		health:      healthChecker,
		assembler:   assembler,
		suite:       suite,
		reporter:    reporter,
		sink:        sink,
		logger:      logger,
	}
	plan, err := p.buildPlan()
	if err != nil {
		logger.Error("build plan", "error", err)
		os.Exit(2)
	}
	runner := workflow.NewRunner(ledger, retryDelay, logger)

	logger.Info("monitord started",
		"function", spec.FunctionName,
		"start_date", spec.Schedule.StartDate,
		"catchup", spec.Schedule.Catchup,
		"run_interval", runInterval.String())

	if spec.Schedule.Catchup {
		if err := catchup(ctx, runner, plan, spec, logger); err != nil {
			logger.Error("catchup aborted", "error", err)
			os.Exit(1)
		}
	}

	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()
	runOnce(ctx, runner, plan, time.Now().UTC(), logger)
	for {
		select {
		case <-ctx.Done():
			logger.Info("monitord stopping")
			return
		case trigger := <-ticker.C:
			runOnce(ctx, runner, plan, trigger.UTC(), logger)
		}
	}
}

// catchup replays one run per day from the schedule anchor up to yesterday.
// Epoch resolution is a pure function of the trigger time, so replayed runs
// compute against the datasets their original schedule would have seen.
func catchup(ctx context.Context, runner *workflow.Runner, plan workflow.Plan, spec monitorspec.Spec, logger *slog.Logger) error {
	start, err := spec.StartDate()
	if err != nil {
		return err
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for day := start; day.Before(today); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		logger.Info("catchup run", "run_date", day.Format("2006-01-02"))
		runOnce(ctx, runner, plan, day, logger)
	}
	return nil
}

func runOnce(ctx context.Context, runner *workflow.Runner, plan workflow.Plan, trigger time.Time, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	ec, err := domain.NewExecutionContext(uuid.NewString(), trigger)
	if err != nil {
		logger.Error("build execution context", "error", err)
		return
	}
	result, err := runner.Run(ctx, plan, ec)
	if err != nil {
		logger.Error("monitoring run failed to start", "run_id", ec.RunID, "error", err)
		return
	}
	if !result.Succeeded() {
		logger.Error("monitoring run failed", "run_id", ec.RunID, "run_date", ec.RunDate(), "status", result.Status)
		for _, task := range result.Tasks {
			if task.Status != workflow.StatusSucceeded {
				logger.Error("task outcome", "task", task.Name, "status", task.Status, "skip_reason", task.SkipReason, "error", task.Error)
			}
		}
		return
	}
	logger.Info("monitoring run completed", "run_id", ec.RunID, "run_date", ec.RunDate())
}
