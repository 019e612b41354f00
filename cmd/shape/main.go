package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tunogya/saliency/pkg/config"
	"github.com/tunogya/saliency/pkg/data"
	"github.com/tunogya/saliency/pkg/logger"
	"github.com/tunogya/saliency/pkg/metrics"
	"github.com/tunogya/saliency/pkg/pipeline"
	"github.com/tunogya/saliency/pkg/queue/nats"
	"github.com/tunogya/saliency/pkg/saliency"
	"github.com/tunogya/saliency/pkg/store"
	"github.com/tunogya/saliency/pkg/store/csvfile"
	"github.com/tunogya/saliency/pkg/store/duckdb"
)

func main() {
	flags := pflag.NewFlagSet("shape", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "YAML config file")
	flags.StringSlice("datasets", nil, "datasets to process, in order")
	flags.StringSlice("metrics", nil, "metrics to run, in order (empty = raw only)")
	flags.Bool("parallel", true, "shape the features of a batch in parallel")
	flags.Int("workers", 0, "parallel workers (0 = GOMAXPROCS)")
	flags.Bool("separate", true, "persist every (window, metric) dataset on its own")
	flags.Bool("skip_inverted", false, "do not produce inverted-shaped datasets")
	flags.String("input.root", "./data", "root directory of the raw datasets")
	flags.String("output.path", "./processed_data", "output directory")
	flags.String("output.format", "csv", "output format: csv or parquet")
	flags.Uint64("noise.seed", 42, "noise baseline seed")
	flags.String("duckdb.path", ":memory:", "DuckDB database file")
	flags.String("nats.url", "", "NATS server URL; empty disables announcements")
	flags.String("log.level", "info", "log level")
	flags.String("metrics_file", "", "write Prometheus metrics to this textfile")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shape: %v\n", err)
		flags.PrintDefaults()
		os.Exit(2)
	}

	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	log.Info("Starting shaping run",
		zap.Strings("datasets", cfg.Datasets),
		zap.Strings("metrics", cfg.Metrics),
		zap.Bool("separate", cfg.Separate),
		zap.String("output", cfg.Output.Path),
		zap.String("format", cfg.Output.Format))

	kinds, err := cfg.Kinds()
	if err != nil {
		return err
	}
	metricSet, err := saliency.NewSet(kinds, cfg.MetricOptions())
	if err != nil {
		return fmt.Errorf("failed to build metrics: %w", err)
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	// DuckDB backs parquet input and output
	duck, err := duckdb.NewClient(cfg.DuckDB.Path)
	if err != nil {
		return err
	}
	defer duck.Close()

	readers := map[string]data.TableReader{
		".csv":     data.NewCSVReader(),
		".parquet": duckdb.NewParquetReader(duck),
	}
	adapter := data.NewFileAdapter(cfg.Input.Root, catalog, readers)

	writer, err := newWriter(ctx, cfg, duck, runID)
	if err != nil {
		return err
	}

	if cfg.NATS.URL != "" {
		natsCfg := nats.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.StreamName = cfg.NATS.Stream

		natsClient, err := nats.NewClient(natsCfg, log)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		if err := natsClient.EnsureStream(ctx, nats.SubjectArtifactWritten); err != nil {
			return err
		}
		writer = store.NewAnnouncing(writer, nats.NewAnnouncerWithRunID(natsClient, runID))
		log.Info("Announcing artifacts", zap.String("nats", cfg.NATS.URL), zap.String("stream", cfg.NATS.Stream))
	}

	collector := metrics.NewCollector()

	var dispatcher pipeline.Dispatcher = pipeline.Sequential{}
	if cfg.Parallel {
		dispatcher = pipeline.NewParallel(cfg.Workers)
	}

	runner := pipeline.NewRunner(adapter, writer, pipeline.Options{
		Metrics:      metricSet,
		Separate:     cfg.Separate,
		SkipInverted: cfg.SkipInverted,
		Dispatcher:   dispatcher,
		Observer:     pipeline.Observers{pipeline.NewLogObserver(log), collector},
		Logger:       log,
	})

	report, runErr := runner.Run(ctx, cfg.Datasets)
	if report != nil {
		fmt.Print(report.String())
	}

	if cfg.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("Failed to write metrics", zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}
	log.Info("Shaping run finished",
		zap.Int("written", len(report.Written)),
		zap.Int("failed_batches", len(report.Failures)))
	return nil
}

func newWriter(ctx context.Context, cfg *config.Config, duck *duckdb.Client, runID string) (store.Writer, error) {
	switch cfg.OutputFormat() {
	case store.FormatParquet:
		if err := duckdb.InitializeSchema(ctx, duck); err != nil {
			return nil, err
		}
		repo, err := duckdb.NewArtifactRepo(duck, cfg.Output.Path, cfg.DuckDB.KeepTables)
		if err != nil {
			return nil, err
		}
		return repo.WithCatalog(duckdb.NewCatalogRepo(duck), runID), nil
	default:
		return csvfile.NewWriter(cfg.Output.Path)
	}
}
