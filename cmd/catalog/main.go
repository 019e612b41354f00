package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tunogya/saliency/pkg/logger"
	"github.com/tunogya/saliency/pkg/queue/nats"
	"github.com/tunogya/saliency/pkg/store/duckdb"
)

// Config holds catalog worker configuration
type Config struct {
	NATSUrl    string
	Stream     string
	Consumer   string
	DuckDBPath string
	LogLevel   string
}

func main() {
	cfg := parseFlags()

	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	code := run(ctx, cfg, log)
	cancel()
	_ = log.Sync()
	os.Exit(code)
}

func run(ctx context.Context, cfg Config, log *zap.Logger) int {
	log.Info("Starting catalog worker", zap.String("nats", cfg.NATSUrl), zap.String("duckdb", cfg.DuckDBPath))

	duckClient, err := duckdb.NewClient(cfg.DuckDBPath)
	if err != nil {
		log.Error("Failed to connect to DuckDB", zap.Error(err))
		return 1
	}
	defer duckClient.Close()

	if err := duckdb.InitializeSchema(ctx, duckClient); err != nil {
		log.Error("Failed to initialize schema", zap.Error(err))
		return 1
	}
	catalog := duckdb.NewCatalogRepo(duckClient)

	natsCfg := nats.DefaultConfig()
	natsCfg.URL = cfg.NATSUrl
	natsCfg.StreamName = cfg.Stream
	natsClient, err := nats.NewClient(natsCfg, log)
	if err != nil {
		log.Error("Failed to connect to NATS", zap.Error(err))
		return 1
	}
	defer natsClient.Close()

	if err := natsClient.EnsureStream(ctx, nats.SubjectArtifactWritten); err != nil {
		log.Error("Failed to create stream", zap.Error(err))
		return 1
	}

	consumer, err := natsClient.Consume(ctx, nats.SubjectArtifactWritten, cfg.Consumer, func(msg jetstream.Msg) error {
		return record(ctx, catalog, msg.Data(), log)
	})
	if err != nil {
		log.Error("Failed to subscribe to artifact announcements", zap.Error(err))
		return 1
	}
	defer consumer.Stop()

	log.Info("Catalog worker started, waiting for messages...")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down catalog worker...")
	return 0
}

// record upserts one announced artifact into the catalog
func record(ctx context.Context, catalog *duckdb.CatalogRepo, data []byte, log *zap.Logger) error {
	msg, err := nats.DecodeArtifactWritten(data)
	if err != nil {
		log.Warn("Failed to decode artifact message", zap.Error(err))
		return err
	}

	if err := catalog.Upsert(ctx, msg.Artifact, msg.RunID); err != nil {
		log.Error("Failed to record artifact", zap.String("name", msg.Artifact.Name), zap.Error(err))
		return err
	}

	log.Info("Recorded artifact",
		zap.String("name", msg.Artifact.Name),
		zap.String("run_id", msg.RunID),
		zap.Int("rows", msg.Artifact.Rows))
	return nil
}

func parseFlags() Config {
	cfg := Config{}

	pflag.StringVar(&cfg.NATSUrl, "nats", "nats://localhost:4222", "NATS server URL")
	pflag.StringVar(&cfg.Stream, "stream", "saliency", "JetStream stream name")
	pflag.StringVar(&cfg.Consumer, "consumer", "artifact-catalog", "durable consumer name")
	pflag.StringVar(&cfg.DuckDBPath, "duckdb", "saliency.duckdb", "DuckDB file path")
	pflag.StringVar(&cfg.LogLevel, "log-level", "info", "log level")

	pflag.Parse()

	if cfg.DuckDBPath == "" {
		fmt.Println("Usage: catalog [options]")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	return cfg
}
