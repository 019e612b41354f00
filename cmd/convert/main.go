package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tunogya/saliency/pkg/logger"
	"github.com/tunogya/saliency/pkg/store/duckdb"
)

// Config holds converter configuration
type Config struct {
	Root       string
	DuckDBPath string
	LogLevel   string
}

func main() {
	cfg := parseFlags()

	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, log)
	stop()
	_ = log.Sync()
	os.Exit(code)
}

func run(ctx context.Context, cfg Config, log *zap.Logger) int {
	client, err := duckdb.NewClient(cfg.DuckDBPath)
	if err != nil {
		log.Error("Failed to open DuckDB", zap.Error(err))
		return 1
	}
	defer client.Close()

	res, err := duckdb.ConvertTree(ctx, client, cfg.Root, log)
	if err != nil {
		log.Error("Conversion aborted", zap.Error(err))
	}
	if res != nil {
		log.Info("Conversion finished",
			zap.String("root", cfg.Root),
			zap.Int("converted", len(res.Converted)),
			zap.Int("failed", len(res.Failed)))
	}
	if err != nil || len(res.Failed) > 0 {
		return 1
	}
	return 0
}

func parseFlags() Config {
	cfg := Config{}

	pflag.StringVar(&cfg.DuckDBPath, "duckdb", ":memory:", "DuckDB database used for the conversion")
	pflag.StringVar(&cfg.LogLevel, "log-level", "info", "log level")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: convert [options] <dir>")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	cfg.Root = pflag.Arg(0)

	return cfg
}
