// Command ab-exporter serves the latest ApacheBench summary as
// Prometheus gauges.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeamon/book-catalog/internal/benchmark"
	"github.com/jeamon/book-catalog/internal/exporter"
)

var (
	GitTag    = "dev"
	GitCommit string
)

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build(zap.Fields(zap.String("app.tag", GitTag), zap.String("app.commit", GitCommit)))
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "ab-exporter",
		Usage:   "Expose the latest ApacheBench summary as Prometheus gauges",
		Version: GitTag,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "summary",
				Aliases: []string{"s"},
				Usage:   "path of the summary artifact",
				Sources: cli.EnvVars("AB_SUMMARY_PATH"),
				Value:   "/app/ab_results/" + benchmark.DefaultOutputName,
			},
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address of the metrics endpoint",
				Sources: cli.EnvVars("AB_EXPORTER_ADDR"),
				Value:   exporter.DefaultAddr,
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "refresh period of the gauges",
				Sources: cli.EnvVars("AB_EXPORTER_INTERVAL"),
				Value:   exporter.DefaultInterval,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("AB_LOG_LEVEL"),
				Value:   "info",
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.String("log-level"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	bridge := exporter.NewBridge(logger, exporter.Config{
		SummaryPath: cmd.String("summary"),
		Addr:        cmd.String("addr"),
		Interval:    cmd.Duration("interval"),
	})
	if err = bridge.Run(ctx); err != nil {
		logger.Error("metrics exporter failed", zap.Error(err))
		return err
	}
	logger.Info("metrics exporter stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
