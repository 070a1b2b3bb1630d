// Command ab-summarizer parses a directory of ApacheBench reports into
// a single json artifact.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeamon/book-catalog/internal/benchmark"
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
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "ab-summarizer",
		Usage:   "Summarize ApacheBench reports into a json artifact",
		Version: GitTag,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "directory holding the reports",
				Sources: cli.EnvVars("AB_RESULTS_DIR"),
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "ext",
				Usage:   "extension of the report files",
				Sources: cli.EnvVars("AB_RESULTS_EXT"),
				Value:   benchmark.DefaultExtension,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "artifact path (default <dir>/" + benchmark.DefaultOutputName + ")",
				Sources: cli.EnvVars("AB_SUMMARY_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("AB_LOG_LEVEL"),
				Value:   "info",
			},
		},
		Action: summarize,
	}
}

func summarize(_ context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.String("log-level"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dir := cmd.String("dir")
	output := cmd.String("output")
	if output == "" {
		output = filepath.Join(dir, benchmark.DefaultOutputName)
	}

	summaries, err := benchmark.Summarize(dir, cmd.String("ext"), benchmark.NewABParser())
	if err != nil {
		logger.Error("failed to parse reports", zap.String("reports.dir", dir), zap.Error(err))
		return err
	}
	if err = benchmark.WriteSummaries(output, summaries); err != nil {
		logger.Error("failed to write summary", zap.String("summary.path", output), zap.Error(err))
		return err
	}
	logger.Debug("summary written", zap.String("summary.path", output), zap.Int("summary.records", len(summaries)))
	_, err = fmt.Fprintf(cmd.Root().Writer, "Parsed %d AB result files → %s\n", len(summaries), output)
	return err
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
