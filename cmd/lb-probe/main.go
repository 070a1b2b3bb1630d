// Command lb-probe sends a burst of requests to the catalog and reports
// how many responses each backend served, based on X-Served-By.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const unknownBackend = "unknown"

var GitTag = "dev"

// Tally counts responses per backend hostname.
type Tally map[string]int

// Probe sends n sequential GET requests to url. Failed requests are
// logged and not counted.
func Probe(ctx context.Context, logger *zap.Logger, client *http.Client, url string, n int) (Tally, int) {
	tally := Tally{}
	failed := 0
	for i := 0; i < n; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			logger.Warn("request failed", zap.Int("request.num", i+1), zap.Error(err))
			failed++
			continue
		}
		res, err := client.Do(req)
		if err != nil {
			logger.Warn("request failed", zap.Int("request.num", i+1), zap.Error(err))
			failed++
			continue
		}
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
		backend := res.Header.Get("X-Served-By")
		if backend == "" {
			backend = unknownBackend
		}
		tally[backend]++
	}
	return tally, failed
}

// Print writes the totals then one line per backend, sorted by name.
func (t Tally) Print(w io.Writer, sent, failed int) error {
	if _, err := fmt.Fprintf(w, "Sent %d requests total, %d failed.\n", sent, failed); err != nil {
		return err
	}
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s: %d responses\n", name, t[name]); err != nil {
			return err
		}
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "lb-probe",
		Usage:   "Check how requests are spread across catalog replicas",
		Version: GitTag,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "target url, usually the load balancer",
				Sources: cli.EnvVars("LB_PROBE_URL"),
				Value:   "http://localhost:8080/",
			},
			&cli.IntFlag{
				Name:    "requests",
				Aliases: []string{"n"},
				Usage:   "number of requests to send",
				Sources: cli.EnvVars("LB_PROBE_REQUESTS"),
				Value:   100,
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "timeout of each request",
				Sources: cli.EnvVars("LB_PROBE_TIMEOUT"),
				Value:   2 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := zap.NewDevelopmentConfig()
			cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			cfg.DisableStacktrace = true
			logger, err := cfg.Build()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			n := int(cmd.Int("requests"))
			client := &http.Client{Timeout: cmd.Duration("timeout")}
			tally, failed := Probe(ctx, logger, client, cmd.String("url"), n)
			return tally.Print(cmd.Root().Writer, n, failed)
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
