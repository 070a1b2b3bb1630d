package exporter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeamon/book-catalog/internal/benchmark"
)

const (
	DefaultInterval = 15 * time.Second
	DefaultAddr     = ":9100"
)

// Config drives the bridge.
type Config struct {
	SummaryPath     string
	Addr            string
	Interval        time.Duration
	ShutdownTimeout time.Duration
}

// Bridge periodically copies the latest summary of the artifact into the
// gauges and serves them over http.
type Bridge struct {
	logger   *zap.Logger
	config   Config
	gauges   *Gauges
	registry *prometheus.Registry
}

// NewBridge provides a bridge with its own registry, so that only the
// benchmark gauges and the process collectors are exposed.
func NewBridge(logger *zap.Logger, config Config) *Bridge {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Bridge{
		logger:   logger,
		config:   config,
		gauges:   NewGauges(reg),
		registry: reg,
	}
}

// Tick refreshes the gauges once. A missing, empty or unreadable artifact
// leaves the gauges unchanged and is only logged.
func (b *Bridge) Tick() bool {
	summaries, err := benchmark.LoadSummaries(b.config.SummaryPath)
	if errors.Is(err, benchmark.ErrNoSummaries) {
		b.logger.Info("no results found yet", zap.String("summary.path", b.config.SummaryPath))
		return false
	}
	if err != nil {
		b.logger.Warn("failed to load results", zap.String("summary.path", b.config.SummaryPath), zap.Error(err))
		return false
	}
	latest, _ := benchmark.Latest(summaries)
	b.gauges.Set(latest)
	b.logger.Debug("gauges updated", zap.String("summary.file", latest.File), zap.Int("summary.records", len(summaries)))
	return true
}

// Handler exposes the bridge registry.
func (b *Bridge) Handler() http.Handler {
	return promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{Registry: b.registry})
}

// Run schedules Tick, starting immediately and never overlapping, and
// serves /metrics until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(b.config.Interval),
		gocron.NewTask(func() { b.Tick() }),
		gocron.WithName("ab-metrics-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to schedule refresh job: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", b.Handler())
	srv := &http.Server{
		Addr:              b.config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.logger.Info("metrics exporter starting",
			zap.String("exporter.addr", b.config.Addr),
			zap.Duration("exporter.interval", b.config.Interval),
		)
		s.Start()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		b.logger.Info("metrics exporter stopping")
		sCtx, cancel := context.WithTimeout(context.Background(), b.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sCtx); err != nil {
			b.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
		if err := s.Shutdown(); err != nil {
			b.logger.Warn("scheduler shutdown failed", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}
