// Command gradecore-worker is the process entry point: it wires the Object
// Repository, File Store, Tester Registry, Reporter Registry, Sandbox
// Executor, Run Engine, and Worker Pool together from internal/config, then
// serves the Prometheus and expvar metrics endpoints until a shutdown
// signal arrives.
package main

import (
	"context"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gradecore/internal/config"
	"gradecore/internal/metrics"
	"gradecore/internal/reporter"
	"gradecore/internal/runengine"
	"gradecore/internal/sandbox"
	"gradecore/internal/tester"
	"gradecore/internal/worker"
)

func main() {
	// Every grader spawn re-executes this binary under a trimmed-down init
	// path; this must run before anything else does.
	sandbox.MaybeRunInit()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if err := run(logger); err != nil {
		logger.Error("gradecore-worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	objects, files, err := cfg.OpenFileStore(ctx)
	if err != nil {
		return err
	}

	testers := tester.New()

	var moodleClient reporter.MoodleClient
	if cfg.MoodleHost != "" {
		moodleClient = reporter.NewHTTPMoodleClient(cfg.MoodleHost, cfg.MoodleToken, cfg.MoodleService, nil)
	}
	reporters := reporter.New(moodleClient)

	sbox := sandbox.New()

	registry := prometheus.NewRegistry()
	recorder := metrics.NewMulti(
		metrics.NewExpvarRecorder("gradecore_run_engine"),
		metrics.NewPrometheusRecorder(registry),
	)

	engine := runengine.NewEngine(objects, files, testers, reporters, sbox,
		runengine.WithLogger(logger),
		runengine.WithMetricsRecorder(recorder),
		runengine.WithLimits(cfg.SandboxLimits),
	)

	pool := worker.New(engine, cfg.WorkerCount, cfg.QueueDepth, logger)
	engine.SetQueue(pool)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())

	server := &http.Server{
		Addr:              metricsAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining worker pool")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	pool.Shutdown(30 * time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func metricsAddr() string {
	if addr := os.Getenv("GRADECORE_METRICS_ADDR"); addr != "" {
		return addr
	}
	return ":9090"
}
