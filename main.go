package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/giygas/event-counter-api/config"
	"github.com/giygas/event-counter-api/counter"
	"github.com/giygas/event-counter-api/handlers"
	"github.com/giygas/event-counter-api/health"
	"github.com/giygas/event-counter-api/interfaces"
	"github.com/giygas/event-counter-api/logging"
	"github.com/giygas/event-counter-api/metrics"
	"github.com/giygas/event-counter-api/scheduler"
	"github.com/giygas/event-counter-api/server"
	"github.com/giygas/event-counter-api/validation"
)

func init() {
	// Read the .env from the working directory, then from the executable's
	if err := godotenv.Load(); err != nil {
		ex, err := os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		if err := os.Chdir(filepath.Dir(ex)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to change directory: %v\n", err)
			os.Exit(1)
		}
		_ = godotenv.Load()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	}); err != nil {
		logging.Warn("Continuing with console logging only", "error", err)
	}
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
		}
	}()

	sink := metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
	store := counter.NewRegistry(cfg.CounterRetention(), cfg.CounterMaxEntries, counter.WithObserver(sink))

	var reporter interfaces.Scheduler
	if cfg.CounterEnabled() {
		s := scheduler.NewScheduler(store, sink, cfg.CounterReportEvery)
		if err := s.Start(); err != nil {
			logging.Error("Failed to start the counter report", "error", err)
			os.Exit(1)
		}
		defer s.Stop()
		reporter = s
	}

	logging.Info("Event counter configured",
		"enabled", cfg.CounterEnabled(),
		"retention", cfg.CounterRetention().String(),
		"max_entries", cfg.CounterMaxEntries,
		"report_interval", cfg.CounterReportEvery.String())

	checker := health.NewHealthChecker(store, reporter, cfg.CounterEnabled(), cfg.CounterReportEvery)
	handler := handlers.NewHTTPHandler(store, validation.NewInputValidator(), checker)
	srv := server.NewServer(cfg, store, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

wait:
	for {
		select {
		case <-reload:
			if err := reloadCounterLimits(store); err != nil {
				logging.Error("Failed to reload counter limits", "error", err)
			}
		case <-quit:
			break wait
		case err := <-serverErr:
			logging.Error("Server failed to start", "error", err)
			break wait
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown error", "error", err)
	}
}

// reloadCounterLimits re-reads the environment and .env and applies the
// counter retention and entry cap to the running registry. Other settings
// need a restart.
func reloadCounterLimits(store *counter.Registry) error {
	if err := godotenv.Overload(); err != nil {
		logging.Debug("No .env to reload", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store.Reconfigure(cfg.CounterRetention(), cfg.CounterMaxEntries)
	logging.Info("Counter limits reloaded",
		"retention", cfg.CounterRetention().String(),
		"max_entries", cfg.CounterMaxEntries)
	return nil
}
