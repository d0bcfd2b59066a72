// Main slot monitor service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xkanth/slot-monitor/internal/checkpoint"
	"github.com/0xkanth/slot-monitor/internal/dispatch"
	"github.com/0xkanth/slot-monitor/internal/filterengine"
	"github.com/0xkanth/slot-monitor/internal/monitorconfig"
	"github.com/0xkanth/slot-monitor/internal/prefilter"
	"github.com/0xkanth/slot-monitor/internal/rpcfailover"
	"github.com/0xkanth/slot-monitor/internal/scheduler"
	"github.com/0xkanth/slot-monitor/internal/slotproc"
	"github.com/0xkanth/slot-monitor/internal/txextract"
	"github.com/0xkanth/slot-monitor/internal/util"
)

func main() {
	logger := util.InitLogger()
	logger.Info().Msg("starting slot monitor")

	cfg := util.InitConfig(logger, "config.toml")
	util.UpdateLogLevel(cfg, logger)

	endpoints := rpcEndpoints(cfg)
	rpcClient, err := rpcfailover.New(*logger, endpoints)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create failover rpc client")
	}
	defer rpcClient.Close()
	logger.Info().Int("endpoint_count", len(endpoints)).Msg("initialized failover rpc client")

	extractor := txextract.New(rpcClient, *logger)

	filterPath := cfg.String("filters.path")
	filters, err := monitorconfig.Load(filterPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", filterPath).Msg("failed to load filter configuration")
	}
	if watchedMint := cfg.String("filters.builtin_mint"); watchedMint != "" {
		filters = append(filters, monitorconfig.BuiltinExamples(watchedMint)...)
	}
	filters = monitorconfig.ApplyEnvOverrides(filters, os.Getenv)
	logger.Info().Int("filter_count", len(filters)).Msg("loaded filter configuration")

	engine := filterengine.New(filters)

	activityTracker := prefilter.NewActivityTracker()
	activityStore, err := checkpoint.OpenActivityStore(cfg.String("checkpoint.activity_db_path"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open activity store")
	}
	defer activityStore.Close()
	restoreActivity(activityStore, activityTracker, logger)

	tier := selectPreFilterTier(cfg, rpcClient, *logger, filters, activityTracker)

	checkpointStore := checkpoint.New(cfg.String("checkpoint.path"))

	notifier, archiver, closeNotifier := buildNotifier(cfg, *logger)
	if closeNotifier != nil {
		defer closeNotifier()
	}

	dispatcher := dispatch.New(*logger, dispatch.Config{
		Notifier: notifier,
		Archiver: archiver,
	})

	processor := slotproc.New(extractor, engine, dispatcher, *logger, slotproc.Config{
		MaxConcurrentSlots: cfg.Int("processor.max_concurrent_slots"),
		Dedup:              scheduler.NewDeduper(),
		Activity:           scheduler.ActivityFeederAdapter{Tracker: activityTracker},
	})

	var startSlot *uint64
	if s := cfg.Int64("scheduler.start_slot"); s > 0 {
		v := uint64(s)
		startSlot = &v
	}

	sched := scheduler.New(scheduler.Config{
		RPCClient:       rpcClient,
		Processor:       processor,
		PreFilter:       tier,
		ActivityTracker: activityTracker,
		CheckpointStore: checkpointStore,
		StartSlot:       startSlot,
		Logger:          *logger,
	})

	metricsAddr := cfg.String("metrics.address")
	metricsServer := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
	go func() {
		logger.Info().Str("address", metricsAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	healthAddr := cfg.String("health.address")
	healthServer := &http.Server{Addr: healthAddr, Handler: http.HandlerFunc(healthCheckHandler(sched))}
	go func() {
		logger.Info().Str("address", healthAddr).Msg("starting health check server")
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- sched.Start(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errChan:
		if err != nil {
			logger.Error().Err(err).Msg("scheduler error")
		}
	}

	logger.Info().Msg("shutting down")
	cancel()
	persistActivity(activityStore, activityTracker, logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown error")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("health server shutdown error")
	}
	logger.Info().Msg("shutdown complete")
}

// healthCheckHandler returns a health check handler.
func healthCheckHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := sched.GetStatus()
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "unhealthy\n")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "healthy\ncurrent: %d\nlatest: %d\nscanned: %d\nmatched: %d\n",
			status.CurrentSlot, status.LatestSlot, status.TotalScanned, status.TotalMatched)
	}
}
