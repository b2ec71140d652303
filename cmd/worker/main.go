// The worker binary runs the periodic loops without the HTTP API, so the
// allocator and aggregator can be scaled out as extra processes sharing the
// same store. All coordination is through conditional updates; running any
// number of these alongside the api process is safe.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/inkwell/inkwell-backend/internal/modules/allocation"
	"github.com/inkwell/inkwell-backend/internal/modules/job"
	"github.com/inkwell/inkwell-backend/internal/modules/printer"
	"github.com/inkwell/inkwell-backend/internal/modules/stats"
	"github.com/inkwell/inkwell-backend/internal/platform/config"
	"github.com/inkwell/inkwell-backend/internal/platform/database"
	"github.com/inkwell/inkwell-backend/internal/platform/logger"
	"github.com/inkwell/inkwell-backend/internal/platform/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("database connect failed", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	jobRepo := job.NewPostgresRepository(db)
	printerRepo := printer.NewPostgresRepository(db)
	allocRepo := allocation.NewPostgresRepository(db)
	statsRepo := stats.NewPostgresRepository(db)

	reconciler := printer.NewReconciler(log, printerRepo, allocRepo)
	allocator := allocation.NewAllocator(log, jobRepo, printerRepo, allocRepo, reconciler)
	aggregator := stats.NewAggregator(log, allocRepo, statsRepo, cfg.AggregatorBatch, cfg.ClaimTTL)
	rollup := stats.NewRollup(log, statsRepo)

	runner := scheduler.NewRunner(log)
	runner.Every(cfg.AllocatorInterval, allocator)
	runner.Every(cfg.AggregatorInterval, aggregator)
	if err := runner.Cron(cfg.RollupSchedule, rollup); err != nil {
		log.Error("bad rollup schedule", logger.Error(err))
		os.Exit(1)
	}
	runner.Start()
	log.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("worker stopping")
	runner.Stop()
}
