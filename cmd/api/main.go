package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkwell/inkwell-backend/internal/modules/allocation"
	"github.com/inkwell/inkwell-backend/internal/modules/job"
	"github.com/inkwell/inkwell-backend/internal/modules/printer"
	"github.com/inkwell/inkwell-backend/internal/modules/shop"
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

	if err := database.Migrate(db, "file://migrations"); err != nil {
		log.Error("migrations failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info("database ready")

	// ── Repositories ────────────────────────────────────────
	shopRepo := shop.NewPostgresRepository(db)
	jobRepo := job.NewPostgresRepository(db)
	printerRepo := printer.NewPostgresRepository(db)
	allocRepo := allocation.NewPostgresRepository(db)
	statsRepo := stats.NewPostgresRepository(db)

	// ── Services ────────────────────────────────────────────
	shopService := shop.NewService(shopRepo)
	jobService := job.NewService(jobRepo, shopRepo)
	printerService := printer.NewService(printerRepo, allocRepo)
	allocService := allocation.NewService(log, allocRepo, jobRepo, printerRepo)
	statsService := stats.NewService(statsRepo)

	// ── Workers ─────────────────────────────────────────────
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
	defer runner.Stop()

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	shop.NewHandler(shopService).RegisterRoutes(router)
	job.NewHandler(jobService).RegisterRoutes(router)
	printer.NewHandler(printerService).RegisterRoutes(router)
	allocation.NewHandler(allocService).RegisterRoutes(router)
	stats.NewHandler(statsService).RegisterRoutes(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: ":" + cfg.AppPort, Handler: router}
	go func() {
		log.Info("api server starting", logger.String("port", cfg.AppPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	server.Close()
}
