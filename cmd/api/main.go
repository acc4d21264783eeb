package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/erp-gateway/internal/apikey"
	"github.com/Dan9191/erp-gateway/internal/config"
	"github.com/Dan9191/erp-gateway/internal/handler"
	"github.com/Dan9191/erp-gateway/internal/integrations/erp"
	"github.com/Dan9191/erp-gateway/internal/metrics"
	"github.com/Dan9191/erp-gateway/internal/repository"
	"github.com/Dan9191/erp-gateway/internal/scheduler"
	"github.com/Dan9191/erp-gateway/internal/service"
	"github.com/Dan9191/erp-gateway/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewMetrics(registry)
	if err != nil {
		logger.Fatalf("Failed to register metrics: %v", err)
	}

	// API key store
	var keys apikey.Store = apikey.NewMemoryStore()
	if cfg.DBConn != "" {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		repo := repository.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatalf("Failed to prepare database: %v", err)
		}
		keys = apikey.NewPostgresStore(repo, bcrypt.DefaultCost)
		logger.Info("API keys persisted in Postgres")
	} else {
		logger.Warn("DB_CONN not set, API keys are kept in memory only")
	}

	// Initialize layers
	erpClient := erp.NewClient(cfg, logger, m)
	var notifier service.Notifier
	if cfg.AlertsEnabled() {
		notifier = email.NewSender(cfg, logger)
	}
	svc := service.NewService(erpClient, logger, notifier, m)

	prober, err := scheduler.NewProber(erpClient, cfg.ERPProbeSchedule, cfg.ERPTimeout, logger)
	if err != nil {
		logger.Fatalf("Failed to schedule ERP probe: %v", err)
	}
	prober.Start(ctx)
	defer prober.Stop()

	h := handler.NewHandler(svc, keys, prober, logger)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{ErrorLog: logger})
	r := handler.NewRouter(h, keys, cfg.OpenPaths, metricsHandler, logger, m)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
