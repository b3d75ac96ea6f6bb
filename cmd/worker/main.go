package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/medtrack/flagging-engine/internal/config"
	"github.com/medtrack/flagging-engine/internal/repository/postgres"
	alertService "github.com/medtrack/flagging-engine/internal/service/alert"
	auditService "github.com/medtrack/flagging-engine/internal/service/audit"
	complianceService "github.com/medtrack/flagging-engine/internal/service/compliance"
	flagService "github.com/medtrack/flagging-engine/internal/service/flag"
	flagconfigService "github.com/medtrack/flagging-engine/internal/service/flagconfig"
	scannerService "github.com/medtrack/flagging-engine/internal/service/scanner"
	summaryService "github.com/medtrack/flagging-engine/internal/service/summary"
	"github.com/medtrack/flagging-engine/internal/worker"
	"github.com/medtrack/flagging-engine/pkg/logger"
	"github.com/medtrack/flagging-engine/pkg/messaging"
	redisbroker "github.com/medtrack/flagging-engine/pkg/messaging/redis"
	"github.com/medtrack/flagging-engine/pkg/metrics"
)

// WorkerEnv holds environment overrides for the standalone scan worker.
type WorkerEnv struct {
	ScanIntervalMinutes     int  `envconfig:"SCAN_INTERVAL_MINUTES" default:"15"`
	RetentionSweepHours     int  `envconfig:"RETENTION_SWEEP_HOURS" default:"24"`
	AuditRetentionDays      int  `envconfig:"AUDIT_RETENTION_DAYS" default:"2555"`
	HealthPort              int  `envconfig:"HEALTH_PORT" default:"8081"`
	DisableRetention        bool `envconfig:"DISABLE_RETENTION"`
	RunImmediatePassOnStart bool `envconfig:"RUN_IMMEDIATE_PASS"`
}

func setupHealthCheck(appLogger *logger.Logger, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}

	var env WorkerEnv
	if err := envconfig.Process("flagging", &env); err != nil {
		zlog.Fatal().Err(err).Msg("failed to read environment")
	}

	zlog.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLogger := &logger.Logger{ZL: zlog.Logger}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	var broker messaging.Broker
	if cfg.Redis.Enabled {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &appLogger.ZL)
		if err != nil {
			appLogger.Fatal(err, "failed to create Redis broker")
		}
		defer broker.Close()
	}

	m := metrics.New("flagging_worker")

	baseRepo := postgres.NewBaseRepository(db, m)
	flagRepo := postgres.NewFlagRepository(baseRepo)
	alertRepo := postgres.NewAlertRepository(baseRepo)
	summaryRepo := postgres.NewSummaryRepository(baseRepo)
	configRepo := postgres.NewConfigRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)
	appointments := postgres.NewAppointmentSource(baseRepo)

	auditSvc := auditService.NewService(auditRepo)
	summarySvc := summaryService.NewService(flagRepo, summaryRepo)
	configSvc := flagconfigService.NewService(configRepo)
	alertSvc := alertService.NewService(alertRepo, broker)
	flagSvc := flagService.NewService(flagRepo, summarySvc, auditSvc, complianceService.NewService(), m)
	scannerSvc := scannerService.NewService(appointments, flagSvc, alertSvc, configSvc, m)

	setupHealthCheck(appLogger, fmt.Sprintf(":%d", env.HealthPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("shutting down...")
		cancel()
	}()

	if env.RunImmediatePassOnStart {
		if _, err := scannerSvc.RunFlaggingPass(ctx, time.Now().UTC()); err != nil {
			appLogger.Error(err, "initial flagging pass failed")
		}
	}

	if !env.DisableRetention {
		retentionWorker := worker.NewRetentionWorker(
			flagRepo,
			auditRepo,
			env.AuditRetentionDays,
			time.Duration(env.RetentionSweepHours)*time.Hour,
			appLogger,
		)
		go retentionWorker.Start(ctx)
	}

	scanWorker := worker.NewScanWorker(scannerSvc, time.Duration(env.ScanIntervalMinutes)*time.Minute, appLogger)
	scanWorker.Start(ctx)
}
