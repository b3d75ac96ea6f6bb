package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/medtrack/flagging-engine/internal/config"
	"github.com/medtrack/flagging-engine/internal/handler"
	alertHandler "github.com/medtrack/flagging-engine/internal/handler/alert"
	auditHandler "github.com/medtrack/flagging-engine/internal/handler/audit"
	flagHandler "github.com/medtrack/flagging-engine/internal/handler/flag"
	flagconfigHandler "github.com/medtrack/flagging-engine/internal/handler/flagconfig"
	scanHandler "github.com/medtrack/flagging-engine/internal/handler/scan"
	summaryHandler "github.com/medtrack/flagging-engine/internal/handler/summary"
	"github.com/medtrack/flagging-engine/internal/repository/postgres"
	"github.com/medtrack/flagging-engine/internal/router"
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

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:   level,
		Console: cfg.Logging.Console,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.New("flagging_engine")

	baseRepo := postgres.NewBaseRepository(db, m)
	flagRepo := postgres.NewFlagRepository(baseRepo)
	alertRepo := postgres.NewAlertRepository(baseRepo)
	summaryRepo := postgres.NewSummaryRepository(baseRepo)
	configRepo := postgres.NewConfigRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)
	appointments := postgres.NewAppointmentSource(baseRepo)

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
			appLogger.Fatal(err, "failed to connect to Redis")
		}
		defer broker.Close()
	}

	auditSvc := auditService.NewService(auditRepo)
	complianceSvc := complianceService.NewService()
	summarySvc := summaryService.NewService(flagRepo, summaryRepo)
	configSvc := flagconfigService.NewService(configRepo)
	alertSvc := alertService.NewService(alertRepo, broker)
	flagSvc := flagService.NewService(flagRepo, summarySvc, auditSvc, complianceSvc, m)
	scannerSvc := scannerService.NewService(appointments, flagSvc, alertSvc, configSvc, m)

	h := handler.NewHandler()
	r := router.NewRouter(h, router.Config{
		RateLimit:     rate.Limit(cfg.Server.RateLimit),
		RateBurst:     cfg.Server.RateBurst,
		MetricsPrefix: "flagging_engine_http",
	},
		flagHandler.NewHandler(flagSvc, alertSvc, configSvc, appointments),
		alertHandler.NewHandler(alertSvc),
		summaryHandler.NewHandler(summarySvc),
		flagconfigHandler.NewHandler(configSvc),
		auditHandler.NewHandler(auditSvc),
		scanHandler.NewHandler(scannerSvc),
	)
	r.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scanWorker := worker.NewScanWorker(scannerSvc, time.Duration(cfg.Scanner.IntervalMinutes)*time.Minute, appLogger)
	go scanWorker.Start(ctx)

	retentionWorker := worker.NewRetentionWorker(
		flagRepo,
		auditRepo,
		cfg.Retention.AuditRetentionDays,
		time.Duration(cfg.Retention.SweepIntervalHours)*time.Hour,
		appLogger,
	)
	go retentionWorker.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info(fmt.Sprintf("server listening on :%d", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal(err, "server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
