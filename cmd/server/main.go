package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/repository/file"
	"github.com/mamadbah2/dairy/internal/repository/memory"
	"github.com/mamadbah2/dairy/internal/repository/mongodb"
	"github.com/mamadbah2/dairy/internal/repository/sheets"
	"github.com/mamadbah2/dairy/internal/scheduler"
	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/server/router"
	commandsvc "github.com/mamadbah2/dairy/internal/service/commands"
	ledgersvc "github.com/mamadbah2/dairy/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/dairy/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/dairy/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/dairy/pkg/clients/whatsapp"
	"github.com/mamadbah2/dairy/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx := context.Background()
	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	var (
		store   repository.Store
		archive reportingsvc.SnapshotArchiver
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		baseLogger.Warn("memory storage selected, ledger will not survive restarts")
		store = memory.New()
	case config.BackendMongoDB:
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		store = mongoRepo
		archive = mongoRepo
	default:
		fileStore, err := file.NewStore(cfg.Storage.DataDir, baseLogger.Named("repo.file"))
		if err != nil {
			baseLogger.Fatal("failed to init file storage", zap.Error(err))
		}
		store = fileStore
	}

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		googleRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = googleRepo
	}

	ledger := ledgersvc.NewService(ctx, store, baseLogger.Named("svc.ledger"), ledgersvc.WithCurrency(cfg.Reporting.Currency))
	reportingSvc := reportingsvc.NewService(ledger, sheetsRepo, archive, cfg.Reporting.Currency, baseLogger.Named("svc.reporting"))

	var (
		messagingSvc   whatsappsvc.MessagingService
		webhookHandler *handlers.ChannelHandler
	)
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(ledger, cfg.Reporting.Currency, loc, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		metaSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))
		messagingSvc = metaSvc
		webhookHandler = handlers.NewChannelHandler(metaSvc, baseLogger.Named("handlers.whatsapp"))
	} else {
		baseLogger.Warn("whatsapp credentials missing, command channel and digest delivery disabled")
	}

	engine := router.New(
		handlers.NewLedgerHandler(ledger, baseLogger.Named("handlers.ledger")),
		handlers.NewReportHandler(reportingSvc, baseLogger.Named("handlers.reports")),
		webhookHandler,
		baseLogger.Named("router"),
	)

	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, reportingSvc, messagingSvc, cfg.WhatsApp.ManagerID, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-sigCtx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
