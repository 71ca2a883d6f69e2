// ABOUTME: Entrypoint wiring storage, driver, services, scheduler and the admin API server
// ABOUTME: Runs as a long-lived daemon, or one refresh cycle with --once

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HieuLsw/NetNewsWire/config"
	"github.com/HieuLsw/NetNewsWire/domain"
	"github.com/HieuLsw/NetNewsWire/driver"
	"github.com/HieuLsw/NetNewsWire/handler"
	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/repository"
	"github.com/HieuLsw/NetNewsWire/security"
	"github.com/HieuLsw/NetNewsWire/service"
	"github.com/HieuLsw/NetNewsWire/service/scheduler"

	"github.com/jessevdk/go-flags"
)

type options struct {
	Config      string `long:"config" description:"Path to a YAML config file" value-name:"FILE"`
	Once        bool   `long:"once" description:"Run one refresh cycle and exit"`
	HealthCheck bool   `long:"health-check" description:"Probe the admin API health endpoint and exit"`
	Debug       bool   `long:"debug" description:"Force debug logging"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(opts.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, opts.Debug)
	slog.SetDefault(logger)

	if opts.HealthCheck {
		os.Exit(performHealthCheck(cfg.Server.Addr))
	}

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string, debug bool) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	if debug {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// ensureAccount loads the single local account, creating it on first
// run. Storage failures propagate; only a genuinely absent account
// triggers creation.
func ensureAccount(ctx context.Context, accountRepo repository.AccountRepository, name string, logger *slog.Logger) (*models.Account, error) {
	if logger == nil {
		logger = slog.Default()
	}

	account, err := accountRepo.FindDefault(ctx)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	account = models.NewAccount(name)
	if err := accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	logger.Info("Created local account", "account_id", account.ID, "name", account.Name)
	return account, nil
}

func run(cfg *config.Config, opts options, logger *slog.Logger) error {
	logger.Info("Sync service starting",
		"service", cfg.ServiceName,
		"db_driver", cfg.Database.Driver,
		"refresh_interval", cfg.Sync.RefreshInterval)

	db, err := repository.Open(repository.DatabaseOptions{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		Path:     cfg.Database.Path,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := repository.RunMigrations(db, cfg.Database.Driver)
	if err != nil {
		return err
	}
	logger.Info("Database migrated", "version", version, "dirty", dirty)

	accountRepo := repository.NewSQLAccountRepository(db, logger)
	feedRepo := repository.NewSQLFeedRepository(db, logger)
	folderRepo := repository.NewSQLFolderRepository(db, logger)
	articleRepo := repository.NewSQLArticleRepository(db, logger)
	statusQueue := repository.NewSQLSyncStatusRepository(db, logger)
	zoneStateRepo := repository.NewSQLZoneSyncStateRepository(db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	account, err := ensureAccount(ctx, accountRepo, cfg.Sync.AccountName, logger)
	if err != nil {
		return err
	}
	logger.Info("Local account ready",
		"account_id", account.ID,
		"has_remote_identity", account.HasRemoteIdentity())

	resolver := domain.NewExternalIDResolver(feedRepo, folderRepo, logger)
	store := service.NewLocalAccountStore(accountRepo, feedRepo, folderRepo, articleRepo, resolver, logger)

	zoneClient, err := driver.NewRecordStoreClient(
		cfg.RecordStore.BaseURL,
		cfg.RecordStore.KeyID,
		cfg.RecordStore.PrivateKeyPEM,
		logger)
	if err != nil {
		return err
	}

	engine := driver.NewGofeedEngine(store, logger)
	registry := service.NewProviderRegistry()
	progress := service.NewProgressTracker()

	statusSync := service.NewStatusSyncService(statusQueue, articleRepo, feedRepo, zoneStateRepo, zoneClient, store, logger)
	router := service.NewContentRefreshRouter(registry, engine, store, progress, logger)
	orchestrator := service.NewSyncOrchestrator(
		accountRepo, feedRepo, zoneStateRepo,
		zoneClient, statusSync, router, store, progress, logger)
	pipeline := service.NewFeedCreationPipeline(
		feedRepo, folderRepo, registry, engine,
		zoneClient, store, resolver, progress, logger)

	if opts.Once {
		return orchestrator.Refresh(ctx)
	}

	sched := scheduler.NewScheduler(orchestrator, statusSync, logger)
	sched.Start(scheduler.Config{
		RefreshInterval:     cfg.Sync.RefreshInterval,
		StatusFlushInterval: cfg.Sync.StatusFlushInterval,
	})
	defer sched.Stop()

	rateLimiter := security.NewMemoryRateLimiter(cfg.Server.RateLimitPerHour, logger)
	defer rateLimiter.Stop()

	adminAPI := handler.NewAdminAPIHandler(
		orchestrator, statusSync, pipeline,
		accountRepo, feedRepo, folderRepo,
		progress, rateLimiter, security.NewInputValidator(), logger)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           adminAPI.Routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Admin API listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
