package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lodyland/handlers"
	"lodyland/internal/collect"
	"lodyland/internal/content"
	"lodyland/internal/database"
	"lodyland/internal/game"
	"lodyland/internal/gameplay"
	"lodyland/internal/journal"
	"lodyland/internal/network"
	"lodyland/pkg/config"
	"lodyland/pkg/logger"
)

var (
	addr       = flag.String("addr", "", "http service address (overrides config)")
	configFile = flag.String("config", "config.yml", "path to config file")
	logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	showCaller = flag.Bool("show-caller", false, "show caller information in logs")
	contentDir = flag.String("content", "", "content directory (overrides config, empty uses embedded defaults)")
)

func main() {
	flag.Parse()

	serverLogger := logger.ServerLogger

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		serverLogger.Fatal("Could not load config file %s: %v", *configFile, err)
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger.InitLoggers(logger.ParseLevel(level), *showCaller || cfg.Logging.ShowCaller)

	if *contentDir != "" {
		cfg.Content.Dir = *contentDir
	}
	serverAddr := cfg.GetAddr()
	if *addr != "" {
		serverAddr = *addr
	}

	serverLogger.Info("Starting lodyland server on %s", serverAddr)
	serverLogger.Info("Environment: %s", cfg.Server.Environment)

	// Content
	loader, err := content.NewLoader(cfg.Content.Validate)
	if err != nil {
		serverLogger.Fatal("Failed to compile content schemas: %v", err)
	}
	loadContent := func() (*content.Registry, error) {
		if cfg.Content.Dir == "" {
			return loader.LoadDefaults()
		}
		return loader.LoadDir(cfg.Content.Dir)
	}
	reg, err := loadContent()
	if err != nil {
		serverLogger.Fatal("Failed to load content: %v", err)
	}
	for _, warning := range reg.Warnings() {
		logger.ContentLogger.Warn("%s", warning)
	}
	counts := reg.Summary()
	serverLogger.Info("Loaded content: %d resources, %d cards, %d lands, %d levels, %d quests",
		counts["resources"], counts["cards"], counts["lands"], counts["levels"], counts["quests"])
	store := content.NewStore(reg)

	// Database
	dbConfig := database.DefaultConfig(cfg.Database.DataDir)
	dbConfig.Path = cfg.DatabasePath()
	dbConfig.MaxOpenConns = cfg.Database.MaxConnections
	dbConfig.BusyTimeout = cfg.Database.BusyTimeout
	db, err := database.NewConnection(dbConfig)
	if err != nil {
		serverLogger.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	serverLogger.Info("Connected to SQLite database: %s", dbConfig.Path)

	backupConfig := database.DefaultBackupConfig(cfg.Database.DataDir)
	backupConfig.MaxBackups = cfg.Database.MaxBackups
	if cfg.Database.BackupInterval > 0 {
		backupConfig.AutoBackup = true
		backupConfig.BackupInterval = cfg.Database.BackupInterval
	}
	backups := database.NewBackupManager(db, backupConfig)
	backups.Start()
	defer backups.Stop()

	optimizer := database.NewOptimizer(db, database.DefaultOptimizerConfig())
	optimizer.Start()
	defer optimizer.Stop()

	// Events
	hub := network.NewEventHub(1000)
	defer hub.Close()
	sinks := game.Sinks{hub}
	if cfg.Journal.Enabled {
		eventJournal := journal.NewEventJournal(cfg.JournalDir())
		defer eventJournal.Close()
		sinks = append(sinks, eventJournal)
		serverLogger.Info("Journaling events to %s", cfg.JournalDir())
	}

	svc := gameplay.NewService(db, store, gameplay.Config{
		Collect: collect.Config{
			XPPerCollect:    cfg.Game.XPPerCollect,
			DefaultCooldown: cfg.DefaultCooldown(),
		},
		DailyRewardCoins: cfg.Game.DailyRewardCoins,
		MaxActiveQuests:  cfg.Game.MaxActiveQuests,
		StartingCards:    cfg.Game.StartingCards,
		SessionTTL:       cfg.Game.SessionTTL,
	}, sinks)

	if cfg.Admin.Token == "" {
		serverLogger.Warn("No admin token configured, admin endpoints disabled")
	}
	api := handlers.NewAPI(handlers.Deps{
		Service:      svc,
		Store:        store,
		LoadContent:  loadContent,
		DB:           db,
		Backups:      backups,
		Optimizer:    optimizer,
		Hub:          hub,
		Events:       sinks,
		AdminToken:   cfg.Admin.Token,
		CorsOrigins:  cfg.Server.CorsOrigins,
		SecureCookie: cfg.Server.Environment == "production",
	})

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     logger.StdLogger(serverLogger, logger.WARN),
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go purgeSessions(ctx, svc, time.Hour)

	go func() {
		serverLogger.Info("Server listening on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverLogger.Fatal("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	serverLogger.Info("Received shutdown signal: %v", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	serverLogger.Info("Shutting down server...")
	stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serverLogger.Warn("Server forced to shutdown: %v", err)
	}
	serverLogger.Info("Server gracefully stopped")
}

// purgeSessions deletes expired sessions every interval until ctx ends
func purgeSessions(ctx context.Context, svc *gameplay.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeSessions(ctx)
			if err != nil {
				logger.ServerLogger.Warn("Session purge failed: %v", err)
				continue
			}
			if n > 0 {
				logger.ServerLogger.Info("Purged %d expired sessions", n)
			}
		}
	}
}
