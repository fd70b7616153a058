// Package main provides the entry point for the betting settlement service
//
// @title Betting Settlement API
// @version 1.0
// @description Deposit matching, game settlement and affiliate commission ledger.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/betting-settlement/app/handlers"
	"github.com/amirphl/betting-settlement/app/middleware"
	"github.com/amirphl/betting-settlement/app/router"
	"github.com/amirphl/betting-settlement/app/scheduler"
	"github.com/amirphl/betting-settlement/app/services"
	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/amirphl/betting-settlement/config"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	logger    *zap.Logger
	opayFlow  businessflow.OpayFlow
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := services.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting betting settlement",
		zap.String("environment", cfg.Deployment.Environment),
		zap.String("version", cfg.Deployment.Version),
		zap.String("commit", cfg.Deployment.CommitHash),
	)

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Ledger notifications run detached from requests; let them drain before closing the notifier
	if err := app.opayFlow.WaitForNotifications(shutdownCtx); err != nil {
		logger.Warn("Pending ledger notifications abandoned", zap.Error(err))
	}

	for _, fn := range app.stopFuncs {
		fn()
	}

	logger.Info("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis until the returned cancel is called
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires repositories, flows, handlers and the router
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	var locker services.DayFileLocker = services.NewLocalDayFileLocker()
	if rc != nil {
		locker = services.NewRedisDayFileLocker(rc, cfg.Cache.RedisPrefix+utils.AutoPaymentLockKeyPrefix, cfg.AutoPayment.LockTTL, utils.AutoPaymentLockPollInterval)
		stopFuncs = append(stopFuncs,
			startCacheHealthMonitor(context.Background(), rc, 30*time.Second, logger),
			func() { _ = rc.Close() },
		)
	}

	notifier, err := services.NewLedgerNotifier(cfg.LedgerNotify, logger)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("Failed to close ledger notifier", zap.Error(err))
		}
	})
	logger.Info("Ledger notifier initialized", zap.String("provider", notifier.Name()))

	// Repositories
	txManager := repository.NewTxManager(db)
	accountRepo := repository.NewAccountRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	depositRepo := repository.NewDepositTransactionRepository(db)
	paymentRepo := repository.NewPaymentMessageRepository(db)
	opayRepo := repository.NewOpayVerifiedTransactionRepository(db)
	turnoverRepo := repository.NewDepositTurnoverRepository(db)
	gameRepo := repository.NewGameHistoryRepository(db)
	refundRepo := repository.NewRefundHistoryRepository(db)
	settingsRepo := repository.NewBalanceTransferSettingsRepository(db)
	bonusRepo := repository.NewDepositBonusRepository(db)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Flows
	turnover := businessflow.NewTurnoverEngine(turnoverRepo, txManager, logger)
	cascade := businessflow.NewCommissionCascade(accountRepo, logger)

	autoPaymentFlow, err := businessflow.NewAutoPaymentFlow(
		paymentRepo,
		services.NewDayFileStore(cfg.AutoPayment.UploadDir),
		locker,
		cfg.AutoPayment,
		logger,
	)
	if err != nil {
		return nil, err
	}

	depositFlow := businessflow.NewDepositFlow(
		accountRepo,
		depositRepo,
		paymentRepo,
		bonusRepo,
		auditRepo,
		txManager,
		turnover,
		cascade,
		cfg.AutoPayment.MatchWindow,
		cfg.Turnover.DefaultMultiplier,
		logger,
	)

	opayFlow := businessflow.NewOpayFlow(
		accountRepo,
		depositRepo,
		opayRepo,
		auditRepo,
		txManager,
		turnover,
		cascade,
		notifier,
		cfg.Opay,
		cfg.LedgerNotify.Timeout,
		logger,
	)

	gameFlow := businessflow.NewGameCallbackFlow(
		accountRepo,
		gameRepo,
		refundRepo,
		txManager,
		turnover,
		cascade,
		cfg.GameProvider.VerificationKey,
		logger,
	)

	transferFlow := businessflow.NewBalanceTransferFlow(accountRepo, settingsRepo, auditRepo, logger)
	bridgeFlow := businessflow.NewBridgeFlow(accountRepo, auditRepo, txManager, logger)
	accountFlow := businessflow.NewAccountFlow(accountRepo, auditRepo, txManager, cascade, cfg.Security.BcryptCost, logger)
	authFlow := businessflow.NewAuthFlow(accountRepo, adminRepo, auditRepo, tokenService, cfg.JWT.AccessTokenTTL, logger)
	bonusFlow := businessflow.NewDepositBonusFlow(bonusRepo, auditRepo, logger)

	if cfg.Scheduler.BridgeEnabled {
		sched := scheduler.NewBridgeScheduler(bridgeFlow, cfg.Scheduler.BridgeInterval, logger)
		stopFuncs = append(stopFuncs, sched.Start(context.Background()))
	}

	// Handlers
	expose := cfg.Deployment.IsDevelopment()
	timeout := cfg.Server.RequestTimeout
	h := router.Handlers{
		Auth:        handlers.NewAuthHandler(authFlow, logger, expose, timeout),
		Account:     handlers.NewAccountHandler(accountFlow, turnover, transferFlow, logger, expose, timeout),
		Admin:       handlers.NewAdminHandler(accountFlow, bonusFlow, transferFlow, bridgeFlow, logger, expose, timeout),
		AutoPayment: handlers.NewAutoPaymentHandler(autoPaymentFlow, depositFlow, logger, expose, timeout),
		Opay:        handlers.NewOpayHandler(opayFlow, cfg.Opay.SignatureHeader, logger, expose, timeout),
		Game:        handlers.NewGameHandler(gameFlow, logger, expose, timeout),
	}

	appRouter := router.NewFiberRouter(cfg, logger, h, middleware.NewAuthMiddleware(tokenService))

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		logger:    logger,
		opayFlow:  opayFlow,
		stopFuncs: stopFuncs,
	}, nil
}
