package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/procureops/requisition-engine/internal/application/dispatcher"
	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/application/service"
	"github.com/procureops/requisition-engine/internal/config"
	"github.com/procureops/requisition-engine/internal/infrastructure/attachment"
	"github.com/procureops/requisition-engine/internal/infrastructure/export"
	"github.com/procureops/requisition-engine/internal/infrastructure/external/lark"
	"github.com/procureops/requisition-engine/internal/infrastructure/external/openai"
	"github.com/procureops/requisition-engine/internal/infrastructure/persistence/repository"
	"github.com/procureops/requisition-engine/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/procureops/requisition-engine/internal/interfaces/http"
	"github.com/procureops/requisition-engine/pkg/database"
	"github.com/procureops/requisition-engine/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Credentials may live in a local .env file; absence is not an error.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting requisition engine",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).Run(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txDB := sqlite.NewDB(db.DB, logger)
	requisitionRepo := repository.NewRequisitionRepository(txDB, logger)
	stepRepo := repository.NewStepRepository(txDB, logger)
	ruleRepo := repository.NewRuleRepository(txDB, logger)
	auditRepo := repository.NewAuditRepository(txDB, logger)
	attachmentRepo := repository.NewAttachmentRepository(txDB, logger)

	kvLogger := utils.NewKVLogger(logger)

	hooks := dispatcher.New(
		dispatcher.WithLogger(kvLogger),
		dispatcher.WithHookTimeout(cfg.Notification.HookTimeout),
	)
	defer hooks.Close()

	var notifier port.Notifier
	if cfg.Lark.Enabled {
		notifier = lark.NewClient(lark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
			ChatID:    cfg.Lark.ChatID,
		}, logger)
		logger.Info("Lark notifications enabled", zap.String("chat_id", cfg.Lark.ChatID))
	}

	var advisor port.Advisor
	if cfg.Advisor.Enabled {
		advisor = openai.NewAdvisor(openai.Config{
			APIKey:      cfg.Advisor.APIKey,
			Model:       cfg.Advisor.Model,
			Temperature: cfg.Advisor.Temperature,
			MaxTokens:   cfg.Advisor.MaxTokens,
			Timeout:     cfg.Advisor.Timeout,
		}, logger)
		logger.Info("Advisory review enabled", zap.String("model", cfg.Advisor.Model))
	}

	auditService := service.NewAuditService(auditRepo, kvLogger)
	notificationService := service.NewNotificationService(notifier, cfg.Notification.Timeout, kvLogger)
	service.RegisterHooks(hooks, auditService, notificationService, advisor, kvLogger)

	ledger := service.NewStepLedger(stepRepo, kvLogger)
	requisitionService := service.NewRequisitionService(requisitionRepo, ruleRepo, ledger, txDB, hooks, kvLogger)
	ruleService := service.NewRuleService(ruleRepo, hooks, kvLogger)

	prober := attachment.NewPDFProber(logger)
	attachmentService := service.NewAttachmentService(attachmentRepo, requisitionRepo, prober, hooks, kvLogger)
	store := attachment.NewStore(cfg.Attachment.Dir, logger)

	exporter := export.NewExporter(cfg.Export.OutputDir, requisitionRepo, stepRepo, auditRepo, logger)

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxUploadBytes: cfg.Attachment.MaxSizeBytes,
		},
		requisitionService,
		ledger,
		auditService,
		ruleService,
		attachmentService,
		store,
		exporter,
		kvLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}
