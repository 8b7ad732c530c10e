package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"payslipx/internal/app"
	"payslipx/internal/auth"
	"payslipx/internal/config"
	"payslipx/internal/email/noop"
	"payslipx/internal/email/ses"
	"payslipx/internal/handler"
	"payslipx/internal/llm"
	_ "payslipx/internal/llm/claude"
	_ "payslipx/internal/llm/gemini"
	_ "payslipx/internal/llm/openai"
	"payslipx/internal/metrics"
	"payslipx/internal/port"
	"payslipx/internal/repository/memory"
	"payslipx/internal/repository/objectstore"
	"payslipx/internal/repository/postgres"
	"payslipx/internal/repository/sqlite"
	"payslipx/internal/router"
	"payslipx/internal/service"
	s3storage "payslipx/internal/storage/s3"
	"payslipx/internal/usage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		if cfg.Auth.Secret == "change-me-in-production" {
			return errors.New("PAYSLIPX_AUTH_SECRET must be set in production")
		}
	}

	var db *sqlx.DB
	if cfg.Storage.Backend == "postgres" || cfg.Storage.Ledger == "postgres" {
		db, err = postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
	}

	// Initialize repositories
	usageRepo, closeLedger, err := newUsageRepo(cfg, db)
	if err != nil {
		return err
	}
	defer closeLedger()

	payslipRepo, err := newPayslipRepo(cfg, db)
	if err != nil {
		return err
	}

	alerts, err := newAlertSender(cfg)
	if err != nil {
		return err
	}

	// Initialize the LLM provider chain
	client, err := llm.NewClientChain(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	// Initialize services
	m := metrics.New()
	ledger := app.NewLedger(cfg, usageRepo, alerts)
	pipeline, err := app.NewPipeline(cfg, client, ledger, payslipRepo, m)
	if err != nil {
		return fmt.Errorf("failed to build extraction pipeline: %w", err)
	}
	queue := service.NewExtractionQueue(pipeline.Service, service.QueueConfig{
		Concurrency: cfg.Queue.Concurrency,
		BufferSize:  cfg.Queue.BufferSize,
		JobTTL:      cfg.Queue.JobTTL,
	})
	tokens := auth.NewTokenService(cfg.Auth)

	// Initialize handlers
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(tokens),
		Extraction: handler.NewExtractionHandler(pipeline.Service, queue, cfg.Pipeline.MaxFileSizeMB<<20, cfg.Pipeline.MaxTextBytes),
		Usage:      handler.NewUsageHandler(ledger),
		Admin:      handler.NewAdminHandler(pipeline.Limiter, pipeline.Cache),
		Health:     handler.NewHealthHandler(pinger),
	}

	// Setup router
	r := router.Setup(tokens, handlers, m, cfg.CORS.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queueDone := make(chan struct{})
	go func() {
		queue.Start(ctx)
		close(queueDone)
	}()
	go watchUsage(ctx, ledger, cfg.Usage)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	select {
	case <-queueDone:
	case <-shutdownCtx.Done():
		log.Printf("extraction queue did not drain before timeout")
	}
	return nil
}

func newUsageRepo(cfg *config.Config, db *sqlx.DB) (port.UsageRepository, func(), error) {
	switch cfg.Storage.Ledger {
	case "postgres":
		return postgres.NewUsageRepo(db), func() {}, nil
	case "sqlite":
		sdb, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open usage ledger: %w", err)
		}
		return sqlite.NewUsageRepo(sdb), func() { _ = sdb.Close() }, nil
	default:
		log.Printf("usage ledger is in memory; records are lost on restart")
		return memory.NewUsageRepo(), func() {}, nil
	}
}

func newPayslipRepo(cfg *config.Config, db *sqlx.DB) (port.PayslipRepository, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		return postgres.NewPayslipRepo(db), nil
	case "s3":
		store, err := s3storage.NewBlobStore(context.Background(), &cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 blob store: %w", err)
		}
		return objectstore.NewPayslipRepo(store, cfg.Storage.S3Prefix), nil
	default:
		return memory.NewPayslipRepo(), nil
	}
}

func newAlertSender(cfg *config.Config) (port.AlertSender, error) {
	if cfg.Email.Provider == "ses" {
		sender, err := ses.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES sender: %w", err)
		}
		return sender, nil
	}
	return noop.NewNoopSender(), nil
}

// watchUsage checks the trailing window for anomalous devices on every tick.
func watchUsage(ctx context.Context, ledger *usage.Service, cfg config.UsageConfig) {
	if cfg.AlertInterval <= 0 || cfg.AlertWindow <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.AlertInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := ledger.CheckAndAlert(ctx, now.Add(-cfg.AlertWindow), now); err != nil {
				log.Printf("usage check failed: %v", err)
			}
		}
	}
}
