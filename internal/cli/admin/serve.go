package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/cardsmith/internal/api/handlers"
	"github.com/cloo-solutions/cardsmith/internal/config"
	"github.com/cloo-solutions/cardsmith/internal/database"
	"github.com/cloo-solutions/cardsmith/internal/extract"
	"github.com/cloo-solutions/cardsmith/internal/jobs"
	"github.com/cloo-solutions/cardsmith/internal/repository"
	"github.com/cloo-solutions/cardsmith/internal/server"
	"github.com/cloo-solutions/cardsmith/internal/service"
	"github.com/cloo-solutions/cardsmith/internal/storage"
	"github.com/cloo-solutions/cardsmith/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and preprocess worker",
		Long:  "Start the cardsmith API server on the specified port together with the background preprocess worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides CARDSMITH_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Serve the API without running the preprocess worker")
	addMigrationsFlag(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	if cfg.HasSentry() {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.TracesSampleRate(),
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MaxConnIdleTime: cfg.DBMaxConnIdle,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		if err := runMigrations(cmd, cfg.DatabaseURL); err != nil {
			return err
		}
	}

	pipeline, err := cfg.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	pipelineCfg := pipeline.Config()
	log.Printf("pipeline: max chunk %d chars, batches of %d (max %d tokens), provider %s",
		pipelineCfg.MaxChunkSize, pipelineCfg.MaxBatchSize, pipelineCfg.MaxBatchTokens, pipelineCfg.Provider)

	documentRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewPreprocessJobRepository(pool)
	resultRepo := repository.NewResultRepository(pool)

	documentSvc := service.NewDocumentService(documentRepo, jobRepo, resultRepo, pipeline, extract.New(cfg.PreserveParagraphs)).
		WithTxRunner(repository.NewTxRunner(pool))

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		documentSvc.WithStorage(s3Client)
	} else {
		log.Println("S3 not configured: file uploads disabled, inline text only")
	}

	var worker *jobs.Worker
	if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker {
		worker = jobs.NewWorker("preprocess", jobs.NewPreprocessWorker(jobRepo, documentSvc), cfg.WorkerPollInterval)
		go worker.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		PreprocessHandler: handlers.NewPreprocessHandler(service.NewPreprocessService(pipeline)),
		DocumentHandler:   handlers.NewDocumentHandler(documentSvc),
		Health:            pool,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Println("shutting down...")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
