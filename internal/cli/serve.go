// Package cli provides the docindexd commands.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corpusworks/docindex/internal/api/handlers"
	"github.com/corpusworks/docindex/internal/cache"
	"github.com/corpusworks/docindex/internal/chunker"
	"github.com/corpusworks/docindex/internal/config"
	"github.com/corpusworks/docindex/internal/database"
	"github.com/corpusworks/docindex/internal/embedding"
	"github.com/corpusworks/docindex/internal/extract"
	"github.com/corpusworks/docindex/internal/jobs"
	"github.com/corpusworks/docindex/internal/openai"
	"github.com/corpusworks/docindex/internal/queue"
	"github.com/corpusworks/docindex/internal/repository"
	"github.com/corpusworks/docindex/internal/server"
	"github.com/corpusworks/docindex/internal/service"
	"github.com/corpusworks/docindex/internal/storage"
	"github.com/corpusworks/docindex/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"
	openaiapi "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ingestion daemon",
		Long:  "Start the docindex API server, queue consumer and background sweeper",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	if !cfg.HasS3() {
		return fmt.Errorf("S3 configuration is required (DOCINDEX_S3_ENDPOINT, DOCINDEX_S3_ACCESS_KEY_ID, DOCINDEX_S3_SECRET_ACCESS_KEY)")
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("embedding provider configuration is required (DOCINDEX_OPENAI_API_KEY)")
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	uploadRepo := repository.NewUploadRepository(pool)
	jobRepo := repository.NewJobRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	vectorRepo := repository.NewVectorRepository(pool, cfg.EmbeddingDimensions)
	txRunner := repository.NewTxRunner(pool, cfg.EmbeddingDimensions)

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
	storageClient := &S3StorageAdapter{client: s3Client}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      openaiapi.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	batcher := embedding.NewBatcher(embeddingClient, cfg.EmbedBatchSize)

	var annotator *chunker.Annotator
	if cfg.AnnotateChunks {
		annotator = chunker.NewAnnotator()
	}
	splitter, err := chunker.NewSplitter(chunker.Config{
		ChunkTokens:   cfg.ChunkTokens,
		OverlapTokens: cfg.ChunkOverlapTokens,
	}, chunker.EstimatorCounter{}, annotator)
	if err != nil {
		return fmt.Errorf("failed to configure chunker: %w", err)
	}

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()
	log.Println("connected to NATS")

	taskQueue := queue.NewNATS(nc)
	publisher := queue.NewPublisher(taskQueue)

	var embedCache cache.Cache
	if cfg.HasRedis() {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Printf("redis unavailable, query embedding cache disabled: %v", err)
			embedCache = cache.NewNoOpCache()
		} else {
			embedCache = redisCache
			defer redisCache.Close()
			log.Println("connected to redis")
		}
	} else {
		embedCache = cache.NewNoOpCache()
	}

	processor := service.NewDocumentProcessor(
		jobRepo, uploadRepo, docRepo, chunkRepo, vectorRepo,
		storageClient, extract.NewRegistry(), splitter, batcher, txRunner,
	)

	// Queue consumer: each trigger message carries {upload_id, job_id}.
	go func() {
		err := taskQueue.Worker(ctx, queue.TaskTypeIngest, func(ctx context.Context, task queue.Task) error {
			var payload queue.IngestPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				log.Printf("discarding malformed ingest task %s: %v", task.ID, err)
				return nil
			}
			return processor.ProcessJob(ctx, payload.JobID)
		})
		if err != nil {
			log.Printf("ingest consumer stopped: %v", err)
		}
	}()
	log.Println("ingest consumer started")

	sweeper := jobs.NewStalledJobSweeper(jobRepo, publisher,
		time.Duration(cfg.StalledJobMaxAgeMinutes)*time.Minute, 50)
	sweepWorker := jobs.NewWorker(sweeper, time.Duration(cfg.SweepIntervalSeconds)*time.Second)
	go sweepWorker.Start(ctx)
	log.Println("stalled-job sweeper started")

	uploadSvc := service.NewUploadService(uploadRepo, jobRepo, storageClient, publisher, cfg.S3Bucket, cfg.S3Region)
	statusSvc := service.NewJobStatusService(jobRepo)
	searchSvc := service.NewSearchService(embeddingClient, vectorRepo, embedCache)
	documentSvc := service.NewDocumentService(docRepo, chunkRepo, vectorRepo)

	router := server.NewRouter(server.RouterConfig{
		UploadHandler:   handlers.NewUploadHandler(uploadSvc),
		JobHandler:      handlers.NewJobHandler(statusSvc),
		SearchHandler:   handlers.NewSearchHandler(searchSvc),
		DocumentHandler: handlers.NewDocumentHandler(documentSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	cancel()
	sweepWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type S3StorageAdapter struct {
	client *storage.S3Client
}

func (a *S3StorageAdapter) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return a.client.GenerateUploadURL(ctx, key, contentType)
}

func (a *S3StorageAdapter) DownloadObject(ctx context.Context, key string) ([]byte, error) {
	return a.client.DownloadObject(ctx, key)
}

func (a *S3StorageAdapter) DeleteObject(ctx context.Context, key string) error {
	return a.client.DeleteObject(ctx, key)
}

func (a *S3StorageAdapter) HeadObject(ctx context.Context, key string) (*service.ObjectMetadata, error) {
	meta, err := a.client.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return &service.ObjectMetadata{
		ContentLength: meta.ContentLength,
		ContentType:   meta.ContentType,
		ETag:          meta.ETag,
	}, nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
