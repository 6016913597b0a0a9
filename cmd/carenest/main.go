package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carenest/carenest/internal/ai"
	"github.com/carenest/carenest/internal/classify"
	"github.com/carenest/carenest/internal/config"
	"github.com/carenest/carenest/internal/embedcache"
	"github.com/carenest/carenest/internal/extract"
	"github.com/carenest/carenest/internal/filestore"
	"github.com/carenest/carenest/internal/handler"
	"github.com/carenest/carenest/internal/job"
	"github.com/carenest/carenest/internal/logutil"
	"github.com/carenest/carenest/internal/middleware"
	"github.com/carenest/carenest/internal/ocr"
	"github.com/carenest/carenest/internal/rank"
	"github.com/carenest/carenest/internal/repo"
	"github.com/carenest/carenest/internal/schedule"
	"github.com/carenest/carenest/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "carenest",
		Short: "carenest knowledge engine",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the knowledge engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup(configPath)
			if err != nil {
				return err
			}
			defer db.Close()
			return runServer(cfg, db)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	resyncCmd := &cobra.Command{
		Use:   "resync-embeddings",
		Short: "re-embed every rankable document and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup(configPath)
			if err != nil {
				return err
			}
			defer db.Close()
			return resyncEmbeddings(cmd.Context(), cfg, db)
		},
	}
	resyncCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	rootCmd.AddCommand(runCmd, resyncCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logutil.Init(cfg.LogConfig)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	db, err := repo.Open(cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db, cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, db, nil
}

func buildEmbeddingService(cfg *config.Config, embeddingRepo *repo.EmbeddingRepo) (*service.EmbeddingService, error) {
	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	embedder = embedcache.WrapLRU(embedder, cfg.AI.CacheSize, time.Duration(cfg.AI.CacheTTLHours)*time.Hour)
	return service.NewEmbeddingService(
		embedder,
		embeddingRepo,
		time.Duration(cfg.AI.TimeoutSeconds)*time.Second,
	), nil
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logger := logutil.GetLogger(context.Background())
	logger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ocr_provider", cfg.OCR.Provider),
	)

	docRepo := repo.NewDocumentRepo(db)
	embeddingRepo := repo.NewEmbeddingRepo(db)

	store, err := filestore.New(cfg.FileStore.Type, cfg.FileStore.Data)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	ocrProvider, err := ocr.NewProvider(cfg.OCR.Provider, cfg.OCR.Data)
	if err != nil {
		// OCR is the fallback path only; image-only PDFs will fail
		// extraction until the provider is fixed.
		logger.Warn("ocr provider unavailable, image-only pdfs will not extract", zap.Error(err))
	}
	pipeline := extract.NewPipeline(ocrProvider, extract.Config{
		MinTextChars: cfg.Extract.MinTextChars,
		RenderDPI:    cfg.Extract.RenderDPI,
		PageTimeout:  time.Duration(cfg.Extract.PageTimeoutSeconds) * time.Second,
	})

	embeddingService, err := buildEmbeddingService(cfg, embeddingRepo)
	if err != nil {
		return err
	}
	ingestService := service.NewIngestService(docRepo, pipeline, store)
	documentService := service.NewDocumentService(docRepo)

	classifier := classify.New(classify.Config{
		DomainKeywords:      cfg.Retrieval.DomainKeywords,
		QuestionPatterns:    cfg.Retrieval.QuestionPatterns,
		EmotionalPhrases:    cfg.Retrieval.EmotionalPhrases,
		QuestionMarkers:     cfg.Retrieval.QuestionMarkers,
		EmergencyKeywords:   cfg.Retrieval.EmergencyKeywords,
		EmergencyExclusions: cfg.Retrieval.EmergencyExclusions,
	})
	scorer := rank.NewScorer(cfg.Retrieval.DomainPhrases)
	retrievalService := service.NewRetrievalService(docRepo, classifier, scorer, embeddingService, cfg.Retrieval)

	deps := handler.RouterDeps{
		Documents:       handler.NewDocumentHandler(ingestService, documentService, store),
		Retrieve:        handler.NewRetrieveHandler(retrievalService),
		RetrieveLimiter: time.Duration(cfg.Retrieval.RateLimitSeconds) * time.Second,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS(cfg.CORSOrigins))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	handler.RegisterRoutes(engine.Group("/api/v1"), deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.New()
	if err := scheduler.AddJob(job.NewEmbeddingSyncJob(embeddingService, cfg.Jobs.EmbeddingBatch), cfg.Jobs.EmbeddingSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: engine}
	logger.Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logutil.Sync()
	return nil
}

// resyncEmbeddings drains the stale-document backlog in one run. Useful after
// switching embedding models or restoring from a backup.
func resyncEmbeddings(ctx context.Context, cfg *config.Config, db *sql.DB) error {
	logger := logutil.GetLogger(ctx)
	embeddingRepo := repo.NewEmbeddingRepo(db)
	embeddingService, err := buildEmbeddingService(cfg, embeddingRepo)
	if err != nil {
		return err
	}

	batch := cfg.Jobs.EmbeddingBatch
	if batch <= 0 {
		batch = 20
	}
	for {
		stale, err := embeddingRepo.ListStaleDocuments(ctx, batch)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			logger.Info("resync complete")
			return nil
		}
		var failed int
		for i := range stale {
			if err := embeddingService.SyncEmbedding(ctx, &stale[i]); err != nil {
				failed++
			}
		}
		logger.Info("resync batch",
			zap.Int("total", len(stale)),
			zap.Int("failed", failed),
		)
		if failed == len(stale) {
			return fmt.Errorf("embedding resync stalled: all %d documents in batch failed", failed)
		}
	}
}
