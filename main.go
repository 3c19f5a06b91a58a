package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"docqa/config"
	"docqa/database"
	"docqa/flood"
	"docqa/ingest"
	"docqa/llmclient"
	"docqa/progress"
	"docqa/relevance"
	"docqa/retrieval"
	"docqa/segment"
	"docqa/storage"
	"docqa/vectorstore"
	"docqa/web"
	"docqa/web/handlers"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	store, err := database.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	vectors, err := vectorstore.New(cfg.QdrantAddr)
	if err != nil {
		logger.Fatal("Failed to connect to Qdrant", zap.Error(err))
	}
	defer vectors.Close()

	// Progress is advisory; without a broker every task reports to a Nop.
	reporters := func(string) progress.Reporter { return progress.Nop{} }
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		reporters = func(taskID string) progress.Reporter {
			return progress.NewNATSReporter(nc, taskID, logger)
		}
	}

	models := llmclient.New(cfg, logger)
	bucket := storage.NewBucket(cfg.BucketPath)
	segmenter := segment.NewSegmenter(logger)

	ingestor := ingest.New(store, bucket, vectors, models, segmenter, cfg.UploadBatchSize, logger)

	expander := flood.NewExpander(flood.Config{
		TargetSize:      cfg.FloodTargetSize,
		MaxSize:         cfg.FloodMaxSize,
		SizePower:       cfg.FloodSizePower,
		SimilarityPower: cfg.FloodSimPower,
	}, rand.New(rand.NewSource(time.Now().UnixNano())))

	blender := relevance.NewBlender(models, logger)

	retriever, err := retrieval.New(store, vectors, models, blender, expander,
		cfg.SearchTopK, cfg.FloodMaxSize, cfg.QueryCacheSize, logger)
	if err != nil {
		logger.Fatal("Failed to initialize retriever", zap.Error(err))
	}

	docs := handlers.NewDocumentHandler(ingestor, retriever, reporters, logger)
	server := web.NewServer(docs, logger)

	serverCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(serverCtx, cfg.ListenAddr); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
}
