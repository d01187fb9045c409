package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/capturelabs/capture-engine/internal/adapter/utils"
	"github.com/capturelabs/capture-engine/internal/config"
	"github.com/capturelabs/capture-engine/internal/data/docstore"
	"github.com/capturelabs/capture-engine/internal/data/lockstore"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/handlers"
	"github.com/capturelabs/capture-engine/internal/job"
	"github.com/capturelabs/capture-engine/internal/middleware"
	"github.com/capturelabs/capture-engine/internal/rag"
	"github.com/capturelabs/capture-engine/internal/rag/embedding/googleEmbedding"
	"github.com/capturelabs/capture-engine/internal/rag/llm/gemini"
	"github.com/capturelabs/capture-engine/internal/rag/rerank"
	"github.com/capturelabs/capture-engine/internal/rag/vectorDB/qdrantDB"
	"github.com/capturelabs/capture-engine/internal/server"
	"github.com/capturelabs/capture-engine/internal/worker"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init(config.IS_PROD, config.LOG_LEVEL_PROD)
	var logger = logger_i.NewLogger("main")

	//config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return
	}
	flag.StringVar(&listenAddr, "listen-addr", cfg.ListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan docModel.IngestJob, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//authoritative document store
	docStore, err := docstore.Open(cfg.SQLitePath, utils.GetNewUUID)
	if err != nil {
		logger.Error("Could not open document store", "path", cfg.SQLitePath, "error", err)
		return
	}

	//advisory locks - redis with in-memory fallback
	var locker lockstore.Locker
	if redisLocker := lockstore.GetRedisLocker(serviceContext, cfg.RedisAddr); redisLocker != nil {
		locker = redisLocker
	} else {
		logger.Error("Redis is offline - using in-memory ingest locks")
		locker = lockstore.InitInMemoryLocker(config.IngestLockTTL)
	}

	vectorDB := qdrantDB.GetQdrantClient(serviceContext, cfg)
	embeddingService := googleEmbedding.GetGoogleEmbeddingClient(serviceContext, cfg)
	llmProvider := gemini.GetGeminiClient(serviceContext, cfg)

	if vectorDB == nil || embeddingService == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", vectorDB != nil, "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}

	ragService := rag.NewService(docStore, locker, vectorDB, llmProvider, embeddingService, rerank.NewLexicalReranker(), cfg)

	//init job service around the ingest queue
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		DocStore:          docStore,
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	handlers.InitHandlers(service, ragService, vectorDB, cfg)
	middleware.InitAuth(cfg.AuthToken)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
