package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"

	//ingest job buffer limit
	BufferLimit = 100

	//worker pool
	MaxWorkerCount    int64 = 10
	MinWorkerCount    int64 = 1
	IdleWorkerTimeout       = 1 * time.Minute

	//per-call deadlines for the three network boundaries
	EmbeddingCallTimeout  = 30 * time.Second
	VectorCallTimeout     = 15 * time.Second
	GenerationCallTimeout = 60 * time.Second
	IngestCycleTimeout    = 5 * time.Minute
	QueryPipelineTimeout  = 90 * time.Second

	//vectorDB
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false
	QdrantPoolSize         = 1
	EmbeddingDimensionality int32 = 1024
	VectorCollectionName          = "knowledge_base"

	//redis advisory locks
	RedisAddr        = "127.0.0.1:6379"
	RedisLockDB      = 0
	IngestLockTTL    = 10 * time.Minute
	LockPollInterval = 500 * time.Millisecond
	LockPollTimeout  = 30 * time.Second

	//models
	GenerativeModelName = "gemini-2.5-flash-lite-preview-09-2025"
	EmbeddingModelName  = "gemini-embedding-001"

	ModelTemperature float32 = 0.7
	SystemContext            = "You are a helpful assistant with access to the user's knowledge base. " +
		"Use the provided context to answer the question. If the context does not contain the answer, say so."

	//documents
	MaxProcessingErrorLen = 500
)

// Config carries everything the core consumes. It is built once in main and
// injected; core packages never read the environment themselves.
type Config struct {
	ListenAddr string
	AuthToken  string

	SQLitePath string
	RedisAddr  string
	QdrantHost string
	QdrantPort int

	EmbeddingModel  string
	GenerativeModel string
	GeminiAPIKey    string

	ChunkSplitLength  int
	ChunkSplitOverlap int

	DefaultContextLimit int
	MaxContextLimit     int
	MaxContentSize      int

	RetryAttempts    int
	RetryBackoffBase time.Duration
}

func Defaults() Config {
	return Config{
		ListenAddr:          ServerListenAddr,
		SQLitePath:          "./capture.db",
		RedisAddr:           RedisAddr,
		QdrantHost:          "127.0.0.1",
		QdrantPort:          QdrantGrpcPort,
		EmbeddingModel:      EmbeddingModelName,
		GenerativeModel:     GenerativeModelName,
		ChunkSplitLength:    10,
		ChunkSplitOverlap:   2,
		DefaultContextLimit: 5,
		MaxContextLimit:     20,
		MaxContentSize:      1_000_000,
		RetryAttempts:       3,
		RetryBackoffBase:    500 * time.Millisecond,
	}
}

// Load fills Defaults with environment overrides. Called from main only.
func Load() (Config, error) {
	cfg := Defaults()

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	cfg.AuthToken = os.Getenv("INTERNAL_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	if v := os.Getenv("SQLITE_DB_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		cfg.QdrantHost = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid QDRANT_PORT %q: %w", v, err)
		}
		cfg.QdrantPort = port
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := os.Getenv("GENERATIVE_MODEL"); v != "" {
		cfg.GenerativeModel = v
	}

	if err := overrideInt(&cfg.ChunkSplitLength, "CHUNK_SPLIT_LENGTH"); err != nil {
		return cfg, err
	}
	if err := overrideInt(&cfg.ChunkSplitOverlap, "CHUNK_SPLIT_OVERLAP"); err != nil {
		return cfg, err
	}
	if err := overrideInt(&cfg.MaxContentSize, "MAX_CONTENT_SIZE"); err != nil {
		return cfg, err
	}
	if err := overrideInt(&cfg.RetryAttempts, "RETRY_ATTEMPTS"); err != nil {
		return cfg, err
	}

	if cfg.ChunkSplitLength <= 0 {
		return cfg, fmt.Errorf("chunk split length must be > 0, got %d", cfg.ChunkSplitLength)
	}
	if cfg.ChunkSplitOverlap < 0 || cfg.ChunkSplitOverlap >= cfg.ChunkSplitLength {
		return cfg, fmt.Errorf("chunk split overlap must be in [0, %d), got %d", cfg.ChunkSplitLength, cfg.ChunkSplitOverlap)
	}
	return cfg, nil
}

func overrideInt(target *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*target = n
	return nil
}
