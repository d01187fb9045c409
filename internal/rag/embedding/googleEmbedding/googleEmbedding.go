package googleEmbedding

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/capturelabs/capture-engine/internal/config"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/rag/embedding"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var dimension int32 = config.EmbeddingDimensionality

type client struct {
	genAi *genai.Client
	model string
	retry retryPolicy
}

// GetGoogleEmbeddingClient builds the singleton embedder. Returns nil when
// the client cannot be constructed so main can refuse to start.
func GetGoogleEmbeddingClient(ctx context.Context, cfg config.Config) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, cfg)
	})

	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func newGoogleEmbedder(ctx context.Context, cfg config.Config) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.GeminiAPIKey})
	if err != nil {
		logger.Error("Error creating Google Embedding client:", "error", err)
		return
	}
	embeddingClient = &client{
		genAi: c,
		model: cfg.EmbeddingModel,
		retry: retryPolicy{
			attempts: cfg.RetryAttempts,
			baseWait: cfg.RetryBackoffBase,
		},
	}
	logger.Info("Google Embedding client created", "model", cfg.EmbeddingModel)
	go closeClient(ctx, embeddingClient)
}

func closeClient(ctx context.Context, embeddingClient *client) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
	embeddingClient.genAi = nil
}

// GetEmbedding embeds a single query text, retrying transient failures.
func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	var result *genai.EmbedContentResponse
	err := c.retry.do(ctx, log, func(callCtx context.Context) error {
		var callErr error
		result, callErr = c.doCall(callCtx, genai.Text(query), "RETRIEVAL_QUERY")
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding response: %w", docModel.ErrDependencyUnavailable)
	}
	return result.Embeddings[0].Values, nil
}

// BatchEmbedding embeds all texts in one call, same length and order as the
// input. No partial success: exhausted retries fail the whole batch.
func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "batchSize", len(texts))
	if len(texts) == 0 {
		return nil, nil
	}

	var result *genai.EmbedContentResponse
	err := c.retry.do(ctx, log, func(callCtx context.Context) error {
		var callErr error
		result, callErr = c.doCall(callCtx, getContent(texts), "RETRIEVAL_DOCUMENT")
		return callErr
	})
	if err != nil {
		return nil, err
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors: %w",
			len(texts), len(result.Embeddings), docModel.ErrDependencyUnavailable)
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, r := range result.Embeddings {
		vectors[i] = r.Values
	}
	return vectors, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, config.EmbeddingCallTimeout)
	defer cancel()
	return c.genAi.Models.EmbedContent(callCtx, c.model, content,
		&genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: taskType})
}

func getContent(texts []string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		})
	}
	return contents
}
