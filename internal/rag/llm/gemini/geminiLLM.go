package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/capturelabs/capture-engine/internal/config"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/rag/llm"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var once sync.Once

// GetGeminiClient builds the singleton generator. Returns nil when the client
// cannot be constructed so main can refuse to start.
func GetGeminiClient(ctx context.Context, cfg config.Config) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, cfg)
	})

	if geminiClient == nil {
		return nil
	}
	return geminiClient
}

func newGeminiClient(ctx context.Context, cfg config.Config) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.GeminiAPIKey})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return
	}
	geminiClient = &llmClient{client: c, modelName: cfg.GenerativeModel}
	logger.Info("Gemini client created", "model", cfg.GenerativeModel)
	go closeClient(ctx, geminiClient)
}

func closeClient(ctx context.Context, llm *llmClient) {
	<-ctx.Done()
	logger.Info("Closing Gemini client")
	llm.client = nil
}

// Generate runs one completion. A failure here is always hard: there is no
// degraded mode for an answer that was never produced.
func (c *llmClient) Generate(ctx context.Context, prompt string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	callCtx, cancel := context.WithTimeout(ctx, config.GenerationCallTimeout)
	defer cancel()

	temperature := config.ModelTemperature
	result, err := c.client.Models.GenerateContent(
		callCtx,
		c.modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: config.SystemContext}},
			},
			Temperature: &temperature,
		},
	)
	if err != nil {
		log.Error("generation call failed", "error", err)
		return "", fmt.Errorf("generation: %w", errors.Join(err, docModel.ErrDependencyUnavailable))
	}

	answer := result.Text()
	if answer == "" {
		return "", fmt.Errorf("empty generation response: %w", docModel.ErrDependencyUnavailable)
	}
	return answer, nil
}
