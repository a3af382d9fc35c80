package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string
	BaseURL         string // Ollama server URL
}

// ChatEngine is an engine that uses an LLM to generate answers grounded in
// retrieved document chunks.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

var _ types.Generator = (*ChatEngine)(nil)

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature <= 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful assistant. Answer the question using only the provided document excerpts. If the excerpts do not contain the answer, say so."
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = "Document excerpts:\n%s\nQuestion: %s"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Generate answers the query from the retrieved context. When stream is
// non-nil it receives answer fragments as the model emits them; the complete
// answer is returned either way.
func (ce *ChatEngine) Generate(ctx context.Context, query string, contexts []models.SearchResult, stream func(string)) (string, error) {
	var contextBuilder strings.Builder
	for _, res := range contexts {
		contextBuilder.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", res.Entry.Source, res.Entry.Content))
	}

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman,
			fmt.Sprintf(ce.config.ContextTemplate, contextBuilder.String(), query)),
	}

	opts := []llms.CallOption{
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithTemperature(ce.config.Temperature),
	}
	if stream != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			stream(string(chunk))
			return nil
		}))
	}

	response, err := ce.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", &types.GenerationError{Err: err}
	}
	if response == nil || len(response.Choices) == 0 {
		return "", &types.GenerationError{Err: fmt.Errorf("model returned no choices")}
	}

	return response.Choices[0].Content, nil
}
