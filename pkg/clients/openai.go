package clients

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// ModelType is an enum for the available OpenAI models.
type ModelType string

const (
	// DefaultModel is the default model to use if none is specified
	DefaultModel ModelType = "gpt-4o"
	MiniModel    ModelType = "gpt-4o-mini"
)

// OpenAI builds a langchaingo LLM client for the given model.
// The API key comes from the caller so the .env loading stays in the mains.
func OpenAI(model ModelType, apiKey string) (*openai.LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	var modelName string
	switch model {
	case DefaultModel:
		modelName = string(DefaultModel)
	case MiniModel:
		modelName = string(MiniModel)
	default:
		// Allow arbitrary model names from configuration.
		modelName = string(model)
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return llm, nil
}
