package openai

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIClient wraps the langchaingo OpenAI model with our configuration.
type OpenAIClient struct {
	logger *logrus.Logger
	llm    llms.Model
	config *OpenAIConfig
}

// NewOpenAIClient creates a configured OpenAI client.
func NewOpenAIClient(config *OpenAIConfig) (*OpenAIClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	llmModel, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI: %w", err)
	}

	config.Logger.WithFields(logrus.Fields{
		"model":       config.Model,
		"temperature": config.Temperature,
		"max_tokens":  config.MaxTokens,
	}).Debug("OpenAI client initialized")

	return &OpenAIClient{
		logger: config.Logger,
		llm:    llmModel,
		config: config,
	}, nil
}

// GetLLM exposes the underlying langchaingo model.
func (c *OpenAIClient) GetLLM() llms.Model {
	return c.llm
}
