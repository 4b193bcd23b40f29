package provider

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Default models per provider; overridable through Config.Model.
const (
	defaultOpenAIModel    = "gpt-4o"
	defaultAnthropicModel = "claude-3-5-sonnet-20240620"
	defaultGoogleAIModel  = "gemini-1.5-pro"
)

func newOpenAI(cfg Config) (llms.Model, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(model),
	)
}

func newAnthropic(cfg Config) (llms.Model, error) {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return anthropic.New(
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithModel(model),
	)
}

func newGoogleAI(cfg Config) (llms.Model, error) {
	model := cfg.Model
	if model == "" {
		model = defaultGoogleAIModel
	}
	// The googleai client validates the key at construction time, so give it
	// a short-lived context rather than the per-request one.
	return googleai.New(context.Background(),
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(model),
	)
}
