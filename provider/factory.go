package provider

import (
	"fmt"

	"memex/config"
	"memex/model"
)

type ProviderType string

const (
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeOllama    ProviderType = "ollama"
)

// Config selects and configures one provider.
type Config struct {
	Type    ProviderType
	BaseURL string
	APIKey  string
	Model   string
}

// NewProvider creates a provider based on configuration.
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor fails (e.g. a missing API key).
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// FromConfig builds the provider selected in the application config,
// pulling API keys and endpoints from the environment.
func FromConfig(cfg *config.Config) (model.Provider, error) {
	pc := Config{
		Type:  ProviderType(cfg.Provider),
		Model: cfg.Model(),
	}
	switch pc.Type {
	case ProviderTypeOpenAI:
		pc.BaseURL = cfg.OpenAIBaseURL()
		pc.APIKey = cfg.OpenAIKey()
	case ProviderTypeAnthropic:
		pc.APIKey = cfg.AnthropicKey()
	case ProviderTypeOllama:
		pc.BaseURL = cfg.OllamaHost
	}

	p, err := NewProvider(pc)
	if err != nil {
		return nil, err
	}
	if config.DebugLog != nil {
		config.DebugLog.Infof("[provider] initialized %s (model %s)", pc.Type, p.GetModel())
	}
	return p, nil
}
