package llm

import (
	"fmt"
	"time"
)

// FactoryConfig selects and tunes a provider. It mirrors the relevant
// slice of the service configuration so this package does not import the
// config package.
type FactoryConfig struct {
	Provider    string // "openai" or "anthropic"
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	OpenAI      OpenAIConfig
	Anthropic   AnthropicConfig
}

// Client is the full provider surface. Both supported providers parse
// citations and summarize, so the factories below share one constructor.
type Client interface {
	CitationParser
	Summarizer
}

func newClient(cfg FactoryConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI, cfg.Temperature, cfg.Timeout, cfg.MaxRetries), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic, cfg.Temperature, cfg.Timeout, cfg.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// NewCitationParser returns the configured provider as a CitationParser.
func NewCitationParser(cfg FactoryConfig) (CitationParser, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewSummarizer returns the configured provider as a Summarizer.
func NewSummarizer(cfg FactoryConfig) (Summarizer, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
