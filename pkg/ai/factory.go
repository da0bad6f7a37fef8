package ai

import (
	"time"
)

// Config selects which providers join the enrichment chains. A provider
// with no API key is simply left out of both chains. The Ollama fields
// are getters so the settings API can retune that tier at runtime.
type Config struct {
	GeminiAPIKey string
	SummaryModel string

	OpenAIAPIKey string
	ActionsModel string

	AnthropicAPIKey string
	ClaudeModel     string

	OllamaBaseURL func() string
	OllamaModel   func() string
	OllamaEnabled func() bool

	CallTimeout    time.Duration
	CallsPerSecond float64
}

// NewService assembles the enrichment chains. The summary chain leads
// with the cheap fast model, action extraction leads with the strongest
// reasoner; Ollama, when wired, joins both chains as the last tier
// before the deterministic fallback.
func NewService(cfg Config) *Service {
	var gemini, openai, claude, ollama Provider

	if cfg.GeminiAPIKey != "" {
		gemini = NewGeminiProvider(cfg.GeminiAPIKey, cfg.SummaryModel)
	}
	if cfg.OpenAIAPIKey != "" {
		openai = NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.ActionsModel)
	}
	if cfg.AnthropicAPIKey != "" {
		claude = NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.ClaudeModel)
	}
	if cfg.OllamaEnabled != nil {
		ollama = NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.OllamaEnabled)
	}

	summaryChain := buildChain(gemini, openai, claude, ollama)
	actionChain := buildChain(openai, claude, gemini, ollama)

	return newService(summaryChain, actionChain, cfg.CallTimeout, cfg.CallsPerSecond)
}

func buildChain(providers ...Provider) []Provider {
	chain := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return chain
}
