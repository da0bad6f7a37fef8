package ai

import (
	"context"
	"time"
)

// ActionItem is one recommended action extracted from an email.
type ActionItem struct {
	Action    string     `json:"action"`
	Type      string     `json:"type"`
	Priority  string     `json:"priority"`
	DueDate   *time.Time `json:"due_date"`
	Reasoning string     `json:"reasoning"`
}

// Result carries everything enrichment derives from one email. The
// model fields name the tier that produced each part ("cached" and
// "fallback" are reserved tier names).
type Result struct {
	Summary      string       `json:"summary"`
	SummaryModel string       `json:"summary_model"`
	Actions      []ActionItem `json:"actions"`
	ActionsModel string       `json:"actions_model"`
	Sentiment    string       `json:"sentiment"`
	UrgencyScore float64      `json:"urgency_score"`
	Category     string       `json:"category"`
}

// Provider is one LLM backend able to complete a prompt. Implementations
// exist for Gemini, OpenAI, Anthropic and Ollama; the enrichment chains
// try them in order until one answers.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// FallbackTier is the tier name recorded when every provider failed and
// the deterministic rule-based output was used.
const FallbackTier = "fallback"

// CachedTier is recorded by callers that served enrichment from cache
// without invoking this engine.
const CachedTier = "cached"
