package ai

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Service runs the tiered enrichment chains. Summary generation and
// action extraction execute concurrently per email; each walks its own
// provider order and degrades to deterministic output when every tier
// fails. Enrich never returns an error.
type Service struct {
	summaryChain []Provider
	actionChain  []Provider

	callTimeout time.Duration
	rateLimit   rate.Limit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	onCall func(provider, outcome string)
}

func newService(summaryChain, actionChain []Provider, callTimeout time.Duration, callsPerSecond float64) *Service {
	return &Service{
		summaryChain: summaryChain,
		actionChain:  actionChain,
		callTimeout:  callTimeout,
		rateLimit:    rate.Limit(callsPerSecond),
		limiters:     make(map[string]*rate.Limiter),
	}
}

// OnProviderCall registers a hook receiving (provider, outcome) for
// every provider invocation. Used to feed metrics.
func (s *Service) OnProviderCall(hook func(provider, outcome string)) {
	s.onCall = hook
}

func (s *Service) record(provider, outcome string) {
	if s.onCall != nil {
		s.onCall(provider, outcome)
	}
}

// Enrich analyzes one email. The summary and action sub-flows run
// concurrently and both are complete when it returns. Sentiment,
// urgency and category ride on the provider that won the summary and
// keep their defaults when that tier was the rule-based fallback.
func (s *Service) Enrich(ctx context.Context, subject, sender, body string, receivedAt time.Time) *Result {
	result := &Result{
		Sentiment:    defaultSentiment,
		UrgencyScore: defaultUrgency,
		Category:     defaultCategory,
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		summary, provider := s.generateSummary(ctx, subject, sender, body, receivedAt)
		result.Summary = summary
		if provider == nil {
			result.SummaryModel = FallbackTier
			return
		}
		result.SummaryModel = provider.Name()
		s.analyzeTone(ctx, provider, subject, sender, body, result)
	}()

	go func() {
		defer wg.Done()
		result.Actions, result.ActionsModel = s.generateActions(ctx, subject, sender, body, receivedAt)
	}()

	wg.Wait()
	return result
}

// generateSummary walks the summary chain. A nil provider in the return
// means the rule-based fallback produced the text.
func (s *Service) generateSummary(ctx context.Context, subject, sender, body string, receivedAt time.Time) (string, Provider) {
	prompt := summaryPrompt(subject, sender, body, receivedAt)

	for _, p := range s.summaryChain {
		text, err := s.complete(ctx, p, prompt)
		if err != nil {
			continue
		}
		summary := strings.TrimSpace(text)
		if summary == "" {
			s.record(p.Name(), "empty")
			continue
		}
		s.record(p.Name(), "ok")
		return summary, p
	}

	log.Printf("[AI] All summary providers failed, using rule-based fallback")
	return fallbackSummary(subject, sender, body), nil
}

// generateActions walks the action chain. A response that fails to
// parse into usable action items counts as a miss for that tier.
func (s *Service) generateActions(ctx context.Context, subject, sender, body string, receivedAt time.Time) ([]ActionItem, string) {
	prompt := actionsPrompt(subject, sender, body, receivedAt)

	for _, p := range s.actionChain {
		text, err := s.complete(ctx, p, prompt)
		if err != nil {
			continue
		}
		actions, err := parseActionItems(text)
		if err != nil {
			log.Printf("[AI] %s returned unparseable actions: %v", p.Name(), err)
			s.record(p.Name(), "parse_error")
			continue
		}
		s.record(p.Name(), "ok")
		return actions, p.Name()
	}

	log.Printf("[AI] All action providers failed, using fallback action")
	return fallbackActions(), FallbackTier
}

// analyzeTone derives sentiment, urgency and category with three small
// concurrent calls against the given provider. Any failure leaves the
// corresponding default in place.
func (s *Service) analyzeTone(ctx context.Context, p Provider, subject, sender, body string, result *Result) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		text, err := s.complete(ctx, p, sentimentPrompt(body))
		if err != nil {
			return
		}
		s.record(p.Name(), "ok")
		if sentiment := parseSentiment(text); sentiment != "" {
			result.Sentiment = sentiment
		}
	}()

	go func() {
		defer wg.Done()
		text, err := s.complete(ctx, p, urgencyPrompt(subject, sender, body))
		if err != nil {
			return
		}
		s.record(p.Name(), "ok")
		if score, ok := parseUrgency(text); ok {
			result.UrgencyScore = score
		}
	}()

	go func() {
		defer wg.Done()
		text, err := s.complete(ctx, p, classificationPrompt(subject, sender, body))
		if err != nil {
			return
		}
		s.record(p.Name(), "ok")
		if category := parseCategory(text); category != "" {
			result.Category = category
		}
	}()

	wg.Wait()
}

// complete runs one provider call under the shared rate limit and the
// per-call timeout. Quota exhaustion logs differently but falls through
// the chain exactly like any other failure.
func (s *Service) complete(ctx context.Context, p Provider, prompt string) (string, error) {
	if limiter := s.limiterFor(p.Name()); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			s.record(p.Name(), "error")
			return "", err
		}
	}

	callCtx := ctx
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	text, err := p.Complete(callCtx, prompt)
	if err != nil {
		switch {
		case isQuotaError(err):
			log.Printf("[AI] %s quota exhausted: %v", p.Name(), err)
			s.record(p.Name(), "quota")
		case isConnectionError(err):
			log.Printf("[AI] %s unreachable: %v", p.Name(), err)
			s.record(p.Name(), "error")
		default:
			log.Printf("[AI] %s error: %v", p.Name(), err)
			s.record(p.Name(), "error")
		}
		return "", err
	}
	return text, nil
}

func (s *Service) limiterFor(name string) *rate.Limiter {
	if s.rateLimit <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[name]
	if !ok {
		limiter = rate.NewLimiter(s.rateLimit, 1)
		s.limiters[name] = limiter
	}
	return limiter
}
