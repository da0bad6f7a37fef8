package ai

import (
	"fmt"
	"net"
	"strings"
)

// Deterministic last-resort outputs. These are what the chains return
// when every provider is down, so they must never fail themselves.

const (
	defaultSentiment = "neutral"
	defaultUrgency   = 0.5
	defaultCategory  = "other"
)

// fallbackSummary builds a rule-based summary from the raw fields: the
// sender, the subject and the first 200 characters of the body.
func fallbackSummary(subject, sender, body string) string {
	preview := body
	r := []rune(body)
	if len(r) > 200 {
		preview = strings.TrimSpace(string(r[:200])) + "..."
	} else {
		preview = strings.TrimSpace(preview)
	}

	return fmt.Sprintf("• Email from %s\n• Subject: %s\n• %s", sender, subject, preview)
}

// fallbackActions is the single generic action used when no provider
// produced a parseable recommendation list.
func fallbackActions() []ActionItem {
	return []ActionItem{{
		Action:    "Review email",
		Type:      "review",
		Priority:  "medium",
		DueDate:   nil,
		Reasoning: "automated fallback",
	}}
}

// isConnectionError checks if the error is a network/connection error.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates quota or rate-limit
// exhaustion. Quota errors fall through the chain exactly like empty
// results, they are never surfaced to the task.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}
