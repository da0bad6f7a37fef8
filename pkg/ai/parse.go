package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var validActionTypes = map[string]bool{
	"reply": true, "delegate": true, "schedule": true,
	"review": true, "file": true, "no_action": true,
}

var validPriorities = map[string]bool{
	"low": true, "medium": true, "high": true, "urgent": true,
}

var validSentiments = map[string]bool{
	"positive": true, "neutral": true, "negative": true,
}

var validCategories = map[string]bool{
	"urgent_action": true, "meeting_request": true, "information": true,
	"task_assignment": true, "question": true, "approval": true, "general": true,
}

// extractJSONArray pulls the JSON array out of a model response, which
// often arrives wrapped in markdown fences or surrounded by prose.
func extractJSONArray(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// parseActionItems decodes a provider response into action items.
// Entries without an action are dropped; unknown types and priorities
// are normalized rather than rejected. An error means the whole
// response was unusable and the tier should be treated as a non-result.
func parseActionItems(text string) ([]ActionItem, error) {
	var raw []struct {
		Action    string `json:"action"`
		Type      string `json:"type"`
		Priority  string `json:"priority"`
		DueDate   string `json:"due_date"`
		Reasoning string `json:"reasoning"`
	}

	if err := json.Unmarshal([]byte(extractJSONArray(text)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse action JSON: %v", err)
	}

	items := make([]ActionItem, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Action) == "" {
			continue
		}

		item := ActionItem{
			Action:    strings.TrimSpace(r.Action),
			Type:      strings.ToLower(strings.TrimSpace(r.Type)),
			Priority:  strings.ToLower(strings.TrimSpace(r.Priority)),
			Reasoning: strings.TrimSpace(r.Reasoning),
		}
		if !validActionTypes[item.Type] {
			item.Type = "review"
		}
		if !validPriorities[item.Priority] {
			item.Priority = "medium"
		}
		item.DueDate = parseDueDate(r.DueDate)

		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no usable action items in response")
	}
	return items, nil
}

func parseDueDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	formats := []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02T15:04:05", "2006-01-02"}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseSentiment accepts only the three expected words, empty otherwise.
func parseSentiment(text string) string {
	word := strings.ToLower(strings.Trim(strings.TrimSpace(text), ".\"'"))
	if validSentiments[word] {
		return word
	}
	return ""
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parseUrgency extracts a 0.0-1.0 score, false when nothing numeric is
// found. Out-of-range values are clamped.
func parseUrgency(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)

	score, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		match := numberPattern.FindString(trimmed)
		if match == "" {
			return 0, false
		}
		score, err = strconv.ParseFloat(match, 64)
		if err != nil {
			return 0, false
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, true
}

// parseCategory accepts only the known category names, empty otherwise.
func parseCategory(text string) string {
	word := strings.ToLower(strings.Trim(strings.TrimSpace(text), ".\"'"))
	if validCategories[word] {
		return word
	}
	return ""
}
