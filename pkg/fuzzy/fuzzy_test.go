package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, LevenshteinDistance("invoice", "invoice"))
	assert.Equal(t, 1, LevenshteinDistance("invoice", "invoce"))
	assert.Equal(t, 3, LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 5, LevenshteinDistance("", "hello"))
	assert.Equal(t, 0, LevenshteinDistance("Report", "report"))
}

func TestMatchToleratesTypos(t *testing.T) {
	assert.True(t, Match("invoce", "Your invoice for March", 2))
	assert.True(t, Match("meet", "Team meeting tomorrow", 2))
	assert.False(t, Match("payroll", "Weekly newsletter digest", 2))
}

func TestMatchEmail(t *testing.T) {
	subject := "Quarterly budget review"
	sender := "alice.nguyen@example.com"
	senderName := "Alice Nguyen"
	body := "Please find the numbers attached ahead of Friday."

	assert.True(t, MatchEmail("budget", subject, sender, senderName, body))
	assert.True(t, MatchEmail("budgt", subject, sender, senderName, body))
	assert.True(t, MatchEmail("alice", subject, sender, senderName, body))
	assert.True(t, MatchEmail("friday", subject, sender, senderName, body))
	assert.False(t, MatchEmail("conference", subject, sender, senderName, body))
}

func TestRelevanceScoreOrdersSubjectAboveSender(t *testing.T) {
	inSubject := RelevanceScore("budget", "Budget review", "bob@example.com", "Bob Smith")
	inName := RelevanceScore("budget", "Weekly sync", "finance-team@example.com", "Budget Team")
	noMatch := RelevanceScore("budget", "Lunch plans", "carol@example.com", "Carol Jones")

	assert.Greater(t, inSubject, inName)
	assert.Greater(t, inName, noMatch)
	assert.Equal(t, 0.0, noMatch)
}
