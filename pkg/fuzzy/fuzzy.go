package fuzzy

import (
	"strings"
)

// LevenshteinDistance calculates the edit distance between two strings,
// i.e. how many single-character insertions, deletions or substitutions
// are required to change one into the other.
func LevenshteinDistance(s1, s2 string) int {
	s1 = normalizeString(s1)
	s2 = normalizeString(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}

	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// Match checks if query fuzzy-matches text within a given threshold.
// threshold is the maximum allowed edit distance per word.
func Match(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)

	if strings.Contains(text, query) {
		return true
	}

	words := strings.Fields(text)
	for _, word := range words {
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
		if strings.HasPrefix(word, query) {
			return true
		}
	}

	// For short texts also compare against the whole string, with a bit
	// more tolerance for longer queries.
	if len(text) < 50 {
		maxDistance := threshold + len(query)/5
		if LevenshteinDistance(query, text) <= maxDistance {
			return true
		}
	}

	return false
}

// MatchEmail checks if a stored email matches the query, looking at the
// subject, sender address, sender display name and a body snippet.
func MatchEmail(query, subject, sender, senderName, body string) bool {
	threshold := thresholdFor(query)

	if Match(query, subject, threshold) {
		return true
	}
	if Match(query, senderName, threshold) {
		return true
	}
	if Match(query, sender, threshold) {
		return true
	}

	// Only scan the head of the body, full bodies get expensive.
	if len(body) > 0 {
		snippet := body
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		if Match(query, snippet, threshold) {
			return true
		}
	}

	return false
}

// RelevanceScore scores how relevant an email is to a query. Higher is
// more relevant. Subject matches weigh more than sender matches.
func RelevanceScore(query, subject, sender, senderName string) float64 {
	query = normalizeString(query)
	score := 0.0

	subjectNorm := normalizeString(subject)
	if strings.Contains(subjectNorm, query) {
		score += 100.0
		if containsWord(subjectNorm, query) {
			score += 50.0
		}
	} else {
		for _, word := range strings.Fields(subjectNorm) {
			dist := LevenshteinDistance(query, word)
			if dist <= 2 {
				score += 50.0 - float64(dist)*15
			}
			if strings.HasPrefix(word, query) {
				score += 40.0
			}
		}
	}

	nameNorm := normalizeString(senderName)
	if strings.Contains(nameNorm, query) {
		score += 80.0
		if containsWord(nameNorm, query) {
			score += 30.0
		}
	} else {
		for _, word := range strings.Fields(nameNorm) {
			dist := LevenshteinDistance(query, word)
			if dist <= 2 {
				score += 40.0 - float64(dist)*12
			}
			if strings.HasPrefix(word, query) {
				score += 35.0
			}
		}
	}

	senderNorm := normalizeString(sender)
	if strings.Contains(senderNorm, query) {
		score += 60.0
	} else {
		localPart := senderNorm
		if idx := strings.Index(senderNorm, "@"); idx > 0 {
			localPart = senderNorm[:idx]
		}
		if strings.HasPrefix(localPart, query) {
			score += 30.0
		}
	}

	return score
}

// thresholdFor picks a typo tolerance based on query length.
func thresholdFor(query string) int {
	switch {
	case len(query) <= 3:
		return 1
	case len(query) >= 8:
		return 3
	default:
		return 2
	}
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// normalizeString lowercases and collapses whitespace.
func normalizeString(s string) string {
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
}

// containsWord checks if text contains query as a whole word.
func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}
