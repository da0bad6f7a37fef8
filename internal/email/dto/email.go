package dto

import (
	emaildomain "mailsense-backend/internal/email/domain"
)

type EmailsResponse struct {
	Emails []emaildomain.EmailRecord `json:"emails"`
	Total  int64                     `json:"total"`
	Skip   int                       `json:"skip"`
	Limit  int                       `json:"limit"`
}

type SemanticSearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// SemanticResult pairs a stored record with its vector similarity to the
// query (1.0 means identical).
type SemanticResult struct {
	Email      emaildomain.EmailRecord `json:"email"`
	Similarity float64                 `json:"similarity"`
}

type SemanticSearchResponse struct {
	Query   string           `json:"query"`
	Results []SemanticResult `json:"results"`
}

type ProcessBatchResponse struct {
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
}
