package chroma

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"mailsense-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const (
	collectionName = "emails"

	// Embedding models choke on very long inputs, cap the document text.
	maxDocumentLen = 10000
)

// Client wraps a Chroma collection holding one document per enriched email,
// embedded with Gemini text embeddings. All methods are best-effort from the
// pipeline's point of view; callers log and continue on error.
type Client struct {
	client     chroma.Client
	embedFunc  *gemini.GeminiEmbeddingFunction
	collection chroma.Collection
}

// NewClient connects to either a self-hosted Chroma (CHROMA_URL) or Chroma
// Cloud (CHROMA_API_KEY, optionally tenant/database) and ensures the emails
// collection exists.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.ChromaURL == "" && cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_URL or CHROMA_API_KEY is required")
	}

	// The embedding function reads the key from the environment.
	if cfg.GeminiAPIKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	switch {
	case cfg.ChromaURL != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(cfg.ChromaURL),
		)
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	case cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	default:
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		context.Background(),
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %q: %w", collectionName, err)
	}

	log.Printf("[VectorSync] Connected to Chroma, collection: %s", collectionName)

	return &Client{
		client:     client,
		embedFunc:  embedFunc,
		collection: collection,
	}, nil
}

func documentText(subject, body string) string {
	text := fmt.Sprintf("Subject: %s\n\nBody: %s", subject, body)
	if len(text) > maxDocumentLen {
		text = text[:maxDocumentLen]
	}
	return text
}

// UpsertEmail writes the embedding document for a message, keyed by the
// provider message id so reprocessing the same message never duplicates.
func (c *Client) UpsertEmail(ctx context.Context, messageID, userID, subject, body string, receivedAt time.Time, category string) error {
	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":     userID,
		"message_id":  messageID,
		"subject":     subject,
		"received_at": receivedAt.UTC().Format(time.RFC3339),
		"category":    category,
	})
	if err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(messageID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(documentText(subject, body)),
	)
	if err != nil {
		return fmt.Errorf("upsert email embedding: %w", err)
	}
	return nil
}

// SemanticSearch returns message ids ordered by similarity to the query,
// scoped to one user, together with the raw distances.
func (c *Client) SemanticSearch(ctx context.Context, userID, query string, limit int) ([]string, []float64, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []string{}, []float64{}, nil
	}

	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []string{}, []float64{}, nil
	}

	messageIDs := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		messageIDs = append(messageIDs, string(id))
	}

	distances := []float64{}
	if groups := results.GetDistancesGroups(); len(groups) > 0 {
		for _, d := range groups[0] {
			distances = append(distances, float64(d))
		}
	}

	return messageIDs, distances, nil
}

// DeleteEmail removes the embedding document for a message.
func (c *Client) DeleteEmail(ctx context.Context, messageID string) error {
	if err := c.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(messageID))); err != nil {
		return fmt.Errorf("delete email embedding: %w", err)
	}
	return nil
}
