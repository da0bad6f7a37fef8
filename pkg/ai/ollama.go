package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrOllamaDisabled is returned when the local model tier is switched
// off; the chain treats it like any other provider miss.
var ErrOllamaDisabled = errors.New("ollama provider disabled")

// OllamaProvider talks to a local Ollama instance. Base URL, model and
// enablement are read through getters so the settings API can retune
// the provider at runtime without rebuilding the chains.
type OllamaProvider struct {
	getBaseURL func() string
	getModel   func() string
	getEnabled func() bool
	client     *http.Client
}

func NewOllamaProvider(getBaseURL, getModel func() string, getEnabled func() bool) *OllamaProvider {
	return &OllamaProvider{
		getBaseURL: getBaseURL,
		getModel:   getModel,
		getEnabled: getEnabled,
		client:     &http.Client{},
	}
}

func (o *OllamaProvider) Name() string {
	return "ollama:" + o.model()
}

func (o *OllamaProvider) model() string {
	if o.getModel != nil {
		if m := o.getModel(); m != "" {
			return m
		}
	}
	return "llama3"
}

func (o *OllamaProvider) baseURL() string {
	if o.getBaseURL != nil {
		if u := o.getBaseURL(); u != "" {
			return u
		}
	}
	return "http://localhost:11434"
}

func (o *OllamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if o.getEnabled != nil && !o.getEnabled() {
		return "", ErrOllamaDisabled
	}

	payload := map[string]interface{}{
		"model":  o.model(),
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.3,
			"num_predict": 500,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL()+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Response, nil
}

// Ping checks connectivity by listing the installed models.
func (o *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL()+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API error (%d)", resp.StatusCode)
	}
	return nil
}
