package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mailsense-backend/pkg/cache"
	"mailsense-backend/pkg/msauth"
)

const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// ErrNotFound reports a 404 from the Graph API.
var ErrNotFound = errors.New("graph: resource not found")

// Credentials carries one user's tokens into a Graph call. OnRefresh is
// invoked with the new token pair whenever a refresh happens mid-call.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	OnRefresh    msauth.TokenUpdateFunc
}

type Client struct {
	auth     *msauth.Service
	store    *cache.Store
	baseURL  string
	timeout  time.Duration
	cacheTTL time.Duration
}

func NewClient(auth *msauth.Service, store *cache.Store, baseURL string, timeout, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		auth:     auth,
		store:    store,
		baseURL:  baseURL,
		timeout:  timeout,
		cacheTTL: cacheTTL,
	}
}

func (c *Client) httpClient(ctx context.Context, creds Credentials) *http.Client {
	client := c.auth.Client(ctx, creds.AccessToken, creds.RefreshToken, creds.TokenExpiry, creds.OnRefresh)
	client.Timeout = c.timeout
	return client
}

// do executes one Graph request. GET responses are served from and
// written back to the cache keyed by the full request URL; mutating
// methods bypass the cache entirely. Non-2xx responses are logged with
// status and body and come back as errors, 404 as ErrNotFound.
func (c *Client) do(ctx context.Context, creds Credentials, method, requestURL string, body any) ([]byte, error) {
	cacheable := method == http.MethodGet && c.store != nil

	if cacheable {
		var cached json.RawMessage
		ok, err := c.store.Get(cache.NamespaceGraphAPI, cache.HashKey(requestURL), &cached)
		if err != nil {
			log.Printf("[Graph] Cache read failed for %s: %v", requestURL, err)
		}
		if ok {
			return cached, nil
		}
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("graph: encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("graph: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient(ctx, creds).Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph: %s %s: %w", method, requestURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("graph: %s %s: read response: %w", method, requestURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Graph] %s %s failed: %d %s", method, requestURL, resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("graph: %s %s returned %d", method, requestURL, resp.StatusCode)
	}

	if cacheable && len(data) > 0 {
		if err := c.store.Set(cache.NamespaceGraphAPI, cache.HashKey(requestURL), json.RawMessage(data), c.cacheTTL); err != nil {
			log.Printf("[Graph] Cache write failed for %s: %v", requestURL, err)
		}
	}

	return data, nil
}

// GetUserProfile fetches the signed-in user's identity.
func (c *Client) GetUserProfile(ctx context.Context, creds Credentials) (*UserProfile, error) {
	data, err := c.do(ctx, creds, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return nil, err
	}
	var profile UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("graph: decode profile: %w", err)
	}
	return &profile, nil
}

// GetMessage fetches a single message by id. Returns (nil, nil) when the
// message no longer exists upstream.
func (c *Client) GetMessage(ctx context.Context, creds Credentials, messageID string) (*Message, error) {
	requestURL := c.baseURL + "/me/messages/" + url.PathEscape(messageID)
	data, err := c.do(ctx, creds, http.MethodGet, requestURL, nil)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("graph: decode message: %w", err)
	}
	return &msg, nil
}

// ListUnread fetches unread inbox messages, following continuation links
// until the mailbox is exhausted or maxCount messages are collected.
func (c *Client) ListUnread(ctx context.Context, creds Credentials, maxCount int) ([]Message, error) {
	if maxCount <= 0 {
		maxCount = 50
	}

	params := url.Values{}
	params.Set("$filter", "isRead eq false")
	params.Set("$top", fmt.Sprintf("%d", maxCount))
	params.Set("$orderby", "receivedDateTime desc")

	next := c.baseURL + "/me/mailfolders/inbox/messages?" + params.Encode()
	messages := make([]Message, 0, maxCount)

	for next != "" && len(messages) < maxCount {
		data, err := c.do(ctx, creds, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		var page messageList
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("graph: decode message list: %w", err)
		}
		messages = append(messages, page.Value...)
		next = page.NextLink
	}

	if len(messages) > maxCount {
		messages = messages[:maxCount]
	}
	return messages, nil
}

// MarkRead flags a message as read in the user's mailbox.
func (c *Client) MarkRead(ctx context.Context, creds Credentials, messageID string) error {
	requestURL := c.baseURL + "/me/messages/" + url.PathEscape(messageID)
	_, err := c.do(ctx, creds, http.MethodPatch, requestURL, map[string]bool{"isRead": true})
	return err
}
