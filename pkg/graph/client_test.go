package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsense-backend/pkg/cache"
	"mailsense-backend/pkg/msauth"
)

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestClient(t *testing.T, baseURL string, store *cache.Store) *Client {
	t.Helper()
	auth := msauth.NewService("client-id", "client-secret", "http://localhost/auth/callback", "common")
	return NewClient(auth, store, baseURL, 5*time.Second, time.Minute)
}

func testCreds() Credentials {
	return Credentials{AccessToken: "test-token"}
}

func TestGetMessageCachesResponse(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/me/messages/msg-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg-1","subject":"Hello","isRead":false}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, newTestStore(t))

	msg, err := client.GetMessage(context.Background(), testCreds(), "msg-1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "Hello", msg.Subject)

	again, err := client.GetMessage(context.Background(), testCreds(), "msg-1")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, "Hello", again.Subject)

	assert.Equal(t, 1, hits, "second read should be served from cache")
}

func TestGetMessageNotFoundReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"ErrorItemNotFound"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	msg, err := client.GetMessage(context.Background(), testCreds(), "gone")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestGetMessageServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":"InternalServerError"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	msg, err := client.GetMessage(context.Background(), testCreds(), "msg-1")
	assert.Error(t, err)
	assert.Nil(t, msg)
}

func TestMarkReadBypassesCache(t *testing.T) {
	patches := 0
	var lastBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		patches++
		lastBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg-1","isRead":true}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, newTestStore(t))

	require.NoError(t, client.MarkRead(context.Background(), testCreds(), "msg-1"))
	require.NoError(t, client.MarkRead(context.Background(), testCreds(), "msg-1"))

	assert.Equal(t, 2, patches, "mutations must never be cached")
	assert.JSONEq(t, `{"isRead":true}`, string(lastBody))
}

func TestListUnreadFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"value":[{"id":"m3","subject":"three"}]}`)
			return
		}
		assert.Equal(t, "isRead eq false", r.URL.Query().Get("$filter"))
		fmt.Fprintf(w,
			`{"value":[{"id":"m1","subject":"one"},{"id":"m2","subject":"two"}],"@odata.nextLink":%q}`,
			srv.URL+"/me/mailfolders/inbox/messages?page=2")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	msgs, err := client.ListUnread(context.Background(), testCreds(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m3", msgs[2].ID)
}

func TestListUnreadStopsAtCap(t *testing.T) {
	var srv *httptest.Server
	pages := 0
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w,
			`{"value":[{"id":"a"},{"id":"b"}],"@odata.nextLink":%q}`,
			srv.URL+fmt.Sprintf("/me/mailfolders/inbox/messages?page=%d", pages+1))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	msgs, err := client.ListUnread(context.Background(), testCreds(), 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, 1, pages, "should not follow the cursor past the cap")
}

func TestCreateSubscriptionPayload(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/subscriptions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"sub-1","resource":"me/mailFolders/inbox/messages","changeType":"created","expirationDateTime":"2026-09-20T00:00:00Z"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	sub, err := client.CreateSubscription(context.Background(), testCreds(),
		"https://example.com/api/webhooks/notifications", "state-secret", 4230*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub-1", sub.ID)

	assert.Equal(t, "created", captured["changeType"])
	assert.Equal(t, "me/mailFolders/inbox/messages", captured["resource"])
	assert.Equal(t, "https://example.com/api/webhooks/notifications", captured["notificationUrl"])
	assert.Equal(t, "state-secret", captured["clientState"])

	expiry, err := time.Parse(time.RFC3339, captured["expirationDateTime"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(4230*time.Minute), expiry, time.Minute)
}

func TestRenewSubscriptionKeepsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/subscriptions/sub-1", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["expirationDateTime"])
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"sub-1","expirationDateTime":%q}`, body["expirationDateTime"])
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	sub, err := client.RenewSubscription(context.Background(), testCreds(), "sub-1", 4230*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
	assert.WithinDuration(t, time.Now().UTC().Add(4230*time.Minute), sub.ExpiresAt(), time.Minute)
}

func TestDeleteSubscriptionTreats404AsGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	assert.NoError(t, client.DeleteSubscription(context.Background(), testCreds(), "sub-gone"))
}
