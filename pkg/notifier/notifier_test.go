package notifier

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mailsense-backend/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleWritesDigestBlock(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{out: &buf}

	err := c.Send(context.Background(), Message{Title: "Unread email", Body: "• A summary line"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "===== Notification Digest =====")
	assert.Contains(t, out, "Unread email")
	assert.Contains(t, out, "• A summary line")
	assert.Contains(t, out, "===== End Digest =====")
}

func TestTelegramSendsFormPayload(t *testing.T) {
	var captured struct {
		path   string
		chatID string
		text   string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		captured.path = r.URL.Path
		captured.chatID = r.PostForm.Get("chat_id")
		captured.text = r.PostForm.Get("text")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tg := NewTelegram("bot-token", "chat-42")
	tg.baseURL = srv.URL

	err := tg.Send(context.Background(), Message{Title: "Unread email", Body: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "/botbot-token/sendMessage", captured.path)
	assert.Equal(t, "chat-42", captured.chatID)
	assert.Equal(t, "Unread email\n\nhello", captured.text)
}

func TestTelegramTruncatesLongMessages(t *testing.T) {
	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotText = r.PostForm.Get("text")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tg := NewTelegram("bot-token", "chat-42")
	tg.baseURL = srv.URL

	err := tg.Send(context.Background(), Message{Body: strings.Repeat("a", 5000)})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(gotText, "… (truncated)"))
	assert.LessOrEqual(t, len(gotText), telegramMaxLen+len("\n… (truncated)"))
}

func TestTelegramSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"description":"chat not found"}`)
	}))
	defer srv.Close()

	tg := NewTelegram("bot-token", "bad-chat")
	tg.baseURL = srv.URL

	err := tg.Send(context.Background(), Message{Body: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestFactoryFallsBackToConsole(t *testing.T) {
	cfg := &config.Config{NotifierType: "telegram"} // no token/chat configured
	n := New(cfg, nil, nil, nil)
	_, isConsole := n.(*Console)
	assert.True(t, isConsole)

	cfg = &config.Config{NotifierType: "fcm"} // no fcm client
	n = New(cfg, nil, nil, nil)
	_, isConsole = n.(*Console)
	assert.True(t, isConsole)

	cfg = &config.Config{NotifierType: "telegram", TelegramBotToken: "t", TelegramChatID: "c"}
	n = New(cfg, nil, nil, nil)
	_, isTelegram := n.(*Telegram)
	assert.True(t, isTelegram)
}
