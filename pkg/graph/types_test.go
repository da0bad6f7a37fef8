package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageIDFromResource(t *testing.T) {
	assert.Equal(t, "AAMkAGI2",
		MessageIDFromResource("Users/user-1/Messages/AAMkAGI2"))
	assert.Equal(t, "plain-id", MessageIDFromResource("plain-id"))
	assert.Equal(t, "", MessageIDFromResource("Users/user-1/Messages/"))
	assert.Equal(t, "", MessageIDFromResource(""))
}

func TestPlainBodyStripsHTML(t *testing.T) {
	msg := Message{Body: ItemBody{
		ContentType: "html",
		Content:     "<div><p>Hello &amp; welcome</p>\n<p>to the   team</p></div>",
	}}
	assert.Equal(t, "Hello & welcome to the team", msg.PlainBody())
	assert.NotEmpty(t, msg.HTMLBody())
}

func TestPlainBodyPassesTextThrough(t *testing.T) {
	msg := Message{Body: ItemBody{ContentType: "text", Content: "just text"}}
	assert.Equal(t, "just text", msg.PlainBody())
	assert.Empty(t, msg.HTMLBody())
}

func TestMessageSenderHelpers(t *testing.T) {
	msg := Message{From: &Recipient{EmailAddress: EmailAddress{
		Name:    "Alice Nguyen",
		Address: "alice@example.com",
	}}}
	assert.Equal(t, "alice@example.com", msg.SenderAddress())
	assert.Equal(t, "Alice Nguyen", msg.SenderName())

	var empty Message
	assert.Equal(t, "", empty.SenderAddress())
	assert.Equal(t, "", empty.SenderName())
}

func TestSubscriptionExpiresAt(t *testing.T) {
	sub := Subscription{ExpirationDateTime: "2026-09-20T12:00:00Z"}
	assert.Equal(t, 2026, sub.ExpiresAt().Year())

	bad := Subscription{ExpirationDateTime: "not a date"}
	assert.True(t, bad.ExpiresAt().IsZero())
}
