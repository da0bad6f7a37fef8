package graph

import (
	"regexp"
	"strings"
	"time"
)

// Wire types for the Microsoft Graph mail surface. Only the fields the
// pipeline reads are mapped.

type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type Message struct {
	ID               string      `json:"id"`
	ConversationID   string      `json:"conversationId"`
	Subject          string      `json:"subject"`
	BodyPreview      string      `json:"bodyPreview"`
	Body             ItemBody    `json:"body"`
	From             *Recipient  `json:"from"`
	ToRecipients     []Recipient `json:"toRecipients"`
	ReceivedDateTime string      `json:"receivedDateTime"`
	IsRead           bool        `json:"isRead"`
	HasAttachments   bool        `json:"hasAttachments"`
	Importance       string      `json:"importance"`
}

type messageList struct {
	Value    []Message `json:"value"`
	NextLink string    `json:"@odata.nextLink"`
}

type UserProfile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email returns the best address for the profile. Personal accounts can
// have an empty mail field.
func (p *UserProfile) Email() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

type Subscription struct {
	ID                 string `json:"id"`
	Resource           string `json:"resource"`
	ChangeType         string `json:"changeType"`
	NotificationURL    string `json:"notificationUrl"`
	ClientState        string `json:"clientState,omitempty"`
	ExpirationDateTime string `json:"expirationDateTime"`
}

// ExpiresAt parses the subscription expiry, zero time on failure.
func (s *Subscription) ExpiresAt() time.Time {
	t, err := time.Parse(time.RFC3339, s.ExpirationDateTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NotificationEnvelope is the webhook payload delivered by Graph. A
// validation handshake carries only ValidationToken; change batches
// carry Value.
type NotificationEnvelope struct {
	ValidationToken string               `json:"validationToken,omitempty"`
	Value           []ChangeNotification `json:"value,omitempty"`
}

type ChangeNotification struct {
	SubscriptionID                 string `json:"subscriptionId"`
	ClientState                    string `json:"clientState,omitempty"`
	ChangeType                     string `json:"changeType"`
	Resource                       string `json:"resource"`
	SubscriptionExpirationDateTime string `json:"subscriptionExpirationDateTime,omitempty"`
}

// MessageIDFromResource extracts the message id from a notification
// resource path such as "Users/{uid}/Messages/{mid}". Returns an empty
// string when the path carries no usable segment.
func MessageIDFromResource(resource string) string {
	if resource == "" {
		return ""
	}
	parts := strings.Split(resource, "/")
	return parts[len(parts)-1]
}

func (m *Message) SenderAddress() string {
	if m.From != nil {
		return m.From.EmailAddress.Address
	}
	return ""
}

func (m *Message) SenderName() string {
	if m.From != nil {
		return m.From.EmailAddress.Name
	}
	return ""
}

func (m *Message) RecipientAddresses() []string {
	addrs := make([]string, 0, len(m.ToRecipients))
	for _, r := range m.ToRecipients {
		if r.EmailAddress.Address != "" {
			addrs = append(addrs, r.EmailAddress.Address)
		}
	}
	return addrs
}

// ReceivedTime parses receivedDateTime, zero time on failure.
func (m *Message) ReceivedTime() time.Time {
	t, err := time.Parse(time.RFC3339, m.ReceivedDateTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// PlainBody returns the message body as plain text. HTML-only payloads
// get their markup stripped and common entities unescaped.
func (m *Message) PlainBody() string {
	if !strings.EqualFold(m.Body.ContentType, "html") {
		return m.Body.Content
	}

	text := tagPattern.ReplaceAllString(m.Body.Content, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&quot;", "\"")

	return strings.Join(strings.Fields(text), " ")
}

// HTMLBody returns the raw HTML body, empty when the payload is plain text.
func (m *Message) HTMLBody() string {
	if strings.EqualFold(m.Body.ContentType, "html") {
		return m.Body.Content
	}
	return ""
}
