package handler

import (
	"encoding/json"
	"strings"

	"carevo-bot/internal/domain"
)

// webhookPayload is the subset of the Cloud API notification envelope we read.
type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string       `json:"field"`
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Contacts         []webhookContact  `json:"contacts"`
	Messages         []webhookMessage  `json:"messages"`
	Statuses         []json.RawMessage `json:"statuses"`
}

type webhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type webhookMessage struct {
	From      string        `json:"from"`
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	Type      string        `json:"type"`
	Text      *webhookText  `json:"text"`
	Button    *webhookText  `json:"button"`
	Audio     *webhookMedia `json:"audio"`
	Image     *webhookMedia `json:"image"`
	Document  *webhookMedia `json:"document"`
	Video     *webhookMedia `json:"video"`
}

// webhookText covers text.body and button.text.
type webhookText struct {
	Body string `json:"body"`
	Text string `json:"text"`
}

type webhookMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

func (p webhookPayload) firstChange() (webhookChange, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return webhookChange{}, false
	}
	return p.Entry[0].Changes[0], true
}

// inbound converts the first message of the change. It fails when the
// sender or the text is missing.
func (v webhookValue) inbound() (domain.InboundMessage, bool) {
	if len(v.Messages) == 0 {
		return domain.InboundMessage{}, false
	}
	m := v.Messages[0]

	var text string
	switch {
	case m.Text != nil:
		text = m.Text.Body
	case m.Button != nil:
		text = m.Button.Text
	}

	msg := domain.InboundMessage{
		ID:        m.ID,
		From:      strings.TrimSpace(m.From),
		Timestamp: m.Timestamp,
		Text:      strings.TrimSpace(text),
		Type:      m.Type,
	}
	for _, a := range []struct {
		kind  string
		media *webhookMedia
	}{
		{"audio", m.Audio},
		{"image", m.Image},
		{"document", m.Document},
		{"video", m.Video},
	} {
		if a.media != nil {
			msg.Attachments = append(msg.Attachments, domain.Attachment{Type: a.kind, MediaID: a.media.ID, MimeType: a.media.MimeType})
		}
	}
	if msg.From == "" || msg.Text == "" {
		return domain.InboundMessage{}, false
	}
	return msg, true
}
