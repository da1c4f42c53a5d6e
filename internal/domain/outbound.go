package domain

// Outbound message types.
const (
	OutboundText  = "text"
	OutboundAudio = "audio"
)

// TextBody is the text part of an outbound message.
type TextBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// AudioBody references an uploaded media object.
type AudioBody struct {
	ID string `json:"id"`
}

// OutboundMessage is the type-specific part of a reply. Transport metadata
// such as the recipient is added by the messenger.
type OutboundMessage struct {
	Type  string     `json:"type"`
	Text  *TextBody  `json:"text,omitempty"`
	Audio *AudioBody `json:"audio,omitempty"`
}

func TextMessage(body string) OutboundMessage {
	return OutboundMessage{Type: OutboundText, Text: &TextBody{Body: body}}
}

func AudioMessage(mediaID string) OutboundMessage {
	return OutboundMessage{Type: OutboundAudio, Audio: &AudioBody{ID: mediaID}}
}
