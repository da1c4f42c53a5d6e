package domain

// Service names the sub-service an intent is routed to.
type Service string

const (
	ServiceMessage Service = "message"
	ServiceOnboard Service = "onboard"
)

// Reserved targets shared by the resolver and the dispatcher.
const (
	TargetInvalidInput   = "invalid_input"
	TargetGreet          = "onboard:greet"
	TargetChangeLanguage = "onboard:change_language"
	OnboardPrefix        = "onboard:"
	MoreInfoSuffix       = ":more_info"
	TagMoreInfo          = "more_info"
)

// Intent is what the resolver decided the sender asked for.
type Intent struct {
	Target  string
	Service Service
}

// FallbackIntent is returned whenever the input cannot be interpreted.
func FallbackIntent() Intent {
	return Intent{Target: TargetInvalidInput, Service: ServiceMessage}
}

// Attachment is a non-text part of an inbound message.
type Attachment struct {
	Type     string `json:"type"`
	MediaID  string `json:"mediaId"`
	MimeType string `json:"mimeType,omitempty"`
}

// InboundMessage is a validated inbound platform event.
type InboundMessage struct {
	ID          string
	From        string
	Timestamp   string
	Text        string
	Type        string
	Attachments []Attachment
}
