package domain

import "time"

// DefaultLanguage is assigned to every new session until the sender picks one.
const DefaultLanguage = "english"

// LastMessage is the session cursor: the response last shown to the sender and
// the options that were listed with it.
type LastMessage struct {
	Query   string   `json:"query" yaml:"query"`
	Options []string `json:"options" yaml:"options"`
}

// Session is the per-sender conversation state.
type Session struct {
	ID          string      `json:"id" yaml:"id"`
	PhoneNumber string      `json:"phoneNumber" yaml:"phoneNumber"`
	Language    string      `json:"language" yaml:"language"`
	LastMessage LastMessage `json:"lastMessage" yaml:"lastMessage"`
	CreatedAt   time.Time   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt" yaml:"updatedAt"`
}

// Clone returns a deep copy so callers never share the options slice with a store.
func (s Session) Clone() Session {
	out := s
	out.LastMessage.Options = cloneStrings(s.LastMessage.Options)
	return out
}

// Matches reports whether identifier is either the session id or the sender phone number.
func (s Session) Matches(identifier string) bool {
	return identifier != "" && (s.ID == identifier || s.PhoneNumber == identifier)
}

// SessionTable is the durable record shape of the session store.
type SessionTable struct {
	Sessions []Session `json:"sessions" yaml:"sessions"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
