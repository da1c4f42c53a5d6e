package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type langSet map[string]bool

func (l langSet) IsSupportedLanguage(lang string) bool { return l[lang] }

func validSession() Session {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return Session{
		ID:          "0b2f8c6e-3d1a-4a57-9d0e-5f1c2b3a4d5e",
		PhoneNumber: "15550001111",
		Language:    DefaultLanguage,
		LastMessage: LastMessage{Query: "onboard:greet", Options: []string{"english", "french"}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func validMessage() MessageDefinition {
	return MessageDefinition{
		ID:       "msg-1",
		Type:     "onboard",
		Keyword:  "greet",
		Query:    "onboard:greet",
		Response: "Welcome! Pick a language.",
		Audio: map[string]AudioCacheEntry{
			"english": {Location: "/tmp/a.ogg", MediaID: "media-1"},
			"french":  {},
		},
		Actions: Actions{Options: []string{"english", "french"}},
	}
}

func TestValidateSession_Valid(t *testing.T) {
	require.NoError(t, ValidateSession(validSession(), nil))
	require.NoError(t, ValidateSession(validSession(), langSet{"french": true}))
}

func TestValidateSession_ReportsEveryIssue(t *testing.T) {
	s := Session{ID: "nope", PhoneNumber: "12ab", Language: " ", LastMessage: LastMessage{Options: []string{""}}}
	err := ValidateSession(s, nil)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "session", verr.Entity)
	require.Len(t, verr.Issues, 6)
	require.Contains(t, err.Error(), "id must be a UUID")
	require.Contains(t, err.Error(), "lastMessage.options[0]")
}

func TestValidateSession_UnsupportedLanguage(t *testing.T) {
	s := validSession()
	s.Language = "klingon"
	require.NoError(t, ValidateSession(s, nil))

	err := ValidateSession(s, langSet{"french": true})
	require.Error(t, err)
	require.Contains(t, err.Error(), `"klingon" is not supported`)
}

func TestValidateSession_UpdatedBeforeCreated(t *testing.T) {
	s := validSession()
	s.UpdatedAt = s.CreatedAt.Add(-time.Second)
	require.ErrorContains(t, ValidateSession(s, nil), "must not precede")
}

func TestValidateMessage_Valid(t *testing.T) {
	require.NoError(t, ValidateMessage(validMessage()))
}

func TestValidateMessage_Issues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*MessageDefinition)
		want   string
	}{
		{"empty id", func(m *MessageDefinition) { m.ID = "" }, "id must not be empty"},
		{"empty type", func(m *MessageDefinition) { m.Type = "" }, "type must not be empty"},
		{"empty query", func(m *MessageDefinition) { m.Query = "" }, "query must not be empty"},
		{"empty response", func(m *MessageDefinition) { m.Response = "" }, "response must not be empty"},
		{"long response", func(m *MessageDefinition) { m.Response = strings.Repeat("a", MaxResponseLength+1) }, "limit is"},
		{"media without location", func(m *MessageDefinition) { m.Audio["french"] = AudioCacheEntry{MediaID: "x"} }, "no location"},
		{"empty option", func(m *MessageDefinition) { m.Actions.Options = []string{"a", " "} }, "actions.options[1]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := validMessage()
			tc.mutate(&m)
			require.ErrorContains(t, ValidateMessage(m), tc.want)
		})
	}
}

func TestIsPhoneNumber(t *testing.T) {
	require.True(t, IsPhoneNumber("15550001111"))
	require.True(t, IsPhoneNumber("2547000000"))
	require.False(t, IsPhoneNumber("+15550001111"))
	require.False(t, IsPhoneNumber("123"))
	require.False(t, IsPhoneNumber("1234567890123456"))
}

func TestMessageDefinition_WithAudioDoesNotAlias(t *testing.T) {
	m := validMessage()
	updated := m.WithAudio("french", AudioCacheEntry{Location: "/tmp/f.ogg"})

	require.True(t, m.AudioFor("french").IsEmpty())
	require.Equal(t, "/tmp/f.ogg", updated.AudioFor("french").Location)
}

func TestSession_CloneDoesNotAlias(t *testing.T) {
	s := validSession()
	c := s.Clone()
	c.LastMessage.Options[0] = "changed"
	require.Equal(t, "english", s.LastMessage.Options[0])
}
