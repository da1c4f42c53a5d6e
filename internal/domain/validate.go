package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// LanguageChecker reports whether a language has catalog support.
type LanguageChecker interface {
	IsSupportedLanguage(language string) bool
}

// ValidationError lists every invariant a record violates.
type ValidationError struct {
	Entity string
	ID     string
	Issues []string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("domain: invalid %s %q: %s", e.Entity, e.ID, strings.Join(e.Issues, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Issues = append(e.Issues, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// ValidateSession checks s against the session invariants. languages may be nil,
// in which case only the fallback/non-empty rule is enforced.
func ValidateSession(s Session, languages LanguageChecker) error {
	verr := &ValidationError{Entity: "session", ID: s.ID}

	if _, err := uuid.Parse(s.ID); err != nil {
		verr.add("id must be a UUID")
	}
	if !IsPhoneNumber(s.PhoneNumber) {
		verr.add("phoneNumber must be %d to %d digits", minPhoneDigits, maxPhoneDigits)
	}
	switch {
	case strings.TrimSpace(s.Language) == "":
		verr.add("language must not be empty")
	case s.Language != DefaultLanguage && languages != nil && !languages.IsSupportedLanguage(s.Language):
		verr.add("language %q is not supported", s.Language)
	}
	if s.CreatedAt.IsZero() {
		verr.add("createdAt must be set")
	}
	if s.UpdatedAt.IsZero() {
		verr.add("updatedAt must be set")
	} else if s.UpdatedAt.Before(s.CreatedAt) {
		verr.add("updatedAt must not precede createdAt")
	}
	for i, opt := range s.LastMessage.Options {
		if strings.TrimSpace(opt) == "" {
			verr.add("lastMessage.options[%d] must not be empty", i)
		}
	}
	return verr.orNil()
}

// ValidateMessage checks m against the message definition invariants.
func ValidateMessage(m MessageDefinition) error {
	verr := &ValidationError{Entity: "message", ID: m.ID}

	if strings.TrimSpace(m.ID) == "" {
		verr.add("id must not be empty")
	}
	if strings.TrimSpace(m.Type) == "" {
		verr.add("type must not be empty")
	}
	if strings.TrimSpace(m.Query) == "" {
		verr.add("query must not be empty")
	}
	if strings.TrimSpace(m.Response) == "" {
		verr.add("response must not be empty")
	} else if n := utf8.RuneCountInString(m.Response); n > MaxResponseLength {
		verr.add("response is %d characters, limit is %d", n, MaxResponseLength)
	}
	for lang, entry := range m.Audio {
		if strings.TrimSpace(lang) == "" {
			verr.add("audio cache has an empty language key")
		}
		if entry.MediaID != "" && entry.Location == "" {
			verr.add("audio[%s] has a media id but no location", lang)
		}
	}
	for i, opt := range m.Actions.Options {
		if strings.TrimSpace(opt) == "" {
			verr.add("actions.options[%d] must not be empty", i)
		}
	}
	return verr.orNil()
}

// IsPhoneNumber reports whether s looks like an E.164 number without the leading plus.
func IsPhoneNumber(s string) bool {
	if len(s) < minPhoneDigits || len(s) > maxPhoneDigits {
		return false
	}
	return IsDigits(s)
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
