package usecase

import (
	"strconv"
	"strings"

	"carevo-bot/internal/domain"
)

// fallbackDefinition answers unknown targets when the catalog has no
// invalid_input entry of its own.
func fallbackDefinition() domain.MessageDefinition {
	return domain.MessageDefinition{
		ID:       "builtin-invalid-input",
		Type:     "support",
		Keyword:  "invalid",
		Query:    domain.TargetInvalidInput,
		Response: "Sorry, I did not understand that. Please reply with one of the numbers shown.",
		Audio:    map[string]domain.AudioCacheEntry{},
		Actions:  domain.Actions{Options: []string{}},
	}
}

// spokenText is what gets narrated: the response, then the prompt if any.
func spokenText(def domain.MessageDefinition) string {
	response := normalizeText(def.Response)
	prompt := normalizeText(def.Actions.Prompt)
	if prompt == "" {
		return response
	}
	return response + " " + prompt
}

// textBody renders a definition as a plain text message with numbered options.
func textBody(def domain.MessageDefinition) string {
	lines := []string{strings.TrimSpace(def.Response)}
	if prompt := strings.TrimSpace(def.Actions.Prompt); prompt != "" {
		lines = append(lines, "", prompt)
	}
	if len(def.Actions.Options) > 0 {
		lines = append(lines, "")
		for i, opt := range def.Actions.Options {
			lines = append(lines, strconv.Itoa(i+1)+". "+opt)
		}
	}
	body := strings.Join(lines, "\n")
	if r := []rune(body); len(r) > domain.MaxResponseLength {
		body = string(r[:domain.MaxResponseLength])
	}
	return body
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
