// Package intent maps a numeric reply to what the sender selected.
//
// Every reply is expected to be a number that selects either a reserved
// system prompt or one of the options the sender was last shown. Resolution
// depends only on the text and the session cursor.
package intent

import (
	"strconv"
	"strings"

	"carevo-bot/internal/domain"
)

// PromptChecker looks up reserved numeric codes.
type PromptChecker interface {
	CheckSystemPrompt(text string) (string, bool)
}

// Resolve returns the intent for rawText given the session cursor.
func Resolve(rawText string, session domain.Session, prompts PromptChecker) domain.Intent {
	text := strings.TrimSpace(rawText)
	if !domain.IsDigits(text) {
		return domain.FallbackIntent()
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return domain.FallbackIntent()
	}
	// Canonical form so "011" and "11" hit the same prompt.
	code := strconv.Itoa(n)

	if tag, ok := prompts.CheckSystemPrompt(code); ok {
		if tag == domain.TagMoreInfo && session.LastMessage.Query != "" {
			return domain.Intent{
				Target:  session.LastMessage.Query + domain.MoreInfoSuffix,
				Service: domain.ServiceMessage,
			}
		}
		return tagIntent(tag)
	}

	options := session.LastMessage.Options
	if n < 1 || n > len(options) {
		return domain.FallbackIntent()
	}
	option := options[n-1]
	if tag, ok := prompts.CheckSystemPrompt(option); ok {
		return tagIntent(tag)
	}
	return domain.Intent{Target: option, Service: domain.ServiceMessage}
}

func tagIntent(tag string) domain.Intent {
	if strings.HasPrefix(tag, string(domain.ServiceOnboard)) {
		return domain.Intent{Target: tag, Service: domain.ServiceOnboard}
	}
	return domain.Intent{Target: tag, Service: domain.ServiceMessage}
}
