package catalog

import "carevo-bot/internal/domain"

// System prompt tags. Tags prefixed with "onboard" route to the onboarding service.
const (
	PromptMoreInfo       = domain.TagMoreInfo
	PromptChangeLanguage = domain.TargetChangeLanguage
	PromptTopics         = "topic:categories"
)

// systemPrompts maps reserved numeric codes to global actions. It is checked
// before the session option list, so these codes shadow option indices.
var systemPrompts = map[string]string{
	"10": PromptMoreInfo,
	"11": PromptChangeLanguage,
	"22": PromptTopics,
}

// CheckSystemPrompt returns the tag reserved for text, if any.
func (c *Catalog) CheckSystemPrompt(text string) (string, bool) {
	tag, ok := systemPrompts[text]
	return tag, ok
}
