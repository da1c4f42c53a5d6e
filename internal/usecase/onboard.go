package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"carevo-bot/internal/domain"
)

// Processor dispatches the response for a target.
type Processor interface {
	Process(ctx context.Context, target string, sess domain.Session) (domain.Session, error)
}

type LanguageCatalog interface {
	IsSupportedLanguage(text string) bool
	LanguageAt(index int) (string, bool)
}

// OnboardingService greets new senders and records their language choice.
type OnboardingService struct {
	dispatcher Processor
	languages  LanguageCatalog
}

func NewOnboardingService(p Processor, l LanguageCatalog) (*OnboardingService, error) {
	if p == nil {
		return nil, errors.New("usecase: processor must not be nil")
	}
	if l == nil {
		return nil, errors.New("usecase: language catalog must not be nil")
	}
	return &OnboardingService{dispatcher: p, languages: l}, nil
}

func (o *OnboardingService) Greet(ctx context.Context, sess domain.Session) (domain.Session, error) {
	return o.dispatcher.Process(ctx, domain.TargetGreet, sess)
}

// SetLanguage applies choice, a language name or its 1-based position, and
// dispatches the matching onboarding step. Anything else gets invalid_input
// and leaves the language unchanged.
func (o *OnboardingService) SetLanguage(ctx context.Context, choice string, sess domain.Session) (domain.Session, error) {
	lang, ok := o.language(choice)
	if !ok {
		return o.dispatcher.Process(ctx, domain.TargetInvalidInput, sess)
	}
	sess = sess.Clone()
	sess.Language = lang
	return o.dispatcher.Process(ctx, domain.OnboardPrefix+lang, sess)
}

// IsLanguageChoice reports whether choice selects a supported language.
func (o *OnboardingService) IsLanguageChoice(choice string) bool {
	_, ok := o.language(choice)
	return ok
}

func (o *OnboardingService) language(choice string) (string, bool) {
	choice = strings.TrimSpace(choice)
	if o.languages.IsSupportedLanguage(choice) {
		return choice, true
	}
	if !domain.IsDigits(choice) {
		return "", false
	}
	n, err := strconv.Atoi(choice)
	if err != nil {
		return "", false
	}
	return o.languages.LanguageAt(n)
}
