package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"carevo-bot/internal/domain"
	"carevo-bot/internal/intent"
)

type Outcome string

const (
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeGreeted   Outcome = "greeted"
	OutcomeResponded Outcome = "responded"
)

type Deduper interface {
	Check(sender, text string) bool
}

type SessionStore interface {
	Create(ctx context.Context, sender string) (domain.Session, error)
	Retrieve(identifier string) (domain.Session, bool)
	Update(ctx context.Context, sess domain.Session) (domain.Session, error)
}

// Bot runs one inbound message through dedupe, session lookup, intent
// resolution and dispatch.
type Bot struct {
	dedupe     Deduper
	sessions   SessionStore
	prompts    intent.PromptChecker
	onboarding *OnboardingService
	dispatcher Processor
	logger     *slog.Logger
}

func NewBot(d Deduper, s SessionStore, p intent.PromptChecker, o *OnboardingService, disp Processor, logger *slog.Logger) (*Bot, error) {
	if d == nil {
		return nil, errors.New("usecase: deduper must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if p == nil {
		return nil, errors.New("usecase: prompt checker must not be nil")
	}
	if o == nil {
		return nil, errors.New("usecase: onboarding service must not be nil")
	}
	if disp == nil {
		return nil, errors.New("usecase: processor must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		dedupe:     d,
		sessions:   s,
		prompts:    p,
		onboarding: o,
		dispatcher: disp,
		logger:     logger,
	}, nil
}

// HandleMessage processes msg. A failed dispatch still persists the moved
// cursor; the returned error is a *Error.
func (b *Bot) HandleMessage(ctx context.Context, msg domain.InboundMessage) (Outcome, error) {
	sender := strings.TrimSpace(msg.From)
	text := strings.TrimSpace(msg.Text)
	if sender == "" {
		return "", newError(ErrorInvalidInput, "empty_sender", nil)
	}
	if text == "" {
		return "", newError(ErrorInvalidInput, "empty_text", nil)
	}

	if b.dedupe.Check(sender, text) {
		b.logger.Info("duplicate message dropped", "sender", sender, "message_id", msg.ID)
		return OutcomeDuplicate, nil
	}

	sess, ok := b.sessions.Retrieve(sender)
	if !ok {
		created, err := b.sessions.Create(ctx, sender)
		if err != nil {
			return "", classify(ErrorStorage, "session_create_error", err)
		}
		next, err := b.onboarding.Greet(ctx, created)
		return OutcomeGreeted, b.finish(ctx, next, err)
	}

	in := intent.Resolve(text, sess, b.prompts)
	b.logger.Info("intent resolved",
		"sender", sender,
		"target", in.Target,
		"service", string(in.Service),
		"query", sess.LastMessage.Query,
	)
	next, err := b.route(ctx, in, sess)
	return OutcomeResponded, b.finish(ctx, next, err)
}

func (b *Bot) route(ctx context.Context, in domain.Intent, sess domain.Session) (domain.Session, error) {
	switch {
	case in.Target == domain.TargetGreet:
		return b.onboarding.Greet(ctx, sess)
	case in.Target == domain.TargetChangeLanguage:
		return b.dispatcher.Process(ctx, in.Target, sess)
	case in.Service == domain.ServiceOnboard || strings.HasPrefix(in.Target, domain.OnboardPrefix):
		if choice := strings.TrimPrefix(in.Target, domain.OnboardPrefix); b.onboarding.IsLanguageChoice(choice) {
			return b.onboarding.SetLanguage(ctx, choice, sess)
		}
		return b.dispatcher.Process(ctx, in.Target, sess)
	case strings.HasPrefix(sess.LastMessage.Query, domain.OnboardPrefix) && b.onboarding.IsLanguageChoice(in.Target):
		return b.onboarding.SetLanguage(ctx, in.Target, sess)
	default:
		return b.dispatcher.Process(ctx, in.Target, sess)
	}
}

// finish persists sess and reports the dispatch error first.
func (b *Bot) finish(ctx context.Context, sess domain.Session, dispatchErr error) error {
	_, err := b.sessions.Update(ctx, sess)
	if err != nil {
		err = classify(ErrorStorage, "session_write_error", err)
		b.logger.Error("session write failed", "sender", sess.PhoneNumber, "err", err)
	}
	if dispatchErr != nil {
		return classify(ErrorInternal, "dispatch_error", dispatchErr)
	}
	return err
}
