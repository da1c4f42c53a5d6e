package usecase

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"carevo-bot/internal/audio"
	"carevo-bot/internal/domain"
)

type MessageCatalog interface {
	FindByQueryOrID(key string) (domain.MessageDefinition, bool)
	SaveMessage(ctx context.Context, def domain.MessageDefinition) error
}

type Messenger interface {
	SendMessage(ctx context.Context, to string, msg domain.OutboundMessage) (string, error)
	UploadAudioFile(ctx context.Context, path string) (string, error)
}

// Dispatcher sends the catalog response for a target to the session's sender.
type Dispatcher struct {
	catalog   MessageCatalog
	renderer  audio.Renderer
	messenger Messenger
	logger    *slog.Logger
	stat      func(name string) (fs.FileInfo, error)
}

func NewDispatcher(c MessageCatalog, r audio.Renderer, m Messenger, logger *slog.Logger) (*Dispatcher, error) {
	if c == nil {
		return nil, errors.New("usecase: message catalog must not be nil")
	}
	if r == nil {
		return nil, errors.New("usecase: audio renderer must not be nil")
	}
	if m == nil {
		return nil, errors.New("usecase: messenger must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{catalog: c, renderer: r, messenger: m, logger: logger, stat: os.Stat}, nil
}

// Process sends the voice note for target and returns sess with its cursor
// moved to the dispatched definition. The cursor moves even when sending
// fails, so the next reply is read against what the sender was shown.
func (d *Dispatcher) Process(ctx context.Context, target string, sess domain.Session) (domain.Session, error) {
	def := d.definitionFor(target)

	out := sess.Clone()
	out.LastMessage = domain.LastMessage{
		Query:   def.Query,
		Options: append([]string{}, def.Actions.Options...),
	}

	if err := d.sendAudio(ctx, def, sess); err != nil {
		d.logger.Error("audio dispatch failed",
			"sender", sess.PhoneNumber,
			"target", target,
			"query", def.Query,
			"language", sess.Language,
			"err", err,
		)
		if textErr := d.sendText(ctx, def, sess); textErr != nil {
			d.logger.Error("text fallback failed",
				"sender", sess.PhoneNumber,
				"query", def.Query,
				"err", textErr,
			)
		}
		return out, err
	}
	return out, nil
}

func (d *Dispatcher) definitionFor(target string) domain.MessageDefinition {
	if def, ok := d.catalog.FindByQueryOrID(target); ok {
		return def
	}
	if def, ok := d.catalog.FindByQueryOrID(domain.TargetInvalidInput); ok {
		return def
	}
	return fallbackDefinition()
}

// sendAudio prefers a cached media id, then a cached file, and synthesizes
// only when neither exists. Cache entries are saved only once they are valid.
func (d *Dispatcher) sendAudio(ctx context.Context, def domain.MessageDefinition, sess domain.Session) error {
	lang := sess.Language
	entry := def.AudioFor(lang)

	if entry.MediaID == "" {
		// Rendered files live on instance-local disk; another instance may
		// have cached a location that does not exist here.
		if entry.Location != "" && d.isMissing(entry.Location) {
			d.logger.Warn("cached audio file missing, synthesizing again",
				"message_id", def.ID,
				"language", lang,
				"location", entry.Location,
			)
			entry.Location = ""
		}
		if entry.Location == "" {
			location, err := d.renderer.Render(ctx, spokenText(def), lang, def.ID)
			if err != nil {
				return classify(ErrorSynthesis, "synthesis_error", err)
			}
			entry.Location = location
		}

		mediaID, err := d.messenger.UploadAudioFile(ctx, entry.Location)
		if err != nil {
			d.keepLocation(ctx, def, lang, entry)
			return classify(ErrorUpstream, "media_upload_error", err)
		}
		entry.MediaID = mediaID

		if err := d.catalog.SaveMessage(ctx, def.WithAudio(lang, entry)); err != nil {
			return classify(ErrorStorage, "catalog_write_error", err)
		}
	}

	if _, err := d.messenger.SendMessage(ctx, sess.PhoneNumber, domain.AudioMessage(entry.MediaID)); err != nil {
		return classify(ErrorUpstream, "send_audio_error", err)
	}
	d.logger.Info("voice note sent",
		"sender", sess.PhoneNumber,
		"query", def.Query,
		"language", lang,
		"message_id", def.ID,
	)
	return nil
}

func (d *Dispatcher) isMissing(path string) bool {
	_, err := d.stat(path)
	return errors.Is(err, fs.ErrNotExist)
}

// keepLocation records a freshly rendered file whose upload failed, so the
// next dispatch retries the upload instead of synthesizing again.
func (d *Dispatcher) keepLocation(ctx context.Context, def domain.MessageDefinition, lang string, entry domain.AudioCacheEntry) {
	if def.AudioFor(lang).Location == entry.Location {
		return
	}
	if err := d.catalog.SaveMessage(ctx, def.WithAudio(lang, domain.AudioCacheEntry{Location: entry.Location})); err != nil {
		d.logger.Warn("could not cache audio location", "message_id", def.ID, "language", lang, "err", err)
	}
}

func (d *Dispatcher) sendText(ctx context.Context, def domain.MessageDefinition, sess domain.Session) error {
	if _, err := d.messenger.SendMessage(ctx, sess.PhoneNumber, domain.TextMessage(textBody(def))); err != nil {
		return classify(ErrorUpstream, "send_text_error", err)
	}
	return nil
}
