package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"carevo-bot/internal/domain"
	"carevo-bot/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCatalog struct {
	defs    []domain.MessageDefinition
	saved   []domain.MessageDefinition
	saveErr error
}

func (f *fakeCatalog) FindByQueryOrID(key string) (domain.MessageDefinition, bool) {
	for _, d := range f.defs {
		if d.Query == key || d.ID == key {
			return d.Clone(), true
		}
	}
	return domain.MessageDefinition{}, false
}

func (f *fakeCatalog) SaveMessage(_ context.Context, def domain.MessageDefinition) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, def.Clone())
	for i := range f.defs {
		if f.defs[i].ID == def.ID {
			f.defs[i] = def.Clone()
		}
	}
	return nil
}

type renderCall struct {
	text, language, messageID string
}

type fakeRenderer struct {
	calls []renderCall
	path  string
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, text, language, messageID string) (string, error) {
	f.calls = append(f.calls, renderCall{text: text, language: language, messageID: messageID})
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type sentMessage struct {
	to  string
	msg domain.OutboundMessage
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	uploads   []string
	mediaID   string
	uploadErr error
	// audioErr fails audio sends only, so the text fallback can be observed.
	audioErr error
	sendErr  error
}

func (f *fakeMessenger) SendMessage(_ context.Context, to string, msg domain.OutboundMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	if msg.Type == domain.OutboundAudio && f.audioErr != nil {
		return "", f.audioErr
	}
	f.sent = append(f.sent, sentMessage{to: to, msg: msg})
	return "wamid.test", nil
}

func (f *fakeMessenger) UploadAudioFile(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.mediaID, nil
}

// memRecord is an in-memory repository.Record holding one JSON snapshot.
type memRecord struct {
	mu       sync.Mutex
	data     []byte
	writeErr error
}

func (m *memRecord) Read(_ context.Context, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return repository.ErrNotFound
	}
	return json.Unmarshal(m.data, v)
}

func (m *memRecord) Write(_ context.Context, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data = b
	return nil
}

var errBoom = errors.New("boom")
