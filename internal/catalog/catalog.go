// Package catalog holds the provisioned response definitions and the
// per-language voice note cache attached to them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"carevo-bot/internal/domain"
	"carevo-bot/internal/repository"
)

// Catalog is the in-memory message catalog backed by a whole-table record.
type Catalog struct {
	record repository.Record

	mu        sync.RWMutex
	languages []string
	messages  []domain.MessageDefinition
}

// New creates an empty Catalog. Call Load to populate it.
func New(record repository.Record) (*Catalog, error) {
	if record == nil {
		return nil, errors.New("catalog: record must not be nil")
	}
	return &Catalog{record: record}, nil
}

// Load reads the languages and definitions. Every definition is validated and
// ids must be unique; on failure the catalog is left empty.
func (c *Catalog) Load(ctx context.Context) error {
	var doc domain.Catalog
	err := c.record.Read(ctx, &doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.languages, c.messages = nil, nil

	if err != nil {
		return fmt.Errorf("catalog: Load: %w", err)
	}
	if err := Validate(doc); err != nil {
		return fmt.Errorf("catalog: Load: %w", err)
	}
	for i := range doc.Messages {
		if doc.Messages[i].Audio == nil {
			doc.Messages[i].Audio = map[string]domain.AudioCacheEntry{}
		}
	}
	c.languages = doc.Languages
	c.messages = doc.Messages
	return nil
}

// FindByQueryOrID returns the definition whose canonical query or id equals key.
func (c *Catalog) FindByQueryOrID(key string) (domain.MessageDefinition, bool) {
	if key == "" {
		return domain.MessageDefinition{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.messages {
		if m.Query == key || m.ID == key {
			return m.Clone(), true
		}
	}
	return domain.MessageDefinition{}, false
}

// SaveMessage replaces the stored definition with the same id and persists the
// catalog. Unknown ids are ignored: definitions are provisioned elsewhere.
func (c *Catalog) SaveMessage(ctx context.Context, def domain.MessageDefinition) error {
	if err := domain.ValidateMessage(def); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(def.ID)
	if i < 0 {
		return nil
	}
	prev := c.messages[i]
	c.messages[i] = def.Clone()
	if err := c.record.Write(ctx, c.snapshotLocked()); err != nil {
		c.messages[i] = prev
		return fmt.Errorf("catalog: SaveMessage %s: %w", def.ID, err)
	}
	return nil
}

// IsSupportedLanguage reports whether text names a catalog language.
func (c *Catalog) IsSupportedLanguage(text string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, lang := range c.languages {
		if lang == text {
			return true
		}
	}
	return false
}

// LanguageAt returns the language at a 1-based position.
func (c *Catalog) LanguageAt(index int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 1 || index > len(c.languages) {
		return "", false
	}
	return c.languages[index-1], true
}

// Languages returns the supported languages in catalog order.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.languages...)
}

// Snapshot returns a deep copy of the durable document.
func (c *Catalog) Snapshot() domain.Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Catalog) snapshotLocked() domain.Catalog {
	doc := domain.Catalog{
		Languages: append([]string{}, c.languages...),
		Messages:  make([]domain.MessageDefinition, len(c.messages)),
	}
	for i, m := range c.messages {
		doc.Messages[i] = m.Clone()
	}
	return doc
}

func (c *Catalog) indexLocked(id string) int {
	for i, m := range c.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks every definition of doc, unique ids and the language list.
// All problems are joined into one error.
func Validate(doc domain.Catalog) error {
	var errs []error
	seenLang := make(map[string]bool, len(doc.Languages))
	for _, lang := range doc.Languages {
		if strings.TrimSpace(lang) == "" {
			errs = append(errs, errors.New("catalog: empty language name"))
			continue
		}
		if seenLang[lang] {
			errs = append(errs, fmt.Errorf("catalog: duplicate language %q", lang))
		}
		seenLang[lang] = true
	}

	seenID := make(map[string]bool, len(doc.Messages))
	for _, m := range doc.Messages {
		if err := domain.ValidateMessage(m); err != nil {
			errs = append(errs, err)
		}
		if m.ID != "" && seenID[m.ID] {
			errs = append(errs, &domain.ValidationError{
				Entity: "message",
				ID:     m.ID,
				Issues: []string{"id is not unique"},
			})
		}
		seenID[m.ID] = true
	}
	return errors.Join(errs...)
}
