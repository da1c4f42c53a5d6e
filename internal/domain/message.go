package domain

// MaxResponseLength bounds the textual response body of a message definition.
const MaxResponseLength = 4096

// AudioCacheEntry is the cached voice note for one language.
type AudioCacheEntry struct {
	Location string `json:"location" yaml:"location"`
	MediaID  string `json:"mediaId" yaml:"mediaId"`
}

// IsEmpty reports whether nothing has been synthesized for this entry yet.
func (e AudioCacheEntry) IsEmpty() bool {
	return e.Location == "" && e.MediaID == ""
}

// Actions holds what is offered to the sender after the response body.
type Actions struct {
	Prompt  string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Options []string `json:"options" yaml:"options"`
}

// MessageDefinition is one catalog entry.
type MessageDefinition struct {
	ID       string                     `json:"id" yaml:"id"`
	Type     string                     `json:"type" yaml:"type"`
	Keyword  string                     `json:"keyword" yaml:"keyword"`
	Query    string                     `json:"query" yaml:"query"`
	Response string                     `json:"response" yaml:"response"`
	Audio    map[string]AudioCacheEntry `json:"audio" yaml:"audio"`
	Actions  Actions                    `json:"actions" yaml:"actions"`
}

// AudioFor returns the cache entry for language, or an empty entry.
func (m MessageDefinition) AudioFor(language string) AudioCacheEntry {
	return m.Audio[language]
}

// WithAudio returns a copy of m with the cache entry for language replaced.
func (m MessageDefinition) WithAudio(language string, entry AudioCacheEntry) MessageDefinition {
	out := m.Clone()
	out.Audio[language] = entry
	return out
}

// Clone returns a deep copy of the definition.
func (m MessageDefinition) Clone() MessageDefinition {
	out := m
	out.Audio = make(map[string]AudioCacheEntry, len(m.Audio))
	for lang, entry := range m.Audio {
		out.Audio[lang] = entry
	}
	out.Actions.Options = cloneStrings(m.Actions.Options)
	return out
}

// Catalog is the durable record shape of the message catalog.
type Catalog struct {
	Languages []string            `json:"languages" yaml:"languages"`
	Messages  []MessageDefinition `json:"messages" yaml:"messages"`
}
