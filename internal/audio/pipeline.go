// Package audio turns response text into an Ogg/Opus voice note on local disk.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSynthesis marks any failure to produce a voice note: TTS or encoding.
var ErrSynthesis = errors.New("audio: synthesis failed")

// Synthesizer produces raw 16-bit mono PCM for text spoken in language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Renderer is the pipeline contract consumed by the dispatcher.
type Renderer interface {
	Render(ctx context.Context, text, language, messageID string) (string, error)
}

// Pipeline chains a Synthesizer and an Encoder.
type Pipeline struct {
	synth   Synthesizer
	encoder *Encoder
}

// NewPipeline creates a Pipeline.
func NewPipeline(synth Synthesizer, encoder *Encoder) (*Pipeline, error) {
	if synth == nil {
		return nil, errors.New("audio: synthesizer must not be nil")
	}
	if encoder == nil {
		return nil, errors.New("audio: encoder must not be nil")
	}
	return &Pipeline{synth: synth, encoder: encoder}, nil
}

// Render synthesizes text and returns the path of the encoded voice note.
// Every error wraps ErrSynthesis. Synthesis is never retried.
func (p *Pipeline) Render(ctx context.Context, text, language, messageID string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty text", ErrSynthesis)
	}
	pcm, err := p.synth.Synthesize(ctx, text, language)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	if len(pcm) == 0 {
		return "", fmt.Errorf("%w: no audio returned", ErrSynthesis)
	}
	path, err := p.encoder.Encode(ctx, pcm, messageID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	return path, nil
}
