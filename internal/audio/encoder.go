package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCM layout returned by the TTS model.
const (
	SampleRate   = 24000
	Channels     = 1
	BitDepth     = 16
	wavFormatPCM = 1

	opusBitrate = "64k"
)

// runFunc executes an external command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Encoder writes PCM as WAV and converts it to Ogg/Opus with ffmpeg.
type Encoder struct {
	dir    string
	ffmpeg string
	run    runFunc
	now    func() time.Time
}

type EncoderOption func(*Encoder)

// WithFFmpeg overrides the ffmpeg binary path. A blank path keeps the
// default lookup on PATH.
func WithFFmpeg(path string) EncoderOption {
	return func(e *Encoder) {
		if path = strings.TrimSpace(path); path != "" {
			e.ffmpeg = path
		}
	}
}

// NewEncoder creates an Encoder that stores voice notes under dir.
func NewEncoder(dir string, opts ...EncoderOption) (*Encoder, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("audio: output directory must not be empty")
	}
	e := &Encoder{
		dir:    dir,
		ffmpeg: "ffmpeg",
		run:    runCommand,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// fileName returns carevo-<messageID>-<yyyyMMddHHmmss>.<ext>.
func fileName(messageID, ext string, ts time.Time) string {
	return fmt.Sprintf("carevo-%s-%s.%s", messageID, ts.UTC().Format("20060102150405"), ext)
}

// Encode stores pcm as an Ogg/Opus file and returns its path. The
// intermediate WAV file is always removed.
func (e *Encoder) Encode(ctx context.Context, pcm []byte, messageID string) (string, error) {
	if len(pcm)%2 != 0 {
		return "", fmt.Errorf("audio: pcm length %d is not a whole number of 16-bit samples", len(pcm))
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("audio: create dir %s: %w", e.dir, err)
	}

	ts := e.now()
	wavPath := filepath.Join(e.dir, fileName(messageID, "wav", ts))
	oggPath := filepath.Join(e.dir, fileName(messageID, "ogg", ts))

	if err := writeWAV(wavPath, pcm); err != nil {
		_ = os.Remove(wavPath)
		return "", err
	}
	defer func() { _ = os.Remove(wavPath) }()

	out, err := e.run(ctx, e.ffmpeg, "-y", "-i", wavPath, "-c:a", "libopus", "-b:a", opusBitrate, oggPath)
	if err != nil {
		_ = os.Remove(oggPath)
		return "", fmt.Errorf("audio: ffmpeg convert: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(oggPath); err != nil {
		return "", fmt.Errorf("audio: ffmpeg produced no output: %w", err)
	}
	return oggPath, nil
}

func writeWAV(path string, pcm []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create wav: %w", err)
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	enc := wav.NewEncoder(f, SampleRate, BitDepth, Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           samples,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("audio: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("audio: finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("audio: close wav: %w", err)
	}
	return nil
}
