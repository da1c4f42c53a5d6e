package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func pcmSamples(values ...int16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

type wavInfo struct {
	sampleRate int
	channels   int
	samples    []int
}

// fakeFFmpeg inspects the WAV it is handed and writes a placeholder .ogg.
func fakeFFmpeg(t *testing.T, seen *wavInfo, args *[]string) runFunc {
	return func(_ context.Context, _ string, a ...string) ([]byte, error) {
		*args = a
		in, out := a[2], a[len(a)-1]

		f, err := os.Open(in)
		require.NoError(t, err)
		defer f.Close()
		d := wav.NewDecoder(f)
		require.True(t, d.IsValidFile())
		buf, err := d.FullPCMBuffer()
		require.NoError(t, err)
		seen.sampleRate = int(d.SampleRate)
		seen.channels = int(d.NumChans)
		seen.samples = buf.Data

		return nil, os.WriteFile(out, []byte("OggS"), 0o644)
	}
}

func newTestEncoder(t *testing.T, run runFunc) (*Encoder, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "audio_files")
	e, err := NewEncoder(dir)
	require.NoError(t, err)
	e.run = run
	e.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC) }
	return e, dir
}

func TestEncode_WritesWAVThenConverts(t *testing.T) {
	var seen wavInfo
	var args []string
	e, dir := newTestEncoder(t, fakeFFmpeg(t, &seen, &args))

	path, err := e.Encode(context.Background(), pcmSamples(0, 1000, -1000, 32767), "m-greet")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "carevo-m-greet-20260301093005.ogg"), path)

	require.Equal(t, SampleRate, seen.sampleRate)
	require.Equal(t, Channels, seen.channels)
	require.Equal(t, []int{0, 1000, -1000, 32767}, seen.samples)
	require.Equal(t, []string{"-c:a", "libopus", "-b:a", "64k"}, args[3:7])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "intermediate wav must be removed")
	require.Equal(t, "carevo-m-greet-20260301093005.ogg", entries[0].Name())
}

func TestEncode_FFmpegFailure(t *testing.T) {
	e, dir := newTestEncoder(t, func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Unknown encoder 'libopus'"), errors.New("exit status 1")
	})

	_, err := e.Encode(context.Background(), pcmSamples(1, 2), "m-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "libopus")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestEncode_NoOutputFile(t *testing.T) {
	e, _ := newTestEncoder(t, func(context.Context, string, ...string) ([]byte, error) {
		return nil, nil
	})
	_, err := e.Encode(context.Background(), pcmSamples(1), "m-1")
	require.ErrorContains(t, err, "no output")
}

func TestEncode_OddPCM(t *testing.T) {
	e, _ := newTestEncoder(t, nil)
	_, err := e.Encode(context.Background(), []byte{1, 2, 3}, "m-1")
	require.ErrorContains(t, err, "16-bit")
}

func TestEncode_UsesConfiguredFFmpeg(t *testing.T) {
	var name string
	e, err := NewEncoder(t.TempDir(), WithFFmpeg("/opt/bin/ffmpeg"))
	require.NoError(t, err)
	e.run = func(_ context.Context, n string, a ...string) ([]byte, error) {
		name = n
		return nil, os.WriteFile(a[len(a)-1], []byte("OggS"), 0o644)
	}

	_, err = e.Encode(context.Background(), pcmSamples(1, 2), "m-1")
	require.NoError(t, err)
	require.Equal(t, "/opt/bin/ffmpeg", name)
}

func TestWithFFmpeg_BlankKeepsDefault(t *testing.T) {
	e, err := NewEncoder(t.TempDir(), WithFFmpeg("  "))
	require.NoError(t, err)
	require.Equal(t, "ffmpeg", e.ffmpeg)
}

func TestNewEncoder_EmptyDir(t *testing.T) {
	_, err := NewEncoder(" ")
	require.ErrorContains(t, err, "must not be empty")
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 12, 31, 23, 59, 58, 0, time.UTC)
	require.Equal(t, "carevo-abc-20261231235958.ogg", fileName("abc", "ogg", ts))
}
