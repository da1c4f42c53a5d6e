package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeGetter is a minimal TokenGetter stub for use within this package.
type fakeGetter struct {
	val   string
	err   error
	calls int
	names []string
}

func (f *fakeGetter) GetToken(_ context.Context, name string) (string, error) {
	f.calls++
	f.names = append(f.names, name)
	return f.val, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server, g *fakeGetter) *Client {
	t.Helper()
	c, err := NewClient(g, "/carevo/", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	return c
}

func audioResponse(pcm []byte) string {
	return `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":"` +
		base64.StdEncoding.EncodeToString(pcm) + `"}}]}}]}`
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func TestGenerateURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://generativelanguage.googleapis.com/v1beta", "https://generativelanguage.googleapis.com/v1beta/models/m:generateContent"},
		{"http://localhost:8080/", "http://localhost:8080/models/m:generateContent"},
		{"", "https://generativelanguage.googleapis.com/v1beta/models/m:generateContent"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, generateURL(tc.base, "m"), "base=%q", tc.base)
	}
}

func TestNarration(t *testing.T) {
	require.Equal(t, "Say this in french 'Bonjour'", narration("Bonjour", "french"))
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_NilGetter(t *testing.T) {
	_, err := NewClient(nil, "/carevo")
	require.ErrorContains(t, err, "nil")
}

func TestNewClient_EmptyPrefix(t *testing.T) {
	_, err := NewClient(&fakeGetter{}, " / ")
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(&fakeGetter{}, "/carevo")
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, c.baseURL)
	require.Equal(t, defaultVoice, c.voice)
	require.Equal(t, "/carevo/gemini-token", c.tokenParameterName())
}

// ---------------------------------------------------------------------------
// Synthesize
// ---------------------------------------------------------------------------

func TestSynthesize_HappyPath(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f}
	var gotBody generateRequest
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Goog-Api-Key")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = io.WriteString(w, audioResponse(pcm))
	}))
	defer srv.Close()

	g := &fakeGetter{val: "g-key"}
	c := newTestClient(t, srv, g)

	out, err := c.Synthesize(context.Background(), "Welcome", "swahili")
	require.NoError(t, err)
	require.Equal(t, pcm, out)
	require.Equal(t, "g-key", gotKey)
	require.Equal(t, "/models/gemini-2.5-flash-preview-tts:generateContent", gotPath)
	require.Equal(t, "Say this in swahili 'Welcome'", gotBody.Contents[0].Parts[0].Text)
	require.Equal(t, []string{"AUDIO"}, gotBody.GenerationConfig.ResponseModalities)
	require.Equal(t, "Kore", gotBody.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	require.Equal(t, []string{"/carevo/gemini-token"}, g.names)
}

func TestSynthesize_ConfiguredVoice(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = io.WriteString(w, audioResponse([]byte{1, 0}))
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{val: "g-key"}, "/carevo", WithBaseURL(srv.URL), WithVoice("Puck"))
	require.NoError(t, err)

	_, err = c.Synthesize(context.Background(), "Habari", "swahili")
	require.NoError(t, err)
	require.Equal(t, "Puck", gotBody.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestSynthesize_KeyFetchedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, audioResponse([]byte{1, 0}))
	}))
	defer srv.Close()

	g := &fakeGetter{val: "g-key"}
	c := newTestClient(t, srv, g)
	for i := 0; i < 3; i++ {
		_, err := c.Synthesize(context.Background(), "hi", "english")
		require.NoError(t, err)
	}
	require.Equal(t, 1, g.calls, "SSM must only be called once per process lifetime")
}

func TestSynthesize_KeyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, &fakeGetter{err: errors.New("ssm unavailable")})
	_, err := c.Synthesize(context.Background(), "hi", "english")
	require.ErrorContains(t, err, "ssm unavailable")
}

func TestSynthesize_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, &fakeGetter{val: "k"})
	_, err := c.Synthesize(context.Background(), "hi", "english")

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
	require.Contains(t, statusErr.Body, "RESOURCE_EXHAUSTED")
}

func TestSynthesize_MalformedResponses(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "not json", body: `nope`, want: "decode response"},
		{name: "no candidates", body: `{"candidates":[]}`, want: "no candidates"},
		{name: "text only", body: `{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`, want: "no audio"},
		{name: "bad base64", body: `{"candidates":[{"content":{"parts":[{"inlineData":{"data":"***"}}]}}]}`, want: "decode audio"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv, &fakeGetter{val: "k"})
			_, err := c.Synthesize(context.Background(), "hi", "english")
			require.ErrorContains(t, err, tc.want)
		})
	}
}
