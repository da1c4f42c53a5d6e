package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carevo-bot/internal/repository"
	"carevo-bot/internal/session"
)

const testCatalog = `{
  "languages": ["english", "french"],
  "messages": [
    {"id": "m-greet", "type": "onboard", "query": "onboard:greet", "response": "Hi.", "audio": {}, "actions": {"options": ["english", "french"]}},
    {"id": "m-invalid", "type": "support", "query": "invalid_input", "response": "Sorry.", "audio": {}, "actions": {"options": []}}
  ]
}`

const brokenCatalog = `{
  "languages": ["english", "english"],
  "messages": [
    {"id": "m-1", "type": "onboard", "query": "onboard:greet", "response": "", "audio": {}, "actions": {"options": []}},
    {"id": "m-1", "type": "support", "query": "invalid_input", "response": "ok", "audio": {"french": {"location": "", "mediaId": "x"}}, "actions": {"options": []}}
  ]
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedSessions(t *testing.T, path string, phones ...string) {
	t.Helper()
	rec, err := repository.NewFileRecord(path)
	require.NoError(t, err)
	store, err := session.New(rec, session.WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	require.NoError(t, store.Load(context.Background()))
	for _, p := range phones {
		_, err := store.Create(context.Background(), p)
		require.NoError(t, err)
	}
}

func TestSessionsList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	out, err := run(t, "--sessions", path, "sessions", "list")
	require.NoError(t, err)
	require.Contains(t, out, "No sessions.")

	seedSessions(t, path, "15550001111", "15550002222")
	out, err = run(t, "--sessions", path, "sessions", "list")
	require.NoError(t, err)
	require.Contains(t, out, "15550001111")
	require.Contains(t, out, "15550002222")
	require.Contains(t, out, "2026-03-01T09:00:00Z")
	require.Contains(t, out, "2 session(s)")
}

func TestSessionsDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	seedSessions(t, path, "15550001111", "15550002222")

	out, err := run(t, "--sessions", path, "sessions", "delete", "15550001111")
	require.NoError(t, err)
	require.Contains(t, out, "Deleted 1 session(s)")

	out, err = run(t, "--sessions", path, "sessions", "list")
	require.NoError(t, err)
	require.NotContains(t, out, "15550001111")
	require.Contains(t, out, "1 session(s)")

	_, err = run(t, "--sessions", path, "sessions", "delete", "15550001111")
	require.ErrorContains(t, err, "no session matches")

	_, err = run(t, "--sessions", path, "sessions", "delete")
	require.Error(t, err)
}

func TestCatalogValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "messages.json")
	require.NoError(t, os.WriteFile(good, []byte(testCatalog), 0o644))

	out, err := run(t, "--messages", good, "catalog", "validate")
	require.NoError(t, err)
	require.Contains(t, out, "OK: 2 messages, 2 languages")

	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte(brokenCatalog), 0o644))
	out, err = run(t, "--messages", bad, "catalog", "validate")
	require.ErrorContains(t, err, "problem(s)")
	require.Contains(t, out, `duplicate language "english"`)
	require.Contains(t, out, "response must not be empty")
	require.Contains(t, out, "id is not unique")
	require.Contains(t, out, "media id but no location")

	_, err = run(t, "--messages", filepath.Join(dir, "missing.json"), "catalog", "validate")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCatalogLanguages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	out, err := run(t, "--messages", path, "catalog", "languages")
	require.NoError(t, err)
	require.Equal(t, "1. english\n2. french\n", out)
}

func TestUnknownBackend(t *testing.T) {
	_, err := run(t, "--backend", "redis", "sessions", "list")
	require.ErrorContains(t, err, "unknown record backend")
}
