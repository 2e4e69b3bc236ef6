package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Tags  map[string]int `json:"tags"`
}

func fixedSink(dir string) *Sink {
	s := New(dir, "Test Tool")
	s.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := sample{Name: "octocat", Count: 3, Tags: map[string]int{"a": 1}}

	path, err := fixedSink(dir).Persist("social_map", "octocat", in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "social_map_octocat_20240102_030405.json"), path)

	var out sample
	env, err := Load(path, &out)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "Test Tool", env.Tool)
	assert.Equal(t, "2024-01-02T03:04:05Z", env.Timestamp)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not survive")
}

func TestPersistEnvelopeKeys(t *testing.T) {
	path, err := fixedSink(t.TempDir()).Persist("x", "y", map[string]int{"k": 1})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.ElementsMatch(t, []string{"results", "tool", "timestamp"}, keys(doc))
}

func TestPersistCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "outputs")
	_, err := fixedSink(dir).Persist("a", "b", 1)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestPersistUnwritableDirectory(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := fixedSink(filepath.Join(blocker, "outputs")).Persist("a", "b", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputDir))
}

func TestPersistEncodeFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	_, err := fixedSink(dir).Persist("a", "b", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrOutputDir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteJSONWithoutEnvelope(t *testing.T) {
	dir := t.TempDir()
	path, err := fixedSink(dir).WriteJSON("user_profiles.json", map[string]string{"github": "Found"})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"github":"Found"}`, string(raw))
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"octocat":          "octocat",
		"a/b":              "a_b",
		"../../etc/passwd": "etc_passwd",
		"  ":               "unnamed",
		"john.doe@x.com":   "john.doe@x.com",
		"äöü":              "unnamed",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeName(in), in)
	}
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteFromStreams(t *testing.T) {
	dir := t.TempDir()
	path, err := fixedSink(dir).WriteFrom("001.jpg", strings.NewReader("pixels"))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(raw))
}

func TestWriteFromSourceErrorIsNotOutputDir(t *testing.T) {
	dir := t.TempDir()
	_, err := fixedSink(dir).WriteFrom("001.jpg", failingReader{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrOutputDir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
