package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const remoteRoster = `platforms:
  - name: github
    url: https://github.com/{}
    username_claimed: octocat
    username_unclaimed: noonewouldeverusethis7
  - name: gitlab
    url: https://gitlab.com/{}
`

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/roster.yml":
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(remoteRoster))
		case "/broken.yml":
			_, _ = w.Write([]byte("platforms:\n  - name: x\n    url: https://x.com/\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "platforms.yml")
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o600))

	r, err := Download(context.Background(), srv.Client(), srv.URL+"/roster.yml", "test-agent", dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"github", "gitlab"}, r.Names())
	assert.Equal(t, "octocat", r[0].Claimed)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, remoteRoster, string(got))

	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o600))
	for _, path := range []string{"/broken.yml", "/missing.yml"} {
		_, err := Download(context.Background(), srv.Client(), srv.URL+path, "", dest)
		assert.Error(t, err, path)

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "previous", string(got), path)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp*"))
	assert.Empty(t, leftovers)
}
