package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(ClientConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.Timeout)
}

func TestNewClientWithTor(t *testing.T) {
	c, err := NewClient(ClientConfig{Timeout: time.Second, WithTor: true})
	require.NoError(t, err)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Nil(t, tr.Proxy)
	assert.NotNil(t, tr.DialContext)
}

func TestNewClientRejectsBadProxyURL(t *testing.T) {
	_, err := NewClient(ClientConfig{WithTor: true, TorProxyURL: "://nope"})
	assert.Error(t, err)
}

func TestNewRequestSetsUserAgent(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	req, err := NewRequest(context.Background(), http.MethodGet, ts.URL, nil, "agent/1")
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "agent/1", got)
}

func TestPickUserAgent(t *testing.T) {
	assert.Equal(t, DefaultUserAgent, PickUserAgent(nil))
	assert.Equal(t, "only", PickUserAgent([]string{"only"}))
	assert.Contains(t, []string{"a", "b"}, PickUserAgent([]string{"a", "b"}))
}

func TestGet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "/final", http.StatusFound)
		case "/final":
			w.Header().Set("X-Seen-Accept", r.Header.Get("Accept"))
			w.Header().Set("X-Seen-Agent", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("0123456789"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	page, err := Get(context.Background(), ts.Client(), ts.URL+"/start", "agent/2", http.Header{"Accept": {"text/plain"}}, 4)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "/final", page.URL.Path)
	assert.Equal(t, "0123", string(page.Body))
	assert.Equal(t, "text/plain", page.Header.Get("X-Seen-Accept"))
	assert.Equal(t, "agent/2", page.Header.Get("X-Seen-Agent"))

	page, err = Get(context.Background(), ts.Client(), ts.URL+"/missing", "", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Empty(t, page.Body)
}

func TestGetTransportError(t *testing.T) {
	_, err := Get(context.Background(), http.DefaultClient, "http://127.0.0.1:1/", "", nil, 1)
	assert.Error(t, err)

	_, err = Get(context.Background(), http.DefaultClient, "://bad", "", nil, 1)
	assert.Error(t, err)
}
