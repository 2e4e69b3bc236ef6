package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/516hackers/osint516/internal/logger"
	"github.com/516hackers/osint516/internal/platform"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func statusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestProbeStatusInterpretation(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		accept   []int
		exists   bool
		wantKind Kind
	}{
		{"200 exists", 200, nil, true, ""},
		{"404 not found", 404, nil, false, ""},
		{"999 plain platform", 999, nil, false, KindUnexpectedStatus},
		{"999 allow-listed", 999, []int{200, 999}, true, ""},
		{"429 inconclusive", 429, nil, false, KindUnexpectedStatus},
		{"503 inconclusive", 503, nil, false, KindUnexpectedStatus},
		{"403 not found", 403, nil, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := statusServer(t, tt.status)
			p := platform.New("site", ts.URL+"/{}", tt.accept...)
			pr := NewProber(ts.Client(), Config{Timeout: time.Second}, logger.Discard())

			out := pr.Probe(context.Background(), "octocat", p)

			assert.Equal(t, "site", out.Platform)
			assert.Equal(t, ts.URL+"/octocat", out.URL)
			assert.Equal(t, tt.exists, out.Exists)
			assert.Equal(t, tt.status, out.StatusCode)
			if tt.wantKind == "" {
				assert.Nil(t, out.Err)
			} else {
				require.NotNil(t, out.Err)
				assert.Equal(t, tt.wantKind, out.Err.Kind)
			}
		})
	}
}

func TestProbeSendsUserAgentAndEscapedPath(t *testing.T) {
	var gotUA, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.EscapedPath()
	}))
	defer ts.Close()

	pr := NewProber(ts.Client(), Config{UserAgent: "ua/1"}, logger.Discard())
	out := pr.Probe(context.Background(), "a b/c", platform.New("site", ts.URL+"/u/{}"))

	assert.True(t, out.Exists)
	assert.Equal(t, "ua/1", gotUA)
	assert.Equal(t, "/u/a%20b%2Fc", gotPath)
}

func TestProbeTimeoutIsEnforced(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	pr := NewProber(ts.Client(), Config{Timeout: 50 * time.Millisecond}, logger.Discard())

	start := time.Now()
	out := pr.Probe(context.Background(), "slow", platform.New("site", ts.URL+"/{}"))

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, out.Exists)
	require.NotNil(t, out.Err)
	assert.Equal(t, KindTimeout, out.Err.Kind)
	assert.NotEmpty(t, out.Err.Error())
}

func TestProbeTransportErrorsNeverEscape(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{
			name: "connection refused",
			err:  &url.Error{Op: "Get", URL: "x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}},
			kind: KindConnection,
		},
		{
			name: "dns failure",
			err:  &url.Error{Op: "Get", URL: "x", Err: &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}},
			kind: KindConnection,
		},
		{
			name: "deadline",
			err:  &url.Error{Op: "Get", URL: "x", Err: context.DeadlineExceeded},
			kind: KindTimeout,
		},
		{
			name: "broken framing",
			err:  &url.Error{Op: "Get", URL: "x", Err: errors.New(`malformed HTTP response "garbage"`)},
			kind: KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := doerFunc(func(*http.Request) (*http.Response, error) { return nil, tt.err })
			pr := NewProber(client, Config{}, logger.Discard())

			out := pr.Probe(context.Background(), "someone", platform.New("twitter", "https://twitter.com/{}"))

			assert.False(t, out.Exists)
			require.NotNil(t, out.Err)
			assert.Equal(t, tt.kind, out.Err.Kind)
			assert.True(t, IsKind(out.Err, tt.kind))
			assert.ErrorIs(t, out.Err, tt.err)
			assert.Zero(t, out.StatusCode)
		})
	}
}

func TestProbeRegexCheckSkipsRequest(t *testing.T) {
	called := false
	client := doerFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("unreachable")
	})
	p := &platform.Platform{Name: "strict", URLTemplate: "https://strict.example/{}", RegexCheck: "^[a-z]+$"}

	out := NewProber(client, Config{}, logger.Discard()).Probe(context.Background(), "Not_Valid", p)

	assert.False(t, called)
	assert.True(t, out.Skipped)
	assert.False(t, out.Exists)
	assert.Nil(t, out.Err)
}

func TestProbeInvalidTemplate(t *testing.T) {
	client := doerFunc(func(*http.Request) (*http.Response, error) { return nil, errors.New("unreachable") })
	p := platform.New("broken", "http://[::1/{}")

	out := NewProber(client, Config{}, logger.Discard()).Probe(context.Background(), "x", p)

	require.NotNil(t, out.Err)
	assert.Equal(t, KindInvalidRequest, out.Err.Kind)
}
