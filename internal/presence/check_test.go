package presence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/516hackers/osint516/internal/logger"
	"github.com/516hackers/osint516/internal/platform"
	"github.com/516hackers/osint516/internal/probe"
)

// pathDoer answers 200 for the listed paths and 404 otherwise.
type pathDoer map[string]bool

func (d pathDoer) Do(req *http.Request) (*http.Response, error) {
	status := http.StatusNotFound
	if d[req.URL.Host+req.URL.Path] {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprint(status),
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}, nil
}

func TestCheck(t *testing.T) {
	roster, err := platform.NewRoster(
		platform.New("good", "https://good.example/{}").Known("alice", "nobody"),
		platform.New("always", "https://always.example/{}").Known("alice", "nobody"),
		platform.New("never", "https://never.example/{}").Known("alice", "nobody"),
		platform.New("unknown", "https://unknown.example/{}"),
	)
	require.NoError(t, err)

	doer := pathDoer{
		"good.example/alice":    true,
		"always.example/alice":  true,
		"always.example/nobody": true,
	}
	pr := probe.NewProber(doer, probe.Config{Timeout: time.Second}, logger.Discard())
	agg := NewAggregator(pr, roster, Config{Concurrency: 3}, logger.Discard())

	got := map[string]CheckFailure{}
	n := agg.Check(context.Background(), func(f CheckFailure) {
		got[f.Platform] = f
	})

	assert.Equal(t, 3, n)
	assert.NotContains(t, got, "good")
	assert.True(t, got["always"].Unclaimed.Exists)
	assert.False(t, got["never"].Claimed.Exists)
	assert.ErrorIs(t, got["unknown"].Err, errNoKnownUsernames)
}

func TestCheckEmptyRoster(t *testing.T) {
	agg := NewAggregator(nil, platform.Roster{}, Config{}, logger.Discard())
	assert.Zero(t, agg.Check(context.Background(), nil))
}
