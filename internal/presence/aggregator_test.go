package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/516hackers/osint516/internal/logger"
	"github.com/516hackers/osint516/internal/platform"
	"github.com/516hackers/osint516/internal/probe"
)

// hostDoer answers by host name; hosts mapped to -1 refuse the connection.
type hostDoer map[string]int

func (d hostDoer) Do(req *http.Request) (*http.Response, error) {
	status, ok := d[req.URL.Hostname()]
	if !ok {
		status = http.StatusNotFound
	}
	if status < 0 {
		return nil, &url.Error{Op: "Get", URL: req.URL.String(),
			Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}, nil
}

var fixedNow = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func newAggregator(doer hostDoer, roster platform.Roster, concurrency int) *Aggregator {
	pr := probe.NewProber(doer, probe.Config{Timeout: time.Second}, logger.Discard())
	return NewAggregator(pr, roster, Config{Concurrency: concurrency, Now: func() time.Time { return fixedNow }}, logger.Discard())
}

func TestMapPresenceMockedScenario(t *testing.T) {
	doer := hostDoer{"github.com": 200, "twitter.com": -1}

	for _, concurrency := range []int{1, 3, 16} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			report := newAggregator(doer, platform.SocialMapRoster(), concurrency).MapPresence(context.Background(), "octocat")

			assert.Equal(t, "octocat", report.Username)
			assert.Equal(t, fixedNow, report.GeneratedAt)
			require.Len(t, report.Platforms, 6)
			assert.Equal(t, Summary{Checked: 6, Found: 1, DiscoveryRate: 16.67}, report.Summary)

			gh, ok := report.Platforms.Get("github")
			require.True(t, ok)
			assert.True(t, gh.Exists)
			assert.Equal(t, "https://github.com/octocat", gh.URL)
			assert.NotNil(t, gh.ResponseTime)

			tw, ok := report.Platforms.Get("twitter")
			require.True(t, ok)
			assert.False(t, tw.Exists)
			assert.NotEmpty(t, tw.Error)
			assert.Equal(t, probe.KindConnection, tw.ErrorKind)
			assert.Nil(t, tw.ResponseTime)

			for _, name := range []string{"instagram", "linkedin", "reddit", "youtube"} {
				e, ok := report.Platforms.Get(name)
				require.True(t, ok, name)
				assert.False(t, e.Exists, name)
				assert.Empty(t, e.Error, name)
				assert.Equal(t, 404, e.StatusCode, name)
			}
		})
	}
}

func TestMapPresenceKeepsRosterOrder(t *testing.T) {
	roster := platform.SocialMapRoster()
	report := newAggregator(hostDoer{}, roster, 6).MapPresence(context.Background(), "someone")

	names := make([]string, 0, len(report.Platforms))
	for _, e := range report.Platforms {
		names = append(names, e.Platform)
	}
	assert.Equal(t, roster.Names(), names)
}

func TestMapPresenceEmptyRoster(t *testing.T) {
	report := newAggregator(hostDoer{}, platform.Roster{}, 4).MapPresence(context.Background(), "nobody")

	assert.Empty(t, report.Platforms)
	assert.Equal(t, Summary{}, report.Summary)
}

func TestMapPresenceLinkedInAnomalousStatus(t *testing.T) {
	doer := hostDoer{"linkedin.com": 999, "reddit.com": 999}
	report := newAggregator(doer, platform.SocialMapRoster(), 2).MapPresence(context.Background(), "x")

	li, _ := report.Platforms.Get("linkedin")
	rd, _ := report.Platforms.Get("reddit")
	assert.True(t, li.Exists)
	assert.False(t, rd.Exists)
	assert.Equal(t, probe.KindUnexpectedStatus, rd.ErrorKind)
	assert.Equal(t, 1, report.Summary.Found)
}

// Structural invariants hold whatever the per-platform answers are.
func TestMapPresenceInvariants(t *testing.T) {
	statuses := []int{200, 404, -1, 999, 500, 301}
	roster := platform.SocialMapRoster()

	for shift := range statuses {
		doer := hostDoer{}
		for i, p := range roster {
			u, err := url.Parse(p.ProfileURL("u"))
			require.NoError(t, err)
			doer[u.Hostname()] = statuses[(i+shift)%len(statuses)]
		}

		report := newAggregator(doer, roster, 3).MapPresence(context.Background(), "u")

		require.Len(t, report.Platforms, len(roster))
		found := 0
		for _, e := range report.Platforms {
			if e.Exists {
				found++
			}
			if e.ErrorKind != "" {
				assert.False(t, e.Exists)
				assert.NotEmpty(t, e.Error)
			}
		}
		assert.Equal(t, found, report.Summary.Found)
		assert.GreaterOrEqual(t, report.Summary.DiscoveryRate, 0.0)
		assert.LessOrEqual(t, report.Summary.DiscoveryRate, 100.0)
	}
}

type countingProber struct {
	inFlight, peak atomic.Int32
	mu             sync.Mutex
	seen           []string
}

func (c *countingProber) Probe(ctx context.Context, username string, p *platform.Platform) probe.Outcome {
	n := c.inFlight.Add(1)
	for {
		old := c.peak.Load()
		if n <= old || c.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	c.inFlight.Add(-1)

	c.mu.Lock()
	c.seen = append(c.seen, p.Name)
	c.mu.Unlock()
	return probe.Outcome{Platform: p.Name, URL: p.ProfileURL(username)}
}

func TestStreamBoundsConcurrencyAndCallsBack(t *testing.T) {
	cp := &countingProber{}
	agg := NewAggregator(cp, platform.SocialMapRoster(), Config{Concurrency: 2}, logger.Discard())

	var streamed []string
	report := agg.Stream(context.Background(), "u", func(o probe.Outcome) {
		streamed = append(streamed, o.Platform)
	})

	assert.LessOrEqual(t, cp.peak.Load(), int32(2))
	assert.ElementsMatch(t, platform.SocialMapRoster().Names(), streamed)
	assert.Len(t, report.Platforms, 6)
}

func TestMapPresenceCancelledContextStillCompletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr := probe.NewProber(http.DefaultClient, probe.Config{Timeout: time.Second}, logger.Discard())
	roster, err := platform.NewRoster(
		platform.New("a", "http://127.0.0.1:1/{}"),
		platform.New("b", "http://127.0.0.1:1/b/{}"),
	)
	require.NoError(t, err)

	report := NewAggregator(pr, roster, Config{Concurrency: 1}, logger.Discard()).MapPresence(ctx, "u")

	require.Len(t, report.Platforms, 2)
	for _, e := range report.Platforms {
		assert.False(t, e.Exists)
		assert.NotEmpty(t, e.Error)
	}
}

func TestReportJSONShape(t *testing.T) {
	report := newAggregator(hostDoer{"github.com": 200}, platform.SocialMapRoster(), 1).MapPresence(context.Background(), "octocat")

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, `"username":"octocat"`)
	assert.Contains(t, s, `"timestamp":"2024-05-01T10:30:00Z"`)
	assert.Contains(t, s, `"summary":{"total_platforms_checked":6,"platforms_found":1,"discovery_rate":16.67}`)
	assert.Less(t, strings.Index(s, `"github"`), strings.Index(s, `"youtube"`))

	var back Report
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, report, back)
}
