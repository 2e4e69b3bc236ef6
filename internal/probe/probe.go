package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/516hackers/osint516/internal/httpx"
	"github.com/516hackers/osint516/internal/platform"
)

// Outcome is the result of a single probe. It is never mutated after Probe
// returns it.
type Outcome struct {
	Platform   string
	URL        string
	Exists     bool
	StatusCode int           // 0 when no response was received
	Elapsed    time.Duration // 0 when no response was received
	Skipped    bool          // username rejected by the platform's regex_check
	Err        *Error
}

type Config struct {
	Timeout   time.Duration
	UserAgent string
}

type Prober struct {
	client httpx.Doer
	cfg    Config
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewProber(client httpx.Doer, cfg Config, log logrus.FieldLogger) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpx.DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = httpx.DefaultUserAgent
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Prober{client: client, cfg: cfg, log: log, now: time.Now}
}

// Probe checks whether username exists on p. It always returns an Outcome;
// transport failures are reported through Outcome.Err with Exists=false.
func (pr *Prober) Probe(ctx context.Context, username string, p *platform.Platform) Outcome {
	out := Outcome{
		Platform: p.Name,
		URL:      p.ProfileURL(username),
	}

	ok, err := p.ValidUsername(username)
	if err != nil {
		out.Err = &Error{Kind: KindInvalidRequest, Err: err}
		return out
	}
	if !ok {
		out.Skipped = true
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, pr.cfg.Timeout)
	defer cancel()

	req, err := httpx.NewRequest(ctx, http.MethodGet, out.URL, nil, pr.cfg.UserAgent)
	if err != nil {
		out.Err = &Error{Kind: KindInvalidRequest, Err: err}
		return out
	}

	start := pr.now()
	resp, err := pr.client.Do(req)
	if err != nil {
		out.Err = classify(err)
		pr.log.WithFields(logrus.Fields{"platform": p.Name, "kind": out.Err.Kind}).Debug(err)
		return out
	}
	// Drain a little so keep-alive connections can be reused.
	_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
	_ = resp.Body.Close()

	out.Elapsed = pr.now().Sub(start)
	out.StatusCode = resp.StatusCode
	out.Exists = p.Exists(resp.StatusCode)

	if !out.Exists && inconclusive(resp.StatusCode) {
		out.Err = &Error{Kind: KindUnexpectedStatus, Err: fmt.Errorf("status %s", resp.Status)}
	}

	pr.log.WithFields(logrus.Fields{
		"platform": p.Name,
		"status":   resp.StatusCode,
		"elapsed":  out.Elapsed,
	}).Debug("probe settled")
	return out
}

// inconclusive statuses say nothing about the account itself.
func inconclusive(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
