package httpx

import (
	"context"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/proxy"
)

const (
	DefaultUserAgent   = "516-Hackers-OSINT-Toolkit/1.0"
	DefaultTorProxyURL = "socks5://127.0.0.1:9050"
	DefaultTimeout     = 10 * time.Second
)

// Doer lets us accept *http.Client or a test double.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	Timeout     time.Duration
	WithTor     bool
	TorProxyURL string
}

// NewClient builds the shared client every tool talks through. With WithTor
// all connections are dialed through the SOCKS5 proxy and environment
// proxies are ignored.
func NewClient(cfg ClientConfig) (*http.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TorProxyURL == "" {
		cfg.TorProxyURL = DefaultTorProxyURL
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
	}

	if cfg.WithTor {
		dial, err := torDialer(cfg.TorProxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dial
	}

	return &http.Client{Timeout: cfg.Timeout, Transport: transport}, nil
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func torDialer(rawURL string) (dialFunc, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse tor proxy url")
	}
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, errors.Wrapf(err, "tor dialer for %s", u.Redacted())
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}

// NewRequest is http.NewRequestWithContext plus the User-Agent header.
func NewRequest(ctx context.Context, method, rawURL string, body io.Reader, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req, nil
}

// Page is a GET response whose body has already been read and closed.
type Page struct {
	StatusCode int
	Status     string
	Header     http.Header
	// URL is the final URL after redirects.
	URL  *url.URL
	Body []byte
}

// Get fetches rawURL and reads at most limit bytes of the body; a limit of
// zero or less skips the body. Transport errors are returned unwrapped so
// callers can classify them.
func Get(ctx context.Context, client Doer, rawURL, userAgent string, header http.Header, limit int64) (*Page, error) {
	req, err := NewRequest(ctx, http.MethodGet, rawURL, nil, userAgent)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	page := &Page{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		URL:        req.URL,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		page.URL = resp.Request.URL
	}
	if limit > 0 {
		page.Body, err = io.ReadAll(io.LimitReader(resp.Body, limit))
		if err != nil {
			return page, errors.Wrapf(err, "read %s", rawURL)
		}
	}
	return page, nil
}

// PickUserAgent returns a random entry of agents, or DefaultUserAgent when
// the pool is empty.
func PickUserAgent(agents []string) string {
	if len(agents) == 0 {
		return DefaultUserAgent
	}
	return agents[rand.IntN(len(agents))]
}
