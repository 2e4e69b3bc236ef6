// Package domain gathers WHOIS, DNS, HTTP and IP facts about a domain.
package domain

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/516hackers/osint516/internal/httpx"
	"github.com/516hackers/osint516/internal/resolver"
)

const Tool = "516 Hackers Domain Research"

// RecordTypes are queried in this order.
var RecordTypes = []uint16{dns.TypeA, dns.TypeAAAA, dns.TypeMX, dns.TypeNS, dns.TypeTXT, dns.TypeCNAME}

var SecurityHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Frame-Options",
	"X-Content-Type-Options",
	"X-XSS-Protection",
}

const notPresent = "Not Present"

type WhoisFetcher interface {
	Whois(domain string, servers ...string) (string, error)
}

type Querier interface {
	Query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error)
}

// HostResolver is satisfied by *net.Resolver.
type HostResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

type HTTPInfo struct {
	StatusCode      int               `json:"status_code,omitempty"`
	FinalURL        string            `json:"final_url,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	Server          string            `json:"server,omitempty"`
	ContentType     string            `json:"content_type,omitempty"`
	SecurityHeaders map[string]string `json:"security_headers,omitempty"`
	Error           string            `json:"error,omitempty"`
}

type ReverseDNS struct {
	Hostname    string   `json:"hostname"`
	Aliases     []string `json:"aliases"`
	IPAddresses []string `json:"ip_addresses"`
}

type IPInfo struct {
	IPAddress  string    `json:"ip_address,omitempty"`
	Hostname   string    `json:"hostname,omitempty"`
	ResolvedAt time.Time `json:"resolved_at,omitzero"`
	// ReverseDNS is a *ReverseDNS or the string "Not available".
	ReverseDNS any    `json:"reverse_dns,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Result struct {
	Domain       string         `json:"domain"`
	AnalysisDate time.Time      `json:"analysis_date"`
	Whois        map[string]any `json:"whois_info"`
	DNS          map[string]any `json:"dns_info"`
	HTTP         HTTPInfo       `json:"http_headers"`
	IP           IPInfo         `json:"ip_info"`
}

type Config struct {
	UserAgent string
	Now       func() time.Time
}

type Researcher struct {
	whois WhoisFetcher
	dns   Querier
	http  httpx.Doer
	hosts HostResolver
	cfg   Config
	log   logrus.FieldLogger
}

// NewWhoisClient is the default fetcher.
func NewWhoisClient(timeout time.Duration) *whois.Client {
	return whois.NewClient().SetTimeout(timeout)
}

func NewResearcher(w WhoisFetcher, q Querier, client httpx.Doer, hosts HostResolver, cfg Config, log logrus.FieldLogger) *Researcher {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = httpx.DefaultUserAgent
	}
	if hosts == nil {
		hosts = net.DefaultResolver
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Researcher{whois: w, dns: q, http: client, hosts: hosts, cfg: cfg, log: log}
}

// Normalize strips a scheme, path, port and trailing dot from user input.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		s = h
	}
	return strings.TrimSuffix(s, ".")
}

// Research runs the four lookups concurrently. Each section records its
// own failure; Research itself never fails.
func (r *Researcher) Research(ctx context.Context, domain string) Result {
	res := Result{Domain: domain, AnalysisDate: r.cfg.Now()}

	var g errgroup.Group
	g.Go(func() error { res.Whois = r.Whois(domain); return nil })
	g.Go(func() error { res.DNS = r.DNS(ctx, domain); return nil })
	g.Go(func() error { res.HTTP = r.HTTPHeaders(ctx, domain); return nil })
	g.Go(func() error { res.IP = r.IPInfo(ctx, domain); return nil })
	_ = g.Wait()

	r.log.WithField("domain", domain).Info("domain research complete")
	return res
}

// Whois returns the parsed record as a flat map. When parsing fails the
// raw text is kept next to the error.
func (r *Researcher) Whois(domain string) map[string]any {
	if r.whois == nil {
		return map[string]any{"error": "whois disabled"}
	}
	raw, err := r.whois.Whois(domain)
	if err != nil {
		r.log.WithError(err).WithField("domain", domain).Error("whois lookup failed")
		return map[string]any{"error": err.Error()}
	}
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return map[string]any{"error": err.Error(), "raw": raw}
	}
	return FlattenWhois(info)
}

func FlattenWhois(info whoisparser.WhoisInfo) map[string]any {
	out := map[string]any{}
	set := func(k string, v any) {
		switch x := v.(type) {
		case string:
			if x == "" {
				return
			}
		case []string:
			if len(x) == 0 {
				return
			}
		}
		out[k] = v
	}

	if d := info.Domain; d != nil {
		set("domain_name", d.Domain)
		set("whois_server", d.WhoisServer)
		set("status", d.Status)
		set("name_servers", d.NameServers)
		set("creation_date", d.CreatedDate)
		set("updated_date", d.UpdatedDate)
		set("expiration_date", d.ExpirationDate)
		out["dnssec"] = d.DNSSec
	}
	if c := info.Registrar; c != nil {
		set("registrar", c.Name)
		set("registrar_url", c.ReferralURL)
	}
	if c := info.Registrant; c != nil {
		set("org", c.Organization)
		set("name", c.Name)
		set("country", c.Country)
		set("state", c.Province)
		set("city", c.City)
	}

	var emails []string
	for _, c := range []*whoisparser.Contact{info.Registrar, info.Registrant, info.Administrative, info.Technical, info.Billing} {
		if c != nil && c.Email != "" {
			emails = append(emails, strings.ToLower(c.Email))
		}
	}
	set("emails", dedupe(emails))
	return out
}

// DNS maps each record type to its values or to "Error: <reason>".
func (r *Researcher) DNS(ctx context.Context, domain string) map[string]any {
	out := make(map[string]any, len(RecordTypes))
	for _, t := range RecordTypes {
		name := dns.TypeToString[t]
		rrs, err := r.dns.Query(ctx, domain, t)
		if err != nil {
			out[name] = "Error: " + err.Error()
			continue
		}
		out[name] = resolver.Strings(rrs)
	}
	return out
}

func (r *Researcher) HTTPHeaders(ctx context.Context, domain string) HTTPInfo {
	page, err := httpx.Get(ctx, r.http, "http://"+domain, r.cfg.UserAgent, nil, 0)
	if err != nil {
		return HTTPInfo{Error: err.Error()}
	}

	info := HTTPInfo{
		StatusCode:      page.StatusCode,
		FinalURL:        page.URL.String(),
		Headers:         make(map[string]string, len(page.Header)),
		Server:          headerOr(page.Header, "Server", "Unknown"),
		ContentType:     headerOr(page.Header, "Content-Type", "Unknown"),
		SecurityHeaders: make(map[string]string, len(SecurityHeaders)),
	}
	for k, v := range page.Header {
		info.Headers[k] = strings.Join(v, ", ")
	}
	for _, h := range SecurityHeaders {
		info.SecurityHeaders[h] = headerOr(page.Header, h, notPresent)
	}
	return info
}

func headerOr(h http.Header, key, fallback string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return fallback
}

func (r *Researcher) IPInfo(ctx context.Context, domain string) IPInfo {
	addrs, err := r.hosts.LookupIPAddr(ctx, domain)
	if err != nil {
		return IPInfo{Error: err.Error()}
	}
	ip := pickIPv4(addrs)
	if ip == "" {
		return IPInfo{Error: "no addresses for " + domain}
	}

	info := IPInfo{IPAddress: ip, Hostname: domain, ResolvedAt: r.cfg.Now(), ReverseDNS: "Not available"}
	names, err := r.hosts.LookupAddr(ctx, ip)
	if err == nil && len(names) > 0 {
		info.ReverseDNS = &ReverseDNS{
			Hostname:    names[0],
			Aliases:     append([]string{}, names[1:]...),
			IPAddresses: []string{ip},
		}
	}
	return info
}

// pickIPv4 prefers the first IPv4 address, then any address.
func pickIPv4(addrs []net.IPAddr) string {
	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a.IP.String()
		}
	}
	if len(addrs) > 0 {
		return addrs[0].IP.String()
	}
	return ""
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
