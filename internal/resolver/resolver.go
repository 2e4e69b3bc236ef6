// Package resolver sends plain DNS queries to a single upstream server.
package resolver

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

const (
	ResolvConf     = "/etc/resolv.conf"
	FallbackServer = "8.8.8.8:53"
	DefaultTimeout = 5 * time.Second
)

// ErrNoAnswer is returned when the server answered NXDOMAIN or an empty set.
var ErrNoAnswer = errors.New("no records")

type Resolver struct {
	server string
	client *dns.Client
}

// New queries server ("host" or "host:port"). An empty server means the
// first nameserver in /etc/resolv.conf, or FallbackServer.
func New(server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if server == "" {
		server = systemServer()
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(strings.Trim(server, "[]"), "53")
	}
	return &Resolver{
		server: server,
		client: &dns.Client{Timeout: timeout},
	}
}

func systemServer() string {
	cfg, err := dns.ClientConfigFromFile(ResolvConf)
	if err != nil || len(cfg.Servers) == 0 {
		return FallbackServer
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port)
}

func (r *Resolver) Server() string { return r.server }

// Query returns the answer section for name and qtype. Truncated UDP
// answers are retried over TCP.
func (r *Resolver) Query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err == nil && in.Truncated {
		tcp := *r.client
		tcp.Net = "tcp"
		in, _, err = tcp.ExchangeContext(ctx, msg, r.server)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", dns.TypeToString[qtype], name)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, errors.Wrapf(ErrNoAnswer, "%s %s: NXDOMAIN", dns.TypeToString[qtype], name)
	default:
		return nil, errors.Errorf("%s %s: %s", dns.TypeToString[qtype], name, dns.RcodeToString[in.Rcode])
	}

	var out []dns.RR
	for _, rr := range in.Answer {
		if rr.Header().Rrtype == qtype {
			out = append(out, rr)
		}
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(ErrNoAnswer, "%s %s", dns.TypeToString[qtype], name)
	}
	return out, nil
}

type MX struct {
	Preference uint16 `json:"preference"`
	Exchange   string `json:"exchange"`
}

func (r *Resolver) MX(ctx context.Context, domain string) ([]MX, error) {
	rrs, err := r.Query(ctx, domain, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	out := make([]MX, 0, len(rrs))
	for _, rr := range rrs {
		mx := rr.(*dns.MX)
		out = append(out, MX{Preference: mx.Preference, Exchange: mx.Mx})
	}
	return out, nil
}

// Strings renders each record's data without the header.
func Strings(rrs []dns.RR) []string {
	out := make([]string, 0, len(rrs))
	for _, rr := range rrs {
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		case *dns.MX:
			out = append(out, strconv.Itoa(int(v.Preference))+" "+v.Mx)
		case *dns.NS:
			out = append(out, v.Ns)
		case *dns.CNAME:
			out = append(out, v.Target)
		case *dns.TXT:
			out = append(out, `"`+strings.Join(v.Txt, "")+`"`)
		case *dns.PTR:
			out = append(out, v.Ptr)
		default:
			out = append(out, strings.TrimPrefix(rr.String(), rr.Header().String()))
		}
	}
	return out
}
