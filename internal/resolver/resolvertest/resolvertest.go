// Package resolvertest runs an in-process DNS server for tests.
package resolvertest

import (
	"net"
	"strings"
	"testing"

	"github.com/miekg/dns"
)

// Start serves the given records (zone file syntax, one RR per entry) over
// UDP on a loopback port and returns its address. Names with no matching
// record answer NXDOMAIN; names listed in servfail answer SERVFAIL.
func Start(t testing.TB, records []string, servfail ...string) string {
	t.Helper()

	var rrs []dns.RR
	for _, s := range records {
		rr, err := dns.NewRR(s)
		if err != nil {
			t.Fatalf("resolvertest: bad record %q: %v", s, err)
		}
		rrs = append(rrs, rr)
	}
	failing := map[string]bool{}
	for _, n := range servfail {
		failing[dns.Fqdn(strings.ToLower(n))] = true
	}

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		name := strings.ToLower(q.Name)

		if failing[name] {
			m.Rcode = dns.RcodeServerFailure
			_ = w.WriteMsg(m)
			return
		}

		known := false
		for _, rr := range rrs {
			h := rr.Header()
			if strings.ToLower(h.Name) != name {
				continue
			}
			known = true
			if h.Rrtype == q.Qtype {
				m.Answer = append(m.Answer, rr)
			}
		}
		if !known {
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("resolvertest: listen: %v", err)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           handler,
		NotifyStartedFunc: func() { close(started) },
	}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}
