package app

import (
	"context"

	"github.com/516hackers/osint516/internal/domain"
	"github.com/516hackers/osint516/internal/resolver"
)

func runDomain(ctx context.Context, env *Env, args []string) error {
	name := domain.Normalize(args[0])
	if name == "" {
		return usageErr("empty domain")
	}

	r := domain.NewResearcher(
		env.Whois,
		resolver.New(env.Cfg.DNSServer, env.Cfg.Timeout()),
		env.HTTP,
		env.Hosts,
		domain.Config{UserAgent: env.UserAgent(), Now: env.Now},
		env.Log,
	)

	env.Out.Banner("516 Hackers - Domain Research: " + name)
	res := r.Research(ctx, name)

	out, err := env.Sink(domain.Tool).Persist("domain_research", name, res)
	if err != nil {
		return err
	}

	resolved := 0
	for _, v := range res.DNS {
		if _, ok := v.([]string); ok {
			resolved++
		}
	}
	_, whoisFailed := res.Whois["error"]
	env.Out.Line("WHOIS Info: %s", availability(!whoisFailed))
	env.Out.Line("DNS Records: %d of %d types resolved", resolved, len(domain.RecordTypes))
	env.Out.Line("HTTP Headers: %s", availability(res.HTTP.Error == ""))
	env.Out.Line("IP Information: %s", availability(res.IP.Error == ""))
	env.Out.Saved(out)
	return nil
}

func availability(ok bool) string {
	if ok {
		return "Available"
	}
	return "Error"
}
