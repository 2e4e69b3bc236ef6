package app

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/516hackers/osint516/internal/email"
	"github.com/516hackers/osint516/internal/resolver"
)

func runEmail(ctx context.Context, env *Env, args []string) error {
	res := resolver.New(env.Cfg.DNSServer, env.Cfg.Timeout())
	analyzer := email.NewAnalyzer(res, env.Cfg.Concurrency, env.Log)
	s := env.Sink(email.Tool)

	if env.Opts.File != "" {
		raw, err := os.ReadFile(env.Opts.File)
		if err != nil {
			return errors.Wrap(err, "read address list")
		}
		addrs := email.ParseList(string(raw))
		env.Out.Info("Analyzing %d emails from file: %s", len(addrs), env.Opts.File)

		bulk := analyzer.BulkAnalyze(ctx, addrs)
		out, err := s.Persist("email_analysis", "bulk", bulk)
		if err != nil {
			return err
		}
		env.Out.Success("Processed %d emails", bulk.Total)
		env.Out.Line("Valid: %d", bulk.Valid)
		env.Out.Line("Invalid: %d", bulk.Invalid)
		env.Out.Line("Unique domains: %d", len(bulk.Domains))
		env.Out.Saved(out)
		return nil
	}

	addr := strings.TrimSpace(args[0])
	env.Out.Info("516 Hackers - Analyzing email: %s", addr)

	a := analyzer.Analyze(ctx, addr)
	out, err := s.Persist("email_analysis", addr, a)
	if err != nil {
		return err
	}

	domain := a.Validation.Domain
	if domain == "" {
		domain = "None"
	}
	env.Out.Line("Format Valid: %t", a.Validation.IsValidFormat)
	env.Out.Line("Domain: %s", domain)
	env.Out.Line("MX Records: %d found", len(a.Validation.MXRecords))
	if a.Pattern.PatternType != "unknown" {
		env.Out.Line("Pattern: %s", a.Pattern.PatternType)
	}
	env.Out.Saved(out)
	return nil
}
