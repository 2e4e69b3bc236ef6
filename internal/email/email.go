// Package email validates addresses and mines them for OSINT hints.
package email

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/516hackers/osint516/internal/resolver"
)

const Tool = "516 Hackers Email Analyzer"

var (
	formatRE  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	specialRE = regexp.MustCompile(`[._%+-]`)
	yearRE    = regexp.MustCompile(`(19|20)\d{2}`)
)

// MXResolver is satisfied by *resolver.Resolver.
type MXResolver interface {
	MX(ctx context.Context, domain string) ([]resolver.MX, error)
}

type Syntax struct {
	LocalPart       string `json:"local_part"`
	DomainPart      string `json:"domain_part"`
	Length          int    `json:"length"`
	HasSpecialChars bool   `json:"has_special_chars"`
}

type Validation struct {
	Email             string        `json:"email"`
	IsValidFormat     bool          `json:"is_valid_format"`
	Domain            string        `json:"domain,omitempty"`
	RegistrableDomain string        `json:"registrable_domain,omitempty"`
	MXRecords         []resolver.MX `json:"mx_records"`
	MXError           string        `json:"mx_error,omitempty"`
	Syntax            *Syntax       `json:"syntax_analysis,omitempty"`
}

type Pattern struct {
	NameComponents []string `json:"possible_name_components"`
	Initial        string   `json:"possible_initial,omitempty"`
	Year           string   `json:"possible_year,omitempty"`
	Separators     []string `json:"separators_used"`
	PatternType    string   `json:"pattern_type"`
}

// Analysis is what a single-address run persists.
type Analysis struct {
	Validation Validation `json:"email_validation"`
	Pattern    Pattern    `json:"pattern_analysis"`
}

type Bulk struct {
	Total   int          `json:"total_emails"`
	Valid   int          `json:"valid_emails"`
	Invalid int          `json:"invalid_emails"`
	Domains []string     `json:"domains_found"`
	Results []Validation `json:"analysis_results"`
}

type Analyzer struct {
	mx          MXResolver
	concurrency int
	log         logrus.FieldLogger
}

func NewAnalyzer(mx MXResolver, concurrency int, log logrus.FieldLogger) *Analyzer {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{mx: mx, concurrency: concurrency, log: log}
}

func ValidFormat(addr string) bool { return formatRE.MatchString(addr) }

// Validate checks the format and, for well-formed addresses, looks up the
// domain's MX records. A failed lookup is recorded, not returned.
func (a *Analyzer) Validate(ctx context.Context, addr string) Validation {
	v := Validation{Email: addr, MXRecords: []resolver.MX{}}
	if !ValidFormat(addr) {
		return v
	}
	v.IsValidFormat = true

	local, domain, _ := strings.Cut(addr, "@")
	v.Domain = domain
	if reg, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(domain)); err == nil {
		v.RegistrableDomain = reg
	}
	v.Syntax = &Syntax{
		LocalPart:       local,
		DomainPart:      domain,
		Length:          len(addr),
		HasSpecialChars: specialRE.MatchString(local),
	}

	if a.mx != nil {
		mx, err := a.mx.MX(ctx, domain)
		if err != nil {
			a.log.WithError(err).WithField("domain", domain).Warn("could not resolve MX records")
			v.MXError = err.Error()
		} else {
			v.MXRecords = mx
		}
	}
	return v
}

// AnalyzePattern inspects the local part for name and year hints.
func AnalyzePattern(addr string) Pattern {
	local, _, _ := strings.Cut(addr, "@")
	p := Pattern{
		NameComponents: []string{},
		Separators:     []string{},
		PatternType:    "unknown",
	}

	if strings.Contains(local, ".") {
		p.Separators = append(p.Separators, "dot")
		if parts := strings.Split(local, "."); len(parts) == 2 {
			p.PatternType = "first.last"
			p.NameComponents = parts
			if len(parts[0]) == 1 {
				p.Initial = parts[0]
			}
		}
	}
	if strings.Contains(local, "_") {
		p.Separators = append(p.Separators, "underscore")
	}
	if strings.Contains(local, "-") {
		p.Separators = append(p.Separators, "hyphen")
	}
	p.Year = yearRE.FindString(local)
	return p
}

func (a *Analyzer) Analyze(ctx context.Context, addr string) Analysis {
	return Analysis{
		Validation: a.Validate(ctx, addr),
		Pattern:    AnalyzePattern(addr),
	}
}

// BulkAnalyze validates every address; results keep input order and
// domains are sorted and unique.
func (a *Analyzer) BulkAnalyze(ctx context.Context, addrs []string) Bulk {
	results := make([]Validation, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			results[i] = a.Validate(gctx, strings.TrimSpace(addr))
			return nil
		})
	}
	_ = g.Wait()

	b := Bulk{Total: len(addrs), Domains: []string{}, Results: results}
	seen := map[string]bool{}
	for _, v := range results {
		if !v.IsValidFormat {
			b.Invalid++
			continue
		}
		b.Valid++
		if !seen[v.Domain] {
			seen[v.Domain] = true
			b.Domains = append(b.Domains, v.Domain)
		}
	}
	sort.Strings(b.Domains)
	return b
}

// ParseList splits newline-separated input, dropping blanks and # comments.
func ParseList(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
