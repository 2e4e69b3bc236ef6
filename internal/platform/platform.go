package platform

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// Slot is the username placeholder in a URL template.
const Slot = "{}"

// Platform describes how to check one site. Treat it as immutable once it is
// part of a Roster.
type Platform struct {
	Name        string `yaml:"name" json:"name"`
	URLTemplate string `yaml:"url" json:"url"`

	// Accept lists the status codes that mean "the profile exists".
	// Empty means 200 only.
	Accept []int `yaml:"accept,omitempty" json:"accept,omitempty"`

	// RegexCheck, when set, must match the username or the site is skipped.
	RegexCheck string `yaml:"regex_check,omitempty" json:"regex_check,omitempty"`

	// Claimed and Unclaimed are usernames known to exist and known to be
	// free; the roster self-check probes both.
	Claimed   string `yaml:"username_claimed,omitempty" json:"username_claimed,omitempty"`
	Unclaimed string `yaml:"username_unclaimed,omitempty" json:"username_unclaimed,omitempty"`

	regexOnce sync.Once
	regex     *regexp2.Regexp
	regexErr  error
}

// New returns a platform that accepts the given status codes.
func New(name, urlTemplate string, accept ...int) *Platform {
	return &Platform{Name: name, URLTemplate: urlTemplate, Accept: accept}
}

// Known sets the self-check usernames and returns p.
func (p *Platform) Known(claimed, unclaimed string) *Platform {
	p.Claimed, p.Unclaimed = claimed, unclaimed
	return p
}

// Exists interprets a response status for this platform.
func (p *Platform) Exists(status int) bool {
	if len(p.Accept) == 0 {
		return status == http.StatusOK
	}
	return slices.Contains(p.Accept, status)
}

// ProfileURL substitutes the path-escaped username into the template.
func (p *Platform) ProfileURL(username string) string {
	return strings.Replace(p.URLTemplate, Slot, url.PathEscape(username), 1)
}

// ValidUsername applies RegexCheck. A platform without a check accepts any
// username.
func (p *Platform) ValidUsername(username string) (bool, error) {
	if p.RegexCheck == "" {
		return true, nil
	}
	p.regexOnce.Do(func() {
		p.regex, p.regexErr = regexp2.Compile(p.RegexCheck, regexp2.None)
	})
	if p.regexErr != nil {
		return false, errors.Wrapf(p.regexErr, "%s: invalid regex_check", p.Name)
	}
	return p.regex.MatchString(username)
}

func (p *Platform) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("platform without a name")
	}
	if strings.Count(p.URLTemplate, Slot) != 1 {
		return errors.Errorf("%s: url template must contain exactly one %s", p.Name, Slot)
	}
	if _, err := url.Parse(strings.Replace(p.URLTemplate, Slot, "x", 1)); err != nil {
		return errors.Wrapf(err, "%s: invalid url template", p.Name)
	}
	for _, code := range p.Accept {
		if code < 100 || code > 999 {
			return errors.Errorf("%s: invalid accepted status %d", p.Name, code)
		}
	}
	if p.RegexCheck != "" {
		if _, err := regexp2.Compile(p.RegexCheck, regexp2.None); err != nil {
			return errors.Wrapf(err, "%s: invalid regex_check", p.Name)
		}
	}
	return nil
}
