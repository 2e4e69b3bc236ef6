package platform

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/516hackers/osint516/internal/version"
)

// Roster is the ordered set of platforms checked per aggregation call.
type Roster []*Platform

// NewRoster validates the platforms and freezes their order.
func NewRoster(platforms ...*Platform) (Roster, error) {
	seen := make(map[string]struct{}, len(platforms))
	out := make(Roster, 0, len(platforms))
	for _, p := range platforms {
		if p == nil {
			continue
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return nil, errors.Errorf("duplicate platform %q", p.Name)
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func (r Roster) Names() []string {
	names := make([]string, len(r))
	for i, p := range r {
		names[i] = p.Name
	}
	return names
}

// Select keeps the named platforms (case-insensitive) in roster order and
// reports the names it did not recognise.
func (r Roster) Select(names []string) (Roster, []string) {
	want := make(map[string]string, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			want[strings.ToLower(n)] = n
		}
	}

	var out Roster
	for _, p := range r {
		key := strings.ToLower(p.Name)
		if _, ok := want[key]; ok {
			out = append(out, p)
			delete(want, key)
		}
	}

	unknown := make([]string, 0, len(want))
	for _, n := range names {
		if _, ok := want[strings.ToLower(strings.TrimSpace(n))]; ok {
			unknown = append(unknown, n)
		}
	}
	return out, unknown
}

const unclaimed = "noonewouldeverusethis7"

// SocialMapRoster is the roster of the social media mapper.
func SocialMapRoster() Roster {
	return mustRoster(
		New("github", "https://github.com/{}").Known("octocat", unclaimed),
		New("twitter", "https://twitter.com/{}").Known("blue", unclaimed),
		New("instagram", "https://instagram.com/{}").Known("instagram", unclaimed),
		// LinkedIn answers 999 to unauthenticated scrapers even for real profiles.
		New("linkedin", "https://linkedin.com/in/{}", 200, 999),
		New("reddit", "https://reddit.com/user/{}").Known("blue", unclaimed),
		New("youtube", "https://youtube.com/@{}/").Known("youtube", unclaimed),
	)
}

// StandardSites is the roster of the username search tool.
func StandardSites() Roster {
	return mustRoster(
		New("github", "https://github.com/{}").Known("octocat", unclaimed),
		New("twitter", "https://twitter.com/{}").Known("blue", unclaimed),
		New("instagram", "https://instagram.com/{}").Known("instagram", unclaimed),
		New("linkedin", "https://linkedin.com/in/{}"),
		New("facebook", "https://facebook.com/{}").Known("facebook", unclaimed),
		New("youtube", "https://youtube.com/@{}").Known("youtube", unclaimed),
		New("reddit", "https://reddit.com/user/{}").Known("blue", unclaimed),
	)
}

func mustRoster(platforms ...*Platform) Roster {
	r, err := NewRoster(platforms...)
	if err != nil {
		panic(err)
	}
	return r
}

type rosterFile struct {
	MinVersion string      `yaml:"min_version" json:"min_version"`
	Platforms  []*Platform `yaml:"platforms" json:"platforms"`
}

// LoadRoster reads a roster definition from a YAML or JSON file. Entry order
// in the file is the probing order.
func LoadRoster(filename string) (Roster, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read roster")
	}

	var rf rosterFile
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		err = json.Unmarshal(raw, &rf)
	default:
		err = yaml.Unmarshal(raw, &rf)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse roster %s", filename)
	}

	if !version.Satisfies(rf.MinVersion) {
		return nil, errors.Errorf("roster %s requires toolkit %s or newer (running %s)",
			filename, rf.MinVersion, version.Version)
	}

	r, err := NewRoster(rf.Platforms...)
	if err != nil {
		return nil, errors.Wrapf(err, "roster %s", filename)
	}
	return r, nil
}
