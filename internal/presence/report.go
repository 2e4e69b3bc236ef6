package presence

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/516hackers/osint516/internal/probe"
)

// Report is the complete output of one aggregation call. It is immutable
// once returned by the Aggregator.
type Report struct {
	Username    string    `json:"username"`
	GeneratedAt time.Time `json:"timestamp"`
	Platforms   Platforms `json:"platforms"`
	Summary     Summary   `json:"summary"`
}

type Summary struct {
	Checked       int     `json:"total_platforms_checked"`
	Found         int     `json:"platforms_found"`
	DiscoveryRate float64 `json:"discovery_rate"`
}

// Entry is the persisted form of a probe outcome.
type Entry struct {
	Platform     string     `json:"-"`
	URL          string     `json:"url"`
	Exists       bool       `json:"exists"`
	StatusCode   int        `json:"status_code,omitempty"`
	ResponseTime *float64   `json:"response_time,omitempty"` // seconds
	Skipped      bool       `json:"skipped,omitempty"`
	Error        string     `json:"error,omitempty"`
	ErrorKind    probe.Kind `json:"error_kind,omitempty"`
}

func EntryFrom(o probe.Outcome) Entry {
	e := Entry{
		Platform:   o.Platform,
		URL:        o.URL,
		Exists:     o.Exists,
		StatusCode: o.StatusCode,
		Skipped:    o.Skipped,
	}
	if o.StatusCode != 0 {
		secs := o.Elapsed.Seconds()
		e.ResponseTime = &secs
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
		e.ErrorKind = o.Err.Kind
	}
	return e
}

// Platforms keeps roster order and serializes as a JSON object keyed by
// platform name.
type Platforms []Entry

func (ps Platforms) Get(name string) (Entry, bool) {
	for _, e := range ps {
		if e.Platform == name {
			return e, true
		}
	}
	return Entry{}, false
}

func (ps Platforms) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range ps {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Platform)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (ps *Platforms) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return errors.New("platforms: expected a JSON object")
	}

	out := Platforms{}
	var err error
	res.ForEach(func(key, value gjson.Result) bool {
		var e Entry
		if err = json.Unmarshal([]byte(value.Raw), &e); err != nil {
			err = errors.Wrapf(err, "platform %q", key.String())
			return false
		}
		e.Platform = key.String()
		out = append(out, e)
		return true
	})
	if err != nil {
		return err
	}
	*ps = out
	return nil
}

// Summarize derives the summary block. The rate is 0 for an empty roster.
func Summarize(ps Platforms) Summary {
	s := Summary{Checked: len(ps)}
	for _, e := range ps {
		if e.Exists {
			s.Found++
		}
	}
	if s.Checked > 0 {
		s.DiscoveryRate = round2(float64(s.Found) / float64(s.Checked) * 100)
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
