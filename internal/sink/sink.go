package sink

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// StampLayout is the timestamp embedded in output file names.
const StampLayout = "20060102_150405"

// ErrOutputDir marks failures to create or write into the output directory.
var ErrOutputDir = errors.New("output directory not writable")

// Envelope is the on-disk record every tool writes. The report aggregator
// only relies on Tool.
type Envelope struct {
	Results   json.RawMessage `json:"results"`
	Tool      string          `json:"tool"`
	Timestamp string          `json:"timestamp"`
}

type Sink struct {
	Dir  string
	Tool string
	Now  func() time.Time
}

func New(dir, tool string) *Sink {
	return &Sink{Dir: dir, Tool: tool, Now: time.Now}
}

// Persist writes results as <kind>_<prefix>_<stamp>.json and returns the
// path. Nothing is left behind under the final name unless the whole
// document was written.
func (s *Sink) Persist(kind, prefix string, results any) (string, error) {
	now := s.now()
	name := kind + "_" + SafeName(prefix) + "_" + now.Format(StampLayout) + ".json"
	return s.write(name, results, now)
}

// PersistAs writes results under an explicit file name.
func (s *Sink) PersistAs(name string, results any) (string, error) {
	return s.write(name, results, s.now())
}

// WriteJSON writes v verbatim (no envelope) under name.
func (s *Sink) WriteJSON(name string, v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode document")
	}
	return s.WriteFile(name, raw)
}

func (s *Sink) write(name string, results any, now time.Time) (string, error) {
	body, err := json.Marshal(results)
	if err != nil {
		return "", errors.Wrap(err, "encode results")
	}
	env := Envelope{
		Results:   body,
		Tool:      s.Tool,
		Timestamp: now.Format(time.RFC3339Nano),
	}
	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode envelope")
	}
	return s.WriteFile(name, raw)
}

// WriteFile writes raw bytes under name with the same all-or-nothing rule.
func (s *Sink) WriteFile(name string, raw []byte) (string, error) {
	return s.WriteFrom(name, bytes.NewReader(raw))
}

// WriteFrom streams r into name. Errors reading r are returned as they are;
// failures on the local side are ErrOutputDir.
func (s *Sink) WriteFrom(name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.Wrapf(ErrOutputDir, "create %s: %v", s.Dir, err)
	}

	dest := filepath.Join(s.Dir, name)
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*.tmp")
	if err != nil {
		return "", errors.Wrapf(ErrOutputDir, "create temp file in %s: %v", s.Dir, err)
	}
	tmpPath := tmp.Name()

	src := &sourceReader{r: r}
	_, werr := io.Copy(tmp, src)
	serr := tmp.Sync()
	cerr := tmp.Close()
	if src.err != nil {
		_ = os.Remove(tmpPath)
		return "", errors.Wrapf(src.err, "read source for %s", name)
	}
	for _, e := range []error{werr, serr, cerr} {
		if e != nil {
			_ = os.Remove(tmpPath)
			return "", errors.Wrapf(ErrOutputDir, "write %s: %v", dest, e)
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return "", errors.Wrapf(ErrOutputDir, "rename %s: %v", dest, err)
	}
	return dest, nil
}

// sourceReader remembers the first read error so it is not mistaken for a
// write failure.
type sourceReader struct {
	r   io.Reader
	err error
}

func (sr *sourceReader) Read(p []byte) (int, error) {
	n, err := sr.r.Read(p)
	if err != nil && err != io.EOF && sr.err == nil {
		sr.err = err
	}
	return n, err
}

func (s *Sink) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Load reads an envelope written by Persist and decodes its results into v.
func Load(path string, v any) (Envelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "read result file")
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errors.Wrapf(err, "parse %s", path)
	}
	if v != nil {
		if err := json.Unmarshal(env.Results, v); err != nil {
			return env, errors.Wrapf(err, "decode results in %s", path)
		}
	}
	return env, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._@+-]+`)

// SafeName turns user input into a file name fragment.
func SafeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unnamed"
	}
	return s
}
