// Package exifmeta extracts and strips image metadata.
package exifmeta

import (
	"crypto/md5"
	"encoding/hex"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codingsince1985/geo-golang"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/sirupsen/logrus"

	// Decoders for the formats AnalyzeDir accepts.
	_ "image/gif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const Tool = "516 Hackers Metadata Analyzer"

// SupportedExt lists the extensions AnalyzeDir picks up.
var SupportedExt = []string{".jpg", ".jpeg", ".png", ".tiff", ".webp"}

func init() {
	exif.RegisterParsers(mknote.All...)
}

type GPS struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type Metadata struct {
	Filename    string            `json:"filename"`
	FileSize    int64             `json:"file_size"`
	FileHash    string            `json:"file_hash"`
	ImageFormat string            `json:"image_format"`
	ImageSize   [2]int            `json:"image_size"`
	Tags        map[string]string `json:"metadata"`
	GPS         *GPS              `json:"gps,omitempty"`
	Error       string            `json:"error,omitempty"`
}

type Analyzer struct {
	// Geocoder resolves GPS coordinates to an address; nil skips the lookup.
	Geocoder geo.Geocoder
	log      logrus.FieldLogger
}

func NewAnalyzer(g geo.Geocoder, log logrus.FieldLogger) *Analyzer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{Geocoder: g, log: log}
}

// Extract reads file facts and EXIF tags. Images without EXIF yield an
// empty tag map, not an error.
func (a *Analyzer) Extract(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat image")
	}

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, errors.Wrap(err, "hash image")
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", filepath.Base(path))
	}

	md := &Metadata{
		Filename:    filepath.Base(path),
		FileSize:    st.Size(),
		FileHash:    hex.EncodeToString(h.Sum(nil)),
		ImageFormat: strings.ToUpper(format),
		ImageSize:   [2]int{cfg.Width, cfg.Height},
		Tags:        map[string]string{},
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	x, err := exif.Decode(f)
	if err != nil {
		if exif.IsCriticalError(err) {
			a.log.WithError(err).WithField("file", md.Filename).Debug("no readable exif")
			return md, nil
		}
		// Partial EXIF; keep whatever decoded.
		a.log.WithError(err).WithField("file", md.Filename).Debug("exif decoded with warnings")
	}
	if x == nil {
		return md, nil
	}

	_ = x.Walk(tagCollector(md.Tags))

	if lat, long, err := x.LatLong(); err == nil {
		md.GPS = &GPS{Latitude: lat, Longitude: long}
		if a.Geocoder != nil {
			addr, err := a.Geocoder.ReverseGeocode(lat, long)
			switch {
			case err != nil:
				a.log.WithError(err).Warn("reverse geocoding failed")
			case addr != nil:
				md.GPS.Address = addr.FormattedAddress
			}
		}
	}
	return md, nil
}

type tagCollector map[string]string

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c[string(name)] = strings.Trim(tag.String(), `"`)
	return nil
}

// AnalyzeDir extracts every supported image directly under dir. Files that
// fail carry their error in the entry.
func (a *Analyzer) AnalyzeDir(dir string) (map[string]*Metadata, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read directory")
	}

	out := make(map[string]*Metadata)
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		md, err := a.Extract(filepath.Join(dir, e.Name()))
		if err != nil {
			md = &Metadata{Filename: e.Name(), Error: err.Error()}
		}
		out[e.Name()] = md
	}
	return out, nil
}

func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExt {
		if ext == s {
			return true
		}
	}
	return false
}

// SortedTags returns tag names in lexical order.
func (m *Metadata) SortedTags() []string {
	names := make([]string, 0, len(m.Tags))
	for k := range m.Tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clean re-encodes the pixels of src into w, which drops every metadata
// block. PNG sources stay PNG; everything else becomes JPEG at quality 95.
func Clean(src string, w io.Writer) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "open image")
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return errors.Wrapf(err, "decode %s", filepath.Base(src))
	}

	if format == "png" {
		err = png.Encode(w, img)
	} else {
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	}
	return errors.Wrap(err, "encode cleaned image")
}

// CleanedName is the file name cleaned copies are stored under.
func CleanedName(src string) string {
	base := filepath.Base(src)
	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".png" {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
	}
	return "cleaned_" + base
}
