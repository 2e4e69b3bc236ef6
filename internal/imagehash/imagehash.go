// Package imagehash computes perceptual hashes and similarity between images.
package imagehash

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/pkg/errors"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	Tool = "516 Hackers Image Forensics"

	// DefaultThreshold is the largest average-hash distance still reported
	// as similar.
	DefaultThreshold = 10

	hashBits = 64
)

var SupportedExt = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".webp"}

// Hashes holds the 64-bit hashes rendered as 16 hex digits.
type Hashes struct {
	Average    string `json:"average_hash"`
	Perception string `json:"phash"`
	Difference string `json:"dhash"`
}

type Comparison struct {
	Image1         string  `json:"image1"`
	Image2         string  `json:"image2"`
	HashDifference int     `json:"hash_difference"`
	Similarity     float64 `json:"similarity_percentage"`
	IsSimilar      bool    `json:"is_similar"`
}

func load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", filepath.Base(path))
	}
	return img, nil
}

func HashFile(path string) (Hashes, error) {
	img, err := load(path)
	if err != nil {
		return Hashes{}, err
	}
	return HashImage(img)
}

func HashImage(img image.Image) (Hashes, error) {
	a, err := goimagehash.AverageHash(img)
	if err != nil {
		return Hashes{}, errors.Wrap(err, "average hash")
	}
	p, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Hashes{}, errors.Wrap(err, "perception hash")
	}
	d, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return Hashes{}, errors.Wrap(err, "difference hash")
	}
	return Hashes{Average: hexOf(a), Perception: hexOf(p), Difference: hexOf(d)}, nil
}

func hexOf(h *goimagehash.ImageHash) string {
	return fmt.Sprintf("%016x", h.GetHash())
}

// Distance is the Hamming distance between two average hashes in hex form.
func Distance(a, b string) (int, error) {
	ha, err := parseHash(a)
	if err != nil {
		return 0, err
	}
	hb, err := parseHash(b)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}

func parseHash(s string) (*goimagehash.ImageHash, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "bad hash %q", s)
	}
	return goimagehash.NewImageHash(v, goimagehash.AHash), nil
}

// Similarity maps a distance to a percentage; it never goes below 0.
func Similarity(distance int) float64 {
	s := 100 - float64(distance)/hashBits*100
	return math.Max(0, math.Round(s*100)/100)
}

// Compare uses the average hash, which is what similarity is defined on.
func Compare(path1, path2 string, threshold int) (Comparison, error) {
	h1, err := HashFile(path1)
	if err != nil {
		return Comparison{}, err
	}
	h2, err := HashFile(path2)
	if err != nil {
		return Comparison{}, err
	}
	d, err := Distance(h1.Average, h2.Average)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{
		Image1:         path1,
		Image2:         path2,
		HashDifference: d,
		Similarity:     Similarity(d),
		IsSimilar:      d <= threshold,
	}, nil
}

type Pair struct {
	Image1         string  `json:"image1"`
	Image2         string  `json:"image2"`
	Similarity     float64 `json:"similarity_score"`
	HashDifference int     `json:"hash_difference"`
}

// FindSimilar hashes every supported image directly under dir and returns
// each unordered pair within threshold, sorted by file name. Unreadable
// images are reported in skipped.
func FindSimilar(dir string, threshold int) (pairs []Pair, skipped map[string]string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read directory")
	}

	type hashed struct {
		name string
		hash string
	}
	var files []hashed
	skipped = map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		h, err := HashFile(filepath.Join(dir, e.Name()))
		if err != nil {
			skipped[e.Name()] = err.Error()
			continue
		}
		files = append(files, hashed{name: e.Name(), hash: h.Average})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	pairs = []Pair{}
	for i := range files {
		for j := i + 1; j < len(files); j++ {
			d, err := Distance(files[i].hash, files[j].hash)
			if err != nil {
				return nil, nil, err
			}
			if d <= threshold {
				pairs = append(pairs, Pair{
					Image1:         files[i].name,
					Image2:         files[j].name,
					Similarity:     Similarity(d),
					HashDifference: d,
				})
			}
		}
	}
	return pairs, skipped, nil
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
