package imagehash

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient draws a horizontal ramp; invert flips it.
func gradient(w, h int, invert bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		v := uint8(x * 255 / (w - 1))
		if invert {
			v = 255 - v
		}
		for y := 0; y < h; y++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func save(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestHashFileFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	save(t, path, gradient(64, 64, false))

	h, err := HashFile(path)
	require.NoError(t, err)
	assert.Len(t, h.Average, 16)
	assert.Len(t, h.Perception, 16)
	assert.Len(t, h.Difference, 16)
}

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	c := filepath.Join(dir, "c.png")
	save(t, a, gradient(64, 64, false))
	save(t, b, gradient(128, 128, false))
	save(t, c, gradient(64, 64, true))

	same, err := Compare(a, b, DefaultThreshold)
	require.NoError(t, err)
	assert.True(t, same.IsSimilar)
	assert.LessOrEqual(t, same.HashDifference, DefaultThreshold)
	assert.Equal(t, Similarity(same.HashDifference), same.Similarity)

	diff, err := Compare(a, c, DefaultThreshold)
	require.NoError(t, err)
	assert.False(t, diff.IsSimilar)
	assert.Greater(t, diff.HashDifference, DefaultThreshold)
}

func TestCompareMissingFile(t *testing.T) {
	_, err := Compare("nope.png", "nope2.png", 10)
	assert.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100.0, Similarity(0))
	assert.Equal(t, 84.38, Similarity(10))
	assert.Equal(t, 0.0, Similarity(64))
	assert.Equal(t, 0.0, Similarity(80))
}

func TestDistance(t *testing.T) {
	d, err := Distance("00000000000000ff", "000000000000000f")
	require.NoError(t, err)
	assert.Equal(t, 4, d)

	_, err = Distance("zz", "00")
	assert.Error(t, err)

	_, err = Distance("a:00000000000000ff", "00")
	assert.Error(t, err, "hashes are plain hex")
}

func TestFindSimilar(t *testing.T) {
	dir := t.TempDir()
	save(t, filepath.Join(dir, "b.png"), gradient(64, 64, false))
	save(t, filepath.Join(dir, "a.png"), gradient(96, 96, false))
	save(t, filepath.Join(dir, "z.png"), gradient(64, 64, true))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.jpg"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	pairs, skipped, err := FindSimilar(dir, DefaultThreshold)
	require.NoError(t, err)

	require.Len(t, pairs, 1)
	assert.Equal(t, "a.png", pairs[0].Image1)
	assert.Equal(t, "b.png", pairs[0].Image2)
	assert.Contains(t, skipped, "bad.jpg")
	assert.NotContains(t, skipped, "notes.txt")
}
