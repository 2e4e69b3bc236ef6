package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/516hackers/osint516/internal/exifmeta"
	"github.com/516hackers/osint516/internal/sink"
)

func runMetadata(_ context.Context, env *Env, args []string) error {
	path := args[0]
	st, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "metadata")
	}

	var g = env.Geocoder
	if !env.Opts.Geocode {
		g = nil
	}
	analyzer := exifmeta.NewAnalyzer(g, env.Log)
	s := env.Sink(exifmeta.Tool)

	if st.IsDir() {
		if env.Opts.Clean {
			return cleanDir(env, path)
		}
		results, err := analyzer.AnalyzeDir(path)
		if err != nil {
			return err
		}
		out, err := s.Persist("metadata_analysis", "directory_scan", results)
		if err != nil {
			return err
		}
		env.Out.Success("Analyzed %d images", len(results))
		env.Out.Saved(out)
		return nil
	}

	if env.Opts.Clean {
		return cleanOne(env, path)
	}

	md, err := analyzer.Extract(path)
	if err != nil {
		return err
	}
	out, err := s.Persist("metadata_analysis", filepath.Base(path), md)
	if err != nil {
		return err
	}
	env.Out.Success("Metadata extracted and saved to: %s", out)
	env.Out.Line("Found %d metadata tags", len(md.Tags))

	rows := [][]string{
		{"Format", md.ImageFormat},
		{"Size", strconv.Itoa(md.ImageSize[0]) + "x" + strconv.Itoa(md.ImageSize[1])},
		{"MD5", md.FileHash},
	}
	for _, name := range md.SortedTags() {
		rows = append(rows, []string{name, md.Tags[name]})
	}
	if md.GPS != nil {
		rows = append(rows, []string{"GPS", strconv.FormatFloat(md.GPS.Latitude, 'f', 6, 64) + ", " + strconv.FormatFloat(md.GPS.Longitude, 'f', 6, 64)})
		if md.GPS.Address != "" {
			rows = append(rows, []string{"Location", md.GPS.Address})
		}
	}
	env.Out.Table([]string{"Field", "Value"}, rows)
	return nil
}

func cleanOne(env *Env, src string) error {
	var buf bytes.Buffer
	if err := exifmeta.Clean(src, &buf); err != nil {
		return err
	}
	dst, err := env.Sink(exifmeta.Tool).WriteFile(exifmeta.CleanedName(src), buf.Bytes())
	if err != nil {
		return err
	}
	env.Out.Success("Metadata cleaned: %s", dst)
	return nil
}

// cleanDir skips images that fail to decode but stops at the first write
// failure, since every later file would fail the same way.
func cleanDir(env *Env, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "read directory")
	}
	cleaned, failed := 0, 0
	for _, e := range entries {
		if e.IsDir() || !exifmeta.Supported(e.Name()) {
			continue
		}
		err := cleanOne(env, filepath.Join(dir, e.Name()))
		switch {
		case errors.Is(err, sink.ErrOutputDir):
			return err
		case err != nil:
			env.Out.Warn("%s: %v", e.Name(), err)
			failed++
		default:
			cleaned++
		}
	}
	if cleaned == 0 {
		return errors.Errorf("no image could be cleaned in %s (%d failed)", dir, failed)
	}
	env.Out.Success("Cleaned %d image(s)", cleaned)
	return nil
}
