package app

import (
	"context"
	"sort"

	"github.com/516hackers/osint516/internal/imagehash"
)

func runImage(_ context.Context, env *Env, args []string) error {
	threshold := env.Cfg.SimilarityThreshold
	s := env.Sink(imagehash.Tool)

	switch args[0] {
	case "hash":
		h, err := imagehash.HashFile(args[1])
		if err != nil {
			return err
		}
		out, err := s.Persist("image_analysis", "hashes", h)
		if err != nil {
			return err
		}
		env.Out.Success("Image hashes calculated:")
		env.Out.Line("   average_hash: %s", h.Average)
		env.Out.Line("   phash: %s", h.Perception)
		env.Out.Line("   dhash: %s", h.Difference)
		env.Out.Saved(out)

	case "compare":
		c, err := imagehash.Compare(args[1], args[2], threshold)
		if err != nil {
			return err
		}
		out, err := s.Persist("image_analysis", "comparison", c)
		if err != nil {
			return err
		}
		if c.IsSimilar {
			env.Out.Success("SIMILAR - Similarity: %v%%", c.Similarity)
		} else {
			env.Out.Warn("DIFFERENT - Similarity: %v%%", c.Similarity)
		}
		env.Out.Saved(out)

	case "find-similar":
		pairs, skipped, err := imagehash.FindSimilar(args[1], threshold)
		if err != nil {
			return err
		}
		out, err := s.Persist("image_analysis", "similar_images", pairs)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(skipped))
		for n := range skipped {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			env.Out.Warn("%s: %s", n, skipped[n])
		}
		env.Out.Success("Found %d similar image pairs", len(pairs))
		for _, p := range pairs {
			env.Out.Line("   %s <-> %s (%.1f%%)", p.Image1, p.Image2, p.Similarity)
		}
		env.Out.Saved(out)
	}
	return nil
}
