package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/516hackers/osint516/internal/instagram"
	"github.com/516hackers/osint516/internal/sink"
)

var counts = message.NewPrinter(language.English)

func runInstagram(ctx context.Context, env *Env, args []string) error {
	username := strings.TrimPrefix(strings.TrimSpace(args[0]), "@")
	client := instagram.NewClient(env.HTTP, env.InstagramBaseURL, env.UserAgent(), env.Log)

	env.Out.Info("516 Hackers - Analyzing Instagram profile: %s", username)

	profile, raw, err := client.Profile(ctx, username)
	if err != nil {
		if errors.Is(err, instagram.ErrNotFound) {
			return errors.Wrapf(err, "@%s", username)
		}
		return err
	}
	analysis := instagram.Analyze(profile)

	s := env.Sink(instagram.Tool)
	base := "instagram_" + sink.SafeName(username)
	jsonPath, err := s.PersistAs(base+".json", instagram.Record{Profile: profile, Analysis: analysis})
	if err != nil {
		return err
	}
	csvBody, err := instagram.CSV(profile)
	if err != nil {
		return errors.Wrap(err, "render csv")
	}
	csvPath, err := s.WriteFile(base+".csv", csvBody)
	if err != nil {
		return err
	}

	ext := profile.ExternalURL
	if ext == "" {
		ext = "None"
	}
	env.Out.Success("Profile analysis complete!")
	env.Out.Line("Name: %s", profile.FullName)
	env.Out.Line("Followers: %s", counts.Sprintf("%d", profile.Followers))
	env.Out.Line("Following: %s", counts.Sprintf("%d", profile.Followees))
	env.Out.Line("Posts: %s", counts.Sprintf("%d", profile.PostsCount))
	env.Out.Line("External URL: %s", ext)
	env.Out.Line("Follower/following ratio: %.2f", analysis.FollowerToFollowingRatio)
	env.Out.Line("Profile completeness: %d%%", analysis.CompletenessScore)
	env.Out.Saved(jsonPath + " & " + csvPath)

	if !env.Opts.Download {
		return nil
	}
	if raw == nil {
		env.Out.Warn("Media listing unavailable for this profile (page data only)")
		return nil
	}
	mediaDir := filepath.Join(env.Cfg.OutputDir, base+"_media")
	n, err := client.DownloadMedia(ctx, raw, "https://www.instagram.com/"+username+"/", mediaDir)
	if errors.Is(err, sink.ErrOutputDir) {
		return err
	}
	if err != nil {
		env.Out.Warn("Media download: %v", err)
	}
	if n > 0 {
		env.Out.Success("Downloaded %d file(s) to %s", n, mediaDir)
	}
	return nil
}
