package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/516hackers/osint516/internal/platform"
	"github.com/516hackers/osint516/internal/presence"
	"github.com/516hackers/osint516/internal/probe"
)

func runSocialMap(ctx context.Context, env *Env, usernames []string) error {
	roster, err := socialRoster(ctx, env)
	if err != nil {
		return err
	}
	agg := newAggregator(env, roster)

	if env.Opts.Check {
		return checkRoster(ctx, env, agg)
	}

	for _, username := range usernames {
		username = strings.TrimSpace(username)
		if username == "" {
			continue
		}

		env.Out.Banner("516 Hackers - Mapping social media presence for: " + username)
		report := agg.Stream(ctx, username, env.Out.Outcome)
		env.Out.PresenceReport(report)

		path, err := presence.Persist(env.Sink(presence.Tool), report)
		if err != nil {
			return err
		}
		env.Out.Saved(path)

		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "interrupted")
		}
	}
	return nil
}

func newAggregator(env *Env, roster platform.Roster) *presence.Aggregator {
	prober := probe.NewProber(env.HTTP, probe.Config{
		Timeout:   env.Cfg.Timeout(),
		UserAgent: env.UserAgent(),
	}, env.Log)
	return presence.NewAggregator(prober, roster, presence.Config{
		Concurrency: env.Cfg.Concurrency,
		Now:         env.Now,
	}, env.Log)
}

// socialRoster resolves the roster: a downloaded or configured file when
// given, the built-in one otherwise, narrowed by --sites.
func socialRoster(ctx context.Context, env *Env) (platform.Roster, error) {
	roster := platform.SocialMapRoster()

	switch {
	case env.Opts.UpdatePlatforms != "":
		dest := env.Cfg.PlatformsFile
		if dest == "" {
			dest = filepath.Join(env.Cfg.OutputDir, "platforms.yml")
		}
		env.Out.Info("Update platforms: downloading %s", env.Opts.UpdatePlatforms)
		r, err := platform.Download(ctx, env.HTTP, env.Opts.UpdatePlatforms, env.UserAgent(), dest)
		if err != nil {
			if env.Cfg.PlatformsFile == "" {
				return nil, err
			}
			env.Out.Warn("Failed to update platforms: %v (using existing)", err)
			if r, err = platform.LoadRoster(dest); err != nil {
				return nil, err
			}
		}
		roster = r
	case env.Cfg.PlatformsFile != "":
		r, err := platform.LoadRoster(env.Cfg.PlatformsFile)
		if err != nil {
			return nil, err
		}
		roster = r
	}

	return selectSites(env, roster, env.Opts.Sites), nil
}

func selectSites(env *Env, roster platform.Roster, sites []string) platform.Roster {
	if len(sites) == 0 {
		return roster
	}
	selected, unknown := roster.Select(sites)
	if len(unknown) > 0 {
		env.Out.Warn("Unknown sites ignored: %s", strings.Join(unknown, ", "))
	}
	if len(selected) == 0 {
		env.Out.Warn("No matching sites found; using all %d platforms.", len(roster))
		return roster
	}
	env.Out.Info("Using %d site(s)", len(selected))
	return selected
}

func checkRoster(ctx context.Context, env *Env, agg *presence.Aggregator) error {
	env.Out.Info("Checking platform roster...")

	failed := agg.Check(ctx, func(f presence.CheckFailure) {
		switch {
		case f.Err != nil:
			env.Out.Warn("%s: %v", f.Platform, f.Err)
		case f.Claimed.Err != nil || f.Unclaimed.Err != nil:
			var parts []string
			for _, o := range []probe.Outcome{f.Claimed, f.Unclaimed} {
				if o.Err != nil {
					parts = append(parts, "["+o.Err.Error()+"]")
				}
			}
			env.Out.Warn("%s: Failed with error %s", f.Platform, strings.Join(parts, ""))
		default:
			env.Out.Warn("%s: Not working (%s: expected true, result is %t | %s: expected false, result is %t)",
				f.Platform,
				f.Claimed.URL, f.Claimed.Exists,
				f.Unclaimed.URL, f.Unclaimed.Exists,
			)
		}
	})

	env.Out.Line("")
	if failed == 0 {
		env.Out.Success("All %d platforms behave as expected.", len(agg.Roster()))
		return nil
	}
	return errors.Errorf("%d of %d platforms failed the check", failed, len(agg.Roster()))
}

func runUserSearch(ctx context.Context, env *Env, args []string) error {
	username := strings.TrimSpace(args[0])
	roster := selectSites(env, platform.StandardSites(), env.Opts.Sites)
	agg := newAggregator(env, roster)

	env.Out.Info("516 Hackers - Searching for username: %s", username)
	report := agg.Stream(ctx, username, func(o probe.Outcome) {
		if o.Exists || env.Opts.Verbose {
			env.Out.Outcome(o)
		}
	})

	path, err := presence.PersistProfiles(env.Sink(presence.Tool), report)
	if err != nil {
		return err
	}
	env.Out.SearchSummary(report)
	env.Out.Saved(path)
	return nil
}
