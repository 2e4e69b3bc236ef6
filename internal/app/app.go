package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/516hackers/osint516/internal/cli"
	"github.com/516hackers/osint516/internal/config"
	"github.com/516hackers/osint516/internal/domain"
	"github.com/516hackers/osint516/internal/httpx"
	"github.com/516hackers/osint516/internal/logger"
	"github.com/516hackers/osint516/internal/output"
	"github.com/516hackers/osint516/internal/sink"
	"github.com/516hackers/osint516/internal/version"
)

// Env is everything a tool run needs. It is built once per process and
// passed explicitly; tests replace the network-facing fields.
type Env struct {
	Tool cli.Tool
	Opts cli.Options
	Cfg  *config.Config
	Log  *logrus.Logger
	HTTP httpx.Doer
	Out  *output.Printer
	Now  func() time.Time

	Whois            domain.WhoisFetcher
	Hosts            domain.HostResolver
	Geocoder         geo.Geocoder
	InstagramBaseURL string

	closer io.Closer
}

type runner func(ctx context.Context, env *Env, args []string) error

var runners = map[cli.Tool]runner{
	cli.SocialMap:  runSocialMap,
	cli.UserSearch: runUserSearch,
	cli.Instagram:  runInstagram,
	cli.Metadata:   runMetadata,
	cli.Image:      runImage,
	cli.Email:      runEmail,
	cli.Domain:     runDomain,
	cli.Report:     runReport,
}

// Exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitOutputDir = 3
)

// Run executes one tool and returns its process exit code.
func Run(ctx context.Context, tool cli.Tool, args []string, stdout, stderr io.Writer) int {
	return run(ctx, tool, args, stdout, stderr, nil)
}

func run(ctx context.Context, tool cli.Tool, args []string, stdout, stderr io.Writer, tweak func(*Env)) int {
	opts, positional, err := cli.Parse(tool, args, stdout, stderr)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintln(stderr, err.Error())
		fmt.Fprintf(stderr, "run '%s -h' for usage\n", tool)
		return ExitUsage
	}

	env, err := newEnv(tool, opts, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitCode(err)
	}
	defer env.Close()

	if tweak != nil {
		tweak(env)
	}

	if err := runners[tool](ctx, env, positional); err != nil {
		env.Log.WithError(err).Error(string(tool) + " failed")
		return exitCode(err)
	}
	return ExitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, cli.ErrUsage):
		return ExitUsage
	case errors.Is(err, sink.ErrOutputDir):
		return ExitOutputDir
	default:
		return ExitFailure
	}
}

func newEnv(tool cli.Tool, opts cli.Options, stdout, stderr io.Writer) (*Env, error) {
	var files []string
	if opts.ConfigFile != "" {
		files = append(files, opts.ConfigFile)
	}
	cfg, err := config.Load(files...)
	if errors.Is(err, config.ErrMissingFile) {
		return nil, usageErr("%v", err)
	}
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, opts)

	color.NoColor = opts.NoColor

	logDir := cfg.OutputDir
	if cfg.NoLogFile {
		logDir = ""
	}
	log, closer, err := logger.New(logger.Options{Level: cfg.LogLevel, Stderr: stderr, Dir: logDir})
	if err != nil {
		return nil, errors.Wrapf(sink.ErrOutputDir, "%v", err)
	}
	log.WithFields(logrus.Fields{"tool": tool, "version": version.Version}).Debug("starting")
	log.Debug("effective config: " + cfg.Dump())

	client, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:     cfg.Timeout(),
		WithTor:     cfg.WithTor,
		TorProxyURL: cfg.TorProxyURL,
	})
	if err != nil {
		_ = closer.Close()
		return nil, errors.Wrap(err, "initialize HTTP client")
	}

	return &Env{
		Tool:     tool,
		Opts:     opts,
		Cfg:      cfg,
		Log:      log,
		HTTP:     client,
		Out:      output.NewPrinter(stdout, opts.NoColor),
		Now:      time.Now,
		Whois:    domain.NewWhoisClient(cfg.Timeout()),
		Hosts:    net.DefaultResolver,
		Geocoder: openstreetmap.Geocoder(),
		closer:   closer,
	}, nil
}

// applyFlags lets command-line flags win over the config file.
func applyFlags(cfg *config.Config, opts cli.Options) {
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if opts.Timeout > 0 {
		cfg.TimeoutSeconds = opts.Timeout
	}
	if opts.Concurrency > 0 {
		cfg.Concurrency = opts.Concurrency
	}
	if opts.WithTor {
		cfg.WithTor = true
	}
	if opts.PlatformsFile != "" {
		cfg.PlatformsFile = opts.PlatformsFile
	}
	if opts.Threshold > 0 {
		cfg.SimilarityThreshold = opts.Threshold
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
}

func (e *Env) Close() {
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

// Sink writes result files for the named tool into the output directory.
func (e *Env) Sink(tool string) *sink.Sink {
	s := sink.New(e.Cfg.OutputDir, tool)
	s.Now = e.Now
	return s
}

func (e *Env) UserAgent() string {
	return httpx.PickUserAgent(e.Cfg.UserAgents)
}

func usageErr(format string, args ...any) error {
	return errors.Wrapf(cli.ErrUsage, format, args...)
}
