package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

var ErrHelp = errors.New("help requested")

// ErrUsage wraps argument errors; callers exit with status 2.
var ErrUsage = errors.New("usage error")

// Tool names one of the toolkit binaries.
type Tool string

const (
	SocialMap  Tool = "social516"
	UserSearch Tool = "investigate516"
	Instagram  Tool = "ig516"
	Metadata   Tool = "meta516"
	Image      Tool = "image516"
	Email      Tool = "email516"
	Domain     Tool = "domain516"
	Report     Tool = "report516"
)

// Options carries every flag; each tool registers only the ones it uses.
// Zero values mean "take it from the config file".
type Options struct {
	NoColor    bool
	Verbose    bool
	ConfigFile string
	OutputDir  string

	Timeout     int
	Concurrency int
	WithTor     bool

	Sites           []string
	PlatformsFile   string
	UpdatePlatforms string
	Check           bool

	Download bool

	Clean   bool
	Geocode bool

	Threshold int

	File string

	Directory string
	Title     string
}

const commonFlags = `
common flags:
  -h, --help            show this help message and exit
  -o, --output DIR      output directory (default: outputs)
  --config PATH         YAML config file (default: osint516.yml when present)
  --no-color            disable colored stdout output
  -v, --verbose         debug logging
`

const networkFlags = `  --timeout SECONDS     HTTP request timeout (default: 10)
  --concurrency N       max concurrent requests (default: 6)
  -t, --tor             route HTTP through the Tor SOCKS proxy
`

var usageTexts = map[Tool]string{
	SocialMap: `
usage:
  social516 [flags] USERNAME [USERNAMES...]
  social516 --check

Map a username's presence across social media platforms.

flags:
  --sites S1,S2,...     only check these platforms
  --platforms PATH      load the platform roster from a YAML/JSON file
  --update-platforms URL
                        download a roster into --platforms before running
  --check               verify the roster with known claimed/unclaimed usernames
` + networkFlags,
	UserSearch: `
usage:
  investigate516 [flags] USERNAME

Search a username on the standard sites and write USERNAME_profiles.json.

flags:
  --sites S1,S2,...     only check these sites
` + networkFlags,
	Instagram: `
usage:
  ig516 [flags] USERNAME

Analyze a public Instagram profile.

flags:
  -d, --download        also download profile media
` + networkFlags,
	Metadata: `
usage:
  meta516 [flags] PATH

Extract image metadata from a file or every image in a directory.

flags:
  -c, --clean           write a metadata-free copy instead of analyzing
  --geocode             resolve GPS coordinates to an address (OpenStreetMap)
`,
	Image: `
usage:
  image516 [flags] hash IMAGE
  image516 [flags] compare IMAGE1 IMAGE2
  image516 [flags] find-similar DIRECTORY

Perceptual hashing and similarity detection.

flags:
  --threshold N         max hash difference for "similar" (default: 10)
`,
	Email: `
usage:
  email516 [flags] EMAIL
  email516 [flags] -f FILE

Validate email addresses and analyze their patterns.

flags:
  -f, --file PATH       file with one address per line
  --timeout SECONDS     DNS timeout (default: 10)
  --concurrency N       parallel lookups for -f (default: 6)
`,
	Domain: `
usage:
  domain516 [flags] DOMAIN

WHOIS, DNS, HTTP header and IP research for a domain.

flags:
` + networkFlags,
	Report: `
usage:
  report516 [flags]

Combine result files into one unified report.

flags:
  -d, --directory DIR   directory containing result files (default: outputs)
  -T, --title TITLE     report title
`,
}

// Usage returns the help text of a tool.
func Usage(tool Tool) string {
	return usageTexts[tool] + commonFlags
}

func Parse(tool Tool, args []string, stdout, stderr io.Writer) (Options, []string, error) {
	if _, ok := usageTexts[tool]; !ok {
		return Options{}, nil, fmt.Errorf("unknown tool %q", tool)
	}

	var opts Options
	var (
		help     bool
		sitesCSV string
	)

	fs := flag.NewFlagSet(string(tool), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprint(stdout, Usage(tool))
	}

	// Help
	fs.BoolVar(&help, "h", false, "show help")
	fs.BoolVar(&help, "help", false, "show help")

	// Common
	fs.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	fs.BoolVar(&opts.Verbose, "v", false, "debug logging")
	fs.BoolVar(&opts.Verbose, "verbose", false, "debug logging")
	fs.StringVar(&opts.ConfigFile, "config", "", "config file")
	fs.StringVar(&opts.OutputDir, "o", "", "output directory")
	fs.StringVar(&opts.OutputDir, "output", "", "output directory")

	switch tool {
	case SocialMap, UserSearch, Instagram, Domain, Email:
		fs.IntVar(&opts.Timeout, "timeout", 0, "request timeout in seconds")
		fs.IntVar(&opts.Concurrency, "concurrency", 0, "max concurrent requests")
	}
	switch tool {
	case SocialMap, UserSearch, Instagram, Domain:
		fs.BoolVar(&opts.WithTor, "t", false, "use tor proxy")
		fs.BoolVar(&opts.WithTor, "tor", false, "use tor proxy")
	}

	switch tool {
	case SocialMap:
		fs.StringVar(&sitesCSV, "sites", "", "comma-separated platform list")
		fs.StringVar(&opts.PlatformsFile, "platforms", "", "roster file")
		fs.StringVar(&opts.UpdatePlatforms, "update-platforms", "", "roster download url")
		fs.BoolVar(&opts.Check, "check", false, "verify the roster")
	case UserSearch:
		fs.StringVar(&sitesCSV, "sites", "", "comma-separated site list")
	case Instagram:
		fs.BoolVar(&opts.Download, "d", false, "download media")
		fs.BoolVar(&opts.Download, "download", false, "download media")
	case Metadata:
		fs.BoolVar(&opts.Clean, "c", false, "clean metadata")
		fs.BoolVar(&opts.Clean, "clean", false, "clean metadata")
		fs.BoolVar(&opts.Geocode, "geocode", false, "reverse geocode GPS")
	case Image:
		fs.IntVar(&opts.Threshold, "threshold", 0, "similarity threshold")
	case Email:
		fs.StringVar(&opts.File, "f", "", "address list file")
		fs.StringVar(&opts.File, "file", "", "address list file")
	case Report:
		fs.StringVar(&opts.Directory, "d", "", "results directory")
		fs.StringVar(&opts.Directory, "directory", "", "results directory")
		fs.StringVar(&opts.Title, "T", "", "report title")
		fs.StringVar(&opts.Title, "title", "", "report title")
	}

	if err := fs.Parse(args); err != nil {
		return Options{}, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if help {
		fs.Usage()
		return Options{}, nil, ErrHelp
	}

	if opts.Timeout < 0 || opts.Concurrency < 0 || opts.Threshold < 0 {
		return Options{}, nil, fmt.Errorf("%w: negative numeric flag", ErrUsage)
	}

	opts.Sites = splitCSV(sitesCSV)
	positional := fs.Args()

	if err := checkArgs(tool, opts, positional); err != nil {
		return Options{}, nil, err
	}
	return opts, positional, nil
}

func checkArgs(tool Tool, opts Options, args []string) error {
	want := func(ok bool, msg string) error {
		if ok {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUsage, msg)
	}

	switch tool {
	case SocialMap:
		return want(len(args) > 0 || opts.Check, "at least one USERNAME is required")
	case UserSearch, Instagram:
		return want(len(args) == 1, "exactly one USERNAME is required")
	case Metadata:
		return want(len(args) == 1, "exactly one PATH is required")
	case Domain:
		return want(len(args) == 1, "exactly one DOMAIN is required")
	case Email:
		if opts.File != "" {
			return want(len(args) == 0, "give either EMAIL or -f FILE")
		}
		return want(len(args) == 1, "provide an EMAIL or -f FILE")
	case Image:
		if len(args) == 0 {
			return want(false, "a command is required: hash, compare or find-similar")
		}
		n := map[string]int{"hash": 1, "compare": 2, "find-similar": 1}
		expected, ok := n[args[0]]
		if !ok {
			return want(false, "unknown command "+args[0])
		}
		return want(len(args)-1 == expected, fmt.Sprintf("%s takes %d argument(s)", args[0], expected))
	case Report:
		return want(len(args) == 0, "report516 takes no positional arguments")
	}
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
