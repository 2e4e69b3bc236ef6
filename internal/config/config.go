package config

import (
	"os"
	"time"

	"github.com/jinzhu/configor"
	"github.com/k0kubun/pp/v3"
	"github.com/pkg/errors"
)

// DefaultFile is picked up from the working directory when present.
const DefaultFile = "osint516.yml"

// ErrMissingFile is returned for a config file that was named explicitly but
// does not exist.
var ErrMissingFile = errors.New("config file not found")

// EnvPrefix prefixes every environment override, e.g. OSINT516_OUTPUTDIR.
const EnvPrefix = "OSINT516"

type Config struct {
	OutputDir      string `default:"outputs" yaml:"output_dir"`
	TimeoutSeconds int    `default:"10" yaml:"timeout_seconds"`
	Concurrency    int    `default:"6" yaml:"concurrency"`

	UserAgents []string `yaml:"user_agents"`

	LogLevel  string `default:"info" yaml:"log_level"`
	NoLogFile bool   `yaml:"no_log_file"` // disables <output>/516_hackers_YYYYMMDD.log

	WithTor     bool   `default:"false" yaml:"with_tor"`
	TorProxyURL string `default:"socks5://127.0.0.1:9050" yaml:"tor_proxy_url"`

	// PlatformsFile overrides the built-in roster when set.
	PlatformsFile string `yaml:"platforms_file"`

	SimilarityThreshold int    `default:"10" yaml:"similarity_threshold"`
	DNSServer           string `yaml:"dns_server"` // host:port, empty = /etc/resolv.conf
}

// Load fills a Config from defaults, the given YAML files and OSINT516_*
// environment variables, in that order. Every named file must exist; with no
// files, DefaultFile is used only if it is present.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = optional(DefaultFile)
	}
	for _, f := range files {
		if !isFile(f) {
			return nil, errors.Wrapf(ErrMissingFile, "%s", f)
		}
	}

	cfg := &Config{}
	loader := configor.New(&configor.Config{
		ENVPrefix: EnvPrefix,
		Silent:    true,
	})
	if err := loader.Load(cfg, files...); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Dump renders the effective configuration for debug logging.
func (c *Config) Dump() string {
	printer := pp.New()
	printer.SetColoringEnabled(false)
	return printer.Sprint(c)
}

func optional(f string) []string {
	if isFile(f) {
		return []string{f}
	}
	return nil
}

func isFile(f string) bool {
	st, err := os.Stat(f)
	return err == nil && st.Mode().IsRegular()
}
