package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options controls where diagnostics go. User-facing scan output is written
// by internal/output, not through the logger.
type Options struct {
	Level  string    // "debug" | "info" | "warn" | "error"
	Stderr io.Writer // console sink, defaults to os.Stderr
	Dir    string    // when set, also append to <Dir>/516_hackers_YYYYMMDD.log
	Now    func() time.Time
}

// New builds a logger for one process. The returned closer releases the log
// file, if any.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if opts.Dir == "" {
		log.SetOutput(opts.Stderr)
		return log, nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, errors.Wrapf(err, "create log dir %s", opts.Dir)
	}
	path := filepath.Join(opts.Dir, FileName(opts.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open log file %s", path)
	}
	log.SetOutput(io.MultiWriter(opts.Stderr, f))
	return log, f, nil
}

// FileName is the daily log file name shared by every tool.
func FileName(t time.Time) string {
	return "516_hackers_" + t.Format("20060102") + ".log"
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
