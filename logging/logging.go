// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Level  string // debug|info|warn|error
	Format string // text|json
	Out    io.Writer
}

// New returns a logrus logger configured from opts. An unknown level is an
// error; an empty one means info.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	logger.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.Out != nil {
		logger.SetOutput(opts.Out)
	} else {
		logger.SetOutput(os.Stderr)
	}
	return logger, nil
}

// Discard is a logger that drops everything, for tests and library callers
// that do not care.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
