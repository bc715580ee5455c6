// Package logging builds the logrus loggers used across the flasher.
//
// Verbosity is passed in explicitly; there is no package-level logger to
// mutate.
package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options configures a root logger.
type Options struct {
	// Debug enables debug level output, including every protocol record
	Debug bool

	// Format is "text" (default) or "json"
	Format string

	// Output defaults to os.Stderr
	Output io.Writer
}

// New returns a root logger configured from opts.
func New(opts Options) (*logrus.Logger, error) {
	l := logrus.New()

	switch opts.Format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("unknown log format %q", opts.Format)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	l.SetLevel(logrus.InfoLevel)
	if opts.Debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l, nil
}

// Component tags every entry of l with the component name.
func Component(l logrus.FieldLogger, component string) logrus.FieldLogger {
	return l.WithField("component", component)
}

// Discard returns a logger that drops everything.
func Discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// Fields converts alternating key/value arguments into logrus fields.
// Non-string keys and a trailing odd value are dropped.
func Fields(keysAndValues ...interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			f[k] = keysAndValues[i+1]
		}
	}
	return f
}
