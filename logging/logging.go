package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"unityarchitect/config"
)

// InitLogger configures the global logrus logger. The returned closer releases
// the log file when output is a path; it is a no-op for stdout and stderr.
func InitLogger(cfg config.LoggingConfig) io.Closer {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("Invalid log level '%s', using 'info' instead. Error: %v", cfg.Level, err)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var closer io.Closer = nopCloser{}
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		logrus.SetOutput(os.Stdout)
	case "stderr":
		logrus.SetOutput(os.Stderr)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			logrus.Warnf("Failed to open log file '%s', using 'stdout' instead. Error: %v", cfg.Output, err)
			logrus.SetOutput(os.Stdout)
		} else {
			logrus.SetOutput(file)
			closer = file
		}
	}

	logrus.Debug("Logger initialized")
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
