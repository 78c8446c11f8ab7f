package logging

import (
	"io"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger configures the standard logrus logger from the environment.
func SetupLogger() {
	Configure(logger.StandardLogger(), GetConfig())
}

// Configure applies cfg to l. Unknown levels fall back to debug.
func Configure(l *logger.Logger, cfg Config) {
	level, err := logger.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = logger.DebugLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		l.SetFormatter(&logger.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		l.SetFormatter(&logger.TextFormatter{
			FullTimestamp: true,
		})
	}

	l.SetOutput(output(cfg))
}

func output(cfg Config) io.Writer {
	switch strings.ToLower(cfg.LogOutput) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		return &lumberjack.Logger{
			Filename: cfg.LogOutput,
			MaxAge:   cfg.LogMaxAge,
			MaxSize:  cfg.LogMaxSize,
			Compress: true,
		}
	}
}

// Component returns an entry tagged with the component name.
func Component(name string) *logger.Entry {
	return logger.WithField("component", name)
}
