package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/config"
	"github.com/rs/zerolog"
)

func SetupLogger(cfg *config.LoggingConfig) zerolog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.LoggingConfig, out io.Writer) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg))

	zerolog.TimeFieldFormat = time.RFC3339

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	logger := zerolog.New(consoleWriter).
		With().
		Timestamp().
		Caller().
		Str("service", "docker_mqtt_sync").
		Str("host", hostname).
		Logger()

	return logger
}

// ParseLevel resolves the effective level; the debug flag wins over log_level.
func ParseLevel(cfg *config.LoggingConfig) zerolog.Level {
	if cfg.Debug {
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
