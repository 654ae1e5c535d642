package observability

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const levelEnvKey = "PP_LOG_LEVEL"

// InitLogger configures the process-wide logger. Diagnostic output goes
// to stderr so command output on stdout stays pipeable.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).
		Level(levelFromEnv()).
		With().
		Timestamp().
		Str("app", app).
		Logger()
	log.Logger = logger

	return logger
}

func levelFromEnv() zerolog.Level {
	raw := strings.TrimSpace(os.Getenv(levelEnvKey))
	if raw == "" {
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}

	return level
}
