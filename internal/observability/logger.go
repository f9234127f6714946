package observability

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vizdbg/bridge/internal/logging"
)

func InitLogger(app string) zerolog.Logger {
	logger := newLogger(newConsoleWriter(logging.Current()), app, logging.Current())
	log.Logger = logger
	return logger
}

// InitFileLogger builds a logger writing both to the console and to the
// shared log file whose path is also handed to the viewer process, so both
// sides of the link land in one sink.
func InitFileLogger(app, path string) (zerolog.Logger, io.Closer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("observability: open log file: %w", err)
	}
	cfg := logging.Current()
	writer := zerolog.MultiLevelWriter(newConsoleWriter(cfg), file)
	logger := newLogger(writer, app, cfg)
	log.Logger = logger
	return logger, file, nil
}

func newConsoleWriter(cfg logging.Config) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}
}

func newLogger(w io.Writer, app string, cfg logging.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Str("app", app)
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}
