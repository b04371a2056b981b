package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Level defaults to info;
// set TAXRELAY_LOG_LEVEL=debug to see per-attempt webhook logging.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("TAXRELAY_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
