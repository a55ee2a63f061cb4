// Package observability provides logging and Prometheus instrumentation.
package observability

import (
	"log/slog"
	"os"

	"github.com/preppal/interview-prep-ai/internal/config"
)

// SetupLogger configures a JSON slog logger with environment fields.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{}
	// In dev, show debug level; in prod, default to info
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(h).With(
		slog.String("service", "interview-prep-ai"),
		slog.String("env", cfg.AppEnv),
	)
	return logger
}
