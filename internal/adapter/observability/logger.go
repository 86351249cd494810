package observability

import (
	"log/slog"
	"os"

	"github.com/hiregrid/matchengine/internal/config"
)

// SetupLogger builds the process logger. Dev gets a human-readable text
// handler at debug level; everything else logs JSON at info. Base attributes
// carry the service identity and the active scoring mode, since the mode
// changes the meaning of every score the engine emits.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{}
	var h slog.Handler
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
		slog.String("scoring_mode", cfg.ScoringMode),
	)
}
