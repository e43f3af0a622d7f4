// Command spectacles-xix posts a Paris stage performance from 200 years ago
// to X and Mastodon. It is meant to run hourly from cron or a scheduler:
//   - Loads .env, configures structured logging from LOG_LEVEL and LOG_FORMAT.
//   - Hands over to the cobra command line (see package cli).
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/onnwee/spectacles-xix/cli"
)

var version = "dev"

func main() {
	// local development convenience; production relies on the real environment
	_ = godotenv.Load()

	slog.SetDefault(slog.New(newHandler(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))))

	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}

// newHandler builds the slog handler. Defaults: level=info, format=text.
func newHandler(level, format string) slog.Handler {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", level))
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}
