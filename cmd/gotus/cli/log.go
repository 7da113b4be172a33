package cli

import (
	"log"
	"log/slog"
	"os"
)

var stdout = log.New(os.Stdout, "[gotus] ", log.Ldate|log.Ltime)
var stderr = log.New(os.Stderr, "[gotus] ", log.Ldate|log.Ltime)

// logger is handed to the handler and hook manager after ParseFlags ran.
var logger *slog.Logger

func SetupStructuredLogger() {
	level := slog.LevelInfo
	if Flags.VerboseOutput {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var slogHandler slog.Handler
	switch Flags.LogFormat {
	case "json":
		slogHandler = slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		slogHandler = slog.NewTextHandler(os.Stdout, opts)
	default:
		stderr.Fatalf("Invalid -log-format flag: %s", Flags.LogFormat)
	}

	logger = slog.New(slogHandler)
}
