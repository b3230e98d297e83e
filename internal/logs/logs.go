package logs

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// DefaultLogFile is where the JSON event log is appended. Every module
// start/finish and API error lands here so a run can be audited after the
// fact.
const DefaultLogFile = "dorothy.log"

var (
	fileOnce   sync.Once
	fileLogger *slog.Logger
)

// FileLogger returns a logger appending JSON records to DefaultLogFile.
// Falls back to a discard-style stderr logger if the file cannot be opened.
func FileLogger() *slog.Logger {
	fileOnce.Do(func() {
		opts := &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
		}

		f, err := os.OpenFile(DefaultLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			fileLogger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
			return
		}

		fileLogger = slog.New(slog.NewJSONHandler(f, opts))
	})

	return fileLogger
}

func ConsoleLogger() *slog.Logger {
	w := os.Stderr

	// create a new logger
	logger := slog.New(tint.NewHandler(w, nil))

	// set global logger with custom options
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.Kitchen,
		}),
	))
	return logger
}
