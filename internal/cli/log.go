package cli

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

// newLogger returns a tint logger writing to w whose level follows level.
func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.00",
	}))
}
