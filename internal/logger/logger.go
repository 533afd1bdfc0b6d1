package logger

import (
	"io"
	"log/slog"
	"os"

	slogotel "github.com/remychantenay/slog-otel"
)

var LogLevel = new(slog.LevelVar)

var Logger = New(os.Stderr)

// New builds a JSON logger on `w` whose records carry the active trace and span IDs
func New(w io.Writer) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: LogLevel})
	return slog.New(slogotel.NewOtelHandler(slogotel.WithNoTraceEvents(true))(jsonHandler))
}

func InitSlog(level slog.Level) {
	slog.SetDefault(Logger)
	LogLevel.Set(level)
}
