package logx

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	sfmt "github.com/samber/slog-formatter"
)

// SensitiveKeys are attribute keys whose values are always masked.
var SensitiveKeys = []string{"token", "password", "secret", "authorization"}

// Options configures New.
type Options struct {
	Level string // debug, info, warn, error
	JSON  bool
	// Color enables ANSI colour when the output is a terminal.
	Color bool
}

// New builds a logger writing to w. Console output uses tint; JSON output uses the
// standard JSON handler. Both mask SensitiveKeys and flatten errors under "err".
func New(w io.Writer, opts Options) *slog.Logger {
	level := ParseLevel(opts.Level)

	var base slog.Handler
	if opts.JSON {
		base = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		base = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
			NoColor:    !(opts.Color && isTerminal(w)),
		})
	}

	formatters := []sfmt.Formatter{
		sfmt.ErrorFormatter("err"),
		sfmt.ErrorFormatter("error"),
	}
	for _, key := range SensitiveKeys {
		formatters = append(formatters, sfmt.FormatByKey(key, maskValue))
	}
	return slog.New(sfmt.NewFormatterHandler(formatters...)(base))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel parses a level name, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
