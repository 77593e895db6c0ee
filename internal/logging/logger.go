package logging

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures New. A nil Writer means os.Stderr; an empty Format means text.
type Options struct {
	Level  slog.Level
	Format Format
	Writer io.Writer
}

// New creates the arbor logger. Run reports own stdout, so logs default to stderr and a
// piped report stays parseable. JSON logs are meant for runs whose report is JSON too.
// The "error" key is renamed to "err" so both spellings end up in one field.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{
		Level: opts.Level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if opts.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}

// NewNop returns a logger that drops everything. Packages use it when no logger is given.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
