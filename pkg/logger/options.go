package logger

import (
	"io"
	"log/slog"
)

// Format selects the record encoding used by New.
type Format string

const (
	// FormatPretty renders colorized console lines via charmbracelet/log.
	FormatPretty Format = "pretty"
	// FormatText renders slog's logfmt-style key=value lines.
	FormatText Format = "text"
	// FormatJSON renders one JSON object per record, for log files and collectors.
	FormatJSON Format = "json"
)

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug so per-request relay traces are kept.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithFormat picks the encoding. An empty or unrecognized value selects
// FormatPretty, the console default for log.format.
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatText, FormatJSON:
			c.format = f
		default:
			c.format = FormatPretty
		}
	}
}

// WithWriter overrides the output writer. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// WithCaller adds the file:line of the logging call to every record.
func WithCaller(on bool) Option {
	return func(c *config) {
		c.caller = on
	}
}
