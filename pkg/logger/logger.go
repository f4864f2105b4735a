// Package logger builds the slog loggers used by allieproxy: a console logger
// in the operator's chosen format and, optionally, a JSON log file teed
// alongside it.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	format Format
	caller bool
	out    io.Writer
}

// New builds a *slog.Logger from the given options. Without options it writes
// text records at Info level to stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		format: FormatText,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.out == nil {
		c.out = os.Stdout
	}

	if c.format == FormatPretty {
		return slog.New(charmlog.NewWithOptions(c.out, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			ReportCaller:    c.caller,
			Prefix:          "allieproxy",
		}))
	}

	hopts := &slog.HandlerOptions{Level: c.level, AddSource: c.caller}
	if c.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(c.out, hopts))
	}
	return slog.New(slog.NewTextHandler(c.out, hopts))
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
