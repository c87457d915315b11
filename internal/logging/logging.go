// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var levels = map[string]slog.Level{
	"DEBUG": slog.LevelDebug,
	"INFO":  slog.LevelInfo,
	"WARN":  slog.LevelWarn,
	"ERROR": slog.LevelError,
}

// ParseLevel accepts DEBUG, INFO, WARN and ERROR in any case.
func ParseLevel(s string) (slog.Level, error) {
	v, ok := levels[strings.ToUpper(s)]
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return v, nil
}

// LevelFlag is a flag.Value for a log level. Given reports whether it was
// set on the command line.
type LevelFlag struct {
	Value slog.Level
	Given bool
}

func (l *LevelFlag) String() string { return l.Value.String() }

func (l *LevelFlag) Set(value string) error {
	v, err := ParseLevel(value)
	if err != nil {
		return err
	}
	l.Value = v
	l.Given = true
	return nil
}

type Options struct {
	Level  slog.Level
	Format string // text or json
	// Console receives log output when File is empty. nil discards it.
	Console io.Writer

	File       string
	MaxSizeMB  int
	MaxBackups int
}

// New returns a logger and a closer for its output. File output is rotated
// and always JSON.
func New(o Options) (*slog.Logger, io.Closer) {
	hopts := &slog.HandlerOptions{Level: o.Level}
	if o.File != "" {
		lj := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
		}
		return slog.New(slog.NewJSONHandler(lj, hopts)), lj
	}
	w := o.Console
	if w == nil {
		w = io.Discard
	}
	if o.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts)), nopCloser{}
	}
	return slog.New(slog.NewTextHandler(w, hopts)), nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
