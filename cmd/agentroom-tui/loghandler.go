package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg carries a slog record into the model for the status line
// and the rolling log in the sidebar.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// tuiLogHandler forwards records to the running program. Records that
// arrive before setProgram are dropped. Derived handlers share the program
// pointer.
type tuiLogHandler struct {
	level   slog.Leveler
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	group   string
}

func newTUILogHandler(level slog.Leveler) *tuiLogHandler {
	return &tuiLogHandler{level: level, program: &atomic.Pointer[tea.Program]{}}
}

func (h *tuiLogHandler) setProgram(p *tea.Program) {
	h.program.Store(p)
}

func (h *tuiLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *tuiLogHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}
	parts := make([]string, 0, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		parts = append(parts, h.format(attr))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, h.format(attr))
		return true
	})
	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	msg := logRecordMsg{Summary: summary, Level: record.Level}
	// Send blocks until the event loop receives; records logged from inside
	// Update would deadlock without the goroutine.
	go program.Send(msg)
	return nil
}

func (h *tuiLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *tuiLogHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group == "" {
		next.group = name
	} else {
		next.group += "." + name
	}
	return &next
}

func (h *tuiLogHandler) format(attr slog.Attr) string {
	key := attr.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	return fmt.Sprintf("%s=%s", key, attr.Value)
}

// fanoutHandler writes each record to every handler that wants it.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
