// Package logging builds the loggers used across armctl: plain text
// loggers for CLI commands and a channel-backed handler that feeds
// the teleoperation UI's log pane.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ChannelHandler renders records as single display lines and sends
// them to a channel. When the channel is full the line is dropped so
// logging never blocks motion control.
type ChannelHandler struct {
	ch    chan<- string
	level slog.Level
	attrs []slog.Attr
}

func NewChannelHandler(ch chan<- string, level slog.Level) *ChannelHandler {
	return &ChannelHandler{ch: ch, level: level}
}

func (h *ChannelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ChannelHandler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	var b strings.Builder
	b.WriteString(t.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, a)
		return true
	})
	select {
	case h.ch <- b.String():
	default:
	}
	return nil
}

func (h *ChannelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup flattens groups; the log pane shows one line per record.
func (h *ChannelHandler) WithGroup(string) slog.Handler {
	return h
}

func writeAttr(b *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	fmt.Fprintf(b, " %s=%v", a.Key, a.Value)
}
