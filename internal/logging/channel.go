package logging

import (
	"context"
	"log/slog"
	"slices"
)

// Entry is a record logged by a worker, with the attributes and groups its
// logger had accumulated
type Entry struct {
	Record slog.Record
	goas   []groupOrAttrs
}

// groupOrAttrs holds either a group name or a list of attributes
type groupOrAttrs struct {
	group string
	attrs []slog.Attr
}

// Replay handles the entry on h as if it had been logged there directly
func (e Entry) Replay(ctx context.Context, h slog.Handler) error {
	for _, goa := range e.goas {
		if goa.group != "" {
			h = h.WithGroup(goa.group)
		} else {
			h = h.WithAttrs(goa.attrs)
		}
	}
	if !h.Enabled(ctx, e.Record.Level) {
		return nil
	}
	return h.Handle(ctx, e.Record)
}

// ChannelHandler sends every record to a channel instead of writing it.
// Handle blocks until the record is received.
type ChannelHandler struct {
	ch    chan<- Entry
	level slog.Leveler
	goas  []groupOrAttrs
}

// NewChannelHandler creates a handler sending records at or above level to ch
func NewChannelHandler(ch chan<- Entry, level slog.Leveler) *ChannelHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &ChannelHandler{ch: ch, level: level}
}

// Enabled implements slog.Handler
func (h *ChannelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler
func (h *ChannelHandler) Handle(_ context.Context, r slog.Record) error {
	h.ch <- Entry{Record: r.Clone(), goas: h.goas}
	return nil
}

// WithAttrs implements slog.Handler
func (h *ChannelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.withGroupOrAttrs(groupOrAttrs{attrs: attrs})
}

// WithGroup implements slog.Handler
func (h *ChannelHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.withGroupOrAttrs(groupOrAttrs{group: name})
}

func (h *ChannelHandler) withGroupOrAttrs(goa groupOrAttrs) *ChannelHandler {
	h2 := *h
	h2.goas = append(slices.Clip(h.goas), goa)
	return &h2
}
