package buslog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sat8bit/firstcontact/bus"
	"github.com/sat8bit/firstcontact/event"
)

// BusHandler is a slog.Handler that writes log records to a bus.Bus.
// It wraps another slog.Handler so records still reach the original destination.
type BusHandler struct {
	bus   bus.Bus
	next  slog.Handler
	level slog.Level
	attrs []slog.Attr
	group string
}

// NewBusHandler creates a BusHandler that broadcasts records at or above level.
// next may be nil.
func NewBusHandler(b bus.Bus, next slog.Handler, level slog.Level) *BusHandler {
	return &BusHandler{
		bus:   b,
		next:  next,
		level: level,
	}
}

// Enabled reports whether either destination wants records at the given level.
func (h *BusHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.level {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

// Handle passes the record to the wrapped handler and broadcasts it to the bus
// when it is at or above the handler's level.
func (h *BusHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}
	if r.Level < h.level {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.Level, r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, h.group, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})

	at := r.Time
	if at.IsZero() {
		at = time.Now()
	}
	// バスが閉じた後のログは元の出力先だけに流す
	_ = h.bus.Broadcast(&event.Event{
		Kind:     event.KindLog,
		At:       at,
		Text:     b.String(),
		LogLevel: r.Level,
	})
	return err
}

// WithAttrs returns a new BusHandler whose attributes consist of
// the handler's attributes followed by attrs.
func (h *BusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.attrs = append(c.attrs, attrs...)
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return c
}

// WithGroup returns a new BusHandler with the given group name.
func (h *BusHandler) WithGroup(name string) slog.Handler {
	c := h.clone()
	if c.group == "" {
		c.group = name
	} else {
		c.group = c.group + "." + name
	}
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return c
}

func (h *BusHandler) clone() *BusHandler {
	attrs := make([]slog.Attr, len(h.attrs))
	copy(attrs, h.attrs)
	return &BusHandler{
		bus:   h.bus,
		next:  h.next,
		level: h.level,
		attrs: attrs,
		group: h.group,
	}
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Resolve())
}

var _ slog.Handler = (*BusHandler)(nil)
