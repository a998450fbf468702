package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// DefaultConsoleBufferSize is the default capacity of the console ring
// buffer. 50 entries is enough context around a defect without holding
// unbounded history for the lifetime of a session.
const DefaultConsoleBufferSize = 50

// ConsoleBuffer records console output into a bounded ring buffer
// while forwarding every message to the original logging surface
// unchanged.
//
// Design decision: Interception is an slog.Handler decorator rather
// than a replacement logger because a decorator composes with whatever
// handler the host application already uses (text, JSON, further
// wrappers) and keeps the "transparent passthrough + side-channel
// recording" contract in one place.
type ConsoleBuffer struct {
	buf *ring[model.ConsoleLogEntry]

	mu        sync.Mutex
	installed bool

	// original is the default logger that was active before Install,
	// restored exactly on Uninstall.
	original *slog.Logger

	// now is the clock, overridable in tests.
	now func() time.Time
}

// NewConsoleBuffer creates a ConsoleBuffer holding at most max entries.
func NewConsoleBuffer(max int) *ConsoleBuffer {
	return &ConsoleBuffer{
		buf: newRing[model.ConsoleLogEntry](max),
		now: time.Now,
	}
}

// Handler returns an slog.Handler that records every record into the
// buffer and then forwards it to next unchanged. The returned handler
// is what Install wires around the process default logger; hosts with
// their own logger can wire it explicitly instead.
func (b *ConsoleBuffer) Handler(next slog.Handler) slog.Handler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &consoleHandler{buf: b, next: next}
}

// Install wraps the process default logger so each logged record is
// both recorded and forwarded. Idempotent; a second Install is a no-op
// so the original logger is never captured twice.
func (b *ConsoleBuffer) Install() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.installed {
		return
	}

	b.original = slog.Default()
	slog.SetDefault(slog.New(b.Handler(b.original.Handler())))
	b.installed = true
}

// Uninstall restores the original default logger. Idempotent and safe
// to call without a prior Install.
func (b *ConsoleBuffer) Uninstall() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.installed {
		return
	}

	slog.SetDefault(b.original)
	b.original = nil
	b.installed = false
}

// Log records one console message directly. Hosts that relay console
// events from a remote surface (rather than through slog) use this
// entry point. Non-string arguments are serialized best-effort and
// never cause a panic.
func (b *ConsoleBuffer) Log(level model.LogLevel, args ...any) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, stringify(arg))
	}

	b.buf.push(model.ConsoleLogEntry{
		Level:     level,
		Message:   strings.Join(parts, " "),
		Timestamp: b.now().UTC().Format(time.RFC3339Nano),
	})
}

// Snapshot returns a copy of the buffered entries in insertion order.
func (b *ConsoleBuffer) Snapshot() []model.ConsoleLogEntry {
	return b.buf.snapshot()
}

// Clear empties the buffer without affecting install state.
func (b *ConsoleBuffer) Clear() {
	b.buf.clear()
}

// consoleHandler is the recording decorator around another handler.
type consoleHandler struct {
	buf   *ConsoleBuffer
	next  slog.Handler
	attrs []slog.Attr
}

// Enabled always reports true so every record reaches Handle and is
// recorded; whether the record is emitted downstream is still decided
// by the wrapped handler's own level.
func (h *consoleHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle records the message and forwards the record unchanged when
// the wrapped handler would have accepted it.
func (h *consoleHandler) Handle(ctx context.Context, r slog.Record) error {
	msg := &strings.Builder{}
	msg.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(msg, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(msg, a)
		return true
	})

	h.buf.buf.push(model.ConsoleLogEntry{
		Level:     levelOf(r.Level),
		Message:   msg.String(),
		Timestamp: h.buf.now().UTC().Format(time.RFC3339Nano),
	})

	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs returns a handler that prefixes recorded messages with the
// given attributes and forwards them to the wrapped handler.
func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{buf: h.buf, next: h.next.WithAttrs(attrs), attrs: merged}
}

// WithGroup forwards grouping to the wrapped handler. Recorded
// messages keep attribute keys ungrouped; the buffer stores rendered
// text, not structured records.
func (h *consoleHandler) WithGroup(name string) slog.Handler {
	return &consoleHandler{buf: h.buf, next: h.next.WithGroup(name), attrs: h.attrs}
}

// writeAttr appends one attribute as " key=value" to the message.
func writeAttr(b *strings.Builder, a slog.Attr) {
	b.WriteString(" ")
	b.WriteString(a.Key)
	b.WriteString("=")
	b.WriteString(a.Value.String())
}

// levelOf maps slog levels onto console levels. Debug maps to the
// plain "log" level.
func levelOf(level slog.Level) model.LogLevel {
	switch {
	case level >= slog.LevelError:
		return model.LevelError
	case level >= slog.LevelWarn:
		return model.LevelWarn
	case level >= slog.LevelInfo:
		return model.LevelInfo
	default:
		return model.LevelLog
	}
}

// stringify serializes a log argument best-effort: strings pass
// through, everything else is JSON-encoded, falling back to fmt
// coercion when encoding fails. It never returns an error.
func stringify(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case error:
		return v.Error()
	}

	encoded, err := json.Marshal(arg)
	if err != nil {
		return fmt.Sprint(arg)
	}
	return string(encoded)
}
