package logger

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

const (
	// DefaultRingCapacity is the number of entries kept before the oldest is dropped.
	DefaultRingCapacity = 1000

	// DefaultRingTTL is how long an entry stays visible.
	DefaultRingTTL = 2 * time.Hour

	// DefaultQueryLimit is used when a query does not set a limit.
	DefaultQueryLimit = 100

	// SessionIDKey is the attribute key that tags a record with an operator session.
	SessionIDKey = "session_id"
)

// Entry is a single captured log record.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"type"`
	Message   string         `json:"message"`
	SessionID string         `json:"sessionId,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Level     string
	SessionID string
	Since     time.Time
	Limit     int
}

// Ring is a bounded, time-limited, in-memory log buffer safe for concurrent use.
type Ring struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	ttl      time.Duration
	now      func() time.Time

	stopSweep chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// RingOption configures a Ring.
type RingOption func(*Ring)

// WithCapacity overrides DefaultRingCapacity.
func WithCapacity(n int) RingOption {
	return func(r *Ring) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithTTL overrides DefaultRingTTL.
func WithTTL(ttl time.Duration) RingOption {
	return func(r *Ring) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// withClock is used by tests to control entry ages.
func withClock(now func() time.Time) RingOption {
	return func(r *Ring) {
		r.now = now
	}
}

// NewRing creates a Ring and starts its background sweeper.
func NewRing(opts ...RingOption) *Ring {
	r := &Ring{
		capacity:  DefaultRingCapacity,
		ttl:       DefaultRingTTL,
		now:       time.Now,
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.sweepLoop()
	return r
}

// Close stops the sweeper. It is safe to call more than once.
func (r *Ring) Close() error {
	r.closeOnce.Do(func() {
		close(r.stopSweep)
		<-r.sweepDone
	})
	return nil
}

func (r *Ring) sweepLoop() {
	defer close(r.sweepDone)

	ticker := time.NewTicker(r.ttl / 12)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopSweep:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.pruneLocked()
			r.mu.Unlock()
		}
	}
}

// Append records an entry, evicting the oldest when the ring is full.
func (r *Ring) Append(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, e)
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = slices.Delete(r.entries, 0, over)
	}
	r.pruneLocked()
}

// pruneLocked drops entries older than the TTL. Entries are append-ordered,
// so the expired ones form a prefix.
func (r *Ring) pruneLocked() {
	cutoff := r.now().Add(-r.ttl)
	i := 0
	for i < len(r.entries) && r.entries[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		r.entries = slices.Delete(r.entries, 0, i)
	}
}

// Query returns the newest entries matching f, newest first.
func (r *Ring) Query(f Filter) []Entry {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, min(limit, len(r.entries)))
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.entries[i]
		if e.Timestamp.Before(cutoff) {
			break
		}
		if f.Level != "" && e.Level != f.Level {
			continue
		}
		if f.SessionID != "" && e.SessionID != f.SessionID {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len reports the number of live entries.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear removes every entry.
func (r *Ring) Clear() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// TeeHandler forwards records to a wrapped handler and mirrors them into a Ring.
type TeeHandler struct {
	next  slog.Handler
	ring  *Ring
	attrs []slog.Attr
	group string
}

// NewTeeHandler wraps next so that every handled record is also appended to ring.
func NewTeeHandler(next slog.Handler, ring *Ring) *TeeHandler {
	return &TeeHandler{next: next, ring: ring}
}

// Enabled implements slog.Handler.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *TeeHandler) Handle(ctx context.Context, rec slog.Record) error {
	e := Entry{
		Timestamp: rec.Time,
		Level:     levelName(rec.Level),
		Message:   rec.Message,
	}

	collect := func(a slog.Attr) bool {
		if a.Key == SessionIDKey {
			e.SessionID = a.Value.String()
			return true
		}
		if e.Attrs == nil {
			e.Attrs = make(map[string]any)
		}
		e.Attrs[a.Key] = a.Value.Any()
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		return collect(h.qualify(a))
	})

	h.ring.Append(e)
	return h.next.Handle(ctx, rec)
}

// qualify prefixes the attribute key with the open group, if any.
func (h *TeeHandler) qualify(a slog.Attr) slog.Attr {
	if h.group == "" || a.Key == SessionIDKey {
		return a
	}
	return slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
}

// WithAttrs implements slog.Handler.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := slices.Clip(h.attrs)
	for _, a := range attrs {
		merged = append(merged, h.qualify(a))
	}
	return &TeeHandler{
		next:  h.next.WithAttrs(attrs),
		ring:  h.ring,
		attrs: merged,
		group: h.group,
	}
}

// WithGroup implements slog.Handler.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &TeeHandler{
		next:  h.next.WithGroup(name),
		ring:  h.ring,
		attrs: h.attrs,
		group: group,
	}
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
