package diag

import (
	"net/http"
	"sync"
	"time"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// DefaultRequestBufferSize is the default capacity of the network ring
// buffer, independent of the console buffer capacity.
const DefaultRequestBufferSize = 50

// NetworkBuffer records the outcome of every request issued through
// the instrumented transports into a bounded ring buffer.
//
// Two ambient primitives are covered, mirroring the promise-based and
// callback-based request surfaces of a host page: Transport wraps an
// http.RoundTripper, and Observe instruments callers that report
// completion through a callback. Both are timestamped at issue time
// and produce exactly one entry per request, including requests that
// fail before any response arrives.
type NetworkBuffer struct {
	buf *ring[model.NetworkRequestEntry]

	mu        sync.Mutex
	installed bool

	// original is the transport that was installed process-wide before
	// Install, restored exactly on Uninstall.
	original http.RoundTripper

	now func() time.Time
}

// NewNetworkBuffer creates a NetworkBuffer holding at most max entries.
func NewNetworkBuffer(max int) *NetworkBuffer {
	return &NetworkBuffer{
		buf: newRing[model.NetworkRequestEntry](max),
		now: time.Now,
	}
}

// Transport returns a RoundTripper that records each request's outcome
// and otherwise behaves exactly like base: the response and error are
// returned unmodified. A nil base wraps http.DefaultTransport.
func (b *NetworkBuffer) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &recordingTransport{buf: b, base: base}
}

// Client returns a copy of base whose transport records into the
// buffer. A nil base copies http.DefaultClient.
func (b *NetworkBuffer) Client(base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	clone := *base
	clone.Transport = b.Transport(base.Transport)
	return &clone
}

// Install wraps the process-wide default transport so ambient HTTP
// traffic is recorded. Idempotent; a second Install is a no-op.
func (b *NetworkBuffer) Install() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.installed {
		return
	}

	b.original = http.DefaultTransport
	http.DefaultTransport = b.Transport(b.original)
	b.installed = true
}

// Uninstall restores the original default transport. Idempotent and
// safe to call without a prior Install.
func (b *NetworkBuffer) Uninstall() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.installed {
		return
	}

	http.DefaultTransport = b.original
	b.original = nil
	b.installed = false
}

// Observe instruments one callback-style request. It timestamps the
// request at issue time and returns a completion function that must be
// called exactly once with the final status (0 when the request failed
// before any response) and error.
func (b *NetworkBuffer) Observe(method, url string) func(status int, err error) {
	started := b.now()
	timestamp := started.UTC().Format(time.RFC3339Nano)

	return func(status int, err error) {
		entry := model.NetworkRequestEntry{
			Transport:  model.TransportXHR,
			Method:     method,
			URL:        url,
			DurationMS: b.now().Sub(started).Milliseconds(),
			Timestamp:  timestamp,
		}
		if err != nil {
			entry.Error = err.Error()
			if status > 0 {
				entry.Status = status
				ok := false
				entry.OK = &ok
			}
		} else {
			ok := status >= 200 && status < 300
			entry.Status = status
			entry.OK = &ok
		}
		b.buf.push(entry)
	}
}

// Snapshot returns a copy of the buffered entries in insertion order.
func (b *NetworkBuffer) Snapshot() []model.NetworkRequestEntry {
	return b.buf.snapshot()
}

// Clear empties the buffer without affecting install state.
func (b *NetworkBuffer) Clear() {
	b.buf.clear()
}

// recordingTransport is the passthrough RoundTripper decorator.
type recordingTransport struct {
	buf  *NetworkBuffer
	base http.RoundTripper
}

// RoundTrip forwards the request to the wrapped transport and records
// exactly one entry for its outcome. A transport-level failure records
// the error with no status.
func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	started := t.buf.now()
	entry := model.NetworkRequestEntry{
		Transport: model.TransportFetch,
		Method:    req.Method,
		URL:       req.URL.String(),
		Timestamp: started.UTC().Format(time.RFC3339Nano),
	}

	resp, err := t.base.RoundTrip(req)
	entry.DurationMS = t.buf.now().Sub(started).Milliseconds()

	if err != nil {
		entry.Error = err.Error()
		t.buf.buf.push(entry)
		return resp, err
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	entry.Status = resp.StatusCode
	entry.OK = &ok
	t.buf.buf.push(entry)
	return resp, nil
}
