package capture

import (
	"context"
	"errors"
	"image"
	"time"

	"golang.org/x/net/html"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// Host-surface sentinel errors. Implementations of the interfaces
// below return these so the engines can classify failures without
// depending on a concrete host.
var (
	// ErrPermissionDenied is returned by a DisplayDevice when the user
	// declines the capture prompt.
	ErrPermissionDenied = errors.New("capture permission denied by user")

	// ErrSelectionCancelled is returned by a Selector when the user
	// aborts selection (escape) rather than committing a rectangle.
	ErrSelectionCancelled = errors.New("selection cancelled by user")

	// ErrStreamEnded is returned by a DisplayStream whose track has
	// ended (for example the user pressed the browser's stop-sharing
	// button) before a frame could be read.
	ErrStreamEnded = errors.New("display stream ended")
)

// Region is an axis-aligned rectangle in viewport coordinates.
type Region struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Intersects reports whether the two regions overlap with positive
// area. Touching edges do not count as overlap.
func (r Region) Intersects(o Region) bool {
	return r.Left < o.Left+o.Width &&
		o.Left < r.Left+r.Width &&
		r.Top < o.Top+o.Height &&
		o.Top < r.Top+r.Height
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// FrameRegion describes one embedded frame on the host page.
type FrameRegion struct {
	Region

	// Introspectable is false when the frame's content cannot be
	// inspected by the host (accessing its document throws). Such
	// frames cannot be rasterized from the document tree.
	Introspectable bool
}

// Screen is the engines' view of the host page.
//
// Design decision: We require a mutable document tree rather than
// opaque mask/redact callbacks because the masking and redaction
// algorithms — which elements match, which text changes, and how it is
// all restored — are core behavior that must be identical across
// hosts, not re-implemented per host.
type Screen interface {
	// Viewport returns the rendered surface dimensions and pixel ratio.
	Viewport() model.Viewport

	// Document returns the live document tree. Mutations made to the
	// tree are visible to subsequent Rasterize calls.
	Document() *html.Node

	// Rasterize renders the full document, at full scroll extent, into
	// a bitmap. The bitmap is scaled by the device pixel ratio.
	Rasterize(ctx context.Context) (image.Image, error)

	// Frames returns the geometry of embedded frames in viewport
	// coordinates. Frames with no area may be omitted.
	Frames() []FrameRegion
}

// Selector performs interactive region selection on the host surface.
// Implementations block until the user commits a rectangle or cancels,
// returning ErrSelectionCancelled for a deliberate abort.
type Selector interface {
	Select(ctx context.Context) (Region, error)
}

// DisplaySurface identifies what kind of surface a display stream
// captures.
type DisplaySurface string

// Display surfaces a user can share.
const (
	SurfaceMonitor DisplaySurface = "monitor"
	SurfaceWindow  DisplaySurface = "window"
	SurfaceBrowser DisplaySurface = "browser"
	SurfaceUnknown DisplaySurface = ""
)

// DisplayOptions constrains a display-capture request.
type DisplayOptions struct {
	// PreferMonitor asks the host to offer only the entire-monitor
	// surface. Hosts that cannot constrain the picker report the
	// chosen surface through DisplayStream.Surface instead.
	PreferMonitor bool
}

// DisplayDevice acquires a permission-gated display-capture stream.
// Acquisition blocks on the user's permission decision; a declined
// prompt returns ErrPermissionDenied.
type DisplayDevice interface {
	Capture(ctx context.Context, opts DisplayOptions) (DisplayStream, error)
}

// DisplayStream is a live display-capture stream. It is exclusively
// owned by the capture or recording call that acquired it and must be
// released on every exit path; Close is idempotent.
type DisplayStream interface {
	// NextFrame blocks until a fresh video frame is available and
	// returns it. Frames delivered before the call are never returned,
	// so two consecutive calls observe two distinct post-call frames.
	NextFrame(ctx context.Context) (image.Image, error)

	// Surface reports which surface the user chose to share.
	Surface() DisplaySurface

	// Live reports whether the stream's track is still producing.
	Live() bool

	// Close releases the stream's tracks. Safe to call more than once.
	Close() error
}

// Chunk is one piece of encoded recording data.
type Chunk struct {
	Data []byte
}

// Recorder encodes a display stream into timed chunks.
type Recorder interface {
	// Start begins encoding, emitting a chunk roughly every timeslice.
	// The returned channel is closed after Stop once all pending data
	// has been flushed.
	Start(timeslice time.Duration) (<-chan Chunk, error)

	// Stop ends encoding and flushes remaining data. Idempotent.
	Stop() error

	// MimeType reports the encoding actually in use.
	MimeType() string
}

// RecorderFactory creates recorders and answers encoding support
// queries, mirroring the host's media recorder capabilities.
type RecorderFactory interface {
	// Supports reports whether the host can encode the given mime type.
	Supports(mimeType string) bool

	// NewRecorder creates a recorder for the stream using mimeType.
	NewRecorder(stream DisplayStream, mimeType string) (Recorder, error)
}

// CountdownDisplay renders the pre-capture countdown. Implementations
// must be input-transparent; the countdown is purely visual.
type CountdownDisplay interface {
	// Show renders the current countdown value with its label,
	// replacing any previously shown value.
	Show(label string, remaining int)

	// Remove tears the countdown visual down.
	Remove()
}
