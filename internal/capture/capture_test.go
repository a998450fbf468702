package capture

import (
	"context"
	"image"
	"image/color"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// newTestImage returns a solid-color bitmap of the given size.
func newTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff})
		}
	}
	return img
}

// parseDoc parses an HTML fragment into a document tree.
func parseDoc(src string) *html.Node {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	return doc
}

// renderNode serializes the tree back to HTML for assertions.
func renderNode(sb *strings.Builder, n *html.Node) {
	if err := html.Render(sb, n); err != nil {
		panic(err)
	}
}

// fakeScreen is a scripted Screen implementation.
type fakeScreen struct {
	viewport      model.Viewport
	doc           *html.Node
	bitmap        image.Image
	rasterErr     error
	frames        []FrameRegion
	rasterizeHook func()
}

func (s *fakeScreen) Viewport() model.Viewport { return s.viewport }
func (s *fakeScreen) Document() *html.Node     { return s.doc }
func (s *fakeScreen) Frames() []FrameRegion    { return s.frames }

func (s *fakeScreen) Rasterize(_ context.Context) (image.Image, error) {
	if s.rasterizeHook != nil {
		s.rasterizeHook()
	}
	if s.rasterErr != nil {
		return nil, s.rasterErr
	}
	return s.bitmap, nil
}

// fakeSelector returns a fixed region or error.
type fakeSelector struct {
	region Region
	err    error
}

func (s *fakeSelector) Select(_ context.Context) (Region, error) {
	return s.region, s.err
}

// fakeDisplayDevice hands out a scripted stream.
type fakeDisplayDevice struct {
	stream *fakeStream
	err    error

	mu       sync.Mutex
	lastOpts DisplayOptions
}

func (d *fakeDisplayDevice) Capture(_ context.Context, opts DisplayOptions) (DisplayStream, error) {
	d.mu.Lock()
	d.lastOpts = opts
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

// fakeStream serves frames from a list, repeating the last one when
// the list runs out.
type fakeStream struct {
	frames   []image.Image
	frameErr error
	surface  DisplaySurface
	dead     bool

	mu         sync.Mutex
	frameCalls int
	closeCalls int
}

func (s *fakeStream) NextFrame(_ context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameCalls++
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	if len(s.frames) == 0 {
		return nil, ErrStreamEnded
	}
	idx := s.frameCalls - 1
	if idx >= len(s.frames) {
		idx = len(s.frames) - 1
	}
	return s.frames[idx], nil
}

func (s *fakeStream) Surface() DisplaySurface { return s.surface }
func (s *fakeStream) Live() bool              { return !s.dead }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	return nil
}

func (s *fakeStream) closedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

// fakeCountdownDisplay records countdown rendering calls.
type fakeCountdownDisplay struct {
	mu      sync.Mutex
	shown   []int
	labels  []string
	removed int
}

func (d *fakeCountdownDisplay) Show(label string, remaining int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, remaining)
	d.labels = append(d.labels, label)
}

func (d *fakeCountdownDisplay) Remove() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removed++
}

// fakeRecorder emits scripted chunks. The chunks in emit are delivered
// once after Start; when repeat is set, copies of it are delivered
// continuously until Stop.
type fakeRecorder struct {
	mime   string
	emit   [][]byte
	repeat []byte

	out      chan Chunk
	stop     chan struct{}
	stopOnce sync.Once
}

func (r *fakeRecorder) Start(_ time.Duration) (<-chan Chunk, error) {
	r.out = make(chan Chunk)
	r.stop = make(chan struct{})
	go func() {
		defer close(r.out)
		for _, d := range r.emit {
			r.out <- Chunk{Data: d}
		}
		if r.repeat == nil {
			<-r.stop
			return
		}
		for {
			select {
			case <-r.stop:
				return
			case r.out <- Chunk{Data: r.repeat}:
				time.Sleep(time.Millisecond)
			}
		}
	}()
	return r.out, nil
}

func (r *fakeRecorder) Stop() error {
	r.stopOnce.Do(func() { close(r.stop) })
	return nil
}

func (r *fakeRecorder) MimeType() string { return r.mime }

// fakeRecorderFactory tracks which encoding was requested.
type fakeRecorderFactory struct {
	supported map[string]bool
	recorder  *fakeRecorder

	mu            sync.Mutex
	requestedMime string
}

func (f *fakeRecorderFactory) Supports(mimeType string) bool {
	return f.supported[mimeType]
}

func (f *fakeRecorderFactory) NewRecorder(_ DisplayStream, mimeType string) (Recorder, error) {
	f.mu.Lock()
	f.requestedMime = mimeType
	f.mu.Unlock()
	if f.recorder.mime == "" {
		f.recorder.mime = mimeType
	}
	return f.recorder, nil
}
