package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// defaultTimeslice is how often the recorder is asked to emit a chunk.
// Short slices keep the byte-budget check responsive.
const defaultTimeslice = 300 * time.Millisecond

// defaultTickInterval is how often OnTick reports elapsed time.
const defaultTickInterval = time.Second

// mimePreference is the ordered list of encodings tried before falling
// back to the generic container type.
var mimePreference = []string{
	"video/webm;codecs=vp9",
	"video/webm;codecs=vp8",
	"video/webm",
}

// fallbackMimeType is used when no preferred encoding is supported.
const fallbackMimeType = "video/webm"

// RecordingOptions parameterizes one recording session.
type RecordingOptions struct {
	// MaxDuration is the hard stop; the session force-terminates when
	// it elapses.
	MaxDuration time.Duration

	// MaxBytes is the cumulative chunk byte budget. Exceeding it halts
	// the recording with a validation failure.
	MaxBytes int64

	// EntireScreenOnly requires the user to share the whole monitor.
	// Picking a window or tab fails validation before recording starts.
	EntireScreenOnly bool

	// OnTick, when set, is called once per elapsed second while the
	// session is active. Used for caller UI feedback only.
	OnTick func(seconds int)

	// CountdownSeconds overrides the pre-recording countdown length.
	// Zero means DefaultCountdownSeconds; negative disables it.
	CountdownSeconds int
}

// RecordingResult is what a normally stopped session resolves with.
type RecordingResult struct {
	// Blob is the recorded media and its mime type.
	Blob model.Blob

	// Duration is the elapsed wall-clock recording time.
	Duration time.Duration
}

// RecordingEngine starts bounded screen-recording sessions.
type RecordingEngine struct {
	device    DisplayDevice
	recorders RecorderFactory
	countdown CountdownDisplay
	logger    *slog.Logger

	timeslice         time.Duration
	tickInterval      time.Duration
	countdownInterval time.Duration
}

// RecordingEngineOption configures a RecordingEngine.
type RecordingEngineOption func(*RecordingEngine)

// WithRecordingCountdownDisplay provides the countdown visual.
func WithRecordingCountdownDisplay(display CountdownDisplay) RecordingEngineOption {
	return func(e *RecordingEngine) {
		e.countdown = display
	}
}

// WithRecordingLogger sets a custom logger.
func WithRecordingLogger(logger *slog.Logger) RecordingEngineOption {
	return func(e *RecordingEngine) {
		e.logger = logger
	}
}

// WithTimeslice overrides the chunk emission interval.
func WithTimeslice(d time.Duration) RecordingEngineOption {
	return func(e *RecordingEngine) {
		e.timeslice = d
	}
}

// WithRecordingCountdownInterval overrides the countdown tick length.
func WithRecordingCountdownInterval(d time.Duration) RecordingEngineOption {
	return func(e *RecordingEngine) {
		e.countdownInterval = d
	}
}

// NewRecordingEngine creates an engine over the given capture device
// and recorder factory.
func NewRecordingEngine(device DisplayDevice, recorders RecorderFactory, opts ...RecordingEngineOption) *RecordingEngine {
	e := &RecordingEngine{
		device:       device,
		recorders:    recorders,
		timeslice:    defaultTimeslice,
		tickInterval: defaultTickInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Start acquires the display stream, validates the chosen surface,
// picks the best supported encoding, and begins recording. The
// returned session resolves through Wait; Stop ends it normally and
// Cancel rejects it with an aborted outcome.
func (e *RecordingEngine) Start(ctx context.Context, opts RecordingOptions) (*RecordingSession, error) {
	if e.device == nil || e.recorders == nil {
		return nil, model.NewError(model.CodeRecording, "screen recording is not supported on this surface")
	}

	stream, err := e.device.Capture(ctx, DisplayOptions{PreferMonitor: opts.EntireScreenOnly})
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return nil, model.WrapError(model.CodePermissionDenied, "permission denied for screen recording", err)
		}
		return nil, model.WrapError(model.CodeRecording, "could not acquire display stream", err)
	}

	if opts.EntireScreenOnly {
		if surface := stream.Surface(); surface != SurfaceMonitor && surface != SurfaceUnknown {
			stream.Close()
			return nil, model.NewError(model.CodeValidation, "please choose the entire screen to record")
		}
	}

	mimeType := e.pickMimeType()
	recorder, err := e.recorders.NewRecorder(stream, mimeType)
	if err != nil {
		stream.Close()
		return nil, model.WrapError(model.CodeRecording, "could not initialize recorder", err)
	}

	RunCountdown(CountdownOptions{
		Display:  e.countdown,
		Mode:     CountdownRecording,
		Seconds:  countdownSecondsOrDefault(opts.CountdownSeconds),
		Interval: e.countdownInterval,
	})

	chunks, err := recorder.Start(e.timeslice)
	if err != nil {
		stream.Close()
		return nil, model.WrapError(model.CodeRecording, "recorder failed to start", err)
	}

	session := newRecordingSession(stream, recorder, opts, e.logger, e.tickInterval)
	go session.run(chunks)
	return session, nil
}

// pickMimeType returns the best supported encoding, falling back to
// the generic container type when none of the preferred ones are.
func (e *RecordingEngine) pickMimeType() string {
	for _, candidate := range mimePreference {
		if e.recorders.Supports(candidate) {
			return candidate
		}
	}
	return fallbackMimeType
}

// countdownSecondsOrDefault folds the zero value to the default while
// letting negative values disable the countdown.
func countdownSecondsOrDefault(seconds int) int {
	if seconds == 0 {
		return DefaultCountdownSeconds
	}
	return seconds
}

// RecordingSession is one active recording. All exit paths release the
// display stream exactly once and clear the tick and hard-stop timers.
type RecordingSession struct {
	stream   DisplayStream
	recorder Recorder
	opts     RecordingOptions
	logger   *slog.Logger

	startedAt time.Time
	ticker    *time.Ticker
	tickQuit  chan struct{}
	hardStop  *time.Timer

	mu        sync.Mutex
	cancelled bool

	teardownOnce sync.Once
	stopOnce     sync.Once

	done   chan struct{}
	result *RecordingResult
	err    error
}

// newRecordingSession wires the session's timers.
func newRecordingSession(stream DisplayStream, recorder Recorder, opts RecordingOptions, logger *slog.Logger, tickInterval time.Duration) *RecordingSession {
	s := &RecordingSession{
		stream:    stream,
		recorder:  recorder,
		opts:      opts,
		logger:    logger,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	if opts.OnTick != nil {
		s.ticker = time.NewTicker(tickInterval)
		s.tickQuit = make(chan struct{})
		go s.tickLoop()
	}
	if opts.MaxDuration > 0 {
		s.hardStop = time.AfterFunc(opts.MaxDuration, func() {
			s.logger.Debug("recording hard stop reached", "max", s.opts.MaxDuration)
			s.stopRecorder()
		})
	}

	return s
}

// run consumes encoded chunks until the recorder closes the channel,
// enforcing the byte budget on every chunk.
func (s *RecordingSession) run(chunks <-chan Chunk) {
	var (
		parts        [][]byte
		total        int64
		sizeExceeded bool
	)

	for chunk := range chunks {
		if len(chunk.Data) == 0 {
			continue
		}
		parts = append(parts, chunk.Data)
		total += int64(len(chunk.Data))

		if s.opts.MaxBytes > 0 && total > s.opts.MaxBytes && !sizeExceeded {
			sizeExceeded = true
			s.stopRecorder()
			// Keep draining so the recorder can flush and close.
		}
	}

	s.teardown()

	switch {
	case sizeExceeded:
		s.finish(nil, model.NewError(model.CodeValidation,
			fmt.Sprintf("recording exceeds max size (%dMB)", mb(s.opts.MaxBytes))))
	case s.isCancelled():
		s.finish(nil, model.NewError(model.CodeAborted, "recording cancelled by user"))
	default:
		blob := model.Blob{Data: join(parts, total), MimeType: s.recorder.MimeType()}
		s.finish(&RecordingResult{Blob: blob, Duration: time.Since(s.startedAt)}, nil)
	}
}

// Stop ends the recording normally; Wait then resolves with the
// recorded blob.
func (s *RecordingSession) Stop() {
	s.stopRecorder()
}

// Cancel ends the recording and makes Wait reject with an aborted
// outcome, so callers can tell deliberate cancellation from normal
// completion.
func (s *RecordingSession) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.stopRecorder()
}

// Wait blocks until the session resolves or ctx is done.
func (s *RecordingSession) Wait(ctx context.Context) (*RecordingResult, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		return nil, model.WrapError(model.CodeRecording, "recording interrupted", ctx.Err())
	}
}

// stopRecorder stops the recorder once; later calls are no-ops.
func (s *RecordingSession) stopRecorder() {
	s.stopOnce.Do(func() {
		if err := s.recorder.Stop(); err != nil {
			s.logger.Warn("recorder stop failed", "error", err)
		}
	})
}

// teardown clears timers and releases the stream exactly once.
func (s *RecordingSession) teardown() {
	s.teardownOnce.Do(func() {
		if s.ticker != nil {
			// Stop never closes the ticker channel; tickQuit gives the
			// loop its exit path.
			s.ticker.Stop()
			close(s.tickQuit)
		}
		if s.hardStop != nil {
			s.hardStop.Stop()
		}
		if err := s.stream.Close(); err != nil {
			s.logger.Warn("display stream close failed", "error", err)
		}
	})
}

// finish publishes the outcome once.
func (s *RecordingSession) finish(result *RecordingResult, err error) {
	s.result = result
	s.err = err
	close(s.done)
}

// tickLoop reports elapsed seconds to the caller until teardown.
func (s *RecordingSession) tickLoop() {
	seconds := 0
	for {
		select {
		case <-s.ticker.C:
			seconds++
			s.opts.OnTick(seconds)
		case <-s.tickQuit:
			return
		}
	}
}

// isCancelled reports whether Cancel was called.
func (s *RecordingSession) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// join concatenates chunk payloads into one buffer.
func join(parts [][]byte, total int64) []byte {
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// mb converts a byte count to whole megabytes for messages.
func mb(bytes int64) int64 {
	const megabyte = 1024 * 1024
	return (bytes + megabyte/2) / megabyte
}
