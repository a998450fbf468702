package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"regexp"
	"time"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// MinSelectionPx is the minimum selection edge length. Rectangles
// smaller than this are almost always accidental clicks.
const MinSelectionPx = 8

// defaultFrameSettle is the extra wait after the required fresh frames
// on the display-capture path, giving the compositor time to paint out
// permission-prompt residue.
const defaultFrameSettle = 120 * time.Millisecond

// ScreenshotOptions parameterizes one capture.
type ScreenshotOptions struct {
	// MaskSelectors lists elements to visually obscure before sampling.
	MaskSelectors []string

	// RedactPatterns lists substring patterns replaced in page text
	// before sampling. See CompileRedactPatterns.
	RedactPatterns []*regexp.Regexp

	// AllowDisplayFallback opts in to the permission-gated full-display
	// path when the selection intersects a frame that cannot be
	// rasterized. Without it such selections fail.
	AllowDisplayFallback bool

	// CountdownSeconds overrides the pre-sampling countdown length.
	// Zero means DefaultCountdownSeconds; negative disables it.
	CountdownSeconds int
}

// ScreenshotEngine captures an area-bounded screenshot of the host
// page. The zero value is not usable; construct with
// NewScreenshotEngine.
type ScreenshotEngine struct {
	screen    Screen
	selector  Selector
	display   DisplayDevice
	countdown CountdownDisplay
	logger    *slog.Logger

	frameSettle       time.Duration
	countdownInterval time.Duration
}

// ScreenshotEngineOption configures a ScreenshotEngine.
type ScreenshotEngineOption func(*ScreenshotEngine)

// WithDisplayDevice provides the device used for the cross-origin
// fallback path. Without one the fallback is unavailable.
func WithDisplayDevice(device DisplayDevice) ScreenshotEngineOption {
	return func(e *ScreenshotEngine) {
		e.display = device
	}
}

// WithCountdownDisplay provides the countdown visual. Without one the
// countdown resolves immediately.
func WithCountdownDisplay(display CountdownDisplay) ScreenshotEngineOption {
	return func(e *ScreenshotEngine) {
		e.countdown = display
	}
}

// WithScreenshotLogger sets a custom logger.
func WithScreenshotLogger(logger *slog.Logger) ScreenshotEngineOption {
	return func(e *ScreenshotEngine) {
		e.logger = logger
	}
}

// WithFrameSettle overrides the post-frame settle wait on the display
// fallback path. Tests use a short value.
func WithFrameSettle(d time.Duration) ScreenshotEngineOption {
	return func(e *ScreenshotEngine) {
		e.frameSettle = d
	}
}

// WithCountdownInterval overrides the countdown tick length.
func WithCountdownInterval(d time.Duration) ScreenshotEngineOption {
	return func(e *ScreenshotEngine) {
		e.countdownInterval = d
	}
}

// NewScreenshotEngine creates an engine over the given host surface.
func NewScreenshotEngine(screen Screen, selector Selector, opts ...ScreenshotEngineOption) *ScreenshotEngine {
	e := &ScreenshotEngine{
		screen:      screen,
		selector:    selector,
		frameSettle: defaultFrameSettle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Capture runs the full screenshot pipeline: interactive selection,
// privacy masking and redaction, the cross-origin safety check, and
// sampling on either the document path or the display fallback path.
// It returns a PNG blob. Size-limit validation is a separate,
// composable check (ValidateAssetSize) applied by the caller.
//
// Masking and redaction are restored after sampling regardless of
// which path was taken or whether it failed.
func (e *ScreenshotEngine) Capture(ctx context.Context, opts ScreenshotOptions) (model.Blob, error) {
	selection, err := e.selectRegion(ctx)
	if err != nil {
		return model.Blob{}, err
	}

	doc := e.screen.Document()
	masked := applyMasking(doc, opts.MaskSelectors)
	changes := redactText(doc, opts.RedactPatterns)
	defer func() {
		restoreMasking(masked)
		restoreText(changes)
	}()

	if e.selectionCrossesBlockedFrame(selection) {
		if !opts.AllowDisplayFallback {
			return model.Blob{}, model.NewError(model.CodeCapture,
				"screenshot cannot include cross-origin frame content; select an area outside embedded third-party frames")
		}
		return e.captureViaDisplay(ctx, selection, opts)
	}

	e.runCountdown(CountdownScreenshot, opts.CountdownSeconds)

	bitmap, err := e.screen.Rasterize(ctx)
	if err != nil {
		return model.Blob{}, model.WrapError(model.CodeCapture, "page rasterization failed", err)
	}
	if bitmap == nil || bitmap.Bounds().Empty() {
		return model.Blob{}, model.NewError(model.CodeCapture, "rasterization surface unavailable")
	}

	return encodePNG(cropScaled(bitmap, selection, e.screen.Viewport()))
}

// selectRegion runs interactive selection and enforces the minimum
// selection size. User cancellation is a distinct aborted outcome,
// not a capture failure.
func (e *ScreenshotEngine) selectRegion(ctx context.Context) (Region, error) {
	selection, err := e.selector.Select(ctx)
	if err != nil {
		if errors.Is(err, ErrSelectionCancelled) {
			return Region{}, model.WrapError(model.CodeAborted, "screenshot capture cancelled", err)
		}
		var taxonomyErr *model.Error
		if errors.As(err, &taxonomyErr) {
			return Region{}, err
		}
		return Region{}, model.WrapError(model.CodeCapture, "area selection failed", err)
	}

	if selection.Width < MinSelectionPx || selection.Height < MinSelectionPx {
		return Region{}, model.NewError(model.CodeCapture, "selection area is too small")
	}
	return selection, nil
}

// selectionCrossesBlockedFrame reports whether the selection
// geometrically intersects an embedded frame whose content cannot be
// introspected. Such content would render blank on the document path.
func (e *ScreenshotEngine) selectionCrossesBlockedFrame(selection Region) bool {
	for _, frame := range e.screen.Frames() {
		if frame.Introspectable || frame.Empty() {
			continue
		}
		if selection.Intersects(frame.Region) {
			return true
		}
	}
	return false
}

// captureViaDisplay samples the selection from a permission-gated
// display-capture stream. The stream is released on every exit path.
func (e *ScreenshotEngine) captureViaDisplay(ctx context.Context, selection Region, opts ScreenshotOptions) (model.Blob, error) {
	if e.display == nil {
		return model.Blob{}, model.NewError(model.CodeCapture, "screen-capture permission surface is not available")
	}

	stream, err := e.display.Capture(ctx, DisplayOptions{})
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return model.Blob{}, model.WrapError(model.CodePermissionDenied, "permission denied for screen capture", err)
		}
		return model.Blob{}, model.WrapError(model.CodeCapture, "screen-capture fallback failed", err)
	}
	defer stream.Close()

	e.runCountdown(CountdownScreenshot, opts.CountdownSeconds)

	// Two fresh post-permission frames guarantee the sampled frame was
	// composited after the permission chrome went away.
	var frame image.Image
	for i := 0; i < 2; i++ {
		img, err := stream.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, ErrStreamEnded) {
				return model.Blob{}, model.WrapError(model.CodeAborted, "screenshot capture cancelled", err)
			}
			return model.Blob{}, model.WrapError(model.CodeCapture, "could not read screen-capture frame", err)
		}
		frame = img
	}
	time.Sleep(e.frameSettle)

	if !stream.Live() {
		return model.Blob{}, model.NewError(model.CodeAborted, "screenshot capture cancelled")
	}
	if frame == nil || frame.Bounds().Empty() {
		return model.Blob{}, model.NewError(model.CodeCapture, "could not read screen-capture frame")
	}

	return encodePNG(cropScaled(frame, selection, e.screen.Viewport()))
}

// runCountdown runs the pre-sampling countdown with engine defaults.
func (e *ScreenshotEngine) runCountdown(mode CountdownMode, seconds int) {
	if seconds == 0 {
		seconds = DefaultCountdownSeconds
	}
	RunCountdown(CountdownOptions{
		Display:  e.countdown,
		Mode:     mode,
		Seconds:  seconds,
		Interval: e.countdownInterval,
	})
}
