package capture

import "time"

// CountdownMode selects the label shown with the countdown.
type CountdownMode string

// Countdown modes.
const (
	CountdownScreenshot CountdownMode = "screenshot"
	CountdownRecording  CountdownMode = "recording"
)

// DefaultCountdownSeconds is the default pre-capture delay. Three
// seconds is long enough for transient browser permission chrome to
// disappear before the frame is sampled.
const DefaultCountdownSeconds = 3

// CountdownOptions parameterizes one countdown run.
type CountdownOptions struct {
	// Display renders the countdown. When nil the countdown resolves
	// immediately without rendering anything.
	Display CountdownDisplay

	// Mode selects the label.
	Mode CountdownMode

	// Seconds is the starting value. Values at or below zero resolve
	// immediately.
	Seconds int

	// Interval is the tick length. Zero means one second; tests use a
	// shorter interval.
	Interval time.Duration
}

// countdownLabel returns the mode-specific label.
func countdownLabel(mode CountdownMode) string {
	if mode == CountdownRecording {
		return "Starting recording in"
	}
	return "Taking screenshot in"
}

// RunCountdown renders a descending countdown and returns when it
// reaches zero. It is deliberately not cancellable: the countdown
// exists to offset the visible permission-grant UI from the sampled
// frame content, and its worst-case delay is bounded by Seconds.
func RunCountdown(opts CountdownOptions) {
	if opts.Seconds <= 0 || opts.Display == nil {
		return
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}

	label := countdownLabel(opts.Mode)
	opts.Display.Show(label, opts.Seconds)
	defer opts.Display.Remove()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for remaining := opts.Seconds; remaining > 0; {
		<-ticker.C
		remaining--
		if remaining > 0 {
			opts.Display.Show(label, remaining)
		}
	}
}
