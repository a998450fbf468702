package capture

import (
	"testing"
	"time"
)

// TestRunCountdown tests countdown rendering.
func TestRunCountdown(t *testing.T) {
	t.Parallel()

	t.Run("shows each remaining second and tears down", func(t *testing.T) {
		t.Parallel()

		display := &fakeCountdownDisplay{}
		RunCountdown(CountdownOptions{
			Display:  display,
			Mode:     CountdownScreenshot,
			Seconds:  3,
			Interval: time.Millisecond,
		})

		want := []int{3, 2, 1}
		if len(display.shown) != len(want) {
			t.Fatalf("expected %d renders, got %d (%v)", len(want), len(display.shown), display.shown)
		}
		for i, v := range want {
			if display.shown[i] != v {
				t.Errorf("render %d: expected %d, got %d", i, v, display.shown[i])
			}
		}
		if display.labels[0] != "Taking screenshot in" {
			t.Errorf("unexpected label: %s", display.labels[0])
		}
		if display.removed != 1 {
			t.Errorf("expected one removal, got %d", display.removed)
		}
	})

	t.Run("uses the recording label", func(t *testing.T) {
		t.Parallel()

		display := &fakeCountdownDisplay{}
		RunCountdown(CountdownOptions{
			Display:  display,
			Mode:     CountdownRecording,
			Seconds:  1,
			Interval: time.Millisecond,
		})
		if display.labels[0] != "Starting recording in" {
			t.Errorf("unexpected label: %s", display.labels[0])
		}
	})

	t.Run("returns immediately without a display", func(t *testing.T) {
		t.Parallel()

		done := make(chan struct{})
		go func() {
			RunCountdown(CountdownOptions{Seconds: 3, Interval: time.Hour})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("countdown did not resolve immediately")
		}
	})

	t.Run("returns immediately for non-positive seconds", func(t *testing.T) {
		t.Parallel()

		display := &fakeCountdownDisplay{}
		RunCountdown(CountdownOptions{Display: display, Seconds: -1, Interval: time.Hour})
		if len(display.shown) != 0 {
			t.Errorf("expected no renders, got %v", display.shown)
		}
	})
}
