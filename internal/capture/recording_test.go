package capture

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// newTestRecordingEngine wires an engine over scripted fakes.
func newTestRecordingEngine(stream *fakeStream, factory *fakeRecorderFactory) *RecordingEngine {
	return NewRecordingEngine(
		&fakeDisplayDevice{stream: stream},
		factory,
		WithTimeslice(time.Millisecond),
		WithRecordingCountdownInterval(time.Millisecond),
	)
}

// TestRecordingEngineStart tests stream acquisition and setup.
func TestRecordingEngineStart(t *testing.T) {
	t.Parallel()

	t.Run("fails without a device", func(t *testing.T) {
		t.Parallel()

		engine := NewRecordingEngine(nil, nil)
		_, err := engine.Start(context.Background(), RecordingOptions{})
		if model.CodeOf(err) != model.CodeRecording {
			t.Fatalf("expected recording error, got %v", err)
		}
	})

	t.Run("maps a declined permission prompt", func(t *testing.T) {
		t.Parallel()

		engine := NewRecordingEngine(
			&fakeDisplayDevice{err: ErrPermissionDenied},
			&fakeRecorderFactory{recorder: &fakeRecorder{}},
		)
		_, err := engine.Start(context.Background(), RecordingOptions{})
		if model.CodeOf(err) != model.CodePermissionDenied {
			t.Fatalf("expected permission denied, got %v", err)
		}
	})

	t.Run("requires an entire-screen surface when configured", func(t *testing.T) {
		t.Parallel()

		stream := &fakeStream{surface: SurfaceWindow}
		engine := newTestRecordingEngine(stream, &fakeRecorderFactory{recorder: &fakeRecorder{}})
		_, err := engine.Start(context.Background(), RecordingOptions{EntireScreenOnly: true})
		if model.CodeOf(err) != model.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
		if !strings.Contains(err.Error(), "entire screen") {
			t.Errorf("unexpected message: %v", err)
		}
		if stream.closedCount() != 1 {
			t.Errorf("expected stream released, got %d closes", stream.closedCount())
		}
	})

	t.Run("prefers the best supported encoding", func(t *testing.T) {
		t.Parallel()

		factory := &fakeRecorderFactory{
			supported: map[string]bool{"video/webm;codecs=vp8": true, "video/webm": true},
			recorder:  &fakeRecorder{},
		}
		session, err := newTestRecordingEngine(&fakeStream{surface: SurfaceMonitor}, factory).
			Start(context.Background(), RecordingOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		session.Stop()
		if _, err := session.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if factory.requestedMime != "video/webm;codecs=vp8" {
			t.Errorf("expected vp8 encoding, got %s", factory.requestedMime)
		}
	})

	t.Run("falls back to the generic container", func(t *testing.T) {
		t.Parallel()

		factory := &fakeRecorderFactory{recorder: &fakeRecorder{}}
		session, err := newTestRecordingEngine(&fakeStream{surface: SurfaceMonitor}, factory).
			Start(context.Background(), RecordingOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		session.Stop()
		if _, err := session.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if factory.requestedMime != "video/webm" {
			t.Errorf("expected generic container, got %s", factory.requestedMime)
		}
	})
}

// TestRecordingSession tests the session lifecycle.
func TestRecordingSession(t *testing.T) {
	t.Parallel()

	t.Run("stop resolves with the recorded chunks", func(t *testing.T) {
		t.Parallel()

		stream := &fakeStream{surface: SurfaceMonitor}
		recorder := &fakeRecorder{emit: [][]byte{[]byte("part1"), []byte("part2")}}
		factory := &fakeRecorderFactory{recorder: recorder}

		session, err := newTestRecordingEngine(stream, factory).Start(context.Background(), RecordingOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Give the emit goroutine time to deliver both chunks.
		time.Sleep(20 * time.Millisecond)
		session.Stop()

		result, err := session.Wait(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(result.Blob.Data, []byte("part1part2")) {
			t.Errorf("unexpected blob data: %q", result.Blob.Data)
		}
		if result.Blob.MimeType != "video/webm" {
			t.Errorf("unexpected mime type: %s", result.Blob.MimeType)
		}
		if result.Duration <= 0 {
			t.Errorf("expected positive duration, got %v", result.Duration)
		}
		if stream.closedCount() != 1 {
			t.Errorf("expected stream released once, got %d closes", stream.closedCount())
		}
	})

	t.Run("cancel rejects with an aborted outcome", func(t *testing.T) {
		t.Parallel()

		stream := &fakeStream{surface: SurfaceMonitor}
		factory := &fakeRecorderFactory{recorder: &fakeRecorder{emit: [][]byte{[]byte("part")}}}

		session, err := newTestRecordingEngine(stream, factory).Start(context.Background(), RecordingOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		session.Cancel()

		if _, err := session.Wait(context.Background()); !model.IsAborted(err) {
			t.Fatalf("expected aborted outcome, got %v", err)
		}
		if stream.closedCount() != 1 {
			t.Errorf("expected stream released once, got %d closes", stream.closedCount())
		}
	})

	t.Run("stops when the byte budget is exceeded", func(t *testing.T) {
		t.Parallel()

		stream := &fakeStream{surface: SurfaceMonitor}
		recorder := &fakeRecorder{repeat: make([]byte, 512*1024)}
		factory := &fakeRecorderFactory{recorder: recorder}

		session, err := newTestRecordingEngine(stream, factory).Start(context.Background(), RecordingOptions{
			MaxBytes: 1 << 20,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = session.Wait(context.Background())
		if model.CodeOf(err) != model.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
		if !strings.Contains(err.Error(), "exceeds max size (1MB)") {
			t.Errorf("unexpected message: %v", err)
		}
		if stream.closedCount() != 1 {
			t.Errorf("expected stream released once, got %d closes", stream.closedCount())
		}
	})

	t.Run("hard stop ends the recording at the duration cap", func(t *testing.T) {
		t.Parallel()

		stream := &fakeStream{surface: SurfaceMonitor}
		recorder := &fakeRecorder{repeat: []byte("chunk")}
		factory := &fakeRecorderFactory{recorder: recorder}

		session, err := newTestRecordingEngine(stream, factory).Start(context.Background(), RecordingOptions{
			MaxDuration: 30 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := session.Wait(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Blob.Data) == 0 {
			t.Error("expected recorded data")
		}
	})

	t.Run("reports elapsed seconds while active", func(t *testing.T) {
		t.Parallel()

		stream := &fakeStream{surface: SurfaceMonitor}
		factory := &fakeRecorderFactory{recorder: &fakeRecorder{repeat: []byte("chunk")}}
		engine := newTestRecordingEngine(stream, factory)
		engine.tickInterval = 5 * time.Millisecond

		var mu sync.Mutex
		var ticks []int
		session, err := engine.Start(context.Background(), RecordingOptions{
			OnTick: func(seconds int) {
				mu.Lock()
				ticks = append(ticks, seconds)
				mu.Unlock()
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		time.Sleep(30 * time.Millisecond)
		session.Stop()
		if _, err := session.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		mu.Lock()
		got := append([]int(nil), ticks...)
		mu.Unlock()
		if len(got) == 0 {
			t.Fatal("expected tick callbacks while recording")
		}
		for i, seconds := range got {
			if seconds != i+1 {
				t.Fatalf("expected tick %d at position %d, got %v", i+1, i, got)
			}
		}

		// The tick goroutine must exit once the session resolves.
		deadline := time.Now().Add(time.Second)
		for tickLoopRunning() {
			if time.Now().After(deadline) {
				t.Fatal("tick goroutine still running after session resolved")
			}
			time.Sleep(time.Millisecond)
		}
	})

	t.Run("wait honors context cancellation", func(t *testing.T) {
		t.Parallel()

		stream := &fakeStream{surface: SurfaceMonitor}
		factory := &fakeRecorderFactory{recorder: &fakeRecorder{repeat: []byte("chunk")}}

		session, err := newTestRecordingEngine(stream, factory).Start(context.Background(), RecordingOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer session.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := session.Wait(ctx); model.CodeOf(err) != model.CodeRecording {
			t.Fatalf("expected recording error on context timeout, got %v", err)
		}
	})
}

// tickLoopRunning reports whether any session tick goroutine is alive.
func tickLoopRunning() bool {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	return bytes.Contains(buf[:n], []byte(").tickLoop("))
}
