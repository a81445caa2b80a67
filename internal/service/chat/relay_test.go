package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	llmsvc "loom/internal/domain/services/llm"
)

// recordingSink captures forwarded SSE frames.
type recordingSink struct {
	frames  []string
	failAt  int // fail the Nth write (1-based); 0 = never fail
	written int
}

func (s *recordingSink) WriteEvent(frame string) error {
	s.written++
	if s.failAt > 0 && s.written >= s.failAt {
		return errors.New("client gone")
	}
	s.frames = append(s.frames, frame)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func streamOf(events ...llmsvc.StreamEvent) <-chan llmsvc.StreamEvent {
	ch := make(chan llmsvc.StreamEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch
}

func TestRelay_ForwardsAndAccumulates(t *testing.T) {
	sink := &recordingSink{}
	relay := NewRelay(sink, testLogger())

	err := relay.Run(context.Background(), streamOf(
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "Hello"},
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: ", "},
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "world"},
	))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if got := relay.Text(); got != "Hello, world" {
		t.Errorf("Text() = %q, want %q", got, "Hello, world")
	}
	if len(sink.frames) != 3 {
		t.Fatalf("forwarded %d frames, want 3", len(sink.frames))
	}
	// Frames must arrive in token order.
	for i, want := range []string{"Hello", ", ", "world"} {
		if !strings.Contains(sink.frames[i], "text-delta") {
			t.Errorf("frame %d missing event type: %q", i, sink.frames[i])
		}
		if !strings.Contains(sink.frames[i], want) {
			t.Errorf("frame %d = %q, want delta %q", i, sink.frames[i], want)
		}
	}
}

func TestRelay_MidStreamErrorKeepsPartialText(t *testing.T) {
	sink := &recordingSink{}
	relay := NewRelay(sink, testLogger())

	upstream := errors.New("provider connection reset")
	err := relay.Run(context.Background(), streamOf(
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "partial "},
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "answer"},
		llmsvc.StreamEvent{Err: upstream},
	))
	if !errors.Is(err, upstream) {
		t.Fatalf("Run() error = %v, want %v", err, upstream)
	}

	if got := relay.Text(); got != "partial answer" {
		t.Errorf("Text() = %q, want partial text preserved", got)
	}

	// Last frame must be the error event.
	last := sink.frames[len(sink.frames)-1]
	if !strings.Contains(last, "event: error") {
		t.Errorf("last frame = %q, want error event", last)
	}
}

func TestRelay_UnknownEventKindsAreSkipped(t *testing.T) {
	sink := &recordingSink{}
	relay := NewRelay(sink, testLogger())

	err := relay.Run(context.Background(), streamOf(
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "a"},
		llmsvc.StreamEvent{Kind: "tool-use-preview"},
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "b"},
	))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if got := relay.Text(); got != "ab" {
		t.Errorf("Text() = %q, want %q", got, "ab")
	}
	if len(sink.frames) != 2 {
		t.Errorf("forwarded %d frames, want 2 (unknown kind skipped)", len(sink.frames))
	}
}

func TestRelay_ClientDisconnectKeepsAccumulator(t *testing.T) {
	sink := &recordingSink{failAt: 2}
	relay := NewRelay(sink, testLogger())

	err := relay.Run(context.Background(), streamOf(
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "one"},
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "two"},
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "three"},
	))
	if err == nil {
		t.Fatal("Run() error = nil, want sink write failure")
	}

	// The delta that failed to send was still accumulated.
	if got := relay.Text(); got != "onetwo" {
		t.Errorf("Text() = %q, want %q", got, "onetwo")
	}
}

func TestRelay_ContextCancellation(t *testing.T) {
	sink := &recordingSink{}
	relay := NewRelay(sink, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unbuffered and never written: only cancellation can end the relay.
	ch := make(chan llmsvc.StreamEvent)
	err := relay.Run(ctx, ch)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRelay_ControlEventsForwarded(t *testing.T) {
	sink := &recordingSink{}
	relay := NewRelay(sink, testLogger())

	err := relay.Run(context.Background(), streamOf(
		llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: "done"},
		llmsvc.StreamEvent{
			Kind:    llmsvc.EventControl,
			Control: &llmsvc.ControlEvent{Type: "finish"},
		},
	))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}

	if len(sink.frames) != 2 {
		t.Fatalf("forwarded %d frames, want 2", len(sink.frames))
	}
	if !strings.Contains(sink.frames[1], "event: finish") {
		t.Errorf("control frame = %q, want finish event", sink.frames[1])
	}
	// Control events carry no text.
	if got := relay.Text(); got != "done" {
		t.Errorf("Text() = %q, want %q", got, "done")
	}
}
