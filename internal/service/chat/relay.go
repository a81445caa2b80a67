package chat

import (
	"context"
	"log/slog"
	"strings"

	"loom/internal/domain/models/chat"
	llmsvc "loom/internal/domain/services/llm"
)

// EventSink is the client-facing incremental transport. The SSE handler
// implements it; tests use an in-memory recorder.
type EventSink interface {
	// WriteEvent writes one pre-formatted SSE event and flushes it. An error
	// means the client is gone.
	WriteEvent(event string) error
}

// Relay bridges a provider token stream to the client transport while
// accumulating the full assistant text for later persistence. It runs on the
// request goroutine and spawns no background work; finalization happens after
// Run returns, once the outbound stream has fully drained.
//
// Thread-safety: NOT thread-safe. One Relay per request.
type Relay struct {
	sink   EventSink
	logger *slog.Logger

	accumulated strings.Builder
	streamErr   error
}

// NewRelay creates a relay writing to sink.
func NewRelay(sink EventSink, logger *slog.Logger) *Relay {
	return &Relay{sink: sink, logger: logger}
}

// Run consumes the provider stream until it closes, ctx is cancelled, or the
// client disconnects. Events are forwarded in arrival order, never buffered
// beyond the one in flight:
//
//   - text deltas are appended to the accumulator and forwarded
//   - control events are forwarded as-is
//   - events with an unknown kind are discarded and the relay continues
//   - a provider error ends the relay; the partial accumulator is kept
//
// Run returns nil when the stream drained cleanly. All exits leave Text()
// holding whatever arrived before the stop, so the caller can persist
// best-effort partial output.
func (r *Relay) Run(ctx context.Context, stream <-chan llmsvc.StreamEvent) error {
	for {
		select {
		case <-ctx.Done():
			r.streamErr = ctx.Err()
			return ctx.Err()

		case event, ok := <-stream:
			if !ok {
				return nil
			}

			if event.Err != nil {
				r.streamErr = event.Err
				r.logger.Warn("provider stream failed mid-turn",
					"error", event.Err,
					"accumulated_bytes", r.accumulated.Len(),
				)
				r.writeError(event.Err.Error())
				return event.Err
			}

			switch event.Kind {
			case llmsvc.EventTextDelta:
				r.accumulated.WriteString(event.Text)
				formatted, err := chat.FormatSSE(chat.SSEEventTextDelta, chat.TextDeltaEvent{Delta: event.Text})
				if err != nil {
					continue
				}
				if err := r.sink.WriteEvent(formatted); err != nil {
					// Client disconnected; stop relaying but keep the
					// accumulator for best-effort persistence.
					r.streamErr = err
					return err
				}

			case llmsvc.EventControl:
				formatted, err := chat.FormatSSE(event.Control.Type, event.Control)
				if err != nil {
					continue
				}
				if err := r.sink.WriteEvent(formatted); err != nil {
					r.streamErr = err
					return err
				}

			default:
				// Unknown event kind: discard rather than assume shape.
				continue
			}
		}
	}
}

// Text returns the accumulated assistant text, partial if the stream was cut
// short.
func (r *Relay) Text() string {
	return r.accumulated.String()
}

// Err returns what ended the relay early, nil after a clean drain.
func (r *Relay) Err() error {
	return r.streamErr
}

func (r *Relay) writeError(msg string) {
	formatted, err := chat.FormatSSE(chat.SSEEventError, chat.ErrorEvent{Error: msg})
	if err != nil {
		return
	}
	if err := r.sink.WriteEvent(formatted); err != nil {
		r.logger.Debug("could not deliver error event", "error", err)
	}
}
