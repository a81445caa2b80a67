package chat

import (
	"encoding/json"
	"fmt"
)

// SSE event type constants for the client-facing chat stream.
const (
	SSEEventMessageStart = "message_start" // streaming has begun
	SSEEventTextDelta    = "text-delta"    // incremental assistant text
	SSEEventTurnComplete = "turn_complete" // stream drained, turn finalized
	SSEEventError        = "error"         // upstream failure before completion
)

// MessageStartEvent signals that the assistant response stream has begun.
type MessageStartEvent struct {
	Model string `json:"model"`
}

// TextDeltaEvent carries one incremental chunk of assistant text.
type TextDeltaEvent struct {
	Delta string `json:"delta"`
}

// TurnCompleteEvent signals the end of the stream. ConversationID is set when
// the turn was persisted, so a client that started a new chat learns its id.
type TurnCompleteEvent struct {
	ConversationID string `json:"conversation_id,omitempty"`
}

// ErrorEvent signals an upstream failure. Tokens delivered before the failure
// remain valid; the partial text is still persisted best-effort.
type ErrorEvent struct {
	Error string `json:"error"`
}

// FormatSSE renders an event in SSE wire format:
//
//	event: text-delta
//	data: {"delta":"..."}
func FormatSSE(eventType string, data interface{}) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal SSE event data: %w", err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload), nil
}
