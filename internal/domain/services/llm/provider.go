package llm

import (
	"context"
	"encoding/json"

	"loom/internal/domain/models/chat"
)

// PartType tags one piece of multimodal message content.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image" // by durable retrieval URL
	PartFile  PartType = "file"  // by provider-native file handle
)

// ContentPart is one element of a multimodal message sent to a provider.
type ContentPart struct {
	Type     PartType
	Text     string // PartText
	ImageURL string // PartImage
	FileURI  string // PartFile: provider-native handle
	MimeType string // PartImage / PartFile
}

// Message is a provider-facing message: a role plus ordered content parts.
type Message struct {
	Role  chat.Role
	Parts []ContentPart
}

// Request is a single streaming chat completion request.
type Request struct {
	Model     string
	Messages  []Message
	MaxTokens int
}

// Stream event kinds. Events with an unknown kind are ignored by consumers
// rather than assumed to carry any particular shape.
const (
	EventTextDelta = "text-delta"
	EventControl   = "control"
)

// ControlEvent is a non-text event from the provider stream (start/stop
// markers, usage metadata). Data is passed through opaque.
type ControlEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StreamEvent is one event from a provider token stream: a tagged variant
// over {text delta, control, error}. Exactly one of the payload fields is
// meaningful for a given Kind; Err terminates the stream.
type StreamEvent struct {
	Kind    string
	Text    string        // EventTextDelta
	Control *ControlEvent // EventControl
	Err     error
}

// Provider adapts one hosted model provider's streaming chat API.
type Provider interface {
	// Name returns the provider name for logging and registry lookups.
	Name() string

	// SupportsModel reports whether this provider serves the given model id.
	SupportsModel(model string) bool

	// StreamChat starts a streaming completion. The returned channel is
	// closed when the provider stream ends; an event with Err set signals a
	// mid-stream failure. Cancelling ctx releases the provider connection.
	StreamChat(ctx context.Context, req *Request) (<-chan StreamEvent, error)
}
