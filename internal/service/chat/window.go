package chat

import (
	"loom/internal/config"
	"loom/internal/domain/models/chat"
)

// Windower bounds how much history is sent to the model per turn. It is an
// interface so the trimming strategy can change (token-budget trimming, for
// instance) without touching the completion path.
type Windower interface {
	Trim(messages []chat.Message) []chat.Message
}

// TurnCountWindower keeps the most recent Max messages. Trimming by message
// count rather than tokens is a deliberate placeholder; the interface above
// is the seam for a token-aware strategy.
type TurnCountWindower struct {
	Max int
}

// NewTurnCountWindower creates a windower keeping the last max messages.
// A non-positive max falls back to the default.
func NewTurnCountWindower(max int) *TurnCountWindower {
	if max <= 0 {
		max = config.DefaultMaxHistoryMessages
	}
	return &TurnCountWindower{Max: max}
}

// Trim returns the most recent Max messages in their original relative
// order, or the input unchanged when it already fits.
func (w *TurnCountWindower) Trim(messages []chat.Message) []chat.Message {
	if len(messages) <= w.Max {
		return messages
	}
	return messages[len(messages)-w.Max:]
}
