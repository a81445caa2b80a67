package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"loom/internal/domain/models/chat"
	llmsvc "loom/internal/domain/services/llm"
)

const defaultMaxTokens = 4096

// Provider implements llmsvc.Provider for Anthropic (Claude) models.
type Provider struct {
	client *anthropic.Client
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{client: &client}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// SupportsModel returns true if this provider serves the given model.
// Anthropic models start with "claude-".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// StreamChat starts a streaming completion against the Messages API and
// bridges its events onto the domain channel.
func (p *Provider) StreamChat(ctx context.Context, req *llmsvc.Request) (<-chan llmsvc.StreamEvent, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("convert messages: %w", err)
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	apiParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	// Buffered to prevent the API read from blocking on every consumer write.
	eventChan := make(chan llmsvc.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		stream := p.client.Messages.NewStreaming(ctx, apiParams)

		for stream.Next() {
			event := stream.Current()

			out, ok := transformStreamEvent(event)
			if !ok {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case eventChan <- out:
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case eventChan <- llmsvc.StreamEvent{Err: fmt.Errorf("anthropic streaming error: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return eventChan, nil
}

// transformStreamEvent converts an Anthropic streaming event to a domain
// StreamEvent. Returns false for events with nothing to forward.
func transformStreamEvent(event anthropic.MessageStreamEventUnion) (llmsvc.StreamEvent, bool) {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if e.Delta.Type == "text_delta" {
			return llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: e.Delta.Text}, true
		}
		return llmsvc.StreamEvent{}, false

	case anthropic.MessageDeltaEvent:
		if e.Delta.StopReason == "" {
			return llmsvc.StreamEvent{}, false
		}
		data, _ := json.Marshal(map[string]string{"reason": string(e.Delta.StopReason)})
		return llmsvc.StreamEvent{
			Kind:    llmsvc.EventControl,
			Control: &llmsvc.ControlEvent{Type: "finish", Data: data},
		}, true

	default:
		// MessageStart, ContentBlockStart/Stop, MessageStop carry no text.
		return llmsvc.StreamEvent{}, false
	}
}

// convertMessages converts domain messages to the Anthropic SDK format.
func convertMessages(messages []llmsvc.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))

		for _, part := range msg.Parts {
			switch part.Type {
			case llmsvc.PartText:
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			case llmsvc.PartImage:
				blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{
					URL: part.ImageURL,
				}))
			case llmsvc.PartFile:
				// Messages API has no generic file handle; describe it inline.
				blocks = append(blocks, anthropic.NewTextBlock(
					fmt.Sprintf("[Attached file: %s (%s)]", part.FileURI, part.MimeType)))
			}
		}

		if len(blocks) == 0 {
			blocks = append(blocks, anthropic.NewTextBlock(""))
		}

		var message anthropic.MessageParam
		switch msg.Role {
		case chat.RoleUser, chat.RoleSystem:
			message = anthropic.NewUserMessage(blocks...)
		case chat.RoleAssistant:
			message = anthropic.NewAssistantMessage(blocks...)
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}

		result = append(result, message)
	}

	return result, nil
}

var _ llmsvc.Provider = (*Provider)(nil)
