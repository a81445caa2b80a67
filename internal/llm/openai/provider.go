package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	go_openai "github.com/sashabaranov/go-openai"

	llmsvc "loom/internal/domain/services/llm"
)

// Provider implements llmsvc.Provider for OpenAI and OpenAI-compatible
// endpoints.
type Provider struct {
	client *go_openai.Client
}

// NewProvider creates an OpenAI provider. baseURL is optional and points the
// client at an OpenAI-compatible gateway.
func NewProvider(apiKey, baseURL string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key is required")
	}

	cfg := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Provider{client: go_openai.NewClientWithConfig(cfg)}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// SupportsModel reports whether the model is served here. OpenAI model ids
// start with "gpt-" or "o" series prefixes.
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4")
}

// StreamChat starts a streaming completion and bridges it onto the domain
// event channel.
func (p *Provider) StreamChat(ctx context.Context, req *llmsvc.Request) (<-chan llmsvc.StreamEvent, error) {
	apiReq := go_openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: convertMessages(req.Messages),
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		apiReq.MaxTokens = req.MaxTokens
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	// Buffered so a slow client write does not immediately stall the
	// provider read.
	eventChan := make(chan llmsvc.StreamEvent, 10)

	go func() {
		defer close(eventChan)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case eventChan <- llmsvc.StreamEvent{Err: fmt.Errorf("openai streaming error: %w", err)}:
				case <-ctx.Done():
				}
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			choice := response.Choices[0]

			var event llmsvc.StreamEvent
			if choice.Delta.Content != "" {
				event = llmsvc.StreamEvent{Kind: llmsvc.EventTextDelta, Text: choice.Delta.Content}
			} else if choice.FinishReason != "" {
				data, _ := json.Marshal(map[string]string{"reason": string(choice.FinishReason)})
				event = llmsvc.StreamEvent{
					Kind:    llmsvc.EventControl,
					Control: &llmsvc.ControlEvent{Type: "finish", Data: data},
				}
			} else {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	return eventChan, nil
}

// convertMessages maps domain messages into the OpenAI chat shape. Plain text
// uses Content; anything multimodal uses MultiContent parts.
func convertMessages(messages []llmsvc.Message) []go_openai.ChatCompletionMessage {
	out := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := string(msg.Role)

		if len(msg.Parts) == 1 && msg.Parts[0].Type == llmsvc.PartText {
			out = append(out, go_openai.ChatCompletionMessage{Role: role, Content: msg.Parts[0].Text})
			continue
		}

		parts := make([]go_openai.ChatMessagePart, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch part.Type {
			case llmsvc.PartText:
				parts = append(parts, go_openai.ChatMessagePart{
					Type: go_openai.ChatMessagePartTypeText,
					Text: part.Text,
				})
			case llmsvc.PartImage:
				parts = append(parts, go_openai.ChatMessagePart{
					Type: go_openai.ChatMessagePartTypeImageURL,
					ImageURL: &go_openai.ChatMessageImageURL{
						URL:    part.ImageURL,
						Detail: go_openai.ImageURLDetailAuto,
					},
				})
			case llmsvc.PartFile:
				// Chat completions have no file part; describe the handle.
				parts = append(parts, go_openai.ChatMessagePart{
					Type: go_openai.ChatMessagePartTypeText,
					Text: fmt.Sprintf("[Attached file: %s (%s)]", part.FileURI, part.MimeType),
				})
			}
		}
		out = append(out, go_openai.ChatCompletionMessage{Role: role, MultiContent: parts})
	}
	return out
}

var _ llmsvc.Provider = (*Provider)(nil)
