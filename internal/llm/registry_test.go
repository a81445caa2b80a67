package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"loom/internal/domain"
	llmsvc "loom/internal/domain/services/llm"
)

type fakeProvider struct {
	name   string
	prefix string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, p.prefix)
}

func (p *fakeProvider) StreamChat(context.Context, *llmsvc.Request) (<-chan llmsvc.StreamEvent, error) {
	ch := make(chan llmsvc.StreamEvent)
	close(ch)
	return ch, nil
}

func TestRegistry_ForModel(t *testing.T) {
	registry := NewRegistry(
		&fakeProvider{name: "openai", prefix: "gpt-"},
		&fakeProvider{name: "anthropic", prefix: "claude-"},
	)

	tests := []struct {
		model        string
		wantProvider string
		wantErr      bool
	}{
		{model: "gpt-4o-mini", wantProvider: "openai"},
		{model: "claude-sonnet-4-20250514", wantProvider: "anthropic"},
		{model: "grok-3", wantErr: true},
		{model: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p, err := registry.ForModel(tt.model)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("ForModel(%q) error = %v, want ErrValidation", tt.model, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForModel(%q) error = %v", tt.model, err)
			}
			if p.Name() != tt.wantProvider {
				t.Errorf("ForModel(%q) = %s, want %s", tt.model, p.Name(), tt.wantProvider)
			}
		})
	}
}
