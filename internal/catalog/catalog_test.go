package catalog

import (
	"testing"

	"loom/internal/domain/models/chat"
)

func TestNewCatalog_LoadsEmbeddedModels(t *testing.T) {
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	models := c.List()
	if len(models) == 0 {
		t.Fatal("catalog is empty")
	}
	for _, m := range models {
		if m.ID == "" || m.DisplayName == "" || m.Provider == "" {
			t.Errorf("incomplete catalog entry: %+v", m)
		}
	}

	if c.Get("gpt-4o-mini") == nil {
		t.Error("expected gpt-4o-mini in catalog")
	}
	if c.Get("no-such-model") != nil {
		t.Error("unknown model lookup should return nil")
	}
}

func TestCatalog_List_PreservesDeclarationOrder(t *testing.T) {
	data := []byte(`
models:
  model-b:
    display_name: "B"
    provider: test
  model-a:
    display_name: "A"
    provider: test
`)
	c, err := parseCatalog(data)
	if err != nil {
		t.Fatalf("parseCatalog() error = %v", err)
	}
	models := c.List()
	if len(models) != 2 || models[0].ID != "model-b" || models[1].ID != "model-a" {
		t.Errorf("order not preserved: %+v", models)
	}
}

func TestCatalog_SelectModel(t *testing.T) {
	data := []byte(`
models:
  text-only:
    display_name: "Text Only"
    provider: test
    supports_vision: false
    supports_files: false
  vision:
    display_name: "Vision"
    provider: test
    supports_vision: true
    supports_files: false
  full:
    display_name: "Full"
    provider: test
    supports_vision: true
    supports_files: true
`)
	c, err := parseCatalog(data)
	if err != nil {
		t.Fatalf("parseCatalog() error = %v", err)
	}

	image := chat.Attachment{Kind: chat.AttachmentImage, MimeType: "image/png"}
	file := chat.Attachment{Kind: chat.AttachmentFile, MimeType: "application/pdf"}

	tests := []struct {
		name        string
		preferred   string
		attachments []chat.Attachment
		want        string
	}{
		{
			name:      "no attachments keeps preferred",
			preferred: "text-only",
			want:      "text-only",
		},
		{
			name:        "image upgrades to first vision model",
			preferred:   "text-only",
			attachments: []chat.Attachment{image},
			want:        "vision",
		},
		{
			name:        "capable preferred model is kept",
			preferred:   "vision",
			attachments: []chat.Attachment{image},
			want:        "vision",
		},
		{
			name:        "file needs file support",
			preferred:   "vision",
			attachments: []chat.Attachment{file},
			want:        "full",
		},
		{
			name:        "unknown preferred passes through",
			preferred:   "experimental-model",
			attachments: []chat.Attachment{image},
			want:        "experimental-model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.SelectModel(tt.preferred, tt.attachments); got != tt.want {
				t.Errorf("SelectModel(%q) = %q, want %q", tt.preferred, got, tt.want)
			}
		})
	}
}
