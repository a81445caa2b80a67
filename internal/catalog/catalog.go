package catalog

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"loom/internal/domain/models/chat"
)

// ModelInfo is the catalog entry for one hosted model.
type ModelInfo struct {
	ID             string `yaml:"-" json:"id"`
	DisplayName    string `yaml:"display_name" json:"display_name"`
	Provider       string `yaml:"provider" json:"provider"`
	Description    string `yaml:"description" json:"description,omitempty"`
	SupportsVision bool   `yaml:"supports_vision" json:"supports_vision"`
	SupportsFiles  bool   `yaml:"supports_files" json:"supports_files"`
	ContextWindow  int    `yaml:"context_window" json:"context_window"`
	MaxOutput      int    `yaml:"max_output" json:"max_output"`
}

type catalogFile struct {
	Models yaml.Node `yaml:"models"`
}

// Catalog holds the embedded model registry. Entries keep YAML order so the
// first suitable model wins during selection.
type Catalog struct {
	mu     sync.RWMutex
	models []ModelInfo
	byID   map[string]*ModelInfo
}

// NewCatalog parses the embedded models.yaml into a Catalog.
func NewCatalog() (*Catalog, error) {
	data, err := configFiles.ReadFile("config/models.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read model catalog: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model catalog: %w", err)
	}
	if file.Models.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("model catalog: 'models' must be a mapping")
	}

	c := &Catalog{byID: make(map[string]*ModelInfo)}

	// Mapping nodes alternate key, value. Decoding by node preserves the
	// declaration order that map[string]ModelInfo would lose.
	for i := 0; i+1 < len(file.Models.Content); i += 2 {
		keyNode := file.Models.Content[i]
		valNode := file.Models.Content[i+1]

		var info ModelInfo
		if err := valNode.Decode(&info); err != nil {
			return nil, fmt.Errorf("model catalog: decode %q: %w", keyNode.Value, err)
		}
		info.ID = keyNode.Value

		c.models = append(c.models, info)
	}
	for i := range c.models {
		c.byID[c.models[i].ID] = &c.models[i]
	}

	return c, nil
}

// List returns all catalog entries in declaration order.
func (c *Catalog) List() []ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ModelInfo, len(c.models))
	copy(out, c.models)
	return out
}

// Get returns the entry for a model id, or nil if unknown.
func (c *Catalog) Get(id string) *ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// SelectModel picks the model to serve a turn. The preferred model is kept
// when it can handle the attachments; otherwise the first catalog entry with
// the needed capability is substituted. Unknown preferred models pass through
// untouched so new models work before the catalog catches up.
func (c *Catalog) SelectModel(preferred string, attachments []chat.Attachment) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needsVision := false
	needsFiles := false
	for _, att := range attachments {
		switch att.Kind {
		case chat.AttachmentImage:
			needsVision = true
		case chat.AttachmentFile:
			needsFiles = true
		}
	}
	if !needsVision && !needsFiles {
		return preferred
	}

	info, ok := c.byID[preferred]
	if !ok {
		return preferred
	}
	if (!needsVision || info.SupportsVision) && (!needsFiles || info.SupportsFiles) {
		return preferred
	}

	for i := range c.models {
		m := &c.models[i]
		if (!needsVision || m.SupportsVision) && (!needsFiles || m.SupportsFiles) {
			return m.ID
		}
	}
	return preferred
}
