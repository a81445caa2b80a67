package handler

import (
	"net/http"

	"loom/internal/catalog"
	"loom/internal/httputil"
)

// ModelsHandler serves the model catalog.
type ModelsHandler struct {
	catalog *catalog.Catalog
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(c *catalog.Catalog) *ModelsHandler {
	return &ModelsHandler{catalog: c}
}

// ListModels returns every model in the catalog.
// GET /api/models
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"models": h.catalog.List(),
	})
}
