package api

import (
	"net/http"
	"time"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/modes"
)

// ModelHandler serves the static catalog endpoints: the one upstream model
// and the registered modes.
type ModelHandler struct {
	model    string
	ownedBy  string
	created  int64
	registry *modes.Registry
}

func NewModelHandler(model, ownedBy string, registry *modes.Registry) *ModelHandler {
	return &ModelHandler{model: model, ownedBy: ownedBy, created: time.Now().Unix(), registry: registry}
}

// Models handles GET /v1/models
func (h *ModelHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ModelList{
		Object: "list",
		Data: []models.ModelInfo{{
			ID:      h.model,
			Object:  "model",
			Created: h.created,
			OwnedBy: h.ownedBy,
		}},
	})
}

// Modes handles GET /v1/modes
func (h *ModelHandler) Modes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}
