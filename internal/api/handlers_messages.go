package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/coordinator"
)

type MessageHandler struct {
	coord *coordinator.Coordinator
}

func NewMessageHandler(coord *coordinator.Coordinator) *MessageHandler {
	return &MessageHandler{coord: coord}
}

// History handles GET /v1/messages/{id}?limit=N
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, codeValidation, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	hist, err := h.coord.History(chi.URLParam(r, "id"), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// Clear handles DELETE /v1/messages/{id}
func (h *MessageHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.coord.ClearHistory(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chat_id": id,
		"deleted": n,
	})
}
