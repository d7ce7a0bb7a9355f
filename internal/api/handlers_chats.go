package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/coordinator"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

type ChatHandler struct {
	coord   *coordinator.Coordinator
	timeout time.Duration
}

func NewChatHandler(coord *coordinator.Coordinator, timeout time.Duration) *ChatHandler {
	return &ChatHandler{coord: coord, timeout: timeout}
}

// List handles GET /v1/chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	chats, err := h.coord.List(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// Create handles POST /v1/chats. The body is optional.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeAppError(w, err)
		return
	}

	sess, err := h.coord.Create(req.Description, req.Mode)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.CreateChatResponse{ChatID: sess.ID})
}

// Get handles GET /v1/chats/{id}
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.coord.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Update handles PATCH /v1/chats/{id}
func (h *ChatHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateChatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeAppError(w, err)
		return
	}
	if req.Description == nil {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "description is required")
		return
	}

	sess, err := h.coord.UpdateDescription(chi.URLParam(r, "id"), *req.Description)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// SetMode handles PUT /v1/chats/{id}/mode
func (h *ChatHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateChatModeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeAppError(w, err)
		return
	}
	if req.Mode == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "mode is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	info, err := h.coord.ChangeMode(ctx, chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Delete handles DELETE /v1/chats/{id}
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetActive handles GET /v1/chats/active
func (h *ChatHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	id, ok, err := h.coord.Active(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	resp := models.ActiveChatResponse{}
	if ok {
		resp.ActiveChatID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetActive handles POST /v1/chats/active. A null chat_id deactivates.
func (h *ChatHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req models.SetActiveChatRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, codeValidation, "request body with chat_id is required")
			return
		}
		writeAppError(w, err)
		return
	}

	if req.ChatID == nil {
		if err := h.coord.Deactivate(r.Context()); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, models.ActiveChatResponse{Message: "active chat cleared"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	info, err := h.coord.Activate(ctx, *req.ChatID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ActiveChatResponse{ActiveChatID: &info.ID, Message: "active chat set"})
}
