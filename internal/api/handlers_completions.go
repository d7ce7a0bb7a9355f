package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/completion"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/coordinator"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

type CompletionHandler struct {
	coord   *coordinator.Coordinator
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewCompletionHandler(coord *coordinator.Coordinator, model string, timeout time.Duration, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{coord: coord, model: model, timeout: timeout, logger: logger}
}

// Create handles POST /v1/chat/completions. Only the latest user message is
// forwarded; earlier turns already live in the upstream conversation.
func (h *CompletionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ChatCompletionRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, codeValidation, "request body is required")
			return
		}
		writeAppError(w, err)
		return
	}
	if err := completion.Validate(&req); err != nil {
		writeAppError(w, err)
		return
	}
	text, err := completion.LastUserText(req.Messages)
	if err != nil {
		writeAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.coord.SendMessage(ctx, text)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := completion.NewResponse(h.model, res.ChatID, text, res.Reply)
	if resp.Usage.Estimated {
		w.Header().Set("X-Usage-Estimated", "true")
	}
	h.logger.Debug("completion served",
		"chat_id", res.ChatID,
		"mode", res.Mode,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"estimated", resp.Usage.Estimated,
	)
	writeJSON(w, http.StatusOK, resp)
}
