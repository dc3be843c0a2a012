package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fpl-assistant/internal/usecase"
)

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Chat")
	defer span.End()

	var req chatRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	session, err := h.sessions.Acquire(req.SessionID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	reply, err := session.Ask(ctx, req.Message)
	if err != nil {
		h.logger.WarnContext(ctx, "chat turn failed", "session_id", session.ID(), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, chatReplyDTO{
		SessionID: session.ID(),
		Reply:     reply,
	})
}
