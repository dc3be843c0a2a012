package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/riskibarqy/fpl-assistant/internal/usecase"
)

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeam")
	defer span.End()

	// Gameweek zero resolves to the current gameweek.
	h.respondTeamSnapshot(ctx, w, 0)
}

func (h *Handler) GetTeamByGameweek(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeamByGameweek")
	defer span.End()

	gameweek, err := strconv.Atoi(r.PathValue("gameweek"))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: gameweek must be a number", usecase.ErrInvalidInput))
		return
	}

	h.respondTeamSnapshot(ctx, w, gameweek)
}

func (h *Handler) respondTeamSnapshot(ctx context.Context, w http.ResponseWriter, gameweek int) {
	snapshot, err := h.snapshots.BuildSnapshot(ctx, h.credentials.ManagerID, gameweek)
	if err != nil {
		h.logger.WarnContext(ctx, "build team snapshot failed",
			"manager_id", h.credentials.ManagerID,
			"gameweek", gameweek,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, snapshotToDTO(ctx, snapshot))
}
