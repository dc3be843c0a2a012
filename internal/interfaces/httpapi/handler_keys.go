package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/fpl-assistant/internal/usecase"
)

// KeyStatus reports which provider is active and a masked view of its key so
// operators can confirm configuration without exposing the secret.
func (h *Handler) KeyStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.KeyStatus")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, keyStatusDTO{
		Provider:   h.providerName,
		APIKey:     usecase.MaskAPIKey(h.credentials.APIKey),
		ManagerID:  h.credentials.ManagerID,
		Configured: strings.TrimSpace(h.credentials.APIKey) != "",
	})
}
