package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerAssistantRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/chat", handler.Chat)
	mux.HandleFunc("GET /v1/team", handler.GetTeam)
	mux.HandleFunc("GET /v1/team/{gameweek}", handler.GetTeamByGameweek)
	mux.HandleFunc("GET /v1/keys/status", handler.KeyStatus)
}
