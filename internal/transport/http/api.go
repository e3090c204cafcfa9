package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"movie-trivia/internal/app"
)

// NewRouter wires the websocket endpoint and the JSON leaderboard API.
func NewRouter(service *app.GameService, topK int, allowedOrigins []string) http.Handler {
	ws := NewWSHandler(service, topK)
	api := &leaderboardAPI{service: service, topK: topK}

	router := httprouter.New()
	router.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Write([]byte("ok"))
	})
	router.HandlerFunc(http.MethodGet, "/ws", ws.ServeWS)
	router.GET("/api/leaderboard", api.list)
	router.DELETE("/api/leaderboard", api.reset)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete},
	}).Handler(router)
}

type leaderboardAPI struct {
	service *app.GameService
	topK    int
}

func (a *leaderboardAPI) list(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit := a.topK
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, a.service.Leaderboard(r.Context(), limit))
}

func (a *leaderboardAPI) reset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := a.service.ResetLeaderboard(r.Context()); err != nil {
		log.Error().Err(err).Msg("reset leaderboard")
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
