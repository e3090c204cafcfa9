package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"movie-trivia/internal/app"
	"movie-trivia/internal/domain"
)

type WSHandler struct {
	service  *app.GameService
	topK     int
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, topK int) *WSHandler {
	return &WSHandler{
		service: service,
		topK:    topK,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type namePayload struct {
	Name string `json:"name"`
}

// answerPayload carries the index of the chosen option; a missing index is
// the empty selection.
type answerPayload struct {
	Option *int `json:"option"`
}

type leaderboardPayload struct {
	Limit int `json:"limit"`
}

type answerResult struct {
	domain.AnswerResult
	State domain.SessionSnapshot `json:"state"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and maps client events onto
// the game session's transitions. Passing ?sessionId= resumes a session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := h.service.Start(ctx, r.URL.Query().Get("sessionId"))
	if err != nil {
		log.Error().Err(err).Msg("start session")
		http.Error(w, "game unavailable", http.StatusServiceUnavailable)
		return
	}
	sessionID := snap.SessionID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()
	log.Info().Str("session", sessionID).Msg("ws connected")

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Str("session", sessionID).Msg("ws write error")
				// unblock the reader and drain until it closes send
				conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	sendError := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	send <- outboundMessage[any]{Type: "state", Payload: snap}
	send <- outboundMessage[any]{Type: "leaderboard", Payload: h.service.Leaderboard(ctx, h.topK)}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "name":
			var payload namePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError(errors.New("invalid name payload"))
				continue
			}
			snap, err := h.service.SetName(ctx, sessionID, payload.Name)
			if err != nil {
				sendError(err)
			}
			send <- outboundMessage[any]{Type: "state", Payload: snap}
		case "answer":
			payload := answerPayload{}
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					sendError(errors.New("invalid answer payload"))
					continue
				}
			}
			option := -1
			if payload.Option != nil {
				option = *payload.Option
			}
			result, snap, err := h.service.Submit(ctx, sessionID, option)
			if err != nil {
				sendError(err)
				if errors.Is(err, domain.ErrNoSelection) || errors.Is(err, domain.ErrRoundOver) ||
					errors.Is(err, domain.ErrNotInRound) || errors.Is(err, domain.ErrInvalidOption) {
					continue
				}
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{AnswerResult: result, State: snap}}
			if result.RoundComplete {
				send <- outboundMessage[any]{Type: "leaderboard", Payload: h.service.Leaderboard(ctx, h.topK)}
			}
		case "playAgain":
			snap, err := h.service.PlayAgain(ctx, sessionID)
			if err != nil {
				sendError(err)
			}
			send <- outboundMessage[any]{Type: "state", Payload: snap}
		case "newPlayer":
			snap, err := h.service.NewPlayer(ctx, sessionID)
			if err != nil {
				sendError(err)
			}
			send <- outboundMessage[any]{Type: "state", Payload: snap}
		case "leaderboard":
			payload := leaderboardPayload{Limit: h.topK}
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					sendError(errors.New("invalid leaderboard payload"))
					continue
				}
			}
			send <- outboundMessage[any]{Type: "leaderboard", Payload: h.service.Leaderboard(ctx, payload.Limit)}
		default:
			sendError(errors.New("unsupported message type"))
		}
	}

	close(send)
	<-writerDone
	log.Info().Str("session", sessionID).Msg("ws disconnected")
}
