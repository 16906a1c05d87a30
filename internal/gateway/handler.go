package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/magic3t/server/internal/matchmaking"
	"github.com/magic3t/server/internal/models"
)

// Handler exposes the HTTP surface: the websocket upgrade and the queue
// endpoints.
type Handler struct {
	service *Service
	queue   *matchmaking.Queue
}

func NewHandler(service *Service, queue *matchmaking.Queue) *Handler {
	return &Handler{service: service, queue: queue}
}

// HandleConnection upgrades a client to a websocket. The user id comes from
// a query parameter; in production it would come from the session token.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "valid user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Connections().UpgradeConnection(w, r, userID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID.String()).
			Msg("failed to upgrade WebSocket connection")
	}
}

type queueRequest struct {
	UserID uuid.UUID       `json:"user_id"`
	Mode   models.GameMode `json:"mode"`
}

// HandleQueueJoin enqueues a user for matchmaking.
func (h *Handler) HandleQueueJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.queue.Enqueue(req.UserID, req.Mode)
	switch {
	case errors.Is(err, matchmaking.ErrAlreadyInGame):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, matchmaking.ErrUnknownMode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		h.service.NotifyQueued(req.UserID, req.Mode)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
	}
}

// HandleBotMatch pairs the caller against a server-side bot immediately.
func (h *Handler) HandleBotMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.queue.EnqueueBot(req.UserID, req.Mode)
	switch {
	case errors.Is(err, matchmaking.ErrAlreadyInGame):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, matchmaking.ErrUnknownMode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, matchmaking.ErrBotsUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"status": "matched"})
	}
}

// HandleQueueLeave removes a user from the pending slot holding them.
func (h *Handler) HandleQueueLeave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.queue.Dequeue(req.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMatchState reports the caller's current match, if any.
func (h *Handler) HandleMatchState(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "valid user_id is required", http.StatusBadRequest)
		return
	}

	p := h.service.bank.GetPerspective(userID)
	if p == nil {
		http.Error(w, "not in a match", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p.Report())
}

// RegisterRoutes registers the gateway routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleConnection)
	mux.HandleFunc("/queue/join", h.HandleQueueJoin)
	mux.HandleFunc("/queue/leave", h.HandleQueueLeave)
	mux.HandleFunc("/queue/bot", h.HandleBotMatch)
	mux.HandleFunc("/match/state", h.HandleMatchState)
}
