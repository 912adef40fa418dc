package handlers

import (
	"net/http"

	"greekmatch-backend/internal/middleware"
	"greekmatch-backend/internal/models"
	"greekmatch-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// MatchHandler handles the inbox, unmatching and chat over HTTP
type MatchHandler struct {
	matchService *services.MatchService
	chatService  *services.ChatService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matchService *services.MatchService, chatService *services.ChatService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		chatService:  chatService,
	}
}

type inboxRow struct {
	Match *models.Match `json:"match"`
	User  ProfileView   `json:"user"`
}

// Inbox handles GET /api/v1/matches
func (h *MatchHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	rows, err := h.matchService.Inbox(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to list matches")
		return
	}

	out := make([]inboxRow, len(rows))
	for i, row := range rows {
		out[i] = inboxRow{Match: row.Match, User: profileResponse(row.User)}
	}
	respondJSON(w, http.StatusOK, map[string]any{"matches": out})
}

// Unmatch handles DELETE /api/v1/matches/{match_id}
func (h *MatchHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	err := h.matchService.Unmatch(r.Context(), chi.URLParam(r, "match_id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to delete match")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Messages handles GET /api/v1/matches/{match_id}/messages
func (h *MatchHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matchID := chi.URLParam(r, "match_id")
	if _, err := h.matchService.Authorize(ctx, matchID, middleware.GetUserID(ctx)); err != nil {
		respondServiceError(w, err, "Failed to authorize match access")
		return
	}

	msgs, err := h.chatService.List(ctx, matchID)
	if err != nil {
		respondServiceError(w, err, "Failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// SendMessage handles POST /api/v1/matches/{match_id}/messages
func (h *MatchHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matchID := chi.URLParam(r, "match_id")
	userID := middleware.GetUserID(ctx)
	if _, err := h.matchService.Authorize(ctx, matchID, userID); err != nil {
		respondServiceError(w, err, "Failed to authorize match access")
		return
	}

	var req services.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.chatService.Send(ctx, matchID, userID, req.Text)
	if err != nil {
		respondServiceError(w, err, "Failed to send message")
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}
