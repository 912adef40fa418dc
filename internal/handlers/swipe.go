package handlers

import (
	"net/http"

	"greekmatch-backend/internal/middleware"
	"greekmatch-backend/internal/models"
	"greekmatch-backend/internal/services"
)

// ProfileView is a profile with its fallbacks already applied
type ProfileView struct {
	*models.User
	DisplayBio   string `json:"display_bio"`
	PrimaryImage string `json:"primary_image,omitempty"`
}

func profileResponse(u *models.User) ProfileView {
	img, _ := u.PrimaryImage()
	return ProfileView{User: u, DisplayBio: u.DisplayBio(), PrimaryImage: img}
}

// SwipeHandler serves the candidate pool and records swipes
type SwipeHandler struct {
	candidateService *services.CandidateService
	swipeService     *services.SwipeService
}

// NewSwipeHandler creates a new swipe handler
func NewSwipeHandler(candidateService *services.CandidateService, swipeService *services.SwipeService) *SwipeHandler {
	return &SwipeHandler{
		candidateService: candidateService,
		swipeService:     swipeService,
	}
}

// Candidates handles GET /api/v1/candidates
func (h *SwipeHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	users, err := h.candidateService.Candidates(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to get candidates")
		return
	}

	views := make([]ProfileView, len(users))
	for i, u := range users {
		views[i] = profileResponse(u)
	}
	respondJSON(w, http.StatusOK, map[string]any{"candidates": views})
}

// Swipe handles POST /api/v1/swipes
func (h *SwipeHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	var req services.SwipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.swipeService.Record(r.Context(), middleware.GetUserID(r.Context()), req.TargetID, req.Action)
	if err != nil {
		respondServiceError(w, err, "Failed to record swipe")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
