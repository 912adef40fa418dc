package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"greekmatch-backend/internal/middleware"
	"greekmatch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxImageBytes = 10 << 20

// ImageUploader stores profile images
type ImageUploader interface {
	PresignUpload(ctx context.Context, userID, contentType string) (*services.UploadURLResponse, error)
	Upload(ctx context.Context, userID, contentType string, body io.Reader) (string, error)
}

// ProfileHandler handles the caller's own profile and account
type ProfileHandler struct {
	profileService *services.ProfileService
	accountService *services.AccountService
	images         ImageUploader
}

// NewProfileHandler creates a new profile handler. images may be nil when
// no bucket is configured.
func NewProfileHandler(profileService *services.ProfileService, accountService *services.AccountService, images ImageUploader) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		accountService: accountService,
		images:         images,
	}
}

// GetProfile handles GET /api/v1/me
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.profileService.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err, "Failed to get profile")
		return
	}
	respondJSON(w, http.StatusOK, profileResponse(user))
}

// UpdateProfile handles PATCH /api/v1/me
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.profileService.Update(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, err, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, profileResponse(user))
}

// DeleteAccount handles DELETE /api/v1/me
func (h *ProfileHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.accountService.Delete(ctx, userID, middleware.GetToken(ctx)); err != nil {
		respondServiceError(w, err, "Failed to delete account")
		return
	}

	log.Info().Str("user_id", userID).Msg("Account deleted by owner")
	w.WriteHeader(http.StatusNoContent)
}

// UploadURL handles POST /api/v1/me/images/upload-url
func (h *ProfileHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		respondError(w, "image storage is not configured", http.StatusServiceUnavailable)
		return
	}

	var req services.UploadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.images.PresignUpload(r.Context(), middleware.GetUserID(r.Context()), req.ContentType)
	if err != nil {
		respondServiceError(w, err, "Failed to generate pre-signed URL")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// UploadImage handles POST /api/v1/me/images. The body is the raw image;
// ?index= replaces that slot, otherwise the image is appended.
func (h *ProfileHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		respondError(w, "image storage is not configured", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	user, err := h.profileService.Get(ctx, userID)
	if err != nil {
		respondServiceError(w, err, "Failed to get profile")
		return
	}
	index := len(user.ProfileImageURLs)
	if raw := r.URL.Query().Get("index"); raw != "" {
		if index, err = strconv.Atoi(raw); err != nil {
			respondError(w, "index must be an integer", http.StatusBadRequest)
			return
		}
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		respondError(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		respondError(w, "image body is empty", http.StatusBadRequest)
		return
	}

	url, err := h.images.Upload(ctx, userID, r.Header.Get("Content-Type"), bytes.NewReader(data))
	if err != nil {
		respondServiceError(w, err, "Failed to upload image")
		return
	}

	user, err = h.profileService.SetImage(ctx, userID, index, url)
	if err != nil {
		respondServiceError(w, err, "Failed to attach image")
		return
	}
	respondJSON(w, http.StatusCreated, profileResponse(user))
}

// SetImage handles PUT /api/v1/me/images/{index}
func (h *ProfileHandler) SetImage(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req services.ImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.profileService.SetImage(r.Context(), middleware.GetUserID(r.Context()), index, req.URL)
	if err != nil {
		respondServiceError(w, err, "Failed to set image")
		return
	}
	respondJSON(w, http.StatusOK, profileResponse(user))
}

// RemoveImage handles DELETE /api/v1/me/images/{index}
func (h *ProfileHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	user, err := h.profileService.RemoveImage(r.Context(), middleware.GetUserID(r.Context()), index)
	if err != nil {
		respondServiceError(w, err, "Failed to remove image")
		return
	}
	respondJSON(w, http.StatusOK, profileResponse(user))
}

// MoveImage handles POST /api/v1/me/images/move
func (h *ProfileHandler) MoveImage(w http.ResponseWriter, r *http.Request) {
	var req services.MoveImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.profileService.MoveImage(r.Context(), middleware.GetUserID(r.Context()), req.From, req.To)
	if err != nil {
		respondServiceError(w, err, "Failed to move image")
		return
	}
	respondJSON(w, http.StatusOK, profileResponse(user))
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, "index must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}
