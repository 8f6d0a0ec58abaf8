package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"solaudit/internal/middleware"
	"solaudit/internal/models"
	"solaudit/internal/repository"
	"solaudit/pkg/validator"
)

// APIKeyHandler manages per-user AI provider credentials
type APIKeyHandler struct {
	apiKeyRepo *repository.APIKeyRepository
	activityMw *middleware.ActivityMiddleware
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(apiKeyRepo *repository.APIKeyRepository, activityMw *middleware.ActivityMiddleware) *APIKeyHandler {
	return &APIKeyHandler{apiKeyRepo: apiKeyRepo, activityMw: activityMw}
}

// SaveAPIKeyRequest represents a credential save request
type SaveAPIKeyRequest struct {
	APIName string `json:"api_name" validate:"required,oneof=gemini"`
	APIKey  string `json:"api_key" validate:"required"`
}

// apiKeyView is the representation returned by the API. Key material never
// leaves the server once stored; the frontend only needs to know which
// providers are configured.
type apiKeyView struct {
	APIName    string    `json:"api_name"`
	Configured bool      `json:"configured"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// List lists the user's stored credentials without key material
// @Summary List API keys
// @Description List the authenticated user's stored provider credentials (masked)
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} apiKeyView "Stored credentials"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /settings/api-keys [get]
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	keys, err := h.apiKeyRepo.List(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load API keys")
		return
	}

	views := make([]apiKeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, apiKeyView{
			APIName:    k.APIName,
			Configured: true,
			UpdatedAt:  k.UpdatedAt,
		})
	}

	respondWithJSON(w, http.StatusOK, views)
}

// Save stores or replaces a provider credential
// @Summary Save API key
// @Description Store or replace the authenticated user's provider credential
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SaveAPIKeyRequest true "Provider name and key"
// @Success 200 {object} map[string]string "Credential saved"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /settings/api-keys [put]
func (h *APIKeyHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req SaveAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := &models.APIKey{
		UserID:  userID,
		APIName: req.APIName,
		APIKey:  strings.TrimSpace(req.APIKey),
	}
	if err := h.apiKeyRepo.Upsert(key); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to save API key")
		return
	}

	_ = h.activityMw.LogAction(&userID, "settings.apikey.save", "api_keys", "API key saved for "+req.APIName, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "API key saved",
	})
}

// Delete removes a stored provider credential
// @Summary Delete API key
// @Description Remove the authenticated user's credential for a provider
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Param provider path string true "Provider name"
// @Success 200 {object} map[string]string "Credential deleted"
// @Failure 404 {object} map[string]string "Credential not found"
// @Router /settings/api-keys/{provider} [delete]
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	provider := r.PathValue("provider")
	if provider == "" {
		respondWithError(w, http.StatusBadRequest, "Provider is required")
		return
	}

	if err := h.apiKeyRepo.Delete(userID, provider); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			respondWithError(w, http.StatusNotFound, "API key not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}

	_ = h.activityMw.LogAction(&userID, "settings.apikey.delete", "api_keys", "API key deleted for "+provider, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "API key deleted",
	})
}
