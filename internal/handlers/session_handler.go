package handlers

import (
	"errors"
	"net/http"

	"solaudit/internal/middleware"
	"solaudit/internal/repository"
)

// SessionHandler lets users inspect and revoke their own sessions
type SessionHandler struct {
	sessionRepo *repository.SessionRepository
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionRepo *repository.SessionRepository) *SessionHandler {
	return &SessionHandler{sessionRepo: sessionRepo}
}

// GetMySessions lists the authenticated user's active sessions
// @Summary List my sessions
// @Description List the authenticated user's active sessions
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Session "Active sessions"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/sessions [get]
func (h *SessionHandler) GetMySessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	sessions, err := h.sessionRepo.ListByUser(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load sessions")
		return
	}

	respondWithJSON(w, http.StatusOK, sessions)
}

// DeleteMySession revokes one of the authenticated user's sessions
// @Summary Revoke a session
// @Description Revoke one of the authenticated user's sessions by session ID
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]string "Session revoked"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /users/sessions/{id} [delete]
func (h *SessionHandler) DeleteMySession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	if err := h.sessionRepo.DeleteBySessionID(userID, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			respondWithError(w, http.StatusNotFound, "Session not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to revoke session")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Session revoked",
	})
}
