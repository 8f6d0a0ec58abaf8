package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"solaudit/internal/auth"
	"solaudit/internal/middleware"
	"solaudit/internal/models"
	"solaudit/internal/repository"
	"solaudit/pkg/validator"
)

// UserHandler handles user profile requests
type UserHandler struct {
	userRepo   *repository.UserRepository
	tokenRepo  *repository.TokenRepository
	authSvc    *auth.Service
	emailSvc   VerificationMailer
	activityMw *middleware.ActivityMiddleware
}

// VerificationMailer sends account verification mail
type VerificationMailer interface {
	SendVerificationEmail(to, token string) error
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	userRepo *repository.UserRepository,
	tokenRepo *repository.TokenRepository,
	authSvc *auth.Service,
	emailSvc VerificationMailer,
	activityMw *middleware.ActivityMiddleware,
) *UserHandler {
	return &UserHandler{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		authSvc:    authSvc,
		emailSvc:   emailSvc,
		activityMw: activityMw,
	}
}

// GetProfile gets the current user's profile
// @Summary Get user profile
// @Description Get authenticated user's profile information
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User "User profile"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required"`
}

// UpdateProfile updates the current user's profile
// @Summary Update user profile
// @Description Update the authenticated user's name
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User "Updated profile"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /users/profile/update [post]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userRepo.UpdateProfile(userID, validator.SanitizeString(req.FullName)); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	_ = h.activityMw.LogAction(&userID, "user.profile.update", "users", "Profile updated", getIP(r), r.UserAgent())

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword changes the current user's password
// @Summary Change password
// @Description Change the authenticated user's password
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Password changed"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Wrong current password"
// @Router /users/password/change [post]
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	if err := h.authSvc.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		respondWithError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	passwordHash, err := h.authSvc.HashPassword(req.NewPassword)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	if err := h.userRepo.UpdatePassword(userID, passwordHash); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	_ = h.activityMw.LogAction(&userID, "user.password.change", "users", "Password changed", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully",
	})
}

// ResendVerificationEmail sends a fresh verification token to the user
// @Summary Resend verification email
// @Description Send a new email verification link to the authenticated user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "Verification email sent"
// @Failure 400 {object} map[string]string "Email already verified"
// @Router /users/resend-verification [post]
func (h *UserHandler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	if user.EmailVerified {
		respondWithError(w, http.StatusBadRequest, "Email is already verified")
		return
	}

	token, err := auth.GenerateRandomToken(32)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	verificationToken := &models.EmailVerificationToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := h.tokenRepo.CreateEmailVerificationToken(verificationToken); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create verification token")
		return
	}

	if err := h.emailSvc.SendVerificationEmail(user.Email, token); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to send verification email")
		return
	}

	_ = h.activityMw.LogAction(&userID, "email.verification.sent", "emails", "Verification email resent", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Verification email sent",
	})
}
