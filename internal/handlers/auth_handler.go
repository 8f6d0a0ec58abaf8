package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"solaudit/internal/config"
	"solaudit/internal/middleware"
	"solaudit/internal/service"
	"solaudit/pkg/validator"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *service.AuthService
	activityMw  *middleware.ActivityMiddleware
	config      *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, activityMw *middleware.ActivityMiddleware, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		activityMw:  activityMw,
		config:      cfg,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyEmailRequest represents an email verification request
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// PasswordResetRequest represents a password reset request
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account with email verification
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} map[string]interface{} "Registration successful"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	// Registration of the first user is always allowed so a fresh install
	// can be bootstrapped.
	if !h.config.App.EnableRegistration {
		userCount, err := h.authService.CountAllUsers()
		if err != nil || userCount > 0 {
			respondWithError(w, http.StatusForbidden, "Registration is disabled")
			return
		}
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(validator.SanitizeEmail(req.Email), req.Password, validator.SanitizeString(req.FullName))
	if err != nil {
		slog.Error("Registration failed", "email", req.Email, "error", err)
		_ = h.activityMw.LogAction(nil, "user.register.error", "users", "Registration failed for "+req.Email, getIP(r), r.UserAgent())
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	_ = h.activityMw.LogAction(&user.ID, "user.register", "users", "User registered", getIP(r), r.UserAgent())

	// Auto-login after registration
	accessToken, refreshToken, accessJTI, refreshJTI, err := h.authService.GenerateTokensForUser(user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	_ = h.authService.UpdateLastLogin(user.ID)
	user, _ = h.authService.GetUserByID(user.ID)

	if err := h.createSessionPair(w, r, user.ID, accessJTI, refreshJTI, refreshToken); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    86400,
		"user":          user,
	})
}

// Login handles user login
// @Summary User login
// @Description Authenticate user and return JWT tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{} "Login successful with tokens"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, refreshToken, accessJTI, refreshJTI, user, err := h.authService.Login(validator.SanitizeEmail(req.Email), req.Password)
	if err != nil {
		slog.Warn("Login failed", "email", req.Email, "error", err, "ip", getIP(r))
		_ = h.activityMw.LogAction(nil, "user.login.failed", "users", "Failed login attempt for "+req.Email, getIP(r), r.UserAgent())
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	slog.Info("User logged in successfully", "user_id", user.ID, "email", user.Email, "ip", getIP(r))
	_ = h.activityMw.LogAction(&user.ID, "user.login", "users", "User logged in", getIP(r), r.UserAgent())

	if err := h.createSessionPair(w, r, user.ID, accessJTI, refreshJTI, refreshToken); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    86400,
		"user":          user,
	})
}

// createSessionPair records access and refresh sessions under one session ID
// and sets the refresh token cookie.
func (h *AuthHandler) createSessionPair(w http.ResponseWriter, r *http.Request, userID uint, accessJTI, refreshJTI, refreshToken string) error {
	sessionID, err := h.authService.GenerateSessionID()
	if err != nil {
		return err
	}

	if err := h.authService.CreateSession(userID, sessionID, refreshJTI, "refresh", getIP(r), r.UserAgent(), time.Now().Add(7*24*time.Hour)); err != nil {
		return err
	}
	_ = h.authService.CreateSession(userID, sessionID, accessJTI, "access", getIP(r), r.UserAgent(), time.Now().Add(24*time.Hour))

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     AuthAPIBasePath,
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// VerifyEmail handles email verification
// @Summary Verify email address
// @Description Verify user's email address using token from email
// @Tags Authentication
// @Accept json
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} map[string]string "Email verified successfully"
// @Failure 400 {object} map[string]string "Invalid or expired token"
// @Router /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var req VerifyEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Token is required")
			return
		}
		token = req.Token
	}

	if err := h.authService.VerifyEmail(token); err != nil {
		_ = h.activityMw.LogAction(nil, "user.email.verify.error", "users", "Email verification failed", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	_ = h.activityMw.LogAction(nil, "user.email.verified", "users", "Email verified", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Email verified successfully",
	})
}

// RequestPasswordReset handles password reset requests
// @Summary Request password reset
// @Description Send password reset email to user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Email address"
// @Success 200 {object} map[string]string "Reset email sent if user exists"
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /auth/password-reset/request [post]
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.RequestPasswordReset(validator.SanitizeEmail(req.Email)); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	_ = h.activityMw.LogAction(nil, "user.password.reset.request", "users", "Password reset requested for "+req.Email, getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "If the email exists, a password reset link has been sent",
	})
}

// ResetPassword handles password reset confirmation
// @Summary Reset password
// @Description Reset user password using token from email
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} map[string]string "Password reset successful"
// @Failure 400 {object} map[string]string "Invalid or expired token"
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.NewPassword); err != nil {
		_ = h.activityMw.LogAction(nil, "user.password.reset.error", "users", "Password reset failed", getIP(r), r.UserAgent())
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	_ = h.activityMw.LogAction(nil, "user.password.reset", "users", "Password reset completed", getIP(r), r.UserAgent())

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset successfully",
	})
}

// RefreshToken handles token refresh requests
// @Summary Refresh access token
// @Description Get a new access token using refresh token from cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "New access token"
// @Failure 401 {object} map[string]string "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refresh_token")
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	accessToken, newRefreshToken, user, err := h.authService.RefreshToken(cookie.Value, getIP(r), r.UserAgent())
	if err != nil {
		// Clear invalid cookie
		http.SetCookie(w, &http.Cookie{
			Name:     "refresh_token",
			Value:    "",
			Path:     AuthAPIBasePath,
			MaxAge:   -1,
			HttpOnly: true,
		})
		respondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    newRefreshToken,
		Path:     AuthAPIBasePath,
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": newRefreshToken,
		"token_type":    "Bearer",
		"expires_in":    86400,
		"user":          user,
	})
}

// Logout handles user logout
// @Summary User logout
// @Description Clear refresh token cookie and invalidate session
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, hasUserID := middleware.GetUserID(r)

	cookie, err := r.Cookie("refresh_token")
	if err == nil && cookie.Value != "" {
		if err := h.authService.InvalidateCurrentSession(cookie.Value); err != nil {
			slog.Error("Failed to invalidate session during logout", "error", err)
		}
	}

	if hasUserID {
		slog.Info("User logged out", "user_id", userID, "ip", getIP(r))
		_ = h.activityMw.LogAction(&userID, "user.logout", "users", "User logged out", getIP(r), r.UserAgent())
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     AuthAPIBasePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}
