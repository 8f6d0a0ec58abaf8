package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"solaudit/internal/auth"
	"solaudit/internal/email"
	"solaudit/internal/models"
	"solaudit/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo    *repository.UserRepository
	tokenRepo   *repository.TokenRepository
	sessionRepo *repository.SessionRepository
	authSvc     *auth.Service
	emailSvc    *email.Service
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo *repository.UserRepository,
	tokenRepo *repository.TokenRepository,
	sessionRepo *repository.SessionRepository,
	authSvc *auth.Service,
	emailSvc *email.Service,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		sessionRepo: sessionRepo,
		authSvc:     authSvc,
		emailSvc:    emailSvc,
	}
}

// Register registers a new user and sends the verification email
func (s *AuthService) Register(emailAddr, password, fullName string) (*models.User, error) {
	existing, _ := s.userRepo.GetByEmail(emailAddr)
	if existing != nil {
		return nil, repository.ErrUserExists
	}

	passwordHash, err := s.authSvc.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        emailAddr,
		PasswordHash: passwordHash,
		FullName:     fullName,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := auth.GenerateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	verificationToken := &models.EmailVerificationToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	if err := s.tokenRepo.CreateEmailVerificationToken(verificationToken); err != nil {
		return nil, fmt.Errorf("failed to create verification token: %w", err)
	}

	// Registration succeeds even when the mail relay is down
	if err := s.emailSvc.SendVerificationEmail(emailAddr, token); err != nil {
		slog.Error("Failed to send verification email", "email", emailAddr, "error", err)
	}

	return user, nil
}

// Login authenticates a user and returns JWT tokens with their JTIs
func (s *AuthService) Login(emailAddr, password string) (accessToken, refreshToken, accessJTI, refreshJTI string, user *models.User, err error) {
	user, err = s.userRepo.GetByEmail(emailAddr)
	if err != nil {
		return "", "", "", "", nil, ErrInvalidCredentials
	}

	if err := s.authSvc.VerifyPassword(user.PasswordHash, password); err != nil {
		return "", "", "", "", nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", "", "", "", nil, ErrUserInactive
	}

	accessToken, accessJTI, err = s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshJTI, err = s.authSvc.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	_ = s.userRepo.UpdateLastLogin(user.ID)

	return accessToken, refreshToken, accessJTI, refreshJTI, user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

// CountAllUsers returns the total number of registered users
func (s *AuthService) CountAllUsers() (int, error) {
	return s.userRepo.Count()
}

// UpdateLastLogin updates the last login timestamp for a user
func (s *AuthService) UpdateLastLogin(userID uint) error {
	return s.userRepo.UpdateLastLogin(userID)
}

// GenerateTokensForUser generates access and refresh tokens for a user
func (s *AuthService) GenerateTokensForUser(user *models.User) (accessToken, refreshToken, accessJTI, refreshJTI string, err error) {
	accessToken, accessJTI, err = s.authSvc.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshJTI, err = s.authSvc.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, accessJTI, refreshJTI, nil
}

// RefreshToken rotates a refresh token into a new access/refresh pair.
// The old session pair is deleted so the previous tokens stop working.
func (s *AuthService) RefreshToken(refreshToken, ipAddress, userAgent string) (accessToken, newRefreshToken string, user *models.User, err error) {
	claims, err := s.authSvc.ValidateToken(refreshToken)
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims.ID == "" {
		return "", "", nil, errors.New("token missing JTI")
	}

	session, err := s.sessionRepo.GetByJTI(claims.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("session not found or expired: %w", err)
	}
	if session.UserID != claims.UserID {
		return "", "", nil, errors.New("session user mismatch")
	}
	if session.TokenType != "refresh" {
		return "", "", nil, errors.New("invalid token type")
	}

	user, err = s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return "", "", nil, fmt.Errorf("user not found: %w", err)
	}

	_ = s.sessionRepo.DeleteBySessionID(session.UserID, session.SessionID)

	newSessionID, err := auth.GenerateRandomToken(16)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	accessToken, accessJTI, err := s.authSvc.GenerateToken(claims.UserID, claims.Email)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	var refreshJTI string
	newRefreshToken, refreshJTI, err = s.authSvc.GenerateRefreshToken(claims.UserID, claims.Email)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.CreateSession(claims.UserID, newSessionID, refreshJTI, "refresh", ipAddress, userAgent, time.Now().Add(7*24*time.Hour)); err != nil {
		return "", "", nil, fmt.Errorf("failed to create refresh session: %w", err)
	}
	_ = s.CreateSession(claims.UserID, newSessionID, accessJTI, "access", ipAddress, userAgent, time.Now().Add(24*time.Hour))

	return accessToken, newRefreshToken, user, nil
}

// InvalidateCurrentSession deletes the session pair behind a token. Works
// with expired tokens since logout must always succeed.
func (s *AuthService) InvalidateCurrentSession(token string) error {
	jti, err := s.authSvc.ExtractJTI(token)
	if err != nil {
		return fmt.Errorf("failed to extract JTI: %w", err)
	}

	session, err := s.sessionRepo.GetByJTI(jti)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	return s.sessionRepo.DeleteBySessionID(session.UserID, session.SessionID)
}

// GenerateSessionID generates a unique session identifier that links the
// access and refresh tokens from one login.
func (s *AuthService) GenerateSessionID() (string, error) {
	return auth.GenerateRandomToken(16)
}

// CreateSession records a session entry for a token JTI
func (s *AuthService) CreateSession(userID uint, sessionID, jti, tokenType, ipAddress, userAgent string, expiresAt time.Time) error {
	session := &models.Session{
		UserID:         userID,
		SessionID:      sessionID,
		JTI:            jti,
		TokenType:      tokenType,
		ExpiresAt:      expiresAt,
		LastActivityAt: time.Now(),
		CreatedAt:      time.Now(),
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
	}
	return s.sessionRepo.Create(session)
}

// VerifyEmail verifies a user's email address using a verification token
func (s *AuthService) VerifyEmail(tokenString string) error {
	token, err := s.tokenRepo.GetEmailVerificationToken(tokenString)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if token.UsedAt != nil {
		return fmt.Errorf("%w: token already used", ErrTokenInvalid)
	}
	if time.Now().After(token.ExpiresAt) {
		return fmt.Errorf("%w: token expired", ErrTokenInvalid)
	}

	if err := s.userRepo.VerifyEmail(token.UserID); err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	if err := s.tokenRepo.MarkEmailVerificationTokenUsed(token.ID); err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}

	user, err := s.userRepo.GetByID(token.UserID)
	if err == nil {
		name := user.FullName
		if name == "" {
			name = user.Email
		}
		_ = s.emailSvc.SendWelcomeEmail(user.Email, name)
	}

	return nil
}

// RequestPasswordReset initiates a password reset. Unknown addresses are
// not reported to the caller.
func (s *AuthService) RequestPasswordReset(emailAddr string) error {
	user, err := s.userRepo.GetByEmail(emailAddr)
	if err != nil {
		return nil
	}

	token, err := auth.GenerateRandomToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	resetToken := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}

	if err := s.tokenRepo.CreatePasswordResetToken(resetToken); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if err := s.emailSvc.SendPasswordResetEmail(user.Email, token); err != nil {
		slog.Error("Failed to send password reset email", "email", user.Email, "error", err)
	}

	return nil
}

// ResetPassword sets a new password using a reset token
func (s *AuthService) ResetPassword(tokenString, newPassword string) error {
	token, err := s.tokenRepo.GetPasswordResetToken(tokenString)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if token.UsedAt != nil {
		return fmt.Errorf("%w: token already used", ErrTokenInvalid)
	}
	if time.Now().After(token.ExpiresAt) {
		return fmt.Errorf("%w: token expired", ErrTokenInvalid)
	}

	passwordHash, err := s.authSvc.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(token.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.tokenRepo.MarkPasswordResetTokenUsed(token.ID); err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}

	return nil
}
