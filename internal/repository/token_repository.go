package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"solaudit/internal/models"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenRepository handles verification and reset token database operations
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// CreateEmailVerificationToken stores a new email verification token
func (r *TokenRepository) CreateEmailVerificationToken(token *models.EmailVerificationToken) error {
	query := `
		INSERT INTO email_verification_tokens (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	now := time.Now()
	if err := r.db.QueryRow(query, token.UserID, token.Token, token.ExpiresAt, now).Scan(&token.ID); err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	token.CreatedAt = now
	return nil
}

// GetEmailVerificationToken retrieves an email verification token by value
func (r *TokenRepository) GetEmailVerificationToken(tokenString string) (*models.EmailVerificationToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used_at, created_at
		FROM email_verification_tokens
		WHERE token = $1
	`
	token := &models.EmailVerificationToken{}
	err := r.db.QueryRow(query, tokenString).Scan(
		&token.ID, &token.UserID, &token.Token, &token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification token: %w", err)
	}
	return token, nil
}

// MarkEmailVerificationTokenUsed marks a verification token as consumed
func (r *TokenRepository) MarkEmailVerificationTokenUsed(id uint) error {
	query := `UPDATE email_verification_tokens SET used_at = $1 WHERE id = $2`
	if _, err := r.db.Exec(query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}
	return nil
}

// CreatePasswordResetToken stores a new password reset token
func (r *TokenRepository) CreatePasswordResetToken(token *models.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	now := time.Now()
	if err := r.db.QueryRow(query, token.UserID, token.Token, token.ExpiresAt, now).Scan(&token.ID); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	token.CreatedAt = now
	return nil
}

// GetPasswordResetToken retrieves a password reset token by value
func (r *TokenRepository) GetPasswordResetToken(tokenString string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`
	token := &models.PasswordResetToken{}
	err := r.db.QueryRow(query, tokenString).Scan(
		&token.ID, &token.UserID, &token.Token, &token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return token, nil
}

// MarkPasswordResetTokenUsed marks a reset token as consumed
func (r *TokenRepository) MarkPasswordResetTokenUsed(id uint) error {
	query := `UPDATE password_reset_tokens SET used_at = $1 WHERE id = $2`
	if _, err := r.db.Exec(query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}
	return nil
}
