package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"solaudit/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository handles session database operations
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session row
func (r *SessionRepository) Create(session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now()

	query := `
		INSERT INTO sessions (id, user_id, session_id, jti, token_type, expires_at, last_activity_at, created_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(
		query,
		session.ID,
		session.UserID,
		session.SessionID,
		session.JTI,
		session.TokenType,
		session.ExpiresAt,
		now,
		now,
		session.IPAddress,
		session.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	session.LastActivityAt = now
	session.CreatedAt = now
	return nil
}

// GetByJTI retrieves a non-expired session by token JTI
func (r *SessionRepository) GetByJTI(jti string) (*models.Session, error) {
	query := `
		SELECT id, user_id, session_id, jti, token_type, expires_at, last_activity_at, created_at, ip_address, user_agent
		FROM sessions
		WHERE jti = $1 AND expires_at > $2
	`
	session := &models.Session{}
	err := r.db.QueryRow(query, jti, time.Now()).Scan(
		&session.ID,
		&session.UserID,
		&session.SessionID,
		&session.JTI,
		&session.TokenType,
		&session.ExpiresAt,
		&session.LastActivityAt,
		&session.CreatedAt,
		&session.IPAddress,
		&session.UserAgent,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListByUser returns all active sessions for a user
func (r *SessionRepository) ListByUser(userID uint) ([]models.Session, error) {
	query := `
		SELECT id, user_id, session_id, jti, token_type, expires_at, last_activity_at, created_at, ip_address, user_agent
		FROM sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY last_activity_at DESC
	`
	rows, err := r.db.Query(query, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.SessionID,
			&session.JTI,
			&session.TokenType,
			&session.ExpiresAt,
			&session.LastActivityAt,
			&session.CreatedAt,
			&session.IPAddress,
			&session.UserAgent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// TouchActivity updates a session's last activity timestamp
func (r *SessionRepository) TouchActivity(jti string) error {
	query := `UPDATE sessions SET last_activity_at = $1 WHERE jti = $2`
	_, err := r.db.Exec(query, time.Now(), jti)
	return err
}

// DeleteByJTI removes a session by its JTI
func (r *SessionRepository) DeleteByJTI(jti string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE jti = $1`, jti)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteBySessionID removes all sessions that share a login session id,
// scoped to the owning user.
func (r *SessionRepository) DeleteBySessionID(userID uint, sessionID string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE user_id = $1 AND session_id = $2`, userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes all expired sessions
func (r *SessionRepository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
