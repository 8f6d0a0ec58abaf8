package repository

import (
	"database/sql"
	"fmt"
	"time"

	"solaudit/internal/models"
)

// ActivityRepository handles activity log database operations
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new activity log repository
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create stores an activity log entry
func (r *ActivityRepository) Create(entry *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (user_id, action, resource, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	now := time.Now()
	if err := r.db.QueryRow(
		query,
		entry.UserID,
		entry.Action,
		entry.Resource,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
		now,
	).Scan(&entry.ID); err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}
	entry.CreatedAt = now
	return nil
}

// ListByUser returns the most recent activity entries for a user
func (r *ActivityRepository) ListByUser(userID uint, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, action, resource, details, ip_address, user_agent, created_at
		FROM activity_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityLog
	for rows.Next() {
		var entry models.ActivityLog
		var uid sql.NullInt64
		if err := rows.Scan(
			&entry.ID,
			&uid,
			&entry.Action,
			&entry.Resource,
			&entry.Details,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		if uid.Valid {
			v := uint(uid.Int64)
			entry.UserID = &v
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
