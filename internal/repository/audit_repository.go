package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"solaudit/internal/models"
)

var ErrAuditNotFound = errors.New("audit not found")

// AuditRepository handles audit result database operations. Every query is
// scoped by user id; an audit belonging to another user behaves exactly like
// a missing one.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create persists a new audit result. The category breakdown is stored as a
// JSON document alongside the flat columns.
func (r *AuditRepository) Create(audit *models.AuditResult) error {
	resultJSON, err := json.Marshal(audit.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO audit_results (user_id, name, code, source_type, score, result, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err = r.db.QueryRow(
		query,
		audit.UserID,
		audit.Name,
		audit.Code,
		string(audit.SourceType),
		audit.Score,
		resultJSON,
		audit.Summary,
		now,
	).Scan(&audit.ID)
	if err != nil {
		return fmt.Errorf("failed to create audit: %w", err)
	}

	audit.CreatedAt = now
	return nil
}

const auditColumns = `id, user_id, name, code, source_type, score, result, summary, created_at`

func scanAudit(scan func(dest ...any) error) (*models.AuditResult, error) {
	audit := &models.AuditResult{}
	var sourceType string
	var resultJSON []byte

	err := scan(
		&audit.ID,
		&audit.UserID,
		&audit.Name,
		&audit.Code,
		&sourceType,
		&audit.Score,
		&resultJSON,
		&audit.Summary,
		&audit.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	audit.SourceType = models.SourceType(sourceType)
	if err := json.Unmarshal(resultJSON, &audit.Categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}
	return audit, nil
}

// GetByID retrieves an audit by id for a specific user
func (r *AuditRepository) GetByID(id, userID uint) (*models.AuditResult, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_results WHERE id = $1 AND user_id = $2`
	row := r.db.QueryRow(query, id, userID)

	audit, err := scanAudit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAuditNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}
	return audit, nil
}

// ListByUser returns a user's audits, newest first
func (r *AuditRepository) ListByUser(userID uint) ([]*models.AuditResult, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_results WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	var audits []*models.AuditResult
	for rows.Next() {
		audit, err := scanAudit(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

// Delete removes an audit owned by the given user
func (r *AuditRepository) Delete(id, userID uint) error {
	result, err := r.db.Exec(`DELETE FROM audit_results WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete audit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAuditNotFound
	}
	return nil
}
