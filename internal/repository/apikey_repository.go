package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"solaudit/internal/models"
	"solaudit/internal/securestore"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

// APIKeyRepository handles provider credential database operations.
// Key material is sealed by the secure store before it is written and
// opened after it is read; the database only ever sees ciphertext.
type APIKeyRepository struct {
	db    *sql.DB
	store *securestore.SecureStore
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *sql.DB, store *securestore.SecureStore) *APIKeyRepository {
	return &APIKeyRepository{db: db, store: store}
}

// Upsert creates or replaces the credential for (user, provider)
func (r *APIKeyRepository) Upsert(key *models.APIKey) error {
	sealed, err := r.store.Seal(key.APIKey)
	if err != nil {
		return fmt.Errorf("failed to seal api key: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO api_keys (user_id, api_name, api_key, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, api_name)
		DO UPDATE SET api_key = EXCLUDED.api_key, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Exec(query, key.UserID, key.APIName, sealed, now); err != nil {
		return fmt.Errorf("failed to upsert api key: %w", err)
	}

	key.UpdatedAt = now
	return nil
}

// Get retrieves and decrypts the credential for (user, provider)
func (r *APIKeyRepository) Get(userID uint, apiName string) (*models.APIKey, error) {
	query := `
		SELECT user_id, api_name, api_key, updated_at
		FROM api_keys
		WHERE user_id = $1 AND api_name = $2
	`
	key := &models.APIKey{}
	var sealed string
	err := r.db.QueryRow(query, userID, apiName).Scan(&key.UserID, &key.APIName, &sealed, &key.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	plain, err := r.store.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open api key: %w", err)
	}
	key.APIKey = plain

	return key, nil
}

// List returns all credentials configured by a user, without key material
func (r *APIKeyRepository) List(userID uint) ([]models.APIKey, error) {
	query := `
		SELECT user_id, api_name, updated_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY api_name
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		var key models.APIKey
		if err := rows.Scan(&key.UserID, &key.APIName, &key.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Delete removes the credential for (user, provider)
func (r *APIKeyRepository) Delete(userID uint, apiName string) error {
	result, err := r.db.Exec(`DELETE FROM api_keys WHERE user_id = $1 AND api_name = $2`, userID, apiName)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}
