package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CredentialRepository хранит API-ключи пользователей
type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// SetCredential сохраняет ключ, перезаписывая предыдущий
func (r *CredentialRepository) SetCredential(ctx context.Context, userID int64, apiKey string) error {
	// REPLACE INTO поддерживают и MySQL, и SQLite
	_, err := r.db.ExecContext(ctx,
		"REPLACE INTO users (user_id, api_key) VALUES (?, ?)",
		userID,
		apiKey,
	)
	if err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}
	return nil
}

// GetCredential возвращает ключ; found=false если ключ не задан
func (r *CredentialRepository) GetCredential(ctx context.Context, userID int64) (string, bool, error) {
	var apiKey string
	err := r.db.QueryRowContext(ctx,
		"SELECT api_key FROM users WHERE user_id = ?",
		userID,
	).Scan(&apiKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get api key: %w", err)
	}
	return apiKey, true, nil
}
