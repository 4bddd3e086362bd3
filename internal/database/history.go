package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tg-compress-bot/internal/models"
	"tg-compress-bot/pkg/utilities"
)

// HistoryRepository хранит историю сжатых файлов
type HistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db, now: time.Now}
}

// AppendJobRecord добавляет запись; время ставится в момент записи
func (r *HistoryRepository) AppendJobRecord(ctx context.Context, userID int64, originalName, outputPath string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO compressed_files (user_id, original_name, output_path, created_at) VALUES (?, ?, ?, ?)",
		userID,
		originalName,
		outputPath,
		utilities.FormatTimestamp(r.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save job record: %w", err)
	}

	return result.LastInsertId()
}

// ListJobRecords возвращает записи пользователя в порядке добавления
func (r *HistoryRepository) ListJobRecords(ctx context.Context, userID int64) ([]models.JobRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, original_name, output_path, created_at
		FROM compressed_files
		WHERE user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job records: %w", err)
	}
	defer rows.Close()

	var records []models.JobRecord
	for rows.Next() {
		var rec models.JobRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.OriginalName, &rec.OutputPath, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *HistoryRepository) GetJobRecord(ctx context.Context, userID, id int64) (models.JobRecord, error) {
	var rec models.JobRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, original_name, output_path, created_at
		FROM compressed_files
		WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&rec.ID, &rec.UserID, &rec.OriginalName, &rec.OutputPath, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, ErrRecordNotFound
		}
		return rec, fmt.Errorf("failed to get job record: %w", err)
	}
	return rec, nil
}

// DeleteJobRecord удаляет запись пользователя и возвращает ее.
// Из параллельных удалений одной записи успешно только одно, остальные получают ErrRecordNotFound.
func (r *HistoryRepository) DeleteJobRecord(ctx context.Context, userID, id int64) (models.JobRecord, error) {
	rec, err := r.GetJobRecord(ctx, userID, id)
	if err != nil {
		return rec, err
	}

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM compressed_files WHERE id = ? AND user_id = ?",
		id,
		userID,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to delete job record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return rec, fmt.Errorf("failed to delete job record: %w", err)
	}
	if affected == 0 {
		return models.JobRecord{}, ErrRecordNotFound
	}

	return rec, nil
}
