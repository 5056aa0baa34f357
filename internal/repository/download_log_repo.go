package repository

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DownloadLogRepository is the append-only usage ledger. Rows are never updated or deleted.
type DownloadLogRepository interface {
	// Append inserts one ledger entry. ID and CreatedAt are filled in when empty.
	Append(ctx context.Context, entry *model.DownloadLog) error
	// ListByUser returns the user's full ledger, oldest first.
	ListByUser(ctx context.Context, userID string) ([]model.DownloadLog, error)
	// ListAll returns ledger entries of every user, newest first.
	ListAll(ctx context.Context, limit, offset int) ([]model.DownloadLog, error)
	// CountByUser returns the number of ledger entries per user id.
	CountByUser(ctx context.Context) (map[string]int, error)
}

type downloadLogRepo struct {
	pool *pgxpool.Pool
}

// NewDownloadLogRepo creates a new DownloadLogRepository.
func NewDownloadLogRepo(pool *pgxpool.Pool) DownloadLogRepository {
	return &downloadLogRepo{pool: pool}
}

func (r *downloadLogRepo) Append(ctx context.Context, entry *model.DownloadLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const q = `
        INSERT INTO download_logs (id, user_id, asset_id, asset_type, ip, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.pool.Exec(ctx, q, entry.ID, entry.UserID, entry.AssetID, entry.AssetType, entry.IP, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append download log for user %s asset %s: %w", entry.UserID, entry.AssetID, err)
	}
	return nil
}

func (r *downloadLogRepo) ListByUser(ctx context.Context, userID string) ([]model.DownloadLog, error) {
	const q = `
        SELECT id, user_id, asset_id, asset_type, ip, created_at
        FROM download_logs
        WHERE user_id = $1
        ORDER BY created_at ASC
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list download logs for user %s: %w", userID, err)
	}
	logs, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.DownloadLog])
	if err != nil {
		return nil, fmt.Errorf("scan download logs for user %s: %w", userID, err)
	}
	return logs, nil
}

func (r *downloadLogRepo) ListAll(ctx context.Context, limit, offset int) ([]model.DownloadLog, error) {
	const q = `
        SELECT id, user_id, asset_id, asset_type, ip, created_at
        FROM download_logs
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list download logs: %w", err)
	}
	logs, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.DownloadLog])
	if err != nil {
		return nil, fmt.Errorf("scan download logs: %w", err)
	}
	return logs, nil
}

func (r *downloadLogRepo) CountByUser(ctx context.Context) (map[string]int, error) {
	const q = `SELECT user_id, COUNT(*) FROM download_logs GROUP BY user_id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count download logs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("scan download count: %w", err)
		}
		counts[userID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate download counts: %w", err)
	}
	return counts, nil
}
