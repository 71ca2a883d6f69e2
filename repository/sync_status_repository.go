// ABOUTME: SQL implementation of SyncStatusRepository, the durable status-sync queue
// ABOUTME: Selection marks a batch in flight; delete acknowledges it, reset re-queues it after a failed push

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/HieuLsw/NetNewsWire/models"
)

// SQLSyncStatusRepository implements SyncStatusRepository over database/sql.
type SQLSyncStatusRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLSyncStatusRepository creates a new sync status repository.
func NewSQLSyncStatusRepository(db *sql.DB, logger *slog.Logger) SyncStatusRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLSyncStatusRepository{db: db, logger: logger}
}

// Enqueue upserts pending statuses. Re-marking the same (article, key)
// pair overwrites the flag and makes the entry pending again.
func (r *SQLSyncStatusRepository) Enqueue(ctx context.Context, statuses []*models.SyncStatus) error {
	if len(statuses) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin enqueue transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sync_statuses (article_id, status_key, flag, selected, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (article_id, status_key)
		DO UPDATE SET flag = excluded.flag, selected = FALSE, created_at = excluded.created_at`

	for _, status := range statuses {
		if _, err := tx.ExecContext(ctx, query,
			status.ArticleID.String(),
			string(status.Key),
			status.Flag,
			status.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to enqueue sync status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit enqueue transaction: %w", err)
	}

	r.logger.Debug("Enqueued sync statuses", "count", len(statuses))
	return nil
}

// SelectForProcessing reads the pending statuses, marks exactly those
// rows as selected and returns them as the batch. Entries stay
// selected until they are deleted (delivered) or reset (push failed).
func (r *SQLSyncStatusRepository) SelectForProcessing(ctx context.Context) ([]*models.SyncStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin selection transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT article_id, status_key, flag, selected, created_at
		FROM sync_statuses
		WHERE selected = FALSE
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending statuses: %w", err)
	}

	var statuses []*models.SyncStatus
	for rows.Next() {
		var status models.SyncStatus
		var key string
		if err := rows.Scan(&status.ArticleID, &key, &status.Flag, &status.Selected, &status.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sync status: %w", err)
		}
		status.Key = models.StatusKey(key)
		statuses = append(statuses, &status)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	// Mark only the scanned rows. A status committed by a concurrent
	// Enqueue between the read and the update must stay pending, or it
	// would be selected without ever entering a push batch.
	for _, status := range statuses {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sync_statuses SET selected = TRUE WHERE article_id = $1 AND status_key = $2 AND selected = FALSE`,
			status.ArticleID.String(), string(status.Key)); err != nil {
			return nil, fmt.Errorf("failed to mark statuses selected: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit selection transaction: %w", err)
	}

	for _, status := range statuses {
		status.Selected = true
	}

	return statuses, nil
}

// DeleteSelectedForProcessing removes statuses acknowledged by the
// remote store.
func (r *SQLSyncStatusRepository) DeleteSelectedForProcessing(ctx context.Context, statuses []*models.SyncStatus) error {
	return r.execPerStatus(ctx, statuses,
		`DELETE FROM sync_statuses WHERE article_id = $1 AND status_key = $2 AND selected = TRUE`,
		"delete delivered statuses")
}

// ResetSelectedForProcessing makes statuses eligible for re-selection.
// Called after a failed push so the batch is retried on the next cycle.
func (r *SQLSyncStatusRepository) ResetSelectedForProcessing(ctx context.Context, statuses []*models.SyncStatus) error {
	return r.execPerStatus(ctx, statuses,
		`UPDATE sync_statuses SET selected = FALSE WHERE article_id = $1 AND status_key = $2`,
		"reset pending statuses")
}

// SelectPendingCount counts the statuses not yet selected for delivery.
func (r *SQLSyncStatusRepository) SelectPendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_statuses WHERE selected = FALSE`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending statuses: %w", err)
	}
	return count, nil
}

func (r *SQLSyncStatusRepository) execPerStatus(ctx context.Context, statuses []*models.SyncStatus, query, op string) error {
	if len(statuses) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction to %s: %w", op, err)
	}
	defer tx.Rollback()

	for _, status := range statuses {
		if _, err := tx.ExecContext(ctx, query, status.ArticleID.String(), string(status.Key)); err != nil {
			return fmt.Errorf("failed to %s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction to %s: %w", op, err)
	}

	return nil
}
