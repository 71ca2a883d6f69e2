// ABOUTME: SQL implementation of ZoneSyncStateRepository
// ABOUTME: Manages the per-zone change tokens driving incremental remote fetches

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/HieuLsw/NetNewsWire/models"
)

// SQLZoneSyncStateRepository implements ZoneSyncStateRepository over database/sql.
type SQLZoneSyncStateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLZoneSyncStateRepository creates a new zone sync state repository.
func NewSQLZoneSyncStateRepository(db *sql.DB, logger *slog.Logger) ZoneSyncStateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLZoneSyncStateRepository{db: db, logger: logger}
}

// FindByZone returns the sync state for zone, or nil when the zone has
// never been fetched.
func (r *SQLZoneSyncStateRepository) FindByZone(ctx context.Context, zone models.Zone) (*models.ZoneSyncState, error) {
	query := `
		SELECT id, zone, change_token, last_sync
		FROM zone_sync_state
		WHERE zone = $1`

	var state models.ZoneSyncState
	var zoneName string
	err := r.db.QueryRowContext(ctx, query, string(zone)).Scan(
		&state.ID,
		&zoneName,
		&state.ChangeToken,
		&state.LastSync,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sync state for zone %s: %w", zone, err)
	}

	state.Zone = models.Zone(zoneName)
	return &state, nil
}

// Save upserts the sync state for its zone.
func (r *SQLZoneSyncStateRepository) Save(ctx context.Context, state *models.ZoneSyncState) error {
	query := `
		INSERT INTO zone_sync_state (id, zone, change_token, last_sync)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (zone)
		DO UPDATE SET change_token = excluded.change_token, last_sync = excluded.last_sync`

	_, err := r.db.ExecContext(ctx, query,
		state.ID.String(),
		string(state.Zone),
		state.ChangeToken,
		state.LastSync,
	)
	if err != nil {
		return fmt.Errorf("failed to save sync state for zone %s: %w", state.Zone, err)
	}

	r.logger.Debug("Saved zone sync state",
		"zone", state.Zone,
		"has_token", state.ChangeToken != "")
	return nil
}

// UpdateChangeToken advances the cursor for a zone. The token is only
// moved after a fetched batch has been applied locally.
func (r *SQLZoneSyncStateRepository) UpdateChangeToken(ctx context.Context, zone models.Zone, token string) error {
	query := `UPDATE zone_sync_state SET change_token = $2, last_sync = $3 WHERE zone = $1`

	result, err := r.db.ExecContext(ctx, query, string(zone), token, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update change token for zone %s: %w", zone, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		// First fetch for this zone.
		return r.Save(ctx, models.NewZoneSyncState(zone, token))
	}

	return nil
}

// ResetChangeToken clears the cursor so the next fetch replays the
// zone's full change history. Used when the remote reports the token
// has expired.
func (r *SQLZoneSyncStateRepository) ResetChangeToken(ctx context.Context, zone models.Zone) error {
	if err := r.UpdateChangeToken(ctx, zone, ""); err != nil {
		return fmt.Errorf("failed to reset change token for zone %s: %w", zone, err)
	}

	r.logger.Warn("Reset change token for zone", "zone", zone)
	return nil
}
