// ABOUTME: SQL implementation of FeedRepository
// ABOUTME: Feeds are keyed locally by UUID and remotely by the externalID the record store assigns

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/HieuLsw/NetNewsWire/models"

	"github.com/google/uuid"
)

const feedColumns = `id, account_id, folder_id, external_id, url, home_page_url, name, edited_name, created_at, updated_at`

// SQLFeedRepository implements FeedRepository over database/sql.
type SQLFeedRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLFeedRepository creates a new feed repository.
func NewSQLFeedRepository(db *sql.DB, logger *slog.Logger) FeedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLFeedRepository{db: db, logger: logger}
}

// Create inserts a new feed row.
func (r *SQLFeedRepository) Create(ctx context.Context, feed *models.Feed) error {
	query := `
		INSERT INTO feeds (` + feedColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		feed.ID.String(),
		feed.AccountID.String(),
		nullUUIDString(feed.FolderID),
		nullString(feed.ExternalID),
		feed.URL,
		feed.HomePageURL,
		feed.Name,
		feed.EditedName,
		feed.CreatedAt,
		feed.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}

	r.logger.Debug("Created feed", "feed_id", feed.ID, "url", feed.URL)
	return nil
}

// Update overwrites the mutable feed fields.
func (r *SQLFeedRepository) Update(ctx context.Context, feed *models.Feed) error {
	query := `
		UPDATE feeds
		SET folder_id = $2, external_id = $3, url = $4, home_page_url = $5,
		    name = $6, edited_name = $7, updated_at = $8
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		feed.ID.String(),
		nullUUIDString(feed.FolderID),
		nullString(feed.ExternalID),
		feed.URL,
		feed.HomePageURL,
		feed.Name,
		feed.EditedName,
		feed.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update feed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("feed not found for update: %s", feed.ID)
	}

	return nil
}

// Delete removes a feed row.
func (r *SQLFeedRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("feed not found for deletion: %s", id)
	}

	return nil
}

// FindByID finds a feed by its local UUID.
func (r *SQLFeedRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = $1`
	return scanFeed(r.db.QueryRowContext(ctx, query, id.String()))
}

// FindByURL finds a feed by its canonical URL inside an account. A nil
// result with a nil error means no such feed exists.
func (r *SQLFeedRepository) FindByURL(ctx context.Context, accountID uuid.UUID, url string) (*models.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE account_id = $1 AND url = $2`

	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, accountID.String(), url))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return feed, nil
}

// FindByExternalID finds the feed mirroring a remote record.
func (r *SQLFeedRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE external_id = $1`

	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return feed, nil
}

// GetAllByAccount returns every feed belonging to an account.
func (r *SQLFeedRepository) GetAllByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE account_id = $1 ORDER BY created_at ASC`
	return r.queryFeeds(ctx, query, accountID.String())
}

// GetByFolder returns the feeds currently inside a folder.
func (r *SQLFeedRepository) GetByFolder(ctx context.Context, folderID uuid.UUID) ([]*models.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE folder_id = $1 ORDER BY created_at ASC`
	return r.queryFeeds(ctx, query, folderID.String())
}

// DeleteAllByAccount removes every feed of an account, including their
// articles. Used only for account-invalidated teardown.
func (r *SQLFeedRepository) DeleteAllByAccount(ctx context.Context, accountID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM articles WHERE feed_id IN (SELECT id FROM feeds WHERE account_id = $1)`,
		accountID.String()); err != nil {
		return fmt.Errorf("failed to delete articles for account: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE account_id = $1`, accountID.String()); err != nil {
		return fmt.Errorf("failed to delete feeds for account: %w", err)
	}

	r.logger.Info("Deleted all feeds for account", "account_id", accountID)
	return nil
}

func (r *SQLFeedRepository) queryFeeds(ctx context.Context, query string, args ...any) ([]*models.Feed, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []*models.Feed
	for rows.Next() {
		feed, err := scanFeedRow(rows)
		if err != nil {
			r.logger.Error("Failed to scan feed row", "error", err)
			continue
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return feeds, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row *sql.Row) (*models.Feed, error) {
	feed, err := scanFeedRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return feed, nil
}

func scanFeedRow(row rowScanner) (*models.Feed, error) {
	var feed models.Feed
	var folderID uuid.NullUUID
	var externalID sql.NullString

	err := row.Scan(
		&feed.ID,
		&feed.AccountID,
		&folderID,
		&externalID,
		&feed.URL,
		&feed.HomePageURL,
		&feed.Name,
		&feed.EditedName,
		&feed.CreatedAt,
		&feed.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan feed: %w", err)
	}

	if folderID.Valid {
		id := folderID.UUID
		feed.FolderID = &id
	}
	if externalID.Valid {
		feed.ExternalID = &externalID.String
	}

	return &feed, nil
}

// nullUUIDString converts an optional UUID into its SQL representation.
func nullUUIDString(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}
