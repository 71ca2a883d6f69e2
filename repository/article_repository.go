// ABOUTME: SQL implementation of ArticleRepository
// ABOUTME: Articles are unique per (feed_id, unique_id); status flags are local state

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/HieuLsw/NetNewsWire/models"

	"github.com/google/uuid"
)

const articleColumns = `id, feed_id, unique_id, title, url, external_url, author, summary, content_html, content_hash, published_at, read, starred, fetched_at`

// SQLArticleRepository implements ArticleRepository over database/sql.
type SQLArticleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLArticleRepository creates a new article repository.
func NewSQLArticleRepository(db *sql.DB, logger *slog.Logger) ArticleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLArticleRepository{db: db, logger: logger}
}

// Create inserts a new article row.
func (r *SQLArticleRepository) Create(ctx context.Context, article *models.Article) error {
	query := `
		INSERT INTO articles (` + articleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		article.ID.String(),
		article.FeedID.String(),
		article.UniqueID,
		article.Title,
		article.URL,
		article.ExternalURL,
		article.Author,
		article.Summary,
		article.ContentHTML,
		article.ContentHash,
		article.PublishedAt,
		article.Read,
		article.Starred,
		article.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

// Update overwrites the article content fields. Status flags are
// updated separately via UpdateStatus.
func (r *SQLArticleRepository) Update(ctx context.Context, article *models.Article) error {
	query := `
		UPDATE articles
		SET title = $2, url = $3, external_url = $4, author = $5, summary = $6,
		    content_html = $7, content_hash = $8, published_at = $9, fetched_at = $10
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		article.ID.String(),
		article.Title,
		article.URL,
		article.ExternalURL,
		article.Author,
		article.Summary,
		article.ContentHTML,
		article.ContentHash,
		article.PublishedAt,
		article.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("article not found for update: %s", article.ID)
	}

	return nil
}

// Delete removes an article row.
func (r *SQLArticleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("article not found for deletion: %s", id)
	}

	return nil
}

// FindByID finds an article by its local UUID.
func (r *SQLArticleRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`

	article, err := scanArticleRow(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("article not found: %s", id)
		}
		return nil, err
	}
	return article, nil
}

// FindByKey finds an article by its stable (feed, unique) identity. A
// nil result with a nil error means the article has never been seen.
func (r *SQLArticleRepository) FindByKey(ctx context.Context, feedID uuid.UUID, uniqueID string) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE feed_id = $1 AND unique_id = $2`

	article, err := scanArticleRow(r.db.QueryRowContext(ctx, query, feedID.String(), uniqueID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return article, nil
}

// GetByFeedID returns every article of a feed.
func (r *SQLArticleRepository) GetByFeedID(ctx context.Context, feedID uuid.UUID) ([]*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE feed_id = $1 ORDER BY fetched_at DESC`

	rows, err := r.db.QueryContext(ctx, query, feedID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		article, err := scanArticleRow(rows)
		if err != nil {
			r.logger.Error("Failed to scan article row", "error", err)
			continue
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return articles, nil
}

// UpdateStatus flips one status flag on an article.
func (r *SQLArticleRepository) UpdateStatus(ctx context.Context, articleID uuid.UUID, key models.StatusKey, flag bool) error {
	var query string
	switch key {
	case models.StatusKeyRead:
		query = `UPDATE articles SET read = $2 WHERE id = $1`
	case models.StatusKeyStarred:
		query = `UPDATE articles SET starred = $2 WHERE id = $1`
	default:
		return fmt.Errorf("unknown status key: %s", key)
	}

	result, err := r.db.ExecContext(ctx, query, articleID.String(), flag)
	if err != nil {
		return fmt.Errorf("failed to update article status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("article not found for status update: %s", articleID)
	}

	return nil
}

// DeleteByFeedID removes every article of a feed.
func (r *SQLArticleRepository) DeleteByFeedID(ctx context.Context, feedID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE feed_id = $1`, feedID.String()); err != nil {
		return fmt.Errorf("failed to delete articles for feed: %w", err)
	}
	return nil
}

func scanArticleRow(row rowScanner) (*models.Article, error) {
	var article models.Article

	err := row.Scan(
		&article.ID,
		&article.FeedID,
		&article.UniqueID,
		&article.Title,
		&article.URL,
		&article.ExternalURL,
		&article.Author,
		&article.Summary,
		&article.ContentHTML,
		&article.ContentHash,
		&article.PublishedAt,
		&article.Read,
		&article.Starred,
		&article.FetchedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	return &article, nil
}
