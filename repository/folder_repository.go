// ABOUTME: SQL implementation of FolderRepository
// ABOUTME: Folders are the only container besides the account root and hold an unordered set of feeds

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/HieuLsw/NetNewsWire/models"

	"github.com/google/uuid"
)

const folderColumns = `id, account_id, external_id, name, created_at, updated_at`

// SQLFolderRepository implements FolderRepository over database/sql.
type SQLFolderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLFolderRepository creates a new folder repository.
func NewSQLFolderRepository(db *sql.DB, logger *slog.Logger) FolderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLFolderRepository{db: db, logger: logger}
}

// Create inserts a new folder row.
func (r *SQLFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := `
		INSERT INTO folders (` + folderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		folder.ID.String(),
		folder.AccountID.String(),
		nullString(folder.ExternalID),
		folder.Name,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	r.logger.Debug("Created folder", "folder_id", folder.ID, "name", folder.Name)
	return nil
}

// Update overwrites the mutable folder fields.
func (r *SQLFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := `
		UPDATE folders
		SET external_id = $2, name = $3, updated_at = $4
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		folder.ID.String(),
		nullString(folder.ExternalID),
		folder.Name,
		folder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("folder not found for update: %s", folder.ID)
	}

	return nil
}

// Delete removes a folder row. Feeds inside the folder must be moved or
// deleted first.
func (r *SQLFolderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("folder not found for deletion: %s", id)
	}

	return nil
}

// FindByID finds a folder by its local UUID.
func (r *SQLFolderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`

	folder, err := scanFolderRow(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("folder not found: %s", id)
		}
		return nil, err
	}
	return folder, nil
}

// FindByName finds a folder by name inside an account. A nil result
// with a nil error means no such folder exists.
func (r *SQLFolderRepository) FindByName(ctx context.Context, accountID uuid.UUID, name string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE account_id = $1 AND name = $2`

	folder, err := scanFolderRow(r.db.QueryRowContext(ctx, query, accountID.String(), name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return folder, nil
}

// FindByExternalID finds the folder mirroring a remote record.
func (r *SQLFolderRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE external_id = $1`

	folder, err := scanFolderRow(r.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return folder, nil
}

// GetAllByAccount returns every folder belonging to an account.
func (r *SQLFolderRepository) GetAllByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE account_id = $1 ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []*models.Folder
	for rows.Next() {
		folder, err := scanFolderRow(rows)
		if err != nil {
			r.logger.Error("Failed to scan folder row", "error", err)
			continue
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return folders, nil
}

// DeleteAllByAccount removes every folder of an account. Used only for
// account-invalidated teardown, after the feeds are gone.
func (r *SQLFolderRepository) DeleteAllByAccount(ctx context.Context, accountID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE account_id = $1`, accountID.String()); err != nil {
		return fmt.Errorf("failed to delete folders for account: %w", err)
	}

	r.logger.Info("Deleted all folders for account", "account_id", accountID)
	return nil
}

func scanFolderRow(row rowScanner) (*models.Folder, error) {
	var folder models.Folder
	var externalID sql.NullString

	err := row.Scan(
		&folder.ID,
		&folder.AccountID,
		&externalID,
		&folder.Name,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan folder: %w", err)
	}

	if externalID.Valid {
		folder.ExternalID = &externalID.String
	}

	return &folder, nil
}
