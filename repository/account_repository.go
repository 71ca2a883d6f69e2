// ABOUTME: SQL implementation of AccountRepository
// ABOUTME: Persists the local account and the remote identity it acquires on first sync

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/HieuLsw/NetNewsWire/models"

	"github.com/google/uuid"
)

// ErrAccountNotFound is returned when no account row exists. Callers
// use it to tell a missing account from a storage failure.
var ErrAccountNotFound = errors.New("account not found")

// SQLAccountRepository implements AccountRepository over database/sql.
type SQLAccountRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLAccountRepository creates a new account repository.
func NewSQLAccountRepository(db *sql.DB, logger *slog.Logger) AccountRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLAccountRepository{db: db, logger: logger}
}

// Create inserts a new account row.
func (r *SQLAccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, name, external_id, subscribed_to_changes, last_sync_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID.String(),
		account.Name,
		nullString(account.ExternalID),
		account.SubscribedToChanges,
		account.LastSyncAt,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.logger.Debug("Created account", "account_id", account.ID, "name", account.Name)
	return nil
}

// Update overwrites the mutable account fields.
func (r *SQLAccountRepository) Update(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET name = $2, external_id = $3, subscribed_to_changes = $4, last_sync_at = $5
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		account.ID.String(),
		account.Name,
		nullString(account.ExternalID),
		account.SubscribedToChanges,
		account.LastSyncAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account not found for update: %s", account.ID)
	}

	return nil
}

// FindByID finds an account by its local UUID.
func (r *SQLAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `
		SELECT id, name, external_id, subscribed_to_changes, last_sync_at, created_at
		FROM accounts
		WHERE id = $1`

	return r.scanAccount(r.db.QueryRowContext(ctx, query, id.String()))
}

// FindDefault returns the single account this service manages, the
// oldest one when more than one row exists.
func (r *SQLAccountRepository) FindDefault(ctx context.Context) (*models.Account, error) {
	query := `
		SELECT id, name, external_id, subscribed_to_changes, last_sync_at, created_at
		FROM accounts
		ORDER BY created_at ASC
		LIMIT 1`

	return r.scanAccount(r.db.QueryRowContext(ctx, query))
}

func (r *SQLAccountRepository) scanAccount(row *sql.Row) (*models.Account, error) {
	var account models.Account
	var externalID sql.NullString

	err := row.Scan(
		&account.ID,
		&account.Name,
		&externalID,
		&account.SubscribedToChanges,
		&account.LastSyncAt,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	if externalID.Valid {
		account.ExternalID = &externalID.String
	}

	return &account, nil
}

// nullString converts an optional string into its SQL representation.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
