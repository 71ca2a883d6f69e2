// ABOUTME: Database connection and schema migration for the sync core
// ABOUTME: Supports PostgreSQL for shared deployments and SQLite for single-host ones

package repository

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DatabaseOptions selects the driver and its connection parameters.
type DatabaseOptions struct {
	Driver   string // "postgres" or "sqlite"
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Path     string // sqlite file path, ":memory:" for tests
}

// Open connects to the configured database and verifies the connection.
func Open(opts DatabaseOptions) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch opts.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			opts.Host, opts.Port, opts.User, opts.Password, opts.Name, opts.SSLMode)
		db, err = sql.Open("postgres", dsn)
	case "sqlite":
		db, err = sql.Open("sqlite", opts.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.Driver == "sqlite" {
		// modernc sqlite does not tolerate concurrent writers on one file.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// RunMigrations applies all pending schema migrations and returns the
// resulting version.
func RunMigrations(db *sql.DB, driverName string) (uint, bool, error) {
	var driver database.Driver
	var err error

	switch driverName {
	case "postgres":
		driver, err = migratepostgres.WithInstance(db, &migratepostgres.Config{})
	case "sqlite":
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		return 0, false, fmt.Errorf("unsupported database driver: %s", driverName)
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}
