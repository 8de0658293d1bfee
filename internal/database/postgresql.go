package database

import (
	"context"
	"embed"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/atishaytuli/YURL/internal/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Database is the durable link store backed by Postgres.
type Database struct {
	db *sqlx.DB
}

func ConnectPostgres(ctx context.Context, url string) (*Database, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, err
	}

	pg := &Database{db: db}

	if err := pg.RunMigrations(); err != nil {
		return nil, err
	}

	return pg, nil
}

func (db *Database) RunMigrations() error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db.db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance(
		"iofs", d,
		"postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	slog.Info("Database migrations applied successfully")
	return nil
}

// CreateLink inserts the record and fills in the store-assigned ID and
// CreatedAt. A duplicate short_code or custom_alias surfaces as a
// unique-violation error, see IsUniqueViolation.
func (db *Database) CreateLink(ctx context.Context, link *types.Link) error {
	const query = `
		INSERT INTO links (owner_id, title, original_url, short_code, custom_alias, qr_asset_name, qr_asset_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return db.db.QueryRowxContext(ctx, query,
		link.OwnerID, link.Title, link.OriginalURL,
		link.ShortCode, link.CustomAlias,
		link.QRAssetName, link.QRAssetURL,
	).Scan(&link.ID, &link.CreatedAt)
}

// GetLink is an ownership-scoped read: both id and owner must match.
func (db *Database) GetLink(ctx context.Context, id, ownerID string) (*types.Link, error) {
	var link types.Link
	const query = `SELECT * FROM links WHERE id = $1 AND owner_id = $2`
	if err := db.db.GetContext(ctx, &link, query, id, ownerID); err != nil {
		return nil, err
	}
	return &link, nil
}

// ResolveCode matches either column, without ownership. This is the
// redirect hot path.
func (db *Database) ResolveCode(ctx context.Context, code string) (*types.ResolvedLink, error) {
	var resolved types.ResolvedLink
	const query = `SELECT id, original_url FROM links WHERE short_code = $1 OR custom_alias = $1`
	if err := db.db.GetContext(ctx, &resolved, query, code); err != nil {
		return nil, err
	}
	return &resolved, nil
}

// CodeExists reports whether any link already resolves the given code,
// checking both short_code and custom_alias.
func (db *Database) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1 OR custom_alias = $1)`
	if err := db.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteLink removes the record and returns the deleted row so the
// caller can clean up the QR asset.
func (db *Database) DeleteLink(ctx context.Context, id string) (*types.Link, error) {
	var link types.Link
	const query = `DELETE FROM links WHERE id = $1 RETURNING *`
	if err := db.db.QueryRowxContext(ctx, query, id).StructScan(&link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (db *Database) ListByOwner(ctx context.Context, ownerID string) ([]types.Link, error) {
	links := []types.Link{}
	const query = `SELECT * FROM links WHERE owner_id = $1 ORDER BY created_at DESC`
	if err := db.db.SelectContext(ctx, &links, query, ownerID); err != nil {
		return nil, err
	}
	return links, nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// failure (duplicate short_code or custom_alias).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (db *Database) Close() error {
	return db.db.Close()
}
