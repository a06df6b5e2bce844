package sqliterepo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jrsteele09/go-credential-service/token/refresh"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

var _ refresh.Repo = (*Repo)(nil)

// Repo is the SQLite-backed refresh-token repository.
type Repo struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(ctx context.Context, dbPath string) (*Repo, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite in WAL mode supports many readers but a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	repo := &Repo{db: db}
	if err := repo.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) runMigrations() error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(r.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

func (r *Repo) Add(ctx context.Context, record *refresh.Record) error {
	query := `
		INSERT INTO user_refresh_tokens
			(user_id, jwt_id, access_token, refresh_token, is_used, is_revoked, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.UserID,
		record.JwtID,
		record.AccessToken,
		record.RefreshToken,
		record.IsUsed,
		record.IsRevoked,
		record.CreatedAt,
		record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add refresh token record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted id: %w", err)
	}
	record.ID = id

	return nil
}

func (r *Repo) Update(ctx context.Context, record *refresh.Record) error {
	query := `
		UPDATE user_refresh_tokens
		SET is_used = ?, is_revoked = ?, expires_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		record.IsUsed,
		record.IsRevoked,
		record.ExpiresAt,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update refresh token record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return refresh.ErrNotFound
	}

	return nil
}

func (r *Repo) Find(ctx context.Context, accessToken, refreshToken string, userID int64) (*refresh.Record, error) {
	query := `
		SELECT id, user_id, jwt_id, access_token, refresh_token, is_used, is_revoked, created_at, expires_at
		FROM user_refresh_tokens
		WHERE access_token = ? AND refresh_token = ? AND user_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	record := &refresh.Record{}
	err := r.db.QueryRowContext(ctx, query, accessToken, refreshToken, userID).Scan(
		&record.ID,
		&record.UserID,
		&record.JwtID,
		&record.AccessToken,
		&record.RefreshToken,
		&record.IsUsed,
		&record.IsRevoked,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, refresh.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token record: %w", err)
	}

	return record, nil
}
