// Package store provides SQLite-based persistence for user integrations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danielolaszy/covalynce/pkg/models"
	_ "modernc.org/sqlite"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned when a user has no row for a provider.
var ErrNotFound = errors.New("integration not found")

// Store wraps the SQL database connection.
type Store struct {
	db   *sql.DB
	path string
}

// Integration is one user's connection to one provider.
type Integration struct {
	UserID       string
	Provider     models.Provider
	AccessToken  string
	RefreshToken string
	Metadata     map[string]string
	UpdatedAt    time.Time
}

// Open opens or creates a SQLite database at the given path.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var version int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration1},
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// Migration 1: user integrations
const migration1 = `
CREATE TABLE IF NOT EXISTS user_integrations (
    user_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    access_token TEXT NOT NULL DEFAULT '',
    refresh_token TEXT NOT NULL DEFAULT '',
    metadata TEXT NOT NULL DEFAULT '{}',
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, provider)
);
`

// GetToken returns the access token a user stored for a provider.
// A row without a token is reported as ErrNotFound.
func (s *Store) GetToken(ctx context.Context, userID string, provider models.Provider) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		"SELECT access_token FROM user_integrations WHERE user_id = ? AND provider = ?",
		userID, string(provider)).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s token: %w", provider, err)
	}
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// GetMetadata returns the provider metadata a user stored. Missing rows
// yield ErrNotFound.
func (s *Store) GetMetadata(ctx context.Context, userID string, provider models.Provider) (map[string]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT metadata FROM user_integrations WHERE user_id = ? AND provider = ?",
		userID, string(provider)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s metadata: %w", provider, err)
	}
	return decodeMetadata(raw)
}

// UpsertToken stores the tokens for a user's provider, keeping metadata.
func (s *Store) UpsertToken(ctx context.Context, userID string, provider models.Provider, accessToken, refreshToken string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_integrations (user_id, provider, access_token, refresh_token, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = CURRENT_TIMESTAMP
	`, userID, string(provider), accessToken, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to save %s token: %w", provider, err)
	}
	return nil
}

// UpsertMetadata merges values into the stored metadata for a user's provider.
func (s *Store) UpsertMetadata(ctx context.Context, userID string, provider models.Provider, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	merged := map[string]string{}
	var raw string
	err = tx.QueryRowContext(ctx,
		"SELECT metadata FROM user_integrations WHERE user_id = ? AND provider = ?",
		userID, string(provider)).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to read %s metadata: %w", provider, err)
	default:
		if merged, err = decodeMetadata(raw); err != nil {
			return err
		}
	}

	for k, v := range values {
		merged[k] = v
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_integrations (user_id, provider, metadata, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
	`, userID, string(provider), string(encoded))
	if err != nil {
		return fmt.Errorf("failed to save %s metadata: %w", provider, err)
	}

	return tx.Commit()
}

// ListIntegrations returns every integration row of a user ordered by provider.
func (s *Store) ListIntegrations(ctx context.Context, userID string) ([]Integration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, provider, access_token, refresh_token, metadata, CAST(updated_at AS TEXT)
		FROM user_integrations WHERE user_id = ? ORDER BY provider
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	var result []Integration
	for rows.Next() {
		var (
			in       Integration
			provider string
			raw      string
			updated  string
		)
		if err := rows.Scan(&in.UserID, &provider, &in.AccessToken, &in.RefreshToken, &raw, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		in.UpdatedAt, _ = time.Parse(sqliteTimeLayout, updated)
		in.Provider = models.Provider(provider)
		if in.Metadata, err = decodeMetadata(raw); err != nil {
			return nil, err
		}
		result = append(result, in)
	}
	return result, rows.Err()
}

func decodeMetadata(raw string) (map[string]string, error) {
	metadata := map[string]string{}
	if raw == "" {
		return metadata, nil
	}
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}
