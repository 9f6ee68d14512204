package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an app id has no row.
var ErrNotFound = errors.New("app not found")

// App is the stored metadata for one uploaded project.
type App struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Framework string `json:"framework,omitempty"`
	EntryFile string `json:"entry_file"`
	FileCount int    `json:"file_count"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

// DB wraps a sql.DB with stagebox-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS apps (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    framework TEXT NOT NULL DEFAULT '',
    entry_file TEXT NOT NULL DEFAULT 'index.html',
    file_count INTEGER NOT NULL DEFAULT 0,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_apps_created ON apps(created_at);
`

// InsertApp persists a new app row. CreatedAt is filled in when empty.
func (d *DB) InsertApp(ctx context.Context, app *App) error {
	if app.CreatedAt == "" {
		app.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := d.ExecContext(ctx,
		`INSERT INTO apps (id, name, framework, entry_file, file_count, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		app.ID, app.Name, app.Framework, app.EntryFile, app.FileCount, app.SizeBytes, app.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting app %s: %w", app.ID, err)
	}
	return nil
}

// ListApps returns all apps, newest first.
func (d *DB) ListApps(ctx context.Context) ([]App, error) {
	rows, err := d.QueryContext(ctx,
		`SELECT id, name, framework, entry_file, file_count, size_bytes, created_at
		 FROM apps ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing apps: %w", err)
	}
	defer rows.Close()

	apps := []App{}
	for rows.Next() {
		var a App
		if err := rows.Scan(&a.ID, &a.Name, &a.Framework, &a.EntryFile, &a.FileCount, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning app row: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// GetApp returns a single app by id.
func (d *DB) GetApp(ctx context.Context, id string) (*App, error) {
	var a App
	err := d.QueryRowContext(ctx,
		`SELECT id, name, framework, entry_file, file_count, size_bytes, created_at
		 FROM apps WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Framework, &a.EntryFile, &a.FileCount, &a.SizeBytes, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading app %s: %w", id, err)
	}
	return &a, nil
}

// DeleteApp removes an app row. Deleting an unknown id returns ErrNotFound.
func (d *DB) DeleteApp(ctx context.Context, id string) error {
	res, err := d.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting app %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
