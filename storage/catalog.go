package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Catalog remembers retired files across restarts so retention still
// applies to files rotated by an earlier process.
type Catalog interface {
	Add(activePath string, f RetiredFile) error
	List(activePath string) ([]RetiredFile, error)
	Remove(path string) error
}

type SQLiteCatalog struct {
	db *sql.DB
}

func NewSQLiteCatalog(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

func (c *SQLiteCatalog) Add(activePath string, f RetiredFile) error {
	_, err := c.db.Exec(`
		INSERT INTO retired_files (id, active_path, path, size, created_at, retired_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			created_at = excluded.created_at,
			retired_at = excluded.retired_at
	`, ulid.Make().String(), activePath, f.Path, f.Size, f.CreatedAt.UnixMilli(), f.RetiredAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert retired file: %w", err)
	}
	return nil
}

// List returns the retired files of activePath, newest first.
func (c *SQLiteCatalog) List(activePath string) ([]RetiredFile, error) {
	rows, err := c.db.Query(`
		SELECT path, size, created_at, retired_at
		FROM retired_files WHERE active_path = ?
		ORDER BY retired_at DESC, path DESC
	`, activePath)
	if err != nil {
		return nil, fmt.Errorf("query retired files: %w", err)
	}
	defer rows.Close()

	var files []RetiredFile
	for rows.Next() {
		var (
			f                RetiredFile
			created, retired int64
		)
		if err := rows.Scan(&f.Path, &f.Size, &created, &retired); err != nil {
			return nil, fmt.Errorf("scan retired file: %w", err)
		}
		f.CreatedAt = time.UnixMilli(created)
		f.RetiredAt = time.UnixMilli(retired)
		files = append(files, f)
	}
	return files, rows.Err()
}

func (c *SQLiteCatalog) Remove(path string) error {
	if _, err := c.db.Exec("DELETE FROM retired_files WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete retired file: %w", err)
	}
	return nil
}
