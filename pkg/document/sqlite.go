package document

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/gridpro/gridpro/pkg/errors"
)

// SQLite is a Document stored in an SQLite database, for hosts that keep
// their auxiliary storage in one.
// Schema: embedded_code(name, position, source, fingerprint, modified_at).
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at path, creating it and its schema if
// needed.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.WithContext("create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WithContext("open database", err)
	}

	// A single connection serializes access, and keeps the pragmas below
	// applied to every statement.
	db.SetMaxOpenConns(1)

	// Enable WAL mode so other processes can read during a Save.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.WithContext("enable WAL mode", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, errors.WithContext("set busy timeout", err)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, errors.WithContext("create schema", err)
	}

	log.WithField("path", path).Debug("Opened SQLite document")
	return s, nil
}

func (s *SQLite) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS embedded_code (
			name        TEXT PRIMARY KEY,
			position    INTEGER NOT NULL,
			source      BLOB NOT NULL,
			fingerprint TEXT NOT NULL DEFAULT '',
			modified_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_embedded_code_position
			ON embedded_code(position);
	`)
	return err
}

func (s *SQLite) Load(ctx context.Context, name string) (Record, error) {
	var source []byte
	var fingerprint, modifiedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT source, fingerprint, modified_at FROM embedded_code WHERE name = ?`,
		name).Scan(&source, &fingerprint, &modifiedAt)
	if err == sql.ErrNoRows {
		return Record{}, notFound(name)
	}
	if err != nil {
		return Record{}, errors.WithContext("query embedded code", err)
	}

	modified, err := time.Parse(time.RFC3339Nano, modifiedAt)
	if err != nil {
		return Record{}, corrupt(name, "parse modified_at: %s", err)
	}

	return Record{
		Name:        name,
		Source:      source,
		Fingerprint: fingerprint,
		Modified:    modified,
	}, nil
}

// Save inserts or replaces the record in a single statement. New records are
// appended to the end of the document; replaced records keep their position.
func (s *SQLite) Save(ctx context.Context, record Record) error {
	source := record.Source
	if source == nil {
		source = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embedded_code (name, position, source, fingerprint, modified_at)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM embedded_code), ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source = excluded.source,
			fingerprint = excluded.fingerprint,
			modified_at = excluded.modified_at
	`, record.Name, source, record.Fingerprint, record.Modified.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.WithContext("save embedded code", err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM embedded_code WHERE name = ?`, name)
	if err != nil {
		return errors.WithContext("delete embedded code", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.WithContext("delete embedded code", err)
	}
	if rows == 0 {
		return notFound(name)
	}
	return nil
}

func (s *SQLite) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM embedded_code ORDER BY position`)
	if err != nil {
		return nil, errors.WithContext("list embedded code", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.WithContext("scan embedded code name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
