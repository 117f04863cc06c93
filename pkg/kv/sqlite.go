package kv

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the embedded-database backend. Documents are still whole
// collections; SQLite only gives durability and a single file on disk.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) a SQLite-backed store at the given path.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		doc TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteStore) GetCollection(name string) ([]byte, error) {
	var doc []byte
	err := s.conn.QueryRow(`SELECT doc FROM collections WHERE name = ?`, name).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteStore) PutCollection(name string, doc []byte) error {
	_, err := s.conn.Exec(
		`INSERT OR REPLACE INTO collections (name, doc, updated_at) VALUES (?, ?, ?)`,
		name, doc, time.Now(),
	)
	return err
}

func (s *SQLiteStore) DeleteCollection(name string) error {
	_, err := s.conn.Exec(`DELETE FROM collections WHERE name = ?`, name)
	return err
}

func (s *SQLiteStore) Collections() ([]string, error) {
	rows, err := s.conn.Query(`SELECT name FROM collections ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
