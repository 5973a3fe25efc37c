// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists harvested records and resumption checkpoints in a
// SQLite database, so an interrupted harvest can resume from its last token
// and a completed one can be exported.
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

	_ "github.com/mattn/go-sqlite3"
	"github.com/mitchellh/go-homedir"

	"github.com/pdiddy/oai-harvest/pkg/types"
)

// DefaultPath is used when StoreConfig.Path is empty.
const DefaultPath = "harvest.db"

// timeLayout sorts lexically; all stored times are UTC.
const timeLayout = "2006-01-02T15:04:05Z"

// Store manages the harvest SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at cfg.Path and creates the schema if
// it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding store path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Records and checkpoints are written from different goroutines.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			identifier TEXT PRIMARY KEY,
			endpoint TEXT NOT NULL,
			datestamp TEXT NOT NULL,
			status TEXT NOT NULL,
			sets TEXT,
			metadata TEXT,
			session_id TEXT,
			harvested_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_endpoint ON records(endpoint)`,
		`CREATE INDEX IF NOT EXISTS idx_records_datestamp ON records(datestamp)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			metadata_prefix TEXT NOT NULL,
			set_spec TEXT NOT NULL,
			token TEXT NOT NULL,
			expiration_date TEXT,
			cursor INTEGER,
			records INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_query ON checkpoints(endpoint, metadata_prefix, set_spec)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func datestamp(h types.RecordHeader) string {
	if h.Datestamp.IsZero() && h.RawDatestamp != "" {
		return h.RawDatestamp
	}
	return h.Datestamp.UTC().Format(timeLayout)
}

// SaveRecord inserts or replaces a record by identifier. content is the
// rendered metadata; it is not stored for deleted records.
func (s *Store) SaveRecord(ctx context.Context, sessionID, endpoint string, rec types.Record, content string) error {
	setsJSON, err := json.Marshal(rec.Header.Sets)
	if err != nil {
		return fmt.Errorf("marshaling sets: %w", err)
	}

	var metadata sql.NullString
	if !rec.Header.Deleted() {
		metadata = sql.NullString{String: content, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (identifier, endpoint, datestamp, status, sets, metadata, session_id, harvested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			endpoint = excluded.endpoint,
			datestamp = excluded.datestamp,
			status = excluded.status,
			sets = excluded.sets,
			metadata = excluded.metadata,
			session_id = excluded.session_id,
			harvested_at = excluded.harvested_at`,
		rec.Header.Identifier, endpoint, datestamp(rec.Header),
		string(rec.Header.Status), string(setsJSON), metadata, sessionID,
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("saving record %s: %w", rec.Header.Identifier, err)
	}
	return nil
}

// Checkpoint records the resumption state at the end of a page. An empty
// Token marks a harvest that ran to completion.
type Checkpoint struct {
	SessionID      string    `json:"session_id" yaml:"session_id"`
	Endpoint       string    `json:"endpoint" yaml:"endpoint"`
	MetadataPrefix string    `json:"metadata_prefix" yaml:"metadata_prefix"`
	Set            string    `json:"set,omitempty" yaml:"set,omitempty"`
	Token          string    `json:"token" yaml:"token"`
	ExpirationDate time.Time `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`
	Cursor         *int      `json:"cursor,omitempty" yaml:"cursor,omitempty"`
	Records        int       `json:"records" yaml:"records"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

// Complete reports whether the checkpoint marks an exhausted list.
func (c Checkpoint) Complete() bool { return c.Token == "" }

// SaveCheckpoint appends a checkpoint. A zero CreatedAt is set to now.
func (s *Store) SaveCheckpoint(ctx context.Context, c Checkpoint) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	var expiration sql.NullString
	if !c.ExpirationDate.IsZero() {
		expiration = sql.NullString{String: c.ExpirationDate.UTC().Format(timeLayout), Valid: true}
	}
	var cursor sql.NullInt64
	if c.Cursor != nil {
		cursor = sql.NullInt64{Int64: int64(*c.Cursor), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, endpoint, metadata_prefix, set_spec, token, expiration_date, cursor, records, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SessionID, c.Endpoint, c.MetadataPrefix, c.Set, c.Token, expiration, cursor, c.Records,
		c.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// LastCheckpoint returns the most recent checkpoint for a query, or nil
// when none exists.
func (s *Store) LastCheckpoint(ctx context.Context, endpoint, metadataPrefix, set string) (*Checkpoint, error) {
	var (
		c          Checkpoint
		expiration sql.NullString
		cursor     sql.NullInt64
		created    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, endpoint, metadata_prefix, set_spec, token, expiration_date, cursor, records, created_at
		FROM checkpoints
		WHERE endpoint = ? AND metadata_prefix = ? AND set_spec = ?
		ORDER BY id DESC LIMIT 1`,
		endpoint, metadataPrefix, set,
	).Scan(&c.SessionID, &c.Endpoint, &c.MetadataPrefix, &c.Set, &c.Token, &expiration, &cursor, &c.Records, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying checkpoint: %w", err)
	}

	if expiration.Valid {
		c.ExpirationDate, _ = time.Parse(timeLayout, expiration.String)
	}
	if cursor.Valid {
		n := int(cursor.Int64)
		c.Cursor = &n
	}
	c.CreatedAt, _ = time.Parse(timeLayout, created)
	return &c, nil
}
