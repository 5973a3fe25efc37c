// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/oai-harvest/pkg/types"
)

// Filter selects stored records. Zero fields do not restrict.
type Filter struct {
	Endpoint string
	Status   types.RecordStatus
	Set      string
	From     time.Time
	Until    time.Time

	// Limit caps the result count. Zero means no cap.
	Limit int
}

// StoredRecord is a record row with its harvesting provenance.
type StoredRecord struct {
	Identifier   string             `json:"identifier" yaml:"identifier"`
	Endpoint     string             `json:"endpoint" yaml:"endpoint"`
	Datestamp    time.Time          `json:"datestamp" yaml:"datestamp"`
	RawDatestamp string             `json:"raw_datestamp,omitempty" yaml:"raw_datestamp,omitempty"`
	Status       types.RecordStatus `json:"status" yaml:"status"`
	Sets         []string           `json:"sets,omitempty" yaml:"sets,omitempty"`
	Metadata     string             `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	SessionID    string             `json:"session_id" yaml:"session_id"`
	HarvestedAt  time.Time          `json:"harvested_at" yaml:"harvested_at"`
}

// Records returns stored records matching f, ordered by datestamp then
// identifier.
func (s *Store) Records(ctx context.Context, f Filter) ([]StoredRecord, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT identifier, endpoint, datestamp, status, sets, metadata, session_id, harvested_at
		FROM records r
		WHERE 1=1`)

	if f.Endpoint != "" {
		qb.WriteString(` AND r.endpoint = ?`)
		args = append(args, f.Endpoint)
	}
	if f.Status != "" {
		qb.WriteString(` AND r.status = ?`)
		args = append(args, string(f.Status))
	}
	if f.Set != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(r.sets) WHERE value = ?)`)
		args = append(args, f.Set)
	}
	if !f.From.IsZero() {
		qb.WriteString(` AND r.datestamp >= ?`)
		args = append(args, f.From.UTC().Format(timeLayout))
	}
	if !f.Until.IsZero() {
		qb.WriteString(` AND r.datestamp <= ?`)
		args = append(args, f.Until.UTC().Format(timeLayout))
	}

	qb.WriteString(` ORDER BY r.datestamp, r.identifier`)
	if f.Limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var results []StoredRecord
	for rows.Next() {
		var (
			r         StoredRecord
			status    string
			datestamp string
			harvested string
			setsJSON  sql.NullString
			metadata  sql.NullString
			sessionID sql.NullString
		)
		if err := rows.Scan(&r.Identifier, &r.Endpoint, &datestamp, &status, &setsJSON, &metadata, &sessionID, &harvested); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		r.Status = types.RecordStatus(status)
		if t, err := time.Parse(timeLayout, datestamp); err == nil {
			r.Datestamp = t
		} else {
			r.RawDatestamp = datestamp
		}
		r.HarvestedAt, _ = time.Parse(timeLayout, harvested)
		if setsJSON.Valid {
			json.Unmarshal([]byte(setsJSON.String), &r.Sets)
		}
		r.Metadata = metadata.String
		r.SessionID = sessionID.String

		results = append(results, r)
	}
	return results, rows.Err()
}

// Count returns the number of stored records for endpoint, or of all
// records when endpoint is empty.
func (s *Store) Count(ctx context.Context, endpoint string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM records WHERE ? = '' OR endpoint = ?`, endpoint, endpoint,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}
