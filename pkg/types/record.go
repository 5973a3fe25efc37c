// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the oai-harvest module:
// the harvesting query, normalized records, resumption tokens, and the
// configuration structs consumed by the CLI and the harvesting core.
package types

import "time"

// QuerySpec holds the selective-harvesting arguments of a ListRecords
// session. It is fixed for the lifetime of a session and sent only on the
// first request; continuation requests carry the resumption token alone.
type QuerySpec struct {
	// MetadataPrefix selects the metadata format (e.g. "oai_dc", "marc21").
	MetadataPrefix string `json:"metadata_prefix" yaml:"metadata_prefix"`

	// Set restricts the harvest to a set spec. Empty means no restriction.
	Set string `json:"set,omitempty" yaml:"set,omitempty"`

	// From is the inclusive lower datestamp bound. Zero means unbounded.
	From time.Time `json:"from,omitempty" yaml:"from,omitempty"`

	// Until is the inclusive upper datestamp bound. Zero means unbounded.
	Until time.Time `json:"until,omitempty" yaml:"until,omitempty"`
}

// ResumptionToken is the server-issued continuation cursor of a list
// response. Token is forwarded verbatim on the next request.
type ResumptionToken struct {
	Token string `json:"token" yaml:"token"`

	// ExpirationDate is zero when the server did not send one.
	ExpirationDate time.Time `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`

	// Cursor is nil when the server did not send one.
	Cursor *int `json:"cursor,omitempty" yaml:"cursor,omitempty"`

	// CompleteListSize is nil when the server did not send one.
	CompleteListSize *int `json:"complete_list_size,omitempty" yaml:"complete_list_size,omitempty"`
}

// RecordStatus is the deletion status of a record header.
type RecordStatus string

const (
	StatusActive  RecordStatus = "active"
	StatusDeleted RecordStatus = "deleted"
)

// RecordHeader identifies a harvested record.
type RecordHeader struct {
	Identifier string       `json:"identifier" yaml:"identifier"`
	Datestamp  time.Time    `json:"datestamp" yaml:"datestamp"`
	Status     RecordStatus `json:"status" yaml:"status"`

	// RawDatestamp keeps a datestamp the harvester could not parse.
	// Datestamp is zero when it is set.
	RawDatestamp string `json:"raw_datestamp,omitempty" yaml:"raw_datestamp,omitempty"`

	// Sets lists the setSpec memberships reported in the header.
	Sets []string `json:"sets,omitempty" yaml:"sets,omitempty"`
}

// Deleted reports whether the header carries status="deleted".
func (h RecordHeader) Deleted() bool {
	return h.Status == StatusDeleted
}

// Record is a normalized harvested record. Metadata is nil exactly when the
// header is deleted; otherwise it holds the formatted representation chosen
// for the session (an XML tree, an XML string, or a domain object).
type Record struct {
	Header   RecordHeader `json:"header" yaml:"header"`
	Metadata any          `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// MetadataFormat selects how record metadata is represented.
type MetadataFormat string

const (
	// FormatObject keeps the decoded XML tree.
	FormatObject MetadataFormat = "object"

	// FormatString re-serializes the metadata element as XML text.
	FormatString MetadataFormat = "string"

	// FormatMARCJSON converts MARCXML metadata into a MARC record object.
	FormatMARCJSON MetadataFormat = "marcJson"
)
