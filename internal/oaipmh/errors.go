// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oaipmh

import (
	"errors"
	"fmt"

	"github.com/pdiddy/oai-harvest/pkg/types"
)

var (
	ErrNoEndpoint      = errors.New("oaipmh: an endpoint URL is required")
	ErrBadVerb         = errors.New("oaipmh: verb not supported as a single request")
	ErrTooManyRequests = errors.New("oaipmh: request limit reached before the list was exhausted")
	ErrStreamClosed    = errors.New("oaipmh: stream closed before a terminal event")
)

// ErrorCode is an OAI-PMH error condition reported in an <error> element.
type ErrorCode string

const (
	BadArgument             ErrorCode = "badArgument"
	BadResumptionToken      ErrorCode = "badResumptionToken"
	BadVerb                 ErrorCode = "badVerb"
	CannotDisseminateFormat ErrorCode = "cannotDisseminateFormat"
	IDDoesNotExist          ErrorCode = "idDoesNotExist"
	NoRecordsMatch          ErrorCode = "noRecordsMatch"
	NoMetadataFormats       ErrorCode = "noMetadataFormats"
	NoSetHierarchy          ErrorCode = "noSetHierarchy"
)

// Known reports whether c is one of the error codes defined by OAI-PMH 2.0.
func (c ErrorCode) Known() bool {
	switch c {
	case BadArgument, BadResumptionToken, BadVerb, CannotDisseminateFormat,
		IDDoesNotExist, NoRecordsMatch, NoMetadataFormats, NoSetHierarchy:
		return true
	}
	return false
}

// ProtocolError is an error condition reported by the repository.
type ProtocolError struct {
	Code    ErrorCode
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("oai-pmh error %s", e.Code)
	}
	return fmt.Sprintf("oai-pmh error %s: %s", e.Code, e.Message)
}

// TransportError is a network failure, or an HTTP response that was neither
// successful nor a recognized protocol error. Err is set for network
// failures; Status and Body for unexpected responses.
type TransportError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("unexpected response %d: %s", e.Status, truncate(e.Body, 512))
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not well-formed XML or lacks
// the elements a ListRecords response must carry.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("parsing oai-pmh response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FormatError reports a failure to produce the requested metadata
// representation for a record.
type FormatError struct {
	Identifier string
	Err        error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("formatting record %q: %v", e.Identifier, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned before any request is made when the
// session asks for a metadata format with no formatter.
type UnsupportedFormatError struct {
	Format types.MetadataFormat
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("invalid format: %q", string(e.Format))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
