// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oaipmh implements the OAI-PMH ListRecords harvesting cycle. A
// Client turns the paginated responses of a repository into a Stream of
// normalized records, following resumption tokens until the list is
// exhausted, a page limit is reached, or an error occurs.
package oaipmh

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Single-shot verbs supported by Verb.
const (
	VerbIdentify            = "Identify"
	VerbListSets            = "ListSets"
	VerbListMetadataFormats = "ListMetadataFormats"
)

// Client starts harvesting sessions against one repository. Sessions share
// only the transport's read-only configuration and may run concurrently.
type Client struct {
	transport *Transport
	logger    zerolog.Logger
}

// NewClient returns a client using t.
func NewClient(t *Transport, logger zerolog.Logger) *Client {
	return &Client{transport: t, logger: logger}
}

// Transport returns the client's transport.
func (c *Client) Transport() *Transport { return c.transport }

// ListRecords starts a harvesting session. The format is resolved before
// any request is made, so an unknown format fails here with
// *UnsupportedFormatError. Cancelling ctx, or closing the stream, stops the
// session before its next request.
func (c *Client) ListRecords(ctx context.Context, cfg SessionConfig) (*Stream, error) {
	format, err := NewFormatter(cfg.Format, cfg.Converters)
	if err != nil {
		return nil, err
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := c.logger.With().Str("session", id).Logger()
	ctx, cancel := context.WithCancel(logger.WithContext(ctx))

	s := &session{
		cfg:       cfg,
		transport: c.transport,
		format:    format,
		stream:    newStream(id, cancel),
	}
	if cfg.PageInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(cfg.PageInterval), 1)
	}

	logger.Info().
		Str("url", c.transport.BaseURL()).
		Str("metadata_prefix", cfg.Query.MetadataPrefix).
		Str("set", cfg.Query.Set).
		Bool("resumed", cfg.ResumptionToken != "").
		Msg("harvest started")

	go s.run(ctx)
	return s.stream, nil
}

// Verb issues a single-shot Identify, ListSets or ListMetadataFormats
// request and returns the response body unmodified.
func (c *Client) Verb(ctx context.Context, verb string) (string, error) {
	switch verb {
	case VerbIdentify, VerbListSets, VerbListMetadataFormats:
	default:
		return "", fmt.Errorf("%w: %s", ErrBadVerb, verb)
	}

	url := VerbURL(c.transport.BaseURL(), verb)
	resp, err := c.transport.FetchPage(ctx, url)
	if err != nil {
		return "", err
	}
	if resp.Status != http.StatusOK {
		return "", &TransportError{URL: url, Status: resp.Status, Body: resp.Body}
	}
	return resp.Body, nil
}
