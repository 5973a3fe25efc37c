package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/oai-harvest/internal/marc"
	"github.com/pdiddy/oai-harvest/internal/oaipmh"
	"github.com/pdiddy/oai-harvest/internal/output"
	"github.com/pdiddy/oai-harvest/internal/store"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

// harvester consumes query sessions and routes each record to the
// configured sinks. One harvester serves every window of a query, so file
// numbering continues across sessions.
type harvester struct {
	endpoint  string
	format    types.MetadataFormat
	out       types.OutputConfig
	filter    marc.Filter
	records   *output.RecordWriter
	responses *output.ResponseWriter
	store     *store.Store

	iteration int
	handled   int
	skipped   int
}

func newHarvester(endpoint string, format types.MetadataFormat, out types.OutputConfig, filter marc.Filter, storePath string) (*harvester, error) {
	h := &harvester{endpoint: endpoint, format: format, out: out, filter: filter}

	var err error
	if out.WriteRecords {
		if h.records, err = output.NewRecordWriter(out, format); err != nil {
			return nil, err
		}
	}
	if out.WriteResponses {
		if h.responses, err = output.NewResponseWriter(out); err != nil {
			return nil, err
		}
	}
	if storePath != "" {
		if h.store, err = store.Open(types.StoreConfig{Path: storePath}); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *harvester) close() {
	if h.store != nil {
		h.store.Close()
	}
}

func (h *harvester) count() int { return h.handled }

// resume points cfg at the last unfinished harvest recorded in the store.
func (h *harvester) resume(ctx context.Context, cfg *types.HarvestConfig) error {
	if h.store == nil {
		return errors.New("--resume requires --store")
	}
	last, err := h.store.LastCheckpoint(ctx, h.endpoint, cfg.Query.MetadataPrefix, cfg.Query.Set)
	if err != nil {
		return err
	}
	if last == nil || last.Complete() {
		logger.Info().Msg("no unfinished harvest to resume; starting from the beginning")
		return nil
	}
	if !last.ExpirationDate.IsZero() && last.ExpirationDate.Before(time.Now()) {
		logger.Warn().Time("expired", last.ExpirationDate).Msg("resumption token has expired; the repository may reject it")
	}
	logger.Info().Str("token", last.Token).Int("records", last.Records).Msg("resuming harvest")
	cfg.ResumptionToken = last.Token
	return nil
}

// run harvests one session and returns its continuation token.
func (h *harvester) run(ctx context.Context, client *oaipmh.Client, cfg types.HarvestConfig) (*types.ResumptionToken, error) {
	id := uuid.NewString()
	sc := oaipmh.SessionConfig{
		HarvestConfig: cfg,
		ID:            id,
		Converters:    converters(),
		OnResponse:    h.onResponse,
		PageEvents:    h.store != nil,
	}

	stream, err := client.ListRecords(ctx, sc)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	for ev := range stream.Events() {
		switch ev.Kind {
		case oaipmh.EventRecord:
			if err := h.handle(ctx, id, *ev.Record); err != nil {
				return nil, err
			}
		case oaipmh.EventPage:
			h.checkpoint(ctx, id, cfg.Query, ev.Token)
		case oaipmh.EventEnd:
			if h.skipped > 0 {
				logger.Info().Int("skipped", h.skipped).Msg("records dropped by MARC filters")
			}
			return ev.Token, nil
		case oaipmh.EventError:
			return nil, ev.Err
		}
	}
	return nil, oaipmh.ErrStreamClosed
}

func (h *harvester) onResponse(_ int, body string) {
	h.iteration++
	if h.responses == nil {
		return
	}
	path, err := h.responses.Write(strconv.Itoa(h.iteration), body)
	if err != nil {
		logger.Error().Err(err).Msg("could not write response file")
		return
	}
	logger.Debug().Str("path", path).Msg("wrote response")
}

// handle routes one record to the record files, the console and the store.
func (h *harvester) handle(ctx context.Context, sessionID string, rec types.Record) error {
	if h.filter.Active() {
		if m, ok := rec.Metadata.(*marc.Record); ok && !h.filter.Keep(m) {
			h.skipped++
			return nil
		}
	}
	h.handled++
	n := h.handled

	if h.records != nil {
		path, err := h.records.Write(rec)
		if err != nil {
			return err
		}
		logger.Debug().Int("record", n).Str("path", path).Msg("wrote record")
	}

	if !h.out.ShowRecords && h.store == nil {
		return nil
	}
	data, err := output.Render(rec, h.format, h.out.Encoding)
	if err != nil {
		return fmt.Errorf("rendering record %s: %w", rec.Header.Identifier, err)
	}
	if h.out.ShowRecords {
		fmt.Fprintf(os.Stdout, "Record %d: %s\n", n, rec.Header.Identifier)
		if err := output.Print(os.Stdout, data); err != nil {
			return err
		}
	}
	if h.store != nil {
		if err := h.store.SaveRecord(ctx, sessionID, h.endpoint, rec, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// checkpoint records the page's token once every record of the page has
// been handled. A failed checkpoint only costs resumability, so it is logged
// rather than returned.
func (h *harvester) checkpoint(ctx context.Context, sessionID string, q types.QuerySpec, token *types.ResumptionToken) {
	if h.store == nil {
		return
	}
	c := store.Checkpoint{
		SessionID:      sessionID,
		Endpoint:       h.endpoint,
		MetadataPrefix: q.MetadataPrefix,
		Set:            q.Set,
		Records:        h.count(),
	}
	if token != nil {
		c.Token = token.Token
		c.ExpirationDate = token.ExpirationDate
		c.Cursor = token.Cursor
	}
	if err := h.store.SaveCheckpoint(ctx, c); err != nil {
		logger.Error().Err(err).Msg("could not save checkpoint")
	}
}
