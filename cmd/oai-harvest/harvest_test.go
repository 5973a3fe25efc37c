package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oai-harvest/internal/marc"
	"github.com/pdiddy/oai-harvest/internal/oaipmh"
	"github.com/pdiddy/oai-harvest/internal/window"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

const envelope = `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/"><responseDate>2024-01-01T00:00:00Z</responseDate><ListRecords>`

func marcRecord(id, leader, fields string) string {
	return `<record><header><identifier>` + id + `</identifier><datestamp>2024-01-15</datestamp></header><metadata>` +
		`<marc:record xmlns:marc="http://www.loc.gov/MARC21/slim"><marc:leader>` + leader + `</marc:leader>` + fields +
		`</marc:record></metadata></record>`
}

const (
	isbnField      = `<marc:datafield tag="020" ind1=" " ind2=" "><marc:subfield code="a">9789510000000</marc:subfield></marc:datafield>`
	monograph      = "00000cam a2200000 a 4500"
	componentPart  = "00000naa a2200000 a 4500"
	firstPageToken = `<resumptionToken expirationDate="2099-01-01T00:00:00Z" cursor="0" completeListSize="3">t1</resumptionToken>`
)

func newRepo(t *testing.T) *oaipmh.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("resumptionToken") {
		case "":
			w.Write([]byte(envelope +
				marcRecord("oai:x:1", monograph, isbnField) +
				marcRecord("oai:x:2", componentPart, isbnField) +
				firstPageToken + `</ListRecords></OAI-PMH>`))
		case "t1":
			w.Write([]byte(envelope + marcRecord("oai:x:3", monograph, "") + `</ListRecords></OAI-PMH>`))
		default:
			http.Error(w, "unknown token", http.StatusBadRequest)
		}
	}))
	t.Cleanup(ts.Close)

	tr, err := oaipmh.NewTransport(types.ClientConfig{URL: ts.URL}, ts.Client(), zerolog.Nop())
	require.NoError(t, err)
	return oaipmh.NewClient(tr, zerolog.Nop())
}

func harvestConfigFor(format types.MetadataFormat) types.HarvestConfig {
	return types.HarvestConfig{
		Query:       types.QuerySpec{MetadataPrefix: "marc21"},
		Format:      format,
		RetrieveAll: true,
	}
}

func TestHarvester_StoresRecordsAndCheckpoints(t *testing.T) {
	ctx := context.Background()
	client := newRepo(t)
	dbPath := filepath.Join(t.TempDir(), "harvest.db")

	h, err := newHarvester(client.Transport().BaseURL(), types.FormatString, types.OutputConfig{}, marc.Filter{}, dbPath)
	require.NoError(t, err)

	token, err := h.run(ctx, client, harvestConfigFor(types.FormatString))
	require.NoError(t, err)
	assert.Nil(t, token)
	assert.Equal(t, 3, h.count())

	n, err := h.store.Count(ctx, client.Transport().BaseURL())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	last, err := h.store.LastCheckpoint(ctx, client.Transport().BaseURL(), "marc21", "")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Complete())
	assert.Equal(t, 3, last.Records, "checkpoint counts every record of its page")
	h.close()
}

func TestHarvester_MARCFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter marc.Filter
		want   int
	}{
		{"none", marc.Filter{}, 3},
		{"isbnless", marc.Filter{ISBNless: true}, 2},
		{"component parts", marc.Filter{ComponentParts: true}, 2},
		{"both", marc.Filter{ISBNless: true, ComponentParts: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newRepo(t)
			h, err := newHarvester(client.Transport().BaseURL(), types.FormatMARCJSON, types.OutputConfig{}, tt.filter, "")
			require.NoError(t, err)
			defer h.close()

			_, err = h.run(context.Background(), client, harvestConfigFor(types.FormatMARCJSON))
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.count())
		})
	}
}

func TestHarvester_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	client := newRepo(t)
	out := types.OutputConfig{
		RecordsDir:     filepath.Join(dir, "records"),
		ResponsesDir:   filepath.Join(dir, "responses"),
		WriteRecords:   true,
		WriteResponses: true,
	}
	h, err := newHarvester(client.Transport().BaseURL(), types.FormatString, out, marc.Filter{}, "")
	require.NoError(t, err)
	defer h.close()

	_, err = h.run(context.Background(), client, harvestConfigFor(types.FormatString))
	require.NoError(t, err)

	records, err := os.ReadDir(out.RecordsDir)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	for _, name := range []string{"response_1.xml", "response_2.xml"} {
		_, err := os.Stat(filepath.Join(out.ResponsesDir, name))
		assert.NoError(t, err, name)
	}
}

func TestHarvester_SinglePageReturnsToken(t *testing.T) {
	client := newRepo(t)
	h, err := newHarvester(client.Transport().BaseURL(), types.FormatString, types.OutputConfig{}, marc.Filter{}, "")
	require.NoError(t, err)
	defer h.close()

	cfg := harvestConfigFor(types.FormatString)
	cfg.RetrieveAll = false
	token, err := h.run(context.Background(), client, cfg)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "t1", token.Token)
	assert.Equal(t, 2, h.count())

	var buf bytes.Buffer
	printSummary(&buf, h.count(), token, cfg)
	assert.Contains(t, buf.String(), "Harvested 2 records")
	assert.Contains(t, buf.String(), "resumptionToken: t1")
	assert.Contains(t, buf.String(), "completeListSize: 3")
	assert.Contains(t, buf.String(), "Url encode resumptionToken: true")
}

func TestHarvester_Resume(t *testing.T) {
	ctx := context.Background()
	client := newRepo(t)
	endpoint := client.Transport().BaseURL()
	dbPath := filepath.Join(t.TempDir(), "harvest.db")

	h, err := newHarvester(endpoint, types.FormatString, types.OutputConfig{}, marc.Filter{}, dbPath)
	require.NoError(t, err)
	defer h.close()

	cfg := harvestConfigFor(types.FormatString)
	require.NoError(t, h.resume(ctx, &cfg))
	assert.Empty(t, cfg.ResumptionToken, "nothing to resume yet")

	cfg.RetrieveAll = false
	_, err = h.run(ctx, client, cfg)
	require.NoError(t, err)

	last, err := h.store.LastCheckpoint(ctx, endpoint, "marc21", "")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "t1", last.Token)
	assert.Equal(t, 2, last.Records)
	stored, err := h.store.Count(ctx, endpoint)
	require.NoError(t, err)
	assert.Equal(t, last.Records, stored, "records are committed before their page is checkpointed")

	cfg = harvestConfigFor(types.FormatString)
	require.NoError(t, h.resume(ctx, &cfg))
	assert.Equal(t, "t1", cfg.ResumptionToken)

	_, err = h.run(ctx, client, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, h.count())
}

func TestHarvester_ResumeRequiresStore(t *testing.T) {
	h, err := newHarvester("http://example.org/oai", types.FormatString, types.OutputConfig{}, marc.Filter{}, "")
	require.NoError(t, err)
	cfg := harvestConfigFor(types.FormatString)
	assert.Error(t, h.resume(context.Background(), &cfg))
}

func TestWindows(t *testing.T) {
	from := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	cfg := harvestConfigFor(types.FormatString)
	ranges, err := windows(window.None, cfg)
	require.NoError(t, err)
	assert.Nil(t, ranges)

	_, err = windows(window.Monthly, cfg)
	assert.Error(t, err, "missing --from")

	cfg.Query.From, cfg.Query.Until = from, until
	ranges, err = windows(window.Monthly, cfg)
	require.NoError(t, err)
	assert.Len(t, ranges, 3)

	cfg.RetrieveAll = false
	_, err = windows(window.Monthly, cfg)
	assert.Error(t, err, "missing --retrieve-all")

	cfg.RetrieveAll = true
	cfg.ResumptionToken = "t1"
	_, err = windows(window.Monthly, cfg)
	assert.Error(t, err, "token and window")
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("from", "")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseDate("from", "2024-02-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), got)

	_, err = parseDate("from", "3.2.2024")
	assert.ErrorContains(t, err, "--from")
}

