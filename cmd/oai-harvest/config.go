package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/oai-harvest/internal/httputil"
	"github.com/pdiddy/oai-harvest/internal/marc"
	"github.com/pdiddy/oai-harvest/internal/oaipmh"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

const defaultTimeout = 60 * time.Second

// clientConfig reads the repository settings shared by every command.
func clientConfig() (types.ClientConfig, error) {
	cfg := types.ClientConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:        viper.GetDuration("timeout"),
			UserAgent:      viper.GetString("user-agent"),
			RetryLimit:     viper.GetInt("retry-limit"),
			NetworkRetries: viper.GetInt("network-retries"),
		},
		URL:          strings.TrimSpace(viper.GetString("url")),
		APIKeyHeader: viper.GetString("api-key-header"),
		APIKey:       viper.GetString("api-key"),
	}
	if cfg.URL == "" {
		return cfg, fmt.Errorf("no repository URL: set --url or OAI_PMH_URL")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "oai-harvest/" + version
	}
	if cfg.APIKey != "" && cfg.APIKeyHeader == "" {
		logger.Warn().Msg("API key set without --api-key-header; it will not be sent")
	}
	return cfg, nil
}

// newClient builds the harvesting client, wrapping the HTTP client in a
// network retry layer when requested.
func newClient(cfg types.ClientConfig) (*oaipmh.Client, error) {
	var doer httputil.Doer = &http.Client{Timeout: cfg.Timeout}
	if cfg.NetworkRetries > 0 {
		doer = &httputil.NetworkRetryDoer{
			Doer:       doer,
			MaxRetries: cfg.NetworkRetries,
			Notify: func(err error, wait time.Duration) {
				logger.Warn().Err(err).Dur("wait", wait).Msg("request failed, retrying")
			},
		}
	}

	t, err := oaipmh.NewTransport(cfg, doer, logger)
	if err != nil {
		return nil, err
	}
	return oaipmh.NewClient(t, logger), nil
}

// outputConfig reads the file output settings.
func outputConfig() types.OutputConfig {
	return types.OutputConfig{
		RecordsDir:     viper.GetString("records-dir"),
		ResponsesDir:   viper.GetString("responses-dir"),
		WriteRecords:   viper.GetBool("write-record-files"),
		WriteResponses: viper.GetBool("write-response-files"),
		ShowRecords:    viper.GetBool("show-records-in-console"),
		Overwrite:      viper.GetBool("overwrite"),
		Encoding:       types.Encoding(viper.GetString("encoding")),
	}
}

// harvestConfig reads the query flags. from and until accept YYYY-MM-DD or
// an RFC 3339 timestamp.
func harvestConfig() (types.HarvestConfig, error) {
	cfg := types.HarvestConfig{
		Query: types.QuerySpec{
			MetadataPrefix: viper.GetString("metadata-prefix"),
			Set:            viper.GetString("set"),
		},
		Format:             types.MetadataFormat(viper.GetString("metadata-format")),
		RetrieveAll:        viper.GetBool("retrieve-all"),
		FilterDeleted:      viper.GetBool("filter-deleted"),
		RawResumptionToken: !viper.GetBool("url-encode-resumption-token"),
		ResumptionToken:    viper.GetString("resumption-token"),
		PageInterval:       viper.GetDuration("page-interval"),
		MaxRequests:        viper.GetInt("max-requests"),
	}

	var err error
	if cfg.Query.From, err = parseDate("from", viper.GetString("from")); err != nil {
		return cfg, err
	}
	if cfg.Query.Until, err = parseDate("until", viper.GetString("until")); err != nil {
		return cfg, err
	}
	if cfg.Query.MetadataPrefix == "" && cfg.ResumptionToken == "" {
		return cfg, fmt.Errorf("--metadata-prefix is required unless --resumption-token is given")
	}
	return cfg, nil
}

// marcFilter reads the MARC record filters. They need decoded MARC
// records, so they are only valid with the marcJson format.
func marcFilter(format types.MetadataFormat) (marc.Filter, error) {
	f := marc.Filter{
		ISBNless:       viper.GetBool("filter-isbnless"),
		ComponentParts: viper.GetBool("filter-component-records"),
	}
	if f.Active() && format != types.FormatMARCJSON {
		return f, fmt.Errorf("--filter-isbnless and --filter-component-records require --metadata-format %s", types.FormatMARCJSON)
	}
	return f, nil
}

func parseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := oaipmh.ParseDatestamp(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: use YYYY-MM-DD or YYYY-MM-DDThh:mm:ssZ", name, value)
	}
	return t, nil
}

// converters lists the domain formats available to query sessions.
func converters() map[types.MetadataFormat]oaipmh.Converter {
	return map[types.MetadataFormat]oaipmh.Converter{
		types.FormatMARCJSON: marc.Convert,
	}
}
