// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oaipmh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/oai-harvest/internal/httputil"
	"github.com/pdiddy/oai-harvest/pkg/types"
)

// Version is reported in the default User-Agent.
var Version = "0.1.0"

// DefaultUserAgent identifies the harvester to repositories.
var DefaultUserAgent = fmt.Sprintf("oai-harvest/%s", Version)

// Response is the raw result of a single HTTP round trip.
type Response struct {
	Status int
	Body   string
}

// Transport issues GET requests against one repository endpoint. Its
// configuration is fixed at construction, so a Transport may be shared by
// concurrent sessions.
type Transport struct {
	baseURL      string
	doer         httputil.Doer
	userAgent    string
	apiKeyHeader string
	apiKey       string
	retryLimit   int
	logger       zerolog.Logger
}

// NewTransport builds a transport for cfg.URL. A nil doer uses a client
// with cfg.Timeout.
func NewTransport(cfg types.ClientConfig, doer httputil.Doer, logger zerolog.Logger) (*Transport, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrNoEndpoint
	}
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Transport{
		baseURL:      strings.TrimSpace(cfg.URL),
		doer:         doer,
		userAgent:    ua,
		apiKeyHeader: cfg.APIKeyHeader,
		apiKey:       cfg.APIKey,
		retryLimit:   cfg.RetryLimit,
		logger:       logger,
	}, nil
}

// BaseURL returns the repository endpoint.
func (t *Transport) BaseURL() string { return t.baseURL }

// FetchPage performs a GET on url and returns the status and body. Only
// network-level failures are errors here; interpreting the status is left
// to the caller.
func (t *Transport) FetchPage(ctx context.Context, url string) (Response, error) {
	t.log(ctx).Debug().Str("url", url).Msg("sending request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, &TransportError{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", t.userAgent)
	if t.apiKeyHeader != "" && t.apiKey != "" {
		req.Header.Set(t.apiKeyHeader, t.apiKey)
	}

	var resp *http.Response
	if t.retryLimit > 0 {
		resp, err = httputil.DoWithRetry(ctx, t.doer, req, t.retryLimit)
	} else {
		resp, err = t.doer.Do(req)
	}
	if err != nil {
		return Response{}, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &TransportError{URL: url, Err: fmt.Errorf("reading body: %w", err)}
	}

	t.log(ctx).Debug().Str("url", url).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("received response")
	return Response{Status: resp.StatusCode, Body: string(body)}, nil
}

// log prefers a logger carried by ctx so session fields reach transport events.
func (t *Transport) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &t.logger
}
