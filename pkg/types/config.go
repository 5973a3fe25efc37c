// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every request to the
// repository.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero leaves the client default.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RetryLimit is the number of retries on HTTP 429 and 503 responses.
	// Zero disables status-level retries.
	RetryLimit int `json:"retry_limit" yaml:"retry_limit"`

	// NetworkRetries is the number of retries on connection-level failures.
	// Zero disables them.
	NetworkRetries int `json:"network_retries" yaml:"network_retries"`
}

// ClientConfig identifies the OAI-PMH endpoint and its credentials. It is
// read-only once a transport has been built from it.
type ClientConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the repository base URL, without query string.
	URL string `json:"url" yaml:"url"`

	// APIKeyHeader names the header carrying APIKey. The key is only sent
	// when both are set.
	APIKeyHeader string `json:"api_key_header,omitempty" yaml:"api_key_header,omitempty"`

	// APIKey is the credential value.
	APIKey string `json:"-" yaml:"-"`
}

// HarvestConfig holds the per-session harvesting settings.
type HarvestConfig struct {
	Query QuerySpec `json:"query" yaml:"query"`

	// Format selects the metadata representation.
	Format MetadataFormat `json:"format" yaml:"format"`

	// RetrieveAll follows resumption tokens until the list is exhausted.
	// When false a single page is fetched and its token is handed back.
	RetrieveAll bool `json:"retrieve_all" yaml:"retrieve_all"`

	// FilterDeleted drops deleted records instead of emitting header-only records.
	FilterDeleted bool `json:"filter_deleted" yaml:"filter_deleted"`

	// RawResumptionToken sends the token on continuation requests exactly as
	// issued instead of percent-encoding it. Some servers issue tokens that
	// only round-trip when sent literally.
	RawResumptionToken bool `json:"raw_resumption_token" yaml:"raw_resumption_token"`

	// ResumptionToken starts the session from a previously issued token.
	ResumptionToken string `json:"resumption_token,omitempty" yaml:"resumption_token,omitempty"`

	// PageInterval is the minimum delay between consecutive page requests.
	PageInterval time.Duration `json:"page_interval" yaml:"page_interval"`

	// MaxRequests caps the number of page requests per session. Zero means no cap.
	MaxRequests int `json:"max_requests" yaml:"max_requests"`
}

// Encoding selects the serialization of structured records on disk.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
)

// OutputConfig holds settings for writing records and raw responses.
type OutputConfig struct {
	// RecordsDir receives one file per record when WriteRecords is set.
	RecordsDir string `json:"records_dir" yaml:"records_dir"`

	// ResponsesDir receives one file per raw response when WriteResponses is set.
	ResponsesDir string `json:"responses_dir" yaml:"responses_dir"`

	WriteRecords   bool `json:"write_records" yaml:"write_records"`
	WriteResponses bool `json:"write_responses" yaml:"write_responses"`

	// ShowRecords prints each record to the console.
	ShowRecords bool `json:"show_records" yaml:"show_records"`

	// Overwrite allows replacing existing files.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// Encoding is used for object and marcJson records.
	Encoding Encoding `json:"encoding" yaml:"encoding"`
}

// StoreConfig holds settings for the SQLite record store.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is a zerolog level name (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format"`
}
