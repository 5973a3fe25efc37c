// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oaipmh

import (
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/oai-harvest/pkg/types"
)

const (
	dayLayout     = "2006-01-02"
	secondsLayout = "2006-01-02T15:04:05Z"
)

// param is one query argument; order is preserved in the request URL.
type param struct {
	key, value string
	raw        bool
}

// buildURL appends verb and params to base. Values are percent-encoded
// unless marked raw.
func buildURL(base, verb string, params ...param) string {
	var b strings.Builder
	b.WriteString(base)
	if strings.Contains(base, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString("verb=")
	b.WriteString(url.QueryEscape(verb))
	for _, p := range params {
		if p.value == "" {
			continue
		}
		b.WriteByte('&')
		b.WriteString(p.key)
		b.WriteByte('=')
		if p.raw {
			b.WriteString(p.value)
		} else {
			b.WriteString(url.QueryEscape(p.value))
		}
	}
	return b.String()
}

// ListRecordsURL returns the first request of a harvest for q.
func ListRecordsURL(base string, q types.QuerySpec) string {
	return buildURL(base, "ListRecords",
		param{key: "metadataPrefix", value: q.MetadataPrefix},
		param{key: "set", value: q.Set},
		param{key: "from", value: FormatDatestamp(q.From)},
		param{key: "until", value: FormatDatestamp(q.Until)},
	)
}

// ResumeURL returns a continuation request. The token is the only argument;
// it is sent literally when raw is set.
func ResumeURL(base, token string, raw bool) string {
	return buildURL(base, "ListRecords", param{key: "resumptionToken", value: token, raw: raw})
}

// VerbURL returns a request for an argument-less verb.
func VerbURL(base, verb string) string {
	return buildURL(base, verb)
}

// FormatDatestamp renders t at day granularity when it falls on a UTC
// midnight and at seconds granularity otherwise. The zero time renders as "".
func FormatDatestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(dayLayout)
	}
	return t.Format(secondsLayout)
}

// ParseDatestamp accepts the two OAI-PMH UTCdatetime granularities, plus
// RFC 3339 offsets some repositories emit.
func ParseDatestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
