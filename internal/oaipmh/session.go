// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oaipmh

import (
	"context"
	"net/http"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/oai-harvest/pkg/types"
)

// SessionConfig is the immutable configuration of one harvesting session.
type SessionConfig struct {
	types.HarvestConfig

	// ID names the session in log events. Empty generates a random UUID.
	ID string

	// Converters supplies the domain formats available to Format.
	Converters map[types.MetadataFormat]Converter

	// OnResponse, if set, receives every raw response body before it is
	// decoded. Iterations count from 1.
	OnResponse func(iteration int, body string)

	// PageEvents adds an EventPage after each page's records. Because the
	// stream is unbuffered, a consumer that receives it has finished with
	// every record of the page, so it is a safe point to checkpoint.
	PageEvents bool
}

// session is the producer side of a Stream.
type session struct {
	cfg       SessionConfig
	transport *Transport
	format    Formatter
	stream    *Stream
	limiter   *rate.Limiter
}

func (s *session) run(ctx context.Context) {
	defer close(s.stream.done)
	defer close(s.stream.events)

	log := zerolog.Ctx(ctx)
	token := s.cfg.ResumptionToken
	emitted := 0

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			s.fail(ctx, err)
			return
		}
		if s.cfg.MaxRequests > 0 && iteration > s.cfg.MaxRequests {
			s.fail(ctx, ErrTooManyRequests)
			return
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				s.fail(ctx, err)
				return
			}
		}

		s.stream.setState(StateAwaitingPage)
		url := s.requestURL(token)
		page, err := s.fetch(ctx, iteration, url)
		if err != nil {
			s.fail(ctx, err)
			return
		}
		if page.Error != nil {
			s.fail(ctx, page.Error)
			return
		}

		ev := log.Debug().Int("iteration", iteration).Int("records", len(page.Records))
		if page.Token != nil {
			ev = ev.Str("token", page.Token.Token)
			if page.Token.Cursor != nil {
				ev = ev.Int("cursor", *page.Token.Cursor)
			}
		}
		ev.Msg("page decoded")

		for _, raw := range page.Records {
			rec, keep, err := s.record(ctx, raw)
			if err != nil {
				s.fail(ctx, err)
				return
			}
			if !keep {
				continue
			}
			if !s.send(ctx, Event{Kind: EventRecord, Record: &rec}) {
				s.fail(ctx, ctx.Err())
				return
			}
			emitted++
		}

		if s.cfg.PageEvents && !s.send(ctx, Event{Kind: EventPage, Page: iteration, Token: page.Token}) {
			s.fail(ctx, ctx.Err())
			return
		}

		if page.Token == nil || !s.cfg.RetrieveAll {
			s.stream.setState(StateDone)
			log.Info().Int("requests", iteration).Int("records", emitted).Bool("resumable", page.Token != nil).Msg("harvest finished")
			s.send(ctx, Event{Kind: EventEnd, Token: page.Token})
			return
		}
		s.stream.setState(StateContinuing)
		token = page.Token.Token
	}
}

func (s *session) requestURL(token string) string {
	if token != "" {
		return ResumeURL(s.transport.BaseURL(), token, s.cfg.RawResumptionToken)
	}
	return ListRecordsURL(s.transport.BaseURL(), s.cfg.Query)
}

// fetch performs one round trip and decodes it. A non-OK status is a
// protocol error only when the body carries a recognized error code.
func (s *session) fetch(ctx context.Context, iteration int, url string) (Page, error) {
	resp, err := s.transport.FetchPage(ctx, url)
	if err != nil {
		return Page{}, err
	}
	if s.cfg.OnResponse != nil {
		s.cfg.OnResponse(iteration, resp.Body)
	}
	if resp.Status != http.StatusOK {
		if page, err := Decode(resp.Body); err == nil && page.Error != nil && page.Error.Code.Known() {
			return page, nil
		}
		return Page{}, &TransportError{URL: url, Status: resp.Status, Body: resp.Body}
	}
	return Decode(resp.Body)
}

// record normalizes and formats one raw record. keep is false for deleted
// records dropped by the session's filter.
func (s *session) record(ctx context.Context, raw *etree.Element) (types.Record, bool, error) {
	header, metadata, err := Normalize(raw)
	if err != nil {
		return types.Record{}, false, err
	}
	if header.RawDatestamp != "" {
		zerolog.Ctx(ctx).Warn().Str("identifier", header.Identifier).Str("datestamp", header.RawDatestamp).Msg("unparseable datestamp")
	}
	if header.Deleted() {
		if s.cfg.FilterDeleted {
			return types.Record{}, false, nil
		}
		return types.Record{Header: header}, true, nil
	}
	out, err := s.format(metadata)
	if err != nil {
		return types.Record{}, false, &FormatError{Identifier: header.Identifier, Err: err}
	}
	return types.Record{Header: header, Metadata: out}, true, nil
}

func (s *session) send(ctx context.Context, ev Event) bool {
	select {
	case s.stream.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// fail moves the session to Failed and delivers err if the consumer is
// still listening.
func (s *session) fail(ctx context.Context, err error) {
	s.stream.setState(StateFailed)
	zerolog.Ctx(ctx).Info().Err(err).Msg("harvest failed")
	if ctx.Err() != nil {
		select {
		case s.stream.events <- Event{Kind: EventError, Err: err}:
		default:
		}
		return
	}
	s.send(ctx, Event{Kind: EventError, Err: err})
}
