// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oaipmh

import (
	"context"
	"sync/atomic"

	"github.com/pdiddy/oai-harvest/pkg/types"
)

// State is a harvesting session's position in the ListRecords cycle.
type State int32

const (
	StateInitial State = iota
	StateAwaitingPage
	StateContinuing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateAwaitingPage:
		return "awaiting-page"
	case StateContinuing:
		return "continuing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further events follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// EventKind tags an Event.
type EventKind int

const (
	EventRecord EventKind = iota + 1
	EventEnd
	EventError

	// EventPage marks the end of a page's records. It is only delivered to
	// sessions started with PageEvents set.
	EventPage
)

func (k EventKind) String() string {
	switch k {
	case EventRecord:
		return "record"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	case EventPage:
		return "page"
	}
	return "unknown"
}

// Event is one item of a harvesting stream. Record is set for EventRecord.
// Token is set on EventEnd when the list was not exhausted, and on
// EventPage when the page carried one. Page numbers EventPage from 1. Err
// is set for EventError.
type Event struct {
	Kind   EventKind
	Record *types.Record
	Token  *types.ResumptionToken
	Page   int
	Err    error
}

// Stream delivers the events of one harvesting session. Records arrive in
// server order, with page events between pages when requested, followed by
// exactly one end or error event, after which the channel is closed. The channel is unbuffered: the next page is not
// requested until every record of the current one has been received.
type Stream struct {
	id     string
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32
}

func newStream(id string, cancel context.CancelFunc) *Stream {
	return &Stream{
		id:     id,
		events: make(chan Event),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier attached to the session's log events.
func (s *Stream) ID() string { return s.id }

// Events returns the receive side of the stream.
func (s *Stream) Events() <-chan Event { return s.events }

// State returns the current state of the session.
func (s *Stream) State() State { return State(s.state.Load()) }

// Close abandons the stream. No request is issued after Close returns.
func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

func (s *Stream) setState(st State) { s.state.Store(int32(st)) }

// Collect drains s into a slice. It returns the continuation token carried
// by the end event, or the error event's error. Records received before an
// error are returned alongside it.
func Collect(ctx context.Context, s *Stream) ([]types.Record, *types.ResumptionToken, error) {
	defer s.Close()

	var records []types.Record
	for {
		select {
		case <-ctx.Done():
			return records, nil, ctx.Err()
		case ev, ok := <-s.Events():
			if !ok {
				return records, nil, ErrStreamClosed
			}
			switch ev.Kind {
			case EventRecord:
				records = append(records, *ev.Record)
			case EventEnd:
				return records, ev.Token, nil
			case EventError:
				return records, nil, ev.Err
			}
		}
	}
}
