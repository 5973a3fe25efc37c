// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package window splits a datestamp range into consecutive calendar
// windows so a large selective harvest can run as a series of smaller
// sessions.
package window

import (
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// ErrInvalidRange is returned when from falls after until.
var ErrInvalidRange = errors.New("window: from is after until")

// Range is an inclusive span of days. From and Until are both UTC
// midnights, so they format at day granularity in a request; Until is the
// first instant of the last day covered.
type Range struct {
	From  time.Time
	Until time.Time
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.From.Format(time.DateOnly), r.Until.Format(time.DateOnly))
}

// Unit names a window length.
type Unit string

const (
	None    Unit = "none"
	Weekly  Unit = "weekly"
	Monthly Unit = "monthly"
)

// Split divides [from, until] by unit. None returns the whole range as a
// single window.
func Split(unit Unit, from, until time.Time) ([]Range, error) {
	switch unit {
	case "", None:
		if from.After(until) {
			return nil, ErrInvalidRange
		}
		return []Range{{From: day(from), Until: day(until)}}, nil
	case Weekly:
		return split(from, until,
			func(c *now.Now) time.Time { return c.BeginningOfWeek() },
			func(c *now.Now) time.Time { return c.EndOfWeek() })
	case Monthly:
		return split(from, until,
			func(c *now.Now) time.Time { return c.BeginningOfMonth() },
			func(c *now.Now) time.Time { return c.EndOfMonth() })
	}
	return nil, fmt.Errorf("window: unknown unit %q", unit)
}

// MonthlyRanges is Split(Monthly, from, until).
func MonthlyRanges(from, until time.Time) ([]Range, error) {
	return Split(Monthly, from, until)
}

// split walks from period to period. The first window starts on from's day
// and the last ends on until's day.
func split(from, until time.Time, begin, end func(*now.Now) time.Time) ([]Range, error) {
	from, until = from.UTC(), until.UTC()
	if from.After(until) {
		return nil, ErrInvalidRange
	}
	last := day(until)

	var ws []Range
	cur := from
	for {
		start := day(begin(calendar(cur)))
		if len(ws) == 0 {
			start = day(from)
		}
		stop := day(end(calendar(cur)))
		if !stop.Before(last) {
			ws = append(ws, Range{From: start, Until: last})
			return ws, nil
		}
		ws = append(ws, Range{From: start, Until: stop})
		cur = stop.AddDate(0, 0, 1)
	}
}

func calendar(t time.Time) *now.Now {
	return now.With(t.UTC())
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
