// Package sandbox generates the synthetic card transactions behind the demo
// transaction feed and decides how many of them each card accrues per tick.
package sandbox

import (
	"math/rand/v2"
	"time"
)

// Mode selects the temporal distribution a timestamp is drawn from.
type Mode int

const (
	// ModeDefault draws between HistoryStart and now. Legacy fallback only.
	ModeDefault Mode = iota
	// ModeSpreadOverYear draws uniformly over the last calendar year, capped
	// at 365 days when the year spans a leap day.
	ModeSpreadOverYear
	// ModeAnchorNow draws within AnchorSlack of now, in both directions.
	ModeAnchorNow
)

func (m Mode) String() string {
	switch m {
	case ModeSpreadOverYear:
		return "spread-over-year"
	case ModeAnchorNow:
		return "anchor-near-now"
	default:
		return "default"
	}
}

// AnchorSlack bounds how far an anchor-near-now timestamp may drift from now.
const AnchorSlack = 15 * time.Minute

// HistoryStart is the lower bound of the default historical window.
var HistoryStart = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Sampler draws transaction timestamps. It is not safe for concurrent use;
// Generator serializes access to it.
type Sampler struct {
	now func() time.Time
	rng *rand.Rand
}

// NewSampler returns a Sampler reading the current time from now and drawing from rng.
func NewSampler(now func() time.Time, rng *rand.Rand) *Sampler {
	if now == nil {
		now = time.Now
	}
	return &Sampler{now: now, rng: rng}
}

// Sample returns a timestamp with millisecond precision distributed according to mode.
func (s *Sampler) Sample(mode Mode) time.Time {
	now := s.now()
	switch mode {
	case ModeSpreadOverYear:
		return s.between(yearBefore(now), now)
	case ModeAnchorNow:
		return s.between(now.Add(-AnchorSlack), now.Add(AnchorSlack))
	default:
		return s.between(HistoryStart, now)
	}
}

func yearBefore(now time.Time) time.Time {
	from := now.AddDate(-1, 0, 0)
	if floor := now.Add(-365 * 24 * time.Hour); from.Before(floor) {
		return floor
	}
	return from
}

// between draws uniformly from the millisecond instants of the closed
// interval [from, to]. A window holding no such instant yields from
// truncated to the millisecond.
func (s *Sampler) between(from, to time.Time) time.Time {
	lo := ceilMillisecond(from)
	hi := to.Truncate(time.Millisecond)
	if hi.Before(lo) {
		return from.Truncate(time.Millisecond)
	}
	steps := int64(hi.Sub(lo) / time.Millisecond)
	return lo.Add(time.Duration(s.rng.Int64N(steps+1)) * time.Millisecond)
}

func ceilMillisecond(t time.Time) time.Time {
	truncated := t.Truncate(time.Millisecond)
	if truncated.Before(t) {
		return truncated.Add(time.Millisecond)
	}
	return truncated
}
