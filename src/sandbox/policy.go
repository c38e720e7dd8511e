package sandbox

import "github.com/nuerofin/backend/src/models"

const (
	DefaultBackfillCount  = 200
	DefaultIncrementCount = 10
)

// Decision is how many transactions a card accrues on a tick and how they are dated.
type Decision struct {
	Count    int
	Mode     Mode
	Backfill bool
}

// Policy sizes the per-card batch of a tick.
type Policy struct {
	BackfillCount  int
	IncrementCount int
}

// DefaultPolicy backfills 200 transactions over the last year, then adds 10 per tick.
func DefaultPolicy() Policy {
	return Policy{BackfillCount: DefaultBackfillCount, IncrementCount: DefaultIncrementCount}
}

// Decide classifies a card from its accrual state. state is nil when the card
// has no state record; hasHistory then reports whether transactions exist for
// it anyway (written before accrual state was tracked), in which case the card
// counts as backfilled. Decide has no side effects.
func (p Policy) Decide(state *models.AccrualState, hasHistory bool) Decision {
	increment := Decision{Count: p.IncrementCount, Mode: ModeAnchorNow}

	if state == nil {
		if hasHistory {
			return increment
		}
		return Decision{Count: p.BackfillCount, Mode: ModeSpreadOverYear, Backfill: true}
	}
	if state.BackfillCompleted {
		return increment
	}

	target := state.BackfillTarget
	if target <= 0 {
		target = p.BackfillCount
	}
	remaining := target - state.BackfilledCount
	if remaining <= 0 {
		return increment
	}
	return Decision{Count: remaining, Mode: ModeSpreadOverYear, Backfill: true}
}
