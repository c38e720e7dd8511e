package sandbox

import (
	"testing"

	"github.com/nuerofin/backend/src/models"
	"github.com/stretchr/testify/require"
)

func TestDecideFirstRunBackfills(t *testing.T) {
	d := DefaultPolicy().Decide(nil, false)
	require.Equal(t, Decision{Count: 200, Mode: ModeSpreadOverYear, Backfill: true}, d)
}

func TestDecideExistingHistoryIncrements(t *testing.T) {
	d := DefaultPolicy().Decide(nil, true)
	require.Equal(t, Decision{Count: 10, Mode: ModeAnchorNow}, d)
}

func TestDecideCompletedBackfillIncrements(t *testing.T) {
	state := &models.AccrualState{CardNumber: "4111", BackfillTarget: 200, BackfilledCount: 200, BackfillCompleted: true}
	require.Equal(t, Decision{Count: 10, Mode: ModeAnchorNow}, DefaultPolicy().Decide(state, true))
}

func TestDecidePartialBackfillResumes(t *testing.T) {
	state := &models.AccrualState{CardNumber: "4111", BackfillTarget: 200, BackfilledCount: 37}
	d := DefaultPolicy().Decide(state, true)
	require.Equal(t, Decision{Count: 163, Mode: ModeSpreadOverYear, Backfill: true}, d)
}

func TestDecideStateWithoutTargetUsesPolicyCount(t *testing.T) {
	state := &models.AccrualState{CardNumber: "4111", BackfilledCount: 50}
	d := Policy{BackfillCount: 120, IncrementCount: 4}.Decide(state, true)
	require.Equal(t, Decision{Count: 70, Mode: ModeSpreadOverYear, Backfill: true}, d)
}

func TestDecideOvershotBackfillIncrements(t *testing.T) {
	state := &models.AccrualState{CardNumber: "4111", BackfillTarget: 200, BackfilledCount: 210}
	require.Equal(t, ModeAnchorNow, DefaultPolicy().Decide(state, true).Mode)
}

func TestDecideIsIdempotent(t *testing.T) {
	p := DefaultPolicy()
	state := &models.AccrualState{CardNumber: "4111", BackfillTarget: 200, BackfilledCount: 12}
	before := *state
	require.Equal(t, p.Decide(state, true), p.Decide(state, true))
	require.Equal(t, before, *state)
	require.Equal(t, p.Decide(nil, false), p.Decide(nil, false))
}
