// src/services/accrual_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nuerofin/backend/src/logger"
	"github.com/nuerofin/backend/src/models"
	"github.com/nuerofin/backend/src/sandbox"
	"github.com/nuerofin/backend/src/store"
)

const stateSaveTimeout = 10 * time.Second

// AccrualConfig controls the sandbox accrual schedule and batch sizes.
type AccrualConfig struct {
	Schedule    string // cron spec, e.g. "*/30 * * * *"
	RunOnStart  bool
	CardTimeout time.Duration // zero disables the per-card deadline
	Policy      sandbox.Policy
}

// AccrualService periodically tops up every known card with synthetic
// transactions. Ticks never overlap; a failing card never aborts a tick.
type AccrualService struct {
	cards       store.CardRegistry
	txs         store.TransactionStore
	states      store.AccrualStateStore
	generator   *sandbox.Generator
	scheduler   Scheduler
	invalidator CacheInvalidator
	cfg         AccrualConfig
	now         func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewAccrualService(
	cards store.CardRegistry,
	txs store.TransactionStore,
	states store.AccrualStateStore,
	generator *sandbox.Generator,
	scheduler Scheduler,
	invalidator CacheInvalidator,
	cfg AccrualConfig,
) *AccrualService {
	return &AccrualService{
		cards:       cards,
		txs:         txs,
		states:      states,
		generator:   generator,
		scheduler:   scheduler,
		invalidator: invalidator,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Start registers the tick with the scheduler and, if configured, runs the
// first tick right away in the background.
func (s *AccrualService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.scheduler.AddFunc(s.cfg.Schedule, s.runScheduledTick); err != nil {
		s.cancel()
		return fmt.Errorf("invalid sandbox schedule %q: %w", s.cfg.Schedule, err)
	}
	s.scheduler.Start()
	s.started = true
	logger.L.Info("Sandbox accrual enabled", "schedule", s.cfg.Schedule, "runOnStart", s.cfg.RunOnStart)

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runScheduledTick()
		}()
	}
	return nil
}

// Stop halts the schedule and waits for an in-flight tick until ctx expires.
func (s *AccrualService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()
	defer cancel()

	schedulerDone := s.scheduler.Stop()
	done := make(chan struct{})
	go func() {
		<-schedulerDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.L.Info("Sandbox accrual stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AccrualService) runScheduledTick() {
	report, err := s.Tick(s.ctx)
	switch {
	case errors.Is(err, ErrTickInProgress):
		logger.L.Warn("Previous sandbox tick still running, skipping this one")
	case err != nil:
		// The next scheduled tick is the retry.
		logger.L.Error("Sandbox tick failed", "tickID", report.TickID, "error", err)
	}
}

// Tick accrues transactions for every card once. It returns ErrTickInProgress
// when another tick is running, and an error only when the card list itself
// could not be loaded; per-card failures are reported in TickReport.
func (s *AccrualService) Tick(ctx context.Context) (TickReport, error) {
	report := TickReport{TickID: uuid.NewString(), StartedAt: s.now().UTC()}
	if !s.running.CompareAndSwap(false, true) {
		report.Skipped = true
		return report, ErrTickInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	log := logger.FromContext(ctx).With("tickID", report.TickID)
	ctx = logger.ToContext(ctx, log)
	log.Info("Sandbox tick running")

	cards, err := s.cards.ListAllCards(ctx)
	if err != nil {
		report.finish(start)
		return report, fmt.Errorf("failed to list cards: %w", err)
	}
	report.Cards = len(cards)

	for _, card := range cards {
		if ctx.Err() != nil {
			log.Warn("Sandbox tick interrupted", "error", ctx.Err())
			break
		}

		res, err := s.processCard(ctx, card)
		report.Inserted += res.inserted
		report.FailedWrites += res.failed
		if err != nil {
			report.Failed++
			log.Error("Sandbox accrual failed for card",
				"cardID", card.CardID, "cardNumber", maskCardNumber(res.cardNumber),
				"inserted", res.inserted, "failedWrites", res.failed, "error", err)
			continue
		}
		report.Succeeded++
		log.Info("Sandbox transactions added",
			"cardNumber", maskCardNumber(res.cardNumber), "mode", res.decision.Mode.String(),
			"inserted", res.inserted, "failedWrites", res.failed)
	}

	report.finish(start)
	log.Info("Sandbox tick complete",
		"cards", report.Cards, "succeeded", report.Succeeded, "failed", report.Failed,
		"inserted", report.Inserted, "failedWrites", report.FailedWrites, "durationMs", report.DurationMs)
	return report, nil
}

// Decide reports what the next tick would do for the card, without side effects.
func (s *AccrualService) Decide(ctx context.Context, cardNumber string) (sandbox.Decision, error) {
	_, decision, err := s.decide(ctx, models.NormalizeCardNumber(cardNumber))
	return decision, err
}

func (s *AccrualService) decide(ctx context.Context, cardNumber string) (*models.AccrualState, sandbox.Decision, error) {
	state, err := s.states.GetAccrualState(ctx, cardNumber)
	switch {
	case err == nil:
		if !state.BackfillCompleted {
			// The last save may have been lost after some writes landed.
			n, err := s.txs.CountTransactionsFor(ctx, cardNumber)
			if err != nil {
				return nil, sandbox.Decision{}, fmt.Errorf("failed to count backfilled transactions: %w", err)
			}
			state.BackfilledCount = n
		}
		return state, s.cfg.Policy.Decide(state, true), nil
	case errors.Is(err, store.ErrNotFound):
		hasHistory, err := s.txs.HasAnyTransactionFor(ctx, cardNumber)
		if err != nil {
			return nil, sandbox.Decision{}, fmt.Errorf("failed to check existing transactions: %w", err)
		}
		return nil, s.cfg.Policy.Decide(nil, hasHistory), nil
	default:
		return nil, sandbox.Decision{}, fmt.Errorf("failed to load accrual state: %w", err)
	}
}

type cardResult struct {
	cardNumber string
	decision   sandbox.Decision
	inserted   int
	failed     int
}

func (s *AccrualService) processCard(ctx context.Context, card models.CardRef) (res cardResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while accruing card: %v", r)
		}
	}()

	res.cardNumber = models.NormalizeCardNumber(card.CardNumber)
	if res.cardNumber == "" {
		return res, fmt.Errorf("card %s has no number", card.CardID)
	}

	cardCtx := ctx
	if s.cfg.CardTimeout > 0 {
		var cancel context.CancelFunc
		cardCtx, cancel = context.WithTimeout(ctx, s.cfg.CardTimeout)
		defer cancel()
	}

	state, decision, err := s.decide(cardCtx, res.cardNumber)
	if err != nil {
		return res, err
	}
	res.decision = decision

	if decision.Backfill {
		// Mark the backfill as started before writing, so a lost final save
		// still leaves an unfinished backfill behind instead of bare history.
		pending := s.startedBackfill(state, res.cardNumber)
		if err := s.saveState(ctx, pending); err != nil {
			return res, fmt.Errorf("failed to record backfill start: %w", err)
		}
		state = &pending
	}

	log := logger.FromContext(ctx)
	batch := s.generator.Generate(res.cardNumber, decision.Count, card.Bank, decision.Mode)
	for i, item := range batch {
		if cardCtx.Err() != nil {
			res.failed += len(batch) - i
			msg := "Card deadline reached, abandoning remaining writes"
			if ctx.Err() != nil {
				msg = "Tick cancelled, abandoning remaining writes"
			}
			log.Warn(msg, "cardNumber", maskCardNumber(res.cardNumber), "abandoned", len(batch)-i, "error", cardCtx.Err())
			break
		}
		tx := item.Transaction
		tx.CreatedAt = s.now().UTC()
		if err := s.txs.InsertTransaction(cardCtx, tx); err != nil {
			res.failed++
			log.Warn("Failed to persist sandbox transaction",
				"cardNumber", maskCardNumber(res.cardNumber), "transactionID", tx.ID, "error", err)
			continue
		}
		res.inserted++
	}

	if res.inserted > 0 && s.invalidator != nil {
		s.invalidator.Invalidate(res.cardNumber)
	}

	if err := s.saveState(ctx, s.nextState(state, res)); err != nil {
		return res, fmt.Errorf("failed to save accrual state: %w", err)
	}
	if res.inserted == 0 && len(batch) > 0 {
		return res, fmt.Errorf("all %d transaction writes failed", len(batch))
	}
	return res, nil
}

// saveState persists state even when ctx was cancelled mid-card, so writes
// that already landed are accounted for.
func (s *AccrualService) saveState(ctx context.Context, state models.AccrualState) error {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateSaveTimeout)
	defer cancel()
	return s.states.SaveAccrualState(saveCtx, state)
}

func (s *AccrualService) startedBackfill(prev *models.AccrualState, cardNumber string) models.AccrualState {
	next := models.AccrualState{CardNumber: cardNumber}
	if prev != nil {
		next = *prev
	}
	if next.BackfillTarget <= 0 {
		next.BackfillTarget = s.cfg.Policy.BackfillCount
	}
	next.BackfillCompleted = false
	return next
}

// nextState folds the outcome of a card's accrual into its state record.
func (s *AccrualService) nextState(prev *models.AccrualState, res cardResult) models.AccrualState {
	next := models.AccrualState{CardNumber: res.cardNumber}
	if prev != nil {
		next = *prev
	}
	if next.BackfillTarget <= 0 {
		next.BackfillTarget = s.cfg.Policy.BackfillCount
	}

	if res.decision.Backfill {
		next.BackfilledCount += res.inserted
		next.BackfillCompleted = next.BackfilledCount >= next.BackfillTarget
	} else {
		// Cards with history from before state was tracked count as backfilled.
		next.BackfillCompleted = true
	}

	if res.inserted > 0 {
		next.LastAccrualAt = s.now().UTC()
	}
	return next
}

func (r *TickReport) finish(start time.Time) {
	r.Duration = time.Since(start)
	r.DurationMs = r.Duration.Milliseconds()
}

func maskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "****" + number[len(number)-4:]
}
