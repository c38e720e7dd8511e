package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nuerofin/backend/src/models"
	"github.com/nuerofin/backend/src/store"
	"github.com/robfig/cron/v3"
)

var fixedNow = time.Date(2026, time.October, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// memStore is an in-memory store with failure injection.
type memStore struct {
	mu         sync.Mutex
	cards      []models.CardRef
	txs        map[string][]models.SandboxTransaction
	states     map[string]models.AccrualState
	listErr    error
	historyErr map[string]error
	insertHook func(ctx context.Context, tx models.SandboxTransaction) error
	saveHook   func(state models.AccrualState) error
	listHook   func()
}

func newMemStore(cards ...models.CardRef) *memStore {
	return &memStore{
		cards:      cards,
		txs:        make(map[string][]models.SandboxTransaction),
		states:     make(map[string]models.AccrualState),
		historyErr: make(map[string]error),
	}
}

func (m *memStore) ListAllCards(ctx context.Context) ([]models.CardRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.CardRef(nil), m.cards...), nil
}

func (m *memStore) HasAnyTransactionFor(ctx context.Context, cardNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.historyErr[cardNumber]; err != nil {
		return false, err
	}
	return len(m.txs[cardNumber]) > 0, nil
}

func (m *memStore) CountTransactionsFor(ctx context.Context, cardNumber string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs[cardNumber]), nil
}

func (m *memStore) InsertTransaction(ctx context.Context, tx models.SandboxTransaction) error {
	if m.insertHook != nil {
		if err := m.insertHook(ctx, tx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.CardNumber] = append(m.txs[tx.CardNumber], tx)
	return nil
}

func (m *memStore) ListTransactionsByCard(ctx context.Context, cardNumber string) ([]models.SandboxTransaction, error) {
	m.mu.Lock()
	if m.listHook != nil {
		defer m.listHook()
	}
	defer m.mu.Unlock()
	out := append([]models.SandboxTransaction(nil), m.txs[cardNumber]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *memStore) GetAccrualState(ctx context.Context, cardNumber string) (*models.AccrualState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[cardNumber]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &state, nil
}

func (m *memStore) SaveAccrualState(ctx context.Context, state models.AccrualState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.saveHook != nil {
		if err := m.saveHook(state); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.CardNumber] = state
	return nil
}

func (m *memStore) count(cardNumber string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs[cardNumber])
}

func (m *memStore) state(cardNumber string) (models.AccrualState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[cardNumber]
	return s, ok
}

type fakeScheduler struct {
	mu      sync.Mutex
	spec    string
	job     func()
	started bool
	stopped bool
}

func (f *fakeScheduler) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spec = spec
	f.job = cmd
	return 1, nil
}

func (f *fakeScheduler) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeScheduler) Stop() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

type recordingInvalidator struct {
	mu    sync.Mutex
	cards []string
}

func (r *recordingInvalidator) Invalidate(cardNumber string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards = append(r.cards, cardNumber)
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
