package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nuerofin/backend/src/models"
)

// SQLiteStore implements Store on the migrated SQLite schema.
// Timestamps are stored as Unix milliseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *SQLiteStore) ListAllCards(ctx context.Context) ([]models.CardRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, number, bank FROM cards ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("error querying cards: %w", err)
	}
	defer rows.Close()

	var cards []models.CardRef
	for rows.Next() {
		var c models.CardRef
		if err := rows.Scan(&c.CardID, &c.CardNumber, &c.Bank); err != nil {
			return nil, fmt.Errorf("error scanning card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return cards, nil
}

func (s *SQLiteStore) GetCardByUser(ctx context.Context, userID string) (*models.Card, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, holder, expiry, brand, bank, logo_url, user_id, created_at, updated_at
		FROM cards WHERE user_id = ?`, userID)

	var c models.Card
	var createdAt, updatedAt int64
	err := row.Scan(&c.ID, &c.Number, &c.Holder, &c.Expiry, &c.Brand, &c.Bank, &c.LogoURL, &c.UserID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading card for user %s: %w", userID, err)
	}
	c.CreatedAt = time.UnixMilli(createdAt).UTC()
	c.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &c, nil
}

// SaveCardForUser creates the user's card, or overwrites its fields when one exists.
func (s *SQLiteStore) SaveCardForUser(ctx context.Context, card models.Card) (*models.Card, error) {
	if card.UserID == "" {
		return nil, fmt.Errorf("card user ID is required")
	}
	now := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, number, holder, expiry, brand, bank, logo_url, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			number = excluded.number,
			holder = excluded.holder,
			expiry = excluded.expiry,
			brand = excluded.brand,
			bank = excluded.bank,
			logo_url = excluded.logo_url,
			updated_at = excluded.updated_at`,
		uuid.NewString(), card.Number, card.Holder, card.Expiry, card.Brand, card.Bank, card.LogoURL, card.UserID, now, now)
	if err != nil {
		return nil, fmt.Errorf("error saving card for user %s: %w", card.UserID, err)
	}
	return s.GetCardByUser(ctx, card.UserID)
}

func (s *SQLiteStore) HasAnyTransactionFor(ctx context.Context, cardNumber string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sandbox_transactions WHERE card_number = ? LIMIT 1`, cardNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking transactions for card %s: %w", cardNumber, err)
	}
	return true, nil
}

func (s *SQLiteStore) CountTransactionsFor(ctx context.Context, cardNumber string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sandbox_transactions WHERE card_number = ?`, cardNumber).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting transactions for card %s: %w", cardNumber, err)
	}
	return n, nil
}

func (s *SQLiteStore) InsertTransaction(ctx context.Context, tx models.SandboxTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sandbox_transactions
			(id, card_number, bank, month, occurred_at, merchant, amount, currency, status, payment_type, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.CardNumber, tx.Bank, tx.MonthKey(), tx.Timestamp.UnixMilli(), tx.Merchant, tx.Amount,
		tx.Currency, string(tx.Status), string(tx.Type), tx.Description, tx.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("error inserting transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListTransactionsByCard(ctx context.Context, cardNumber string) ([]models.SandboxTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_number, bank, occurred_at, merchant, amount, currency, status, payment_type, description, created_at
		FROM sandbox_transactions
		WHERE card_number = ?
		ORDER BY occurred_at ASC, rowid ASC`, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for card %s: %w", cardNumber, err)
	}
	defer rows.Close()

	var txs []models.SandboxTransaction
	for rows.Next() {
		var tx models.SandboxTransaction
		var occurredAt, createdAt int64
		var status, paymentType string
		if err := rows.Scan(&tx.ID, &tx.CardNumber, &tx.Bank, &occurredAt, &tx.Merchant, &tx.Amount,
			&tx.Currency, &status, &paymentType, &tx.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning transaction for card %s: %w", cardNumber, err)
		}
		tx.Timestamp = time.UnixMilli(occurredAt).UTC()
		tx.CreatedAt = time.UnixMilli(createdAt).UTC()
		tx.Status = models.TransactionStatus(status)
		tx.Type = models.PaymentType(paymentType)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions for card %s: %w", cardNumber, err)
	}
	return txs, nil
}

func (s *SQLiteStore) GetAccrualState(ctx context.Context, cardNumber string) (*models.AccrualState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT card_number, backfill_target, backfilled_count, backfill_completed, last_accrual_at, updated_at
		FROM accrual_states WHERE card_number = ?`, cardNumber)

	var st models.AccrualState
	var lastAccrualAt, updatedAt int64
	err := row.Scan(&st.CardNumber, &st.BackfillTarget, &st.BackfilledCount, &st.BackfillCompleted, &lastAccrualAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading accrual state for card %s: %w", cardNumber, err)
	}
	if lastAccrualAt > 0 {
		st.LastAccrualAt = time.UnixMilli(lastAccrualAt).UTC()
	}
	st.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &st, nil
}

func (s *SQLiteStore) SaveAccrualState(ctx context.Context, state models.AccrualState) error {
	var lastAccrualAt int64
	if !state.LastAccrualAt.IsZero() {
		lastAccrualAt = state.LastAccrualAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accrual_states (card_number, backfill_target, backfilled_count, backfill_completed, last_accrual_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_number) DO UPDATE SET
			backfill_target = excluded.backfill_target,
			backfilled_count = excluded.backfilled_count,
			backfill_completed = excluded.backfill_completed,
			last_accrual_at = excluded.last_accrual_at,
			updated_at = excluded.updated_at`,
		state.CardNumber, state.BackfillTarget, state.BackfilledCount, state.BackfillCompleted, lastAccrualAt, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("error saving accrual state for card %s: %w", state.CardNumber, err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
