// Package store persists cards, sandbox transactions and accrual state.
package store

import (
	"context"
	"errors"

	"github.com/nuerofin/backend/src/models"
)

var ErrNotFound = errors.New("not found")

// CardRegistry is the read-only view of cards the accrual engine iterates.
type CardRegistry interface {
	ListAllCards(ctx context.Context) ([]models.CardRef, error)
}

// CardStore backs the card endpoints. A user owns at most one card.
type CardStore interface {
	CardRegistry
	GetCardByUser(ctx context.Context, userID string) (*models.Card, error)
	SaveCardForUser(ctx context.Context, card models.Card) (*models.Card, error)
}

// TransactionStore is append-only: transactions are inserted one at a time and
// never updated or deleted.
type TransactionStore interface {
	HasAnyTransactionFor(ctx context.Context, cardNumber string) (bool, error)
	CountTransactionsFor(ctx context.Context, cardNumber string) (int, error)
	InsertTransaction(ctx context.Context, tx models.SandboxTransaction) error
	// ListTransactionsByCard returns the card's transactions ordered by timestamp.
	ListTransactionsByCard(ctx context.Context, cardNumber string) ([]models.SandboxTransaction, error)
}

type AccrualStateStore interface {
	// GetAccrualState returns ErrNotFound when the card has never been accrued.
	GetAccrualState(ctx context.Context, cardNumber string) (*models.AccrualState, error)
	SaveAccrualState(ctx context.Context, state models.AccrualState) error
}

// Store is everything a backend provides.
type Store interface {
	CardStore
	TransactionStore
	AccrualStateStore
	Close(ctx context.Context) error
}
