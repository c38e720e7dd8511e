// src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/nuerofin/backend/src/models"
	"github.com/robfig/cron/v3"
)

// Define common service errors
var (
	ErrTickInProgress = errors.New("sandbox tick already in progress")
	ErrAlreadyStarted = errors.New("accrual service already started")
)

// Scheduler invokes registered functions on a cron schedule. *cron.Cron satisfies it.
type Scheduler interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
}

// CacheInvalidator drops cached read-side views of a card.
type CacheInvalidator interface {
	Invalidate(cardNumber string)
}

// SandboxQueryService serves accumulated sandbox transactions to the frontend.
type SandboxQueryService interface {
	CacheInvalidator
	GetCardTransactions(ctx context.Context, cardNumber string) (*models.CardTransactions, error)
	GetMonthlySummary(ctx context.Context, cardNumber string) ([]models.MonthlySummary, error)
}

// TickReport summarizes one accrual tick.
type TickReport struct {
	TickID       string        `json:"tickId"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"-"`
	DurationMs   int64         `json:"durationMs"`
	Cards        int           `json:"cards"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Inserted     int           `json:"inserted"`
	FailedWrites int           `json:"failedWrites"`
	Skipped      bool          `json:"skipped"`
}
