// src/services/sandbox_query_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nuerofin/backend/src/logger"
	"github.com/nuerofin/backend/src/models"
	"github.com/nuerofin/backend/src/store"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

const (
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	ckCardTransactions = "sandbox:%s:transactions"
	ckMonthlySummary   = "sandbox:%s:summary"
)

type sandboxQueryServiceImpl struct {
	txs        store.TransactionStore
	cache      *cache.Cache
	expiration time.Duration

	// generations counts invalidations per card; a read only caches its
	// result if no invalidation happened while it was loading.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewSandboxQueryService(txs store.TransactionStore, c *cache.Cache, expiration time.Duration) SandboxQueryService {
	if expiration <= 0 {
		expiration = DefaultCacheExpiration
	}
	return &sandboxQueryServiceImpl{
		txs:         txs,
		cache:       c,
		expiration:  expiration,
		generations: make(map[string]uint64),
	}
}

func (s *sandboxQueryServiceImpl) GetCardTransactions(ctx context.Context, cardNumber string) (*models.CardTransactions, error) {
	cardNumber = models.NormalizeCardNumber(cardNumber)
	cacheKey := fmt.Sprintf(ckCardTransactions, cardNumber)
	if cached, found := s.cache.Get(cacheKey); found {
		logger.FromContext(ctx).Debug("Sandbox transactions served from cache", "cacheKey", cacheKey)
		return cached.(*models.CardTransactions), nil
	}

	generation := s.generation(cardNumber)
	txs, err := s.txs.ListTransactionsByCard(ctx, cardNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list sandbox transactions: %w", err)
	}

	result := &models.CardTransactions{
		CardNumber: cardNumber,
		Months:     make(map[string][]models.SandboxTransaction),
		Total:      len(txs),
	}
	for _, tx := range txs {
		key := tx.MonthKey()
		result.Months[key] = append(result.Months[key], tx)
		if result.Bank == "" {
			result.Bank = tx.Bank
		}
		if result.UpdatedAt == nil || tx.CreatedAt.After(*result.UpdatedAt) {
			createdAt := tx.CreatedAt
			result.UpdatedAt = &createdAt
		}
	}
	for _, month := range result.Months {
		sort.SliceStable(month, func(i, j int) bool {
			return month[i].Timestamp.Before(month[j].Timestamp)
		})
	}

	s.cacheIfCurrent(cardNumber, generation, cacheKey, result)
	return result, nil
}

func (s *sandboxQueryServiceImpl) GetMonthlySummary(ctx context.Context, cardNumber string) ([]models.MonthlySummary, error) {
	cardNumber = models.NormalizeCardNumber(cardNumber)
	cacheKey := fmt.Sprintf(ckMonthlySummary, cardNumber)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]models.MonthlySummary), nil
	}

	generation := s.generation(cardNumber)
	view, err := s.GetCardTransactions(ctx, cardNumber)
	if err != nil {
		return nil, err
	}

	months := make([]string, 0, len(view.Months))
	for month := range view.Months {
		months = append(months, month)
	}
	sort.Strings(months)

	summaries := make([]models.MonthlySummary, 0, len(months))
	for _, month := range months {
		summaries = append(summaries, summarizeMonth(month, view.Months[month]))
	}

	s.cacheIfCurrent(cardNumber, generation, cacheKey, summaries)
	return summaries, nil
}

func (s *sandboxQueryServiceImpl) Invalidate(cardNumber string) {
	cardNumber = models.NormalizeCardNumber(cardNumber)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[cardNumber]++
	s.cache.Delete(fmt.Sprintf(ckCardTransactions, cardNumber))
	s.cache.Delete(fmt.Sprintf(ckMonthlySummary, cardNumber))
}

func (s *sandboxQueryServiceImpl) generation(cardNumber string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[cardNumber]
}

func (s *sandboxQueryServiceImpl) cacheIfCurrent(cardNumber string, generation uint64, cacheKey string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[cardNumber] != generation {
		return
	}
	s.cache.Set(cacheKey, value, s.expiration)
}

func summarizeMonth(month string, txs []models.SandboxTransaction) models.MonthlySummary {
	summary := models.MonthlySummary{Month: month, Count: len(txs)}
	for _, tx := range txs {
		switch tx.Status {
		case models.StatusSuccess:
			summary.Success++
			summary.TotalSpent += int64(tx.Amount)
		case models.StatusFailed:
			summary.Failed++
		case models.StatusPending:
			summary.Pending++
		}
	}

	avg := decimal.Zero
	if summary.Success > 0 {
		avg = decimal.NewFromInt(summary.TotalSpent).Div(decimal.NewFromInt(int64(summary.Success)))
	}
	summary.AverageTicket = avg.StringFixed(2)
	return summary
}
