package services

import (
	"context"
	"testing"
	"time"

	"github.com/nuerofin/backend/src/models"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/require"
)

func queryTx(id string, ts time.Time, status models.TransactionStatus, amount int) models.SandboxTransaction {
	return models.SandboxTransaction{
		ID:         id,
		CardNumber: cardA,
		Bank:       "HDFC",
		Timestamp:  ts,
		Merchant:   "Swiggy",
		Amount:     amount,
		Currency:   models.CurrencyINR,
		Status:     status,
		Type:       models.PaymentUPI,
		CreatedAt:  ts.Add(time.Hour),
	}
}

func newTestQueryService(st *memStore) SandboxQueryService {
	return NewSandboxQueryService(st, cache.New(DefaultCacheExpiration, CacheCleanupInterval), 0)
}

func TestGetCardTransactionsGroupsByMonth(t *testing.T) {
	st := newMemStore()
	st.txs[cardA] = []models.SandboxTransaction{
		queryTx("t3", time.Date(2026, 9, 30, 23, 59, 0, 0, time.UTC), models.StatusSuccess, 100),
		queryTx("t1", time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC), models.StatusFailed, 300),
		queryTx("t2", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), models.StatusPending, 200),
	}
	svc := newTestQueryService(st)

	view, err := svc.GetCardTransactions(context.Background(), "4111 1111 1111 1111")
	require.NoError(t, err)
	require.Equal(t, cardA, view.CardNumber)
	require.Equal(t, "HDFC", view.Bank)
	require.Equal(t, 3, view.Total)
	require.Len(t, view.Months, 2)
	require.Len(t, view.Months["2026-08"], 1)
	require.Equal(t, "t2", view.Months["2026-09"][0].ID)
	require.Equal(t, "t3", view.Months["2026-09"][1].ID)
	require.NotNil(t, view.UpdatedAt)
	require.Equal(t, time.Date(2026, 10, 1, 0, 59, 0, 0, time.UTC), *view.UpdatedAt)
}

func TestGetCardTransactionsUnknownCard(t *testing.T) {
	svc := newTestQueryService(newMemStore())

	view, err := svc.GetCardTransactions(context.Background(), cardB)
	require.NoError(t, err)
	require.Equal(t, cardB, view.CardNumber)
	require.Empty(t, view.Months)
	require.NotNil(t, view.Months)
	require.Zero(t, view.Total)
	require.Nil(t, view.UpdatedAt)
}

func TestGetMonthlySummary(t *testing.T) {
	st := newMemStore()
	st.txs[cardA] = []models.SandboxTransaction{
		queryTx("a", time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC), models.StatusSuccess, 100),
		queryTx("b", time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC), models.StatusSuccess, 201),
		queryTx("c", time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC), models.StatusSuccess, 50),
		queryTx("d", time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC), models.StatusFailed, 999),
		queryTx("e", time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC), models.StatusPending, 500),
	}
	svc := newTestQueryService(st)

	summaries, err := svc.GetMonthlySummary(context.Background(), cardA)
	require.NoError(t, err)
	require.Equal(t, []models.MonthlySummary{
		{Month: "2026-08", Count: 1, Pending: 1, AverageTicket: "0.00"},
		{Month: "2026-09", Count: 4, Success: 3, Failed: 1, TotalSpent: 351, AverageTicket: "117.00"},
	}, summaries)
}

func TestSummaryAverageTicketRounds(t *testing.T) {
	txs := []models.SandboxTransaction{
		queryTx("a", fixedNow, models.StatusSuccess, 100),
		queryTx("b", fixedNow, models.StatusSuccess, 100),
		queryTx("c", fixedNow, models.StatusSuccess, 101),
	}
	require.Equal(t, "100.33", summarizeMonth("2026-10", txs).AverageTicket)
}

func TestQueryCacheInvalidation(t *testing.T) {
	st := newMemStore()
	st.txs[cardA] = []models.SandboxTransaction{
		queryTx("a", time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC), models.StatusSuccess, 100),
	}
	svc := newTestQueryService(st)

	view, err := svc.GetCardTransactions(context.Background(), cardA)
	require.NoError(t, err)
	require.Equal(t, 1, view.Total)
	_, err = svc.GetMonthlySummary(context.Background(), cardA)
	require.NoError(t, err)

	require.NoError(t, st.InsertTransaction(context.Background(),
		queryTx("b", time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC), models.StatusSuccess, 100)))

	view, err = svc.GetCardTransactions(context.Background(), cardA)
	require.NoError(t, err)
	require.Equal(t, 1, view.Total)

	svc.Invalidate("4111 1111 1111 1111")

	view, err = svc.GetCardTransactions(context.Background(), cardA)
	require.NoError(t, err)
	require.Equal(t, 2, view.Total)
	summaries, err := svc.GetMonthlySummary(context.Background(), cardA)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
}

func TestReadRacingInvalidationIsNotCached(t *testing.T) {
	st := newMemStore()
	st.txs[cardA] = []models.SandboxTransaction{
		queryTx("a", time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC), models.StatusSuccess, 100),
	}
	svc := newTestQueryService(st)

	// A tick lands right after the read loaded its rows.
	st.listHook = func() {
		st.listHook = nil
		st.txs[cardA] = append(st.txs[cardA],
			queryTx("b", time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC), models.StatusSuccess, 100))
		svc.Invalidate(cardA)
	}

	view, err := svc.GetCardTransactions(context.Background(), cardA)
	require.NoError(t, err)
	require.Equal(t, 1, view.Total)

	view, err = svc.GetCardTransactions(context.Background(), cardA)
	require.NoError(t, err)
	require.Equal(t, 2, view.Total)
}
