// src/handlers/sandbox_handler.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nuerofin/backend/src/logger"
	"github.com/nuerofin/backend/src/models"
	"github.com/nuerofin/backend/src/services"
)

// TickRunner runs one accrual tick on demand.
type TickRunner interface {
	Tick(ctx context.Context) (services.TickReport, error)
}

type SandboxHandler struct {
	queryService services.SandboxQueryService
	ticker       TickRunner
}

func NewSandboxHandler(queryService services.SandboxQueryService, ticker TickRunner) *SandboxHandler {
	return &SandboxHandler{queryService: queryService, ticker: ticker}
}

func cardNumberParam(r *http.Request) string {
	return models.NormalizeCardNumber(chi.URLParam(r, "cardNumber"))
}

func (h *SandboxHandler) HandleGetCardTransactions(w http.ResponseWriter, r *http.Request) {
	cardNumber := cardNumberParam(r)
	if cardNumber == "" {
		sendJSONError(w, "Card number is required", http.StatusBadRequest)
		return
	}

	view, err := h.queryService.GetCardTransactions(r.Context(), cardNumber)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load sandbox transactions", "error", err)
		sendJSONError(w, "Failed to load sandbox transactions", http.StatusInternalServerError)
		return
	}
	sendJSON(w, view, http.StatusOK)
}

func (h *SandboxHandler) HandleGetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	cardNumber := cardNumberParam(r)
	if cardNumber == "" {
		sendJSONError(w, "Card number is required", http.StatusBadRequest)
		return
	}

	summaries, err := h.queryService.GetMonthlySummary(r.Context(), cardNumber)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to build sandbox summary", "error", err)
		sendJSONError(w, "Failed to build sandbox summary", http.StatusInternalServerError)
		return
	}
	sendJSON(w, summaries, http.StatusOK)
}

// HandleRunTick runs a tick synchronously and returns its report. The tick
// keeps running if the client goes away.
func (h *SandboxHandler) HandleRunTick(w http.ResponseWriter, r *http.Request) {
	report, err := h.ticker.Tick(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, services.ErrTickInProgress):
		sendJSONError(w, "A sandbox tick is already running", http.StatusConflict)
		return
	case err != nil:
		logger.FromContext(r.Context()).Error("Manual sandbox tick failed", "tickID", report.TickID, "error", err)
		sendJSONError(w, "Sandbox tick failed", http.StatusInternalServerError)
		return
	}
	sendJSON(w, report, http.StatusOK)
}
