// src/handlers/card_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nuerofin/backend/src/logger"
	"github.com/nuerofin/backend/src/models"
	"github.com/nuerofin/backend/src/security/validation"
	"github.com/nuerofin/backend/src/store"
)

type CardHandler struct {
	cards store.CardStore
}

func NewCardHandler(cards store.CardStore) *CardHandler {
	return &CardHandler{cards: cards}
}

type saveCardRequest struct {
	Number  string `json:"number"`
	Holder  string `json:"holder"`
	Expiry  string `json:"expiry"`
	Brand   string `json:"brand"`
	Bank    string `json:"bank"`
	LogoURL string `json:"logoUrl"`
}

func (req saveCardRequest) validate() error {
	if err := validation.ValidateCardNumber(req.Number); err != nil {
		return err
	}
	if err := validation.ValidateExpiry(req.Expiry); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(req.Holder, validation.DefaultMaxStringLength, "holder"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(req.Brand, validation.DefaultMaxStringLength, "brand"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(req.Bank, validation.DefaultMaxStringLength, "bank"); err != nil {
		return err
	}
	return validation.ValidateStringMaxLength(req.LogoURL, validation.MaxURLLength, "logoUrl")
}

// HandleSaveCard creates the caller's card or replaces its details.
func (h *CardHandler) HandleSaveCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req saveCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req = saveCardRequest{
		Number:  validation.CleanField(req.Number),
		Holder:  validation.CleanField(req.Holder),
		Expiry:  validation.CleanField(req.Expiry),
		Brand:   validation.CleanField(req.Brand),
		Bank:    validation.CleanField(req.Bank),
		LogoURL: validation.CleanField(req.LogoURL),
	}
	if err := req.validate(); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	card, err := h.cards.SaveCardForUser(r.Context(), models.Card{
		Number:  req.Number,
		Holder:  req.Holder,
		Expiry:  req.Expiry,
		Brand:   req.Brand,
		Bank:    req.Bank,
		LogoURL: req.LogoURL,
		UserID:  userID,
	})
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to save card", "error", err)
		sendJSONError(w, "Failed to save card", http.StatusInternalServerError)
		return
	}
	logger.FromContext(r.Context()).Info("Card saved", "cardID", card.ID)
	sendJSON(w, card, http.StatusOK)
}

// HandleGetCard returns the caller's card, or null when none is linked.
func (h *CardHandler) HandleGetCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	card, err := h.cards.GetCardByUser(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		sendJSON(w, nil, http.StatusOK)
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to load card", "error", err)
		sendJSONError(w, "Failed to load card", http.StatusInternalServerError)
		return
	}
	sendJSON(w, card, http.StatusOK)
}
