package models

import (
	"strings"
	"time"
	"unicode"
)

// Card is a payment card linked by a user. Cards are owned by the card registry;
// the accrual engine only reads them.
type Card struct {
	ID        string    `json:"id" bson:"id"`
	Number    string    `json:"number" bson:"number"` // As entered, may contain spaces
	Holder    string    `json:"holder" bson:"holder"`
	Expiry    string    `json:"expiry" bson:"expiry"`
	Brand     string    `json:"brand" bson:"brand"`
	Bank      string    `json:"bank" bson:"bank"`
	LogoURL   string    `json:"logoUrl" bson:"logoUrl"`
	UserID    string    `json:"userId" bson:"userId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CardRef is the projection of a card the accrual engine works with.
type CardRef struct {
	CardID     string
	CardNumber string
	Bank       string
}

// NormalizeCardNumber strips every whitespace rune from a card number.
func NormalizeCardNumber(number string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, number)
}
