package models

import "time"

// TransactionStatus is the settlement outcome of a sandbox transaction.
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
	StatusPending TransactionStatus = "PENDING"
)

// PaymentType is the instrument a sandbox transaction was paid with.
type PaymentType string

const (
	PaymentUPI        PaymentType = "UPI"
	PaymentDebitCard  PaymentType = "Debit Card"
	PaymentCreditCard PaymentType = "Credit Card"
)

// CurrencyINR is the only currency the sandbox feed produces.
const CurrencyINR = "INR"

// MonthKeyLayout formats a timestamp as its YYYY-MM month key.
const MonthKeyLayout = "2006-01"

// SandboxTransaction is a synthetic card transaction produced by the accrual engine.
// Records are append-only: once persisted they are never updated.
type SandboxTransaction struct {
	ID          string            `json:"id" bson:"id"`
	CardNumber  string            `json:"cardNumber" bson:"cardNumber"` // Digits only
	Bank        string            `json:"bank" bson:"bank"`             // Copied from the card at generation time
	Timestamp   time.Time         `json:"timestamp" bson:"timestamp"`   // Simulated time the payment happened
	Merchant    string            `json:"merchant" bson:"merchant"`
	Amount      int               `json:"amount" bson:"amount"` // Whole rupees, 50..5000
	Currency    string            `json:"currency" bson:"currency"`
	Status      TransactionStatus `json:"status" bson:"status"`
	Type        PaymentType       `json:"type" bson:"type"`
	Description string            `json:"description" bson:"description"`
	CreatedAt   time.Time         `json:"createdAt" bson:"createdAt"` // Wall-clock time of persistence
}

// MonthKey returns the UTC year-month of the transaction timestamp.
func (t SandboxTransaction) MonthKey() string {
	return MonthKeyOf(t.Timestamp)
}

// MonthKeyOf derives the YYYY-MM partition key of a timestamp.
func MonthKeyOf(ts time.Time) string {
	return ts.UTC().Format(MonthKeyLayout)
}

// CardTransactions is the read-side view of every sandbox transaction of one card,
// grouped by month key.
type CardTransactions struct {
	CardNumber string                          `json:"cardNumber"`
	Bank       string                          `json:"bank,omitempty"`
	Months     map[string][]SandboxTransaction `json:"months"`
	Total      int                             `json:"total"`
	UpdatedAt  *time.Time                      `json:"updatedAt,omitempty"`
}

// MonthlySummary aggregates one month of a card's sandbox transactions.
type MonthlySummary struct {
	Month         string `json:"month"`
	Count         int    `json:"count"`
	Success       int    `json:"success"`
	Failed        int    `json:"failed"`
	Pending       int    `json:"pending"`
	TotalSpent    int64  `json:"totalSpent"`    // Sum of SUCCESS amounts
	AverageTicket string `json:"averageTicket"` // TotalSpent / Success, 2 decimals
}
