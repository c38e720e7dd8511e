package models

import "time"

// AccrualState records how far the sandbox accrual has progressed for one card.
type AccrualState struct {
	CardNumber        string    `json:"cardNumber" bson:"cardNumber"`
	BackfillTarget    int       `json:"backfillTarget" bson:"backfillTarget"`
	BackfilledCount   int       `json:"backfilledCount" bson:"backfilledCount"`
	BackfillCompleted bool      `json:"backfillCompleted" bson:"backfillCompleted"`
	LastAccrualAt     time.Time `json:"lastAccrualAt" bson:"lastAccrualAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}
