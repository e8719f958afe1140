package model

import "time"

// PurchaseRequest is the body of POST /api/purchase-coins.
// Amount is a whole number of dollars; the processor is paid in cents.
type PurchaseRequest struct {
	Amount int64  `json:"amount"`
	UserID string `json:"userId"`
}

// PurchaseIntent is what the caller needs to complete the payment client-side.
type PurchaseIntent struct {
	ClientSecret string `json:"clientSecret"`
}

// IntentRequest is the normalized request handed to the payment processor:
// minor-unit amount plus the metadata that lets the later webhook recover
// the purchase without a local lookup.
type IntentRequest struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

// PaymentEvent is a processor webhook event after signature verification,
// normalized out of the processor's own envelope. UserID and Amount are only
// populated for payment-succeeded events.
type PaymentEvent struct {
	ID     string
	Type   string
	UserID string
	Amount int64
}

// CreditEvent is the queue payload carrying one wallet credit.
// EventID is the processor's event identifier and the idempotency key:
// replaying the same event must not credit twice.
type CreditEvent struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Wallet is one user's credited balance.
type Wallet struct {
	UserID      string    `json:"user_id"`
	Balance     int64     `json:"balance"`
	LastUpdated time.Time `json:"last_updated"`
}
