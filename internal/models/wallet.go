package models

import "time"

type WalletStatus string

const (
	WalletActive   WalletStatus = "ACTIVE"
	WalletInactive WalletStatus = "INACTIVE"
)

// Wallet holds a user's balance in integer minor units (kobo for NGN).
// Balance is only ever mutated through the ledger engine.
type Wallet struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	Currency      string       `json:"currency"`
	Balance       int64        `json:"balance"`
	Status        WalletStatus `json:"status"`
	AccountNumber string       `json:"account_number"`
	Beneficiaries []string     `json:"beneficiaries,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (w *Wallet) IsActive() bool { return w.Status == WalletActive }
