package models

import "time"

type PendingActionKind string

const (
	ActionWithdrawal PendingActionKind = "WITHDRAWAL"
	ActionTransfer   PendingActionKind = "TRANSFER"
)

// WithdrawalIntent describes a bank withdrawal awaiting OTP confirmation.
// Amounts are minor units; FeeMinor is debited on top of Amount.
type WithdrawalIntent struct {
	Amount      int64  `json:"amount"`
	BankCode    string `json:"bank_code"`
	AccountNo   string `json:"account_number"`
	AccountName string `json:"account_name"`
	FeeMinor    int64  `json:"fee_minor"`
}

// TransferIntent describes a wallet-to-wallet transfer awaiting OTP
// confirmation. RecipientAccount is the recipient wallet's account number.
type TransferIntent struct {
	Amount           int64  `json:"amount"`
	RecipientAccount string `json:"recipient_account"`
	Note             string `json:"note,omitempty"`
}

// PendingAction binds a one-time code to an intended money movement. The
// intent is a tagged union: exactly one of Withdrawal / Transfer is set,
// per Kind. Stored server-side keyed by Code; the client never carries the
// intent back.
type PendingAction struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Kind       PendingActionKind `json:"kind"`
	Withdrawal *WithdrawalIntent `json:"withdrawal,omitempty"`
	Transfer   *TransferIntent   `json:"transfer,omitempty"`
	Code       string            `json:"code"`
	Signature  string            `json:"signature"`
	IssuedAt   time.Time         `json:"issued_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Consumed   bool              `json:"consumed"`
	// Attempt counts rejected executions. It feeds the engine reference so
	// a retry after a business rejection is not mistaken for a replay of
	// the rejected one.
	Attempt int `json:"attempt"`
}

func (p *PendingAction) Expired(now time.Time) bool { return now.After(p.ExpiresAt) }

// Amount returns the minor-unit amount of whichever intent is set.
func (p *PendingAction) Amount() int64 {
	switch p.Kind {
	case ActionWithdrawal:
		if p.Withdrawal != nil {
			return p.Withdrawal.Amount
		}
	case ActionTransfer:
		if p.Transfer != nil {
			return p.Transfer.Amount
		}
	}
	return 0
}
