package ledger

import "github.com/arvestapp/arvest-backend/internal/models"

// Reason is the machine-checkable outcome code returned alongside every
// rejected mutation. Business rejections come back through Result, never as
// opaque errors; error returns are reserved for storage failures.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInvalidAmount      Reason = "INVALID_AMOUNT"
	ReasonSelfTransfer       Reason = "SELF_TRANSFER"
	ReasonWalletNotFound     Reason = "WALLET_NOT_FOUND"
	ReasonWalletInactive     Reason = "WALLET_INACTIVE"
	ReasonInsufficientFunds  Reason = "INSUFFICIENT_FUNDS"
	ReasonDuplicateReference Reason = "DUPLICATE_REFERENCE"
)

var reasonMessages = map[Reason]string{
	ReasonInvalidAmount:      "amount must be greater than zero",
	ReasonSelfTransfer:       "cannot transfer to the same wallet",
	ReasonWalletNotFound:     "wallet not found",
	ReasonWalletInactive:     "wallet is inactive",
	ReasonInsufficientFunds:  "insufficient funds",
	ReasonDuplicateReference: "reference already used by a failed transaction",
}

// Result is the outcome of a Credit, Debit or Transfer. For a transfer,
// Transaction is the sender's DEBIT leg and Counterpart the recipient's
// CREDIT leg; both share one reference.
type Result struct {
	Success     bool                `json:"success"`
	Reason      Reason              `json:"reason,omitempty"`
	Message     string              `json:"message,omitempty"`
	Transaction models.Transaction  `json:"transaction"`
	Counterpart *models.Transaction `json:"counterpart,omitempty"`
}

func failure(reason Reason) Result {
	return Result{Success: false, Reason: reason, Message: reasonMessages[reason]}
}
