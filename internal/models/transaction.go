package models

import "time"

type TransactionDirection string

const (
	DirectionCredit TransactionDirection = "CREDIT"
	DirectionDebit  TransactionDirection = "DEBIT"
)

type TransactionStatus string

const (
	TxnPending TransactionStatus = "PENDING"
	TxnSuccess TransactionStatus = "SUCCESS"
	TxnFailed  TransactionStatus = "FAILED"
)

type TransactionPurpose string

const (
	PurposeWallet          TransactionPurpose = "WALLET"
	PurposeInvestment      TransactionPurpose = "INVESTMENT"
	PurposeWithdrawal      TransactionPurpose = "WITHDRAWAL"
	PurposeBank            TransactionPurpose = "BANK"
	PurposeSecondaryMarket TransactionPurpose = "SECONDARY_MARKET"
)

// GatewayWallet marks internal wallet-to-wallet movements; anything else is
// the name of the external provider that settled the money.
const GatewayWallet = "WALLET"

// Transaction is an append-only ledger entry. Amounts are integer minor
// units. A committed SUCCESS row satisfies
// balance_after = balance_before ± amount, matching the wallet transition
// applied in the same storage transaction.
type Transaction struct {
	ID            string               `json:"id"`
	WalletID      string               `json:"wallet_id"`
	UserID        string               `json:"user_id"`
	Reference     string               `json:"reference"`
	Hash          string               `json:"transaction_hash"`
	Amount        int64                `json:"amount"`
	Direction     TransactionDirection `json:"direction"`
	Currency      string               `json:"currency"`
	Gateway       string               `json:"gateway"`
	Purpose       TransactionPurpose   `json:"purpose"`
	BalanceBefore int64                `json:"balance_before"`
	BalanceAfter  int64                `json:"balance_after"`
	Status        TransactionStatus    `json:"status"`
	Description   string               `json:"description,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}
