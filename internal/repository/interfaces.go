package repository

import (
	"context"
	"errors"
	"time"

	"github.com/arvestapp/arvest-backend/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// LedgerTx is the view of the ledger inside one atomic storage transaction.
// Every balance check, balance write and transaction-log insert for a single
// Credit/Debit/Transfer goes through one LedgerTx; either all of it commits
// or none of it does.
type LedgerTx interface {
	// WalletForUpdate reads a wallet row and locks it for the remainder of
	// the transaction. Callers locking two wallets must do so in ascending
	// wallet-id order.
	WalletForUpdate(ctx context.Context, walletID string) (models.Wallet, error)
	SetWalletBalance(ctx context.Context, walletID string, balance int64) error
	InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)
	// TransactionByReference looks up a prior ledger entry by its
	// idempotency reference and leg direction.
	TransactionByReference(ctx context.Context, reference string, dir models.TransactionDirection) (models.Transaction, bool, error)
}

// Ledger is the wallet + transaction store. InTx is the unit-of-work
// boundary: the engine never touches wallet balances outside it.
type Ledger interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error

	CreateWallet(ctx context.Context, w models.Wallet) (models.Wallet, error)
	WalletByID(ctx context.Context, id string) (models.Wallet, error)
	WalletByUser(ctx context.Context, userID, currency string) (models.Wallet, error)
	WalletByAccountNumber(ctx context.Context, accountNumber string) (models.Wallet, error)
	SetWalletStatus(ctx context.Context, id string, status models.WalletStatus) error
	AddBeneficiary(ctx context.Context, walletID, beneficiaryID string) error
	RemoveBeneficiary(ctx context.Context, walletID, beneficiaryID string) error

	TransactionByID(ctx context.Context, id string) (models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
}

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type Plans interface {
	// ListChargeable returns RESUME plans that have at least one prior
	// investment. The per-plan date guards live in the scheduler, not here.
	ListChargeable(ctx context.Context) ([]models.RecurringPlan, error)
	GetByID(ctx context.Context, id string) (models.RecurringPlan, error)
	// MarkCharged advances last_charge_date/next_charge_date after a charge
	// has been handed to the gateway.
	MarkCharged(ctx context.Context, id string, last, next time.Time) error
}

type Cards interface {
	DefaultForUser(ctx context.Context, userID, gateway string) (models.SavedCard, error)
	MarkExpired(ctx context.Context, id string) error
}

type Listings interface {
	// FindMatch resolves an active listing for a plan's category/duration
	// that accepts the given minor-unit amount.
	FindMatch(ctx context.Context, category string, durationMonths int, amount int64) (models.Listing, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
