// Package ledger implements the transaction engine: atomic, idempotent
// Credit/Debit primitives over the wallet store, and the two-leg Transfer
// composed from them. Amounts are integer minor units throughout.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/arvestapp/arvest-backend/internal/metrics"
	"github.com/arvestapp/arvest-backend/internal/models"
	repo "github.com/arvestapp/arvest-backend/internal/repository"
)

// Meta carries the non-monetary attributes of a ledger entry.
type Meta struct {
	Gateway     string
	Purpose     models.TransactionPurpose
	Description string
}

func (m Meta) orDefaults() Meta {
	if m.Gateway == "" {
		m.Gateway = models.GatewayWallet
	}
	if m.Purpose == "" {
		m.Purpose = models.PurposeWallet
	}
	return m
}

type Engine struct {
	store repo.Ledger
	audit repo.AuditLogs
}

func NewEngine(store repo.Ledger, audit repo.AuditLogs) *Engine {
	return &Engine{store: store, audit: audit}
}

// Store exposes the underlying wallet store for read-side callers.
func (e *Engine) Store() repo.Ledger { return e.store }

func txnHash(walletID string, dir models.TransactionDirection, amount int64, reference string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s", walletID, dir, amount, reference)))
	return hex.EncodeToString(sum[:])
}

// Credit adds amount to a wallet. Retries with the same reference return
// the original transaction without mutating the balance again.
func (e *Engine) Credit(ctx context.Context, walletID string, amount int64, reference string, meta Meta) (Result, error) {
	return e.apply(ctx, walletID, amount, reference, models.DirectionCredit, meta)
}

// Debit removes amount from a wallet. The insufficient-funds check runs
// inside the same storage transaction as the balance write.
func (e *Engine) Debit(ctx context.Context, walletID string, amount int64, reference string, meta Meta) (Result, error) {
	return e.apply(ctx, walletID, amount, reference, models.DirectionDebit, meta)
}

func (e *Engine) apply(ctx context.Context, walletID string, amount int64, reference string, dir models.TransactionDirection, meta Meta) (Result, error) {
	if amount <= 0 {
		return failure(ReasonInvalidAmount), nil
	}
	meta = meta.orDefaults()

	var res Result
	err := e.store.InTx(ctx, func(ctx context.Context, tx repo.LedgerTx) error {
		prior, found, err := tx.TransactionByReference(ctx, reference, dir)
		if err != nil {
			return err
		}
		if found {
			res = resolveDuplicate(prior, amount)
			return nil
		}

		w, err := tx.WalletForUpdate(ctx, walletID)
		if err != nil {
			if err == repo.ErrNotFound {
				res = failure(ReasonWalletNotFound)
				return nil
			}
			return err
		}
		if !w.IsActive() {
			res = e.reject(ctx, tx, w, amount, reference, dir, meta, ReasonWalletInactive)
			return nil
		}

		before := w.Balance
		var after int64
		if dir == models.DirectionCredit {
			after = before + amount
		} else {
			if before < amount {
				res = e.reject(ctx, tx, w, amount, reference, dir, meta, ReasonInsufficientFunds)
				return nil
			}
			after = before - amount
		}

		if err := tx.SetWalletBalance(ctx, w.ID, after); err != nil {
			return err
		}
		t, err := tx.InsertTransaction(ctx, models.Transaction{
			WalletID:      w.ID,
			UserID:        w.UserID,
			Reference:     reference,
			Hash:          txnHash(w.ID, dir, amount, reference),
			Amount:        amount,
			Direction:     dir,
			Currency:      w.Currency,
			Gateway:       meta.Gateway,
			Purpose:       meta.Purpose,
			BalanceBefore: before,
			BalanceAfter:  after,
			Status:        models.TxnSuccess,
			Description:   meta.Description,
		})
		if err != nil {
			return err
		}
		res = Result{Success: true, Transaction: t}
		return nil
	})
	if err != nil {
		metrics.LedgerFailures.WithLabelValues("storage").Inc()
		return Result{}, fmt.Errorf("ledger %s: %w", dir, err)
	}

	e.record(ctx, res, dir)
	return res, nil
}

// reject records a FAILED ledger entry for a business rejection so that a
// retry with the same reference is reported as DUPLICATE_REFERENCE rather
// than silently re-attempted. No balance write happens.
func (e *Engine) reject(ctx context.Context, tx repo.LedgerTx, w models.Wallet, amount int64, reference string, dir models.TransactionDirection, meta Meta, reason Reason) Result {
	t, err := tx.InsertTransaction(ctx, models.Transaction{
		WalletID:      w.ID,
		UserID:        w.UserID,
		Reference:     reference,
		Hash:          txnHash(w.ID, dir, amount, reference),
		Amount:        amount,
		Direction:     dir,
		Currency:      w.Currency,
		Gateway:       meta.Gateway,
		Purpose:       meta.Purpose,
		BalanceBefore: w.Balance,
		BalanceAfter:  w.Balance,
		Status:        models.TxnFailed,
		Description:   string(reason),
	})
	out := failure(reason)
	if err == nil {
		out.Transaction = t
	}
	return out
}

func resolveDuplicate(prior models.Transaction, amount int64) Result {
	if prior.Status == models.TxnSuccess && prior.Amount == amount {
		// Exactly-once under retries: hand back the original outcome.
		return Result{Success: true, Transaction: prior}
	}
	out := failure(ReasonDuplicateReference)
	out.Transaction = prior
	return out
}

// Transfer moves amount between two wallets in a single atomic scope. Both
// legs share one reference; if either leg would fail, neither applies.
func (e *Engine) Transfer(ctx context.Context, senderID, recipientID string, amount int64, reference string, meta Meta) (Result, error) {
	if amount <= 0 {
		return failure(ReasonInvalidAmount), nil
	}
	if senderID == recipientID {
		return failure(ReasonSelfTransfer), nil
	}
	meta = meta.orDefaults()

	var res Result
	err := e.store.InTx(ctx, func(ctx context.Context, tx repo.LedgerTx) error {
		prior, found, err := tx.TransactionByReference(ctx, reference, models.DirectionDebit)
		if err != nil {
			return err
		}
		if found {
			res = resolveDuplicate(prior, amount)
			if res.Success {
				if leg, ok, err := tx.TransactionByReference(ctx, reference, models.DirectionCredit); err != nil {
					return err
				} else if ok {
					res.Counterpart = &leg
				}
			}
			return nil
		}

		// Lock both wallets in ascending id order regardless of role so
		// crossing transfers cannot deadlock.
		first, second := senderID, recipientID
		if second < first {
			first, second = second, first
		}
		locked := map[string]models.Wallet{}
		for _, id := range []string{first, second} {
			w, err := tx.WalletForUpdate(ctx, id)
			if err != nil {
				if err == repo.ErrNotFound {
					res = failure(ReasonWalletNotFound)
					return nil
				}
				return err
			}
			locked[id] = w
		}
		sender, recipient := locked[senderID], locked[recipientID]

		if !sender.IsActive() || !recipient.IsActive() {
			res = e.reject(ctx, tx, sender, amount, reference, models.DirectionDebit, meta, ReasonWalletInactive)
			return nil
		}
		if sender.Balance < amount {
			res = e.reject(ctx, tx, sender, amount, reference, models.DirectionDebit, meta, ReasonInsufficientFunds)
			return nil
		}

		if err := tx.SetWalletBalance(ctx, sender.ID, sender.Balance-amount); err != nil {
			return err
		}
		if err := tx.SetWalletBalance(ctx, recipient.ID, recipient.Balance+amount); err != nil {
			return err
		}

		debit, err := tx.InsertTransaction(ctx, models.Transaction{
			WalletID:      sender.ID,
			UserID:        sender.UserID,
			Reference:     reference,
			Hash:          txnHash(sender.ID, models.DirectionDebit, amount, reference),
			Amount:        amount,
			Direction:     models.DirectionDebit,
			Currency:      sender.Currency,
			Gateway:       meta.Gateway,
			Purpose:       meta.Purpose,
			BalanceBefore: sender.Balance,
			BalanceAfter:  sender.Balance - amount,
			Status:        models.TxnSuccess,
			Description:   meta.Description,
		})
		if err != nil {
			return err
		}
		credit, err := tx.InsertTransaction(ctx, models.Transaction{
			WalletID:      recipient.ID,
			UserID:        recipient.UserID,
			Reference:     reference,
			Hash:          txnHash(recipient.ID, models.DirectionCredit, amount, reference),
			Amount:        amount,
			Direction:     models.DirectionCredit,
			Currency:      recipient.Currency,
			Gateway:       meta.Gateway,
			Purpose:       meta.Purpose,
			BalanceBefore: recipient.Balance,
			BalanceAfter:  recipient.Balance + amount,
			Status:        models.TxnSuccess,
			Description:   meta.Description,
		})
		if err != nil {
			return err
		}
		res = Result{Success: true, Transaction: debit, Counterpart: &credit}
		return nil
	})
	if err != nil {
		metrics.LedgerFailures.WithLabelValues("storage").Inc()
		return Result{}, fmt.Errorf("ledger transfer: %w", err)
	}

	e.record(ctx, res, models.DirectionDebit)
	return res, nil
}

func (e *Engine) record(ctx context.Context, res Result, dir models.TransactionDirection) {
	if res.Success {
		metrics.LedgerOps.WithLabelValues(string(dir), string(res.Transaction.Purpose)).Inc()
	} else {
		metrics.LedgerFailures.WithLabelValues(string(res.Reason)).Inc()
	}
	if e.audit == nil || res.Transaction.ID == "" {
		return
	}
	action := "rejected"
	if res.Success {
		action = "committed"
	}
	_ = e.audit.Create(ctx, models.NewAuditLog("transaction", res.Transaction.ID, action, map[string]any{
		"direction": string(dir),
		"reason":    string(res.Reason),
		"amount":    res.Transaction.Amount,
	}))
}
