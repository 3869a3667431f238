package postgres

import (
	"context"
	"errors"

	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedger(pool *pgxpool.Pool) repository.Ledger { return &ledgerRepo{pool: pool} }

const walletCols = `id, user_id, currency, balance, status, account_number, beneficiaries, created_at, updated_at`

func scanWallet(row pgx.Row) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Currency, &w.Balance, &w.Status,
		&w.AccountNumber, &w.Beneficiaries, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, repository.ErrNotFound
	}
	return w, err
}

const txnCols = `id, wallet_id, user_id, reference, transaction_hash, amount, direction,
currency, gateway, purpose, balance_before, balance_after, status, description, created_at`

func scanTxn(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.WalletID, &t.UserID, &t.Reference, &t.Hash, &t.Amount,
		&t.Direction, &t.Currency, &t.Gateway, &t.Purpose,
		&t.BalanceBefore, &t.BalanceAfter, &t.Status, &t.Description, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, repository.ErrNotFound
	}
	return t, err
}

func (r *ledgerRepo) CreateWallet(ctx context.Context, w models.Wallet) (models.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = models.WalletActive
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO wallets (id, user_id, currency, balance, status, account_number, beneficiaries)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING `+walletCols,
		w.ID, w.UserID, w.Currency, w.Balance, w.Status, w.AccountNumber, w.Beneficiaries)
	out, err := scanWallet(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return models.Wallet{}, repository.ErrConflict
	}
	return out, err
}

func (r *ledgerRepo) WalletByID(ctx context.Context, id string) (models.Wallet, error) {
	return scanWallet(r.pool.QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE id=$1`, id))
}

func (r *ledgerRepo) WalletByUser(ctx context.Context, userID, currency string) (models.Wallet, error) {
	return scanWallet(r.pool.QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE user_id=$1 AND currency=$2`, userID, currency))
}

func (r *ledgerRepo) WalletByAccountNumber(ctx context.Context, accountNumber string) (models.Wallet, error) {
	return scanWallet(r.pool.QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE account_number=$1`, accountNumber))
}

func (r *ledgerRepo) SetWalletStatus(ctx context.Context, id string, status models.WalletStatus) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE wallets SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err == nil && ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return err
}

func (r *ledgerRepo) AddBeneficiary(ctx context.Context, walletID, beneficiaryID string) error {
	ct, err := r.pool.Exec(ctx, `
UPDATE wallets
   SET beneficiaries = array_append(beneficiaries, $2),
       updated_at = now()
 WHERE id = $1 AND NOT ($2 = ANY(beneficiaries))`,
		walletID, beneficiaryID)
	if err == nil && ct.RowsAffected() == 0 {
		// already present or wallet missing; distinguish for the caller
		if _, werr := r.WalletByID(ctx, walletID); werr != nil {
			return werr
		}
	}
	return err
}

func (r *ledgerRepo) RemoveBeneficiary(ctx context.Context, walletID, beneficiaryID string) error {
	ct, err := r.pool.Exec(ctx, `
UPDATE wallets
   SET beneficiaries = array_remove(beneficiaries, $2),
       updated_at = now()
 WHERE id = $1`,
		walletID, beneficiaryID)
	if err == nil && ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return err
}

func (r *ledgerRepo) TransactionByID(ctx context.Context, id string) (models.Transaction, error) {
	return scanTxn(r.pool.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE id=$1`, id))
}

func (r *ledgerRepo) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnCols+`
		   FROM transactions
		  WHERE user_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InTx runs fn inside one serializable pgx transaction spanning wallet
// writes and ledger inserts.
func (r *ledgerRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type ledgerTx struct{ tx pgx.Tx }

func (l *ledgerTx) WalletForUpdate(ctx context.Context, walletID string) (models.Wallet, error) {
	return scanWallet(l.tx.QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE id=$1 FOR UPDATE`, walletID))
}

func (l *ledgerTx) SetWalletBalance(ctx context.Context, walletID string, balance int64) error {
	ct, err := l.tx.Exec(ctx,
		`UPDATE wallets SET balance=$2, updated_at=now() WHERE id=$1`, walletID, balance)
	if err == nil && ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return err
}

func (l *ledgerTx) InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := l.tx.QueryRow(ctx, `
INSERT INTO transactions (
  id, wallet_id, user_id, reference, transaction_hash, amount, direction,
  currency, gateway, purpose, balance_before, balance_after, status, description
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING `+txnCols,
		t.ID, t.WalletID, t.UserID, t.Reference, t.Hash, t.Amount, t.Direction,
		t.Currency, t.Gateway, t.Purpose, t.BalanceBefore, t.BalanceAfter, t.Status, t.Description)
	out, err := scanTxn(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return models.Transaction{}, repository.ErrConflict
	}
	return out, err
}

func (l *ledgerTx) TransactionByReference(ctx context.Context, reference string, dir models.TransactionDirection) (models.Transaction, bool, error) {
	t, err := scanTxn(l.tx.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE reference=$1 AND direction=$2`,
		reference, dir))
	if errors.Is(err, repository.ErrNotFound) {
		return models.Transaction{}, false, nil
	}
	if err != nil {
		return models.Transaction{}, false, err
	}
	return t, true, nil
}
