package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/repository/memory"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Ledger) {
	t.Helper()
	store := memory.NewLedger()
	return NewEngine(store, nil), store
}

func mkWallet(t *testing.T, store *memory.Ledger, userID string, balance int64, status models.WalletStatus) models.Wallet {
	t.Helper()
	w, err := store.CreateWallet(context.Background(), models.Wallet{
		UserID:        userID,
		Currency:      "NGN",
		Balance:       balance,
		Status:        status,
		AccountNumber: fmt.Sprintf("90%08d", rand.Intn(100000000)),
	})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func TestDebitWritesMatchingLedgerEntry(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	w := mkWallet(t, store, "u1", 10000, models.WalletActive) // 100.00

	res, err := eng.Debit(ctx, w.ID, 4000, "r1", Meta{})
	if err != nil {
		t.Fatalf("debit err: %v", err)
	}
	if !res.Success {
		t.Fatalf("debit rejected: %s", res.Reason)
	}
	if res.Transaction.BalanceBefore != 10000 || res.Transaction.BalanceAfter != 6000 {
		t.Fatalf("ledger entry %d -> %d, want 10000 -> 6000",
			res.Transaction.BalanceBefore, res.Transaction.BalanceAfter)
	}
	if res.Transaction.Direction != models.DirectionDebit {
		t.Fatalf("direction = %s", res.Transaction.Direction)
	}
	got, err := store.WalletByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("read wallet: %v", err)
	}
	if got.Balance != 6000 {
		t.Fatalf("wallet balance = %d, want 6000", got.Balance)
	}
}

func TestDebitIdempotentOnSameReference(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	w := mkWallet(t, store, "u1", 10000, models.WalletActive)

	first, err := eng.Debit(ctx, w.ID, 4000, "r1", Meta{})
	if err != nil || !first.Success {
		t.Fatalf("first debit: err=%v reason=%s", err, first.Reason)
	}
	second, err := eng.Debit(ctx, w.ID, 4000, "r1", Meta{})
	if err != nil {
		t.Fatalf("second debit err: %v", err)
	}
	if !second.Success {
		t.Fatalf("retry rejected: %s", second.Reason)
	}
	if second.Transaction.ID != first.Transaction.ID {
		t.Fatalf("retry produced a new ledger entry: %s vs %s",
			second.Transaction.ID, first.Transaction.ID)
	}
	got, _ := store.WalletByID(ctx, w.ID)
	if got.Balance != 6000 {
		t.Fatalf("balance mutated twice: %d", got.Balance)
	}
	txns, _ := store.ListTransactions(ctx, "u1", 0, 0)
	if len(txns) != 1 {
		t.Fatalf("want exactly one ledger row, got %d", len(txns))
	}
}

func TestDuplicateReferenceAfterFailureIsSurfaced(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	w := mkWallet(t, store, "u1", 100, models.WalletActive)

	first, err := eng.Debit(ctx, w.ID, 4000, "r1", Meta{})
	if err != nil {
		t.Fatalf("debit err: %v", err)
	}
	if first.Success || first.Reason != ReasonInsufficientFunds {
		t.Fatalf("want INSUFFICIENT_FUNDS, got success=%v reason=%s", first.Success, first.Reason)
	}
	retry, err := eng.Debit(ctx, w.ID, 4000, "r1", Meta{})
	if err != nil {
		t.Fatalf("retry err: %v", err)
	}
	if retry.Success || retry.Reason != ReasonDuplicateReference {
		t.Fatalf("want DUPLICATE_REFERENCE, got success=%v reason=%s", retry.Success, retry.Reason)
	}
}

func TestCreditRejectsInactiveWalletAndBadAmount(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	w := mkWallet(t, store, "u1", 0, models.WalletInactive)

	res, err := eng.Credit(ctx, w.ID, 1000, "r1", Meta{})
	if err != nil {
		t.Fatalf("credit err: %v", err)
	}
	if res.Success || res.Reason != ReasonWalletInactive {
		t.Fatalf("want WALLET_INACTIVE, got %s", res.Reason)
	}

	res, err = eng.Credit(ctx, w.ID, 0, "r2", Meta{})
	if err != nil {
		t.Fatalf("credit err: %v", err)
	}
	if res.Success || res.Reason != ReasonInvalidAmount {
		t.Fatalf("want INVALID_AMOUNT, got %s", res.Reason)
	}

	res, err = eng.Credit(ctx, "no-such-wallet", 1000, "r3", Meta{})
	if err != nil {
		t.Fatalf("credit err: %v", err)
	}
	if res.Success || res.Reason != ReasonWalletNotFound {
		t.Fatalf("want WALLET_NOT_FOUND, got %s", res.Reason)
	}
}

func TestTransferMovesBothLegsAtomically(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	a := mkWallet(t, store, "ua", 10000, models.WalletActive)
	b := mkWallet(t, store, "ub", 500, models.WalletActive)

	res, err := eng.Transfer(ctx, a.ID, b.ID, 2500, "r2", Meta{})
	if err != nil {
		t.Fatalf("transfer err: %v", err)
	}
	if !res.Success {
		t.Fatalf("transfer rejected: %s", res.Reason)
	}
	if res.Counterpart == nil {
		t.Fatal("missing credit leg")
	}
	if res.Transaction.Reference != res.Counterpart.Reference {
		t.Fatalf("legs do not share a reference: %s vs %s",
			res.Transaction.Reference, res.Counterpart.Reference)
	}
	ga, _ := store.WalletByID(ctx, a.ID)
	gb, _ := store.WalletByID(ctx, b.ID)
	if ga.Balance != 7500 || gb.Balance != 3000 {
		t.Fatalf("balances %d/%d, want 7500/3000", ga.Balance, gb.Balance)
	}
}

func TestTransferToInactiveWalletLeavesSenderUntouched(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	a := mkWallet(t, store, "ua", 10000, models.WalletActive)
	b := mkWallet(t, store, "ub", 0, models.WalletInactive)

	res, err := eng.Transfer(ctx, a.ID, b.ID, 2500, "r2", Meta{})
	if err != nil {
		t.Fatalf("transfer err: %v", err)
	}
	if res.Success || res.Reason != ReasonWalletInactive {
		t.Fatalf("want WALLET_INACTIVE, got success=%v reason=%s", res.Success, res.Reason)
	}
	ga, _ := store.WalletByID(ctx, a.ID)
	gb, _ := store.WalletByID(ctx, b.ID)
	if ga.Balance != 10000 || gb.Balance != 0 {
		t.Fatalf("partial transfer persisted: %d/%d", ga.Balance, gb.Balance)
	}
}

func TestTransferRejectsSelf(t *testing.T) {
	eng, store := newTestEngine(t)
	a := mkWallet(t, store, "ua", 10000, models.WalletActive)
	res, err := eng.Transfer(context.Background(), a.ID, a.ID, 100, "r1", Meta{})
	if err != nil {
		t.Fatalf("transfer err: %v", err)
	}
	if res.Success || res.Reason != ReasonSelfTransfer {
		t.Fatalf("want SELF_TRANSFER, got %s", res.Reason)
	}
}

func TestTransferRetryReturnsBothOriginalLegs(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	a := mkWallet(t, store, "ua", 10000, models.WalletActive)
	b := mkWallet(t, store, "ub", 0, models.WalletActive)

	first, err := eng.Transfer(ctx, a.ID, b.ID, 2500, "r9", Meta{})
	if err != nil || !first.Success {
		t.Fatalf("first transfer: err=%v reason=%s", err, first.Reason)
	}
	second, err := eng.Transfer(ctx, a.ID, b.ID, 2500, "r9", Meta{})
	if err != nil || !second.Success {
		t.Fatalf("retry: err=%v reason=%s", err, second.Reason)
	}
	if second.Transaction.ID != first.Transaction.ID {
		t.Fatal("retry produced a new debit leg")
	}
	if second.Counterpart == nil || second.Counterpart.ID != first.Counterpart.ID {
		t.Fatal("retry did not return the original credit leg")
	}
	ga, _ := store.WalletByID(ctx, a.ID)
	if ga.Balance != 7500 {
		t.Fatalf("sender debited twice: %d", ga.Balance)
	}
}

func TestBalanceInvariantUnderConcurrentMutation(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()
	w := mkWallet(t, store, "u1", 0, models.WalletActive)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = eng.Credit(ctx, w.ID, 100, fmt.Sprintf("c-%d", i), Meta{})
		}(i)
	}
	wg.Wait()
	for i := 0; i < n/2; i++ {
		res, err := eng.Debit(ctx, w.ID, 100, fmt.Sprintf("d-%d", i), Meta{})
		if err != nil || !res.Success {
			t.Fatalf("debit %d: err=%v reason=%s", i, err, res.Reason)
		}
	}

	got, _ := store.WalletByID(ctx, w.ID)
	want := int64(n*100 - (n/2)*100)
	if got.Balance != want {
		t.Fatalf("balance = %d, want %d", got.Balance, want)
	}
	if got.Balance < 0 {
		t.Fatal("balance went negative")
	}
}
