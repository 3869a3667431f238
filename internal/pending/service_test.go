package pending

import (
	"context"
	"testing"
	"time"

	"github.com/arvestapp/arvest-backend/internal/clock"
	"github.com/arvestapp/arvest-backend/internal/gateway"
	"github.com/arvestapp/arvest-backend/internal/ledger"
	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/repository/memory"
)

type fakeUsers struct{ users map[string]models.User }

func (f *fakeUsers) Create(_ context.Context, u models.User) (models.User, error) { return u, nil }
func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	return f.users[id], nil
}
func (f *fakeUsers) GetByEmail(_ context.Context, _ string) (models.User, error) {
	return models.User{}, nil
}

type fakeProvider struct {
	resolvedName string
}

func (fakeProvider) Name() string { return "PAYSTACK" }
func (fakeProvider) InitializeTransaction(_ context.Context, req gateway.InitRequest) (gateway.InitResponse, error) {
	return gateway.InitResponse{RedirectURL: "https://checkout.test", Reference: req.Reference}, nil
}
func (fakeProvider) RecurringCharge(_ context.Context, req gateway.ChargeRequest) (gateway.ChargeResult, error) {
	return gateway.ChargeResult{Reference: req.Reference, Charged: true}, nil
}
func (f fakeProvider) ResolveAccountName(_ context.Context, _, _ string) (string, error) {
	return f.resolvedName, nil
}
func (fakeProvider) Fee(amount int64) int64 { return amount / 100 }
func (fakeProvider) Limits() (int64, int64) { return 100, 1_000_000_00 }

type fixture struct {
	svc    *Service
	store  *MemoryStore
	ledger *memory.Ledger
	wallet models.Wallet
	clk    *clock.Fixed
}

func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()
	ctx := context.Background()
	lstore := memory.NewLedger()
	w, err := lstore.CreateWallet(ctx, models.Wallet{
		UserID: "u1", Currency: "NGN", Balance: balance,
		Status: models.WalletActive, AccountNumber: "9000000001",
	})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	users := &fakeUsers{users: map[string]models.User{
		"u1": {ID: "u1", FirstName: "Adaeze", LastName: "Obi", KYCCompleted: true, IDVerified: true},
	}}
	store := NewMemoryStore()
	clk := &clock.Fixed{T: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(
		Config{Secret: []byte("test-secret"), TTL: 10 * time.Minute, MinWithdrawal: 1000, MinTransfer: 100},
		store,
		ledger.NewEngine(lstore, nil),
		users,
		gateway.NewRegistry(fakeProvider{resolvedName: "ADAEZE OBI"}),
		nil,
		clk,
	)
	return &fixture{svc: svc, store: store, ledger: lstore, wallet: w, clk: clk}
}

// issuedCode digs the generated one-time code out of the store; it is
// delivered out of band in production.
func (f *fixture) issuedCode(t *testing.T, actionID string) string {
	t.Helper()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for code, p := range f.store.items {
		if p.ID == actionID {
			return code
		}
	}
	t.Fatalf("no stored action %s", actionID)
	return ""
}

func TestWithdrawalCodeSingleUse(t *testing.T) {
	f := newFixture(t, 10000) // 100.00
	ctx := context.Background()

	req, err := f.svc.RequestWithdrawal(ctx, "u1", 5000, "058", "0123456789", "PAYSTACK")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !req.Success {
		t.Fatalf("request rejected: %s", req.Reason)
	}
	if req.FeeMinor != 50 { // fakeProvider charges 1%
		t.Fatalf("quoted fee = %d, want 50", req.FeeMinor)
	}
	code := f.issuedCode(t, req.ActionID)

	// Wrong code: rejected, nothing consumed, balance untouched.
	wrong, err := f.svc.Confirm(ctx, "u1", "000000")
	if err != nil {
		t.Fatalf("confirm wrong code: %v", err)
	}
	if wrong.Success || wrong.Reason != ReasonCodeInvalid {
		t.Fatalf("want CODE_INVALID, got %s", wrong.Reason)
	}

	// Correct code debits amount plus fee and consumes the code.
	ok, err := f.svc.Confirm(ctx, "u1", code)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !ok.Success {
		t.Fatalf("confirm rejected: %s (%s)", ok.Reason, ok.Message)
	}
	w, _ := f.ledger.WalletByID(ctx, f.wallet.ID)
	if w.Balance != 4950 {
		t.Fatalf("balance = %d, want 4950 (5000 + 50 fee debited)", w.Balance)
	}

	// Same code again, still inside the expiry window: already used.
	again, err := f.svc.Confirm(ctx, "u1", code)
	if err != nil {
		t.Fatalf("confirm again: %v", err)
	}
	if again.Success || again.Reason != ReasonCodeAlreadyUsed {
		t.Fatalf("want CODE_ALREADY_USED, got %s", again.Reason)
	}
	w, _ = f.ledger.WalletByID(ctx, f.wallet.ID)
	if w.Balance != 4950 {
		t.Fatalf("second confirm moved money: %d", w.Balance)
	}
}

func TestConfirmAfterExpiryAlwaysFails(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	req, _ := f.svc.RequestWithdrawal(ctx, "u1", 5000, "058", "0123456789", "PAYSTACK")
	code := f.issuedCode(t, req.ActionID)

	f.clk.T = f.clk.T.Add(11 * time.Minute)
	res, err := f.svc.Confirm(ctx, "u1", code)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Success || res.Reason != ReasonCodeExpired {
		t.Fatalf("want CODE_EXPIRED, got %s", res.Reason)
	}
}

func TestFailedEngineCallDoesNotBurnCode(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	req, _ := f.svc.RequestWithdrawal(ctx, "u1", 5000, "058", "0123456789", "PAYSTACK")
	code := f.issuedCode(t, req.ActionID)

	// Balance drops between issuance and confirmation.
	drain, err := ledger.NewEngine(f.ledger, nil).Debit(ctx, f.wallet.ID, 9000, "drain", ledger.Meta{})
	if err != nil || !drain.Success {
		t.Fatalf("drain: err=%v reason=%s", err, drain.Reason)
	}

	res, err := f.svc.Confirm(ctx, "u1", code)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Success || res.Reason != ReasonInsufficientFunds {
		t.Fatalf("want INSUFFICIENT_FUNDS, got %s", res.Reason)
	}

	// Top the wallet back up; the same code must still work once.
	top, err := ledger.NewEngine(f.ledger, nil).Credit(ctx, f.wallet.ID, 9000, "topup", ledger.Meta{})
	if err != nil || !top.Success {
		t.Fatalf("topup: err=%v reason=%s", err, top.Reason)
	}
	ok, err := f.svc.Confirm(ctx, "u1", code)
	if err != nil {
		t.Fatalf("confirm retry: %v", err)
	}
	if !ok.Success {
		t.Fatalf("retry rejected: %s (%s)", ok.Reason, ok.Message)
	}
	w, _ := f.ledger.WalletByID(ctx, f.wallet.ID)
	if w.Balance != 4950 {
		t.Fatalf("balance = %d, want 4950", w.Balance)
	}
}

func TestWithdrawalBalanceMustCoverAmountPlusFee(t *testing.T) {
	// 5040 covers the amount but not the 50 fee on top.
	f := newFixture(t, 5040)
	res, err := f.svc.RequestWithdrawal(context.Background(), "u1", 5000, "058", "0123456789", "PAYSTACK")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Success || res.Reason != ReasonInsufficientFunds {
		t.Fatalf("want INSUFFICIENT_FUNDS, got %s", res.Reason)
	}
}

func TestRequestRejectsBadPreconditions(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	// Below minimum.
	res, err := f.svc.RequestWithdrawal(ctx, "u1", 500, "058", "0123456789", "PAYSTACK")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Success || res.Reason != ReasonBelowMinimum {
		t.Fatalf("want BELOW_MINIMUM, got %s", res.Reason)
	}

	// More than the live balance.
	res, err = f.svc.RequestWithdrawal(ctx, "u1", 20000, "058", "0123456789", "PAYSTACK")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Success || res.Reason != ReasonInsufficientFunds {
		t.Fatalf("want INSUFFICIENT_FUNDS, got %s", res.Reason)
	}
}

func TestRequestRejectsAccountNameMismatch(t *testing.T) {
	f := newFixture(t, 10000)
	// Re-point the registry at a provider resolving someone else's name.
	f.svc.gateways = gateway.NewRegistry(fakeProvider{resolvedName: "CHUKWU EMEKA"})

	res, err := f.svc.RequestWithdrawal(context.Background(), "u1", 5000, "058", "0123456789", "PAYSTACK")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Success || res.Reason != ReasonAccountNameMismatch {
		t.Fatalf("want ACCOUNT_NAME_MISMATCH, got %s", res.Reason)
	}
}

func TestTransferConfirmExecutesBothLegs(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()
	recipient, err := f.ledger.CreateWallet(ctx, models.Wallet{
		UserID: "u2", Currency: "NGN", Balance: 0,
		Status: models.WalletActive, AccountNumber: "9000000002",
	})
	if err != nil {
		t.Fatalf("create recipient: %v", err)
	}

	req, err := f.svc.RequestTransfer(ctx, "u1", 2500, "9000000002", "lunch")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !req.Success {
		t.Fatalf("request rejected: %s", req.Reason)
	}
	code := f.issuedCode(t, req.ActionID)

	res, err := f.svc.Confirm(ctx, "u1", code)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !res.Success {
		t.Fatalf("confirm rejected: %s", res.Reason)
	}
	sender, _ := f.ledger.WalletByID(ctx, f.wallet.ID)
	recv, _ := f.ledger.WalletByID(ctx, recipient.ID)
	if sender.Balance != 7500 || recv.Balance != 2500 {
		t.Fatalf("balances %d/%d, want 7500/2500", sender.Balance, recv.Balance)
	}
}

func TestRequestTransferRejectsUnknownRecipient(t *testing.T) {
	f := newFixture(t, 10000)
	res, err := f.svc.RequestTransfer(context.Background(), "u1", 2500, "no-such-account", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.Success || res.Reason != ReasonRecipientNotFound {
		t.Fatalf("want RECIPIENT_NOT_FOUND, got %s", res.Reason)
	}
}

func TestTamperedIntentFailsVerification(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	req, _ := f.svc.RequestWithdrawal(ctx, "u1", 5000, "058", "0123456789", "PAYSTACK")
	code := f.issuedCode(t, req.ActionID)

	// Inflate the stored amount behind the service's back.
	f.store.mu.Lock()
	p := f.store.items[code]
	p.Withdrawal.Amount = 9999
	f.store.items[code] = p
	f.store.mu.Unlock()

	res, err := f.svc.Confirm(ctx, "u1", code)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Success || res.Reason != ReasonCodeInvalid {
		t.Fatalf("want CODE_INVALID for tampered intent, got %s", res.Reason)
	}
}
