// Package pending implements the two-phase OTP gate in front of
// withdrawals and transfers. Request validates the intent and issues a
// single-use numeric code bound to a server-side signed intent; Confirm
// re-validates against current wallet state and hands off to the ledger
// engine. Only a successful hand-off consumes the code.
package pending

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/arvestapp/arvest-backend/internal/clock"
	"github.com/arvestapp/arvest-backend/internal/gateway"
	"github.com/arvestapp/arvest-backend/internal/ledger"
	"github.com/arvestapp/arvest-backend/internal/metrics"
	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/notify"
	repo "github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/google/uuid"
)

type Reason string

const (
	ReasonNone                Reason = ""
	ReasonCodeInvalid         Reason = "CODE_INVALID"
	ReasonCodeExpired         Reason = "CODE_EXPIRED"
	ReasonCodeAlreadyUsed     Reason = "CODE_ALREADY_USED"
	ReasonKYCIncomplete       Reason = "KYC_INCOMPLETE"
	ReasonBelowMinimum        Reason = "BELOW_MINIMUM"
	ReasonInsufficientFunds   Reason = "INSUFFICIENT_FUNDS"
	ReasonWalletInactive      Reason = "WALLET_INACTIVE"
	ReasonAccountNameMismatch Reason = "ACCOUNT_NAME_MISMATCH"
	ReasonRecipientNotFound   Reason = "RECIPIENT_NOT_FOUND"
)

var reasonMessages = map[Reason]string{
	ReasonCodeInvalid:         "invalid code",
	ReasonCodeExpired:         "code has expired, request a new one",
	ReasonCodeAlreadyUsed:     "code already used",
	ReasonKYCIncomplete:       "complete identity verification first",
	ReasonBelowMinimum:        "amount is below the minimum",
	ReasonInsufficientFunds:   "insufficient funds",
	ReasonWalletInactive:      "wallet is inactive",
	ReasonAccountNameMismatch: "bank account name does not match your profile",
	ReasonRecipientNotFound:   "recipient account not found",
}

// RequestResult reports an issuance attempt. The one-time code itself is
// delivered out of band, never in the response.
type RequestResult struct {
	Success   bool      `json:"success"`
	Reason    Reason    `json:"reason,omitempty"`
	Message   string    `json:"message,omitempty"`
	ActionID  string    `json:"action_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	// FeeMinor is the payout fee that will be debited on top of the
	// amount; set for withdrawals only.
	FeeMinor int64 `json:"fee,omitempty"`
}

// ConfirmResult reports a confirmation attempt; on success it carries the
// executed ledger result.
type ConfirmResult struct {
	Success bool           `json:"success"`
	Reason  Reason         `json:"reason,omitempty"`
	Message string         `json:"message,omitempty"`
	Ledger  *ledger.Result `json:"ledger,omitempty"`
}

func requestFailure(r Reason) RequestResult {
	return RequestResult{Reason: r, Message: reasonMessages[r]}
}

func confirmFailure(r Reason) ConfirmResult {
	return ConfirmResult{Reason: r, Message: reasonMessages[r]}
}

type Config struct {
	Secret        []byte
	TTL           time.Duration
	MinWithdrawal int64
	MinTransfer   int64
	Currency      string
}

type Service struct {
	cfg      Config
	store    Store
	engine   *ledger.Engine
	users    repo.Users
	gateways *gateway.Registry
	notifier *notify.Notifier
	clk      clock.Clock
}

func NewService(cfg Config, store Store, engine *ledger.Engine, users repo.Users, gateways *gateway.Registry, notifier *notify.Notifier, clk clock.Clock) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{cfg: cfg, store: store, engine: engine, users: users,
		gateways: gateways, notifier: notifier, clk: clk}
}

// RequestWithdrawal validates a bank withdrawal end to end before issuing a
// code: KYC, minimum, live balance, and destination ownership via the
// gateway's account-name resolution. A token is never issued for an intent
// that cannot succeed at issuance time.
func (s *Service) RequestWithdrawal(ctx context.Context, userID string, amount int64, bankCode, accountNo, gatewayName string) (RequestResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return RequestResult{}, fmt.Errorf("load user: %w", err)
	}
	if !u.KYCCompleted || !u.IDVerified {
		return requestFailure(ReasonKYCIncomplete), nil
	}
	if amount < s.cfg.MinWithdrawal {
		return requestFailure(ReasonBelowMinimum), nil
	}

	w, err := s.engine.Store().WalletByUser(ctx, userID, s.cfg.Currency)
	if err != nil {
		return RequestResult{}, fmt.Errorf("load wallet: %w", err)
	}
	if !w.IsActive() {
		return requestFailure(ReasonWalletInactive), nil
	}

	gw, err := s.gateways.Get(gatewayName)
	if err != nil {
		return RequestResult{}, err
	}
	// The payout fee is collected on top of the amount, so the balance
	// must cover both.
	fee := gw.Fee(amount)
	if w.Balance < amount+fee {
		return requestFailure(ReasonInsufficientFunds), nil
	}
	accountName, err := gw.ResolveAccountName(ctx, accountNo, bankCode)
	if err != nil {
		return RequestResult{}, fmt.Errorf("resolve account: %w", err)
	}
	if !gateway.NameMatches(accountName, u.FullName()) {
		return requestFailure(ReasonAccountNameMismatch), nil
	}

	p := models.PendingAction{
		UserID: userID,
		Kind:   models.ActionWithdrawal,
		Withdrawal: &models.WithdrawalIntent{
			Amount:      amount,
			BankCode:    bankCode,
			AccountNo:   accountNo,
			AccountName: accountName,
			FeeMinor:    fee,
		},
	}
	res, err := s.issue(ctx, &p)
	if err != nil {
		return RequestResult{}, err
	}
	res.FeeMinor = fee
	s.notifier.Emit(notify.Event{
		Type:   notify.EventWithdrawalRequested,
		UserID: userID,
		Data:   map[string]any{"amount": amount, "fee": fee, "bank_code": bankCode},
	})
	return res, nil
}

// RequestTransfer validates a wallet-to-wallet transfer and issues a code.
func (s *Service) RequestTransfer(ctx context.Context, userID string, amount int64, recipientAccount, note string) (RequestResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return RequestResult{}, fmt.Errorf("load user: %w", err)
	}
	if !u.KYCCompleted {
		return requestFailure(ReasonKYCIncomplete), nil
	}
	if amount < s.cfg.MinTransfer || amount <= 0 {
		return requestFailure(ReasonBelowMinimum), nil
	}

	w, err := s.engine.Store().WalletByUser(ctx, userID, s.cfg.Currency)
	if err != nil {
		return RequestResult{}, fmt.Errorf("load wallet: %w", err)
	}
	if !w.IsActive() {
		return requestFailure(ReasonWalletInactive), nil
	}
	if w.Balance < amount {
		return requestFailure(ReasonInsufficientFunds), nil
	}

	if _, err := s.engine.Store().WalletByAccountNumber(ctx, recipientAccount); err != nil {
		if err == repo.ErrNotFound {
			return requestFailure(ReasonRecipientNotFound), nil
		}
		return RequestResult{}, err
	}

	p := models.PendingAction{
		UserID: userID,
		Kind:   models.ActionTransfer,
		Transfer: &models.TransferIntent{
			Amount:           amount,
			RecipientAccount: recipientAccount,
			Note:             note,
		},
	}
	return s.issue(ctx, &p)
}

func (s *Service) issue(ctx context.Context, p *models.PendingAction) (RequestResult, error) {
	now := s.clk.Now()
	p.ID = uuid.NewString()
	p.IssuedAt = now
	p.ExpiresAt = now.Add(s.cfg.TTL)

	code, err := generateCode()
	if err != nil {
		return RequestResult{}, err
	}
	p.Code = code
	p.Signature = s.sign(p)

	if err := s.store.Put(ctx, *p, s.cfg.TTL); err != nil {
		return RequestResult{}, fmt.Errorf("store pending action: %w", err)
	}
	metrics.PendingIssued.Inc()
	s.notifier.SendCode(p.UserID, code)
	return RequestResult{Success: true, ActionID: p.ID, ExpiresAt: p.ExpiresAt}, nil
}

// Confirm verifies a one-time code and, if everything still holds, executes
// the stored intent through the ledger engine. A wrong code does not
// consume anything; a failed engine call does not consume the code; only a
// successful hand-off does.
func (s *Service) Confirm(ctx context.Context, userID, code string) (ConfirmResult, error) {
	p, err := s.store.Get(ctx, code)
	if err != nil {
		if err == ErrCodeNotFound {
			return confirmFailure(ReasonCodeInvalid), nil
		}
		return ConfirmResult{}, err
	}
	if p.UserID != userID {
		return confirmFailure(ReasonCodeInvalid), nil
	}
	if p.Expired(s.clk.Now()) {
		return confirmFailure(ReasonCodeExpired), nil
	}
	if p.Consumed {
		return confirmFailure(ReasonCodeAlreadyUsed), nil
	}
	if !hmac.Equal([]byte(p.Signature), []byte(s.sign(&p))) {
		return confirmFailure(ReasonCodeInvalid), nil
	}

	var res ledger.Result
	switch p.Kind {
	case models.ActionWithdrawal:
		res, err = s.executeWithdrawal(ctx, &p)
	case models.ActionTransfer:
		res, err = s.executeTransfer(ctx, &p)
	default:
		return confirmFailure(ReasonCodeInvalid), nil
	}
	if err != nil {
		return ConfirmResult{}, err
	}
	if !res.Success {
		// Engine said no; the code stays usable for a legitimate retry.
		// Advance the attempt counter so the retry runs under a fresh
		// engine reference instead of colliding with the FAILED row the
		// rejection just recorded.
		p.Attempt++
		if uerr := s.store.Update(ctx, p); uerr != nil {
			return ConfirmResult{}, fmt.Errorf("advance attempt: %w", uerr)
		}
		return ConfirmResult{Reason: mapLedgerReason(res.Reason), Message: res.Message, Ledger: &res}, nil
	}

	if err := s.store.MarkConsumed(ctx, code); err != nil {
		return ConfirmResult{}, fmt.Errorf("consume code: %w", err)
	}
	metrics.PendingConsumed.Inc()
	return ConfirmResult{Success: true, Ledger: &res}, nil
}

// engineReference builds the idempotency reference for one execution
// attempt. Retries after a crash reuse the same attempt number and resolve
// to the original entry; retries after a rejection run under the next one.
func engineReference(p *models.PendingAction) string {
	return fmt.Sprintf("pa-%s-%d", p.ID, p.Attempt)
}

func (s *Service) executeWithdrawal(ctx context.Context, p *models.PendingAction) (ledger.Result, error) {
	w, err := s.engine.Store().WalletByUser(ctx, p.UserID, s.cfg.Currency)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("load wallet: %w", err)
	}
	total := p.Withdrawal.Amount + p.Withdrawal.FeeMinor
	res, err := s.engine.Debit(ctx, w.ID, total, engineReference(p), ledger.Meta{
		Gateway:     models.GatewayWallet,
		Purpose:     models.PurposeWithdrawal,
		Description: fmt.Sprintf("withdrawal to %s (%s), fee %d", p.Withdrawal.AccountNo, p.Withdrawal.BankCode, p.Withdrawal.FeeMinor),
	})
	if err == nil && res.Success {
		s.notifier.Emit(notify.Event{
			Type:   notify.EventWithdrawalExecuted,
			UserID: p.UserID,
			Data:   map[string]any{"amount": p.Withdrawal.Amount, "fee": p.Withdrawal.FeeMinor, "reference": res.Transaction.Reference},
		})
	}
	return res, err
}

func (s *Service) executeTransfer(ctx context.Context, p *models.PendingAction) (ledger.Result, error) {
	sender, err := s.engine.Store().WalletByUser(ctx, p.UserID, s.cfg.Currency)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("load sender wallet: %w", err)
	}
	recipient, err := s.engine.Store().WalletByAccountNumber(ctx, p.Transfer.RecipientAccount)
	if err != nil {
		if err == repo.ErrNotFound {
			return ledger.Result{Reason: ledger.ReasonWalletNotFound, Message: "wallet not found"}, nil
		}
		return ledger.Result{}, err
	}
	res, err := s.engine.Transfer(ctx, sender.ID, recipient.ID, p.Transfer.Amount, engineReference(p), ledger.Meta{
		Gateway:     models.GatewayWallet,
		Purpose:     models.PurposeWallet,
		Description: p.Transfer.Note,
	})
	if err == nil && res.Success {
		s.notifier.Emit(notify.Event{
			Type:   notify.EventTransferExecuted,
			UserID: p.UserID,
			Data:   map[string]any{"amount": p.Transfer.Amount, "recipient": p.Transfer.RecipientAccount},
		})
	}
	return res, err
}

func mapLedgerReason(r ledger.Reason) Reason {
	switch r {
	case ledger.ReasonInsufficientFunds:
		return ReasonInsufficientFunds
	case ledger.ReasonWalletInactive:
		return ReasonWalletInactive
	case ledger.ReasonWalletNotFound:
		return ReasonRecipientNotFound
	default:
		return Reason(r)
	}
}

// sign binds the intent fields, owner and expiry so a tampered store entry
// fails verification.
func (s *Service) sign(p *models.PendingAction) string {
	mac := hmac.New(sha256.New, s.cfg.Secret)
	fmt.Fprintf(mac, "%s|%s|%s|%d", p.ID, p.UserID, p.Kind, p.ExpiresAt.Unix())
	switch p.Kind {
	case models.ActionWithdrawal:
		if p.Withdrawal != nil {
			fmt.Fprintf(mac, "|%d|%d|%s|%s", p.Withdrawal.Amount, p.Withdrawal.FeeMinor, p.Withdrawal.BankCode, p.Withdrawal.AccountNo)
		}
	case models.ActionTransfer:
		if p.Transfer != nil {
			fmt.Fprintf(mac, "|%d|%s", p.Transfer.Amount, p.Transfer.RecipientAccount)
		}
	}
	return hex.EncodeToString(mac.Sum(nil))
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
