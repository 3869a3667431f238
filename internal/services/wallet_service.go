package services

import (
	"context"
	"fmt"

	"github.com/arvestapp/arvest-backend/internal/config"
	"github.com/arvestapp/arvest-backend/internal/gateway"
	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/notify"
	repo "github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/google/uuid"
)

type WalletService struct {
	store    repo.Ledger
	users    repo.Users
	gateways *gateway.Registry
	notifier *notify.Notifier
	cfg      config.Config
}

func NewWalletService(store repo.Ledger, users repo.Users, gateways *gateway.Registry, notifier *notify.Notifier, cfg config.Config) *WalletService {
	return &WalletService{store: store, users: users, gateways: gateways, notifier: notifier, cfg: cfg}
}

func (s *WalletService) Current(ctx context.Context, userID string) (models.Wallet, error) {
	return s.store.WalletByUser(ctx, userID, s.cfg.Currency)
}

func (s *WalletService) History(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListTransactions(ctx, userID, limit, offset)
}

// AddBeneficiary saves another wallet's account number against the user's
// wallet. Informational only; it grants no mutation rights.
func (s *WalletService) AddBeneficiary(ctx context.Context, userID, accountNumber string) error {
	w, err := s.store.WalletByUser(ctx, userID, s.cfg.Currency)
	if err != nil {
		return err
	}
	b, err := s.store.WalletByAccountNumber(ctx, accountNumber)
	if err != nil {
		return err
	}
	if b.ID == w.ID {
		return fmt.Errorf("cannot add own wallet as beneficiary")
	}
	return s.store.AddBeneficiary(ctx, w.ID, b.ID)
}

func (s *WalletService) RemoveBeneficiary(ctx context.Context, userID, accountNumber string) error {
	w, err := s.store.WalletByUser(ctx, userID, s.cfg.Currency)
	if err != nil {
		return err
	}
	b, err := s.store.WalletByAccountNumber(ctx, accountNumber)
	if err != nil {
		return err
	}
	return s.store.RemoveBeneficiary(ctx, w.ID, b.ID)
}

// FundingQuote is what the client needs to complete a card/bank funding:
// the provider's redirect handle plus the fee that will be collected on
// top of the amount.
type FundingQuote struct {
	RedirectURL string `json:"redirect_url"`
	Reference   string `json:"reference"`
	AmountMinor int64  `json:"amount"`
	FeeMinor    int64  `json:"fee"`
}

// InitiateFunding obtains a provider checkout handle. No ledger mutation
// happens here; the wallet is credited only when the provider confirms
// settlement.
func (s *WalletService) InitiateFunding(ctx context.Context, userID string, amount int64, gatewayName string) (FundingQuote, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return FundingQuote{}, err
	}
	w, err := s.store.WalletByUser(ctx, userID, s.cfg.Currency)
	if err != nil {
		return FundingQuote{}, err
	}
	if !w.IsActive() {
		return FundingQuote{}, fmt.Errorf("wallet is inactive")
	}

	gw, err := s.gateways.Get(gatewayName)
	if err != nil {
		return FundingQuote{}, err
	}
	if min, max := gw.Limits(); amount < min || amount > max {
		return FundingQuote{}, gateway.ErrAmountOutOfRange
	}

	fee := gw.Fee(amount)
	reference := "fund-" + uuid.NewString()
	resp, err := gw.InitializeTransaction(ctx, gateway.InitRequest{
		AmountMinor: amount + fee,
		Currency:    s.cfg.Currency,
		Email:       u.Email,
		Reference:   reference,
		Metadata:    map[string]string{"wallet_id": w.ID, "user_id": userID},
	})
	if err != nil {
		return FundingQuote{}, fmt.Errorf("initialize funding: %w", err)
	}

	s.notifier.Emit(notify.Event{
		Type:   notify.EventFundingInitiated,
		UserID: userID,
		Data:   map[string]any{"amount": amount, "fee": fee, "reference": resp.Reference, "gateway": gw.Name()},
	})
	return FundingQuote{
		RedirectURL: resp.RedirectURL,
		Reference:   resp.Reference,
		AmountMinor: amount,
		FeeMinor:    fee,
	}, nil
}
