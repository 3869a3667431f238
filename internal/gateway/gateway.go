// Package gateway is the funding boundary: the capability contract each
// payment provider must satisfy, provider fee schedules, and account-name
// matching for withdrawal destinations. Nothing in this package mutates the
// ledger; credits happen only once a provider confirms settlement.
package gateway

import (
	"context"
	"errors"
)

var (
	ErrUnknownProvider  = errors.New("unknown payment gateway")
	ErrAmountOutOfRange = errors.New("amount outside gateway limits")
)

// InitRequest asks a provider for a hosted-checkout handle. AmountMinor is
// the total to collect, fees included.
type InitRequest struct {
	AmountMinor int64
	Currency    string
	Email       string
	Reference   string
	Metadata    map[string]string
}

type InitResponse struct {
	RedirectURL string
	Reference   string
}

// ChargeRequest charges a previously tokenized card. Reference is the
// caller's idempotency key; providers dedupe on it.
type ChargeRequest struct {
	Authorization string
	AmountMinor   int64
	Currency      string
	Email         string
	Reference     string
	Metadata      map[string]string
}

type ChargeResult struct {
	Reference string
	Charged   bool
	Message   string
}

// Provider is the per-gateway capability set. Implementations are thin
// HTTP clients; call sites select an implementation from the Registry
// instead of branching on provider name strings.
type Provider interface {
	Name() string
	InitializeTransaction(ctx context.Context, req InitRequest) (InitResponse, error)
	RecurringCharge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error)
	// Fee returns the provider's collection fee in minor units for the
	// given minor-unit amount.
	Fee(amountMinor int64) int64
	// Limits returns the provider's min/max chargeable amount, minor units.
	Limits() (min, max int64)
}

type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}
