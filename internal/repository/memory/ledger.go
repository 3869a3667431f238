// Package memory holds in-memory repository implementations used by tests
// and local development. The ledger store mirrors the transactional
// semantics of the Postgres implementation: mutations made inside InTx are
// staged and only become visible when the callback returns nil.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/google/uuid"
)

type Ledger struct {
	mu      sync.Mutex
	wallets map[string]models.Wallet
	txns    []models.Transaction
	byRef   map[string]int // reference|direction -> index into txns
}

func NewLedger() *Ledger {
	return &Ledger{
		wallets: make(map[string]models.Wallet),
		byRef:   make(map[string]int),
	}
}

func refKey(reference string, dir models.TransactionDirection) string {
	return reference + "|" + string(dir)
}

func (m *Ledger) CreateWallet(_ context.Context, w models.Wallet) (models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = models.WalletActive
	}
	for _, existing := range m.wallets {
		if existing.AccountNumber == w.AccountNumber ||
			(existing.UserID == w.UserID && existing.Currency == w.Currency) {
			return models.Wallet{}, repository.ErrConflict
		}
	}
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	m.wallets[w.ID] = w
	return w, nil
}

func (m *Ledger) WalletByID(_ context.Context, id string) (models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[id]
	if !ok {
		return models.Wallet{}, repository.ErrNotFound
	}
	return w, nil
}

func (m *Ledger) WalletByUser(_ context.Context, userID, currency string) (models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wallets {
		if w.UserID == userID && w.Currency == currency {
			return w, nil
		}
	}
	return models.Wallet{}, repository.ErrNotFound
}

func (m *Ledger) WalletByAccountNumber(_ context.Context, accountNumber string) (models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wallets {
		if w.AccountNumber == accountNumber {
			return w, nil
		}
	}
	return models.Wallet{}, repository.ErrNotFound
}

func (m *Ledger) SetWalletStatus(_ context.Context, id string, status models.WalletStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.Status = status
	w.UpdatedAt = time.Now()
	m.wallets[id] = w
	return nil
}

func (m *Ledger) AddBeneficiary(_ context.Context, walletID, beneficiaryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, b := range w.Beneficiaries {
		if b == beneficiaryID {
			return nil
		}
	}
	w.Beneficiaries = append(w.Beneficiaries, beneficiaryID)
	m.wallets[walletID] = w
	return nil
}

func (m *Ledger) RemoveBeneficiary(_ context.Context, walletID, beneficiaryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return repository.ErrNotFound
	}
	kept := w.Beneficiaries[:0]
	for _, b := range w.Beneficiaries {
		if b != beneficiaryID {
			kept = append(kept, b)
		}
	}
	w.Beneficiaries = kept
	m.wallets[walletID] = w
	return nil
}

func (m *Ledger) TransactionByID(_ context.Context, id string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txns {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Transaction{}, repository.ErrNotFound
}

func (m *Ledger) ListTransactions(_ context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Transaction
	for i := len(m.txns) - 1; i >= 0; i-- { // newest first
		if m.txns[i].UserID == userID {
			all = append(all, m.txns[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *Ledger) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stage := &ledgerTx{
		parent:   m,
		balances: make(map[string]int64),
	}
	if err := fn(ctx, stage); err != nil {
		return err
	}
	stage.commit()
	return nil
}

type ledgerTx struct {
	parent   *Ledger
	balances map[string]int64 // staged wallet balance writes
	inserts  []models.Transaction
}

func (s *ledgerTx) WalletForUpdate(_ context.Context, walletID string) (models.Wallet, error) {
	w, ok := s.parent.wallets[walletID]
	if !ok {
		return models.Wallet{}, repository.ErrNotFound
	}
	if b, staged := s.balances[walletID]; staged {
		w.Balance = b
	}
	return w, nil
}

func (s *ledgerTx) SetWalletBalance(_ context.Context, walletID string, balance int64) error {
	if _, ok := s.parent.wallets[walletID]; !ok {
		return repository.ErrNotFound
	}
	s.balances[walletID] = balance
	return nil
}

func (s *ledgerTx) InsertTransaction(_ context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	key := refKey(t.Reference, t.Direction)
	if _, dup := s.parent.byRef[key]; dup {
		return models.Transaction{}, repository.ErrConflict
	}
	for _, staged := range s.inserts {
		if staged.Reference == t.Reference && staged.Direction == t.Direction {
			return models.Transaction{}, repository.ErrConflict
		}
	}
	s.inserts = append(s.inserts, t)
	return t, nil
}

func (s *ledgerTx) TransactionByReference(_ context.Context, reference string, dir models.TransactionDirection) (models.Transaction, bool, error) {
	if i, ok := s.parent.byRef[refKey(reference, dir)]; ok {
		return s.parent.txns[i], true, nil
	}
	for _, staged := range s.inserts {
		if staged.Reference == reference && staged.Direction == dir {
			return staged, true, nil
		}
	}
	return models.Transaction{}, false, nil
}

func (s *ledgerTx) commit() {
	now := time.Now()
	for id, b := range s.balances {
		w := s.parent.wallets[id]
		w.Balance = b
		w.UpdatedAt = now
		s.parent.wallets[id] = w
	}
	for _, t := range s.inserts {
		s.parent.txns = append(s.parent.txns, t)
		s.parent.byRef[refKey(t.Reference, t.Direction)] = len(s.parent.txns) - 1
	}
}
