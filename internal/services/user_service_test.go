package services

import (
	"context"
	"errors"
	"testing"

	"github.com/arvestapp/arvest-backend/internal/auth"
	"github.com/arvestapp/arvest-backend/internal/config"
	"github.com/arvestapp/arvest-backend/internal/ledger"
	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/arvestapp/arvest-backend/internal/repository/memory"
	"github.com/google/uuid"
)

type fakeUsers struct {
	byEmail map[string]models.User
}

func (f *fakeUsers) Create(_ context.Context, u models.User) (models.User, error) {
	if _, ok := f.byEmail[u.Email]; ok {
		return models.User{}, repository.ErrConflict
	}
	u.ID = uuid.NewString()
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func newUserFixture(t *testing.T) (*UserService, *fakeUsers, *memory.Ledger) {
	t.Helper()
	users := &fakeUsers{byEmail: map[string]models.User{}}
	store := memory.NewLedger()
	engine := ledger.NewEngine(store, nil)
	svc := NewUserService(users, engine, nil, config.Config{Currency: "NGN"})
	return svc, users, store
}

func seedUser(t *testing.T, users *fakeUsers, email, password string) models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := models.User{
		ID: uuid.NewString(), FirstName: "Ada", LastName: "Obi",
		Email: email, PasswordHash: hash, Role: "user",
	}
	users.byEmail[email] = u
	return u
}

func TestRegisterCreatesUserAndWallet(t *testing.T) {
	svc, _, store := newUserFixture(t)

	u, err := svc.Register(context.Background(), "Ada", "Obi", "ada@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	w, err := store.WalletByUser(context.Background(), u.ID, "NGN")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.Status != models.WalletActive || w.Balance != 0 {
		t.Fatalf("wallet = %+v", w)
	}
}

func TestRegisterResumesWalletlessUser(t *testing.T) {
	// A user row without a wallet is what a crash between the two inserts
	// leaves behind. The same signup again must finish provisioning.
	svc, users, store := newUserFixture(t)
	existing := seedUser(t, users, "ada@example.com", "s3cret-pass")

	u, err := svc.Register(context.Background(), "Ada", "Obi", "ada@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("register retry: %v", err)
	}
	if u.ID != existing.ID {
		t.Fatalf("got user %s, want existing %s", u.ID, existing.ID)
	}
	if _, err := store.WalletByUser(context.Background(), existing.ID, "NGN"); err != nil {
		t.Fatalf("wallet not provisioned: %v", err)
	}
}

func TestRegisterRejectsDuplicateWithWallet(t *testing.T) {
	svc, users, store := newUserFixture(t)
	existing := seedUser(t, users, "ada@example.com", "s3cret-pass")
	if _, err := store.CreateWallet(context.Background(), models.Wallet{
		UserID: existing.ID, Currency: "NGN", Status: models.WalletActive,
		AccountNumber: "9000000001",
	}); err != nil {
		t.Fatalf("seed wallet: %v", err)
	}

	_, err := svc.Register(context.Background(), "Ada", "Obi", "ada@example.com", "s3cret-pass")
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestRegisterRejectsDuplicateWithWrongPassword(t *testing.T) {
	svc, users, _ := newUserFixture(t)
	seedUser(t, users, "ada@example.com", "s3cret-pass")

	_, err := svc.Register(context.Background(), "Ada", "Obi", "ada@example.com", "not-the-password")
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}
