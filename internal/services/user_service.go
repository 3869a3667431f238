package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/arvestapp/arvest-backend/internal/auth"
	"github.com/arvestapp/arvest-backend/internal/config"
	"github.com/arvestapp/arvest-backend/internal/ledger"
	"github.com/arvestapp/arvest-backend/internal/models"
	repo "github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserService struct {
	users  repo.Users
	engine *ledger.Engine
	tm     *auth.TokenManager
	cfg    config.Config
}

func NewUserService(users repo.Users, engine *ledger.Engine, tm *auth.TokenManager, cfg config.Config) *UserService {
	return &UserService{users: users, engine: engine, tm: tm, cfg: cfg}
}

// Register creates the user and their NGN wallet. The wallet starts at
// zero; a configured signup bonus is credited through the engine so the
// bonus shows up as a normal ledger entry.
//
// User and wallet are separate inserts, so a crash between them can leave
// a user without a wallet. A repeat signup with the same credentials picks
// that user up and finishes provisioning instead of reporting a conflict.
func (s *UserService) Register(ctx context.Context, firstName, lastName, email, password string) (models.User, error) {
	u := models.User{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      "user",
	}
	if err := u.Validate(); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash

	u, err = s.users.Create(ctx, u)
	if errors.Is(err, repo.ErrConflict) {
		u, err = s.resumeRegistration(ctx, u.Email, password)
	}
	if err != nil {
		return models.User{}, err
	}

	w, err := s.engine.Store().CreateWallet(ctx, models.Wallet{
		UserID:        u.ID,
		Currency:      s.cfg.Currency,
		Status:        models.WalletActive,
		AccountNumber: newAccountNumber(),
	})
	if err != nil {
		return models.User{}, fmt.Errorf("create wallet: %w", err)
	}

	if s.cfg.SignupBonus > 0 {
		res, err := s.engine.Credit(ctx, w.ID, s.cfg.SignupBonus, "signup-"+uuid.NewString(), ledger.Meta{
			Purpose:     models.PurposeWallet,
			Description: "signup bonus",
		})
		if err != nil || !res.Success {
			// The account is fine without the bonus; don't fail signup.
			slog.Warn("signup bonus not credited", "user", u.ID, "err", err)
		}
	}
	return u, nil
}

// resumeRegistration handles a duplicate-email signup. If the existing user
// proves ownership with the same password and has no wallet yet, the earlier
// attempt died mid-provisioning and we carry on with that user. Anything
// else is a genuine conflict.
func (s *UserService) resumeRegistration(ctx context.Context, email, password string) (models.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return models.User{}, repo.ErrConflict
	}
	if auth.VerifyPassword(password, existing.PasswordHash) != nil {
		return models.User{}, repo.ErrConflict
	}
	_, err = s.engine.Store().WalletByUser(ctx, existing.ID, s.cfg.Currency)
	if err == nil {
		return models.User{}, repo.ErrConflict
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return models.User{}, err
	}
	return existing, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (access, refresh string, err error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", "", ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return "", "", ErrInvalidCredentials
	}
	access, refresh, _, err = s.tm.GeneratePair(u.ID, u.Role)
	return access, refresh, err
}

func (s *UserService) GetByID(ctx context.Context, id string) (models.User, error) {
	return s.users.GetByID(ctx, id)
}

// newAccountNumber produces a 10-digit wallet account number. Uniqueness
// is enforced by the wallets table; collisions fail the insert and surface
// to the caller.
func newAccountNumber() string {
	return fmt.Sprintf("90%08d", rand.Intn(100_000_000))
}
