package postgres

import (
	repo "github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users     repo.Users
	Ledger    repo.Ledger
	Plans     repo.Plans
	Cards     repo.Cards
	Listings  repo.Listings
	AuditLogs repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:     &usersRepo{pool},
		Ledger:    &ledgerRepo{pool},
		Plans:     &plansRepo{pool},
		Cards:     &cardsRepo{pool},
		Listings:  &listingsRepo{pool},
		AuditLogs: &auditLogsRepo{pool},
	}
}
