package postgres

import (
	"context"
	"errors"

	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type cardsRepo struct{ pool *pgxpool.Pool }

func NewCards(pool *pgxpool.Pool) repository.Cards { return &cardsRepo{pool: pool} }

func (r *cardsRepo) DefaultForUser(ctx context.Context, userID, gateway string) (models.SavedCard, error) {
	var c models.SavedCard
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, gateway, auth_token, last4, exp_month, exp_year, is_default, status, created_at
  FROM saved_cards
 WHERE user_id=$1 AND gateway=$2 AND is_default AND status='ACTIVE'
 ORDER BY created_at DESC
 LIMIT 1`, userID, gateway).
		Scan(&c.ID, &c.UserID, &c.Gateway, &c.AuthToken, &c.Last4,
			&c.ExpMonth, &c.ExpYear, &c.IsDefault, &c.Status, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SavedCard{}, repository.ErrNotFound
	}
	return c, err
}

func (r *cardsRepo) MarkExpired(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE saved_cards SET status='EXPIRED' WHERE id=$1`, id)
	return err
}
