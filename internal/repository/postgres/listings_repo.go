package postgres

import (
	"context"
	"errors"

	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type listingsRepo struct{ pool *pgxpool.Pool }

func NewListings(pool *pgxpool.Pool) repository.Listings { return &listingsRepo{pool: pool} }

func (r *listingsRepo) FindMatch(ctx context.Context, category string, durationMonths int, amount int64) (models.Listing, error) {
	var l models.Listing
	err := r.pool.QueryRow(ctx, `
SELECT id, title, category, duration_months, min_amount, max_amount, active, closes_at
  FROM listings
 WHERE active
   AND category=$1
   AND duration_months=$2
   AND min_amount <= $3 AND $3 <= max_amount
   AND closes_at > now()
 ORDER BY closes_at
 LIMIT 1`, category, durationMonths, amount).
		Scan(&l.ID, &l.Title, &l.Category, &l.DurationMonths,
			&l.MinAmount, &l.MaxAmount, &l.Active, &l.ClosesAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Listing{}, repository.ErrNotFound
	}
	return l, err
}
