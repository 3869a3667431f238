package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type plansRepo struct{ pool *pgxpool.Pool }

func NewPlans(pool *pgxpool.Pool) repository.Plans { return &plansRepo{pool: pool} }

const planCols = `id, user_id, amount, occurrence, status, category, duration_months,
gateway, card_id, next_charge_date, last_charge_date, investment_count, created_at, updated_at`

func scanPlan(row pgx.Row) (models.RecurringPlan, error) {
	var p models.RecurringPlan
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Occurrence, &p.Status, &p.Category,
		&p.DurationMonths, &p.Gateway, &p.CardID, &p.NextChargeDate, &p.LastChargeDate,
		&p.InvestmentCount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RecurringPlan{}, repository.ErrNotFound
	}
	return p, err
}

func (r *plansRepo) ListChargeable(ctx context.Context) ([]models.RecurringPlan, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+planCols+`
  FROM recurring_plans
 WHERE status = 'RESUME'
   AND occurrence = 'RECURRING'
   AND investment_count > 0
 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RecurringPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *plansRepo) GetByID(ctx context.Context, id string) (models.RecurringPlan, error) {
	return scanPlan(r.pool.QueryRow(ctx,
		`SELECT `+planCols+` FROM recurring_plans WHERE id=$1`, id))
}

func (r *plansRepo) MarkCharged(ctx context.Context, id string, last, next time.Time) error {
	ct, err := r.pool.Exec(ctx, `
UPDATE recurring_plans
   SET last_charge_date=$2, next_charge_date=$3, updated_at=now()
 WHERE id=$1`, id, last, next)
	if err == nil && ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return err
}
