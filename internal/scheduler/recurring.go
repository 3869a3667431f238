// Package scheduler drives recurring investment plans: a timer-driven
// batch that scans chargeable plans, applies the once-per-calendar-month
// guards, computes gateway fees and hands each charge to the gateway
// through the worker queue. One bad plan never aborts the batch.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arvestapp/arvest-backend/internal/clock"
	"github.com/arvestapp/arvest-backend/internal/gateway"
	"github.com/arvestapp/arvest-backend/internal/metrics"
	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/notify"
	repo "github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/arvestapp/arvest-backend/internal/worker"
	"github.com/google/uuid"
)

type SkipReason string

const (
	SkipUserMissing      SkipReason = "USER_MISSING"
	SkipNoDefaultCard    SkipReason = "NO_DEFAULT_CARD"
	SkipCardExpired      SkipReason = "CARD_EXPIRED"
	SkipNoChargeDate     SkipReason = "NO_CHARGE_DATE"
	SkipNotDue           SkipReason = "NOT_DUE"
	SkipChargedThisMonth SkipReason = "CHARGED_THIS_MONTH"
	SkipNoListing        SkipReason = "NO_LISTING"
	SkipUnknownGateway   SkipReason = "UNKNOWN_GATEWAY"
)

// Dispatcher hands a charge job to a queue. The default dispatcher uses
// the worker pool with bounded retries; tests run jobs inline.
type Dispatcher func(name string, job func() error)

type Scheduler struct {
	plans    repo.Plans
	users    repo.Users
	cards    repo.Cards
	listings repo.Listings
	gateways *gateway.Registry
	notifier *notify.Notifier
	clk      clock.Clock
	dispatch Dispatcher
	log      *slog.Logger
}

func New(plans repo.Plans, users repo.Users, cards repo.Cards, listings repo.Listings,
	gateways *gateway.Registry, wp *worker.Pool, notifier *notify.Notifier, clk clock.Clock) *Scheduler {
	s := &Scheduler{
		plans:    plans,
		users:    users,
		cards:    cards,
		listings: listings,
		gateways: gateways,
		notifier: notifier,
		clk:      clk,
		log:      slog.Default(),
	}
	if s.clk == nil {
		s.clk = clock.Real{}
	}
	s.dispatch = func(name string, job func() error) {
		wp.SubmitRetry(name, 3, 2*time.Second, job)
	}
	return s
}

// Start runs the batch on a fixed interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			report := s.Run(ctx)
			s.log.Info("recurring batch done",
				"processed", report.Processed, "charged", report.Charged, "skipped", report.SkippedTotal())
		}
	}
}

type RunReport struct {
	Processed int
	Charged   int
	Skipped   map[SkipReason]int
	Errors    int
}

func (r RunReport) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Run processes every chargeable plan once. Skips and per-plan errors are
// reported and counted, never raised.
func (s *Scheduler) Run(ctx context.Context) RunReport {
	metrics.SchedulerRuns.Inc()
	report := RunReport{Skipped: make(map[SkipReason]int)}

	plans, err := s.plans.ListChargeable(ctx)
	if err != nil {
		s.log.Error("list chargeable plans", "err", err)
		report.Errors++
		return report
	}

	for _, plan := range plans {
		report.Processed++
		charged, skip, err := s.process(ctx, plan)
		switch {
		case err != nil:
			report.Errors++
			s.log.Error("plan processing failed", "plan", plan.ID, "err", err)
		case charged:
			report.Charged++
		default:
			report.Skipped[skip]++
			metrics.SchedulerSkips.WithLabelValues(string(skip)).Inc()
			s.log.Info("plan skipped", "plan", plan.ID, "reason", skip)
			s.notifier.Emit(notify.Event{
				Type:   notify.EventRecurringSkipped,
				UserID: plan.UserID,
				Data:   map[string]any{"plan_id": plan.ID, "reason": string(skip)},
			})
		}
	}
	return report
}

func (s *Scheduler) process(ctx context.Context, plan models.RecurringPlan) (bool, SkipReason, error) {
	now := s.clk.Now()

	u, err := s.users.GetByID(ctx, plan.UserID)
	if err != nil || u.ID == "" {
		if err != nil && err != repo.ErrNotFound {
			return false, "", err
		}
		return false, SkipUserMissing, nil
	}

	card, err := s.cards.DefaultForUser(ctx, plan.UserID, plan.Gateway)
	if err != nil {
		if err == repo.ErrNotFound {
			return false, SkipNoDefaultCard, nil
		}
		return false, "", err
	}
	if card.ExpiredAt(now) {
		// Side effect: the card is retired so later runs stop trying it.
		if err := s.cards.MarkExpired(ctx, card.ID); err != nil {
			return false, "", err
		}
		return false, SkipCardExpired, nil
	}

	if skip, due := chargeDue(plan, now); !due {
		return false, skip, nil
	}

	listing, err := s.listings.FindMatch(ctx, plan.Category, plan.DurationMonths, plan.Amount)
	if err != nil {
		if err == repo.ErrNotFound {
			return false, SkipNoListing, nil
		}
		return false, "", err
	}

	gw, err := s.gateways.Get(plan.Gateway)
	if err != nil {
		return false, SkipUnknownGateway, nil
	}

	fee := gw.Fee(plan.Amount)
	reference := "rp-" + uuid.NewString()
	req := gateway.ChargeRequest{
		Authorization: card.AuthToken,
		AmountMinor:   plan.Amount + fee,
		Currency:      "NGN",
		Email:         u.Email,
		Reference:     reference,
		Metadata: map[string]string{
			"plan_id":    plan.ID,
			"listing_id": listing.ID,
		},
	}

	planID := plan.ID
	userID := plan.UserID
	s.dispatch("recurring-charge", func() error {
		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, err := gw.RecurringCharge(cctx, req)
		if err != nil {
			return err // retried with the same idempotent reference
		}
		if !result.Charged {
			s.log.Warn("recurring charge declined", "plan", planID, "msg", result.Message)
			return nil
		}
		if err := s.plans.MarkCharged(cctx, planID, now, firstOfNextMonth(now)); err != nil {
			return fmt.Errorf("mark plan charged: %w", err)
		}
		metrics.SchedulerCharges.Inc()
		s.notifier.Emit(notify.Event{
			Type:   notify.EventRecurringInitiated,
			UserID: userID,
			Data:   map[string]any{"plan_id": planID, "reference": result.Reference, "amount": req.AmountMinor},
		})
		return nil
	})
	return true, "", nil
}

// chargeDue applies the calendar guards: the plan's next_charge_date must
// have elapsed and the last charge must not fall in the current calendar
// month. Cadence is calendar months, not 30-day windows, so a plan charged
// mid-month is due again as soon as the next month opens. Repeated runs in
// one month are no-ops because MarkCharged advances both dates.
func chargeDue(plan models.RecurringPlan, now time.Time) (SkipReason, bool) {
	if plan.NextChargeDate == nil {
		return SkipNoChargeDate, false
	}
	if plan.NextChargeDate.After(now) {
		return SkipNotDue, false
	}
	if plan.LastChargeDate != nil && sameMonth(*plan.LastChargeDate, now) {
		return SkipChargedThisMonth, false
	}
	return "", true
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func firstOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
