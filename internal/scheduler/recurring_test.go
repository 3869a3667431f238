package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arvestapp/arvest-backend/internal/clock"
	"github.com/arvestapp/arvest-backend/internal/gateway"
	"github.com/arvestapp/arvest-backend/internal/models"
	repo "github.com/arvestapp/arvest-backend/internal/repository"
)

type fakePlans struct {
	plans map[string]*models.RecurringPlan
}

func (f *fakePlans) ListChargeable(_ context.Context) ([]models.RecurringPlan, error) {
	var out []models.RecurringPlan
	for _, p := range f.plans {
		if p.Status == models.PlanResume && p.InvestmentCount > 0 {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlans) GetByID(_ context.Context, id string) (models.RecurringPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return models.RecurringPlan{}, repo.ErrNotFound
	}
	return *p, nil
}

func (f *fakePlans) MarkCharged(_ context.Context, id string, last, next time.Time) error {
	p, ok := f.plans[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.LastChargeDate = &last
	p.NextChargeDate = &next
	return nil
}

type fakeUsers struct{ users map[string]models.User }

func (f *fakeUsers) Create(_ context.Context, u models.User) (models.User, error) { return u, nil }
func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return u, nil
}
func (f *fakeUsers) GetByEmail(_ context.Context, _ string) (models.User, error) {
	return models.User{}, repo.ErrNotFound
}

type fakeCards struct {
	cards   map[string]*models.SavedCard // by user id
	expired []string
}

func (f *fakeCards) DefaultForUser(_ context.Context, userID, _ string) (models.SavedCard, error) {
	c, ok := f.cards[userID]
	if !ok || c.Status != models.CardActive {
		return models.SavedCard{}, repo.ErrNotFound
	}
	return *c, nil
}

func (f *fakeCards) MarkExpired(_ context.Context, id string) error {
	f.expired = append(f.expired, id)
	for _, c := range f.cards {
		if c.ID == id {
			c.Status = models.CardExpired
		}
	}
	return nil
}

type fakeListings struct{ listing *models.Listing }

func (f *fakeListings) FindMatch(_ context.Context, _ string, _ int, _ int64) (models.Listing, error) {
	if f.listing == nil {
		return models.Listing{}, repo.ErrNotFound
	}
	return *f.listing, nil
}

type chargeProvider struct {
	charges []gateway.ChargeRequest
	fail    bool
}

func (chargeProvider) Name() string { return "PAYSTACK" }
func (chargeProvider) InitializeTransaction(_ context.Context, req gateway.InitRequest) (gateway.InitResponse, error) {
	return gateway.InitResponse{Reference: req.Reference}, nil
}
func (p *chargeProvider) RecurringCharge(_ context.Context, req gateway.ChargeRequest) (gateway.ChargeResult, error) {
	if p.fail {
		return gateway.ChargeResult{}, errors.New("gateway down")
	}
	p.charges = append(p.charges, req)
	return gateway.ChargeResult{Reference: req.Reference, Charged: true}, nil
}
func (chargeProvider) ResolveAccountName(_ context.Context, _, _ string) (string, error) {
	return "", nil
}
func (chargeProvider) Fee(amount int64) int64 { return amount / 100 }
func (chargeProvider) Limits() (int64, int64) { return 100, 1_000_000_00 }

func datePtr(t time.Time) *time.Time { return &t }

type fixture struct {
	sched    *Scheduler
	plans    *fakePlans
	cards    *fakeCards
	provider *chargeProvider
	clk      *clock.Fixed
}

func newFixture(plans *fakePlans) *fixture {
	provider := &chargeProvider{}
	cards := &fakeCards{cards: map[string]*models.SavedCard{
		"u1": {ID: "card1", UserID: "u1", Gateway: "PAYSTACK", AuthToken: "AUTH_x",
			Last4: "4081", ExpMonth: 12, ExpYear: 2030, IsDefault: true, Status: models.CardActive},
	}}
	clk := &clock.Fixed{T: time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)}
	s := New(
		plans,
		&fakeUsers{users: map[string]models.User{"u1": {ID: "u1", Email: "ada@example.com"}}},
		cards,
		&fakeListings{listing: &models.Listing{ID: "l1", Category: "agro", DurationMonths: 6,
			MinAmount: 100, MaxAmount: 10_000_000, Active: true}},
		gateway.NewRegistry(provider),
		nil,
		nil,
		clk,
	)
	// Run charge jobs inline so assertions see their effects.
	s.dispatch = func(_ string, job func() error) { _ = job() }
	return &fixture{sched: s, plans: plans, cards: cards, provider: provider, clk: clk}
}

func duePlan(id string) *models.RecurringPlan {
	return &models.RecurringPlan{
		ID: id, UserID: "u1", Amount: 50_000_00,
		Occurrence: models.OccurrenceRecurring, Status: models.PlanResume,
		Category: "agro", DurationMonths: 6, Gateway: "PAYSTACK",
		NextChargeDate:  datePtr(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),
		LastChargeDate:  datePtr(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
		InvestmentCount: 2,
	}
}

func TestChargesOncePerMonth(t *testing.T) {
	f := newFixture(&fakePlans{plans: map[string]*models.RecurringPlan{"p1": duePlan("p1")}})

	report := f.sched.Run(context.Background())
	if report.Charged != 1 {
		t.Fatalf("first run charged %d plans, want 1 (skips: %v)", report.Charged, report.Skipped)
	}
	if len(f.provider.charges) != 1 {
		t.Fatalf("gateway saw %d charges, want 1", len(f.provider.charges))
	}
	// Fee is added on top of the plan amount.
	if got := f.provider.charges[0].AmountMinor; got != 50_000_00+50_000_00/100 {
		t.Fatalf("charge amount = %d", got)
	}

	// Second run later the same month: the advanced dates guard it.
	f.clk.T = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	report = f.sched.Run(context.Background())
	if report.Charged != 0 {
		t.Fatalf("second run charged %d plans, want 0", report.Charged)
	}
	if len(f.provider.charges) != 1 {
		t.Fatalf("gateway saw %d charges after second run, want 1", len(f.provider.charges))
	}

	// Next month it is due again.
	f.clk.T = time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	report = f.sched.Run(context.Background())
	if report.Charged != 1 {
		t.Fatalf("next month run charged %d plans, want 1 (skips: %v)", report.Charged, report.Skipped)
	}
}

func TestChargesAgainAcrossMonthBoundary(t *testing.T) {
	// Charged on the last day of July; due again mid-August even though
	// fewer than 30 days have passed. Cadence follows the calendar month.
	p := duePlan("p1")
	p.LastChargeDate = datePtr(time.Date(2026, 7, 31, 18, 0, 0, 0, time.UTC))
	p.NextChargeDate = datePtr(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	f := newFixture(&fakePlans{plans: map[string]*models.RecurringPlan{"p1": p}})

	report := f.sched.Run(context.Background())
	if report.Charged != 1 {
		t.Fatalf("charged %d plans, want 1 (skips: %v)", report.Charged, report.Skipped)
	}
}

func TestSkipsPlanWithoutChargeDate(t *testing.T) {
	p := duePlan("p1")
	p.NextChargeDate = nil
	f := newFixture(&fakePlans{plans: map[string]*models.RecurringPlan{"p1": p}})

	report := f.sched.Run(context.Background())
	if report.Charged != 0 || report.Skipped[SkipNoChargeDate] != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestSkipsWhenLastChargeInCurrentMonth(t *testing.T) {
	p := duePlan("p1")
	p.LastChargeDate = datePtr(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	f := newFixture(&fakePlans{plans: map[string]*models.RecurringPlan{"p1": p}})

	report := f.sched.Run(context.Background())
	if report.Charged != 0 || report.Skipped[SkipChargedThisMonth] != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestExpiredCardIsMarkedAndSkipped(t *testing.T) {
	f := newFixture(&fakePlans{plans: map[string]*models.RecurringPlan{"p1": duePlan("p1")}})
	f.cards.cards["u1"].ExpMonth = 6
	f.cards.cards["u1"].ExpYear = 2026 // expired before the Aug run

	report := f.sched.Run(context.Background())
	if report.Charged != 0 || report.Skipped[SkipCardExpired] != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(f.cards.expired) != 1 || f.cards.expired[0] != "card1" {
		t.Fatalf("card not marked expired: %v", f.cards.expired)
	}
}

func TestSkipsWhenNoListingMatches(t *testing.T) {
	f := newFixture(&fakePlans{plans: map[string]*models.RecurringPlan{"p1": duePlan("p1")}})
	f.sched.listings = &fakeListings{}

	report := f.sched.Run(context.Background())
	if report.Charged != 0 || report.Skipped[SkipNoListing] != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestOnePlanFailureDoesNotAbortBatch(t *testing.T) {
	p1 := duePlan("p1")
	p2 := duePlan("p2")
	p2.UserID = "ghost" // unresolvable owner
	f := newFixture(&fakePlans{plans: map[string]*models.RecurringPlan{"p1": p1, "p2": p2}})

	report := f.sched.Run(context.Background())
	if report.Processed != 2 {
		t.Fatalf("processed %d plans, want 2", report.Processed)
	}
	if report.Charged != 1 {
		t.Fatalf("charged %d plans, want 1 (skips: %v)", report.Charged, report.Skipped)
	}
	if report.Skipped[SkipUserMissing] != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestPausedPlansAreNotListed(t *testing.T) {
	p := duePlan("p1")
	p.Status = models.PlanPaused
	f := newFixture(&fakePlans{plans: map[string]*models.RecurringPlan{"p1": p}})

	report := f.sched.Run(context.Background())
	if report.Processed != 0 {
		t.Fatalf("processed %d plans, want 0", report.Processed)
	}
}
