package models

import "time"

type PlanOccurrence string

const (
	OccurrenceRecurring PlanOccurrence = "RECURRING"
	OccurrenceOneTime   PlanOccurrence = "ONE_TIME"
)

type PlanStatus string

const (
	PlanResume   PlanStatus = "RESUME"
	PlanPaused   PlanStatus = "PAUSED"
	PlanComplete PlanStatus = "COMPLETE"
)

// RecurringPlan is a standing instruction to invest Amount (minor units)
// every calendar month via the user's default saved card. The scheduler
// charges a plan at most once per month.
type RecurringPlan struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Amount          int64          `json:"amount"`
	Occurrence      PlanOccurrence `json:"occurrence"`
	Status          PlanStatus     `json:"status"`
	Category        string         `json:"category"`
	DurationMonths  int            `json:"duration_months"`
	Gateway         string         `json:"gateway"`
	CardID          *string        `json:"card_id,omitempty"`
	NextChargeDate  *time.Time     `json:"next_charge_date,omitempty"`
	LastChargeDate  *time.Time     `json:"last_charge_date,omitempty"`
	InvestmentCount int            `json:"investment_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
