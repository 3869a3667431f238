package models

import "time"

// Listing is an open investment offer the scheduler matches recurring plans
// against by category and duration. Amounts are minor units.
type Listing struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Category       string    `json:"category"`
	DurationMonths int       `json:"duration_months"`
	MinAmount      int64     `json:"min_amount"`
	MaxAmount      int64     `json:"max_amount"`
	Active         bool      `json:"active"`
	ClosesAt       time.Time `json:"closes_at"`
}
