package models

import (
	"fmt"
	"time"
)

type CardStatus string

const (
	CardActive  CardStatus = "ACTIVE"
	CardExpired CardStatus = "EXPIRED"
)

// SavedCard is a tokenized card authorization held at a gateway. AuthToken
// is the provider's reusable charge token, never the PAN.
type SavedCard struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Gateway   string     `json:"gateway"`
	AuthToken string     `json:"-"`
	Last4     string     `json:"last4"`
	ExpMonth  int        `json:"exp_month"`
	ExpYear   int        `json:"exp_year"`
	IsDefault bool       `json:"is_default"`
	Status    CardStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// ExpiredAt reports whether the card expiry has passed as of now. Cards are
// valid through the last day of their expiry month.
func (c *SavedCard) ExpiredAt(now time.Time) bool {
	if c.ExpYear == 0 || c.ExpMonth == 0 {
		return false
	}
	endOfMonth := time.Date(c.ExpYear, time.Month(c.ExpMonth), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0)
	return !now.Before(endOfMonth)
}

func (c *SavedCard) Masked() string { return fmt.Sprintf("**** %s", c.Last4) }
