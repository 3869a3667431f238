package gateway

import "github.com/arvestapp/arvest-backend/internal/money"

// FeeSchedule is a provider's collection pricing: a percentage in basis
// points plus a flat amount, with the flat part waived below a floor and
// the total capped. All values are minor units.
type FeeSchedule struct {
	PercentBps     int64
	FlatMinor      int64
	FlatWaiveBelow int64 // flat fee not applied when amount < this
	CapMinor       int64 // 0 means uncapped
	MinAmount      int64
	MaxAmount      int64
}

// Fee computes the fee for a minor-unit amount, truncating sub-minor
// remainders.
func (f FeeSchedule) Fee(amountMinor int64) int64 {
	fee := money.Percent(amountMinor, f.PercentBps)
	if f.FlatMinor > 0 && amountMinor >= f.FlatWaiveBelow {
		fee += f.FlatMinor
	}
	if f.CapMinor > 0 && fee > f.CapMinor {
		fee = f.CapMinor
	}
	return fee
}

// InRange reports whether the amount is chargeable under this schedule.
func (f FeeSchedule) InRange(amountMinor int64) bool {
	if amountMinor < f.MinAmount {
		return false
	}
	if f.MaxAmount > 0 && amountMinor > f.MaxAmount {
		return false
	}
	return true
}

// Published NGN card pricing. Flat ₦100 is waived for charges under ₦2,500
// and the total fee is capped at ₦2,000.
var (
	paystackFees = FeeSchedule{
		PercentBps:     150, // 1.5%
		FlatMinor:      100_00,
		FlatWaiveBelow: 2500_00,
		CapMinor:       2000_00,
		MinAmount:      100_00,
		MaxAmount:      10_000_000_00,
	}
	flutterwaveFees = FeeSchedule{
		PercentBps: 140, // 1.4%
		CapMinor:   2000_00,
		MinAmount:  100_00,
		MaxAmount:  10_000_000_00,
	}
)
