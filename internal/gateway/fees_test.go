package gateway

import "testing"

func TestFeeScheduleFlatWaiverAndCap(t *testing.T) {
	f := FeeSchedule{
		PercentBps:     150,
		FlatMinor:      100_00,
		FlatWaiveBelow: 2500_00,
		CapMinor:       2000_00,
		MinAmount:      100_00,
	}
	cases := []struct {
		amount int64
		want   int64
	}{
		{1000_00, 15_00},              // 1.5%, flat waived under 2500
		{2500_00, 37_50 + 100_00},     // flat applies at the floor
		{10_000_00, 150_00 + 100_00},  // 1.5% + flat
		{500_000_00, 2000_00},         // capped
	}
	for _, c := range cases {
		if got := f.Fee(c.amount); got != c.want {
			t.Fatalf("Fee(%d) = %d, want %d", c.amount, got, c.want)
		}
	}
}

func TestFeeScheduleRange(t *testing.T) {
	f := FeeSchedule{MinAmount: 100_00, MaxAmount: 1000_00}
	if f.InRange(99_99) {
		t.Fatal("below minimum accepted")
	}
	if !f.InRange(100_00) || !f.InRange(1000_00) {
		t.Fatal("boundary amounts rejected")
	}
	if f.InRange(1000_01) {
		t.Fatal("above maximum accepted")
	}
}

func TestRegistrySelectsByName(t *testing.T) {
	reg := NewRegistry(NewPaystack("sk_test"), NewFlutterwave("flw_test"))
	p, err := reg.Get("PAYSTACK")
	if err != nil || p.Name() != "PAYSTACK" {
		t.Fatalf("get paystack: %v", err)
	}
	if _, err := reg.Get("NOPE"); err != ErrUnknownProvider {
		t.Fatalf("want ErrUnknownProvider, got %v", err)
	}
}
