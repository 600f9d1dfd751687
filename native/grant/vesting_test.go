package grant

import (
	"math/big"
	"testing"
)

const quarter = int64(7889400)

func newTestGrant() *Grant {
	return &Grant{
		ID:             0,
		Asset:          newTestAddress(0x01),
		StartTime:      1_000_000,
		CliffTime:      1_000_000 + 2*quarter,
		IntervalAmount: big.NewInt(2500),
		TotalAmount:    big.NewInt(30000),
		RedeemedAmount: big.NewInt(0),
		VestInterval:   quarter,
	}
}

func TestAmountVestedBeforeStart(t *testing.T) {
	g := newTestGrant()
	if got := AmountVested(g, g.StartTime-1); got.Sign() != 0 {
		t.Fatalf("expected 0 before start, got %s", got)
	}
}

func TestAmountVestedDiscretizesIntervals(t *testing.T) {
	g := newTestGrant()
	cases := []struct {
		offset int64
		want   int64
	}{
		{0, 0},
		{quarter - 1, 0},
		{quarter, 2500},
		{quarter + 1, 2500},
		{2 * quarter, 5000},
		{3 * quarter, 7500},
	}
	for _, tc := range cases {
		if got := AmountVested(g, g.StartTime+tc.offset); got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("offset %d: expected %d, got %s", tc.offset, tc.want, got)
		}
	}
}

func TestAmountVestedClampsToTotal(t *testing.T) {
	g := newTestGrant()
	// Far beyond the schedule: 100 intervals would be 250000 raw.
	if got := AmountVested(g, g.StartTime+100*quarter); got.Cmp(g.TotalAmount) != 0 {
		t.Fatalf("expected clamp to %s, got %s", g.TotalAmount, got)
	}
}

func TestAmountVestedMonotonic(t *testing.T) {
	g := newTestGrant()
	prev := big.NewInt(0)
	for now := g.StartTime - quarter; now < g.StartTime+20*quarter; now += quarter / 3 {
		got := AmountVested(g, now)
		if got.Cmp(prev) < 0 {
			t.Fatalf("vested amount decreased at %d: %s < %s", now, got, prev)
		}
		prev = got
	}
}

func TestAvailableGatedByCliff(t *testing.T) {
	g := newTestGrant()
	// One full interval has vested but the cliff is two intervals out.
	if got := AvailableForRedemption(g, g.StartTime+quarter); got.Sign() != 0 {
		t.Fatalf("expected 0 before cliff, got %s", got)
	}
	// At the cliff both gated intervals unlock at once.
	if got := AvailableForRedemption(g, g.CliffTime); got.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("expected 5000 at cliff, got %s", got)
	}
}

func TestAvailableNetsOutRedeemed(t *testing.T) {
	g := newTestGrant()
	g.RedeemedAmount = big.NewInt(5000)
	if got := AvailableForRedemption(g, g.StartTime+2*quarter); got.Sign() != 0 {
		t.Fatalf("expected 0 after full redemption, got %s", got)
	}
	if got := AvailableForRedemption(g, g.StartTime+3*quarter); got.Cmp(big.NewInt(2500)) != 0 {
		t.Fatalf("expected 2500 one interval later, got %s", got)
	}
}

func TestAvailableZeroWhenCancelled(t *testing.T) {
	g := newTestGrant()
	g.Cancelled = true
	if got := AvailableForRedemption(g, g.StartTime+10*quarter); got.Sign() != 0 {
		t.Fatalf("expected 0 for cancelled grant, got %s", got)
	}
}

func TestAvailableClampsSeededRedemption(t *testing.T) {
	g := newTestGrant()
	// Imported history: more redeemed than currently vested.
	g.RedeemedAmount = big.NewInt(10000)
	if got := AvailableForRedemption(g, g.StartTime+2*quarter); got.Sign() != 0 {
		t.Fatalf("expected 0 when redeemed exceeds vested, got %s", got)
	}
}

func TestAvailableIdempotentRead(t *testing.T) {
	g := newTestGrant()
	now := g.StartTime + 4*quarter
	first := AvailableForRedemption(g, now)
	second := AvailableForRedemption(g, now)
	if first.Cmp(second) != 0 {
		t.Fatalf("repeated reads differ: %s vs %s", first, second)
	}
}
