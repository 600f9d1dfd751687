package grant

import "math/big"

// AmountVested returns the cumulative amount unlocked by the schedule at the
// supplied wall-clock time. Vesting is interval-discretized: a full interval
// must elapse before its amount counts, and there is no partial-interval
// accrual. The result is clamped to the grant's total amount so an
// inconsistent interval amount can never vest past the lifetime cap.
func AmountVested(g *Grant, now int64) *big.Int {
	if g == nil || now < g.StartTime || g.VestInterval <= 0 {
		return big.NewInt(0)
	}
	elapsedIntervals := (now - g.StartTime) / g.VestInterval
	raw := new(big.Int).Mul(big.NewInt(elapsedIntervals), cloneBigInt(g.IntervalAmount))
	total := cloneBigInt(g.TotalAmount)
	if raw.Cmp(total) > 0 {
		return total
	}
	return raw
}

// AvailableForRedemption returns the amount the holder could redeem at the
// supplied time: the vested amount net of what has already been redeemed.
// The cliff is a hard gate independent of the unlock schedule, and a
// cancelled grant never has anything available. A redeemed counter seeded
// above the currently vested amount (an imported history) yields zero rather
// than a negative value.
func AvailableForRedemption(g *Grant, now int64) *big.Int {
	if g == nil || g.Cancelled {
		return big.NewInt(0)
	}
	if now < g.CliffTime {
		return big.NewInt(0)
	}
	available := AmountVested(g, now)
	available.Sub(available, cloneBigInt(g.RedeemedAmount))
	if available.Sign() < 0 {
		return big.NewInt(0)
	}
	return available
}
