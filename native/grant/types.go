package grant

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNotFound is returned when the referenced grant id does not exist.
	ErrNotFound = errors.New("grant: not found")
	// ErrNotAuthorized is returned when the caller does not hold (and is not
	// approved for) the grant being operated on.
	ErrNotAuthorized = errors.New("grant: not authorized")
	// ErrNotAdmin is returned when an admin-only operation is invoked by a
	// non-admin account.
	ErrNotAdmin = errors.New("grant: caller is not the admin")
	// ErrNotNominee is returned when an account other than the nominated
	// admin attempts to accept the admin role.
	ErrNotNominee = errors.New("grant: caller is not the nominated admin")
	// ErrInvalidSchedule is returned when grant terms fail creation
	// validation.
	ErrInvalidSchedule = errors.New("grant: invalid schedule")
	// ErrInvalidRecipient is returned when a mint or transfer names the zero
	// address as the receiving account.
	ErrInvalidRecipient = errors.New("grant: recipient must not be the zero address")
	// ErrAlreadyCancelled is returned when cancelling or replacing a grant
	// that is already cancelled.
	ErrAlreadyCancelled = errors.New("grant: already cancelled")
	// ErrNothingAvailable is returned when a redemption finds no redeemable
	// balance.
	ErrNothingAvailable = errors.New("grant: no tokens available for redemption")
	// ErrWrongOwner is returned when a transfer names a from-account that
	// does not currently hold the grant.
	ErrWrongOwner = errors.New("grant: from account does not hold grant")
	// ErrInsufficientAllowance is returned when a token pull exceeds the
	// caller's pre-authorized allowance.
	ErrInsufficientAllowance = errors.New("grant: insufficient allowance")
	// ErrInsufficientBalance is returned when a token movement exceeds the
	// source balance.
	ErrInsufficientBalance = errors.New("grant: insufficient balance")
)

// Grant captures the vesting terms and redemption counter of a single grant
// position. The holder is tracked separately by the ownership registry so
// transfers never touch the terms.
type Grant struct {
	ID             uint64
	Asset          [20]byte
	StartTime      int64
	CliffTime      int64
	IntervalAmount *big.Int
	TotalAmount    *big.Int
	RedeemedAmount *big.Int
	VestInterval   int64
	Cancelled      bool
}

// Clone returns a deep copy of the grant so callers can mutate the copy
// without affecting the stored instance.
func (g *Grant) Clone() *Grant {
	if g == nil {
		return nil
	}
	clone := *g
	clone.IntervalAmount = cloneBigInt(g.IntervalAmount)
	clone.TotalAmount = cloneBigInt(g.TotalAmount)
	clone.RedeemedAmount = cloneBigInt(g.RedeemedAmount)
	return &clone
}

// SanitizeGrant validates the stored-record invariants and returns a cloned
// instance with non-nil amount fields. The original value is not mutated.
func SanitizeGrant(g *Grant) (*Grant, error) {
	if g == nil {
		return nil, fmt.Errorf("nil grant")
	}
	clone := g.Clone()
	if clone.IntervalAmount.Sign() < 0 {
		return nil, fmt.Errorf("grant interval amount must be non-negative")
	}
	if clone.TotalAmount.Sign() < 0 {
		return nil, fmt.Errorf("grant total amount must be non-negative")
	}
	if clone.RedeemedAmount.Sign() < 0 {
		return nil, fmt.Errorf("grant redeemed amount must be non-negative")
	}
	if clone.RedeemedAmount.Cmp(clone.TotalAmount) > 0 {
		return nil, fmt.Errorf("grant redeemed amount exceeds total")
	}
	return clone, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
