package grant

import (
	"math/big"
	"strconv"

	"vester/core/types"
	"vester/crypto"
)

const (
	EventTypeGrantCreated     = "grant.created"
	EventTypeGrantCancelled   = "grant.cancelled"
	EventTypeRedemption       = "grant.redeemed"
	EventTypeTransferred      = "grant.transferred"
	EventTypeApproved         = "grant.approved"
	EventTypeOperatorApproved = "grant.operator_approved"
	EventTypeSupplied         = "grant.supplied"
	EventTypeWithdrawn        = "grant.withdrawn"
	EventTypeAdminNominated   = "grant.admin_nominated"
	EventTypeAdminChanged     = "grant.admin_changed"
)

func addr(a [20]byte) string {
	return crypto.MustAddress(a).String()
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NewCreatedEvent returns the canonical payload for a newly minted grant. It
// carries the full terms so an indexer can reconstruct the record without
// querying the engine.
func NewCreatedEvent(g *Grant, recipient [20]byte) *types.Event {
	attrs := make(map[string]string)
	if g != nil {
		attrs["id"] = strconv.FormatUint(g.ID, 10)
		attrs["grantee"] = addr(recipient)
		attrs["asset"] = addr(g.Asset)
		attrs["startTime"] = strconv.FormatInt(g.StartTime, 10)
		attrs["cliffTime"] = strconv.FormatInt(g.CliffTime, 10)
		attrs["intervalAmount"] = amount(g.IntervalAmount)
		attrs["totalAmount"] = amount(g.TotalAmount)
		attrs["redeemedAmount"] = amount(g.RedeemedAmount)
		attrs["vestInterval"] = strconv.FormatInt(g.VestInterval, 10)
	}
	return &types.Event{Type: EventTypeGrantCreated, Attributes: attrs}
}

// NewCancelledEvent returns the canonical payload for a cancelled grant.
func NewCancelledEvent(g *Grant) *types.Event {
	attrs := make(map[string]string)
	if g != nil {
		attrs["id"] = strconv.FormatUint(g.ID, 10)
	}
	return &types.Event{Type: EventTypeGrantCancelled, Attributes: attrs}
}

// NewRedeemedEvent returns the canonical payload for a redemption payout.
func NewRedeemedEvent(g *Grant, redeemer [20]byte, paid *big.Int) *types.Event {
	attrs := map[string]string{
		"redeemer": addr(redeemer),
		"amount":   amount(paid),
	}
	if g != nil {
		attrs["id"] = strconv.FormatUint(g.ID, 10)
		attrs["asset"] = addr(g.Asset)
		attrs["redeemedAmount"] = amount(g.RedeemedAmount)
	}
	return &types.Event{Type: EventTypeRedemption, Attributes: attrs}
}

// NewTransferredEvent returns the canonical payload for an ownership change.
func NewTransferredEvent(id uint64, from, to [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeTransferred,
		Attributes: map[string]string{
			"id":   strconv.FormatUint(id, 10),
			"from": addr(from),
			"to":   addr(to),
		},
	}
}

// NewApprovedEvent returns the canonical payload for a per-grant approval
// change.
func NewApprovedEvent(id uint64, owner, spender [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeApproved,
		Attributes: map[string]string{
			"id":       strconv.FormatUint(id, 10),
			"owner":    addr(owner),
			"approved": addr(spender),
		},
	}
}

// NewOperatorApprovedEvent returns the canonical payload for an operator
// grant or revocation.
func NewOperatorApprovedEvent(owner, operator [20]byte, approved bool) *types.Event {
	return &types.Event{
		Type: EventTypeOperatorApproved,
		Attributes: map[string]string{
			"owner":    addr(owner),
			"operator": addr(operator),
			"approved": strconv.FormatBool(approved),
		},
	}
}

// NewSuppliedEvent returns the canonical payload for a custody supply.
func NewSuppliedEvent(supplier, asset [20]byte, amt *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeSupplied,
		Attributes: map[string]string{
			"supplier": addr(supplier),
			"asset":    addr(asset),
			"amount":   amount(amt),
		},
	}
}

// NewWithdrawnEvent returns the canonical payload for a treasury withdrawal.
func NewWithdrawnEvent(withdrawer, asset [20]byte, amt *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"withdrawer": addr(withdrawer),
			"asset":      addr(asset),
			"amount":     amount(amt),
		},
	}
}

// NewAdminNominatedEvent returns the canonical payload for an admin
// nomination.
func NewAdminNominatedEvent(nominee [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeAdminNominated,
		Attributes: map[string]string{
			"nominee": addr(nominee),
		},
	}
}

// NewAdminChangedEvent returns the canonical payload for a completed admin
// handover.
func NewAdminChangedEvent(previous, next [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeAdminChanged,
		Attributes: map[string]string{
			"previous": addr(previous),
			"admin":    addr(next),
		},
	}
}
