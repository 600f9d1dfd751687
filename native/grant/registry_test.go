package grant

import (
	"errors"
	"math/big"
	"testing"
)

func TestTransferByOwner(t *testing.T) {
	engine, state, emitter := newTestEngine(t)
	id := mintTestGrant(t, engine, granteeAddr)
	emitter.seen = nil

	if err := engine.Transfer(granteeAddr, id, granteeAddr, otherAddr); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, err := engine.OwnerOf(id)
	if err != nil {
		t.Fatalf("owner of: %v", err)
	}
	if owner != otherAddr {
		t.Fatal("ownership not moved")
	}
	if count, _ := engine.BalanceOf(granteeAddr); count != 0 {
		t.Fatalf("sender still holds %d grants", count)
	}
	if count, _ := engine.BalanceOf(otherAddr); count != 1 {
		t.Fatalf("recipient holds %d grants", count)
	}
	if got := emitter.types(); len(got) != 1 || got[0] != EventTypeTransferred {
		t.Fatalf("unexpected events %v", got)
	}

	// Transfer never touches vesting terms.
	g, _ := state.GrantGet(id)
	if g.IntervalAmount.Cmp(big.NewInt(2500)) != 0 || g.TotalAmount.Cmp(big.NewInt(30000)) != 0 {
		t.Fatalf("terms mutated on transfer: %+v", g)
	}
}

func TestTransferValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	id := mintTestGrant(t, engine, granteeAddr)

	if err := engine.Transfer(granteeAddr, 99, granteeAddr, otherAddr); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := engine.Transfer(granteeAddr, id, otherAddr, granteeAddr); !errors.Is(err, ErrWrongOwner) {
		t.Fatalf("expected ErrWrongOwner, got %v", err)
	}
	if err := engine.Transfer(granteeAddr, id, granteeAddr, [20]byte{}); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient for zero recipient, got %v", err)
	}
	if err := engine.Transfer(otherAddr, id, granteeAddr, otherAddr); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for stranger, got %v", err)
	}
}

func TestTransferByApprovedSpender(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	id := mintTestGrant(t, engine, granteeAddr)
	spender := newTestAddress(0x03)

	if err := engine.Approve(spender, id, spender); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for self-approval by stranger, got %v", err)
	}
	if err := engine.Approve(granteeAddr, id, spender); err != nil {
		t.Fatalf("approve: %v", err)
	}
	approved, ok, err := engine.ApprovedFor(id)
	if err != nil || !ok || approved != spender {
		t.Fatalf("approval not recorded: %v %v %x", err, ok, approved)
	}

	if err := engine.Transfer(spender, id, granteeAddr, otherAddr); err != nil {
		t.Fatalf("approved transfer: %v", err)
	}
	// The approval is single-use: it is cleared by the transfer.
	if _, ok, _ := engine.ApprovedFor(id); ok {
		t.Fatal("approval survived the transfer")
	}
	if err := engine.Transfer(spender, id, otherAddr, granteeAddr); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized after approval cleared, got %v", err)
	}
}

func TestApprovalCleared(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	id := mintTestGrant(t, engine, granteeAddr)
	spender := newTestAddress(0x03)

	if err := engine.Approve(granteeAddr, id, spender); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := engine.Approve(granteeAddr, id, [20]byte{}); err != nil {
		t.Fatalf("clear approval: %v", err)
	}
	if _, ok, _ := engine.ApprovedFor(id); ok {
		t.Fatal("approval not cleared")
	}
}

func TestOperator(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	idA := mintTestGrant(t, engine, granteeAddr)
	idB := mintTestGrant(t, engine, granteeAddr)
	operator := newTestAddress(0x04)

	if err := engine.SetApprovalForAll(granteeAddr, [20]byte{}, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for zero operator, got %v", err)
	}
	if err := engine.SetApprovalForAll(granteeAddr, granteeAddr, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for self operator, got %v", err)
	}
	if err := engine.SetApprovalForAll(granteeAddr, operator, true); err != nil {
		t.Fatalf("set operator: %v", err)
	}
	if ok, _ := engine.IsOperator(granteeAddr, operator); !ok {
		t.Fatal("operator not recorded")
	}

	// Operators act on every grant, and may also delegate approvals.
	if err := engine.Transfer(operator, idA, granteeAddr, otherAddr); err != nil {
		t.Fatalf("operator transfer: %v", err)
	}
	spender := newTestAddress(0x05)
	if err := engine.Approve(operator, idB, spender); err != nil {
		t.Fatalf("operator approve: %v", err)
	}

	if err := engine.SetApprovalForAll(granteeAddr, operator, false); err != nil {
		t.Fatalf("revoke operator: %v", err)
	}
	if err := engine.Transfer(operator, idB, granteeAddr, otherAddr); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized after revocation, got %v", err)
	}
}

func TestOwnerEnumerationAfterTransfers(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	for i := 0; i < 3; i++ {
		mintTestGrant(t, engine, granteeAddr)
	}
	if err := engine.Transfer(granteeAddr, 0, granteeAddr, otherAddr); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	count, _ := engine.BalanceOf(granteeAddr)
	if count != 2 {
		t.Fatalf("expected 2 remaining, got %d", count)
	}
	seen := make(map[uint64]bool)
	for i := uint64(0); i < count; i++ {
		id, err := engine.TokenOfOwnerByIndex(granteeAddr, i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}
		seen[id] = true
	}
	if seen[0] || !seen[1] || !seen[2] {
		t.Fatalf("unexpected enumeration %v", seen)
	}
	if _, err := engine.TokenOfOwnerByIndex(granteeAddr, count); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound past the end, got %v", err)
	}
}

func TestGlobalEnumeration(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	for i := 0; i < 3; i++ {
		mintTestGrant(t, engine, granteeAddr)
	}
	count, err := engine.TotalGrantCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
	for i := uint64(0); i < count; i++ {
		id, err := engine.GrantIDByIndex(i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}
		if id != i {
			t.Fatalf("expected id %d at index %d, got %d", i, i, id)
		}
	}
	if _, err := engine.GrantIDByIndex(count); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound past the end, got %v", err)
	}
}
