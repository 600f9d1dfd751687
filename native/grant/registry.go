package grant

// Ownership registry operations. Grants follow a non-fungible ownership
// model: each id has exactly one holder, holders may delegate per-grant
// approvals or blanket operators, and per-account enumeration is maintained
// incrementally so batch redemption never scans the full ledger. Transferring
// a grant never touches its vesting terms.

// OwnerOf returns the current holder of the grant.
func (e *Engine) OwnerOf(id uint64) ([20]byte, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, errNilState
	}
	owner, ok := e.state.OwnerOf(id)
	if !ok {
		return [20]byte{}, ErrNotFound
	}
	return owner, nil
}

// BalanceOf returns how many grants the account currently holds. Cancelled
// grants still count; cancellation does not burn the position.
func (e *Engine) BalanceOf(account [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.OwnedCount(account)
}

// TokenOfOwnerByIndex enumerates the account's grants without a full scan.
func (e *Engine) TokenOfOwnerByIndex(account [20]byte, index uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	count, err := e.state.OwnedCount(account)
	if err != nil {
		return 0, err
	}
	if index >= count {
		return 0, ErrNotFound
	}
	return e.state.OwnedGrantAt(account, index)
}

func (e *Engine) transferAuthorized(caller, owner [20]byte, id uint64) (bool, error) {
	if caller == owner {
		return true, nil
	}
	if approved, ok := e.state.ApprovedFor(id); ok && approved == caller {
		return true, nil
	}
	return e.state.OperatorApproved(owner, caller)
}

// Transfer moves the grant from one holder to another. The caller must be
// the from-account, its approved spender for this grant, or one of its
// operators. Any per-grant approval is cleared on transfer.
func (e *Engine) Transfer(caller [20]byte, id uint64, from, to [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	owner, ok := e.state.OwnerOf(id)
	if !ok {
		return ErrNotFound
	}
	if owner != from {
		return ErrWrongOwner
	}
	if to == ([20]byte{}) {
		return ErrInvalidRecipient
	}
	authorized, err := e.transferAuthorized(caller, owner, id)
	if err != nil {
		return err
	}
	if !authorized {
		return ErrNotAuthorized
	}
	if err := e.state.OwnerTransfer(id, from, to); err != nil {
		return err
	}
	e.emit(NewTransferredEvent(id, from, to))
	return nil
}

// Approve delegates the right to transfer a single grant. The caller must be
// the holder or one of the holder's operators. The zero address clears the
// approval.
func (e *Engine) Approve(caller [20]byte, id uint64, spender [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	owner, ok := e.state.OwnerOf(id)
	if !ok {
		return ErrNotFound
	}
	if caller != owner {
		operator, err := e.state.OperatorApproved(owner, caller)
		if err != nil {
			return err
		}
		if !operator {
			return ErrNotAuthorized
		}
	}
	if err := e.state.ApproveSet(id, spender); err != nil {
		return err
	}
	e.emit(NewApprovedEvent(id, owner, spender))
	return nil
}

// SetApprovalForAll grants or revokes an operator over every grant the
// caller holds, now and in the future.
func (e *Engine) SetApprovalForAll(caller, operator [20]byte, approved bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if operator == ([20]byte{}) || operator == caller {
		return ErrNotAuthorized
	}
	if err := e.state.OperatorSet(caller, operator, approved); err != nil {
		return err
	}
	e.emit(NewOperatorApprovedEvent(caller, operator, approved))
	return nil
}

// ApprovedFor returns the approved spender for the grant, if any.
func (e *Engine) ApprovedFor(id uint64) ([20]byte, bool, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, false, errNilState
	}
	if _, ok := e.state.OwnerOf(id); !ok {
		return [20]byte{}, false, ErrNotFound
	}
	approved, ok := e.state.ApprovedFor(id)
	return approved, ok, nil
}

// IsOperator reports whether the operator may act on all of owner's grants.
func (e *Engine) IsOperator(owner, operator [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.OperatorApproved(owner, operator)
}
