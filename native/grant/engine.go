package grant

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"vester/core/events"
	"vester/core/types"
)

var errNilState = errors.New("grant engine: state not configured")

// engineState is the narrow view of the state manager the engine mutates.
// Implementations must apply each method atomically; the engine composes them
// with compensating writes so every public operation either fully commits or
// leaves state untouched.
type engineState interface {
	GrantPut(*Grant) error
	GrantGet(id uint64) (*Grant, bool)
	GrantNextID() (uint64, error)
	GrantCount() (uint64, error)

	OwnerOf(id uint64) ([20]byte, bool)
	OwnerSet(id uint64, owner [20]byte) error
	OwnerTransfer(id uint64, from, to [20]byte) error
	OwnedCount(owner [20]byte) (uint64, error)
	OwnedGrantAt(owner [20]byte, index uint64) (uint64, error)
	ApprovedFor(id uint64) ([20]byte, bool)
	ApproveSet(id uint64, spender [20]byte) error
	OperatorApproved(owner, operator [20]byte) (bool, error)
	OperatorSet(owner, operator [20]byte, approved bool) error

	AdminGet() ([20]byte, error)
	AdminSet(addr [20]byte) error
	NomineeGet() ([20]byte, error)
	NomineeSet(addr [20]byte) error

	TokenBalance(addr [20]byte, asset [20]byte) (*big.Int, error)
	TokenTransfer(from, to [20]byte, asset [20]byte, amount *big.Int) error
	TokenTransferFrom(spender, owner, to [20]byte, asset [20]byte, amount *big.Int) error
	TokenUndoTransferFrom(spender, owner, from [20]byte, asset [20]byte, amount *big.Int) error
}

type grantEvent struct {
	evt *types.Event
}

func (e grantEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e grantEvent) Event() *types.Event { return e.evt }

// CustodyAddress returns the account that holds supplied tokens until they
// are paid out through redemptions.
func CustodyAddress() [20]byte {
	hash := ethcrypto.Keccak256([]byte("vester/custody"))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// Engine wires the grant ledger business logic with external state and event
// emitters. All mutating entry points validate authorization before touching
// state and persist ledger debits before moving custody tokens.
type Engine struct {
	state   engineState
	emitter events.Emitter
	custody [20]byte
	nowFn   func() int64
}

// NewEngine creates a grant engine with a no-op emitter and the default
// custody account. Callers can override both via the setters.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		custody: CustodyAddress(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCustody overrides the custody account holding supplied tokens.
func (e *Engine) SetCustody(addr [20]byte) { e.custody = addr }

// Custody returns the custody account the engine pays redemptions from.
func (e *Engine) Custody() [20]byte { return e.custody }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(grantEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadGrant(id uint64) (*Grant, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	g, ok := e.state.GrantGet(id)
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	admin, err := e.state.AdminGet()
	if err != nil {
		return err
	}
	if admin == ([20]byte{}) || caller != admin {
		return ErrNotAdmin
	}
	return nil
}

// --- Engine-level ownership (admin authority) ---

// InitializeAdmin installs the initial admin account. It may only be called
// once; subsequent handover goes through the nominate/accept protocol.
func (e *Engine) InitializeAdmin(admin [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if admin == ([20]byte{}) {
		return fmt.Errorf("grant: admin must not be the zero address")
	}
	current, err := e.state.AdminGet()
	if err != nil {
		return err
	}
	if current != ([20]byte{}) {
		return fmt.Errorf("grant: admin already initialized")
	}
	if err := e.state.AdminSet(admin); err != nil {
		return err
	}
	e.emit(NewAdminChangedEvent([20]byte{}, admin))
	return nil
}

// NominateAdmin records a candidate for the admin role. Only the current
// admin may nominate; the nomination takes effect once the nominee accepts.
func (e *Engine) NominateAdmin(caller, nominee [20]byte) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.state.NomineeSet(nominee); err != nil {
		return err
	}
	e.emit(NewAdminNominatedEvent(nominee))
	return nil
}

// AcceptAdmin completes a two-step admin handover. Only the nominated account
// may accept; acceptance clears the nomination and swaps the admin in the
// same state transition.
func (e *Engine) AcceptAdmin(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	nominee, err := e.state.NomineeGet()
	if err != nil {
		return err
	}
	if nominee == ([20]byte{}) || caller != nominee {
		return ErrNotNominee
	}
	previous, err := e.state.AdminGet()
	if err != nil {
		return err
	}
	if err := e.state.AdminSet(caller); err != nil {
		return err
	}
	if err := e.state.NomineeSet([20]byte{}); err != nil {
		if restoreErr := e.state.AdminSet(previous); restoreErr != nil {
			return errors.Join(err, fmt.Errorf("grant: rollback admin: %w", restoreErr))
		}
		return err
	}
	e.emit(NewAdminChangedEvent(previous, caller))
	return nil
}

// Admin returns the current admin account.
func (e *Engine) Admin() ([20]byte, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, errNilState
	}
	return e.state.AdminGet()
}

// NominatedAdmin returns the pending admin nomination, zero when none.
func (e *Engine) NominatedAdmin() ([20]byte, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, errNilState
	}
	return e.state.NomineeGet()
}

// --- Lifecycle ---

func validateTerms(startTime, cliffTime, vestInterval int64, intervalAmount, totalAmount, redeemedAmount *big.Int, now int64) error {
	if startTime <= 0 {
		return fmt.Errorf("%w: start time must be positive", ErrInvalidSchedule)
	}
	if startTime > now {
		return fmt.Errorf("%w: start time in the future", ErrInvalidSchedule)
	}
	if cliffTime < 0 {
		return fmt.Errorf("%w: negative cliff time", ErrInvalidSchedule)
	}
	if vestInterval <= 0 {
		return fmt.Errorf("%w: zero vest interval", ErrInvalidSchedule)
	}
	if intervalAmount == nil || intervalAmount.Sign() <= 0 {
		return fmt.Errorf("%w: interval amount must be positive", ErrInvalidSchedule)
	}
	if totalAmount == nil || totalAmount.Sign() < 0 {
		return fmt.Errorf("%w: negative total amount", ErrInvalidSchedule)
	}
	if redeemedAmount == nil || redeemedAmount.Sign() < 0 {
		return fmt.Errorf("%w: negative redeemed amount", ErrInvalidSchedule)
	}
	if redeemedAmount.Cmp(totalAmount) > 0 {
		return fmt.Errorf("%w: redeemed amount exceeds total", ErrInvalidSchedule)
	}
	return nil
}

func (e *Engine) createGrant(recipient, asset [20]byte, startTime, cliffTime int64, intervalAmount, totalAmount, redeemedAmount *big.Int, vestInterval int64) (*Grant, error) {
	id, err := e.state.GrantNextID()
	if err != nil {
		return nil, err
	}
	g := &Grant{
		ID:             id,
		Asset:          asset,
		StartTime:      startTime,
		CliffTime:      cliffTime,
		IntervalAmount: cloneBigInt(intervalAmount),
		TotalAmount:    cloneBigInt(totalAmount),
		RedeemedAmount: cloneBigInt(redeemedAmount),
		VestInterval:   vestInterval,
	}
	if err := e.state.GrantPut(g); err != nil {
		return nil, err
	}
	if err := e.state.OwnerSet(id, recipient); err != nil {
		return nil, err
	}
	return g, nil
}

// Mint creates a grant with the supplied terms and assigns it to the
// recipient. The redeemed amount may be pre-seeded to migrate an off-ledger
// vesting history. Admin only.
func (e *Engine) Mint(caller, recipient, asset [20]byte, startTime, cliffTime int64, intervalAmount, totalAmount, redeemedAmount *big.Int, vestInterval int64) (uint64, error) {
	if err := e.requireAdmin(caller); err != nil {
		return 0, err
	}
	if recipient == ([20]byte{}) {
		return 0, ErrInvalidRecipient
	}
	if err := validateTerms(startTime, cliffTime, vestInterval, intervalAmount, totalAmount, redeemedAmount, e.now()); err != nil {
		return 0, err
	}
	g, err := e.createGrant(recipient, asset, startTime, cliffTime, intervalAmount, totalAmount, redeemedAmount, vestInterval)
	if err != nil {
		return 0, err
	}
	e.emit(NewCreatedEvent(g, recipient))
	return g.ID, nil
}

// ReplaceGrant supersedes an existing grant: a fresh grant with the new terms
// is created under the same holder and the old grant is cancelled in place,
// its terms untouched, preserving the audit trail. Admin only.
func (e *Engine) ReplaceGrant(caller [20]byte, id uint64, asset [20]byte, startTime, cliffTime int64, intervalAmount, totalAmount, redeemedAmount *big.Int, vestInterval int64) (uint64, error) {
	if err := e.requireAdmin(caller); err != nil {
		return 0, err
	}
	old, err := e.loadGrant(id)
	if err != nil {
		return 0, err
	}
	if old.Cancelled {
		return 0, ErrAlreadyCancelled
	}
	holder, ok := e.state.OwnerOf(id)
	if !ok {
		return 0, ErrNotFound
	}
	if err := validateTerms(startTime, cliffTime, vestInterval, intervalAmount, totalAmount, redeemedAmount, e.now()); err != nil {
		return 0, err
	}
	replacement, err := e.createGrant(holder, asset, startTime, cliffTime, intervalAmount, totalAmount, redeemedAmount, vestInterval)
	if err != nil {
		return 0, err
	}
	old.Cancelled = true
	if err := e.state.GrantPut(old); err != nil {
		return 0, err
	}
	e.emit(NewCancelledEvent(old))
	e.emit(NewCreatedEvent(replacement, holder))
	return replacement.ID, nil
}

// CancelGrant marks the grant cancelled. The holder keeps the grant record
// for historical reference; nothing is burned or reassigned. Admin only.
func (e *Engine) CancelGrant(caller [20]byte, id uint64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	g, err := e.loadGrant(id)
	if err != nil {
		return err
	}
	if g.Cancelled {
		return ErrAlreadyCancelled
	}
	g.Cancelled = true
	if err := e.state.GrantPut(g); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(g))
	return nil
}

// --- Redemption ---

// redemption captures one committed ledger debit plus payout so a batch can
// be unwound if a later member fails.
type redemption struct {
	id     uint64
	amount *big.Int
	event  *types.Event
	undo   func() error
}

// redeemOne commits a single redemption: it debits the redeemed counter and
// persists the record before the custody payout is attempted, so any code
// reached through the token transfer observes an already-debited balance.
func (e *Engine) redeemOne(caller [20]byte, id uint64) (*redemption, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	owner, ok := e.state.OwnerOf(id)
	if !ok {
		return nil, ErrNotFound
	}
	if owner != caller {
		return nil, ErrNotAuthorized
	}
	g, err := e.loadGrant(id)
	if err != nil {
		return nil, err
	}
	available := AvailableForRedemption(g, e.now())
	if available.Sign() == 0 {
		return nil, ErrNothingAvailable
	}
	prev := g.Clone()
	g.RedeemedAmount = new(big.Int).Add(g.RedeemedAmount, available)
	if err := e.state.GrantPut(g); err != nil {
		return nil, err
	}
	if err := e.state.TokenTransfer(e.custody, caller, g.Asset, available); err != nil {
		if restoreErr := e.state.GrantPut(prev); restoreErr != nil {
			return nil, errors.Join(err, fmt.Errorf("grant: rollback record %d: %w", id, restoreErr))
		}
		return nil, err
	}
	asset := g.Asset
	return &redemption{
		id:     id,
		amount: available,
		event:  NewRedeemedEvent(g, caller, available),
		undo: func() error {
			if err := e.state.TokenTransfer(caller, e.custody, asset, available); err != nil {
				return err
			}
			return e.state.GrantPut(prev)
		},
	}, nil
}

func unwind(done []*redemption) error {
	var errs error
	for i := len(done) - 1; i >= 0; i-- {
		if err := done[i].undo(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("grant: unwind %d: %w", done[i].id, err))
		}
	}
	return errs
}

// Redeem pays out everything currently available on the grant to its holder.
func (e *Engine) Redeem(caller [20]byte, id uint64) (*big.Int, error) {
	r, err := e.redeemOne(caller, id)
	if err != nil {
		return nil, err
	}
	e.emit(r.event)
	return r.amount, nil
}

// RedeemWithTransfer pulls a caller-supplied deposit into custody before
// paying out the vested amount. The payout is never released unless the
// deposit pull succeeds first, and a failed payout returns the deposit.
func (e *Engine) RedeemWithTransfer(caller [20]byte, id uint64, depositAsset [20]byte, depositAmount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	deposit := cloneBigInt(depositAmount)
	if deposit.Sign() <= 0 {
		return nil, fmt.Errorf("grant: deposit amount must be positive")
	}
	if err := e.state.TokenTransferFrom(e.custody, caller, e.custody, depositAsset, deposit); err != nil {
		return nil, err
	}
	r, err := e.redeemOne(caller, id)
	if err != nil {
		// The deposit and the allowance it consumed both go back; the
		// caller must observe no effect from the aborted call.
		if returnErr := e.state.TokenUndoTransferFrom(e.custody, caller, e.custody, depositAsset, deposit); returnErr != nil {
			return nil, errors.Join(err, fmt.Errorf("grant: return deposit: %w", returnErr))
		}
		return nil, err
	}
	e.emit(r.event)
	return r.amount, nil
}

// RedeemMultiple redeems every listed grant. The batch is all-or-nothing:
// any failure, including a single id with nothing available, unwinds every
// debit and payout already made in the call.
func (e *Engine) RedeemMultiple(caller [20]byte, ids []uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	done := make([]*redemption, 0, len(ids))
	for _, id := range ids {
		r, err := e.redeemOne(caller, id)
		if err != nil {
			if unwindErr := unwind(done); unwindErr != nil {
				return nil, errors.Join(err, unwindErr)
			}
			return nil, err
		}
		done = append(done, r)
	}
	total := big.NewInt(0)
	for _, r := range done {
		total.Add(total, r.amount)
		e.emit(r.event)
	}
	return total, nil
}

// RedeemAll redeems every grant the caller holds that has a nonzero
// available amount, skipping the rest. Unlike RedeemMultiple the caller did
// not name specific ids, so zero-available grants are not an error; a real
// failure (for example a custody shortfall) still aborts the whole call.
func (e *Engine) RedeemAll(caller [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	count, err := e.state.OwnedCount(caller)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := e.state.OwnedGrantAt(caller, i)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	now := e.now()
	done := make([]*redemption, 0, len(ids))
	for _, id := range ids {
		g, err := e.loadGrant(id)
		if err != nil {
			if unwindErr := unwind(done); unwindErr != nil {
				return nil, errors.Join(err, unwindErr)
			}
			return nil, err
		}
		if AvailableForRedemption(g, now).Sign() == 0 {
			continue
		}
		r, err := e.redeemOne(caller, id)
		if err != nil {
			if unwindErr := unwind(done); unwindErr != nil {
				return nil, errors.Join(err, unwindErr)
			}
			return nil, err
		}
		done = append(done, r)
	}
	total := big.NewInt(0)
	for _, r := range done {
		total.Add(total, r.amount)
		e.emit(r.event)
	}
	return total, nil
}

// --- Custody ---

// Supply pulls tokens from the caller into the engine's custody. Anyone may
// supply; the pull requires a pre-authorized allowance for the custody
// account.
func (e *Engine) Supply(caller, asset [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("grant: supply amount must be positive")
	}
	if err := e.state.TokenTransferFrom(e.custody, caller, e.custody, asset, amt); err != nil {
		return err
	}
	e.emit(NewSuppliedEvent(caller, asset, amt))
	return nil
}

// Withdraw moves tokens from custody to the admin. It is deliberately not
// constrained by outstanding vested-but-unredeemed balances; the admin is
// trusted to rebalance the treasury. Admin only.
func (e *Engine) Withdraw(caller, asset [20]byte, amount *big.Int) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("grant: withdraw amount must be positive")
	}
	if err := e.state.TokenTransfer(e.custody, caller, asset, amt); err != nil {
		return err
	}
	e.emit(NewWithdrawnEvent(caller, asset, amt))
	return nil
}

// CustodyBalance reports the engine's custody balance for an asset.
func (e *Engine) CustodyBalance(asset [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TokenBalance(e.custody, asset)
}

// --- Reads ---

// Grant returns a copy of the stored grant record.
func (e *Engine) Grant(id uint64) (*Grant, error) {
	g, err := e.loadGrant(id)
	if err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

// AmountVestedAt evaluates the vesting schedule of a stored grant at the
// supplied time.
func (e *Engine) AmountVestedAt(id uint64, now int64) (*big.Int, error) {
	g, err := e.loadGrant(id)
	if err != nil {
		return nil, err
	}
	return AmountVested(g, now), nil
}

// AvailableAt reports the redeemable amount of a stored grant at the
// supplied time.
func (e *Engine) AvailableAt(id uint64, now int64) (*big.Int, error) {
	g, err := e.loadGrant(id)
	if err != nil {
		return nil, err
	}
	return AvailableForRedemption(g, now), nil
}

// TotalGrantCount returns the number of grants ever created.
func (e *Engine) TotalGrantCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.GrantCount()
}

// GrantIDByIndex enumerates grant ids in creation order. Ids are assigned
// sequentially from zero and never removed, so the index is the id.
func (e *Engine) GrantIDByIndex(index uint64) (uint64, error) {
	count, err := e.TotalGrantCount()
	if err != nil {
		return 0, err
	}
	if index >= count {
		return 0, ErrNotFound
	}
	return index, nil
}
