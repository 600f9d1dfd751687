package state

import (
	"encoding/binary"
	"fmt"

	"vester/native/grant"
)

func idBytes(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func grantOwnerKey(id uint64) []byte {
	return storageKey(grantOwnerPrefix, idBytes(id))
}

func ownedCountKey(owner [20]byte) []byte {
	return storageKey(ownedCountPrefix, owner[:])
}

func ownedIndexKey(owner [20]byte, index uint64) []byte {
	return storageKey(ownedIndexPrefix, owner[:], idBytes(index))
}

func ownedPosKey(id uint64) []byte {
	return storageKey(ownedPosPrefix, idBytes(id))
}

func approvalKey(id uint64) []byte {
	return storageKey(approvalPrefix, idBytes(id))
}

func operatorKey(owner, operator [20]byte) []byte {
	return storageKey(operatorPrefix, owner[:], operator[:])
}

// OwnerOf returns the current holder of the grant.
func (m *Manager) OwnerOf(id uint64) ([20]byte, bool) {
	return m.loadAddress(grantOwnerKey(id))
}

func (m *Manager) appendOwned(owner [20]byte, id uint64) error {
	count, err := m.loadUint64(ownedCountKey(owner))
	if err != nil {
		return err
	}
	if err := m.writeUint64(ownedIndexKey(owner, count), id); err != nil {
		return err
	}
	if err := m.writeUint64(ownedPosKey(id), count); err != nil {
		return err
	}
	return m.writeUint64(ownedCountKey(owner), count+1)
}

// removeOwned drops the id from the owner's enumeration index with a
// swap-remove so the index stays dense.
func (m *Manager) removeOwned(owner [20]byte, id uint64) error {
	count, err := m.loadUint64(ownedCountKey(owner))
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("state: ownership index empty for transfer of grant %d", id)
	}
	pos, err := m.loadUint64(ownedPosKey(id))
	if err != nil {
		return err
	}
	last := count - 1
	if pos != last {
		lastID, err := m.loadUint64(ownedIndexKey(owner, last))
		if err != nil {
			return err
		}
		if err := m.writeUint64(ownedIndexKey(owner, pos), lastID); err != nil {
			return err
		}
		if err := m.writeUint64(ownedPosKey(lastID), pos); err != nil {
			return err
		}
	}
	if err := m.remove(ownedIndexKey(owner, last)); err != nil {
		return err
	}
	return m.writeUint64(ownedCountKey(owner), last)
}

// OwnerSet assigns ownership of a freshly minted grant. It must only be used
// for ids without an existing holder; transfers go through OwnerTransfer.
func (m *Manager) OwnerSet(id uint64, owner [20]byte) error {
	if owner == ([20]byte{}) {
		return fmt.Errorf("state: owner must not be the zero address")
	}
	if _, exists := m.OwnerOf(id); exists {
		return fmt.Errorf("state: grant %d already has an owner", id)
	}
	if err := m.writeAddress(grantOwnerKey(id), owner); err != nil {
		return err
	}
	return m.appendOwned(owner, id)
}

// OwnerTransfer moves the grant between holders and maintains both
// enumeration indexes. Any per-grant approval is cleared.
func (m *Manager) OwnerTransfer(id uint64, from, to [20]byte) error {
	current, ok := m.OwnerOf(id)
	if !ok {
		return grant.ErrNotFound
	}
	if current != from {
		return grant.ErrWrongOwner
	}
	if to == ([20]byte{}) {
		return fmt.Errorf("state: owner must not be the zero address")
	}
	if from == to {
		return nil
	}
	if err := m.removeOwned(from, id); err != nil {
		return err
	}
	if err := m.appendOwned(to, id); err != nil {
		return err
	}
	if err := m.writeAddress(grantOwnerKey(id), to); err != nil {
		return err
	}
	return m.remove(approvalKey(id))
}

// OwnedCount returns how many grants the account holds.
func (m *Manager) OwnedCount(owner [20]byte) (uint64, error) {
	return m.loadUint64(ownedCountKey(owner))
}

// OwnedGrantAt returns the id at the given position of the owner's
// enumeration index.
func (m *Manager) OwnedGrantAt(owner [20]byte, index uint64) (uint64, error) {
	count, err := m.loadUint64(ownedCountKey(owner))
	if err != nil {
		return 0, err
	}
	if index >= count {
		return 0, grant.ErrNotFound
	}
	return m.loadUint64(ownedIndexKey(owner, index))
}

// ApprovedFor returns the approved spender for the grant, if any.
func (m *Manager) ApprovedFor(id uint64) ([20]byte, bool) {
	return m.loadAddress(approvalKey(id))
}

// ApproveSet stores (or clears, for the zero address) a per-grant approval.
func (m *Manager) ApproveSet(id uint64, spender [20]byte) error {
	if spender == ([20]byte{}) {
		return m.remove(approvalKey(id))
	}
	return m.writeAddress(approvalKey(id), spender)
}

// OperatorApproved reports whether the operator may act on all of the
// owner's grants.
func (m *Manager) OperatorApproved(owner, operator [20]byte) (bool, error) {
	_, ok := m.load(operatorKey(owner, operator))
	return ok, nil
}

// OperatorSet stores or clears a blanket operator approval.
func (m *Manager) OperatorSet(owner, operator [20]byte, approved bool) error {
	key := operatorKey(owner, operator)
	if !approved {
		return m.remove(key)
	}
	return m.write(key, []byte{1})
}
