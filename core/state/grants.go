package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"vester/native/grant"
)

func grantRecordKey(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return storageKey(grantRecordPrefix, buf[:])
}

// storedGrant is the RLP wire form of a grant record. Timestamps are stored
// as big integers because RLP has no signed integer encoding.
type storedGrant struct {
	ID             uint64
	Asset          [20]byte
	StartTime      *big.Int
	CliffTime      *big.Int
	IntervalAmount *big.Int
	TotalAmount    *big.Int
	RedeemedAmount *big.Int
	VestInterval   *big.Int
	Cancelled      bool
}

func newStoredGrant(g *grant.Grant) *storedGrant {
	if g == nil {
		return nil
	}
	clone := g.Clone()
	return &storedGrant{
		ID:             clone.ID,
		Asset:          clone.Asset,
		StartTime:      big.NewInt(clone.StartTime),
		CliffTime:      big.NewInt(clone.CliffTime),
		IntervalAmount: clone.IntervalAmount,
		TotalAmount:    clone.TotalAmount,
		RedeemedAmount: clone.RedeemedAmount,
		VestInterval:   big.NewInt(clone.VestInterval),
		Cancelled:      clone.Cancelled,
	}
}

func (s *storedGrant) toGrant() (*grant.Grant, error) {
	if s == nil {
		return nil, fmt.Errorf("grant: nil storage record")
	}
	out := &grant.Grant{
		ID:             s.ID,
		Asset:          s.Asset,
		IntervalAmount: big.NewInt(0),
		TotalAmount:    big.NewInt(0),
		RedeemedAmount: big.NewInt(0),
		Cancelled:      s.Cancelled,
	}
	if s.StartTime != nil {
		out.StartTime = s.StartTime.Int64()
	}
	if s.CliffTime != nil {
		out.CliffTime = s.CliffTime.Int64()
	}
	if s.VestInterval != nil {
		out.VestInterval = s.VestInterval.Int64()
	}
	if s.IntervalAmount != nil {
		out.IntervalAmount = new(big.Int).Set(s.IntervalAmount)
	}
	if s.TotalAmount != nil {
		out.TotalAmount = new(big.Int).Set(s.TotalAmount)
	}
	if s.RedeemedAmount != nil {
		out.RedeemedAmount = new(big.Int).Set(s.RedeemedAmount)
	}
	return grant.SanitizeGrant(out)
}

// GrantPut stores the grant record, overwriting any previous version.
func (m *Manager) GrantPut(g *grant.Grant) error {
	sanitized, err := grant.SanitizeGrant(g)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(newStoredGrant(sanitized))
	if err != nil {
		return err
	}
	return m.write(grantRecordKey(sanitized.ID), encoded)
}

// GrantGet loads the grant record for an id.
func (m *Manager) GrantGet(id uint64) (*grant.Grant, bool) {
	data, ok := m.load(grantRecordKey(id))
	if !ok {
		return nil, false
	}
	stored := new(storedGrant)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false
	}
	record, err := stored.toGrant()
	if err != nil {
		return nil, false
	}
	return record, true
}

// GrantNextID allocates the next grant identifier. Identifiers are strictly
// increasing from zero and never reused, even across cancellations.
func (m *Manager) GrantNextID() (uint64, error) {
	key := storageKey(grantCounterKey)
	current, err := m.loadUint64(key)
	if err != nil {
		return 0, err
	}
	if err := m.writeUint64(key, current+1); err != nil {
		return 0, err
	}
	return current, nil
}

// GrantCount returns the number of grants ever created.
func (m *Manager) GrantCount() (uint64, error) {
	return m.loadUint64(storageKey(grantCounterKey))
}
