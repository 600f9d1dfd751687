package state

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"vester/storage"
)

// Manager provides durable, keyed access to every piece of engine state: the
// grant records, the ownership registry and its per-account enumeration
// index, the asset ledger custody balances and allowances, and the admin
// slots. It performs no validation beyond record integrity; the engine
// pre-validates every mutation.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func storageKey(prefix []byte, parts ...[]byte) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

// load returns the raw value for a key, reporting absence for both missing
// keys and empty values.
func (m *Manager) load(key []byte) ([]byte, bool) {
	data, err := m.db.Get(key)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (m *Manager) write(key, value []byte) error {
	return m.db.Put(key, value)
}

func (m *Manager) remove(key []byte) error {
	return m.db.Delete(key)
}

func (m *Manager) loadBigInt(key []byte) (*big.Int, error) {
	data, ok := m.load(key)
	if !ok {
		return big.NewInt(0), nil
	}
	value := new(big.Int)
	if err := rlp.DecodeBytes(data, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (m *Manager) writeBigInt(key []byte, value *big.Int) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.write(key, encoded)
}

func (m *Manager) loadUint64(key []byte) (uint64, error) {
	data, ok := m.load(key)
	if !ok {
		return 0, nil
	}
	var value uint64
	if err := rlp.DecodeBytes(data, &value); err != nil {
		return 0, err
	}
	return value, nil
}

func (m *Manager) writeUint64(key []byte, value uint64) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.write(key, encoded)
}

func (m *Manager) loadAddress(key []byte) ([20]byte, bool) {
	data, ok := m.load(key)
	if !ok || len(data) != 20 {
		return [20]byte{}, false
	}
	var addr [20]byte
	copy(addr[:], data)
	return addr, true
}

func (m *Manager) writeAddress(key []byte, addr [20]byte) error {
	return m.write(key, addr[:])
}
