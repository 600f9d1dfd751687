package state

// Engine-level admin authority slots. These are distinct from per-grant
// ownership: the admin mints, replaces, cancels grants and withdraws custody
// funds, while each grant's holder only redeems and transfers.

// AdminGet returns the current admin account, zero when uninitialized.
func (m *Manager) AdminGet() ([20]byte, error) {
	addr, _ := m.loadAddress(storageKey(adminKey))
	return addr, nil
}

// AdminSet overwrites the admin slot.
func (m *Manager) AdminSet(addr [20]byte) error {
	return m.writeAddress(storageKey(adminKey), addr)
}

// NomineeGet returns the pending admin nomination, zero when none.
func (m *Manager) NomineeGet() ([20]byte, error) {
	addr, _ := m.loadAddress(storageKey(adminNomineeKey))
	return addr, nil
}

// NomineeSet stores the pending nomination; the zero address clears it.
func (m *Manager) NomineeSet(addr [20]byte) error {
	if addr == ([20]byte{}) {
		return m.remove(storageKey(adminNomineeKey))
	}
	return m.writeAddress(storageKey(adminNomineeKey), addr)
}
