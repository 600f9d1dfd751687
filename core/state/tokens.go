package state

import (
	"fmt"
	"math/big"

	"vester/native/grant"
)

// Asset ledger: per-(account, asset) balances and per-(owner, spender,
// asset) allowances, the custody substrate the redemption processor pays out
// of. Amounts are arbitrary-precision integers; no operation can wrap.

func tokenBalanceKey(addr, asset [20]byte) []byte {
	return storageKey(tokenBalancePrefix, asset[:], addr[:])
}

func tokenAllowanceKey(owner, spender, asset [20]byte) []byte {
	return storageKey(tokenAllowancePrefix, asset[:], owner[:], spender[:])
}

// TokenBalance returns the account's balance of the asset.
func (m *Manager) TokenBalance(addr, asset [20]byte) (*big.Int, error) {
	return m.loadBigInt(tokenBalanceKey(addr, asset))
}

// TokenSetBalance overwrites the account's balance of the asset. It exists
// for genesis seeding and tests; regular movement goes through
// TokenTransfer.
func (m *Manager) TokenSetBalance(addr, asset [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: balance must be non-negative")
	}
	return m.writeBigInt(tokenBalanceKey(addr, asset), amount)
}

// TokenMint credits freshly issued units of the asset to the account.
func (m *Manager) TokenMint(addr, asset [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: mint amount must be positive")
	}
	balance, err := m.TokenBalance(addr, asset)
	if err != nil {
		return err
	}
	return m.writeBigInt(tokenBalanceKey(addr, asset), new(big.Int).Add(balance, amount))
}

// TokenTransfer moves the amount between accounts, failing with
// grant.ErrInsufficientBalance when the source cannot cover it.
func (m *Manager) TokenTransfer(from, to, asset [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: negative transfer amount")
	}
	if amount.Sign() == 0 || from == to {
		if amount.Sign() > 0 {
			balance, err := m.TokenBalance(from, asset)
			if err != nil {
				return err
			}
			if balance.Cmp(amount) < 0 {
				return grant.ErrInsufficientBalance
			}
		}
		return nil
	}
	fromBalance, err := m.TokenBalance(from, asset)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return grant.ErrInsufficientBalance
	}
	toBalance, err := m.TokenBalance(to, asset)
	if err != nil {
		return err
	}
	if err := m.writeBigInt(tokenBalanceKey(from, asset), new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := m.writeBigInt(tokenBalanceKey(to, asset), new(big.Int).Add(toBalance, amount)); err != nil {
		if restoreErr := m.writeBigInt(tokenBalanceKey(from, asset), fromBalance); restoreErr != nil {
			return fmt.Errorf("state: rollback transfer: %v (after %w)", restoreErr, err)
		}
		return err
	}
	return nil
}

// TokenApprove sets the spender's allowance over the owner's balance of the
// asset.
func (m *Manager) TokenApprove(owner, spender, asset [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: allowance must be non-negative")
	}
	return m.writeBigInt(tokenAllowanceKey(owner, spender, asset), amount)
}

// TokenAllowance returns the spender's remaining allowance over the owner's
// balance of the asset.
func (m *Manager) TokenAllowance(owner, spender, asset [20]byte) (*big.Int, error) {
	return m.loadBigInt(tokenAllowanceKey(owner, spender, asset))
}

// TokenTransferFrom pulls tokens from the owner on the spender's authority,
// debiting the allowance first. The pull fails with
// grant.ErrInsufficientAllowance before any balance is touched.
func (m *Manager) TokenTransferFrom(spender, owner, to, asset [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: pull amount must be positive")
	}
	allowance, err := m.TokenAllowance(owner, spender, asset)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return grant.ErrInsufficientAllowance
	}
	if err := m.writeBigInt(tokenAllowanceKey(owner, spender, asset), new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	if err := m.TokenTransfer(owner, to, asset, amount); err != nil {
		if restoreErr := m.writeBigInt(tokenAllowanceKey(owner, spender, asset), allowance); restoreErr != nil {
			return fmt.Errorf("state: rollback allowance: %v (after %w)", restoreErr, err)
		}
		return err
	}
	return nil
}

// TokenUndoTransferFrom reverses a completed TokenTransferFrom: the tokens
// move from the destination back to the owner and the spender's allowance is
// re-credited, leaving the ledger as it was before the pull.
func (m *Manager) TokenUndoTransferFrom(spender, owner, from [20]byte, asset [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: undo amount must be positive")
	}
	if err := m.TokenTransfer(from, owner, asset, amount); err != nil {
		return err
	}
	allowance, err := m.TokenAllowance(owner, spender, asset)
	if err != nil {
		return err
	}
	return m.writeBigInt(tokenAllowanceKey(owner, spender, asset), new(big.Int).Add(allowance, amount))
}
