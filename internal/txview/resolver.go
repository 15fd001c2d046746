package txview

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Resolve maps every account index of an instruction to its address,
// in instruction order. Fails with ErrAccountIndexOutOfRange if any
// index falls outside the view's key list.
func Resolve(v *TransactionView, ins Instruction) ([]string, error) {
	out := make([]string, len(ins.Accounts))
	for i, idx := range ins.Accounts {
		if idx < 0 || idx >= len(v.AccountKeys) {
			return nil, fmt.Errorf("%w: index %d, %d keys", ErrAccountIndexOutOfRange, idx, len(v.AccountKeys))
		}
		out[i] = v.AccountKeys[idx]
	}
	return out, nil
}

// ResolveAt resolves a single positional account of an instruction.
// pos is a position within the instruction's account references, not a
// direct index into the key list.
func ResolveAt(v *TransactionView, ins Instruction, pos int) (string, error) {
	if pos < 0 || pos >= len(ins.Accounts) {
		return "", fmt.Errorf("%w: position %d, instruction has %d accounts", ErrAccountIndexOutOfRange, pos, len(ins.Accounts))
	}
	idx := ins.Accounts[pos]
	if idx < 0 || idx >= len(v.AccountKeys) {
		return "", fmt.Errorf("%w: index %d, %d keys", ErrAccountIndexOutOfRange, idx, len(v.AccountKeys))
	}
	return v.AccountKeys[idx], nil
}

// IsOnCurve reports whether the address decodes to a valid ed25519 point.
// Wallet addresses are on-curve; program-derived addresses (bonding
// curves, pool vaults) are not.
func IsOnCurve(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
