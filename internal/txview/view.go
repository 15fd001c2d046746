// Package txview builds a canonical, read-only view over a transaction
// regardless of how the provider encoded it (legacy flat key list or v0
// with address lookup tables) and resolves instruction account indices
// against it.
package txview

import (
	"errors"

	"github.com/mr-tron/base58"

	"solana-whale-watch/internal/solana"
)

// Normalization and resolution errors.
var (
	// ErrMissingMessage means the transaction carries no message body.
	ErrMissingMessage = errors.New("txview: transaction has no message")
	// ErrUnresolvedAccount means the message uses address lookup tables
	// but the resolved addresses were not delivered with it.
	ErrUnresolvedAccount = errors.New("txview: lookup table addresses not resolved")
	// ErrAccountIndexOutOfRange means an instruction references an
	// account index beyond the key list.
	ErrAccountIndexOutOfRange = errors.New("txview: account index out of range")
)

// Instruction is one instruction normalized to index positions.
type Instruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           []byte // decoded payload; nil if the encoding was invalid
}

// TransactionView is the canonical view over one transaction. AccountKeys
// is complete (static keys followed by lookup-table writable then readonly
// addresses) and must be treated as read-only once built.
type TransactionView struct {
	Signature    string
	Slot         int64
	BlockTime    int64 // Unix seconds, 0 if unknown
	Success      bool
	AccountKeys  []string
	Instructions []Instruction
	Logs         []string
}

// Build normalizes a provider transaction into a TransactionView.
// Structural failures (missing message, unresolvable lookup tables)
// return an error; the record should then be skipped.
func Build(tx *solana.Transaction) (*TransactionView, error) {
	if tx == nil || tx.Message == nil {
		return nil, ErrMissingMessage
	}

	keys := make([]string, 0, len(tx.Message.AccountKeys))
	keys = append(keys, tx.Message.AccountKeys...)

	if len(tx.Message.AddressTableLookups) > 0 {
		if tx.Meta == nil || tx.Meta.LoadedAddresses == nil {
			return nil, ErrUnresolvedAccount
		}
		keys = append(keys, tx.Meta.LoadedAddresses.Writable...)
		keys = append(keys, tx.Meta.LoadedAddresses.Readonly...)
	}

	v := &TransactionView{
		Signature:   tx.Signature,
		Slot:        tx.Slot,
		BlockTime:   tx.BlockTime,
		Success:     tx.Meta == nil || tx.Meta.Err == nil,
		AccountKeys: keys,
	}
	if tx.Meta != nil {
		v.Logs = tx.Meta.LogMessages
	}

	for _, ins := range tx.Message.Instructions {
		normalized := Instruction{
			ProgramIDIndex: ins.ProgramIDIndex,
			Accounts:       ins.Accounts,
		}
		// Invalid base58 leaves Data nil; discriminator matching then
		// fails and the instruction is skipped downstream.
		if data, err := base58.Decode(ins.Data); err == nil {
			normalized.Data = data
		}
		v.Instructions = append(v.Instructions, normalized)
	}

	return v, nil
}

// ProgramID returns the program identifier of an instruction.
func (v *TransactionView) ProgramID(ins Instruction) (string, error) {
	if ins.ProgramIDIndex < 0 || ins.ProgramIDIndex >= len(v.AccountKeys) {
		return "", ErrAccountIndexOutOfRange
	}
	return v.AccountKeys[ins.ProgramIDIndex], nil
}
