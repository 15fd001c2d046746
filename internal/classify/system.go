package classify

import (
	"solana-whale-watch/internal/codec"
	"solana-whale-watch/internal/txview"
)

// SystemProgram is the Solana system program ID.
const SystemProgram = "11111111111111111111111111111111"

// systemTransferTag is the system program's Transfer instruction index
// (a 4-byte little-endian discriminator).
const systemTransferTag = 2

// SystemTransferHandler decodes native SOL transfers into
// threshold-gated LargeTransfer events.
type SystemTransferHandler struct {
	minLamports uint64 // inclusive threshold
}

// NewSystemTransferHandler creates a system transfer handler.
// minLamports of 0 disables SOL transfer events.
func NewSystemTransferHandler(minLamports uint64) *SystemTransferHandler {
	return &SystemTransferHandler{minLamports: minLamports}
}

// Classify decodes a system transfer: u32 instruction tag, then the
// lamport amount. Accounts: 0 funder, 1 recipient.
func (h *SystemTransferHandler) Classify(v *txview.TransactionView, ins txview.Instruction) (Event, error) {
	if h.minLamports == 0 {
		return nil, nil
	}

	tag, n, err := codec.ReadUint32(ins.Data, 0)
	if err != nil || tag != systemTransferTag {
		return nil, nil // not a transfer, or payload too short to be one
	}

	lamports, _, err := codec.ReadUint64(ins.Data, n)
	if err != nil {
		return nil, err
	}
	if lamports < h.minLamports {
		return nil, nil
	}

	source, err := txview.ResolveAt(v, ins, 0)
	if err != nil {
		return nil, err
	}
	dest, err := txview.ResolveAt(v, ins, 1)
	if err != nil {
		return nil, err
	}

	return &LargeTransfer{
		Source:      source,
		Destination: dest,
		Authority:   source,
		Amount:      lamports,
		Signature:   v.Signature,
		Slot:        v.Slot,
		Timestamp:   v.BlockTime,
	}, nil
}
