package classify

import (
	"solana-whale-watch/internal/codec"
	"solana-whale-watch/internal/txview"
)

// TokenProgram is the SPL Token program ID.
const TokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// SPL Token instruction tags (single leading byte).
const (
	tokenTransferTag        = 3
	tokenTransferCheckedTag = 12
)

// TokenTransferHandler decodes SPL Token Transfer and TransferChecked
// instructions into threshold-gated LargeTransfer events.
type TokenTransferHandler struct {
	minAmount uint64 // inclusive threshold in raw token base units
}

// NewTokenTransferHandler creates an SPL transfer handler. minAmount of
// 0 disables transfer events.
func NewTokenTransferHandler(minAmount uint64) *TokenTransferHandler {
	return &TokenTransferHandler{minAmount: minAmount}
}

// Classify decodes a token transfer. Account layout:
// Transfer:        0 source, 1 destination, 2 authority.
// TransferChecked: 0 source, 1 mint, 2 destination, 3 authority.
func (h *TokenTransferHandler) Classify(v *txview.TransactionView, ins txview.Instruction) (Event, error) {
	if h.minAmount == 0 || len(ins.Data) < 1 {
		return nil, nil
	}

	tag := ins.Data[0]
	if tag != tokenTransferTag && tag != tokenTransferCheckedTag {
		return nil, nil
	}

	amount, _, err := codec.ReadUint64(ins.Data, 1)
	if err != nil {
		return nil, err
	}
	if amount < h.minAmount {
		return nil, nil
	}

	srcPos, mintPos, dstPos, authPos := 0, -1, 1, 2
	if tag == tokenTransferCheckedTag {
		mintPos, dstPos, authPos = 1, 2, 3
	}

	source, err := txview.ResolveAt(v, ins, srcPos)
	if err != nil {
		return nil, err
	}
	dest, err := txview.ResolveAt(v, ins, dstPos)
	if err != nil {
		return nil, err
	}
	authority, err := txview.ResolveAt(v, ins, authPos)
	if err != nil {
		return nil, err
	}

	event := &LargeTransfer{
		Source:      source,
		Destination: dest,
		Authority:   authority,
		Amount:      amount,
		Signature:   v.Signature,
		Slot:        v.Slot,
		Timestamp:   v.BlockTime,
	}
	if mintPos >= 0 {
		mint, err := txview.ResolveAt(v, ins, mintPos)
		if err != nil {
			return nil, err
		}
		event.Mint = mint
	}
	return event, nil
}
