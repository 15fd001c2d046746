package classify

import (
	"solana-whale-watch/internal/codec"
	"solana-whale-watch/internal/txview"
)

// PumpFunProgram is the pump.fun bonding curve program ID.
const PumpFunProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// Anchor instruction discriminators for the pump.fun program.
var (
	pumpCreateDiscriminator = [8]byte{24, 30, 200, 40, 5, 28, 7, 119}
	pumpBuyDiscriminator    = [8]byte{102, 6, 61, 18, 1, 218, 235, 234}
	pumpSellDiscriminator   = [8]byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// Positional account contracts for pump.fun instructions.
const (
	pumpCreateMintPos    = 0
	pumpCreateCurvePos   = 2
	pumpCreateCreatorPos = 7

	pumpTradeMintPos = 2
	pumpTradeUserPos = 6
)

// PumpFunHandler decodes pump.fun create/buy/sell instructions.
type PumpFunHandler struct {
	tradeLamports uint64 // inclusive threshold for LargeTrade
}

// NewPumpFunHandler creates a pump.fun handler. tradeLamports of 0
// disables trade events.
func NewPumpFunHandler(tradeLamports uint64) *PumpFunHandler {
	return &PumpFunHandler{tradeLamports: tradeLamports}
}

// Classify decodes a pump.fun instruction into a MintCreated or a
// threshold-gated LargeTrade.
func (h *PumpFunHandler) Classify(v *txview.TransactionView, ins txview.Instruction) (Event, error) {
	switch {
	case codec.MatchDiscriminator(ins.Data, pumpCreateDiscriminator):
		return h.classifyCreate(v, ins)
	case codec.MatchDiscriminator(ins.Data, pumpBuyDiscriminator):
		return h.classifyTrade(v, ins, SideBuy)
	case codec.MatchDiscriminator(ins.Data, pumpSellDiscriminator):
		return h.classifyTrade(v, ins, SideSell)
	default:
		return nil, nil
	}
}

// classifyCreate decodes the create payload: three length-prefixed
// strings (name, symbol, uri) after the discriminator.
func (h *PumpFunHandler) classifyCreate(v *txview.TransactionView, ins txview.Instruction) (Event, error) {
	offset := codec.DiscriminatorLen

	name, n, err := codec.ReadString(ins.Data, offset)
	if err != nil {
		return nil, err
	}
	offset += n

	symbol, n, err := codec.ReadString(ins.Data, offset)
	if err != nil {
		return nil, err
	}
	offset += n

	uri, _, err := codec.ReadString(ins.Data, offset)
	if err != nil {
		return nil, err
	}

	mint, err := txview.ResolveAt(v, ins, pumpCreateMintPos)
	if err != nil {
		return nil, err
	}
	curve, err := txview.ResolveAt(v, ins, pumpCreateCurvePos)
	if err != nil {
		return nil, err
	}
	creator, err := txview.ResolveAt(v, ins, pumpCreateCreatorPos)
	if err != nil {
		return nil, err
	}

	return &MintCreated{
		Name:         name,
		Symbol:       symbol,
		URI:          uri,
		Mint:         mint,
		BondingCurve: curve,
		Creator:      creator,
		Signature:    v.Signature,
		Slot:         v.Slot,
		Timestamp:    v.BlockTime,
	}, nil
}

// classifyTrade decodes buy/sell payloads: token amount then SOL amount
// (max cost for buys, min output for sells) after the discriminator.
// Sub-threshold trades produce no event.
func (h *PumpFunHandler) classifyTrade(v *txview.TransactionView, ins txview.Instruction, side TradeSide) (Event, error) {
	if h.tradeLamports == 0 {
		return nil, nil
	}

	offset := codec.DiscriminatorLen

	tokenAmount, n, err := codec.ReadUint64(ins.Data, offset)
	if err != nil {
		return nil, err
	}
	offset += n

	solAmount, _, err := codec.ReadUint64(ins.Data, offset)
	if err != nil {
		return nil, err
	}

	if solAmount < h.tradeLamports {
		return nil, nil
	}

	mint, err := txview.ResolveAt(v, ins, pumpTradeMintPos)
	if err != nil {
		return nil, err
	}
	trader, err := txview.ResolveAt(v, ins, pumpTradeUserPos)
	if err != nil {
		return nil, err
	}

	return &LargeTrade{
		Mint:        mint,
		Trader:      trader,
		Side:        side,
		TokenAmount: tokenAmount,
		SolAmount:   solAmount,
		Signature:   v.Signature,
		Slot:        v.Slot,
		Timestamp:   v.BlockTime,
	}, nil
}
