package classify

import (
	"testing"

	"solana-whale-watch/internal/codec"
	"solana-whale-watch/internal/txview"
)

func createPayload(name, symbol, uri string) []byte {
	data := append([]byte{}, pumpCreateDiscriminator[:]...)
	data = codec.AppendString(data, name)
	data = codec.AppendString(data, symbol)
	data = codec.AppendString(data, uri)
	return data
}

func tradePayload(disc [8]byte, tokenAmount, solAmount uint64) []byte {
	data := append([]byte{}, disc[:]...)
	data = codec.AppendUint64(data, tokenAmount)
	data = codec.AppendUint64(data, solAmount)
	return data
}

// mintCreateView builds a transaction with a pump.fun create instruction
// whose account positions 0, 2 and 7 resolve to A, B and C.
func mintCreateView() *txview.TransactionView {
	return &txview.TransactionView{
		Signature:   "createsig",
		Slot:        555,
		BlockTime:   1700000000,
		Success:     true,
		AccountKeys: []string{"A", "B", "C", "X1", "X2", "X3", "X4", "X5", PumpFunProgram},
		Instructions: []txview.Instruction{
			{
				ProgramIDIndex: 8,
				// positions:   0    1    2    3    4    5    6    7
				Accounts: []int{0, 3, 1, 4, 5, 6, 7, 2},
				Data:     createPayload("Foo", "FOO", "ipfs://x"),
			},
		},
	}
}

func TestClassify_MintCreated(t *testing.T) {
	c := New(Thresholds{}, nil)

	events := c.ClassifyTransaction(mintCreateView())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	mc, ok := events[0].(*MintCreated)
	if !ok {
		t.Fatalf("expected *MintCreated, got %T", events[0])
	}

	if mc.Name != "Foo" || mc.Symbol != "FOO" || mc.URI != "ipfs://x" {
		t.Errorf("metadata mismatch: %q %q %q", mc.Name, mc.Symbol, mc.URI)
	}
	if mc.Mint != "A" {
		t.Errorf("expected mint A, got %s", mc.Mint)
	}
	if mc.BondingCurve != "B" {
		t.Errorf("expected bonding curve B, got %s", mc.BondingCurve)
	}
	if mc.Creator != "C" {
		t.Errorf("expected creator C, got %s", mc.Creator)
	}
	if mc.Signature != "createsig" || mc.Slot != 555 {
		t.Errorf("signature/slot mismatch: %s/%d", mc.Signature, mc.Slot)
	}
}

func TestClassify_FailedTransactionProducesNothing(t *testing.T) {
	c := New(Thresholds{}, nil)

	v := mintCreateView()
	v.Success = false

	if events := c.ClassifyTransaction(v); len(events) != 0 {
		t.Errorf("failed transaction must not classify, got %d events", len(events))
	}
}

func TestClassify_UnknownProgramSkipped(t *testing.T) {
	c := New(Thresholds{}, nil)

	v := mintCreateView()
	v.AccountKeys[8] = "UnknownProgram1111111111111111111111111111"

	if events := c.ClassifyTransaction(v); len(events) != 0 {
		t.Errorf("unknown program must be skipped, got %d events", len(events))
	}
}

func TestClassify_TradeThresholdInclusive(t *testing.T) {
	const threshold = 5 * LamportsPerSol
	c := New(Thresholds{TradeLamports: threshold}, nil)

	view := func(solAmount uint64) *txview.TransactionView {
		return &txview.TransactionView{
			Signature:   "tradesig",
			Slot:        556,
			Success:     true,
			AccountKeys: []string{"G", "F", "M", "BC", "AB", "AU", "U", PumpFunProgram},
			Instructions: []txview.Instruction{
				{
					ProgramIDIndex: 7,
					Accounts:       []int{0, 1, 2, 3, 4, 5, 6},
					Data:           tradePayload(pumpBuyDiscriminator, 1_000, solAmount),
				},
			},
		}
	}

	// Exactly at threshold: classifies.
	events := c.ClassifyTransaction(view(threshold))
	if len(events) != 1 {
		t.Fatalf("trade at threshold must classify, got %d events", len(events))
	}
	trade := events[0].(*LargeTrade)
	if trade.Side != SideBuy {
		t.Errorf("expected buy side, got %s", trade.Side)
	}
	if trade.Mint != "M" || trade.Trader != "U" {
		t.Errorf("expected mint M trader U, got %s/%s", trade.Mint, trade.Trader)
	}

	// One lamport below: no event.
	if events := c.ClassifyTransaction(view(threshold - 1)); len(events) != 0 {
		t.Errorf("sub-threshold trade must not classify, got %d events", len(events))
	}
}

func TestClassify_DecodeFailureDoesNotAbortSiblings(t *testing.T) {
	c := New(Thresholds{}, nil)

	v := mintCreateView()
	// Prepend a pump.fun instruction with a truncated create payload.
	truncated := txview.Instruction{
		ProgramIDIndex: 8,
		Accounts:       []int{0, 3, 1, 4, 5, 6, 7, 2},
		Data:           createPayload("Foo", "FOO", "ipfs://x")[:12],
	}
	v.Instructions = append([]txview.Instruction{truncated}, v.Instructions...)

	events := c.ClassifyTransaction(v)
	if len(events) != 1 {
		t.Fatalf("sibling instruction must still classify, got %d events", len(events))
	}
	if events[0].Kind() != KindMintCreated {
		t.Errorf("expected mint_created, got %s", events[0].Kind())
	}
}

func TestClassify_ResolveFailureSkipsInstruction(t *testing.T) {
	c := New(Thresholds{}, nil)

	v := mintCreateView()
	// Point the creator position past the key list.
	v.Instructions[0].Accounts[7] = 99

	if events := c.ClassifyTransaction(v); len(events) != 0 {
		t.Errorf("out-of-range account must skip the instruction, got %d events", len(events))
	}
}

func TestClassify_TokenTransferThresholdInclusive(t *testing.T) {
	const threshold = 1_000_000
	c := New(Thresholds{TransferAmount: threshold}, nil)

	view := func(amount uint64) *txview.TransactionView {
		data := []byte{tokenTransferTag}
		data = codec.AppendUint64(data, amount)
		return &txview.TransactionView{
			Signature:   "xfersig",
			Slot:        557,
			Success:     true,
			AccountKeys: []string{"SRC", "DST", "AUTH", TokenProgram},
			Instructions: []txview.Instruction{
				{ProgramIDIndex: 3, Accounts: []int{0, 1, 2}, Data: data},
			},
		}
	}

	events := c.ClassifyTransaction(view(threshold))
	if len(events) != 1 {
		t.Fatalf("transfer at threshold must classify, got %d events", len(events))
	}
	xfer := events[0].(*LargeTransfer)
	if xfer.Source != "SRC" || xfer.Destination != "DST" || xfer.Authority != "AUTH" {
		t.Errorf("account mismatch: %+v", xfer)
	}
	if xfer.Mint != "" {
		t.Errorf("plain Transfer carries no mint, got %s", xfer.Mint)
	}

	if events := c.ClassifyTransaction(view(threshold - 1)); len(events) != 0 {
		t.Errorf("one unit below threshold must not classify, got %d events", len(events))
	}
}

func TestClassify_TransferCheckedExtractsMint(t *testing.T) {
	c := New(Thresholds{TransferAmount: 1}, nil)

	data := []byte{tokenTransferCheckedTag}
	data = codec.AppendUint64(data, 42)
	data = append(data, 6) // decimals

	v := &txview.TransactionView{
		Signature:   "checkedsig",
		Success:     true,
		AccountKeys: []string{"SRC", "MINT", "DST", "AUTH", TokenProgram},
		Instructions: []txview.Instruction{
			{ProgramIDIndex: 4, Accounts: []int{0, 1, 2, 3}, Data: data},
		},
	}

	events := c.ClassifyTransaction(v)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	xfer := events[0].(*LargeTransfer)
	if xfer.Mint != "MINT" || xfer.Destination != "DST" || xfer.Authority != "AUTH" {
		t.Errorf("account mismatch: %+v", xfer)
	}
}

func TestClassify_SystemTransfer(t *testing.T) {
	c := New(Thresholds{TransferAmount: 10 * LamportsPerSol}, nil)

	data := codec.AppendUint32(nil, systemTransferTag)
	data = codec.AppendUint64(data, 10*LamportsPerSol)

	v := &txview.TransactionView{
		Signature:   "solsig",
		Success:     true,
		AccountKeys: []string{"FUNDER", "RECIPIENT", SystemProgram},
		Instructions: []txview.Instruction{
			{ProgramIDIndex: 2, Accounts: []int{0, 1}, Data: data},
		},
	}

	events := c.ClassifyTransaction(v)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	xfer := events[0].(*LargeTransfer)
	if xfer.Source != "FUNDER" || xfer.Destination != "RECIPIENT" {
		t.Errorf("account mismatch: %+v", xfer)
	}
	if xfer.Notional() != 10 {
		t.Errorf("expected 10 SOL notional, got %f", xfer.Notional())
	}
}

func TestClassify_ZeroThresholdDisablesGatedKinds(t *testing.T) {
	c := New(Thresholds{}, nil)

	data := []byte{tokenTransferTag}
	data = codec.AppendUint64(data, 1<<60)

	v := &txview.TransactionView{
		Success:     true,
		AccountKeys: []string{"SRC", "DST", "AUTH", TokenProgram},
		Instructions: []txview.Instruction{
			{ProgramIDIndex: 3, Accounts: []int{0, 1, 2}, Data: data},
		},
	}

	if events := c.ClassifyTransaction(v); len(events) != 0 {
		t.Errorf("disabled threshold must not classify, got %d events", len(events))
	}
}
