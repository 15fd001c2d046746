package storage

import (
	"testing"
	"time"

	"solana-whale-watch/internal/classify"
)

func TestArchiveEvent_Flattening(t *testing.T) {
	observed := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	trade := &classify.LargeTrade{
		Mint:      "M1",
		Trader:    "T1",
		Side:      classify.SideSell,
		SolAmount: 3 * classify.LamportsPerSol,
		Signature: "sig1",
		Slot:      200,
	}

	row := ArchiveEvent(trade, observed)
	if row.Kind != string(classify.KindLargeTrade) {
		t.Errorf("kind mismatch: %s", row.Kind)
	}
	if row.Address != "T1" || row.Mint != "M1" {
		t.Errorf("address/mint mismatch: %s/%s", row.Address, row.Mint)
	}
	if row.Notional != 3 {
		t.Errorf("notional mismatch: %f", row.Notional)
	}
	if row.Signature != "sig1" || row.Slot != 200 {
		t.Errorf("signature/slot mismatch: %s/%d", row.Signature, row.Slot)
	}
	if !row.Timestamp.Equal(observed) {
		t.Errorf("timestamp mismatch: %s", row.Timestamp)
	}
	if row.Details == "" {
		t.Error("details must carry the rendered description")
	}
}

func TestArchiveEvent_OrderWallUsesMarket(t *testing.T) {
	wall := &classify.OrderWall{Market: "SOL-PERP", Side: "bid", Price: 10, Size: 100}

	row := ArchiveEvent(wall, time.Now())
	if row.Address != "SOL-PERP" {
		t.Errorf("expected market as address, got %s", row.Address)
	}
	if row.Notional != 1000 {
		t.Errorf("notional mismatch: %f", row.Notional)
	}
}
