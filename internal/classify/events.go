// Package classify turns normalized transaction views into typed domain
// events using a registry of known program identifiers and per-program
// instruction decoding.
package classify

import "fmt"

// LamportsPerSol is the number of lamports in one SOL.
const LamportsPerSol = 1_000_000_000

// EventKind tags a domain event variant.
type EventKind string

const (
	KindMintCreated   EventKind = "mint_created"
	KindMigration     EventKind = "migration"
	KindLargeTransfer EventKind = "large_transfer"
	KindLargeTrade    EventKind = "large_trade"
	KindOrderWall     EventKind = "order_wall"
)

// Event is one classified domain event. Events are immutable once
// constructed and are the unit exchanged with downstream consumers.
type Event interface {
	// Kind returns the variant tag.
	Kind() EventKind
	// Describe renders the alert text for notification sinks.
	Describe() string
	// Notional returns the event's approximate value in SOL-scale units,
	// used for batch summaries. Zero when not applicable.
	Notional() float64
}

// MintCreated is a new token mint on a bonding-curve launchpad.
type MintCreated struct {
	Name         string
	Symbol       string
	URI          string
	Mint         string
	BondingCurve string
	Creator      string
	Signature    string
	Slot         int64
	Timestamp    int64 // Unix seconds
}

func (e *MintCreated) Kind() EventKind { return KindMintCreated }

func (e *MintCreated) Describe() string {
	return fmt.Sprintf("New token %s (%s)\nmint: %s\ncreator: %s\nuri: %s\ntx: %s",
		e.Name, e.Symbol, e.Mint, e.Creator, e.URI, e.Signature)
}

func (e *MintCreated) Notional() float64 { return 0 }

// Migration is a liquidity migration away from the bonding curve.
type Migration struct {
	Mint      string
	Signature string
	Slot      int64
	Timestamp int64
}

func (e *Migration) Kind() EventKind { return KindMigration }

func (e *Migration) Describe() string {
	if e.Mint == "" {
		return fmt.Sprintf("Liquidity migration detected\ntx: %s", e.Signature)
	}
	return fmt.Sprintf("Liquidity migration for %s\ntx: %s", e.Mint, e.Signature)
}

func (e *Migration) Notional() float64 { return 0 }

// LargeTransfer is a transfer whose amount met the configured threshold.
// Mint is empty for native SOL transfers.
type LargeTransfer struct {
	Source      string
	Destination string
	Authority   string
	Mint        string
	Amount      uint64 // raw base units (lamports for SOL)
	Signature   string
	Slot        int64
	Timestamp   int64
}

func (e *LargeTransfer) Kind() EventKind { return KindLargeTransfer }

func (e *LargeTransfer) Describe() string {
	if e.Mint == "" {
		return fmt.Sprintf("Whale transfer: %.4f SOL\nfrom: %s\nto: %s\ntx: %s",
			float64(e.Amount)/LamportsPerSol, e.Source, e.Destination, e.Signature)
	}
	return fmt.Sprintf("Whale token transfer: %d units of %s\nfrom: %s\nto: %s\ntx: %s",
		e.Amount, e.Mint, e.Source, e.Destination, e.Signature)
}

func (e *LargeTransfer) Notional() float64 {
	return float64(e.Amount) / LamportsPerSol
}

// TradeSide distinguishes buys from sells.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// LargeTrade is a swap whose SOL notional met the configured threshold.
type LargeTrade struct {
	Mint        string
	Trader      string
	Side        TradeSide
	TokenAmount uint64
	SolAmount   uint64 // lamports
	Signature   string
	Slot        int64
	Timestamp   int64
}

func (e *LargeTrade) Kind() EventKind { return KindLargeTrade }

func (e *LargeTrade) Describe() string {
	return fmt.Sprintf("Whale %s: %.4f SOL on %s\ntrader: %s\ntx: %s",
		e.Side, float64(e.SolAmount)/LamportsPerSol, e.Mint, e.Trader, e.Signature)
}

func (e *LargeTrade) Notional() float64 {
	return float64(e.SolAmount) / LamportsPerSol
}

// OrderWall is a resting order-book level whose notional met the
// configured threshold.
type OrderWall struct {
	Market    string
	Side      string // "bid" or "ask"
	Price     float64
	Size      float64
	Timestamp int64
}

func (e *OrderWall) Kind() EventKind { return KindOrderWall }

func (e *OrderWall) Describe() string {
	return fmt.Sprintf("Order wall on %s: %s %.4f @ %.6f (%.2f notional)",
		e.Market, e.Side, e.Size, e.Price, e.Notional())
}

func (e *OrderWall) Notional() float64 {
	return e.Price * e.Size
}
