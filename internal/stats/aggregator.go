// Package stats accumulates per-wallet whale activity from the
// classified event flow.
package stats

import (
	"sort"
	"time"

	"solana-whale-watch/internal/classify"
)

// WhaleProfile is the running activity record for one wallet.
type WhaleProfile struct {
	Address     string
	TotalVolume float64 // SOL-scale notional, monotonically increasing
	EventCount  int64   // monotonically increasing
	FirstSeen   time.Time
	LastSeen    time.Time
	Mints       []string // distinct mints touched, insertion order
}

// CurveCheck reports whether an address is an on-curve ed25519 key,
// which distinguishes wallets from program-derived addresses.
type CurveCheck func(address string) bool

// Aggregator folds events into whale profiles. It is owned by the
// single-threaded event loop: all Record calls come from one goroutine,
// so no locking is needed. Snapshot returns copies and is safe to hand
// to other goroutines.
type Aggregator struct {
	profiles map[string]*WhaleProfile
	onCurve  CurveCheck
	now      func() time.Time
}

// New creates an aggregator. onCurve gates which addresses get
// profiles; nil admits every address.
func New(onCurve CurveCheck) *Aggregator {
	return &Aggregator{
		profiles: make(map[string]*WhaleProfile),
		onCurve:  onCurve,
		now:      time.Now,
	}
}

// Record folds one event into the profile of its acting wallet.
// Events with no acting wallet, or whose wallet is a program-derived
// address, are ignored.
func (a *Aggregator) Record(ev classify.Event) {
	var address, mint string
	switch e := ev.(type) {
	case *classify.LargeTrade:
		address, mint = e.Trader, e.Mint
	case *classify.LargeTransfer:
		address, mint = e.Authority, e.Mint
	default:
		return
	}
	if address == "" {
		return
	}
	if a.onCurve != nil && !a.onCurve(address) {
		return
	}

	now := a.now()
	p, ok := a.profiles[address]
	if !ok {
		p = &WhaleProfile{Address: address, FirstSeen: now}
		a.profiles[address] = p
	}
	p.TotalVolume += ev.Notional()
	p.EventCount++
	p.LastSeen = now
	if mint != "" && !containsMint(p.Mints, mint) {
		p.Mints = append(p.Mints, mint)
	}
}

// Len returns the number of tracked profiles.
func (a *Aggregator) Len() int { return len(a.profiles) }

// Snapshot returns an independent copy of all profiles, sorted by total
// volume descending. Mutating the result does not affect the aggregator.
func (a *Aggregator) Snapshot() []WhaleProfile {
	out := make([]WhaleProfile, 0, len(a.profiles))
	for _, p := range a.profiles {
		cp := *p
		cp.Mints = append([]string(nil), p.Mints...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalVolume != out[j].TotalVolume {
			return out[i].TotalVolume > out[j].TotalVolume
		}
		return out[i].Address < out[j].Address
	})
	return out
}

func containsMint(mints []string, mint string) bool {
	for _, m := range mints {
		if m == mint {
			return true
		}
	}
	return false
}
