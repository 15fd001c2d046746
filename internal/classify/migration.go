package classify

import (
	"strings"

	"solana-whale-watch/internal/txview"
)

// migrationPhrase is the log substring that flags a liquidity migration.
// The match is deliberately loose: the migration instruction's true
// discriminator is not decoded, so any log line mentioning "migrate"
// is treated as a candidate and confirmed via a full-transaction fetch.
const migrationPhrase = "migrate"

// MigrationDetector flags migration candidates from transaction logs and
// deduplicates the follow-up fetch per signature. It is owned by the
// single-threaded stream path and is not safe for concurrent use.
type MigrationDetector struct {
	seen map[string]struct{}
}

// NewMigrationDetector creates a migration detector.
func NewMigrationDetector() *MigrationDetector {
	return &MigrationDetector{seen: make(map[string]struct{})}
}

// Detect reports whether the logs indicate a migration for a signature
// not seen before. Duplicate deliveries of the same signature return
// false, so at most one detail fetch is issued per signature.
func (d *MigrationDetector) Detect(signature string, logs []string) bool {
	if signature == "" || !matchesMigration(logs) {
		return false
	}
	if _, dup := d.seen[signature]; dup {
		return false
	}
	d.seen[signature] = struct{}{}
	return true
}

func matchesMigration(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(strings.ToLower(line), migrationPhrase) {
			return true
		}
	}
	return false
}

// migrationMintPos is the mint position in the pump.fun migrate
// instruction's account list.
const migrationMintPos = 2

// MigrationFromView builds a Migration event from fetched transaction
// detail. The mint is extracted best-effort from the pump.fun
// instruction's accounts; it is left empty when not identifiable.
func MigrationFromView(v *txview.TransactionView) *Migration {
	event := &Migration{
		Signature: v.Signature,
		Slot:      v.Slot,
		Timestamp: v.BlockTime,
	}

	for _, ins := range v.Instructions {
		programID, err := v.ProgramID(ins)
		if err != nil || programID != PumpFunProgram {
			continue
		}
		if mint, err := txview.ResolveAt(v, ins, migrationMintPos); err == nil {
			event.Mint = mint
			break
		}
	}
	return event
}
