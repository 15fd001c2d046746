package classify

import (
	"log"

	"solana-whale-watch/internal/txview"
)

// InstructionHandler classifies one instruction of a matched program.
// A (nil, nil) return means the instruction is not of interest.
type InstructionHandler interface {
	Classify(v *txview.TransactionView, ins txview.Instruction) (Event, error)
}

// Thresholds are the whale-event gates. Comparisons are inclusive:
// a value exactly equal to its threshold classifies.
type Thresholds struct {
	// TransferAmount is the minimum raw transfer amount (lamports for SOL).
	TransferAmount uint64
	// TradeLamports is the minimum SOL notional of a trade, in lamports.
	TradeLamports uint64
	// WallNotional is the minimum order-book level notional.
	WallNotional float64
}

// Classifier walks a transaction's instructions against a registry of
// known program identifiers and emits domain events. Unknown programs
// and unmatched discriminators are skipped silently; decode and
// resolution failures are logged and skipped without aborting the
// remaining instructions.
type Classifier struct {
	handlers map[string]InstructionHandler
	logger   *log.Logger
}

// New creates a classifier with the default program registry.
func New(th Thresholds, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.Default()
	}
	c := &Classifier{
		handlers: make(map[string]InstructionHandler),
		logger:   logger,
	}
	c.Register(PumpFunProgram, NewPumpFunHandler(th.TradeLamports))
	c.Register(TokenProgram, NewTokenTransferHandler(th.TransferAmount))
	c.Register(SystemProgram, NewSystemTransferHandler(th.TransferAmount))
	return c
}

// Register adds or replaces the handler for a program identifier.
func (c *Classifier) Register(programID string, h InstructionHandler) {
	c.handlers[programID] = h
}

// ClassifyTransaction classifies all instructions of a view, in order.
// Failed transactions never produce events.
func (c *Classifier) ClassifyTransaction(v *txview.TransactionView) []Event {
	if v == nil || !v.Success {
		return nil
	}

	var events []Event
	for i, ins := range v.Instructions {
		programID, err := v.ProgramID(ins)
		if err != nil {
			c.logger.Printf("[classify] skip instruction %d: sig=%s slot=%d err=%v", i, v.Signature, v.Slot, err)
			continue
		}

		handler, ok := c.handlers[programID]
		if !ok {
			continue
		}

		event, err := handler.Classify(v, ins)
		if err != nil {
			c.logger.Printf("[classify] skip instruction %d: sig=%s slot=%d program=%s err=%v",
				i, v.Signature, v.Slot, programID, err)
			continue
		}
		if event != nil {
			events = append(events, event)
		}
	}
	return events
}
