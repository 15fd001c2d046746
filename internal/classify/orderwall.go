package classify

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// BookLevel is one order-book price level in canonical form. Providers
// deliver levels either as [price, size] arrays or as {price, size}
// objects, with numbers sometimes quoted; both shapes resolve to this
// one at the parse boundary.
type BookLevel struct {
	Price float64
	Size  float64
}

// BookMessage is an order-book data frame.
type BookMessage struct {
	Market    string          `json:"market"`
	Bids      json.RawMessage `json:"bids"`
	Asks      json.RawMessage `json:"asks"`
	Timestamp int64           `json:"timestamp"`
}

// ParseBookMessage decodes an order-book frame and normalizes its levels.
func ParseBookMessage(raw []byte) (market string, bids, asks []BookLevel, ts int64, err error) {
	var msg BookMessage
	if err = json.Unmarshal(raw, &msg); err != nil {
		return "", nil, nil, 0, fmt.Errorf("book message: %w", err)
	}
	if msg.Market == "" {
		return "", nil, nil, 0, fmt.Errorf("book message: missing market")
	}

	bids, err = ParseBookLevels(msg.Bids)
	if err != nil {
		return "", nil, nil, 0, fmt.Errorf("book bids: %w", err)
	}
	asks, err = ParseBookLevels(msg.Asks)
	if err != nil {
		return "", nil, nil, 0, fmt.Errorf("book asks: %w", err)
	}
	return msg.Market, bids, asks, msg.Timestamp, nil
}

// ParseBookLevels accepts either [[price, size], ...] or
// [{"price": p, "size": s}, ...] and returns canonical levels.
func ParseBookLevels(raw json.RawMessage) ([]BookLevel, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	// Object form.
	var objs []struct {
		Price json.Number `json:"price"`
		Size  json.Number `json:"size"`
	}
	if err := json.Unmarshal(raw, &objs); err == nil {
		levels := make([]BookLevel, 0, len(objs))
		for _, o := range objs {
			price, perr := o.Price.Float64()
			size, serr := o.Size.Float64()
			if perr != nil || serr != nil {
				return nil, fmt.Errorf("book level: bad object values %q/%q", o.Price, o.Size)
			}
			levels = append(levels, BookLevel{Price: price, Size: size})
		}
		return levels, nil
	}

	// Array form, entries as numbers or strings.
	var arrs [][]interface{}
	if err := json.Unmarshal(raw, &arrs); err != nil {
		return nil, fmt.Errorf("book level: unrecognized shape")
	}
	levels := make([]BookLevel, 0, len(arrs))
	for _, a := range arrs {
		if len(a) < 2 {
			return nil, fmt.Errorf("book level: want [price, size], got %d fields", len(a))
		}
		price, err := toFloat(a[0])
		if err != nil {
			return nil, fmt.Errorf("book level price: %w", err)
		}
		size, err := toFloat(a[1])
		if err != nil {
			return nil, fmt.Errorf("book level size: %w", err)
		}
		levels = append(levels, BookLevel{Price: price, Size: size})
	}
	return levels, nil
}

func toFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unsupported value %T", v)
	}
}

// OrderWallDetector flags book levels whose notional meets the
// configured threshold (inclusive).
type OrderWallDetector struct {
	minNotional float64
}

// NewOrderWallDetector creates an order-wall detector. minNotional of 0
// disables detection.
func NewOrderWallDetector(minNotional float64) *OrderWallDetector {
	return &OrderWallDetector{minNotional: minNotional}
}

// Detect scans both sides of a book and returns an OrderWall event for
// every qualifying level.
func (d *OrderWallDetector) Detect(market string, bids, asks []BookLevel, ts int64) []Event {
	if d.minNotional <= 0 {
		return nil
	}

	var events []Event
	for _, side := range []struct {
		name   string
		levels []BookLevel
	}{{"bid", bids}, {"ask", asks}} {
		for _, l := range side.levels {
			if l.Price*l.Size >= d.minNotional {
				events = append(events, &OrderWall{
					Market:    market,
					Side:      side.name,
					Price:     l.Price,
					Size:      l.Size,
					Timestamp: ts,
				})
			}
		}
	}
	return events
}
