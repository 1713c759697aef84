package strategy

import "math"

// Direction identifies which side of the binary pair a position holds.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// spreadTolerance is how close the spot spread must be to the configured
// price-difference filter for an entry to qualify.
const spreadTolerance = 0.01

// SpotObservation carries the spot prices the difference filter compares:
// the live market price and the reference price at window open.
type SpotObservation struct {
	Current   float64
	Reference float64
}

// EntryInput is one poll cycle's view of the market, both token prices
// fetched with the BUY side on the 0-100 scale.
type EntryInput struct {
	UpPrice   float64
	DownPrice float64

	// Spot is required when the config sets a price-difference filter;
	// nil otherwise.
	Spot *SpotObservation
}

// EntryDecision selects the side to enter and the price that qualified.
type EntryDecision struct {
	Direction Direction
	Price     float64
}

// EvaluateEntry decides whether the current prices qualify an entry.
// It returns nil when no entry should be made this cycle.
//
// The band [entryPrice, entryPrice+width] is inclusive on both ends. UP is
// checked before DOWN as a fixed tie-break when both sides qualify.
func EvaluateEntry(cfg Config, in EntryInput) *EntryDecision {
	if !cfg.Enabled {
		return nil
	}

	if cfg.PriceDifferenceFilter != nil {
		// Without a spot observation the filter cannot be evaluated;
		// abstain for this cycle rather than trade unfiltered.
		if in.Spot == nil {
			return nil
		}
		spread := math.Abs(in.Spot.Reference - in.Spot.Current)
		if math.Abs(spread-*cfg.PriceDifferenceFilter) > spreadTolerance {
			return nil
		}
	}

	lo := cfg.EntryPrice
	hi := cfg.EntryPrice + cfg.BandWidth()

	if in.UpPrice >= lo && in.UpPrice <= hi {
		return &EntryDecision{Direction: DirectionUp, Price: in.UpPrice}
	}
	if in.DownPrice >= lo && in.DownPrice <= hi {
		return &EntryDecision{Direction: DirectionDown, Price: in.DownPrice}
	}
	return nil
}
