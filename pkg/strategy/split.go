package strategy

const (
	// splitThreshold is the USD notional above which an order is split.
	splitThreshold = 50.0

	// splitLegCount is the fixed number of legs a split produces.
	splitLegCount = 3
)

// Leg is one sub-order of a split trade: a target price on the 0-100 scale
// and a USD size.
type Leg struct {
	Price float64
	Size  float64
}

// SplitOrder divides a requested trade size into legs. Sizes at or below
// the threshold stay a single leg at the entry price; larger sizes become
// exactly three equal legs at prices staggered one point apart, bounding
// the market impact of large notional.
func SplitOrder(tradeSize, entryPrice float64) []Leg {
	if tradeSize <= splitThreshold {
		return []Leg{{Price: entryPrice, Size: tradeSize}}
	}

	legs := make([]Leg, 0, splitLegCount)
	legSize := tradeSize / splitLegCount
	for i := 0; i < splitLegCount; i++ {
		legs = append(legs, Leg{Price: entryPrice + float64(i), Size: legSize})
	}
	return legs
}

// WeightedAveragePrice computes the size-weighted average price across
// filled legs. An empty input yields 0; the caller must treat that as
// "no position created".
func WeightedAveragePrice(fills []Leg) float64 {
	var notional, size float64
	for _, f := range fills {
		notional += f.Price * f.Size
		size += f.Size
	}
	if size == 0 {
		return 0
	}
	return notional / size
}
