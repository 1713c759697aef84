package strategy

import (
	"math"
	"testing"
)

func TestSplitOrder_SingleLeg(t *testing.T) {
	for _, size := range []float64{1, 25, 50} {
		legs := SplitOrder(size, 96)
		if len(legs) != 1 {
			t.Fatalf("SplitOrder(%v) returned %d legs, want 1", size, len(legs))
		}
		if legs[0].Price != 96 || legs[0].Size != size {
			t.Errorf("leg = %+v, want {96 %v}", legs[0], size)
		}
	}
}

func TestSplitOrder_ThreeLegs(t *testing.T) {
	legs := SplitOrder(150, 96)
	if len(legs) != 3 {
		t.Fatalf("returned %d legs, want 3", len(legs))
	}

	var total float64
	for i, leg := range legs {
		wantPrice := 96 + float64(i)
		if leg.Price != wantPrice {
			t.Errorf("leg %d price = %v, want %v", i, leg.Price, wantPrice)
		}
		if leg.Size != 50 {
			t.Errorf("leg %d size = %v, want 50", i, leg.Size)
		}
		total += leg.Size
	}
	if math.Abs(total-150) > 1e-9 {
		t.Errorf("legs sum to %v, want 150", total)
	}
}

func TestSplitOrder_SumInvariant(t *testing.T) {
	for _, size := range []float64{50.01, 70, 100, 333.33, 1000} {
		legs := SplitOrder(size, 80)
		if len(legs) != 3 {
			t.Fatalf("SplitOrder(%v) returned %d legs, want 3", size, len(legs))
		}
		var total float64
		for _, leg := range legs {
			total += leg.Size
		}
		if math.Abs(total-size) > 1e-9 {
			t.Errorf("SplitOrder(%v) legs sum to %v", size, total)
		}
	}
}

func TestWeightedAveragePrice_SingleLeg(t *testing.T) {
	got := WeightedAveragePrice([]Leg{{Price: 96.4, Size: 50}})
	if got != 96.4 {
		t.Errorf("single leg average = %v, want the leg price 96.4", got)
	}
}

func TestWeightedAveragePrice_EqualSizes(t *testing.T) {
	got := WeightedAveragePrice([]Leg{
		{Price: 96, Size: 10},
		{Price: 97, Size: 10},
		{Price: 98, Size: 10},
	})
	if got != 97 {
		t.Errorf("equal-size legs average = %v, want the arithmetic mean 97", got)
	}
}

func TestWeightedAveragePrice_Weighted(t *testing.T) {
	// Partial split fill: legs 1 and 3 of a 150 USD order.
	got := WeightedAveragePrice([]Leg{
		{Price: 96.2, Size: 50},
		{Price: 98.1, Size: 50},
	})
	if math.Abs(got-97.15) > 1e-9 {
		t.Errorf("average = %v, want 97.15", got)
	}
}

func TestWeightedAveragePrice_Empty(t *testing.T) {
	if got := WeightedAveragePrice(nil); got != 0 {
		t.Errorf("empty fills average = %v, want 0", got)
	}
}
