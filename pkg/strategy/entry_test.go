package strategy

import "testing"

func enabledConfig(entry, width float64) Config {
	return Config{
		Enabled:           true,
		EntryPrice:        entry,
		EntryBandWidth:    width,
		ProfitTargetPrice: 100,
		StopLossPrice:     entry - 5,
		TradeSize:         10,
	}
}

func TestEvaluateEntry_BandBoundaries(t *testing.T) {
	cfg := enabledConfig(96, 1)

	tests := []struct {
		name    string
		upPrice float64
		wantHit bool
	}{
		{"below band", 95.99, false},
		{"at lower bound", 96, true},
		{"inside band", 96.4, true},
		{"at upper bound", 97, true},
		{"above band", 97.01, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateEntry(cfg, EntryInput{UpPrice: tt.upPrice, DownPrice: 40})
			if (got != nil) != tt.wantHit {
				t.Errorf("EvaluateEntry(up=%v) hit = %v, want %v", tt.upPrice, got != nil, tt.wantHit)
			}
			if got != nil && got.Price != tt.upPrice {
				t.Errorf("decision price = %v, want %v", got.Price, tt.upPrice)
			}
		})
	}
}

func TestEvaluateEntry_DownSide(t *testing.T) {
	cfg := enabledConfig(96, 1)

	got := EvaluateEntry(cfg, EntryInput{UpPrice: 40, DownPrice: 96.5})
	if got == nil {
		t.Fatal("expected DOWN entry")
	}
	if got.Direction != DirectionDown {
		t.Errorf("Direction = %s, want %s", got.Direction, DirectionDown)
	}
	if got.Price != 96.5 {
		t.Errorf("Price = %v, want 96.5", got.Price)
	}
}

func TestEvaluateEntry_TieBreakPrefersUp(t *testing.T) {
	cfg := enabledConfig(96, 1)

	got := EvaluateEntry(cfg, EntryInput{UpPrice: 96.2, DownPrice: 96.8})
	if got == nil {
		t.Fatal("expected an entry")
	}
	if got.Direction != DirectionUp {
		t.Errorf("Direction = %s, want %s (UP wins ties)", got.Direction, DirectionUp)
	}
}

func TestEvaluateEntry_Disabled(t *testing.T) {
	cfg := enabledConfig(96, 1)
	cfg.Enabled = false

	if got := EvaluateEntry(cfg, EntryInput{UpPrice: 96.5, DownPrice: 40}); got != nil {
		t.Errorf("disabled config should never enter, got %+v", got)
	}
}

func TestEvaluateEntry_DefaultBandWidth(t *testing.T) {
	cfg := enabledConfig(96, 0)

	if got := EvaluateEntry(cfg, EntryInput{UpPrice: 97, DownPrice: 40}); got == nil {
		t.Error("zero width should default to a band of 1")
	}
	if got := EvaluateEntry(cfg, EntryInput{UpPrice: 97.5, DownPrice: 40}); got != nil {
		t.Error("97.5 should be outside the default band [96,97]")
	}
}

func TestEvaluateEntry_PriceDifferenceFilter(t *testing.T) {
	filter := 2.0
	cfg := enabledConfig(96, 1)
	cfg.PriceDifferenceFilter = &filter

	in := EntryInput{UpPrice: 96.4, DownPrice: 40}

	// No spot observation: abstain.
	if got := EvaluateEntry(cfg, in); got != nil {
		t.Error("missing spot observation should abstain")
	}

	// Spread matches the filter within tolerance.
	in.Spot = &SpotObservation{Current: 100.0, Reference: 102.005}
	if got := EvaluateEntry(cfg, in); got == nil {
		t.Error("spread 2.005 should qualify against filter 2.0 (tolerance 0.01)")
	}

	// Spread too far from the filter value.
	in.Spot = &SpotObservation{Current: 100.0, Reference: 102.5}
	if got := EvaluateEntry(cfg, in); got != nil {
		t.Error("spread 2.5 should not qualify against filter 2.0")
	}
}

func TestEvaluateEntry_NoMatch(t *testing.T) {
	cfg := enabledConfig(96, 1)
	if got := EvaluateEntry(cfg, EntryInput{UpPrice: 50, DownPrice: 50}); got != nil {
		t.Errorf("expected no entry, got %+v", got)
	}
}
