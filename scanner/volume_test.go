package scanner

import (
	"errors"
	"testing"

	"spreadscan/models"
)

func TestNormalizeVolumePreference(t *testing.T) {
	stats := models.NewVolumeStats(map[string]float64{
		"volume_24h":      100,
		"volume":          200,
		"spot_volume_24h": 300,
	})
	v, normalized, err := NormalizeVolume(stats)
	if err != nil {
		t.Fatalf("NormalizeVolume failed: %v", err)
	}
	if v != 100 || normalized {
		t.Errorf("expected preferred volume_24h 100, got %v (normalized=%v)", v, normalized)
	}

	stats = models.NewVolumeStats(map[string]float64{"spot_volume_24h": 300})
	if v, _, err = NormalizeVolume(stats); err != nil || v != 300 {
		t.Errorf("fallback to spot_volume_24h failed: %v, %v", v, err)
	}
}

func TestNormalizeVolumeMissingField(t *testing.T) {
	stats := models.NewVolumeStats(map[string]float64{"last": 5})
	if _, _, err := NormalizeVolume(stats); !errors.Is(err, ErrMissingVolumeField) {
		t.Errorf("expected ErrMissingVolumeField, got %v", err)
	}
}

func TestNormalizeVolumeIdempotentOnSmallFigures(t *testing.T) {
	stats := models.NewVolumeStats(map[string]float64{
		"volume_24h": 250_000,
		"volume_30d": 100, // would trigger the heuristic if the figure were large
		"last":       40,
	})
	v, normalized, err := NormalizeVolume(stats)
	if err != nil || normalized || v != 250_000 {
		t.Fatalf("small figure must pass through unchanged: %v, %v, %v", v, normalized, err)
	}
	// Feeding the result back must not alter it.
	again := models.NewVolumeStats(map[string]float64{"volume_24h": v, "volume_30d": 100, "last": 40})
	v2, normalized2, err := NormalizeVolume(again)
	if err != nil || normalized2 || v2 != v {
		t.Fatalf("normalization not idempotent: %v -> %v", v, v2)
	}
}

func TestNormalizeVolumeUnitMismatch(t *testing.T) {
	// 24h figure far above both the absolute threshold and 5x the 30-day
	// daily average, with a price available: convert to USD.
	stats := models.NewVolumeStats(map[string]float64{
		"volume_24h": 50_000_000,
		"volume_30d": 60_000_000, // daily avg 2M, 5x = 10M < 50M
		"last":       2,
	})
	v, normalized, err := NormalizeVolume(stats)
	if err != nil {
		t.Fatalf("NormalizeVolume failed: %v", err)
	}
	if !normalized || v != 100_000_000 {
		t.Errorf("expected normalized 100M, got %v (normalized=%v)", v, normalized)
	}
}

func TestNormalizeVolumeHeuristicInconclusive(t *testing.T) {
	// Large figure but no 30-day reference: fall back to the raw value.
	stats := models.NewVolumeStats(map[string]float64{"volume_24h": 50_000_000, "last": 2})
	v, normalized, err := NormalizeVolume(stats)
	if err != nil || normalized || v != 50_000_000 {
		t.Errorf("inconclusive heuristic must fall back: %v, %v, %v", v, normalized, err)
	}

	// Large figure consistent with the 30-day average: genuine volume.
	stats = models.NewVolumeStats(map[string]float64{
		"volume_24h": 50_000_000,
		"volume_30d": 1_500_000_000,
		"last":       2,
	})
	if v, normalized, _ = NormalizeVolume(stats); normalized || v != 50_000_000 {
		t.Errorf("consistent figure must not be converted: %v (normalized=%v)", v, normalized)
	}
}

func TestUSDVolume(t *testing.T) {
	stats := models.NewVolumeStats(map[string]float64{"volume": 8000, "last": 25})
	v, _, err := USDVolume(stats)
	if err != nil {
		t.Fatalf("USDVolume failed: %v", err)
	}
	if v != 200_000 {
		t.Errorf("usd volume = %v, want 200000", v)
	}
}

func TestUSDVolumeMissingPrice(t *testing.T) {
	stats := models.NewVolumeStats(map[string]float64{"volume": 8000})
	if _, _, err := USDVolume(stats); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestUSDVolumeAlreadyNormalized(t *testing.T) {
	// When the unit heuristic has converted the figure it is already USD
	// and must not be multiplied by the price again.
	stats := models.NewVolumeStats(map[string]float64{
		"volume_24h": 50_000_000,
		"volume_30d": 60_000_000,
		"last":       2,
	})
	v, normalized, err := USDVolume(stats)
	if err != nil {
		t.Fatalf("USDVolume failed: %v", err)
	}
	if !normalized || v != 100_000_000 {
		t.Errorf("expected 100M without double conversion, got %v (normalized=%v)", v, normalized)
	}
}

func TestVolumeAnomaly(t *testing.T) {
	cases := []struct {
		prev, cur float64
		want      bool
	}{
		{200_000, 150_000, false},       // normal fluctuation
		{1_000, 500_000, true},          // 500x jump, above min volume
		{500_000, 1_000, true},          // 500x drop
		{100, 50_000, false},            // extreme ratio but both tiny
		{0, 500_000, false},             // no previous volume to compare
		{200_000, 250_000, false},       // small change
		{10_000_000, 950_000_000, false}, // 95x stays under the threshold
	}
	for _, c := range cases {
		if _, got := VolumeAnomaly(c.prev, c.cur); got != c.want {
			t.Errorf("VolumeAnomaly(%v, %v) = %v, want %v", c.prev, c.cur, got, c.want)
		}
	}
}
