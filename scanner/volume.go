package scanner

import "spreadscan/models"

const (
	// Volumes above this figure are suspected of being reported in
	// base-asset units rather than USD.
	unitMismatchThreshold = 10_000_000

	// A 24h figure this many times the 30-day daily average corroborates a
	// unit mismatch.
	unitMismatchDailyAvgFactor = 5

	// Thresholds for the volume swing anomaly warning between rescans.
	anomalyRatio     = 100.0
	anomalyMinVolume = 100_000.0
)

// pickVolume returns the preferred 24h volume field from the stats payload.
func pickVolume(stats models.VolumeStats) (float64, bool) {
	for _, key := range []string{"volume_24h", "volume", "spot_volume_24h"} {
		if v, ok := stats.Get(key); ok {
			return v, true
		}
	}
	return 0, false
}

// lastPrice returns the most recent trade price from the stats payload.
func lastPrice(stats models.VolumeStats) (float64, bool) {
	for _, key := range []string{"price", "last"} {
		if v, ok := stats.Get(key); ok {
			return v, true
		}
	}
	return 0, false
}

func volume30d(stats models.VolumeStats) (float64, bool) {
	for _, key := range []string{"volume_30d", "volume_30day"} {
		if v, ok := stats.Get(key); ok {
			return v, true
		}
	}
	return 0, false
}

// NormalizeVolume produces a best-effort USD 24h volume from the raw stats
// payload. Some payloads report the 24h figure in base-asset units; when the
// figure is implausibly large relative to the 30-day daily average and a
// positive price is available, it is converted by multiplying with the
// price. The heuristic is not guaranteed correct: when it is inconclusive
// the unmodified figure is returned and normalized reports false so callers
// can surface a diagnostic. Already-normalized small figures pass through
// unchanged, making the function idempotent for them.
func NormalizeVolume(stats models.VolumeStats) (volume float64, normalized bool, err error) {
	volume, ok := pickVolume(stats)
	if !ok {
		return 0, false, ErrMissingVolumeField
	}

	if volume <= unitMismatchThreshold {
		return volume, false, nil
	}
	v30, ok := volume30d(stats)
	if !ok || v30 <= 0 {
		return volume, false, nil
	}
	dailyAvg := v30 / 30
	if volume <= dailyAvg*unitMismatchDailyAvgFactor {
		return volume, false, nil
	}
	price, ok := lastPrice(stats)
	if !ok || price <= 0 {
		return volume, false, nil
	}
	return volume * price, true, nil
}

// USDVolume derives the USD 24h volume used for full-scan filtering. The
// unit-mismatch heuristic runs first; if it already converted the figure to
// USD the result is returned as is, otherwise the base-unit figure is
// multiplied by the last trade price. A payload without a price cannot be
// converted and yields ErrDataUnavailable.
func USDVolume(stats models.VolumeStats) (volume float64, normalized bool, err error) {
	volume, normalized, err = NormalizeVolume(stats)
	if err != nil {
		return 0, false, err
	}
	if normalized {
		return volume, true, nil
	}
	price, ok := lastPrice(stats)
	if !ok {
		return 0, false, ErrDataUnavailable
	}
	return volume * price, false, nil
}

// VolumeAnomaly compares the volume from a rescan to the previously stored
// one and reports whether the swing is extreme enough to warn about: a
// change beyond 100x in either direction where at least one of the two
// figures is above 100k USD. Smaller swings are normal market movement.
func VolumeAnomaly(previous, current float64) (ratio float64, anomalous bool) {
	if previous <= 0 || current <= 0 {
		return 0, false
	}
	ratio = current / previous
	if ratio <= anomalyRatio && ratio >= 1/anomalyRatio {
		return ratio, false
	}
	if current <= anomalyMinVolume && previous <= anomalyMinVolume {
		return ratio, false
	}
	return ratio, true
}
