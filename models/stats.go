package models

import (
	"encoding/json"
	"strconv"
)

// VolumeStats holds the raw 24-hour stats payload for a product. Coinbase
// reports numeric fields as quoted strings and the exact key set varies
// between endpoints, so the payload is kept as a loose field map with typed
// accessors instead of a fixed struct.
type VolumeStats struct {
	fields map[string]float64
}

// NewVolumeStats builds a stats payload from already-parsed fields. Used by
// tests and by callers that synthesize stats.
func NewVolumeStats(fields map[string]float64) VolumeStats {
	cp := make(map[string]float64, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return VolumeStats{fields: cp}
}

// UnmarshalJSON decodes a stats object, keeping every field that parses as a
// number whether it arrives quoted or bare. Non-numeric fields are dropped.
func (s *VolumeStats) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.fields = make(map[string]float64, len(raw))
	for k, v := range raw {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			if f, err := strconv.ParseFloat(str, 64); err == nil {
				s.fields[k] = f
			}
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			s.fields[k] = f
		}
	}
	return nil
}

// Get returns the named numeric field and whether it was present.
func (s VolumeStats) Get(key string) (float64, bool) {
	v, ok := s.fields[key]
	return v, ok
}
