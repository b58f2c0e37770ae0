package scanner

import (
	"sort"

	"spreadscan/models"
)

// WorkingSet is the active-pair working set: the latest SpreadRecord per
// pair, keyed by pair id. Insertion order is irrelevant; persistence and
// iteration use a sorted view.
type WorkingSet map[string]models.SpreadRecord

// NewWorkingSet builds a working set from persisted records. Later records
// with a duplicate pair id win.
func NewWorkingSet(records []models.SpreadRecord) WorkingSet {
	ws := make(WorkingSet, len(records))
	for _, r := range records {
		ws[r.ID] = r
	}
	return ws
}

// Records returns the members sorted by pair id for deterministic
// persistence and iteration.
func (ws WorkingSet) Records() []models.SpreadRecord {
	out := make([]models.SpreadRecord, 0, len(ws))
	for _, r := range ws {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Replace stores the latest evaluation for a pair, overwriting all fields of
// any previous record. Used by both scan modes; under an active-only scan
// the record is replaced even when the spread has fallen below the alert
// threshold so the pair keeps being monitored.
func (ws WorkingSet) Replace(rec models.SpreadRecord) {
	ws[rec.ID] = rec
}

// BaseSymbols returns the base asset symbols of the members, sorted.
func (ws WorkingSet) BaseSymbols() []string {
	out := make([]string, 0, len(ws))
	for _, r := range ws.Records() {
		out = append(out, r.BaseSymbol())
	}
	return out
}

// Reconcile applies the outcome of a scan cycle to the working set.
//
// A full scan rebuilds the set from scratch: only pairs that met the
// alert-worthy decision during this cycle are members afterwards, previous
// membership does not carry over. An active-only scan never removes a
// member: records for successfully re-evaluated pairs are replaced (via
// Replace) and pairs whose data was unavailable retain their previous,
// stale record so a transient fetch failure cannot lose track of a pair.
// There is no other eviction path; periodic full scans are the only
// mechanism that prunes the set.
func Reconcile(previous WorkingSet, full bool, results []models.SpreadRecord) WorkingSet {
	if full {
		return NewWorkingSet(results)
	}
	next := make(WorkingSet, len(previous))
	for id, r := range previous {
		next[id] = r
	}
	for _, r := range results {
		next.Replace(r)
	}
	return next
}
