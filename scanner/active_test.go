package scanner

import (
	"reflect"
	"testing"

	"spreadscan/models"
)

func rec(id string, spread, vol float64) models.SpreadRecord {
	return models.SpreadRecord{ID: id, SpreadPct: spread, USDVolume: vol}
}

func TestWorkingSetRecordsSorted(t *testing.T) {
	ws := NewWorkingSet([]models.SpreadRecord{
		rec("XLM-USD", 6, 1), rec("ATOM-USD", 7, 1), rec("MANA-USD", 5.5, 1),
	})
	got := ws.Records()
	want := []string{"ATOM-USD", "MANA-USD", "XLM-USD"}
	for i, w := range want {
		if got[i].ID != w {
			t.Fatalf("records[%d] = %s, want %s", i, got[i].ID, w)
		}
	}
	if syms := ws.BaseSymbols(); !reflect.DeepEqual(syms, []string{"ATOM", "MANA", "XLM"}) {
		t.Errorf("BaseSymbols = %v", syms)
	}
}

func TestNewWorkingSetDuplicateIDs(t *testing.T) {
	ws := NewWorkingSet([]models.SpreadRecord{
		rec("ATOM-USD", 6, 1), rec("ATOM-USD", 9, 2),
	})
	if len(ws) != 1 || ws["ATOM-USD"].SpreadPct != 9 {
		t.Errorf("later duplicate must win: %+v", ws)
	}
}

func TestReconcileFullRebuilds(t *testing.T) {
	prev := NewWorkingSet([]models.SpreadRecord{
		rec("ATOM-USD", 6, 1), rec("XLM-USD", 7, 1),
	})
	next := Reconcile(prev, true, []models.SpreadRecord{rec("MANA-USD", 8, 1)})
	if len(next) != 1 {
		t.Fatalf("full scan must rebuild from results, got %d members", len(next))
	}
	if _, ok := next["MANA-USD"]; !ok {
		t.Error("full scan result missing from rebuilt set")
	}
	if _, ok := next["ATOM-USD"]; ok {
		t.Error("previous member survived a full rebuild")
	}
}

func TestReconcileActiveReplacesAndRetains(t *testing.T) {
	prev := NewWorkingSet([]models.SpreadRecord{
		rec("ATOM-USD", 6, 100), rec("XLM-USD", 7, 200),
	})
	// ATOM re-evaluated below the alert threshold, XLM's data unavailable.
	next := Reconcile(prev, false, []models.SpreadRecord{rec("ATOM-USD", 2, 150)})

	if len(next) != 2 {
		t.Fatalf("active scan must never shrink the set, got %d members", len(next))
	}
	if got := next["ATOM-USD"]; got.SpreadPct != 2 || got.USDVolume != 150 {
		t.Errorf("re-evaluated record not replaced: %+v", got)
	}
	if got := next["XLM-USD"]; got.SpreadPct != 7 || got.USDVolume != 200 {
		t.Errorf("unavailable pair must keep its stale record: %+v", got)
	}
	// The previous set is untouched.
	if prev["ATOM-USD"].SpreadPct != 6 {
		t.Error("Reconcile mutated the previous set")
	}
}

func TestReconcileActiveIdempotent(t *testing.T) {
	prev := NewWorkingSet([]models.SpreadRecord{rec("ATOM-USD", 6, 100)})
	results := []models.SpreadRecord{rec("ATOM-USD", 3, 120)}
	once := Reconcile(prev, false, results)
	twice := Reconcile(once, false, results)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("reapplying identical results changed the set: %+v vs %+v", once, twice)
	}
}

func TestReconcileActiveEmptyPrevious(t *testing.T) {
	next := Reconcile(NewWorkingSet(nil), false, []models.SpreadRecord{rec("ATOM-USD", 6, 1)})
	if len(next) != 1 {
		t.Errorf("results must populate an empty set, got %d members", len(next))
	}
}
