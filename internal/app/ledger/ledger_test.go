package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/kv"
	"github.com/agroloop/agroloop/internal/infra/sqlite"
)

var testNow = time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*Ledger, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	return New(store, func() time.Time { return testNow }), store
}

func wasteLog(credits int64) domain.NewActivity {
	return domain.NewActivity{
		Type:      domain.ActivityWasteLog,
		Title:     "Logged Rice Stubble",
		Credits:   domain.Credits(credits),
		WasteType: "stubble",
		Quantity:  5,
	}
}

// ─── Append ─────────────────────────────────────────────────────────────────

func TestAppend_AssignsIDAndDate(t *testing.T) {
	l, _ := newTestLedger(t)

	a, err := l.Append("u1", wasteLog(25))
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if a.ID == "" {
		t.Error("ID should be assigned")
	}
	if a.Date != "2025-06-01" {
		t.Errorf("Date = %q, want 2025-06-01", a.Date)
	}

	b, _ := l.Append("u1", wasteLog(10))
	if a.ID == b.ID {
		t.Error("two appends at the same instant share an id")
	}
}

func TestAppend_NewestFirst(t *testing.T) {
	l, _ := newTestLedger(t)
	l.Append("u1", wasteLog(1))
	l.Append("u1", domain.NewActivity{Type: domain.ActivityDiseaseDetection, Title: "Detected Leaf Blight", Severity: "high"})

	list := l.Activities("u1")
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Type != domain.ActivityDiseaseDetection {
		t.Errorf("list[0].Type = %s, want newest entry first", list[0].Type)
	}
}

func TestAppend_Validation(t *testing.T) {
	l, _ := newTestLedger(t)

	if _, err := l.Append("u1", domain.NewActivity{Type: "bogus", Title: "x"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown type error = %v, want ErrValidation", err)
	}
	if _, err := l.Append("u1", domain.NewActivity{Type: domain.ActivityWasteLog}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty title error = %v, want ErrValidation", err)
	}
	if _, err := l.Append("", wasteLog(5)); !errors.Is(err, domain.ErrEmptyUserID) {
		t.Errorf("empty uid error = %v, want ErrEmptyUserID", err)
	}
}

// ─── Counters ───────────────────────────────────────────────────────────────

func TestCounters(t *testing.T) {
	tests := []struct {
		name        string
		entries     []domain.NewActivity
		wantCredits int64
		wantWaste   int
	}{
		{"empty", nil, 0, 0},
		{"one log", []domain.NewActivity{wasteLog(25)}, 25, 1},
		{"log then redemption", []domain.NewActivity{
			wasteLog(25),
			{Type: domain.ActivityRewardRedemption, Title: "Redeemed: Seed Drill", Credits: domain.Credits(-400)},
		}, -375, 1},
		{"zero-credit log not counted", []domain.NewActivity{wasteLog(0)}, 0, 0},
		{"detection has no credits", []domain.NewActivity{
			{Type: domain.ActivityDiseaseDetection, Title: "Detected Root Rot"},
		}, 0, 0},
		{"credited non-waste entry", []domain.NewActivity{
			{Type: domain.ActivityDiseaseDetection, Title: "Bonus", Credits: domain.Credits(7)},
		}, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(t)
			for _, e := range tt.entries {
				if _, err := l.Append("u1", e); err != nil {
					t.Fatal(err)
				}
			}
			got := l.Totals("u1")
			if got.EcoCredits != tt.wantCredits {
				t.Errorf("EcoCredits = %d, want %d", got.EcoCredits, tt.wantCredits)
			}
			if got.WasteLogged != tt.wantWaste {
				t.Errorf("WasteLogged = %d, want %d", got.WasteLogged, tt.wantWaste)
			}
			// The cache must always equal a replay of the list.
			if replay := domain.Aggregate(l.Activities("u1")); replay != got {
				t.Errorf("Aggregate() = %+v, cached = %+v", replay, got)
			}
		})
	}
}

func TestAppend_AtomicOnWriteFailure(t *testing.T) {
	l, store := newTestLedger(t)
	l.Append("u1", wasteLog(25))

	store.FailWrites = errors.New("disk full")
	if _, err := l.Append("u1", wasteLog(10)); err == nil {
		t.Fatal("Append() should surface the write error")
	}
	store.FailWrites = nil

	if n := len(l.Activities("u1")); n != 1 {
		t.Errorf("activities = %d, want 1", n)
	}
	if got := l.Totals("u1"); got.EcoCredits != 25 || got.WasteLogged != 1 {
		t.Errorf("Totals() = %+v, want unchanged {25 1}", got)
	}
}

func TestAppend_SQLiteStore(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	l := New(db, nil)
	l.Append("u1", wasteLog(25))
	if got := l.Totals("u1"); got.EcoCredits != 25 {
		t.Fatalf("EcoCredits = %d, want 25", got.EcoCredits)
	}

	raw, _ := db.Get("ecoCredits_u1")
	if string(raw) != "25" {
		t.Errorf("ecoCredits_u1 = %s, want 25", raw)
	}
}

// ─── Clear / Recompute ──────────────────────────────────────────────────────

func TestClear(t *testing.T) {
	l, store := newTestLedger(t)
	l.Append("u1", wasteLog(25))
	l.Append("u2", wasteLog(5))

	if err := l.Clear("u1"); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if n := len(l.Activities("u1")); n != 0 {
		t.Errorf("activities after clear = %d", n)
	}
	if got := l.Totals("u1"); got != (domain.LedgerTotals{}) {
		t.Errorf("Totals() after clear = %+v", got)
	}
	for _, key := range []string{"activities_u1", "ecoCredits_u1", "wasteLogged_u1"} {
		if _, err := store.Get(key); !errors.Is(err, domain.ErrKeyNotFound) {
			t.Errorf("%s still stored", key)
		}
	}
	if got := l.Totals("u2"); got.EcoCredits != 5 {
		t.Errorf("other user's ledger touched: %+v", got)
	}
}

func TestRecompute_RepairsCache(t *testing.T) {
	l, store := newTestLedger(t)
	l.Append("u1", wasteLog(25))
	l.Append("u1", wasteLog(15))
	store.Set("ecoCredits_u1", []byte("999"))

	got, err := l.Recompute("u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.EcoCredits != 40 || got.WasteLogged != 2 {
		t.Errorf("Recompute() = %+v, want {40 2}", got)
	}
	if l.Totals("u1").EcoCredits != 40 {
		t.Error("recomputed counters not persisted")
	}
}

func TestTotals_MissingCountersReplayList(t *testing.T) {
	l, store := newTestLedger(t)
	l.Append("u1", wasteLog(20))
	store.Delete("ecoCredits_u1", "wasteLogged_u1")

	if got := l.Totals("u1"); got.EcoCredits != 20 || got.WasteLogged != 1 {
		t.Errorf("Totals() = %+v, want {20 1}", got)
	}
}

func TestActivities_CorruptListIsEmpty(t *testing.T) {
	l, store := newTestLedger(t)
	store.Set("activities_u1", []byte("not json"))
	if got := l.Activities("u1"); len(got) != 0 {
		t.Errorf("Activities() = %v, want empty", got)
	}
}

// ─── Derived Views ──────────────────────────────────────────────────────────

func TestByType(t *testing.T) {
	l, _ := newTestLedger(t)
	l.Append("u1", wasteLog(5))
	l.Append("u1", domain.NewActivity{Type: domain.ActivityDiseaseDetection, Title: "Detected Leaf Blight"})
	l.Append("u1", wasteLog(10))

	if n := len(l.ByType("u1", domain.ActivityWasteLog)); n != 2 {
		t.Errorf("waste logs = %d, want 2", n)
	}
	if n := len(l.ByType("u1", domain.ActivityRewardRedemption)); n != 0 {
		t.Errorf("redemptions = %d, want 0", n)
	}
}

func TestSummarize(t *testing.T) {
	l, _ := newTestLedger(t)
	l.Append("u1", wasteLog(10))
	l.Append("u1", wasteLog(20))
	l.Append("u1", wasteLog(60))
	l.Append("u1", domain.NewActivity{Type: domain.ActivityRewardRedemption, Title: "Redeemed: Weeder Tool", Credits: domain.Credits(-50)})
	l.Append("u1", domain.NewActivity{Type: domain.ActivityDiseaseDetection, Title: "Detected Root Rot", Severity: "medium"})

	s := l.Summarize("u1")
	if s.TotalActivities != 5 {
		t.Errorf("TotalActivities = %d, want 5", s.TotalActivities)
	}
	if s.EarnedCredits != 90 || s.SpentCredits != 50 {
		t.Errorf("earned/spent = %d/%d, want 90/50", s.EarnedCredits, s.SpentCredits)
	}
	if s.EcoCredits != 40 || s.WasteLogged != 3 {
		t.Errorf("balance/logged = %d/%d, want 40/3", s.EcoCredits, s.WasteLogged)
	}
	if s.Detections != 1 || s.Redemptions != 1 {
		t.Errorf("detections/redemptions = %d/%d, want 1/1", s.Detections, s.Redemptions)
	}
	if s.MeanCreditsPerLog != 30 {
		t.Errorf("MeanCreditsPerLog = %v, want 30", s.MeanCreditsPerLog)
	}
	if s.MedianCreditsPerLog != 20 {
		t.Errorf("MedianCreditsPerLog = %v, want 20", s.MedianCreditsPerLog)
	}
}

func TestSummarize_Empty(t *testing.T) {
	l, _ := newTestLedger(t)
	if s := l.Summarize("u1"); s != (Summary{}) {
		t.Errorf("Summarize(empty) = %+v, want zero", s)
	}
}
