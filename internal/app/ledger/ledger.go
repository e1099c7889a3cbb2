// Package ledger keeps each user's append-only activity list together with
// the two counters derived from it.
//
// Storage layout per user (built through kv.Scope):
//
//	activities_<uid>   JSON list, newest first
//	ecoCredits_<uid>   running credit balance
//	wasteLogged_<uid>  number of credited waste logs
//
// The three keys are always written in one atomic batch.
package ledger

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/kv"
	"github.com/agroloop/agroloop/internal/infra/observability"
)

// Logical key names inside a user's scope.
const (
	KeyActivities  = "activities"
	KeyEcoCredits  = "ecoCredits"
	KeyWasteLogged = "wasteLogged"
)

// DateLayout is the calendar-date format of Activity.Date.
const DateLayout = "2006-01-02"

// Ledger is the activity ledger service.
type Ledger struct {
	mu     sync.Mutex
	store  domain.KVStore
	now    func() time.Time
	lastID int64
}

// New creates a ledger over store. A nil now uses time.Now.
func New(store domain.KVStore, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, now: now}
}

// ─── Writes ─────────────────────────────────────────────────────────────────

// Append records entry for uid, newest first, and updates the counters in
// the same storage batch.
func (l *Ledger) Append(uid string, entry domain.NewActivity) (domain.Activity, error) {
	if !entry.Type.Valid() {
		return domain.Activity{}, domain.Invalid("type", "unknown activity type")
	}
	if strings.TrimSpace(entry.Title) == "" {
		return domain.Activity{}, domain.Invalid("title", "is required")
	}
	scope, err := kv.ForUser(l.store, uid)
	if err != nil {
		return domain.Activity{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	list, err := l.read(scope)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("append: %w", err)
	}
	totals := l.totals(scope, list)

	now := l.now()
	a := domain.Activity{
		ID:               l.nextID(now),
		Type:             entry.Type,
		Title:            entry.Title,
		Date:             now.Format(DateLayout),
		Credits:          entry.Credits,
		Severity:         entry.Severity,
		VerificationCode: entry.VerificationCode,
		WasteType:        entry.WasteType,
		Quantity:         entry.Quantity,
		Location:         entry.Location,
	}
	list = append([]domain.Activity{a}, list...)
	totals.EcoCredits += a.CreditDelta()
	if a.CountsAsWasteLogged() {
		totals.WasteLogged++
	}

	if err := l.write(scope, list, totals); err != nil {
		return domain.Activity{}, fmt.Errorf("append: %w", err)
	}

	observability.LedgerAppends.WithLabelValues(string(a.Type)).Inc()
	switch d := a.CreditDelta(); {
	case d > 0:
		observability.CreditsAwarded.Add(float64(d))
	case d < 0:
		observability.CreditsSpent.Add(float64(-d))
	}
	return a, nil
}

// nextID derives a unique id from the clock. Two appends in the same
// nanosecond still get distinct ids.
func (l *Ledger) nextID(now time.Time) string {
	id := now.UnixNano()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return strconv.FormatInt(id, 10)
}

// Clear drops the list and both counters for uid.
func (l *Ledger) Clear(uid string) error {
	scope, err := kv.ForUser(l.store, uid)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err = scope.Apply(
		scope.Remove(KeyActivities),
		scope.Remove(KeyEcoCredits),
		scope.Remove(KeyWasteLogged),
	)
	if err != nil {
		observability.StorageErrors.WithLabelValues("write").Inc()
		log.Printf("[ledger] clear uid=%s: %v", uid, err)
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// Recompute replays the aggregation over the stored list and rewrites the
// cached counters.
func (l *Ledger) Recompute(uid string) (domain.LedgerTotals, error) {
	scope, err := kv.ForUser(l.store, uid)
	if err != nil {
		return domain.LedgerTotals{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	list, err := l.read(scope)
	if err != nil {
		return domain.LedgerTotals{}, fmt.Errorf("recompute: %w", err)
	}
	totals := domain.Aggregate(list)
	if err := l.write(scope, list, totals); err != nil {
		return domain.LedgerTotals{}, fmt.Errorf("recompute: %w", err)
	}
	return totals, nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Activities returns uid's entries, newest first. Unreadable data counts as
// an empty ledger.
func (l *Ledger) Activities(uid string) []domain.Activity {
	scope, err := kv.ForUser(l.store, uid)
	if err != nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	list, _ := l.read(scope)
	return list
}

// ByType returns uid's entries of type t, newest first.
func (l *Ledger) ByType(uid string, t domain.ActivityType) []domain.Activity {
	var out []domain.Activity
	for _, a := range l.Activities(uid) {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// Totals returns the cached counters, falling back to a replay of the list
// when they were never written.
func (l *Ledger) Totals(uid string) domain.LedgerTotals {
	scope, err := kv.ForUser(l.store, uid)
	if err != nil {
		return domain.LedgerTotals{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	list, _ := l.read(scope)
	return l.totals(scope, list)
}

// Summary is the statistics view over one user's ledger.
type Summary struct {
	TotalActivities     int     `json:"totalActivities"`
	EcoCredits          int64   `json:"ecoCredits"`
	WasteLogged         int     `json:"wasteLogged"`
	EarnedCredits       int64   `json:"earnedCredits"`
	SpentCredits        int64   `json:"spentCredits"`
	Detections          int     `json:"detections"`
	Redemptions         int     `json:"redemptions"`
	MeanCreditsPerLog   float64 `json:"meanCreditsPerLog"`
	MedianCreditsPerLog float64 `json:"medianCreditsPerLog"`
}

// Summarize computes the derived views for uid.
func (l *Ledger) Summarize(uid string) Summary {
	list := l.Activities(uid)
	s := Summary{TotalActivities: len(list)}

	var perLog stats.Float64Data
	for _, a := range list {
		d := a.CreditDelta()
		switch a.Type {
		case domain.ActivityWasteLog:
			if d > 0 {
				s.EarnedCredits += d
				perLog = append(perLog, float64(d))
			}
		case domain.ActivityRewardRedemption:
			s.Redemptions++
			if d < 0 {
				s.SpentCredits += -d
			}
		case domain.ActivityDiseaseDetection:
			s.Detections++
		}
	}
	if len(perLog) > 0 {
		s.MeanCreditsPerLog, _ = stats.Mean(perLog)
		s.MedianCreditsPerLog, _ = stats.Median(perLog)
	}

	t := l.Totals(uid)
	s.EcoCredits = t.EcoCredits
	s.WasteLogged = t.WasteLogged
	return s
}

// ─── Storage ────────────────────────────────────────────────────────────────

func (l *Ledger) read(scope kv.Scope) ([]domain.Activity, error) {
	var list []domain.Activity
	if _, err := scope.ReadJSON(KeyActivities, &list); err != nil {
		observability.StorageErrors.WithLabelValues("read").Inc()
		log.Printf("[ledger] read %s: %v", scope.Key(KeyActivities), err)
		return nil, err
	}
	return list, nil
}

func (l *Ledger) totals(scope kv.Scope, list []domain.Activity) domain.LedgerTotals {
	var t domain.LedgerTotals
	okCredits, err1 := scope.ReadJSON(KeyEcoCredits, &t.EcoCredits)
	okWaste, err2 := scope.ReadJSON(KeyWasteLogged, &t.WasteLogged)
	if err1 != nil || err2 != nil || !okCredits || !okWaste {
		return domain.Aggregate(list)
	}
	return t
}

func (l *Ledger) write(scope kv.Scope, list []domain.Activity, t domain.LedgerTotals) error {
	wList, err := scope.Put(KeyActivities, list)
	if err != nil {
		return err
	}
	wCredits, err := scope.Put(KeyEcoCredits, t.EcoCredits)
	if err != nil {
		return err
	}
	wWaste, err := scope.Put(KeyWasteLogged, t.WasteLogged)
	if err != nil {
		return err
	}
	if err := scope.Apply(wList, wCredits, wWaste); err != nil {
		observability.StorageErrors.WithLabelValues("write").Inc()
		log.Printf("[ledger] write uid=%s: %v", scope.UID(), err)
		return err
	}
	return nil
}
