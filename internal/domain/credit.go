package domain

// ─── Activity Ledger Types ──────────────────────────────────────────────────
// These live in domain because they represent core business rules.
// The balance and the waste counter are derived from the activity list.

// ActivityType classifies a ledger entry.
type ActivityType string

const (
	ActivityWasteLog         ActivityType = "waste_log"
	ActivityDiseaseDetection ActivityType = "disease_detection"
	ActivityRewardRedemption ActivityType = "reward_redemption"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityWasteLog, ActivityDiseaseDetection, ActivityRewardRedemption:
		return true
	}
	return false
}

// Activity is one immutable ledger entry.
type Activity struct {
	ID       string       `json:"id"`
	Type     ActivityType `json:"type"`
	Title    string       `json:"title"`
	Date     string       `json:"date"`
	Credits  *int64       `json:"credits,omitempty"`
	Severity string       `json:"severity,omitempty"`

	// Waste log details
	VerificationCode string  `json:"verificationCode,omitempty"`
	WasteType        string  `json:"wasteType,omitempty"`
	Quantity         float64 `json:"quantity,omitempty"`
	Location         string  `json:"location,omitempty"`
}

// CreditDelta returns the signed credit change, or 0 if the entry carries none.
func (a Activity) CreditDelta() int64 {
	if a.Credits == nil {
		return 0
	}
	return *a.Credits
}

// CountsAsWasteLogged reports whether the entry increments the waste counter.
func (a Activity) CountsAsWasteLogged() bool {
	return a.Type == ActivityWasteLog && a.CreditDelta() > 0
}

// NewActivity is the caller-supplied part of an Activity; the ledger assigns
// ID and Date.
type NewActivity struct {
	Type             ActivityType `json:"type"`
	Title            string       `json:"title"`
	Credits          *int64       `json:"credits,omitempty"`
	Severity         string       `json:"severity,omitempty"`
	VerificationCode string       `json:"verificationCode,omitempty"`
	WasteType        string       `json:"wasteType,omitempty"`
	Quantity         float64      `json:"quantity,omitempty"`
	Location         string       `json:"location,omitempty"`
}

// Credits is a convenience for building the optional credit field.
func Credits(n int64) *int64 { return &n }

// LedgerTotals are the two counters cached next to the activity list.
type LedgerTotals struct {
	EcoCredits  int64 `json:"ecoCredits"`
	WasteLogged int   `json:"wasteLogged"`
}

// Aggregate replays the counter rules over a list of activities.
func Aggregate(activities []Activity) LedgerTotals {
	var t LedgerTotals
	for _, a := range activities {
		t.EcoCredits += a.CreditDelta()
		if a.CountsAsWasteLogged() {
			t.WasteLogged++
		}
	}
	return t
}
