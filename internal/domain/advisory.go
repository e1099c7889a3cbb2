package domain

import "time"

// ─── Advisory Types ─────────────────────────────────────────────────────────

// AIConfig is the per-device advisory configuration, persisted under "aiConfig".
type AIConfig struct {
	EnableRealTime bool   `json:"enableRealTime"`
	UseFreeModels  bool   `json:"useFreeModels"`
	PlantNetAPIKey string `json:"plantnetApiKey,omitempty"`
	OpenAIAPIKey   string `json:"openaiApiKey,omitempty"`
}

// DefaultAIConfig is used when nothing has been saved yet.
func DefaultAIConfig() AIConfig {
	return AIConfig{EnableRealTime: false, UseFreeModels: true}
}

// VendorOutcome classifies how the remote vendor call went.
type VendorOutcome string

const (
	VendorOK          VendorOutcome = "ok"                 // vendor answered
	VendorUnavailable VendorOutcome = "vendor_unavailable" // no key configured
	VendorError       VendorOutcome = "vendor_error"       // call made, failed
)

// Provenance records which backend served an answer and why.
type Provenance struct {
	Service string        `json:"service"`
	Outcome VendorOutcome `json:"outcome"`
	Reason  string        `json:"reason,omitempty"`
}

// FromVendor reports whether the vendor produced the answer.
func (p Provenance) FromVendor() bool { return p.Outcome == VendorOK }

// Severity grades a detected disease.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityFor maps a 0–1 score onto the fixed severity thresholds.
func SeverityFor(score float64) Severity {
	switch {
	case score >= 0.9:
		return SeverityHigh
	case score >= 0.7:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DiseaseResult is the outcome of classifying one photo.
type DiseaseResult struct {
	Detected         bool          `json:"detected"`
	DiseaseName      string        `json:"diseaseName,omitempty"`
	Confidence       int           `json:"confidence"`
	Description      string        `json:"description,omitempty"`
	Recommendations  []string      `json:"recommendations,omitempty"`
	TreatmentOptions []string      `json:"treatmentOptions,omitempty"`
	Severity         Severity      `json:"severity,omitempty"`
	Provenance       Provenance    `json:"provenance"`
	ProcessingTime   time.Duration `json:"processingTime"`
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExpertResponse is one advisory chat answer.
type ExpertResponse struct {
	Message        string        `json:"message"`
	Confidence     float64       `json:"confidence"`
	Provenance     Provenance    `json:"provenance"`
	ProcessingTime time.Duration `json:"processingTime"`
}
