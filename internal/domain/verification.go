// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring and depends on nothing.
package domain

import (
	"math"
	"strings"
	"time"
)

// ─── Verification Code Types ────────────────────────────────────────────────

// CodeTTL is the fixed validity window of every issued code.
const CodeTTL = 24 * time.Hour

// Simulated code range. Codes are short operator-readable numbers.
const (
	MinCodeValue = 1
	MaxCodeValue = 100
)

// VerificationCode binds a waste submission to a one-time credential.
type VerificationCode struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	WasteType string     `json:"wasteType"`
	Quantity  float64    `json:"quantity"`
	Location  string     `json:"location"`
	FarmerID  string     `json:"farmerId"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	IsUsed    bool       `json:"isUsed"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

// Expired reports whether the code is past its window at now.
func (c VerificationCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Active reports whether the code can still be redeemed at now.
func (c VerificationCode) Active(now time.Time) bool {
	return !c.IsUsed && !c.Expired(now)
}

// VerificationRequest is the submission an operator attests to.
type VerificationRequest struct {
	WasteType string  `json:"wasteType"`
	Quantity  float64 `json:"quantity"`
	Location  string  `json:"location"`
	FarmerID  string  `json:"farmerId"`
}

// Validate checks that all fields are present and quantity is a positive,
// finite number.
func (r VerificationRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.FarmerID) == "":
		return Invalid("farmerId", "is required")
	case strings.TrimSpace(r.WasteType) == "":
		return Invalid("wasteType", "is required")
	case strings.TrimSpace(r.Location) == "":
		return Invalid("location", "is required")
	case r.Quantity <= 0 || math.IsNaN(r.Quantity) || math.IsInf(r.Quantity, 0):
		return Invalid("quantity", "must be a positive number")
	}
	return nil
}

// VerificationStats summarises one farmer's codes.
type VerificationStats struct {
	Total   int `json:"total"`
	Used    int `json:"used"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}
