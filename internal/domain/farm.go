package domain

import "time"

// ─── Identity Types ─────────────────────────────────────────────────────────

// User is the signed-in identity on this device.
type User struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// ─── Catalog Types ──────────────────────────────────────────────────────────

// WasteType is a loggable residue with its credit rate.
type WasteType struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	CreditsPerKg int64  `json:"creditsPerKg"`
}

// RewardCategory groups catalog rewards.
type RewardCategory string

const (
	RewardFertilizer RewardCategory = "fertilizer"
	RewardSeeds      RewardCategory = "seeds"
	RewardTools      RewardCategory = "tools"
	RewardServices   RewardCategory = "services"
)

// Reward is something eco-credits can be spent on.
type Reward struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Credits     int64          `json:"credits"`
	Category    RewardCategory `json:"category"`
	Discount    int            `json:"discount"`
	Available   bool           `json:"available"`
}
