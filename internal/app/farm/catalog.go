package farm

import "github.com/agroloop/agroloop/internal/domain"

// wasteTypes is the fixed residue catalog, in display order.
var wasteTypes = []domain.WasteType{
	{ID: "stubble", Label: "Rice Stubble", CreditsPerKg: 5},
	{ID: "leaves", Label: "Crop Leaves", CreditsPerKg: 3},
	{ID: "stalks", Label: "Corn Stalks", CreditsPerKg: 4},
	{ID: "husks", Label: "Wheat Husks", CreditsPerKg: 3},
	{ID: "other", Label: "Other Waste", CreditsPerKg: 2},
}

func reward(id, title, desc string, credits int64, cat domain.RewardCategory, discount int) domain.Reward {
	return domain.Reward{
		ID:          id,
		Title:       title,
		Description: desc,
		Credits:     credits,
		Category:    cat,
		Discount:    discount,
		Available:   true,
	}
}

var rewards = []domain.Reward{
	reward("1", "Organic Fertilizer 50kg", "20% discount on premium organic fertilizer", 500, domain.RewardFertilizer, 20),
	reward("2", "NPK Fertilizer 25kg", "Balanced NPK fertilizer for all crops", 300, domain.RewardFertilizer, 15),
	reward("3", "Urea Fertilizer 50kg", "High nitrogen fertilizer for leafy growth", 250, domain.RewardFertilizer, 10),
	reward("4", "DAP Fertilizer 25kg", "Phosphorus-rich fertilizer for root development", 400, domain.RewardFertilizer, 12),
	reward("5", "Micronutrient Mix 10kg", "Essential micronutrients for healthy crops", 600, domain.RewardFertilizer, 25),
	reward("6", "Bio Fertilizer Pack", "Organic bio fertilizers for sustainable farming", 450, domain.RewardFertilizer, 18),

	reward("7", "Hybrid Wheat Seeds 10kg", "High-yield hybrid wheat seeds", 300, domain.RewardSeeds, 15),
	reward("8", "Rice Seeds Premium 5kg", "Premium quality rice seeds", 250, domain.RewardSeeds, 12),
	reward("9", "Corn Seeds Hybrid 2kg", "High-yield hybrid corn seeds", 200, domain.RewardSeeds, 10),
	reward("10", "Cotton Seeds 1kg", "Quality cotton seeds for better yield", 180, domain.RewardSeeds, 8),
	reward("11", "Sugarcane Seeds 5kg", "Premium sugarcane seeds", 350, domain.RewardSeeds, 20),
	reward("12", "Vegetable Seeds Mix", "Mixed vegetable seeds pack", 150, domain.RewardSeeds, 15),
	reward("13", "Pulse Seeds Pack", "Various pulse seeds for crop rotation", 220, domain.RewardSeeds, 12),

	reward("14", "Soil Testing Kit", "Free soil analysis kit worth ₹200", 400, domain.RewardTools, 100),
	reward("15", "Garden Tool Set", "Complete garden tool set with 5 tools", 600, domain.RewardTools, 30),
	reward("16", "Pruning Shears", "Professional pruning shears", 250, domain.RewardTools, 20),
	reward("17", "Watering Can 10L", "Large capacity watering can", 180, domain.RewardTools, 15),
	reward("18", "Sprayer Pump", "Manual sprayer for pesticides/fertilizers", 350, domain.RewardTools, 25),
	reward("19", "Measuring Tape", "Agricultural measuring tape 50m", 120, domain.RewardTools, 10),
	reward("20", "Seed Drill", "Manual seed drill for precise planting", 800, domain.RewardTools, 40),
	reward("21", "Weeder Tool", "Efficient weeding tool for row crops", 200, domain.RewardTools, 15),
	reward("22", "Harvesting Sickle", "Traditional harvesting sickle", 150, domain.RewardTools, 12),

	reward("23", "Agricultural Consultation", "1 hour free consultation with expert", 200, domain.RewardServices, 100),
	reward("24", "Professional Soil Testing", "Complete soil analysis with detailed report", 350, domain.RewardServices, 100),
	reward("25", "Tool Rental Service", "Rent agricultural tools for 1 week", 150, domain.RewardServices, 50),
	reward("26", "Irrigation System Setup", "Professional irrigation system installation", 800, domain.RewardServices, 200),
	reward("27", "Pest Control Service", "Professional pest control treatment", 600, domain.RewardServices, 150),
}

// WasteTypes returns the residue catalog.
func WasteTypes() []domain.WasteType {
	return append([]domain.WasteType(nil), wasteTypes...)
}

// WasteTypeByID looks up a residue by id.
func WasteTypeByID(id string) (domain.WasteType, bool) {
	for _, w := range wasteTypes {
		if w.ID == id {
			return w, true
		}
	}
	return domain.WasteType{}, false
}

// Rewards returns the reward catalog, filtered to category when it is non-empty.
func Rewards(category domain.RewardCategory) []domain.Reward {
	out := make([]domain.Reward, 0, len(rewards))
	for _, r := range rewards {
		if category == "" || r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// RewardByID looks up a reward by id.
func RewardByID(id string) (domain.Reward, bool) {
	for _, r := range rewards {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Reward{}, false
}
