package advisory

// Diseases the local heuristic can report.
var localDiseases = []string{
	"Leaf Blight",
	"Powdery Mildew",
	"Root Rot",
	"Bacterial Spot",
}

// diseaseKeywords mark a species match as a disease.
var diseaseKeywords = []string{
	"blight", "mildew", "rot", "spot", "rust", "wilt", "mosaic", "virus",
	"fungus", "bacterial", "disease", "infection", "pathogen", "lesion",
	"necrosis", "chlorosis",
}

var recommendations = map[string][]string{
	"Leaf Blight": {
		"Remove affected leaves immediately",
		"Apply fungicide treatment",
		"Improve air circulation around plants",
		"Avoid overhead watering",
	},
	"Powdery Mildew": {
		"Apply sulfur-based fungicide",
		"Increase plant spacing",
		"Reduce humidity levels",
		"Remove infected plant parts",
	},
	"Root Rot": {
		"Improve soil drainage",
		"Reduce watering frequency",
		"Apply fungicide to soil",
		"Remove severely affected plants",
	},
	"Bacterial Spot": {
		"Remove infected plant parts",
		"Apply copper-based bactericide",
		"Avoid overhead irrigation",
		"Improve air circulation",
	},
}

var genericRecommendations = []string{
	"Consult with agricultural expert",
	"Monitor plant health closely",
	"Consider preventive measures",
}

var treatments = map[string][]string{
	"Leaf Blight":    {"Fungicide application", "Cultural practices", "Biological control"},
	"Powdery Mildew": {"Sulfur fungicide", "Neem oil treatment", "Baking soda solution"},
	"Root Rot":       {"Soil fungicide", "Drainage improvement", "Root treatment"},
	"Bacterial Spot": {"Copper bactericide", "Cultural management", "Resistant varieties"},
}

var genericTreatments = []string{
	"General disease management",
	"Expert consultation",
}

// Recommendations returns the care steps for a disease name.
func Recommendations(disease string) []string {
	if r, ok := recommendations[disease]; ok {
		return append([]string(nil), r...)
	}
	return append([]string(nil), genericRecommendations...)
}

// TreatmentOptions returns the treatments for a disease name.
func TreatmentOptions(disease string) []string {
	if t, ok := treatments[disease]; ok {
		return append([]string(nil), t...)
	}
	return append([]string(nil), genericTreatments...)
}
