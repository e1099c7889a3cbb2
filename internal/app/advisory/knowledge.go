package advisory

import (
	"strings"
	"unicode"
)

// SystemPrompt leads every conversation.
const SystemPrompt = `You are an expert agricultural AI assistant specializing in farming, crop management, pest control, soil health, irrigation, and sustainable agriculture practices.

Your expertise includes:
- Crop disease identification and treatment
- Pest management and control strategies
- Soil health assessment and improvement
- Irrigation and water management
- Fertilizer recommendations
- Weather impact on agriculture
- Sustainable farming practices
- Organic farming methods
- Crop rotation strategies
- Harvest timing and techniques

Provide practical, actionable advice that farmers can implement immediately. Always consider local conditions, sustainability, and cost-effectiveness. If you're unsure about something, recommend consulting with local agricultural experts.

Keep responses concise but informative, and always prioritize safety and environmental responsibility.`

// topic is a keyword bucket of the local knowledge base. The first
// matching refinement wins over the topic's own answer.
type topic struct {
	name     string
	keywords []string
	answer   string
	refine   []topic
}

// Topics are tried in order.
var topics = []topic{
	{
		name: "disease",
		keywords: []string{"disease", "diseases", "sick", "blight", "mildew", "rot", "rotting",
			"spot", "spots", "rust", "wilt", "wilting", "fungus", "fungal", "infection", "yellowing"},
		answer: "For crop diseases, first identify the symptoms. Common signs include yellowing leaves, spots, wilting, or stunted growth. Remove affected plant parts immediately and apply appropriate fungicides. Improve air circulation and avoid overhead watering to prevent fungal diseases.",
		refine: []topic{{
			name:     "root rot",
			keywords: []string{"root rot", "roots", "root"},
			answer:   "Root rot starts in waterlogged soil. Improve soil drainage with raised beds or organic matter, reduce watering frequency and let the topsoil dry out between waterings. Apply a soil fungicide around affected plants, remove severely affected plants with their roots, and avoid replanting the same crop in that spot until the soil has recovered.",
		}},
	},
	{
		name:     "pest",
		keywords: []string{"pest", "pests", "insect", "insects", "bug", "bugs", "aphid", "aphids", "caterpillar", "caterpillars"},
		answer:   "For pest control, identify the pest first. Use integrated pest management: start with cultural controls, then biological, and chemical as last resort. Regular monitoring and early intervention are key.",
		refine: []topic{{
			name:     "organic pest",
			keywords: []string{"organic", "natural"},
			answer:   "Organic pest control methods include neem oil, insecticidal soap, and beneficial insects like ladybugs. Companion planting with marigolds or garlic can deter pests. Regular monitoring helps catch problems early.",
		}},
	},
	{
		name:     "irrigation",
		keywords: []string{"water", "watering", "irrigation", "irrigate", "drip", "moisture"},
		answer:   "Water management is crucial for crop health. Most crops need 1-2 inches of water per week. Use drip irrigation for efficiency and water early morning to reduce evaporation. Monitor soil moisture regularly and adjust based on weather conditions.",
	},
	{
		name:     "fertilizer",
		keywords: []string{"fertilizer", "fertilizers", "fertiliser", "nutrient", "nutrients", "npk", "urea", "manure"},
		answer:   "Soil testing helps determine fertilizer needs. Most crops benefit from balanced NPK fertilizers. Apply fertilizers at planting and during growth stages. Organic options like compost and manure improve soil health long-term.",
	},
	{
		name:     "soil",
		keywords: []string{"soil", "soils", "dirt"},
		answer:   "Healthy soil is the foundation of good farming. Add organic matter like compost, practice crop rotation, and avoid over-tilling. Test soil nutrients annually and maintain proper pH levels.",
		refine: []topic{{
			name:     "soil ph",
			keywords: []string{"ph", "acid", "acidic", "alkaline", "lime"},
			answer:   "Most crops prefer soil pH between 6.0-7.0. Test soil pH annually. Add lime to raise pH or sulfur to lower it. Organic matter like compost helps buffer pH changes.",
		}},
	},
	{
		name:     "organic",
		keywords: []string{"organic", "natural", "sustainable", "compost", "composting"},
		answer:   "Organic farming builds fertility with compost, green manure and crop rotation instead of synthetic inputs. Grow cover crops to protect bare soil, encourage beneficial insects, and keep neem oil or insecticidal soap for outbreaks. Crop residue such as stubble is better composted than burned.",
	},
	{
		name:     "weather",
		keywords: []string{"weather", "climate", "temperature", "frost", "rain", "drought", "heat"},
		answer:   "Monitor weather forecasts for farming decisions. Protect crops from frost with covers or irrigation. Adjust planting times based on local climate. Consider drought-resistant varieties in dry areas.",
	},
	{
		name:     "harvest",
		keywords: []string{"harvest", "harvesting", "yield", "yields"},
		answer:   "Harvest timing affects quality and yield. Most vegetables are best harvested in the morning when cool. Check maturity indicators like color, size, and firmness. Store harvested produce properly to maintain quality.",
	},
	{
		name:     "crop",
		keywords: []string{"crop", "crops", "plant", "plants", "rotation", "seed", "seeds"},
		answer:   "For healthy crops, ensure proper spacing, regular watering, and pest monitoring. Rotate crops annually to prevent soil-borne diseases and maintain soil fertility.",
	},
}

const defaultAnswer = "I'm here to help with your farming questions! I can assist with crop management, pest control, soil health, irrigation, and more. What specific aspect of farming would you like to know more about?"

// LocalAnswer answers from the keyword knowledge base. Keywords match whole
// words, so "carrot" does not hit the "rot" bucket.
func LocalAnswer(message string) (answer, topicName string) {
	text := normalize(message)
	for _, t := range topics {
		if !t.matches(text) {
			continue
		}
		for _, r := range t.refine {
			if r.matches(text) {
				return r.answer, r.name
			}
		}
		return t.answer, t.name
	}
	return defaultAnswer, "default"
}

func (t topic) matches(text string) bool {
	for _, kw := range t.keywords {
		if strings.Contains(text, " "+kw+" ") {
			return true
		}
	}
	return false
}

// normalize lowercases s, turns every non-alphanumeric rune into a space and
// pads the result so keywords can be matched as " word ".
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(fields, " ") + " "
}
