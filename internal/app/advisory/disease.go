package advisory

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/observability"
	"github.com/agroloop/agroloop/internal/infra/plantnet"
)

// Serving backends reported in Provenance.Service.
const (
	ServicePlantNet      = "PlantNet API"
	ServiceLocalAnalysis = "Local Analysis"
	ServiceOpenAI        = "OpenAI API"
	ServiceLocalKB       = "Local Knowledge Base"
)

// MatchThreshold is the minimum vendor score accepted as a classification.
const MatchThreshold = 0.7

// MaxImageBytes bounds images read from disk.
const MaxImageBytes = 10 << 20

// PlantIdentifier is the remote identification vendor.
type PlantIdentifier interface {
	Identify(ctx context.Context, images []string) (plantnet.Match, error)
}

// DiseaseClient classifies crop photos.
type DiseaseClient struct {
	configs  *ConfigStore
	vendor   func(apiKey string) PlantIdentifier
	recorder *observability.Recorder

	intn  func(n int) int
	float func() float64
}

// DiseaseOption customizes a DiseaseClient.
type DiseaseOption func(*DiseaseClient)

// WithPlantVendor replaces the PlantNet client factory.
func WithPlantVendor(f func(apiKey string) PlantIdentifier) DiseaseOption {
	return func(c *DiseaseClient) { c.vendor = f }
}

// WithDiseaseRand replaces the random source of the local heuristic.
func WithDiseaseRand(intn func(n int) int, float func() float64) DiseaseOption {
	return func(c *DiseaseClient) {
		c.intn = intn
		c.float = float
	}
}

// WithDiseaseRecorder records every answer.
func WithDiseaseRecorder(r *observability.Recorder) DiseaseOption {
	return func(c *DiseaseClient) { c.recorder = r }
}

// NewDiseaseClient creates a client. Vendor calls time out after timeout.
func NewDiseaseClient(configs *ConfigStore, timeout time.Duration, opts ...DiseaseOption) *DiseaseClient {
	c := &DiseaseClient{
		configs: configs,
		vendor: func(key string) PlantIdentifier {
			return plantnet.New(key, timeout)
		},
		intn:  rand.IntN,
		float: rand.Float64,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify analyses the image at imagePath (a file path, file:// URI or
// data URI). It never fails: vendor problems fall back to the local
// heuristic and are reported in the result's Provenance.
func (c *DiseaseClient) Classify(ctx context.Context, imagePath string) domain.DiseaseResult {
	start := time.Now()
	res := c.classify(ctx, imagePath)
	res.ProcessingTime = time.Since(start)
	c.recorder.Observe(res.Provenance, start)
	return res
}

func (c *DiseaseClient) classify(ctx context.Context, imagePath string) domain.DiseaseResult {
	key := c.configs.Get().PlantNetAPIKey
	if key == "" {
		return c.fallback(domain.Provenance{
			Service: ServiceLocalAnalysis,
			Outcome: domain.VendorUnavailable,
			Reason:  "no PlantNet API key configured",
		})
	}

	image, err := EncodeImage(imagePath)
	if err != nil {
		log.Printf("[advisory] encode image: %v", err)
		return c.fallback(vendorError(ServiceLocalAnalysis, err))
	}

	match, err := c.vendor(key).Identify(ctx, []string{image})
	if err != nil {
		log.Printf("[advisory] PlantNet failed, using local analysis: %v", err)
		return c.fallback(vendorError(ServiceLocalAnalysis, err))
	}
	if match.Score < MatchThreshold {
		return c.fallback(vendorError(ServiceLocalAnalysis,
			fmt.Errorf("top match score %.2f below threshold", match.Score)))
	}
	return fromMatch(match)
}

func vendorError(service string, err error) domain.Provenance {
	return domain.Provenance{Service: service, Outcome: domain.VendorError, Reason: err.Error()}
}

func fromMatch(m plantnet.Match) domain.DiseaseResult {
	res := domain.DiseaseResult{
		Confidence: int(math.Round(m.Score * 100)),
		Provenance: domain.Provenance{Service: ServicePlantNet, Outcome: domain.VendorOK},
	}
	if !isDiseaseRelated(m.CommonNames) {
		res.Description = "Healthy plant identified: " + m.ScientificName
		return res
	}
	res.Detected = true
	res.DiseaseName = m.ScientificName
	res.Description = "Disease detected: " + m.ScientificName
	res.Severity = domain.SeverityFor(m.Score)
	res.Recommendations = Recommendations(m.ScientificName)
	res.TreatmentOptions = TreatmentOptions(m.ScientificName)
	return res
}

func isDiseaseRelated(names []string) bool {
	for _, n := range names {
		lower := strings.ToLower(n)
		for _, kw := range diseaseKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// fallback is the local heuristic: a random known disease with a
// pseudo-confidence in [0.7, 1.0).
func (c *DiseaseClient) fallback(p domain.Provenance) domain.DiseaseResult {
	name := localDiseases[c.intn(len(localDiseases))]
	score := c.float()*0.3 + 0.7
	return domain.DiseaseResult{
		Detected:         score > 0.8,
		DiseaseName:      name,
		Confidence:       int(math.Round(score * 100)),
		Description:      fmt.Sprintf("Analysis suggests %s may be present.", strings.ToLower(name)),
		Recommendations:  Recommendations(name),
		TreatmentOptions: TreatmentOptions(name),
		Severity:         domain.SeverityFor(score),
		Provenance:       p,
	}
}

// EncodeImage turns an image reference into a base64 data URI. Data URIs
// pass through unchanged.
func EncodeImage(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", fmt.Errorf("empty image reference")
	case strings.HasPrefix(ref, "data:"):
		return ref, nil
	}
	path := strings.TrimPrefix(ref, "file://")

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > MaxImageBytes {
		return "", fmt.Errorf("image %s is %d bytes, limit %d", path, info.Size(), MaxImageBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
