// Package farm composes the verification registry, the activity ledger and
// the disease classifier into the flows a farmer runs from the app: logging
// residue for credits, spending credits on rewards and scanning crops.
package farm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/agroloop/agroloop/internal/domain"
)

// CodeRedeemer consumes verification codes.
type CodeRedeemer interface {
	Redeem(code, farmerID string) (domain.VerificationCode, error)
}

// Ledger records activities and reports balances.
type Ledger interface {
	Append(uid string, entry domain.NewActivity) (domain.Activity, error)
	Totals(uid string) domain.LedgerTotals
}

// Classifier analyses crop photos. It never fails.
type Classifier interface {
	Classify(ctx context.Context, imagePath string) domain.DiseaseResult
}

// WasteLog is a request to credit collected residue.
type WasteLog struct {
	WasteTypeID string  `json:"wasteTypeId"`
	Quantity    float64 `json:"quantity"`
	Location    string  `json:"location"`
	Code        string  `json:"code"`
}

// Validate checks the request before any code is consumed.
func (w WasteLog) Validate() error {
	switch {
	case strings.TrimSpace(w.WasteTypeID) == "":
		return domain.Invalid("wasteTypeId", "is required")
	case w.Quantity <= 0 || math.IsNaN(w.Quantity) || math.IsInf(w.Quantity, 0):
		return domain.Invalid("quantity", "must be a positive number")
	case strings.TrimSpace(w.Location) == "":
		return domain.Invalid("location", "is required")
	case strings.TrimSpace(w.Code) == "":
		return domain.Invalid("code", "is required")
	}
	return nil
}

// Scan is the outcome of ScanCrop. Activity is nil when nothing was recorded.
type Scan struct {
	Result   domain.DiseaseResult `json:"result"`
	Activity *domain.Activity     `json:"activity,omitempty"`
}

// Service runs the farm flows.
type Service struct {
	// mu serializes balance checks with the appends that spend the balance.
	mu         sync.Mutex
	codes      CodeRedeemer
	ledger     Ledger
	classifier Classifier
}

// New creates the flow service.
func New(codes CodeRedeemer, ledger Ledger, classifier Classifier) *Service {
	return &Service{codes: codes, ledger: ledger, classifier: classifier}
}

// WasteCredits is quantity times the per-kilogram rate, rounded to whole credits.
func WasteCredits(w domain.WasteType, quantity float64) int64 {
	return int64(math.Round(quantity * float64(w.CreditsPerKg)))
}

// LogWaste consumes req.Code for uid and credits the residue.
func (s *Service) LogWaste(uid string, req WasteLog) (domain.Activity, error) {
	if err := req.Validate(); err != nil {
		return domain.Activity{}, err
	}
	wt, ok := WasteTypeByID(req.WasteTypeID)
	if !ok {
		return domain.Activity{}, fmt.Errorf("%w: %q", domain.ErrUnknownWasteType, req.WasteTypeID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.TrimSpace(req.Code)
	if _, err := s.codes.Redeem(code, uid); err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return domain.Activity{}, domain.ErrInvalidVerificationCode
		}
		return domain.Activity{}, fmt.Errorf("redeem code: %w", err)
	}

	a, err := s.ledger.Append(uid, domain.NewActivity{
		Type:             domain.ActivityWasteLog,
		Title:            "Logged " + wt.Label,
		Credits:          domain.Credits(WasteCredits(wt, req.Quantity)),
		VerificationCode: code,
		WasteType:        wt.Label,
		Quantity:         req.Quantity,
		Location:         strings.TrimSpace(req.Location),
	})
	if err != nil {
		log.Printf("[farm] code %s consumed but waste log not recorded: %v", code, err)
		return domain.Activity{}, err
	}
	log.Printf("[farm] waste logged: %s %.2fkg -> %d credits", wt.ID, req.Quantity, *a.Credits)
	return a, nil
}

// RedeemReward spends credits on a catalog reward.
func (s *Service) RedeemReward(uid, rewardID string) (domain.Activity, error) {
	r, ok := RewardByID(rewardID)
	if !ok {
		return domain.Activity{}, fmt.Errorf("%w: %q", domain.ErrRewardNotFound, rewardID)
	}
	if !r.Available {
		return domain.Activity{}, domain.ErrRewardUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if bal := s.ledger.Totals(uid).EcoCredits; bal < r.Credits {
		return domain.Activity{}, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientCredits, bal, r.Credits)
	}
	a, err := s.ledger.Append(uid, domain.NewActivity{
		Type:    domain.ActivityRewardRedemption,
		Title:   "Redeemed: " + r.Title,
		Credits: domain.Credits(-r.Credits),
	})
	if err != nil {
		return domain.Activity{}, err
	}
	log.Printf("[farm] reward %s redeemed for %d credits", r.ID, r.Credits)
	return a, nil
}

// ScanCrop classifies the image and records a detection when one is found.
func (s *Service) ScanCrop(ctx context.Context, uid, imagePath string) (Scan, error) {
	if strings.TrimSpace(uid) == "" {
		return Scan{}, domain.ErrEmptyUserID
	}
	if strings.TrimSpace(imagePath) == "" {
		return Scan{}, domain.Invalid("imagePath", "is required")
	}
	res := s.classifier.Classify(ctx, imagePath)
	out := Scan{Result: res}
	if !res.Detected || res.DiseaseName == "" {
		return out, nil
	}
	a, err := s.ledger.Append(uid, domain.NewActivity{
		Type:     domain.ActivityDiseaseDetection,
		Title:    "Detected " + res.DiseaseName,
		Severity: string(res.Severity),
	})
	if err != nil {
		return out, err
	}
	out.Activity = &a
	return out, nil
}
