// Package verification issues and redeems the short one-time codes an
// operator hands a farmer when a waste submission is checked on site.
//
// All codes of the device live in one JSON list under StorageKey. Every
// mutation is a read-modify-write of that list, serialized by the registry
// mutex.
package verification

import (
	"fmt"
	"log"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/kv"
	"github.com/agroloop/agroloop/internal/infra/observability"
)

// StorageKey holds the device-wide code list.
const StorageKey = "verification_codes"

// Values used for records fabricated by simulation mode.
const (
	simulatedWasteType = "Simulated Waste"
	simulatedQuantity  = 10
	simulatedLocation  = "Simulated Location"
)

// Config controls registry behavior.
type Config struct {
	// SimulationMode accepts any in-range code a farmer has never seen and
	// fabricates an already-used record for it. Demo profiles only.
	SimulationMode bool
}

// Registry is the verification code service.
type Registry struct {
	mu     sync.Mutex
	config Config
	store  domain.KVStore

	now   func() time.Time
	intn  func(n int) int
	newID func() string
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithRand replaces the code draw. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(r *Registry) { r.intn = intn }
}

// New creates a registry over store.
func New(cfg Config, store domain.KVStore, opts ...Option) *Registry {
	r := &Registry{
		config: cfg,
		store:  store,
		now:    time.Now,
		intn:   rand.IntN,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SimulationMode reports whether demo acceptance is on.
func (r *Registry) SimulationMode() bool { return r.config.SimulationMode }

// ─── Issue ──────────────────────────────────────────────────────────────────

// Issue validates req and persists a fresh, unused code valid for CodeTTL.
// The value is drawn from [MinCodeValue, MaxCodeValue] excluding values held
// by the same farmer's active codes.
func (r *Registry) Issue(req domain.VerificationRequest) (domain.VerificationCode, error) {
	if err := req.Validate(); err != nil {
		return domain.VerificationCode{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	codes, err := r.load()
	if err != nil {
		return domain.VerificationCode{}, fmt.Errorf("issue: %w", err)
	}

	now := r.now()
	taken := make(map[string]bool)
	for _, c := range codes {
		if c.FarmerID == req.FarmerID && c.Active(now) {
			taken[c.Code] = true
		}
	}
	var free []string
	for v := domain.MinCodeValue; v <= domain.MaxCodeValue; v++ {
		if s := strconv.Itoa(v); !taken[s] {
			free = append(free, s)
		}
	}
	if len(free) == 0 {
		return domain.VerificationCode{}, domain.ErrCodeSpaceExhausted
	}

	code := domain.VerificationCode{
		ID:        r.newID(),
		Code:      free[r.intn(len(free))],
		WasteType: req.WasteType,
		Quantity:  req.Quantity,
		Location:  req.Location,
		FarmerID:  req.FarmerID,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.CodeTTL),
	}
	if err := r.save(append(codes, code)); err != nil {
		return domain.VerificationCode{}, fmt.Errorf("issue: %w", err)
	}

	observability.CodesIssued.Inc()
	log.Printf("[verification] issued code for farmer=%s waste=%s qty=%.2f", req.FarmerID, req.WasteType, req.Quantity)
	return code, nil
}

// ─── Redeem ─────────────────────────────────────────────────────────────────

// Redeem marks the farmer's active code as used and returns it. Used,
// expired and unknown codes all yield domain.ErrCodeNotFound.
func (r *Registry) Redeem(code, farmerID string) (domain.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes, err := r.load()
	if err != nil {
		return domain.VerificationCode{}, fmt.Errorf("redeem: %w", err)
	}
	now := r.now()

	seen := false
	for i := range codes {
		c := &codes[i]
		if c.Code != code || c.FarmerID != farmerID {
			continue
		}
		seen = true
		if !c.Active(now) {
			continue
		}
		c.IsUsed = true
		c.UsedAt = &now
		if err := r.save(codes); err != nil {
			return domain.VerificationCode{}, fmt.Errorf("redeem: %w", err)
		}
		observability.CodeRedemptions.WithLabelValues("redeemed").Inc()
		return *c, nil
	}

	if seen || !r.config.SimulationMode || !inRange(code) {
		observability.CodeRedemptions.WithLabelValues("not_found").Inc()
		return domain.VerificationCode{}, domain.ErrCodeNotFound
	}

	// Simulation: record the acceptance so a second attempt fails.
	sim := domain.VerificationCode{
		ID:        r.newID(),
		Code:      code,
		WasteType: simulatedWasteType,
		Quantity:  simulatedQuantity,
		Location:  simulatedLocation,
		FarmerID:  farmerID,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.CodeTTL),
		IsUsed:    true,
		UsedAt:    &now,
	}
	if err := r.save(append(codes, sim)); err != nil {
		return domain.VerificationCode{}, fmt.Errorf("redeem: %w", err)
	}
	observability.CodeRedemptions.WithLabelValues("simulated").Inc()
	log.Printf("[verification] simulation accepted code %s for farmer=%s", code, farmerID)
	return sim, nil
}

func inRange(code string) bool {
	n, err := strconv.Atoi(code)
	return err == nil && n >= domain.MinCodeValue && n <= domain.MaxCodeValue
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Stats counts the farmer's codes. Active and Expired only count unused codes.
func (r *Registry) Stats(farmerID string) domain.VerificationStats {
	r.mu.Lock()
	codes := r.loadOrEmpty()
	r.mu.Unlock()

	now := r.now()
	var s domain.VerificationStats
	for _, c := range codes {
		if c.FarmerID != farmerID {
			continue
		}
		s.Total++
		switch {
		case c.IsUsed:
			s.Used++
		case c.Expired(now):
			s.Expired++
		default:
			s.Active++
		}
	}
	return s
}

// List returns the farmer's codes, newest first.
func (r *Registry) List(farmerID string) []domain.VerificationCode {
	r.mu.Lock()
	codes := r.loadOrEmpty()
	r.mu.Unlock()

	out := make([]domain.VerificationCode, 0, len(codes))
	for _, c := range codes {
		if c.FarmerID == farmerID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ─── Maintenance ────────────────────────────────────────────────────────────

// CleanupExpired drops unused codes past their expiry. Used codes are kept.
func (r *Registry) CleanupExpired() (int, error) {
	now := r.now()
	n, err := r.removeWhere(func(c domain.VerificationCode) bool {
		return !c.IsUsed && c.Expired(now)
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	if n > 0 {
		observability.CodesCleaned.Add(float64(n))
		log.Printf("[verification] cleaned %d expired codes", n)
	}
	return n, nil
}

// RemoveFarmer drops every record belonging to farmerID.
func (r *Registry) RemoveFarmer(farmerID string) (int, error) {
	n, err := r.removeWhere(func(c domain.VerificationCode) bool {
		return c.FarmerID == farmerID
	})
	if err != nil {
		return 0, fmt.Errorf("remove farmer: %w", err)
	}
	return n, nil
}

func (r *Registry) removeWhere(drop func(domain.VerificationCode) bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes, err := r.load()
	if err != nil {
		return 0, err
	}
	kept := codes[:0]
	for _, c := range codes {
		if !drop(c) {
			kept = append(kept, c)
		}
	}
	removed := len(codes) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, r.save(kept)
}

// ─── Storage ────────────────────────────────────────────────────────────────

func (r *Registry) load() ([]domain.VerificationCode, error) {
	var codes []domain.VerificationCode
	if _, err := kv.ReadJSON(r.store, StorageKey, &codes); err != nil {
		observability.StorageErrors.WithLabelValues("read").Inc()
		log.Printf("[verification] read %s: %v", StorageKey, err)
		return nil, err
	}
	return codes, nil
}

// loadOrEmpty is for read-only paths: a failed read counts as no codes.
func (r *Registry) loadOrEmpty() []domain.VerificationCode {
	codes, err := r.load()
	if err != nil {
		return nil
	}
	return codes
}

func (r *Registry) save(codes []domain.VerificationCode) error {
	if codes == nil {
		codes = []domain.VerificationCode{}
	}
	if err := kv.WriteJSON(r.store, StorageKey, codes); err != nil {
		observability.StorageErrors.WithLabelValues("write").Inc()
		log.Printf("[verification] write %s: %v", StorageKey, err)
		return err
	}
	return nil
}
