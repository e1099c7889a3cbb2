// Package advisory wraps the remote plant-identification and chat vendors
// with local fallbacks that always produce an answer.
package advisory

import (
	"fmt"
	"log"
	"sync"

	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/kv"
)

// ConfigKey is the storage key of the persisted AIConfig.
const ConfigKey = "aiConfig"

// ConfigPatch is a partial update; nil fields keep their value.
type ConfigPatch struct {
	EnableRealTime *bool   `json:"enableRealTime,omitempty"`
	UseFreeModels  *bool   `json:"useFreeModels,omitempty"`
	PlantNetAPIKey *string `json:"plantnetApiKey,omitempty"`
	OpenAIAPIKey   *string `json:"openaiApiKey,omitempty"`
}

// ConfigStore holds the AIConfig loaded once at startup. Keys supplied by
// the environment fill empty persisted keys but are never written back.
type ConfigStore struct {
	mu    sync.RWMutex
	store domain.KVStore
	saved domain.AIConfig
	env   domain.AIConfig
}

// LoadConfig reads the persisted config or falls back to the defaults.
// env carries vendor keys from the process environment.
func LoadConfig(store domain.KVStore, env domain.AIConfig) *ConfigStore {
	cfg := domain.DefaultAIConfig()
	if _, err := kv.ReadJSON(store, ConfigKey, &cfg); err != nil {
		log.Printf("[advisory] read %s: %v (using defaults)", ConfigKey, err)
		cfg = domain.DefaultAIConfig()
	}
	return &ConfigStore{store: store, saved: cfg, env: env}
}

// Get returns the effective config.
func (s *ConfigStore) Get() domain.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.saved
	if cfg.PlantNetAPIKey == "" {
		cfg.PlantNetAPIKey = s.env.PlantNetAPIKey
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = s.env.OpenAIAPIKey
	}
	return cfg
}

func (s *ConfigStore) saveLocked(cfg domain.AIConfig) error {
	if err := kv.WriteJSON(s.store, ConfigKey, cfg); err != nil {
		log.Printf("[advisory] write %s: %v", ConfigKey, err)
		return fmt.Errorf("save ai config: %w", err)
	}
	s.saved = cfg
	return nil
}

// Update applies p over the persisted config and saves the result.
func (s *ConfigStore) Update(p ConfigPatch) (domain.AIConfig, error) {
	s.mu.Lock()
	cfg := s.saved
	if p.EnableRealTime != nil {
		cfg.EnableRealTime = *p.EnableRealTime
	}
	if p.UseFreeModels != nil {
		cfg.UseFreeModels = *p.UseFreeModels
	}
	if p.PlantNetAPIKey != nil {
		cfg.PlantNetAPIKey = *p.PlantNetAPIKey
	}
	if p.OpenAIAPIKey != nil {
		cfg.OpenAIAPIKey = *p.OpenAIAPIKey
	}
	err := s.saveLocked(cfg)
	s.mu.Unlock()
	if err != nil {
		return domain.AIConfig{}, err
	}
	return s.Get(), nil
}
