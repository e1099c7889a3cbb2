// Package daemon loads the AgroLoop configuration and wires the services
// that the CLI and the local API share.
package daemon

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the on-disk configuration ($AGROLOOP_HOME/config.toml).
type Config struct {
	Home         string             `toml:"-"`
	API          APIConfig          `toml:"api"`
	Verification VerificationConfig `toml:"verification"`
	Advisory     AdvisoryConfig     `toml:"advisory"`
	Auth         AuthConfig         `toml:"auth"`
	Telemetry    TelemetryConfig    `toml:"telemetry"`
}

// APIConfig controls the local HTTP server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr is host:port.
func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// VerificationConfig controls the code registry.
type VerificationConfig struct {
	SimulationMode  bool   `toml:"simulation_mode"`
	CleanupInterval string `toml:"cleanup_interval"`
}

// AdvisoryConfig controls the vendor clients. Keys set here are defaults;
// keys saved through the app take precedence.
type AdvisoryConfig struct {
	Timeout        string `toml:"timeout"`
	PlantNetAPIKey string `toml:"plantnet_api_key"`
	OpenAIAPIKey   string `toml:"openai_api_key"`
}

// AuthConfig controls local credential storage.
type AuthConfig struct {
	BcryptCost int `toml:"bcrypt_cost"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Metrics bool `toml:"metrics"`
}

// Defaults for duration settings.
const (
	DefaultVendorTimeout   = 30 * time.Second
	DefaultCleanupInterval = time.Hour
)

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Home: defaultHome(),
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Verification: VerificationConfig{
			SimulationMode:  false,
			CleanupInterval: "1h",
		},
		Advisory: AdvisoryConfig{
			Timeout: "30s",
		},
		Auth: AuthConfig{
			BcryptCost: 10,
		},
		Telemetry: TelemetryConfig{
			Metrics: true,
		},
	}
}

// defaultHome is $AGROLOOP_HOME or ~/.agroloop.
func defaultHome() string {
	if h := os.Getenv("AGROLOOP_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agroloop"
	}
	return filepath.Join(home, ".agroloop")
}

// ConfigPath is the config file inside home.
func ConfigPath(home string) string { return filepath.Join(home, "config.toml") }

// Load reads home/config.toml over the defaults. A missing file is not an
// error. A .env file in home or the working directory fills vendor keys
// from PLANTNET_API_KEY and OPENAI_API_KEY.
func Load(home string) (Config, error) {
	cfg, err := loadFile(home)
	if err != nil {
		return Config{}, err
	}

	loadDotEnv(filepath.Join(cfg.Home, ".env"), ".env")
	if k := os.Getenv("PLANTNET_API_KEY"); k != "" {
		cfg.Advisory.PlantNetAPIKey = k
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Advisory.OpenAIAPIKey = k
	}
	return cfg, nil
}

// loadFile is the defaults plus home/config.toml, without the environment.
func loadFile(home string) (Config, error) {
	cfg := DefaultConfig()
	if home != "" {
		cfg.Home = home
	}
	path := ConfigPath(cfg.Home)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Update applies fn to the file configuration in home and saves it.
// Environment keys are never written back.
func Update(home string, fn func(*Config) error) (Config, error) {
	cfg, err := loadFile(home)
	if err != nil {
		return Config{}, err
	}
	if err := fn(&cfg); err != nil {
		return Config{}, err
	}
	if err := Save(cfg); err != nil {
		return Config{}, fmt.Errorf("save %s: %w", ConfigPath(cfg.Home), err)
	}
	return cfg, nil
}

// loadDotEnv loads the files that exist. Variables already set in the
// process environment win.
func loadDotEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("[config] load %s: %v", f, err)
		}
	}
}

// Save writes cfg to home/config.toml.
func Save(cfg Config) error {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(ConfigPath(cfg.Home), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// VendorTimeout is the parsed advisory timeout.
func (c Config) VendorTimeout() time.Duration {
	return parseDuration(c.Advisory.Timeout, DefaultVendorTimeout)
}

// CleanupEvery is the parsed expired-code cleanup interval.
func (c Config) CleanupEvery() time.Duration {
	return parseDuration(c.Verification.CleanupInterval, DefaultCleanupInterval)
}

// parseDuration parses s, falling back to def when s is empty, malformed or
// not positive.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
