package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/kv"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8787 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8787)
	}
	if cfg.Verification.SimulationMode {
		t.Error("Verification.SimulationMode should be false by default (opt-in)")
	}
	if cfg.VendorTimeout() != 30*time.Second {
		t.Errorf("VendorTimeout() = %v, want 30s", cfg.VendorTimeout())
	}
	if cfg.CleanupEvery() != time.Hour {
		t.Errorf("CleanupEvery() = %v, want 1h", cfg.CleanupEvery())
	}
	if !cfg.Telemetry.Metrics {
		t.Error("Telemetry.Metrics should be true by default")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"10s", 10 * time.Second},
		{"2m", 2 * time.Minute},
		{"", time.Minute},     // Default
		{"soon", time.Minute}, // Malformed
		{"-5s", time.Minute},  // Not positive
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseDuration(tt.input, time.Minute)
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	body := `
[api]
port = 9000

[verification]
simulation_mode = true

[advisory]
timeout = "5s"
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(home)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want default kept", cfg.API.Host)
	}
	if !cfg.Verification.SimulationMode {
		t.Error("SimulationMode should be read from file")
	}
	if cfg.VendorTimeout() != 5*time.Second {
		t.Errorf("VendorTimeout() = %v, want 5s", cfg.VendorTimeout())
	}
	if cfg.Home != home {
		t.Errorf("Home = %q, want %q", cfg.Home, home)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 8787 {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestLoad_Malformed(t *testing.T) {
	home := t.TempDir()
	os.WriteFile(filepath.Join(home, "config.toml"), []byte("[api\nport ="), 0o600)
	if _, err := Load(home); err == nil {
		t.Fatal("Load() should fail on malformed TOML")
	}
}

func TestLoad_DotEnvKeys(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PLANTNET_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "from-env")
	os.Unsetenv("PLANTNET_API_KEY")
	os.WriteFile(filepath.Join(home, ".env"), []byte("PLANTNET_API_KEY=from-dotenv\nOPENAI_API_KEY=ignored\n"), 0o600)

	cfg, err := Load(home)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Advisory.PlantNetAPIKey != "from-dotenv" {
		t.Errorf("PlantNetAPIKey = %q, want from-dotenv", cfg.Advisory.PlantNetAPIKey)
	}
	if cfg.Advisory.OpenAIAPIKey != "from-env" {
		t.Errorf("OpenAIAPIKey = %q, process env should win", cfg.Advisory.OpenAIAPIKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.API.Port = 7001
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(cfg.Home)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.API.Port != 7001 {
		t.Errorf("API.Port = %d, want 7001", got.API.Port)
	}
}

func TestUpdate_KeepsEnvironmentOut(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PLANTNET_API_KEY", "pn-from-env")
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Update(home, func(c *Config) error {
		c.Verification.SimulationMode = true
		return nil
	}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	file, err := loadFile(home)
	if err != nil {
		t.Fatalf("loadFile() error: %v", err)
	}
	if !file.Verification.SimulationMode {
		t.Error("SimulationMode not saved")
	}
	if file.Advisory.PlantNetAPIKey != "" {
		t.Errorf("saved PlantNetAPIKey = %q, want empty", file.Advisory.PlantNetAPIKey)
	}

	cfg, err := Load(home)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Advisory.PlantNetAPIKey != "pn-from-env" {
		t.Errorf("PlantNetAPIKey = %q, want pn-from-env", cfg.Advisory.PlantNetAPIKey)
	}
}

func TestUpdate_ErrorLeavesFile(t *testing.T) {
	home := t.TempDir()
	if _, err := Update(home, func(c *Config) error { return errors.New("bad value") }); err == nil {
		t.Fatal("Update() should return the callback error")
	}
	if _, err := os.Stat(ConfigPath(home)); !os.IsNotExist(err) {
		t.Errorf("config.toml should not exist, stat err = %v", err)
	}
}

// ─── Wiring ─────────────────────────────────────────────────────────────────

func TestWire_DeleteAccountRemovesCodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.BcryptCost = 4
	app := Wire(cfg, kv.NewMemory())

	u, err := app.Session.SignUp("farmer@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if _, err := app.Codes.Issue(domain.VerificationRequest{
		WasteType: "stubble", Quantity: 5, Location: "Field A", FarmerID: u.UID,
	}); err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if err := app.Session.DeleteAccount("secret1"); err != nil {
		t.Fatalf("DeleteAccount() error: %v", err)
	}
	if s := app.Codes.Stats(u.UID); s.Total != 0 {
		t.Errorf("codes after delete = %d, want 0", s.Total)
	}
	if _, err := app.Session.UID(); !errors.Is(err, domain.ErrNotSignedIn) {
		t.Errorf("UID() error = %v, want ErrNotSignedIn", err)
	}
}

func TestOpen_PersistsAcrossRestarts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.Auth.BcryptCost = 4

	app, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	u, err := app.Session.SignUp("farmer@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	app.Close()

	app, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer app.Close()
	cur, ok := app.Session.Current()
	if !ok || cur.UID != u.UID {
		t.Errorf("restored session = %+v, %v; want uid %s", cur, ok, u.UID)
	}
	if app.Codes.SimulationMode() {
		t.Error("simulation mode should follow config")
	}
}
