package daemon

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/swarmpay/internal/app/verify"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("SWARMPAY_HOME", "/tmp/swarmpay-test")
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 7420 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7420)
	}
	if !cfg.API.RequireSignatures {
		t.Error("API.RequireSignatures should default to true")
	}
	if cfg.API.Faucet {
		t.Error("API.Faucet should default to false")
	}
	if cfg.Verifier.Mode != VerifierQuorum || cfg.Verifier.QuorumPct != verify.DefaultQuorumPct {
		t.Errorf("Verifier = %+v, want quorum/%d", cfg.Verifier, verify.DefaultQuorumPct)
	}
	if cfg.Store.Dir != "/tmp/swarmpay-test" {
		t.Errorf("Store.Dir = %q, want SWARMPAY_HOME", cfg.Store.Dir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SWARMPAY_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestSaveLoadConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SWARMPAY_HOME", home)

	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.API.Faucet = true
	cfg.Verifier.Mode = VerifierAccept
	cfg.Health.Interval = "5s"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "config.toml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.API.Port != 9999 || !got.API.Faucet {
		t.Errorf("API = %+v", got.API)
	}
	if got.Verifier.Mode != VerifierAccept {
		t.Errorf("Verifier.Mode = %q, want accept", got.Verifier.Mode)
	}
	if got.Health.Interval != "5s" {
		t.Errorf("Health.Interval = %q, want 5s", got.Health.Interval)
	}
}

func TestLoadConfig_Partial(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SWARMPAY_HOME", home)
	data := "[api]\nport = 8000\n\n[verifier]\nquorum_pct = 51\n"
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 8000 || cfg.Verifier.QuorumPct != 51 {
		t.Errorf("overrides not applied: %+v %+v", cfg.API, cfg.Verifier)
	}
	if cfg.API.Host != "127.0.0.1" || cfg.Verifier.Mode != VerifierQuorum {
		t.Error("unset keys should keep their defaults")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SWARMPAY_HOME", home)
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte("[verifier]\nmode = \"trust-me\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() should reject an unknown verifier mode")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Verifier.Mode = "" }},
		{"quorum over 100", func(c *Config) { c.Verifier.QuorumPct = 101 }},
		{"bad port", func(c *Config) { c.API.Port = 70000 }},
		{"negative rate", func(c *Config) { c.API.RateLimit = -1 }},
		{"bad interval", func(c *Config) { c.Health.Interval = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"", time.Minute},
		{"garbage", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseDuration(tt.input, time.Minute); got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewDaemon_Wiring(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SWARMPAY_HOME", home)

	cfg := DefaultConfig()
	cfg.Store.Dir = home
	d, err := newDaemon(cfg, zap.NewNop(), zap.NewAtomicLevel())
	if err != nil {
		t.Fatalf("newDaemon() error: %v", err)
	}
	defer d.Close()

	if d.Identity().IsZero() {
		t.Error("daemon identity should be set from the keypair")
	}
	if _, err := os.Stat(filepath.Join(home, "state.db")); err != nil {
		t.Errorf("state.db not created: %v", err)
	}

	// The keypair is stable across restarts.
	d2, err := newDaemon(cfg, zap.NewNop(), zap.NewAtomicLevel())
	if err != nil {
		t.Fatalf("second newDaemon() error: %v", err)
	}
	if d2.Identity() != d.Identity() {
		t.Error("identity changed across restarts")
	}
	d2.Close()

	w := httptest.NewRecorder()
	d.Server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", w.Code)
	}
}

func TestNewVerifier(t *testing.T) {
	if _, ok := newVerifier(VerifierConfig{Mode: VerifierAccept}, zap.NewNop()).(verify.Static); !ok {
		t.Error("accept mode should use the static verifier")
	}
	q, ok := newVerifier(VerifierConfig{Mode: VerifierQuorum, QuorumPct: 51}, zap.NewNop()).(verify.Quorum)
	if !ok || q.Pct != 51 {
		t.Errorf("quorum mode = %+v, want Quorum{51}", q)
	}
}
