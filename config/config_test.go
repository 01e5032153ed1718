package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func isolateEnv(t *testing.T) (configDir, dataDir string) {
	t.Helper()
	root := t.TempDir()
	configDir = filepath.Join(root, "config")
	dataDir = filepath.Join(root, "data")

	t.Setenv("MEMEX_CONFIG_DIR", configDir)
	t.Setenv("MEMEX_DATA_DIR", dataDir)
	for _, key := range []string{"MEMEX_URL", "MEMEX_PROVIDER", "MEMEX_MODEL", "OPENAI_MODEL", "DAGIT_URL", "OLLAMA_HOST", "MEMEX_MAX_TURNS"} {
		t.Setenv(key, "")
	}
	return configDir, dataDir
}

func TestLoadDefaults(t *testing.T) {
	configDir, dataDir := isolateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider != DefaultProvider {
		t.Errorf("Provider = %q, want %q", cfg.Provider, DefaultProvider)
	}
	if cfg.Model() != DefaultOpenAIModel {
		t.Errorf("Model() = %q, want %q", cfg.Model(), DefaultOpenAIModel)
	}
	if cfg.MaxTurns != DefaultMaxTurns {
		t.Errorf("MaxTurns = %d, want %d", cfg.MaxTurns, DefaultMaxTurns)
	}
	if cfg.MemoryLimit != DefaultMemoryLimit {
		t.Errorf("MemoryLimit = %d, want %d", cfg.MemoryLimit, DefaultMemoryLimit)
	}
	if cfg.DagitURL != "" {
		t.Errorf("DagitURL = %q, want empty", cfg.DagitURL)
	}
	if cfg.MemexURL() != DefaultMemexURL {
		t.Errorf("MemexURL() = %q, want %q", cfg.MemexURL(), DefaultMemexURL)
	}

	if !FileExists(filepath.Join(configDir, "config.toml")) {
		t.Error("expected config.toml template to be written")
	}

	info, err := os.Stat(dataDir)
	if err != nil {
		t.Fatalf("data dir not created: %v", err)
	}
	if info.Mode().Perm() != 0700 {
		t.Errorf("data dir perms = %o, want 0700", info.Mode().Perm())
	}
}

func TestLoadFromFile(t *testing.T) {
	configDir, _ := isolateEnv(t)

	userCfg := &UserConfig{
		Provider:    "anthropic",
		Model:       "claude-sonnet-4-5-20250929",
		MemexURL:    "http://graph.internal:9000",
		DagitURL:    "http://dagit.internal:7000",
		MaxTurns:    4,
		MemoryLimit: 5,
	}
	if err := SaveUserConfig(userCfg, configDir); err != nil {
		t.Fatalf("SaveUserConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", cfg.Provider)
	}
	if cfg.Model() != "claude-sonnet-4-5-20250929" {
		t.Errorf("Model() = %q", cfg.Model())
	}
	if cfg.MemexURL() != "http://graph.internal:9000" {
		t.Errorf("MemexURL() = %q", cfg.MemexURL())
	}
	if cfg.DagitURL != "http://dagit.internal:7000" {
		t.Errorf("DagitURL = %q", cfg.DagitURL)
	}
	if cfg.MaxTurns != 4 || cfg.MemoryLimit != 5 {
		t.Errorf("MaxTurns/MemoryLimit = %d/%d, want 4/5", cfg.MaxTurns, cfg.MemoryLimit)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MEMEX_PROVIDER", "ollama")
	t.Setenv("MEMEX_MODEL", "llama3.1:latest")
	t.Setenv("DAGIT_URL", "http://localhost:7000")
	t.Setenv("MEMEX_MAX_TURNS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", cfg.Provider)
	}
	if cfg.Model() != "llama3.1:latest" {
		t.Errorf("Model() = %q", cfg.Model())
	}
	if cfg.DagitURL != "http://localhost:7000" {
		t.Errorf("DagitURL = %q", cfg.DagitURL)
	}
	if cfg.MaxTurns != 3 {
		t.Errorf("MaxTurns = %d, want 3", cfg.MaxTurns)
	}
}

func TestMemexURLReadPerCall(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.MemexURL(); got != DefaultMemexURL {
		t.Fatalf("MemexURL() = %q before env is set", got)
	}

	t.Setenv("MEMEX_URL", "http://127.0.0.1:18080")
	if got := cfg.MemexURL(); got != "http://127.0.0.1:18080" {
		t.Errorf("MemexURL() = %q, want value set after Load", got)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~/data", "/home/tester/data"},
		{"/var/lib/memex/", "/var/lib/memex"},
		{"$HOME/x", "/home/tester/x"},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDebugLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewDebugLogger(zapcore.AddSync(&buf))
	log.Infof("[Turn] start: %d messages", 3)
	log.Debugf("[ui] rendered")
	_ = log.Sync()

	out := buf.String()
	for _, want := range []string{"INFO", "[Turn] start: 3 messages", "DEBUG", "[ui] rendered"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestInitDebugLogDisabled(t *testing.T) {
	t.Setenv("MEMEX_DEBUG", "")
	prev := DebugLog
	t.Cleanup(func() { DebugLog = prev })
	DebugLog = nil
	InitDebugLog(t.TempDir())
	if DebugLog != nil {
		t.Error("DebugLog set without MEMEX_DEBUG")
	}
}
