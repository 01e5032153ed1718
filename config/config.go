package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultMemexURL    = "http://localhost:8080"
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultProvider    = "openai"
	DefaultOpenAIModel = "gpt-5.2"
	DefaultMaxTurns    = 10
	DefaultMemoryLimit = 20
)

type OllamaConfig struct {
	Host string `toml:"host"`
}

// UserConfig mirrors config.toml on disk.
type UserConfig struct {
	Provider     string       `toml:"provider"`
	Model        string       `toml:"model"`
	MemexURL     string       `toml:"memex_url"`
	DagitURL     string       `toml:"dagit_url,omitempty"`
	MaxTurns     int          `toml:"max_turns"`
	MemoryLimit  int          `toml:"memory_limit"`
	SystemPrompt string       `toml:"system_prompt,omitempty"`
	Ollama       OllamaConfig `toml:"ollama"`
}

type Config struct {
	DataDirectory string
	Provider      string
	DefaultModel  string
	DagitURL      string
	MaxTurns      int
	MemoryLimit   int
	SystemPrompt  string
	OllamaHost    string

	// memexURL is the config-file fallback; MemexURL() prefers the environment.
	memexURL string
}

var Debug = false
var DebugLog *zap.SugaredLogger

// MemexURL returns the memex server base URL. The environment is consulted
// on every call so the server can come up after the process has started.
func (c *Config) MemexURL() string {
	if url := os.Getenv("MEMEX_URL"); url != "" {
		return url
	}
	if c != nil && c.memexURL != "" {
		return c.memexURL
	}
	return DefaultMemexURL
}

// Model returns the configured model, or "" when a non-OpenAI provider is
// selected without an explicit model so it can pick its own default.
func (c *Config) Model() string {
	if c.Provider != DefaultProvider && c.DefaultModel == DefaultOpenAIModel {
		return ""
	}
	return c.DefaultModel
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// OpenAIKey, AnthropicKey and OpenAIBaseURL are credentials and never live in
// config.toml.
func (c *Config) OpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func (c *Config) OpenAIBaseURL() string {
	return os.Getenv("OPENAI_BASE_URL")
}

func (c *Config) AnthropicKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func (c *Config) applyEnvOverrides() {
	if provider := os.Getenv("MEMEX_PROVIDER"); provider != "" {
		c.Provider = provider
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" && c.Provider == "openai" {
		c.DefaultModel = model
	}
	if model := os.Getenv("MEMEX_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if dagit := os.Getenv("DAGIT_URL"); dagit != "" {
		c.DagitURL = dagit
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.OllamaHost = host
	}
	if dataDir := os.Getenv("MEMEX_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if turns, err := strconv.Atoi(os.Getenv("MEMEX_MAX_TURNS")); err == nil && turns > 0 {
		c.MaxTurns = turns
	}
}

func (c *Config) applyUserConfig(userCfg *UserConfig) {
	if userCfg.Provider != "" {
		c.Provider = userCfg.Provider
	}
	if userCfg.Model != "" {
		c.DefaultModel = userCfg.Model
	}
	if userCfg.MemexURL != "" {
		c.memexURL = userCfg.MemexURL
	}
	c.DagitURL = userCfg.DagitURL
	if userCfg.MaxTurns > 0 {
		c.MaxTurns = userCfg.MaxTurns
	}
	if userCfg.MemoryLimit > 0 {
		c.MemoryLimit = userCfg.MemoryLimit
	}
	c.SystemPrompt = userCfg.SystemPrompt
	if userCfg.Ollama.Host != "" {
		c.OllamaHost = userCfg.Ollama.Host
	}
}

func CheckDebug() bool {
	debug := os.Getenv("MEMEX_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: the log may contain conversation snippets
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = NewDebugLogger(f)
	DebugLog.Infof("=== Debug logging started (MEMEX_DEBUG=%s) ===", os.Getenv("MEMEX_DEBUG"))
	DebugLog.Infof("Log path: %s", logPath)
}

// NewDebugLogger builds the console-encoded logger used for debug.log.
func NewDebugLogger(w zapcore.WriteSyncer) *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		w,
		zap.DebugLevel,
	)
	return zap.New(core, zap.AddCaller()).Sugar()
}

// Load resolves configuration from .env, config.toml and the environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	// A missing .env is the normal case
	_ = godotenv.Load()

	cfg := &Config{
		DataDirectory: GetDefaultDataDir(),
		Provider:      DefaultProvider,
		DefaultModel:  DefaultOpenAIModel,
		MaxTurns:      DefaultMaxTurns,
		MemoryLimit:   DefaultMemoryLimit,
		OllamaHost:    DefaultOllamaHost,
	}

	if dataDir := os.Getenv("MEMEX_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(GetConfigDir())
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()

	if cfg.Provider != "openai" && cfg.DefaultModel == DefaultOpenAIModel {
		cfg.DefaultModel = ""
	}

	return cfg, nil
}
