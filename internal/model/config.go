package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nhle/inboxdigest/internal/locale"
)

// envPrefix is prepended to every environment override, e.g.
// INBOXDIGEST_MAILBOX_HOST for mailbox.host.
const envPrefix = "INBOXDIGEST"

// MailboxConfig holds the IMAP connection and windowing settings.
type MailboxConfig struct {
	Host               string        `mapstructure:"host" yaml:"host"`
	Port               int           `mapstructure:"port" yaml:"port"`
	Username           string        `mapstructure:"username" yaml:"username"`
	Password           string        `mapstructure:"password" yaml:"password"`
	TLS                bool          `mapstructure:"tls" yaml:"tls"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Folder             string        `mapstructure:"folder" yaml:"folder"`
	Window             int           `mapstructure:"window" yaml:"window"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	IOTimeout          time.Duration `mapstructure:"io_timeout" yaml:"io_timeout"`
}

// AIConfig holds settings for the Answering Service integration.
type AIConfig struct {
	// Provider selects the wire format: "anthropic" or "openai".
	Provider  string        `mapstructure:"provider" yaml:"provider"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	Model     string        `mapstructure:"model" yaml:"model"`
	MaxTokens int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Locale selects prompt and message wording ("en" or "ru").
	Locale string `mapstructure:"locale" yaml:"locale"`

	// Concurrency bounds parallel annotation calls within one cycle.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	// BreakerFailures is the number of consecutive provider failures that
	// opens the circuit breaker. Zero disables the breaker.
	BreakerFailures int `mapstructure:"breaker_failures" yaml:"breaker_failures"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// StoreConfig holds the run log database settings.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
	AI      AIConfig      `mapstructure:"ai" yaml:"ai"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/inboxdigest, or "." when the home directory
// cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "inboxdigest")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/inboxdigest/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultStorePath returns the default location of the run log database.
func DefaultStorePath() string {
	return filepath.Join(configDir(), "runs.db")
}

// setDefaults registers every default on v so missing keys resolve to
// sensible values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("mailbox.port", 993)
	v.SetDefault("mailbox.tls", true)
	v.SetDefault("mailbox.folder", "INBOX")
	v.SetDefault("mailbox.window", 10)
	v.SetDefault("mailbox.connect_timeout", 5*time.Second)
	v.SetDefault("mailbox.io_timeout", 5*time.Second)

	v.SetDefault("ai.provider", "anthropic")
	v.SetDefault("ai.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.locale", "en")
	v.SetDefault("ai.concurrency", 1)
	v.SetDefault("ai.breaker_failures", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// newViper returns a Viper instance bound to path with defaults and
// environment overrides applied.
func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Unmarshal only sees environment values for keys Viper already
	// knows, so keys without a default are bound explicitly.
	for _, key := range []string{
		"mailbox.host", "mailbox.username", "mailbox.password",
		"mailbox.insecure_skip_verify", "ai.base_url", "ai.api_key",
	} {
		_ = v.BindEnv(key)
	}
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file is not an error: defaults and environment overrides still
// apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize clamps values that would otherwise make the pipeline misbehave.
func (c *AppConfig) normalize() {
	if c.Mailbox.Folder == "" {
		c.Mailbox.Folder = "INBOX"
	}
	if c.Mailbox.Window < 0 {
		c.Mailbox.Window = 0
	}
	if c.AI.Concurrency < 1 {
		c.AI.Concurrency = 1
	}
	c.AI.Provider = strings.ToLower(c.AI.Provider)
	c.AI.Locale = strings.ToLower(c.AI.Locale)
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "warning" {
		c.Log.Level = "warn"
	}
}

// Validate reports configuration values that can never work. Missing
// mailbox credentials are not reported here; they fail the connect step.
func (c *AppConfig) Validate() error {
	switch c.AI.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("invalid ai.provider: %q", c.AI.Provider)
	}
	if !locale.Supported(c.AI.Locale) {
		return fmt.Errorf("invalid ai.locale: %q", c.AI.Locale)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}
	if c.Mailbox.Port < 0 || c.Mailbox.Port > 65535 {
		return fmt.Errorf("mailbox.port must be between 1 and 65535")
	}
	if c.Mailbox.ConnectTimeout <= 0 {
		return fmt.Errorf("mailbox.connect_timeout must be positive, got %s", c.Mailbox.ConnectTimeout)
	}
	if c.Mailbox.IOTimeout <= 0 {
		return fmt.Errorf("mailbox.io_timeout must be positive, got %s", c.Mailbox.IOTimeout)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. Secrets are not written; they
// belong in the keyring.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	mailbox := cfg.Mailbox
	mailbox.Password = ""
	ai := cfg.AI
	ai.APIKey = ""

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("mailbox", mailbox)
	v.Set("ai", ai)
	v.Set("server", cfg.Server)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
