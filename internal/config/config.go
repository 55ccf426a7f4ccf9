// Package config loads host runtime configuration from a TOML file and environment variables, exposing typed structs and accessors for all sections.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const defaultProfile = "default"

// Config is the runtime configuration loaded from defaults and config.toml.
type Config struct {
	// HomeDir is runtime-resolved from LASERFOCUS_HOME and not read from config.
	HomeDir string                       `mapstructure:"-"`
	LLM     map[string]LLMProviderConfig `mapstructure:"llm"`
	Host    HostConfig                   `mapstructure:"host"`
	Serve   ServeConfig                  `mapstructure:"serve"`
}

// LLMProviderConfig configures one model-provider profile.
type LLMProviderConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HostConfig controls conversation state and tool-provider supervision.
type HostConfig struct {
	MaxHistory      int           `mapstructure:"max_history"`
	SystemPrompt    string        `mapstructure:"system_prompt"`
	ProvidersFile   string        `mapstructure:"providers_file"`
	SetupTimeout    time.Duration `mapstructure:"setup_timeout"`
	ToolCallTimeout time.Duration `mapstructure:"tool_call_timeout"`
}

// ServeConfig configures the socket listener.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

const defaultSystemPrompt = `You are the assistant for this host.
You have access to external tools exposed by connected providers.
Use them when they are needed to fulfill a request accurately, and follow the
tool invocation format exactly as instructed.`

var defaultConfig = Config{
	LLM: map[string]LLMProviderConfig{
		defaultProfile: {
			APIKey:         "",
			Provider:       "anthropic",
			Model:          "claude-sonnet-4-5",
			MaxTokens:      8192,
			RequestTimeout: 30 * time.Second,
		},
	},
	Host: HostConfig{
		MaxHistory:      50,
		SystemPrompt:    defaultSystemPrompt,
		ProvidersFile:   "",
		SetupTimeout:    30 * time.Second,
		ToolCallTimeout: 60 * time.Second,
	},
	Serve: ServeConfig{
		Addr: "localhost:8765",
	},
}

// homeDir returns the host home directory.
// Uses LASERFOCUS_HOME env var if set, otherwise defaults to ~/.laserfocus.
func homeDir() (string, error) {
	if dir := os.Getenv("LASERFOCUS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".laserfocus"), nil
}

// Load merges hardcoded defaults and config file values in that order.
// Config is always at $LASERFOCUS_HOME/config.toml.
func Load() (*Config, error) {
	homeDir, err := homeDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filepath.Join(homeDir, "config.toml"))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		expandEnvStringHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HomeDir = homeDir
	if cfg.Host.ProvidersFile == "" {
		cfg.Host.ProvidersFile = filepath.Join(homeDir, "mcp.json")
	}

	return &cfg, nil
}

// Write writes the merged configuration (defaults overlaid by user config)
// to w in TOML format.
func Write(w io.Writer) error {
	if w == nil {
		return errors.New("writer is required")
	}

	homeDir, err := homeDir()
	if err != nil {
		return err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filepath.Join(homeDir, "config.toml"))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	// Keep duration fields human-readable in generated TOML.
	v.Set("llm.default.request_timeout", v.GetDuration("llm.default.request_timeout").String())
	v.Set("host.setup_timeout", v.GetDuration("host.setup_timeout").String())
	v.Set("host.tool_call_timeout", v.GetDuration("host.tool_call_timeout").String())

	if err := v.WriteConfigTo(w); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultUserConfigTOML renders the minimal bootstrap user config as TOML.
func DefaultUserConfigTOML() (string, error) {
	v := viper.New()
	v.SetConfigType("toml")

	llm := defaultConfig.LLM[defaultProfile]
	v.Set("llm.default.api_key", "$ANTHROPIC_API_KEY")
	v.Set("llm.default.provider", llm.Provider)
	v.Set("llm.default.model", llm.Model)
	v.Set("llm.default.request_timeout", llm.RequestTimeout.String())
	v.Set("serve.addr", defaultConfig.Serve.Addr)

	var out bytes.Buffer
	if err := v.WriteConfigTo(&out); err != nil {
		return "", fmt.Errorf("write default user config: %w", err)
	}
	return out.String(), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.default.api_key", defaultConfig.LLM[defaultProfile].APIKey)
	v.SetDefault("llm.default.provider", defaultConfig.LLM[defaultProfile].Provider)
	v.SetDefault("llm.default.model", defaultConfig.LLM[defaultProfile].Model)
	v.SetDefault("llm.default.max_tokens", defaultConfig.LLM[defaultProfile].MaxTokens)
	v.SetDefault("llm.default.request_timeout", defaultConfig.LLM[defaultProfile].RequestTimeout)

	v.SetDefault("host.max_history", defaultConfig.Host.MaxHistory)
	v.SetDefault("host.system_prompt", defaultConfig.Host.SystemPrompt)
	v.SetDefault("host.providers_file", defaultConfig.Host.ProvidersFile)
	v.SetDefault("host.setup_timeout", defaultConfig.Host.SetupTimeout)
	v.SetDefault("host.tool_call_timeout", defaultConfig.Host.ToolCallTimeout)

	v.SetDefault("serve.addr", defaultConfig.Serve.Addr)
}

// DefaultLLM returns the default model profile with fallback defaults.
func (c *Config) DefaultLLM() LLMProviderConfig {
	if llm, ok := c.LLM[defaultProfile]; ok {
		return llm
	}
	return defaultConfig.LLM[defaultProfile]
}

// Validate checks required model provider fields and provider-specific rules.
func (c LLMProviderConfig) Validate() error {
	if c.Provider == "" {
		return errors.New("provider is required")
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be > 0")
	}

	switch c.Provider {
	case "anthropic":
		if c.APIKey == "" {
			return errors.New("api_key is required")
		}
	default:
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	return nil
}

// Validate validates host settings.
func (c HostConfig) Validate() error {
	if c.MaxHistory <= 0 {
		return errors.New("max_history must be > 0")
	}
	if c.SetupTimeout <= 0 {
		return errors.New("setup_timeout must be > 0")
	}
	if c.ToolCallTimeout <= 0 {
		return errors.New("tool_call_timeout must be > 0")
	}
	return nil
}

// Validate validates serve settings.
func (c ServeConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	return nil
}

// Validate validates startup configuration and returns the first fatal error.
func (cfg *Config) Validate() error {
	var errs []error

	if len(cfg.LLM) == 0 {
		errs = append(errs, errors.New("at least one llm.* profile is required"))
	}

	for name, llmCfg := range cfg.LLM {
		if err := llmCfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("llm.%s: %w", name, err))
		}
	}
	if err := cfg.Host.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("host: %w", err))
	}
	if err := cfg.Serve.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("serve: %w", err))
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func expandEnvStringHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		value, ok := data.(string)
		if !ok {
			return data, nil
		}
		return os.ExpandEnv(value), nil
	}
}
