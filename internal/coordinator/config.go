package coordinator

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/shlex"
	"github.com/spf13/viper"
)

// TransportStdio is the only transport the coordinator can connect today.
// Other values are logged and the provider is counted failed, not fatal.
const TransportStdio = "stdio"

const defaultSetupTimeoutMS = 10000

// ProviderConfig describes one tool provider from the providers file.
// Loaded once at startup and immutable thereafter.
type ProviderConfig struct {
	ID          string            `mapstructure:"-"`
	Description string            `mapstructure:"description"`
	Type        string            `mapstructure:"type"`
	Transport   string            `mapstructure:"transport"`
	Command     string            `mapstructure:"command"`
	Args        []string          `mapstructure:"args"`
	URL         string            `mapstructure:"url"`
	Env         map[string]string `mapstructure:"env"`
	TimeoutMS   int               `mapstructure:"timeout_ms"`
}

// SetupTimeout returns the per-provider connection deadline.
func (c ProviderConfig) SetupTimeout() time.Duration {
	ms := c.TimeoutMS
	if ms <= 0 {
		ms = defaultSetupTimeoutMS
	}
	return time.Duration(ms) * time.Millisecond
}

// CommandLine resolves the provider launch argv. Command may be a bare
// binary with separate args, or a single shell-style string.
func (c ProviderConfig) CommandLine() ([]string, error) {
	tokens, err := shlex.Split(c.Command)
	if err != nil {
		return nil, fmt.Errorf("parse command for provider %s: %w", c.ID, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("missing command for stdio provider %s", c.ID)
	}
	return append(tokens, c.Args...), nil
}

// LoadProviderConfigs reads the providers file (the original mcp.json shape:
// a top-level "servers" map). A missing or unparseable file is a fatal
// startup condition; individual bad entries are not.
func LoadProviderConfigs(path string) (map[string]ProviderConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read provider config %q: %w", path, err)
	}

	var file struct {
		Servers map[string]ProviderConfig `mapstructure:"servers"`
	}
	if err := v.Unmarshal(&file, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = mapstructure.StringToSliceHookFunc(",")
	}); err != nil {
		return nil, fmt.Errorf("decode provider config %q: %w", path, err)
	}

	configs := make(map[string]ProviderConfig, len(file.Servers))
	for id, cfg := range file.Servers {
		cfg.ID = id
		configs[id] = cfg
	}
	return configs, nil
}
