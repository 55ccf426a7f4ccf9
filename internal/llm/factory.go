package llm

import (
	"fmt"

	"github.com/byOdysea/laserfocus-host/internal/config"
)

// NewAdapterFromConfig constructs the model adapter selected by the profile.
// Failure here is fatal to startup: the host cannot operate without a model.
func NewAdapterFromConfig(cfg config.LLMProviderConfig) (Adapter, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicAdapter(cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}
