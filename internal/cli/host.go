package cli

import (
	"context"
	"time"

	"github.com/byOdysea/laserfocus-host/internal/config"
	"github.com/byOdysea/laserfocus-host/internal/coordinator"
	"github.com/byOdysea/laserfocus-host/internal/llm"
	"github.com/byOdysea/laserfocus-host/internal/logging"
	"github.com/byOdysea/laserfocus-host/internal/orchestrator"
	"github.com/byOdysea/laserfocus-host/internal/session"
)

const shutdownTimeout = 5 * time.Second

// host is the assembled conversation stack shared by the console and serve
// commands.
type host struct {
	orch  *orchestrator.Orchestrator
	coord *coordinator.Coordinator
}

// buildHost constructs the model adapter, starts provider supervision, and
// wires the orchestrator. A missing providers file or a failed adapter
// construction is fatal; individual provider failures are not.
func buildHost(ctx context.Context, cfg *config.Config) (*host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	adapter, err := llm.NewAdapterFromConfig(cfg.DefaultLLM())
	if err != nil {
		return nil, err
	}
	service, err := llm.NewService(adapter, cfg.Host.SystemPrompt)
	if err != nil {
		return nil, err
	}

	providers, err := coordinator.LoadProviderConfigs(cfg.Host.ProvidersFile)
	if err != nil {
		return nil, err
	}
	coord := coordinator.New(providers, coordinator.Options{
		SetupTimeout:    cfg.Host.SetupTimeout,
		ToolCallTimeout: cfg.Host.ToolCallTimeout,
	})
	if _, err := coord.Start(ctx); err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(service, coord, session.NewStore(cfg.Host.MaxHistory))
	if err != nil {
		return nil, err
	}
	return &host{orch: orch, coord: coord}, nil
}

// shutdown tears down provider supervision, bounded so a hung provider
// cannot wedge process exit.
func (h *host) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.coord.Shutdown(ctx); err != nil {
		logging.Logger().Warn("coordinator shutdown incomplete", "err", err)
	}
}
