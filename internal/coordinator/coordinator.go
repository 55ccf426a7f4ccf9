// Package coordinator supervises one connection per configured tool
// provider, discovers the tools each exposes into a unified registry, and
// routes invocations to the owning connection. Provider failures stay
// isolated: one bad provider never takes down the others or the process.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/byOdysea/laserfocus-host/internal/llm"
	"github.com/byOdysea/laserfocus-host/internal/logging"
)

// Sentinel conditions callers branch on.
var (
	// ErrToolNotFound reports a qualified name absent from the registry.
	ErrToolNotFound = errors.New("tool not found")
	// ErrCircuitOpen reports a tool rejected because its provider keeps failing.
	ErrCircuitOpen = errors.New("tool circuit open")
	// ErrNotStarted reports coordinator use before Start.
	ErrNotStarted = errors.New("coordinator is not started")
)

const (
	defaultGlobalSetupTimeout = 30 * time.Second
	defaultToolCallTimeout    = 60 * time.Second

	circuitFailureThreshold = 5
	circuitResetWindow      = 60 * time.Second
)

// Reliability tracks call outcomes for one registry entry.
type Reliability struct {
	Successes   int
	Failures    int
	CircuitOpen bool

	consecutiveFailures int
	lastFailure         time.Time
}

// Performance tracks latency accounting for one registry entry.
type Performance struct {
	AvgLatencyMS float64
	CallCount    int
}

// RegistryEntry is one tool owned by a live provider connection. Entries are
// created on discovery and removed when the owning connection terminates.
type RegistryEntry struct {
	QualifiedName string
	ProviderID    string
	Definition    llm.ToolDefinition
	Reliability   Reliability
	Performance   Performance

	toolName string
	session  providerSession
}

// Summary reports the outcome of the startup readiness wait.
type Summary struct {
	Succeeded []string
	Failed    []string
}

// Options tune coordinator timeouts. Zero values pick defaults.
type Options struct {
	// SetupTimeout bounds the global wait for all providers to signal ready.
	SetupTimeout time.Duration
	// ToolCallTimeout bounds one tool invocation so a hung provider fails a
	// call instead of a session.
	ToolCallTimeout time.Duration
}

// Coordinator owns the registry and the per-provider supervision goroutines.
type Coordinator struct {
	configs         map[string]ProviderConfig
	setupTimeout    time.Duration
	toolCallTimeout time.Duration

	mu       sync.RWMutex
	registry map[string]*RegistryEntry
	sessions map[string]providerSession
	cancels  map[string]context.CancelFunc
	started  bool

	wg       sync.WaitGroup
	shutdown context.CancelFunc
}

// New creates a coordinator for the given provider configs.
func New(configs map[string]ProviderConfig, opts Options) *Coordinator {
	setupTimeout := opts.SetupTimeout
	if setupTimeout <= 0 {
		setupTimeout = defaultGlobalSetupTimeout
	}
	toolCallTimeout := opts.ToolCallTimeout
	if toolCallTimeout <= 0 {
		toolCallTimeout = defaultToolCallTimeout
	}
	return &Coordinator{
		configs:         configs,
		setupTimeout:    setupTimeout,
		toolCallTimeout: toolCallTimeout,
		registry:        make(map[string]*RegistryEntry),
		sessions:        make(map[string]providerSession),
		cancels:         make(map[string]context.CancelFunc),
	}
}

type readyResult struct {
	providerID string
	err        error
}

// Start launches one supervision goroutine per provider and waits for their
// ready signals under the global setup timeout. Providers that fail or time
// out are reported in the summary and excluded from the registry; they are
// never fatal. The supervision goroutines keep running until ctx is
// cancelled or Shutdown is called.
func (c *Coordinator) Start(ctx context.Context) (*Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil, errors.New("coordinator already started")
	}
	c.started = true
	rootCtx, cancel := context.WithCancel(ctx)
	c.shutdown = cancel

	ready := make(chan readyResult, len(c.configs))
	for id, cfg := range c.configs {
		providerCtx, providerCancel := context.WithCancel(rootCtx)
		c.cancels[id] = providerCancel
		c.wg.Add(1)
		go c.supervise(providerCtx, providerCancel, id, cfg, ready)
	}
	c.mu.Unlock()

	summary := c.awaitReadiness(ready)

	logging.Logger().Info(
		"provider initialization complete",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"tool_count", len(c.ToolDefinitions()),
	)
	return summary, nil
}

// awaitReadiness collects one ready signal per provider, bounded by the
// global setup timeout. Providers still pending at the deadline are
// cancelled and counted failed without blocking the ones that made it.
func (c *Coordinator) awaitReadiness(ready <-chan readyResult) *Summary {
	pending := make(map[string]struct{}, len(c.configs))
	for id := range c.configs {
		pending[id] = struct{}{}
	}

	summary := &Summary{}
	timer := time.NewTimer(c.setupTimeout)
	defer timer.Stop()

	for len(pending) > 0 {
		select {
		case result := <-ready:
			delete(pending, result.providerID)
			if result.err != nil {
				logging.Logger().Warn("provider setup failed", "provider", result.providerID, "err", result.err)
				summary.Failed = append(summary.Failed, result.providerID)
				continue
			}
			summary.Succeeded = append(summary.Succeeded, result.providerID)
		case <-timer.C:
			for id := range pending {
				logging.Logger().Warn("provider setup timed out", "provider", id, "timeout", c.setupTimeout)
				c.cancelProvider(id)
				summary.Failed = append(summary.Failed, id)
			}
			pending = nil
		}
	}

	sort.Strings(summary.Succeeded)
	sort.Strings(summary.Failed)
	return summary
}

// supervise owns one provider connection for its whole lifecycle: connect
// and handshake, discover and register tools, signal ready, idle until
// shutdown, then close the connection and deregister everything it owns.
func (c *Coordinator) supervise(
	ctx context.Context,
	cancel context.CancelFunc,
	providerID string,
	cfg ProviderConfig,
	ready chan<- readyResult,
) {
	defer c.wg.Done()
	defer cancel()

	if cfg.Transport != TransportStdio {
		logging.Logger().Warn("unsupported provider transport", "provider", providerID, "transport", cfg.Transport)
		ready <- readyResult{providerID: providerID, err: fmt.Errorf("unsupported transport %q", cfg.Transport)}
		return
	}

	// Per-provider setup deadline: cancelling the supervision context also
	// kills the spawned subprocess via CommandContext.
	setupTimer := time.AfterFunc(cfg.SetupTimeout(), cancel)

	session, err := connectProvider(ctx, cfg)
	if err != nil {
		setupTimer.Stop()
		ready <- readyResult{providerID: providerID, err: err}
		return
	}

	tools, err := session.ListTools(ctx)
	setupTimer.Stop()
	if err != nil {
		_ = session.Close()
		ready <- readyResult{providerID: providerID, err: fmt.Errorf("discover tools: %w", err)}
		return
	}

	c.register(providerID, session, tools)
	ready <- readyResult{providerID: providerID, err: nil}

	<-ctx.Done()

	c.deregister(providerID)
	if err := session.Close(); err != nil {
		logging.Logger().Warn("provider connection close failed", "provider", providerID, "err", err)
	}
	logging.Logger().Info("provider stopped", "provider", providerID)
}

func (c *Coordinator) register(providerID string, session providerSession, tools []toolInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[providerID] = session
	for _, tool := range tools {
		qualifiedName := providerID + ":" + tool.Name
		if _, exists := c.registry[qualifiedName]; exists {
			logging.Logger().Warn("duplicate tool registration replaced", "tool", qualifiedName)
		}
		c.registry[qualifiedName] = &RegistryEntry{
			QualifiedName: qualifiedName,
			ProviderID:    providerID,
			Definition: llm.ToolDefinition{
				QualifiedName: qualifiedName,
				ProviderID:    providerID,
				Description:   tool.Description,
				Parameters:    tool.InputSchema,
			},
			toolName: tool.Name,
			session:  session,
		}
	}
	logging.Logger().Info("provider ready", "provider", providerID, "tools", len(tools))
}

// deregister removes a terminating provider's session and every registry
// entry it owns.
func (c *Coordinator) deregister(providerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.sessions, providerID)
	delete(c.cancels, providerID)
	for qualifiedName, entry := range c.registry {
		if entry.ProviderID == providerID {
			delete(c.registry, qualifiedName)
		}
	}
}

func (c *Coordinator) cancelProvider(providerID string) {
	c.mu.Lock()
	cancel := c.cancels[providerID]
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ToolDefinitions returns a stable-ordered snapshot of every registered
// tool, safe for concurrent readers.
func (c *Coordinator) ToolDefinitions() []llm.ToolDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(c.registry))
	for _, entry := range c.registry {
		defs = append(defs, entry.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].QualifiedName < defs[j].QualifiedName })
	return defs
}

// Entry returns a copy of one registry entry for inspection.
func (c *Coordinator) Entry(qualifiedName string) (RegistryEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.registry[qualifiedName]
	if !ok {
		return RegistryEntry{}, false
	}
	snapshot := *entry
	snapshot.session = nil
	return snapshot, true
}

// CallTool routes one invocation to the owning provider connection. Provider
// errors are returned, never panicked, so a bad tool call costs one turn at
// most. Every call is bounded by the configured tool-call timeout.
func (c *Coordinator) CallTool(ctx context.Context, qualifiedName string, args map[string]any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	entry, ok := c.registry[qualifiedName]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, qualifiedName)
	}
	if entry.Reliability.CircuitOpen {
		if time.Since(entry.Reliability.lastFailure) < circuitResetWindow {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %q", ErrCircuitOpen, qualifiedName)
		}
		entry.Reliability.CircuitOpen = false
		entry.Reliability.consecutiveFailures = 0
	}
	session := entry.session
	toolName := entry.toolName
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.toolCallTimeout)
	defer cancel()

	started := time.Now()
	result, err := session.CallTool(callCtx, toolName, args)
	latency := time.Since(started)

	if err != nil {
		c.recordFailure(qualifiedName)
		logging.Logger().Warn(
			"tool call failed",
			"tool", qualifiedName,
			"duration_ms", latency.Milliseconds(),
			"err", err,
		)
		return nil, fmt.Errorf("call tool %q: %w", qualifiedName, err)
	}

	c.recordSuccess(qualifiedName, latency)
	logging.Logger().Info(
		"tool call complete",
		"tool", qualifiedName,
		"duration_ms", latency.Milliseconds(),
	)
	return result, nil
}

func (c *Coordinator) recordSuccess(qualifiedName string, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.registry[qualifiedName]
	if !ok {
		return
	}
	entry.Reliability.Successes++
	entry.Reliability.consecutiveFailures = 0
	entry.Performance.CallCount++
	count := float64(entry.Performance.CallCount)
	entry.Performance.AvgLatencyMS += (float64(latency.Milliseconds()) - entry.Performance.AvgLatencyMS) / count
}

func (c *Coordinator) recordFailure(qualifiedName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.registry[qualifiedName]
	if !ok {
		return
	}
	entry.Reliability.Failures++
	entry.Reliability.consecutiveFailures++
	entry.Reliability.lastFailure = time.Now()
	if entry.Reliability.consecutiveFailures >= circuitFailureThreshold {
		entry.Reliability.CircuitOpen = true
		logging.Logger().Warn("tool circuit opened", "tool", qualifiedName, "failures", entry.Reliability.consecutiveFailures)
	}
}

// Shutdown broadcasts cancellation to every supervision goroutine, waits for
// them to close their connections, then clears the shared maps. Bounded by
// ctx.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	shutdown := c.shutdown
	c.mu.Unlock()

	shutdown()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("wait for provider shutdown: %w", ctx.Err())
	}

	c.mu.Lock()
	c.registry = make(map[string]*RegistryEntry)
	c.sessions = make(map[string]providerSession)
	c.cancels = make(map[string]context.CancelFunc)
	c.mu.Unlock()
	return nil
}
