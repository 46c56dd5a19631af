// Package engine implements the strategy engine. It orchestrates the
// argument capability filter and the process supervisor to start
// and stop a strategy in per-service or global mode, owning the single
// kernel-filter slot's exclusivity invariant.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/whitebite/isolate-core/internal/capability"
	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
	"github.com/whitebite/isolate-core/internal/logging"
	"github.com/whitebite/isolate-core/internal/process"
	"github.com/whitebite/isolate-core/internal/process/limits"
)

const globalProcessID = "global"

// StrategyProvider resolves a strategy id to its definition — satisfied by
// the config loader's in-memory strategy map.
type StrategyProvider interface {
	GetStrategy(id string) (domain.Strategy, bool)
}

// Engine is the strategy engine. At most one global strategy may run at a
// time; attempting to start a second rejects immediately rather than
// racing with the first.
type Engine struct {
	supervisor *process.Supervisor
	strategies StrategyProvider
	log        *logging.Logger

	mu           sync.Mutex
	globalActive bool
}

// New creates an Engine driving supervisor and resolving strategy ids via
// strategies.
func New(supervisor *process.Supervisor, strategies StrategyProvider, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.NewDefault("engine")
	}
	return &Engine{supervisor: supervisor, strategies: strategies, log: log}
}

func serviceProcessID(serviceID string) string {
	return "service:" + serviceID
}

// StartPerService launches strategyID's per-service template targeting
// serviceID, routing through proxyPort if > 0.
func (e *Engine) StartPerService(ctx context.Context, strategyID, serviceID string, proxyPort int) error {
	strategy, ok := e.strategies.GetStrategy(strategyID)
	if !ok {
		return errkit.NotFound("strategy", strategyID)
	}
	tmpl := strategy.TemplateFor(false)
	if tmpl == nil {
		return errkit.ProcessError(fmt.Sprintf("strategy %s has no per-service launch template", strategyID))
	}

	spec, err := e.buildSpec(serviceProcessID(serviceID), tmpl, proxyPort, limitsFor(strategy.Family))
	if err != nil {
		return err
	}
	_, err = e.supervisor.Spawn(ctx, spec)
	return err
}

// StartGlobal launches strategyID's global template. Fails immediately if
// a global strategy is already running.
func (e *Engine) StartGlobal(ctx context.Context, strategyID string) error {
	e.mu.Lock()
	if e.globalActive {
		e.mu.Unlock()
		return errkit.ProcessError("a global strategy is already running")
	}
	e.globalActive = true
	e.mu.Unlock()

	strategy, ok := e.strategies.GetStrategy(strategyID)
	if !ok {
		e.clearGlobal()
		return errkit.NotFound("strategy", strategyID)
	}
	tmpl := strategy.TemplateFor(true)
	if tmpl == nil {
		e.clearGlobal()
		return errkit.ProcessError(fmt.Sprintf("strategy %s has no global launch template", strategyID))
	}

	spec, err := e.buildSpec(globalProcessID, tmpl, 0, limitsFor(strategy.Family))
	if err != nil {
		e.clearGlobal()
		return err
	}
	if _, err := e.supervisor.Spawn(ctx, spec); err != nil {
		e.clearGlobal()
		return err
	}
	return nil
}

func (e *Engine) clearGlobal() {
	e.mu.Lock()
	e.globalActive = false
	e.mu.Unlock()
}

// StopPerService stops the process for serviceID.
func (e *Engine) StopPerService(ctx context.Context, serviceID string) error {
	return e.supervisor.Stop(ctx, serviceProcessID(serviceID))
}

// StopGlobal stops the active global strategy, if any, then sleeps ~2s to
// give the kernel-filter driver time to release its divert handle before a
// caller starts another strategy.
func (e *Engine) StopGlobal(ctx context.Context) error {
	err := e.supervisor.Stop(ctx, globalProcessID)
	e.clearGlobal()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
	}
	return err
}

// IsRunning reports whether a process is active for id (as produced by
// serviceProcessID, or the literal "global").
func (e *Engine) IsRunning(id string) bool {
	return e.supervisor.IsRunning(id)
}

// Status returns every tracked process's id and current state.
func (e *Engine) Status() map[string]domain.ProcessState {
	status := make(map[string]domain.ProcessState)
	for _, id := range e.supervisor.List() {
		status[id] = e.supervisor.State(id)
	}
	return status
}

// limitsFor picks the resource-limit preset for family: the proxy-protocol
// families spawn a multi-protocol proxy process (the Proxy preset),
// everything else spawns the DPI-circumvention kernel-filter helper (the
// Helper preset).
func limitsFor(family domain.Family) limits.Limits {
	switch family {
	case domain.FamilyVLESS, domain.FamilyVMess, domain.FamilyTrojan, domain.FamilyShadowsocks:
		return limits.Proxy()
	default:
		return limits.Helper()
	}
}

func (e *Engine) buildSpec(id string, tmpl *domain.LaunchTemplate, proxyPort int, limitSet limits.Limits) (domain.ProcessSpec, error) {
	binary, err := filepath.Abs(tmpl.Binary)
	if err != nil {
		return domain.ProcessSpec{}, errkit.Wrap(errkit.KindProcess, "resolve binary path", err)
	}

	args := make([]string, len(tmpl.Args))
	copy(args, tmpl.Args)
	if proxyPort > 0 {
		args = substituteProxyPort(args, proxyPort)
	}

	if err := capability.ValidateTokens(args); err != nil {
		return domain.ProcessSpec{}, err
	}

	env := make(map[string]string, len(tmpl.Env)+1)
	for k, v := range tmpl.Env {
		env[k] = v
	}
	if proxyPort > 0 {
		env["ISOLATE_PROXY_PORT"] = fmt.Sprintf("%d", proxyPort)
	}

	return domain.ProcessSpec{
		ID:     id,
		Binary: binary,
		Args:   args,
		Env:    env,
		Limits: limitSet,
	}, nil
}

// substituteProxyPort replaces the literal token "{{proxy_port}}" in args
// with the resolved port, for launch templates that need to thread the
// local proxy's port into the helper's argument list.
func substituteProxyPort(args []string, port int) []string {
	out := make([]string, len(args))
	token := "{{proxy_port}}"
	portStr := fmt.Sprintf("%d", port)
	for i, a := range args {
		if a == token {
			out[i] = portStr
		} else {
			out[i] = a
		}
	}
	return out
}
