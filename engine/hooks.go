package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/SoarGroup/Soar-sub034/core"
)

// HookType names the points in the preference phase that external tracing,
// printing and metrics can observe.
type HookType string

const (
	// HookFiring runs after an instantiation has been built: its
	// preferences are classified but not yet committed.
	HookFiring HookType = "firing"

	// HookRetraction runs when an instantiation leaves the match set.
	HookRetraction HookType = "retraction"

	// HookVeto runs once per operator reject that removed preferences from
	// total memory; Preferences lists the removed ones.
	HookVeto HookType = "veto"

	// HookDiagnostic carries non-fatal problems: failed RHS actions,
	// attribute preferences, support divergence, chunk limit.
	HookDiagnostic HookType = "diagnostic"

	// HookCycle runs once at the end of every preference phase.
	HookCycle HookType = "cycle"
)

// HookContext is what a hook sees. Fields not relevant to the hook type are
// zero.
type HookContext struct {
	// AgentID identifies the agent that raised the hook.
	AgentID string

	// HookType indicates which point triggered this execution.
	HookType HookType

	// Rule is the name of the firing or retracting rule.
	Rule string

	// Inst is the instantiation handle, valid for firing and retraction.
	Inst core.InstID

	// Instantiation is the live record; hooks must not mutate it.
	Instantiation *core.Instantiation

	// Conditions and Preferences are printable summaries.
	Conditions  []string
	Preferences []string

	// Message is the diagnostic text.
	Message string

	// Err is the underlying error of a diagnostic, if any.
	Err error

	// Report is set for HookCycle.
	Report *CycleReport

	// Metadata provides extensible storage for custom hook data.
	Metadata map[string]any
}

// Hook observes the preference phase. Hooks run synchronously inside the
// cycle; a returned error is logged and never aborts the cycle.
type Hook interface {
	// Type returns the hook type this implementation handles.
	Type() HookType

	// Execute performs the hook logic.
	Execute(ctx context.Context, hc *HookContext) error
}

// FunctionHook wraps a function as a hook.
//
// Example:
//
//	h := NewFunctionHook(HookFiring, func(ctx context.Context, hc *HookContext) error {
//	    fmt.Println("fired", hc.Rule)
//	    return nil
//	})
type FunctionHook struct {
	hookType HookType
	fn       func(ctx context.Context, hc *HookContext) error
}

// NewFunctionHook creates a new function-based hook.
func NewFunctionHook(hookType HookType, fn func(ctx context.Context, hc *HookContext) error) *FunctionHook {
	return &FunctionHook{hookType: hookType, fn: fn}
}

// Type returns the hook type this function handles.
func (h *FunctionHook) Type() HookType { return h.hookType }

// Execute calls the wrapped function.
func (h *FunctionHook) Execute(ctx context.Context, hc *HookContext) error {
	return h.fn(ctx, hc)
}

// HookManager routes hook executions by type. Hooks of one type run in
// registration order. With nothing registered every execution is a no-op.
//
// Not safe for concurrent registration; register before running cycles.
type HookManager struct {
	hooks map[HookType][]Hook
}

// NewHookManager creates an empty manager.
func NewHookManager() *HookManager {
	return &HookManager{hooks: make(map[HookType][]Hook)}
}

// RegisterHook adds a hook for its type.
func (hm *HookManager) RegisterHook(h Hook) {
	hm.hooks[h.Type()] = append(hm.hooks[h.Type()], h)
}

// Has reports whether any hook of the given type is registered.
func (hm *HookManager) Has(t HookType) bool { return len(hm.hooks[t]) > 0 }

// ExecuteHooks runs every hook of type t. A failing hook does not stop the
// others; the failures are joined into the returned error.
func (hm *HookManager) ExecuteHooks(ctx context.Context, t HookType, hc *HookContext) error {
	hooks, exists := hm.hooks[t]
	if !exists {
		return nil
	}
	hc.HookType = t

	var errs []error
	for _, h := range hooks {
		if err := h.Execute(ctx, hc); err != nil {
			errs = append(errs, fmt.Errorf("%s hook: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

// LoggingHook prints hook events through a logging function, the way a
// trace-firings watch level would.
//
// Example:
//
//	h := NewLoggingHook(HookFiring, func(m string) { log.Print(m) })
type LoggingHook struct {
	hookType HookType
	logger   func(message string)
}

// NewLoggingHook creates a new logging hook.
func NewLoggingHook(hookType HookType, logger func(message string)) *LoggingHook {
	return &LoggingHook{hookType: hookType, logger: logger}
}

// Type returns the hook type this logger handles.
func (h *LoggingHook) Type() HookType { return h.hookType }

// Execute formats the event and forwards it to the logging function.
func (h *LoggingHook) Execute(_ context.Context, hc *HookContext) error {
	if h.logger == nil {
		return nil
	}
	switch hc.HookType {
	case HookFiring:
		h.logger(fmt.Sprintf("Firing %s", hc.Rule))
	case HookRetraction:
		h.logger(fmt.Sprintf("Retracting %s", hc.Rule))
	case HookVeto:
		h.logger(fmt.Sprintf("Rejected %v", hc.Preferences))
	case HookCycle:
		if hc.Report != nil {
			h.logger(fmt.Sprintf("[%s] %s", hc.AgentID, hc.Report))
		}
	default:
		h.logger(fmt.Sprintf("[%s] %s", hc.HookType, hc.Message))
	}
	return nil
}
