// Package soar provides a high-level façade over the recognition-memory
// core. A Kernel bundles the symbol table, working memory and one agent,
// and plays the rule base's part for justification excision. Most
// applications interact with this package by:
//  1. Creating a Kernel via New() (optionally overriding policies, logger, chunker)
//  2. Building facts and goals through the Kernel
//  3. Feeding matcher events (Match / Unmatch) and running preference phases
//
// The façade delegates all recognition work to engine.Agent.
package soar

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/engine"
	"github.com/SoarGroup/Soar-sub034/logging"
	"github.com/SoarGroup/Soar-sub034/memory"
	"github.com/SoarGroup/Soar-sub034/metrics"
	"github.com/SoarGroup/Soar-sub034/rhs"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

// Options configures the Kernel.
type Options struct {
	// EngineConfig holds the agent's policy switches.
	EngineConfig engine.Config

	// AgentID correlates logs, hooks and metrics. Random when empty.
	AgentID string

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Chunker receives every fired instantiation. Optional.
	Chunker core.Chunker

	// Registry provides RHS functions (defaults to the built-ins).
	Registry *rhs.Registry

	// Output receives text written by RHS functions.
	Output io.Writer

	// Hooks are registered on the agent.
	Hooks []engine.Hook

	// Registerer, when set, receives the agent's Prometheus metrics.
	Registerer prometheus.Registerer
}

// Kernel is the high-level façade aggregating the symbol table, working
// memory and agent.
type Kernel struct {
	opts    Options
	symbols *symbol.Table
	memory  *memory.InMemoryStore
	agent   *engine.Agent
	excise  []*core.Rule
}

// New creates a Kernel with a fresh symbol table and working memory.
func New(optFns ...func(o *Options)) *Kernel {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	k := &Kernel{opts: opts, symbols: symbol.NewTable()}
	k.agent = engine.New(k.symbols, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.AgentID = opts.AgentID
		o.Logger = opts.Logger
		o.Matcher = k
		o.Chunker = opts.Chunker
		o.Registry = opts.Registry
		o.Output = opts.Output
		o.Hooks = opts.Hooks
	})
	k.memory = memory.NewInMemoryStore(k.symbols, k.agent)
	if opts.Registerer != nil {
		metrics.NewCollector(opts.Registerer).Register(k.agent)
	}
	return k
}

// Symbols returns the kernel's symbol table.
func (k *Kernel) Symbols() *symbol.Table { return k.symbols }

// Memory returns working memory.
func (k *Kernel) Memory() *memory.InMemoryStore { return k.memory }

// Agent returns the underlying agent.
func (k *Kernel) Agent() *engine.Agent { return k.agent }

// PushGoal creates a new bottom goal. The goal stack holds the only
// reference until PopGoal.
func (k *Kernel) PushGoal() *symbol.Symbol {
	g := k.memory.PushGoal()
	g.Release()
	return g
}

// PopGoal removes the bottom goal: its preferences leave total memory and
// the instantiations matched under it retract through the nil-goal sweep.
func (k *Kernel) PopGoal() {
	g := k.memory.PopGoal()
	if g == nil {
		return
	}
	k.agent.RemoveGoal(g)
	g.Release()
}

// AddFact adds (id ^attr value) to working memory, justified by pref when
// it is valid.
func (k *Kernel) AddFact(id, attr, value *symbol.Symbol, pref core.PrefID) (*core.Fact, error) {
	return k.memory.Add(id, attr, value, false, pref)
}

// Match reports a new rule match.
func (k *Kernel) Match(rule *core.Rule, tok *core.Token, w *core.Fact) {
	k.agent.OnNewMatch(rule, tok, w)
}

// Unmatch reports that an instantiation's match is gone.
func (k *Kernel) Unmatch(id core.InstID) error {
	return k.agent.OnLostMatch(id)
}

// RequestExcise queues rule for removal after the current phase.
func (k *Kernel) RequestExcise(rule *core.Rule) {
	for _, r := range k.excise {
		if r == rule {
			return
		}
	}
	k.excise = append(k.excise, rule)
}

// ExciseRule removes rule: it is detached from the agent and the rule
// base's reference is dropped.
func (k *Kernel) ExciseRule(rule *core.Rule) {
	k.agent.ExciseRule(rule)
	rule.Release()
}

// RunPreferencePhase runs one preference phase, then excises the
// justifications whose last instantiation retracted during it.
func (k *Kernel) RunPreferencePhase(ctx context.Context) (engine.CycleReport, error) {
	report, err := k.agent.RunPreferencePhase(ctx)
	pending := k.excise
	k.excise = nil
	for _, r := range pending {
		k.ExciseRule(r)
	}
	return report, err
}

// Close releases the agent's own references.
func (k *Kernel) Close() { k.agent.Close() }
