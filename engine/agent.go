package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/internal/arena"
	"github.com/SoarGroup/Soar-sub034/logging"
	"github.com/SoarGroup/Soar-sub034/rhs"
	"github.com/SoarGroup/Soar-sub034/support"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

var tracer = otel.Tracer("soar.engine")

var (
	// ErrStaleHandle is returned for a handle whose object has been freed.
	ErrStaleHandle = errors.New("stale handle")
	// ErrHalted is returned by RunPreferencePhase while the agent is halted.
	ErrHalted = errors.New("agent halted")
	// ErrNotInTotalMemory is returned when withdrawing an uncommitted
	// preference.
	ErrNotInTotalMemory = errors.New("preference not in total memory")
)

type match struct {
	rule  *core.Rule
	token *core.Token
	fact  *core.Fact
}

// Agent is the per-agent recognition core: the instantiation manager, the
// total-memory preference index and the assert/retract cycle driver. All
// state that a production system would otherwise keep in globals lives
// here.
//
// An Agent is single-threaded: the matcher, the decision procedure and the
// preference phase take turns on one goroutine.
type Agent struct {
	id         string
	config     Config
	symbols    *symbol.Table
	choice     *symbol.Symbol
	logger     logging.Logger
	matcher    core.Matcher
	chunker    core.Chunker
	limiter    *core.ChunkLimiter
	evaluator  *rhs.Evaluator
	calculator *support.Calculator
	hooks      *HookManager
	out        io.Writer

	prefs arena.Pool[core.Preference]
	insts arena.Pool[core.Instantiation]

	slots     map[slotKey]*prefList
	goals     map[*symbol.Symbol]*prefList
	ruleInsts map[*core.Rule][]core.InstID
	tmSize    int

	matches            []match
	newInsts           []core.InstID
	retractions        []core.InstID
	nilGoalRetractions []core.InstID
	lostQueued         map[core.InstID]struct{}
	retired            map[core.InstID]struct{} // awaiting their lost-match report
	oRejects           []core.PrefID

	phase         core.FiringPhase
	halted        bool
	haltReason    string
	backtracePass uint64

	freeQueue []core.InstID
	freeing   bool

	stats Stats
}

// stackLogger is implemented by loggers that can attach a stack snapshot.
type stackLogger interface {
	ErrorWithStack(err error, msg string, args ...any)
}

// New builds an agent over the given symbol table.
func New(symbols *symbol.Table, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.AgentID == "" {
		opts.AgentID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Config.ChoiceAttribute == "" {
		opts.Config.ChoiceAttribute = DefaultConfig.ChoiceAttribute
	}

	a := &Agent{
		id:         opts.AgentID,
		config:     opts.Config,
		symbols:    symbols,
		choice:     symbols.Constant(opts.Config.ChoiceAttribute),
		logger:     opts.Logger,
		matcher:    opts.Matcher,
		hooks:      NewHookManager(),
		out:        opts.Output,
		slots:      make(map[slotKey]*prefList),
		goals:      make(map[*symbol.Symbol]*prefList),
		ruleInsts:  make(map[*core.Rule][]core.InstID),
		lostQueued: make(map[core.InstID]struct{}),
		retired:    make(map[core.InstID]struct{}),
	}
	a.evaluator = rhs.NewEvaluator(symbols, opts.Registry, a.choice, opts.Config.AttributePreferences, opts.Logger)
	a.calculator = support.NewCalculator(opts.Config.SupportPolicy, a.choice, opts.Logger)

	if opts.Chunker != nil {
		a.limiter = core.NewChunkLimiter(opts.Config.MaxChunks)
		a.chunker = core.NewLimitedChunker(opts.Chunker, a.limiter, func(err error) {
			if sl, ok := a.logger.(stackLogger); ok {
				sl.ErrorWithStack(err, "agent.chunk_limit", "agent_id", a.id, "max_chunks", a.config.MaxChunks)
			}
			a.diagnose(context.Background(), "", err.Error(), err)
			a.Halt("max-chunks")
		})
	}
	for _, h := range opts.Hooks {
		a.hooks.RegisterHook(h)
	}

	a.logger.Debug("agent.new", "agent_id", a.id, "support_policy", a.config.SupportPolicy.String(),
		"attribute_preferences", a.config.AttributePreferences.String(), "remove_fully_o_supported", a.config.RemoveFullyOSupported)
	return a
}

// ID returns the agent identifier used in logs and hooks.
func (a *Agent) ID() string { return a.id }

// Config returns the configuration the agent was built with.
func (a *Agent) Config() Config { return a.config }

// Hooks returns the hook manager for registering subscribers.
func (a *Agent) Hooks() *HookManager { return a.hooks }

// ChunkLimiter returns the limiter guarding the chunker, or nil when no
// chunker is configured.
func (a *Agent) ChunkLimiter() *core.ChunkLimiter { return a.limiter }

// Close drops the agent's own symbol references.
func (a *Agent) Close() {
	a.evaluator.Close()
	if a.choice != nil {
		a.choice.Release()
		a.choice = nil
	}
}

// -------------------- Matcher interface --------------------

// OnNewMatch queues a new match of rule. The matcher keeps token and fact
// valid until the next preference phase has run.
func (a *Agent) OnNewMatch(rule *core.Rule, token *core.Token, fact *core.Fact) {
	a.matches = append(a.matches, match{rule: rule, token: token, fact: fact})
}

// OnLostMatch queues the retraction of an instantiation. Instantiations
// whose match goal has been removed go to the nil-goal sweep. A stale
// handle is logged and reported with ErrStaleHandle. The report for a
// retired instantiation is consumed and ignored, even when the record has
// been freed since. Reporting a live instantiation that already left the
// match set panics.
func (a *Agent) OnLostMatch(id core.InstID) error {
	if _, ok := a.retired[id]; ok {
		delete(a.retired, id)
		return nil
	}
	inst, ok := a.insts.Get(id)
	if !ok {
		a.logger.Warn("inst.lost_match.stale", "agent_id", a.id, "inst", id.String())
		return fmt.Errorf("%w: instantiation %s", ErrStaleHandle, id)
	}
	if _, queued := a.lostQueued[id]; queued || !inst.InMatchSet {
		panic(fmt.Sprintf("engine: instantiation %s of %s retracted twice", id, inst.RuleName()))
	}
	a.lostQueued[id] = struct{}{}
	if inst.MatchGoal == nil {
		a.nilGoalRetractions = append(a.nilGoalRetractions, id)
		return nil
	}
	a.retractions = append(a.retractions, id)
	return nil
}

// PendingMatches returns the number of matches waiting to fire.
func (a *Agent) PendingMatches() int { return len(a.matches) }

// -------------------- Run control --------------------

// SetFiringPhase sets the sub-cycle used by the support calculation.
func (a *Agent) SetFiringPhase(p core.FiringPhase) { a.phase = p }

// FiringPhase returns the current sub-cycle.
func (a *Agent) FiringPhase() core.FiringPhase { return a.phase }

// Halt raises the system-halted signal. The current preference phase fires
// no further matches; the queued ones wait for Resume.
func (a *Agent) Halt(reason string) {
	if a.halted {
		return
	}
	a.halted = true
	a.haltReason = reason
	a.logger.Info("agent.halt", "agent_id", a.id, "reason", reason)
}

// Halted reports whether the agent is halted and why.
func (a *Agent) Halted() (bool, string) { return a.halted, a.haltReason }

// Resume clears the halted signal.
func (a *Agent) Resume() {
	a.halted = false
	a.haltReason = ""
}

// -------------------- Queries --------------------

// Preference resolves a preference handle.
func (a *Agent) Preference(id core.PrefID) (*core.Preference, bool) { return a.prefs.Get(id) }

// Instantiation resolves an instantiation handle.
func (a *Agent) Instantiation(id core.InstID) (*core.Instantiation, bool) { return a.insts.Get(id) }

// Preferences returns an instantiation's generated preferences in RHS
// order.
func (a *Agent) Preferences(id core.InstID) []core.PrefID {
	inst, ok := a.insts.Get(id)
	if !ok {
		return nil
	}
	var out []core.PrefID
	for pid := inst.FirstPref; pid.Valid(); pid = a.prefs.MustGet(pid).InstNext {
		out = append(out, pid)
	}
	return out
}

// InstantiationsOf returns the instantiations of rule currently in the
// match set, in assertion order.
func (a *Agent) InstantiationsOf(rule *core.Rule) []core.InstID {
	out := make([]core.InstID, len(a.ruleInsts[rule]))
	copy(out, a.ruleInsts[rule])
	return out
}

// Stats is a snapshot of agent counters.
type Stats struct {
	Cycles      uint64
	Firings     uint64
	Retractions uint64
	Asserted    uint64
	Discarded   uint64
	Vetoed      uint64

	LiveInstantiations int
	LivePreferences    int
	TotalMemory        int
}

// Stats returns the current counters.
func (a *Agent) Stats() Stats {
	s := a.stats
	s.LiveInstantiations = a.insts.Len()
	s.LivePreferences = a.prefs.Len()
	s.TotalMemory = a.tmSize
	return s
}

// -------------------- Preference references --------------------

// AddPreferenceRef takes a reference on a live preference. Working memory
// uses it for fact justifications.
func (a *Agent) AddPreferenceRef(id core.PrefID) {
	a.prefs.MustGet(id).AddRef()
}

// ReleasePreference drops a reference taken with AddPreferenceRef.
func (a *Agent) ReleasePreference(id core.PrefID) {
	a.releasePref(id)
}

// WithdrawPreference removes a committed preference from total memory. The
// decision procedure uses it to retire o-supported preferences.
func (a *Agent) WithdrawPreference(id core.PrefID) error {
	p, ok := a.prefs.Get(id)
	if !ok {
		return fmt.Errorf("%w: preference %s", ErrStaleHandle, id)
	}
	if !p.InTM {
		return fmt.Errorf("%w: %s", ErrNotInTotalMemory, p)
	}
	a.removeFromTM(id, p)
	return nil
}

// -------------------- Chunker support --------------------

// NewBacktracePass starts a backtracing pass and returns its number.
func (a *Agent) NewBacktracePass() uint64 {
	a.backtracePass++
	return a.backtracePass
}

// MarkBacktraced stamps the instantiation with pass and reports whether it
// had not been visited in that pass yet.
func (a *Agent) MarkBacktraced(id core.InstID, pass uint64) (bool, error) {
	inst, ok := a.insts.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: instantiation %s", ErrStaleHandle, id)
	}
	if inst.BacktraceNumber == pass {
		return false, nil
	}
	inst.BacktraceNumber = pass
	return true, nil
}

// HoldInstantiation keeps an instantiation alive while the chunker still
// points at it.
func (a *Agent) HoldInstantiation(id core.InstID) error {
	inst, ok := a.insts.Get(id)
	if !ok {
		return fmt.Errorf("%w: instantiation %s", ErrStaleHandle, id)
	}
	inst.AddRef()
	return nil
}

// ReleaseInstantiation drops a hold taken with HoldInstantiation.
func (a *Agent) ReleaseInstantiation(id core.InstID) error {
	if _, ok := a.insts.Get(id); !ok {
		return fmt.Errorf("%w: instantiation %s", ErrStaleHandle, id)
	}
	a.releaseInst(id)
	return nil
}

// SetGDSEvaluated records that the goal-dependency set has looked at the
// instantiation.
func (a *Agent) SetGDSEvaluated(id core.InstID, v bool) error {
	inst, ok := a.insts.Get(id)
	if !ok {
		return fmt.Errorf("%w: instantiation %s", ErrStaleHandle, id)
	}
	inst.GDSEvaluated = v
	return nil
}

// LinkClone inserts clone into orig's clone chain, right after orig.
func (a *Agent) LinkClone(orig, clone core.PrefID) error {
	o, ok := a.prefs.Get(orig)
	if !ok {
		return fmt.Errorf("%w: preference %s", ErrStaleHandle, orig)
	}
	c, ok := a.prefs.Get(clone)
	if !ok {
		return fmt.Errorf("%w: preference %s", ErrStaleHandle, clone)
	}
	if orig == clone || c.NextClone.Valid() || c.PrevClone.Valid() {
		return fmt.Errorf("preference %s is already on a clone chain", c)
	}
	c.PrevClone = orig
	c.NextClone = o.NextClone
	if next, ok := a.prefs.Get(o.NextClone); ok {
		next.PrevClone = clone
	}
	o.NextClone = clone
	return nil
}

// -------------------- Rule base and goal stack --------------------

// ExciseRule detaches rule from every instantiation and drops its queued
// matches. The instantiations survive with a nil Rule. The caller keeps
// the rule base's own reference.
func (a *Agent) ExciseRule(rule *core.Rule) {
	for _, id := range a.insts.Handles() {
		inst := a.insts.MustGet(id)
		if inst.Rule == rule {
			inst.Rule = nil
			rule.Release()
		}
	}
	delete(a.ruleInsts, rule)

	kept := a.matches[:0]
	for _, m := range a.matches {
		if m.rule != rule {
			kept = append(kept, m)
		}
	}
	a.matches = kept
	a.logger.Debug("rule.excise", "agent_id", a.id, "rule", rule.Name)
}

// RemoveGoal withdraws every preference on goal's list from total memory
// and detaches goal from the instantiations matched under it. Their later
// retractions take the nil-goal path.
func (a *Agent) RemoveGoal(goal *symbol.Symbol) {
	if l := a.goals[goal]; l != nil {
		for _, pid := range a.listSnapshot(l, goalLinks) {
			a.removeFromTM(pid, a.prefs.MustGet(pid))
		}
	}
	for _, id := range a.insts.Handles() {
		inst := a.insts.MustGet(id)
		if inst.MatchGoal == goal {
			inst.MatchGoal = nil
			goal.Release()
		}
	}
	a.logger.Debug("goal.remove", "agent_id", a.id, "goal", goal.String())
}
