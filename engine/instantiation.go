package engine

import (
	"context"
	"errors"

	"github.com/SoarGroup/Soar-sub034/backtrace"
	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/rhs"
	"github.com/SoarGroup/Soar-sub034/support"
)

// fire builds the instantiation for one match: conditions, match goal,
// RHS preferences, support, traces and prohibits, then hands it to the
// chunker. Nothing is committed to total memory yet.
func (a *Agent) fire(ctx context.Context, m match) core.InstID {
	rule := m.rule
	inst := &core.Instantiation{
		Rule:           rule,
		InMatchSet:     true,
		OkToVariablize: true,
		MatchGoalLevel: core.AttributeImpasseLevel,
	}
	inst.AddRef() // match-set membership
	inst.AddRef() // pending list, dropped after assert
	rule.AddRef()
	id := a.insts.Alloc(inst)

	inst.Conditions = instantiateConditions(rule, m.token, m.fact)
	for _, c := range inst.Conditions {
		if c.Kind != core.ConditionPositive || c.Fact == nil || !c.Fact.ID.IsGoal() {
			continue
		}
		if inst.MatchGoal == nil || c.Fact.ID.Level() > inst.MatchGoalLevel {
			inst.MatchGoal = c.Fact.ID
			inst.MatchGoalLevel = c.Fact.ID.Level()
		}
	}
	if inst.MatchGoal != nil {
		inst.MatchGoal.AddRef()
	}

	prefs, err := a.evaluator.Execute(rhs.Firing{
		Rule:  rule,
		Token: m.token,
		Fact:  m.fact,
		Level: inst.MatchGoalLevel,
		Halt:  a.Halt,
		Warn:  func(msg string) { a.diagnose(ctx, rule.Name, msg, nil) },
		Out:   a.out,
	})
	if err != nil {
		a.reportActionErrors(ctx, rule.Name, err)
	}
	for _, p := range prefs {
		p.Inst = id
		p.Level = inst.MatchGoalLevel
		pid := a.prefs.Alloc(p)
		p.InstPrev = inst.LastPref
		if inst.LastPref.Valid() {
			a.prefs.MustGet(inst.LastPref).InstNext = pid
		} else {
			inst.FirstPref = pid
		}
		inst.LastPref = pid
		inst.AddRef()
	}

	for _, d := range a.calculator.Calculate(support.Input{Inst: inst, Phase: a.phase, Preferences: prefs}) {
		a.diagnose(ctx, rule.Name, "support policies disagree on "+d.Preference.String(), nil)
	}

	backtrace.ResolveConditionTraces(a, inst.Conditions, inst.MatchGoalLevel)
	backtrace.BuildProhibitsList(a, inst.Conditions, inst.MatchGoalLevel)

	a.stats.Firings++
	a.logger.Debug("inst.fire", "agent_id", a.id, "rule", rule.Name, "inst", id.String(),
		"match_goal_level", inst.MatchGoalLevel, "preferences", len(prefs))
	a.runHook(ctx, HookFiring, a.instHookContext(id, inst))

	if !rule.NeverFire && a.chunker != nil {
		a.chunker.ChunkInstantiation(id, inst, a.config.Learning)
	}
	return id
}

// instantiateConditions freezes the match. A rule without condition specs
// is treated as all-positive over the token's links.
func instantiateConditions(rule *core.Rule, tok *core.Token, w *core.Fact) []*core.Condition {
	n := len(rule.Conditions)
	if n == 0 {
		n = 1
		for t := tok; t != nil; t = t.Parent {
			if t.Parent == nil && t.Fact == nil {
				break // dummy top token
			}
			n++
		}
	}
	facts := tok.Facts(w, n)
	conds := make([]*core.Condition, n)
	for i, f := range facts {
		c := &core.Condition{Kind: core.ConditionPositive}
		switch {
		case i < len(rule.Conditions):
			c.Spec = rule.Conditions[i]
			c.Kind = c.Spec.Kind
		case f == nil:
			c.Kind = core.ConditionNegative
		}
		if c.Kind == core.ConditionPositive && f != nil {
			f.AddRef()
			c.Fact = f
			c.Level = f.Level()
		}
		conds[i] = c
	}
	return conds
}

// retract takes an instantiation out of the match set: its i-supported
// committed preferences leave total memory, justifications ask the matcher
// to excise their rule, and the match-set reference is dropped.
func (a *Agent) retract(ctx context.Context, id core.InstID) {
	inst := a.insts.MustGet(id)
	if !inst.InMatchSet {
		panic("engine: retracting instantiation of " + inst.RuleName() + " outside the match set")
	}
	for pid := inst.FirstPref; pid.Valid(); {
		p := a.prefs.MustGet(pid)
		next := p.InstNext
		if p.InTM && !p.OSupported() {
			a.removeFromTM(pid, p)
		}
		pid = next
	}
	a.unlinkRuleInst(inst.Rule, id)
	if inst.Rule != nil && inst.Rule.Type == core.RuleJustification && inst.Rule.Refs() > 1 && a.matcher != nil {
		a.matcher.RequestExcise(inst.Rule)
	}
	inst.InMatchSet = false

	a.stats.Retractions++
	a.logger.Debug("inst.retract", "agent_id", a.id, "rule", inst.RuleName(), "inst", id.String())
	a.runHook(ctx, HookRetraction, a.instHookContext(id, inst))
	a.releaseInst(id)
}

func (a *Agent) unlinkRuleInst(rule *core.Rule, id core.InstID) {
	if rule == nil {
		return
	}
	list := a.ruleInsts[rule]
	for i, x := range list {
		if x == id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(a.ruleInsts, rule)
		return
	}
	a.ruleInsts[rule] = list
}

func (a *Agent) reportActionErrors(ctx context.Context, rule string, err error) {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		a.diagnose(ctx, rule, e.Error(), e)
	}
}

// diagnose logs a non-fatal problem and forwards it to the diagnostic
// hooks.
func (a *Agent) diagnose(ctx context.Context, rule, msg string, err error) {
	a.logger.Warn("agent.diagnostic", "agent_id", a.id, "rule", rule, "message", msg)
	var fe *rhs.FunctionError
	hc := &HookContext{AgentID: a.id, Rule: rule, Message: msg, Err: err}
	if errors.As(err, &fe) {
		hc.Metadata = map[string]any{"code": fe.Code, "function": fe.Function}
	}
	a.runHook(ctx, HookDiagnostic, hc)
}

func (a *Agent) runHook(ctx context.Context, t HookType, hc *HookContext) {
	if !a.hooks.Has(t) {
		return
	}
	hc.AgentID = a.id
	if err := a.hooks.ExecuteHooks(ctx, t, hc); err != nil {
		a.logger.Warn("agent.hook.failed", "agent_id", a.id, "hook", string(t), "error", err.Error())
	}
}

func (a *Agent) instHookContext(id core.InstID, inst *core.Instantiation) *HookContext {
	hc := &HookContext{Rule: inst.RuleName(), Inst: id, Instantiation: inst}
	if !a.hooks.Has(HookFiring) && !a.hooks.Has(HookRetraction) {
		return hc
	}
	for _, c := range inst.Conditions {
		if c.Fact != nil {
			hc.Conditions = append(hc.Conditions, c.Fact.String())
		}
	}
	for pid := inst.FirstPref; pid.Valid(); {
		p := a.prefs.MustGet(pid)
		hc.Preferences = append(hc.Preferences, p.String())
		pid = p.InstNext
	}
	return hc
}
