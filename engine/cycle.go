package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SoarGroup/Soar-sub034/core"
)

// CycleReport summarises one preference phase.
type CycleReport struct {
	Cycle            uint64
	Fired            int
	Retracted        int
	NilGoalRetracted int
	Asserted         int
	Discarded        int
	Vetoed           int
	// Deferred counts matches left queued by a halt or cancellation.
	Deferred   int
	Halted     bool
	HaltReason string
}

func (r CycleReport) String() string {
	s := fmt.Sprintf("cycle %d: fired=%d retracted=%d nil-goal=%d asserted=%d discarded=%d vetoed=%d",
		r.Cycle, r.Fired, r.Retracted, r.NilGoalRetracted, r.Asserted, r.Discarded, r.Vetoed)
	if r.Halted {
		s += fmt.Sprintf(" halted(%s) deferred=%d", r.HaltReason, r.Deferred)
	}
	return s
}

// RunPreferencePhase runs one preference phase to completion:
//
//  1. fire every queued match (checking halt and ctx between fires)
//  2. retract every instantiation reported as no longer matching
//  3. assert the new instantiations' preferences, buffering o-rejects
//  4. apply the buffered o-rejects
//  5. retract the instantiations whose match goal is gone
//
// Matches not fired because of a halt or a cancelled ctx stay queued.
// Instantiations created before the stop still go through steps 2 to 5, so
// total memory is consistent when this returns. A cancelled ctx is
// returned as the error; a halted agent returns ErrHalted without running.
func (a *Agent) RunPreferencePhase(ctx context.Context) (CycleReport, error) {
	a.stats.Cycles++
	report := CycleReport{Cycle: a.stats.Cycles}
	if a.halted {
		report.Halted, report.HaltReason, report.Deferred = true, a.haltReason, len(a.matches)
		return report, fmt.Errorf("%w: %s", ErrHalted, a.haltReason)
	}

	ctx, span := tracer.Start(ctx, "engine.PreferencePhase",
		trace.WithAttributes(
			attribute.String("agent.id", a.id),
			attribute.Int64("cycle", int64(report.Cycle)),
			attribute.String("phase", a.phase.String()),
			attribute.Int("matches", len(a.matches)),
		),
	)
	defer span.End()

	var stopErr error
	for len(a.matches) > 0 && !a.halted {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		m := a.matches[0]
		a.matches = a.matches[1:]
		a.newInsts = append(a.newInsts, a.fire(ctx, m))
		report.Fired++
	}
	report.Deferred = len(a.matches)

	report.Retracted = a.drainRetractions(ctx, &a.retractions)
	a.assertNewPreferences(ctx, &report)
	a.processORejects(ctx, &report)
	report.NilGoalRetracted = a.drainRetractions(ctx, &a.nilGoalRetractions)
	report.Halted, report.HaltReason = a.halted, a.haltReason

	span.SetAttributes(
		attribute.Int("fired", report.Fired),
		attribute.Int("retracted", report.Retracted+report.NilGoalRetracted),
		attribute.Int("asserted", report.Asserted),
		attribute.Int("vetoed", report.Vetoed),
		attribute.Int("total_memory", a.tmSize),
	)
	a.logger.Debug("agent.cycle", "agent_id", a.id, "report", report.String())
	a.runHook(ctx, HookCycle, &HookContext{Report: &report})

	if stopErr != nil {
		span.RecordError(stopErr)
		span.SetStatus(codes.Error, "context canceled")
		return report, stopErr
	}
	span.SetStatus(codes.Ok, "")
	return report, nil
}

func (a *Agent) drainRetractions(ctx context.Context, queue *[]core.InstID) int {
	n := 0
	for len(*queue) > 0 {
		id := (*queue)[0]
		*queue = (*queue)[1:]
		delete(a.lostQueued, id)

		inst, ok := a.insts.Get(id)
		if !ok || inst.Retired {
			continue
		}
		a.retract(ctx, id)
		n++
	}
	*queue = nil
	return n
}

// assertNewPreferences commits the preferences of every instantiation
// created this phase, in creation order and RHS order within each. The
// pending list's reference is dropped once an instantiation is done.
func (a *Agent) assertNewPreferences(ctx context.Context, report *CycleReport) {
	pending := a.newInsts
	a.newInsts = nil

	for _, id := range pending {
		a.assertInstantiation(id, report)
		a.releaseInst(id)
	}
}

func (a *Agent) assertInstantiation(id core.InstID, report *CycleReport) {
	inst := a.insts.MustGet(id)
	inMS := inst.InMatchSet
	allO := inst.FirstPref.Valid()
	for pid := inst.FirstPref; pid.Valid(); {
		p := a.prefs.MustGet(pid)
		next := p.InstNext
		switch {
		case p.Type == core.Reject && p.OSupported():
			p.AddRef()
			a.oRejects = append(a.oRejects, pid)
		case inMS || p.OSupported():
			a.addToTM(pid, p)
			a.stats.Asserted++
			report.Asserted++
		default:
			a.unlinkClones(p)
			p.AddRef()
			a.releasePref(pid)
			a.stats.Discarded++
			report.Discarded++
		}
		if !p.OSupported() {
			allO = false
		}
		pid = next
	}
	if !inMS {
		return
	}
	if inst.Rule != nil {
		a.ruleInsts[inst.Rule] = append(a.ruleInsts[inst.Rule], id)
	}
	if a.config.RemoveFullyOSupported && allO {
		a.retire(id, inst)
	}
}

// retire takes a fully o-supported instantiation out of the match set
// without withdrawing anything. A later lost-match report is ignored.
func (a *Agent) retire(id core.InstID, inst *core.Instantiation) {
	a.unlinkRuleInst(inst.Rule, id)
	inst.InMatchSet = false
	inst.Retired = true
	a.retired[id] = struct{}{}
	a.logger.Debug("inst.retire", "agent_id", a.id, "rule", inst.RuleName(), "inst", id.String())
	a.releaseInst(id)
}

// processORejects removes, for every buffered o-reject, the committed
// preferences with the same value from its slot, then drops the buffer's
// references.
func (a *Agent) processORejects(ctx context.Context, report *CycleReport) {
	rejects := a.oRejects
	a.oRejects = nil

	for _, rid := range rejects {
		r := a.prefs.MustGet(rid)
		var vetoed []string
		for _, pid := range a.Slot(r.ID, r.Attr) {
			p, ok := a.prefs.Get(pid)
			if !ok || !p.InTM || p.Value != r.Value {
				continue
			}
			vetoed = append(vetoed, p.String())
			a.removeFromTM(pid, p)
			a.stats.Vetoed++
			report.Vetoed++
		}
		if len(vetoed) > 0 {
			a.logger.Debug("tm.reject", "agent_id", a.id, "reject", r.String(), "removed", len(vetoed))
			a.runHook(ctx, HookVeto, &HookContext{Rule: a.ruleOf(r), Preferences: vetoed, Message: r.String()})
		}
	}
	for _, rid := range rejects {
		a.releasePref(rid)
	}
}

func (a *Agent) ruleOf(p *core.Preference) string {
	if inst, ok := a.insts.Get(p.Inst); ok {
		return inst.RuleName()
	}
	return ""
}
