package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/internal/testutil"
	"github.com/SoarGroup/Soar-sub034/rhs"
)

func TestHookManager_RunsAllAndJoinsErrors(t *testing.T) {
	hm := NewHookManager()
	var order []int
	hm.RegisterHook(NewFunctionHook(HookCycle, func(context.Context, *HookContext) error {
		order = append(order, 1)
		return errors.New("first")
	}))
	hm.RegisterHook(NewFunctionHook(HookCycle, func(context.Context, *HookContext) error {
		order = append(order, 2)
		return nil
	}))

	hc := &HookContext{}
	err := hm.ExecuteHooks(context.Background(), HookCycle, hc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle hook: first")
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, HookCycle, hc.HookType)

	assert.True(t, hm.Has(HookCycle))
	assert.False(t, hm.Has(HookVeto))
	assert.NoError(t, hm.ExecuteHooks(context.Background(), HookVeto, &HookContext{}))
}

func TestLoggingHook_Formats(t *testing.T) {
	var lines []string
	logf := func(m string) { lines = append(lines, m) }

	ctx := context.Background()
	_ = NewLoggingHook(HookFiring, logf).Execute(ctx, &HookContext{HookType: HookFiring, Rule: "propose"})
	_ = NewLoggingHook(HookRetraction, logf).Execute(ctx, &HookContext{HookType: HookRetraction, Rule: "propose"})
	_ = NewLoggingHook(HookVeto, logf).Execute(ctx, &HookContext{HookType: HookVeto, Preferences: []string{"(S1 ^color red +)"}})
	_ = NewLoggingHook(HookDiagnostic, logf).Execute(ctx, &HookContext{HookType: HookDiagnostic, Message: "bad"})
	_ = NewLoggingHook(HookCycle, logf).Execute(ctx, &HookContext{HookType: HookCycle, AgentID: "a", Report: &CycleReport{Cycle: 3, Fired: 1}})

	assert.Equal(t, []string{
		"Firing propose",
		"Retracting propose",
		"Rejected [(S1 ^color red +)]",
		"[diagnostic] bad",
		"[a] cycle 3: fired=1 retracted=0 nil-goal=0 asserted=0 discarded=0 vetoed=0",
	}, lines)

	assert.NoError(t, NewLoggingHook(HookFiring, nil).Execute(ctx, &HookContext{}))
}

func TestCycleReport_String(t *testing.T) {
	r := CycleReport{Cycle: 2, Fired: 1, Deferred: 4, Halted: true, HaltReason: "interrupt"}
	assert.Equal(t, "cycle 2: fired=1 retracted=0 nil-goal=0 asserted=0 discarded=0 vetoed=0 halted(interrupt) deferred=4", r.String())
}

func TestAgentHooks_FailingHookDoesNotAbortCycle(t *testing.T) {
	var fired, cycles int
	w := newWorld(t, func(o *Options) {
		o.Hooks = []Hook{
			NewFunctionHook(HookFiring, func(context.Context, *HookContext) error {
				fired++
				return errors.New("printer offline")
			}),
			NewFunctionHook(HookCycle, func(_ context.Context, hc *HookContext) error {
				cycles++
				assert.NotEmpty(t, hc.AgentID)
				return nil
			}),
		}
	})
	f := w.add(t, w.s1, "type", "state", core.PrefID{})

	id := w.fire(t, w.elaborate("elab", "color", "red").Build(), f)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, cycles)
	assert.Len(t, w.agent.Preferences(id), 1)
}

func TestAgentHooks_FiringContext(t *testing.T) {
	var got *HookContext
	w := newWorld(t, func(o *Options) {
		o.AgentID = "agent-7"
		o.Hooks = []Hook{NewFunctionHook(HookFiring, func(_ context.Context, hc *HookContext) error {
			got = hc
			return nil
		})}
	})
	f := w.add(t, w.s1, "type", "state", core.PrefID{})
	w.fire(t, w.elaborate("elab", "color", "red").Build(), f)

	require.NotNil(t, got)
	assert.Equal(t, "agent-7", got.AgentID)
	assert.Equal(t, HookFiring, got.HookType)
	assert.Equal(t, "elab", got.Rule)
	assert.Equal(t, []string{f.String()}, got.Conditions)
	assert.Equal(t, []string{"(S1 ^color red +)"}, got.Preferences)
}

func TestAgentHooks_ActionErrorDiagnostic(t *testing.T) {
	var diags []*HookContext
	w := newWorld(t, func(o *Options) {
		o.Hooks = []Hook{NewFunctionHook(HookDiagnostic, func(_ context.Context, hc *HookContext) error {
			diags = append(diags, hc)
			return nil
		})}
	})
	f := w.add(t, w.s1, "type", "state", core.PrefID{})
	b := w.elaborate("divide", "color", "red")
	b.Make(core.Acceptable, testutil.Match(0, core.FieldID), b.Const("ratio"), core.Call("/", b.Int(1), b.Int(0)))

	id := w.fire(t, b.Build(), f)

	assert.Len(t, w.agent.Preferences(id), 1, "the sibling action still produced its preference")
	require.Len(t, diags, 1)
	assert.Equal(t, "divide", diags[0].Rule)
	assert.Equal(t, rhs.CodeDivideByZero, diags[0].Metadata["code"])
	assert.Equal(t, "/", diags[0].Metadata["function"])
}

func TestAgentHooks_AttributePreferenceWarning(t *testing.T) {
	var diags []string
	w := newWorld(t, func(o *Options) {
		o.Config.AttributePreferences = rhs.AttributePreferencesWarn
		o.Hooks = []Hook{NewFunctionHook(HookDiagnostic, func(_ context.Context, hc *HookContext) error {
			diags = append(diags, hc.Message)
			return nil
		})}
	})
	f := w.add(t, w.s1, "type", "state", core.PrefID{})
	b := testutil.NewRuleBuilder(w.tbl, "prefer*red")
	b.MakeBinary(core.Better, testutil.Match(0, core.FieldID), b.Const("color"), b.Const("red"), b.Const("blue"))

	id := w.fire(t, b.Build(), f)

	assert.Len(t, w.agent.Preferences(id), 1)
	assert.Len(t, diags, 1)
}
