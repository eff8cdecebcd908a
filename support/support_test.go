package support

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

type scene struct {
	tbl    *symbol.Table
	goal   *symbol.Symbol
	choice *symbol.Symbol
	op     *symbol.Symbol
}

func newScene() *scene {
	tbl := symbol.NewTable()
	return &scene{tbl: tbl, goal: tbl.NewGoal(1), choice: tbl.Constant("operator"), op: tbl.NewIdentifier('O', 1)}
}

// inst builds an instantiation matching goal; selected adds a condition on
// the goal's selected operator.
func (s *scene) inst(selected bool, declared core.DeclaredSupport) *core.Instantiation {
	r := core.NewRule("r", core.RuleUser, nil, nil)
	r.Support = declared
	conds := []*core.Condition{{
		Kind: core.ConditionPositive,
		Fact: core.NewFact(s.goal, s.tbl.Constant("name"), s.tbl.Constant("blocks"), false, 1, core.PrefID{}, nil),
	}}
	if selected {
		conds = append(conds, &core.Condition{
			Kind: core.ConditionPositive,
			Fact: core.NewFact(s.goal, s.choice, s.op, false, 2, core.PrefID{}, nil),
		})
	}
	return &core.Instantiation{Rule: r, Conditions: conds, MatchGoal: s.goal, MatchGoalLevel: 1}
}

func (s *scene) pref(id *symbol.Symbol, attr string) *core.Preference {
	return &core.Preference{Type: core.Acceptable, ID: id, Attr: s.tbl.Constant(attr), Value: s.tbl.Constant("x")}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{StructuralA, StructuralB, Declared, CrossCheck} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	got, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, StructuralA, got)
	_, err = ParsePolicy("vibes")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestStructuralA(t *testing.T) {
	s := newScene()
	c := NewCalculator(StructuralA, s.choice, nil)

	proposal := &core.Preference{Type: core.Acceptable, ID: s.goal, Attr: s.choice, Value: s.op}
	elab := s.pref(s.goal, "color")
	c.Calculate(Input{Inst: s.inst(false, core.DeclaredNone), Phase: core.PhaseElaboration, Preferences: []*core.Preference{proposal, elab}})
	assert.Equal(t, core.OSupport, proposal.Support, "choice slot of the match goal")
	assert.Equal(t, core.ISupport, elab.Support)

	apply := s.pref(s.goal, "color")
	c.Calculate(Input{Inst: s.inst(false, core.DeclaredNone), Phase: core.PhaseApplication, Preferences: []*core.Preference{apply}})
	assert.Equal(t, core.OSupport, apply.Support)
}

func TestStructuralB(t *testing.T) {
	s := newScene()
	c := NewCalculator(StructuralB, s.choice, nil)

	onState := s.pref(s.goal, "color")
	onOperator := s.pref(s.op, "name")
	c.Calculate(Input{Inst: s.inst(true, core.DeclaredNone), Phase: core.PhaseElaboration, Preferences: []*core.Preference{onState, onOperator}})
	assert.Equal(t, core.OSupport, onState.Support)
	assert.Equal(t, core.ISupport, onOperator.Support, "operator elaboration")

	untested := s.pref(s.goal, "color")
	c.Calculate(Input{Inst: s.inst(false, core.DeclaredNone), Phase: core.PhaseApplication, Preferences: []*core.Preference{untested}})
	assert.Equal(t, core.ISupport, untested.Support)

	noGoal := s.pref(s.goal, "color")
	inst := s.inst(true, core.DeclaredNone)
	inst.MatchGoal = nil
	c.Calculate(Input{Inst: inst, Preferences: []*core.Preference{noGoal}})
	assert.Equal(t, core.ISupport, noGoal.Support)
}

func TestCrossCheck_ReportsDivergenceAndKeepsA(t *testing.T) {
	s := newScene()
	c := NewCalculator(CrossCheck, s.choice, nil)

	p := s.pref(s.goal, "color")
	div := c.Calculate(Input{Inst: s.inst(false, core.DeclaredNone), Phase: core.PhaseApplication, Preferences: []*core.Preference{p}})
	require.Len(t, div, 1)
	assert.Equal(t, core.OSupport, div[0].A)
	assert.Equal(t, core.ISupport, div[0].B)
	assert.Equal(t, core.OSupport, p.Support)

	agree := s.pref(s.goal, "color")
	div = c.Calculate(Input{Inst: s.inst(true, core.DeclaredNone), Phase: core.PhaseApplication, Preferences: []*core.Preference{agree}})
	assert.Empty(t, div)
}

func TestDeclaredSupport(t *testing.T) {
	s := newScene()

	for _, policy := range []Policy{StructuralA, StructuralB, Declared, CrossCheck} {
		c := NewCalculator(policy, s.choice, nil)
		p := s.pref(s.goal, "color")
		c.Calculate(Input{Inst: s.inst(false, core.DeclaredOSupport), Phase: core.PhaseElaboration, Preferences: []*core.Preference{p}})
		assert.Equal(t, core.OSupport, p.Support, policy.String())

		q := s.pref(s.goal, "color")
		c.Calculate(Input{Inst: s.inst(true, core.DeclaredISupport), Phase: core.PhaseApplication, Preferences: []*core.Preference{q}})
		assert.Equal(t, core.ISupport, q.Support, policy.String())
	}

	c := NewCalculator(Declared, s.choice, nil)
	p := s.pref(s.goal, "color")
	c.Calculate(Input{Inst: s.inst(true, core.DeclaredNone), Phase: core.PhaseApplication, Preferences: []*core.Preference{p}})
	assert.Equal(t, core.ISupport, p.Support, "undeclared rules fall back to i-support")
}

func TestCalculate_RunsOnce(t *testing.T) {
	s := newScene()
	c := NewCalculator(StructuralA, s.choice, nil)
	inst := s.inst(false, core.DeclaredNone)
	c.Calculate(Input{Inst: inst})
	assert.True(t, inst.SupportCalculated)
	assert.Panics(t, func() { c.Calculate(Input{Inst: inst}) })
}
