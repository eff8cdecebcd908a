package testutil

import (
	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

// RuleBuilder provides a fluent helper for constructing rules in tests.
// Example:
//
//	b := testutil.NewRuleBuilder(tbl, "propose*wait").Positive("(<s> ^type state)")
//	r := b.Make(core.Acceptable, testutil.Match(0, core.FieldID), b.Const("operator"), core.Unbound(0)).Build()
//
// Chain only the parts you need; the rule type defaults to user.
type RuleBuilder struct {
	symbols   *symbol.Table
	name      string
	typ       core.RuleType
	support   core.DeclaredSupport
	neverFire bool
	conds     []core.ConditionSpec
	actions   []core.Action
}

// NewRuleBuilder creates a builder for a user rule named name.
func NewRuleBuilder(symbols *symbol.Table, name string) *RuleBuilder {
	return &RuleBuilder{symbols: symbols, name: name}
}

// Type sets the rule type (chainable).
func (b *RuleBuilder) Type(t core.RuleType) *RuleBuilder { b.typ = t; return b }

// OSupport declares :o-support (chainable).
func (b *RuleBuilder) OSupport() *RuleBuilder { b.support = core.DeclaredOSupport; return b }

// ISupport declares :i-support (chainable).
func (b *RuleBuilder) ISupport() *RuleBuilder { b.support = core.DeclaredISupport; return b }

// NeverFire marks the rule as bookkeeping-only (chainable).
func (b *RuleBuilder) NeverFire() *RuleBuilder { b.neverFire = true; return b }

// Positive appends a positive condition (chainable).
func (b *RuleBuilder) Positive(text string) *RuleBuilder {
	b.conds = append(b.conds, core.ConditionSpec{Kind: core.ConditionPositive, Text: text})
	return b
}

// Negative appends a negative condition (chainable).
func (b *RuleBuilder) Negative(text string) *RuleBuilder {
	b.conds = append(b.conds, core.ConditionSpec{Kind: core.ConditionNegative, Text: text})
	return b
}

// Make appends a unary preference action (chainable).
func (b *RuleBuilder) Make(t core.PreferenceType, id, attr, value core.RHSValue) *RuleBuilder {
	b.actions = append(b.actions, core.Action{Kind: core.ActionMake, Type: t, ID: id, Attr: attr, Value: value})
	return b
}

// MakeBinary appends a preference action with a referent (chainable).
func (b *RuleBuilder) MakeBinary(t core.PreferenceType, id, attr, value, referent core.RHSValue) *RuleBuilder {
	b.actions = append(b.actions, core.Action{Kind: core.ActionMake, Type: t, ID: id, Attr: attr, Value: value, Referent: referent})
	return b
}

// Call appends a bare function-call action (chainable).
func (b *RuleBuilder) Call(name string, args ...core.RHSValue) *RuleBuilder {
	b.actions = append(b.actions, core.Action{Kind: core.ActionFunctionCall, Value: core.Call(name, args...)})
	return b
}

// Const returns a literal constant owned by the rule being built.
func (b *RuleBuilder) Const(name string) core.RHSValue {
	return core.Literal(b.symbols.Constant(name))
}

// Int returns a literal integer owned by the rule being built.
func (b *RuleBuilder) Int(v int64) core.RHSValue {
	return core.Literal(b.symbols.Integer(v))
}

// Build returns the rule holding the rule base's reference.
func (b *RuleBuilder) Build() *core.Rule {
	r := core.NewRule(b.name, b.typ, b.conds, b.actions)
	r.Support = b.support
	r.NeverFire = b.neverFire
	return r
}

// Match addresses a symbol of the n-th most recent matched fact; 0 is the
// triggering fact.
func Match(levelsUp int, field core.Field) core.RHSValue {
	return core.ReteLoc(levelsUp, field)
}
