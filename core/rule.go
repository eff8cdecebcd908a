package core

import (
	"fmt"

	"github.com/SoarGroup/Soar-sub034/symbol"
)

// RuleType classifies a production.
type RuleType uint8

const (
	// RuleUser is a user-written production.
	RuleUser RuleType = iota
	// RuleDefault is a default-knowledge production.
	RuleDefault
	// RuleChunk is a production learned by chunking.
	RuleChunk
	// RuleJustification is a single-use production built to justify a result.
	RuleJustification
)

// String returns the rule type name.
func (t RuleType) String() string {
	switch t {
	case RuleUser:
		return "user"
	case RuleDefault:
		return "default"
	case RuleChunk:
		return "chunk"
	case RuleJustification:
		return "justification"
	default:
		return "unknown"
	}
}

// DeclaredSupport is an explicit support annotation on a rule.
type DeclaredSupport uint8

const (
	// DeclaredNone leaves support to the structural calculation.
	DeclaredNone DeclaredSupport = iota
	// DeclaredOSupport forces operator support.
	DeclaredOSupport
	// DeclaredISupport forces instantiation support.
	DeclaredISupport
)

// ConditionKind distinguishes LHS condition forms.
type ConditionKind uint8

const (
	// ConditionPositive must match a fact.
	ConditionPositive ConditionKind = iota
	// ConditionNegative must match no fact.
	ConditionNegative
	// ConditionNCC is a conjunctive negation.
	ConditionNCC
)

// String returns the condition kind name.
func (k ConditionKind) String() string {
	switch k {
	case ConditionPositive:
		return "positive"
	case ConditionNegative:
		return "negative"
	case ConditionNCC:
		return "conjunctive-negation"
	default:
		return "unknown"
	}
}

// ConditionSpec describes one LHS condition. Tests are compiled into the
// matcher; the core only needs the kind and a printable form.
type ConditionSpec struct {
	Kind ConditionKind
	Text string
}

// ValueKind classifies an RHS value.
type ValueKind uint8

const (
	// ValueSymbol is a literal symbol.
	ValueSymbol ValueKind = iota
	// ValueLocation is read from the match.
	ValueLocation
	// ValueUnbound is a variable not bound on the LHS.
	ValueUnbound
	// ValueFunctionCall is computed by an RHS function.
	ValueFunctionCall
)

// RHSValue is one value slot of an RHS action.
type RHSValue struct {
	Kind     ValueKind
	Symbol   *symbol.Symbol
	Location Location
	Index    int
	Function string
	Args     []RHSValue
}

// Literal wraps a symbol. The rule owns the reference.
func Literal(s *symbol.Symbol) RHSValue { return RHSValue{Kind: ValueSymbol, Symbol: s} }

// ReteLoc addresses a symbol in the match.
func ReteLoc(levelsUp int, field Field) RHSValue {
	return RHSValue{Kind: ValueLocation, Location: Location{LevelsUp: levelsUp, Field: field}}
}

// Unbound refers to the unbound variable with the given index.
func Unbound(index int) RHSValue { return RHSValue{Kind: ValueUnbound, Index: index} }

// Call invokes an RHS function on args.
func Call(name string, args ...RHSValue) RHSValue {
	return RHSValue{Kind: ValueFunctionCall, Function: name, Args: args}
}

// ActionKind distinguishes preference-making actions from bare calls.
type ActionKind uint8

const (
	// ActionMake produces a preference.
	ActionMake ActionKind = iota
	// ActionFunctionCall evaluates Value for its side effects only.
	ActionFunctionCall
)

// Action is one RHS action.
type Action struct {
	Kind     ActionKind
	Type     PreferenceType
	ID       RHSValue
	Attr     RHSValue
	Value    RHSValue
	Referent RHSValue
}

// Rule is a production as far as the recognition core is concerned. The
// rule base holds the first reference; each instantiation holds one more.
type Rule struct {
	Name       string
	Type       RuleType
	Support    DeclaredSupport
	NeverFire  bool // bookkeeping-only: never handed to the chunker
	Conditions []ConditionSpec
	Actions    []Action

	refs int
}

// NewRule builds a rule holding one reference. The rule takes ownership of
// the literal symbols referenced by its actions.
func NewRule(name string, typ RuleType, conds []ConditionSpec, actions []Action) *Rule {
	return &Rule{Name: name, Type: typ, Conditions: conds, Actions: actions, refs: 1}
}

// Refs returns the current reference count.
func (r *Rule) Refs() int { return r.refs }

// AddRef takes a reference.
func (r *Rule) AddRef() { r.refs++ }

// Release drops a reference. The last release returns the literal symbols
// owned by the actions.
func (r *Rule) Release() {
	if r.refs <= 0 {
		panic(fmt.Sprintf("core: release of rule %s with refcount %d", r.Name, r.refs))
	}
	r.refs--
	if r.refs == 0 {
		for _, a := range r.Actions {
			for _, v := range []RHSValue{a.ID, a.Attr, a.Value, a.Referent} {
				releaseLiterals(v)
			}
		}
	}
}

// PositiveConditions counts the positive conditions of the LHS.
func (r *Rule) PositiveConditions() int {
	n := 0
	for _, c := range r.Conditions {
		if c.Kind == ConditionPositive {
			n++
		}
	}
	return n
}

func releaseLiterals(v RHSValue) {
	switch v.Kind {
	case ValueSymbol:
		if v.Symbol != nil {
			v.Symbol.Release()
		}
	case ValueFunctionCall:
		for _, a := range v.Args {
			releaseLiterals(a)
		}
	}
}
