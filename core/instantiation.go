package core

import (
	"fmt"

	"github.com/SoarGroup/Soar-sub034/internal/arena"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

// InstID is a generation-checked handle to an Instantiation.
type InstID = arena.Handle[Instantiation]

const (
	// TopGoalLevel is the level of the top state.
	TopGoalLevel = 1
	// AttributeImpasseLevel is the match-goal level of an instantiation whose
	// conditions reference no goal. It is deeper than any real goal.
	AttributeImpasseLevel = 32767
)

// Condition is one LHS condition frozen against the match that fired it.
// Positive conditions own a reference to their fact, to their justifying
// trace and to every preference on their prohibit list.
type Condition struct {
	Kind ConditionKind
	Spec ConditionSpec

	Fact      *Fact
	Level     int
	Trace     PrefID
	Prohibits []PrefID
}

// Instantiation is one firing of one rule against one match.
type Instantiation struct {
	// Rule is nil once the rule has been excised.
	Rule       *Rule
	Conditions []*Condition

	// FirstPref and LastPref delimit the generated preference list, in RHS
	// order, linked through Preference.InstPrev/InstNext.
	FirstPref PrefID
	LastPref  PrefID

	MatchGoal      *symbol.Symbol
	MatchGoalLevel int

	InMatchSet        bool
	OkToVariablize    bool
	BacktraceNumber   uint64
	GDSEvaluated      bool
	SupportCalculated bool
	// Retired is set when a fully o-supported instantiation left the match
	// set early; a later lost-match report for it is expected and ignored.
	Retired bool

	refs int
}

// RuleName returns the owning rule's name, or a marker once excised.
func (i *Instantiation) RuleName() string {
	if i.Rule == nil {
		return "<excised>"
	}
	return i.Rule.Name
}

// Refs returns the current reference count.
func (i *Instantiation) Refs() int { return i.refs }

// AddRef takes a reference.
func (i *Instantiation) AddRef() { i.refs++ }

// ReleaseRef drops a reference and reports whether it was the last one.
func (i *Instantiation) ReleaseRef() bool {
	if i.refs <= 0 {
		panic(fmt.Sprintf("core: release of instantiation of %s with refcount %d", i.RuleName(), i.refs))
	}
	i.refs--
	return i.refs == 0
}

// PositiveFacts returns the facts bound to the positive conditions.
func (i *Instantiation) PositiveFacts() []*Fact {
	out := make([]*Fact, 0, len(i.Conditions))
	for _, c := range i.Conditions {
		if c.Kind == ConditionPositive && c.Fact != nil {
			out = append(out, c.Fact)
		}
	}
	return out
}
