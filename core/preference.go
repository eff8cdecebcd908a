package core

import (
	"fmt"
	"strings"

	"github.com/SoarGroup/Soar-sub034/internal/arena"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

// PrefID is a generation-checked handle to a Preference.
type PrefID = arena.Handle[Preference]

// PreferenceType is the kind of assertion a preference makes.
type PreferenceType uint8

const (
	// Acceptable proposes the value (+).
	Acceptable PreferenceType = iota
	// Require insists on the value (!).
	Require
	// Reject vetoes the value (-).
	Reject
	// Prohibit forbids the value (~).
	Prohibit
	// Reconsider asks the decision procedure to drop a selection (@).
	Reconsider
	// UnaryIndifferent marks the value as interchangeable (=).
	UnaryIndifferent
	// Better prefers the value over the referent (>).
	Better
	// Worse prefers the referent over the value (<).
	Worse
	// BinaryIndifferent ties the value with the referent (= referent).
	BinaryIndifferent
	// NumericIndifferent attaches a numeric reward referent (= n).
	NumericIndifferent

	numPreferenceTypes
)

// NumPreferenceTypes is the number of distinct preference types.
const NumPreferenceTypes = int(numPreferenceTypes)

var preferenceNames = [...]string{
	Acceptable:         "acceptable",
	Require:            "require",
	Reject:             "reject",
	Prohibit:           "prohibit",
	Reconsider:         "reconsider",
	UnaryIndifferent:   "unary-indifferent",
	Better:             "better",
	Worse:              "worse",
	BinaryIndifferent:  "binary-indifferent",
	NumericIndifferent: "numeric-indifferent",
}

var preferenceMarks = [...]string{
	Acceptable:         "+",
	Require:            "!",
	Reject:             "-",
	Prohibit:           "~",
	Reconsider:         "@",
	UnaryIndifferent:   "=",
	Better:             ">",
	Worse:              "<",
	BinaryIndifferent:  "=",
	NumericIndifferent: "=",
}

// String returns the preference type name.
func (t PreferenceType) String() string {
	if int(t) < len(preferenceNames) {
		return preferenceNames[t]
	}
	return "unknown"
}

// Mark returns the single-character notation used when printing.
func (t PreferenceType) Mark() string {
	if int(t) < len(preferenceMarks) {
		return preferenceMarks[t]
	}
	return "?"
}

// IsBinary reports whether the type carries a referent.
func (t PreferenceType) IsBinary() bool {
	switch t {
	case Better, Worse, BinaryIndifferent, NumericIndifferent:
		return true
	default:
		return false
	}
}

// ParsePreferenceType maps a type name back to its value.
func ParsePreferenceType(name string) (PreferenceType, error) {
	for i, n := range preferenceNames {
		if n == name {
			return PreferenceType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown preference type %q", name)
}

// Support is the support classification of a preference.
type Support uint8

const (
	// SupportUnknown is the state before the support calculator has run.
	SupportUnknown Support = iota
	// OSupport persists independent of the justifying conditions.
	OSupport
	// ISupport dies with the owning instantiation.
	ISupport
)

// String returns the support name.
func (s Support) String() string {
	switch s {
	case OSupport:
		return "o-support"
	case ISupport:
		return "i-support"
	default:
		return "unknown"
	}
}

// Preference is one candidate or committed assertion produced by an RHS
// action. Link fields are arena handles; only the engine mutates them.
type Preference struct {
	Type     PreferenceType
	ID       *symbol.Symbol
	Attr     *symbol.Symbol
	Value    *symbol.Symbol
	Referent *symbol.Symbol

	Support Support
	InTM    bool
	// Goal is the goal whose preference list holds this preference while
	// it is in total memory; nil when it is on no goal list.
	Goal *symbol.Symbol

	// Inst is the owning instantiation (a back-reference; the instantiation
	// counts this preference among its holders, not the other way round).
	Inst arena.Handle[Instantiation]
	// Level is the owning instantiation's match-goal level.
	Level int

	InstPrev, InstNext   arena.Handle[Preference]
	NextClone, PrevClone arena.Handle[Preference]
	GoalPrev, GoalNext   arena.Handle[Preference]
	SlotPrev, SlotNext   arena.Handle[Preference]

	refs int
}

// NewPreference builds an unsupported, uncommitted preference. It takes
// ownership of the passed symbol references.
func NewPreference(t PreferenceType, id, attr, value, referent *symbol.Symbol) *Preference {
	return &Preference{Type: t, ID: id, Attr: attr, Value: value, Referent: referent}
}

// OSupported reports whether the preference is operator-supported.
func (p *Preference) OSupported() bool { return p.Support == OSupport }

// Refs returns the current reference count.
func (p *Preference) Refs() int { return p.refs }

// AddRef takes a reference.
func (p *Preference) AddRef() { p.refs++ }

// ReleaseRef drops a reference and reports whether it was the last one.
func (p *Preference) ReleaseRef() bool {
	if p.refs <= 0 {
		panic(fmt.Sprintf("core: release of preference %s with refcount %d", p, p.refs))
	}
	p.refs--
	return p.refs == 0
}

// ReleaseSymbols drops the references held on the preference's symbols.
func (p *Preference) ReleaseSymbols() {
	for _, s := range []*symbol.Symbol{p.ID, p.Attr, p.Value, p.Referent} {
		if s != nil {
			s.Release()
		}
	}
}

// String renders the preference as (id ^attr value mark [referent]).
func (p *Preference) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%s ^%s %s %s", p.ID, p.Attr, p.Value, p.Type.Mark())
	if p.Type.IsBinary() && p.Referent != nil {
		fmt.Fprintf(&b, " %s", p.Referent)
	}
	b.WriteByte(')')
	return b.String()
}
