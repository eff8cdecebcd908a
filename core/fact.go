package core

import (
	"fmt"

	"github.com/SoarGroup/Soar-sub034/symbol"
)

// Fact is a working-memory element (id ^attr value). The recognition core
// never mutates a fact's content; it only takes and drops references and
// reads its level and justifying preference.
type Fact struct {
	ID         *symbol.Symbol
	Attr       *symbol.Symbol
	Value      *symbol.Symbol
	Acceptable bool
	Timetag    uint64

	// Preference is the preference that justified adding this fact, if any.
	// Architecture- and input-created facts have none.
	Preference PrefID

	refs   int
	onFree func(*Fact)
}

// NewFact builds a fact holding one reference (the creator's). onFree runs
// when the last reference is released.
func NewFact(id, attr, value *symbol.Symbol, acceptable bool, timetag uint64, pref PrefID, onFree func(*Fact)) *Fact {
	return &Fact{
		ID:         id,
		Attr:       attr,
		Value:      value,
		Acceptable: acceptable,
		Timetag:    timetag,
		Preference: pref,
		refs:       1,
		onFree:     onFree,
	}
}

// Level is the goal level of the fact's identifier.
func (f *Fact) Level() int { return f.ID.Level() }

// Refs returns the current reference count.
func (f *Fact) Refs() int { return f.refs }

// AddRef takes a reference.
func (f *Fact) AddRef() { f.refs++ }

// Release drops a reference, running the free hook at zero.
func (f *Fact) Release() {
	if f.refs <= 0 {
		panic(fmt.Sprintf("core: release of fact %s with refcount %d", f, f.refs))
	}
	f.refs--
	if f.refs == 0 && f.onFree != nil {
		f.onFree(f)
	}
}

// String renders the fact as (timetag: id ^attr value [+]).
func (f *Fact) String() string {
	acc := ""
	if f.Acceptable {
		acc = " +"
	}
	return fmt.Sprintf("(%d: %s ^%s %s%s)", f.Timetag, f.ID, f.Attr, f.Value, acc)
}

// Field selects one position of a fact triple.
type Field uint8

const (
	// FieldID selects the identifier.
	FieldID Field = iota
	// FieldAttr selects the attribute.
	FieldAttr
	// FieldValue selects the value.
	FieldValue
)

func (fl Field) String() string {
	switch fl {
	case FieldID:
		return "id"
	case FieldAttr:
		return "attr"
	default:
		return "value"
	}
}

// Get returns the selected symbol of f.
func (fl Field) Get(f *Fact) *symbol.Symbol {
	switch fl {
	case FieldID:
		return f.ID
	case FieldAttr:
		return f.Attr
	default:
		return f.Value
	}
}

// Token is a Rete partial match: one link per LHS condition, most recent
// first. Links for negative and conjunctive-negation conditions carry a nil
// Fact. The fact matching the last condition is not part of the token; the
// matcher hands it over separately.
type Token struct {
	Parent *Token
	Fact   *Fact
}

// Extend returns a new token with f appended below t.
func (t *Token) Extend(f *Fact) *Token {
	return &Token{Parent: t, Fact: f}
}

// Facts lays out the facts matched by n conditions in condition order, given
// the triggering fact w for the last condition.
func (t *Token) Facts(w *Fact, n int) []*Fact {
	out := make([]*Fact, n)
	if n == 0 {
		return out
	}
	out[n-1] = w
	tok := t
	for i := n - 2; i >= 0 && tok != nil; i-- {
		out[i] = tok.Fact
		tok = tok.Parent
	}
	return out
}

// Location addresses a symbol in a match relative to the triggering fact:
// LevelsUp 0 is the triggering fact, 1 its token link, and so on.
type Location struct {
	LevelsUp int
	Field    Field
}

// Resolve reads the addressed symbol out of the token/fact pair.
func (l Location) Resolve(tok *Token, w *Fact) (*symbol.Symbol, bool) {
	f := w
	for up := l.LevelsUp; up > 0; up-- {
		if tok == nil {
			return nil, false
		}
		f = tok.Fact
		tok = tok.Parent
	}
	if f == nil {
		return nil, false
	}
	return l.Field.Get(f), true
}
