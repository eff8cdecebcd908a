// Package symbol provides the atomic values the recognition core works with:
// identifiers, symbolic constants, integers, floats and variables. Every
// symbol carries a reference count; holders call AddRef when they store a
// symbol and Release when they drop it.
package symbol

import (
	"fmt"
	"strconv"
	"unicode"
)

// Kind classifies a symbol.
type Kind uint8

const (
	// KindIdentifier is a gensym'd object identifier such as S1 or O4.
	KindIdentifier Kind = iota
	// KindConstant is an interned symbolic constant.
	KindConstant
	// KindInteger is an interned 64-bit integer.
	KindInteger
	// KindFloat is an interned 64-bit float.
	KindFloat
	// KindVariable is a variable name such as <o>.
	KindVariable
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindConstant:
		return "constant"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Symbol is an interned value. Symbols are compared by pointer identity.
type Symbol struct {
	kind   Kind
	name   string
	letter byte
	number uint64
	ival   int64
	fval   float64
	level  int
	goal   bool
	refs   int
	table  *Table // interning table; nil for identifiers
}

// Kind returns the symbol kind.
func (s *Symbol) Kind() Kind { return s.kind }

// IsIdentifier reports whether s is an identifier.
func (s *Symbol) IsIdentifier() bool { return s.kind == KindIdentifier }

// IsGoal reports whether s identifies a goal (state) on the goal stack.
func (s *Symbol) IsGoal() bool { return s.goal }

// Level is the goal level of an identifier. Non-identifiers return 0.
func (s *Symbol) Level() int { return s.level }

// Letter returns the naming letter of an identifier.
func (s *Symbol) Letter() byte { return s.letter }

// Name returns the text of a constant or variable.
func (s *Symbol) Name() string { return s.name }

// Int returns the value of an integer symbol.
func (s *Symbol) Int() (int64, bool) { return s.ival, s.kind == KindInteger }

// Float returns the value of a float symbol.
func (s *Symbol) Float() (float64, bool) { return s.fval, s.kind == KindFloat }

// Number returns the numeric value of an integer or float symbol.
func (s *Symbol) Number() (float64, bool) {
	switch s.kind {
	case KindInteger:
		return float64(s.ival), true
	case KindFloat:
		return s.fval, true
	default:
		return 0, false
	}
}

// FirstLetter is the naming hint used when a new identifier is created for
// the value of an attribute: the upper-cased first letter of a constant,
// or 'I' when there is no usable letter.
func (s *Symbol) FirstLetter() byte {
	switch s.kind {
	case KindIdentifier:
		return s.letter
	case KindConstant, KindVariable:
		for _, r := range s.name {
			if r < unicode.MaxASCII && unicode.IsLetter(r) {
				return byte(unicode.ToUpper(r))
			}
		}
	}
	return 'I'
}

// Refs returns the current reference count.
func (s *Symbol) Refs() int { return s.refs }

// AddRef increments the reference count and returns s for chaining.
func (s *Symbol) AddRef() *Symbol {
	s.refs++
	return s
}

// Release decrements the reference count. The last release removes an
// interned symbol from its table. Dropping below zero means a holder
// released a reference it never took, which panics.
func (s *Symbol) Release() {
	if s.refs <= 0 {
		panic(fmt.Sprintf("symbol: release of %s with refcount %d", s, s.refs))
	}
	s.refs--
	if s.refs == 0 && s.table != nil {
		s.table.evict(s)
	}
}

// String renders the symbol the way it prints in working memory.
func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	switch s.kind {
	case KindIdentifier:
		return string(s.letter) + strconv.FormatUint(s.number, 10)
	case KindInteger:
		return strconv.FormatInt(s.ival, 10)
	case KindFloat:
		return strconv.FormatFloat(s.fval, 'g', -1, 64)
	case KindVariable:
		return "<" + s.name + ">"
	default:
		return s.name
	}
}
