package symbol

import (
	"math"
	"strconv"
	"unicode"
)

// Table interns constants and numbers and generates identifiers. Every
// lookup or creation hands the caller one new reference. An interned
// symbol leaves the table when its last reference is released.
type Table struct {
	constants map[string]*Symbol
	variables map[string]*Symbol
	ints      map[int64]*Symbol
	floats    map[uint64]*Symbol // keyed by bit pattern so NaN interns
	counters  [26]uint64
	gensym    uint64
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		constants: make(map[string]*Symbol),
		variables: make(map[string]*Symbol),
		ints:      make(map[int64]*Symbol),
		floats:    make(map[uint64]*Symbol),
	}
}

// Constant interns a symbolic constant.
func (t *Table) Constant(name string) *Symbol {
	s, ok := t.constants[name]
	if !ok {
		s = &Symbol{kind: KindConstant, name: name, table: t}
		t.constants[name] = s
	}
	return s.AddRef()
}

// Variable interns a variable by name (without angle brackets).
func (t *Table) Variable(name string) *Symbol {
	s, ok := t.variables[name]
	if !ok {
		s = &Symbol{kind: KindVariable, name: name, table: t}
		t.variables[name] = s
	}
	return s.AddRef()
}

// Integer interns an integer.
func (t *Table) Integer(v int64) *Symbol {
	s, ok := t.ints[v]
	if !ok {
		s = &Symbol{kind: KindInteger, ival: v, table: t}
		t.ints[v] = s
	}
	return s.AddRef()
}

// Float interns a float. Negative zero interns as zero.
func (t *Table) Float(v float64) *Symbol {
	if v == 0 {
		v = 0
	}
	key := math.Float64bits(v)
	s, ok := t.floats[key]
	if !ok {
		s = &Symbol{kind: KindFloat, fval: v, table: t}
		t.floats[key] = s
	}
	return s.AddRef()
}

// Len returns the number of interned constants, variables and numbers.
func (t *Table) Len() int {
	return len(t.constants) + len(t.variables) + len(t.ints) + len(t.floats)
}

func (t *Table) evict(s *Symbol) {
	switch s.kind {
	case KindConstant:
		if t.constants[s.name] == s {
			delete(t.constants, s.name)
		}
	case KindVariable:
		if t.variables[s.name] == s {
			delete(t.variables, s.name)
		}
	case KindInteger:
		if t.ints[s.ival] == s {
			delete(t.ints, s.ival)
		}
	case KindFloat:
		key := math.Float64bits(s.fval)
		if t.floats[key] == s {
			delete(t.floats, key)
		}
	}
}

// GenConstant interns a fresh constant named prefix followed by a counter,
// skipping names already in the table.
func (t *Table) GenConstant(prefix string) *Symbol {
	for {
		t.gensym++
		name := prefix + strconv.FormatUint(t.gensym, 10)
		if _, taken := t.constants[name]; !taken {
			return t.Constant(name)
		}
	}
}

// NewIdentifier creates a fresh identifier named by letter at the given goal
// level. Identifiers are never interned: two calls always return distinct
// symbols.
func (t *Table) NewIdentifier(letter byte, level int) *Symbol {
	letter = normalizeLetter(letter)
	t.counters[letter-'A']++
	return (&Symbol{
		kind:   KindIdentifier,
		letter: letter,
		number: t.counters[letter-'A'],
		level:  level,
	}).AddRef()
}

// NewGoal creates a goal identifier (S-named) at the given level.
func (t *Table) NewGoal(level int) *Symbol {
	s := t.NewIdentifier('S', level)
	s.goal = true
	return s
}

// ResetIdentifierCounters restarts identifier numbering. Only meaningful
// between runs when no identifiers are live.
func (t *Table) ResetIdentifierCounters() {
	t.counters = [26]uint64{}
}

func normalizeLetter(b byte) byte {
	r := unicode.ToUpper(rune(b))
	if r < 'A' || r > 'Z' {
		return 'I'
	}
	return byte(r)
}
