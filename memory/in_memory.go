package memory

import (
	"errors"
	"fmt"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

// ErrFactNotFound is returned when removing a fact that is not in working memory.
var ErrFactNotFound = errors.New("fact not found")

// ErrDuplicateFact is returned when adding a triple already in working memory.
var ErrDuplicateFact = errors.New("fact already in working memory")

type factKey struct {
	id, attr, value *symbol.Symbol
	acceptable      bool
}

// InMemoryStore is a process-local working memory. It offers:
//  1. Goal creation (S-named identifiers flagged as goals)
//  2. Fact add / remove / lookup keyed by id, attr, value and acceptable flag
//
// Not safe for concurrent use; the recognition cycle is single-threaded.
type InMemoryStore struct {
	symbols *symbol.Table
	holder  core.PreferenceHolder
	facts   map[factKey]*core.Fact
	byID    map[*symbol.Symbol][]*core.Fact
	timetag uint64
	goals   []*symbol.Symbol
}

// NewInMemoryStore creates an empty working memory. holder may be nil when no
// fact will ever carry a justifying preference.
func NewInMemoryStore(symbols *symbol.Table, holder core.PreferenceHolder) *InMemoryStore {
	return &InMemoryStore{
		symbols: symbols,
		holder:  holder,
		facts:   make(map[factKey]*core.Fact),
		byID:    make(map[*symbol.Symbol][]*core.Fact),
	}
}

// SetPreferenceHolder installs the owner of preference references.
func (m *InMemoryStore) SetPreferenceHolder(h core.PreferenceHolder) { m.holder = h }

// PushGoal creates a goal one level below the current bottom of the stack.
// The returned symbol carries a reference for the caller.
func (m *InMemoryStore) PushGoal() *symbol.Symbol {
	g := m.symbols.NewGoal(core.TopGoalLevel + len(m.goals))
	m.goals = append(m.goals, g.AddRef())
	return g
}

// PopGoal removes the bottom goal from the stack and returns it, or nil when
// the stack is empty. The stack's reference is handed to the caller.
func (m *InMemoryStore) PopGoal() *symbol.Symbol {
	if len(m.goals) == 0 {
		return nil
	}
	g := m.goals[len(m.goals)-1]
	m.goals = m.goals[:len(m.goals)-1]
	return g
}

// Goals returns the goal stack, top first.
func (m *InMemoryStore) Goals() []*symbol.Symbol {
	out := make([]*symbol.Symbol, len(m.goals))
	copy(out, m.goals)
	return out
}

// Add puts (id ^attr value) into working memory. The store takes its own
// references on the symbols and on the justifying preference; the returned
// fact is owned by the store.
func (m *InMemoryStore) Add(id, attr, value *symbol.Symbol, acceptable bool, justification core.PrefID) (*core.Fact, error) {
	if !id.IsIdentifier() {
		return nil, fmt.Errorf("fact identifier %s is a %s", id, id.Kind())
	}
	key := factKey{id: id, attr: attr, value: value, acceptable: acceptable}
	if _, exists := m.facts[key]; exists {
		return nil, fmt.Errorf("%w: (%s ^%s %s)", ErrDuplicateFact, id, attr, value)
	}
	id.AddRef()
	attr.AddRef()
	value.AddRef()
	if justification.Valid() && m.holder != nil {
		m.holder.AddPreferenceRef(justification)
	}
	m.timetag++
	f := core.NewFact(id, attr, value, acceptable, m.timetag, justification, m.free)
	m.facts[key] = f
	m.byID[id] = append(m.byID[id], f)
	return f, nil
}

// Remove takes f out of working memory and drops the store's reference.
// Conditions that still reference f keep it alive.
func (m *InMemoryStore) Remove(f *core.Fact) error {
	key := factKey{id: f.ID, attr: f.Attr, value: f.Value, acceptable: f.Acceptable}
	if cur, exists := m.facts[key]; !exists || cur != f {
		return fmt.Errorf("%w: %s", ErrFactNotFound, f)
	}
	delete(m.facts, key)
	list := m.byID[f.ID]
	for i, g := range list {
		if g == f {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m.byID, f.ID)
	} else {
		m.byID[f.ID] = list
	}
	f.Release()
	return nil
}

// Find looks up a non-acceptable fact by triple.
func (m *InMemoryStore) Find(id, attr, value *symbol.Symbol) (*core.Fact, bool) {
	f, ok := m.facts[factKey{id: id, attr: attr, value: value}]
	return f, ok
}

// FactsOf returns the facts whose identifier is id, in insertion order.
func (m *InMemoryStore) FactsOf(id *symbol.Symbol) []*core.Fact {
	out := make([]*core.Fact, len(m.byID[id]))
	copy(out, m.byID[id])
	return out
}

// Len returns the number of facts in working memory.
func (m *InMemoryStore) Len() int { return len(m.facts) }

func (m *InMemoryStore) free(f *core.Fact) {
	f.ID.Release()
	f.Attr.Release()
	f.Value.Release()
	if f.Preference.Valid() && m.holder != nil {
		m.holder.ReleasePreference(f.Preference)
	}
}
