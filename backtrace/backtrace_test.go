package backtrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/internal/arena"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

type fakeStore struct {
	pool  arena.Pool[core.Preference]
	slots map[[2]*symbol.Symbol][]core.PrefID
}

func newFakeStore() *fakeStore {
	return &fakeStore{slots: map[[2]*symbol.Symbol][]core.PrefID{}}
}

func (s *fakeStore) Preference(id core.PrefID) (*core.Preference, bool) { return s.pool.Get(id) }

func (s *fakeStore) SlotPreferences(id, attr *symbol.Symbol, t core.PreferenceType) []core.PrefID {
	var out []core.PrefID
	for _, h := range s.slots[[2]*symbol.Symbol{id, attr}] {
		if p, ok := s.pool.Get(h); ok && p.Type == t {
			out = append(out, h)
		}
	}
	return out
}

func (s *fakeStore) AddPreferenceRef(id core.PrefID) { s.pool.MustGet(id).AddRef() }

func (s *fakeStore) add(p *core.Preference) core.PrefID {
	h := s.pool.Alloc(p)
	if p.InTM {
		key := [2]*symbol.Symbol{p.ID, p.Attr}
		s.slots[key] = append(s.slots[key], h)
	}
	return h
}

// chain builds clones at the given levels, linked in order.
func (s *fakeStore) chain(t core.PreferenceType, id, attr, value *symbol.Symbol, levels ...int) []core.PrefID {
	out := make([]core.PrefID, len(levels))
	for i, lvl := range levels {
		out[i] = s.add(&core.Preference{Type: t, ID: id, Attr: attr, Value: value, Level: lvl, InTM: true})
	}
	for i := 1; i < len(out); i++ {
		s.pool.MustGet(out[i-1]).NextClone = out[i]
		s.pool.MustGet(out[i]).PrevClone = out[i-1]
	}
	return out
}

func TestResolveTraceAtLevel(t *testing.T) {
	tbl := symbol.NewTable()
	s := newFakeStore()
	ids := s.chain(core.Acceptable, tbl.NewGoal(1), tbl.Constant("a"), tbl.Constant("b"), 1, 2, 3)

	assert.Equal(t, ids[1], ResolveTraceAtLevel(s, ids[1], 2), "own level")
	assert.Equal(t, ids[2], ResolveTraceAtLevel(s, ids[0], 3), "next direction")
	assert.Equal(t, ids[0], ResolveTraceAtLevel(s, ids[2], 1), "prev direction")
	assert.False(t, ResolveTraceAtLevel(s, ids[0], 7).Valid(), "no clone at level")
	assert.False(t, ResolveTraceAtLevel(s, core.PrefID{}, 1).Valid(), "absent trace")
}

func TestResolveTraceAtLevel_DeterministicAcrossChain(t *testing.T) {
	tbl := symbol.NewTable()
	s := newFakeStore()
	ids := s.chain(core.Acceptable, tbl.NewGoal(1), tbl.Constant("a"), tbl.Constant("b"), 1, 2, 3, 4)

	for level := 1; level <= 4; level++ {
		want := ids[level-1]
		for _, start := range ids {
			got := ResolveTraceAtLevel(s, start, level)
			require.Equal(t, want, got, "start %s level %d", start, level)
			assert.Equal(t, got, ResolveTraceAtLevel(s, got, level), "idempotent")
		}
	}
}

func TestResolveConditionTraces(t *testing.T) {
	tbl := symbol.NewTable()
	s := newFakeStore()
	g := tbl.NewGoal(1)
	ids := s.chain(core.Acceptable, g, tbl.Constant("a"), tbl.Constant("b"), 1, 3)
	orphan := s.add(&core.Preference{Type: core.Acceptable, Level: 5})

	shallow := &core.Condition{Kind: core.ConditionPositive, Fact: core.NewFact(g, tbl.Constant("a"), tbl.Constant("b"), false, 1, ids[1], nil)}
	lost := &core.Condition{Kind: core.ConditionPositive, Fact: core.NewFact(g, tbl.Constant("c"), tbl.Constant("d"), false, 2, orphan, nil)}
	bare := &core.Condition{Kind: core.ConditionPositive, Fact: core.NewFact(g, tbl.Constant("e"), tbl.Constant("f"), false, 3, core.PrefID{}, nil)}
	neg := &core.Condition{Kind: core.ConditionNegative}

	ResolveConditionTraces(s, []*core.Condition{shallow, lost, bare, neg}, 1)

	assert.Equal(t, ids[0], shallow.Trace, "deeper trace replaced by clone at level")
	assert.Equal(t, 1, s.pool.MustGet(ids[0]).Refs())
	assert.False(t, lost.Trace.Valid())
	assert.False(t, bare.Trace.Valid())
	assert.False(t, neg.Trace.Valid())
}

func TestBuildProhibitsList(t *testing.T) {
	tbl := symbol.NewTable()
	s := newFakeStore()
	g := tbl.NewGoal(1)
	op := tbl.Constant("operator")

	trace := s.add(&core.Preference{Type: core.Acceptable, ID: g, Attr: op, Value: tbl.NewIdentifier('O', 1), Level: 1, InTM: true})
	direct := s.add(&core.Preference{Type: core.Prohibit, ID: g, Attr: op, Value: tbl.NewIdentifier('O', 1), Level: 1, InTM: true})
	deep := s.chain(core.Prohibit, g, op, tbl.NewIdentifier('O', 1), 1, 2)
	// clone at level 1 exists but is out of total memory
	s.pool.MustGet(deep[0]).InTM = false
	deeper := s.chain(core.Prohibit, g, op, tbl.NewIdentifier('O', 1), 1, 3)

	cond := &core.Condition{Kind: core.ConditionPositive, Trace: trace}
	BuildProhibitsList(s, []*core.Condition{cond, {Kind: core.ConditionNegative}}, 1)

	assert.ElementsMatch(t, []core.PrefID{direct, deeper[0], deeper[0]}, cond.Prohibits)
	assert.Equal(t, 2, s.pool.MustGet(deeper[0]).Refs(), "listed directly and reached through its clone")
	assert.Equal(t, 1, s.pool.MustGet(direct).Refs())
	assert.Equal(t, 0, s.pool.MustGet(deep[0]).Refs())
}
