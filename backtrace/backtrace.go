// Package backtrace resolves the justifying preference of each matched fact
// to the firing's goal level and collects the prohibit preferences the
// chunker later consults.
package backtrace

import (
	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

// Lookup resolves preference handles. Stale handles report false.
type Lookup interface {
	Preference(id core.PrefID) (*core.Preference, bool)
}

// Store is the part of total memory the trace builder reads.
type Store interface {
	Lookup
	// SlotPreferences returns the committed preferences of the given type
	// in the (id ^attr) slot.
	SlotPreferences(id, attr *symbol.Symbol, t core.PreferenceType) []core.PrefID
	// AddPreferenceRef takes a reference on a preference.
	AddPreferenceRef(id core.PrefID)
}

// ResolveTraceAtLevel returns the clone of pref asserted at level: pref
// itself when its level matches, else the first match walking the next-clone
// chain, then the prev-clone chain. The zero handle means none exists.
func ResolveTraceAtLevel(prefs Lookup, pref core.PrefID, level int) core.PrefID {
	p, ok := prefs.Preference(pref)
	if !ok {
		return core.PrefID{}
	}
	if p.Level == level {
		return pref
	}
	for id := p.NextClone; id.Valid(); {
		c, ok := prefs.Preference(id)
		if !ok {
			break
		}
		if c.Level == level {
			return id
		}
		id = c.NextClone
	}
	for id := p.PrevClone; id.Valid(); {
		c, ok := prefs.Preference(id)
		if !ok {
			break
		}
		if c.Level == level {
			return id
		}
		id = c.PrevClone
	}
	return core.PrefID{}
}

// BuildProhibitsList collects, for every positive condition with a trace,
// the prohibit preferences on the trace's slot that are visible at level.
// Each collected handle carries a reference owned by the condition.
func BuildProhibitsList(store Store, conds []*core.Condition, level int) {
	for _, c := range conds {
		if c.Kind != core.ConditionPositive || !c.Trace.Valid() {
			continue
		}
		trace, ok := store.Preference(c.Trace)
		if !ok {
			continue
		}
		for _, id := range store.SlotPreferences(trace.ID, trace.Attr, core.Prohibit) {
			p, ok := store.Preference(id)
			if !ok {
				continue
			}
			if p.Level == level && p.InTM {
				store.AddPreferenceRef(id)
				c.Prohibits = append(c.Prohibits, id)
				continue
			}
			clone := ResolveTraceAtLevel(store, id, level)
			if cp, ok := store.Preference(clone); ok && cp.InTM {
				store.AddPreferenceRef(clone)
				c.Prohibits = append(c.Prohibits, clone)
			}
		}
	}
}

// ResolveConditionTraces points every positive condition at the preference
// justifying its fact. A justification from a goal deeper than level is
// replaced by its clone at level, or dropped when there is none. Each trace
// carries a reference owned by the condition.
func ResolveConditionTraces(store Store, conds []*core.Condition, level int) {
	for _, c := range conds {
		if c.Kind != core.ConditionPositive || c.Fact == nil || !c.Fact.Preference.Valid() {
			continue
		}
		id := c.Fact.Preference
		p, ok := store.Preference(id)
		if !ok {
			continue
		}
		if p.Level > level {
			id = ResolveTraceAtLevel(store, id, level)
		}
		if id.Valid() {
			store.AddPreferenceRef(id)
			c.Trace = id
		}
	}
}
