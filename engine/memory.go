package engine

import (
	"fmt"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

// Total memory: committed preferences indexed by slot and by match goal.
// Lists own membership only; the preference itself is kept alive by the one
// reference total memory takes on commit.

type slotKey struct {
	id, attr *symbol.Symbol
}

type prefList struct {
	head, tail core.PrefID
	n          int
}

type linkSet uint8

const (
	slotLinks linkSet = iota
	goalLinks
)

func links(p *core.Preference, which linkSet) (prev, next *core.PrefID) {
	if which == goalLinks {
		return &p.GoalPrev, &p.GoalNext
	}
	return &p.SlotPrev, &p.SlotNext
}

func (a *Agent) listAppend(l *prefList, id core.PrefID, which linkSet) {
	p := a.prefs.MustGet(id)
	prev, next := links(p, which)
	*prev, *next = l.tail, core.PrefID{}
	if l.tail.Valid() {
		_, tailNext := links(a.prefs.MustGet(l.tail), which)
		*tailNext = id
	} else {
		l.head = id
	}
	l.tail = id
	l.n++
}

func (a *Agent) listRemove(l *prefList, id core.PrefID, which linkSet) {
	p := a.prefs.MustGet(id)
	prev, next := links(p, which)
	if prev.Valid() {
		_, pn := links(a.prefs.MustGet(*prev), which)
		*pn = *next
	} else {
		l.head = *next
	}
	if next.Valid() {
		np, _ := links(a.prefs.MustGet(*next), which)
		*np = *prev
	} else {
		l.tail = *prev
	}
	*prev, *next = core.PrefID{}, core.PrefID{}
	l.n--
}

func (a *Agent) listSnapshot(l *prefList, which linkSet) []core.PrefID {
	out := make([]core.PrefID, 0, l.n)
	for id := l.head; id.Valid(); {
		out = append(out, id)
		_, next := links(a.prefs.MustGet(id), which)
		id = *next
	}
	return out
}

// addToTM commits p: slot list, goal list when the owning instantiation
// has a match goal, and one reference.
func (a *Agent) addToTM(id core.PrefID, p *core.Preference) {
	if p.InTM {
		panic(fmt.Sprintf("engine: preference %s committed twice", p))
	}
	key := slotKey{id: p.ID, attr: p.Attr}
	l := a.slots[key]
	if l == nil {
		l = &prefList{}
		a.slots[key] = l
	}
	a.listAppend(l, id, slotLinks)

	if inst, ok := a.insts.Get(p.Inst); ok && inst.MatchGoal != nil {
		g := a.goals[inst.MatchGoal]
		if g == nil {
			g = &prefList{}
			a.goals[inst.MatchGoal] = g
		}
		a.listAppend(g, id, goalLinks)
		p.Goal = inst.MatchGoal
	}

	p.InTM = true
	p.AddRef()
	a.tmSize++
}

// removeFromTM withdraws p from both indexes and drops total memory's
// reference, which may free p.
func (a *Agent) removeFromTM(id core.PrefID, p *core.Preference) {
	if !p.InTM {
		panic(fmt.Sprintf("engine: preference %s withdrawn but not in total memory", p))
	}
	key := slotKey{id: p.ID, attr: p.Attr}
	if l := a.slots[key]; l != nil {
		a.listRemove(l, id, slotLinks)
		if l.n == 0 {
			delete(a.slots, key)
		}
	}
	if p.Goal != nil {
		if g := a.goals[p.Goal]; g != nil {
			a.listRemove(g, id, goalLinks)
			if g.n == 0 {
				delete(a.goals, p.Goal)
			}
		}
		p.Goal = nil
	}
	p.InTM = false
	a.tmSize--
	a.releasePref(id)
}

// SlotPreferences returns the committed preferences of type t in the
// (id ^attr) slot, in commit order.
func (a *Agent) SlotPreferences(id, attr *symbol.Symbol, t core.PreferenceType) []core.PrefID {
	l := a.slots[slotKey{id: id, attr: attr}]
	if l == nil {
		return nil
	}
	var out []core.PrefID
	for _, pid := range a.listSnapshot(l, slotLinks) {
		if a.prefs.MustGet(pid).Type == t {
			out = append(out, pid)
		}
	}
	return out
}

// Slot returns every committed preference in the (id ^attr) slot.
func (a *Agent) Slot(id, attr *symbol.Symbol) []core.PrefID {
	l := a.slots[slotKey{id: id, attr: attr}]
	if l == nil {
		return nil
	}
	return a.listSnapshot(l, slotLinks)
}

// GoalPreferences returns the committed preferences on goal's list.
func (a *Agent) GoalPreferences(goal *symbol.Symbol) []core.PrefID {
	l := a.goals[goal]
	if l == nil {
		return nil
	}
	return a.listSnapshot(l, goalLinks)
}

// -------------------- Deallocation --------------------

func (a *Agent) releasePref(id core.PrefID) {
	p := a.prefs.MustGet(id)
	if p.ReleaseRef() {
		a.deallocatePreference(id, p)
	}
}

// deallocatePreference frees a preference nobody references: off the clone
// chain, off its instantiation's list, symbols released. The owning
// instantiation loses the reference this preference held.
func (a *Agent) deallocatePreference(id core.PrefID, p *core.Preference) {
	if p.InTM {
		panic(fmt.Sprintf("engine: freeing preference %s still in total memory", p))
	}
	a.unlinkClones(p)

	instID := p.Inst
	inst, owned := a.insts.Get(instID)
	if owned {
		if p.InstPrev.Valid() {
			a.prefs.MustGet(p.InstPrev).InstNext = p.InstNext
		} else {
			inst.FirstPref = p.InstNext
		}
		if p.InstNext.Valid() {
			a.prefs.MustGet(p.InstNext).InstPrev = p.InstPrev
		} else {
			inst.LastPref = p.InstPrev
		}
	}
	p.ReleaseSymbols()
	a.prefs.Free(id)
	if owned {
		a.releaseInst(instID)
	}
}

func (a *Agent) unlinkClones(p *core.Preference) {
	if prev, ok := a.prefs.Get(p.PrevClone); ok {
		prev.NextClone = p.NextClone
	}
	if next, ok := a.prefs.Get(p.NextClone); ok {
		next.PrevClone = p.PrevClone
	}
	p.PrevClone, p.NextClone = core.PrefID{}, core.PrefID{}
}

// releaseInst drops one instantiation reference. Freeing is iterative: an
// instantiation's conditions can release the last reference of another
// instantiation's preference, and so on down a long justification chain.
func (a *Agent) releaseInst(id core.InstID) {
	if !a.insts.MustGet(id).ReleaseRef() {
		return
	}
	a.freeQueue = append(a.freeQueue, id)
	if a.freeing {
		return
	}
	a.freeing = true
	for len(a.freeQueue) > 0 {
		next := a.freeQueue[0]
		a.freeQueue = a.freeQueue[1:]
		a.freeInstantiation(next)
	}
	a.freeing = false
}

func (a *Agent) freeInstantiation(id core.InstID) {
	inst := a.insts.MustGet(id)
	if inst.FirstPref.Valid() {
		panic(fmt.Sprintf("engine: freeing instantiation of %s with live preferences", inst.RuleName()))
	}
	for _, c := range inst.Conditions {
		if c.Trace.Valid() {
			a.releasePref(c.Trace)
			c.Trace = core.PrefID{}
		}
		for _, pid := range c.Prohibits {
			a.releasePref(pid)
		}
		c.Prohibits = nil
		if c.Fact != nil {
			c.Fact.Release()
			c.Fact = nil
		}
	}
	if inst.Rule != nil {
		inst.Rule.Release()
		inst.Rule = nil
	}
	if inst.MatchGoal != nil {
		inst.MatchGoal.Release()
		inst.MatchGoal = nil
	}
	a.insts.Free(id)
	a.logger.Debug("inst.free", "agent_id", a.id, "inst", id.String())
}
