package core

import (
	"errors"
	"testing"

	"github.com/SoarGroup/Soar-sub034/symbol"
)

func TestToken_FactsLayout(t *testing.T) {
	tbl := symbol.NewTable()
	s := tbl.NewGoal(1)
	a := tbl.Constant("a")
	f1 := NewFact(s, a, tbl.Integer(1), false, 1, PrefID{}, nil)
	f2 := NewFact(s, a, tbl.Integer(2), false, 2, PrefID{}, nil)
	f3 := NewFact(s, a, tbl.Integer(3), false, 3, PrefID{}, nil)

	// conditions: f1, <negative>, f2, f3(triggering)
	tok := (&Token{}).Extend(f1).Extend(nil).Extend(f2)
	got := tok.Facts(f3, 4)
	want := []*Fact{f1, nil, f2, f3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fact %d: got %v, want %v", i, got[i], want[i])
		}
	}

	if v, ok := (Location{LevelsUp: 0, Field: FieldValue}).Resolve(tok, f3); !ok || v.String() != "3" {
		t.Fatalf("levels-up 0 resolved to %v", v)
	}
	if v, ok := (Location{LevelsUp: 1, Field: FieldValue}).Resolve(tok, f3); !ok || v.String() != "2" {
		t.Fatalf("levels-up 1 resolved to %v", v)
	}
	if _, ok := (Location{LevelsUp: 2, Field: FieldValue}).Resolve(tok, f3); ok {
		t.Fatalf("negative condition link must not resolve")
	}
	if _, ok := (Location{LevelsUp: 9, Field: FieldID}).Resolve(tok, f3); ok {
		t.Fatalf("walking past the root must fail")
	}
}

func TestFact_ReleaseRunsFreeHook(t *testing.T) {
	tbl := symbol.NewTable()
	freed := 0
	f := NewFact(tbl.NewGoal(1), tbl.Constant("x"), tbl.Constant("y"), false, 1, PrefID{}, func(*Fact) { freed++ })
	f.AddRef()
	f.Release()
	if freed != 0 {
		t.Fatalf("free hook ran with a reference outstanding")
	}
	f.Release()
	if freed != 1 {
		t.Fatalf("free hook did not run at zero")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on underflow")
		}
	}()
	f.Release()
}

func TestRule_ReleaseReturnsLiterals(t *testing.T) {
	tbl := symbol.NewTable()
	op := tbl.Constant("operator")
	two := tbl.Integer(2)
	r := NewRule("r", RuleUser, nil, []Action{{
		Kind:  ActionMake,
		ID:    ReteLoc(0, FieldID),
		Attr:  Literal(op),
		Value: Call("+", Literal(two), Literal(tbl.Integer(3))),
	}})
	r.AddRef()
	r.Release()
	if op.Refs() != 1 {
		t.Fatalf("literal released while rule still referenced")
	}
	r.Release()
	if op.Refs() != 0 || two.Refs() != 0 {
		t.Fatalf("literals not released: op=%d two=%d", op.Refs(), two.Refs())
	}
}

func TestPreference_StringAndTypes(t *testing.T) {
	tbl := symbol.NewTable()
	s := tbl.NewGoal(1)
	p := NewPreference(Better, s, tbl.Constant("operator"), tbl.NewIdentifier('O', 1), tbl.NewIdentifier('O', 1))
	if got := p.String(); got != "(S1 ^operator O1 > O2)" {
		t.Fatalf("unexpected rendering %q", got)
	}
	if !Better.IsBinary() || Acceptable.IsBinary() {
		t.Fatalf("IsBinary misclassified")
	}
	pt, err := ParsePreferenceType("numeric-indifferent")
	if err != nil || pt != NumericIndifferent {
		t.Fatalf("parse failed: %v %v", pt, err)
	}
	if _, err := ParsePreferenceType("bogus"); err == nil {
		t.Fatalf("expected parse error")
	}
	if p.OSupported() || p.Support.String() != "unknown" {
		t.Fatalf("new preference must be unclassified")
	}
}

func TestChunkLimiter(t *testing.T) {
	l := NewChunkLimiter(2)
	if err := l.Increment(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := l.Increment(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := l.Increment(); !errors.Is(err, ErrChunkLimit) {
		t.Fatalf("expected ErrChunkLimit, got %v", err)
	}
	l.Reset()
	if l.Remaining() != 2 {
		t.Fatalf("reset failed: remaining %d", l.Remaining())
	}
	if NewChunkLimiter(0).Remaining() != -1 {
		t.Fatalf("unlimited limiter must report -1")
	}
}

func TestLimitedChunker(t *testing.T) {
	calls := 0
	var exhausted error
	lc := NewLimitedChunker(ChunkerFunc(func(InstID, *Instantiation, bool) { calls++ }), NewChunkLimiter(1), func(err error) { exhausted = err })

	inst := &Instantiation{}
	lc.ChunkInstantiation(InstID{}, inst, true)
	lc.ChunkInstantiation(InstID{}, inst, false) // not counted
	lc.ChunkInstantiation(InstID{}, inst, true)

	if calls != 2 {
		t.Fatalf("expected 2 forwarded calls, got %d", calls)
	}
	if !errors.Is(exhausted, ErrChunkLimit) {
		t.Fatalf("expected exhaustion, got %v", exhausted)
	}
}
