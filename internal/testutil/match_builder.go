package testutil

import "github.com/SoarGroup/Soar-sub034/core"

// MatchBuilder lays facts out as a Rete token plus triggering fact, in
// condition order.
// Example:
//
//	tok, w := testutil.NewMatch().Fact(stateFact).Fact(opFact).Build()
//	agent.OnNewMatch(rule, tok, w)
type MatchBuilder struct {
	facts []*core.Fact
}

// NewMatch creates an empty match.
func NewMatch() *MatchBuilder { return &MatchBuilder{} }

// Fact appends the fact matched by the next condition; nil stands for a
// negative condition (chainable).
func (b *MatchBuilder) Fact(f *core.Fact) *MatchBuilder {
	b.facts = append(b.facts, f)
	return b
}

// Build returns the token for all but the last fact, and the last fact.
// The token's root is the matcher's dummy top token.
func (b *MatchBuilder) Build() (*core.Token, *core.Fact) {
	if len(b.facts) == 0 {
		return nil, nil
	}
	tok := &core.Token{}
	for _, f := range b.facts[:len(b.facts)-1] {
		tok = tok.Extend(f)
	}
	return tok, b.facts[len(b.facts)-1]
}
