// Package support classifies the preferences of a fresh instantiation as
// operator-supported or instantiation-supported.
//
// The policy is chosen once when the Calculator is built:
//
//	declared      only the rule's :o-support / :i-support annotation counts;
//	              undeclared rules yield i-support
//	structural-a  o-support unless the rule fired in the elaboration phase
//	              and the target is not the match goal's choice slot
//	structural-b  o-support iff the LHS tests the selected operator of the
//	              match goal and the preference does not elaborate it
//	cross-check   compute both structural answers, warn when they differ,
//	              keep structural-a
//
// A rule annotation overrides every policy.
package support

import (
	"errors"
	"fmt"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/logging"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

// ErrUnknownPolicy is returned by ParsePolicy for unrecognised names.
var ErrUnknownPolicy = errors.New("unknown support policy")

// Policy selects the support calculation.
type Policy uint8

const (
	// StructuralA is the default policy.
	StructuralA Policy = iota
	// StructuralB tests for the selected operator on the LHS.
	StructuralB
	// Declared honours rule annotations only.
	Declared
	// CrossCheck runs both structural policies and logs divergence.
	CrossCheck
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case StructuralA:
		return "structural-a"
	case StructuralB:
		return "structural-b"
	case Declared:
		return "declared"
	case CrossCheck:
		return "cross-check"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration name to a Policy. The empty string is the
// default.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "structural-a":
		return StructuralA, nil
	case "structural-b":
		return StructuralB, nil
	case "declared":
		return Declared, nil
	case "cross-check":
		return CrossCheck, nil
	}
	return StructuralA, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// Input is everything the calculator looks at for one instantiation.
type Input struct {
	Inst        *core.Instantiation
	Phase       core.FiringPhase
	Preferences []*core.Preference
}

// Divergence records one preference on which the structural policies
// disagree under CrossCheck.
type Divergence struct {
	Preference *core.Preference
	A, B       core.Support
}

// Calculator assigns support. It holds no per-instantiation state.
type Calculator struct {
	policy Policy
	choice *symbol.Symbol
	logger logging.Logger
}

// NewCalculator returns a calculator for policy. choice is the goal
// attribute naming the operator slot.
func NewCalculator(policy Policy, choice *symbol.Symbol, logger logging.Logger) *Calculator {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Calculator{policy: policy, choice: choice, logger: logger}
}

// Policy returns the configured policy.
func (c *Calculator) Policy() Policy { return c.policy }

// Calculate sets Support on every preference of in and marks the
// instantiation as calculated. Running it twice for one instantiation is a
// bookkeeping bug and panics. Under CrossCheck the returned slice lists the
// divergent preferences.
func (c *Calculator) Calculate(in Input) []Divergence {
	if in.Inst.SupportCalculated {
		panic(fmt.Sprintf("support: instantiation of %s already classified", in.Inst.RuleName()))
	}
	in.Inst.SupportCalculated = true

	if declared, ok := c.declared(in.Inst); ok {
		for _, p := range in.Preferences {
			p.Support = declared
		}
		return nil
	}

	var divergences []Divergence
	for _, p := range in.Preferences {
		switch c.policy {
		case Declared:
			p.Support = core.ISupport
		case StructuralB:
			p.Support = c.structuralB(in, p)
		case CrossCheck:
			a, b := c.structuralA(in, p), c.structuralB(in, p)
			if a != b {
				c.logger.Warn("support.divergence", "rule", in.Inst.RuleName(), "preference", p.String(), "structural_a", a.String(), "structural_b", b.String())
				divergences = append(divergences, Divergence{Preference: p, A: a, B: b})
			}
			p.Support = a
		default:
			p.Support = c.structuralA(in, p)
		}
	}
	return divergences
}

func (c *Calculator) declared(inst *core.Instantiation) (core.Support, bool) {
	if inst.Rule == nil {
		return core.SupportUnknown, false
	}
	switch inst.Rule.Support {
	case core.DeclaredOSupport:
		return core.OSupport, true
	case core.DeclaredISupport:
		return core.ISupport, true
	}
	return core.SupportUnknown, false
}

func (c *Calculator) structuralA(in Input, p *core.Preference) core.Support {
	if in.Phase != core.PhaseElaboration {
		return core.OSupport
	}
	if in.Inst.MatchGoal != nil && p.ID == in.Inst.MatchGoal && p.Attr == c.choice {
		return core.OSupport
	}
	return core.ISupport
}

func (c *Calculator) structuralB(in Input, p *core.Preference) core.Support {
	goal := in.Inst.MatchGoal
	if goal == nil {
		return core.ISupport
	}
	tested := false
	for _, f := range in.Inst.PositiveFacts() {
		if f.ID != goal || f.Attr != c.choice || f.Acceptable {
			continue
		}
		tested = true
		// elaborating the selected operator itself stays i-supported
		if p.ID == f.Value {
			return core.ISupport
		}
	}
	if tested {
		return core.OSupport
	}
	return core.ISupport
}
