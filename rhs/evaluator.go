package rhs

import (
	"errors"
	"fmt"
	"io"

	"github.com/SoarGroup/Soar-sub034/core"
	"github.com/SoarGroup/Soar-sub034/logging"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

var (
	// ErrUnresolvedLocation is returned when a match location walks past the
	// token or lands on a negative condition.
	ErrUnresolvedLocation = errors.New("match location did not resolve")
	// ErrNotIdentifier is returned when an action's id is not an identifier.
	ErrNotIdentifier = errors.New("preference id is not an identifier")
	// ErrNoValue is returned when a function call produced no symbol where
	// one was required.
	ErrNoValue = errors.New("function call produced no value")
	// ErrAttributePreference is returned in reject mode for a preference on
	// an attribute slot other than acceptable or reject.
	ErrAttributePreference = errors.New("attribute preference rejected")
)

// AttributePreferenceMode controls preferences of types other than
// acceptable and reject whose slot is not a goal's choice attribute.
type AttributePreferenceMode uint8

const (
	// AttributePreferencesReject drops the preference (the default).
	AttributePreferencesReject AttributePreferenceMode = iota
	// AttributePreferencesWarn keeps the preference and emits a diagnostic.
	AttributePreferencesWarn
	// AttributePreferencesAllow keeps the preference silently.
	AttributePreferencesAllow
)

// String returns the mode name.
func (m AttributePreferenceMode) String() string {
	switch m {
	case AttributePreferencesReject:
		return "reject"
	case AttributePreferencesWarn:
		return "warn"
	case AttributePreferencesAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// ParseAttributePreferenceMode parses "reject", "warn" or "allow".
func ParseAttributePreferenceMode(s string) (AttributePreferenceMode, error) {
	switch s {
	case "", "reject":
		return AttributePreferencesReject, nil
	case "warn":
		return AttributePreferencesWarn, nil
	case "allow":
		return AttributePreferencesAllow, nil
	}
	return AttributePreferencesReject, fmt.Errorf("unknown attribute preference mode %q", s)
}

// ActionError reports one failed action. Execute keeps going after a failed
// action; the errors of a firing are joined.
type ActionError struct {
	Rule   string
	Action int
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("rule %s action %d: %v", e.Rule, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Firing is the input to one rule firing.
type Firing struct {
	Rule  *core.Rule
	Token *core.Token
	Fact  *core.Fact
	// Level is the match goal level; identifiers created in id position
	// are placed there.
	Level int
	// Halt receives halt and interrupt signals. Optional.
	Halt func(reason string)
	// Warn receives non-fatal diagnostics. Optional.
	Warn func(msg string)
	// Out receives text from write. Optional.
	Out io.Writer
}

// Evaluator executes RHS actions. One evaluator belongs to one agent.
type Evaluator struct {
	symbols  *symbol.Table
	registry *Registry
	choice   *symbol.Symbol
	mode     AttributePreferenceMode
	logger   logging.Logger

	// bindings holds the identifier generated for each unbound variable
	// within the current firing; each entry carries its own reference.
	bindings []*symbol.Symbol
}

// NewEvaluator returns an evaluator. choice is the goal attribute that
// receives operator preferences; the evaluator takes a reference on it.
func NewEvaluator(symbols *symbol.Table, registry *Registry, choice *symbol.Symbol, mode AttributePreferenceMode, logger logging.Logger) *Evaluator {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Evaluator{
		symbols:  symbols,
		registry: registry,
		choice:   choice.AddRef(),
		mode:     mode,
		logger:   logger,
	}
}

// Registry returns the function registry.
func (e *Evaluator) Registry() *Registry { return e.registry }

// Mode returns the attribute preference mode.
func (e *Evaluator) Mode() AttributePreferenceMode { return e.mode }

// Execute runs every action of the firing rule in order and returns the
// preferences produced, each holding references on its symbols. Failed
// actions produce nothing and are reported in the returned error (an
// errors.Join of *ActionError); the other actions still run.
func (e *Evaluator) Execute(f Firing) ([]*core.Preference, error) {
	defer e.resetBindings()

	ctx := &Context{Symbols: e.symbols, Rule: f.Rule.Name, out: f.Out, halt: f.Halt, logger: e.logger}
	var (
		prefs []*core.Preference
		errs  []error
	)
	for i, a := range f.Rule.Actions {
		switch a.Kind {
		case core.ActionFunctionCall:
			v, err := e.resolve(ctx, f, a.Value, f.Level, 'V')
			if err != nil {
				errs = append(errs, &ActionError{Rule: f.Rule.Name, Action: i, Err: err})
				continue
			}
			if v != nil {
				v.Release()
			}
		default:
			p, err := e.makePreference(ctx, f, a)
			if err != nil {
				errs = append(errs, &ActionError{Rule: f.Rule.Name, Action: i, Err: err})
				continue
			}
			prefs = append(prefs, p)
		}
	}
	if len(errs) > 0 {
		e.logger.Debug("rhs.execute.errors", "rule", f.Rule.Name, "failed", len(errs))
	}
	return prefs, errors.Join(errs...)
}

func (e *Evaluator) makePreference(ctx *Context, f Firing, a core.Action) (*core.Preference, error) {
	id, err := e.required(ctx, f, a.ID, f.Level, 'I')
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	if !id.IsIdentifier() {
		id.Release()
		return nil, fmt.Errorf("%w: %s", ErrNotIdentifier, id)
	}
	attr, err := e.required(ctx, f, a.Attr, id.Level(), 'A')
	if err != nil {
		id.Release()
		return nil, fmt.Errorf("attribute: %w", err)
	}
	letter := attr.FirstLetter()
	value, err := e.required(ctx, f, a.Value, id.Level(), letter)
	if err != nil {
		id.Release()
		attr.Release()
		return nil, fmt.Errorf("value: %w", err)
	}
	var referent *symbol.Symbol
	if a.Type.IsBinary() {
		referent, err = e.required(ctx, f, a.Referent, id.Level(), letter)
		if err != nil {
			id.Release()
			attr.Release()
			value.Release()
			return nil, fmt.Errorf("referent: %w", err)
		}
	}

	if a.Type != core.Acceptable && a.Type != core.Reject && !(id.IsGoal() && attr == e.choice) {
		msg := fmt.Sprintf("%s preference on attribute slot (%s ^%s) in rule %s", a.Type, id, attr, f.Rule.Name)
		switch e.mode {
		case AttributePreferencesReject:
			id.Release()
			attr.Release()
			value.Release()
			if referent != nil {
				referent.Release()
			}
			return nil, fmt.Errorf("%w: %s", ErrAttributePreference, msg)
		case AttributePreferencesWarn:
			e.logger.Warn("rhs.attribute_preference", "rule", f.Rule.Name, "slot", fmt.Sprintf("(%s ^%s)", id, attr), "type", a.Type.String())
			if f.Warn != nil {
				f.Warn(msg)
			}
		}
	}
	return core.NewPreference(a.Type, id, attr, value, referent), nil
}

// required resolves v and turns "no value" into ErrNoValue.
func (e *Evaluator) required(ctx *Context, f Firing, v core.RHSValue, level int, letter byte) (*symbol.Symbol, error) {
	s, err := e.resolve(ctx, f, v, level, letter)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNoValue
	}
	return s, nil
}

// resolve turns an RHS value into a symbol carrying one reference for the
// caller. A nil symbol with a nil error means a function returned no value.
func (e *Evaluator) resolve(ctx *Context, f Firing, v core.RHSValue, level int, letter byte) (*symbol.Symbol, error) {
	switch v.Kind {
	case core.ValueSymbol:
		return v.Symbol.AddRef(), nil

	case core.ValueLocation:
		s, ok := v.Location.Resolve(f.Token, f.Fact)
		if !ok {
			return nil, fmt.Errorf("%w: %d levels up, %s", ErrUnresolvedLocation, v.Location.LevelsUp, v.Location.Field)
		}
		return s.AddRef(), nil

	case core.ValueUnbound:
		for len(e.bindings) <= v.Index {
			e.bindings = append(e.bindings, nil)
		}
		if b := e.bindings[v.Index]; b != nil {
			return b.AddRef(), nil
		}
		id := e.symbols.NewIdentifier(letter, level)
		e.bindings[v.Index] = id.AddRef()
		return id, nil

	case core.ValueFunctionCall:
		fn, ok := e.registry.Lookup(v.Function)
		if !ok {
			return nil, NewFunctionError(v.Function, "no such function", CodeUnknownFunction)
		}
		args := make([]*symbol.Symbol, 0, len(v.Args))
		defer func() {
			for _, a := range args {
				a.Release()
			}
		}()
		for i, av := range v.Args {
			a, err := e.required(ctx, f, av, level, letter)
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", v.Function, i+1, err)
			}
			args = append(args, a)
		}
		return fn.Call(ctx, args)
	}
	return nil, fmt.Errorf("unknown rhs value kind %d", v.Kind)
}

func (e *Evaluator) resetBindings() {
	for i, b := range e.bindings {
		if b != nil {
			b.Release()
		}
		e.bindings[i] = nil
	}
	e.bindings = e.bindings[:0]
}

// Close releases the evaluator's references.
func (e *Evaluator) Close() {
	e.resetBindings()
	if e.choice != nil {
		e.choice.Release()
		e.choice = nil
	}
}
