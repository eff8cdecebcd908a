// Package rhs implements the right-hand-side action evaluator: it turns a
// matched token and a rule's action list into candidate preferences, and
// runs RHS function calls through a registry of typed Go closures.
package rhs

import (
	"fmt"
	"io"

	"github.com/SoarGroup/Soar-sub034/logging"
	"github.com/SoarGroup/Soar-sub034/symbol"
)

// Error codes carried by FunctionError.
const (
	CodeArity           = "ARITY_ERROR"
	CodeType            = "TYPE_ERROR"
	CodeDivideByZero    = "DIVIDE_BY_ZERO"
	CodeUnknownFunction = "UNKNOWN_FUNCTION"
	CodeExecution       = "EXECUTION_ERROR"
)

// FunctionError represents errors that occur during RHS function execution.
type FunctionError struct {
	Function string // Name of the function that failed
	Message  string // Error message
	Code     string // Error code for categorization
}

func (e *FunctionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rhs function error [%s] in %s: %s", e.Code, e.Function, e.Message)
	}
	return fmt.Sprintf("rhs function error in %s: %s", e.Function, e.Message)
}

// NewFunctionError creates a new FunctionError with the specified details.
func NewFunctionError(function, message, code string) *FunctionError {
	return &FunctionError{Function: function, Message: message, Code: code}
}

// Context is handed to every RHS function call. It scopes the call to one
// firing: the symbol table to intern results in, the halt signal and the
// output sink used by write.
type Context struct {
	Symbols *symbol.Table
	Rule    string

	out    io.Writer
	halt   func(reason string)
	logger logging.Logger
}

// Halt raises the system-halted signal. The engine stops firing new
// instantiations before the next match.
func (c *Context) Halt(reason string) {
	if c.halt != nil {
		c.halt(reason)
	}
}

// Output returns the writer used by text-producing functions.
func (c *Context) Output() io.Writer {
	if c.out == nil {
		return io.Discard
	}
	return c.out
}

// Logger returns the logger scoped to the firing.
func (c *Context) Logger() logging.Logger {
	if c.logger == nil {
		return logging.NoOpLogger{}
	}
	return c.logger
}

// Impl is the Go implementation of an RHS function. It receives already
// resolved arguments (borrowed; AddRef any argument returned as the result)
// and returns a symbol carrying one reference for the caller, or nil for "no
// value".
type Impl func(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error)

// Variadic is the arity of functions accepting any number of arguments.
const Variadic = -1

// Function is a named RHS function.
//
// A Function has no mutable state after construction.
type Function struct {
	name  string
	arity int
	fn    Impl
}

// NewFunction constructs a Function. arity is the exact argument count, or
// Variadic.
func NewFunction(name string, arity int, fn Impl) *Function {
	return &Function{name: name, arity: arity, fn: fn}
}

// Name returns the function name used in rules.
func (f *Function) Name() string { return f.name }

// Arity returns the declared argument count (Variadic for any).
func (f *Function) Arity() int { return f.arity }

// Call validates the argument count then invokes the implementation.
// Failures are wrapped (or passed through) as *FunctionError:
//
//	*FunctionError (returned directly) -> forwarded unchanged
//	wrong argument count              -> *FunctionError{Code: CodeArity}
//	other error                       -> *FunctionError{Code: CodeExecution}
func (f *Function) Call(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	logger := ctx.Logger()
	logger.Debug("rhs.call.start", "function", f.name, "rule", ctx.Rule, "args", len(args))

	if f.arity != Variadic && len(args) != f.arity {
		return nil, NewFunctionError(f.name, fmt.Sprintf("expected %d arguments, got %d", f.arity, len(args)), CodeArity)
	}

	result, err := f.fn(ctx, args)
	if err != nil {
		if fe, ok := err.(*FunctionError); ok {
			logger.Warn("rhs.call.failed", "function", f.name, "code", fe.Code, "error", fe.Message)
			return nil, fe
		}
		logger.Warn("rhs.call.failed", "function", f.name, "error", err.Error())
		return nil, NewFunctionError(f.name, err.Error(), CodeExecution)
	}

	logger.Debug("rhs.call.success", "function", f.name, "result", result)
	return result, nil
}

// Registry maps function names to functions.
type Registry struct {
	funcs map[string]*Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// NewDefaultRegistry returns a registry preloaded with the built-in functions.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range builtins() {
		r.Register(f)
	}
	return r
}

// Register adds or replaces f.
func (r *Registry) Register(f *Function) {
	r.funcs[f.name] = f
}

// Lookup finds a function by name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns the registered function names in unspecified order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		out = append(out, n)
	}
	return out
}
