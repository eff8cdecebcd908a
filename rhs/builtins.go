package rhs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/SoarGroup/Soar-sub034/symbol"
)

func builtins() []*Function {
	return []*Function{
		NewFunction("+", Variadic, plus),
		NewFunction("-", Variadic, minus),
		NewFunction("*", Variadic, times),
		NewFunction("/", Variadic, floatDivide),
		NewFunction("div", 2, intDivide),
		NewFunction("mod", 2, modulo),
		NewFunction("abs", 1, absolute),
		NewFunction("int", 1, toInt),
		NewFunction("float", 1, toFloat),
		NewFunction("make-constant-symbol", Variadic, makeConstantSymbol),
		NewFunction("concat", Variadic, concat),
		NewFunction("halt", 0, halt),
		NewFunction("interrupt", 0, interrupt),
		NewFunction("write", Variadic, write),
		NewFunction("crlf", 0, crlf),
	}
}

// numeric reads an argument as a number; isInt reports whether it was an
// integer so that all-integer arithmetic stays integral.
func numeric(fn string, s *symbol.Symbol) (i int64, f float64, isInt bool, err error) {
	if v, ok := s.Int(); ok {
		return v, float64(v), true, nil
	}
	if v, ok := s.Float(); ok {
		return 0, v, false, nil
	}
	return 0, 0, false, NewFunctionError(fn, fmt.Sprintf("non-number %s", s), CodeType)
}

func number(ctx *Context, i int64, f float64, isInt bool) *symbol.Symbol {
	if isInt {
		return ctx.Symbols.Integer(i)
	}
	return ctx.Symbols.Float(f)
}

func plus(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	var isum int64
	var fsum float64
	allInt := true
	for _, a := range args {
		i, f, isInt, err := numeric("+", a)
		if err != nil {
			return nil, err
		}
		isum += i
		fsum += f
		allInt = allInt && isInt
	}
	return number(ctx, isum, fsum, allInt), nil
}

func times(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	iprod, fprod := int64(1), 1.0
	allInt := true
	for _, a := range args {
		i, f, isInt, err := numeric("*", a)
		if err != nil {
			return nil, err
		}
		iprod *= i
		fprod *= f
		allInt = allInt && isInt
	}
	return number(ctx, iprod, fprod, allInt), nil
}

func minus(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	if len(args) == 0 {
		return nil, NewFunctionError("-", "requires at least one argument", CodeArity)
	}
	i, f, allInt, err := numeric("-", args[0])
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return number(ctx, -i, -f, allInt), nil
	}
	for _, a := range args[1:] {
		ai, af, isInt, err := numeric("-", a)
		if err != nil {
			return nil, err
		}
		i -= ai
		f -= af
		allInt = allInt && isInt
	}
	return number(ctx, i, f, allInt), nil
}

func floatDivide(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	if len(args) == 0 {
		return nil, NewFunctionError("/", "requires at least one argument", CodeArity)
	}
	_, f, _, err := numeric("/", args[0])
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		if f == 0 {
			return nil, NewFunctionError("/", "attempt to divide by zero", CodeDivideByZero)
		}
		return ctx.Symbols.Float(1 / f), nil
	}
	for _, a := range args[1:] {
		_, d, _, err := numeric("/", a)
		if err != nil {
			return nil, err
		}
		if d == 0 {
			return nil, NewFunctionError("/", "attempt to divide by zero", CodeDivideByZero)
		}
		f /= d
	}
	return ctx.Symbols.Float(f), nil
}

func intArgs(fn string, args []*symbol.Symbol) (int64, int64, error) {
	a, ok := args[0].Int()
	if !ok {
		return 0, 0, NewFunctionError(fn, fmt.Sprintf("non-integer %s", args[0]), CodeType)
	}
	b, ok := args[1].Int()
	if !ok {
		return 0, 0, NewFunctionError(fn, fmt.Sprintf("non-integer %s", args[1]), CodeType)
	}
	if b == 0 {
		return 0, 0, NewFunctionError(fn, "attempt to divide by zero", CodeDivideByZero)
	}
	return a, b, nil
}

func intDivide(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	a, b, err := intArgs("div", args)
	if err != nil {
		return nil, err
	}
	return ctx.Symbols.Integer(a / b), nil
}

func modulo(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	a, b, err := intArgs("mod", args)
	if err != nil {
		return nil, err
	}
	m := a % b
	// result takes the sign of the divisor
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return ctx.Symbols.Integer(m), nil
}

func absolute(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	i, f, isInt, err := numeric("abs", args[0])
	if err != nil {
		return nil, err
	}
	if i < 0 {
		i = -i
	}
	return number(ctx, i, math.Abs(f), isInt), nil
}

func toInt(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	a := args[0]
	if v, ok := a.Int(); ok {
		return ctx.Symbols.Integer(v), nil
	}
	if v, ok := a.Float(); ok {
		return ctx.Symbols.Integer(int64(v)), nil
	}
	if a.Kind() == symbol.KindConstant {
		if v, err := strconv.ParseInt(a.Name(), 10, 64); err == nil {
			return ctx.Symbols.Integer(v), nil
		}
		if v, err := strconv.ParseFloat(a.Name(), 64); err == nil {
			return ctx.Symbols.Integer(int64(v)), nil
		}
	}
	return nil, NewFunctionError("int", fmt.Sprintf("cannot convert %s to an integer", a), CodeType)
}

func toFloat(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	a := args[0]
	if v, ok := a.Number(); ok {
		return ctx.Symbols.Float(v), nil
	}
	if a.Kind() == symbol.KindConstant {
		if v, err := strconv.ParseFloat(a.Name(), 64); err == nil {
			return ctx.Symbols.Float(v), nil
		}
	}
	return nil, NewFunctionError("float", fmt.Sprintf("cannot convert %s to a float", a), CodeType)
}

func render(args []*symbol.Symbol) string {
	var b strings.Builder
	for _, a := range args {
		if a.Kind() == symbol.KindConstant {
			b.WriteString(a.Name())
			continue
		}
		b.WriteString(a.String())
	}
	return b.String()
}

// makeConstantSymbol concatenates its arguments into a constant. With no
// arguments it generates a constant not yet in use.
func makeConstantSymbol(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	if len(args) > 0 {
		return ctx.Symbols.Constant(render(args)), nil
	}
	return ctx.Symbols.GenConstant("constant"), nil
}

func concat(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	return ctx.Symbols.Constant(render(args)), nil
}

func halt(ctx *Context, _ []*symbol.Symbol) (*symbol.Symbol, error) {
	ctx.Halt("halt")
	return nil, nil
}

func interrupt(ctx *Context, _ []*symbol.Symbol) (*symbol.Symbol, error) {
	ctx.Halt("interrupt")
	return nil, nil
}

func write(ctx *Context, args []*symbol.Symbol) (*symbol.Symbol, error) {
	if _, err := fmt.Fprint(ctx.Output(), render(args)); err != nil {
		return nil, err
	}
	return nil, nil
}

func crlf(ctx *Context, _ []*symbol.Symbol) (*symbol.Symbol, error) {
	return ctx.Symbols.Constant("\n"), nil
}
