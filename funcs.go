package linecalc

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// Func is a function callable from calculations. Functions may but generally
// should not look up variables.
type Func interface {
	// Call evaluates the function. The function arguments are passed in invoc,
	// which has a length for which CanCall returned true. Call may modify the
	// elements of invoc.
	Call(ctx *Context, invoc []Value) (Value, error)

	// CanCall returns whether the function can be called with n arguments.
	// This controls how the parser handles instances of this function:
	//
	// 	1.	If a bracketed list of n expressions follows a function, the
	//		parser treats it as an argument list if CanCall(n). (If n is 1 and
	//		!CanCall(1) and CanCall(0), then the list is a multiplication;
	//		otherwise, it is rejected.)
	//
	// 	2.	If no bracket follows a function, it is called with no arguments
	//		if CanCall(0) and rejected otherwise.
	CanCall(n int) bool
}

var globalfuncs = map[string]Func{
	"exp":  Monadic(bigfloat.Exp),
	"ln":   Monadic(bigfloat.Log),
	"log":  logfunc{},
	"sqrt": Monadic((*big.Float).Sqrt),

	"sin":   angular{math.Sin},
	"cos":   angular{math.Cos},
	"tan":   angular{math.Tan},
	"asin":  Float64(math.Asin, false),
	"acos":  Float64(math.Acos, false),
	"atan":  Float64(math.Atan, false),
	"sinh":  Float64(math.Sinh, false),
	"cosh":  Float64(math.Cosh, false),
	"tanh":  Float64(math.Tanh, false),
	"abs":   Float64(math.Abs, true),
	"floor": Float64(math.Floor, true),
	"ceil":  Float64(math.Ceil, true),
	"round": Float64(math.Round, true),

	"vec":    vecfunc{},
	"length": lengthfunc{},

	// constants
	"pi": Niladic(bigfloat.Pi),
	"e": Niladic(func(out *big.Float) *big.Float {
		var one big.Float
		one.SetFloat64(1)
		return bigfloat.Exp(out, &one)
	}),
}

// IsBuiltin reports whether name is the name of a default function.
func IsBuiltin(name string) bool {
	_, ok := globalfuncs[name]
	return ok
}

// bigarg converts an argument to a big.Float at the context precision. NaN
// has no big.Float representation and is outside the domain of every
// function.
func bigarg(ctx *Context, x float64, arg int) (*big.Float, error) {
	if math.IsNaN(x) {
		return nil, DomainError{X: x, Arg: arg}
	}
	return new(big.Float).SetPrec(ctx.Prec()).SetFloat64(x), nil
}

// catchNaN recovers a big.ErrNaN panic into a DomainError.
func catchNaN(x float64, err *error) {
	r := recover()
	if r == nil {
		return
	}
	e, ok := r.(error)
	if !ok || !errors.As(e, &big.ErrNaN{}) {
		panic(r)
	}
	*err = DomainError{X: x, Arg: 1}
}

type monadic struct {
	f func(out, in *big.Float) *big.Float
}

func (m monadic) Call(ctx *Context, invoc []Value) (r Value, err error) {
	x := invoc[0].Number
	in, err := bigarg(ctx, x, 1)
	if err != nil {
		return Value{}, err
	}
	defer catchNaN(x, &err)
	out := new(big.Float).SetPrec(ctx.Prec())
	m.f(out, in)
	r.Number, _ = out.Float64()
	return r, nil
}

func (m monadic) CanCall(n int) bool {
	return n == 1
}

// Monadic wraps a function of one variable into a Func. f must set out to its
// result, to the precision of out; its return value is always ignored. If f
// is called on an argument outside f's domain, it should panic with an error
// of type big.ErrNaN, or that unwraps to it. The result has no unit.
func Monadic(f func(out, in *big.Float) *big.Float) Func {
	return monadic{f}
}

type niladic struct {
	f func(out *big.Float) *big.Float
}

func (n niladic) Call(ctx *Context, invoc []Value) (Value, error) {
	out := new(big.Float).SetPrec(ctx.Prec())
	n.f(out)
	f, _ := out.Float64()
	return Value{Number: f}, nil
}

func (n niladic) CanCall(k int) bool {
	return k == 0
}

// Niladic wraps a function of zero variables, generally a function which
// computes a constant, into a Func. f must set out to its result; its return
// value is always ignored. Unlike Monadic, the wrapped function is expected
// never to panic.
func Niladic(f func(out *big.Float) *big.Float) Func {
	return niladic{f}
}

type float64func struct {
	f    func(float64) float64
	unit bool
}

func (f float64func) Call(ctx *Context, invoc []Value) (Value, error) {
	r := Value{Number: f.f(invoc[0].Number)}
	if f.unit {
		r.Unit = invoc[0].Unit
	}
	return r, nil
}

func (float64func) CanCall(n int) bool {
	return n == 1
}

// Float64 wraps a function of one float64 into a Func. If keepUnit is true,
// the result has the unit of the argument.
func Float64(f func(float64) float64, keepUnit bool) Func {
	return float64func{f, keepUnit}
}

// angular is a trigonometric function. Arguments with angle units are
// converted to radians first.
type angular struct {
	f func(float64) float64
}

func (a angular) Call(ctx *Context, invoc []Value) (Value, error) {
	x := invoc[0]
	if x.Unit != nil {
		n, err := ctx.convert(x.Unit, Atomic("rad"), x.Number, Range{})
		if err != nil {
			return Value{}, err
		}
		x.Number = n
	}
	return Value{Number: a.f(x.Number)}, nil
}

func (angular) CanCall(n int) bool {
	return n == 1
}

// logfunc is the logarithm with an optional base, 10 by default.
type logfunc struct{}

func (logfunc) Call(ctx *Context, invoc []Value) (r Value, err error) {
	x, err := bigarg(ctx, invoc[0].Number, 1)
	if err != nil {
		return Value{}, err
	}
	base := 10.0
	if len(invoc) == 2 {
		base = invoc[1].Number
	}
	if x.Sign() < 0 {
		return Value{}, DomainError{X: invoc[0].Number, Arg: 1, Func: "log"}
	}
	if !(base > 0) || base == 1 {
		return Value{}, DomainError{X: base, Arg: 2, Func: "log"}
	}
	b, err := bigarg(ctx, base, 2)
	if err != nil {
		return Value{}, err
	}
	defer catchNaN(invoc[0].Number, &err)
	out := new(big.Float).SetPrec(ctx.Prec())
	bigfloat.Log(out, x)
	bigfloat.Log(b, b)
	out.Quo(out, b)
	r.Number, _ = out.Float64()
	return r, nil
}

func (logfunc) CanCall(n int) bool {
	return n == 1 || n == 2
}

// vecfunc creates a vector from its arguments.
type vecfunc struct{}

func (vecfunc) Call(ctx *Context, invoc []Value) (Value, error) {
	v := make(Vector, len(invoc))
	for i, x := range invoc {
		if x.Object != nil {
			return Value{}, fmt.Errorf("argument %d is not a number", i+1)
		}
		v[i] = x.Number
	}
	return Value{Object: v}, nil
}

func (vecfunc) CanCall(n int) bool {
	return n > 0
}

// lengthfunc is the Euclidean length of a vector.
type lengthfunc struct{}

func (lengthfunc) Call(ctx *Context, invoc []Value) (Value, error) {
	v, ok := invoc[0].Object.(Vector)
	if !ok {
		return Value{}, errors.New("argument is not a vector")
	}
	return Value{Number: v.Length()}, nil
}

func (lengthfunc) CanCall(n int) bool {
	return n == 1
}

// definedFunc is a function defined in a calculation.
type definedFunc struct {
	params []string
	body   []AstNode
}

func (f *definedFunc) Call(ctx *Context, invoc []Value) (Value, error) {
	if ctx.depth >= maxDepth {
		return Value{}, errors.New("too much recursion")
	}
	c := ctx.Clone()
	c.depth = ctx.depth + 1
	for i, name := range f.params {
		c.vars[name] = invoc[i]
	}
	return c.Evaluate(f.body)
}

func (f *definedFunc) CanCall(n int) bool {
	return n == len(f.params)
}

// maxDepth is the limit on nested calls of defined functions.
const maxDepth = 256

// DomainError is an error returned when a function is called on arguments
// outside its domain. DomainError unwraps to big.ErrNaN.
type DomainError struct {
	// X is the out-of-domain argument.
	X float64
	// Arg is the 1-based index of the argument.
	Arg int
	// Func is a name identifying the function.
	Func string
}

func (err DomainError) Error() string {
	r := strconv.FormatFloat(err.X, 'g', -1, 64) + " outside domain"
	if err.Func != "" {
		r += " of " + err.Func
	}
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	return r
}

func (err DomainError) Unwrap() error {
	return big.ErrNaN{}
}
