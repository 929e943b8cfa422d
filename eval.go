package linecalc

import (
	"errors"
	"math"
	"strconv"

	"fortio.org/safecast"
)

// Context is a context for evaluating calculations. It holds variables,
// functions, settings, units, and currency rates. It is not safe to use a
// Context concurrently; use Clone to give each goroutine its own.
type Context struct {
	vars       map[string]Value
	funcs      map[string]Func
	prec       uint
	settings   *Settings
	units      *UnitTable
	currencies *Currencies
	// depth is the number of defined functions being called.
	depth int
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	varopt struct {
		name string
		val  Value
	}
	varsctxopt    map[string]Value
	precopt       uint
	settingsopt   struct{ s *Settings }
	currenciesopt struct{ c *Currencies }
	unittableopt  struct{ t *UnitTable }
	funcsctxopt   map[string]Func
)

func (varopt) ctxOption()        {}
func (varsctxopt) ctxOption()    {}
func (precopt) ctxOption()       {}
func (settingsopt) ctxOption()   {}
func (currenciesopt) ctxOption() {}
func (unittableopt) ctxOption()  {}
func (funcsctxopt) ctxOption()   {}

// SetVar sets the value of a variable in the context.
func SetVar(name string, val Value) ContextOption {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables in the context.
func SetVars(vars map[string]Value) ContextOption {
	return varsctxopt(vars)
}

// Prec sets the precision in bits of functions computed with arbitrary
// precision.
func Prec(prec uint) ContextOption {
	return precopt(prec)
}

// WithSettings sets the settings used for dates and display.
func WithSettings(s *Settings) ContextOption {
	return settingsopt{s}
}

// WithCurrencies sets the currency rates used for conversions.
func WithCurrencies(c *Currencies) ContextOption {
	return currenciesopt{c}
}

// WithUnits sets the unit registry.
func WithUnits(t *UnitTable) ContextOption {
	return unittableopt{t}
}

// WithFuncs adds functions to the context. A nil function removes one.
func WithFuncs(fns map[string]Func) ContextOption {
	return funcsctxopt(fns)
}

// NewContext creates a new evaluation context with the default functions. If
// no precision is given, the default is 64. Without other options, the
// context uses DefaultSettings, DefaultUnits, and no currencies.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{
		vars:     map[string]Value{},
		funcs:    globalfuncs,
		prec:     64,
		settings: DefaultSettings(),
		units:    DefaultUnits,
	}
	return ctx.Clone(opts...)
}

// Clone creates a copy of a context and applies options to it.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{
		vars:       make(map[string]Value, len(ctx.vars)),
		funcs:      make(map[string]Func, len(ctx.funcs)),
		prec:       ctx.prec,
		settings:   ctx.settings,
		units:      ctx.units,
		currencies: ctx.currencies,
		depth:      ctx.depth,
	}
	for k, v := range ctx.vars {
		n.vars[k] = v
	}
	for k, v := range ctx.funcs {
		n.funcs[k] = v
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case varopt:
			n.vars[opt.name] = opt.val
		case varsctxopt:
			for k, v := range opt {
				n.vars[k] = v
			}
		case precopt:
			n.prec = uint(opt)
		case settingsopt:
			n.settings = opt.s
		case currenciesopt:
			n.currencies = opt.c
		case unittableopt:
			n.units = opt.t
		case funcsctxopt:
			for k, v := range opt {
				if v == nil {
					delete(n.funcs, k)
					continue
				}
				n.funcs[k] = v
			}
		default:
			panic("linecalc: unknown option type")
		}
	}
	return &n
}

// Set sets the value of a variable. Returns ctx for chaining.
func (ctx *Context) Set(name string, value Value) *Context {
	ctx.vars[name] = value
	return ctx
}

// Lookup returns the value of a variable.
func (ctx *Context) Lookup(name string) (Value, bool) {
	v, ok := ctx.vars[name]
	return v, ok
}

func (ctx *Context) hasVar(name string) bool {
	_, ok := ctx.vars[name]
	return ok
}

// Func returns the function of a name, or nil if there is none.
func (ctx *Context) Func(name string) Func {
	return ctx.funcs[name]
}

// Prec returns the precision to which functions are computed in the context.
func (ctx *Context) Prec() uint {
	return ctx.prec
}

// Settings returns the settings of the context.
func (ctx *Context) Settings() *Settings {
	return ctx.settings
}

// Units returns the unit registry of the context.
func (ctx *Context) Units() *UnitTable {
	return ctx.units
}

// Currencies returns the currency rates of the context, which may be nil.
func (ctx *Context) Currencies() *Currencies {
	return ctx.currencies
}

// Value is the result of evaluating a calculation: either a number with an
// optional unit, or an object.
type Value struct {
	Number float64
	Unit   Unit
	// Format is the requested display format of a number.
	Format Format
	// Object is non-nil if the value is an object.
	Object CalculatorObject
}

func valueOf(n *AstNode) Value {
	return Value{Number: n.Number, Unit: n.Unit, Format: n.Format, Object: n.Object}
}

func (v Value) node(r Range) AstNode {
	if v.Object != nil {
		return objectNode(v.Object, r)
	}
	return AstNode{Kind: NodeLiteral, Number: v.Number, Unit: v.Unit, Format: v.Format, Range: r}
}

// Evaluate reduces a parsed calculation to a value.
func (ctx *Context) Evaluate(ast []AstNode) (Value, error) {
	if len(ast) == 0 {
		return Value{}, ExpectedNumber.with(Range{})
	}
	n, err := ctx.reduce(ast)
	if err != nil {
		return Value{}, err
	}
	return valueOf(&n), nil
}

// prec is the binding power of an operator. Higher binds tighter.
func prec(op Operator) int {
	switch op {
	case OpIn:
		return 0
	case OpBitwiseOr:
		return 1
	case OpBitwiseAnd:
		return 2
	case OpShiftLeft, OpShiftRight:
		return 3
	case OpPlus, OpMinus:
		return 4
	case OpMultiply, OpDivide, OpModulo, OpOf:
		return 5
	case OpExponentiation:
		return 6
	}
	panic("linecalc: invalid operator " + op.String())
}

// reduce evaluates a flat list of alternating operands and operators using
// operator precedence. Exponentiation is right-associative; everything else
// is left-associative.
func (ctx *Context) reduce(ast []AstNode) (AstNode, error) {
	var vals []AstNode
	var ops []*AstNode
	// direct records which values are single operands rather than results
	// of operators.
	var direct []bool
	apply := func() error {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		lhs, rhs := &vals[len(vals)-2], &vals[len(vals)-1]
		if op.Op == OpIn && !direct[len(direct)-1] {
			// The target of a conversion is a unit alone.
			return UnitsNotMatching.with(rhs.Range)
		}
		r, err := ctx.apply(lhs, op, rhs)
		if err != nil {
			return err
		}
		vals = append(vals[:len(vals)-2], r)
		direct = append(direct[:len(direct)-2], false)
		return nil
	}
	for i := 0; i < len(ast); i++ {
		n := &ast[i]
		if n.Kind == NodeOperator {
			p := prec(n.Op)
			for len(ops) > 0 {
				q := prec(ops[len(ops)-1].Op)
				if q < p || q == p && n.Op == OpExponentiation {
					break
				}
				if err := apply(); err != nil {
					return AstNode{}, err
				}
			}
			ops = append(ops, n)
			continue
		}
		v, err := ctx.operand(n)
		if err != nil {
			return AstNode{}, err
		}
		// A callable object followed directly by brackets is called.
		for v.Kind == NodeObject && v.Object.Callable() && i+2 < len(ast) && ast[i+1].Implicit && ast[i+2].Kind == NodeGroup {
			g := &ast[i+2]
			v, err = ctx.callObject(&v, g)
			if err != nil {
				return AstNode{}, err
			}
			i += 2
		}
		vals = append(vals, v)
		direct = append(direct, true)
	}
	for len(ops) > 0 {
		if err := apply(); err != nil {
			return AstNode{}, err
		}
	}
	if len(vals) != 1 {
		panic("linecalc: inconsistent operands: " + strconv.Itoa(len(vals)) + " values (bad AST?)")
	}
	return vals[0], nil
}

func (ctx *Context) callObject(obj *AstNode, g *AstNode) (AstNode, error) {
	arg, err := ctx.reduce(g.Group)
	if err != nil {
		return AstNode{}, err
	}
	if arg.Kind == NodeObject {
		return AstNode{}, ExpectedNumber.with(g.Range)
	}
	args := []NumberArg{{Number: arg.Number, Unit: arg.Unit, Range: g.Range}}
	r, err := obj.Object.Call(obj.Range, args, g.Range)
	if err != nil {
		return AstNode{}, err
	}
	// The group's own unit, modifiers, and format apply to the element.
	return decorate(r, g)
}

// operand reduces a single operand to a literal or object node, applying its
// unit, modifiers, and format.
func (ctx *Context) operand(n *AstNode) (AstNode, error) {
	var r AstNode
	switch n.Kind {
	case NodeLiteral:
		r = AstNode{Kind: NodeLiteral, Number: n.Number}
	case NodeObject:
		r = objectNode(n.Object, n.Range)
	case NodeVariable:
		v, ok := ctx.vars[n.Name]
		if !ok {
			return AstNode{}, UnknownVariable.withDetail(n.Range, n.Name)
		}
		r = v.node(n.Range)
	case NodeCall:
		v, err := ctx.call(n)
		if err != nil {
			return AstNode{}, err
		}
		r = v.node(n.Range)
	case NodeGroup:
		v, err := ctx.reduce(n.Group)
		if err != nil {
			return AstNode{}, err
		}
		r = v
	case NodeUnknown:
		return AstNode{}, UnexpectedQuestionMark.with(n.Range)
	default:
		panic("linecalc: invalid operand " + n.Kind.String())
	}
	r.Range = n.Range
	return decorate(r, n)
}

// decorate applies the unit, modifiers, and format written on n to its
// reduced value r. Errors are reported at the range of r.
func decorate(r AstNode, n *AstNode) (AstNode, error) {
	if n.Unit != nil {
		if r.Kind == NodeObject {
			return AstNode{}, UnexpectedUnit.with(r.Range)
		}
		r.Unit = pushUnit(r.Unit, n.Unit)
	}
	r.Modifiers = nil
	for _, m := range n.Modifiers {
		if r.Kind == NodeObject {
			return AstNode{}, UnsupportedOperation.with(r.Range)
		}
		switch m {
		case BitwiseNot:
			x, err := integer(&r)
			if err != nil {
				return AstNode{}, err
			}
			r.Number = float64(^x)
		case Factorial:
			if r.Number < 0 && r.Number == math.Trunc(r.Number) {
				return AstNode{}, NotANumber.with(r.Range)
			}
			r.Number = math.Gamma(r.Number + 1)
		case Percent:
			r.Number /= 100
			r.Modifiers = []Modifier{Percent}
		}
	}
	if n.Format != FormatNone {
		r.Format = n.Format
	}
	return r, nil
}

func (ctx *Context) call(n *AstNode) (Value, error) {
	fn := ctx.funcs[n.Name]
	if fn == nil {
		return Value{}, UnknownFunction.withDetail(n.Range, n.Name)
	}
	if !fn.CanCall(len(n.Args)) {
		return Value{}, WrongNumberOfArguments.withDetail(n.Range, n.Name)
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := ctx.Evaluate(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	v, err := fn.Call(ctx, args)
	if err != nil {
		var e *Error
		var d DomainError
		switch {
		case errors.As(err, &e):
			return Value{}, e.Kind.withDetail(n.Range, e.Detail)
		case errors.As(err, &d):
			if d.Func == "" {
				d.Func = n.Name
			}
			return Value{}, NotANumber.withDetail(n.Range, d.Error())
		default:
			return Value{}, InvalidArguments.withDetail(n.Range, n.Name+": "+err.Error())
		}
	}
	return v, nil
}

// integer converts the number of a node to an integer.
func integer(n *AstNode) (int64, error) {
	x, err := safecast.Convert[int64](n.Number)
	if err != nil {
		return 0, ExpectedInteger.withDetail(n.Range, strconv.FormatFloat(n.Number, 'g', -1, 64))
	}
	return x, nil
}

func isPercent(n *AstNode) bool {
	return len(n.Modifiers) == 1 && n.Modifiers[0] == Percent
}

// apply applies a binary operator to two reduced operands.
func (ctx *Context) apply(lhs, op, rhs *AstNode) (AstNode, error) {
	if lhs.Kind == NodeObject {
		return lhs.Object.Apply(lhs.Range, op.Op, op.Range, rhs, false)
	}
	if rhs.Kind == NodeObject {
		return rhs.Object.Apply(rhs.Range, op.Op, op.Range, lhs, true)
	}
	full := lhs.Range.Cover(rhs.Range)
	r := AstNode{Kind: NodeLiteral, Range: full, Format: lhs.Format}
	if r.Format == FormatNone {
		r.Format = rhs.Format
	}
	a, b := lhs.Number, rhs.Number
	switch op.Op {
	case OpIn:
		if rhs.Unit == nil {
			return AstNode{}, UnitsNotMatching.with(full)
		}
		r.Number, r.Unit = a, rhs.Unit
		if lhs.Unit != nil {
			x, err := ctx.convert(lhs.Unit, rhs.Unit, a, full)
			if err != nil {
				return AstNode{}, err
			}
			r.Number = x
		}
	case OpPlus, OpMinus:
		if isPercent(rhs) && !isPercent(lhs) {
			b = a * b
		} else if lhs.Unit != nil && rhs.Unit != nil {
			x, err := ctx.convert(rhs.Unit, lhs.Unit, b, full)
			if err != nil {
				return AstNode{}, err
			}
			b = x
		}
		r.Unit = lhs.Unit
		if r.Unit == nil {
			r.Unit = rhs.Unit
		}
		if op.Op == OpPlus {
			r.Number = a + b
		} else {
			r.Number = a - b
		}
		if isPercent(lhs) && isPercent(rhs) {
			r.Modifiers = []Modifier{Percent}
		}
	case OpMultiply:
		r.Number = a * b
		r.Unit = pushUnit(lhs.Unit, rhs.Unit)
		if rhs.Unit == nil {
			r.Unit = lhs.Unit
		}
	case OpDivide:
		if b == 0 {
			return AstNode{}, DivideByZero.with(rhs.Range)
		}
		switch {
		case lhs.Unit != nil && rhs.Unit != nil:
			// Units of the same dimension cancel.
			if x, err := ctx.convert(rhs.Unit, lhs.Unit, b, full); err == nil {
				r.Number = a / x
				break
			}
			r.Number = a / b
			r.Unit = Fraction{Num: lhs.Unit, Den: rhs.Unit}
		case rhs.Unit != nil:
			r.Number = a / b
			r.Unit = Fraction{Num: Atomic("1"), Den: rhs.Unit}
		default:
			r.Number = a / b
			r.Unit = lhs.Unit
		}
	case OpModulo:
		if b == 0 {
			return AstNode{}, DivideByZero.with(rhs.Range)
		}
		if lhs.Unit != nil && rhs.Unit != nil {
			x, err := ctx.convert(rhs.Unit, lhs.Unit, b, full)
			if err != nil {
				return AstNode{}, err
			}
			b = x
		}
		r.Number = math.Mod(a, b)
		r.Unit = lhs.Unit
	case OpExponentiation:
		r.Number = math.Pow(a, b)
		if lhs.Unit != nil && b == math.Trunc(b) && b >= 1 && b <= 9 {
			var u Unit
			for i := 0; i < int(b); i++ {
				u = pushUnit(u, lhs.Unit)
			}
			r.Unit = u
		}
	case OpOf:
		if !isPercent(lhs) {
			return AstNode{}, ExpectedPercentage.with(lhs.Range)
		}
		r.Number = a * b
		r.Unit = rhs.Unit
	case OpBitwiseAnd, OpBitwiseOr, OpShiftLeft, OpShiftRight:
		x, err := integer(lhs)
		if err != nil {
			return AstNode{}, err
		}
		y, err := integer(rhs)
		if err != nil {
			return AstNode{}, err
		}
		switch op.Op {
		case OpBitwiseAnd:
			r.Number = float64(x & y)
		case OpBitwiseOr:
			r.Number = float64(x | y)
		default:
			if y < 0 || y > 63 {
				return AstNode{}, InvalidArguments.withDetail(rhs.Range, "shift out of range")
			}
			if op.Op == OpShiftLeft {
				r.Number = float64(x << y)
			} else {
				r.Number = float64(x >> y)
			}
		}
		r.Unit = lhs.Unit
	default:
		panic("linecalc: invalid operator " + op.Op.String())
	}
	return r, nil
}

func (ctx *Context) convert(src, dst Unit, n float64, r Range) (float64, error) {
	units := ctx.units
	if units == nil {
		units = DefaultUnits
	}
	return units.Convert(src, dst, n, ctx.currencies, r)
}
