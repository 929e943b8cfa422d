package linecalc

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

// ResultKind is the kind of a line's result.
type ResultKind int8

const (
	// ResultNone is the result of a blank line.
	ResultNone ResultKind = iota
	// ResultNumber is a number, possibly with a unit.
	ResultNumber
	// ResultBool is the result of an equality check.
	ResultBool
	// ResultObject is an object.
	ResultObject
	// ResultDefinition is the result of defining a variable or function.
	ResultDefinition
)

// Result is the outcome of calculating a line.
type Result struct {
	Kind  ResultKind
	Value Value
	Bool  bool
	// Def is the definition made by the line, if any.
	Def *Def
}

// Render formats a result for display using the settings of ctx.
func (ctx *Context) Render(r Result) string {
	switch r.Kind {
	case ResultNumber, ResultObject:
		return ctx.Format(r.Value)
	case ResultBool:
		if r.Bool {
			return "true"
		}
		return "false"
	case ResultDefinition:
		if r.Def.Func {
			return r.Def.Name + "(" + strings.Join(r.Def.Params, ", ") + ")"
		}
		return r.Def.Name + " = " + ctx.Format(r.Value)
	}
	return ""
}

// ansVar is the variable holding the result of the last calculation.
const ansVar = "ans"

// equalTolerance is the relative tolerance of equality checks.
const equalTolerance = 1e-9

// Calculate parses and evaluates one line in the context. Definitions modify
// the context, and every numeric or object result is stored in ans.
func (ctx *Context) Calculate(line string) (Result, error) {
	if strings.TrimSpace(line) == "" {
		return Result{}, nil
	}
	p, err := ParseString(line, ParseWith(ctx))
	if err != nil {
		return Result{}, err
	}
	switch p.Kind {
	case Definition:
		return ctx.define(p)
	case EqualityCheck:
		lhs, err := ctx.Evaluate(p.AST)
		if err != nil {
			return Result{}, err
		}
		if len(p.RHS) == 1 && p.RHS[0].Kind == NodeUnknown {
			return ctx.answer(lhs), nil
		}
		rhs, err := ctx.Evaluate(p.RHS)
		if err != nil {
			return Result{}, err
		}
		eq, err := ctx.equal(lhs, rhs, rangeOf(p.AST).Cover(rangeOf(p.RHS)))
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultBool, Bool: eq}, nil
	}
	v, err := ctx.Evaluate(p.AST)
	if err != nil {
		return Result{}, err
	}
	return ctx.answer(v), nil
}

func (ctx *Context) answer(v Value) Result {
	ctx.vars[ansVar] = v
	if v.Object != nil {
		return Result{Kind: ResultObject, Value: v}
	}
	return Result{Kind: ResultNumber, Value: v}
}

func (ctx *Context) equal(a, b Value, r Range) (bool, error) {
	if a.Object != nil || b.Object != nil {
		if a.Object == nil || b.Object == nil {
			return false, nil
		}
		c, ok := Compare(a.Object, b.Object)
		return ok && c == 0, nil
	}
	x, y := a.Number, b.Number
	if a.Unit != nil && b.Unit != nil {
		var err error
		y, err = ctx.convert(b.Unit, a.Unit, y, r)
		if err != nil {
			return false, err
		}
	}
	if x == y {
		return true, nil
	}
	d := math.Abs(x - y)
	return d <= equalTolerance*math.Max(1, math.Max(math.Abs(x), math.Abs(y))), nil
}

func (ctx *Context) define(p *Parsed) (Result, error) {
	def := p.Def
	if IsBuiltin(def.Name) {
		return Result{}, ReservedFunction.withDetail(def.Range, def.Name)
	}
	if def.Name == ansVar {
		return Result{}, ReservedVariable.withDetail(def.Range, def.Name)
	}
	if def.Func {
		ctx.funcs[def.Name] = &definedFunc{params: def.Params, body: p.AST}
		delete(ctx.vars, def.Name)
		return Result{Kind: ResultDefinition, Def: def}, nil
	}
	v, err := ctx.Evaluate(p.AST)
	if err != nil {
		return Result{}, err
	}
	ctx.vars[def.Name] = v
	delete(ctx.funcs, def.Name)
	return Result{Kind: ResultDefinition, Value: v, Def: def}, nil
}

// rangeOf returns the range covering an AST.
func rangeOf(ast []AstNode) Range {
	if len(ast) == 0 {
		return Range{}
	}
	return ast[0].Range.Cover(ast[len(ast)-1].Range)
}

// LineResult is the outcome of one line of a batch.
type LineResult struct {
	// Line is the 0-based index of the line.
	Line   int
	Result Result
	Err    error
}

// CalculateLines calculates independent lines concurrently, each in its own
// clone of ctx, using at most jobs goroutines. If jobs is not positive, there
// is no limit. Errors from individual lines are reported in their results;
// the returned error is non-nil only if c is cancelled first.
func (ctx *Context) CalculateLines(c context.Context, lines []string, jobs int) ([]LineResult, error) {
	results := make([]LineResult, len(lines))
	g, c := errgroup.WithContext(c)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, line := range lines {
		i, line := i, line
		clone := ctx.Clone()
		g.Go(func() error {
			if err := c.Err(); err != nil {
				return err
			}
			r, err := clone.Calculate(line)
			results[i] = LineResult{Line: i, Result: r, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// varRecord is the serialized form of a variable.
type varRecord struct {
	Number float64       `msgpack:"n"`
	Unit   *unitRecord   `msgpack:"u,omitempty"`
	Format Format        `msgpack:"f,omitempty"`
	Object *objectRecord `msgpack:"o,omitempty"`
}

// unitRecord is the serialized form of a unit. Exactly one field is set.
type unitRecord struct {
	Atomic  string       `msgpack:"a,omitempty"`
	Product []unitRecord `msgpack:"p,omitempty"`
	Num     *unitRecord  `msgpack:"num,omitempty"`
	Den     *unitRecord  `msgpack:"den,omitempty"`
}

func unitRecordOf(u Unit) *unitRecord {
	switch u := u.(type) {
	case nil:
		return nil
	case Atomic:
		return &unitRecord{Atomic: string(u)}
	case Product:
		r := &unitRecord{Product: make([]unitRecord, len(u))}
		for i, v := range u {
			r.Product[i] = *unitRecordOf(v)
		}
		return r
	case Fraction:
		return &unitRecord{Num: unitRecordOf(u.Num), Den: unitRecordOf(u.Den)}
	}
	panic("linecalc: invalid unit")
}

func (r *unitRecord) unit() (Unit, error) {
	switch {
	case r == nil:
		return nil, nil
	case r.Atomic != "":
		return Atomic(r.Atomic), nil
	case len(r.Product) > 0:
		p := make(Product, len(r.Product))
		for i := range r.Product {
			u, err := r.Product[i].unit()
			if err != nil {
				return nil, err
			}
			p[i] = u
		}
		return p, nil
	case r.Num != nil && r.Den != nil:
		num, err := r.Num.unit()
		if err != nil {
			return nil, err
		}
		den, err := r.Den.unit()
		if err != nil {
			return nil, err
		}
		return Fraction{Num: num, Den: den}, nil
	}
	return nil, fmt.Errorf("linecalc: empty serialized unit")
}

// MarshalVars serializes the variables of the context with msgpack.
// Defined functions are not serialized.
func (ctx *Context) MarshalVars() ([]byte, error) {
	m := make(map[string]varRecord, len(ctx.vars))
	for k, v := range ctx.vars {
		r := varRecord{Number: v.Number, Unit: unitRecordOf(v.Unit), Format: v.Format}
		if v.Object != nil {
			o, err := recordOf(v.Object)
			if err != nil {
				return nil, err
			}
			r.Object = &o
		}
		m[k] = r
	}
	return msgpack.Marshal(m)
}

// UnmarshalVars adds variables serialized by MarshalVars to the context.
func (ctx *Context) UnmarshalVars(b []byte) error {
	var m map[string]varRecord
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("linecalc: reading variables: %w", err)
	}
	vars := make(map[string]Value, len(m))
	for k, r := range m {
		u, err := r.Unit.unit()
		if err != nil {
			return fmt.Errorf("linecalc: variable %s: %w", k, err)
		}
		v := Value{Number: r.Number, Unit: u, Format: r.Format}
		if r.Object != nil {
			v.Object, err = r.Object.object()
			if err != nil {
				return fmt.Errorf("linecalc: variable %s: %w", k, err)
			}
		}
		vars[k] = v
	}
	for k, v := range vars {
		ctx.vars[k] = v
	}
	return nil
}
