package linecalc

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	funcopt struct {
		name string
		fn   Func
	}
	funcsopt map[string]Func
	varsopt  []string
	unitsopt struct {
		units      *UnitTable
		currencies *Currencies
	}
	objopt struct {
		ctx *Context
	}
	withopt struct {
		ctx *Context
	}
)

// parsectx holds general data for parsing. It is also a ParseOption.
type parsectx struct {
	// funcs overrides function lookups. A nil entry disables a function, so
	// that its name is parsed as a variable or unit instead.
	funcs map[string]Func
	// vars is the set of names which parse as variables.
	vars map[string]bool
	// ctx supplies variables, functions, units, and currencies not set by
	// other options.
	ctx *Context
	// objctx evaluates expressions inside object literals.
	objctx     *Context
	units      *UnitTable
	currencies *Currencies
	// forbid is the name being defined, which may not appear in its own
	// definition.
	forbid string
}

// fn returns the function of a name, or nil if the name is not a function.
func (p *parsectx) fn(name string) Func {
	if f, ok := p.funcs[name]; ok {
		return f
	}
	if p.ctx != nil {
		return p.ctx.funcs[name]
	}
	return globalfuncs[name]
}

func (p *parsectx) isVar(name string) bool {
	if p.vars[name] {
		return true
	}
	return p.ctx != nil && p.ctx.hasVar(name)
}

func (p *parsectx) isUnit(name string) bool {
	units, currencies := p.units, p.currencies
	if p.ctx != nil {
		if units == nil {
			units = p.ctx.units
		}
		if currencies == nil {
			currencies = p.ctx.currencies
		}
	}
	if units == nil {
		units = DefaultUnits
	}
	return units.IsUnit(name, currencies)
}

// objectContext returns the context for evaluating object arguments, creating
// one if needed.
func (p *parsectx) objectContext() *Context {
	switch {
	case p.objctx != nil:
		return p.objctx
	case p.ctx != nil:
		return p.ctx
	}
	var opts []ContextOption
	if p.units != nil {
		opts = append(opts, WithUnits(p.units))
	}
	if p.currencies != nil {
		opts = append(opts, WithCurrencies(p.currencies))
	}
	p.objctx = NewContext(opts...)
	return p.objctx
}

// ParseFunc sets a function for parsing. To disable parsing a function, pass
// nil for fn.
func ParseFunc(name string, fn Func) ParseOption {
	return &funcopt{name, fn}
}

func (o *funcopt) parseOption(p parsectx) parsectx {
	p.funcs = copyfuncs(p.funcs, 1)
	p.funcs[o.name] = o.fn
	return p
}

// ParseFuncs sets a group of functions for parsing. To disable parsing any
// function, set it to nil.
func ParseFuncs(fns map[string]Func) ParseOption {
	return funcsopt(fns)
}

func (o funcsopt) parseOption(p parsectx) parsectx {
	p.funcs = copyfuncs(p.funcs, len(o))
	for k, v := range o {
		p.funcs[k] = v
	}
	return p
}

// copyfuncs copies a function map so that options never modify maps that
// belong to presets or callers.
func copyfuncs(m map[string]Func, extra int) map[string]Func {
	r := make(map[string]Func, len(m)+extra)
	for k, v := range m {
		r[k] = v
	}
	return r
}

// DisableDefaultFuncs disables all default functions during parsing. Their
// names will be parsed as variables or units instead.
func DisableDefaultFuncs() ParseOption {
	m := make(funcsopt, len(globalfuncs))
	for k := range globalfuncs {
		m[k] = nil
	}
	return m
}

// ParseVars declares names to be parsed as variables.
func ParseVars(names ...string) ParseOption {
	return varsopt(names)
}

func (o varsopt) parseOption(p parsectx) parsectx {
	vars := make(map[string]bool, len(p.vars)+len(o))
	for k, v := range p.vars {
		vars[k] = v
	}
	for _, name := range o {
		vars[name] = true
	}
	p.vars = vars
	return p
}

// ParseUnits sets the units and currencies recognized after numbers. Either
// may be nil to use the default units or no currencies.
func ParseUnits(units *UnitTable, currencies *Currencies) ParseOption {
	return &unitsopt{units, currencies}
}

func (o *unitsopt) parseOption(p parsectx) parsectx {
	p.units = o.units
	p.currencies = o.currencies
	return p
}

// ParseObjects sets the context used to evaluate expressions inside object
// literals.
func ParseObjects(ctx *Context) ParseOption {
	return &objopt{ctx}
}

func (o *objopt) parseOption(p parsectx) parsectx {
	p.objctx = o.ctx
	return p
}

// ParseWith parses using the variables, functions, units, and currencies of
// ctx. Object literals are evaluated in ctx. Other options still override
// what ctx provides.
func ParseWith(ctx *Context) ParseOption {
	return &withopt{ctx}
}

func (o *withopt) parseOption(p parsectx) parsectx {
	p.ctx = o.ctx
	return p
}

// ParsingPreset creates a parsing preset that may be more efficient when using
// the same non-default parsing options for many calls to Parse. A preset
// panics when it would change any option from the default, but it is safe to
// apply other options after a preset.
func ParsingPreset(opts ...ParseOption) ParseOption {
	var p parsectx
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	return &p
}

func (o *parsectx) parseOption(p parsectx) parsectx {
	if p.funcs != nil || p.vars != nil || p.ctx != nil || p.objctx != nil || p.units != nil || p.currencies != nil {
		panic("linecalc: preset applied to non-default parse config")
	}
	return *o
}
