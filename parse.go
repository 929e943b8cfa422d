package linecalc

import (
	"strconv"
	"strings"
)

// ParseKind is the kind of a parsed line.
type ParseKind int8

const (
	// Calculation is an expression to evaluate.
	Calculation ParseKind = iota
	// EqualityCheck is a pair of expressions separated by an equals sign.
	EqualityCheck
	// Definition is a variable or function definition using :=.
	Definition
)

func (k ParseKind) String() string {
	switch k {
	case Calculation:
		return "Calculation"
	case EqualityCheck:
		return "EqualityCheck"
	case Definition:
		return "Definition"
	}
	return "ParseKind(" + strconv.Itoa(int(k)) + ")"
}

// Parsed is the result of parsing a line.
type Parsed struct {
	Kind ParseKind
	// AST is the calculation, the left side of an equality check, or the
	// body of a definition.
	AST []AstNode
	// RHS is the right side of an equality check.
	RHS []AstNode
	// Def describes the name being defined by a definition.
	Def *Def
}

// Def is the left side of a definition.
type Def struct {
	Name  string
	Range Range
	// Func is true if the definition is of a function, even one with no
	// parameters.
	Func   bool
	Params []string
}

// ParseString tokenizes and parses a line.
func ParseString(text string, opts ...ParseOption) (*Parsed, error) {
	toks, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	return Parse(toks, opts...)
}

// Parse parses a line of tokens. The given options are applied in order.
func Parse(tokens []Token, opts ...ParseOption) (*Parsed, error) {
	var p parsectx
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	if i := findDefine(tokens); i >= 0 {
		return parseDefinition(&p, tokens, i)
	}
	ps := newParser(&p, tokens, 0)
	ast, err := ps.parse()
	if err != nil {
		return nil, err
	}
	if ps.equals >= 0 {
		lhs, rhs := ast[:ps.equals:ps.equals], ast[ps.equals:]
		if len(lhs) == 0 || len(rhs) == 0 {
			return nil, ExpectedNumber.with(ps.equalsRange)
		}
		return &Parsed{Kind: EqualityCheck, AST: lhs, RHS: rhs}, nil
	}
	return &Parsed{Kind: Calculation, AST: ast}, nil
}

// findDefine finds the first definition sign outside brackets.
func findDefine(tokens []Token) int {
	depth := 0
	for i, tok := range tokens {
		switch tok.Kind {
		case TokenOpen:
			depth++
		case TokenClose:
			depth--
		case TokenDefine:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseDefinition parses name := body or name(params...) := body, where the
// definition sign is tokens[at].
func parseDefinition(p *parsectx, tokens []Token, at int) (*Parsed, error) {
	lhs, body := tokens[:at], tokens[at+1:]
	if len(lhs) == 0 {
		return nil, ExpectedIdentifier.with(tokens[at].Range)
	}
	if lhs[0].Kind != TokenIdent {
		return nil, ExpectedIdentifier.with(lhs[0].Range)
	}
	def := Def{Name: lhs[0].Text, Range: lhs[0].Range}
	if len(lhs) > 1 {
		if lhs[1].Kind != TokenOpen {
			return nil, ExpectedIdentifier.with(lhs[1].Range)
		}
		if lhs[len(lhs)-1].Kind != TokenClose {
			return nil, MissingClosingBracket.with(lhs[1].Range)
		}
		def.Func = true
		def.Params = []string{}
		params := lhs[2 : len(lhs)-1]
		for i, tok := range params {
			if i%2 == 1 {
				if tok.Kind != TokenComma {
					return nil, ExpectedIdentifier.with(tok.Range)
				}
				continue
			}
			if tok.Kind != TokenIdent {
				return nil, ExpectedIdentifier.with(tok.Range)
			}
			for _, name := range def.Params {
				if name == tok.Text {
					return nil, DuplicateArgument.withDetail(tok.Range, tok.Text)
				}
			}
			def.Params = append(def.Params, tok.Text)
		}
		if len(params) > 0 && len(params)%2 == 0 {
			// Trailing comma.
			return nil, ExpectedIdentifier.with(params[len(params)-1].Range)
		}
	}
	if len(body) == 0 {
		return nil, ExpectedNumber.with(tokens[at].Range)
	}

	q := *p
	q.vars = make(map[string]bool, len(p.vars)+len(def.Params))
	for k, v := range p.vars {
		q.vars[k] = v
	}
	for _, name := range def.Params {
		q.vars[name] = true
	}
	q.forbid = def.Name
	ps := newParser(&q, body, 0)
	ast, err := ps.parse()
	if err != nil {
		return nil, err
	}
	if ps.equals >= 0 {
		return nil, UnexpectedEqualsSign.with(ps.equalsRange)
	}
	return &Parsed{Kind: Definition, AST: ast, Def: &def}, nil
}

// parser parses one flat list of tokens. Brackets, function arguments, and
// object arguments are parsed by fresh parsers over their own token slices.
type parser struct {
	p       *parsectx
	toks    []Token
	nesting int
	i       int
	// last is the kind of the last token that affected the grammar, or
	// tokenNone at the start. Modifiers do not change it.
	last TokenKind
	// pending holds prefix modifiers for the next node.
	pending     []Modifier
	pendingAt   Range
	equals      int
	equalsRange Range
	result      []AstNode
}

func newParser(p *parsectx, toks []Token, nesting int) *parser {
	return &parser{p: p, toks: toks, nesting: nesting, equals: -1}
}

func (ps *parser) parse() ([]AstNode, error) {
	for ps.i < len(ps.toks) {
		if err := ps.next(); err != nil {
			return nil, err
		}
	}
	if len(ps.pending) > 0 {
		return nil, ExpectedNumber.with(ps.pendingAt)
	}
	if ps.last.isOperator() && len(ps.toks) > 0 {
		return nil, ExpectedNumber.with(ps.toks[len(ps.toks)-1].Range)
	}
	return ps.result, nil
}

// sub parses a nested token list as a calculation.
func (ps *parser) sub(toks []Token) ([]AstNode, error) {
	return newParser(ps.p, toks, ps.nesting+1).parse()
}

func (ps *parser) next() error {
	tok := ps.toks[ps.i]
	ps.i++

	switch tok.Kind {
	case TokenComma:
		return UnexpectedComma.with(tok.Range)
	case TokenDefine:
		return UnexpectedDefinition.with(tok.Range)
	}
	if err := ps.verify(tok); err != nil {
		return err
	}

	switch tok.Kind {
	case TokenBang:
		if ps.last != tokenNone && !ps.last.isOperator() {
			n := &ps.result[len(ps.result)-1]
			n.Modifiers = append(n.Modifiers, Factorial)
			n.Range = n.Range.Cover(tok.Range)
			return nil
		}
		if len(ps.pending) == 0 {
			ps.pendingAt = tok.Range
		}
		ps.pending = append(ps.pending, BitwiseNot)
		return nil
	case TokenPercent:
		n := &ps.result[len(ps.result)-1]
		n.Modifiers = append(n.Modifiers, Percent)
		n.Range = n.Range.Cover(tok.Range)
		return nil
	}

	if tok.Kind.isFormat() {
		// The verifier only allows formats after in, which is always the
		// last node, following the node to format.
		ps.result = ps.result[:len(ps.result)-1]
		n := &ps.result[len(ps.result)-1]
		n.Format = formats[tok.Kind]
		ps.last = tok.Kind
		return nil
	}

	switch tok.Kind {
	case TokenOpen:
		if err := ps.group(tok); err != nil {
			return err
		}
	case TokenIdent:
		if err := ps.identifier(tok); err != nil {
			return err
		}
	case TokenEquals:
		if ps.nesting != 0 {
			return UnexpectedEqualsSign.with(tok.Range)
		}
		if ps.equals >= 0 {
			return UnexpectedSecondEqualsSign.with(tok.Range)
		}
		ps.equals = len(ps.result)
		ps.equalsRange = tok.Range
	case TokenObject:
		if err := ps.object(tok); err != nil {
			return err
		}
	case TokenQuestion:
		ps.push(AstNode{Kind: NodeUnknown, Range: tok.Range})
	case TokenDecimal, TokenHex, TokenBinary:
		if err := ps.literal(tok); err != nil {
			return err
		}
	default:
		op, ok := operators[tok.Kind]
		if !ok {
			return Nothing.with(tok.Range)
		}
		ps.push(AstNode{Kind: NodeOperator, Op: op, Range: tok.Range})
	}
	ps.last = tok.Kind
	return nil
}

// verify checks that tok may follow the previous token.
func (ps *parser) verify(tok Token) error {
	if tok.Kind == TokenClose {
		return MissingClosingBracket.with(tok.Range)
	}
	k, last := tok.Kind, ps.last
	allowed := true
	kind := Nothing
	if last != tokenNone {
		if last != TokenIn && k.isFormat() {
			allowed = false
		}
		switch {
		case last.isNumber():
			if k.isLiteral() {
				allowed = false
			}
			kind = ExpectedOperator
		case last == TokenIn:
			// Conversions name a target unit instead of a format.
			if !k.isFormat() && k != TokenIdent {
				allowed = false
			}
			kind = ExpectedFormat
		case last.isOperator():
			if k.isOperator() || k == TokenPercent {
				allowed = false
			}
			kind = ExpectedNumber
		case last.isFormat():
			if !k.isOperator() {
				allowed = false
			}
			kind = ExpectedOperator
		}
	} else {
		if k == TokenPercent || k.isFormat() || k.isOperator() {
			allowed = false
		}
		switch {
		case k.isOperator() || k == TokenPercent:
			kind = ExpectedNumber
		case k.isFormat():
			kind = ExpectedIn
		}
	}
	if last != tokenNone && ps.i == len(ps.toks) {
		if k.isOperator() {
			allowed = false
		}
		if !k.isNumber() {
			kind = ExpectedNumber
		}
	}
	if !allowed {
		return kind.with(tok.Range)
	}
	return nil
}

// push appends a node, attaching any pending prefix modifiers.
func (ps *parser) push(n AstNode) {
	if len(ps.pending) > 0 {
		n.Modifiers = append(ps.pending, n.Modifiers...)
		n.Range = n.Range.Cover(ps.pendingAt)
		ps.pending = nil
	}
	ps.result = append(ps.result, n)
}

// implicit inserts a multiplication if the previous token ends an operand.
func (ps *parser) implicit(at int) {
	if ps.last.isNumber() {
		ps.result = append(ps.result, AstNode{Kind: NodeOperator, Op: OpMultiply, Implicit: true, Range: Range{at, at + 1}})
	}
}

// match finds the index of the bracket closing the one at open.
func (ps *parser) match(open int) int {
	depth := 0
	for i := open; i < len(ps.toks); i++ {
		switch ps.toks[i].Kind {
		case TokenOpen:
			depth++
		case TokenClose:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (ps *parser) group(open Token) error {
	end := ps.match(ps.i - 1)
	if end < 0 {
		return MissingClosingBracket.with(open.Range)
	}
	r := open.Range.Cover(ps.toks[end].Range)
	inner := ps.toks[ps.i:end]
	ps.i = end + 1
	ps.implicit(open.Range.Start)
	if len(inner) == 0 {
		ps.push(AstNode{Kind: NodeLiteral, Number: 0, Range: r})
		return nil
	}
	ast, err := ps.sub(inner)
	if err != nil {
		return err
	}
	ps.push(AstNode{Kind: NodeGroup, Group: ast, Range: r})
	return nil
}

func (ps *parser) identifier(tok Token) error {
	name := tok.Text
	if name == ps.p.forbid {
		return CantUseIdentifierInDefinition.with(tok.Range)
	}
	if ps.last == TokenIn {
		if ps.p.isVar(name) || !ps.p.isUnit(name) {
			return ExpectedFormat.with(tok.Range)
		}
		u, r := ps.unit(tok)
		ps.result = append(ps.result, AstNode{Kind: NodeLiteral, Number: 1, Unit: u, Range: r})
		return nil
	}
	if ps.p.isVar(name) {
		ps.implicit(tok.Range.Start)
		ps.push(AstNode{Kind: NodeVariable, Name: name, Range: tok.Range})
		return nil
	}
	if fn := ps.p.fn(name); fn != nil {
		ps.implicit(tok.Range.Start)
		return ps.call(tok, fn)
	}
	if ps.p.isUnit(name) {
		if !ps.last.isNumber() || len(ps.result) == 0 {
			return UnexpectedUnit.with(tok.Range)
		}
		u, r := ps.unit(tok)
		n := &ps.result[len(ps.result)-1]
		if n.Unit == nil {
			n.Unit = u
		} else {
			n.Unit = PushUnit(n.Unit, u)
		}
		n.Range = n.Range.Cover(r)
		return nil
	}
	return UnknownVariable.withDetail(tok.Range, name)
}

// call parses a function call. A niladic function followed by a single
// bracketed term is a multiplication by that term.
func (ps *parser) call(tok Token, fn Func) error {
	if ps.i >= len(ps.toks) || ps.toks[ps.i].Kind != TokenOpen {
		if !fn.CanCall(0) {
			return WrongNumberOfArguments.withDetail(tok.Range, tok.Text)
		}
		ps.push(AstNode{Kind: NodeCall, Name: tok.Text, Range: tok.Range})
		return nil
	}
	open := ps.i
	args, end, err := ps.arguments(open)
	if err != nil {
		return err
	}
	r := tok.Range.Cover(ps.toks[end].Range)
	if !fn.CanCall(len(args)) {
		if len(args) == 1 && fn.CanCall(0) {
			// Leave the bracket for the next token, as an implicit
			// multiplication.
			ps.push(AstNode{Kind: NodeCall, Name: tok.Text, Range: tok.Range})
			return nil
		}
		return WrongNumberOfArguments.withDetail(r, tok.Text)
	}
	ps.i = end + 1
	ps.push(AstNode{Kind: NodeCall, Name: tok.Text, Args: args, Range: r})
	return nil
}

// arguments parses the comma-separated arguments in the brackets starting at
// token index open and returns the index of the closing bracket.
func (ps *parser) arguments(open int) ([][]AstNode, int, error) {
	end := ps.match(open)
	if end < 0 {
		return nil, 0, MissingClosingBracket.with(ps.toks[open].Range)
	}
	if end == open+1 {
		return nil, end, nil
	}
	var args [][]AstNode
	depth, start := 0, open+1
	for i := open + 1; i <= end; i++ {
		switch ps.toks[i].Kind {
		case TokenOpen:
			depth++
			continue
		case TokenClose:
			if depth > 0 {
				depth--
				continue
			}
		case TokenComma:
			if depth > 0 {
				continue
			}
		default:
			continue
		}
		if i == start {
			return nil, 0, ExpectedNumber.with(ps.toks[i].Range)
		}
		arg, err := ps.sub(ps.toks[start:i])
		if err != nil {
			return nil, 0, err
		}
		args = append(args, arg)
		start = i + 1
	}
	return args, end, nil
}

// unit parses a compound unit starting with the identifier tok. Units may be
// raised to integer powers and joined with * and /. Everything after the
// first / is in the denominator.
func (ps *parser) unit(tok Token) (Unit, Range) {
	r := tok.Range
	var num, den Unit
	num = ps.power(Atomic(tok.Text), &r)
	slash := false
	for ps.i+1 < len(ps.toks) {
		op, id := ps.toks[ps.i], ps.toks[ps.i+1]
		if op.Kind != TokenMultiply && op.Kind != TokenDivide || id.Kind != TokenIdent {
			break
		}
		if ps.p.isVar(id.Text) || ps.p.fn(id.Text) != nil || !ps.p.isUnit(id.Text) {
			break
		}
		ps.i += 2
		r = r.Cover(id.Range)
		u := ps.power(Atomic(id.Text), &r)
		if op.Kind == TokenDivide {
			slash = true
		}
		if slash {
			den = pushUnit(den, u)
		} else {
			num = PushUnit(num, u)
		}
	}
	if den != nil {
		return Fraction{Num: num, Den: den}, r
	}
	return num, r
}

// pushUnit is like PushUnit, but flattens products.
func pushUnit(u, other Unit) Unit {
	if p, ok := other.(Product); ok {
		for _, v := range p {
			u = PushUnit(u, v)
		}
		return u
	}
	return PushUnit(u, other)
}

// power parses an optional ^n after a unit, producing a product of n copies.
func (ps *parser) power(u Atomic, r *Range) Unit {
	if ps.i+1 >= len(ps.toks) || ps.toks[ps.i].Kind != TokenPow || ps.toks[ps.i+1].Kind != TokenDecimal {
		return u
	}
	n, err := strconv.Atoi(ps.toks[ps.i+1].Text)
	if err != nil || n < 1 || n > 9 {
		return u
	}
	*r = r.Cover(ps.toks[ps.i+1].Range)
	ps.i += 2
	if n == 1 {
		return u
	}
	p := make(Product, n)
	for i := range p {
		p[i] = u
	}
	return p
}

func (ps *parser) literal(tok Token) error {
	text := strings.ReplaceAll(tok.Text, "_", "")
	var v float64
	switch tok.Kind {
	case TokenDecimal:
		r := tok.Range
		text += ps.exponent(&r)
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return InvalidNumber.withDetail(r, strconv.Quote(tok.Text))
		}
		v = f
		tok.Range = r
	case TokenHex, TokenBinary:
		base := 16
		if tok.Kind == TokenBinary {
			base = 2
		}
		n, err := strconv.ParseUint(text[2:], base, 64)
		if err != nil {
			return InvalidNumber.withDetail(tok.Range, strconv.Quote(tok.Text))
		}
		v = float64(n)
	}
	ps.push(AstNode{Kind: NodeLiteral, Number: v, Range: tok.Range})
	return nil
}

// exponent consumes scientific notation written immediately after a decimal
// literal, e.g. the e-3 in 1.5e-3, and returns its text.
func (ps *parser) exponent(r *Range) string {
	i := ps.i
	if i+1 >= len(ps.toks) {
		return ""
	}
	e := ps.toks[i]
	if e.Kind != TokenIdent || (e.Text != "e" && e.Text != "E") || e.Range.Start != r.End {
		return ""
	}
	sign := ""
	next := ps.toks[i+1]
	if (next.Kind == TokenPlus || next.Kind == TokenMinus) && next.Range.Start == e.Range.End {
		if i+2 >= len(ps.toks) {
			return ""
		}
		sign = next.Text
		next = ps.toks[i+2]
	}
	if next.Kind != TokenDecimal || next.Range.Start != e.Range.End+len(sign) || strings.Contains(next.Text, ".") {
		return ""
	}
	ps.i = i + 2
	if sign != "" {
		ps.i++
	}
	*r = r.Cover(next.Range)
	return "e" + sign + strings.ReplaceAll(next.Text, "_", "")
}

// object parses an object literal. Text within the braces after the object's
// name is split into plain text fragments and bracketed expressions.
func (ps *parser) object(tok Token) error {
	body := tok.Text[1 : len(tok.Text)-1]
	base := tok.Range.Start + 1
	i := len(body) - len(strings.TrimLeft(body, spaceChars))
	j := i
	for j < len(body) && strings.IndexByte(letterChars, body[j]) >= 0 {
		j++
	}
	if i == j {
		return ExpectedIdentifier.with(Range{base + i, base + i + 1})
	}
	name, nameRange := body[i:j], Range{base + i, base + j}
	if !IsObjectName(name) {
		return UnknownObject.withDetail(nameRange, name)
	}
	for j < len(body) && strings.IndexByte(spaceChars, body[j]) >= 0 {
		j++
	}

	var args []ObjectArgument
	textStart := j
	flush := func(end int) {
		if end > textStart {
			args = append(args, ObjectArgument{Text: body[textStart:end], Range: Range{base + textStart, base + end}})
		}
	}
	for k := j; k < len(body); k++ {
		switch body[k] {
		case ')':
			return MissingOpeningBracket.with(Range{base + k, base + k + 1})
		case '(':
			end := matchParen(body, k)
			if end < 0 {
				return MissingClosingBracket.with(Range{base + k, base + k + 1})
			}
			flush(k)
			r := Range{base + k, base + end + 1}
			ast, err := ps.objectArgument(body[k+1:end], base+k+1)
			if err != nil {
				return err
			}
			if len(ast) == 0 {
				return ExpectedNumber.with(r)
			}
			args = append(args, ObjectArgument{AST: ast, Range: r})
			k = end
			textStart = end + 1
		}
	}
	flush(len(body))

	obj, err := ParseObject(name, nameRange, args, ps.p.objectContext(), tok.Range)
	if err != nil {
		return err
	}
	ps.push(objectNode(obj, tok.Range))
	return nil
}

// objectArgument tokenizes and parses an expression inside an object literal
// whose text begins at offset off in the line.
func (ps *parser) objectArgument(text string, off int) ([]AstNode, error) {
	toks, err := Tokenize(text)
	if err != nil {
		if e, ok := err.(*Error); ok {
			return nil, e.shift(off)
		}
		return nil, err
	}
	for i := range toks {
		toks[i].Range = toks[i].Range.Shift(off)
	}
	return ps.sub(toks)
}

// matchParen finds the index of the parenthesis closing the one at s[open].
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
