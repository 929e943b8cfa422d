package linecalc

import (
	"strconv"
	"strings"
)

// AstNode is a node in the abstract syntax tree of a calculation. The tree is
// mostly flat: a calculation is a list of operands separated by operators,
// and only groups, function arguments, and object arguments nest.
type AstNode struct {
	Kind NodeKind

	// Number is the value of a NodeLiteral.
	Number float64
	// Op is the operator of a NodeOperator.
	Op Operator
	// Implicit marks a multiplication operator the parser inserted between
	// adjacent operands.
	Implicit bool
	// Name is the identifier of a NodeVariable or NodeCall.
	Name string
	// Args are the arguments of a NodeCall.
	Args [][]AstNode
	// Group is the contents of a NodeGroup.
	Group []AstNode
	// Object is the value of a NodeObject.
	Object CalculatorObject

	// Range is the source text that produced the node, including brackets.
	Range Range
	// Modifiers are applied to the operand in order.
	Modifiers []Modifier
	// Unit is the unit attached to the operand, or nil.
	Unit Unit
	// Format is the display format requested for the operand.
	Format Format
}

// NodeKind is the kind of data an AstNode holds.
type NodeKind int8

const (
	NodeNone NodeKind = iota

	NodeLiteral  // Number
	NodeOperator // Op
	NodeVariable // Name
	NodeCall     // Name(Args...)
	NodeGroup    // (Group)
	NodeObject   // Object
	NodeUnknown  // ?
)

var nodeNames = [...]string{"None", "Literal", "Operator", "Variable", "Call", "Group", "Object", "Unknown"}

func (k NodeKind) String() string {
	if k < 0 || int(k) >= len(nodeNames) {
		return "NodeKind(" + strconv.Itoa(int(k)) + ")"
	}
	return nodeNames[k]
}

// Operator is a binary operator.
type Operator int8

const (
	OpPlus Operator = iota
	OpMinus
	OpMultiply
	OpDivide
	OpExponentiation
	OpBitwiseAnd
	OpBitwiseOr
	OpShiftLeft
	OpShiftRight
	OpModulo
	OpOf
	OpIn
)

var opText = [...]string{"+", "-", "*", "/", "^", "&", "|", "<<", ">>", "mod", "of", "in"}

func (op Operator) String() string {
	if op < 0 || int(op) >= len(opText) {
		return "Operator(" + strconv.Itoa(int(op)) + ")"
	}
	return opText[op]
}

// operators maps operator tokens to their operators.
var operators = map[TokenKind]Operator{
	TokenPlus:       OpPlus,
	TokenMinus:      OpMinus,
	TokenMultiply:   OpMultiply,
	TokenDivide:     OpDivide,
	TokenPow:        OpExponentiation,
	TokenAnd:        OpBitwiseAnd,
	TokenOr:         OpBitwiseOr,
	TokenShiftLeft:  OpShiftLeft,
	TokenShiftRight: OpShiftRight,
	TokenMod:        OpModulo,
	TokenOf:         OpOf,
	TokenIn:         OpIn,
}

// Modifier is a unary decoration on an operand.
type Modifier int8

const (
	Factorial Modifier = iota
	Percent
	BitwiseNot
)

func (m Modifier) String() string {
	switch m {
	case Factorial:
		return "Factorial"
	case Percent:
		return "Percent"
	case BitwiseNot:
		return "BitwiseNot"
	}
	return "Modifier(" + strconv.Itoa(int(m)) + ")"
}

// Format is a display radix or notation for a result. FormatNone means no
// format was requested, which displays as decimal.
type Format int8

const (
	FormatNone Format = iota
	FormatDecimal
	FormatHex
	FormatBinary
	FormatScientific
)

func (f Format) String() string {
	switch f {
	case FormatNone:
		return "none"
	case FormatDecimal:
		return "decimal"
	case FormatHex:
		return "hex"
	case FormatBinary:
		return "binary"
	case FormatScientific:
		return "scientific"
	}
	return "Format(" + strconv.Itoa(int(f)) + ")"
}

var formats = map[TokenKind]Format{
	TokenFormatDecimal:    FormatDecimal,
	TokenFormatHex:        FormatHex,
	TokenFormatBinary:     FormatBinary,
	TokenFormatScientific: FormatScientific,
}

func (n *AstNode) String() string {
	var b strings.Builder
	n.fmt(&b, false)
	return b.String()
}

// FormatAST renders a flat AST with alternating round and square brackets
// grouping nested terms.
func FormatAST(ast []AstNode) string {
	var b strings.Builder
	fmtlist(&b, ast, false)
	return b.String()
}

func fmtlist(b *strings.Builder, ast []AstNode, square bool) {
	for i := range ast {
		if i > 0 {
			b.WriteByte(' ')
		}
		ast[i].fmt(b, square)
	}
}

func (n *AstNode) fmt(b *strings.Builder, square bool) {
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	for _, m := range n.Modifiers {
		if m == BitwiseNot {
			b.WriteByte('!')
		}
	}
	switch n.Kind {
	case NodeLiteral:
		b.WriteString(strconv.FormatFloat(n.Number, 'g', -1, 64))
	case NodeOperator:
		if n.Implicit {
			b.WriteString("×")
		} else {
			b.WriteString(n.Op.String())
		}
	case NodeVariable:
		b.WriteString(n.Name)
	case NodeCall:
		b.WriteString(n.Name)
		b.WriteByte(l)
		for i, arg := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			fmtlist(b, arg, !square)
		}
		b.WriteByte(r)
	case NodeGroup:
		b.WriteByte(l)
		fmtlist(b, n.Group, !square)
		b.WriteByte(r)
	case NodeObject:
		b.WriteByte('{')
		b.WriteString(n.Object.Format(DefaultSettings()))
		b.WriteByte('}')
	case NodeUnknown:
		b.WriteByte('?')
	default:
		// Invalid nodes use invalid characters.
		b.WriteByte('$')
	}
	for _, m := range n.Modifiers {
		switch m {
		case Factorial:
			b.WriteByte('!')
		case Percent:
			b.WriteByte('%')
		}
	}
	if n.Unit != nil {
		b.WriteByte(' ')
		b.WriteString(FormatUnit(n.Unit, false, false))
	}
	if n.Format != FormatNone {
		b.WriteString(" in ")
		b.WriteString(n.Format.String())
	}
}
