package linecalc

import (
	"math"
	"strconv"
	"strings"
)

// Vector is an ordered list of numbers. Vectors have no literal syntax; they
// are produced by the vec function.
type Vector []float64

func (Vector) isObject() {}

// Callable returns true. Calling a vector with an index gives the element at
// that index.
func (Vector) Callable() bool {
	return true
}

// Length returns the Euclidean length of the vector.
func (v Vector) Length() float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

// Format renders the vector as [a; b; c].
func (v Vector) Format(s *Settings) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(formatDecimal(x, s.Display.Precision))
	}
	b.WriteByte(']')
	return b.String()
}

// Apply scales the vector by a number without a unit, or adds or subtracts another vector of
// the same length elementwise.
func (v Vector) Apply(self Range, op Operator, opRange Range, other *AstNode, selfIsRHS bool) (AstNode, error) {
	full := self.Cover(other.Range)
	switch op {
	case OpMultiply:
		if other.Kind != NodeLiteral || other.Unit != nil {
			return AstNode{}, ExpectedNumber.with(other.Range)
		}
		r := make(Vector, len(v))
		for i, x := range v {
			r[i] = x * other.Number
		}
		return objectNode(r, full), nil
	case OpPlus, OpMinus:
		o, ok := other.Object.(Vector)
		if other.Kind != NodeObject || !ok {
			return AstNode{}, ExpectedVector.with(other.Range)
		}
		if len(v) != len(o) {
			return AstNode{}, VectorLengthsNotMatching.withMultiple(self, other.Range)
		}
		r := make(Vector, len(v))
		for i, x := range v {
			switch {
			case op == OpPlus:
				r[i] = x + o[i]
			case selfIsRHS:
				r[i] = o[i] - x
			default:
				r[i] = x - o[i]
			}
		}
		return objectNode(r, full), nil
	}
	return AstNode{}, UnsupportedOperation.with(opRange)
}

// Call indexes the vector. An index outside the vector gives NaN.
func (v Vector) Call(self Range, args []NumberArg, argsRange Range) (AstNode, error) {
	if len(args) != 1 {
		return AstNode{}, WrongNumberOfArguments.withDetail(argsRange, "want 1")
	}
	n := args[0].Number
	if n != math.Trunc(n) {
		return AstNode{}, ExpectedInteger.withDetail(args[0].Range, strconv.FormatFloat(n, 'g', -1, 64))
	}
	r := AstNode{Kind: NodeLiteral, Number: math.NaN(), Range: self.Cover(argsRange)}
	if n >= 0 && n < float64(len(v)) {
		r.Number = v[int(n)]
	}
	return r, nil
}
