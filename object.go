package linecalc

import (
	"cmp"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// CalculatorObject is a non-numeric value taking part in calculations. The set
// of objects is closed: every CalculatorObject is a Date or a Vector.
type CalculatorObject interface {
	// Apply applies a binary operator with the object as one operand. self is
	// the source range of the object, and other is the reduced operand on the
	// other side. selfIsRHS reports whether the object is the right operand.
	Apply(self Range, op Operator, opRange Range, other *AstNode, selfIsRHS bool) (AstNode, error)
	// Call calls the object with a list of numeric arguments. It panics if
	// the object is not Callable.
	Call(self Range, args []NumberArg, argsRange Range) (AstNode, error)
	// Callable reports whether the object may be called like a function.
	Callable() bool
	// Format renders the object for display.
	Format(s *Settings) string

	isObject()
}

// NumberArg is a numeric argument to an object call.
type NumberArg struct {
	Number float64
	Unit   Unit
	Range  Range
}

// ObjectArgument is one argument to an object literal. It is either a
// parenthesized expression, in which case AST is non-nil, or a fragment of
// plain text.
type ObjectArgument struct {
	AST   []AstNode
	Text  string
	Range Range
}

// IsAST reports whether the argument is an expression rather than text.
func (a *ObjectArgument) IsAST() bool {
	return a.AST != nil
}

// IsObjectName reports whether name is the name of an object that can be
// written as an object literal.
func IsObjectName(name string) bool {
	switch name {
	case "date":
		return true
	}
	return false
}

// ParseObject constructs an object from an object literal. nameRange is the
// range of the object's name and full is the range of the whole literal.
// Expressions in args are evaluated using ctx.
func ParseObject(name string, nameRange Range, args []ObjectArgument, ctx *Context, full Range) (CalculatorObject, error) {
	switch name {
	case "date":
		return parseDate(args, ctx, full)
	}
	return nil, UnknownObject.withDetail(nameRange, name)
}

// Compare orders two objects of the same kind. If the objects are different
// kinds or are unordered, e.g. vectors containing NaN, the second result is
// false.
func Compare(a, b CalculatorObject) (int, bool) {
	switch a := a.(type) {
	case Date:
		b, ok := b.(Date)
		if !ok {
			return 0, false
		}
		return cmp.Compare(a.days, b.days), true
	case Vector:
		b, ok := b.(Vector)
		if !ok {
			return 0, false
		}
		for i := 0; i < len(a) && i < len(b); i++ {
			if a[i] != b[i] {
				if a[i] < b[i] {
					return -1, true
				}
				if a[i] > b[i] {
					return 1, true
				}
				return 0, false
			}
		}
		return cmp.Compare(len(a), len(b)), true
	}
	return 0, false
}

// objectRecord is the serialized form of an object.
type objectRecord struct {
	Kind   string    `msgpack:"kind"`
	Days   int64     `msgpack:"days,omitempty"`
	Vector []float64 `msgpack:"vector,omitempty"`
}

func recordOf(obj CalculatorObject) (objectRecord, error) {
	switch obj := obj.(type) {
	case Date:
		return objectRecord{Kind: "date", Days: obj.days}, nil
	case Vector:
		return objectRecord{Kind: "vector", Vector: []float64(obj)}, nil
	}
	return objectRecord{}, fmt.Errorf("linecalc: cannot serialize object of type %T", obj)
}

func (r *objectRecord) object() (CalculatorObject, error) {
	switch r.Kind {
	case "date":
		if r.Days < minDays || r.Days > maxDays {
			return nil, fmt.Errorf("linecalc: serialized date %d out of range", r.Days)
		}
		return Date{days: r.Days}, nil
	case "vector":
		return Vector(r.Vector), nil
	}
	return nil, fmt.Errorf("linecalc: unknown serialized object kind %q", r.Kind)
}

// MarshalObject serializes an object with msgpack.
func MarshalObject(obj CalculatorObject) ([]byte, error) {
	r, err := recordOf(obj)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&r)
}

// UnmarshalObject deserializes an object serialized with MarshalObject.
func UnmarshalObject(b []byte) (CalculatorObject, error) {
	var r objectRecord
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("linecalc: reading object: %w", err)
	}
	return r.object()
}

// objectNode creates an AST node holding an object.
func objectNode(obj CalculatorObject, r Range) AstNode {
	return AstNode{Kind: NodeObject, Object: obj, Range: r}
}
