package linecalc

import (
	"strconv"
)

// Range is a half-open range of byte offsets into the source text.
type Range struct {
	Start, End int
}

// Cover returns the smallest range containing both r and s.
func (r Range) Cover(s Range) Range {
	if s.Start < r.Start {
		r.Start = s.Start
	}
	if s.End > r.End {
		r.End = s.End
	}
	return r
}

// Shift moves r right by n bytes.
func (r Range) Shift(n int) Range {
	return Range{r.Start + n, r.End + n}
}

// Len returns the number of bytes in r.
func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	return strconv.Itoa(r.Start) + ".." + strconv.Itoa(r.End)
}

// ErrorKind identifies the kind of failure in an Error.
type ErrorKind int

const (
	// Nothing is not actually an error. It is the kind given when the
	// grammar check rejects a token without a more specific reason.
	Nothing ErrorKind = iota

	// lexical
	InvalidCharacter
	InvalidNumber

	// syntactic
	ExpectedNumber
	ExpectedOperator
	ExpectedIn
	ExpectedFormat
	MissingOpeningBracket
	MissingClosingBracket
	ExpectedIdentifier
	UnknownVariable
	UnknownFunction
	UnknownObject
	UnexpectedEqualsSign
	UnexpectedSecondEqualsSign
	UnexpectedDefinition
	UnexpectedComma
	UnexpectedUnit
	UnexpectedQuestionMark
	WrongNumberOfArguments
	ExpectedElements
	UnexpectedElements
	ExpectedDot
	DuplicateArgument
	ReservedVariable
	ReservedFunction
	CantUseIdentifierInDefinition

	// units
	UnitsNotMatching
	UnknownConversion
	ExpectedTimeValue

	// objects
	InvalidDate
	NotU32
	DateTooBig
	WrongOrder
	VectorLengthsNotMatching
	ExpectedVector
	ExpectedInteger
	UnsupportedOperation
	InvalidSide

	// evaluation
	DivideByZero
	ExpectedPercentage
	NotANumber
	InvalidArguments

	numErrorKinds
)

var errorMessages = [numErrorKinds]string{
	Nothing:                       "invalid token",
	InvalidCharacter:              "invalid character",
	InvalidNumber:                 "could not parse number",
	ExpectedNumber:                "expected number",
	ExpectedOperator:              "expected operator",
	ExpectedIn:                    "expected 'in'",
	ExpectedFormat:                "expected a format (hex/binary/decimal/scientific)",
	MissingOpeningBracket:         "missing opening bracket",
	MissingClosingBracket:         "missing closing bracket",
	ExpectedIdentifier:            "expected an identifier",
	UnknownVariable:               "unknown variable",
	UnknownFunction:               "unknown function",
	UnknownObject:                 "unknown object",
	UnexpectedEqualsSign:          "equals signs are only allowed at the top level",
	UnexpectedSecondEqualsSign:    "second equals sign",
	UnexpectedDefinition:          "definitions are only allowed once at the top level",
	UnexpectedComma:               "unexpected comma",
	UnexpectedUnit:                "unexpected unit",
	UnexpectedQuestionMark:        "a question mark is not allowed here",
	WrongNumberOfArguments:        "wrong number of arguments",
	ExpectedElements:              "expected more elements",
	UnexpectedElements:            "unexpected elements",
	ExpectedDot:                   "expected delimiter",
	DuplicateArgument:             "argument already given",
	ReservedVariable:              "can't redefine standard variable",
	ReservedFunction:              "can't redefine standard function",
	CantUseIdentifierInDefinition: "can't use what's being defined",
	UnitsNotMatching:              "units don't match",
	UnknownConversion:             "unknown conversion",
	ExpectedTimeValue:             "expected a time value",
	InvalidDate:                   "invalid date",
	NotU32:                        "expected a non-negative 32-bit integer",
	DateTooBig:                    "date out of range",
	WrongOrder:                    "wrong order of operands",
	VectorLengthsNotMatching:      "vector lengths don't match",
	ExpectedVector:                "expected vector",
	ExpectedInteger:               "expected an integer",
	UnsupportedOperation:          "unsupported operation",
	InvalidSide:                   "invalid operand for this side",
	DivideByZero:                  "cannot divide by zero",
	ExpectedPercentage:            "expected percentage for 'of' operator",
	NotANumber:                    "not a number",
	InvalidArguments:              "invalid arguments",
}

func (k ErrorKind) String() string {
	if k < 0 || k >= numErrorKinds {
		return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
	}
	return errorMessages[k]
}

// with creates an error of kind k at r.
func (k ErrorKind) with(r Range) *Error {
	return &Error{Kind: k, Start: r.Start, End: r.End}
}

// withMultiple creates an error of kind k whose primary range is the first of
// rs and whose other ranges are the rest.
func (k ErrorKind) withMultiple(rs ...Range) *Error {
	err := k.with(rs[0])
	err.Others = append(err.Others, rs[1:]...)
	return err
}

// withDetail creates an error of kind k at r with extra detail text.
func (k ErrorKind) withDetail(r Range, detail string) *Error {
	err := k.with(r)
	err.Detail = detail
	return err
}

// Error is a failure with the source range responsible for it. Every error
// returned from tokenizing, parsing, converting, or evaluating is an *Error.
// It implements InputError.
type Error struct {
	// Kind is the kind of failure.
	Kind ErrorKind
	// Start and End are the half-open byte range of the primary offending
	// source text.
	Start, End int
	// Others holds additional ranges for errors involving two operands.
	Others []Range
	// Detail is optional extra text, e.g. the offending character.
	Detail string
}

func (err *Error) Error() string {
	msg := err.Kind.String()
	if err.Detail != "" {
		msg += ": " + err.Detail
	}
	return errpos(err.Range(), msg)
}

// Range returns the primary range of the error.
func (err *Error) Range() Range {
	return Range{err.Start, err.End}
}

// Ranges returns the primary range followed by all other ranges.
func (err *Error) Ranges() []Range {
	return append([]Range{err.Range()}, err.Others...)
}

// shift moves all ranges of the error right by n bytes.
func (err *Error) shift(n int) *Error {
	err.Start += n
	err.End += n
	for i := range err.Others {
		err.Others[i] = err.Others[i].Shift(n)
	}
	return err
}

// errpos is a shortcut to create an error message with a range.
func errpos(r Range, msg string) string {
	return r.String() + ": " + msg
}

// InputError is an error with source range information. Every error resulting
// from invalid input implements InputError.
type InputError interface {
	error
	// Range returns the byte range of the source text that caused the error.
	Range() Range
}

var _ InputError = (*Error)(nil)
