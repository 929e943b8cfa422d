// Package linecalc implements a line-oriented calculator with units, dates,
// and vectors.
//
// A line is tokenized, parsed into a mostly flat AST, and evaluated in a
// Context. The syntax is meant to be close to what you'd write in notes:
// "2 km + 300 m in m" is a conversion, "5! + 10%" applies modifiers,
// "0xff in binary" changes the display format, and adjacent operands such as
// "2 (3 + 4)" multiply. Object literals in braces create dates, as in
// "{date 15.01.2023} + 5 d". Vectors come from the vec function and can be
// indexed by calling them, as in "vec(1, 2, 3)(0)".
//
// A line may also be an equality check, "a = b", or a definition, "x := 5" or
// "f(x) := x^2". Context.Calculate handles all three and remembers the last
// result in the variable ans.
//
// Every error caused by input is an *Error carrying the byte range of the
// source text responsible for it.
package linecalc
