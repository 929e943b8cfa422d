package linecalc_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/zephyrtronium/linecalc"
)

func TestParseFlat(t *testing.T) {
	p, err := linecalc.ParseString("1 - 3 + 4 * 5 / 6")
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != linecalc.Calculation {
		t.Errorf("wrong kind: want Calculation, got %v", p.Kind)
	}
	nums := []float64{1, 3, 4, 5, 6}
	ops := []linecalc.Operator{linecalc.OpMinus, linecalc.OpPlus, linecalc.OpMultiply, linecalc.OpDivide}
	if len(p.AST) != len(nums)+len(ops) {
		t.Fatalf("wrong number of nodes: %s", linecalc.FormatAST(p.AST))
	}
	for i, n := range p.AST {
		if i%2 == 0 {
			if n.Kind != linecalc.NodeLiteral || n.Number != nums[i/2] {
				t.Errorf("node %d: want literal %g, got %v", i, nums[i/2], &n)
			}
			continue
		}
		if n.Kind != linecalc.NodeOperator || n.Op != ops[i/2] || n.Implicit {
			t.Errorf("node %d: want operator %v, got %v", i, ops[i/2], &n)
		}
	}
}

func TestParseModifiers(t *testing.T) {
	p, err := linecalc.ParseString("2! + 3% + !4 + 3!%")
	if err != nil {
		t.Fatal(err)
	}
	want := [][]linecalc.Modifier{
		{linecalc.Factorial},
		{linecalc.Percent},
		{linecalc.BitwiseNot},
		{linecalc.Factorial, linecalc.Percent},
	}
	for i, w := range want {
		n := p.AST[2*i]
		if !reflect.DeepEqual(n.Modifiers, w) {
			t.Errorf("operand %d: want modifiers %v, got %v", i, w, n.Modifiers)
		}
	}
	if r := p.AST[4].Range; r.Start != 10 || r.End != 12 {
		t.Errorf("prefix modifier should widen range to 10..12, got %v", r)
	}
}

func TestParseNodes(t *testing.T) {
	cases := []struct {
		name string
		src  string
		opts []linecalc.ParseOption
		want string
	}{
		{"implicit-group", "2 (3 + 4)", nil, "2 × (3 + 4)"},
		{"nested-groups", "2 (3 (4))", nil, "2 × (3 × [4])"},
		{"empty-group", "()", nil, "0"},
		{"implicit-var", "2 x", []linecalc.ParseOption{linecalc.ParseVars("x")}, "2 × x"},
		{"call", "sqrt(16)", nil, "sqrt(16)"},
		{"call-args", "log(8, 2)", nil, "log(8, 2)"},
		{"niladic", "pi", nil, "pi()"},
		{"niladic-bracket", "pi(2)", nil, "pi() × (2)"},
		{"scientific", "1.5e-3", nil, "0.0015"},
		{"scientific-plus", "2E+2", nil, "200"},
		{"underscore", "1_000", nil, "1000"},
		{"hex", "0xff", nil, "255"},
		{"binary", "0b1_01", nil, "5"},
		{"unit", "5 km", nil, "5 km"},
		{"unit-fraction", "2 km/h", nil, "2 km/h"},
		{"unit-power", "3 m^2", nil, "3 m*m"},
		{"unit-product", "4 N*m", nil, "4 N*m"},
		{"conversion", "5 km in m", nil, "5 km in 1 m"},
		{"format", "255 in hex", nil, "255 in hex"},
		{"format-group", "(1 + 2) in binary", nil, "(1 + 2) in binary"},
		{"unknown", "?", nil, "?"},
		{"disabled", "sqrt", []linecalc.ParseOption{linecalc.DisableDefaultFuncs(), linecalc.ParseVars("sqrt")}, "sqrt"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := linecalc.ParseString(c.src, c.opts...)
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			if got := linecalc.FormatAST(p.AST); got != c.want {
				t.Errorf("%q parsed wrong: want %q, got %q", c.src, c.want, got)
			}
		})
	}
}

func TestParseUnits(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want linecalc.Unit
	}{
		{"atomic", "1 m", linecalc.Atomic("m")},
		{"prefixed", "1 km", linecalc.Atomic("km")},
		{"fraction", "1 km/h", linecalc.Fraction{Num: linecalc.Atomic("km"), Den: linecalc.Atomic("h")}},
		{"power", "1 m^3", linecalc.Product{linecalc.Atomic("m"), linecalc.Atomic("m"), linecalc.Atomic("m")}},
		{"denominator-product", "1 m/s/s", linecalc.Fraction{Num: linecalc.Atomic("m"), Den: linecalc.Product{linecalc.Atomic("s"), linecalc.Atomic("s")}}},
		{"degrees", "20 °C", linecalc.Atomic("°C")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := linecalc.ParseString(c.src)
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			if len(p.AST) != 1 {
				t.Fatalf("%q: want one node, got %s", c.src, linecalc.FormatAST(p.AST))
			}
			if !reflect.DeepEqual(p.AST[0].Unit, c.want) {
				t.Errorf("%q: want unit %#v, got %#v", c.src, c.want, p.AST[0].Unit)
			}
			if p.AST[0].Range.End != len(c.src) {
				t.Errorf("%q: range %v should cover the unit", c.src, p.AST[0].Range)
			}
		})
	}
}

func TestParseEquality(t *testing.T) {
	p, err := linecalc.ParseString("x + 1 = ?", linecalc.ParseVars("x"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != linecalc.EqualityCheck {
		t.Fatalf("wrong kind: want EqualityCheck, got %v", p.Kind)
	}
	if got := linecalc.FormatAST(p.AST); got != "x + 1" {
		t.Errorf("wrong lhs %q", got)
	}
	if len(p.RHS) != 1 || p.RHS[0].Kind != linecalc.NodeUnknown {
		t.Errorf("wrong rhs %s", linecalc.FormatAST(p.RHS))
	}
}

func TestParseDefinition(t *testing.T) {
	cases := []struct {
		name string
		src  string
		def  linecalc.Def
		body string
	}{
		{"var", "x := 5", linecalc.Def{Name: "x", Range: linecalc.Range{Start: 0, End: 1}}, "5"},
		{"func", "f(x, y) := x y", linecalc.Def{Name: "f", Range: linecalc.Range{Start: 0, End: 1}, Func: true, Params: []string{"x", "y"}}, "x × y"},
		{"niladic", "g() := 2", linecalc.Def{Name: "g", Range: linecalc.Range{Start: 0, End: 1}, Func: true, Params: []string{}}, "2"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := linecalc.ParseString(c.src)
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			if p.Kind != linecalc.Definition {
				t.Fatalf("%q: want Definition, got %v", c.src, p.Kind)
			}
			if !reflect.DeepEqual(*p.Def, c.def) {
				t.Errorf("%q: want def %+v, got %+v", c.src, c.def, *p.Def)
			}
			if got := linecalc.FormatAST(p.AST); got != c.body {
				t.Errorf("%q: want body %q, got %q", c.src, c.body, got)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		kind  linecalc.ErrorKind
		start int
		end   int
	}{
		{"two-numbers", "2 3 + 4", linecalc.ExpectedOperator, 2, 3},
		{"trailing-op", "2 +", linecalc.ExpectedNumber, 2, 3},
		{"double-op", "2 ++ 4", linecalc.ExpectedNumber, 3, 4},
		{"percent", "%", linecalc.ExpectedNumber, 0, 1},
		{"leading-op", "* 2", linecalc.ExpectedNumber, 0, 1},
		{"dangling-not", "2 + !", linecalc.ExpectedNumber, 4, 5},
		{"close", ")", linecalc.MissingClosingBracket, 0, 1},
		{"close-after", "1 + 2)", linecalc.MissingClosingBracket, 5, 6},
		{"open", "(1 + 2", linecalc.MissingClosingBracket, 0, 1},
		{"second-equals", "1 = 2 = 3", linecalc.UnexpectedSecondEqualsSign, 6, 7},
		{"nested-equals", "(1 = 2)", linecalc.UnexpectedEqualsSign, 3, 4},
		{"empty-side", "= 2", linecalc.ExpectedNumber, 0, 1},
		{"unknown", "foo", linecalc.UnknownVariable, 0, 3},
		{"arity-none", "sqrt", linecalc.WrongNumberOfArguments, 0, 4},
		{"arity-many", "sqrt(1, 2)", linecalc.WrongNumberOfArguments, 0, 10},
		{"empty-arg", "log(1, )", linecalc.ExpectedNumber, 7, 8},
		{"comma", "1, 2", linecalc.UnexpectedComma, 1, 2},
		{"in-number", "5 in 3", linecalc.ExpectedFormat, 5, 6},
		{"in-unknown", "5 in foo", linecalc.ExpectedFormat, 5, 8},
		{"format-alone", "hex", linecalc.ExpectedIn, 0, 3},
		{"format-after-number", "5 hex + 1", linecalc.ExpectedOperator, 2, 5},
		{"unit-alone", "km", linecalc.UnexpectedUnit, 0, 2},
		{"bad-hex", "0x", linecalc.InvalidNumber, 0, 2},
		{"object-name", "{foo 1}", linecalc.UnknownObject, 1, 4},
		{"object-no-name", "{ 1}", linecalc.ExpectedIdentifier, 2, 3},
		{"object-close", "{date 1.2)}", linecalc.MissingOpeningBracket, 9, 10},
		{"object-open", "{date 1.2.(3}", linecalc.MissingClosingBracket, 10, 11},
		{"object-empty-arg", "{date 1.2.()}", linecalc.ExpectedNumber, 10, 12},
		{"object-arg-error", "{date 1.2.(3 +)}", linecalc.ExpectedNumber, 13, 14},
		{"date-short", "{date 1.2}", linecalc.ExpectedElements, 9, 10},
		{"def-recursive", "f(x) := f(x)", linecalc.CantUseIdentifierInDefinition, 8, 9},
		{"def-duplicate", "f(x, x) := x", linecalc.DuplicateArgument, 5, 6},
		{"def-name", "1 := 2", linecalc.ExpectedIdentifier, 0, 1},
		{"def-empty", "x :=", linecalc.ExpectedNumber, 2, 4},
		{"def-equals", "x := 1 = 2", linecalc.UnexpectedEqualsSign, 7, 8},
		{"def-nested", "x := (1 := 2)", linecalc.UnexpectedDefinition, 8, 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := linecalc.ParseString(c.src)
			if err == nil {
				t.Fatalf("%q parsed without error: %s", c.src, linecalc.FormatAST(p.AST))
			}
			var e *linecalc.Error
			if !errors.As(err, &e) {
				t.Fatalf("%q gave wrong error: want *Error, got %#v", c.src, err)
			}
			if e.Kind != c.kind || e.Start != c.start || e.End != c.end {
				t.Errorf("%q gave wrong error: want %v at %d..%d, got %v (%v)", c.src, c.kind, c.start, c.end, e.Kind, e.Range())
			}
		})
	}
}

func TestParsingPreset(t *testing.T) {
	preset := linecalc.ParsingPreset(linecalc.ParseVars("x", "y"))
	p, err := linecalc.ParseString("x y", preset, linecalc.ParseVars("z"))
	if err != nil {
		t.Fatal(err)
	}
	if got := linecalc.FormatAST(p.AST); got != "x × y" {
		t.Errorf("wrong parse %q", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("preset after options didn't panic")
		}
	}()
	linecalc.ParseString("x", linecalc.ParseVars("z"), preset)
}

func FuzzParse(f *testing.F) {
	f.Add("1 - 3 + 4 * 5 / 6")
	f.Add("2! + 3% + !4 + 3!%")
	f.Add("{date 15.(1).2023} - {date now}")
	f.Add("f(x) := x^2 km/h in m/s")
	f.Fuzz(func(t *testing.T, s string) {
		_, err := linecalc.ParseString(s)
		if err == nil {
			return
		}
		var e *linecalc.Error
		if !errors.As(err, &e) {
			t.Fatalf("error %#v is not *Error", err)
		}
		if e.Start < 0 || e.End > len(s)+1 {
			t.Fatalf("error range %v outside %q", e.Range(), s)
		}
	})
}
