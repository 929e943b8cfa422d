package linecalc_test

import (
	"math"
	"testing"

	"github.com/zephyrtronium/linecalc"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"num", "1", "1"},
		{"flat", "1 - 3 + 4 * 5 / 6", "1.33333333333"},
		{"precedence", "2 + 3 * 4", "14"},
		{"left-assoc", "10 - 4 - 3", "3"},
		{"div-assoc", "24 / 4 / 3", "2"},
		{"pow-assoc", "2 ^ 3 ^ 2", "512"},
		{"pow-over-mul", "2 * 3 ^ 2", "18"},
		{"group", "(2 + 3) * 4", "20"},
		{"implicit", "2 (3 + 4)", "14"},
		{"implicit-precedence", "1 + 2 (3)", "7"},
		{"empty-group", "5 + ()", "5"},
		{"mod", "10 mod 3", "1"},
		{"and", "6 & 3", "2"},
		{"or", "6 | 3", "7"},
		{"and-over-or", "1 | 2 & 3", "3"},
		{"shift-left", "1 << 4", "16"},
		{"shift-right", "256 >> 4", "16"},
		{"shift-under-plus", "1 << 2 + 1", "8"},
		{"factorial", "5!", "120"},
		{"factorial-group", "(2 + 1)!", "6"},
		{"not", "!5", "-6"},
		{"percent", "50%", "0.5"},
		{"percent-add", "200 + 10%", "220"},
		{"percent-sub", "200 - 10%", "180"},
		{"percent-of", "20% of 50", "10"},
		{"floats", "0.1 + 0.2", "0.3"},
		{"scientific-literal", "1.5e3 + 1", "1501"},
		{"hex-literal", "0xff + 0b1", "256"},
		{"underscore", "1_000_000", "1000000"},
		{"hex", "255 in hex", "0xFF"},
		{"hex-negative", "(0 - 255) in hex", "-0xFF"},
		{"hex-fraction", "2.5 in hex", "2.5"},
		{"binary", "5 in binary", "0b101"},
		{"scientific", "1234.5 in sci", "1.2345e+03"},
		{"decimal", "0xff in decimal", "255"},
		{"decimal-over-hex", "(255 in hex) in decimal", "255"},
		{"hex-sum", "(255 in hex) + 1", "0x100"},
		{"huge", "10 ^ 30", "1e+30"},
		{"tiny", "10 ^ (0 - 9)", "1e-09"},
		{"inf", "2 ^ 2000", "inf"},
		{"pi", "pi", "3.14159265359"},
		{"e", "e", "2.71828182846"},
		{"two-pi", "2 pi", "6.28318530718"},
		{"niladic-bracket", "pi(2)", "6.28318530718"},
		{"sqrt", "sqrt(16)", "4"},
		{"exp", "exp(0)", "1"},
		{"ln", "ln(e)", "1"},
		{"log", "log(1000)", "3"},
		{"log-base", "log(8, 2)", "3"},
		{"sin-degrees", "sin(90 °)", "1"},
		{"cos", "cos(0)", "1"},
		{"atan", "atan(1) * 4", "3.14159265359"},
		{"abs", "abs(0 - 5 m)", "5 m"},
		{"floor", "floor(2.7)", "2"},
		{"ceil", "ceil(2.1)", "3"},
		{"round", "round(2.5)", "3"},
		{"unit", "5 km", "5 km"},
		{"unit-add", "2 km + 300 m", "2.3 km"},
		{"unit-convert", "2 km + 300 m in m", "2300 m"},
		{"unit-into", "5 in m", "5 m"},
		{"temperature", "100 °C in °F", "212 °F"},
		{"speed", "36 km/h in m/s", "10 m/s"},
		{"time", "1.5 h in min", "90 min"},
		{"product", "3 m * 2 m", "6 m*m"},
		{"power", "(2 m)^2", "4 m*m"},
		{"power-unit", "3 m^2 in cm^2", "30000 cm*cm"},
		{"fraction", "6 m / 2 s", "3 m/s"},
		{"cancel", "6 km / 2 m", "3000"},
		{"per", "1 / 2 s", "0.5 1/s"},
		{"scale", "3 * 2 km", "6 km"},
		{"unit-mod", "1 m mod 30 cm", "0.1 m"},
		{"unit-percent", "10% of 50 km", "5 km"},
		{"equal", "5 = 5", "true"},
		{"equal-units", "1 km = 1000 m", "true"},
		{"equal-tolerance", "0.1 + 0.2 = 0.3", "true"},
		{"not-equal", "1 = 2", "false"},
		{"solve", "3 + 4 = ?", "7"},
		{"blank", "   ", ""},
	}
	ctx := linecalc.NewContext()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := ctx.Clone()
			r, err := ctx.Calculate(c.src)
			if err != nil {
				t.Fatalf("%q: %v", c.src, err)
			}
			if got := ctx.Render(r); got != c.want {
				t.Errorf("%q: want %q, got %q", c.src, c.want, got)
			}
		})
	}
}

func TestCalculateErrors(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		kind  linecalc.ErrorKind
		start int
		end   int
	}{
		{"div-zero", "1 / 0", linecalc.DivideByZero, 4, 5},
		{"mod-zero", "5 mod 0", linecalc.DivideByZero, 6, 7},
		{"unknown", "x + 1", linecalc.UnknownVariable, 0, 1},
		{"question", "? + 1", linecalc.UnexpectedQuestionMark, 0, 1},
		{"and-fraction", "1.5 & 1", linecalc.ExpectedInteger, 0, 3},
		{"not-fraction", "!1.5", linecalc.ExpectedInteger, 0, 4},
		{"shift-range", "1 << 64", linecalc.InvalidArguments, 5, 7},
		{"of", "2 of 3", linecalc.ExpectedPercentage, 0, 1},
		{"sqrt", "sqrt(0 - 1)", linecalc.NotANumber, 0, 11},
		{"log", "log(0 - 1)", linecalc.NotANumber, 0, 10},
		{"log-base", "log(2, 1)", linecalc.NotANumber, 0, 9},
		{"factorial", "(0 - 2)!", linecalc.NotANumber, 0, 8},
		{"add-units", "5 m + 2 s", linecalc.UnknownConversion, 0, 9},
		{"convert", "5 m in s", linecalc.UnknownConversion, 0, 8},
		{"convert-shape", "5 m in m*m", linecalc.UnitsNotMatching, 0, 10},
		{"convert-expr", "5 m in ft + 1", linecalc.UnitsNotMatching, 7, 13},
		{"convert-product", "5 m in ft * 2", linecalc.UnitsNotMatching, 7, 13},
		{"trig-unit", "sin(5 m)", linecalc.UnknownConversion, 0, 8},
		{"equal-units", "1 m = 1 s", linecalc.UnknownConversion, 0, 9},
		{"reserved-func", "sqrt := 4", linecalc.ReservedFunction, 0, 4},
		{"reserved-var", "ans := 4", linecalc.ReservedVariable, 0, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := linecalc.NewContext().Calculate(c.src)
			wantError(t, c.src, err, c.kind, c.start, c.end)
		})
	}
}

func TestCalculateSession(t *testing.T) {
	steps := []struct {
		src  string
		want string
	}{
		{"x := 5", "x = 5"},
		{"x * 2", "10"},
		{"ans + 1", "11"},
		{"y := x km", "y = 5 km"},
		{"y in m", "5000 m"},
		{"f(a) := a^2", "f(a)"},
		{"f(3)", "9"},
		{"g(a, b) := a + b", "g(a, b)"},
		{"g(1, f(2))", "5"},
		{"f(x) + g(x, 1)", "31"},
		{"h() := 7", "h()"},
		{"h", "7"},
		{"h(2)", "14"},
		{"x := 6", "x = 6"},
		{"f(x)", "36"},
		{"255 in hex", "0xFF"},
		{"ans in decimal", "255"},
		{"z := 255 in hex", "z = 0xFF"},
		{"z in decimal", "255"},
		{"z + 1", "0x100"},
	}
	ctx := linecalc.NewContext()
	for _, s := range steps {
		r, err := ctx.Calculate(s.src)
		if err != nil {
			t.Fatalf("%q: %v", s.src, err)
		}
		if got := ctx.Render(r); got != s.want {
			t.Errorf("%q: want %q, got %q", s.src, s.want, got)
		}
	}
}

func TestCalculateRedefine(t *testing.T) {
	ctx := linecalc.NewContext()
	for _, line := range []string{"k := 3", "k(a) := a + 1"} {
		if _, err := ctx.Calculate(line); err != nil {
			t.Fatalf("%q: %v", line, err)
		}
	}
	if _, ok := ctx.Lookup("k"); ok {
		t.Error("defining a function didn't remove the variable")
	}
	r, err := ctx.Calculate("k(1)")
	if err != nil {
		t.Fatal(err)
	}
	if r.Value.Number != 2 {
		t.Errorf("want 2, got %v", r.Value)
	}
	if _, err := ctx.Calculate("k := 4"); err != nil {
		t.Fatal(err)
	}
	if ctx.Func("k") != nil {
		t.Error("defining a variable didn't remove the function")
	}
}

func TestCalculateRecursion(t *testing.T) {
	ctx := linecalc.NewContext()
	for _, line := range []string{"a(x) := x", "b(x) := a(x)", "a(x) := b(x)"} {
		if _, err := ctx.Calculate(line); err != nil {
			t.Fatalf("%q: %v", line, err)
		}
	}
	_, err := ctx.Calculate("a(1)")
	wantError(t, "a(1)", err, linecalc.InvalidArguments, 0, 4)
}

func TestEvaluateVars(t *testing.T) {
	p, err := linecalc.ParseString("x^2 + y", linecalc.ParseVars("x", "y"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := linecalc.NewContext(linecalc.SetVar("y", linecalc.Value{Number: 1}))
	for _, x := range []float64{0, 1, 2, 3} {
		ctx := ctx.Clone(linecalc.SetVar("x", linecalc.Value{Number: x}))
		v, err := ctx.Evaluate(p.AST)
		if err != nil {
			t.Fatal(err)
		}
		if v.Number != x*x+1 {
			t.Errorf("x=%g: want %g, got %g", x, x*x+1, v.Number)
		}
	}
	if _, err := ctx.Evaluate(p.AST); err == nil {
		t.Error("no error for missing variable")
	}
	if _, err := ctx.Evaluate(nil); err == nil {
		t.Error("no error for empty calculation")
	}
}

func TestContextOptions(t *testing.T) {
	s := linecalc.DefaultSettings()
	s.Display.FullUnits = true
	s.Display.Precision = 3
	units := linecalc.NewUnitTable()
	units.Add("furlong", "m", 201.168, "Furlong", "Furlongs")
	c, err := linecalc.NewCurrencies("EUR", map[string]float64{"USD": 1.25})
	if err != nil {
		t.Fatal(err)
	}
	ctx := linecalc.NewContext(
		linecalc.WithSettings(s),
		linecalc.WithUnits(units),
		linecalc.WithCurrencies(c),
		linecalc.Prec(128),
		linecalc.SetVars(map[string]linecalc.Value{"z": {Number: 2}}),
		linecalc.WithFuncs(map[string]linecalc.Func{"sqrt": nil}),
	)
	if ctx.Prec() != 128 || ctx.Settings() != s || ctx.Units() != units || ctx.Currencies() != c {
		t.Error("options not applied")
	}
	cases := []struct {
		src  string
		want string
	}{
		{"10 furlong in km", "2.01 Kilometers"},
		{"1 furlong", "1 Furlong"},
		{"4 EUR in USD", "5 USD"},
		{"1 / 3", "0.333"},
		{"z", "2"},
		{"36 km/h in m/s", "10 Meters per Second"},
	}
	for _, c := range cases {
		r, err := ctx.Calculate(c.src)
		if err != nil {
			t.Errorf("%q: %v", c.src, err)
			continue
		}
		if got := ctx.Render(r); got != c.want {
			t.Errorf("%q: want %q, got %q", c.src, c.want, got)
		}
	}
	if _, err := ctx.Calculate("sqrt(4)"); err == nil {
		t.Error("removed function still callable")
	}
}

func TestFormatDecimal(t *testing.T) {
	cases := []struct {
		v    linecalc.Value
		want string
	}{
		{linecalc.Value{Number: 0}, "0"},
		{linecalc.Value{Number: math.Copysign(0, -1)}, "0"},
		{linecalc.Value{Number: 1e21}, "1e+21"},
		{linecalc.Value{Number: 123456789}, "123456789"},
		{linecalc.Value{Number: 2.0 / 3}, "0.666666666667"},
		{linecalc.Value{Number: math.NaN()}, "NaN"},
		{linecalc.Value{Number: math.Inf(-1)}, "-inf"},
		{linecalc.Value{Number: 2, Unit: linecalc.Atomic("km")}, "2 km"},
		{linecalc.Value{Number: 10, Format: linecalc.FormatBinary}, "0b1010"},
		{linecalc.Value{Object: linecalc.Vector{1, 2}}, "[1; 2]"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("%#v: want %q, got %q", c.v, c.want, got)
		}
	}
}

func FuzzCalculate(f *testing.F) {
	f.Add("1 - 3 + 4 * 5 / 6")
	f.Add("2 km + 300 m in m")
	f.Add("{date 15.01.2023} + 5 d")
	f.Add("vec(1, 2, 3)(1)")
	f.Add("f(x) := x^2")
	f.Add("5! + 10% in hex")
	f.Fuzz(func(t *testing.T, s string) {
		ctx := linecalc.NewContext()
		r, err := ctx.Calculate(s)
		if err != nil {
			if _, ok := err.(*linecalc.Error); !ok {
				t.Fatalf("error %#v is not *Error", err)
			}
			return
		}
		ctx.Render(r)
	})
}
