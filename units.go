package linecalc

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unit is a compound unit expression. It is one of Atomic, Product, or
// Fraction. A nil Unit means no unit.
type Unit interface {
	isUnit()
}

// Atomic is a single named unit, possibly with an SI prefix, or a currency.
type Atomic string

// Product is a multiplicative combination of units, in order.
type Product []Unit

// Fraction is a ratio of units.
type Fraction struct {
	Num, Den Unit
}

func (Atomic) isUnit()   {}
func (Product) isUnit()  {}
func (Fraction) isUnit() {}

// PushUnit combines u with other left to right. Atomic and Product units
// append other into a Product. A Fraction receives other into its numerator,
// unless other is also a Fraction, in which case numerators and denominators
// are combined pairwise.
func PushUnit(u, other Unit) Unit {
	switch u := u.(type) {
	case nil:
		return other
	case Atomic:
		return Product{u, other}
	case Product:
		r := make(Product, len(u), len(u)+1)
		copy(r, u)
		return append(r, other)
	case Fraction:
		if o, ok := other.(Fraction); ok {
			return Fraction{Num: PushUnit(u.Num, o.Num), Den: PushUnit(u.Den, o.Den)}
		}
		return Fraction{Num: PushUnit(u.Num, other), Den: u.Den}
	default:
		panic("linecalc: invalid unit")
	}
}

// FormatUnit renders a unit using DefaultUnits. See UnitTable.Format.
func FormatUnit(u Unit, full, plural bool) string {
	return DefaultUnits.Format(u, full, plural)
}

// Convert converts n from src to dst using DefaultUnits.
func Convert(src, dst Unit, n float64, currencies *Currencies, r Range) (float64, error) {
	return DefaultUnits.Convert(src, dst, n, currencies, r)
}

// prefixes maps SI prefixes to their powers of ten.
var prefixes = [19]struct {
	p     rune
	power int
}{
	{'y', -24}, {'z', -21}, {'a', -18}, {'f', -15}, {'p', -12}, {'n', -9}, {'m', -3}, {'c', -2}, {'d', -1},
	{0, 0},
	{'h', 2}, {'k', 3}, {'M', 6}, {'G', 9}, {'T', 12}, {'P', 15}, {'E', 18}, {'Z', 21}, {'Y', 24},
}

var prefixNames = map[rune]string{
	'y': "Yocto", 'z': "Zepto", 'a': "Atto", 'f': "Femto", 'p': "Pico",
	'n': "Nano", 'm': "Milli", 'c': "Centi", 'd': "Deci",
	'h': "Hecto", 'k': "Kilo", 'M': "Mega", 'G': "Giga", 'T': "Tera",
	'P': "Peta", 'E': "Exa", 'Z': "Zetta", 'Y': "Yotta",
}

// PrefixPower returns the power of ten of an SI prefix.
func PrefixPower(p rune) (int, bool) {
	for _, e := range prefixes {
		if e.p == p {
			return e.power, true
		}
	}
	return 0, false
}

// PrefixName returns the capitalized name of an SI prefix, e.g. "Kilo".
func PrefixName(p rune) (string, bool) {
	s, ok := prefixNames[p]
	return s, ok
}

// unitDef is an atomic unit in a UnitTable. A value n in the unit is
// n*factor + offset in the base unit of its dimension.
type unitDef struct {
	dim        string
	factor     float64
	offset     float64
	prefixable bool
	singular   string
	plural     string
}

// UnitTable is a registry of atomic units. The zero value has no units.
type UnitTable struct {
	units map[string]unitDef
}

// DefaultUnits is the built-in unit registry.
var DefaultUnits = NewUnitTable()

// NewUnitTable creates a registry with the built-in units.
func NewUnitTable() *UnitTable {
	t := &UnitTable{units: make(map[string]unitDef, len(builtinUnits))}
	for name, u := range builtinUnits {
		t.units[name] = u
	}
	return t
}

// Add registers an atomic unit. A value n in the new unit is n*factor in the
// named base unit, which must already be registered.
func (t *UnitTable) Add(name, base string, factor float64, singular, plural string) bool {
	b, ok := t.units[base]
	if !ok {
		return false
	}
	t.units[name] = unitDef{dim: b.dim, factor: b.factor * factor, singular: singular, plural: plural}
	return true
}

func si(dim, singular, plural string) unitDef {
	return unitDef{dim: dim, factor: 1, prefixable: true, singular: singular, plural: plural}
}

func scaled(dim string, factor float64, singular, plural string) unitDef {
	return unitDef{dim: dim, factor: factor, singular: singular, plural: plural}
}

var builtinUnits = map[string]unitDef{
	// length
	"m":    si("length", "Meter", "Meters"),
	"inch": scaled("length", 0.0254, "Inch", "Inches"),
	"ft":   scaled("length", 0.3048, "Foot", "Feet"),
	"yd":   scaled("length", 0.9144, "Yard", "Yards"),
	"mi":   scaled("length", 1609.344, "Mile", "Miles"),
	"nmi":  scaled("length", 1852, "Nautical Mile", "Nautical Miles"),
	// mass
	"g":  si("mass", "Gram", "Grams"),
	"t":  scaled("mass", 1e6, "Tonne", "Tonnes"),
	"lb": scaled("mass", 453.59237, "Pound", "Pounds"),
	"oz": scaled("mass", 28.349523125, "Ounce", "Ounces"),
	// time
	"s":   si("time", "Second", "Seconds"),
	"min": scaled("time", 60, "Minute", "Minutes"),
	"h":   scaled("time", 3600, "Hour", "Hours"),
	"d":   scaled("time", 86400, "Day", "Days"),
	"w":   scaled("time", 604800, "Week", "Weeks"),
	"mo":  scaled("time", 2629746, "Month", "Months"),
	"y":   scaled("time", 31556952, "Year", "Years"),
	// temperature
	"K":  si("temperature", "Kelvin", "Kelvin"),
	"°C": {dim: "temperature", factor: 1, offset: 273.15, singular: "Degree Celsius", plural: "Degrees Celsius"},
	"°F": {dim: "temperature", factor: 5.0 / 9, offset: 459.67 * 5 / 9, singular: "Degree Fahrenheit", plural: "Degrees Fahrenheit"},
	// data
	"B":   si("data", "Byte", "Bytes"),
	"bit": {dim: "data", factor: 0.125, prefixable: true, singular: "Bit", plural: "Bits"},
	// volume
	"l":   si("volume", "Liter", "Liters"),
	"gal": scaled("volume", 3.785411784, "Gallon", "Gallons"),
	// angle
	"rad": scaled("angle", 1, "Radian", "Radians"),
	"°":   scaled("angle", math.Pi/180, "Degree", "Degrees"),
	// derived
	"A":   si("current", "Ampere", "Amperes"),
	"V":   si("voltage", "Volt", "Volts"),
	"J":   si("energy", "Joule", "Joules"),
	"cal": {dim: "energy", factor: 4.184, prefixable: true, singular: "Calorie", plural: "Calories"},
	"W":   si("power", "Watt", "Watts"),
	"N":   si("force", "Newton", "Newtons"),
	"Pa":  si("pressure", "Pascal", "Pascals"),
	"bar": {dim: "pressure", factor: 1e5, prefixable: true, singular: "Bar", plural: "Bars"},
	"Hz":  si("frequency", "Hertz", "Hertz"),
	// dimensionless numerator of e.g. 1/h
	"1": scaled("", 1, "", ""),
}

// lookup finds an atomic unit, accounting for SI prefixes.
func (t *UnitTable) lookup(name string) (unitDef, bool) {
	if u, ok := t.units[name]; ok {
		return u, true
	}
	p, sz := utf8.DecodeRuneInString(name)
	if sz == len(name) {
		return unitDef{}, false
	}
	power, ok := PrefixPower(p)
	if !ok || p == 0 {
		return unitDef{}, false
	}
	u, ok := t.units[name[sz:]]
	if !ok || !u.prefixable {
		return unitDef{}, false
	}
	u.factor *= math.Pow10(power)
	u.offset = 0
	return u, true
}

// IsUnit reports whether name is a known unit, with or without a prefix, or
// a currency in currencies.
func (t *UnitTable) IsUnit(name string, currencies *Currencies) bool {
	if currencies.Has(name) {
		return true
	}
	_, ok := t.lookup(name)
	return ok
}

// FullName returns the full name of an atomic unit, e.g. "Kilometers".
func (t *UnitTable) FullName(name string, plural bool) string {
	pick := func(u unitDef) string {
		if plural {
			return u.plural
		}
		return u.singular
	}
	if u, ok := t.units[name]; ok {
		return pick(u)
	}
	if u, ok := t.lookup(name); ok {
		p, _ := utf8.DecodeRuneInString(name)
		pn, _ := PrefixName(p)
		return pn + lowerFirst(pick(u))
	}
	return name
}

var lower = cases.Lower(language.Und)

// lowerFirst lowercases the first rune of s.
func lowerFirst(s string) string {
	_, sz := utf8.DecodeRuneInString(s)
	return lower.String(s[:sz]) + s[sz:]
}

// Format renders a unit. The abbreviated form joins products with * and
// fractions with /, parenthesizing non-atomic parts of fractions. The full
// form uses unit names and renders fractions as "a per b". A product names
// its first and last units, lowercasing the first letter of the last; the
// units between are written only for products of four or more units.
func (t *UnitTable) Format(u Unit, full, plural bool) string {
	switch u := u.(type) {
	case nil:
		return ""
	case Atomic:
		if full {
			return t.FullName(string(u), plural)
		}
		return string(u)
	case Product:
		if len(u) == 0 {
			return ""
		}
		if !full {
			s := make([]string, len(u))
			for i, v := range u {
				s[i] = t.Format(v, false, plural)
			}
			return strings.Join(s, "*")
		}
		var b strings.Builder
		b.WriteString(t.Format(u[0], true, false))
		if len(u) > 3 {
			for _, v := range u[1 : len(u)-1] {
				b.WriteString(lowerFirst(t.Format(v, true, false)))
			}
		}
		if len(u) >= 2 {
			b.WriteString(lowerFirst(t.Format(u[len(u)-1], true, plural)))
		}
		return b.String()
	case Fraction:
		if full {
			return t.Format(u.Num, true, plural) + " per " + t.Format(u.Den, true, false)
		}
		return t.fmtpart(u.Num, plural) + "/" + t.fmtpart(u.Den, plural)
	default:
		panic("linecalc: invalid unit")
	}
}

func (t *UnitTable) fmtpart(u Unit, plural bool) string {
	if _, ok := u.(Atomic); ok {
		return t.Format(u, false, plural)
	}
	return "(" + t.Format(u, false, plural) + ")"
}

// Convert converts n from src to dst. The two units must have the same
// shape. Products convert pairwise in order, threading the value through each
// step. Fractions convert the numerator normally and divide by the scale of
// the denominator, found by converting 1.
func (t *UnitTable) Convert(src, dst Unit, n float64, currencies *Currencies, r Range) (float64, error) {
	switch s := src.(type) {
	case Product:
		d, ok := dst.(Product)
		if !ok || len(d) != len(s) {
			return 0, UnitsNotMatching.with(r)
		}
		for i := range s {
			var err error
			n, err = t.Convert(s[i], d[i], n, currencies, r)
			if err != nil {
				return 0, err
			}
		}
		return n, nil
	case Fraction:
		d, ok := dst.(Fraction)
		if !ok {
			return 0, UnitsNotMatching.with(r)
		}
		num, err := t.Convert(s.Num, d.Num, n, currencies, r)
		if err != nil {
			return 0, err
		}
		den, err := t.Convert(s.Den, d.Den, 1, currencies, r)
		if err != nil {
			return 0, err
		}
		return num / den, nil
	case Atomic:
		d, ok := dst.(Atomic)
		if !ok {
			return 0, UnitsNotMatching.with(r)
		}
		return t.convertAtomic(string(s), string(d), n, currencies, r)
	default:
		return 0, UnitsNotMatching.with(r)
	}
}

func (t *UnitTable) convertAtomic(src, dst string, n float64, currencies *Currencies, r Range) (float64, error) {
	if src == dst {
		return n, nil
	}
	if currencies.Has(src) && currencies.Has(dst) {
		return currencies.Convert(src, dst, n), nil
	}
	s, ok := t.lookup(src)
	if !ok {
		return 0, UnknownConversion.withDetail(r, src+" -> "+dst)
	}
	d, ok := t.lookup(dst)
	if !ok || d.dim != s.dim {
		return 0, UnknownConversion.withDetail(r, src+" -> "+dst)
	}
	return (n*s.factor + s.offset - d.offset) / d.factor, nil
}
