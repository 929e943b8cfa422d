package linecalc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fortio.org/safecast"
)

// Date is a calendar date without a time of day.
type Date struct {
	// days is the number of days since 1970-01-01.
	days int64
}

const (
	minYear   = -262144
	maxYear   = 262143
	nsPerDay  = 24 * 60 * 60 * 1e9
	secPerDay = 24 * 60 * 60
)

var (
	minDays = time.Date(minYear, time.January, 1, 0, 0, 0, 0, time.UTC).Unix() / secPerDay
	maxDays = time.Date(maxYear, time.December, 31, 0, 0, 0, 0, time.UTC).Unix() / secPerDay
)

// timeNow is the clock used to resolve {date now}.
var timeNow = time.Now

// NewDate returns the date with the given fields. The second result is false
// if the fields do not form a valid date within the supported range.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if year < minYear || year > maxYear {
		return Date{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{days: t.Unix() / secPerDay}, true
}

// Today returns the current local date.
func Today() Date {
	y, m, d := timeNow().Date()
	r, _ := NewDate(y, m, d)
	return r
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time {
	return time.Unix(d.days*secPerDay, 0).UTC()
}

// Days returns the number of days since 1970-01-01.
func (d Date) Days() int64 {
	return d.days
}

func (Date) isObject() {}

// Callable returns false. Dates cannot be called.
func (Date) Callable() bool {
	return false
}

// Call panics.
func (Date) Call(Range, []NumberArg, Range) (AstNode, error) {
	panic("linecalc: call of date object")
}

// Format renders the date in the field order and delimiter of the settings.
func (d Date) Format(s *Settings) string {
	y, m, day := d.Time().Date()
	ys := fmt.Sprintf("%04d", y)
	if y < 0 {
		ys = fmt.Sprintf("-%04d", -y)
	}
	ms, ds := fmt.Sprintf("%02d", int(m)), fmt.Sprintf("%02d", day)
	sep := s.Date.Delimiter
	switch s.Date.Format {
	case MDY:
		return ms + sep + ds + sep + ys
	case YMD:
		return ys + sep + ms + sep + ds
	default:
		return ds + sep + ms + sep + ys
	}
}

// Apply adds a duration to the date, subtracts a duration from it, or finds
// the number of days between two dates.
func (d Date) Apply(self Range, op Operator, opRange Range, other *AstNode, selfIsRHS bool) (AstNode, error) {
	full := self.Cover(other.Range)
	switch op {
	case OpPlus:
		if other.Kind != NodeLiteral {
			return AstNode{}, InvalidSide.with(other.Range)
		}
		days, err := durationDays(other)
		if err != nil {
			return AstNode{}, err
		}
		r, ok := d.addDays(days)
		if !ok {
			return AstNode{}, DateTooBig.with(full)
		}
		return objectNode(r, full), nil
	case OpMinus:
		switch other.Kind {
		case NodeLiteral:
			if selfIsRHS {
				return AstNode{}, WrongOrder.withMultiple(other.Range, self)
			}
			days, err := durationDays(other)
			if err != nil {
				return AstNode{}, err
			}
			r, ok := d.addDays(-days)
			if !ok {
				return AstNode{}, DateTooBig.with(full)
			}
			return objectNode(r, full), nil
		case NodeObject:
			o, ok := other.Object.(Date)
			if !ok {
				return AstNode{}, InvalidSide.with(other.Range)
			}
			diff := d.days - o.days
			if selfIsRHS {
				diff = -diff
			}
			return AstNode{Kind: NodeLiteral, Number: float64(diff), Unit: Atomic("d"), Range: full}, nil
		}
		return AstNode{}, InvalidSide.with(other.Range)
	}
	return AstNode{}, UnsupportedOperation.with(opRange)
}

func (d Date) addDays(n int64) (Date, bool) {
	if n > maxDays-minDays || n < minDays-maxDays {
		return Date{}, false
	}
	r := d.days + n
	if r < minDays || r > maxDays {
		return Date{}, false
	}
	return Date{days: r}, true
}

// durationDays converts a literal with a time unit to whole days, truncating
// toward zero.
func durationDays(n *AstNode) (int64, error) {
	if n.Unit == nil {
		return 0, ExpectedTimeValue.with(n.Range)
	}
	ns, err := DefaultUnits.Convert(n.Unit, Atomic("ns"), n.Number, nil, n.Range)
	if err != nil {
		return 0, ExpectedTimeValue.with(n.Range)
	}
	days, err := safecast.Truncate[int64](ns / nsPerDay)
	if err != nil {
		return 0, DateTooBig.with(n.Range)
	}
	return days, nil
}

// parseDate builds a date from object literal arguments. A lone "now" gives
// the current date. Otherwise the text arguments are split on the configured
// delimiter, and expression arguments may stand in for any field as long as
// delimiters separate them from their neighbors.
func parseDate(given []ObjectArgument, ctx *Context, full Range) (Date, error) {
	if len(given) == 0 {
		return Date{}, ExpectedElements.with(full)
	}
	if first := &given[0]; !first.IsAST() {
		s := strings.TrimSpace(first.Text)
		if strings.HasPrefix(strings.ToLower(s), "now") {
			lead := len(first.Text) - len(strings.TrimLeft(first.Text, " \t\r\n"))
			start := first.Range.Start + lead
			if len(s) > 3 {
				return Date{}, UnexpectedElements.with(Range{start + 3, start + len(s)})
			}
			if len(given) > 1 {
				return Date{}, UnexpectedElements.with(given[1].Range.Cover(given[len(given)-1].Range))
			}
			return Today(), nil
		}
	}
	if len(given) > 5 {
		return Date{}, UnexpectedElements.with(given[5].Range.Cover(given[len(given)-1].Range))
	}

	settings := ctx.Settings()
	args := make([]ObjectArgument, 0, 3)
	for _, arg := range given {
		if arg.IsAST() {
			args = append(args, arg)
			continue
		}
		args = append(args, splitArgument(arg, settings.Date.Delimiter)...)
	}

	// Expression arguments must sit where a delimiter would be, and the empty
	// fragments beside them are consumed.
	empty := func(a *ObjectArgument) bool { return !a.IsAST() && a.Text == "" }
	for i := 0; i < len(args); i++ {
		if !args[i].IsAST() {
			continue
		}
		if i != len(args)-1 {
			if !empty(&args[i+1]) {
				end := args[i].Range.End
				return Date{}, ExpectedDot.with(Range{end, end + 1})
			}
			args = append(args[:i+1], args[i+2:]...)
		}
		if i != 0 {
			if !empty(&args[i-1]) {
				start := args[i].Range.Start
				return Date{}, ExpectedDot.with(Range{start - 1, start})
			}
			args = append(args[:i-1], args[i:]...)
			i--
		}
	}
	for i := range args {
		if empty(&args[i]) {
			return Date{}, ExpectedElements.with(args[i].Range)
		}
	}
	switch {
	case len(args) > 3:
		return Date{}, UnexpectedElements.with(args[3].Range.Cover(args[len(args)-1].Range))
	case len(args) < 3:
		end := args[len(args)-1].Range.End
		return Date{}, ExpectedElements.with(Range{end, end + 1})
	}

	yi, mi, di := settings.Date.Format.Indices()
	year, err := dateField(&args[yi], ctx)
	if err != nil {
		return Date{}, err
	}
	month, err := dateField(&args[mi], ctx)
	if err != nil {
		return Date{}, err
	}
	m, err := safecast.Conv[uint32](month)
	if err != nil {
		return Date{}, NotU32.withDetail(args[mi].Range, strconv.FormatInt(int64(month), 10))
	}
	day, err := dateField(&args[di], ctx)
	if err != nil {
		return Date{}, err
	}
	dd, err := safecast.Conv[uint32](day)
	if err != nil {
		return Date{}, NotU32.withDetail(args[di].Range, strconv.FormatInt(int64(day), 10))
	}
	if m > 12 || dd > 31 {
		return Date{}, InvalidDate.with(args[0].Range.Cover(args[2].Range))
	}
	r, ok := NewDate(int(year), time.Month(m), int(dd))
	if !ok {
		return Date{}, InvalidDate.with(args[0].Range.Cover(args[2].Range))
	}
	return r, nil
}

// splitArgument splits a text argument on delim. Each piece is trimmed of
// surrounding whitespace with its range adjusted to match. An empty piece
// has a one-byte range at its position.
func splitArgument(arg ObjectArgument, delim string) []ObjectArgument {
	pieces := strings.Split(arg.Text, delim)
	r := make([]ObjectArgument, 0, len(pieces))
	off := arg.Range.Start
	for _, p := range pieces {
		rg := Range{off, off + len(p)}
		off += len(p) + len(delim)
		t := strings.TrimLeft(p, " \t\r\n")
		rg.Start += len(p) - len(t)
		s := strings.TrimRight(t, " \t\r\n")
		rg.End -= len(t) - len(s)
		if s == "" {
			rg.End = rg.Start + 1
		}
		r = append(r, ObjectArgument{Text: s, Range: rg})
	}
	return r
}

// dateField resolves one field of a date to an integer.
func dateField(arg *ObjectArgument, ctx *Context) (int32, error) {
	if !arg.IsAST() {
		n, err := strconv.ParseInt(arg.Text, 10, 32)
		if err != nil {
			return 0, InvalidNumber.withDetail(arg.Range, strconv.Quote(arg.Text))
		}
		return int32(n), nil
	}
	v, err := ctx.Evaluate(arg.AST)
	if err != nil {
		return 0, err
	}
	if v.Object != nil {
		return 0, ExpectedNumber.with(arg.Range)
	}
	if v.Number != math.Trunc(v.Number) {
		return 0, ExpectedInteger.withDetail(arg.Range, strconv.FormatFloat(v.Number, 'g', -1, 64))
	}
	n, err := safecast.Convert[int32](v.Number)
	if err != nil {
		return 0, ExpectedInteger.withDetail(arg.Range, strconv.FormatFloat(v.Number, 'g', -1, 64))
	}
	return n, nil
}
