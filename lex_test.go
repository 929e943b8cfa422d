package linecalc_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/zephyrtronium/linecalc"
)

type tk struct {
	kind  linecalc.TokenKind
	text  string
	start int
	end   int
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []tk
	}{
		{"empty", "", nil},
		{"space", " \t \r\n ", nil},
		{"literals", "3 0x0123456789 0xABCdef 0b110", []tk{
			{linecalc.TokenDecimal, "3", 0, 1},
			{linecalc.TokenHex, "0x0123456789", 2, 14},
			{linecalc.TokenHex, "0xABCdef", 15, 23},
			{linecalc.TokenBinary, "0b110", 24, 29},
		}},
		{"operators", "+ - * /", []tk{
			{linecalc.TokenPlus, "+", 0, 1},
			{linecalc.TokenMinus, "-", 2, 3},
			{linecalc.TokenMultiply, "*", 4, 5},
			{linecalc.TokenDivide, "/", 6, 7},
		}},
		{"decimal", "1.5", []tk{{linecalc.TokenDecimal, "1.5", 0, 3}}},
		{"leading-dot", ".25", []tk{{linecalc.TokenDecimal, ".25", 0, 3}}},
		{"underscores", "1_000", []tk{{linecalc.TokenDecimal, "1_000", 0, 5}}},
		{"scientific", "1e2", []tk{
			{linecalc.TokenDecimal, "1", 0, 1},
			{linecalc.TokenIdent, "e", 1, 2},
			{linecalc.TokenDecimal, "2", 2, 3},
		}},
		{"shifts", "1<<2>>3", []tk{
			{linecalc.TokenDecimal, "1", 0, 1},
			{linecalc.TokenShiftLeft, "<<", 1, 3},
			{linecalc.TokenDecimal, "2", 3, 4},
			{linecalc.TokenShiftRight, ">>", 4, 6},
			{linecalc.TokenDecimal, "3", 6, 7},
		}},
		{"define", "x := 1", []tk{
			{linecalc.TokenIdent, "x", 0, 1},
			{linecalc.TokenDefine, ":=", 2, 4},
			{linecalc.TokenDecimal, "1", 5, 6},
		}},
		{"modifiers", "!3!%", []tk{
			{linecalc.TokenBang, "!", 0, 1},
			{linecalc.TokenDecimal, "3", 1, 2},
			{linecalc.TokenBang, "!", 2, 3},
			{linecalc.TokenPercent, "%", 3, 4},
		}},
		{"keywords", "5 MOD 2 of x In hex", []tk{
			{linecalc.TokenDecimal, "5", 0, 1},
			{linecalc.TokenMod, "MOD", 2, 5},
			{linecalc.TokenDecimal, "2", 6, 7},
			{linecalc.TokenOf, "of", 8, 10},
			{linecalc.TokenIdent, "x", 11, 12},
			{linecalc.TokenIn, "In", 13, 15},
			{linecalc.TokenFormatHex, "hex", 16, 19},
		}},
		{"sci", "sci scientific decimal binary", []tk{
			{linecalc.TokenFormatScientific, "sci", 0, 3},
			{linecalc.TokenFormatScientific, "scientific", 4, 14},
			{linecalc.TokenFormatDecimal, "decimal", 15, 22},
			{linecalc.TokenFormatBinary, "binary", 23, 29},
		}},
		{"ident-digits", "x2y", []tk{{linecalc.TokenIdent, "x2y", 0, 3}}},
		{"apostrophe", "f'", []tk{{linecalc.TokenIdent, "f'", 0, 2}}},
		{"degree", "°C", []tk{{linecalc.TokenIdent, "°C", 0, 3}}},
		{"object", "{date 1.2.3} + 1", []tk{
			{linecalc.TokenObject, "{date 1.2.3}", 0, 12},
			{linecalc.TokenPlus, "+", 13, 14},
			{linecalc.TokenDecimal, "1", 15, 16},
		}},
		{"punctuation", "(=,?)", []tk{
			{linecalc.TokenOpen, "(", 0, 1},
			{linecalc.TokenEquals, "=", 1, 2},
			{linecalc.TokenComma, ",", 2, 3},
			{linecalc.TokenQuestion, "?", 3, 4},
			{linecalc.TokenClose, ")", 4, 5},
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			toks, err := linecalc.Tokenize(c.src)
			if err != nil {
				t.Fatalf("%q failed to tokenize: %v", c.src, err)
			}
			if len(toks) != len(c.want) {
				t.Fatalf("%q gave wrong number of tokens: want %d, got %v", c.src, len(c.want), toks)
			}
			for i, want := range c.want {
				got := toks[i]
				if got.Kind != want.kind || got.Text != want.text || got.Range.Start != want.start || got.Range.End != want.end {
					t.Errorf("%q token %d: want %v %q at %d..%d, got %v", c.src, i, want.kind, want.text, want.start, want.end, got)
				}
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		kind  linecalc.ErrorKind
		start int
		end   int
	}{
		{"dollar", "$", linecalc.InvalidCharacter, 0, 1},
		{"after", "1 + $", linecalc.InvalidCharacter, 4, 5},
		{"multibyte", "1 é", linecalc.InvalidCharacter, 2, 4},
		{"less", "1 < 2", linecalc.InvalidCharacter, 2, 3},
		{"greater", "1 > 2", linecalc.InvalidCharacter, 2, 3},
		{"colon", "x : 2", linecalc.InvalidCharacter, 2, 3},
		{"lone-degree-byte", "\xc2", linecalc.InvalidCharacter, 0, 1},
		{"unclosed-object", "1 + {date now", linecalc.MissingClosingBracket, 4, 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := linecalc.Tokenize(c.src)
			var e *linecalc.Error
			if !errors.As(err, &e) {
				t.Fatalf("%q gave wrong error: want *Error, got %#v", c.src, err)
			}
			if e.Kind != c.kind || e.Start != c.start || e.End != c.end {
				t.Errorf("%q gave wrong error: want %v at %d..%d, got %v", c.src, c.kind, c.start, c.end, e)
			}
		})
	}
}

// TestTokenizeRanges checks that token ranges are increasing, cover exactly
// their text, and leave only whitespace between them.
func TestTokenizeRanges(t *testing.T) {
	srcs := []string{
		"1 - 3 + 4 * 5 / 6",
		"  2 km + 300 m in m  ",
		"sqrt(16) + log(8, 2)\t* pi",
		"{date 15 . 01 . (2000 + 23)} - {date now}",
		"x := 0b1010 & 0xff | 7 << 1",
	}
	for _, src := range srcs {
		toks, err := linecalc.Tokenize(src)
		if err != nil {
			t.Errorf("%q failed to tokenize: %v", src, err)
			continue
		}
		var b strings.Builder
		prev := 0
		for _, tok := range toks {
			if tok.Range.Start < prev || tok.Range.End <= tok.Range.Start {
				t.Errorf("%q: token %v out of order", src, tok)
			}
			gap := src[prev:tok.Range.Start]
			if strings.TrimSpace(gap) != "" {
				t.Errorf("%q: non-space %q before %v", src, gap, tok)
			}
			if src[tok.Range.Start:tok.Range.End] != tok.Text {
				t.Errorf("%q: token %v text doesn't match its range", src, tok)
			}
			b.WriteString(gap)
			b.WriteString(tok.Text)
			prev = tok.Range.End
		}
		b.WriteString(src[prev:])
		if b.String() != src {
			t.Errorf("reconstructed %q as %q", src, b.String())
		}
	}
}

func FuzzTokenize(f *testing.F) {
	f.Add("3 0x0123456789 0xABCdef 0b110")
	f.Add("{date now} + 5 d")
	f.Add("°F in °C")
	f.Fuzz(func(t *testing.T, s string) {
		toks, err := linecalc.Tokenize(s)
		if err != nil {
			var e *linecalc.Error
			if !errors.As(err, &e) {
				t.Fatalf("error %#v is not *Error", err)
			}
			if e.Start < 0 || e.End > len(s) || e.Start >= e.End {
				t.Fatalf("error range %v outside %q", e.Range(), s)
			}
			return
		}
		prev := 0
		for _, tok := range toks {
			if tok.Range.Start < prev || tok.Range.End > len(s) || s[tok.Range.Start:tok.Range.End] != tok.Text {
				t.Fatalf("bad token %v in %q", tok, s)
			}
			prev = tok.Range.End
		}
	})
}
