package linecalc

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Token is a single lexical token and the range of source text it came from.
type Token struct {
	Kind  TokenKind
	Text  string
	Range Range
}

func (t Token) String() string {
	return t.Kind.String() + ":" + t.Text + "@" + t.Range.String()
}

// TokenKind is the classification of a token.
type TokenKind int

const (
	tokenNone TokenKind = iota

	TokenWhitespace

	// literals
	TokenDecimal
	TokenHex
	TokenBinary

	// brackets
	TokenOpen
	TokenClose

	// operators
	TokenPlus
	TokenMinus
	TokenMultiply
	TokenDivide
	TokenPow
	TokenAnd
	TokenOr
	TokenShiftLeft
	TokenShiftRight
	TokenOf
	TokenIn
	TokenMod

	// modifiers
	TokenBang
	TokenPercent

	// formats
	TokenFormatDecimal
	TokenFormatHex
	TokenFormatBinary
	TokenFormatScientific

	TokenIdent
	TokenComma
	TokenEquals
	TokenDefine
	TokenQuestion
	// TokenObject is a whole {name ...} object literal.
	TokenObject

	numTokenKinds
)

var tokenNames = [numTokenKinds]string{
	tokenNone:             "None",
	TokenWhitespace:       "Whitespace",
	TokenDecimal:          "Decimal",
	TokenHex:              "Hex",
	TokenBinary:           "Binary",
	TokenOpen:             "Open",
	TokenClose:            "Close",
	TokenPlus:             "Plus",
	TokenMinus:            "Minus",
	TokenMultiply:         "Multiply",
	TokenDivide:           "Divide",
	TokenPow:              "Pow",
	TokenAnd:              "And",
	TokenOr:               "Or",
	TokenShiftLeft:        "ShiftLeft",
	TokenShiftRight:       "ShiftRight",
	TokenOf:               "Of",
	TokenIn:               "In",
	TokenMod:              "Mod",
	TokenBang:             "Bang",
	TokenPercent:          "Percent",
	TokenFormatDecimal:    "FormatDecimal",
	TokenFormatHex:        "FormatHex",
	TokenFormatBinary:     "FormatBinary",
	TokenFormatScientific: "FormatScientific",
	TokenIdent:            "Ident",
	TokenComma:            "Comma",
	TokenEquals:           "Equals",
	TokenDefine:           "Define",
	TokenQuestion:         "Question",
	TokenObject:           "Object",
}

func (k TokenKind) String() string {
	if k < 0 || k >= numTokenKinds {
		return "TokenKind(" + strconv.Itoa(int(k)) + ")"
	}
	return tokenNames[k]
}

// isLiteral reports whether k is a literal. A question mark and an object
// follow the same grammar rules as literals.
func (k TokenKind) isLiteral() bool {
	switch k {
	case TokenDecimal, TokenHex, TokenBinary, TokenQuestion, TokenObject:
		return true
	}
	return false
}

// isNumber reports whether k produces or ends an operand.
func (k TokenKind) isNumber() bool {
	return k.isLiteral() || k == TokenOpen || k == TokenClose || k == TokenIdent
}

// isOperator reports whether k is a binary operator. Equals and definition
// signs follow the same rules as operators.
func (k TokenKind) isOperator() bool {
	switch k {
	case TokenPlus, TokenMinus, TokenMultiply, TokenDivide, TokenPow,
		TokenAnd, TokenOr, TokenShiftLeft, TokenShiftRight,
		TokenOf, TokenIn, TokenMod, TokenEquals, TokenDefine:
		return true
	}
	return false
}

func (k TokenKind) isFormat() bool {
	switch k {
	case TokenFormatDecimal, TokenFormatHex, TokenFormatBinary, TokenFormatScientific:
		return true
	}
	return false
}

const (
	numberChars = "0123456789_"
	letterChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_"
	hexChars    = "0123456789abcdefABCDEF_"
	binaryChars = "01_"
	spaceChars  = " \t\r\n"
)

// degree is the UTF-8 encoding of the degree sign, which may start an
// identifier.
const degree = "°"

// apostrophes may trail an identifier, e.g. f'.
var apostrophes = []string{"'", "‘", "’", "`"}

var keywords = map[string]TokenKind{
	"of":         TokenOf,
	"in":         TokenIn,
	"mod":        TokenMod,
	"decimal":    TokenFormatDecimal,
	"hex":        TokenFormatHex,
	"binary":     TokenFormatBinary,
	"scientific": TokenFormatScientific,
	"sci":        TokenFormatScientific,
}

// Tokenize splits text into tokens. Whitespace is dropped from the result.
// The first byte that cannot begin a token produces an error of kind
// InvalidCharacter, with the range widened to the end of its UTF-8 sequence.
func Tokenize(text string) ([]Token, error) {
	var r []Token
	l := lexer{src: text}
	for l.pos < len(l.src) {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenWhitespace {
			continue
		}
		r = append(r, tok)
	}
	return r, nil
}

// lexer is a single forward cursor over the source bytes.
type lexer struct {
	src string
	pos int
}

func (l *lexer) accept(chars string) bool {
	if l.pos < len(l.src) && strings.IndexByte(chars, l.src[l.pos]) >= 0 {
		l.pos++
		return true
	}
	return false
}

func (l *lexer) acceptRun(chars string) int {
	n := 0
	for l.accept(chars) {
		n++
	}
	return n
}

// isNext consumes c if it is the next byte.
func (l *lexer) isNext(c byte) bool {
	if l.pos < len(l.src) && l.src[l.pos] == c {
		l.pos++
		return true
	}
	return false
}

// next scans one token, including whitespace tokens.
func (l *lexer) next() (Token, error) {
	start := l.pos
	kind, err := l.kind()
	if err != nil {
		return Token{}, err
	}
	if kind == tokenNone {
		end := l.pos
		for end < len(l.src) && !utf8.RuneStart(l.src[end]) {
			end++
		}
		return Token{}, InvalidCharacter.withDetail(Range{start, end}, strconv.Quote(l.src[start:end]))
	}
	tok := Token{Kind: kind, Text: l.src[start:l.pos], Range: Range{start, l.pos}}
	if kind == TokenIdent {
		if k, ok := keywords[strings.ToLower(tok.Text)]; ok {
			tok.Kind = k
		}
	}
	return tok, nil
}

// kind consumes the bytes of the next token and classifies it. If no token
// can start at the current position, the result is tokenNone, and the cursor
// is just past the offending byte.
func (l *lexer) kind() (TokenKind, error) {
	if l.acceptRun(spaceChars) > 0 {
		return TokenWhitespace, nil
	}
	c := l.src[l.pos]
	l.pos++
	switch c {
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if c == '0' && l.pos < len(l.src) {
			switch l.src[l.pos] {
			case 'x', 'X':
				l.pos++
				l.acceptRun(hexChars)
				return TokenHex, nil
			case 'b', 'B':
				l.pos++
				l.acceptRun(binaryChars)
				return TokenBinary, nil
			}
		}
		l.acceptRun(numberChars)
		if l.accept(".") {
			l.acceptRun(numberChars)
		}
		return TokenDecimal, nil
	case '.':
		l.acceptRun(numberChars)
		return TokenDecimal, nil
	case '+':
		return TokenPlus, nil
	case '-':
		return TokenMinus, nil
	case '*':
		return TokenMultiply, nil
	case '/':
		return TokenDivide, nil
	case '^':
		return TokenPow, nil
	case '&':
		return TokenAnd, nil
	case '|':
		return TokenOr, nil
	case '!':
		return TokenBang, nil
	case '%':
		return TokenPercent, nil
	case '(':
		return TokenOpen, nil
	case ')':
		return TokenClose, nil
	case '=':
		return TokenEquals, nil
	case ',':
		return TokenComma, nil
	case '?':
		return TokenQuestion, nil
	case '<':
		if l.isNext('<') {
			return TokenShiftLeft, nil
		}
		return tokenNone, nil
	case '>':
		if l.isNext('>') {
			return TokenShiftRight, nil
		}
		return tokenNone, nil
	case ':':
		if l.isNext('=') {
			return TokenDefine, nil
		}
		return tokenNone, nil
	case '{':
		return l.object()
	}

	if c == degree[0] {
		if !l.isNext(degree[1]) {
			return tokenNone, nil
		}
		l.acceptRun(letterChars)
		return TokenIdent, nil
	}
	if strings.IndexByte(letterChars, c) < 0 {
		return tokenNone, nil
	}
	n := l.acceptRun(letterChars)
	if n == 0 && (c == 'e' || c == 'E') {
		// A lone e is its own token so that 1e2 is 1, e, 2 and the parser
		// can compose scientific notation.
		return TokenIdent, nil
	}
	for l.accept(letterChars) || l.accept(numberChars) {
		// do nothing
	}
	l.apostrophes()
	return TokenIdent, nil
}

func (l *lexer) apostrophes() {
	for {
		matched := false
		for _, a := range apostrophes {
			if strings.HasPrefix(l.src[l.pos:], a) {
				l.pos += len(a)
				matched = true
			}
		}
		if !matched {
			return
		}
	}
}

// object scans an object literal after its opening brace, up to and
// including the matching closing brace.
func (l *lexer) object() (TokenKind, error) {
	start := l.pos - 1
	depth := 1
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return TokenObject, nil
			}
		}
	}
	return tokenNone, MissingClosingBracket.with(Range{start, start + 1})
}
