// Package lexer turns a byte buffer into a stream of tokens (§4.2). It keeps
// a NextToken-per-call shape but implements full C literal grammar: numeric
// suffixes, hex floats, escape decoding, and backslash-newline continuation,
// since headers in the wild use all of it.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"

	"github.com/hkoba/go-macrogen/internal/diag"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// Lexer consumes a byte buffer for a single file and emits tokens on
// demand. It never reads ahead further than one rune beyond what a single
// NextToken call needs, using a single current()/peek() pair rather than
// building a separate tokenizing pass.
type Lexer struct {
	in   *intern.Interner
	file intern.FileID
	src  string
	pos  int
	line int
	col  int

	// lastWasSpace tracks whether whitespace (including a stripped
	// comment) preceded the token about to be produced, needed by the
	// preprocessor's `#` stringize operator (§4.3) to collapse interior
	// whitespace to a single space.
	lastWasSpace bool
}

// New returns a Lexer over src, whose tokens will report positions in the
// given file. Identifiers are interned through in.
func New(in *intern.Interner, file intern.FileID, src string) *Lexer {
	// Normalize CRLF to LF up front (§6 "treats both LF and CRLF as line
	// endings"); byte offsets inside comments/strings are not surfaced to
	// callers so this is safe to do eagerly. Backslash-newline line
	// continuation (§4.2) is a translation-phase-2 concern that applies
	// uniformly, including inside identifiers and numbers, so it is
	// folded out of the buffer before tokenization rather than special-
	// cased in every scanning loop.
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\\\n", "")
	return &Lexer{in: in, file: file, src: src, line: 1, col: 1}
}

func (l *Lexer) pos0() intern.Pos {
	return intern.Pos{File: l.file, Line: l.line, Column: l.col}
}

func (l *Lexer) current() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peek(n int) byte {
	p := l.pos + n
	if p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// skipLineContinuation consumes a backslash immediately followed by a
// newline, which C treats as if neither character were present (§4.2).
// Returns true if it consumed one.
func (l *Lexer) skipLineContinuation() bool {
	if l.current() == '\\' && l.peek(1) == '\n' {
		l.advance()
		l.advance()
		return true
	}
	return false
}

func (l *Lexer) skipTrivia() {
	for {
		if l.skipLineContinuation() {
			l.lastWasSpace = true
			continue
		}
		ch := l.current()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\v' || ch == '\f':
			l.advance()
			l.lastWasSpace = true
		case ch == '/' && l.peek(1) == '/':
			for l.current() != '\n' && l.current() != 0 {
				l.advance()
			}
			l.lastWasSpace = true
		case ch == '/' && l.peek(1) == '*':
			l.advance()
			l.advance()
			for l.current() != 0 && !(l.current() == '*' && l.peek(1) == '/') {
				l.advance()
			}
			l.advance()
			l.advance()
			l.lastWasSpace = true
		default:
			return
		}
	}
}

// AtLineStart reports whether the lexer is positioned such that the next
// non-trivia token would be the first on its physical line, a fact the
// preprocessor needs to recognise directive lines. Only meaningful when
// called before NextLineRaw / NextToken have consumed the leading trivia.
func (l *Lexer) AtLineStart() bool { return l.col == 1 }

// NextLineRaw returns the remaining text of the current physical line
// (excluding the terminating newline), advancing past it. Nothing in the
// module calls it: the preprocessor recognises directive lines from the
// token stream.
func (l *Lexer) NextLineRaw() string {
	start := l.pos
	for l.current() != '\n' && l.current() != 0 {
		if l.skipLineContinuation() {
			continue
		}
		l.advance()
	}
	return l.src[start:l.pos]
}

// AtEOF reports whether the lexer has consumed the entire buffer.
func (l *Lexer) AtEOF() bool {
	save := l.pos
	sl, sc := l.line, l.col
	l.skipTrivia()
	eof := l.current() == 0
	l.pos, l.line, l.col = save, sl, sc
	return eof
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isIdentCont(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// NextToken returns the next token in the stream, EOF once the buffer is
// exhausted. On a malformed literal it returns an *diag.Error describing the
// failure and a zero Token; per §4.2 such errors abort the current
// translation unit.
func (l *Lexer) NextToken() (token.Token, *diag.Error) {
	l.skipTrivia()
	spacing := l.lastWasSpace
	l.lastWasSpace = false
	start := l.pos
	pos := l.pos0()
	ch := l.current()

	mk := func(k token.Kind) token.Token {
		return token.Token{Kind: k, Pos: pos, Text: l.src[start:l.pos], Spacing: spacing}
	}

	if ch == 0 {
		return token.Token{Kind: token.EOF, Pos: pos, Spacing: spacing}, nil
	}

	if isIdentStart(ch) {
		for isIdentCont(l.current()) {
			l.advance()
		}
		text := l.src[start:l.pos]
		if kw, ok := token.Keywords[text]; ok {
			return mk(kw), nil
		}
		id := l.in.Intern(text)
		t := mk(token.Identifier)
		t.Name = id
		return t, nil
	}

	if isDigit(ch) || (ch == '.' && isDigit(l.peek(1))) {
		return l.lexNumber(pos, start, spacing)
	}

	if ch == '"' {
		return l.lexString(pos, start, spacing, "")
	}
	if ch == '\'' {
		return l.lexChar(pos, start, spacing, "")
	}
	if (ch == 'L' || ch == 'u' || ch == 'U') && (l.peek(1) == '"' || l.peek(1) == '\'') {
		prefix := string(ch)
		if ch == 'u' && l.peek(1) == '8' && l.peek(2) == '"' {
			prefix = "u8"
			l.advance()
		}
		l.advance()
		if l.current() == '"' {
			return l.lexString(pos, start, spacing, prefix)
		}
		return l.lexChar(pos, start, spacing, prefix)
	}

	return l.lexPunct(pos, start, spacing)
}

func (l *Lexer) lexNumber(pos intern.Pos, start int, spacing bool) (token.Token, *diag.Error) {
	isFloat := false
	isHex := false
	if l.current() == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X') {
		isHex = true
		l.advance()
		l.advance()
		for isHexDigit(l.current()) {
			l.advance()
		}
		if l.current() == '.' {
			isFloat = true
			l.advance()
			for isHexDigit(l.current()) {
				l.advance()
			}
		}
		if l.current() == 'p' || l.current() == 'P' {
			isFloat = true
			l.advance()
			if l.current() == '+' || l.current() == '-' {
				l.advance()
			}
			for isDigit(l.current()) {
				l.advance()
			}
		}
	} else if l.current() == '0' && (l.peek(1) == 'b' || l.peek(1) == 'B') {
		l.advance()
		l.advance()
		for l.current() == '0' || l.current() == '1' {
			l.advance()
		}
	} else {
		for isDigit(l.current()) {
			l.advance()
		}
		if l.current() == '.' {
			isFloat = true
			l.advance()
			for isDigit(l.current()) {
				l.advance()
			}
		}
		if l.current() == 'e' || l.current() == 'E' {
			isFloat = true
			l.advance()
			if l.current() == '+' || l.current() == '-' {
				l.advance()
			}
			for isDigit(l.current()) {
				l.advance()
			}
		}
	}

	suffixStart := l.pos
	for {
		c := l.current()
		if c == 'u' || c == 'U' || c == 'l' || c == 'L' || c == 'f' || c == 'F' {
			l.advance()
			continue
		}
		break
	}
	suffix := strings.ToLower(l.src[suffixStart:l.pos])
	text := l.src[start:l.pos]

	if isFloat || strings.Contains(suffix, "f") {
		width := token.WidthDouble
		if strings.Contains(suffix, "f") {
			width = token.WidthFloat
		} else if strings.Contains(suffix, "l") {
			width = token.WidthLongDouble
		}
		numText := strings.TrimRight(text, "fFlL")
		v, err := strconv.ParseFloat(numText, 64)
		if err != nil && isHex {
			// Hex float parsing: Go's ParseFloat supports 0x1.8p3 syntax
			// directly, so a failure here means a genuinely malformed
			// literal rather than a format Go can't read.
			return token.Token{}, diag.New(pos, diag.Lexical, "malformed hex float literal %q", text)
		}
		if err != nil {
			return token.Token{}, diag.New(pos, diag.Lexical, "malformed floating literal %q", text)
		}
		return token.Token{
			Kind: token.FloatLiteral, Pos: pos, Text: text, Spacing: spacing,
			Lit: token.Literal{Width: width, Float: v},
		}, nil
	}

	numText := strings.TrimRight(text, "uUlL")
	base := 10
	if isHex {
		base = 16
		numText = numText[2:]
	} else if len(numText) > 1 && numText[0] == '0' && (numText[1] == 'b' || numText[1] == 'B') {
		base = 2
		numText = numText[2:]
	} else if len(numText) > 1 && numText[0] == '0' {
		base = 8
	}
	v, err := strconv.ParseUint(numText, base, 64)
	if err != nil {
		return token.Token{}, diag.New(pos, diag.Lexical, "malformed integer literal %q does not fit any C integer type", text)
	}
	width := token.WidthInt
	unsigned := strings.Contains(suffix, "u")
	longCount := strings.Count(suffix, "l")
	switch {
	case longCount >= 2 && unsigned:
		width = token.WidthUnsignedLongLong
	case longCount >= 2:
		width = token.WidthUnsignedLongLong // promoted below if it fits signed
		if v <= 1<<63-1 {
			width = token.WidthLongLong
		}
	case longCount == 1 && unsigned:
		width = token.WidthUnsignedLong
	case longCount == 1:
		width = token.WidthLong
		if v > 1<<63-1 {
			width = token.WidthUnsignedLong
		}
	case unsigned:
		width = token.WidthUnsignedInt
	default:
		width = token.WidthInt
		if v > 1<<31-1 {
			width = token.WidthLong
			if v > 1<<63-1 {
				width = token.WidthUnsignedLong
			}
		}
	}
	return token.Token{
		Kind: token.IntLiteral, Pos: pos, Text: text, Spacing: spacing,
		Lit: token.Literal{Width: width, Int: int64(v)},
	}, nil
}

func (l *Lexer) lexString(pos intern.Pos, start int, spacing bool, prefix string) (token.Token, *diag.Error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		c := l.current()
		if c == 0 {
			return token.Token{}, diag.New(pos, diag.Lexical, "unterminated string literal")
		}
		if c == '"' {
			l.advance()
			break
		}
		if c == '\\' {
			r, derr := l.decodeEscape()
			if derr != nil {
				return token.Token{}, derr
			}
			sb.WriteRune(r)
			continue
		}
		sb.WriteByte(c)
		l.advance()
	}
	text := l.src[start:l.pos]
	width := token.WidthChar
	switch prefix {
	case "L":
		width = token.WidthWChar
	case "u":
		width = token.WidthChar16
	case "U":
		width = token.WidthChar32
	}
	return token.Token{
		Kind: token.StringLiteral, Pos: pos, Text: text, Spacing: spacing,
		Lit: token.Literal{Width: width, Decoded: sb.String()},
	}, nil
}

func (l *Lexer) lexChar(pos intern.Pos, start int, spacing bool, prefix string) (token.Token, *diag.Error) {
	l.advance() // opening quote
	if l.current() == 0 || l.current() == '\'' {
		return token.Token{}, diag.New(pos, diag.Lexical, "empty character literal")
	}
	var r rune
	if l.current() == '\\' {
		var derr *diag.Error
		r, derr = l.decodeEscape()
		if derr != nil {
			return token.Token{}, derr
		}
	} else {
		var size int
		r, size = utf8.DecodeRuneInString(l.src[l.pos:])
		if size == 0 {
			size = 1
		}
		for i := 0; i < size; i++ {
			l.advance()
		}
	}
	if l.current() != '\'' {
		// Multi-character constants are legal C but rare/implementation
		// defined; treat them as lexical errors rather than guess a value.
		return token.Token{}, diag.New(pos, diag.Lexical, "multi-character character literal is unsupported")
	}
	l.advance()
	text := l.src[start:l.pos]
	width := token.WidthChar
	switch prefix {
	case "L":
		width = token.WidthWChar
	case "u":
		width = token.WidthChar16
	case "U":
		width = token.WidthChar32
	}
	return token.Token{
		Kind: token.CharLiteral, Pos: pos, Text: text, Spacing: spacing,
		Lit: token.Literal{Width: width, Int: int64(r), Decoded: string(r)},
	}, nil
}

// decodeEscape decodes a single backslash escape sequence (§4.2: \n, \t,
// \xHH, \ooo, \uXXXX, \UXXXXXXXX and friends) starting at the current '\\'
// and advances past it. \uXXXX / \UXXXXXXXX universal character names are
// routed through golang.org/x/text/encoding/unicode/utf32 to decode the
// code point rather than hand-rolling another rune assembler.
func (l *Lexer) decodeEscape() (rune, *diag.Error) {
	pos := l.pos0()
	l.advance() // backslash
	c := l.current()
	switch c {
	case 'n':
		l.advance()
		return '\n', nil
	case 't':
		l.advance()
		return '\t', nil
	case 'r':
		l.advance()
		return '\r', nil
	case 'a':
		l.advance()
		return '\a', nil
	case 'b':
		l.advance()
		return '\b', nil
	case 'f':
		l.advance()
		return '\f', nil
	case 'v':
		l.advance()
		return '\v', nil
	case '\\', '\'', '"', '?':
		l.advance()
		return rune(c), nil
	case 'x':
		l.advance()
		start := l.pos
		for isHexDigit(l.current()) {
			l.advance()
		}
		if l.pos == start {
			return 0, diag.New(pos, diag.Lexical, "invalid \\x escape: no hex digits")
		}
		v, _ := strconv.ParseUint(l.src[start:l.pos], 16, 64)
		return rune(v), nil
	case 'u', 'U':
		n := 4
		if c == 'U' {
			n = 8
		}
		l.advance()
		start := l.pos
		for i := 0; i < n && isHexDigit(l.current()); i++ {
			l.advance()
		}
		if l.pos-start != n {
			return 0, diag.New(pos, diag.Lexical, "invalid universal character name: expected %d hex digits", n)
		}
		v, _ := strconv.ParseUint(l.src[start:l.pos], 16, 32)
		return decodeCodePoint(uint32(v)), nil
	default:
		if c >= '0' && c <= '7' {
			start := l.pos
			for i := 0; i < 3 && l.current() >= '0' && l.current() <= '7'; i++ {
				l.advance()
			}
			v, _ := strconv.ParseUint(l.src[start:l.pos], 8, 32)
			return rune(v), nil
		}
		return 0, diag.New(pos, diag.Lexical, "invalid escape sequence \\%c", c)
	}
}

// decodeCodePoint validates a universal-character-name code point via the
// UTF-32 decoder rather than an ad hoc range check, so surrogate-range and
// out-of-range values are rejected the same way a general-purpose text
// transform would reject them.
func decodeCodePoint(v uint32) rune {
	buf := string([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
	dec := utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM).NewDecoder()
	out, _, err := transform.String(dec, buf)
	if err != nil || len(out) == 0 {
		if !utf8.ValidRune(rune(v)) {
			return unicode.ReplacementChar
		}
		return rune(v)
	}
	r, _ := utf8.DecodeRuneInString(out)
	return r
}

func (l *Lexer) lexPunct(pos intern.Pos, start int, spacing bool) (token.Token, *diag.Error) {
	mk := func(k token.Kind, n int) token.Token {
		for i := 0; i < n; i++ {
			l.advance()
		}
		return token.Token{Kind: k, Pos: pos, Text: l.src[start : start+n], Spacing: spacing}
	}
	c0 := l.current()
	c1 := l.peek(1)
	c2 := l.peek(2)
	switch c0 {
	case '(':
		return mk(token.LParen, 1), nil
	case ')':
		return mk(token.RParen, 1), nil
	case '{':
		return mk(token.LBrace, 1), nil
	case '}':
		return mk(token.RBrace, 1), nil
	case '[':
		return mk(token.LBracket, 1), nil
	case ']':
		return mk(token.RBracket, 1), nil
	case ';':
		return mk(token.Semicolon, 1), nil
	case ',':
		return mk(token.Comma, 1), nil
	case '?':
		return mk(token.QuestionMark, 1), nil
	case '~':
		return mk(token.Tilde, 1), nil
	case ':':
		return mk(token.Colon, 1), nil
	case '.':
		if c1 == '.' && c2 == '.' {
			return mk(token.Ellipsis, 3), nil
		}
		return mk(token.Dot, 1), nil
	case '+':
		if c1 == '+' {
			return mk(token.PlusPlus, 2), nil
		}
		if c1 == '=' {
			return mk(token.PlusAssign, 2), nil
		}
		return mk(token.Plus, 1), nil
	case '-':
		if c1 == '-' {
			return mk(token.MinusMinus, 2), nil
		}
		if c1 == '>' {
			return mk(token.Arrow, 2), nil
		}
		if c1 == '=' {
			return mk(token.MinusAssign, 2), nil
		}
		return mk(token.Minus, 1), nil
	case '*':
		if c1 == '=' {
			return mk(token.StarAssign, 2), nil
		}
		return mk(token.Star, 1), nil
	case '/':
		if c1 == '=' {
			return mk(token.SlashAssign, 2), nil
		}
		return mk(token.Slash, 1), nil
	case '%':
		if c1 == '=' {
			return mk(token.PercentAssign, 2), nil
		}
		return mk(token.Percent, 1), nil
	case '=':
		if c1 == '=' {
			return mk(token.Eq, 2), nil
		}
		return mk(token.Assign, 1), nil
	case '!':
		if c1 == '=' {
			return mk(token.Ne, 2), nil
		}
		return mk(token.Bang, 1), nil
	case '<':
		if c1 == '<' && c2 == '=' {
			return mk(token.ShlAssign, 3), nil
		}
		if c1 == '<' {
			return mk(token.Shl, 2), nil
		}
		if c1 == '=' {
			return mk(token.Le, 2), nil
		}
		return mk(token.Lt, 1), nil
	case '>':
		if c1 == '>' && c2 == '=' {
			return mk(token.ShrAssign, 3), nil
		}
		if c1 == '>' {
			return mk(token.Shr, 2), nil
		}
		if c1 == '=' {
			return mk(token.Ge, 2), nil
		}
		return mk(token.Gt, 1), nil
	case '&':
		if c1 == '&' {
			return mk(token.AmpAmp, 2), nil
		}
		if c1 == '=' {
			return mk(token.AmpAssign, 2), nil
		}
		return mk(token.Amp, 1), nil
	case '|':
		if c1 == '|' {
			return mk(token.PipePipe, 2), nil
		}
		if c1 == '=' {
			return mk(token.PipeAssign, 2), nil
		}
		return mk(token.Pipe, 1), nil
	case '^':
		if c1 == '=' {
			return mk(token.CaretAssign, 2), nil
		}
		return mk(token.Caret, 1), nil
	case '#':
		if c1 == '#' {
			return mk(token.HashHash, 2), nil
		}
		return mk(token.Hash, 1), nil
	}
	return token.Token{}, diag.New(pos, diag.Lexical, "unexpected byte %q", c0)
}
