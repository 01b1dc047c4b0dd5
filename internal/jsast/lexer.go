package jsast

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseError is returned when the lexer or parser cannot make sense of the
// input. Per the parser-adapter contract, any failure to produce a tree is
// reported this way; the engine treats it as fatal.
type ParseError struct {
	Message string
	Offset  int
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("jsast: parse error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// lexer turns source bytes into a forward-only stream of tokens. Regex vs.
// divide disambiguation and template-literal nesting need parser context, so
// the lexer exposes parser-driven entry points (nextExpectingExpr, which lets
// a '/' start a regex literal, and relexTemplatePart) rather than guessing.
type lexer struct {
	src    string
	pos    int // next unread byte
	tStart int // start of current token

	tok              Token
	prevEnd          int
	hadNewlineBefore bool
}

func newLexer(src string) *lexer {
	l := &lexer{src: src}
	l.next()
	return l
}

func (l *lexer) errorf(at int, format string, args ...any) *ParseError {
	line, col := lineCol(l.src, at)
	return &ParseError{Message: fmt.Sprintf(format, args...), Offset: at, Line: line, Column: col}
}

func lineCol(src string, offset int) (line, col int) {
	line = 1
	lastNL := -1
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			lastNL = i
		}
	}
	col = offset - lastNL
	return
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) at(off int) byte {
	p := l.pos + off
	if p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

// next advances to the next token, assuming a non-regex, non-template context
// (i.e. after an operand, like an identifier or closing paren).
func (l *lexer) next() {
	l.scan(false)
}

// nextExpectingExpr is like next but tells the lexer that a '/' should be
// read as the start of a regex literal rather than a division operator. Also
// used to re-enter lexing after punctuators like '(' ',' '=' etc.
func (l *lexer) nextExpectingExpr() {
	l.scan(true)
}

func (l *lexer) scan(allowRegex bool) {
	l.prevEnd = l.tok.End
	newline := false

	for {
		l.skipWhitespaceTrackingNewline(&newline)
		if l.pos >= len(l.src) {
			l.tok = Token{Kind: KindEOF, Start: l.pos, End: l.pos, HadNewlineBefore: newline}
			return
		}

		c := l.src[l.pos]

		// Line comment
		if c == '/' && l.at(1) == '/' {
			l.pos += 2
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		// Block comment
		if c == '/' && l.at(1) == '*' {
			start := l.pos
			l.pos += 2
			closed := false
			for l.pos < len(l.src) {
				if l.src[l.pos] == '\n' {
					newline = true
				}
				if l.src[l.pos] == '*' && l.at(1) == '/' {
					l.pos += 2
					closed = true
					break
				}
				l.pos++
			}
			if !closed {
				panic(l.errorf(start, "unterminated block comment"))
			}
			continue
		}
		break
	}

	start := l.pos
	c, size := utf8.DecodeRuneInString(l.src[l.pos:])

	switch {
	case isIdentStart(c):
		l.pos += size
		for l.pos < len(l.src) {
			r, sz := utf8.DecodeRuneInString(l.src[l.pos:])
			if !isIdentPart(r) {
				break
			}
			l.pos += sz
		}
		text := l.src[start:l.pos]
		l.tok = Token{Kind: KindIdentifier, Start: start, End: l.pos, Text: text, HadNewlineBefore: newline}

	case c == '#':
		l.pos += size
		for l.pos < len(l.src) {
			r, sz := utf8.DecodeRuneInString(l.src[l.pos:])
			if !isIdentPart(r) {
				break
			}
			l.pos += sz
		}
		l.tok = Token{Kind: KindPrivateIdentifier, Start: start, End: l.pos, Text: l.src[start:l.pos], HadNewlineBefore: newline}

	case c >= '0' && c <= '9', c == '.' && l.at(1) >= '0' && l.at(1) <= '9':
		l.scanNumber(start, newline)

	case c == '"' || c == '\'':
		l.scanString(start, byte(c), newline)

	case c == '`':
		l.scanTemplatePart(start, true, newline)

	case c == '/' && allowRegex:
		l.scanRegExp(start, newline)

	default:
		l.scanPunctuator(start, newline)
	}
}

func (l *lexer) skipWhitespaceTrackingNewline(newline *bool) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '\n', '\r':
			*newline = true
			l.pos++
		case ' ', '\t', '\v', '\f':
			l.pos++
		default:
			if c < 0x80 {
				return
			}
			r, sz := utf8.DecodeRuneInString(l.src[l.pos:])
			if unicode.IsSpace(r) {
				l.pos += sz
				continue
			}
			return
		}
	}
}

func (l *lexer) scanNumber(start int, newline bool) {
	// Permissive: consume hex/oct/bin prefixes, digits, underscores, a decimal
	// point, an exponent, and an optional trailing 'n' for BigInt. We never
	// evaluate the numeric value, only need its source span.
	if l.peekByte() == '0' && (l.at(1) == 'x' || l.at(1) == 'X' || l.at(1) == 'o' || l.at(1) == 'O' || l.at(1) == 'b' || l.at(1) == 'B') {
		l.pos += 2
		for isHexLike(l.peekByte()) {
			l.pos++
		}
	} else {
		for isDigitOrUnderscore(l.peekByte()) {
			l.pos++
		}
		if l.peekByte() == '.' {
			l.pos++
			for isDigitOrUnderscore(l.peekByte()) {
				l.pos++
			}
		}
		if l.peekByte() == 'e' || l.peekByte() == 'E' {
			save := l.pos
			l.pos++
			if l.peekByte() == '+' || l.peekByte() == '-' {
				l.pos++
			}
			if l.peekByte() >= '0' && l.peekByte() <= '9' {
				for l.peekByte() >= '0' && l.peekByte() <= '9' {
					l.pos++
				}
			} else {
				l.pos = save
			}
		}
	}
	if l.peekByte() == 'n' {
		l.pos++
	}
	l.tok = Token{Kind: KindNumericLiteral, Start: start, End: l.pos, Text: l.src[start:l.pos], HadNewlineBefore: newline}
}

func isHexLike(b byte) bool {
	return isDigitOrUnderscore(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isDigitOrUnderscore(b byte) bool { return (b >= '0' && b <= '9') || b == '_' }

func (l *lexer) scanString(start int, quote byte, newline bool) {
	l.pos++ // opening quote
	for {
		if l.pos >= len(l.src) {
			panic(l.errorf(start, "unterminated string literal"))
		}
		c := l.src[l.pos]
		if c == '\\' {
			l.pos += 2
			continue
		}
		if c == quote {
			l.pos++
			break
		}
		if c == '\n' {
			panic(l.errorf(start, "unterminated string literal"))
		}
		l.pos++
	}
	l.tok = Token{Kind: KindStringLiteral, Start: start, End: l.pos, Text: l.src[start:l.pos], HadNewlineBefore: newline}
}

// scanTemplatePart scans from a backtick or a '}' (after relexTemplatePart) up
// to the next unescaped backtick or "${". isHead indicates the scan started
// at a literal backtick rather than resuming after an interpolation.
func (l *lexer) scanTemplatePart(start int, isHead bool, newline bool) {
	l.pos++ // consume ` or }
	for {
		if l.pos >= len(l.src) {
			panic(l.errorf(start, "unterminated template literal"))
		}
		c := l.src[l.pos]
		if c == '\\' {
			l.pos += 2
			continue
		}
		if c == '`' {
			l.pos++
			l.tok = Token{Kind: KindTemplateLiteral, Start: start, End: l.pos, Text: l.src[start:l.pos], HadNewlineBefore: newline}
			return
		}
		if c == '$' && l.at(1) == '{' {
			l.pos += 2
			l.tok = Token{Kind: KindTemplateLiteral, Start: start, End: l.pos, Text: l.src[start:l.pos], HadNewlineBefore: newline}
			return
		}
		l.pos++
	}
}

// relexTemplatePart re-enters template scanning after the parser has matched
// the current token as the '}' that closes a "${ expr }" interpolation. It
// rewinds the lexer to that '}' and resumes scanning template-string content
// from there (instead of scanning '}' as an ordinary punctuator).
func (l *lexer) relexTemplatePart() {
	start := l.tok.Start
	newline := l.tok.HadNewlineBefore
	l.pos = start
	l.scanTemplatePart(start, false, newline)
}

func (l *lexer) scanRegExp(start int, newline bool) {
	l.pos++ // leading '/'
	inClass := false
	for {
		if l.pos >= len(l.src) {
			panic(l.errorf(start, "unterminated regular expression"))
		}
		c := l.src[l.pos]
		if c == '\\' {
			l.pos += 2
			continue
		}
		if c == '[' {
			inClass = true
		} else if c == ']' {
			inClass = false
		} else if c == '/' && !inClass {
			l.pos++
			break
		} else if c == '\n' {
			panic(l.errorf(start, "unterminated regular expression"))
		}
		l.pos++
	}
	for isIdentPartByte(l.peekByte()) {
		l.pos++
	}
	l.tok = Token{Kind: KindRegExpLiteral, Start: start, End: l.pos, Text: l.src[start:l.pos], HadNewlineBefore: newline}
}

func isIdentPartByte(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// punctuators ordered longest-first so the scanner can do a simple prefix try.
var punctuators = []string{
	">>>=", "...", "===", "!==", "**=", "<<=", ">>=", ">>>", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--", "**",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
	"{", "}", "(", ")", "[", "]", ".", ";", ",", "<", ">", "+", "-", "*", "%",
	"&", "|", "^", "!", "~", "?", ":", "=", "/",
}

func (l *lexer) scanPunctuator(start int, newline bool) {
	rest := l.src[l.pos:]
	for _, p := range punctuators {
		if strings.HasPrefix(rest, p) {
			l.pos += len(p)
			l.tok = Token{Kind: KindPunctuator, Start: start, End: l.pos, Text: p, HadNewlineBefore: newline}
			return
		}
	}
	panic(l.errorf(start, "unexpected character %q", rest[:1]))
}

// lexerState is a cheap snapshot used for backtracking during ambiguous
// constructs (arrow-function detection, labeled statements).
type lexerState struct {
	pos     int
	tok     Token
	prevEnd int
}

func (l *lexer) save() lexerState {
	return lexerState{pos: l.pos, tok: l.tok, prevEnd: l.prevEnd}
}

func (l *lexer) restore(s lexerState) {
	l.pos = s.pos
	l.tok = s.tok
	l.prevEnd = s.prevEnd
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
