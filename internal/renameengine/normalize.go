package renameengine

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// reservedWords is jsast's keyword set minus async, of, get, set and
// undefined; kept here (rather than exported from jsast) since
// normalization is a naming concern of the engine, not the parser.
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "export": true, "extends": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "new": true, "return": true, "super": true,
	"switch": true, "this": true, "throw": true, "try": true, "typeof": true,
	"var": true, "void": true, "while": true, "with": true, "yield": true,
	"let": true, "static": true, "await": true, "null": true, "true": true,
	"false": true,
}

// normalizeName implements spec §4.6 step 1: strip/replace characters that
// are not legal in a JS identifier, prefix a leading underscore onto
// reserved words, and return "" (meaning "leave alone") if nothing legal
// survives. It is also where this repo's supplemented word-splitting
// normalization (spec_full §10) runs: a multi-word suggestion like
// "user id" is segmented with uax29/v2/words and re-joined as camelCase
// before the character-level cleanup below.
func normalizeName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	camel := camelCaseJoinWords(raw)

	var b strings.Builder
	for i, r := range camel {
		switch {
		case r == '_' || r == '$':
			b.WriteRune(r)
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 || b.Len() == 0 {
				// Identifiers cannot start with a digit; drop it rather than
				// invent a prefix the LLM didn't suggest.
				continue
			}
			b.WriteRune(r)
		default:
			// Non-identifier character: drop it (spec says "strip/replace";
			// dropping keeps the result readable without inserting
			// arbitrary separators).
		}
	}

	name := b.String()
	if name == "" {
		return ""
	}
	if reservedWords[name] {
		name = "_" + name
	}
	return name
}

// camelCaseJoinWords splits raw on Unicode word boundaries (so it works for
// "user id", "user_id", and "userId" alike) and re-joins every segment after
// the first in TitleCase, producing a single camelCase token. A suggestion
// that is already one word round-trips unchanged.
func camelCaseJoinWords(raw string) string {
	var segments []string
	iter := words.FromString(raw)
	for iter.Next() {
		seg := iter.Value()
		if strings.TrimSpace(seg) == "" {
			continue
		}
		if !hasLetterOrDigit(seg) {
			continue
		}
		segments = append(segments, seg)
	}
	if len(segments) <= 1 {
		return raw
	}

	var b strings.Builder
	b.WriteString(segments[0])
	for _, seg := range segments[1:] {
		b.WriteString(titleCase(seg))
	}
	return b.String()
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	for i := 1; i < len(r); i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

// disambiguate implements spec §4.6 step 3's deterministic collision
// disambiguation: increment a trailing digit run, or append "1" if there is
// none.
func disambiguate(name string) string {
	i := len(name)
	for i > 0 && unicode.IsDigit(rune(name[i-1])) {
		i--
	}
	if i == len(name) {
		return name + "1"
	}

	prefix, digits := name[:i], name[i:]
	n := 0
	for _, r := range digits {
		n = n*10 + int(r-'0')
	}
	n++

	// Preserve the original digit-run width when the increment doesn't
	// carry into a new digit (e.g. "a09" -> "a10", not "a9+1=10" losing the
	// leading zero's width is fine since 10 already has two digits; "a1" ->
	// "a2").
	return prefix + padToAtLeast(n, len(digits))
}

func padToAtLeast(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
