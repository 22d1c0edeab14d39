// Package tokenizer converts raw source text into typed lexical tokens.
//
// The scan is leftmost-longest with no backtracking: comments win over
// operators on overlapping prefixes (`//` is a comment, never two
// divisions), string and template literals are single opaque tokens, and
// multi-character operators are matched greedily before single symbols.
package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// Kind classifies a lexical token.
type Kind uint8

const (
	KindKeyword Kind = iota
	KindIdentifier
	KindNumber
	KindString
	KindSymbol
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindIdentifier:
		return "identifier"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "symbol"
	}
}

// Token is a single lexical unit.
type Token struct {
	Kind Kind
	Text string
}

// Rules configures the shared token grammar: the combined reserved-word
// set and the recognized line-comment markers. Block comments `/* */`
// are always recognized.
type Rules struct {
	Keywords     map[string]struct{}
	LineComments []string
}

// Tokenize scans text into an ordered token sequence. Comments are
// dropped entirely. Invalid bytes are replaced rather than failing the
// file; an unterminated string or comment is closed at end of input.
func Tokenize(text string, rules Rules) []Token {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}

	var tokens []Token
	runes := []rune(text)
	i := 0

	for i < len(runes) {
		c := runes[i]

		if isWhitespace(c) {
			i++
			continue
		}

		// Comments before operators: a span that opens a comment never
		// becomes symbol tokens.
		if c == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			skipBlockComment(runes, &i)
			continue
		}
		if marker := matchLineComment(runes, i, rules.LineComments); marker > 0 {
			skipToLineEnd(runes, &i)
			continue
		}

		if c == '"' || c == '\'' || c == '`' {
			tokens = append(tokens, Token{Kind: KindString, Text: scanStringLiteral(runes, &i, c)})
			continue
		}

		if isDigit(c) {
			tokens = append(tokens, Token{Kind: KindNumber, Text: scanNumber(runes, &i)})
			continue
		}

		if isIdentifierStart(c) {
			word := scanIdentifier(runes, &i)
			kind := KindIdentifier
			if _, ok := rules.Keywords[word]; ok {
				kind = KindKeyword
			}
			tokens = append(tokens, Token{Kind: kind, Text: word})
			continue
		}

		if op := scanOperator(runes, &i); op != "" {
			tokens = append(tokens, Token{Kind: KindSymbol, Text: op})
			continue
		}

		tokens = append(tokens, Token{Kind: KindSymbol, Text: string(c)})
		i++
	}

	return tokens
}

// matchLineComment returns the marker length when a configured
// line-comment marker starts at position i, or 0.
func matchLineComment(runes []rune, i int, markers []string) int {
	for _, m := range markers {
		if len(m) == 0 {
			continue
		}
		marker := []rune(m)
		if i+len(marker) > len(runes) {
			continue
		}
		match := true
		for j, mc := range marker {
			if runes[i+j] != mc {
				match = false
				break
			}
		}
		if match {
			return len(marker)
		}
	}
	return 0
}

func skipBlockComment(runes []rune, i *int) {
	*i += 2 // consume /*
	for *i < len(runes) {
		if runes[*i] == '*' && *i+1 < len(runes) && runes[*i+1] == '/' {
			*i += 2
			return
		}
		*i++
	}
	// unterminated: consumed to end of input
}

func skipToLineEnd(runes []rune, i *int) {
	for *i < len(runes) && runes[*i] != '\n' {
		*i++
	}
}

// scanStringLiteral consumes a quoted literal including its delimiters.
// Escaped delimiters stay inside the token; an unterminated literal is
// closed at end of input.
func scanStringLiteral(runes []rune, i *int, quote rune) string {
	var sb strings.Builder
	sb.WriteRune(runes[*i])
	*i++

	for *i < len(runes) {
		c := runes[*i]
		sb.WriteRune(c)
		*i++

		if c == quote {
			break
		}
		if c == '\\' && *i < len(runes) {
			sb.WriteRune(runes[*i])
			*i++
		}
	}

	return sb.String()
}

// scanNumber consumes an integer or decimal literal.
func scanNumber(runes []rune, i *int) string {
	start := *i
	for *i < len(runes) && isDigit(runes[*i]) {
		*i++
	}
	if *i+1 < len(runes) && runes[*i] == '.' && isDigit(runes[*i+1]) {
		*i++
		for *i < len(runes) && isDigit(runes[*i]) {
			*i++
		}
	}
	return string(runes[start:*i])
}

func scanIdentifier(runes []rune, i *int) string {
	start := *i
	for *i < len(runes) && isIdentifierChar(runes[*i]) {
		*i++
	}
	return string(runes[start:*i])
}

// scanOperator greedily matches multi-character operators.
func scanOperator(runes []rune, i *int) string {
	if *i+2 < len(runes) {
		op3 := string(runes[*i : *i+3])
		switch op3 {
		case "<<=", ">>=", "...", "===", "!==":
			*i += 3
			return op3
		}
	}

	if *i+1 < len(runes) {
		op2 := string(runes[*i : *i+2])
		switch op2 {
		case "==", "!=", "<=", ">=", "&&", "||", "++", "--", "->", "=>", ":=",
			"<<", ">>", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "::", "??":
			*i += 2
			return op2
		}
	}

	return ""
}

func isWhitespace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isIdentifierStart(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentifierChar(c rune) bool {
	return isIdentifierStart(c) || isDigit(c)
}
