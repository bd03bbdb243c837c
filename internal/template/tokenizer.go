package template

import (
	"regexp"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenText TokenType = iota
	TokenPlaceholder
	TokenOpen
	TokenClose
)

// family groups block markers that share a closing token
type family int

const (
	familyIf family = iota + 1
	familyUnless
)

// Token is a lexical unit of template content
type Token struct {
	Type   TokenType
	Value  string // raw source text, including braces for markers
	Name   string // placeholder name or block condition
	family family
	Pos    int // byte offset in the source
}

var tokenRegex = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Tokenize splits template content into text, placeholder and block tokens.
// Markers with an unsupported condition (e.g. {{#if other}}) come back as text.
func Tokenize(input string) []Token {
	var tokens []Token
	lastEnd := 0

	for _, m := range tokenRegex.FindAllStringSubmatchIndex(input, -1) {
		if m[0] > lastEnd {
			tokens = append(tokens, Token{Type: TokenText, Value: input[lastEnd:m[0]], Pos: lastEnd})
		}
		tokens = append(tokens, classify(input[m[0]:m[1]], input[m[2]:m[3]], m[0]))
		lastEnd = m[1]
	}

	if lastEnd < len(input) {
		tokens = append(tokens, Token{Type: TokenText, Value: input[lastEnd:], Pos: lastEnd})
	}
	return tokens
}

func classify(raw, content string, pos int) Token {
	tok := Token{Value: raw, Pos: pos}

	switch content {
	case "#if isCompany", "#if isIndividual":
		tok.Type, tok.family, tok.Name = TokenOpen, familyIf, content[len("#if "):]
	case "#unless isCompany", "#unless isIndividual":
		tok.Type, tok.family, tok.Name = TokenOpen, familyUnless, content[len("#unless "):]
	case "/if":
		tok.Type, tok.family = TokenClose, familyIf
	case "/unless":
		tok.Type, tok.family = TokenClose, familyUnless
	default:
		if len(content) > 0 && (content[0] == '#' || content[0] == '/') {
			tok.Type = TokenText
		} else {
			tok.Type, tok.Name = TokenPlaceholder, content
		}
	}
	return tok
}
