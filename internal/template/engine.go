package template

import (
	"strings"
)

// Node is an element of a parsed template
type Node interface {
	node()
}

// TextNode is literal content copied to the output as-is
type TextNode struct {
	Text string
}

// PlaceholderNode is a {{name}} token
type PlaceholderNode struct {
	Name string
	Raw  string
}

// BlockNode is a resolved {{#if cond}}..{{/if}} or {{#unless cond}}..{{/unless}}
type BlockNode struct {
	Negate    bool // unless
	Condition string
	Body      []Node
}

func (TextNode) node()        {}
func (PlaceholderNode) node() {}
func (BlockNode) node()       {}

// Parse builds the node list for template content. An opener pairs with the
// first following closer of its family; openers without a closer and orphan
// closers are kept as literal text.
func Parse(content string) ([]Node, error) {
	return parseTokens(Tokenize(content))
}

func parseTokens(tokens []Token) ([]Node, error) {
	var nodes []Node

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case TokenPlaceholder:
			nodes = append(nodes, PlaceholderNode{Name: tok.Name, Raw: tok.Value})
		case TokenOpen:
			end := -1
			for j := i + 1; j < len(tokens); j++ {
				if tokens[j].family != tok.family {
					continue
				}
				if tokens[j].Type == TokenClose {
					end = j
					break
				}
				return nil, &TemplateError{Pos: tokens[j].Pos, Token: tokens[j].Value, Err: ErrNestedBlock}
			}
			if end < 0 {
				nodes = append(nodes, TextNode{Text: tok.Value})
				continue
			}
			body, err := parseTokens(tokens[i+1 : end])
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, BlockNode{
				Negate:    tok.family == familyUnless,
				Condition: tok.Name,
				Body:      body,
			})
			i = end
		default:
			nodes = append(nodes, TextNode{Text: tok.Value})
		}
	}
	return nodes, nil
}

// Engine merges template content with population data
type Engine struct{}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{}
}

// Populate resolves conditional blocks and substitutes placeholders in a
// single pass. Substituted values are never re-read as template tokens.
// Only structural errors (see ErrNestedBlock) are reported.
func (e *Engine) Populate(content string, data *PopulationData) (string, error) {
	nodes, err := Parse(content)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(content))
	e.execute(&b, nodes, data)
	return b.String(), nil
}

// Validate checks that content parses
func (e *Engine) Validate(content string) error {
	_, err := Parse(content)
	return err
}

func (e *Engine) execute(b *strings.Builder, nodes []Node, data *PopulationData) {
	for _, n := range nodes {
		switch n := n.(type) {
		case TextNode:
			b.WriteString(n.Text)
		case PlaceholderNode:
			if v, ok := data.Lookup(n.Name); ok {
				b.WriteString(v)
			} else {
				b.WriteString(n.Raw)
			}
		case BlockNode:
			if evalCondition(n.Condition, data) != n.Negate {
				e.execute(b, n.Body, data)
			}
		}
	}
}

func evalCondition(cond string, data *PopulationData) bool {
	switch cond {
	case "isCompany":
		return data.IsCompany()
	case "isIndividual":
		return !data.IsCompany()
	}
	return false
}

// TokenInfo describes one {{...}} occurrence in template content
type TokenInfo struct {
	Token      string
	Pos        int
	Recognized bool
}

// Inspect lists every token in content and whether the engine understands it
func (e *Engine) Inspect(content string) []TokenInfo {
	known := make(map[string]bool, len(Vocabulary))
	for _, v := range Vocabulary {
		known[v] = true
	}

	var out []TokenInfo
	for _, tok := range Tokenize(content) {
		switch tok.Type {
		case TokenPlaceholder:
			out = append(out, TokenInfo{Token: tok.Value, Pos: tok.Pos, Recognized: known[tok.Name]})
		case TokenOpen, TokenClose:
			out = append(out, TokenInfo{Token: tok.Value, Pos: tok.Pos, Recognized: true})
		case TokenText:
			// unsupported block markers surface as text
			if tok.Value != "" && tokenRegex.FindString(tok.Value) == tok.Value {
				out = append(out, TokenInfo{Token: tok.Value, Pos: tok.Pos})
			}
		}
	}
	return out
}

var defaultEngine = NewEngine()

// Populate merges content with data using the default engine
func Populate(content string, data *PopulationData) (string, error) {
	return defaultEngine.Populate(content, data)
}

// Tokens returns the raw text of every {{...}} token in content, in order
func (e *Engine) Tokens(content string) []string {
	infos := e.Inspect(content)
	out := make([]string, 0, len(infos))
	for _, ti := range infos {
		out = append(out, ti.Token)
	}
	return out
}
