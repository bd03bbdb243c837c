package render

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// BoldMarker wraps bold runs in normalized text
	BoldMarker = "**"
	// CenterMarker prefixes centered paragraphs in normalized text
	CenterMarker = "**CENTER**"
)

// elements whose whole subtree is dropped
var skipped = map[atom.Atom]bool{
	atom.Table:    true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Head:     true,
	atom.Template: true,
}

var blocks = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Center:     true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Header:     true,
	atom.Footer:     true,
	atom.Blockquote: true,
	atom.Hr:         true,
	atom.Pre:        true,
	atom.Body:       true,
}

// normalizer accumulates paragraphs while walking the token stream
type normalizer struct {
	paragraphs []string
	lines      []string
	line       strings.Builder
	center     []bool
	bold       int
	skip       atom.Atom
	skipDepth  int
}

// Normalize converts populated HTML into marker text: paragraphs separated by
// a blank line, lines by a newline, bold runs wrapped in BoldMarker and
// centered paragraphs prefixed with CenterMarker. Tables, scripts and styles
// are dropped.
func Normalize(content string) string {
	n := &normalizer{}
	z := html.NewTokenizer(strings.NewReader(content))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()

		if n.skipDepth > 0 {
			if tok.DataAtom == n.skip {
				switch tt {
				case html.StartTagToken:
					n.skipDepth++
				case html.EndTagToken:
					n.skipDepth--
				}
			}
			continue
		}

		switch tt {
		case html.TextToken:
			n.text(tok.Data)
		case html.StartTagToken, html.SelfClosingTagToken:
			n.start(tok, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			n.end(tok)
		}
	}
	n.flushParagraph()

	return strings.Join(n.paragraphs, "\n\n")
}

func (n *normalizer) start(tok html.Token, selfClosing bool) {
	switch {
	case skipped[tok.DataAtom]:
		if !selfClosing {
			n.skip = tok.DataAtom
			n.skipDepth = 1
		}
	case tok.DataAtom == atom.Br:
		n.breakLine()
	case tok.DataAtom == atom.Strong || tok.DataAtom == atom.B:
		if n.bold == 0 {
			n.line.WriteString(BoldMarker)
		}
		n.bold++
	case blocks[tok.DataAtom]:
		n.flushParagraph()
		if !selfClosing && tok.DataAtom != atom.Hr {
			n.center = append(n.center, n.centered() || isCentered(tok))
		}
	}
}

func (n *normalizer) end(tok html.Token) {
	switch {
	case tok.DataAtom == atom.Strong || tok.DataAtom == atom.B:
		if n.bold == 0 {
			return
		}
		n.bold--
		if n.bold == 0 {
			n.line.WriteString(BoldMarker)
		}
	case blocks[tok.DataAtom]:
		n.flushParagraph()
		if len(n.center) > 0 {
			n.center = n.center[:len(n.center)-1]
		}
	}
}

func (n *normalizer) text(s string) {
	var prevSpace bool
	cur := n.line.String()
	if cur == "" || strings.HasSuffix(cur, " ") {
		prevSpace = true
	}

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				n.line.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		n.line.WriteRune(r)
		prevSpace = false
	}
}

// breakLine ends the current line. Bold runs are closed and reopened so each
// line carries balanced markers.
func (n *normalizer) breakLine() {
	if n.bold > 0 {
		n.line.WriteString(BoldMarker)
	}
	line := tidyLine(n.line.String())
	n.line.Reset()
	if n.bold > 0 {
		n.line.WriteString(BoldMarker)
	}

	if line == "" {
		// an empty line is a paragraph separator
		if len(n.lines) > 0 {
			n.emitParagraph()
		}
		return
	}
	n.lines = append(n.lines, line)
}

func (n *normalizer) flushParagraph() {
	if n.bold > 0 {
		n.line.WriteString(BoldMarker)
	}
	line := tidyLine(n.line.String())
	n.line.Reset()
	if n.bold > 0 {
		n.line.WriteString(BoldMarker)
	}
	if line != "" {
		n.lines = append(n.lines, line)
	}
	n.emitParagraph()
}

func (n *normalizer) emitParagraph() {
	if len(n.lines) == 0 {
		return
	}
	p := strings.Join(n.lines, "\n")
	if n.centered() {
		p = CenterMarker + p
	}
	n.paragraphs = append(n.paragraphs, p)
	n.lines = n.lines[:0]
}

func (n *normalizer) centered() bool {
	return len(n.center) > 0 && n.center[len(n.center)-1]
}

func tidyLine(s string) string {
	s = strings.ReplaceAll(s, BoldMarker+BoldMarker, "")
	s = strings.TrimSpace(s)
	if strings.Trim(s, "* ") == "" {
		return ""
	}
	return s
}

func isCentered(tok html.Token) bool {
	if tok.DataAtom == atom.Center {
		return true
	}
	for _, a := range tok.Attr {
		switch a.Key {
		case "align":
			if strings.EqualFold(strings.TrimSpace(a.Val), "center") {
				return true
			}
		case "style":
			style := strings.ToLower(strings.ReplaceAll(a.Val, " ", ""))
			if strings.Contains(style, "text-align:center") {
				return true
			}
		}
	}
	return false
}
