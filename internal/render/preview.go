package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderPreviewHTML returns populated HTML for browser preview. Markup is
// kept as written except for <script> elements and on* event attributes.
// It is not a general sanitizer.
func RenderPreviewHTML(populatedHTML string) string {
	var b strings.Builder
	b.Grow(len(populatedHTML))

	z := html.NewTokenizer(strings.NewReader(populatedHTML))
	inScript := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := append([]byte(nil), z.Raw()...)
		tok := z.Token()

		if tok.DataAtom == atom.Script {
			switch tt {
			case html.StartTagToken:
				inScript++
			case html.EndTagToken:
				if inScript > 0 {
					inScript--
				}
			}
			continue
		}
		if inScript > 0 {
			continue
		}

		if (tt == html.StartTagToken || tt == html.SelfClosingTagToken) && hasEventAttr(tok) {
			attrs := tok.Attr[:0]
			for _, a := range tok.Attr {
				if !isEventAttr(a.Key) {
					attrs = append(attrs, a)
				}
			}
			tok.Attr = attrs
			b.WriteString(tok.String())
			continue
		}
		b.Write(raw)
	}
	return b.String()
}

func hasEventAttr(tok html.Token) bool {
	for _, a := range tok.Attr {
		if isEventAttr(a.Key) {
			return true
		}
	}
	return false
}

func isEventAttr(key string) bool {
	return len(key) > 2 && strings.EqualFold(key[:2], "on")
}
