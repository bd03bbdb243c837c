package render

import (
	"strings"
)

// Page geometry in millimetres, font sizes in points
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 25.0
	marginRight  = 25.0
	marginTop    = 25.0
	marginBottom = 25.0
	usableWidth  = pageWidth - marginLeft - marginRight

	bodySize         = 12.0
	lineHeight       = 6.0
	centerSize       = 16.0
	centerLineHeight = 8.0

	paragraphGap = lineHeight
	artBefore    = 3.0
	artAfter     = 2.0

	// a line starting below this baseline goes to the next page
	breakY = pageHeight - 30.0
	// first baseline on continuation pages
	resetY = marginTop + 10.0

	signatureMinSpace = 50.0
	signatureLeftX    = marginLeft
	signatureRightX   = signatureLeftX + 90.0
	signatureLineGap  = 15.0
	signatureLine     = "______________________"
)

// layoutState is the cursor threaded through a single layout run
type layoutState struct {
	surface Surface
	page    int
	y       float64
	style   Style
	size    float64
}

func newLayoutState(s Surface) *layoutState {
	st := &layoutState{surface: s}
	st.newPage(marginTop)
	st.setFont(Regular, bodySize)
	return st
}

func (st *layoutState) newPage(y float64) {
	st.surface.AddPage()
	st.page++
	st.y = y
}

// setFont switches the surface font only when it differs from the active one
func (st *layoutState) setFont(style Style, size float64) {
	if st.size == size && st.style == style {
		return
	}
	st.style, st.size = style, size
	st.surface.SetFont(style, size)
}

// ensureLine starts a new page when the cursor is past the break line
func (st *layoutState) ensureLine() {
	if st.y > breakY {
		st.newPage(resetY)
	}
}

// word is a unit of wrapped text with its weight
type word struct {
	text string
	bold bool
}

// parseRuns splits a marker line into words, toggling bold at each marker
func parseRuns(line string) []word {
	var words []word
	bold := false

	parts := strings.Split(line, BoldMarker)
	for i, part := range parts {
		if i > 0 {
			bold = !bold
		}
		for _, w := range strings.Fields(part) {
			words = append(words, word{text: w, bold: bold})
		}
	}
	return words
}

func stripMarkers(s string) string {
	s = strings.TrimPrefix(s, CenterMarker)
	return strings.TrimSpace(strings.ReplaceAll(s, BoldMarker, ""))
}

func styleOf(bold bool) Style {
	if bold {
		return Bold
	}
	return Regular
}

func (st *layoutState) width(w word, size float64) float64 {
	st.setFont(styleOf(w.bold), size)
	return st.surface.StringWidth(w.text)
}

func (st *layoutState) spaceWidth(bold bool, size float64) float64 {
	st.setFont(styleOf(bold), size)
	return st.surface.StringWidth(" ")
}

// wrap breaks words into lines no wider than maxWidth. A word wider than a
// line is split by runes.
func (st *layoutState) wrap(words []word, size, maxWidth float64) [][]word {
	var lines [][]word
	var cur []word
	var curWidth float64

	for _, w := range words {
		ww := st.width(w, size)
		if ww > maxWidth {
			if len(cur) > 0 {
				lines = append(lines, cur)
				cur, curWidth = nil, 0
			}
			pieces := st.splitWord(w, size, maxWidth)
			lines = append(lines, pieces[:len(pieces)-1]...)
			cur = pieces[len(pieces)-1]
			curWidth = st.width(cur[0], size)
			continue
		}

		if len(cur) == 0 {
			cur, curWidth = []word{w}, ww
			continue
		}

		next := curWidth + st.spaceWidth(cur[len(cur)-1].bold, size) + ww
		if next > maxWidth {
			lines = append(lines, cur)
			cur, curWidth = []word{w}, ww
			continue
		}
		cur = append(cur, w)
		curWidth = next
	}

	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

func (st *layoutState) splitWord(w word, size, maxWidth float64) [][]word {
	var out [][]word
	var b strings.Builder

	for _, r := range w.text {
		candidate := b.String() + string(r)
		if b.Len() > 0 && st.width(word{text: candidate, bold: w.bold}, size) > maxWidth {
			out = append(out, []word{{text: b.String(), bold: w.bold}})
			b.Reset()
		}
		b.WriteRune(r)
	}
	out = append(out, []word{{text: b.String(), bold: w.bold}})
	return out
}

func (st *layoutState) lineWidth(words []word, size float64) float64 {
	var total float64
	for i, w := range words {
		if i > 0 {
			total += st.spaceWidth(words[i-1].bold, size)
		}
		total += st.width(w, size)
	}
	return total
}

// drawLine draws words on the current baseline starting at x
func (st *layoutState) drawLine(words []word, x, size float64) {
	for i, w := range words {
		if i > 0 {
			x += st.spaceWidth(words[i-1].bold, size)
		}
		st.setFont(styleOf(w.bold), size)
		st.surface.Text(x, st.y, w.text)
		x += st.surface.StringWidth(w.text)
	}
}

// layoutParagraph lays out one marker paragraph
func (st *layoutState) layoutParagraph(p string) {
	centered := strings.HasPrefix(p, CenterMarker)
	if centered {
		p = strings.TrimPrefix(p, CenterMarker)
	}
	article := strings.HasPrefix(stripMarkers(p), "Art.")
	if article {
		st.y += artBefore
	}

	for _, line := range strings.Split(p, "\n") {
		words := parseRuns(line)
		if centered {
			for i := range words {
				words[i].bold = true
			}
			st.layoutLines(words, centerSize, centerLineHeight, true)
			continue
		}
		st.layoutLines(words, bodySize, lineHeight, false)
	}

	if centered {
		st.setFont(Regular, bodySize)
	}
	st.y += paragraphGap
	if article {
		st.y += artAfter
	}
}

func (st *layoutState) layoutLines(words []word, size, height float64, centered bool) {
	if len(words) == 0 {
		st.ensureLine()
		st.y += height
		return
	}

	for _, line := range st.wrap(words, size, usableWidth) {
		st.ensureLine()
		x := marginLeft
		if centered {
			x = (pageWidth - st.lineWidth(line, size)) / 2
		}
		st.drawLine(line, x, size)
		st.y += height
	}
}

// layoutSignatures draws the two signature columns
func (st *layoutState) layoutSignatures() {
	st.y += lineHeight
	if pageHeight-marginBottom-st.y < signatureMinSpace {
		st.newPage(resetY)
	}

	st.setFont(Bold, bodySize)
	st.surface.Text(signatureLeftX, st.y, "PRESTATOR")
	st.surface.Text(signatureRightX, st.y, "BENEFICIAR")

	st.y += signatureLineGap
	st.setFont(Regular, bodySize)
	st.surface.Text(signatureLeftX, st.y, signatureLine)
	st.surface.Text(signatureRightX, st.y, signatureLine)
}

// layoutDocument lays out normalized text followed by the signature block
// and returns the number of pages used.
func layoutDocument(s Surface, text string) int {
	st := newLayoutState(s)

	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		st.layoutParagraph(p)
	}
	st.layoutSignatures()

	return st.page
}
