package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Style is a font weight
type Style int

const (
	Regular Style = iota
	Bold
)

// Surface is what the layout draws on. Coordinates are millimetres from the
// top-left corner; y is the text baseline.
type Surface interface {
	AddPage()
	SetFont(style Style, size float64)
	StringWidth(s string) float64
	Text(x, y float64, s string)
}

const fontFamily = "contract"

// fpdfSurface draws on an A4 portrait fpdf document
type fpdfSurface struct {
	pdf *fpdf.Fpdf
}

func newFPDFSurface(fonts FontSet) (*fpdfSurface, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetCreator("contracte", true)

	pdf.AddUTF8FontFromBytes(fontFamily, "", fonts.Regular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fonts.Bold)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}
	return &fpdfSurface{pdf: pdf}, nil
}

func (s *fpdfSurface) AddPage() {
	s.pdf.AddPage()
}

func (s *fpdfSurface) SetFont(style Style, size float64) {
	st := ""
	if style == Bold {
		st = "B"
	}
	s.pdf.SetFont(fontFamily, st, size)
}

func (s *fpdfSurface) StringWidth(str string) float64 {
	return s.pdf.GetStringWidth(str)
}

func (s *fpdfSurface) Text(x, y float64, str string) {
	s.pdf.Text(x, y, str)
}

func (s *fpdfSurface) setMetadata(title, subject string) {
	s.pdf.SetTitle(title, true)
	if subject != "" {
		s.pdf.SetSubject(subject, true)
	}
}

func (s *fpdfSurface) output() ([]byte, int, error) {
	if err := s.pdf.Error(); err != nil {
		return nil, 0, err
	}
	pages := s.pdf.PageCount()
	var buf bytes.Buffer
	if err := s.pdf.Output(&buf); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), pages, nil
}
