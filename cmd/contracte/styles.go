package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

type styleSet struct {
	heading lipgloss.Style
	label   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	dim     lipgloss.Style
}

// styles returns plain styles unless w is a terminal
func styles(w io.Writer) styleSet {
	if f, ok := w.(*os.File); !ok || !isTerminal(f) {
		return styleSet{}
	}
	return styleSet{
		heading: lipgloss.NewStyle().Bold(true),
		label:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "8", Dark: "7"}),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "10", Dark: "10"}),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "11", Dark: "11"}),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "8", Dark: "7"}),
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func (s styleSet) row(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %s %v\n", s.label.Render(fmt.Sprintf("%-18s", label)), value)
}
