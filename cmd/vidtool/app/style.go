package app

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(11)
	pinStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	noteStyle  = lipgloss.NewStyle().Faint(true)
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// render applies style only when w is a terminal so piped output stays plain.
func render(w io.Writer, style lipgloss.Style, s string) string {
	if !isTerminal(w) {
		return s
	}
	return style.Render(s)
}

func printField(w io.Writer, label, value string, valueStyle *lipgloss.Style) {
	if valueStyle != nil {
		value = render(w, *valueStyle, value)
	}
	if isTerminal(w) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
		return
	}
	fmt.Fprintf(w, "%-11s%s\n", label+":", value)
}
