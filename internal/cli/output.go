package cli

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var (
	styleTitle    = lipgloss.NewStyle().Bold(true)
	styleSubtle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleOK       = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	styleWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	styleCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleActive   = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
)

// printer writes to a terminal with styles, or to anything else plain.
type printer struct {
	w      io.Writer
	styled bool
	// width is the terminal width, or 0 when unknown.
	width int
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		p.styled = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = width
		}
	}
	return p
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

// fit truncates s so that a line with used columns before it fits the
// terminal.
func (p *printer) fit(s string, used int) string {
	if p.width == 0 {
		return s
	}
	return truncate(s, p.width-used)
}

// truncate shortens s to at most n runes, marking the cut with "…".
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
