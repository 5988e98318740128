package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the styles of the console output. Colors are dropped when the
// writer is not a terminal.
type Styles struct {
	OK       lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Basename lipgloss.Style
	Dim      lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
}

// NewStyles creates styles rendered for w.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		OK:       r.NewStyle().Foreground(lipgloss.Color("#22c55e")),
		Warning:  r.NewStyle().Foreground(lipgloss.Color("#eab308")),
		Error:    r.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true),
		Basename: r.NewStyle().Bold(true),
		Dim:      r.NewStyle().Foreground(lipgloss.Color("#888888")),
		Header:   r.NewStyle().Bold(true).Padding(0, 1),
		Cell:     r.NewStyle().Padding(0, 1),
	}
}
