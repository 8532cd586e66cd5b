package commands

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
)

// styles are the terminal styles shared by the commands. Colors collapse to
// plain text when the color profile is ASCII (--no-color or no TTY).
type styles struct {
	Error      lipgloss.Style
	Warning    lipgloss.Style
	Info       lipgloss.Style
	Muted      lipgloss.Style
	Database   lipgloss.Style
	Schema     lipgloss.Style
	Relation   lipgloss.Style
	TypeLabel  lipgloss.Style
	Enumerator lipgloss.Style
}

func newStyles() *styles {
	return &styles{
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		Info:       lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Muted:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Database:   lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		Schema:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Relation:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		TypeLabel:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		Enumerator: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginRight(1),
	}
}

func (s *styles) severity(sev catalog.Severity) lipgloss.Style {
	switch sev {
	case catalog.SeverityError:
		return s.Error
	case catalog.SeverityWarning:
		return s.Warning
	default:
		return s.Info
	}
}

// label styles a node label by its kind.
func (s *styles) label(n *catalog.Node) string {
	switch {
	case n.Kind == catalog.KindDatabase:
		return s.Database.Render(n.Label)
	case n.Kind == catalog.KindSchema:
		return s.Schema.Render(n.Label)
	case n.Kind.IsRelation():
		return s.Relation.Render(n.Label)
	}
	return n.Label
}
