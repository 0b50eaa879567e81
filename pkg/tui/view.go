package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBlue    = lipgloss.Color("#89b4fa")
	colorGreen   = lipgloss.Color("#a6e3a1")
	colorRed     = lipgloss.Color("#f38ba8")
	colorOverlay = lipgloss.Color("#7f849c")
	colorText    = lipgloss.Color("#cdd6f4")

	titleStyle   = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorOverlay).Width(15)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText)
	focusStyle   = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(colorOverlay)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	errStyle     = lipgloss.NewStyle().Foreground(colorRed)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorOverlay).Padding(0, 1)
	activeBorder = panelStyle.BorderForeground(colorBlue)
)

// View implements tea.Model.
func (m *Model) View() string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.panel("Add New Primate", m.formView(), m.focus != focusIsolation),
		m.panel("Isolation", m.isolationView(), m.focus == focusIsolation),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.panel("Enclosures", m.enclosureView(), false),
		m.panel("Roster", m.rosterView(), false),
	)

	status := okStyle.Render(m.status)
	if m.statusErr {
		status = errStyle.Render(m.status)
	}

	sections := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		status,
	}
	if len(m.feed) > 0 {
		sections = append(sections, dimStyle.Render(strings.Join(m.feed, "\n")))
	}
	sections = append(sections, dimStyle.Render("tab/shift+tab focus • ←/→ cycle • enter admit • ↑/↓ select • m medicate • e move • q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) panel(title, body string, active bool) string {
	style := panelStyle
	if active {
		style = activeBorder
	}
	return style.Render(titleStyle.Render(title) + "\n" + body)
}

func (m *Model) formView() string {
	var b strings.Builder
	for f := focusName; f < focusIsolation; f++ {
		value := m.form.value(f)
		if f.isSelector() {
			value = "< " + value + " >"
		}
		label := labelStyle.Render(f.label() + ":")
		if f == m.focus {
			if f.isText() {
				value += "_"
			}
			b.WriteString(label + focusStyle.Render(value))
		} else {
			b.WriteString(label + valueStyle.Render(value))
		}
		if f < focusIsolation-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) isolationView() string {
	lines := m.keeper.IsolationView()
	if len(lines) == 0 {
		return dimStyle.Render("empty")
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if m.focus == focusIsolation && i == m.cursor {
			out[i] = focusStyle.Render("> " + l)
		} else {
			out[i] = valueStyle.Render("  " + l)
		}
	}
	return strings.Join(out, "\n")
}

func (m *Model) enclosureView() string {
	var b strings.Builder
	for _, s := range m.keeper.EnclosureView() {
		b.WriteString(s)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) rosterView() string {
	return strings.Join(m.keeper.Roster(), "\n")
}
