package ui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Label      lipgloss.Style
	Focused    lipgloss.Style
	Selector   lipgloss.Style
	Button     lipgloss.Style
	ButtonOn   lipgloss.Style
	ButtonOff  lipgloss.Style
	JobTitle   lipgloss.Style
	JobInfo    lipgloss.Style
	Success    lipgloss.Style
	Error      lipgloss.Style
	Warning    lipgloss.Style
	Faint      lipgloss.Style
	Box        lipgloss.Style
	Spinner    lipgloss.Style
	StageMeta  lipgloss.Style
	StageDL    lipgloss.Style
	StageConv  lipgloss.Style
	StageTrim  lipgloss.Style
	StageClean lipgloss.Style
}

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	return Styles{
		Title:      base.Bold(true).Foreground(lipgloss.Color("#0078D4")),
		Subtitle:   base.Faint(true),
		Label:      base.Width(10).Foreground(lipgloss.Color("#A3A3A3")),
		Focused:    base.Width(10).Bold(true).Foreground(lipgloss.Color("#1084D8")),
		Selector:   base.Foreground(lipgloss.Color("#FFFFFF")),
		Button:     base.Padding(0, 2).Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#3D3D3D")),
		ButtonOn:   base.Padding(0, 2).Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#0078D4")),
		ButtonOff:  base.Padding(0, 2).Foreground(lipgloss.Color("#6B7280")).Background(lipgloss.Color("#2D2D2D")),
		JobTitle:   base.Foreground(lipgloss.Color("#A3A3A3")),
		JobInfo:    base.Foreground(lipgloss.Color("#D1D5DB")),
		Success:    base.Foreground(lipgloss.Color("#22C55E")),
		Error:      base.Foreground(lipgloss.Color("#EF4444")),
		Warning:    base.Foreground(lipgloss.Color("#F59E0B")),
		Faint:      base.Faint(true),
		Box:        base.Padding(0, 1),
		Spinner:    base.Foreground(lipgloss.Color("#22D3EE")),
		StageMeta:  base.Foreground(lipgloss.Color("#60A5FA")),
		StageDL:    base.Foreground(lipgloss.Color("#06B6D4")),
		StageConv:  base.Foreground(lipgloss.Color("#D946EF")),
		StageTrim:  base.Foreground(lipgloss.Color("#F472B6")),
		StageClean: base.Foreground(lipgloss.Color("#A3A3A3")),
	}
}
