package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/z-interview/backend/internal/model/report"
)

var (
	TitleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D31145"))
	InterviewerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E4E4E7"))
	CandidateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
	DimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#71717A"))
	ErrorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	HelpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#52525B"))
	MetricLabelStyle = lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color("#A1A1AA"))

	CoachingStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#A78BFA")).
			Padding(0, 1)

	ReportStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			Padding(0, 2)
)

var bandColors = map[report.Band]lipgloss.Color{
	report.BandStrongHire:  lipgloss.Color("#22C55E"),
	report.BandHire:        lipgloss.Color("#06B6D4"),
	report.BandConditional: lipgloss.Color("#EAB308"),
	report.BandReject:      lipgloss.Color("#EF4444"),
}

// BandStyle colours the score badge by hiring tier.
func BandStyle(band report.Band) lipgloss.Style {
	color, ok := bandColors[band]
	if !ok {
		color = lipgloss.Color("#A1A1AA")
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#09090B")).
		Background(color).
		Padding(0, 1)
}

// BorderFor tints the report frame with the band colour.
func BorderFor(band report.Band) lipgloss.Style {
	if color, ok := bandColors[band]; ok {
		return ReportStyle.BorderForeground(color)
	}
	return ReportStyle
}
