package popup

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent    = lipgloss.Color("#2563EB")
	colorSynthetic = lipgloss.Color("#DC2626")
	colorAuthentic = lipgloss.Color("#16A34A")
	colorNotice    = lipgloss.Color("#D97706")
	colorMuted     = lipgloss.Color("#64748B")
)

type styles struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Muted     lipgloss.Style
	Notice    lipgloss.Style
	Error     lipgloss.Style
	Card      lipgloss.Style
	Synthetic lipgloss.Style
	Authentic lipgloss.Style
	Link      lipgloss.Style
}

func defaultStyles() styles {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(44)
	return styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Subtitle:  lipgloss.NewStyle().Foreground(colorMuted),
		Muted:     lipgloss.NewStyle().Foreground(colorMuted),
		Notice:    lipgloss.NewStyle().Foreground(colorNotice),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(colorSynthetic),
		Card:      card.BorderForeground(colorMuted),
		Synthetic: card.BorderForeground(colorSynthetic),
		Authentic: card.BorderForeground(colorAuthentic),
		Link:      lipgloss.NewStyle().Underline(true).Foreground(colorAccent),
	}
}

// verdict picks the card style and headline color for a result.
func (s styles) verdict(synthetic bool) (lipgloss.Style, lipgloss.Style) {
	if synthetic {
		return s.Synthetic, lipgloss.NewStyle().Bold(true).Foreground(colorSynthetic)
	}
	return s.Authentic, lipgloss.NewStyle().Bold(true).Foreground(colorAuthentic)
}
