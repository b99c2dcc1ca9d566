// Package ui holds the popup's lipgloss palette and styles for the light and
// dark themes.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwulff/trustguard/internal/model"
)

// Palette is the set of colors a theme is built from.
type Palette struct {
	Accent lipgloss.Color
	Text   lipgloss.Color
	Muted  lipgloss.Color
	Faint  lipgloss.Color
	Safe   lipgloss.Color
	Warn   lipgloss.Color
	Danger lipgloss.Color
	Severe lipgloss.Color
}

var (
	DarkPalette = Palette{
		Accent: lipgloss.Color("#00FFFF"),
		Text:   lipgloss.Color("#FFFFFF"),
		Muted:  lipgloss.Color("#888888"),
		Faint:  lipgloss.Color("#444444"),
		Safe:   lipgloss.Color("#00FF00"),
		Warn:   lipgloss.Color("#FFFF00"),
		Danger: lipgloss.Color("#FF0000"),
		Severe: lipgloss.Color("#FF00FF"),
	}

	LightPalette = Palette{
		Accent: lipgloss.Color("#005F87"),
		Text:   lipgloss.Color("#1C1C1C"),
		Muted:  lipgloss.Color("#6C6C6C"),
		Faint:  lipgloss.Color("#BCBCBC"),
		Safe:   lipgloss.Color("#008700"),
		Warn:   lipgloss.Color("#AF8700"),
		Danger: lipgloss.Color("#D70000"),
		Severe: lipgloss.Color("#870087"),
	}
)

// Styles are the rendered styles for one theme.
type Styles struct {
	Palette Palette

	Title       lipgloss.Style
	Tab         lipgloss.Style
	TabActive   lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	Dim         lipgloss.Style
	Selected    lipgloss.Style
	Divider     lipgloss.Style
	Error       lipgloss.Style
	ErrorText   lipgloss.Style
	Notice      lipgloss.Style
	FooterKey   lipgloss.Style
	FooterDesc  lipgloss.Style
	ActiveDot   lipgloss.Style
	IdleDot     lipgloss.Style
	Connected   lipgloss.Style
	Unconnected lipgloss.Style
}

// ForTheme returns the styles for the dark or light palette.
func ForTheme(dark bool) Styles {
	p := LightPalette
	if dark {
		p = DarkPalette
	}
	return Styles{
		Palette: p,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent),

		Tab: lipgloss.NewStyle().
			Foreground(p.Muted).
			Padding(0, 1),

		TabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent).
			Underline(true).
			Padding(0, 1),

		Label: lipgloss.NewStyle().
			Foreground(p.Muted),

		Value: lipgloss.NewStyle().
			Foreground(p.Text),

		Dim: lipgloss.NewStyle().
			Foreground(p.Muted),

		Selected: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),

		Divider: lipgloss.NewStyle().
			Foreground(p.Faint),

		Error: lipgloss.NewStyle().
			Foreground(p.Danger).
			Bold(true),

		ErrorText: lipgloss.NewStyle().
			Foreground(p.Danger),

		Notice: lipgloss.NewStyle().
			Foreground(p.Warn),

		FooterKey: lipgloss.NewStyle().
			Foreground(p.Warn).
			Bold(true),

		FooterDesc: lipgloss.NewStyle().
			Foreground(p.Muted),

		ActiveDot: lipgloss.NewStyle().
			Foreground(p.Danger).
			Bold(true),

		IdleDot: lipgloss.NewStyle().
			Foreground(p.Muted),

		Connected: lipgloss.NewStyle().
			Foreground(p.Safe),

		Unconnected: lipgloss.NewStyle().
			Foreground(p.Muted),
	}
}

// Level colors a trust level.
func (s Styles) Level(level model.TrustLevel) lipgloss.Style {
	switch level {
	case model.LevelSafe:
		return lipgloss.NewStyle().Foreground(s.Palette.Safe).Bold(true)
	case model.LevelCaution:
		return lipgloss.NewStyle().Foreground(s.Palette.Warn).Bold(true)
	case model.LevelDanger:
		return lipgloss.NewStyle().Foreground(s.Palette.Danger).Bold(true)
	}
	return s.Dim
}

// Severity colors an alert severity.
func (s Styles) Severity(sev model.Severity) lipgloss.Style {
	switch sev {
	case model.SeverityCritical:
		return lipgloss.NewStyle().Foreground(s.Palette.Severe).Bold(true)
	case model.SeverityHigh:
		return lipgloss.NewStyle().Foreground(s.Palette.Danger)
	case model.SeverityMedium:
		return lipgloss.NewStyle().Foreground(s.Palette.Warn)
	}
	return s.Dim
}

// Meter renders value in [0,100] as a bar of width cells.
func (s Styles) Meter(value float64, width int, level model.TrustLevel) string {
	filled := int(value / 100 * float64(width))
	filled = max(0, min(width, filled))
	return s.Level(level).Render(strings.Repeat("█", filled)) +
		s.Divider.Render(strings.Repeat("░", width-filled))
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values in [0,100] as one rune each.
func Sparkline(values []float64) string {
	var b strings.Builder
	for _, v := range values {
		i := int(v / 100 * float64(len(sparkRunes)-1))
		b.WriteRune(sparkRunes[max(0, min(len(sparkRunes)-1, i))])
	}
	return b.String()
}
