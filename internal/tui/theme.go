package tui

import "github.com/charmbracelet/lipgloss"

// 调色板 / Palette
const (
	colorSpark    = lipgloss.Color("#F97316")
	colorEmber    = lipgloss.Color("#FBBF24")
	colorSky      = lipgloss.Color("#38BDF8")
	colorAlert    = lipgloss.Color("#F43F5E")
	colorOK       = lipgloss.Color("#22C55E")
	colorSlate    = lipgloss.Color("#64748B")
	colorInk      = lipgloss.Color("#F1F5F9")
	colorFaded    = lipgloss.Color("#94A3B8")
	colorLine     = lipgloss.Color("#334155")
	colorBackdrop = lipgloss.Color("#0F172A")
)

// Theme 各阶段视图共用的样式
// Theme holds the styles shared by every stage view
type Theme struct {
	TitleStyle       lipgloss.Style
	ActiveTabStyle   lipgloss.Style
	InactiveTabStyle lipgloss.Style
	DoneTabStyle     lipgloss.Style
	StatusBarStyle   lipgloss.Style
	SidebarStyle     lipgloss.Style
	InputStyle       lipgloss.Style
	ErrorStyle       lipgloss.Style
	SuccessStyle     lipgloss.Style
	MutedStyle       lipgloss.Style
	CursorStyle      lipgloss.Style
	BarStyle         lipgloss.Style
}

// DarkTheme is the only theme; tabs turn green once a stage is passed.
func DarkTheme() Theme {
	tab := lipgloss.NewStyle().Padding(0, 1)
	return Theme{
		TitleStyle:       lipgloss.NewStyle().Foreground(colorSpark).Bold(true),
		ActiveTabStyle:   tab.Foreground(colorBackdrop).Background(colorSpark).Bold(true),
		InactiveTabStyle: tab.Foreground(colorFaded),
		DoneTabStyle:     tab.Foreground(colorOK),
		StatusBarStyle:   lipgloss.NewStyle().Foreground(colorFaded).Background(colorBackdrop),
		SidebarStyle: lipgloss.NewStyle().
			Foreground(colorInk).
			BorderLeft(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorLine),
		InputStyle: lipgloss.NewStyle().
			Foreground(colorInk).
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorSpark),
		ErrorStyle:   lipgloss.NewStyle().Foreground(colorAlert).Bold(true),
		SuccessStyle: lipgloss.NewStyle().Foreground(colorOK),
		MutedStyle:   lipgloss.NewStyle().Foreground(colorSlate),
		CursorStyle:  lipgloss.NewStyle().Foreground(colorEmber).Bold(true),
		BarStyle:     lipgloss.NewStyle().Foreground(colorSky),
	}
}
