package tui

import (
	"fmt"
	"strings"

	"ideaspark/internal/export"
	"ideaspark/internal/session"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var stageTitles = map[session.Stage]string{
	session.StageProfile:    "Your profile",
	session.StageNiche:      "Pick a niche",
	session.StageDemand:     "Market demand",
	session.StageSubreddits: "Choose communities",
	session.StageSearch:     "Search Reddit",
	session.StageAnalysis:   "Pain points",
	session.StageIdeas:      "Business ideas",
	session.StageSummary:    "Summary",
}

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

func sidebarWidth(total int) int {
	if total < 80 {
		return 0
	}
	w := total * 25 / 100
	if w < 20 {
		w = 20
	}
	if w > 40 {
		w = 40
	}
	return w
}

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	side := sidebarWidth(a.width)
	mainWidth := a.width - side
	if side > 0 {
		mainWidth-- // border
	}
	panelHeight := a.height - 3
	if a.editing {
		panelHeight -= 2
	}
	if panelHeight < 3 {
		panelHeight = 3
	}

	parts := []string{
		a.renderTabs(),
		lipgloss.NewStyle().Width(mainWidth).Height(panelHeight).MaxHeight(panelHeight).Render(a.renderStage(mainWidth)),
	}
	if a.editing {
		parts = append(parts, a.theme.InputStyle.Width(mainWidth).Render(a.input.View()))
	}
	main := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if side > 0 {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, a.renderSidebar(side, a.height-1))
	}
	return lipgloss.JoinVertical(lipgloss.Left, main, a.renderStatusBar(a.width))
}

// --- 渲染方法 / Render methods ---

func (a App) renderTabs() string {
	parts := make([]string, 0, session.StageCount)
	for _, st := range session.AllStages() {
		label := fmt.Sprintf("%d %s", int(st)+1, st)
		style := a.theme.InactiveTabStyle
		switch {
		case st == a.state.Stage:
			style = a.theme.ActiveTabStyle
		case st < a.state.Stage:
			style = a.theme.DoneTabStyle
		}
		parts = append(parts, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a App) renderStage(width int) string {
	var b strings.Builder
	b.WriteString(a.theme.TitleStyle.Render(stageTitles[a.state.Stage]))
	b.WriteString("\n\n")

	switch a.state.Stage {
	case session.StageProfile:
		for i, f := range profileFields {
			value := f.get(a.state.Profile)
			if value == "" {
				value = a.theme.MutedStyle.Render("(empty)")
			}
			b.WriteString(a.row(i, fmt.Sprintf("%-17s %s", f.label+":", value)))
		}

	case session.StageNiche:
		if len(a.state.Niches) == 0 {
			b.WriteString(a.theme.MutedStyle.Render("  No niches yet"))
		}
		for i, n := range a.state.Niches {
			b.WriteString(a.row(i, mark(n == a.state.SelectedNiche)+n))
		}

	case session.StageDemand:
		b.WriteString(renderDemand(a.state.Demand, width-4, a.theme))

	case session.StageSubreddits:
		for i, sub := range subredditChoices(a.state) {
			line := fmt.Sprintf("%sr/%s  %s", mark(a.state.IsSubredditSelected(sub.Name)), sub.Name,
				a.theme.MutedStyle.Render(fmt.Sprintf("%s · %d subscribers", sub.Category, sub.Subscribers)))
			b.WriteString(a.row(i, line))
		}

	case session.StageSearch:
		query := a.state.RedditSearchQuery
		if query == "" {
			query = a.theme.MutedStyle.Render("(press / to enter a query)")
		}
		fmt.Fprintf(&b, "Query: %s\n\n", query)
		for i, p := range a.state.RedditSearchResults {
			line := fmt.Sprintf("%s%s  %s", mark(a.state.IsPostSelected(p.URL)), truncate(p.Title, width-30),
				a.theme.MutedStyle.Render(fmt.Sprintf("r/%s ▲%d 💬%d", p.Subreddit, p.Score, p.NumComments)))
			b.WriteString(a.row(i, line))
		}

	case session.StageAnalysis:
		a.renderAnalysis(&b)

	case session.StageIdeas:
		b.WriteString(a.theme.TitleStyle.Render("Prioritized pain points"))
		b.WriteString("\n")
		for i, p := range a.state.PrioritizedPainPoints {
			b.WriteString(a.row(i, fmt.Sprintf("%d. %s", i+1, p)))
		}
		b.WriteString("\n")
		b.WriteString(a.theme.TitleStyle.Render("Ideas"))
		b.WriteString("\n")
		offset := len(a.state.PrioritizedPainPoints)
		for i, idea := range a.state.BusinessIdeas {
			line := fmt.Sprintf("%s  %s  %s", idea.Name, a.theme.MutedStyle.Render(truncate(idea.Description, width-40)),
				renderStars(a.state.IdeaRatings[idea.Name]))
			b.WriteString(a.row(offset+i, line))
		}

	case session.StageSummary:
		b.WriteString(a.summary.View())
	}
	return b.String()
}

func (a App) renderAnalysis(b *strings.Builder) {
	if a.state.Analysis == nil || len(a.state.Analysis.Clusters) == 0 {
		b.WriteString(a.theme.MutedStyle.Render("  No clusters found; ideas will use the selected posts"))
		return
	}
	row := 0
	for _, c := range a.state.Analysis.Clusters {
		fmt.Fprintf(b, "%s  %s\n", a.theme.TitleStyle.Render(c.Name),
			a.theme.MutedStyle.Render(fmt.Sprintf("intensity %.1f · gap %.1f · %s", c.EmotionIntensity, c.SolutionGap, strings.Join(c.Themes, ", "))))
		for _, p := range c.PainPoints {
			b.WriteString(a.row(row, fmt.Sprintf("%s%s  %s", mark(a.isPrioritized(p.Point)), p.Point,
				a.theme.MutedStyle.Render(fmt.Sprintf("score %.1f", p.Composite())))))
			row++
		}
	}
}

func (a App) row(i int, text string) string {
	if i == a.cursor {
		return a.theme.CursorStyle.Render("▸ ") + text + "\n"
	}
	return "  " + text + "\n"
}

func mark(selected bool) string {
	if selected {
		return "[x] "
	}
	return "[ ] "
}

func renderStars(rating int) string {
	if rating <= 0 {
		return "not rated"
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// renderDemand 以横向条形图展示搜索量
// renderDemand draws the search volumes as horizontal bars
func renderDemand(d *session.DemandSeries, width int, theme Theme) string {
	if d == nil {
		return theme.MutedStyle.Render("  No demand data")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Trend: %s\n", theme.SuccessStyle.Render(d.Trend))
	if d.Note != "" {
		b.WriteString(theme.MutedStyle.Render(d.Note) + "\n")
	}
	b.WriteString("\n")
	peak := 0.0
	for _, v := range d.SearchVolume {
		if v > peak {
			peak = v
		}
	}
	barWidth := width - 20
	if barWidth < 10 {
		barWidth = 10
	}
	for i, v := range d.SearchVolume {
		label := ""
		if i < len(d.Labels) {
			label = d.Labels[i]
		}
		n := 0
		if peak > 0 {
			n = int(v / peak * float64(barWidth))
		}
		fmt.Fprintf(&b, "%-9s %s %g\n", label, theme.BarStyle.Render(strings.Repeat("█", n)), v)
	}
	return b.String()
}

func (a App) renderSidebar(width, height int) string {
	s := a.state
	parts := []string{
		a.theme.TitleStyle.Render(" IdeaSpark"),
		"",
		a.theme.TitleStyle.Render(" Progress"),
		"  " + renderProgressBar(s.Stage.Progress(), width-4),
		fmt.Sprintf("  step %d of %d", int(s.Stage)+1, session.StageCount),
		"",
		a.theme.TitleStyle.Render(" Niche"),
		"  " + orNone(s.SelectedNiche),
		"",
		a.theme.TitleStyle.Render(" Selected"),
		fmt.Sprintf("  %d subreddits", len(s.SelectedSubreddits)),
		fmt.Sprintf("  %d posts", len(s.SelectedRedditPosts)),
		fmt.Sprintf("  %d pain points", len(s.PrioritizedPainPoints)),
		fmt.Sprintf("  %d ideas", len(s.BusinessIdeas)),
		"",
		a.theme.TitleStyle.Render(" Keys"),
	}
	for _, h := range a.helpLines() {
		parts = append(parts, "  "+a.theme.MutedStyle.Render(h))
	}
	return a.theme.SidebarStyle.Width(width).Height(height).Render(strings.Join(parts, "\n"))
}

func (a App) helpLines() []string {
	lines := []string{"n next · b back", "ctrl+r start over"}
	switch a.state.Stage {
	case session.StageProfile:
		lines = append(lines, "enter edit field")
	case session.StageNiche, session.StageSubreddits, session.StageAnalysis:
		lines = append(lines, "space select")
	case session.StageSearch:
		lines = append(lines, "/ query · s all · t selected", "space select post")
	case session.StageIdeas:
		lines = append(lines, "K/J reorder · 1-5 rate")
	case session.StageSummary:
		lines = append(lines, "x export to "+export.FileName)
	}
	return append(lines, "esc cancel · q quit")
}

func (a App) renderStatusBar(width int) string {
	var left string
	switch {
	case a.pending != "":
		left = fmt.Sprintf(" %s Working on %s… (esc to cancel)", a.spinner.View(), a.pending)
	case a.lastError != "":
		left = " " + a.theme.ErrorStyle.Render(a.lastError)
	case a.notice != "":
		left = " " + a.theme.SuccessStyle.Render(a.notice)
	default:
		left = " Ready"
	}
	right := fmt.Sprintf("%s  ", a.state.Stage)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return a.theme.StatusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderProgressBar(percent float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func truncate(s string, n int) string {
	if n < 10 {
		n = 10
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
