package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ideaspark/internal/export"
	"ideaspark/internal/gateway"
	"ideaspark/internal/session"
	"ideaspark/internal/stage"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// --- Tea Messages ---

// IntentDoneMsg 异步意图完成
// IntentDoneMsg carries the result of an intent that called the service
type IntentDoneMsg struct {
	Intent string
	State  session.State
	Err    error
}

// ExportedMsg 摘要已写入文件
// ExportedMsg reports the written summary file
type ExportedMsg struct {
	Path string
	Err  error
}

// profileField 画像表单中的一个字段
// profileField is one editable row of the profile form
type profileField struct {
	label string
	get   func(session.UserProfile) string
	set   func(*session.UserProfile, string)
}

var profileFields = []profileField{
	{"Interest", func(p session.UserProfile) string { return p.Interest }, func(p *session.UserProfile, v string) { p.Interest = v }},
	{"Interest (other)", func(p session.UserProfile) string { return p.InterestOther }, func(p *session.UserProfile, v string) { p.InterestOther = v }},
	{"Skill", func(p session.UserProfile) string { return p.Skill }, func(p *session.UserProfile, v string) { p.Skill = v }},
	{"Skill (other)", func(p session.UserProfile) string { return p.SkillOther }, func(p *session.UserProfile, v string) { p.SkillOther = v }},
	{"Problem", func(p session.UserProfile) string { return p.Problem }, func(p *session.UserProfile, v string) { p.Problem = v }},
	{"Problem (other)", func(p session.UserProfile) string { return p.ProblemOther }, func(p *session.UserProfile, v string) { p.ProblemOther = v }},
	{"Details", func(p session.UserProfile) string { return p.Details }, func(p *session.UserProfile, v string) { p.Details = v }},
}

// App Bubble Tea 主 Model
// App is the main Bubble Tea model
type App struct {
	// 布局 / Layout
	width  int
	height int

	ctl       *stage.Controller
	state     session.State
	exportDir string

	// 列表与输入 / List and input
	cursor  int
	editing bool
	input   textinput.Model
	summary viewport.Model
	spinner spinner.Model

	// 状态 / State
	pending   string
	lastError string
	notice    string

	theme Theme
	keys  KeyMap
}

// NewApp 创建 TUI 应用
// NewApp creates a new TUI application
func NewApp(ctl *stage.Controller, exportDir string) App {
	ti := textinput.New()
	ti.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return App{
		ctl:       ctl,
		state:     ctl.Snapshot(),
		exportDir: exportDir,
		input:     ti,
		spinner:   sp,
		theme:     DarkTheme(),
		keys:      DefaultKeyMap(),
	}
}

func (a App) Init() tea.Cmd {
	return nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()
		return a, nil

	case spinner.TickMsg:
		if a.pending == "" {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case IntentDoneMsg:
		a.pending = ""
		if errors.Is(msg.Err, stage.ErrStaleResponse) {
			a.notice = "Discarded a cancelled response"
			a.setState(a.ctl.Snapshot())
			return a, nil
		}
		a.setState(msg.State)
		a.setError(msg.Err)
		return a, nil

	case ExportedMsg:
		if msg.Err != nil {
			a.setError(msg.Err)
		} else {
			a.notice = "Saved " + msg.Path
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	if a.editing {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if key.Matches(msg, a.keys.Cancel) {
		switch {
		case a.pending != "":
			if a.ctl.Cancel() {
				a.notice = "Request cancelled"
			}
			a.pending = ""
			a.setState(a.ctl.Snapshot())
		case a.editing:
			a.stopEditing()
		}
		return a, nil
	}
	if a.editing {
		if key.Matches(msg, a.keys.Submit) {
			return a.submitEdit(), nil
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	// 请求进行中只允许取消和退出
	// While a request is outstanding only cancel and quit are accepted
	if a.pending != "" {
		if key.Matches(msg, a.keys.Quit) {
			a.ctl.Cancel()
			return a, tea.Quit
		}
		return a, nil
	}

	a.notice = ""
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Next):
		return a.run("advance", a.ctl.Advance)
	case key.Matches(msg, a.keys.Back):
		return a.sync(a.ctl.Back()), nil
	case key.Matches(msg, a.keys.Reset):
		a.cursor = 0
		return a.sync(a.ctl.Reset()), nil
	case key.Matches(msg, a.keys.Up):
		a.moveCursor(-1)
		return a, nil
	case key.Matches(msg, a.keys.Down):
		a.moveCursor(1)
		return a, nil
	case key.Matches(msg, a.keys.PageUp), key.Matches(msg, a.keys.PageDown):
		var cmd tea.Cmd
		a.summary, cmd = a.summary.Update(msg)
		return a, cmd
	}
	return a.handleStageKey(msg)
}

// handleStageKey 当前阶段特有的按键
// handleStageKey dispatches keys that only mean something at the current stage
func (a App) handleStageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.state.Stage {
	case session.StageProfile:
		if key.Matches(msg, a.keys.Edit) && a.cursor < len(profileFields) {
			return a.startEditing(profileFields[a.cursor].get(a.state.Profile)), textinput.Blink
		}

	case session.StageNiche:
		if key.Matches(msg, a.keys.Toggle) || key.Matches(msg, a.keys.Submit) {
			if a.cursor < len(a.state.Niches) {
				return a.sync(a.ctl.SelectNiche(a.state.Niches[a.cursor])), nil
			}
		}

	case session.StageSubreddits:
		if key.Matches(msg, a.keys.Toggle) {
			choices := subredditChoices(a.state)
			if a.cursor < len(choices) {
				return a.sync(a.ctl.ToggleSubreddit(choices[a.cursor].Name)), nil
			}
		}

	case session.StageSearch:
		switch {
		case key.Matches(msg, a.keys.Edit):
			return a.startEditing(a.state.RedditSearchQuery), textinput.Blink
		case key.Matches(msg, a.keys.SearchBroad):
			return a.run("search", a.ctl.SearchBroad)
		case key.Matches(msg, a.keys.SearchTargeted):
			return a.run("search", a.ctl.SearchTargeted)
		case key.Matches(msg, a.keys.Toggle):
			if a.cursor < len(a.state.RedditSearchResults) {
				return a.sync(a.ctl.TogglePost(a.state.RedditSearchResults[a.cursor].URL)), nil
			}
		}

	case session.StageAnalysis:
		if key.Matches(msg, a.keys.Toggle) {
			points := clusterPoints(a.state)
			if a.cursor < len(points) {
				return a.sync(a.ctl.Prioritize(points[a.cursor].Point)), nil
			}
		}

	case session.StageIdeas:
		n := len(a.state.PrioritizedPainPoints)
		switch {
		case key.Matches(msg, a.keys.MoveUp) && a.cursor < n && a.cursor > 0:
			a.cursor--
			return a.sync(a.ctl.Reorder(a.cursor+1, a.cursor)), nil
		case key.Matches(msg, a.keys.MoveDown) && a.cursor < n-1:
			a.cursor++
			return a.sync(a.ctl.Reorder(a.cursor-1, a.cursor)), nil
		case key.Matches(msg, a.keys.Rate) && a.cursor >= n && a.cursor-n < len(a.state.BusinessIdeas):
			idea := a.state.BusinessIdeas[a.cursor-n]
			return a.sync(a.ctl.Rate(idea.Name, int(msg.Runes[0]-'0'))), nil
		}

	case session.StageSummary:
		if key.Matches(msg, a.keys.Export) {
			return a, a.exportCmd()
		}
	}
	return a, nil
}

// run 在后台执行调用服务的意图
// run executes a service-backed intent off the update loop
func (a App) run(intent string, fn func(context.Context) (session.State, error)) (tea.Model, tea.Cmd) {
	a.pending = intent
	a.lastError = ""
	return a, tea.Batch(a.spinner.Tick, func() tea.Msg {
		st, err := fn(context.Background())
		return IntentDoneMsg{Intent: intent, State: st, Err: err}
	})
}

func (a App) sync(st session.State, err error) App {
	a.setState(st)
	a.setError(err)
	return a
}

func (a App) exportCmd() tea.Cmd {
	dir, st := a.exportDir, a.state
	return func() tea.Msg {
		path, err := export.WriteFile(dir, st)
		return ExportedMsg{Path: path, Err: err}
	}
}

func (a App) startEditing(value string) App {
	a.editing = true
	a.input.SetValue(value)
	a.input.CursorEnd()
	a.input.Focus()
	return a
}

func (a *App) stopEditing() {
	a.editing = false
	a.input.Blur()
	a.input.SetValue("")
}

func (a App) submitEdit() App {
	value := a.input.Value()
	a.stopEditing()
	switch a.state.Stage {
	case session.StageProfile:
		if a.cursor >= len(profileFields) {
			return a
		}
		p := a.state.Profile
		profileFields[a.cursor].set(&p, value)
		return a.sync(a.ctl.SetProfile(p))
	case session.StageSearch:
		return a.sync(a.ctl.SetSearchQuery(value))
	}
	return a
}

func (a *App) setState(st session.State) {
	prev := a.state.Stage
	a.state = st
	if st.Stage != prev {
		a.cursor = 0
	}
	a.clampCursor()
	if st.Stage == session.StageSummary {
		a.summary.SetContent(RenderMarkdown(export.Markdown(st), a.summary.Width))
	}
}

func (a *App) setError(err error) {
	if err == nil {
		a.lastError = ""
		return
	}
	a.lastError = describeError(err)
}

// describeError 将错误分类转成用户可读的提示
// describeError turns the error taxonomy into a short user-facing line
func describeError(err error) string {
	var verr *stage.ValidationError
	var berr *stage.BusyError
	var serr *gateway.ServiceError
	switch {
	case errors.As(err, &verr):
		return verr.Reason
	case errors.As(err, &berr):
		return "Still working on the previous request"
	case errors.As(err, &serr):
		if serr.Status > 0 {
			return fmt.Sprintf("Service error (%s, %d): %s", serr.Op, serr.Status, serr.Message)
		}
		return fmt.Sprintf("Service error (%s): %s", serr.Op, serr.Message)
	default:
		return err.Error()
	}
}

func (a *App) moveCursor(delta int) {
	if a.state.Stage == session.StageSummary {
		if delta < 0 {
			a.summary.ScrollUp(1)
		} else {
			a.summary.ScrollDown(1)
		}
		return
	}
	a.cursor += delta
	a.clampCursor()
}

func (a *App) clampCursor() {
	n := a.rowCount()
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// rowCount 当前阶段可选行数 / Number of selectable rows at the current stage
func (a App) rowCount() int {
	switch a.state.Stage {
	case session.StageProfile:
		return len(profileFields)
	case session.StageNiche:
		return len(a.state.Niches)
	case session.StageSubreddits:
		return len(subredditChoices(a.state))
	case session.StageSearch:
		return len(a.state.RedditSearchResults)
	case session.StageAnalysis:
		return len(clusterPoints(a.state))
	case session.StageIdeas:
		return len(a.state.PrioritizedPainPoints) + len(a.state.BusinessIdeas)
	}
	return 0
}

func (a *App) relayout() {
	width := a.width - sidebarWidth(a.width)
	height := a.height - 4
	if height < 3 {
		height = 3
	}
	a.summary = viewport.New(width, height)
	if a.state.Stage == session.StageSummary {
		a.summary.SetContent(RenderMarkdown(export.Markdown(a.state), width))
	}
	a.input.Width = width - 4
}

// subredditChoices 推荐列表在前，其余按订阅数
// subredditChoices lists suggestions first, then the remaining catalog
func subredditChoices(s session.State) []session.SubredditInfo {
	out := make([]session.SubredditInfo, 0, len(s.SuggestedSubreddits)+len(s.AllSubreddits))
	seen := make(map[string]struct{})
	for _, list := range [][]session.SubredditInfo{s.SuggestedSubreddits, s.AllSubreddits} {
		for _, sub := range list {
			if _, ok := seen[sub.Name]; ok {
				continue
			}
			seen[sub.Name] = struct{}{}
			out = append(out, sub)
		}
	}
	return out
}

func clusterPoints(s session.State) []session.PainPoint {
	if s.Analysis == nil {
		return nil
	}
	var out []session.PainPoint
	for _, c := range s.Analysis.Clusters {
		out = append(out, c.PainPoints...)
	}
	return out
}

func (a App) isPrioritized(point string) bool {
	point = strings.TrimSpace(point)
	for _, p := range a.state.PrioritizedPainPoints {
		if p == point {
			return true
		}
	}
	return false
}

// Run 启动 Bubble Tea TUI
// Run starts the Bubble Tea TUI application
func Run(ctl *stage.Controller, exportDir string) error {
	app := NewApp(ctl, exportDir)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
