// Package tui provides the interactive terminal UI for taskboard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/taskboard/internal/livestore"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/query"
	"github.com/fentz26/taskboard/internal/session"
	"github.com/fentz26/taskboard/internal/stats"
	"github.com/fentz26/taskboard/internal/timer"
)

const (
	modeDashboard = "dashboard"
	modeList      = "list"
	modeDetail    = "detail"
	modeCalendar  = "calendar"
	modeProjects  = "projects"
	modeTimer     = "timer"
)

// Tab order of the screens.
var modes = []string{modeDashboard, modeList, modeCalendar, modeProjects, modeTimer}

const remoteTimeout = 10 * time.Second

// App is the main TUI application model.
type App struct {
	s *session.Session

	snap     livestore.Snapshot
	dash     stats.Dashboard
	visible  []models.Task
	criteria query.Criteria

	selectedIdx int
	detailID    string
	projectIdx  int
	calMonth    time.Time
	calDay      models.Date

	input       textinput.Model
	viewport    viewport.Model
	suggestions *Suggestions

	width   int
	height  int
	mode    string
	message string
	syncErr error
	elapsed time.Duration
}

// New creates a new TUI application on top of s.
func New(s *session.Session) *App {
	ti := textinput.New()
	ti.Placeholder = "Type: add <title> @project #tag !priority ^category due:today | /commands"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 80

	today := s.Today()
	first, _ := time.Parse(models.DateLayout, string(today))

	return &App{
		s:           s,
		criteria:    query.DefaultCriteria(),
		calMonth:    time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC),
		calDay:      today,
		input:       ti,
		viewport:    viewport.New(80, 20),
		suggestions: NewSuggestions(),
		mode:        modeDashboard,
	}
}

// Run starts the TUI application and feeds it live snapshots, sync errors
// and timer ticks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())

	a.s.Store.OnChange(func(snap livestore.Snapshot) { p.Send(snapshotMsg{snap}) })
	a.s.Store.OnSyncError(func(err error) { p.Send(syncErrMsg{err}) })
	a.s.OnTimerTick(func(d time.Duration) { p.Send(timerTickMsg(d)) })

	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		func() tea.Msg { return snapshotMsg{a.s.Store.Current()} },
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if model, cmd, handled := a.handleKey(msg); handled {
			return model, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4
		a.viewport.Width = msg.Width - 4
		a.viewport.Height = max(msg.Height-14, 5)

	case snapshotMsg:
		if msg.snap.Revision() >= a.snap.Revision() {
			a.snap = msg.snap
			a.syncErr = nil
			a.refresh()
		}

	case syncErrMsg:
		a.syncErr = msg.err

	case timerTickMsg:
		a.elapsed = time.Duration(msg)
		if tm := a.s.Timer(); tm != nil && tm.State() != timer.Running {
			a.elapsed = tm.Elapsed()
		}

	case commandResultMsg:
		a.message = msg.message
		a.refresh()

	case errMsg:
		a.message = "Error: " + msg.err.Error()
	}

	// Update input
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	// Update suggestions based on input
	a.suggestions.Update(a.input.Value())

	return a, tea.Batch(cmds...)
}

// handleKey processes navigation keys. Keys that are not handled fall
// through to the text input.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	inputEmpty := a.input.Value() == ""

	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit, true

	case "esc":
		switch {
		case a.suggestions.IsVisible():
			a.suggestions.Update("")
		case a.mode == modeDetail:
			a.mode = modeList
		default:
			a.message = ""
		}
		return a, nil, true

	case "up":
		switch {
		case a.suggestions.IsVisible():
			a.suggestions.Prev()
		case a.mode == modeList && a.selectedIdx > 0:
			a.selectedIdx--
		case a.mode == modeProjects && a.projectIdx > 0:
			a.projectIdx--
		case a.mode == modeCalendar:
			a.moveDay(-7)
		case a.mode == modeTimer:
			a.viewport.LineUp(1)
		}
		return a, nil, true

	case "down":
		switch {
		case a.suggestions.IsVisible():
			a.suggestions.Next()
		case a.mode == modeList && a.selectedIdx < len(a.visible)-1:
			a.selectedIdx++
		case a.mode == modeProjects && a.projectIdx < len(a.dash.Projects)-1:
			a.projectIdx++
		case a.mode == modeCalendar:
			a.moveDay(7)
		case a.mode == modeTimer:
			a.viewport.LineDown(1)
		}
		return a, nil, true

	case "left", "right":
		if a.mode != modeCalendar || !inputEmpty {
			return a, nil, false
		}
		if msg.String() == "left" {
			a.moveDay(-1)
		} else {
			a.moveDay(1)
		}
		return a, nil, true

	case "pgup", "pgdown":
		if a.mode == modeCalendar {
			delta := 1
			if msg.String() == "pgup" {
				delta = -1
			}
			a.calMonth = a.calMonth.AddDate(0, delta, 0)
			a.calDay = models.DateOf(a.calMonth)
		}
		return a, nil, true

	case "tab", "shift+tab":
		if a.suggestions.IsVisible() {
			a.acceptSuggestion()
			return a, nil, true
		}
		step := 1
		if msg.String() == "shift+tab" {
			step = len(modes) - 1
		}
		a.mode = modes[(indexOf(modes, a.baseMode())+step)%len(modes)]
		a.refresh()
		return a, nil, true

	case "ctrl+d":
		return a, a.toggleSelected(), true

	case "ctrl+s":
		return a, a.timerStartPause(), true

	case "enter":
		if a.suggestions.IsVisible() {
			a.acceptSuggestion()
			return a, nil, true
		}
		line := strings.TrimSpace(a.input.Value())
		if line != "" {
			a.input.SetValue("")
			a.suggestions.Update("")
			return a, a.executeCommand(line), true
		}
		switch a.mode {
		case modeList:
			if t, ok := a.selected(); ok {
				a.detailID = t.ID
				a.mode = modeDetail
			}
		case modeCalendar:
			a.criteria = query.DefaultCriteria()
			a.criteria.Date = a.calDay
			a.mode = modeList
			a.refresh()
		case modeProjects:
			if a.projectIdx < len(a.dash.Projects) {
				a.criteria = query.DefaultCriteria()
				a.criteria.SearchTerm = a.dash.Projects[a.projectIdx].Name
				a.mode = modeList
				a.refresh()
			}
		}
		return a, nil, true
	}
	return a, nil, false
}

func (a *App) acceptSuggestion() {
	a.input.SetValue(a.suggestions.Complete())
	a.input.CursorEnd()
	a.suggestions.Update("")
}

func (a *App) baseMode() string {
	if a.mode == modeDetail {
		return modeList
	}
	return a.mode
}

func (a *App) moveDay(n int) {
	a.calDay = a.calDay.AddDays(n)
	t, err := time.Parse(models.DateLayout, string(a.calDay))
	if err == nil {
		a.calMonth = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

// refresh recomputes every derived view from the current snapshot.
func (a *App) refresh() {
	a.dash = a.s.Dashboard()
	a.visible = query.Filter(a.snap.Tasks(), a.criteria)
	if a.selectedIdx >= len(a.visible) {
		a.selectedIdx = max(0, len(a.visible)-1)
	}
	if a.projectIdx >= len(a.dash.Projects) {
		a.projectIdx = max(0, len(a.dash.Projects)-1)
	}
	if a.mode == modeDetail {
		if _, ok := a.snap.Get(a.detailID); !ok {
			a.mode = modeList
		}
	}
	a.suggestions.SetProjects(query.Projects(a.snap.Tasks()))
	if a.mode == modeTimer {
		a.viewport.SetContent(a.renderTimeLog())
	}
}

// selected returns the task the next command acts on.
func (a *App) selected() (models.Task, bool) {
	if a.mode == modeDetail {
		return a.snap.Get(a.detailID)
	}
	if a.selectedIdx < len(a.visible) {
		return a.visible[a.selectedIdx], true
	}
	return models.Task{}, false
}

func (a *App) executeCommand(line string) tea.Cmd {
	line = strings.TrimPrefix(line, "/")
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch cmd {
	case "add":
		draft, err := ParseQuickAdd(rest, a.s.Today())
		if err != nil {
			return result("Error: " + err.Error())
		}
		return a.remote(func(ctx context.Context) (string, error) {
			if _, err := a.s.Gateway.CreateTask(ctx, draft); err != nil {
				return "", err
			}
			return fmt.Sprintf("✓ Created task: %s", draft.Content), nil
		})

	case "done", "toggle":
		return a.toggleSelected()

	case "del", "delete":
		t, ok := a.selected()
		if !ok {
			return result("No task selected")
		}
		return a.remote(func(ctx context.Context) (string, error) {
			return "✓ Deleted " + t.Content, a.s.Gateway.DeleteTask(ctx, t.ID)
		})

	case "edit":
		t, ok := a.selected()
		if !ok {
			return result("No task selected")
		}
		if len(args) < 2 {
			return result("Usage: edit <title|desc|project|category|priority|date|time|tags> <value>")
		}
		patch, err := editPatch(args[0], strings.TrimSpace(strings.TrimPrefix(rest, args[0])), a.s.Today())
		if err != nil {
			return result("Error: " + err.Error())
		}
		return a.remote(func(ctx context.Context) (string, error) {
			return "✓ Updated " + t.Content, a.s.Gateway.EditTask(ctx, t.ID, patch)
		})

	case "search":
		a.criteria.SearchTerm = rest
		a.mode = modeList
		a.refresh()
		return result(fmt.Sprintf("%d matching tasks", len(a.visible)))

	case "filter":
		for _, arg := range args {
			key, value, ok := strings.Cut(arg, ":")
			if !ok {
				return result("Usage: filter category:<c> status:<pending|completed> date:<YYYY-MM-DD|today>")
			}
			switch key {
			case "category":
				a.criteria.Category = value
			case "status":
				a.criteria.Status = value
			case "date":
				d, err := resolveDate(value, a.s.Today())
				if err != nil {
					return result("Error: " + err.Error())
				}
				a.criteria.Date = d
			default:
				return result("Unknown filter: " + key)
			}
		}
		a.mode = modeList
		a.refresh()
		return result(fmt.Sprintf("%d matching tasks", len(a.visible)))

	case "clear":
		a.criteria = query.DefaultCriteria()
		a.refresh()
		return result("Filters cleared")

	case "go":
		if len(args) == 1 && indexOf(modes, args[0]) >= 0 {
			a.mode = args[0]
			a.refresh()
			return nil
		}
		return result("Usage: go <" + strings.Join(modes, "|") + ">")

	case "start":
		tm := a.s.Timer()
		if tm == nil {
			return result("Error: sign in first")
		}
		if t, ok := a.selected(); ok && tm.State() != timer.Running {
			tm.SelectTask(t.ID)
		}
		if err := tm.Start(); err != nil {
			return result("Error: " + err.Error())
		}
		a.mode = modeTimer
		return result("▶ Timer running")

	case "pause":
		if tm := a.s.Timer(); tm != nil {
			tm.Pause()
			a.elapsed = tm.Elapsed()
		}
		return result("⏸ Timer paused")

	case "reset":
		if tm := a.s.Timer(); tm != nil {
			tm.Reset()
			a.elapsed = 0
		}
		return result("Timer reset")

	case "save":
		tm := a.s.Timer()
		if tm == nil {
			return result("Error: sign in first")
		}
		return func() tea.Msg {
			entry, err := tm.Save(context.Background())
			if err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{fmt.Sprintf("✓ Logged %s on %s", timer.FormatDuration(entry.DurationMs), entry.TaskTitle)}
		}

	case "login":
		if len(args) < 1 {
			return result("Usage: login <email> [display name]")
		}
		return func() tea.Msg {
			sess, err := a.s.Auth.Login(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return errMsg{err}
			}
			return commandResultMsg{"✓ Signed in as " + sess.User.Username}
		}

	case "logout":
		user := a.s.Auth.User()
		if user == nil {
			return result("Not signed in")
		}
		return func() tea.Msg {
			if err := a.s.Auth.Logout(); err != nil {
				return errMsg{err}
			}
			return commandResultMsg{"✓ Signed out from " + user.Username}
		}

	case "whoami":
		user := a.s.Auth.User()
		if user == nil {
			return result("Not signed in. Use 'login <email>' to sign in.")
		}
		return result(fmt.Sprintf("Signed in as %s (%s), timezone %s", a.displayName(), user.Email, a.s.Location()))

	case "name", "tz":
		p := a.s.Preferences()
		if cmd == "name" {
			p.DisplayName = rest
		} else {
			p.Timezone = rest
		}
		return func() tea.Msg {
			if err := a.s.SavePreferences(context.Background(), p); err != nil {
				return errMsg{err}
			}
			return commandResultMsg{"✓ Preferences saved"}
		}

	case "q", "quit", "exit":
		return tea.Quit

	default:
		return result(fmt.Sprintf("Unknown: %s (try: add, done, edit, search, start, login)", cmd))
	}
}

func (a *App) toggleSelected() tea.Cmd {
	t, ok := a.selected()
	if !ok {
		return result("No task selected")
	}
	return a.remote(func(ctx context.Context) (string, error) {
		if err := a.s.Gateway.ToggleStatus(ctx, t.ID); err != nil {
			return "", err
		}
		if t.IsCompleted() {
			return "○ Reopened " + t.Content, nil
		}
		return "● Completed " + t.Content, nil
	})
}

func (a *App) timerStartPause() tea.Cmd {
	tm := a.s.Timer()
	if tm == nil {
		return result("Error: sign in first")
	}
	if tm.State() == timer.Running {
		return a.executeCommand("pause")
	}
	return a.executeCommand("start")
}

// remote runs a gateway call off the UI loop. The snapshot catches up
// through the change feed.
func (a *App) remote(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		message, err := fn(ctx)
		if err != nil {
			return errMsg{err}
		}
		return commandResultMsg{message}
	}
}

func (a *App) displayName() string {
	if p := a.s.Preferences(); p.DisplayName != "" {
		return p.DisplayName
	}
	if u := a.s.Auth.User(); u != nil {
		return u.Username
	}
	return ""
}

// editPatch builds a patch for one field edit.
func editPatch(field, value string, today models.Date) (models.TaskPatch, error) {
	var p models.TaskPatch
	switch field {
	case "title":
		p.Content = &value
	case "desc", "description":
		p.Description = &value
	case "project":
		p.Project = &value
	case "category":
		c := models.Category(value)
		p.Category = &c
	case "priority":
		pr := models.Priority(value)
		p.Priority = &pr
	case "date":
		d, err := resolveDate(value, today)
		if err != nil {
			return p, err
		}
		p.TaskDate = &d
	case "time":
		empty := ""
		if value == "none" {
			p.StartTime, p.EndTime = &empty, &empty
			break
		}
		m := timeRange.FindStringSubmatch(value)
		if m == nil {
			return p, models.Invalid("time", "time must be HH:MM-HH:MM or none")
		}
		start, end := padTime(m[1]), padTime(m[2])
		p.StartTime, p.EndTime = &start, &end
	case "tags":
		tags := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
		p.Tags = &tags
	default:
		return p, models.Invalid("field", "unknown field %q", field)
	}
	return p, nil
}

func result(message string) tea.Cmd {
	return func() tea.Msg { return commandResultMsg{message} }
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err error
}

type snapshotMsg struct {
	snap livestore.Snapshot
}

type syncErrMsg struct {
	err error
}

type timerTickMsg time.Duration
