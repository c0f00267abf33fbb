package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/stats"
	"github.com/fentz26/taskboard/internal/timer"
)

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	// Header with sync status
	syncStatus := onlineStyle.Render("● SYNCED")
	switch {
	case a.syncErr != nil:
		syncStatus = offlineStyle.Render("○ OFFLINE")
	case !a.snap.Loaded():
		syncStatus = mutedStyle.Render("◌ LOADING")
	}

	userStatus := mutedStyle.Render("○ not signed in")
	if a.s.Auth.IsAuthenticated() {
		userStatus = lipgloss.NewStyle().Foreground(successColor).Render("● " + a.displayName())
	}

	header := titleStyle.Render("📋 Taskboard")
	header += "  " + syncStatus
	header += "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(fmt.Sprintf("[%d tasks]", a.snap.Len()))
	header += "  " + userStatus
	if tm := a.s.Timer(); tm != nil && tm.State() != timer.Idle {
		header += "  " + lipgloss.NewStyle().Foreground(warningColor).Render("⏱ "+formatClock(a.elapsed))
	}

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", a.width) + "\n")

	contentHeight := max(a.height-9, 5)

	switch {
	case !a.s.Auth.IsAuthenticated():
		b.WriteString("\n  Sign in to see your tasks. Type: login <email> [display name]\n")
	case a.syncErr != nil && !a.snap.Loaded():
		b.WriteString(fmt.Sprintf("\n  Cannot reach the document service: %v\n  Retrying...\n", a.syncErr))
	default:
		switch a.mode {
		case modeDashboard:
			b.WriteString(a.renderDashboard())
		case modeList:
			b.WriteString(mutedStyle.Render(" "+a.criteriaLabel()) + "\n")
			b.WriteString(a.renderTaskList(contentHeight - 1))
		case modeDetail:
			b.WriteString(a.renderTaskDetail())
		case modeCalendar:
			b.WriteString(a.renderCalendar())
		case modeProjects:
			b.WriteString(a.renderProjects(contentHeight))
		case modeTimer:
			b.WriteString(a.renderTimer())
		}
	}

	// Message bar
	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))

	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	var status string
	switch a.mode {
	case modeList:
		status = fmt.Sprintf(" Tasks: %d | ↑↓:nav | Enter:open | Ctrl+D:done | Tab:next view | Ctrl+C:quit", len(a.visible))
	case modeDetail:
		status = " Ctrl+D:done | edit <field> <value> | del | start | Esc:back"
	case modeCalendar:
		status = " ←→↑↓:day | PgUp/PgDn:month | Enter:tasks of day | Tab:next view"
	case modeProjects:
		status = fmt.Sprintf(" Projects: %d | ↑↓:nav | Enter:tasks | Tab:next view", len(a.dash.Projects))
	case modeTimer:
		status = " Ctrl+S:start/pause | reset | save | ↑↓:scroll log | Tab:next view"
	default:
		status = " Tab:next view | Enter:command | /:commands | Ctrl+C:quit"
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

func (a *App) criteriaLabel() string {
	c := a.criteria
	label := fmt.Sprintf("Category: [%s]  Status: [%s]", c.Category, c.Status)
	if c.Date != "" {
		label += fmt.Sprintf("  Date: [%s]", c.Date)
	}
	if c.SearchTerm != "" {
		label += fmt.Sprintf("  Search: %q", c.SearchTerm)
	}
	return label
}

func (a *App) renderDashboard() string {
	d := a.dash
	var b strings.Builder

	summary := fmt.Sprintf("%s\nTotal      %d\nCompleted  %d\nPending    %d\nRate       %d%%",
		headingStyle.Render("Overview"), d.Summary.Total, d.Summary.Completed, d.Summary.Pending, d.Summary.CompletionRate)
	today := fmt.Sprintf("%s\nTasks      %d\nDone       %d\nPending    %d\nHours      %.1f\nThis week  %d/%d",
		headingStyle.Render("Today "+string(d.Today)), d.Day.TodayTasks, d.Day.CompletedToday, d.Day.PendingToday,
		d.Day.HoursToday, d.Day.CompletedThisWeek, d.Day.WeekTasks)
	projects := overviewPanel(d.Overview)

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(summary), panelStyle.Render(today), panelStyle.Render(projects)))
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(a.renderTrend()),
		panelStyle.Render(renderCounts("By category", categoryCounts(d.ByCategory))),
		panelStyle.Render(renderCounts("By priority", priorityCounts(d.ByPriority)))))
	b.WriteString("\n")

	b.WriteString(panelStyle.Render(renderGrid(d.Grid)))
	b.WriteString("\n")

	var lists []string
	lists = append(lists, renderTaskLines("Recent activity", d.RecentActivity))
	lists = append(lists, renderTaskLines("Today's focus", d.TodayFocus))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(lists[0]), panelStyle.Render(lists[1])))
	return b.String()
}

// overviewPanel renders the projects header. Hours are whole hours.
func overviewPanel(o stats.ProjectsOverview) string {
	return fmt.Sprintf("%s\nActive     %d\nCompleted  %d\nHours      %dh\nAvg rate   %d%%",
		headingStyle.Render("Projects"), o.ActiveProjects, o.CompletedTasks, o.TotalHours, o.AverageCompletion)
}

func (a *App) renderTrend() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Last 7 days") + "\n")
	for _, day := range a.dash.Trend {
		bar := lipgloss.NewStyle().Foreground(successColor).Render(strings.Repeat("█", day.Completed)) +
			mutedStyle.Render(strings.Repeat("░", day.Total-day.Completed))
		b.WriteString(fmt.Sprintf("%s %s %d/%d\n", day.Weekday.String()[:3], bar, day.Completed, day.Total))
	}
	return strings.TrimRight(b.String(), "\n")
}

type count struct {
	label string
	n     int
}

func categoryCounts(m map[models.Category]int) []count {
	var out []count
	for c, n := range m {
		out = append(out, count{string(c), n})
	}
	return sortCounts(out)
}

func priorityCounts(m map[models.Priority]int) []count {
	var out []count
	for p, n := range m {
		out = append(out, count{string(p), n})
	}
	return sortCounts(out)
}

func sortCounts(c []count) []count {
	sort.Slice(c, func(i, j int) bool {
		if c[i].n != c[j].n {
			return c[i].n > c[j].n
		}
		return c[i].label < c[j].label
	})
	return c
}

func renderCounts(title string, counts []count) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(title) + "\n")
	if len(counts) == 0 {
		b.WriteString(mutedStyle.Render("no tasks"))
		return b.String()
	}
	top := counts[0].n
	for _, c := range counts {
		width := c.n * 12 / top
		b.WriteString(fmt.Sprintf("%-14s %s %d\n", c.label, lipgloss.NewStyle().Foreground(secondaryColor).Render(strings.Repeat("▇", max(width, 1))), c.n))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderGrid draws the heat map with one row per weekday.
func renderGrid(g stats.Grid) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("%d tasks completed since %s", g.Total(), g.WindowStart)) + "\n")
	square := func(c stats.Cell) string {
		if !c.InWindow {
			return " "
		}
		return lipgloss.NewStyle().Foreground(levelColors[c.Level]).Render("■")
	}
	// Tail starts on a Sunday, so its index is the weekday row.
	for day := 0; day < 7; day++ {
		for week := 0; week < stats.GridWeeks; week++ {
			b.WriteString(square(g.Weeks[week][day]))
		}
		if day < len(g.Tail) {
			b.WriteString(square(g.Tail[day]))
		}
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("less "))
	for _, c := range levelColors {
		b.WriteString(lipgloss.NewStyle().Foreground(c).Render("■"))
	}
	b.WriteString(mutedStyle.Render(" more"))
	return b.String()
}

func renderTaskLines(title string, tasks []models.Task) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(title) + "\n")
	if len(tasks) == 0 {
		b.WriteString(mutedStyle.Render("nothing here"))
		return b.String()
	}
	for _, t := range tasks {
		b.WriteString(fmt.Sprintf("%s %s %s\n", formatStatusPlain(t), t.Content, mutedStyle.Render(string(t.TaskDate))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderTaskList(height int) string {
	if !a.snap.Loaded() {
		return "\n  Loading tasks...\n"
	}
	if len(a.visible) == 0 {
		if a.criteria.IsDefault() {
			return "\n  No tasks found. Type: add <title> to create one.\n"
		}
		return "\n  No tasks match. Type: clear to reset filters.\n"
	}

	var lines []string
	for i, t := range a.visible {
		meta := priorityStyle(t.Priority).Render(string(t.Priority))
		if t.Project != "" {
			meta += mutedStyle.Render(" @" + t.Project)
		}
		meta += mutedStyle.Render(" " + string(t.TaskDate))

		if i == a.selectedIdx {
			lines = append(lines, selectedStyle.Render(fmt.Sprintf("▶ %s  %s", formatStatusPlain(t), t.Content)))
		} else {
			lines = append(lines, taskItemStyle.Render(fmt.Sprintf("  %s  %s  %s", formatStatus(t), t.Content, meta)))
		}
	}

	if len(lines) > height {
		start := a.selectedIdx - height/2
		if start < 0 {
			start = 0
		}
		end := start + height
		if end > len(lines) {
			end = len(lines)
			start = max(0, end-height)
		}
		lines = lines[start:end]
	}

	return strings.Join(lines, "\n")
}

func (a *App) renderTaskDetail() string {
	t, ok := a.snap.Get(a.detailID)
	if !ok {
		return "\n  Task no longer exists.\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n  📋 %s\n", lipgloss.NewStyle().Bold(true).Render(t.Content)))
	b.WriteString(fmt.Sprintf("  ID: %s\n", shortID(t.ID)))
	b.WriteString(fmt.Sprintf("  Status: %s\n", formatStatus(t)))
	if t.Description != "" {
		b.WriteString(fmt.Sprintf("  Description: %s\n", t.Description))
	}
	b.WriteString(fmt.Sprintf("  Category: %s   Priority: %s\n", t.Category, priorityStyle(t.Priority).Render(string(t.Priority))))
	b.WriteString(fmt.Sprintf("  Project: %s\n", t.ProjectName()))
	if len(t.Tags) > 0 {
		b.WriteString(fmt.Sprintf("  Tags: %s\n", strings.Join(t.Tags, ", ")))
	}
	b.WriteString(fmt.Sprintf("  Date: %s", t.TaskDate))
	if t.StartTime != "" && t.EndTime != "" {
		b.WriteString(fmt.Sprintf("  %s-%s (%.1fh)", t.StartTime, t.EndTime, t.Hours()))
	}
	b.WriteString("\n")
	if t.CompletedAt != nil {
		b.WriteString(fmt.Sprintf("  Completed: %s\n", time.UnixMilli(*t.CompletedAt).In(a.s.Location()).Format("2006-01-02 15:04")))
	}
	if t.FileURL != "" {
		b.WriteString(fmt.Sprintf("  Attachment: %s\n", t.FileURL))
	}
	if tlog := a.s.TimeLog(); tlog != nil {
		if total := tlog.Total(t.ID); total > 0 {
			b.WriteString(fmt.Sprintf("  Time logged: %s\n", timer.FormatDuration(total)))
		}
	}
	return b.String()
}

func (a *App) renderCalendar() string {
	days := stats.MonthCalendar(a.snap.Tasks(), a.calMonth.Year(), a.calMonth.Month(), a.s.Today())

	var b strings.Builder
	b.WriteString("\n  " + headingStyle.Render(a.calMonth.Format("January 2006")) + "\n")
	b.WriteString(mutedStyle.Render("   Sun   Mon   Tue   Wed   Thu   Fri   Sat") + "\n")
	for week := 0; week < 6; week++ {
		b.WriteString(" ")
		for i := 0; i < 7; i++ {
			day := days[week*7+i]
			cell := fmt.Sprintf(" %2s", string(day.Date)[8:])
			if day.TotalTasks > 0 {
				cell += fmt.Sprintf("%-3s", fmt.Sprintf("·%d", day.TotalTasks))
			} else {
				cell += "   "
			}
			style := lipgloss.NewStyle()
			switch {
			case !day.CurrentMonth:
				style = mutedStyle
			case day.TotalTasks > 0 && day.CompletedTasks == day.TotalTasks:
				style = style.Foreground(successColor)
			case day.TotalTasks > 0:
				style = style.Foreground(warningColor)
			}
			if day.IsToday {
				style = style.Underline(true)
			}
			if day.Date == a.calDay {
				style = style.Reverse(true)
			}
			b.WriteString(style.Render(cell))
		}
		b.WriteString("\n")
	}

	tasks := stats.DayTasks(a.snap.Tasks(), a.calDay)
	b.WriteString("\n" + renderTaskLines(fmt.Sprintf("%s (%d)", a.calDay, len(tasks)), tasks))
	return b.String()
}

func (a *App) renderProjects(height int) string {
	if len(a.dash.Projects) == 0 {
		return "\n  No projects yet. Add a task with @project to start one.\n"
	}

	var b strings.Builder
	for i, p := range a.dash.Projects {
		line := fmt.Sprintf("%-24s %3d%%  %d/%d tasks  %.1fh  %s",
			p.Name, p.CompletionRate, p.CompletedTasks, p.TotalTasks, p.TotalTime,
			priorityStyle(p.HighestPriority).Render(string(p.HighestPriority)))
		if i == a.projectIdx {
			b.WriteString(selectedStyle.Render("▶ "+line) + "\n")
		} else {
			b.WriteString(taskItemStyle.Render("  "+line) + "\n")
		}
	}

	p := a.dash.Projects[a.projectIdx]
	cats := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		cats[i] = string(c)
	}
	detail := fmt.Sprintf("%s\nCategories: %s\n%s",
		headingStyle.Render(p.Name), strings.Join(cats, ", "),
		renderTaskLines("Recent tasks", p.RecentTasks))
	b.WriteString("\n" + panelStyle.Render(detail))

	lines := strings.Split(b.String(), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderTimer() string {
	tm := a.s.Timer()
	if tm == nil {
		return "\n  Sign in to track time.\n"
	}

	title := mutedStyle.Render("no task selected (select one in the list, then start)")
	if id := tm.TaskID(); id != "" {
		if t, ok := a.snap.Get(id); ok {
			title = t.Content
		} else {
			title = timer.UnknownTaskTitle
		}
	}

	var b strings.Builder
	b.WriteString("\n  " + headingStyle.Render("Session timer") + "  " + mutedStyle.Render(tm.State().String()) + "\n")
	b.WriteString("  Task: " + title + "\n")
	b.WriteString("  " + lipgloss.NewStyle().Bold(true).Foreground(warningColor).Render(formatClock(a.elapsed)) + "\n\n")
	b.WriteString("  " + headingStyle.Render("Time log") + "\n")
	b.WriteString(a.viewport.View())
	return b.String()
}

func (a *App) renderTimeLog() string {
	tlog := a.s.TimeLog()
	if tlog == nil {
		return ""
	}
	entries := tlog.Entries()
	if len(entries) == 0 {
		return helpStyle.Render("  No sessions saved yet.")
	}
	var b strings.Builder
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		when := time.UnixMilli(e.SavedAt).In(a.s.Location()).Format("Jan 02 15:04")
		b.WriteString(fmt.Sprintf("  %s  %-8s  %s\n", mutedStyle.Render(when), timer.FormatDuration(e.DurationMs), e.TaskTitle))
	}
	return b.String()
}

// formatClock renders d as HH:MM:SS.
func formatClock(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
