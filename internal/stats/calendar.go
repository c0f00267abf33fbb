package stats

import (
	"time"

	"github.com/fentz26/taskboard/internal/models"
)

// CalendarDay is one square of the month view.
type CalendarDay struct {
	Date           models.Date `json:"date"`
	CurrentMonth   bool        `json:"currentMonth"`
	IsToday        bool        `json:"isToday"`
	CompletedTasks int         `json:"completedTasks"`
	TotalTasks     int         `json:"totalTasks"`
}

// MonthCalendar returns six Sunday-aligned weeks covering month.
func MonthCalendar(tasks []models.Task, year int, month time.Month, today models.Date) [42]CalendarDay {
	first := models.DateOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
	start := first.StartOfWeek()
	prefix := first[:7] // YYYY-MM

	type tally struct{ done, total int }
	byDay := make(map[models.Date]tally)
	for _, t := range tasks {
		c := byDay[t.TaskDate]
		c.total++
		if t.IsCompleted() {
			c.done++
		}
		byDay[t.TaskDate] = c
	}

	var out [42]CalendarDay
	for i := range out {
		d := start.AddDays(i)
		c := byDay[d]
		out[i] = CalendarDay{
			Date:           d,
			CurrentMonth:   d[:7] == prefix,
			IsToday:        d == today,
			CompletedTasks: c.done,
			TotalTasks:     c.total,
		}
	}
	return out
}

// DayTasks returns the tasks dated day, in input order.
func DayTasks(tasks []models.Task, day models.Date) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.TaskDate == day {
			out = append(out, t)
		}
	}
	return out
}

// RecentActivity returns the first n tasks, which in snapshot order are the
// most recently created.
func RecentActivity(tasks []models.Task, n int) []models.Task {
	if n > len(tasks) {
		n = len(tasks)
	}
	if n <= 0 {
		return nil
	}
	return append([]models.Task(nil), tasks[:n]...)
}

// TodayFocus returns up to n pending tasks dated today.
func TodayFocus(tasks []models.Task, today models.Date, n int) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if len(out) >= n {
			break
		}
		if t.TaskDate == today && !t.IsCompleted() {
			out = append(out, t)
		}
	}
	return out
}
