// Package stats derives dashboard statistics from task snapshots. Every
// function is pure and returns zero values for empty input.
package stats

import (
	"math"
	"time"

	"github.com/fentz26/taskboard/internal/models"
)

// Summary holds totals over a set of tasks.
type Summary struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"` // percent, 0..100
}

// Summarize counts tasks by status.
func Summarize(tasks []models.Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t.IsCompleted() {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	s.CompletionRate = rate(s.Completed, s.Total)
	return s
}

func rate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Today holds the dashboard's today and this-week counters.
type Today struct {
	TodayTasks        int     `json:"todayTasks"`
	CompletedToday    int     `json:"completedToday"`
	PendingToday      int     `json:"pendingToday"`
	WeekTasks         int     `json:"weekTasks"`
	CompletedThisWeek int     `json:"completedThisWeek"`
	HoursToday        float64 `json:"hoursToday"`
}

// ForToday partitions tasks by task date. The week covers every task dated
// on or after today minus seven days.
func ForToday(tasks []models.Task, today models.Date) Today {
	weekStart := today.AddDays(-7)
	var out Today
	for _, t := range tasks {
		if t.TaskDate == today {
			out.TodayTasks++
			if t.IsCompleted() {
				out.CompletedToday++
			} else {
				out.PendingToday++
			}
		}
		if !t.TaskDate.Before(weekStart) {
			out.WeekTasks++
			if t.IsCompleted() {
				out.CompletedThisWeek++
			}
		}
	}
	out.HoursToday = HoursOn(tasks, today)
	return out
}

// HoursOn sums the scheduled hours of tasks dated day, rounded to one decimal.
func HoursOn(tasks []models.Task, day models.Date) float64 {
	var h float64
	for _, t := range tasks {
		if t.TaskDate == day {
			h += t.Hours()
		}
	}
	return round1(h)
}

// ByCategory counts tasks per category. Missing or unknown categories are
// counted under "unspecified".
func ByCategory(tasks []models.Task) map[models.Category]int {
	out := make(map[models.Category]int)
	for _, t := range tasks {
		out[models.ParseCategory(string(t.Category))]++
	}
	return out
}

// ByPriority counts tasks per priority. Missing or unknown priorities are
// counted under "unspecified".
func ByPriority(tasks []models.Task) map[models.Priority]int {
	out := make(map[models.Priority]int)
	for _, t := range tasks {
		out[models.ParsePriority(string(t.Priority))]++
	}
	return out
}

// DayCount is one point of the weekly trend.
type DayCount struct {
	Date      models.Date  `json:"date"`
	Weekday   time.Weekday `json:"weekday"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
}

// WeeklyTrend returns the last seven calendar days ending today, oldest first.
func WeeklyTrend(tasks []models.Task, today models.Date) []DayCount {
	days := make([]DayCount, 7)
	index := make(map[models.Date]int, 7)
	for i := range days {
		d := today.AddDays(i - 6)
		days[i] = DayCount{Date: d, Weekday: d.Weekday()}
		index[d] = i
	}
	for _, t := range tasks {
		i, ok := index[t.TaskDate]
		if !ok {
			continue
		}
		days[i].Total++
		if t.IsCompleted() {
			days[i].Completed++
		}
	}
	return days
}
