package stats

import "github.com/fentz26/taskboard/internal/models"

const (
	// GridWeeks is the number of week columns in the contribution grid.
	GridWeeks = 52
	// WindowDays is the length of the contribution window ending today.
	WindowDays = 364
)

// Cell is one day of the contribution grid.
type Cell struct {
	Date     models.Date `json:"date"`
	Count    int         `json:"count"`
	Level    int         `json:"level"`
	InWindow bool        `json:"inWindow"`
}

// Grid is the 52-week completion heat map. Weeks run Sunday to Saturday.
// Tail holds the window days that fall after the last full column, so the
// current week up to today is always present.
type Grid struct {
	WindowStart models.Date        `json:"windowStart"`
	WindowEnd   models.Date        `json:"windowEnd"`
	GridStart   models.Date        `json:"gridStart"`
	Weeks       [GridWeeks][7]Cell `json:"weeks"`
	Tail        []Cell             `json:"tail"`
}

// Level buckets a completed count into intensity 0..4.
func Level(count int) int {
	switch {
	case count <= 0:
		return 0
	case count <= 2:
		return 1
	case count <= 4:
		return 2
	case count <= 6:
		return 3
	default:
		return 4
	}
}

// ContributionGrid counts completed tasks per task date over the 364 days
// ending today. The grid starts on the Sunday on or before the window start
// and leading days before the window are zero-filled. Unless the window
// starts on a Sunday, the 52 columns end before today; the remaining window
// days, today included, go to Tail.
func ContributionGrid(tasks []models.Task, today models.Date) Grid {
	g := Grid{
		WindowStart: today.AddDays(-(WindowDays - 1)),
		WindowEnd:   today,
	}
	g.GridStart = g.WindowStart.StartOfWeek()

	counts := make(map[models.Date]int)
	for _, t := range tasks {
		if t.IsCompleted() {
			counts[t.TaskDate]++
		}
	}

	cell := func(date models.Date) Cell {
		c := Cell{Date: date}
		if !date.Before(g.WindowStart) && !date.After(g.WindowEnd) {
			c.InWindow = true
			c.Count = counts[date]
			c.Level = Level(c.Count)
		}
		return c
	}
	for w := 0; w < GridWeeks; w++ {
		for d := 0; d < 7; d++ {
			g.Weeks[w][d] = cell(g.GridStart.AddDays(w*7 + d))
		}
	}
	for date := g.GridStart.AddDays(GridWeeks * 7); !date.After(today); date = date.AddDays(1) {
		g.Tail = append(g.Tail, cell(date))
	}
	return g
}

// Total returns the number of completions shown in the grid.
func (g Grid) Total() int {
	n := 0
	for _, week := range g.Weeks {
		for _, c := range week {
			n += c.Count
		}
	}
	for _, c := range g.Tail {
		n += c.Count
	}
	return n
}
