package stats

import (
	"math"

	"github.com/fentz26/taskboard/internal/models"
)

// RecentProjectTasks caps Project.RecentTasks.
const RecentProjectTasks = 10

// Project is the rollup of every task sharing a project name.
type Project struct {
	Name            string                  `json:"name"`
	CompletedTasks  int                     `json:"completedTasks"`
	TotalTasks      int                     `json:"totalTasks"`
	CompletionRate  int                     `json:"completionRate"`
	TotalTime       float64                 `json:"totalTime"` // hours, one decimal
	Categories      []models.Category       `json:"categories"`
	Priority        map[models.Priority]int `json:"priority"`
	HighestPriority models.Priority         `json:"highestPriority"`
	RecentTasks     []models.Task           `json:"recentTasks"`
}

// ProjectRollups groups tasks by project, in order of first appearance.
// Tasks without a project roll up under "Unassigned".
func ProjectRollups(tasks []models.Task) []Project {
	var order []string
	groups := make(map[string]*Project)
	hours := make(map[string]float64)
	seenCat := make(map[string]map[models.Category]bool)

	for _, t := range tasks {
		name := t.ProjectName()
		p, ok := groups[name]
		if !ok {
			p = &Project{Name: name, Priority: make(map[models.Priority]int, len(models.Priorities))}
			for _, pr := range models.Priorities {
				p.Priority[pr] = 0
			}
			groups[name] = p
			seenCat[name] = make(map[models.Category]bool)
			order = append(order, name)
		}

		p.TotalTasks++
		if t.IsCompleted() {
			p.CompletedTasks++
		}
		cat := models.ParseCategory(string(t.Category))
		if !seenCat[name][cat] {
			seenCat[name][cat] = true
			p.Categories = append(p.Categories, cat)
		}
		p.Priority[models.ParsePriority(string(t.Priority))]++
		hours[name] += t.Hours()
		if len(p.RecentTasks) < RecentProjectTasks {
			p.RecentTasks = append(p.RecentTasks, t)
		}
	}

	out := make([]Project, 0, len(order))
	for _, name := range order {
		p := groups[name]
		p.CompletionRate = rate(p.CompletedTasks, p.TotalTasks)
		p.TotalTime = round1(hours[name])
		p.HighestPriority = HighestPriority(p.Priority)
		out = append(out, *p)
	}
	return out
}

// HighestPriority returns the priority with the largest count. Equal counts
// resolve to the more severe priority. An empty or all-zero map yields
// PriorityUnspecified.
func HighestPriority(counts map[models.Priority]int) models.Priority {
	best := models.PriorityUnspecified
	bestCount := 0
	for p, n := range counts {
		if n <= 0 {
			continue
		}
		if n > bestCount || (n == bestCount && p.Severity() > best.Severity()) {
			best, bestCount = p, n
		}
	}
	return best
}

// ProjectByName finds a rollup by name.
func ProjectByName(projects []Project, name string) (Project, bool) {
	for _, p := range projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// ProjectsOverview is the header row of the projects screen.
type ProjectsOverview struct {
	ActiveProjects    int `json:"activeProjects"`
	CompletedTasks    int `json:"completedTasks"`
	TotalHours        int `json:"totalHours"`
	AverageCompletion int `json:"averageCompletion"`
}

// Overview totals project rollups.
func Overview(projects []Project) ProjectsOverview {
	o := ProjectsOverview{ActiveProjects: len(projects)}
	if len(projects) == 0 {
		return o
	}
	var hours float64
	var rates int
	for _, p := range projects {
		o.CompletedTasks += p.CompletedTasks
		hours += p.TotalTime
		rates += p.CompletionRate
	}
	o.TotalHours = int(math.Round(hours))
	o.AverageCompletion = int(math.Round(float64(rates) / float64(len(projects))))
	return o
}
