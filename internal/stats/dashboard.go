package stats

import (
	"sync"

	"github.com/fentz26/taskboard/internal/livestore"
	"github.com/fentz26/taskboard/internal/models"
)

const (
	recentActivityLimit = 5
	todayFocusLimit     = 4
)

// Dashboard bundles every derived view of one snapshot revision.
type Dashboard struct {
	Revision       uint64                  `json:"revision"`
	Today          models.Date             `json:"today"`
	Summary        Summary                 `json:"summary"`
	Day            Today                   `json:"day"`
	ByCategory     map[models.Category]int `json:"byCategory"`
	ByPriority     map[models.Priority]int `json:"byPriority"`
	Trend          []DayCount              `json:"trend"`
	Grid           Grid                    `json:"grid"`
	Projects       []Project               `json:"projects"`
	Overview       ProjectsOverview        `json:"overview"`
	RecentActivity []models.Task           `json:"recentActivity"`
	TodayFocus     []models.Task           `json:"todayFocus"`
}

// Build derives the dashboard for snap as of today.
func Build(snap livestore.Snapshot, today models.Date) Dashboard {
	tasks := snap.Tasks()
	projects := ProjectRollups(tasks)
	return Dashboard{
		Revision:       snap.Revision(),
		Today:          today,
		Summary:        Summarize(tasks),
		Day:            ForToday(tasks, today),
		ByCategory:     ByCategory(tasks),
		ByPriority:     ByPriority(tasks),
		Trend:          WeeklyTrend(tasks, today),
		Grid:           ContributionGrid(tasks, today),
		Projects:       projects,
		Overview:       Overview(projects),
		RecentActivity: RecentActivity(tasks, recentActivityLimit),
		TodayFocus:     TodayFocus(tasks, today, todayFocusLimit),
	}
}

// Cache memoises the dashboard of the latest revision. A snapshot revision
// never changes content, so the key is the revision, owner and date.
type Cache struct {
	mu    sync.Mutex
	valid bool
	owner string
	dash  Dashboard
}

// Get returns the dashboard for snap, rebuilding it only when the revision
// or the calendar day changed.
func (c *Cache) Get(snap livestore.Snapshot, today models.Date) Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.dash.Revision == snap.Revision() && c.owner == snap.OwnerID() && c.dash.Today == today {
		return c.dash
	}
	c.dash = Build(snap, today)
	c.owner = snap.OwnerID()
	c.valid = true
	return c.dash
}
