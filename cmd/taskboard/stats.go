package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/stats"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the full dashboard as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	s, _, err := openLoaded(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	d := s.Dashboard()
	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	fmt.Printf("Today %s\n", d.Today)
	fmt.Printf("  Tasks today:     %d (%d done, %d pending)\n", d.Day.TodayTasks, d.Day.CompletedToday, d.Day.PendingToday)
	fmt.Printf("  Hours today:     %.1f\n", d.Day.HoursToday)
	fmt.Printf("  This week:       %d/%d done\n", d.Day.CompletedThisWeek, d.Day.WeekTasks)
	fmt.Printf("  All tasks:       %d (%d%% complete)\n", d.Summary.Total, d.Summary.CompletionRate)
	fmt.Printf("  Past year:       %d completed\n", d.Grid.Total())

	fmt.Println("\nLast 7 days")
	for _, day := range d.Trend {
		fmt.Printf("  %s %s  %s %d/%d\n", day.Date, day.Weekday.String()[:3],
			strings.Repeat("#", day.Completed)+strings.Repeat(".", day.Total-day.Completed), day.Completed, day.Total)
	}

	fmt.Println("\nBy category")
	printCounts(d.ByCategory)
	fmt.Println("\nBy priority")
	printCounts(d.ByPriority)

	if len(d.Projects) > 0 {
		fmt.Printf("\n%s\n", projectsHeader(d.Overview))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  PROJECT\tDONE\tRATE\tHOURS\tTOP PRIORITY")
		for _, p := range d.Projects {
			fmt.Fprintf(w, "  %s\t%d/%d\t%d%%\t%.1f\t%s\n",
				truncate(p.Name, 30), p.CompletedTasks, p.TotalTasks, p.CompletionRate, p.TotalTime, p.HighestPriority)
		}
		w.Flush()
	}
	return nil
}

func printCounts[K ~string](m map[K]int) {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return m[keys[i]] > m[keys[j]] || (m[keys[i]] == m[keys[j]] && keys[i] < keys[j]) })
	for _, k := range keys {
		fmt.Printf("  %-14s %d\n", k, m[k])
	}
}


func projectsHeader(o stats.ProjectsOverview) string {
	return fmt.Sprintf("Projects (%d active, %dh, %d%% average)", o.ActiveProjects, o.TotalHours, o.AverageCompletion)
}
