package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/gateway"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/query"
	"github.com/fentz26/taskboard/internal/timer"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Toggle a task between pending and completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [task-id]",
	Short: "Edit task fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEdit,
}

var taskRmCmd = &cobra.Command{
	Use:   "rm [task-id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRm,
}

var (
	taskTitle    string
	taskDesc     string
	taskCategory string
	taskPriority string
	taskProject  string
	taskTags     string
	taskDate     string
	taskStart    string
	taskEnd      string
	taskFile     string

	listSearch   string
	listCategory string
	listStatus   string
	listDate     string
	listJSON     bool
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskDoneCmd, taskEditCmd, taskRmCmd)

	for _, c := range []*cobra.Command{taskAddCmd, taskEditCmd} {
		c.Flags().StringVar(&taskTitle, "title", "", "Task title")
		c.Flags().StringVar(&taskDesc, "desc", "", "Task description")
		c.Flags().StringVar(&taskCategory, "category", "", "Category (development, design, testing, ...)")
		c.Flags().StringVar(&taskPriority, "priority", "", "Priority (low, medium, high, urgent)")
		c.Flags().StringVar(&taskProject, "project", "", "Project name")
		c.Flags().StringVar(&taskTags, "tags", "", "Comma separated tags")
		c.Flags().StringVar(&taskDate, "date", "", "Task date YYYY-MM-DD (default today)")
		c.Flags().StringVar(&taskStart, "start", "", "Start time HH:MM")
		c.Flags().StringVar(&taskEnd, "end", "", "End time HH:MM")
	}
	taskAddCmd.Flags().StringVar(&taskFile, "file", "", "File to attach")
	taskAddCmd.MarkFlagRequired("title")

	taskListCmd.Flags().StringVar(&listSearch, "search", "", "Match title, description or project")
	taskListCmd.Flags().StringVar(&listCategory, "category", query.All, "Filter by category")
	taskListCmd.Flags().StringVar(&listStatus, "status", query.All, "Filter by status (all, pending, completed)")
	taskListCmd.Flags().StringVar(&listDate, "date", "", "Filter by task date YYYY-MM-DD")
	taskListCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	s, _, err := openLoaded(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	draft := gateway.Draft{
		Content:     taskTitle,
		Description: taskDesc,
		Category:    taskCategory,
		Priority:    taskPriority,
		Project:     taskProject,
		Tags:        taskTags,
		TaskDate:    taskDate,
		StartTime:   taskStart,
		EndTime:     taskEnd,
	}
	if taskFile != "" {
		data, err := os.ReadFile(taskFile)
		if err != nil {
			return fmt.Errorf("reading attachment: %w", err)
		}
		draft.Attachment = &gateway.Attachment{Name: filepath.Base(taskFile), Data: data}
	}

	id, err := s.Gateway.CreateTask(cmd.Context(), draft)
	if err != nil {
		return err
	}
	fmt.Printf("Created task: %s\n", id)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	s, snap, err := openLoaded(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	date := models.Date("")
	if listDate != "" {
		if date, err = models.ParseDate(listDate); err != nil {
			return err
		}
	}
	tasks := query.Filter(snap.Tasks(), query.Criteria{
		SearchTerm: listSearch,
		Category:   listCategory,
		Status:     listStatus,
		Date:       date,
	})

	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tPROJECT\tDATE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(t.ID), truncate(t.Content, 40), t.Status, t.Priority, t.ProjectName(), t.TaskDate)
	}
	w.Flush()
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	s, snap, err := openLoaded(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := resolveTask(snap, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Content)
	fmt.Printf("Description: %s\n", t.Description)
	fmt.Printf("Status:      %s\n", t.Status)
	fmt.Printf("Category:    %s\n", t.Category)
	fmt.Printf("Priority:    %s\n", t.Priority)
	fmt.Printf("Project:     %s\n", t.ProjectName())
	if len(t.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(t.Tags, ", "))
	}
	fmt.Printf("Date:        %s\n", t.TaskDate)
	if t.StartTime != "" {
		fmt.Printf("Time:        %s-%s (%.1fh)\n", t.StartTime, t.EndTime, t.Hours())
	}
	if t.FileURL != "" {
		fmt.Printf("Attachment:  %s\n", t.FileURL)
	}
	loc := s.Location()
	fmt.Printf("Created:     %s\n", time.UnixMilli(t.CreatedAt).In(loc).Format(time.RFC3339))
	if t.CompletedAt != nil {
		fmt.Printf("Completed:   %s\n", time.UnixMilli(*t.CompletedAt).In(loc).Format(time.RFC3339))
	}
	if tlog := s.TimeLog(); tlog != nil {
		if total := tlog.Total(t.ID); total > 0 {
			fmt.Printf("Time logged: %s\n", timer.FormatDuration(total))
		}
	}
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	s, snap, err := openLoaded(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := resolveTask(snap, args[0])
	if err != nil {
		return err
	}
	if err := s.Gateway.ToggleStatus(cmd.Context(), t.ID); err != nil {
		return err
	}
	if t.IsCompleted() {
		fmt.Printf("Reopened task %s\n", truncateID(t.ID))
	} else {
		fmt.Printf("Completed task %s\n", truncateID(t.ID))
	}
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	s, snap, err := openLoaded(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := resolveTask(snap, args[0])
	if err != nil {
		return err
	}

	patch, err := editPatchFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := s.Gateway.EditTask(cmd.Context(), t.ID, patch); err != nil {
		return err
	}
	fmt.Printf("Updated task %s\n", truncateID(t.ID))
	return nil
}

// editPatchFromFlags includes only the flags set on the command line.
func editPatchFromFlags(cmd *cobra.Command) (models.TaskPatch, error) {
	var p models.TaskPatch
	flags := cmd.Flags()
	str := func(name, value string) *string {
		if !flags.Changed(name) {
			return nil
		}
		return &value
	}
	p.Content = str("title", taskTitle)
	p.Description = str("desc", taskDesc)
	p.Project = str("project", taskProject)
	p.StartTime = str("start", taskStart)
	p.EndTime = str("end", taskEnd)
	if flags.Changed("category") {
		c := models.Category(taskCategory)
		p.Category = &c
	}
	if flags.Changed("priority") {
		pr := models.Priority(taskPriority)
		p.Priority = &pr
	}
	if flags.Changed("tags") {
		tags := gateway.SplitTags(taskTags)
		p.Tags = &tags
	}
	if flags.Changed("date") {
		d, err := models.ParseDate(taskDate)
		if err != nil {
			return p, err
		}
		p.TaskDate = &d
	}
	return p, nil
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	s, snap, err := openLoaded(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := resolveTask(snap, args[0])
	if err != nil {
		return err
	}
	if err := s.Gateway.DeleteTask(cmd.Context(), t.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted task %s\n", truncateID(t.ID))
	return nil
}
