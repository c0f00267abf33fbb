package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/session"
	"github.com/fentz26/taskboard/internal/timer"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Track focus time",
}

var timerRunCmd = &cobra.Command{
	Use:   "run [task-id]",
	Short: "Time a task until interrupted, then save the session",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimerRun,
}

var timerLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show saved timer sessions",
	RunE:  runTimerLog,
}

func init() {
	timerCmd.AddCommand(timerRunCmd, timerLogCmd)
}

func runTimerRun(cmd *cobra.Command, args []string) error {
	s, snap, err := openLoaded(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := resolveTask(snap, args[0])
	if err != nil {
		return err
	}
	tm := s.Timer()
	tm.SelectTask(t.ID)
	tm.OnTick(func(d time.Duration) {
		fmt.Printf("\r⏱  %s  %s ", formatClock(d), t.Content)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := tm.Start(); err != nil {
		return err
	}
	fmt.Println("Timer running. Press Ctrl+C to stop and save.")
	<-sigCh
	tm.Pause()
	fmt.Println()

	entry, err := tm.Save(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Logged %s on %s\n", timer.FormatDuration(entry.DurationMs), entry.TaskTitle)
	return nil
}

func runTimerLog(cmd *cobra.Command, args []string) error {
	s, err := session.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	tlog := s.TimeLog()
	if tlog == nil {
		return fmt.Errorf("sign in first (taskboard login <email>)")
	}
	entries := tlog.Entries()
	if len(entries) == 0 {
		fmt.Println("No sessions saved")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SAVED\tDURATION\tTASK")
	var total int64
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		total += e.DurationMs
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			time.UnixMilli(e.SavedAt).In(s.Location()).Format("2006-01-02 15:04"),
			timer.FormatDuration(e.DurationMs), truncate(e.TaskTitle, 40))
	}
	w.Flush()
	fmt.Printf("\nTotal: %s\n", timer.FormatDuration(total))
	return nil
}

// formatClock renders d as HH:MM:SS.
func formatClock(d time.Duration) string {
	sec := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}
