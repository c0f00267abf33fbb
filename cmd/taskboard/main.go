package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Taskboard - personal task tracker",
	Long:  `Taskboard tracks your tasks, projects and focus time against a live document service.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	configPath string
	apiAddr    string
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "", "Document service address (overrides config)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, prefsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if apiAddr != "" {
		c.Client.API = apiAddr
		if err := c.Validate(); err != nil {
			return err
		}
	}
	cfg = c
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
