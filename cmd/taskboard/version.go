package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/api"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of taskboard",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("taskboard version %s\n", api.Version)
		fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  Go version: %s\n", runtime.Version())
	},
}
