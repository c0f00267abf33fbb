package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/config"
	"github.com/fentz26/taskboard/internal/remote"
	"github.com/fentz26/taskboard/internal/session"
	"github.com/fentz26/taskboard/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	// 1. Make sure the document service is reachable
	if !isServiceRunning(cfg.Client.API) {
		if !isLocal(cfg.Client.API) {
			return fmt.Errorf("document service not reachable at %s", cfg.Client.API)
		}
		fmt.Println("⚡ Document service not running. Starting background service...")
		if err := startService(); err != nil {
			return fmt.Errorf("failed to start document service: %w", err)
		}
	}

	// 2. Keep log output off the screen
	logFile, err := os.OpenFile(filepath.Join(config.Dir(), "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err == nil {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	// 3. Launch TUI
	s, err := session.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := tui.New(s).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isServiceRunning(addr string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := remote.New(addr, 500*time.Millisecond, 0).CheckHealth(ctx)
	return err == nil
}

func isLocal(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "127.0.0.1", "localhost", "::1":
		return true
	}
	return false
}

func startService() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	u, _ := url.Parse(cfg.Client.API)
	cmd := exec.Command(exe, "serve", "--config", configPath, "--listen", u.Host)
	// Detach process so it survives TUI exit
	configureServeProc(cmd)

	if err := os.MkdirAll(config.Dir(), 0700); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(config.Dir(), "serve.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	defer logFile.Close()
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for document service...")
	for i := 0; i < 20; i++ { // Wait up to 5 seconds
		if isServiceRunning(cfg.Client.API) {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("document service started but not reachable at %s", cfg.Client.API)
}
