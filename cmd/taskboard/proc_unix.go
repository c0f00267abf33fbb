//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// configureServeProc detaches the background service from the terminal.
func configureServeProc(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
