//go:build windows

package main

import "os/exec"

func configureServeProc(cmd *exec.Cmd) {
	// Windows doesn't use Setsid; a started process already outlives its parent.
}
