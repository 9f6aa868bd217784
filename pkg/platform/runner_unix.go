//go:build !windows

package platform

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes puts the tool in its own process group so that
// cancellation reaches the whole tree, compose plugins included
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		// negative pid signals the process group
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
}
