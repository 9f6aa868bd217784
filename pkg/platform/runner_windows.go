//go:build windows

package platform

import (
	"os/exec"
)

// setupProcessAttributes keeps the default cancellation, which kills the process
func setupProcessAttributes(cmd *exec.Cmd) {
}
