package platform

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"time"
)

// DefaultWaitDelay is how long a cancelled tool gets to exit before it is killed
const DefaultWaitDelay = 10 * time.Second

// Runner executes external commands on behalf of the platform adapter
type Runner interface {
	LookPath(file string) (string, error)

	// Run executes the command and captures its output
	Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error)

	// Stream executes the command copying its output as it is produced
	Stream(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error
}

// ExecRunner runs commands as child processes. When ctx is done the process
// group is asked to terminate and is killed after WaitDelay.
type ExecRunner struct {
	// Environment is appended to the inherited environment
	Environment []string
	WaitDelay   time.Duration
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: DefaultWaitDelay}
}

func (r *ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := r.command(ctx, dir, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (r *ExecRunner) Stream(ctx context.Context, dir string, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := r.command(ctx, dir, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}

func (r *ExecRunner) command(ctx context.Context, dir string, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.Environment) > 0 {
		cmd.Env = append(os.Environ(), r.Environment...)
	}

	// Platform-specific setup is in runner_unix.go and runner_windows.go
	setupProcessAttributes(cmd)

	cmd.WaitDelay = r.WaitDelay
	return cmd
}
