package platform

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"
)

// maxErrorOutput bounds how much tool stderr is carried in an error
const maxErrorOutput = 2048

type ComposeOptions struct {
	// Command invokes compose, e.g. ["docker", "compose"] or ["podman-compose"]
	Command     []string
	Files       []string
	ProjectDir  string
	ProjectName string

	// Engine is the container engine binary used for info and stats; derived from Command when empty
	Engine string

	// Progress receives build and lifecycle output; discarded when nil
	Progress io.Writer
}

// ComposePlatform drives a compose project through the compose CLI
type ComposePlatform struct {
	options ComposeOptions
	runner  Runner
	logger  logging.Logger
}

func NewComposePlatform(options ComposeOptions, runner Runner, logger logging.Logger) (*ComposePlatform, error) {
	if len(options.Command) == 0 || options.Command[0] == "" {
		return nil, errors.NewValidationError("compose command cannot be empty", nil)
	}
	if options.Engine == "" {
		options.Engine = engineOf(options.Command)
	}
	if options.Progress == nil {
		options.Progress = io.Discard
	}
	return &ComposePlatform{
		options: options,
		runner:  runner,
		logger:  logger,
	}, nil
}

func engineOf(command []string) string {
	switch command[0] {
	case "docker-compose":
		return "docker"
	case "podman-compose":
		return "podman"
	default:
		return command[0]
	}
}

func (p *ComposePlatform) Tool() string {
	return strings.Join(p.options.Command, " ")
}

func (p *ComposePlatform) Installed(ctx context.Context) error {
	if _, err := p.runner.LookPath(p.options.Command[0]); err != nil {
		return err
	}
	// docker without the compose plugin resolves but cannot run compose commands
	_, err := p.compose(ctx, "version")
	return err
}

func (p *ComposePlatform) Reachable(ctx context.Context) error {
	_, err := p.engine(ctx, "info")
	return err
}

func (p *ComposePlatform) Build(ctx context.Context, service string, options BuildOptions) error {
	args := []string{"build"}
	if options.NoCache {
		args = append(args, "--no-cache")
	}
	args = append(args, service)
	return p.composeStreaming(ctx, args...)
}

func (p *ComposePlatform) Start(ctx context.Context, scope domain.ServiceSet, options StartOptions) error {
	args := []string{"up", "-d"}
	if options.ForceRecreate {
		args = append(args, "--force-recreate")
	}
	if options.NoDeps {
		args = append(args, "--no-deps")
	}
	args = append(args, scopeArgs(scope)...)
	return p.composeStreaming(ctx, args...)
}

func (p *ComposePlatform) Stop(ctx context.Context, scope domain.ServiceSet) error {
	args := append([]string{"stop"}, scopeArgs(scope)...)
	return p.composeStreaming(ctx, args...)
}

func (p *ComposePlatform) State(ctx context.Context, scope domain.ServiceSet) (domain.DeploymentState, error) {
	args := append([]string{"ps", "--all", "--format", "json"}, scopeArgs(scope)...)
	output, err := p.compose(ctx, args...)
	if err != nil {
		return nil, err
	}

	state, err := parseState(output, scope)
	if err != nil {
		return nil, errors.NewPlatformError("failed to parse container state", err)
	}
	return state, nil
}

func (p *ComposePlatform) Usage(ctx context.Context, scope domain.ServiceSet) (map[string]domain.ResourceUsage, error) {
	state, err := p.State(ctx, scope)
	if err != nil {
		return nil, err
	}

	serviceOf := make(map[string]string)
	args := []string{"stats", "--no-stream", "--format", "{{json .}}"}
	for _, name := range scope.Names() {
		service, ok := state[name]
		if !ok || service.Lifecycle != domain.LifecycleRunning || service.Container == "" {
			continue
		}
		serviceOf[service.Container] = name
		args = append(args, service.Container)
	}

	usage := make(map[string]domain.ResourceUsage, len(serviceOf))
	if len(serviceOf) == 0 {
		return usage, nil
	}

	output, err := p.engine(ctx, args...)
	if err != nil {
		return nil, err
	}
	byContainer, err := parseStats(output)
	if err != nil {
		return nil, errors.NewPlatformError("failed to parse resource usage", err)
	}
	for container, sample := range byContainer {
		if service, ok := serviceOf[container]; ok {
			usage[service] = sample
		}
	}
	return usage, nil
}

func (p *ComposePlatform) Logs(ctx context.Context, scope domain.ServiceSet, options LogOptions, w io.Writer) error {
	args := []string{"logs"}
	if options.Follow {
		args = append(args, "--follow")
	}
	if options.Tail != "" {
		args = append(args, "--tail", options.Tail)
	}
	args = append(args, scopeArgs(scope)...)

	name, fullArgs := p.composeCommand(args)
	p.logger.Debugf("Streaming logs, command: %s %s", name, strings.Join(fullArgs, " "))

	if err := p.runner.Stream(ctx, p.options.ProjectDir, w, w, name, fullArgs...); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.NewPlatformError("log streaming failed", err).WithContext("scope", scope.String())
	}
	return nil
}

func (p *ComposePlatform) Purge(ctx context.Context) error {
	return p.composeStreaming(ctx, "down", "--volumes", "--rmi", "local", "--remove-orphans")
}

// scopeArgs lists service names for a partial scope; compose addresses every
// service of the project when none are named
func scopeArgs(scope domain.ServiceSet) []string {
	if scope.IsAll() {
		return nil
	}
	return scope.Names()
}

func (p *ComposePlatform) composeCommand(args []string) (string, []string) {
	fullArgs := append([]string{}, p.options.Command[1:]...)
	for _, file := range p.options.Files {
		fullArgs = append(fullArgs, "-f", file)
	}
	if p.options.ProjectName != "" {
		fullArgs = append(fullArgs, "-p", p.options.ProjectName)
	}
	fullArgs = append(fullArgs, args...)
	return p.options.Command[0], fullArgs
}

func (p *ComposePlatform) compose(ctx context.Context, args ...string) ([]byte, error) {
	name, fullArgs := p.composeCommand(args)
	return p.run(ctx, name, fullArgs...)
}

func (p *ComposePlatform) engine(ctx context.Context, args ...string) ([]byte, error) {
	return p.run(ctx, p.options.Engine, args...)
}

func (p *ComposePlatform) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := name + " " + strings.Join(args, " ")
	p.logger.Debugf("Running platform command, command: %s", command)

	stdout, stderr, err := p.runner.Run(ctx, p.options.ProjectDir, name, args...)
	if err != nil {
		return stdout, commandError(command, stderr, err)
	}
	return stdout, nil
}

// composeStreaming copies output to the progress writer and keeps stderr for the error
func (p *ComposePlatform) composeStreaming(ctx context.Context, args ...string) error {
	name, fullArgs := p.composeCommand(args)
	command := name + " " + strings.Join(fullArgs, " ")
	p.logger.Debugf("Running platform command, command: %s", command)

	stderr := newTailBuffer(2 * maxErrorOutput)
	err := p.runner.Stream(ctx, p.options.ProjectDir, p.options.Progress, io.MultiWriter(p.options.Progress, stderr), name, fullArgs...)
	if err != nil {
		return commandError(command, stderr.Bytes(), err)
	}
	return nil
}

// tailBuffer keeps only the last limit bytes written to it
type tailBuffer struct {
	limit int
	data  []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit, data: make([]byte, 0, limit)}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= b.limit {
		b.data = append(b.data[:0], p[n-b.limit:]...)
		return n, nil
	}
	if overflow := len(b.data) + n - b.limit; overflow > 0 {
		b.data = append(b.data[:0], b.data[overflow:]...)
	}
	b.data = append(b.data, p...)
	return n, nil
}

func (b *tailBuffer) Bytes() []byte {
	return b.data
}

// runeTail returns at most n trailing bytes of s without splitting a rune
func runeTail(s string, n int) string {
	tail := s[len(s)-n:]
	for i := 0; i < len(tail) && i < utf8.UTFMax; i++ {
		if utf8.RuneStart(tail[i]) {
			return tail[i:]
		}
	}
	return tail
}

func commandError(command string, stderr []byte, cause error) *errors.DomainError {
	output := strings.TrimSpace(string(stderr))
	if len(output) > maxErrorOutput {
		output = "..." + runeTail(output, maxErrorOutput)
	}
	message := fmt.Sprintf("command %q failed", command)
	if output != "" {
		message = fmt.Sprintf("%s: %s", message, output)
	}
	return errors.NewPlatformError(message, cause).WithContext("command", command)
}
