package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"
	"github.com/core-tools/hsu-stack/pkg/metrics"
	"github.com/core-tools/hsu-stack/pkg/monitoring"
	"github.com/core-tools/hsu-stack/pkg/platform"
	"github.com/core-tools/hsu-stack/pkg/status"
)

// Stage names used in messages and metrics
const (
	stagePrerequisites = "prerequisites"
	stageEnvironment   = "environment"
	stageBuild         = "build"
	stageDeploy        = "deploy"
	stageStop          = "stop"
	stageRestart       = "restart"
	stageHealth        = "health"
	stageStatus        = "status"
	stageLogs          = "logs"
	stageConfirm       = "confirm"
	stagePurge         = "purge"
)

type PrereqChecker interface {
	Check(ctx context.Context) error
}

type EnvironmentValidator interface {
	Validate() error
}

type Builder interface {
	Build(ctx context.Context, scope domain.ServiceSet) error
}

type Deployer interface {
	Deploy(ctx context.Context, scope domain.ServiceSet) error
	Stop(ctx context.Context, scope domain.ServiceSet) error
	Restart(ctx context.Context, scope domain.ServiceSet) error
	Purge(ctx context.Context) error
}

type HealthMonitor interface {
	WaitHealthy(ctx context.Context, scope domain.ServiceSet, options monitoring.WaitOptions) ([]domain.HealthVerdict, error)
	ProbeOnce(ctx context.Context, scope domain.ServiceSet) []domain.HealthVerdict
}

type StatusReporter interface {
	Report(ctx context.Context, scope domain.ServiceSet) domain.StatusSnapshot
}

type LogStreamer interface {
	Logs(ctx context.Context, scope domain.ServiceSet, options platform.LogOptions, w io.Writer) error
}

type Confirmer interface {
	Confirm(question string) (bool, error)
}

// ScopeResolver maps the optional service argument to a scope
type ScopeResolver func(arg string) (domain.ServiceSet, error)

type Components struct {
	Prereq      PrereqChecker
	Environment EnvironmentValidator
	Builder     Builder
	Deployer    Deployer
	Health      HealthMonitor
	Status      StatusReporter
	Logs        LogStreamer
	Confirmer   Confirmer
	Scope       ScopeResolver
}

type Options struct {
	Program     string
	Project     string
	Services    []string
	Policy      monitoring.Policy
	LogOptions  platform.LogOptions
	MetricsFile string
	Stdout      io.Writer
	Stderr      io.Writer
}

type handler func(ctx context.Context, scope domain.ServiceSet) error

// Dispatcher maps a command and optional service to a pipeline of stages and
// owns the exit code. Each stage short-circuits the pipeline on failure.
type Dispatcher struct {
	components Components
	program    string
	project    string
	services   []string
	policy     monitoring.Policy
	logOptions platform.LogOptions

	metrics     *metrics.Recorder
	metricsFile string

	stdout io.Writer
	stderr io.Writer
	logger logging.Logger

	handlers [commandCount]handler
	command  Command
}

func NewDispatcher(components Components, options Options, recorder *metrics.Recorder, logger logging.Logger) *Dispatcher {
	if options.Program == "" {
		options.Program = "stackctl"
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Stderr == nil {
		options.Stderr = os.Stderr
	}
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}

	d := &Dispatcher{
		components:  components,
		program:     options.Program,
		project:     options.Project,
		services:    options.Services,
		policy:      options.Policy,
		logOptions:  options.LogOptions,
		metrics:     recorder,
		metricsFile: options.MetricsFile,
		stdout:      options.Stdout,
		stderr:      options.Stderr,
		logger:      logger,
	}
	d.handlers = [commandCount]handler{
		CommandDeploy:  d.deploy,
		CommandBuild:   d.build,
		CommandStart:   d.start,
		CommandStop:    d.stop,
		CommandRestart: d.restart,
		CommandStatus:  d.status,
		CommandLogs:    d.logs,
		CommandHealth:  d.health,
		CommandClean:   d.clean,
		CommandHelp:    d.help,
	}
	return d
}

// Run executes args ("<command> [service]") and returns the process exit code
func (d *Dispatcher) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		d.printUsage(d.stdout)
		return 0
	}

	command, err := ParseCommand(args[0])
	if err != nil {
		d.printFailure("", err)
		d.printUsage(d.stderr)
		return 1
	}
	d.command = command

	var serviceArg string
	if len(args) > 1 && command.TakesService() {
		serviceArg = args[1]
	}
	if len(args) > 2 || (len(args) > 1 && !command.TakesService()) {
		d.logger.Warnf("Ignoring extra arguments, command: %s, args: %v", command, args[1:])
	}

	scope, err := d.components.Scope(serviceArg)
	if err != nil {
		d.printFailure("", err)
		return 1
	}

	d.logger.Debugf("Dispatching command, command: %s, scope: %s", command, scope)
	err = d.handlers[command](ctx, scope)
	d.finish()

	if err != nil {
		d.printFailure(command.String(), err)
		return 1
	}
	return 0
}

func (d *Dispatcher) finish() {
	d.metrics.MarkRun(d.command.String(), time.Now())
	if d.metricsFile == "" {
		return
	}
	if err := d.metrics.WriteTextfile(d.metricsFile); err != nil {
		d.logger.Errorf("Failed to write metrics, path: %s, error: %v", d.metricsFile, err)
	}
}

// runStage announces, times and records one stage. A failure is wrapped with the stage name.
func (d *Dispatcher) runStage(name string, fn func() error) error {
	fmt.Fprintf(d.stdout, "==> %s\n", stageTitle(name))

	stageLogger := logging.WithFields(d.logger, "command", d.command.String(), "stage", name)

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	d.metrics.ObserveStage(d.command.String(), name, elapsed, err)

	if err != nil {
		stageLogger.Warnf("Stage failed, duration: %v, error: %v", elapsed, err)
		return &stageError{stage: name, err: err}
	}
	stageLogger.Debugf("Stage completed, duration: %v", elapsed)
	return nil
}

func stageTitle(name string) string {
	switch name {
	case stagePrerequisites:
		return "Checking prerequisites"
	case stageEnvironment:
		return "Validating environment"
	case stageBuild:
		return "Building services"
	case stageDeploy:
		return "Deploying services"
	case stageStop:
		return "Stopping services"
	case stageRestart:
		return "Restarting services"
	case stageHealth:
		return "Waiting for services to become healthy"
	case stageStatus:
		return "Service status"
	case stageLogs:
		return "Streaming logs"
	case stageConfirm:
		return "Confirming clean"
	case stagePurge:
		return "Removing containers, volumes and images"
	default:
		return name
	}
}

// Pipelines

func (d *Dispatcher) deploy(ctx context.Context, scope domain.ServiceSet) error {
	if err := d.prepare(ctx); err != nil {
		return err
	}
	if err := d.runStage(stageBuild, func() error { return d.components.Builder.Build(ctx, scope) }); err != nil {
		return err
	}
	if err := d.runStage(stageDeploy, func() error { return d.components.Deployer.Deploy(ctx, scope) }); err != nil {
		return err
	}
	return d.waitAndReport(ctx, scope)
}

func (d *Dispatcher) build(ctx context.Context, scope domain.ServiceSet) error {
	if err := d.prepare(ctx); err != nil {
		return err
	}
	if err := d.runStage(stageBuild, func() error { return d.components.Builder.Build(ctx, scope) }); err != nil {
		return err
	}
	fmt.Fprintf(d.stdout, "Built %s\n", scope)
	return nil
}

func (d *Dispatcher) start(ctx context.Context, scope domain.ServiceSet) error {
	if err := d.prepare(ctx); err != nil {
		return err
	}
	if err := d.runStage(stageDeploy, func() error { return d.components.Deployer.Deploy(ctx, scope) }); err != nil {
		return err
	}
	return d.waitAndReport(ctx, scope)
}

// stop always succeeds; a failure is reported as a warning
func (d *Dispatcher) stop(ctx context.Context, scope domain.ServiceSet) error {
	err := d.runStage(stagePrerequisites, func() error { return d.components.Prereq.Check(ctx) })
	if err == nil {
		err = d.runStage(stageStop, func() error { return d.components.Deployer.Stop(ctx, scope) })
	}
	if err != nil {
		d.logger.Warnf("Stop did not complete, scope: %s, error: %v", scope, err)
		fmt.Fprintf(d.stderr, "Warning: %v\n", err)
		return nil
	}
	fmt.Fprintf(d.stdout, "Stopped %s\n", scope)
	return nil
}

func (d *Dispatcher) restart(ctx context.Context, scope domain.ServiceSet) error {
	if err := d.prepare(ctx); err != nil {
		return err
	}
	if err := d.runStage(stageRestart, func() error { return d.components.Deployer.Restart(ctx, scope) }); err != nil {
		return err
	}
	return d.waitAndReport(ctx, scope)
}

func (d *Dispatcher) status(ctx context.Context, scope domain.ServiceSet) error {
	d.report(ctx, scope)
	return nil
}

func (d *Dispatcher) logs(ctx context.Context, scope domain.ServiceSet) error {
	if err := d.runStage(stagePrerequisites, func() error { return d.components.Prereq.Check(ctx) }); err != nil {
		return err
	}
	return d.runStage(stageLogs, func() error {
		return d.components.Logs.Logs(ctx, scope, d.logOptions, d.stdout)
	})
}

// health probes once without retrying and never changes deployment state
func (d *Dispatcher) health(ctx context.Context, scope domain.ServiceSet) error {
	return d.runStage(stageHealth, func() error {
		verdicts := d.components.Health.ProbeOnce(ctx, scope)
		d.metrics.ObserveHealth(verdicts)
		d.printVerdicts(verdicts)
		if domain.AllHealthy(verdicts) {
			return nil
		}
		return errors.NewHealthTimeoutError(domain.UnhealthyServices(verdicts), nil).WithContext("attempts", 1)
	})
}

func (d *Dispatcher) clean(ctx context.Context, scope domain.ServiceSet) error {
	if err := d.runStage(stagePrerequisites, func() error { return d.components.Prereq.Check(ctx) }); err != nil {
		return err
	}

	var confirmed bool
	err := d.runStage(stageConfirm, func() error {
		var err error
		question := fmt.Sprintf("This removes all containers, volumes and locally built images of %s. Continue?", d.project)
		confirmed, err = d.components.Confirmer.Confirm(question)
		return err
	})
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(d.stdout, "Clean cancelled, nothing was removed")
		return nil
	}

	if err := d.runStage(stagePurge, func() error { return d.components.Deployer.Purge(ctx) }); err != nil {
		return err
	}
	fmt.Fprintf(d.stdout, "Removed containers, volumes and images of %s\n", d.project)
	return nil
}

func (d *Dispatcher) help(ctx context.Context, scope domain.ServiceSet) error {
	d.printUsage(d.stdout)
	return nil
}

// Shared stages

func (d *Dispatcher) prepare(ctx context.Context) error {
	if err := d.runStage(stagePrerequisites, func() error { return d.components.Prereq.Check(ctx) }); err != nil {
		return err
	}
	return d.runStage(stageEnvironment, d.components.Environment.Validate)
}

// waitAndReport waits for readiness, then prints status. On a health timeout
// the status is printed before the failure is returned.
func (d *Dispatcher) waitAndReport(ctx context.Context, scope domain.ServiceSet) error {
	healthErr := d.runStage(stageHealth, func() error {
		verdicts, err := d.components.Health.WaitHealthy(ctx, scope, monitoring.WaitOptions{
			Policy: d.policy,
			Strict: !scope.IsAll(),
		})
		d.metrics.ObserveHealth(verdicts)
		d.printVerdicts(verdicts)
		return err
	})

	if healthErr != nil && errors.IsCancelledError(healthErr) {
		return healthErr
	}
	d.report(ctx, scope)
	return healthErr
}

func (d *Dispatcher) report(ctx context.Context, scope domain.ServiceSet) {
	_ = d.runStage(stageStatus, func() error {
		snapshot := d.components.Status.Report(ctx, scope)
		if err := status.Render(d.stdout, snapshot); err != nil {
			d.logger.Warnf("Failed to render status, error: %v", err)
		}
		return nil
	})
}

// Output

func (d *Dispatcher) printVerdicts(verdicts []domain.HealthVerdict) {
	for _, verdict := range verdicts {
		mark := "healthy"
		if !verdict.Healthy {
			mark = "UNHEALTHY"
		}
		line := fmt.Sprintf("  %-12s %-9s attempts: %d", verdict.Service, mark, verdict.AttemptsUsed)
		if !verdict.Healthy && verdict.Message != "" {
			line += ", last: " + verdict.Message
		}
		fmt.Fprintln(d.stdout, line)
	}
}

func (d *Dispatcher) printFailure(command string, err error) {
	if command == "" {
		fmt.Fprintf(d.stderr, "Error: %s\n", userMessage(err))
	} else {
		fmt.Fprintf(d.stderr, "Error: %s: %s\n", command, userMessage(err))
	}
	if hint := d.hint(err); hint != "" {
		fmt.Fprintf(d.stderr, "Hint: %s\n", hint)
	}
}

// userMessage drops the error type prefix of the innermost stage error
func userMessage(err error) string {
	if stageErr, ok := err.(*stageError); ok {
		if domainErr, ok := stageErr.err.(*errors.DomainError); ok {
			return fmt.Sprintf("%s stage failed: %s", stageErr.stage, describe(domainErr))
		}
		return stageErr.Error()
	}
	if domainErr, ok := err.(*errors.DomainError); ok {
		return describe(domainErr)
	}
	return err.Error()
}

func describe(err *errors.DomainError) string {
	if err.Cause != nil {
		return fmt.Sprintf("%s: %v", err.Message, err.Cause)
	}
	return err.Message
}

func (d *Dispatcher) printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: %[1]s [options] <command> [service]

Commands:
  deploy [service]   check, validate, build, deploy, wait for health, show status
  build [service]    check, validate and build without deploying
  start [service]    deploy without building, wait for health, show status
  stop [service]     stop services
  restart [service]  stop and start services, wait for health, show status
  status [service]   show state, resource usage and endpoints
  logs [service]     stream service logs
  health [service]   probe readiness once
  clean              remove containers, volumes and images (asks for confirmation)
  help               show this help

Services: %[2]v (default: all)

Run '%[1]s --help' for options.
`, d.program, d.services)
}
