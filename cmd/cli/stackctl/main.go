package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/core-tools/hsu-stack/pkg/builder"
	"github.com/core-tools/hsu-stack/pkg/config"
	"github.com/core-tools/hsu-stack/pkg/confirm"
	"github.com/core-tools/hsu-stack/pkg/deployment"
	"github.com/core-tools/hsu-stack/pkg/environment"
	"github.com/core-tools/hsu-stack/pkg/logging"
	"github.com/core-tools/hsu-stack/pkg/metrics"
	"github.com/core-tools/hsu-stack/pkg/monitoring"
	"github.com/core-tools/hsu-stack/pkg/orchestrator"
	"github.com/core-tools/hsu-stack/pkg/platform"
	"github.com/core-tools/hsu-stack/pkg/prereq"
	"github.com/core-tools/hsu-stack/pkg/status"

	"github.com/google/uuid"
	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config      string        `short:"c" long:"config" description:"path to the stack configuration (default: stack.yaml if present, else built-in)"`
	EnvFile     string        `long:"env-file" description:"environment file to validate instead of the configured one"`
	Debug       bool          `short:"d" long:"debug" description:"enable debug logging"`
	LogFormat   string        `long:"log-format" choice:"console" choice:"json" default:"console" description:"log encoding"`
	Yes         bool          `short:"y" long:"yes" description:"answer yes to the clean confirmation"`
	MetricsFile string        `long:"metrics-file" description:"write run metrics to this Prometheus textfile"`
	MaxAttempts int           `long:"max-attempts" description:"readiness probes per service before giving up"`
	Interval    time.Duration `long:"interval" description:"wait between readiness probes"`
	Tail        string        `long:"tail" default:"100" description:"log lines to show per service before following"`
	NoFollow    bool          `long:"no-follow" description:"print logs and exit instead of following"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts flagOptions
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	parser.Usage = "[options] <command> [service]"
	args, err := parser.ParseArgs(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Println(flagsErr.Message)
			return 0
		}
		fmt.Fprintf(os.Stderr, "Command line flags parsing failed: %v\n", err)
		return 1
	}

	logger, flush := logging.NewZapLogger(logging.ZapOptions{
		Debug:  opts.Debug,
		Format: opts.LogFormat,
		RunID:  uuid.NewString(),
	})
	defer flush()

	logger.Debugf("opts: %+v, args: %v", opts, args)

	stackConfig, source, err := config.Load(opts.Config)
	if err == nil {
		applyOverrides(stackConfig, opts)
		err = config.ValidateConfig(stackConfig)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load stack configuration: %v\n", err)
		return 1
	}
	logger.Debugf("Stack configuration loaded, source: %s, project: %s", source, stackConfig.Project)

	dispatcher, err := newDispatcher(stackConfig, opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return dispatcher.Run(ctx, args)
}

func applyOverrides(stackConfig *config.StackConfig, opts flagOptions) {
	if opts.MaxAttempts != 0 {
		stackConfig.Health.MaxAttempts = opts.MaxAttempts
	}
	if opts.Interval != 0 {
		stackConfig.Health.Interval = opts.Interval
	}
}

func newDispatcher(stackConfig *config.StackConfig, opts flagOptions, logger logging.Logger) (*orchestrator.Dispatcher, error) {
	composePlatform, err := platform.NewComposePlatform(platform.ComposeOptions{
		Command:     stackConfig.Platform.Command,
		Files:       stackConfig.Platform.ComposeFiles,
		ProjectDir:  stackConfig.Platform.ProjectDir,
		ProjectName: stackConfig.Project,
		Progress:    os.Stdout,
	}, platform.NewExecRunner(), logging.WithPrefix(logger, "platform"))
	if err != nil {
		return nil, err
	}

	probes, err := stackConfig.BuildProbes()
	if err != nil {
		return nil, err
	}
	services, err := stackConfig.DomainServices()
	if err != nil {
		return nil, err
	}

	environmentOptions := environment.OptionsFromConfig(stackConfig, opts.EnvFile)
	confirmOptions := confirm.Options{AssumeYes: opts.Yes}

	components := orchestrator.Components{
		Prereq:      prereq.NewChecker(composePlatform, logging.WithPrefix(logger, "prereq")),
		Environment: environment.NewValidator(environmentOptions, logging.WithPrefix(logger, "environment")),
		Builder:     builder.NewOrchestrator(composePlatform, logging.WithPrefix(logger, "builder")),
		Deployer:    deployment.NewController(composePlatform, logging.WithPrefix(logger, "deployment")),
		Health:      monitoring.NewMonitor(probes, logging.WithPrefix(logger, "health")),
		Status:      status.NewReporter(composePlatform, services, logging.WithPrefix(logger, "status")),
		Logs:        composePlatform,
		Confirmer:   confirm.NewPrompter(confirmOptions, logging.WithPrefix(logger, "confirm")),
		Scope:       stackConfig.ResolveScope,
	}

	options := orchestrator.Options{
		Program:  "stackctl",
		Project:  stackConfig.Project,
		Services: stackConfig.ServiceNames(),
		Policy:   stackConfig.Policy(),
		LogOptions: platform.LogOptions{
			Follow: !opts.NoFollow,
			Tail:   opts.Tail,
		},
		MetricsFile: opts.MetricsFile,
	}

	return orchestrator.NewDispatcher(components, options, metrics.NewRecorder(), logging.WithPrefix(logger, "dispatcher")), nil
}
