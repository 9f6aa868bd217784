// Package platformtest provides an in-memory Platform for tests.
package platformtest

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/platform"
)

// Call records one platform operation and the services it addressed
type Call struct {
	Op       string
	Services []string
}

func (c Call) String() string {
	if len(c.Services) == 0 {
		return c.Op
	}
	return c.Op + " " + strings.Join(c.Services, ",")
}

// Fake records every call. Errors are returned per operation; state and usage
// are served from the configured maps.
type Fake struct {
	mutex sync.Mutex
	calls []Call

	InstalledErr error
	ReachableErr error
	BuildErrs    map[string]error
	StartErr     error
	StopErr      error
	StateErr     error
	UsageErr     error
	LogsErr      error
	PurgeErr     error

	Services   domain.DeploymentState
	Samples    map[string]domain.ResourceUsage
	LogsOutput string

	// RunOnStart marks started services running, mirroring a real platform
	RunOnStart bool

	LastBuildOptions BuildOptionsRecord
	LastStartOptions platform.StartOptions
}

type BuildOptionsRecord struct {
	Service string
	Options platform.BuildOptions
}

var _ platform.Platform = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		BuildErrs: make(map[string]error),
		Services:  make(domain.DeploymentState),
		Samples:   make(map[string]domain.ResourceUsage),
	}
}

func (f *Fake) record(op string, services []string) {
	f.calls = append(f.calls, Call{Op: op, Services: services})
}

// Calls returns the recorded operations in order
func (f *Fake) Calls() []Call {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]Call{}, f.calls...)
}

// Ops returns the recorded calls rendered as "op services"
func (f *Fake) Ops() []string {
	calls := f.Calls()
	ops := make([]string, 0, len(calls))
	for _, call := range calls {
		ops = append(ops, call.String())
	}
	return ops
}

// Mutations returns the recorded calls that change deployment state
func (f *Fake) Mutations() []Call {
	var mutations []Call
	for _, call := range f.Calls() {
		switch call.Op {
		case "build", "start", "stop", "purge":
			mutations = append(mutations, call)
		}
	}
	return mutations
}

func (f *Fake) Tool() string {
	return "fake compose"
}

func (f *Fake) Installed(ctx context.Context) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record("installed", nil)
	return f.InstalledErr
}

func (f *Fake) Reachable(ctx context.Context) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record("reachable", nil)
	return f.ReachableErr
}

func (f *Fake) Build(ctx context.Context, service string, options platform.BuildOptions) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record("build", []string{service})
	f.LastBuildOptions = BuildOptionsRecord{Service: service, Options: options}
	return f.BuildErrs[service]
}

func (f *Fake) Start(ctx context.Context, scope domain.ServiceSet, options platform.StartOptions) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record("start", scope.Names())
	f.LastStartOptions = options
	if f.StartErr != nil {
		return f.StartErr
	}
	if f.RunOnStart {
		for _, name := range scope.Names() {
			f.Services[name] = domain.ServiceState{Service: name, Lifecycle: domain.LifecycleRunning, Container: "stack-" + name + "-1"}
		}
	}
	return nil
}

func (f *Fake) Stop(ctx context.Context, scope domain.ServiceSet) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record("stop", scope.Names())
	if f.StopErr != nil {
		return f.StopErr
	}
	for _, name := range scope.Names() {
		if state, ok := f.Services[name]; ok {
			state.Lifecycle = domain.LifecycleStopped
			f.Services[name] = state
		}
	}
	return nil
}

func (f *Fake) State(ctx context.Context, scope domain.ServiceSet) (domain.DeploymentState, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record("state", scope.Names())
	if f.StateErr != nil {
		return nil, f.StateErr
	}
	state := make(domain.DeploymentState)
	for _, name := range scope.Names() {
		if service, ok := f.Services[name]; ok {
			state[name] = service
		}
	}
	return state, nil
}

func (f *Fake) Usage(ctx context.Context, scope domain.ServiceSet) (map[string]domain.ResourceUsage, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record("usage", scope.Names())
	if f.UsageErr != nil {
		return nil, f.UsageErr
	}
	usage := make(map[string]domain.ResourceUsage)
	for _, name := range scope.Names() {
		if sample, ok := f.Samples[name]; ok && f.Services.Lifecycle(name) == domain.LifecycleRunning {
			usage[name] = sample
		}
	}
	return usage, nil
}

func (f *Fake) Logs(ctx context.Context, scope domain.ServiceSet, options platform.LogOptions, w io.Writer) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record("logs", scope.Names())
	if f.LogsErr != nil {
		return f.LogsErr
	}
	_, err := io.WriteString(w, f.LogsOutput)
	return err
}

func (f *Fake) Purge(ctx context.Context) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.record("purge", nil)
	return f.PurgeErr
}
