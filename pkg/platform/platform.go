package platform

import (
	"context"
	"io"

	"github.com/core-tools/hsu-stack/pkg/domain"
)

type BuildOptions struct {
	NoCache bool
}

type StartOptions struct {
	// NoDeps starts only the named services, leaving their dependencies untouched
	NoDeps bool
	// ForceRecreate replaces containers even when their configuration is unchanged
	ForceRecreate bool
}

type LogOptions struct {
	Follow bool
	Tail   string
}

// Platform is the container platform that builds, runs and reports on services.
// Implementations run blocking tool invocations and honor ctx cancellation.
type Platform interface {
	// Tool is the human readable name of the platform tool
	Tool() string

	// Installed reports whether the tool is available on this host
	Installed(ctx context.Context) error

	// Reachable reports whether the container engine answers
	Reachable(ctx context.Context) error

	Build(ctx context.Context, service string, options BuildOptions) error
	Start(ctx context.Context, scope domain.ServiceSet, options StartOptions) error
	Stop(ctx context.Context, scope domain.ServiceSet) error

	// State queries the current lifecycle of every service in scope
	State(ctx context.Context, scope domain.ServiceSet) (domain.DeploymentState, error)

	// Usage samples resource usage of the running services in scope
	Usage(ctx context.Context, scope domain.ServiceSet) (map[string]domain.ResourceUsage, error)

	// Logs copies service logs to w until the stream ends or ctx is done
	Logs(ctx context.Context, scope domain.ServiceSet, options LogOptions, w io.Writer) error

	// Purge removes containers, volumes and locally built images of the project
	Purge(ctx context.Context) error
}
