package status

import (
	"context"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/logging"
	"github.com/core-tools/hsu-stack/pkg/platform"
)

// Reporter summarizes lifecycle, resource usage and endpoints of services
type Reporter struct {
	platform  platform.Platform
	endpoints map[string][]domain.Endpoint
	logger    logging.Logger
}

func NewReporter(platform platform.Platform, services []domain.Service, logger logging.Logger) *Reporter {
	endpoints := make(map[string][]domain.Endpoint, len(services))
	for _, service := range services {
		endpoints[service.Name] = service.Endpoints
	}
	return &Reporter{
		platform:  platform,
		endpoints: endpoints,
		logger:    logger,
	}
}

// Report never fails. A state query error degrades every service to unknown
// and usage sampling is best effort.
func (r *Reporter) Report(ctx context.Context, scope domain.ServiceSet) domain.StatusSnapshot {
	state, err := r.platform.State(ctx, scope)
	if err != nil {
		r.logger.Warnf("Failed to query service state, scope: %s, error: %v", scope, err)
		state = domain.UnknownState(scope)
	}

	var usage map[string]domain.ResourceUsage
	if anyRunning(state, scope) {
		usage, err = r.platform.Usage(ctx, scope)
		if err != nil {
			r.logger.Warnf("Failed to sample resource usage, scope: %s, error: %v", scope, err)
			usage = nil
		}
	}

	snapshot := domain.StatusSnapshot{Services: make([]domain.ServiceStatus, 0, scope.Len())}
	for _, name := range scope.Names() {
		status := domain.ServiceStatus{
			Service:   name,
			Lifecycle: state.Lifecycle(name),
			Health:    state[name].Health,
			Endpoints: r.endpoints[name],
		}
		if sample, ok := usage[name]; ok && status.Lifecycle == domain.LifecycleRunning {
			status.Usage = &sample
		}
		snapshot.Services = append(snapshot.Services, status)
	}
	return snapshot
}

func anyRunning(state domain.DeploymentState, scope domain.ServiceSet) bool {
	for _, name := range scope.Names() {
		if state.Lifecycle(name) == domain.LifecycleRunning {
			return true
		}
	}
	return false
}
