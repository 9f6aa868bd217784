package builder

import (
	"context"
	"time"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"
	"github.com/core-tools/hsu-stack/pkg/platform"
)

// Orchestrator builds service artifacts from scratch
type Orchestrator struct {
	platform platform.Platform
	logger   logging.Logger
}

func NewOrchestrator(platform platform.Platform, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		platform: platform,
		logger:   logger,
	}
}

// Build performs a clean build of each service in scope, in scope order.
// The first failure stops the build; later services are not attempted.
func (o *Orchestrator) Build(ctx context.Context, scope domain.ServiceSet) error {
	for _, service := range scope.Names() {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelledError("build cancelled", err).WithContext("service", service)
		}

		o.logger.Infof("Building service, service: %s", service)
		start := time.Now()

		if err := o.platform.Build(ctx, service, platform.BuildOptions{NoCache: true}); err != nil {
			o.logger.Errorf("Build failed, service: %s, error: %v", service, err)
			return errors.NewBuildFailedError(service, err)
		}

		o.logger.Infof("Service built, service: %s, duration: %v", service, time.Since(start).Round(time.Millisecond))
	}
	return nil
}
