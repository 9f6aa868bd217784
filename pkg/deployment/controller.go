package deployment

import (
	"context"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"
	"github.com/core-tools/hsu-stack/pkg/platform"
)

// Controller brings services in scope to the running state
type Controller struct {
	platform platform.Platform
	logger   logging.Logger
}

func NewController(platform platform.Platform, logger logging.Logger) *Controller {
	return &Controller{
		platform: platform,
		logger:   logger,
	}
}

// Deploy stops the scoped set if any of it is running, or of unknown state, and
// then starts it. A failed stop is only logged; a failed start is a DeployFailed error.
func (c *Controller) Deploy(ctx context.Context, scope domain.ServiceSet) error {
	state, err := c.platform.State(ctx, scope)
	if err != nil {
		c.logger.Warnf("Failed to query deployment state, assuming unknown, scope: %s, error: %v", scope, err)
		state = domain.UnknownState(scope)
	}

	if state.AnyRunning(scope) {
		c.logger.Infof("Stopping running services before start, scope: %s", scope)
		c.stopQuietly(ctx, scope)
	}

	return c.start(ctx, scope)
}

// Stop stops the scoped set
func (c *Controller) Stop(ctx context.Context, scope domain.ServiceSet) error {
	c.logger.Infof("Stopping services, scope: %s", scope)
	if err := c.platform.Stop(ctx, scope); err != nil {
		return errors.NewPlatformError("failed to stop services", err).WithContext("scope", scope.String())
	}
	return nil
}

// Restart stops the scoped set unconditionally and starts it again
func (c *Controller) Restart(ctx context.Context, scope domain.ServiceSet) error {
	c.logger.Infof("Restarting services, scope: %s", scope)
	c.stopQuietly(ctx, scope)
	return c.start(ctx, scope)
}

// Purge stops everything and removes containers, volumes and locally built images
func (c *Controller) Purge(ctx context.Context) error {
	c.logger.Warnf("Purging project containers, volumes and images")
	if err := c.platform.Purge(ctx); err != nil {
		return errors.NewPlatformError("failed to purge project", err)
	}
	return nil
}

func (c *Controller) stopQuietly(ctx context.Context, scope domain.ServiceSet) {
	if err := c.platform.Stop(ctx, scope); err != nil {
		c.logger.Warnf("Failed to stop services, continuing with start, scope: %s, error: %v", scope, err)
	}
}

func (c *Controller) start(ctx context.Context, scope domain.ServiceSet) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelledError("deployment cancelled", err)
	}

	options := platform.StartOptions{
		ForceRecreate: true,
		NoDeps:        !scope.IsAll(),
	}
	c.logger.Infof("Starting services, scope: %s, no_deps: %t", scope, options.NoDeps)

	if err := c.platform.Start(ctx, scope, options); err != nil {
		c.logger.Errorf("Failed to start services, scope: %s, error: %v", scope, err)
		return errors.NewDeployFailedError(scope.String(), err)
	}
	return nil
}
