package prereq

import (
	"context"

	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"
	"github.com/core-tools/hsu-stack/pkg/platform"
)

// Checker verifies the platform tool is usable before any other stage runs
type Checker struct {
	platform platform.Platform
	logger   logging.Logger
}

func NewChecker(platform platform.Platform, logger logging.Logger) *Checker {
	return &Checker{
		platform: platform,
		logger:   logger,
	}
}

// Check fails with ToolNotInstalled or EngineUnreachable. It is never retried.
func (c *Checker) Check(ctx context.Context) error {
	tool := c.platform.Tool()

	if err := c.platform.Installed(ctx); err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelledError("prerequisite check cancelled", ctx.Err())
		}
		c.logger.Errorf("Platform tool not installed, tool: %s, error: %v", tool, err)
		return errors.NewToolNotInstalledError(tool, err)
	}

	if err := c.platform.Reachable(ctx); err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelledError("prerequisite check cancelled", ctx.Err())
		}
		c.logger.Errorf("Container engine not reachable, tool: %s, error: %v", tool, err)
		return errors.NewEngineUnreachableError(tool, err)
	}

	c.logger.Debugf("Prerequisites satisfied, tool: %s", tool)
	return nil
}
