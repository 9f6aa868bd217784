package monitoring

import (
	"context"
	"time"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"
)

const (
	DefaultMaxAttempts = 30
	DefaultInterval    = 2 * time.Second
)

// Policy is a bounded-retry, fixed-interval polling policy. There is no
// backoff and no jitter.
type Policy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Interval    time.Duration `yaml:"interval"`
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Interval: DefaultInterval}
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the production SleepFunc
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type WaitOptions struct {
	Policy Policy
	// Strict stops at the first unhealthy service instead of evaluating the rest
	Strict bool
}

// Monitor polls readiness probes of the configured services
type Monitor struct {
	probes map[string]Probe
	sleep  SleepFunc
	logger logging.Logger
}

func NewMonitor(probes map[string]Probe, logger logging.Logger) *Monitor {
	return &Monitor{
		probes: probes,
		sleep:  ContextSleep,
		logger: logger,
	}
}

// SetSleepFunc replaces the wait between attempts
func (m *Monitor) SetSleepFunc(sleep SleepFunc) {
	m.sleep = sleep
}

// WaitHealthy polls every service in scope, one after another in scope order.
// A service that fails MaxAttempts consecutive probes is recorded unhealthy and
// polling moves on to the next service. The returned error is a health timeout
// when any verdict is unhealthy; the verdicts are returned in every case.
func (m *Monitor) WaitHealthy(ctx context.Context, scope domain.ServiceSet, options WaitOptions) ([]domain.HealthVerdict, error) {
	if err := ValidatePolicy(options.Policy); err != nil {
		return nil, err
	}

	m.logger.Infof("Waiting for services to become healthy, scope: %s, max_attempts: %d, interval: %v",
		scope, options.Policy.MaxAttempts, options.Policy.Interval)

	verdicts := make([]domain.HealthVerdict, 0, scope.Len())
	for _, service := range scope.Names() {
		verdict, err := m.waitService(ctx, service, options.Policy)
		verdicts = append(verdicts, verdict)
		if err != nil {
			return verdicts, err
		}
		if !verdict.Healthy && options.Strict {
			m.logger.Warnf("Aborting health wait in strict mode, service: %s", service)
			break
		}
	}

	if unhealthy := domain.UnhealthyServices(verdicts); len(unhealthy) > 0 {
		return verdicts, errors.NewHealthTimeoutError(unhealthy, nil).
			WithContext("max_attempts", options.Policy.MaxAttempts)
	}
	return verdicts, nil
}

func (m *Monitor) waitService(ctx context.Context, service string, policy Policy) (domain.HealthVerdict, error) {
	verdict := domain.HealthVerdict{Service: service}

	probe, ok := m.probes[service]
	if !ok {
		verdict.Message = "no readiness check configured"
		m.logger.Errorf("No readiness probe, service: %s", service)
		return verdict, nil
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		healthy, message := probe.Check(ctx)
		verdict.AttemptsUsed = attempt
		verdict.Message = message

		if healthy {
			verdict.Healthy = true
			m.logger.Infof("Service is healthy, service: %s, attempts: %d", service, attempt)
			return verdict, nil
		}

		m.logger.Debugf("Readiness probe failed, service: %s, attempt: %d/%d, message: %s",
			service, attempt, policy.MaxAttempts, message)

		// a probe cut short by cancellation says nothing about the service
		if err := ctx.Err(); err != nil {
			return verdict, errors.NewCancelledError("health wait cancelled", err).WithContext("service", service)
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if err := m.sleep(ctx, policy.Interval); err != nil {
			return verdict, errors.NewCancelledError("health wait cancelled", err).WithContext("service", service)
		}
	}

	m.logger.Warnf("Service did not become healthy, service: %s, attempts: %d, message: %s",
		service, verdict.AttemptsUsed, verdict.Message)
	return verdict, nil
}

// ProbeOnce checks every service in scope exactly once, without retry.
// It never mutates deployment state, so repeated calls are safe.
func (m *Monitor) ProbeOnce(ctx context.Context, scope domain.ServiceSet) []domain.HealthVerdict {
	verdicts := make([]domain.HealthVerdict, 0, scope.Len())
	for _, service := range scope.Names() {
		verdict := domain.HealthVerdict{Service: service}
		if probe, ok := m.probes[service]; ok {
			verdict.Healthy, verdict.Message = probe.Check(ctx)
			verdict.AttemptsUsed = 1
		} else {
			verdict.Message = "no readiness check configured"
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts
}
