package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProbe succeeds once it has been called succeedOn times (0 = never)
type countingProbe struct {
	calls     int
	succeedOn int
}

func (p *countingProbe) Check(ctx context.Context) (bool, string) {
	p.calls++
	if p.succeedOn > 0 && p.calls >= p.succeedOn {
		return true, "ok"
	}
	return false, "connection refused"
}

type recordingSleeper struct {
	sleeps []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return nil
}

func newTestMonitor(probes map[string]Probe) (*Monitor, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	monitor := NewMonitor(probes, logging.NewNopLogger())
	monitor.SetSleepFunc(sleeper.sleep)
	return monitor, sleeper
}

func TestWaitHealthy_AlwaysFailingStopsAfterMaxAttempts(t *testing.T) {
	probe := &countingProbe{}
	monitor, _ := newTestMonitor(map[string]Probe{"backend": probe})

	verdicts, err := monitor.WaitHealthy(context.Background(), domain.SingleService("backend"),
		WaitOptions{Policy: Policy{MaxAttempts: 3, Interval: 0}})

	require.Error(t, err)
	assert.True(t, errors.IsTimeoutError(err))
	assert.True(t, errors.HasCode(err, errors.CodeHealthTimeout))
	require.Len(t, verdicts, 1)
	assert.False(t, verdicts[0].Healthy)
	assert.Equal(t, 3, verdicts[0].AttemptsUsed)
	assert.Equal(t, 3, probe.calls)
}

func TestWaitHealthy_ExactlyNAttempts(t *testing.T) {
	for _, maxAttempts := range []int{1, 2, 5, 30} {
		probe := &countingProbe{}
		monitor, sleeper := newTestMonitor(map[string]Probe{"backend": probe})

		verdicts, err := monitor.WaitHealthy(context.Background(), domain.SingleService("backend"),
			WaitOptions{Policy: Policy{MaxAttempts: maxAttempts, Interval: 2 * time.Second}})

		require.Error(t, err)
		assert.Equal(t, maxAttempts, probe.calls)
		assert.Equal(t, maxAttempts, verdicts[0].AttemptsUsed)
		assert.Len(t, sleeper.sleeps, maxAttempts-1, "no sleep after the last attempt")
		for _, d := range sleeper.sleeps {
			assert.Equal(t, 2*time.Second, d, "fixed interval")
		}
	}
}

func TestWaitHealthy_SucceedsAfterRetries(t *testing.T) {
	probe := &countingProbe{succeedOn: 4}
	monitor, sleeper := newTestMonitor(map[string]Probe{"backend": probe})

	verdicts, err := monitor.WaitHealthy(context.Background(), domain.SingleService("backend"),
		WaitOptions{Policy: DefaultPolicy()})

	require.NoError(t, err)
	assert.True(t, verdicts[0].Healthy)
	assert.Equal(t, 4, verdicts[0].AttemptsUsed)
	assert.Len(t, sleeper.sleeps, 3)
}

func TestWaitHealthy_BackendHealthyFrontendFailing(t *testing.T) {
	backend := &countingProbe{succeedOn: 1}
	frontend := &countingProbe{}
	monitor, _ := newTestMonitor(map[string]Probe{"backend": backend, "frontend": frontend})

	verdicts, err := monitor.WaitHealthy(context.Background(),
		domain.AllServices([]string{"backend", "frontend"}),
		WaitOptions{Policy: Policy{MaxAttempts: 3, Interval: 0}})

	require.Error(t, err)
	require.Len(t, verdicts, 2)
	assert.Equal(t, "backend", verdicts[0].Service)
	assert.True(t, verdicts[0].Healthy)
	assert.Equal(t, "frontend", verdicts[1].Service)
	assert.False(t, verdicts[1].Healthy)
	assert.False(t, domain.AllHealthy(verdicts))
}

func TestWaitHealthy_UnhealthyDoesNotBlockLaterService(t *testing.T) {
	backend := &countingProbe{}
	frontend := &countingProbe{succeedOn: 1}
	monitor, _ := newTestMonitor(map[string]Probe{"backend": backend, "frontend": frontend})

	verdicts, err := monitor.WaitHealthy(context.Background(),
		domain.AllServices([]string{"backend", "frontend"}),
		WaitOptions{Policy: Policy{MaxAttempts: 2}})

	require.Error(t, err)
	require.Len(t, verdicts, 2)
	assert.False(t, verdicts[0].Healthy)
	assert.True(t, verdicts[1].Healthy)
	assert.Equal(t, 1, frontend.calls)
}

func TestWaitHealthy_StrictAbortsAtFirstUnhealthy(t *testing.T) {
	backend := &countingProbe{}
	frontend := &countingProbe{succeedOn: 1}
	monitor, _ := newTestMonitor(map[string]Probe{"backend": backend, "frontend": frontend})

	verdicts, err := monitor.WaitHealthy(context.Background(),
		domain.AllServices([]string{"backend", "frontend"}),
		WaitOptions{Policy: Policy{MaxAttempts: 2}, Strict: true})

	require.Error(t, err)
	assert.Len(t, verdicts, 1)
	assert.Equal(t, 0, frontend.calls)
}

func TestWaitHealthy_SequentialOrder(t *testing.T) {
	var order []string
	probeFor := func(name string) Probe {
		return ProbeFunc(func(ctx context.Context) (bool, string) {
			order = append(order, name)
			return true, "ok"
		})
	}
	monitor, _ := newTestMonitor(map[string]Probe{"frontend": probeFor("frontend"), "backend": probeFor("backend")})

	_, err := monitor.WaitHealthy(context.Background(),
		domain.AllServices([]string{"backend", "frontend"}), WaitOptions{Policy: DefaultPolicy()})

	require.NoError(t, err)
	assert.Equal(t, []string{"backend", "frontend"}, order)
}

func TestWaitHealthy_MissingProbeIsUnhealthy(t *testing.T) {
	monitor, _ := newTestMonitor(map[string]Probe{})

	verdicts, err := monitor.WaitHealthy(context.Background(), domain.SingleService("backend"),
		WaitOptions{Policy: DefaultPolicy()})

	require.Error(t, err)
	assert.Equal(t, 0, verdicts[0].AttemptsUsed)
	assert.Equal(t, "no readiness check configured", verdicts[0].Message)
}

func TestWaitHealthy_InvalidPolicy(t *testing.T) {
	monitor, _ := newTestMonitor(map[string]Probe{"backend": &countingProbe{}})

	_, err := monitor.WaitHealthy(context.Background(), domain.SingleService("backend"),
		WaitOptions{Policy: Policy{MaxAttempts: 0}})

	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestWaitHealthy_CancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	probe := ProbeFunc(func(ctx context.Context) (bool, string) {
		cancel()
		return false, "down"
	})
	monitor := NewMonitor(map[string]Probe{"backend": probe}, logging.NewNopLogger())

	verdicts, err := monitor.WaitHealthy(ctx, domain.SingleService("backend"),
		WaitOptions{Policy: Policy{MaxAttempts: 5, Interval: time.Hour}})

	require.Error(t, err)
	assert.True(t, errors.IsCancelledError(err))
	assert.Equal(t, 1, verdicts[0].AttemptsUsed)
}

func TestWaitHealthy_CancelledDuringLastAttempt(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
	}{
		{name: "single_attempt", maxAttempts: 1},
		{name: "final_of_three", maxAttempts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			calls := 0
			backend := ProbeFunc(func(ctx context.Context) (bool, string) {
				calls++
				if calls == tt.maxAttempts {
					cancel()
				}
				return false, "down"
			})
			frontend := &countingProbe{succeedOn: 1}
			monitor, _ := newTestMonitor(map[string]Probe{"backend": backend, "frontend": frontend})

			verdicts, err := monitor.WaitHealthy(ctx, domain.AllServices([]string{"backend", "frontend"}),
				WaitOptions{Policy: Policy{MaxAttempts: tt.maxAttempts, Interval: time.Second}})

			require.Error(t, err)
			assert.True(t, errors.IsCancelledError(err))
			assert.False(t, errors.HasCode(err, errors.CodeHealthTimeout))
			require.Len(t, verdicts, 1)
			assert.Equal(t, tt.maxAttempts, verdicts[0].AttemptsUsed)
			assert.Equal(t, 0, frontend.calls, "no probes after cancellation")
		})
	}
}

func TestProbeOnce_IdempotentAndSingleAttempt(t *testing.T) {
	backend := &countingProbe{succeedOn: 1}
	frontend := &countingProbe{succeedOn: 1}
	monitor, sleeper := newTestMonitor(map[string]Probe{"backend": backend, "frontend": frontend})
	scope := domain.AllServices([]string{"backend", "frontend"})

	first := monitor.ProbeOnce(context.Background(), scope)
	second := monitor.ProbeOnce(context.Background(), scope)

	assert.True(t, domain.AllHealthy(first))
	assert.Equal(t, first, second)
	assert.Equal(t, 2, backend.calls)
	assert.Empty(t, sleeper.sleeps)
}

func TestProbeOnce_NoRetryOnFailure(t *testing.T) {
	probe := &countingProbe{}
	monitor, _ := newTestMonitor(map[string]Probe{"backend": probe})

	verdicts := monitor.ProbeOnce(context.Background(), domain.SingleService("backend"))

	assert.False(t, verdicts[0].Healthy)
	assert.Equal(t, 1, probe.calls)
}

func TestContextSleep(t *testing.T) {
	require.NoError(t, ContextSleep(context.Background(), 0))
	require.NoError(t, ContextSleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ContextSleep(ctx, time.Hour), context.Canceled)
}
