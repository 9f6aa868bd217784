package metrics

import (
	"time"

	"github.com/core-tools/hsu-stack/pkg/domain"
	"github.com/core-tools/hsu-stack/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stackctl"

// Recorder collects the metrics of one invocation. They are exported as a
// node-exporter textfile since the process does not outlive the command.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration  *prometheus.GaugeVec
	stageSuccess   *prometheus.GaugeVec
	healthAttempts *prometheus.GaugeVec
	serviceHealthy *prometheus.GaugeVec
	lastRun        *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		stageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in a pipeline stage.",
		}, []string{"command", "stage"}),
		stageSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_success",
			Help:      "1 if the pipeline stage succeeded, 0 otherwise.",
		}, []string{"command", "stage"}),
		healthAttempts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_attempts",
			Help:      "Readiness probes used before a verdict was reached.",
		}, []string{"service"}),
		serviceHealthy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_healthy",
			Help:      "1 if the service passed its readiness check.",
		}, []string{"service"}),
		lastRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the command finished.",
		}, []string{"command"}),
	}
}

// ObserveStage records the duration and outcome of a stage
func (r *Recorder) ObserveStage(command, stage string, duration time.Duration, err error) {
	r.stageDuration.WithLabelValues(command, stage).Set(duration.Seconds())
	success := 1.0
	if err != nil {
		success = 0
	}
	r.stageSuccess.WithLabelValues(command, stage).Set(success)
}

func (r *Recorder) ObserveHealth(verdicts []domain.HealthVerdict) {
	for _, verdict := range verdicts {
		r.healthAttempts.WithLabelValues(verdict.Service).Set(float64(verdict.AttemptsUsed))
		healthy := 0.0
		if verdict.Healthy {
			healthy = 1
		}
		r.serviceHealthy.WithLabelValues(verdict.Service).Set(healthy)
	}
}

func (r *Recorder) MarkRun(command string, at time.Time) {
	r.lastRun.WithLabelValues(command).Set(float64(at.UnixNano()) / 1e9)
}

// WriteTextfile atomically writes all metrics in the text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.NewIOError("failed to write metrics file", err).WithContext("path", path)
	}
	return nil
}
