package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/halcyon-games/ticktask/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	resumeDurationSeconds *prom.HistogramVec
	taskDoneTotal         *prom.CounterVec
	taskKilledTotal       *prom.CounterVec
	rosterSize            *prom.GaugeVec
	stateTransitionsTotal *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "ticktask"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	resumeVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "resume_duration_seconds",
		Help:      "Duration of a single task resume step in seconds.",
		Buckets:   buckets,
	}, []string{"manager", "status"})
	doneVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_done_total",
		Help:      "Total number of tasks that ran to completion.",
	}, []string{"manager"})
	killedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_killed_total",
		Help:      "Total number of tasks killed before completion.",
	}, []string{"manager"})
	rosterVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "roster_size",
		Help:      "Number of live tasks after an update sweep.",
	}, []string{"manager"})
	transitionVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "state_transitions_total",
		Help:      "Total number of state machine transitions.",
	}, []string{"fsm", "from", "to"})

	var err error
	if resumeVec, err = registerCollector(reg, resumeVec); err != nil {
		return nil, err
	}
	if doneVec, err = registerCollector(reg, doneVec); err != nil {
		return nil, err
	}
	if killedVec, err = registerCollector(reg, killedVec); err != nil {
		return nil, err
	}
	if rosterVec, err = registerCollector(reg, rosterVec); err != nil {
		return nil, err
	}
	if transitionVec, err = registerCollector(reg, transitionVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		resumeDurationSeconds: resumeVec,
		taskDoneTotal:         doneVec,
		taskKilledTotal:       killedVec,
		rosterSize:            rosterVec,
		stateTransitionsTotal: transitionVec,
	}, nil
}

// RecordResume records the duration of one resume step.
func (m *MetricsExporter) RecordResume(managerName string, status core.TaskStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.resumeDurationSeconds.WithLabelValues(normalizeLabel(managerName, "unknown"), status.String()).Observe(duration.Seconds())
}

// RecordTaskDone records a task completion.
func (m *MetricsExporter) RecordTaskDone(managerName string) {
	if m == nil {
		return
	}
	m.taskDoneTotal.WithLabelValues(normalizeLabel(managerName, "unknown")).Inc()
}

// RecordTaskKilled records a task killed before completion.
func (m *MetricsExporter) RecordTaskKilled(managerName string) {
	if m == nil {
		return
	}
	m.taskKilledTotal.WithLabelValues(normalizeLabel(managerName, "unknown")).Inc()
}

// RecordRosterSize records the roster size after an update sweep.
func (m *MetricsExporter) RecordRosterSize(managerName string, size int) {
	if m == nil {
		return
	}
	m.rosterSize.WithLabelValues(normalizeLabel(managerName, "unknown")).Set(float64(size))
}

// RecordStateTransition records a state machine transition.
func (m *MetricsExporter) RecordStateTransition(fsmName string, oldState string, newState string) {
	if m == nil {
		return
	}
	m.stateTransitionsTotal.WithLabelValues(
		normalizeLabel(fsmName, "unknown"),
		normalizeLabel(oldState, "unknown"),
		normalizeLabel(newState, "unknown"),
	).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
