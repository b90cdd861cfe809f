package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for reporting captured task panics
// =============================================================================

// PanicHandler is notified when a panic escapes a task body.
//
// The panic itself is captured into the task cell (the task becomes Done with
// an orphaned return value, and the panic is rethrown to whoever awaits the
// task or takes its return value); the handler is a reporting hook, not a
// recovery strategy.
type PanicHandler interface {
	// HandleTaskPanic is called when a task body panics.
	//
	// Parameters:
	// - taskName: The debug name of the task (may be "[unnamed task]")
	// - panicInfo: The panic value recovered from the task body
	// - stackTrace: The stack trace at the time of panic
	HandleTaskPanic(taskName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandleTaskPanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandleTaskPanic(taskName string, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Task %s] Panic: %v\nStack trace:\n%s", taskName, panicInfo, stackTrace)
}

// NilPanicHandler discards panic reports. The panic is still captured into
// the task cell and rethrown on await/take.
type NilPanicHandler struct{}

// HandleTaskPanic is a no-op.
func (h *NilPanicHandler) HandleTaskPanic(taskName string, panicInfo any, stackTrace []byte) {}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting the tick loop.
type Metrics interface {
	// RecordResume records a single resume step of a task.
	//
	// Parameters:
	// - managerName: The name of the task manager driving the resume
	// - status: The task status after the resume (Suspended or Done)
	// - duration: Wall-clock duration of the resume step
	RecordResume(managerName string, status TaskStatus, duration time.Duration)

	// RecordTaskDone records that a task ran to completion.
	RecordTaskDone(managerName string)

	// RecordTaskKilled records that a task was killed before completion.
	RecordTaskKilled(managerName string)

	// RecordRosterSize records the number of live tasks after an update sweep.
	RecordRosterSize(managerName string, size int)

	// RecordStateTransition records a state machine transition.
	//
	// Parameters:
	// - fsmName: The name of the state machine
	// - oldState, newState: Debug names of the outgoing and incoming states
	RecordStateTransition(fsmName string, oldState string, newState string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordResume is a no-op.
func (m *NilMetrics) RecordResume(managerName string, status TaskStatus, duration time.Duration) {}

// RecordTaskDone is a no-op.
func (m *NilMetrics) RecordTaskDone(managerName string) {}

// RecordTaskKilled is a no-op.
func (m *NilMetrics) RecordTaskKilled(managerName string) {}

// RecordRosterSize is a no-op.
func (m *NilMetrics) RecordRosterSize(managerName string, size int) {}

// RecordStateTransition is a no-op.
func (m *NilMetrics) RecordStateTransition(fsmName string, oldState string, newState string) {}

// =============================================================================
// ManagerConfig: Configuration for TaskManager
// =============================================================================

// ManagerConfig holds configuration options for TaskManager.
// All handlers are optional; if not provided, default implementations will be used.
type ManagerConfig struct {
	// Logger receives lifecycle logs. Defaults to NoOpLogger.
	Logger Logger

	// Metrics is called to record resume metrics. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler is called when a task body panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// HistoryCapacity bounds the resume-history ring. Defaults to 100.
	HistoryCapacity int
}

// DefaultManagerConfig returns a config with default handlers.
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		Logger:          NewNoOpLogger(),
		Metrics:         &NilMetrics{},
		PanicHandler:    &DefaultPanicHandler{},
		HistoryCapacity: defaultResumeHistoryCapacity,
	}
}

func (c *ManagerConfig) withDefaults() *ManagerConfig {
	cfg := &ManagerConfig{}
	if c != nil {
		*cfg = *c
	}
	if cfg.Logger == nil {
		cfg.Logger = NewNoOpLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NilMetrics{}
	}
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = &DefaultPanicHandler{}
	}
	if cfg.HistoryCapacity < 1 {
		cfg.HistoryCapacity = defaultResumeHistoryCapacity
	}
	return cfg
}
