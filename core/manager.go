package core

import (
	"time"

	"golang.org/x/exp/slices"
)

// TaskManager holds an ordered collection of running tasks and resumes each
// of them exactly once per Update call.
//
// There are two ways to run tasks on a manager. RunOn ("unmanaged") moves the
// task in and returns a strong TaskHandle: the caller owns the task's
// lifetime, and releasing the last strong handle kills it. RunManagedOn
// ("managed", fire-and-forget) pins a strong handle inside the manager and
// returns only a weak observer: the task runs until it finishes or something
// explicitly kills it.
//
// Resume order within one Update is stable: the first task run on a manager
// remains the first to resume, no matter how many other tasks are run or
// terminate in the meantime. Tasks enqueued during an Update start on the
// next tick.
//
// A TaskManager is single-threaded: Update, Run* and KillAll must all be
// called from the same goroutine that owns the tick loop.
type TaskManager struct {
	tasks      []*WeakTask
	strongRefs []TaskHandle[Void]

	name         string
	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler

	history      resumeHistory
	totalResumes int64
}

// NewTaskManager creates a manager. A nil config selects defaults.
func NewTaskManager(config *ManagerConfig) *TaskManager {
	cfg := config.withDefaults()
	return &TaskManager{
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		panicHandler: cfg.PanicHandler,
		history:      newResumeHistory(cfg.HistoryCapacity),
	}
}

// Name returns the name of the task manager.
func (m *TaskManager) Name() string {
	return m.name
}

// SetName sets the name of the task manager (used in logs and metrics).
func (m *TaskManager) SetName(name string) {
	m.name = name
}

// RunOn runs an unmanaged task on the manager, consuming the resumable
// handle. The returned strong handle is the only remaining strong reference:
// if the caller releases it (or lets every clone be released) before the task
// finishes, the task is killed immediately and removed on the next sweep.
func RunOn[T any](m *TaskManager, task *Task[T]) TaskHandle[T] {
	handle := task.Handle()
	m.RunWeak(task.ToWeak())
	return handle
}

// RunManagedOn runs a managed ("fire-and-forget") task: the manager pins a
// strong handle internally until the task finishes. The returned weak handle
// can observe the task or kill it early.
func RunManagedOn[T any](m *TaskManager, task *Task[T]) WeakTaskHandle {
	weakHandle := task.WeakHandle()
	strong := RunOn(m, task)
	m.strongRefs = append(m.strongRefs, strong.asVoid())
	return weakHandle
}

// Run is RunOn for tasks with no return value.
func (m *TaskManager) Run(task *Task[Void]) TaskHandle[Void] {
	return RunOn(m, task)
}

// RunManaged is RunManagedOn for tasks with no return value.
func (m *TaskManager) RunManaged(task *Task[Void]) WeakTaskHandle {
	return RunManagedOn(m, task)
}

// RunWeak adds a weak resumable task to the roster. The caller is assumed to
// have retained a strong handle elsewhere; when the last strong reference
// goes away the task is killed and swept from the roster.
func (m *TaskManager) RunWeak(task *WeakTask) {
	m.logger.Debug("task added to roster",
		F("manager", m.name), F("task", task.DebugName()))
	m.tasks = append(m.tasks, task)
}

// KillAll kills every task on the manager (managed and unmanaged).
func (m *TaskManager) KillAll() {
	m.logger.Debug("killing all tasks",
		F("manager", m.name), F("count", len(m.tasks)))

	for _, task := range m.tasks {
		if !task.IsDone() {
			m.metrics.RecordTaskKilled(m.name)
		}
		task.Release()
	}
	m.tasks = nil

	// The strong refs only ever point at tasks in the now-killed roster.
	for i := range m.strongRefs {
		m.strongRefs[i].Release()
	}
	m.strongRefs = nil
}

// StopAll issues a stop request on every task currently on the manager and
// returns a fence task that completes once all of them have terminated.
func (m *TaskManager) StopAll() *Task[Void] {
	m.logger.Debug("stopping all tasks",
		F("manager", m.name), F("count", len(m.tasks)))

	weakHandles := make([]WeakTaskHandle, 0, len(m.tasks))
	for _, task := range m.tasks {
		task.RequestStop()
		weakHandles = append(weakHandles, task.Weak())
	}

	return Start(func(tc *TaskContext) {
		tc.SetDebugName("StopAll fence")
		for _, h := range weakHandles {
			AwaitDone(tc, h)
		}
	})
}

// Update resumes every live task exactly once, in insertion order, then
// sweeps finished tasks while preserving the relative order of survivors.
// Tasks added during the update are not resumed until the next one.
func (m *TaskManager) Update() {
	initial := len(m.tasks)
	writeIdx := 0
	for readIdx := 0; readIdx < initial; readIdx++ {
		task := m.tasks[readIdx]
		// A task already destroyed before this resume was killed, not completed.
		c := task.taskCell()
		killed := c != nil && c.state == stateDestroyed

		startedAt := time.Now()
		status := task.Resume()
		duration := time.Since(startedAt)

		m.totalResumes++
		m.metrics.RecordResume(m.name, status, duration)
		m.history.Add(ResumeRecord{
			TaskName:  task.DebugName(),
			Manager:   m.name,
			Status:    status,
			StartedAt: startedAt,
			Duration:  duration,
		})
		m.reportPanic(task)

		if status != TaskDone {
			m.tasks[writeIdx] = task
			writeIdx++
		} else if killed {
			m.metrics.RecordTaskKilled(m.name)
		} else {
			m.metrics.RecordTaskDone(m.name)
		}
	}

	// Preserve tasks enqueued during this update at the tail.
	for readIdx := initial; readIdx < len(m.tasks); readIdx++ {
		m.tasks[writeIdx] = m.tasks[readIdx]
		writeIdx++
	}
	clear(m.tasks[writeIdx:])
	m.tasks = m.tasks[:writeIdx]

	// Unpin strong handles of finished managed tasks.
	m.strongRefs = slices.DeleteFunc(m.strongRefs, func(h TaskHandle[Void]) bool {
		if h.IsDone() {
			h.Release()
			return true
		}
		return false
	})

	m.metrics.RecordRosterSize(m.name, len(m.tasks))
}

func (m *TaskManager) reportPanic(task *WeakTask) {
	c := task.taskCell()
	if c == nil || !c.panicSet || c.panicReported {
		return
	}
	c.panicReported = true
	m.logger.Error("task panicked",
		F("manager", m.name), F("task", c.debugName), F("panic", c.panicValue))
	m.panicHandler.HandleTaskPanic(c.debugName, c.panicValue, c.panicTrace)
}

// DebugString returns a newline-joined list of the debug stacks of all live
// tasks on the manager.
func (m *TaskManager) DebugString() string {
	debugStr := ""
	for _, task := range m.tasks {
		if !task.IsDone() {
			if debugStr != "" {
				debugStr += "\n"
			}
			debugStr += task.DebugStack()
		}
	}
	return debugStr
}

// Stats returns a snapshot of the manager's observability state.
func (m *TaskManager) Stats() ManagerStats {
	stats := ManagerStats{
		Name:         m.name,
		Active:       len(m.tasks),
		Retained:     len(m.strongRefs),
		TotalResumes: m.totalResumes,
	}
	if last, ok := m.history.Last(); ok {
		stats.LastTaskName = last.TaskName
		stats.LastResumeAt = last.StartedAt
	}
	return stats
}

// RecentResumes returns up to limit resume records, most recent first.
// limit <= 0 returns everything retained.
func (m *TaskManager) RecentResumes(limit int) []ResumeRecord {
	return m.history.Recent(limit)
}
