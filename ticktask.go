package ticktask

import "github.com/halcyon-games/ticktask/core"

// Core type aliases, so simple hosts only import the root package.
type (
	// Task is a resumable strong handle to a running task.
	Task[T any] = core.Task[T]
	// VoidTask is a Task with no return value.
	VoidTask = core.VoidTask
	// TaskHandle is a non-resumable strong handle.
	TaskHandle[T any] = core.TaskHandle[T]
	// WeakTask is a resumable weak handle (the roster shape).
	WeakTask = core.WeakTask
	// WeakTaskHandle is a non-resumable weak observer.
	WeakTaskHandle = core.WeakTaskHandle
	// TaskContext is handed to task bodies; it carries the suspension points.
	TaskContext = core.TaskContext
	// TaskStatus reports Suspended or Done.
	TaskStatus = core.TaskStatus
	// TaskManager is an ordered collection of running tasks.
	TaskManager = core.TaskManager
	// ManagerConfig configures a TaskManager.
	ManagerConfig = core.ManagerConfig
	// TaskFSM is a finite state machine over task factories.
	TaskFSM = core.TaskFSM
	// StateID identifies a TaskFSM state.
	StateID = core.StateID
	// TaskTime is the unit of time for time-sensitive awaiters.
	TaskTime = core.TaskTime
	// TimeFn returns the current time in a caller-chosen time-stream.
	TimeFn = core.TimeFn
	// FuncGuard runs a stored function exactly once on scope exit.
	FuncGuard = core.FuncGuard
	// TokenList tracks decentralized shared flags with weak membership.
	TokenList = core.TokenList
	// CancelResult reports whether a wrapped task completed or was canceled.
	CancelResult[T any] = core.CancelResult[T]
	// AnyEntry is one competitor in WaitForAny / WaitForAll.
	AnyEntry = core.AnyEntry
)

// Task status values.
const (
	TaskSuspended = core.TaskSuspended
	TaskDone      = core.TaskDone
)

// Re-exported constructors and awaiters for the common (void) cases.
var (
	Start          = core.Start
	NewTaskFSM     = core.NewTaskFSM
	NewTaskManager = core.NewTaskManager
	NewFuncGuard   = core.NewFuncGuard
	NewToken       = core.NewToken

	WaitForever = core.WaitForever
	WaitUntil   = core.WaitUntil
	WaitWhile   = core.WaitWhile
	WaitSeconds = core.WaitSeconds
	DelayCall   = core.DelayCall
	WaitForAny  = core.WaitForAny
	WaitForAll  = core.WaitForAll
	ReadyEntry  = core.ReadyEntry

	Await     = core.Await
	AwaitDone = core.AwaitDone
)

// TaskEntry wraps a task of any return type as a combinator entry.
func TaskEntry[T any](t *core.Task[T]) core.AnyEntry {
	return core.TaskEntry(t)
}

// StartTask creates a task from a body producing a value of type T.
func StartTask[T any](body func(tc *core.TaskContext) T) *core.Task[T] {
	return core.StartTask(body)
}

// AwaitValue suspends the current task until t completes and returns its value.
func AwaitValue[T any](tc *core.TaskContext, t *core.Task[T]) T {
	return core.AwaitValue(tc, t)
}

// Timeout wraps a task so that it is killed once seconds elapse in timeFn's
// time-stream.
func Timeout[T any](task *core.Task[T], seconds core.TaskTime, timeFn core.TimeFn) *core.Task[core.CancelResult[T]] {
	return core.Timeout(task, seconds, timeFn)
}

// RunOn runs an unmanaged task on a manager, returning the owning handle.
func RunOn[T any](m *core.TaskManager, task *core.Task[T]) core.TaskHandle[T] {
	return core.RunOn(m, task)
}

// RunManagedOn runs a fire-and-forget task on a manager, returning a weak
// observer.
func RunManagedOn[T any](m *core.TaskManager, task *core.Task[T]) core.WeakTaskHandle {
	return core.RunManagedOn(m, task)
}
