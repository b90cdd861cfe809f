package core

// Void is the return type of tasks that produce no value.
type Void = struct{}

// VoidTask is a resumable handle to a task with no return value.
type VoidTask = Task[Void]

// Task is the resumable, strong handle to a running task. It should be the
// return type of every task constructor you write.
//
// Handle family
//
// Four handle shapes exist, differing along two axes (reference strength and
// resumability):
//
//	Handle type     | Return type | Resumable? | Ref strength
//	----------------|-------------|------------|-------------
//	Task[T]         | any         | yes        | strong
//	WeakTask        | void        | yes        | weak
//	TaskHandle[T]   | any         | no         | strong
//	WeakTaskHandle  | void        | no         | weak
//
// Conversions may only drop capabilities (resumable -> non-resumable, strong
// -> weak, typed -> void), never restore them.
//
// Single-resumer rule
//
// Every live task has exactly one resumable handle. Task and WeakTask are
// move-only: every API that accepts one consumes it, leaving the source
// invalid, so two handles can never resume the same underlying frame. If the
// unique resumable handle is released while the task has not finished, the
// task is killed immediately; a task that could never be resumed again would
// deadlock anything waiting on it.
//
// Lifetime
//
// Strong references are counted logically (Handle/Clone add one, Release
// removes one); when the count reaches zero the task is killed. Weak handles
// observe without extending lifetime and degrade safely to "done" once the
// task dies. Go has no destructors, so dropping a handle is explicit:
// callers that own a Task or TaskHandle release it with Release (usually
// deferred).
type Task[T any] struct {
	c *cell
}

// StartTask creates a task from a body that produces a value of type T.
// The body does not run yet: the new task is suspended at its start and
// only advances when the returned handle (or a manager) resumes it.
func StartTask[T any](body func(tc *TaskContext) T) *Task[T] {
	var c *cell
	c = newCell(func(tc *TaskContext) {
		c.setReturnValue(body(tc))
	})
	c.addRef()
	return &Task[T]{c: c}
}

// Start creates a task with no return value.
func Start(body func(tc *TaskContext)) *Task[Void] {
	return StartTask(func(tc *TaskContext) Void {
		body(tc)
		return Void{}
	})
}

// take consumes the handle, transferring the cell (and the strong reference
// it carries) to the caller.
func (t *Task[T]) take() *cell {
	c := t.c
	t.c = nil
	return c
}

func (t *Task[T]) taskCell() *cell {
	return t.c
}

// IsValid returns whether the handle still references a task.
func (t *Task[T]) IsValid() bool {
	return t.c != nil
}

// IsDone returns whether the task has terminated. Invalid handles report true.
func (t *Task[T]) IsDone() bool {
	return t.c == nil || t.c.isDone()
}

// IsStopRequested returns whether a stop request has been issued for the task.
func (t *Task[T]) IsStopRequested() bool {
	return t.c == nil || t.c.stopRequested
}

// RequestStop issues an advisory request for the task to terminate gracefully
// as soon as possible. Distinct from Kill: the task keeps running until it
// observes the flag and unwinds on its own.
func (t *Task[T]) RequestStop() {
	if t.c != nil {
		t.c.requestStop()
	}
}

// Kill immediately terminates the task, destroying its frame and all of the
// frame's locals (deferred scope guards run).
func (t *Task[T]) Kill() {
	if t.c != nil {
		t.c.kill()
	}
}

// Resume steps the task to its next suspension point. Invalid handles report
// TaskDone.
func (t *Task[T]) Resume() TaskStatus {
	if t.c == nil {
		return TaskDone
	}
	return t.c.resume()
}

// TakeReturnValue attempts to take the task's return value. It returns
// (zero, false) while the task has not completed. Taking twice, or taking an
// orphaned value, is a contract violation.
func (t *Task[T]) TakeReturnValue() (T, bool) {
	if t.c == nil {
		panic("ticktask: tried to take a return value from an invalid handle")
	}
	v, ok := t.c.takeReturnValue()
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// UnhandledPanic returns the panic value captured from the task body, or nil.
func (t *Task[T]) UnhandledPanic() any {
	if t.c == nil {
		panic("ticktask: tried to read a captured panic from an invalid handle")
	}
	return t.c.panicValue
}

// RepanicUnhandled rethrows any panic captured from the task body.
func (t *Task[T]) RepanicUnhandled() {
	if t.c != nil {
		t.c.repanicUnhandled()
	}
}

// Release drops this handle: the strong reference is removed and, because
// this was the unique resumable handle, the task is killed if it has not
// already finished. The handle becomes invalid.
func (t *Task[T]) Release() {
	if t.c == nil {
		return
	}
	c := t.take()
	c.removeRef()
	c.kill()
}

// Handle returns a copyable strong, non-resumable handle to the same task.
func (t *Task[T]) Handle() TaskHandle[T] {
	if t.c == nil {
		return TaskHandle[T]{}
	}
	t.c.addRef()
	return TaskHandle[T]{c: t.c}
}

// WeakHandle returns a weak, non-resumable observer of the same task.
func (t *Task[T]) WeakHandle() WeakTaskHandle {
	return WeakTaskHandle{c: t.c}
}

// ToWeak consumes the handle and converts it to a weak resumable handle,
// dropping the strong reference it carried. If that was the last strong
// reference, the task is killed and the weak handle observes a done task.
func (t *Task[T]) ToWeak() *WeakTask {
	c := t.take()
	if c == nil {
		return &WeakTask{}
	}
	c.removeRef()
	return &WeakTask{c: c}
}

// DebugName returns this task's debug name (see TaskContext.SetDebugName).
func (t *Task[T]) DebugName() string {
	if t.c == nil {
		return "[empty task]"
	}
	return t.c.debugNameStr()
}

// DebugStack returns the chain of debug names task -> sub-task -> ...
func (t *Task[T]) DebugStack() string {
	if t.c == nil {
		return t.DebugName()
	}
	return t.c.debugStack()
}

// CancelIf consumes the task, wrapping it so that it is killed as soon as
// cond returns true. See CancelTaskIf.
func (t *Task[T]) CancelIf(cond CancelFn) *Task[CancelResult[T]] {
	return CancelTaskIf(t, cond)
}

// CancelIfStopRequested consumes the task, wrapping it so that it is killed
// as soon as a stop is requested on the wrapper.
func (t *Task[T]) CancelIfStopRequested() *Task[CancelResult[T]] {
	return CancelTaskIfStopRequested(t)
}

// StopIf consumes the task, wrapping it so that a stop request is issued on
// it as soon as cond returns true. See StopTaskIf.
func (t *Task[T]) StopIf(cond CancelFn) *Task[CancelResult[T]] {
	return StopTaskIf(t, cond)
}

// StopIfTimeout is StopIf with a kill deadline: once the stop request has
// been issued, the task is killed after timeout time units.
func (t *Task[T]) StopIfTimeout(cond CancelFn, timeout TaskTime, timeFn TimeFn) *Task[CancelResult[T]] {
	return StopTaskIfTimeout(t, cond, timeout, timeFn)
}

// ToVoid consumes a typed task handle and converts it to a void one. The
// task keeps running; only the ability to take its return value is dropped.
func ToVoid[T any](t *Task[T]) *Task[Void] {
	return &Task[Void]{c: t.take()}
}

// =============================================================================
// TaskHandle: strong, non-resumable
// =============================================================================

// TaskHandle is a non-resumable handle holding a strong reference to a task.
// It can kill the task, observe it, and take its return value, but cannot
// resume it. Handles are copied with Clone (each clone carries its own strong
// reference) and dropped with Release.
type TaskHandle[T any] struct {
	c *cell
}

func (h TaskHandle[T]) taskCell() *cell {
	return h.c
}

// IsValid returns whether the handle references a task.
func (h TaskHandle[T]) IsValid() bool {
	return h.c != nil
}

// IsDone returns whether the task has terminated. Invalid handles report true.
func (h TaskHandle[T]) IsDone() bool {
	return h.c == nil || h.c.isDone()
}

// IsStopRequested returns whether a stop request has been issued for the task.
func (h TaskHandle[T]) IsStopRequested() bool {
	return h.c == nil || h.c.stopRequested
}

// RequestStop issues an advisory stop request on the task.
func (h TaskHandle[T]) RequestStop() {
	if h.c != nil {
		h.c.requestStop()
	}
}

// Kill immediately terminates the task.
func (h TaskHandle[T]) Kill() {
	if h.c != nil {
		h.c.kill()
	}
}

// TakeReturnValue attempts to take the task's return value. It returns
// (zero, false) while the task has not completed.
func (h TaskHandle[T]) TakeReturnValue() (T, bool) {
	if h.c == nil {
		panic("ticktask: tried to take a return value from an invalid handle")
	}
	v, ok := h.c.takeReturnValue()
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// UnhandledPanic returns the panic value captured from the task body, or nil.
func (h TaskHandle[T]) UnhandledPanic() any {
	if h.c == nil {
		panic("ticktask: tried to read a captured panic from an invalid handle")
	}
	return h.c.panicValue
}

// RepanicUnhandled rethrows any panic captured from the task body.
func (h TaskHandle[T]) RepanicUnhandled() {
	if h.c != nil {
		h.c.repanicUnhandled()
	}
}

// Clone returns a new handle carrying its own strong reference.
func (h TaskHandle[T]) Clone() TaskHandle[T] {
	if h.c != nil {
		h.c.addRef()
	}
	return TaskHandle[T]{c: h.c}
}

// Release drops this handle's strong reference. If it was the last strong
// reference, the task is killed. The handle becomes invalid.
func (h *TaskHandle[T]) Release() {
	if h.c == nil {
		return
	}
	c := h.c
	h.c = nil
	c.removeRef()
}

// Weak returns a weak, non-resumable observer of the same task.
func (h TaskHandle[T]) Weak() WeakTaskHandle {
	return WeakTaskHandle{c: h.c}
}

// DebugName returns this task's debug name.
func (h TaskHandle[T]) DebugName() string {
	if h.c == nil {
		return "[empty task handle]"
	}
	return h.c.debugNameStr()
}

// DebugStack returns the chain of debug names task -> sub-task -> ...
func (h TaskHandle[T]) DebugStack() string {
	if h.c == nil {
		return h.DebugName()
	}
	return h.c.debugStack()
}

// asVoid transfers this handle's strong reference into a void-typed handle.
func (h *TaskHandle[T]) asVoid() TaskHandle[Void] {
	c := h.c
	h.c = nil
	return TaskHandle[Void]{c: c}
}

// =============================================================================
// WeakTask: weak, resumable
// =============================================================================

// WeakTask is the resumable handle shape that holds only a weak reference to
// its task. Like Task it is move-only and obeys the single-resumer rule;
// releasing it kills the task (a frame nobody can resume must not linger).
// The task manager roster is built from WeakTask entries.
type WeakTask struct {
	c *cell
}

func (w *WeakTask) take() *cell {
	c := w.c
	w.c = nil
	return c
}

func (w *WeakTask) taskCell() *cell {
	return w.c
}

// IsValid returns whether the handle references a task.
func (w *WeakTask) IsValid() bool {
	return w.c != nil
}

// IsDone returns whether the task has terminated. Invalid handles report true.
func (w *WeakTask) IsDone() bool {
	return w.c == nil || w.c.isDone()
}

// IsStopRequested returns whether a stop request has been issued for the task.
func (w *WeakTask) IsStopRequested() bool {
	return w.c == nil || w.c.stopRequested
}

// RequestStop issues an advisory stop request on the task.
func (w *WeakTask) RequestStop() {
	if w.c != nil {
		w.c.requestStop()
	}
}

// Kill immediately terminates the task.
func (w *WeakTask) Kill() {
	if w.c != nil {
		w.c.kill()
	}
}

// Resume steps the task to its next suspension point.
func (w *WeakTask) Resume() TaskStatus {
	if w.c == nil {
		return TaskDone
	}
	return w.c.resume()
}

// Release drops the handle. Because it was the unique resumable handle, the
// task is killed if it has not already finished.
func (w *WeakTask) Release() {
	if w.c == nil {
		return
	}
	c := w.take()
	c.kill()
}

// Weak returns a weak, non-resumable observer of the same task.
func (w *WeakTask) Weak() WeakTaskHandle {
	return WeakTaskHandle{c: w.c}
}

// DebugName returns this task's debug name.
func (w *WeakTask) DebugName() string {
	if w.c == nil {
		return "[empty task]"
	}
	return w.c.debugNameStr()
}

// DebugStack returns the chain of debug names task -> sub-task -> ...
func (w *WeakTask) DebugStack() string {
	if w.c == nil {
		return w.DebugName()
	}
	return w.c.debugStack()
}

// =============================================================================
// WeakTaskHandle: weak, non-resumable
// =============================================================================

// WeakTaskHandle is a freely copyable observer of a task. It neither extends
// the task's lifetime nor resumes it; every handle shape converts to it.
type WeakTaskHandle struct {
	c *cell
}

func (h WeakTaskHandle) taskCell() *cell {
	return h.c
}

// IsValid returns whether the handle references a task.
func (h WeakTaskHandle) IsValid() bool {
	return h.c != nil
}

// IsDone returns whether the task has terminated. Invalid handles report true.
func (h WeakTaskHandle) IsDone() bool {
	return h.c == nil || h.c.isDone()
}

// IsStopRequested returns whether a stop request has been issued for the task.
func (h WeakTaskHandle) IsStopRequested() bool {
	return h.c == nil || h.c.stopRequested
}

// RequestStop issues an advisory stop request on the task.
func (h WeakTaskHandle) RequestStop() {
	if h.c != nil {
		h.c.requestStop()
	}
}

// Kill immediately terminates the task.
func (h WeakTaskHandle) Kill() {
	if h.c != nil {
		h.c.kill()
	}
}

// DebugName returns this task's debug name.
func (h WeakTaskHandle) DebugName() string {
	if h.c == nil {
		return "[empty task handle]"
	}
	return h.c.debugNameStr()
}

// DebugStack returns the chain of debug names task -> sub-task -> ...
func (h WeakTaskHandle) DebugStack() string {
	if h.c == nil {
		return h.DebugName()
	}
	return h.c.debugStack()
}

// =============================================================================
// TaskRef: any handle shape
// =============================================================================

// TaskRef is implemented by every handle shape. It is accepted by APIs that
// only need to identify a task (stop propagation, done-observation) without
// caring about the handle's capabilities.
type TaskRef interface {
	taskCell() *cell
	IsDone() bool
}
