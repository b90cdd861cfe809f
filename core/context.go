package core

// TaskContext is handed to every task body and is the only way a task
// suspends. All of its methods (and the package-level Await functions that
// take one) must be called from within the task body they were given to;
// they are the task's suspension points and nothing else suspends.
type TaskContext struct {
	c *cell
}

// Suspend yields unconditionally until the next resume.
func (tc *TaskContext) Suspend() {
	tc.c.frameYield()
}

// WaitUntil suspends until ready returns true. The predicate is evaluated
// immediately (no suspension if it is already true) and then re-checked on
// every resume; the frame only steps once it reports true.
func (tc *TaskContext) WaitUntil(ready func() bool) {
	if ready == nil || ready() {
		return
	}
	tc.c.readyFn = ready
	tc.c.frameYield()
}

// WaitWhile suspends until cond returns false.
func (tc *TaskContext) WaitWhile(cond func() bool) {
	tc.WaitUntil(func() bool { return !cond() })
}

// StopContext returns, without suspending, a cheap view of this task's live
// stop flag.
func (tc *TaskContext) StopContext() StopContext {
	return StopContext{c: tc.c}
}

// IsStopRequested returns whether a stop has been requested for this task.
func (tc *TaskContext) IsStopRequested() bool {
	return tc.c.stopRequested
}

// AddStopTask registers, without suspending, another task to receive stop
// requests propagated from this one. If this task is already stop-requested,
// the target is stopped immediately.
func (tc *TaskContext) AddStopTask(target TaskRef) {
	tc.c.addStopTarget(target.taskCell())
}

// RemoveStopTask unregisters a task previously added with AddStopTask.
func (tc *TaskContext) RemoveStopTask(target TaskRef) {
	tc.c.removeStopTarget(target.taskCell())
}

// SetDebugName sets, without suspending, this task's debug name.
// Conventionally called at the top of every task body.
func (tc *TaskContext) SetDebugName(name string) {
	if name != "" {
		tc.c.debugName = name
	}
}

// SetDebugNameFn sets this task's debug name together with a data producer
// that is invoked on demand whenever the debug name is rendered.
func (tc *TaskContext) SetDebugNameFn(name string, dataFn func() string) {
	tc.SetDebugName(name)
	tc.c.debugDataFn = dataFn
}

// StopContext is a view of a task's stop flag, for branching on graceful
// shutdown inside task bodies. Must not be used after the task is destroyed.
type StopContext struct {
	c *cell
}

// IsStopRequested reflects the live stop flag of the task it was taken from.
func (s StopContext) IsStopRequested() bool {
	return s.c.stopRequested
}

// =============================================================================
// Awaiting other tasks
// =============================================================================

// awaitCell attaches sub as the awaiting cell's sub-task and suspends until
// it completes. The current stop flag propagates into sub immediately, and on
// every later resume the sub-task is resumed transitively before the parent.
func awaitCell(tc *TaskContext, sub *cell) {
	c := tc.c
	if sub.isDone() {
		return
	}

	if c.stopRequested {
		sub.requestStop()
	}
	c.subTask = sub

	if sub.resume() == TaskDone {
		c.subTask = nil
		return
	}
	c.frameYield()
}

// Await suspends the current task until t completes. The awaited task is
// consumed (resumability transfers to the awaiting cell) and is resumed
// transitively whenever the awaiting task resumes. A panic captured from the
// awaited task's body is rethrown here.
func Await(tc *TaskContext, t *Task[Void]) {
	sub := t.take()
	if sub == nil {
		panic("ticktask: tried to await an invalid task")
	}
	awaitCell(tc, sub)
	sub.repanicUnhandled()
	sub.removeRef()
}

// AwaitValue is Await for value-producing tasks: it suspends until t
// completes and returns the task's return value.
func AwaitValue[T any](tc *TaskContext, t *Task[T]) T {
	sub := t.take()
	if sub == nil {
		panic("ticktask: tried to await an invalid task")
	}
	awaitCell(tc, sub)
	sub.repanicUnhandled()
	v, ok := sub.takeReturnValue()
	if !ok {
		panic("ticktask: awaited task return value is unset")
	}
	sub.removeRef()
	return v.(T)
}

// AwaitDone suspends until the referenced task is done. Unlike Await, the
// handle is only observed: awaiting a non-resumable handle does not drive
// the task's progress, so something else must be resuming it.
func AwaitDone(tc *TaskContext, ref TaskRef) {
	c := ref.taskCell()
	if c == nil {
		return
	}
	tc.WaitUntil(c.isDone)
}

// AwaitChan suspends until a value can be received from ch, then returns it.
// The receive is polled non-blockingly on every resume, so the channel may be
// fed from another goroutine; a closed channel reads as ready with the zero
// value. This is the bridge for completion signals produced outside the tick
// loop.
func AwaitChan[T any](tc *TaskContext, ch <-chan T) T {
	var v T
	received := false
	tc.WaitUntil(func() bool {
		if received {
			return true
		}
		select {
		case v = <-ch:
			received = true
			return true
		default:
			return false
		}
	})
	return v
}
