package core

import "strconv"

// CancelFn is the condition function type used by CancelIf/StopIf wrappers.
type CancelFn = func() bool

// CancelResult reports how a wrapped task ended: either it ran to completion
// (carrying its value, for value-producing tasks) or it was canceled.
type CancelResult[T any] struct {
	value    T
	canceled bool
}

// Canceled returns whether the wrapped task was canceled before completing.
func (r CancelResult[T]) Canceled() bool {
	return r.canceled
}

// Value returns the wrapped task's return value; ok is false iff canceled.
func (r CancelResult[T]) Value() (T, bool) {
	if r.canceled {
		var zero T
		return zero, false
	}
	return r.value, true
}

// =============================================================================
// Predicate and timer awaiters
// =============================================================================

// WaitUntil returns a task that completes once ready returns true.
func WaitUntil(ready func() bool) *Task[Void] {
	return Start(func(tc *TaskContext) {
		tc.SetDebugName("WaitUntil")
		tc.WaitUntil(ready)
	})
}

// WaitWhile returns a task that completes once cond returns false.
func WaitWhile(cond func() bool) *Task[Void] {
	return Start(func(tc *TaskContext) {
		tc.SetDebugName("WaitWhile")
		tc.WaitWhile(cond)
	})
}

// WaitForever returns a task that never completes on its own. Only for use
// in tasks that will be killed or stopped externally.
func WaitForever() *Task[Void] {
	return Start(func(tc *TaskContext) {
		tc.SetDebugName("WaitForever")
		tc.WaitUntil(func() bool { return false })
	})
}

// WaitSeconds returns a task that completes once seconds have elapsed in the
// given time-stream, measured from its first resume. It returns the overshoot
// past the requested duration.
func WaitSeconds(seconds TaskTime, timeFn TimeFn) *Task[TaskTime] {
	return StartTask(func(tc *TaskContext) TaskTime {
		start := timeFn()
		tc.SetDebugNameFn("WaitSeconds", func() string {
			return formatTime(TimeSince(start, timeFn)) + "/" + formatTime(seconds)
		})

		tc.WaitUntil(func() bool {
			return TimeSince(start, timeFn) >= seconds
		})
		return timeFn() - start - seconds
	})
}

// DelayCall returns a task that calls fn after delaySeconds have elapsed in
// the given time-stream.
func DelayCall(delaySeconds TaskTime, fn func(), timeFn TimeFn) *Task[Void] {
	return Start(func(tc *TaskContext) {
		tc.SetDebugName("DelayCall")

		AwaitValue(tc, WaitSeconds(delaySeconds, timeFn))
		fn()
	})
}

func formatTime(t TaskTime) string {
	return strconv.FormatFloat(float64(t), 'f', 3, 64)
}

// =============================================================================
// Cancel-If / Stop-If / Timeout wrappers
// =============================================================================

// CancelTaskIf consumes task, returning a wrapper that drives it each resume
// and kills it as soon as cond returns true. The wrapper's stop flag
// propagates into the wrapped task.
func CancelTaskIf[T any](task *Task[T], cond CancelFn) *Task[CancelResult[T]] {
	sub := task.take()
	if sub == nil {
		panic("ticktask: CancelIf on an invalid task")
	}
	return cancelCellIf[T](sub, func(tc *TaskContext) bool { return cond != nil && cond() })
}

// CancelTaskIfStopRequested consumes task, returning a wrapper that kills it
// as soon as a stop request is issued on the wrapper itself.
func CancelTaskIfStopRequested[T any](task *Task[T]) *Task[CancelResult[T]] {
	sub := task.take()
	if sub == nil {
		panic("ticktask: CancelIfStopRequested on an invalid task")
	}
	return cancelCellIf[T](sub, func(tc *TaskContext) bool { return tc.IsStopRequested() })
}

// Timeout consumes task, returning a wrapper that kills it once seconds have
// elapsed in the given time-stream, measured from the moment Timeout was
// called.
func Timeout[T any](task *Task[T], seconds TaskTime, timeFn TimeFn) *Task[CancelResult[T]] {
	start := timeFn()
	return CancelTaskIf(task, func() bool {
		return TimeSince(start, timeFn) >= seconds
	})
}

func cancelCellIf[T any](sub *cell, cond func(tc *TaskContext) bool) *Task[CancelResult[T]] {
	t := StartTask(func(tc *TaskContext) CancelResult[T] {
		tc.SetDebugNameFn("CancelIf", sub.debugStack)
		tc.c.addStopTarget(sub)

		for {
			if cond(tc) {
				sub.kill()
				return CancelResult[T]{canceled: true}
			}
			if sub.resume() == TaskDone {
				sub.repanicUnhandled()
				v, ok := sub.takeReturnValue()
				if !ok {
					panic("ticktask: canceled task return value is unset")
				}
				return CancelResult[T]{value: v.(T)}
			}
			tc.Suspend()
		}
	})
	t.c.addOwned(sub)
	return t
}

// StopTaskIf consumes task, returning a wrapper that issues a stop request on
// it as soon as cond returns true, then keeps resuming it until it terminates
// on its own.
func StopTaskIf[T any](task *Task[T], cond CancelFn) *Task[CancelResult[T]] {
	return stopTaskIf[T](task, cond, nil, nil)
}

// StopTaskIfTimeout is StopTaskIf with a kill deadline: once the stop request
// has been issued, the wrapped task is killed after timeout time units in the
// given time-stream.
func StopTaskIfTimeout[T any](task *Task[T], cond CancelFn, timeout TaskTime, timeFn TimeFn) *Task[CancelResult[T]] {
	return stopTaskIf[T](task, cond, &timeout, timeFn)
}

func stopTaskIf[T any](task *Task[T], cond CancelFn, timeout *TaskTime, timeFn TimeFn) *Task[CancelResult[T]] {
	sub := task.take()
	if sub == nil {
		panic("ticktask: StopIf on an invalid task")
	}

	t := StartTask(func(tc *TaskContext) CancelResult[T] {
		tc.SetDebugNameFn("StopIf", func() string {
			timeoutStr := "none"
			if timeout != nil {
				timeoutStr = formatTime(*timeout)
			}
			return "timeout = " + timeoutStr + ", task = " + sub.debugStack()
		})
		tc.c.addStopTarget(sub)

		for {
			if !sub.stopRequested && cond != nil && cond() {
				sub.requestStop()
				if timeout != nil {
					// Hand the remainder to a timeout wrapper: the task now
					// has that long to honor the stop before being killed.
					rest := &Task[T]{c: sub}
					return AwaitValue(tc, Timeout(rest, *timeout, timeFn))
				}
			}
			if sub.resume() == TaskDone {
				sub.repanicUnhandled()
				v, ok := sub.takeReturnValue()
				if !ok {
					panic("ticktask: stopped task return value is unset")
				}
				return CancelResult[T]{value: v.(T)}
			}
			tc.Suspend()
		}
	})
	t.c.addOwned(sub)
	return t
}

// =============================================================================
// Global time-stream variants
// =============================================================================

// WaitSecondsGlobal is WaitSeconds against the global time-stream.
// Requires SetGlobalTimeFn.
func WaitSecondsGlobal(seconds TaskTime) *Task[TaskTime] {
	return WaitSeconds(seconds, GlobalTime())
}

// TimeoutGlobal is Timeout against the global time-stream.
// Requires SetGlobalTimeFn.
func TimeoutGlobal[T any](task *Task[T], seconds TaskTime) *Task[CancelResult[T]] {
	return Timeout(task, seconds, GlobalTime())
}

// DelayCallGlobal is DelayCall against the global time-stream.
// Requires SetGlobalTimeFn.
func DelayCallGlobal(delaySeconds TaskTime, fn func()) *Task[Void] {
	return DelayCall(delaySeconds, fn, GlobalTime())
}

// =============================================================================
// Racing and joining
// =============================================================================

// AnyEntry is one competitor handed to WaitForAny or WaitForAll: either a
// task or a bare readiness predicate.
type AnyEntry struct {
	c *cell
}

// TaskEntry wraps a task (of any return type) as a combinator entry,
// consuming it.
func TaskEntry[T any](t *Task[T]) AnyEntry {
	c := t.take()
	if c == nil {
		panic("ticktask: combinator entry built from an invalid task")
	}
	return AnyEntry{c: c}
}

// ReadyEntry wraps a readiness predicate as a combinator entry.
func ReadyEntry(ready func() bool) AnyEntry {
	return AnyEntry{c: WaitUntil(ready).take()}
}

// WaitForAny returns a task that resumes each entry in the given order every
// tick and completes as soon as any entry is done. Within one tick the first
// done entry in construction order wins ties. All entries receive stop
// propagation from the wrapper, and losers are killed with it.
func WaitForAny(entries ...AnyEntry) *Task[Void] {
	t := Start(func(tc *TaskContext) {
		tc.SetDebugNameFn("WaitForAny", entriesDebugFn(entries, false))
		for _, e := range entries {
			tc.c.addStopTarget(e.c)
		}

		for {
			for _, e := range entries {
				if e.c.resume() == TaskDone {
					return
				}
			}
			tc.Suspend()
		}
	})
	for _, e := range entries {
		t.c.addOwned(e.c)
	}
	return t
}

// WaitForAll returns a task that resumes each entry in the given order every
// tick and completes once all entries are done.
func WaitForAll(entries ...AnyEntry) *Task[Void] {
	t := Start(func(tc *TaskContext) {
		tc.SetDebugNameFn("WaitForAll", entriesDebugFn(entries, true))
		for _, e := range entries {
			tc.c.addStopTarget(e.c)
		}

		for {
			allDone := true
			for _, e := range entries {
				if e.c.resume() != TaskDone {
					allDone = false
				}
			}
			if allDone {
				return
			}
			tc.Suspend()
		}
	})
	for _, e := range entries {
		t.c.addOwned(e.c)
	}
	return t
}

// SelectEntry is one competitor handed to Select, tagged with the value that
// Select returns if this entry finishes first.
type SelectEntry[V any] struct {
	value V
	c     *cell
}

// SelectTask wraps a task as a Select entry, consuming it.
func SelectTask[V any, T any](value V, t *Task[T]) SelectEntry[V] {
	c := t.take()
	if c == nil {
		panic("ticktask: combinator entry built from an invalid task")
	}
	return SelectEntry[V]{value: value, c: c}
}

// SelectReady wraps a readiness predicate as a Select entry.
func SelectReady[V any](value V, ready func() bool) SelectEntry[V] {
	return SelectEntry[V]{value: value, c: WaitUntil(ready).take()}
}

// Select behaves like WaitForAny but returns the value associated with
// whichever entry completes first (ties broken by construction order).
func Select[V any](entries ...SelectEntry[V]) *Task[V] {
	t := StartTask(func(tc *TaskContext) V {
		cells := make([]AnyEntry, len(entries))
		for i, e := range entries {
			cells[i] = AnyEntry{c: e.c}
		}
		tc.SetDebugNameFn("Select", entriesDebugFn(cells, false))
		for _, e := range entries {
			tc.c.addStopTarget(e.c)
		}

		for {
			for _, e := range entries {
				if e.c.resume() == TaskDone {
					return e.value
				}
			}
			tc.Suspend()
		}
	})
	for _, e := range entries {
		t.c.addOwned(e.c)
	}
	return t
}

// entriesDebugFn renders the debug stacks of combinator entries one per line,
// bracketed by the indent markers understood by DebugStackFormatter.
func entriesDebugFn(entries []AnyEntry, withStatus bool) func() string {
	return func() string {
		debugStr := ""
		for _, e := range entries {
			if debugStr != "" {
				debugStr += "\n"
			} else {
				debugStr += "\n`"
			}
			debugStr += e.c.debugStack()
			if withStatus {
				if e.c.isDone() {
					debugStr += " [DONE]"
				} else {
					debugStr += " [RUNNING]"
				}
			}
		}
		debugStr += "`\n"
		return debugStr
	}
}
