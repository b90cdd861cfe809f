package core

import "runtime/debug"

// TaskStatus is the status of a task (whether it is currently suspended or done).
type TaskStatus int

const (
	// TaskSuspended means the task is currently suspended.
	TaskSuspended TaskStatus = iota
	// TaskDone means the task has terminated and its frame has been destroyed.
	TaskDone
)

// String returns the status name.
func (s TaskStatus) String() string {
	if s == TaskDone {
		return "done"
	}
	return "suspended"
}

// internalState tracks where a cell is in its resume/kill lifecycle.
type internalState int

const (
	stateIdle internalState = iota
	stateResuming
	stateDestroyed
)

// retValState is the return-value slot state machine:
// Unset -> Set -> Taken, or Unset -> Orphaned on premature destruction.
type retValState int

const (
	retUnset retValState = iota
	retSet
	retTaken
	retOrphaned
)

// frameKilled is the sentinel panic injected into a frame goroutine to unwind
// it synchronously. Deferred scope guards inside the body run as part of the
// unwind; the sentinel itself is recovered at the top of the frame.
type frameKilled struct{}

const unnamedTask = "[unnamed task]"

// cell is the runtime record backing a task: the suspended frame, status
// flags, readiness predicate, sub-task chain, stop-propagation links, and
// the return-value slot.
//
// A cell is shared between its unique resumable handle and any number of
// non-resumable handles. All mutation happens on the goroutine that calls
// Resume; the frame goroutine and the resumer hand control back and forth
// over unbuffered channels, so their executions never overlap.
type cell struct {
	// frame machinery
	body         func(tc *TaskContext)
	frameStarted bool
	frameExited  bool
	killFlag     bool
	resumeCh     chan struct{}
	yieldCh      chan struct{}

	done    bool
	state   internalState
	readyFn func() bool
	subTask *cell

	// stop-request protocol
	stopRequested bool
	stopTargets   []*cell

	// logical strong references (not GC references); zero means kill
	refCount int

	// captured panic escaping the body
	panicValue    any
	panicTrace    []byte
	panicSet      bool
	panicReported bool

	// return-value slot
	retState retValState
	retVal   any

	// extra cells owned by this frame (combinator children), killed with it
	owned []*cell

	debugName   string
	debugDataFn func() string
}

func newCell(body func(tc *TaskContext)) *cell {
	return &cell{
		body:      body,
		resumeCh:  make(chan struct{}),
		yieldCh:   make(chan struct{}),
		debugName: unnamedTask,
	}
}

// =============================================================================
// Frame goroutine handoff
// =============================================================================

// frameMain is the entry point of the frame goroutine. The body runs until it
// yields (parking on resumeCh) or returns; a kill unparks it with killFlag
// set, which panics the sentinel through the body so defers run.
func (c *cell) frameMain() {
	defer func() {
		if r := recover(); r != nil {
			if _, isKill := r.(frameKilled); !isKill {
				c.setUnhandledPanic(r, debug.Stack())
			}
		}
		if c.retState == retUnset {
			c.retState = retOrphaned
		}
		c.frameExited = true
		c.yieldCh <- struct{}{}
	}()

	c.body(&TaskContext{c: c})
}

// stepFrame runs the frame until its next suspension point (or completion).
// Must only be called while the frame goroutine is parked.
func (c *cell) stepFrame() {
	if !c.frameStarted {
		c.frameStarted = true
		go c.frameMain()
	} else {
		c.resumeCh <- struct{}{}
	}
	<-c.yieldCh
}

// frameYield parks the frame goroutine until the next stepFrame. Called only
// from within the frame goroutine.
func (c *cell) frameYield() {
	c.yieldCh <- struct{}{}
	<-c.resumeCh
	if c.killFlag {
		panic(frameKilled{})
	}
}

// =============================================================================
// Resume / Kill
// =============================================================================

// resume steps the task once. Resuming a cell that is already mid-resume is a
// contract violation.
func (c *cell) resume() TaskStatus {
	if c.state == stateResuming {
		panic("ticktask: attempted to resume a task that is already resuming")
	}

	if c.state == stateDestroyed {
		return TaskDone
	}

	c.state = stateResuming

	// Drive any active sub-task first, propagating the stop flag into it.
	if c.subTask != nil {
		if c.stopRequested {
			c.subTask.stopRequested = true
		}

		if c.subTask.resume() != TaskDone {
			c.state = stateIdle
			return TaskSuspended
		}

		c.subTask = nil
	}

	if c.canResume() {
		c.readyFn = nil
		c.stepFrame()
	}

	status := TaskSuspended
	if c.frameExited {
		c.done = true
		status = TaskDone
	}
	c.state = stateIdle
	return status
}

func (c *cell) canResume() bool {
	if c.done {
		return false
	}
	if c.subTask != nil {
		return c.subTask.canResume()
	}
	return c.readyFn == nil || c.readyFn()
}

// kill synchronously destroys the frame and all of its locals. The sub-task
// is killed first, then the frame unwinds (running deferred scope guards).
// Safe to call multiple times.
func (c *cell) kill() {
	if c.state == stateResuming {
		panic("ticktask: attempted to kill a task while it is resuming")
	}
	if c.state != stateIdle {
		return
	}

	c.done = true

	if c.subTask != nil {
		c.subTask.kill()
		c.subTask = nil
	}
	for _, o := range c.owned {
		o.kill()
	}
	c.owned = nil

	if c.frameStarted && !c.frameExited {
		c.killFlag = true
		c.resumeCh <- struct{}{}
		<-c.yieldCh
	} else if !c.frameStarted && c.retState == retUnset {
		// The frame never ran, so the body could not set a value.
		c.retState = retOrphaned
	}

	c.readyFn = nil
	c.state = stateDestroyed
}

func (c *cell) isDone() bool {
	return c.done
}

// =============================================================================
// Logical reference counting
// =============================================================================

func (c *cell) addRef() {
	c.refCount++
}

func (c *cell) removeRef() {
	c.refCount--
	if c.refCount == 0 {
		c.kill()
	}
}

// addOwned registers a child cell whose lifetime is bound to this frame.
func (c *cell) addOwned(child *cell) {
	c.owned = append(c.owned, child)
}

// =============================================================================
// Stop-request protocol
// =============================================================================

// requestStop sets the sticky stop flag and propagates the request to every
// live cell in the stop-propagation list, then clears the list.
func (c *cell) requestStop() {
	c.stopRequested = true
	for _, target := range c.stopTargets {
		if !target.done {
			target.requestStop()
		}
	}
	c.stopTargets = nil
}

// addStopTarget adds a cell to which stop requests are propagated. If a stop
// was already requested, the target is stopped immediately instead.
func (c *cell) addStopTarget(target *cell) {
	if target == nil {
		return
	}
	if c.stopRequested {
		target.requestStop()
		return
	}
	c.stopTargets = append(c.stopTargets, target)
}

func (c *cell) removeStopTarget(target *cell) {
	if target == nil {
		return
	}
	for i := range c.stopTargets {
		if c.stopTargets[i] == target {
			c.stopTargets[i] = c.stopTargets[len(c.stopTargets)-1]
			c.stopTargets = c.stopTargets[:len(c.stopTargets)-1]
			return
		}
	}
}

// =============================================================================
// Captured panics
// =============================================================================

func (c *cell) setUnhandledPanic(value any, trace []byte) {
	if c.panicSet {
		panic("ticktask: task panic captured after one was already set")
	}
	c.panicValue = value
	c.panicTrace = trace
	c.panicSet = true
	c.retState = retOrphaned
}

// repanicUnhandled rethrows a captured panic, if any.
func (c *cell) repanicUnhandled() {
	if c.panicSet {
		panic(c.panicValue)
	}
}

// =============================================================================
// Return-value slot
// =============================================================================

func (c *cell) setReturnValue(v any) {
	if c.retState != retUnset {
		panic("ticktask: attempted to set a task's return value twice")
	}
	c.retVal = v
	c.retState = retSet
}

// takeReturnValue destructively moves the value out of the slot. Returns
// (nil, false) when the task has not completed yet. Taking twice, or taking
// from an orphaned slot, is a contract violation.
func (c *cell) takeReturnValue() (any, bool) {
	switch c.retState {
	case retSet:
		c.retState = retTaken
		v := c.retVal
		c.retVal = nil
		return v, true
	case retTaken:
		panic("ticktask: attempted to take a task's return value after it was already taken")
	case retOrphaned:
		panic("ticktask: attempted to take a return value that will never be set (task ended prematurely)")
	}
	return nil, false
}

// =============================================================================
// Debug names
// =============================================================================

func (c *cell) debugNameStr() string {
	if !c.done && c.debugDataFn != nil {
		return c.debugName + " [" + c.debugDataFn() + "]"
	}
	return c.debugName
}

// debugStack renders the chain cell -> sub-task -> sub-sub-task -> ...
func (c *cell) debugStack() string {
	if c.subTask != nil {
		return c.debugNameStr() + " -> " + c.subTask.debugStack()
	}
	return c.debugNameStr()
}
