package core

import (
	"testing"
)

// TestTaskFSM_RunsToExitState verifies the basic state loop
// Given: Entry -> Work (suspends once), Work -OnComplete-> End (exit)
// When: The FSM task is ticked
// Then: It transitions once Work finishes and returns the exit state's id
func TestTaskFSM_RunsToExitState(t *testing.T) {
	// Arrange
	fsm := NewTaskFSM()
	work := AddState(fsm, "Work", func() *Task[Void] {
		return Start(func(tc *TaskContext) { tc.Suspend() })
	})
	end := fsm.AddExitState("End")
	fsm.EntryLinks(work.Link())
	fsm.StateLinks(work, end.OnCompleteLink())

	task := fsm.Run(nil, nil)
	defer task.Release()

	// Act
	statuses := tickTask(task, 3)

	// Assert
	want := []TaskStatus{TaskSuspended, TaskSuspended, TaskDone}
	for i, w := range want {
		if statuses[i] != w {
			t.Fatalf("status[%d] = %v, want %v", i, statuses[i], w)
		}
	}
	id, ok := task.TakeReturnValue()
	if !ok || id != end.ID() {
		t.Fatalf("exit id = (%v, %v), want (%v, true)", id, ok, end.ID())
	}
}

// TestTaskFSM_LinkWhenCarriesPayload verifies typed payload delivery
// Given: An entry link whose predicate yields a payload
// When: The FSM enters the target state
// Then: The factory receives the predicate's payload
func TestTaskFSM_LinkWhenCarriesPayload(t *testing.T) {
	// Arrange
	fsm := NewTaskFSM()
	var got float64
	target := AddStateWithInput(fsm, "Target", func(v float64) *Task[Void] {
		got = v
		return WaitForever()
	})
	fsm.EntryLinks(target.LinkWhen(func() (float64, bool) { return 3.5, true }))
	fsm.StateLinks(target)

	task := fsm.Run(nil, nil)
	defer task.Release()

	// Act
	task.Resume()

	// Assert
	if got != 3.5 {
		t.Fatalf("payload = %v, want 3.5", got)
	}
}

// TestTaskFSM_TransitionCallbackOrder verifies transition sequencing
// Given: A transition with a generic callback, a debug callback, and a factory
// When: The transition fires
// Then: Generic callback, then debug callback, then construction
func TestTaskFSM_TransitionCallbackOrder(t *testing.T) {
	// Arrange
	fsm := NewTaskFSM()
	var sequence []string
	target := AddState(fsm, "Target", func() *Task[Void] {
		sequence = append(sequence, "construct")
		return WaitForever()
	})
	fsm.EntryLinks(target.Link())
	fsm.StateLinks(target)

	task := fsm.Run(
		func() { sequence = append(sequence, "transition") },
		func(d TransitionDebugData) {
			sequence = append(sequence, "debug:"+d.OldStateName+"->"+d.NewStateName)
		},
	)
	defer task.Release()

	// Act
	task.Resume()

	// Assert
	want := []string{"transition", "debug:<ENTRY>->Target", "construct"}
	if len(sequence) != len(want) {
		t.Fatalf("sequence = %v, want %v", sequence, want)
	}
	for i, w := range want {
		if sequence[i] != w {
			t.Fatalf("sequence[%d] = %q, want %q", i, sequence[i], w)
		}
	}
}

// TestTaskFSM_WiringViolations verifies the authoring-time panics
// Given: Illegal wiring attempts
// When: Links are declared
// Then: Each attempt panics
func TestTaskFSM_WiringViolations(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected a wiring panic")
				}
			}()
			fn()
		})
	}

	mustPanic("state links set twice", func() {
		fsm := NewTaskFSM()
		a := AddState(fsm, "A", WaitForever)
		b := AddState(fsm, "B", WaitForever)
		fsm.StateLinks(a, b.Link())
		fsm.StateLinks(a, b.Link())
	})

	mustPanic("entry links with on-complete", func() {
		fsm := NewTaskFSM()
		a := AddState(fsm, "A", WaitForever)
		fsm.EntryLinks(a.OnCompleteLink())
	})

	mustPanic("on-complete after unconditional on-complete", func() {
		fsm := NewTaskFSM()
		a := AddState(fsm, "A", WaitForever)
		b := AddState(fsm, "B", WaitForever)
		c := AddState(fsm, "C", WaitForever)
		fsm.StateLinks(a, b.OnCompleteLink(), c.OnCompleteLink())
	})
}

// TestTaskFSM_OnCompleteOnlyAfterStateFinishes verifies link gating
// Given: A state with only an unconditional OnComplete link
// When: The FSM ticks while the state's task still runs
// Then: No transition happens until the task is done, then the link fires
func TestTaskFSM_OnCompleteOnlyAfterStateFinishes(t *testing.T) {
	// Arrange
	fsm := NewTaskFSM()
	ticksToLive := 2
	slow := AddState(fsm, "Slow", func() *Task[Void] {
		return Start(func(tc *TaskContext) {
			for i := 0; i < ticksToLive; i++ {
				tc.Suspend()
			}
		})
	})
	end := fsm.AddExitState("End")
	fsm.EntryLinks(slow.Link())
	fsm.StateLinks(slow, end.OnCompleteLink())

	task := fsm.Run(nil, nil)
	defer task.Release()

	// Act and Assert
	for i := range 3 {
		if got := task.Resume(); got != TaskSuspended {
			t.Fatalf("tick %d = %v, want suspended while Slow runs", i+1, got)
		}
	}
	if got := task.Resume(); got != TaskDone {
		t.Fatal("FSM should exit on the tick after Slow finished")
	}
}

// TestTaskFSM_KillDestroysCurrentStateTask verifies cleanup on kill
// Given: An FSM whose current state task holds a scope guard
// When: The FSM task is killed
// Then: The state task's guard runs
func TestTaskFSM_KillDestroysCurrentStateTask(t *testing.T) {
	// Arrange
	fsm := NewTaskFSM()
	cleaned := false
	guarded := AddState(fsm, "Guarded", func() *Task[Void] {
		return Start(func(tc *TaskContext) {
			guard := NewFuncGuard(func() { cleaned = true })
			defer guard.Execute()
			for {
				tc.Suspend()
			}
		})
	})
	fsm.EntryLinks(guarded.Link())
	fsm.StateLinks(guarded)

	task := fsm.Run(nil, nil)
	task.Resume()

	// Act
	task.Release()

	// Assert
	if !cleaned {
		t.Fatal("killing the FSM should destroy the current state's task")
	}
}

// TestTaskFSM_StopDrivenRun verifies the full stop-aware scenario
// Given: Idle -> Periodic(1.0) -> Lambda(2.0) -> End, with stop issued before
//        the first tick; Lambda watches its stop context
// When: The FSM is ticked
// Then: Lambda is entered, exits early on the stop, and the FSM reaches End
//       on the subsequent tick
func TestTaskFSM_StopDrivenRun(t *testing.T) {
	// Arrange
	clock := &fakeClock{}
	fsm := NewTaskFSM()
	var observer WeakTaskHandle
	lambdaSawStop := false

	idle := AddState(fsm, "Idle", WaitForever)
	periodic := AddStateWithInput(fsm, "Periodic", func(speed float64) *Task[Void] {
		return ToVoid(WaitSeconds(TaskTime(speed), clock.fn()))
	})
	lambda := AddStateWithInput(fsm, "Lambda", func(duration float64) *Task[Void] {
		return Start(func(tc *TaskContext) {
			start := clock.fn()()
			stopCtx := tc.StopContext()
			tc.WaitUntil(func() bool {
				if stopCtx.IsStopRequested() {
					lambdaSawStop = true
					return true
				}
				return TimeSince(start, clock.fn()) >= TaskTime(duration)
			})
		})
	})
	end := fsm.AddExitState("End")

	fsm.EntryLinks(idle.Link())
	fsm.StateLinks(idle, periodic.Link(1.0), end.OnCompleteLink())
	fsm.StateLinks(periodic, lambda.Link(2.0))
	fsm.StateLinks(lambda,
		idle.OnCompleteLinkIf(func() bool { return !observer.IsStopRequested() }),
		end.OnCompleteLink(),
	)

	var visited []string
	task := fsm.Run(nil, func(d TransitionDebugData) {
		visited = append(visited, d.NewStateName)
	})
	defer task.Release()
	observer = task.WeakHandle()

	// Act - stop before the machine ever runs
	task.RequestStop()

	statuses := tickTask(task, 4)

	// Assert
	want := []TaskStatus{TaskSuspended, TaskSuspended, TaskSuspended, TaskDone}
	for i, w := range want {
		if statuses[i] != w {
			t.Fatalf("status[%d] = %v, want %v", i, statuses[i], w)
		}
	}
	if !lambdaSawStop {
		t.Fatal("Lambda should observe the stop via its stop context")
	}
	wantVisited := []string{"Idle", "Periodic", "Lambda", "End"}
	if len(visited) != len(wantVisited) {
		t.Fatalf("visited = %v, want %v", visited, wantVisited)
	}
	for i, w := range wantVisited {
		if visited[i] != w {
			t.Fatalf("visited[%d] = %q, want %q", i, visited[i], w)
		}
	}
	id, ok := task.TakeReturnValue()
	if !ok || id != end.ID() {
		t.Fatalf("exit id = (%v, %v), want (%v, true)", id, ok, end.ID())
	}
}
