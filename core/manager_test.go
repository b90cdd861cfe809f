package core

import (
	"strings"
	"testing"
)

// loopTask builds a task that appends its name to order on every tick.
func loopTask(name string, order *[]string) *Task[Void] {
	return Start(func(tc *TaskContext) {
		tc.SetDebugName(name)
		for {
			*order = append(*order, name)
			tc.Suspend()
		}
	})
}

// TestTaskManager_StableOrderWithMidUpdateSpawn verifies roster ordering
// Given: Tasks A, B, C where A spawns D via RunManaged during tick 2
// When: Three updates run
// Then: Tick 2 resumes A,B,C only and tick 3 resumes A,B,C,D
func TestTaskManager_StableOrderWithMidUpdateSpawn(t *testing.T) {
	// Arrange
	m := NewTaskManager(nil)
	var order []string

	aTicks := 0
	m.RunManaged(Start(func(tc *TaskContext) {
		tc.SetDebugName("A")
		for {
			aTicks++
			order = append(order, "A")
			if aTicks == 2 {
				m.RunManaged(loopTask("D", &order))
			}
			tc.Suspend()
		}
	}))
	m.RunManaged(loopTask("B", &order))
	m.RunManaged(loopTask("C", &order))

	// Act
	m.Update()
	tick1 := strings.Join(order, "")
	order = nil
	m.Update()
	tick2 := strings.Join(order, "")
	order = nil
	m.Update()
	tick3 := strings.Join(order, "")

	// Assert
	if tick1 != "ABC" {
		t.Fatalf("tick 1 order = %q, want ABC", tick1)
	}
	if tick2 != "ABC" {
		t.Fatalf("tick 2 order = %q, want ABC (D must not start mid-update)", tick2)
	}
	if tick3 != "ABCD" {
		t.Fatalf("tick 3 order = %q, want ABCD", tick3)
	}
}

// TestTaskManager_SurvivorsKeepRelativeOrder verifies the stable sweep
// Given: Five tasks with different lifespans
// When: The manager ticks until all are done
// Then: Every tick's resume order is a stable subsequence of the roster
func TestTaskManager_SurvivorsKeepRelativeOrder(t *testing.T) {
	// Arrange
	m := NewTaskManager(nil)
	var order []string
	lifespans := map[string]int{"A": 3, "B": 1, "C": 4, "D": 2, "E": 4}
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		ttl := lifespans[name]
		name := name
		m.RunManaged(Start(func(tc *TaskContext) {
			for i := 0; i < ttl; i++ {
				order = append(order, name)
				if i < ttl-1 {
					tc.Suspend()
				}
			}
		}))
	}

	// Act and Assert
	want := []string{"ABCDE", "ACDE", "ACE", "CE", ""}
	for tick, w := range want {
		order = nil
		m.Update()
		if got := strings.Join(order, ""); got != w {
			t.Fatalf("tick %d order = %q, want %q", tick+1, got, w)
		}
	}
}

// TestTaskManager_KillAll verifies the kill cascade and the emptied manager
// Given: Managed tasks holding scope guards
// When: KillAll runs, then another Update
// Then: Every guard ran, and the update is a no-op on the emptied manager
func TestTaskManager_KillAll(t *testing.T) {
	// Arrange
	m := NewTaskManager(nil)
	cleanups := 0
	for range 3 {
		m.RunManaged(Start(func(tc *TaskContext) {
			guard := NewFuncGuard(func() { cleanups++ })
			defer guard.Execute()
			for {
				tc.Suspend()
			}
		}))
	}
	m.Update()

	// Act
	m.KillAll()

	// Assert
	if cleanups != 3 {
		t.Fatalf("cleanups = %d, want 3", cleanups)
	}

	// Act - update after kill_all must be a no-op
	m.Update()

	// Assert
	stats := m.Stats()
	if stats.Active != 0 || stats.Retained != 0 {
		t.Fatalf("stats after kill_all = %+v, want empty", stats)
	}
}

// TestTaskManager_StopAllFence verifies stop-all-then-fence semantics
// Given: Two tasks that finish once they observe a stop request
// When: StopAll issues stops and returns a fence task
// Then: The fence completes only after the next update drains both tasks
func TestTaskManager_StopAllFence(t *testing.T) {
	// Arrange
	m := NewTaskManager(nil)
	stopAware := func() *Task[Void] {
		return Start(func(tc *TaskContext) {
			stopCtx := tc.StopContext()
			tc.WaitUntil(stopCtx.IsStopRequested)
		})
	}
	m.RunManaged(stopAware())
	m.RunManaged(stopAware())
	m.Update()

	// Act
	fence := m.StopAll()
	defer fence.Release()

	// Assert - tasks have not drained yet
	if got := fence.Resume(); got != TaskSuspended {
		t.Fatalf("fence = %v, want suspended before the drain tick", got)
	}

	// Act - one update lets both tasks observe the stop and finish
	m.Update()

	// Assert
	if got := fence.Resume(); got != TaskDone {
		t.Fatalf("fence = %v, want done after all tasks terminated", got)
	}
}

// TestTaskManager_UnmanagedHandleDropKills verifies caller-owned lifetime
// Given: An unmanaged task whose only strong handle is the caller's
// When: The handle is released mid-run
// Then: The task is killed and swept on the next update
func TestTaskManager_UnmanagedHandleDropKills(t *testing.T) {
	// Arrange
	m := NewTaskManager(nil)
	cleaned := false
	handle := m.Run(Start(func(tc *TaskContext) {
		guard := NewFuncGuard(func() { cleaned = true })
		defer guard.Execute()
		for {
			tc.Suspend()
		}
	}))
	m.Update()

	// Act
	handle.Release()

	// Assert
	if !cleaned {
		t.Fatal("dropping the last strong handle should kill the task")
	}

	// Act
	m.Update()

	// Assert
	if got := m.Stats().Active; got != 0 {
		t.Fatalf("active = %d, want 0 after the sweep", got)
	}
}

// TestTaskManager_RunManagedLifetime verifies fire-and-forget pinning
// Given: A managed task that completes after two ticks
// When: The manager updates past its completion
// Then: The weak observer reports done and the retain set is compacted
func TestTaskManager_RunManagedLifetime(t *testing.T) {
	// Arrange
	m := NewTaskManager(nil)
	observer := m.RunManaged(Start(func(tc *TaskContext) {
		tc.Suspend()
	}))

	// Act
	m.Update()

	// Assert
	if observer.IsDone() {
		t.Fatal("managed task should still be alive after one tick")
	}
	if got := m.Stats().Retained; got != 1 {
		t.Fatalf("retained = %d, want 1 while the task runs", got)
	}

	// Act
	m.Update()

	// Assert
	if !observer.IsDone() {
		t.Fatal("managed task should be done after its body returned")
	}
	if got := m.Stats().Retained; got != 0 {
		t.Fatalf("retained = %d, want 0 after compaction", got)
	}
}

// TestTaskManager_ReturnValueThroughHandle verifies unmanaged value retrieval
// Given: A value-producing task run unmanaged
// When: The manager drives it to completion
// Then: The caller takes the value through the returned handle
func TestTaskManager_ReturnValueThroughHandle(t *testing.T) {
	// Arrange
	m := NewTaskManager(nil)
	handle := RunOn(m, StartTask(func(tc *TaskContext) string {
		tc.Suspend()
		return "result"
	}))
	defer handle.Release()

	// Act
	m.Update()
	m.Update()

	// Assert
	if v, ok := handle.TakeReturnValue(); !ok || v != "result" {
		t.Fatalf("value = (%q, %v), want (result, true)", v, ok)
	}
}

// panicRecorder records panic reports from the manager.
type panicRecorder struct {
	taskNames []string
	values    []any
}

func (r *panicRecorder) HandleTaskPanic(taskName string, panicInfo any, stackTrace []byte) {
	r.taskNames = append(r.taskNames, taskName)
	r.values = append(r.values, panicInfo)
}

// TestTaskManager_PanicNeverCrossesUpdate verifies the failure boundary
// Given: A managed task that panics on its second tick
// When: The manager updates through the panic
// Then: Update returns normally, the panic is reported once, and the task is swept
func TestTaskManager_PanicNeverCrossesUpdate(t *testing.T) {
	// Arrange
	recorder := &panicRecorder{}
	m := NewTaskManager(&ManagerConfig{PanicHandler: recorder})
	m.RunManaged(Start(func(tc *TaskContext) {
		tc.SetDebugName("faulty")
		tc.Suspend()
		panic("exploded")
	}))

	// Act - must not panic
	m.Update()
	m.Update()
	m.Update()

	// Assert
	if len(recorder.values) != 1 {
		t.Fatalf("panic reported %d times, want 1", len(recorder.values))
	}
	if recorder.taskNames[0] != "faulty" || recorder.values[0] != "exploded" {
		t.Fatalf("report = (%q, %v), want (faulty, exploded)", recorder.taskNames[0], recorder.values[0])
	}
	if got := m.Stats().Active; got != 0 {
		t.Fatalf("active = %d, want 0 after the faulty task was swept", got)
	}
}

// TestTaskManager_StatsAndDebugString verifies the observability surface
// Given: Two named tasks on a named manager
// When: One update runs
// Then: Stats reflect the roster and DebugString lists the live stacks
func TestTaskManager_StatsAndDebugString(t *testing.T) {
	// Arrange
	var order []string
	m := NewTaskManager(nil)
	m.SetName("game")
	m.RunManaged(loopTask("mover", &order))
	m.RunManaged(loopTask("shooter", &order))

	// Act
	m.Update()

	// Assert
	stats := m.Stats()
	if stats.Name != "game" || stats.Active != 2 || stats.TotalResumes != 2 {
		t.Fatalf("stats = %+v, want name=game active=2 resumes=2", stats)
	}
	if stats.LastTaskName != "shooter" {
		t.Fatalf("last task = %q, want shooter", stats.LastTaskName)
	}

	debugStr := m.DebugString()
	if !strings.Contains(debugStr, "mover") || !strings.Contains(debugStr, "shooter") {
		t.Fatalf("debug string %q should list both tasks", debugStr)
	}
	if len(m.RecentResumes(0)) != 2 {
		t.Fatal("resume history should hold one record per resume")
	}
}
