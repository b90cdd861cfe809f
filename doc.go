// Package ticktask provides cooperative, single-threaded tasks for tick-driven
// applications.
//
// This library lets game-like programs express multi-frame stateful logic
// (wait N seconds, wait for a condition, race several operations, propagate
// cancellation) as linear procedures instead of hand-rolled state machines,
// while the host keeps deterministic control over when anything resumes.
//
// # Quick Start
//
// Create a manager, run tasks on it, and tick it once per frame:
//
//	mgr := ticktask.NewTaskManager(nil)
//	mgr.RunManaged(ticktask.Start(func(tc *ticktask.TaskContext) {
//		tc.SetDebugName("blink")
//		for i := 0; i < 3; i++ {
//			ticktask.AwaitValue(tc, ticktask.WaitSeconds(0.5, clock))
//			toggleLight()
//		}
//	}))
//
//	for running {
//		mgr.Update() // resumes every live task exactly once, in order
//	}
//
// # Key Concepts
//
// Task: a suspendable procedure. The body receives a TaskContext, whose
// methods (and the package-level Await functions) are the only suspension
// points. A task advances only when something resumes it.
//
// Handles: every task has exactly one resumable handle (Task or WeakTask,
// both move-only) plus any number of non-resumable observers (TaskHandle,
// WeakTaskHandle). Conversions only ever drop capabilities. Dropping the
// resumable handle, or the last strong reference, kills the task.
//
// TaskManager: an ordered roster of running tasks with stable resume order
// and two ownership modes (caller-owned and fire-and-forget).
//
// TaskFSM: a state machine whose states are task factories and whose links
// are guarded, optionally payload-carrying transitions; the machine itself
// runs as a single task.
//
// Stop requests vs kills: RequestStop is advisory and propagates through the
// task graph so tasks can unwind gracefully; Kill synchronously destroys a
// task's frame (deferred scope guards still run).
//
// # Threading Model
//
// Everything is cooperative and single-threaded: tasks only yield at explicit
// suspension points, and all progress happens inside TaskManager.Update (or
// a direct Resume). Completion signals from other goroutines enter through
// core.AwaitChan, which polls without blocking.
package ticktask
