package core

// TimeFn returns the current time in some caller-chosen time-stream.
//
// Game projects usually carry several time-streams ("game time", "real
// time", "paused time", ...), so every time-sensitive awaiter takes the
// stream to measure against as an explicit function argument. The only
// requirement is that the returned values are monotonically non-decreasing
// within one stream. By convention a TimeFn is the final argument of every
// time-sensitive awaiter.
type TimeFn func() TaskTime

// TimeSince returns the elapsed time since t in the given time-stream.
func TimeSince(t TaskTime, timeFn TimeFn) TaskTime {
	return timeFn() - t
}

// =============================================================================
// Global time-stream (opt-in)
// =============================================================================

var globalTimeFn TimeFn

// SetGlobalTimeFn installs a process-wide time-stream so that the *Global
// awaiter variants (WaitSecondsGlobal, TimeoutGlobal, ...) can omit the
// explicit TimeFn argument.
//
// Most projects should NOT call this: it assumes there is only a single
// time-stream. It exists for small projects where that assumption holds.
// It is best to save the current time once at the start of each frame and
// return that saved value, so all tasks resumed within one update observe
// the same time.
func SetGlobalTimeFn(fn TimeFn) {
	globalTimeFn = fn
}

// GlobalTime returns the installed global time-stream function.
// Panics if SetGlobalTimeFn was never called.
func GlobalTime() TimeFn {
	if globalTimeFn == nil {
		panic("ticktask: global task time not enabled (call SetGlobalTimeFn first)")
	}
	return globalTimeFn
}

// TimeSinceGlobal returns the elapsed time since t in the global time-stream.
func TimeSinceGlobal(t TaskTime) TaskTime {
	return TimeSince(t, GlobalTime())
}
