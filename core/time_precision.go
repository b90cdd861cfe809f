//go:build !tasktime32

package core

// TaskTime is the unit of time for all time-sensitive awaiters.
// Build with the tasktime32 tag to switch to single precision.
type TaskTime = float64
