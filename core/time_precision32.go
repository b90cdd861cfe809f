//go:build tasktime32

package core

// TaskTime is the unit of time for all time-sensitive awaiters.
// Single-precision variant, selected by the tasktime32 build tag.
type TaskTime = float32
