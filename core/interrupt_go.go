//go:build !tinygo

package core

// IntrState is the saved interrupt state for a critical section.
type IntrState uintptr

// disableInterrupts is a no-op off-target; tests run single-threaded with
// respect to the dispatcher.
func disableInterrupts() IntrState {
	return 0
}

func restoreInterrupts(state IntrState) {
}
