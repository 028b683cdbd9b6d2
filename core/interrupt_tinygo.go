//go:build tinygo

package core

import "runtime/interrupt"

// IntrState is the saved interrupt state for a critical section.
type IntrState = interrupt.State

// disableInterrupts masks interrupts and returns the previous state. Keep the
// section between disable and restore short: the sample dispatcher runs in
// interrupt context and must not be held off.
func disableInterrupts() IntrState {
	return interrupt.Disable()
}

func restoreInterrupts(state IntrState) {
	interrupt.Restore(state)
}
