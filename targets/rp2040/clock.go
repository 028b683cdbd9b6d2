//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"bldc/core"
)

// RP2040 timer peripheral, a 64-bit microsecond counter at 1 MHz.
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0c
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// InitClock registers the platform clock constants.
func InitClock() {
	core.RegisterConstant("MCU", "rp2040")
	core.RegisterConstant("CLOCK_FREQ", uint32(1000000))
}

// UpdateSystemTime refreshes the core millisecond tick from the hardware
// timer. Called from the main loop.
func UpdateSystemTime() {
	core.SetMillis(timerRAWL.Get() / 1000)
}
