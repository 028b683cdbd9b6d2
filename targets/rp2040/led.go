//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"bldc/core"
)

// Status LED: a single ws2812 on GPIO16 showing the motor state at a glance.
const ledPin = machine.GPIO16

type statusLED struct {
	dev       ws2812.Device
	lastState core.State
	valid     bool
}

func newStatusLED() *statusLED {
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &statusLED{dev: ws2812.NewWS2812(ledPin)}
}

// update pushes a new color when the motor state changed. Writing a ws2812
// bitstream busy-waits with interrupts off, so only touch it on transitions.
func (l *statusLED) update(state core.State) {
	if l.valid && state == l.lastState {
		return
	}
	l.lastState = state
	l.valid = true

	var g, r, b byte
	switch state {
	case core.Starting:
		g, r = 0x10, 0x10
	case core.Running:
		g = 0x10
	case core.Locked:
		r = 0x20
	}
	l.dev.WriteByte(g)
	l.dev.WriteByte(r)
	l.dev.WriteByte(b)
}
