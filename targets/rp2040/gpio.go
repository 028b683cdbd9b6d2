//go:build rp2040

package main

import (
	"machine"

	"bldc/core"
)

// RP2040GPIO implements core.GPIODriver for the hall sensor inputs.
type RP2040GPIO struct{}

func NewRP2040GPIO() *RP2040GPIO {
	return &RP2040GPIO{}
}

func (d *RP2040GPIO) ConfigureInputFloating(pin core.GPIOPin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInput})
	return nil
}

func (d *RP2040GPIO) ReadPin(pin core.GPIOPin) bool {
	return machine.Pin(pin).Get()
}
