//go:build rp2040

package main

import (
	"machine"

	"bldc/core"
)

// Bridge pin assignment. Each phase drives a half bridge through one PWM
// input and one enable line; pulling the enable low floats the winding.
var phaseInPins = [3]machine.Pin{machine.GPIO6, machine.GPIO8, machine.GPIO10}
var phaseEnPins = [3]machine.Pin{machine.GPIO7, machine.GPIO9, machine.GPIO11}

// pwmPeripheral abstracts TinyGo's unexported *pwmGroup type.
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// RP2040MotorPWM implements core.MotorPWM over the RP2040 PWM slices. The
// three phase inputs sit on even GPIO pins so each phase owns channel A of
// its own slice and the slices never conflict.
type RP2040MotorPWM struct {
	slices   [3]pwmPeripheral
	channels [3]uint8
}

// NewRP2040MotorPWM creates the driver; Init configures the hardware.
func NewRP2040MotorPWM() *RP2040MotorPWM {
	return &RP2040MotorPWM{}
}

// sliceFor returns the PWM slice owning a pin. GPIO pin N belongs to slice
// (N>>1)&7.
func sliceFor(pin machine.Pin) pwmPeripheral {
	switch (uint8(pin) >> 1) & 0x7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

func (d *RP2040MotorPWM) Init() error {
	for i := 0; i < 3; i++ {
		en := phaseEnPins[i]
		en.Configure(machine.PinConfig{Mode: machine.PinOutput})
		en.Low()

		d.slices[i] = sliceFor(phaseInPins[i])
	}
	return d.SetFrequency(core.DefaultPWMFrequency)
}

func (d *RP2040MotorPWM) SetFrequency(hz uint32) error {
	period := uint64(1000000000) / uint64(hz)
	for i := 0; i < 3; i++ {
		if err := d.slices[i].Configure(machine.PWMConfig{Period: period}); err != nil {
			return err
		}
		ch, err := d.slices[i].Channel(phaseInPins[i])
		if err != nil {
			return err
		}
		d.channels[i] = ch
	}
	return nil
}

func (d *RP2040MotorPWM) SetPhaseDuty(phase core.Phase, mode core.PhaseMode, duty uint16) {
	if mode == core.PhaseDormant {
		// Drop the enable first so the bridge floats before the PWM
		// compare value changes.
		phaseEnPins[phase].Low()
		d.slices[phase].Set(d.channels[phase], 0)
		return
	}

	top := d.slices[phase].Top()
	d.slices[phase].Set(d.channels[phase], (uint32(duty)*top)/65535)
	phaseEnPins[phase].High()
}
