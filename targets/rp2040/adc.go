//go:build rp2040

package main

import (
	"sync/atomic"
	"time"

	"machine"

	"bldc/core"
)

// ADC channel assignment: phase terminals on ADC0-ADC2, bus voltage divider
// on ADC3.
var adcPins = [4]machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3}

// RP2040ADC implements core.ADCDriver. A background goroutine scans all four
// channels and invokes the registered callback after each completed set, which
// stands in for a hardware end-of-conversion interrupt.
type RP2040ADC struct {
	adcs     [4]machine.ADC
	values   [4]uint32 // atomic
	callback func()
}

// NewRP2040ADC creates the driver; Init configures the hardware.
func NewRP2040ADC() *RP2040ADC {
	return &RP2040ADC{}
}

func (d *RP2040ADC) Init() error {
	machine.InitADC()
	for i, pin := range adcPins {
		d.adcs[i] = machine.ADC{Pin: pin}
		if err := d.adcs[i].Configure(machine.ADCConfig{}); err != nil {
			return err
		}
	}
	return nil
}

func (d *RP2040ADC) ReadVoltage(ch core.ADCChannel) uint16 {
	return uint16(atomic.LoadUint32(&d.values[ch]))
}

func (d *RP2040ADC) OnSampleComplete(fn func()) {
	d.callback = fn
}

// run is the sampling loop. The cadence is fixed at roughly 20 kHz worth of
// conversion time per set; machine.ADC.Get blocks for the conversion itself.
func (d *RP2040ADC) run() {
	for {
		for i := range d.adcs {
			atomic.StoreUint32(&d.values[i], uint32(d.adcs[i].Get()))
		}
		if d.callback != nil {
			d.callback()
		}
		time.Sleep(50 * time.Microsecond)
	}
}
