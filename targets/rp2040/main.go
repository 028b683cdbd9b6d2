//go:build rp2040

package main

import (
	"time"

	"machine"

	"bldc/core"
	"bldc/protocol"
)

// Hall sensor inputs.
var hallPins = [3]core.GPIOPin{2, 3, 4}

var (
	inputBuffer  *protocol.Fifo
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Clear any watchdog state left over from a previous reset.
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitClock()
	UpdateSystemTime()

	core.InitCoreCommands()

	pwmDriver := NewRP2040MotorPWM()
	gpioDriver := NewRP2040GPIO()
	adcDriver := NewRP2040ADC()

	motor, err := core.NewMotor(core.Config{HallPins: hallPins},
		pwmDriver, gpioDriver, adcDriver)
	if err != nil {
		return
	}
	if err := motor.Init(); err != nil {
		return
	}
	core.InitMotorCommands(motor)
	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifo(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, core.DispatchCommand)
	transport.SetResetHook(func() {
		// Host reconnected: make the hardware safe and drop stale data.
		motor.Stop()
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	// The host expects the ACK on the wire before any response data.
	transport.SetFlushHook(writeUSB)
	core.SetGlobalTransport(transport)

	core.SetResetHandler(func() {
		// Watchdog reset handles USB re-enumeration more reliably than
		// SYSRESETREQ on the RP2040.
		if machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}) != nil {
			return
		}
		if machine.Watchdog.Start() != nil {
			return
		}
		for {
			time.Sleep(1 * time.Millisecond)
		}
	})

	led := newStatusLED()

	go usbReaderLoop()
	go adcDriver.run()

	for {
		func() {
			defer func() {
				if recover() != nil {
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				transport.Receive(inputBuffer)
			}

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}

			core.CheckPendingReset()
			led.update(motor.State())
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop feeds USB input into the receive FIFO.
func usbReaderLoop() {
	defer func() {
		if recover() != nil {
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			b, err := USBRead()
			if err != nil {
				time.Sleep(1 * time.Millisecond)
				continue
			}

			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
			}

			if inputBuffer.Write([]byte{b}) == 0 {
				// FIFO full; drop and let the host retransmit.
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB drains the output buffer to USB, tolerating partial writes.
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				// Host is gone; discard stale traffic.
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}

	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
