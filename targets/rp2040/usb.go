//go:build rp2040

package main

import "machine"

// InitUSB brings up USB CDC. On the RP2040, machine.Serial is the USB CDC
// endpoint; the descriptors come from the TinyGo runtime.
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBAvailable returns the number of buffered input bytes.
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte.
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes data, returning the count actually accepted.
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
