// Package serial abstracts the host's serial link to the controller board.
package serial

import "io"

// Port is a serial port. The abstraction keeps host code independent of the
// concrete implementation: native serial in production, an in-memory pipe in
// tests.
type Port interface {
	io.ReadWriteCloser
}

// Config holds serial port settings.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	// Baud rate. USB CDC devices ignore this but the field is still
	// required by the OS driver.
	Baud int

	// Read timeout in milliseconds, 0 for blocking reads.
	ReadTimeout int
}

// DefaultConfig returns the standard settings for a USB-attached controller.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}
