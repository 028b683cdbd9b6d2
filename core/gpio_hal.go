package core

// GPIOPin identifies a hardware GPIO pin number.
type GPIOPin uint8

// GPIODriver is the digital input interface the core uses for hall sensors.
type GPIODriver interface {
	// ConfigureInputFloating sets a pin up as a floating digital input.
	// Hall sensor boards provide their own pull network.
	ConfigureInputFloating(pin GPIOPin) error

	// ReadPin returns the pin's current logic level.
	ReadPin(pin GPIOPin) bool
}
