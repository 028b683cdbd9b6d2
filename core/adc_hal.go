package core

// ADCChannel identifies one of the sampled voltages.
type ADCChannel uint8

const (
	ADCPhaseA ADCChannel = iota
	ADCPhaseB
	ADCPhaseC
	ADCBusVoltage
)

// ADCDriver is the sampling peripheral. The driver owns the sampling cadence:
// it converts all four channels on its own schedule and invokes the
// registered callback once per completed set. The callback runs in the
// driver's interrupt (or equivalent) context and must stay bounded.
type ADCDriver interface {
	// Init powers up the converter and its channels.
	Init() error

	// ReadVoltage returns the most recent conversion for a channel,
	// scaled to 16 bits.
	ReadVoltage(ch ADCChannel) uint16

	// OnSampleComplete registers the function invoked after each
	// completed conversion set. Only one callback is supported; the motor
	// registers its sample dispatcher here during Init.
	OnSampleComplete(fn func())
}
