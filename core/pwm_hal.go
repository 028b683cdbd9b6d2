package core

// Phase identifies one of the three motor windings.
type Phase uint8

const (
	PhaseA Phase = iota
	PhaseB
	PhaseC

	phaseCount = 3
)

func (p Phase) String() string {
	switch p {
	case PhaseA:
		return "A"
	case PhaseB:
		return "B"
	case PhaseC:
		return "C"
	}
	return "?"
}

// PhaseMode selects how a phase output behaves.
type PhaseMode uint8

const (
	// PhaseDormant leaves the winding undriven (both bridge sides off) so
	// its terminal voltage follows the back EMF.
	PhaseDormant PhaseMode = iota
	// PhaseDriven connects the winding to the bridge at the given duty.
	PhaseDriven
)

// MotorPWM is the abstract three-phase PWM peripheral the core drives.
// Platform code implements it over the actual timer hardware.
type MotorPWM interface {
	// Init configures the PWM peripheral for motor output. All phases
	// start dormant.
	Init() error

	// SetFrequency sets the PWM carrier frequency in Hz.
	SetFrequency(hz uint32) error

	// SetPhaseDuty applies mode and duty to one phase. Duty is the full
	// 16-bit actuation range: for a driven phase, 32767 is the
	// zero-current midpoint of the complementary pair.
	SetPhaseDuty(phase Phase, mode PhaseMode, duty uint16)
}
