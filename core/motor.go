// Package core implements six-step commutation for a three-phase brushless
// DC motor. Rotor position comes from discrete hall sensors when present, or
// from back-EMF zero crossings on the undriven phase when not. The package is
// portable: all hardware access goes through the MotorPWM, GPIODriver and
// ADCDriver interfaces, which targets implement and tests mock.
package core

import "errors"

// State is the motor lifecycle state.
type State uint8

const (
	// Stopped: no actuation, all phases dormant.
	Stopped State = iota
	// Starting: open-loop forced commutation with zero-cross confirmation.
	Starting
	// Running: steady state, zero-cross driven.
	Running
	// Locked: post-fault cool-down; actuation disabled until the lockout
	// timer expires back to Stopped.
	Locked
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Locked:
		return "locked"
	}
	return "unknown"
}

// Direction is the commanded rotation direction.
type Direction uint8

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// SensorKind is the rotor position source, fixed at Init from the detected
// wiring.
type SensorKind uint8

const (
	Sensorless SensorKind = iota
	Hall
)

func (k SensorKind) String() string {
	if k == Hall {
		return "hall"
	}
	return "sensorless"
}

// Defaults for Config fields left zero.
const (
	DefaultPWMFrequency   = 16000
	DefaultStartupDuty    = 6553 // ~10% of the 16-bit duty range
	DefaultWatchdogMillis = 25
	DefaultLockOnCount    = 6 // one full electrical revolution
)

// Config carries the build-time motor parameters.
type Config struct {
	// HallTable selects which of the hall decode tables matches the
	// physical sensor-to-winding alignment. Range 0-11.
	HallTable uint8

	// HallPins are the three hall sensor inputs, bit 0 to bit 2 of the
	// hall code.
	HallPins [3]GPIOPin

	// PWMFrequency is the carrier frequency in Hz.
	PWMFrequency uint32

	// StartupDuty is the fixed duty cycle applied while Starting.
	StartupDuty uint16

	// WatchdogMillis forces a commutation when no zero crossing has been
	// seen for this long, so the rotor cannot stall mid-start.
	WatchdogMillis uint32

	// LockOnCount is how many consecutive zero-cross-confirmed
	// commutations promote Starting to Running. A watchdog-forced
	// commutation resets the run.
	LockOnCount uint8
}

var errBadHallTable = errors.New("core: hall table index out of range")

func (c *Config) applyDefaults() {
	if c.PWMFrequency == 0 {
		c.PWMFrequency = DefaultPWMFrequency
	}
	if c.StartupDuty == 0 {
		c.StartupDuty = DefaultStartupDuty
	}
	if c.WatchdogMillis == 0 {
		c.WatchdogMillis = DefaultWatchdogMillis
	}
	if c.LockOnCount == 0 {
		c.LockOnCount = DefaultLockOnCount
	}
}

func (c *Config) validate() error {
	if int(c.HallTable) >= len(hallDecodeTables) {
		return errBadHallTable
	}
	return nil
}

// Motor owns all commutation state for one motor. Exactly one instance exists
// per control loop; it is created at boot and wired to the HAL drivers.
//
// Two contexts touch a Motor: the background context calling the exported
// lifecycle and command methods, and the sample dispatcher running in the ADC
// driver's interrupt context. Multi-field transitions on the background side
// take a critical section; everything the dispatcher writes is a single-word
// field.
type Motor struct {
	pwm  MotorPWM
	gpio GPIODriver
	adc  ADCDriver
	cfg  Config

	state     State
	sector    uint8
	dutyCycle uint16
	direction Direction

	startTime       uint32
	lastCommutation uint32
	lockUntil       uint32

	phaseVoltage [phaseCount]uint16
	// dormant names which phaseVoltage slot belongs to the undriven phase.
	// Valid whenever state is Starting or Running.
	dormant Phase

	sensor    SensorKind
	hallTable [8]uint8

	// sensedCount counts consecutive commutations triggered by a real
	// zero crossing while Starting.
	sensedCount uint8

	// Live command values, latched by Start (direction) or adopted at
	// each Running commutation (duty).
	cmdDirection Direction
	cmdDuty      uint16
}

// NewMotor validates cfg, fills defaults and binds the motor to its drivers.
func NewMotor(cfg Config, pwm MotorPWM, gpio GPIODriver, adc ADCDriver) (*Motor, error) {
	if pwm == nil || gpio == nil || adc == nil {
		return nil, errors.New("core: nil driver")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Motor{
		pwm:  pwm,
		gpio: gpio,
		adc:  adc,
		cfg:  cfg,
	}, nil
}

// Init prepares the motor for operation: PWM setup, sensor detection and
// registration of the sample dispatcher with the ADC driver. The motor ends
// up Stopped with a forward default direction.
func (m *Motor) Init() error {
	if err := m.pwm.Init(); err != nil {
		return err
	}
	if err := m.pwm.SetFrequency(m.cfg.PWMFrequency); err != nil {
		return err
	}

	m.Stop()
	m.CommandDirection(Forward)

	if err := m.initPositionSensors(); err != nil {
		return err
	}

	if err := m.adc.Init(); err != nil {
		return err
	}
	m.adc.OnSampleComplete(m.sampleComplete)

	return nil
}

// Start begins rotation. A no-op unless the motor is Stopped; callers confirm
// via State. The whole transition runs with the sample interrupt masked so
// the dispatcher never observes a half-initialized Starting state.
func (m *Motor) Start() {
	is := disableInterrupts()
	defer restoreInterrupts(is)

	if m.state != Stopped {
		return
	}

	m.sector = 0
	m.state = Starting
	m.startTime = NowMillis()
	m.dutyCycle = m.cfg.StartupDuty
	m.direction = m.cmdDirection
	m.sensedCount = 0

	m.resolveSector()
	m.commutate()
}

// Stop ceases rotation from any state. It is the one unconditional
// transition: all phases go dormant at zero duty before the state changes, so
// the hardware is safe no matter where the dispatcher was.
func (m *Motor) Stop() {
	is := disableInterrupts()
	defer restoreInterrupts(is)

	m.pwm.SetPhaseDuty(PhaseA, PhaseDormant, 0)
	m.pwm.SetPhaseDuty(PhaseB, PhaseDormant, 0)
	m.pwm.SetPhaseDuty(PhaseC, PhaseDormant, 0)

	m.state = Stopped
}

// Lock disables actuation and holds the motor in the Locked state for
// holdMillis. This is the entry point for an external fault collaborator; the
// dispatcher releases the lockout back to Stopped once it expires.
func (m *Motor) Lock(holdMillis uint32) {
	is := disableInterrupts()
	defer restoreInterrupts(is)

	m.pwm.SetPhaseDuty(PhaseA, PhaseDormant, 0)
	m.pwm.SetPhaseDuty(PhaseB, PhaseDormant, 0)
	m.pwm.SetPhaseDuty(PhaseC, PhaseDormant, 0)

	m.lockUntil = NowMillis() + holdMillis
	m.state = Locked
}

// Reconfigure replaces the motor parameters. Only honored while Stopped;
// otherwise a silent no-op, consistent with the rest of the command surface.
func (m *Motor) Reconfigure(cfg Config) error {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	is := disableInterrupts()
	defer restoreInterrupts(is)

	if m.state != Stopped {
		return nil
	}

	freqChanged := cfg.PWMFrequency != m.cfg.PWMFrequency
	m.cfg = cfg
	if freqChanged {
		if err := m.pwm.SetFrequency(cfg.PWMFrequency); err != nil {
			return err
		}
	}
	// Re-run sensor detection so a new hall table selection takes effect.
	return m.initPositionSensors()
}

// CommandDirection sets the direction applied at the next Start.
func (m *Motor) CommandDirection(d Direction) {
	is := disableInterrupts()
	m.cmdDirection = d
	restoreInterrupts(is)
}

// CommandDutyCycle sets the commanded duty, 0-100% scaled to 0-65535. Takes
// effect once the motor reaches Running; Starting always uses the configured
// startup duty.
func (m *Motor) CommandDutyCycle(duty uint16) {
	is := disableInterrupts()
	m.cmdDuty = duty
	restoreInterrupts(is)
}

// State returns the current lifecycle state.
func (m *Motor) State() State { return m.state }

// Sector returns the current commutation sector, 0-5.
func (m *Motor) Sector() uint8 { return m.sector }

// DutyCycle returns the duty currently applied to the bridge.
func (m *Motor) DutyCycle() uint16 { return m.dutyCycle }

// Sensor returns the detected position sensor kind.
func (m *Motor) Sensor() SensorKind { return m.sensor }
