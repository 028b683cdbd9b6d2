package core

// Six-step phase role tables, indexed by sector. In each sector one phase
// sources current, one sinks it and the third floats so its terminal voltage
// exposes the back EMF.
var (
	hiPhase      = [6]Phase{PhaseA, PhaseA, PhaseB, PhaseB, PhaseC, PhaseC}
	loPhase      = [6]Phase{PhaseB, PhaseC, PhaseC, PhaseA, PhaseA, PhaseB}
	dormantPhase = [6]Phase{PhaseC, PhaseB, PhaseA, PhaseC, PhaseB, PhaseA}
)

// dutyMidpoint is the zero-current point of the 16-bit actuation range.
const dutyMidpoint = 32767

// commutate advances to the next sector for the latched direction and applies
// the new phase roles to the bridge. Must be called with the sample interrupt
// masked, or from the dispatcher itself.
//
// The hi phase is driven above the midpoint by half the duty and the lo phase
// below it by the same amount, so winding current is proportional to
// dutyCycle while the average terminal voltage stays centered. Integer
// halving drops the low bit of an odd dutyCycle, so the hi+lo sum is always
// 2*midpoint and the commanded count is lost for odd values.
func (m *Motor) commutate() {
	if m.direction == Forward {
		m.sector++
		if m.sector >= 6 {
			m.sector = 0
		}
	} else {
		if m.sector == 0 {
			m.sector = 5
		} else {
			m.sector--
		}
	}

	half := m.dutyCycle >> 1

	// Float the outgoing winding first so the bridge never drives all
	// three phases at once mid-transition.
	m.pwm.SetPhaseDuty(dormantPhase[m.sector], PhaseDormant, m.dutyCycle)
	m.pwm.SetPhaseDuty(hiPhase[m.sector], PhaseDriven, dutyMidpoint+half)
	m.pwm.SetPhaseDuty(loPhase[m.sector], PhaseDriven, dutyMidpoint-half)

	m.dormant = dormantPhase[m.sector]

	if m.state == Starting {
		m.lastCommutation = NowMillis()
	}
}

// dormantVoltage returns the latest sampled terminal voltage of the floating
// phase.
func (m *Motor) dormantVoltage() uint16 {
	switch m.dormant {
	case PhaseA, PhaseB, PhaseC:
		return m.phaseVoltage[m.dormant]
	}
	panic("core: dormant phase unset")
}
