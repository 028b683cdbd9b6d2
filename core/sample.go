package core

// sampleComplete is the per-conversion-set dispatcher, registered with the
// ADC driver at Init. It runs in the driver's interrupt context at the
// sampling rate and performs at most one commutation per invocation.
func (m *Motor) sampleComplete() {
	m.phaseVoltage[PhaseA] = m.adc.ReadVoltage(ADCPhaseA)
	m.phaseVoltage[PhaseB] = m.adc.ReadVoltage(ADCPhaseB)
	m.phaseVoltage[PhaseC] = m.adc.ReadVoltage(ADCPhaseC)
	neutral := m.adc.ReadVoltage(ADCBusVoltage) >> 1

	now := NowMillis()

	switch m.state {
	case Stopped:

	case Locked:
		if timeReached(now, m.lockUntil) {
			m.state = Stopped
		}

	case Starting:
		if m.zeroCrossed(neutral) {
			m.resolveSector()
			m.commutate()
			m.sensedCount++
			if m.sensedCount >= m.cfg.LockOnCount {
				m.state = Running
			}
		} else if timeReached(now, m.lastCommutation+m.cfg.WatchdogMillis) {
			// The rotor has not produced a crossing in time; force
			// the next step to keep it moving and start the
			// confirmation run over.
			m.commutate()
			m.sensedCount = 0
		}

	case Running:
		if m.zeroCrossed(neutral) {
			// Adopt the live commanded duty at the commutation
			// boundary. Never drop below the startup floor, which
			// is the minimum that keeps the back EMF readable.
			duty := m.cmdDuty
			if duty < m.cfg.StartupDuty {
				duty = m.cfg.StartupDuty
			}
			m.dutyCycle = duty
			m.resolveSector()
			m.commutate()
		}
	}
}

// zeroCrossed reports whether the floating phase has crossed the neutral
// point for the current sector. The back EMF ramps through neutral in
// alternating directions step to step: odd sectors wait for the voltage to
// fall below neutral, even sectors for it to rise above.
func (m *Motor) zeroCrossed(neutral uint16) bool {
	v := m.dormantVoltage()
	if m.sector&1 == 1 {
		return v < neutral
	}
	return v > neutral
}
