package core

// invalidSector is the decode result for hall codes 0 and 7, which no valid
// sensor arrangement produces.
const invalidSector = 6

// hallDecodeTables maps a 3-bit hall code to a commutation sector. Twelve
// tables cover every sensor-to-winding alignment (six electrical offsets,
// both sensor orders); the profile selects which one matches the build. Codes
// 0 and 7 decode to invalidSector in every table.
var hallDecodeTables = [12][8]uint8{
	{6, 1, 3, 2, 5, 0, 4, 6},
	{6, 0, 2, 1, 4, 5, 3, 6},
	{6, 5, 1, 0, 3, 4, 2, 6},
	{6, 4, 0, 5, 2, 3, 1, 6},
	{6, 3, 5, 4, 1, 2, 0, 6},
	{6, 2, 4, 3, 0, 1, 5, 6},
	{6, 4, 2, 3, 0, 5, 1, 6},
	{6, 3, 1, 2, 5, 4, 0, 6},
	{6, 2, 0, 1, 4, 3, 5, 6},
	{6, 1, 5, 0, 3, 2, 4, 6},
	{6, 0, 4, 5, 2, 1, 3, 6},
	{6, 5, 3, 4, 1, 0, 2, 6},
}

// initPositionSensors configures the hall inputs and detects whether sensors
// are actually wired. A stationary sensored motor always presents a valid
// code; reading 0 or 7 at init means the inputs are floating or tied and the
// motor runs sensorless on back EMF alone.
func (m *Motor) initPositionSensors() error {
	for _, pin := range m.cfg.HallPins {
		if err := m.gpio.ConfigureInputFloating(pin); err != nil {
			return err
		}
	}

	m.hallTable = hallDecodeTables[m.cfg.HallTable]

	code := m.readHallCode()
	if code == 0 || code == 7 {
		m.sensor = Sensorless
	} else {
		m.sensor = Hall
	}
	return nil
}

// readHallCode samples the three hall inputs into a 3-bit code.
func (m *Motor) readHallCode() uint8 {
	var code uint8
	for i, pin := range m.cfg.HallPins {
		if m.gpio.ReadPin(pin) {
			code |= 1 << uint(i)
		}
	}
	return code
}

// resolveSector aligns the commutation sector with the hall-decoded rotor
// position. Sensorless motors and invalid codes leave the sector alone so a
// glitching sensor cannot yank the bridge to an arbitrary step.
func (m *Motor) resolveSector() {
	if m.sensor != Hall {
		return
	}
	sector := m.hallTable[m.readHallCode()]
	if sector == invalidSector {
		return
	}
	m.sector = sector
}
