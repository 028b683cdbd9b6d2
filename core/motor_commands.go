package core

import "bldc/protocol"

// InitMotorCommands registers the motor control commands as closures over m.
// Call after InitCoreCommands so the bootstrap IDs stay fixed.
func InitMotorCommands(m *Motor) {
	RegisterCommand("config_bldc",
		"hall_table=%c pwm_freq=%u startup_duty=%hu watchdog_ms=%u lockon_count=%c",
		func(data *[]byte) error { return handleConfigBLDC(m, data) })

	RegisterCommand("start_motor", "",
		func(data *[]byte) error { m.Start(); return nil })
	RegisterCommand("stop_motor", "",
		func(data *[]byte) error { m.Stop(); return nil })

	RegisterCommand("set_motor_duty", "duty=%hu",
		func(data *[]byte) error { return handleSetDuty(m, data) })
	RegisterCommand("set_motor_direction", "dir=%c",
		func(data *[]byte) error { return handleSetDirection(m, data) })
	RegisterCommand("lock_motor", "hold_ms=%u",
		func(data *[]byte) error { return handleLockMotor(m, data) })

	RegisterCommand("query_motor_state", "",
		func(data *[]byte) error { return handleQueryState(m, data) })

	RegisterResponse("motor_state",
		"state=%c sector=%c duty=%hu sensor=%c")

	RegisterConstant("BLDC_SECTORS", uint32(6))
	RegisterConstant("BLDC_HALL_TABLES", uint32(len(hallDecodeTables)))
	RegisterConstant("BLDC_PWM_FREQ", m.cfg.PWMFrequency)
}

func handleConfigBLDC(m *Motor, data *[]byte) error {
	hallTable, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	pwmFreq, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	startupDuty, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	watchdogMillis, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	lockOnCount, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	cfg := m.cfg
	cfg.HallTable = uint8(hallTable)
	cfg.PWMFrequency = pwmFreq
	cfg.StartupDuty = uint16(startupDuty)
	cfg.WatchdogMillis = watchdogMillis
	cfg.LockOnCount = uint8(lockOnCount)

	return m.Reconfigure(cfg)
}

func handleSetDuty(m *Motor, data *[]byte) error {
	duty, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	m.CommandDutyCycle(uint16(duty))
	return nil
}

func handleSetDirection(m *Motor, data *[]byte) error {
	dir, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if dir == 0 {
		m.CommandDirection(Forward)
	} else {
		m.CommandDirection(Reverse)
	}
	return nil
}

func handleLockMotor(m *Motor, data *[]byte) error {
	holdMillis, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	m.Lock(holdMillis)
	return nil
}

func handleQueryState(m *Motor, data *[]byte) error {
	SendResponse("motor_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(m.State()))
		protocol.EncodeVLQUint(output, uint32(m.Sector()))
		protocol.EncodeVLQUint(output, uint32(m.DutyCycle()))
		protocol.EncodeVLQUint(output, uint32(m.Sensor()))
	})
	return nil
}
