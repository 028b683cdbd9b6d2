// Package config loads host-side motor profiles. A profile mirrors the
// parameters of the config_bldc firmware command plus the host's serial
// settings, so one JSON file describes a complete drive setup.
package config

import (
	"encoding/json"
	"errors"
	"os"
)

// MotorProfile is the tunable parameter set for one drive.
type MotorProfile struct {
	// HallTable selects the hall decode table, 0-11.
	HallTable uint8 `json:"hall_table"`

	// PWMFrequency is the carrier frequency in Hz.
	PWMFrequency uint32 `json:"pwm_freq"`

	// StartupDutyPercent is the open-loop starting duty, percent of full
	// scale. Converted to the 16-bit wire value by StartupDuty.
	StartupDutyPercent float64 `json:"startup_duty_percent"`

	// WatchdogMillis is the forced-commutation timeout during spin-up.
	WatchdogMillis uint32 `json:"watchdog_ms"`

	// LockOnCount is the number of confirmed commutations that ends
	// spin-up.
	LockOnCount uint8 `json:"lockon_count"`
}

// Profile is a complete host configuration.
type Profile struct {
	Device string       `json:"device"`
	Baud   int          `json:"baud"`
	Motor  MotorProfile `json:"motor"`
}

var errBadProfile = errors.New("config: invalid motor profile")

// LoadProfile parses a JSON profile and fills defaults.
func LoadProfile(jsonData []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(jsonData, &p); err != nil {
		return nil, err
	}

	applyDefaults(&p)
	if err := validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProfileFile reads and parses a profile from disk.
func LoadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadProfile(data)
}

// applyDefaults fills in missing values with the firmware's own defaults so
// a minimal profile behaves like an unconfigured board.
func applyDefaults(p *Profile) {
	if p.Device == "" {
		p.Device = "/dev/ttyACM0"
	}
	if p.Baud == 0 {
		p.Baud = 250000
	}
	if p.Motor.PWMFrequency == 0 {
		p.Motor.PWMFrequency = 16000
	}
	if p.Motor.StartupDutyPercent == 0 {
		p.Motor.StartupDutyPercent = 10.0
	}
	if p.Motor.WatchdogMillis == 0 {
		p.Motor.WatchdogMillis = 25
	}
	if p.Motor.LockOnCount == 0 {
		p.Motor.LockOnCount = 6
	}
}

func validate(p *Profile) error {
	if p.Motor.HallTable > 11 {
		return errBadProfile
	}
	if p.Motor.StartupDutyPercent < 0 || p.Motor.StartupDutyPercent > 100 {
		return errBadProfile
	}
	return nil
}

// StartupDuty converts the percent setting to the 16-bit wire value.
func (m *MotorProfile) StartupDuty() uint16 {
	return uint16(m.StartupDutyPercent / 100.0 * 65535.0)
}

// Default returns the profile used when no file is given.
func Default() *Profile {
	return &Profile{
		Device: "/dev/ttyACM0",
		Baud:   250000,
		Motor: MotorProfile{
			HallTable:          0,
			PWMFrequency:       16000,
			StartupDutyPercent: 10.0,
			WatchdogMillis:     25,
			LockOnCount:        6,
		},
	}
}
