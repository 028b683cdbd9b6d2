// Package mcu manages the host's connection to a motor controller board:
// link setup, dictionary retrieval and the motor command surface.
package mcu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"bldc/config"
	"bldc/host/serial"
	"bldc/protocol"
)

// Bootstrap command IDs, fixed by the firmware's registration order.
const (
	idIdentifyResponse = 0
	idIdentify         = 1
)

const responseTimeout = 1 * time.Second

// MCU is a connection to one controller board.
type MCU struct {
	transport *protocol.HostTransport
	port      serial.Port

	dictionary     *Dictionary
	dictionaryData []byte

	connected bool
}

// Dictionary is the parsed controller data dictionary.
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`
}

// MotorState is the decoded motor_state response.
type MotorState struct {
	State     uint8
	Sector    uint8
	DutyCycle uint16
	Sensor    uint8
}

var (
	stateNames  = []string{"stopped", "starting", "running", "locked"}
	sensorNames = []string{"sensorless", "hall"}
)

func (s MotorState) String() string {
	state := "unknown"
	if int(s.State) < len(stateNames) {
		state = stateNames[s.State]
	}
	sensor := "unknown"
	if int(s.Sensor) < len(sensorNames) {
		sensor = sensorNames[s.Sensor]
	}
	return fmt.Sprintf("state=%s sector=%d duty=%d sensor=%s",
		state, s.Sector, s.DutyCycle, sensor)
}

// NewMCU creates an MCU instance, not yet connected.
func NewMCU() *MCU {
	return &MCU{}
}

// Connect opens the serial link with default settings.
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens the serial link with custom settings.
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.connected = true

	// Give a freshly powered board time to bring up its USB stack.
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Close shuts down the connection.
func (m *MCU) Close() error {
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			return err
		}
	}
	m.connected = false
	return nil
}

// IsConnected reports whether the link is open.
func (m *MCU) IsConnected() bool {
	return m.connected
}

// RetrieveDictionary fetches and parses the complete data dictionary.
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return fmt.Errorf("not connected")
	}

	var buf bytes.Buffer
	offset := uint32(0)
	chunkSize := uint8(40)
	maxIterations := 1000 // safety limit

	for i := 0; i < maxIterations; i++ {
		chunk, err := m.sendIdentify(offset, chunkSize)
		if err != nil {
			return fmt.Errorf("dictionary chunk at offset %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}

		buf.Write(chunk)
		offset += uint32(len(chunk))

		if len(chunk) < int(chunkSize) {
			break
		}
	}

	m.dictionaryData = buf.Bytes()

	dict := &Dictionary{}
	if err := json.Unmarshal(m.dictionaryData, dict); err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}
	m.dictionary = dict
	return nil
}

// sendIdentify requests one dictionary chunk.
func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	err := m.transport.SendCommand(idIdentify, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send identify: %w", err)
	}

	resp, err := m.transport.ReceiveResponse(responseTimeout)
	if err != nil {
		return nil, fmt.Errorf("no identify response: %w", err)
	}

	payload := resp.Payload
	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if cmdID != idIdentifyResponse {
		return nil, fmt.Errorf("unexpected response ID %d", cmdID)
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: sent %d, got %d", offset, respOffset)
	}

	return protocol.DecodeVLQBytes(&payload)
}

// Dictionary returns the parsed dictionary, nil before retrieval.
func (m *MCU) Dictionary() *Dictionary {
	return m.dictionary
}

// DictionaryRaw returns the raw dictionary bytes.
func (m *MCU) DictionaryRaw() []byte {
	return m.dictionaryData
}

// SendCommand sends a command looked up by name in the dictionary.
func (m *MCU) SendCommand(name string, args func(output protocol.OutputBuffer)) error {
	if !m.connected {
		return fmt.Errorf("not connected")
	}
	if m.dictionary == nil {
		return fmt.Errorf("dictionary not loaded")
	}

	cmdID, ok := m.commandID(name)
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}

	return m.transport.SendCommand(cmdID, args)
}

// commandID resolves a command name against the dictionary. Dictionary keys
// carry the argument format after the name.
func (m *MCU) commandID(name string) (uint16, bool) {
	for format, id := range m.dictionary.Commands {
		if format == name || (len(format) > len(name) &&
			format[:len(name)] == name && format[len(name)] == ' ') {
			return uint16(id), true
		}
	}
	return 0, false
}

// responseID resolves a response name against the dictionary.
func (m *MCU) responseID(name string) (uint16, bool) {
	for format, id := range m.dictionary.Responses {
		if format == name || (len(format) > len(name) &&
			format[:len(name)] == name && format[len(name)] == ' ') {
			return uint16(id), true
		}
	}
	return 0, false
}

// StartMotor commands rotation.
func (m *MCU) StartMotor() error {
	return m.SendCommand("start_motor", nil)
}

// StopMotor ceases rotation.
func (m *MCU) StopMotor() error {
	return m.SendCommand("stop_motor", nil)
}

// SetDuty sets the commanded duty cycle, 0-65535.
func (m *MCU) SetDuty(duty uint16) error {
	return m.SendCommand("set_motor_duty", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(duty))
	})
}

// SetDirection sets the direction applied at the next start. False is
// forward.
func (m *MCU) SetDirection(reverse bool) error {
	return m.SendCommand("set_motor_direction", func(output protocol.OutputBuffer) {
		if reverse {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
	})
}

// LockMotor disables actuation for holdMillis.
func (m *MCU) LockMotor(holdMillis uint32) error {
	return m.SendCommand("lock_motor", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, holdMillis)
	})
}

// ConfigureMotor pushes a motor profile to the board. Only accepted while
// the motor is stopped.
func (m *MCU) ConfigureMotor(p *config.MotorProfile) error {
	return m.SendCommand("config_bldc", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(p.HallTable))
		protocol.EncodeVLQUint(output, p.PWMFrequency)
		protocol.EncodeVLQUint(output, uint32(p.StartupDuty()))
		protocol.EncodeVLQUint(output, p.WatchdogMillis)
		protocol.EncodeVLQUint(output, uint32(p.LockOnCount))
	})
}

// QueryMotorState requests and decodes the motor's current state.
func (m *MCU) QueryMotorState() (MotorState, error) {
	var state MotorState

	respID, ok := m.responseID("motor_state")
	if !ok {
		return state, fmt.Errorf("motor_state response not in dictionary")
	}

	if err := m.SendCommand("query_motor_state", nil); err != nil {
		return state, err
	}

	resp, err := m.transport.ReceiveResponse(responseTimeout)
	if err != nil {
		return state, fmt.Errorf("no motor_state response: %w", err)
	}

	payload := resp.Payload
	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return state, err
	}
	if uint16(cmdID) != respID {
		return state, fmt.Errorf("unexpected response ID %d", cmdID)
	}

	fields := [4]uint32{}
	for i := range fields {
		fields[i], err = protocol.DecodeVLQUint(&payload)
		if err != nil {
			return state, err
		}
	}

	state.State = uint8(fields[0])
	state.Sector = uint8(fields[1])
	state.DutyCycle = uint16(fields[2])
	state.Sensor = uint8(fields[3])
	return state, nil
}
