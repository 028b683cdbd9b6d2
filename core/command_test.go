package core

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"bldc/protocol"
)

func TestRegistryAssignsSequentialIDs(t *testing.T) {
	r := NewCommandRegistry()

	handler := func(data *[]byte) error { return nil }
	id0 := r.Register("alpha", "", handler)
	id1 := r.Register("beta", "x=%u", handler)
	id2 := r.Register("gamma", "", nil)

	if id0 != 0 || id1 != 1 || id2 != 2 {
		t.Errorf("IDs = %d,%d,%d, want 0,1,2", id0, id1, id2)
	}
	if again := r.Register("alpha", "", handler); again != id0 {
		t.Errorf("re-register returned %d, want %d", again, id0)
	}
	if r.Count() != 3 {
		t.Errorf("Count = %d, want 3", r.Count())
	}
}

func TestRegistryDispatch(t *testing.T) {
	r := NewCommandRegistry()

	var got []byte
	id := r.Register("echo", "data=%*s", func(data *[]byte) error {
		got = append(got[:0], *data...)
		return nil
	})
	respID := r.Register("echoed", "data=%*s", nil)

	payload := []byte{1, 2, 3}
	if err := r.Dispatch(id, &payload); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(got) != 3 || got[0] != 1 {
		t.Errorf("handler saw %v, want [1 2 3]", got)
	}

	if err := r.Dispatch(respID, &payload); err == nil {
		t.Error("dispatching a response ID should fail")
	}
	if err := r.Dispatch(99, &payload); err == nil {
		t.Error("dispatching an unknown ID should fail")
	}
}

func TestRegistryCommandResponseSplit(t *testing.T) {
	r := NewCommandRegistry()
	r.Register("do_thing", "arg=%u", func(data *[]byte) error { return nil })
	r.Register("thing_done", "result=%u", nil)

	commands, responses := r.GetCommandsAndResponses()
	if _, ok := commands["do_thing arg=%u"]; !ok {
		t.Errorf("commands missing do_thing: %v", commands)
	}
	if _, ok := responses["thing_done result=%u"]; !ok {
		t.Errorf("responses missing thing_done: %v", responses)
	}
}

func TestDictionaryGenerate(t *testing.T) {
	r := NewCommandRegistry()
	r.Register("identify_response", "offset=%u data=%*s", nil)
	r.Register("identify", "offset=%u count=%c", func(data *[]byte) error { return nil })

	d := NewDictionary(r)
	d.AddConstant("BLDC_SECTORS", uint32(6))
	d.AddEnumeration("motor_state", []string{"stopped", "starting", "running", "locked"})
	d.BuildDictionary()

	var parsed struct {
		Version   string                    `json:"version"`
		Config    map[string]string         `json:"config"`
		Commands  map[string]int            `json:"commands"`
		Responses map[string]int            `json:"responses"`
		Enums     map[string]map[string]int `json:"enumerations"`
	}
	data := d.Generate()
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("dictionary is not valid JSON: %v\n%s", err, data)
	}

	if !strings.HasPrefix(parsed.Version, "bldc-") {
		t.Errorf("version = %q", parsed.Version)
	}
	if parsed.Config["BLDC_SECTORS"] != "6" {
		t.Errorf("config = %v", parsed.Config)
	}
	if parsed.Responses["identify_response offset=%u data=%*s"] != 0 {
		t.Errorf("responses = %v", parsed.Responses)
	}
	if parsed.Commands["identify offset=%u count=%c"] != 1 {
		t.Errorf("commands = %v", parsed.Commands)
	}
	if parsed.Enums["motor_state"]["running"] != 2 {
		t.Errorf("enumerations = %v", parsed.Enums)
	}
}

func TestDictionaryGetChunk(t *testing.T) {
	d := NewDictionary(NewCommandRegistry())
	d.BuildDictionary()
	data := d.Generate()

	if got := d.GetChunk(0, 10); len(got) != 10 || got[0] != data[0] {
		t.Errorf("GetChunk(0,10) = %q", got)
	}
	if got := d.GetChunk(uint32(len(data))-3, 40); len(got) != 3 {
		t.Errorf("tail chunk length = %d, want 3", len(got))
	}
	if got := d.GetChunk(uint32(len(data))+5, 10); len(got) != 0 {
		t.Errorf("out-of-range chunk length = %d, want 0", len(got))
	}
}

// The command handler tests run against the global registry, which keeps its
// entries for the life of the process. Register once and share the motor.
var (
	cmdTestOnce  sync.Once
	cmdTestMotor *Motor
	cmdTestPWM   *mockPWM
	cmdTestOut   *protocol.ScratchOutput
)

func initCommandTestFirmware() {
	cmdTestOnce.Do(func() {
		var m *Motor
		m, cmdTestPWM, _, _ = newTestMotor(Config{}, 3)
		cmdTestMotor = m

		InitCoreCommands()
		InitMotorCommands(m)
		GetGlobalDictionary().BuildDictionary()

		cmdTestOut = protocol.NewScratchOutput()
		SetGlobalTransport(protocol.NewTransport(cmdTestOut, DispatchCommand))
	})
	cmdTestMotor.Stop()
	cmdTestOut.Reset()
}

// dispatchNamed encodes args with enc and dispatches the named command.
func dispatchNamed(t *testing.T, name string, enc func(out protocol.OutputBuffer)) {
	t.Helper()
	cmd, ok := GetGlobalRegistry().GetCommandByName(name)
	if !ok {
		t.Fatalf("command %q not registered", name)
	}
	scratch := protocol.NewScratchOutput()
	if enc != nil {
		enc(scratch)
	}
	data := scratch.Result()
	if err := DispatchCommand(cmd.ID, &data); err != nil {
		t.Fatalf("dispatch %q: %v", name, err)
	}
}

// decodeResponse strips the framing from the transport output and returns
// the command ID and remaining payload of the first response frame.
func decodeResponse(t *testing.T, out *protocol.ScratchOutput) (uint16, []byte) {
	t.Helper()
	frame, _, status := protocol.NextFrame(out.Result())
	if status != protocol.ScanFrame {
		t.Fatalf("no response frame, scan status %v", status)
	}
	payload := frame.Payload
	id, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		t.Fatalf("decode response ID: %v", err)
	}
	return uint16(id), payload
}

func TestMotorLifecycleCommands(t *testing.T) {
	initCommandTestFirmware()
	m := cmdTestMotor

	dispatchNamed(t, "start_motor", nil)
	if m.State() != Starting {
		t.Fatalf("state = %v, want starting", m.State())
	}

	dispatchNamed(t, "stop_motor", nil)
	if m.State() != Stopped {
		t.Fatalf("state = %v, want stopped", m.State())
	}

	dispatchNamed(t, "lock_motor", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 100)
	})
	if m.State() != Locked {
		t.Fatalf("state = %v, want locked", m.State())
	}
	dispatchNamed(t, "stop_motor", nil)
}

func TestSetMotorDutyAndDirection(t *testing.T) {
	initCommandTestFirmware()
	m := cmdTestMotor

	dispatchNamed(t, "set_motor_duty", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 40000)
	})
	if m.cmdDuty != 40000 {
		t.Errorf("commanded duty = %d, want 40000", m.cmdDuty)
	}

	dispatchNamed(t, "set_motor_direction", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 1)
	})
	if m.cmdDirection != Reverse {
		t.Errorf("commanded direction = %v, want reverse", m.cmdDirection)
	}
	dispatchNamed(t, "set_motor_direction", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
	})
	if m.cmdDirection != Forward {
		t.Errorf("commanded direction = %v, want forward", m.cmdDirection)
	}
}

func TestQueryMotorState(t *testing.T) {
	initCommandTestFirmware()
	m := cmdTestMotor

	dispatchNamed(t, "query_motor_state", nil)

	respCmd, ok := GetGlobalRegistry().GetCommandByName("motor_state")
	if !ok {
		t.Fatal("motor_state response not registered")
	}
	id, payload := decodeResponse(t, cmdTestOut)
	if id != respCmd.ID {
		t.Fatalf("response ID = %d, want %d", id, respCmd.ID)
	}

	state, _ := protocol.DecodeVLQUint(&payload)
	sector, _ := protocol.DecodeVLQUint(&payload)
	duty, _ := protocol.DecodeVLQUint(&payload)
	sensor, _ := protocol.DecodeVLQUint(&payload)

	if State(state) != m.State() {
		t.Errorf("reported state = %d, want %d", state, m.State())
	}
	if uint8(sector) != m.Sector() {
		t.Errorf("reported sector = %d, want %d", sector, m.Sector())
	}
	if uint16(duty) != m.DutyCycle() {
		t.Errorf("reported duty = %d, want %d", duty, m.DutyCycle())
	}
	if SensorKind(sensor) != m.Sensor() {
		t.Errorf("reported sensor = %d, want %d", sensor, m.Sensor())
	}
}

func TestConfigBLDCCommand(t *testing.T) {
	initCommandTestFirmware()
	m := cmdTestMotor

	dispatchNamed(t, "config_bldc", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 5)     // hall_table
		protocol.EncodeVLQUint(out, 20000) // pwm_freq
		protocol.EncodeVLQUint(out, 8000)  // startup_duty
		protocol.EncodeVLQUint(out, 40)    // watchdog_ms
		protocol.EncodeVLQUint(out, 12)    // lockon_count
	})

	if m.cfg.HallTable != 5 || m.cfg.PWMFrequency != 20000 ||
		m.cfg.StartupDuty != 8000 || m.cfg.WatchdogMillis != 40 ||
		m.cfg.LockOnCount != 12 {
		t.Errorf("config after config_bldc = %+v", m.cfg)
	}
	if cmdTestPWM.frequency != 20000 {
		t.Errorf("pwm frequency = %d, want 20000", cmdTestPWM.frequency)
	}
}

func TestIdentifyReturnsDictionary(t *testing.T) {
	initCommandTestFirmware()

	full := GetGlobalDictionary().Generate()
	var assembled []byte
	offset := uint32(0)
	for {
		cmdTestOut.Reset()
		dispatchNamed(t, "identify", func(out protocol.OutputBuffer) {
			protocol.EncodeVLQUint(out, offset)
			protocol.EncodeVLQUint(out, 40)
		})
		_, payload := decodeResponse(t, cmdTestOut)
		respOffset, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			t.Fatalf("decode offset: %v", err)
		}
		if respOffset != offset {
			t.Fatalf("response offset = %d, want %d", respOffset, offset)
		}
		chunk, err := protocol.DecodeVLQBytes(&payload)
		if err != nil {
			t.Fatalf("decode chunk: %v", err)
		}
		if len(chunk) == 0 {
			break
		}
		assembled = append(assembled, chunk...)
		offset += uint32(len(chunk))
	}

	if string(assembled) != string(full) {
		t.Errorf("assembled dictionary (%d bytes) differs from source (%d bytes)",
			len(assembled), len(full))
	}
}
