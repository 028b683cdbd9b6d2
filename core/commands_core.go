package core

import (
	"sync/atomic"

	"bldc/protocol"
)

// InitCoreCommands registers the bootstrap and housekeeping commands.
// Registration order matters for the first two entries: the host's bootstrap
// dictionary hardcodes identify_response as ID 0 and identify as ID 1, which
// is all it needs to fetch the real dictionary.
func InitCoreCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s")       // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify) // ID 1

	RegisterCommand("get_uptime", "", handleGetUptime)
	RegisterCommand("reset", "", handleReset)

	RegisterResponse("uptime", "clock=%u")

	RegisterEnumeration("motor_state", []string{
		"stopped", "starting", "running", "locked",
	})
	RegisterEnumeration("motor_direction", []string{"forward", "reverse"})
	RegisterEnumeration("position_sensor", []string{"sensorless", "hall"})
}

// handleIdentify returns one chunk of the data dictionary.
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))

	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

// handleGetUptime returns the millisecond tick counter.
func handleGetUptime(data *[]byte) error {
	now := NowMillis()
	SendResponse("uptime", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, now)
	})
	return nil
}

// Reset handler installed by target code; host-side tests leave it nil.
var globalResetHandler func()

// resetPending defers the reset until the main loop has sent the ACK.
var resetPending uint32 // atomic bool

// SetResetHandler installs the platform reset routine.
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

func handleReset(_ *[]byte) error {
	atomic.StoreUint32(&resetPending, 1)
	return nil
}

// CheckPendingReset runs the platform reset if one was requested. Called from
// the target main loop after pending output has drained.
func CheckPendingReset() {
	if atomic.LoadUint32(&resetPending) != 0 && globalResetHandler != nil {
		globalResetHandler()
	}
}
