package protocol

import "sync/atomic"

// Dispatcher handles one decoded command. The handler decodes its own
// arguments from *data and advances the slice.
type Dispatcher func(cmdID uint16, data *[]byte) error

// Transport is the firmware side of the link. It validates incoming frames,
// tracks the host's sequence window, dispatches commands and emits ACK/NAK
// and response frames into a caller-owned output buffer.
type Transport struct {
	synced  uint32 // atomic bool
	nextSeq uint32 // atomic; expected sequence from host

	out      OutputBuffer
	dispatch Dispatcher

	// resetHook runs when the host restarts its sequence window.
	resetHook func()
	// flushHook pushes the output buffer to the wire immediately; the host
	// expects the ACK before any response data.
	flushHook func()
}

// NewTransport creates a firmware transport writing to out and dispatching
// commands through dispatch.
func NewTransport(out OutputBuffer, dispatch Dispatcher) *Transport {
	return &Transport{
		synced:   1,
		nextSeq:  SeqDest,
		out:      out,
		dispatch: dispatch,
	}
}

// SetResetHook registers a callback invoked on host reconnect.
func (t *Transport) SetResetHook(fn func()) { t.resetHook = fn }

// SetFlushHook registers the immediate-flush callback for ACKs.
func (t *Transport) SetFlushHook(fn func()) { t.flushHook = fn }

// Receive consumes buffered input, dispatching every complete frame.
func (t *Transport) Receive(in InputBuffer) {
	data := in.Data()

	for len(data) > 0 {
		if !t.isSynced() {
			n, found := Resync(data)
			data = data[n:]
			if found {
				t.setSynced(true)
				t.sendAckNak()
			}
			continue
		}

		f, n, status := NextFrame(data)
		data = data[n:]

		switch status {
		case ScanSkip:
			continue
		case ScanIncomplete:
			goto done
		case ScanDesync:
			t.setSynced(false)
			continue
		}

		t.handleFrame(f)
	}

done:
	if consumed := in.Available() - len(data); consumed > 0 {
		in.Pop(consumed)
	}
}

func (t *Transport) handleFrame(f Frame) {
	expected := uint8(atomic.LoadUint32(&t.nextSeq))

	// A sequence byte back at the window start means the host reconnected.
	if f.Sequence == SeqDest && expected != SeqDest {
		atomic.StoreUint32(&t.nextSeq, SeqDest)
		expected = SeqDest
		if t.resetHook != nil {
			t.resetHook()
		}
	}

	if f.Sequence == expected {
		atomic.StoreUint32(&t.nextSeq, uint32(NextSeq(f.Sequence)))
		t.dispatchFrame(f.Payload)
	}
	// ACK unconditionally: a mismatched sequence turns this into a NAK
	// carrying the sequence we expect.
	t.sendAckNak()
}

// dispatchFrame decodes and runs every command packed in one frame payload. A
// panicking handler desyncs the link instead of taking down the firmware.
func (t *Transport) dispatchFrame(payload []byte) {
	defer func() {
		if recover() != nil {
			t.setSynced(false)
		}
	}()

	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			t.setSynced(false)
			return
		}
		if t.dispatch != nil {
			if err := t.dispatch(uint16(cmdID), &payload); err != nil {
				// Handler errors are not framing errors; stop decoding
				// this frame but stay in sync.
				return
			}
		}
	}
}

func (t *Transport) sendAckNak() {
	seq := uint8(atomic.LoadUint32(&t.nextSeq))
	crc := CRC16([]byte{FrameLengthMin, seq})
	t.out.Output([]byte{
		FrameLengthMin,
		seq,
		uint8(crc >> 8),
		uint8(crc & 0xff),
		SyncByte,
	})
	if t.flushHook != nil {
		t.flushHook()
	}
}

// SendCommand emits a response frame carrying cmdID and its arguments.
// Responses reuse the current receive sequence.
func (t *Transport) SendCommand(cmdID uint16, args func(OutputBuffer)) {
	seq := uint8(atomic.LoadUint32(&t.nextSeq))
	EncodeFrame(t.out, seq, func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(cmdID))
		if args != nil {
			args(out)
		}
	})
}

// Reset restores the transport to its post-boot state.
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.synced, 1)
	atomic.StoreUint32(&t.nextSeq, SeqDest)
	if t.resetHook != nil {
		t.resetHook()
	}
}

func (t *Transport) isSynced() bool {
	return atomic.LoadUint32(&t.synced) != 0
}

func (t *Transport) setSynced(v bool) {
	if v {
		atomic.StoreUint32(&t.synced, 1)
	} else {
		atomic.StoreUint32(&t.synced, 0)
	}
}
