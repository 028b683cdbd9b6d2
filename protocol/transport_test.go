package protocol

import "testing"

// buildCommand packs a command ID and pre-encoded args into a frame payload.
func buildCommand(t *testing.T, seq uint8, cmdID uint16, args ...uint32) []byte {
	t.Helper()
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	for _, a := range args {
		EncodeVLQUint(scratch, a)
	}
	frame, err := BuildFrame(seq, scratch.Result())
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}
	return frame
}

func TestTransportDispatchesCommand(t *testing.T) {
	out := NewScratchOutput()

	var gotID uint16
	var gotArg uint32
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		gotID = cmdID
		v, err := DecodeVLQUint(data)
		gotArg = v
		return err
	})

	frame := buildCommand(t, SeqDest, 7, 32767)
	tr.Receive(NewSliceInput(frame))

	if gotID != 7 || gotArg != 32767 {
		t.Errorf("dispatched (%d, %d), want (7, 32767)", gotID, gotArg)
	}

	// The ACK carries the advanced sequence.
	ack := out.Result()
	f, _, status := NextFrame(ack)
	if status != ScanFrame || len(f.Payload) != 0 {
		t.Fatalf("expected bare ACK frame, got status %v payload %v", status, f.Payload)
	}
	if f.Sequence != NextSeq(SeqDest) {
		t.Errorf("ACK sequence = %#02x, want %#02x", f.Sequence, NextSeq(SeqDest))
	}
}

func TestTransportNaksRepeatedSequence(t *testing.T) {
	out := NewScratchOutput()

	calls := 0
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		calls++
		return nil
	})

	frame := buildCommand(t, SeqDest, 3)
	tr.Receive(NewSliceInput(frame))
	out.Reset()

	// Same sequence again: duplicate delivery must be dropped but still
	// answered, so the host learns the expected sequence.
	tr.Receive(NewSliceInput(frame))

	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
	f, _, status := NextFrame(out.Result())
	if status != ScanFrame || len(f.Payload) != 0 {
		t.Fatalf("expected NAK frame, got status %v", status)
	}
	if f.Sequence != NextSeq(SeqDest) {
		t.Errorf("NAK sequence = %#02x, want %#02x", f.Sequence, NextSeq(SeqDest))
	}
}

func TestTransportResyncAfterGarbage(t *testing.T) {
	out := NewScratchOutput()

	var dispatched []uint16
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		dispatched = append(dispatched, cmdID)
		return nil
	})

	garbage := []byte{0x01, 0x99, 0xfe}
	frame := buildCommand(t, SeqDest, 11)

	input := append(append([]byte{}, garbage...), SyncByte)
	input = append(input, frame...)
	tr.Receive(NewSliceInput(input))

	if len(dispatched) != 1 || dispatched[0] != 11 {
		t.Errorf("dispatched %v, want [11]", dispatched)
	}
}

func TestTransportHostResetDetection(t *testing.T) {
	out := NewScratchOutput()
	resets := 0

	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error { return nil })
	tr.SetResetHook(func() { resets++ })

	// Walk the window forward, then restart from SeqDest.
	tr.Receive(NewSliceInput(buildCommand(t, SeqDest, 1)))
	tr.Receive(NewSliceInput(buildCommand(t, NextSeq(SeqDest), 1)))
	tr.Receive(NewSliceInput(buildCommand(t, SeqDest, 1)))

	if resets != 1 {
		t.Errorf("reset hook ran %d times, want 1", resets)
	}
}

func TestTransportSendCommandFrames(t *testing.T) {
	out := NewScratchOutput()
	tr := NewTransport(out, nil)

	tr.SendCommand(2, func(o OutputBuffer) {
		EncodeVLQUint(o, 5)
		EncodeVLQUint(o, 65535)
	})

	f, _, status := NextFrame(out.Result())
	if status != ScanFrame {
		t.Fatalf("status = %v, want ScanFrame", status)
	}

	data := f.Payload
	cmdID, _ := DecodeVLQUint(&data)
	a, _ := DecodeVLQUint(&data)
	b, _ := DecodeVLQUint(&data)
	if cmdID != 2 || a != 5 || b != 65535 {
		t.Errorf("decoded (%d, %d, %d), want (2, 5, 65535)", cmdID, a, b)
	}
}

func TestTransportTwoCommandsOneFrame(t *testing.T) {
	out := NewScratchOutput()

	var dispatched []uint16
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		dispatched = append(dispatched, cmdID)
		return nil
	})

	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, 4)
	EncodeVLQUint(scratch, 9)
	frame, err := BuildFrame(SeqDest, scratch.Result())
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}
	tr.Receive(NewSliceInput(frame))

	if len(dispatched) != 2 || dispatched[0] != 4 || dispatched[1] != 9 {
		t.Errorf("dispatched %v, want [4 9]", dispatched)
	}
}
