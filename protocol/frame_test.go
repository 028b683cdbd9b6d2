package protocol

import (
	"bytes"
	"testing"
)

func TestBuildFrameScanRoundTrip(t *testing.T) {
	payload := []byte{0x05, 0x01, 0x02}

	frame, err := BuildFrame(SeqDest, payload)
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}

	f, consumed, status := NextFrame(frame)
	if status != ScanFrame {
		t.Fatalf("status = %v, want ScanFrame", status)
	}
	if consumed != len(frame) {
		t.Errorf("consumed %d of %d bytes", consumed, len(frame))
	}
	if f.Sequence != SeqDest {
		t.Errorf("sequence = %#02x, want %#02x", f.Sequence, SeqDest)
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Errorf("payload = %v, want %v", f.Payload, payload)
	}
}

func TestEncodeFrameMatchesBuildFrame(t *testing.T) {
	payload := []byte{0x09, 0x42}

	built, err := BuildFrame(SeqDest|3, payload)
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}

	out := NewScratchOutput()
	EncodeFrame(out, SeqDest|3, func(o OutputBuffer) {
		o.Output(payload)
	})

	if !bytes.Equal(out.Result(), built) {
		t.Errorf("EncodeFrame = % x, BuildFrame = % x", out.Result(), built)
	}
}

func TestNextFrameIncomplete(t *testing.T) {
	frame, _ := BuildFrame(SeqDest, []byte{1, 2, 3})

	for cut := 1; cut < len(frame); cut++ {
		_, consumed, status := NextFrame(frame[:cut])
		if status != ScanIncomplete {
			t.Errorf("cut %d: status = %v, want ScanIncomplete", cut, status)
		}
		if consumed != 0 {
			t.Errorf("cut %d: consumed %d bytes of a partial frame", cut, consumed)
		}
	}
}

func TestNextFrameRejectsCorruptCRC(t *testing.T) {
	frame, _ := BuildFrame(SeqDest, []byte{1, 2, 3})
	frame[FrameHeaderSize] ^= 0xff

	_, _, status := NextFrame(frame)
	if status != ScanDesync {
		t.Errorf("status = %v, want ScanDesync", status)
	}
}

func TestNextFrameRejectsBadSequenceBits(t *testing.T) {
	frame, _ := BuildFrame(SeqDest, nil)
	frame[framePosSeq] = 0x42 // wrong destination bits

	_, _, status := NextFrame(frame)
	if status != ScanDesync {
		t.Errorf("status = %v, want ScanDesync", status)
	}
}

func TestNextFrameSkipsIdleSync(t *testing.T) {
	data := []byte{SyncByte, SyncByte, SyncByte}

	_, consumed, status := NextFrame(data)
	if status != ScanSkip {
		t.Fatalf("status = %v, want ScanSkip", status)
	}
	if consumed != 3 {
		t.Errorf("consumed = %d, want 3", consumed)
	}
}

func TestBuildFrameTooLong(t *testing.T) {
	payload := make([]byte, FrameLengthMax)
	if _, err := BuildFrame(SeqDest, payload); err != ErrFrameTooLong {
		t.Errorf("got %v, want ErrFrameTooLong", err)
	}
}

func TestResync(t *testing.T) {
	data := []byte{0xde, 0xad, SyncByte, 0x05}
	consumed, found := Resync(data)
	if !found || consumed != 3 {
		t.Errorf("Resync = (%d, %v), want (3, true)", consumed, found)
	}

	consumed, found = Resync([]byte{0xde, 0xad})
	if found || consumed != 2 {
		t.Errorf("Resync without marker = (%d, %v), want (2, false)", consumed, found)
	}
}

func TestNextSeqWraps(t *testing.T) {
	seq := uint8(SeqDest)
	for i := 0; i < SeqMask+1; i++ {
		seq = NextSeq(seq)
		if seq&^uint8(SeqMask) != SeqDest {
			t.Fatalf("sequence %#02x lost destination bits", seq)
		}
	}
	if seq != SeqDest {
		t.Errorf("sequence did not wrap to %#02x, got %#02x", SeqDest, seq)
	}
}
