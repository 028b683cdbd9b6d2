package protocol

import "errors"

// ErrFrameTooLong is returned when a payload would not fit in a frame.
var ErrFrameTooLong = errors.New("protocol: frame too long")

// Frame is one validated received message.
type Frame struct {
	Sequence uint8
	Payload  []byte // between header and trailer, aliases the scan input
}

// ScanStatus reports the outcome of a NextFrame call.
type ScanStatus uint8

const (
	// ScanFrame means a complete, CRC-valid frame was extracted.
	ScanFrame ScanStatus = iota
	// ScanIncomplete means more bytes are needed; nothing was consumed.
	ScanIncomplete
	// ScanSkip means leading sync bytes were consumed; call again.
	ScanSkip
	// ScanDesync means the data is not a valid frame; the caller must
	// resynchronize on the next sync byte.
	ScanDesync
)

// NextFrame attempts to extract one frame from the front of data. consumed is
// the number of bytes to drop from the stream regardless of status.
func NextFrame(data []byte) (f Frame, consumed int, status ScanStatus) {
	// Idle links carry bare sync bytes between frames.
	n := 0
	for n < len(data) && data[n] == SyncByte {
		n++
	}
	if n > 0 {
		return Frame{}, n, ScanSkip
	}

	if len(data) < FrameLengthMin {
		return Frame{}, 0, ScanIncomplete
	}

	frameLen := int(data[framePosLength])
	if frameLen < FrameLengthMin || frameLen > FrameLengthMax {
		return Frame{}, 0, ScanDesync
	}

	seq := data[framePosSeq]
	if seq&^uint8(SeqMask) != SeqDest {
		return Frame{}, 0, ScanDesync
	}

	if len(data) < frameLen {
		return Frame{}, 0, ScanIncomplete
	}

	if data[frameLen-1] != SyncByte {
		return Frame{}, 0, ScanDesync
	}

	wireCRC := uint16(data[frameLen-3])<<8 | uint16(data[frameLen-2])
	if wireCRC != CRC16(data[:frameLen-FrameTrailerSize]) {
		return Frame{}, 0, ScanDesync
	}

	f = Frame{
		Sequence: seq,
		Payload:  data[FrameHeaderSize : frameLen-FrameTrailerSize],
	}
	return f, frameLen, ScanFrame
}

// Resync drops everything up to and including the next sync byte. It returns
// the number of bytes to discard and whether a sync byte was found.
func Resync(data []byte) (consumed int, found bool) {
	for i, b := range data {
		if b == SyncByte {
			return i + 1, true
		}
	}
	return len(data), false
}

// EncodeFrame writes a complete frame to out: header, payload produced by the
// callback, CRC and sync byte. The length byte is back-patched once the
// payload size is known. Used on the firmware side where the output buffer is
// preallocated.
func EncodeFrame(out OutputBuffer, seq uint8, payload func(OutputBuffer)) {
	start := out.CurPosition()
	out.Output([]byte{0, seq})
	if payload != nil {
		payload(out)
	}

	bodyLen := len(out.DataSince(start))
	out.Update(start, uint8(bodyLen+FrameTrailerSize))

	crc := CRC16(out.DataSince(start))
	out.Output([]byte{uint8(crc >> 8), uint8(crc & 0xff), SyncByte})
}

// BuildFrame assembles a standalone frame around payload. Used on the host
// side where allocating is fine.
func BuildFrame(seq uint8, payload []byte) ([]byte, error) {
	frameLen := FrameHeaderSize + len(payload) + FrameTrailerSize
	if frameLen > FrameLengthMax {
		return nil, ErrFrameTooLong
	}

	frame := make([]byte, 0, frameLen)
	frame = append(frame, uint8(frameLen), seq)
	frame = append(frame, payload...)

	crc := CRC16(frame)
	frame = append(frame, uint8(crc>>8), uint8(crc&0xff), SyncByte)
	return frame, nil
}

// NextSeq advances a sequence byte through the 4-bit window, keeping the
// destination bits.
func NextSeq(seq uint8) uint8 {
	return (seq+1)&SeqMask | SeqDest
}
