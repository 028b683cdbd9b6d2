// Package protocol implements the framed serial protocol spoken between the
// bldc firmware and its host. Messages are small binary frames carrying
// VLQ-encoded command arguments, protected by a CRC16 and terminated with a
// sync byte, with a 4-bit sequence window for ACK/NAK flow control.
package protocol

// Version identifies the firmware protocol revision.
const Version = "0.1.0"

// Frame layout constants.
const (
	FrameHeaderSize  = 2 // length byte + sequence byte
	FrameTrailerSize = 3 // CRC16 (big endian) + sync byte
	FrameLengthMin   = FrameHeaderSize + FrameTrailerSize
	FrameLengthMax   = 64

	// Positions within a frame.
	framePosLength = 0
	framePosSeq    = 1

	// SyncByte terminates every frame and is the resynchronization marker
	// after a framing error.
	SyncByte = 0x7e

	// Sequence bytes carry a 4-bit counter in the low nibble; the high
	// nibble is fixed to SeqDest on both directions of the link.
	SeqMask = 0x0f
	SeqDest = 0x10

	// ScratchMax is the size of the fixed output scratch buffer. Large
	// enough for several frames between flushes.
	ScratchMax = 512
)
