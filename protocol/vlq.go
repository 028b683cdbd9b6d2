package protocol

import "errors"

var (
	// ErrShortBuffer is returned when a decode runs out of input bytes.
	ErrShortBuffer = errors.New("protocol: short buffer")
)

// EncodeVLQInt writes v to the output in the variable-length encoding used
// for all command arguments: 7 value bits per byte, most significant group
// first, high bit set on every byte except the last. Small magnitudes
// (including small negatives) fit in one byte.
func EncodeVLQInt(out OutputBuffer, v int32) {
	if !(-(1<<26) <= v && v < (3<<26)) {
		out.Output([]byte{byte((v>>28)&0x7f) | 0x80})
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		out.Output([]byte{byte((v>>21)&0x7f) | 0x80})
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		out.Output([]byte{byte((v>>14)&0x7f) | 0x80})
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		out.Output([]byte{byte((v>>7)&0x7f) | 0x80})
	}
	out.Output([]byte{byte(v & 0x7f)})
}

// EncodeVLQUint writes an unsigned value in the same encoding.
func EncodeVLQUint(out OutputBuffer, v uint32) {
	EncodeVLQInt(out, int32(v))
}

// DecodeVLQInt reads one VLQ integer from *data, advancing the slice past the
// consumed bytes.
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrShortBuffer
	}

	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7f
	// The first byte carries the sign: 0x60 set in the low 7 bits means the
	// value is negative and must be sign extended.
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1f)
	}

	for c&0x80 != 0 {
		if len(*data) == 0 {
			return 0, ErrShortBuffer
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = v<<7 | c&0x7f
	}

	return int32(v), nil
}

// DecodeVLQUint reads one VLQ integer and reinterprets it as unsigned.
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// EncodeVLQBytes writes a length-prefixed byte string.
func EncodeVLQBytes(out OutputBuffer, data []byte) {
	EncodeVLQUint(out, uint32(len(data)))
	out.Output(data)
}

// DecodeVLQBytes reads a length-prefixed byte string. The returned slice
// aliases the input.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	n, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < n {
		return nil, ErrShortBuffer
	}
	b := (*data)[:n]
	*data = (*data)[n:]
	return b, nil
}
