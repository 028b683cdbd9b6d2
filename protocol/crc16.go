package protocol

// CRC16 computes the CCITT-style checksum used in frame trailers. Every byte
// is folded into the running CRC with the shift/xor sequence below; both ends
// of the link must agree on it bit for bit.
func CRC16(data []byte) uint16 {
	crc := uint16(0xffff)
	for _, b := range data {
		b ^= uint8(crc & 0xff)
		b ^= b << 4
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}
