package frame

// Checksum computes the MAVLink X.25 (CRC-16/MCRF4XX) checksum over data
// followed by the message's CRC_EXTRA seed. data is the frame without its
// start byte, up to the end of the payload.
func Checksum(data []byte, crcExtra byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = accumulate(b, crc)
	}
	return accumulate(crcExtra, crc)
}

func accumulate(b byte, crc uint16) uint16 {
	tmp := b ^ byte(crc)
	tmp ^= tmp << 4
	return (crc >> 8) ^ uint16(tmp)<<8 ^ uint16(tmp)<<3 ^ uint16(tmp)>>4
}
