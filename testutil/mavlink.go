// Package testutil builds MAVLink byte streams for tests.
package testutil

import (
	"encoding/binary"
	"math"

	"github.com/vainnor/flightlog/frame"
	"github.com/vainnor/flightlog/schema"
)

var registry = schema.Default()

// V1 encodes a MAVLink 1 frame, looking up CRC_EXTRA in the default
// registry. Unknown ids get a zero seed.
func V1(seq uint8, msgID uint32, payload []byte) []byte {
	out := make([]byte, 0, 8+len(payload))
	out = append(out, frame.MagicV1, byte(len(payload)), seq, 1, 1, byte(msgID))
	out = append(out, payload...)
	return appendCRC(out, msgID)
}

// V2 encodes an unsigned MAVLink 2 frame.
func V2(seq uint8, msgID uint32, payload []byte) []byte {
	out := make([]byte, 0, 12+len(payload))
	out = append(out, frame.MagicV2, byte(len(payload)), 0, 0, seq, 1, 1,
		byte(msgID), byte(msgID>>8), byte(msgID>>16))
	out = append(out, payload...)
	return appendCRC(out, msgID)
}

func appendCRC(out []byte, msgID uint32) []byte {
	extra, _, _ := registry.Checksum(msgID)
	crc := frame.Checksum(out[1:], extra)
	return append(out, byte(crc), byte(crc>>8))
}

// Log accumulates frames into one stream.
type Log struct {
	buf []byte
	seq uint8
}

func (l *Log) Add(msgID uint32, payload []byte) *Log {
	l.buf = append(l.buf, V1(l.seq, msgID, payload)...)
	l.seq++
	return l
}

func (l *Log) AddV2(msgID uint32, payload []byte) *Log {
	l.buf = append(l.buf, V2(l.seq, msgID, payload)...)
	l.seq++
	return l
}

// Raw appends bytes verbatim.
func (l *Log) Raw(b ...byte) *Log {
	l.buf = append(l.buf, b...)
	return l
}

func (l *Log) Bytes() []byte {
	out := make([]byte, len(l.buf))
	copy(out, l.buf)
	return out
}

func putF32(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }

func Attitude(timeBootMs uint32, roll, pitch, yaw float32) []byte {
	p := make([]byte, 28)
	binary.LittleEndian.PutUint32(p[0:], timeBootMs)
	putF32(p[4:], roll)
	putF32(p[8:], pitch)
	putF32(p[12:], yaw)
	return p
}

func GPSRawInt(timeUsec uint64, lat, lon, alt int32, fixType, satellites uint8) []byte {
	p := make([]byte, 30)
	binary.LittleEndian.PutUint64(p[0:], timeUsec)
	binary.LittleEndian.PutUint32(p[8:], uint32(lat))
	binary.LittleEndian.PutUint32(p[12:], uint32(lon))
	binary.LittleEndian.PutUint32(p[16:], uint32(alt))
	p[28] = fixType
	p[29] = satellites
	return p
}

func GlobalPositionInt(timeBootMs uint32, alt, relativeAlt int32) []byte {
	p := make([]byte, 28)
	binary.LittleEndian.PutUint32(p[0:], timeBootMs)
	binary.LittleEndian.PutUint32(p[12:], uint32(alt))
	binary.LittleEndian.PutUint32(p[16:], uint32(relativeAlt))
	return p
}

func Heartbeat(customMode uint32, baseMode uint8) []byte {
	p := make([]byte, 9)
	binary.LittleEndian.PutUint32(p[0:], customMode)
	p[4] = 2 // MAV_TYPE_QUADROTOR
	p[5] = 3 // MAV_AUTOPILOT_ARDUPILOTMEGA
	p[6] = baseMode
	p[7] = 4 // MAV_STATE_ACTIVE
	p[8] = 3
	return p
}

func SysStatus(voltageMillivolts uint16, remaining int8) []byte {
	p := make([]byte, 31)
	binary.LittleEndian.PutUint16(p[14:], voltageMillivolts)
	p[30] = byte(remaining)
	return p
}

func RCChannelsRaw(timeBootMs uint32, rssi uint8) []byte {
	p := make([]byte, 22)
	binary.LittleEndian.PutUint32(p[0:], timeBootMs)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint16(p[4+2*i:], 1500)
	}
	p[21] = rssi
	return p
}

func VFRHUD(alt float32) []byte {
	p := make([]byte, 20)
	putF32(p[8:], alt)
	return p
}

func StatusText(severity uint8, text string) []byte {
	p := make([]byte, 51)
	p[0] = severity
	copy(p[1:], text)
	return p
}
