// Package decoder turns frames into typed telemetry records using a schema
// registry. Decode is a pure function; a failed decode affects only the one
// frame it was given.
package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vainnor/flightlog/frame"
	"github.com/vainnor/flightlog/models"
	"github.com/vainnor/flightlog/schema"
	"github.com/vainnor/flightlog/types"
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrTruncated   = errors.New("payload truncated")
)

// TimestampField is the boot-relative millisecond counter that drives the
// derived wall-clock timestamp.
const TimestampField = "time_boot_ms"

// Resolver looks up the schema for a message id.
type Resolver interface {
	Resolve(id uint32) (*schema.Schema, bool)
}

// UnknownTypeError carries the raw payload of an unresolved message id.
type UnknownTypeError struct {
	ID  uint32
	Raw []byte
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%s: id %d (%d bytes)", ErrUnknownType, e.ID, len(e.Raw))
}

func (e *UnknownTypeError) Is(target error) bool { return target == ErrUnknownType }

// Payload exposes the raw bytes as the Unknown variant.
func (e *UnknownTypeError) Payload() models.Unknown {
	return models.Unknown{ID: e.ID, Raw: e.Raw}
}

// TruncatedError reports a field that reads past the payload.
type TruncatedError struct {
	Type  string
	Field string
	Need  int
	Have  int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%s: %s.%s needs %d bytes, payload has %d", ErrTruncated, e.Type, e.Field, e.Need, e.Have)
}

func (e *TruncatedError) Is(target error) bool { return target == ErrTruncated }

// Decode resolves the frame's message id and reads every schema field from
// its payload.
func Decode(f frame.Frame, r Resolver) (types.DecodedMessage, error) {
	s, ok := r.Resolve(f.MsgID)
	if !ok {
		raw := make([]byte, len(f.Payload))
		copy(raw, f.Payload)
		return types.DecodedMessage{}, &UnknownTypeError{ID: f.MsgID, Raw: raw}
	}

	payload := f.Payload
	// MAVLink 2 drops trailing zero bytes from the payload on the wire.
	if f.Version == 2 && len(payload) < s.Length {
		extended := make([]byte, s.Length)
		copy(extended, payload)
		payload = extended
	}

	fields := make(types.Fields, 0, len(s.Fields))
	for _, desc := range s.Fields {
		if desc.End() > len(payload) {
			return types.DecodedMessage{}, &TruncatedError{
				Type:  s.Name,
				Field: desc.Name,
				Need:  desc.End(),
				Have:  len(payload),
			}
		}
		value, err := readValue(desc, payload[desc.Offset:desc.End()])
		if err != nil {
			return types.DecodedMessage{}, fmt.Errorf("%s.%s: %w", s.Name, desc.Name, err)
		}
		fields = append(fields, types.Field{Name: desc.Name, Value: value})
	}

	msg := types.DecodedMessage{
		Type:      s.Name,
		ID:        s.ID,
		Fields:    fields,
		Timestamp: deriveTimestamp(fields),
	}
	if s.Build != nil {
		msg.Payload = s.Build(fields)
	}
	return msg, nil
}

func readValue(desc schema.Field, raw []byte) (types.Value, error) {
	switch desc.Kind {
	case types.KindString:
		return types.TextValue(cString(raw)), nil
	case types.KindFloat:
		switch len(raw) {
		case 4:
			return types.FloatValue(float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))), nil
		case 8:
			return types.FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(raw))), nil
		}
	case types.KindInt, types.KindTimestamp:
		u, ok := readUint(raw)
		if !ok {
			break
		}
		if desc.Kind == types.KindTimestamp {
			return types.TimestampValue(u), nil
		}
		if desc.Signed {
			return types.IntValue(signExtend(u, len(raw))), nil
		}
		return types.UintValue(u), nil
	}
	return types.Value{}, fmt.Errorf("unsupported width %d for %s", len(raw), desc.Kind)
}

func readUint(raw []byte) (uint64, bool) {
	switch len(raw) {
	case 1:
		return uint64(raw[0]), true
	case 2:
		return uint64(binary.LittleEndian.Uint16(raw)), true
	case 4:
		return uint64(binary.LittleEndian.Uint32(raw)), true
	case 8:
		return binary.LittleEndian.Uint64(raw), true
	}
	return 0, false
}

func signExtend(u uint64, width int) int64 {
	shift := uint(64 - 8*width)
	return int64(u<<shift) >> shift
}

// cString trims a fixed-size char array at its first NUL.
func cString(raw []byte) string {
	if i := strings.IndexByte(string(raw), 0); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToValidUTF8(string(raw), "�")
}

// deriveTimestamp reads time_boot_ms as milliseconds since the Unix epoch.
// A value that cannot be rendered leaves the timestamp unset.
func deriveTimestamp(fields types.Fields) *string {
	v, ok := fields.Get(TimestampField)
	if !ok {
		return nil
	}
	ms, ok := v.Number()
	if !ok || ms < 0 || ms >= math.MaxInt64 {
		return nil
	}
	t := time.UnixMilli(int64(ms)).UTC()
	if t.Year() < 0 || t.Year() > 9999 {
		return nil
	}
	stamp := t.Format("2006-01-02T15:04:05.000Z07:00")
	return &stamp
}
