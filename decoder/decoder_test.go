package decoder

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vainnor/flightlog/frame"
	"github.com/vainnor/flightlog/models"
	"github.com/vainnor/flightlog/schema"
	"github.com/vainnor/flightlog/testutil"
	"github.com/vainnor/flightlog/types"
)

var registry = schema.Default()

func v1(msgID uint32, payload []byte) frame.Frame {
	return frame.Frame{Version: 1, MsgID: msgID, Length: len(payload), Payload: payload}
}

func TestDecodeAttitude(t *testing.T) {
	msg, err := Decode(v1(schema.MsgAttitude, testutil.Attitude(5123, 0.5, -0.25, 1.5)), registry)
	require.NoError(t, err)

	assert.Equal(t, "ATTITUDE", msg.Type)
	assert.Equal(t, schema.MsgAttitude, msg.ID)
	assert.Len(t, msg.Fields, 7)
	assert.Equal(t, uint64(5123), msg.Fields.Uint("time_boot_ms"))
	assert.Equal(t, 0.5, msg.Fields.Float("roll"))
	assert.Equal(t, -0.25, msg.Fields.Float("pitch"))

	require.NotNil(t, msg.Timestamp)
	assert.Equal(t, "1970-01-01T00:00:05.123Z", *msg.Timestamp)

	att, ok := msg.Payload.(models.Attitude)
	require.True(t, ok)
	assert.Equal(t, float32(1.5), att.Yaw)
}

func TestDecodeSignExtension(t *testing.T) {
	msg, err := Decode(v1(schema.MsgGlobalPositionInt, testutil.GlobalPositionInt(0, -1500, -2)), registry)
	require.NoError(t, err)

	alt, ok := msg.Fields.Get("alt")
	require.True(t, ok)
	assert.True(t, alt.Signed)
	assert.Equal(t, int64(-1500), alt.Int)
	assert.Equal(t, int64(-2), msg.Fields.Int("relative_alt"))

	pos := msg.Payload.(models.GlobalPositionInt)
	assert.Equal(t, int32(-1500), pos.Alt)
	assert.Equal(t, -0.002, pos.RelativeMetres())
}

func TestDecodeSignedByte(t *testing.T) {
	msg, err := Decode(v1(schema.MsgSysStatus, testutil.SysStatus(11100, -1)), registry)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), msg.Fields.Int("battery_remaining"))
	assert.Equal(t, uint64(11100), msg.Fields.Uint("voltage_battery"))

	status := msg.Payload.(models.SysStatus)
	assert.InDelta(t, 11.1, status.Volts(), 1e-9)
	assert.Nil(t, msg.Timestamp)
}

func TestDecodeString(t *testing.T) {
	msg, err := Decode(v1(schema.MsgStatusText, testutil.StatusText(models.SeverityWarning, "PreArm: GPS")), registry)
	require.NoError(t, err)
	assert.Equal(t, "PreArm: GPS", msg.Fields.Text("text"))

	text, ok := msg.Fields.Get("text")
	require.True(t, ok)
	assert.Equal(t, types.KindString, text.Kind)

	_, numeric := text.Number()
	assert.False(t, numeric)
}

func TestDecodeInvalidUTF8(t *testing.T) {
	payload := testutil.StatusText(6, "")
	payload[1], payload[2] = 'o', 0xff
	msg, err := Decode(v1(schema.MsgStatusText, payload), registry)
	require.NoError(t, err)
	assert.Equal(t, "o�", msg.Fields.Text("text"))
}

func TestDecodeGPSTimestampField(t *testing.T) {
	msg, err := Decode(v1(schema.MsgGPSRawInt, testutil.GPSRawInt(42, 1, 2, 150, 3, 9)), registry)
	require.NoError(t, err)

	usec, ok := msg.Fields.Get("time_usec")
	require.True(t, ok)
	assert.Equal(t, types.KindTimestamp, usec.Kind)
	assert.Equal(t, uint64(42), usec.Uint)
	// Only time_boot_ms drives the derived timestamp.
	assert.Nil(t, msg.Timestamp)
	assert.Equal(t, int64(150), msg.Fields.Int("alt"))
}

func TestDecodeUnknownType(t *testing.T) {
	raw := []byte{1, 2, 3}
	_, err := Decode(v1(200, raw), registry)
	require.ErrorIs(t, err, ErrUnknownType)

	var unknown *UnknownTypeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, uint32(200), unknown.ID)
	assert.Equal(t, raw, unknown.Raw)
	assert.Equal(t, "UNKNOWN", unknown.Payload().MessageName())

	raw[0] = 9
	assert.Equal(t, byte(1), unknown.Raw[0], "raw bytes must be copied")
}

func TestDecodeTruncatedV1(t *testing.T) {
	_, err := Decode(v1(schema.MsgAttitude, make([]byte, 10)), registry)
	require.ErrorIs(t, err, ErrTruncated)

	var truncated *TruncatedError
	require.ErrorAs(t, err, &truncated)
	assert.Equal(t, "ATTITUDE", truncated.Type)
	assert.Equal(t, "pitch", truncated.Field)
	assert.Equal(t, 12, truncated.Need)
	assert.Equal(t, 10, truncated.Have)
}

func TestDecodeZeroExtendsV2(t *testing.T) {
	payload := testutil.Attitude(1000, 2, 0, 0)[:8]
	f := frame.Frame{Version: 2, MsgID: schema.MsgAttitude, Length: len(payload), Payload: payload}

	msg, err := Decode(f, registry)
	require.NoError(t, err)
	assert.Equal(t, 2.0, msg.Fields.Float("roll"))
	assert.Equal(t, 0.0, msg.Fields.Float("yawspeed"))
	assert.Len(t, f.Payload, 8, "frame payload is not modified")
}

func TestDecodeNaNFloat(t *testing.T) {
	payload := testutil.VFRHUD(0)
	binary.LittleEndian.PutUint32(payload[8:], math.Float32bits(float32(math.NaN())))

	msg, err := Decode(v1(schema.MsgVFRHUD, payload), registry)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(msg.Fields.Float("alt")))
}

func TestDecodeWithCustomRegistry(t *testing.T) {
	reg, err := schema.New(schema.Schema{
		ID: 7, Name: "WIDE", Length: 16,
		Fields: []schema.Field{
			{Name: "counter", Offset: 0, Width: 8, Kind: types.KindInt, Signed: true},
			{Name: "ratio", Offset: 8, Width: 8, Kind: types.KindFloat},
		},
	})
	require.NoError(t, err)

	payload := make([]byte, 16)
	binary.LittleEndian.PutUint64(payload, uint64(math.MaxUint64)) // -1
	binary.LittleEndian.PutUint64(payload[8:], math.Float64bits(0.125))

	msg, err := Decode(v1(7, payload), reg)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), msg.Fields.Int("counter"))
	assert.Equal(t, 0.125, msg.Fields.Float("ratio"))
	assert.Nil(t, msg.Payload, "schemas without a builder leave the payload empty")
}

func TestDecodeUnsupportedWidth(t *testing.T) {
	reg, err := schema.New(schema.Schema{
		ID: 8, Name: "ODD", Length: 3,
		Fields: []schema.Field{{Name: "x", Offset: 0, Width: 3, Kind: types.KindInt}},
	})
	require.NoError(t, err)

	_, err = Decode(v1(8, []byte{1, 2, 3}), reg)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTruncated))
	assert.Contains(t, err.Error(), "ODD.x")
}

func TestDeriveTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		value types.Value
		want  string
	}{
		{"epoch", types.TimestampValue(0), "1970-01-01T00:00:00.000Z"},
		{"boot millis", types.TimestampValue(5123), "1970-01-01T00:00:05.123Z"},
		{"float millis", types.FloatValue(1500.9), "1970-01-01T00:00:01.500Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveTimestamp(types.Fields{{Name: TimestampField, Value: tt.value}})
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	t.Run("absent", func(t *testing.T) {
		assert.Nil(t, deriveTimestamp(types.Fields{{Name: "alt", Value: types.IntValue(1)}}))
	})
	t.Run("negative", func(t *testing.T) {
		assert.Nil(t, deriveTimestamp(types.Fields{{Name: TimestampField, Value: types.IntValue(-1)}}))
	})
	t.Run("out of range", func(t *testing.T) {
		assert.Nil(t, deriveTimestamp(types.Fields{{Name: TimestampField, Value: types.TimestampValue(math.MaxUint64)}}))
	})
	t.Run("not numeric", func(t *testing.T) {
		assert.Nil(t, deriveTimestamp(types.Fields{{Name: TimestampField, Value: types.TextValue("soon")}}))
	})
}
