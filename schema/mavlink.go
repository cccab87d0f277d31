package schema

import (
	"github.com/vainnor/flightlog/models"
	"github.com/vainnor/flightlog/types"
)

// MAVLink common message ids in the default table.
const (
	MsgHeartbeat         uint32 = 0
	MsgSysStatus         uint32 = 1
	MsgGPSRawInt         uint32 = 24
	MsgScaledPressure    uint32 = 29
	MsgAttitude          uint32 = 30
	MsgGlobalPositionInt uint32 = 33
	MsgRCChannelsRaw     uint32 = 35
	MsgVFRHUD            uint32 = 74
	MsgStatusText        uint32 = 253
)

func u8(name string, off int) Field {
	return Field{Name: name, Offset: off, Width: 1, Kind: types.KindInt}
}

func i8(name string, off int) Field {
	return Field{Name: name, Offset: off, Width: 1, Kind: types.KindInt, Signed: true}
}

func u16(name string, off int) Field {
	return Field{Name: name, Offset: off, Width: 2, Kind: types.KindInt}
}

func i16(name string, off int) Field {
	return Field{Name: name, Offset: off, Width: 2, Kind: types.KindInt, Signed: true}
}

func u32(name string, off int) Field {
	return Field{Name: name, Offset: off, Width: 4, Kind: types.KindInt}
}

func i32(name string, off int) Field {
	return Field{Name: name, Offset: off, Width: 4, Kind: types.KindInt, Signed: true}
}

func f32(name string, off int) Field {
	return Field{Name: name, Offset: off, Width: 4, Kind: types.KindFloat}
}

func char(name string, off, width int) Field {
	return Field{Name: name, Offset: off, Width: width, Kind: types.KindString}
}

func stamp(name string, off, width int) Field {
	return Field{Name: name, Offset: off, Width: width, Kind: types.KindTimestamp}
}

// Default returns the built-in table of MAVLink common messages. Offsets
// follow the wire order (fields sorted by size), lengths are the MAVLink 1
// base lengths without v2 extensions.
func Default() *Registry {
	r, err := New(mavlinkCommon()...)
	if err != nil {
		panic("schema: default table is invalid: " + err.Error())
	}
	r.seeds = commonCRCExtra
	return r
}

func mavlinkCommon() []Schema {
	return []Schema{
		{
			ID: MsgHeartbeat, Name: "HEARTBEAT", Length: 9, CRCExtra: 50,
			Fields: []Field{
				u32("custom_mode", 0),
				u8("type", 4),
				u8("autopilot", 5),
				u8("base_mode", 6),
				u8("system_status", 7),
				u8("mavlink_version", 8),
			},
			Build: func(f types.Fields) models.Payload {
				return models.Heartbeat{
					CustomMode:     uint32(f.Uint("custom_mode")),
					Type:           uint8(f.Uint("type")),
					Autopilot:      uint8(f.Uint("autopilot")),
					BaseMode:       uint8(f.Uint("base_mode")),
					SystemStatus:   uint8(f.Uint("system_status")),
					MavlinkVersion: uint8(f.Uint("mavlink_version")),
				}
			},
		},
		{
			ID: MsgSysStatus, Name: "SYS_STATUS", Length: 31, CRCExtra: 124,
			Fields: []Field{
				u32("onboard_control_sensors_present", 0),
				u32("onboard_control_sensors_enabled", 4),
				u32("onboard_control_sensors_health", 8),
				u16("load", 12),
				u16("voltage_battery", 14),
				i16("current_battery", 16),
				u16("drop_rate_comm", 18),
				u16("errors_comm", 20),
				u16("errors_count1", 22),
				u16("errors_count2", 24),
				u16("errors_count3", 26),
				u16("errors_count4", 28),
				i8("battery_remaining", 30),
			},
			Build: func(f types.Fields) models.Payload {
				return models.SysStatus{
					SensorsPresent: uint32(f.Uint("onboard_control_sensors_present")),
					SensorsEnabled: uint32(f.Uint("onboard_control_sensors_enabled")),
					SensorsHealth:  uint32(f.Uint("onboard_control_sensors_health")),
					Load:           uint16(f.Uint("load")),
					VoltageBattery: uint16(f.Uint("voltage_battery")),
					CurrentBattery: int16(f.Int("current_battery")),
					DropRateComm:   uint16(f.Uint("drop_rate_comm")),
					ErrorsComm:     uint16(f.Uint("errors_comm")),
					ErrorsCount: [4]uint16{
						uint16(f.Uint("errors_count1")),
						uint16(f.Uint("errors_count2")),
						uint16(f.Uint("errors_count3")),
						uint16(f.Uint("errors_count4")),
					},
					BatteryRemaining: int8(f.Int("battery_remaining")),
				}
			},
		},
		{
			ID: MsgGPSRawInt, Name: "GPS_RAW_INT", Length: 30, CRCExtra: 24,
			Fields: []Field{
				stamp("time_usec", 0, 8),
				i32("lat", 8),
				i32("lon", 12),
				i32("alt", 16),
				u16("eph", 20),
				u16("epv", 22),
				u16("vel", 24),
				u16("cog", 26),
				u8("fix_type", 28),
				u8("satellites_visible", 29),
			},
			Build: func(f types.Fields) models.Payload {
				return models.GPSRawInt{
					TimeUsec:          f.Uint("time_usec"),
					Lat:               int32(f.Int("lat")),
					Lon:               int32(f.Int("lon")),
					Alt:               int32(f.Int("alt")),
					EPH:               uint16(f.Uint("eph")),
					EPV:               uint16(f.Uint("epv")),
					Vel:               uint16(f.Uint("vel")),
					COG:               uint16(f.Uint("cog")),
					FixType:           uint8(f.Uint("fix_type")),
					SatellitesVisible: uint8(f.Uint("satellites_visible")),
				}
			},
		},
		{
			ID: MsgScaledPressure, Name: "SCALED_PRESSURE", Length: 14, CRCExtra: 115,
			Fields: []Field{
				stamp("time_boot_ms", 0, 4),
				f32("press_abs", 4),
				f32("press_diff", 8),
				i16("temperature", 12),
			},
			Build: func(f types.Fields) models.Payload {
				return models.ScaledPressure{
					TimeBootMs:  uint32(f.Uint("time_boot_ms")),
					PressAbs:    float32(f.Float("press_abs")),
					PressDiff:   float32(f.Float("press_diff")),
					Temperature: int16(f.Int("temperature")),
				}
			},
		},
		{
			ID: MsgAttitude, Name: "ATTITUDE", Length: 28, CRCExtra: 39,
			Fields: []Field{
				stamp("time_boot_ms", 0, 4),
				f32("roll", 4),
				f32("pitch", 8),
				f32("yaw", 12),
				f32("rollspeed", 16),
				f32("pitchspeed", 20),
				f32("yawspeed", 24),
			},
			Build: func(f types.Fields) models.Payload {
				return models.Attitude{
					TimeBootMs: uint32(f.Uint("time_boot_ms")),
					Roll:       float32(f.Float("roll")),
					Pitch:      float32(f.Float("pitch")),
					Yaw:        float32(f.Float("yaw")),
					RollSpeed:  float32(f.Float("rollspeed")),
					PitchSpeed: float32(f.Float("pitchspeed")),
					YawSpeed:   float32(f.Float("yawspeed")),
				}
			},
		},
		{
			ID: MsgGlobalPositionInt, Name: "GLOBAL_POSITION_INT", Length: 28, CRCExtra: 104,
			Fields: []Field{
				stamp("time_boot_ms", 0, 4),
				i32("lat", 4),
				i32("lon", 8),
				i32("alt", 12),
				i32("relative_alt", 16),
				i16("vx", 20),
				i16("vy", 22),
				i16("vz", 24),
				u16("hdg", 26),
			},
			Build: func(f types.Fields) models.Payload {
				return models.GlobalPositionInt{
					TimeBootMs:  uint32(f.Uint("time_boot_ms")),
					Lat:         int32(f.Int("lat")),
					Lon:         int32(f.Int("lon")),
					Alt:         int32(f.Int("alt")),
					RelativeAlt: int32(f.Int("relative_alt")),
					VX:          int16(f.Int("vx")),
					VY:          int16(f.Int("vy")),
					VZ:          int16(f.Int("vz")),
					Hdg:         uint16(f.Uint("hdg")),
				}
			},
		},
		{
			ID: MsgRCChannelsRaw, Name: "RC_CHANNELS_RAW", Length: 22, CRCExtra: 244,
			Fields: []Field{
				stamp("time_boot_ms", 0, 4),
				u16("chan1_raw", 4),
				u16("chan2_raw", 6),
				u16("chan3_raw", 8),
				u16("chan4_raw", 10),
				u16("chan5_raw", 12),
				u16("chan6_raw", 14),
				u16("chan7_raw", 16),
				u16("chan8_raw", 18),
				u8("port", 20),
				u8("rssi", 21),
			},
			Build: func(f types.Fields) models.Payload {
				rc := models.RCChannelsRaw{
					TimeBootMs: uint32(f.Uint("time_boot_ms")),
					Port:       uint8(f.Uint("port")),
					RSSI:       uint8(f.Uint("rssi")),
				}
				names := [8]string{"chan1_raw", "chan2_raw", "chan3_raw", "chan4_raw",
					"chan5_raw", "chan6_raw", "chan7_raw", "chan8_raw"}
				for i, name := range names {
					rc.Channels[i] = uint16(f.Uint(name))
				}
				return rc
			},
		},
		{
			ID: MsgVFRHUD, Name: "VFR_HUD", Length: 20, CRCExtra: 20,
			Fields: []Field{
				f32("airspeed", 0),
				f32("groundspeed", 4),
				f32("alt", 8),
				f32("climb", 12),
				i16("heading", 16),
				u16("throttle", 18),
			},
			Build: func(f types.Fields) models.Payload {
				return models.VFRHUD{
					Airspeed:    float32(f.Float("airspeed")),
					Groundspeed: float32(f.Float("groundspeed")),
					Alt:         float32(f.Float("alt")),
					Climb:       float32(f.Float("climb")),
					Heading:     int16(f.Int("heading")),
					Throttle:    uint16(f.Uint("throttle")),
				}
			},
		},
		{
			ID: MsgStatusText, Name: "STATUSTEXT", Length: 51, CRCExtra: 83,
			Fields: []Field{
				u8("severity", 0),
				char("text", 1, 50),
			},
			Build: func(f types.Fields) models.Payload {
				return models.StatusText{
					Severity: uint8(f.Uint("severity")),
					Text:     f.Text("text"),
				}
			},
		},
	}
}
