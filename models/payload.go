package models

// Payload is the typed form of a decoded message. Each known message type
// has its own struct; the set is closed over the schema table.
type Payload interface {
	MessageName() string
}

// MAV_SEVERITY levels carried by STATUSTEXT.
const (
	SeverityEmergency uint8 = iota
	SeverityAlert
	SeverityCritical
	SeverityError
	SeverityWarning
	SeverityNotice
	SeverityInfo
	SeverityDebug
)

// Heartbeat announces vehicle type, mode and state once per second.
type Heartbeat struct {
	CustomMode     uint32 `json:"custom_mode"`
	Type           uint8  `json:"type"`
	Autopilot      uint8  `json:"autopilot"`
	BaseMode       uint8  `json:"base_mode"`
	SystemStatus   uint8  `json:"system_status"`
	MavlinkVersion uint8  `json:"mavlink_version"`
}

func (Heartbeat) MessageName() string { return "HEARTBEAT" }

// Armed reports MAV_MODE_FLAG_SAFETY_ARMED.
func (h Heartbeat) Armed() bool { return h.BaseMode&0x80 != 0 }

// SysStatus reports onboard sensor health and battery state.
type SysStatus struct {
	SensorsPresent   uint32    `json:"onboard_control_sensors_present"`
	SensorsEnabled   uint32    `json:"onboard_control_sensors_enabled"`
	SensorsHealth    uint32    `json:"onboard_control_sensors_health"`
	Load             uint16    `json:"load"`
	VoltageBattery   uint16    `json:"voltage_battery"`
	CurrentBattery   int16     `json:"current_battery"`
	DropRateComm     uint16    `json:"drop_rate_comm"`
	ErrorsComm       uint16    `json:"errors_comm"`
	ErrorsCount      [4]uint16 `json:"errors_count"`
	BatteryRemaining int8      `json:"battery_remaining"`
}

func (SysStatus) MessageName() string { return "SYS_STATUS" }

// Volts converts the millivolt battery reading.
func (s SysStatus) Volts() float64 { return float64(s.VoltageBattery) / 1000 }

type GPSRawInt struct {
	TimeUsec          uint64 `json:"time_usec"`
	Lat               int32  `json:"lat"`
	Lon               int32  `json:"lon"`
	Alt               int32  `json:"alt"`
	EPH               uint16 `json:"eph"`
	EPV               uint16 `json:"epv"`
	Vel               uint16 `json:"vel"`
	COG               uint16 `json:"cog"`
	FixType           uint8  `json:"fix_type"`
	SatellitesVisible uint8  `json:"satellites_visible"`
}

func (GPSRawInt) MessageName() string { return "GPS_RAW_INT" }

type ScaledPressure struct {
	TimeBootMs  uint32  `json:"time_boot_ms"`
	PressAbs    float32 `json:"press_abs"`
	PressDiff   float32 `json:"press_diff"`
	Temperature int16   `json:"temperature"`
}

func (ScaledPressure) MessageName() string { return "SCALED_PRESSURE" }

type Attitude struct {
	TimeBootMs uint32  `json:"time_boot_ms"`
	Roll       float32 `json:"roll"`
	Pitch      float32 `json:"pitch"`
	Yaw        float32 `json:"yaw"`
	RollSpeed  float32 `json:"rollspeed"`
	PitchSpeed float32 `json:"pitchspeed"`
	YawSpeed   float32 `json:"yawspeed"`
}

func (Attitude) MessageName() string { return "ATTITUDE" }

// GlobalPositionInt is the filtered position estimate. Altitudes are in
// millimetres.
type GlobalPositionInt struct {
	TimeBootMs  uint32 `json:"time_boot_ms"`
	Lat         int32  `json:"lat"`
	Lon         int32  `json:"lon"`
	Alt         int32  `json:"alt"`
	RelativeAlt int32  `json:"relative_alt"`
	VX          int16  `json:"vx"`
	VY          int16  `json:"vy"`
	VZ          int16  `json:"vz"`
	Hdg         uint16 `json:"hdg"`
}

func (GlobalPositionInt) MessageName() string { return "GLOBAL_POSITION_INT" }

// RelativeMetres converts the millimetre height above home.
func (g GlobalPositionInt) RelativeMetres() float64 { return float64(g.RelativeAlt) / 1000 }

type RCChannelsRaw struct {
	TimeBootMs uint32    `json:"time_boot_ms"`
	Channels   [8]uint16 `json:"channels"`
	Port       uint8     `json:"port"`
	RSSI       uint8     `json:"rssi"`
}

func (RCChannelsRaw) MessageName() string { return "RC_CHANNELS_RAW" }

type VFRHUD struct {
	Airspeed    float32 `json:"airspeed"`
	Groundspeed float32 `json:"groundspeed"`
	Alt         float32 `json:"alt"`
	Climb       float32 `json:"climb"`
	Heading     int16   `json:"heading"`
	Throttle    uint16  `json:"throttle"`
}

func (VFRHUD) MessageName() string { return "VFR_HUD" }

type StatusText struct {
	Severity uint8  `json:"severity"`
	Text     string `json:"text"`
}

func (StatusText) MessageName() string { return "STATUSTEXT" }

// Unknown carries the raw payload of a message id the registry does not
// describe.
type Unknown struct {
	ID  uint32 `json:"id"`
	Raw []byte `json:"raw"`
}

func (Unknown) MessageName() string { return "UNKNOWN" }
