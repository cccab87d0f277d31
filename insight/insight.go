// Package insight scans a decoded flight for events worth pointing out:
// altitude drops, GPS degradation, low battery, RC signal loss, failsafe
// states, mode and arming changes, and autopilot warnings.
package insight

import (
	"fmt"

	"github.com/vainnor/flightlog/models"
	"github.com/vainnor/flightlog/types"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Finding kinds.
const (
	KindAltitudeDrop  = "altitude_drop"
	KindGPSFixLost    = "gps_fix_lost"
	KindLowSatellites = "low_satellites"
	KindLowBattery    = "low_battery"
	KindRCSignalLost  = "rc_signal_lost"
	KindFailsafe      = "failsafe"
	KindModeChange    = "mode_change"
	KindArming        = "arming"
	KindStatusText    = "status_text"
)

// MAV_STATE values that mean the vehicle is in failsafe.
const (
	stateCritical  = 5
	stateEmergency = 6
)

// Finding is one notable event, tied to the message that revealed it.
type Finding struct {
	Kind      string   `json:"kind"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Index     int      `json:"index"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// Thresholds tune what counts as notable.
type Thresholds struct {
	// AltitudeDropMetres is the loss of relative altitude between two
	// position reports no more than AltitudeDropWindowMs apart.
	AltitudeDropMetres   float64
	AltitudeDropWindowMs uint32
	MinSatellites        uint8
	LowVoltage           float64
	LowBatteryPercent    int8
	MaxFindings          int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		AltitudeDropMetres:   10,
		AltitudeDropWindowMs: 2000,
		MinSatellites:        6,
		LowVoltage:           10.5,
		LowBatteryPercent:    20,
		MaxFindings:          50,
	}
}

type scanner struct {
	th       Thresholds
	findings []Finding

	lastPosition *models.GlobalPositionInt
	hadFix       bool
	lowSats      bool
	lowBattery   bool
	hadRSSI      bool
	rcLost       bool
	heartbeat    *models.Heartbeat
}

// Analyze walks the messages in log order. Transitions are reported once,
// when they happen, not on every message that shows the state.
func Analyze(messages []types.DecodedMessage, th Thresholds) []Finding {
	s := &scanner{th: th}
	for i, msg := range messages {
		if th.MaxFindings > 0 && len(s.findings) >= th.MaxFindings {
			break
		}
		stamp := ""
		if msg.Timestamp != nil {
			stamp = *msg.Timestamp
		}

		switch p := msg.Payload.(type) {
		case models.GlobalPositionInt:
			s.position(i, stamp, p)
		case models.GPSRawInt:
			s.gps(i, stamp, p)
		case models.SysStatus:
			s.battery(i, stamp, p)
		case models.RCChannelsRaw:
			s.rc(i, stamp, p)
		case models.Heartbeat:
			s.heartbeatChange(i, stamp, p)
		case models.StatusText:
			s.statusText(i, stamp, p)
		}
	}

	if th.MaxFindings > 0 && len(s.findings) > th.MaxFindings {
		s.findings = s.findings[:th.MaxFindings]
	}
	return s.findings
}

func (s *scanner) add(kind string, severity Severity, index int, stamp, format string, args ...any) {
	s.findings = append(s.findings, Finding{
		Kind:      kind,
		Severity:  severity,
		Message:   fmt.Sprintf(format, args...),
		Index:     index,
		Timestamp: stamp,
	})
}

func (s *scanner) position(i int, stamp string, p models.GlobalPositionInt) {
	prev := s.lastPosition
	s.lastPosition = &p
	if prev == nil || p.TimeBootMs < prev.TimeBootMs {
		return
	}
	if p.TimeBootMs-prev.TimeBootMs > s.th.AltitudeDropWindowMs {
		return
	}
	drop := prev.RelativeMetres() - p.RelativeMetres()
	if drop >= s.th.AltitudeDropMetres {
		s.add(KindAltitudeDrop, SeverityCritical, i, stamp,
			"relative altitude fell %.1f m in %d ms (%.1f m to %.1f m)",
			drop, p.TimeBootMs-prev.TimeBootMs, prev.RelativeMetres(), p.RelativeMetres())
	}
}

func (s *scanner) gps(i int, stamp string, p models.GPSRawInt) {
	const fix3D = 3
	if p.FixType >= fix3D {
		s.hadFix = true
	} else if s.hadFix {
		s.hadFix = false
		s.add(KindGPSFixLost, SeverityWarning, i, stamp, "GPS fix degraded to type %d", p.FixType)
	}

	low := p.SatellitesVisible < s.th.MinSatellites
	if low && !s.lowSats {
		s.add(KindLowSatellites, SeverityWarning, i, stamp,
			"only %d satellites visible", p.SatellitesVisible)
	}
	s.lowSats = low
}

func (s *scanner) battery(i int, stamp string, p models.SysStatus) {
	volts := p.Volts()
	low := (volts > 0 && volts < s.th.LowVoltage) ||
		(p.BatteryRemaining >= 0 && p.BatteryRemaining < s.th.LowBatteryPercent)
	if low && !s.lowBattery {
		s.add(KindLowBattery, SeverityWarning, i, stamp,
			"battery at %.2f V, %d%% remaining", volts, p.BatteryRemaining)
	}
	s.lowBattery = low
}

func (s *scanner) rc(i int, stamp string, p models.RCChannelsRaw) {
	if p.RSSI > 0 {
		s.hadRSSI = true
		s.rcLost = false
		return
	}
	if s.hadRSSI && !s.rcLost {
		s.rcLost = true
		s.add(KindRCSignalLost, SeverityCritical, i, stamp, "RC receiver RSSI dropped to 0")
	}
}

func (s *scanner) heartbeatChange(i int, stamp string, p models.Heartbeat) {
	prev := s.heartbeat
	s.heartbeat = &p

	failsafe := p.SystemStatus == stateCritical || p.SystemStatus == stateEmergency
	if failsafe && (prev == nil || prev.SystemStatus != p.SystemStatus) {
		s.add(KindFailsafe, SeverityCritical, i, stamp, "vehicle reported system status %d", p.SystemStatus)
	}
	if prev == nil {
		return
	}
	if prev.CustomMode != p.CustomMode {
		s.add(KindModeChange, SeverityInfo, i, stamp, "flight mode changed from %d to %d", prev.CustomMode, p.CustomMode)
	}
	if prev.Armed() != p.Armed() {
		state := "disarmed"
		if p.Armed() {
			state = "armed"
		}
		s.add(KindArming, SeverityInfo, i, stamp, "vehicle %s", state)
	}
}

func (s *scanner) statusText(i int, stamp string, p models.StatusText) {
	if p.Severity > models.SeverityWarning {
		return
	}
	severity := SeverityWarning
	if p.Severity <= models.SeverityError {
		severity = SeverityCritical
	}
	s.add(KindStatusText, severity, i, stamp, "autopilot: %s", p.Text)
}
