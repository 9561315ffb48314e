package telemetry

import (
	"fmt"

	"rover-service/internal/logger"
	"rover-service/internal/types"
)

// MessageWriter carries formatted telemetry messages to the operator,
// normally the wireless serial link.
type MessageWriter interface {
	WriteMessage(msg string) error
}

// StateStore mirrors telemetry into a queryable store (Redis). Optional.
type StateStore interface {
	SetMotorSpeed(side types.Side, speed int) error
	SetMotorDirection(side types.Side, dir types.Direction) error
	SetBatteryStatus(voltageMv, percent int) error
	SetMode(manual bool) error
	PublishObjectDetected(bearing int, distanceCm uint16) error
}

// Module receives the state-change notifications raised by the drive
// controller, powertrain and sensing layers, and fans them out to the
// serial link and the state store. Delivery failures are logged and
// dropped; telemetry never feeds back into control decisions.
type Module struct {
	writer MessageWriter
	store  StateStore
	logger *logger.Logger
}

func NewModule(writer MessageWriter, store StateStore, l *logger.Logger) *Module {
	return &Module{
		writer: writer,
		store:  store,
		logger: l,
	}
}

func (m *Module) send(t MessageType, sev Severity, body string) {
	if m.writer == nil {
		return
	}
	if err := m.writer.WriteMessage(formatMessage(t, sev, body)); err != nil {
		m.logger.Warnf("Failed to send telemetry message: %v", err)
	}
}

// ObjectDetected reports an obstacle sighting at a servo bearing.
func (m *Module) ObjectDetected(bearing int, distanceCm uint16) {
	m.send(MsgObjectDetected, SeverityMedium, fmt.Sprintf("dir:%d,dst:%d", bearing, distanceCm))
	if m.store != nil {
		if err := m.store.PublishObjectDetected(bearing, distanceCm); err != nil {
			m.logger.Warnf("Failed to publish object detection: %v", err)
		}
	}
}

// BatteryStatus reports the battery voltage and charge; severity escalates
// as the charge drops.
func (m *Module) BatteryStatus(voltageMv, percent int) {
	m.send(MsgBatteryStatus, batterySeverity(percent), fmt.Sprintf("v:%d,pct:%d", voltageMv, percent))
	if m.store != nil {
		if err := m.store.SetBatteryStatus(voltageMv, percent); err != nil {
			m.logger.Warnf("Failed to store battery status: %v", err)
		}
	}
}

// MotorSpeedChanged reports a per-side speed change.
func (m *Module) MotorSpeedChanged(side types.Side, speed int) {
	t := MsgLeftMotorSpeed
	if side == types.SideRight {
		t = MsgRightMotorSpeed
	}
	m.send(t, SeverityLow, fmt.Sprintf("sp:%d", speed))
	if m.store != nil {
		if err := m.store.SetMotorSpeed(side, speed); err != nil {
			m.logger.Warnf("Failed to store %s motor speed: %v", side, err)
		}
	}
}

// MotorDirectionChanged reports a per-side direction change.
func (m *Module) MotorDirectionChanged(side types.Side, dir types.Direction) {
	t := MsgLeftMotorDir
	if side == types.SideRight {
		t = MsgRightMotorDir
	}
	m.send(t, SeverityLow, fmt.Sprintf("dir:%d", directionCode(dir)))
	if m.store != nil {
		if err := m.store.SetMotorDirection(side, dir); err != nil {
			m.logger.Warnf("Failed to store %s motor direction: %v", side, err)
		}
	}
}

// ModeSwitched reports a manual/autonomous mode change.
func (m *Module) ModeSwitched(manual bool) {
	v := 0
	if manual {
		v = 1
	}
	m.send(MsgModeSwitch, SeverityMedium, fmt.Sprintf("man:%d", v))
	if m.store != nil {
		if err := m.store.SetMode(manual); err != nil {
			m.logger.Warnf("Failed to store mode switch: %v", err)
		}
	}
}
