package telemetry

import (
	"fmt"

	"rover-service/internal/types"
)

// MessageType identifies a telemetry message on the wire. Values are part
// of the serial protocol and must stay stable.
type MessageType int

const (
	MsgObjectDetected MessageType = iota
	MsgBatteryStatus
	MsgLeftMotorSpeed
	MsgRightMotorSpeed
	MsgLeftMotorDir
	MsgRightMotorDir
	MsgModeSwitch
)

// Severity grades a telemetry message.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// formatMessage renders the key-value wire format:
// "type:<n>,sev:<n>,<body>".
func formatMessage(t MessageType, sev Severity, body string) string {
	return fmt.Sprintf("type:%d,sev:%d,%s", t, sev, body)
}

// directionCode maps a motor direction onto its wire value.
func directionCode(dir types.Direction) int {
	switch dir {
	case types.DirForward:
		return 0
	case types.DirReverse:
		return 1
	default:
		return 2
	}
}

// batterySeverity grades a battery report from its charge percentage.
func batterySeverity(percent int) Severity {
	switch {
	case percent >= 80:
		return SeverityLow
	case percent <= 20:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
