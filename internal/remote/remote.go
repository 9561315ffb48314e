package remote

import (
	"strings"

	"rover-service/internal/logger"
	"rover-service/internal/types"
)

// IRCode is a decoded infrared remote key. Pulse-level NEC decoding happens
// below this boundary (kernel keymap); this package only sees key codes.
type IRCode int

const (
	IRCodeUp IRCode = iota
	IRCodeDown
	IRCodeLeft
	IRCodeRight
	IRCodeOK
	IRCodeDigit2
	IRCodeDigit8
	IRCodeAsterisk
)

// Actions is the set of motion operations manual commands drive. The
// powertrain satisfies it directly.
type Actions interface {
	MoveForward()
	MoveBackward()
	TurnLeft(angle int)
	TurnRight(angle int)
	Stop()
	IncreaseSpeed()
	DecreaseSpeed()
}

// Dispatcher folds both manual-command channels (infrared and serial text)
// into the shared command vocabulary and applies the remote-state gate:
// everything except the mode toggle is honored only while the drive
// controller is in the remote state. Unrecognized input is dropped
// silently.
type Dispatcher struct {
	actions         Actions
	inRemote        func() bool
	modeToggle      func()
	manualTurnAngle int
	logger          *logger.Logger
}

func NewDispatcher(actions Actions, inRemote func() bool, modeToggle func(), manualTurnAngle int, l *logger.Logger) *Dispatcher {
	return &Dispatcher{
		actions:         actions,
		inRemote:        inRemote,
		modeToggle:      modeToggle,
		manualTurnAngle: manualTurnAngle,
		logger:          l,
	}
}

// HandleIRCode dispatches a decoded infrared key.
func (d *Dispatcher) HandleIRCode(code IRCode) {
	cmd, ok := commandFromIRCode(code)
	if !ok {
		d.logger.Debugf("Dropping unmapped IR code %d", code)
		return
	}
	d.Dispatch(cmd)
}

// HandleTextToken dispatches one token of the serial text protocol. Tokens
// are fixed 3-letter uppercase strings; longer input is truncated to its
// first three characters.
func (d *Dispatcher) HandleTextToken(token string) {
	token = strings.TrimSpace(token)
	if len(token) > 3 {
		token = token[:3]
	}
	cmd, ok := commandFromTextToken(token)
	if !ok {
		d.logger.Debugf("Dropping unrecognized command token %q", token)
		return
	}
	d.Dispatch(cmd)
}

// Dispatch applies one vocabulary command.
func (d *Dispatcher) Dispatch(cmd types.Command) {
	if cmd == types.CmdToggleMode {
		d.modeToggle()
		return
	}
	if !d.inRemote() {
		d.logger.Debugf("Dropping %s: not in remote state", cmd)
		return
	}

	switch cmd {
	case types.CmdForward:
		d.actions.MoveForward()
	case types.CmdBackward:
		d.actions.MoveBackward()
	case types.CmdTurnLeft:
		d.actions.TurnLeft(d.manualTurnAngle)
	case types.CmdTurnRight:
		d.actions.TurnRight(d.manualTurnAngle)
	case types.CmdStop:
		d.actions.Stop()
	case types.CmdSpeedUp:
		d.actions.IncreaseSpeed()
	case types.CmdSpeedDown:
		d.actions.DecreaseSpeed()
	default:
		d.logger.Debugf("Dropping unknown command %q", cmd)
	}
}

func commandFromIRCode(code IRCode) (types.Command, bool) {
	switch code {
	case IRCodeUp:
		return types.CmdForward, true
	case IRCodeDown:
		return types.CmdBackward, true
	case IRCodeLeft:
		return types.CmdTurnLeft, true
	case IRCodeRight:
		return types.CmdTurnRight, true
	case IRCodeOK:
		return types.CmdStop, true
	case IRCodeDigit2:
		return types.CmdSpeedUp, true
	case IRCodeDigit8:
		return types.CmdSpeedDown, true
	case IRCodeAsterisk:
		return types.CmdToggleMode, true
	default:
		return "", false
	}
}

func commandFromTextToken(token string) (types.Command, bool) {
	switch token {
	case "FWD":
		return types.CmdForward, true
	case "REV":
		return types.CmdBackward, true
	case "LFT":
		return types.CmdTurnLeft, true
	case "RGT":
		return types.CmdTurnRight, true
	case "STP":
		return types.CmdStop, true
	case "AUT", "MAN":
		return types.CmdToggleMode, true
	default:
		return "", false
	}
}
