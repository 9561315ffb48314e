package hardware

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"rover-service/internal/logger"
	"rover-service/internal/remote"
)

// Exclusive-access grab on an event device, _IOW('E', 0x90, int).
const eviocgrab = 0x40044590

// IRReceiver reads decoded remote keys from the kernel IR input device.
// The NEC pulse decoding happens in the kernel keymap; this layer only
// maps keycodes onto remote codes and forwards key presses.
type IRReceiver struct {
	logger     *logger.Logger
	devicePath string
	inputFile  *os.File
	stopChan   chan struct{}
	callback   func(remote.IRCode)
}

func NewIRReceiver(devicePath string, l *logger.Logger) *IRReceiver {
	return &IRReceiver{
		logger:     l.WithTag("ir"),
		devicePath: devicePath,
		stopChan:   make(chan struct{}),
	}
}

func (r *IRReceiver) RegisterKeyCallback(cb func(remote.IRCode)) {
	r.callback = cb
}

func (r *IRReceiver) Initialize() error {
	r.logger.Infof("Opening IR input device: %s", r.devicePath)
	f, err := os.OpenFile(r.devicePath, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open IR input device %s: %w", r.devicePath, err)
	}
	r.inputFile = f

	// Grab the device so the keys do not leak to other consumers.
	if err := unix.IoctlSetInt(int(f.Fd()), eviocgrab, 1); err != nil {
		r.logger.Warnf("EVIOCGRAB failed on %s: %v", r.devicePath, err)
	}

	go r.monitorKeys()
	return nil
}

// monitorKeys reads input events until the receiver is cleaned up. The
// input file is owned by Cleanup; closing it there unblocks the read.
func (r *IRReceiver) monitorKeys() {
	buffer := make([]byte, 16)
	for {
		select {
		case <-r.stopChan:
			r.logger.Infof("Stopping IR key monitoring")
			return
		default:
			n, err := r.inputFile.Read(buffer)
			if err != nil {
				select {
				case <-r.stopChan:
					return
				default:
				}
				r.logger.Warnf("Error reading IR input: %v", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
			if n != len(buffer) {
				r.logger.Warnf("Incomplete read: got %d bytes, expected %d", n, len(buffer))
				continue
			}

			typ := binary.LittleEndian.Uint16(buffer[8:10])
			code := binary.LittleEndian.Uint16(buffer[10:12])
			val := int32(binary.LittleEndian.Uint32(buffer[12:16]))

			if typ != EV_KEY || val != 1 {
				// Only key presses drive commands; releases and
				// repeats are ignored.
				continue
			}

			irCode, ok := mapIRKeycode(code)
			if !ok {
				r.logger.Debugf("Unknown IR keycode: %d", code)
				continue
			}
			r.logger.Debugf("IR key press: code=%d", code)
			if r.callback != nil {
				r.callback(irCode)
			}
		}
	}
}

func mapIRKeycode(code uint16) (remote.IRCode, bool) {
	switch code {
	case KEY_UP:
		return remote.IRCodeUp, true
	case KEY_DOWN:
		return remote.IRCodeDown, true
	case KEY_LEFT:
		return remote.IRCodeLeft, true
	case KEY_RIGHT:
		return remote.IRCodeRight, true
	case KEY_ENTER:
		return remote.IRCodeOK, true
	case KEY_2:
		return remote.IRCodeDigit2, true
	case KEY_8:
		return remote.IRCodeDigit8, true
	case KEY_KPASTERISK:
		return remote.IRCodeAsterisk, true
	default:
		return 0, false
	}
}

func (r *IRReceiver) Cleanup() {
	close(r.stopChan)
	if r.inputFile != nil {
		unix.IoctlSetInt(int(r.inputFile.Fd()), eviocgrab, 0)
		r.inputFile.Close()
	}
}
