package comms

import (
	"bufio"
	"fmt"
	"sync"

	"go.bug.st/serial"

	"rover-service/internal/logger"
)

// TokenFunc receives one line read from the serial link, with line
// endings stripped.
type TokenFunc func(token string)

// SerialLink is the wireless serial channel to the operator. Outbound it
// carries telemetry messages, inbound it carries text-protocol command
// tokens. It implements telemetry.MessageWriter.
type SerialLink struct {
	port   serial.Port
	device string
	logger *logger.Logger

	writeMu sync.Mutex
	wg      sync.WaitGroup
	closed  chan struct{}
}

func Open(device string, baud int, l *logger.Logger) (*SerialLink, error) {
	mode := &serial.Mode{
		BaudRate: baud,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", device, err)
	}
	l.Infof("Opened serial link %s at %d baud", device, baud)
	return &SerialLink{
		port:   port,
		device: device,
		logger: l,
		closed: make(chan struct{}),
	}, nil
}

// StartReading starts the inbound reader. Each received line is handed to
// the token handler; framing errors end the reader.
func (s *SerialLink) StartReading(handler TokenFunc) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		scanner := bufio.NewScanner(s.port)
		for scanner.Scan() {
			token := scanner.Text()
			if token == "" {
				continue
			}
			s.logger.Debugf("Serial RX: %q", token)
			handler(token)
		}
		if err := scanner.Err(); err != nil {
			select {
			case <-s.closed:
				// Expected read error from closing the port.
			default:
				s.logger.Errorf("Serial read error on %s: %v", s.device, err)
			}
		}
	}()
}

// WriteMessage sends one telemetry line, CRLF terminated.
func (s *SerialLink) WriteMessage(msg string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.port.Write([]byte(msg + "\r\n")); err != nil {
		return fmt.Errorf("serial write failed: %w", err)
	}
	return nil
}

func (s *SerialLink) Close() error {
	close(s.closed)
	err := s.port.Close()
	s.wg.Wait()
	return err
}
