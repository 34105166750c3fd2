package robot

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the USB-serial setting of the arm and feeder
// firmware.
const DefaultBaudRate = 115200

// maxReadChunk bounds a single timed read so a long ReadLine deadline
// still notices a closed port promptly.
const maxReadChunk = 100 * time.Millisecond

// SerialPort is a Transport over a local serial device.
type SerialPort struct {
	name string
	baud int

	mu   sync.Mutex
	port serial.Port

	// Reader-goroutine state: residual bytes past the last '\n'.
	buf []byte
	tmp [256]byte
}

// NewSerialPort returns an unopened serial transport. A non-positive baud
// rate falls back to DefaultBaudRate.
func NewSerialPort(name string, baud int) *SerialPort {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &SerialPort{name: name, baud: baud}
}

func (s *SerialPort) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	port, err := serial.Open(s.name, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return fmt.Errorf("open %s: %w", s.name, err)
	}
	s.port = port
	s.buf = nil
	return nil
}

func (s *SerialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.buf = nil
	return err
}

func (s *SerialPort) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *SerialPort) WriteLine(line string) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return ErrNotConnected
	}
	if _, err := port.Write([]byte(line)); err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	return nil
}

func (s *SerialPort) ReadLine(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if line, ok := s.takeLine(); ok {
			return line, nil
		}

		s.mu.Lock()
		port := s.port
		s.mu.Unlock()
		if port == nil {
			return "", ErrNotConnected
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", nil
		}
		chunk := remaining
		if chunk > maxReadChunk {
			chunk = maxReadChunk
		}
		if err := port.SetReadTimeout(chunk); err != nil {
			return "", fmt.Errorf("read %s: %w", s.name, err)
		}
		n, err := port.Read(s.tmp[:])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", s.name, err)
		}
		if n > 0 {
			s.buf = append(s.buf, s.tmp[:n]...)
		}
	}
}

// takeLine cuts the first complete line out of the residual buffer.
func (s *SerialPort) takeLine() (string, bool) {
	i := bytes.IndexByte(s.buf, '\n')
	if i < 0 {
		return "", false
	}
	line := strings.TrimSpace(string(s.buf[:i]))
	s.buf = s.buf[i+1:]
	return line, true
}

func (s *SerialPort) ResetInput() error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return ErrNotConnected
	}
	s.buf = s.buf[:0]
	if err := port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset %s: %w", s.name, err)
	}
	return nil
}

func (s *SerialPort) BytesAvailable() bool {
	return len(s.buf) > 0
}
