// Package robot provides the per-device serial session: a line transport,
// the last-known axis state cache, and the background feedback drain with
// its blocking move handshake.
package robot

import (
	"errors"
	"time"
)

// ErrNotConnected is returned by operations attempted on a device whose
// link is not open.
var ErrNotConnected = errors.New("device not connected")

// Transport is a line-oriented link to one device.
//
// WriteLine, Open, Close and IsOpen are safe to call from any goroutine.
// ReadLine, ResetInput and BytesAvailable are owned by a single reader
// goroutine; an Arm enforces that ownership.
type Transport interface {
	Open() error
	Close() error

	// WriteLine writes one LF-terminated line.
	WriteLine(line string) error

	// ReadLine returns the next input line with its terminator stripped,
	// blocking for at most timeout. It returns "" with a nil error when
	// no complete line arrived in time.
	ReadLine(timeout time.Duration) (string, error)

	// ResetInput discards buffered input that has not been consumed.
	ResetInput() error

	// BytesAvailable reports whether consumed-but-unread input is waiting.
	BytesAvailable() bool

	IsOpen() bool
}
