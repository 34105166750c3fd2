// Package feeder drives a tube feeder over a simple line protocol:
// F{mm} feeds, R{mm} retracts, S{v} sets speed, J+/J- jog, STOP halts,
// HOME re-zeroes and POS asks for a "POS:{mm}" report.
package feeder

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/wire"
)

const (
	DefaultBaudRate = 115200

	drainInterval = 50 * time.Millisecond

	// Moves smaller than this are not worth a command.
	positionEpsilon = 0.01
)

// Controller is a session with one feeder device. Position is tracked
// optimistically on each feed/retract and corrected whenever the device
// reports a POS: line.
type Controller struct {
	name string
	tr   robot.Transport
	log  *slog.Logger

	writeMu sync.Mutex

	mu        sync.RWMutex
	connected bool
	position  float64

	done chan struct{}
}

// NewController creates a feeder session over the given transport. The
// link is not opened until Connect. A nil logger falls back to slog.Default.
func NewController(name string, tr robot.Transport, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		name: name,
		tr:   tr,
		log:  log.With("device", name),
	}
}

// Name returns the device label the controller was created with.
func (c *Controller) Name() string { return c.name }

// Connect opens the transport and starts draining position reports.
func (c *Controller) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.tr.Open(); err != nil {
		return err
	}

	c.mu.Lock()
	c.connected = true
	c.position = 0
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.readLoop(done)
	c.log.Info("connected")
	return nil
}

// Close halts the feeder and closes the transport.
func (c *Controller) Close() error {
	if !c.Connected() {
		return nil
	}
	c.Stop()

	c.mu.Lock()
	c.connected = false
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.mu.Unlock()

	return c.tr.Close()
}

// Connected reports whether the link is up.
func (c *Controller) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Position returns the last known feeder position in mm.
func (c *Controller) Position() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

// Feed advances the feeder by mm. Returns false if not connected or the
// write failed.
func (c *Controller) Feed(mm float64) bool {
	if mm <= 0 {
		return false
	}
	if !c.send("F" + formatMM(mm)) {
		return false
	}
	c.mu.Lock()
	c.position += mm
	c.mu.Unlock()
	return true
}

// Retract pulls the feeder back by mm.
func (c *Controller) Retract(mm float64) bool {
	if mm <= 0 {
		return false
	}
	if !c.send("R" + formatMM(mm)) {
		return false
	}
	c.mu.Lock()
	c.position -= mm
	c.mu.Unlock()
	return true
}

// SetSpeed sets the feed rate in mm/s.
func (c *Controller) SetSpeed(mmPerSec int) bool {
	return c.send("S" + strconv.Itoa(mmPerSec))
}

// JogForward starts a continuous forward jog.
func (c *Controller) JogForward() bool { return c.send("J+") }

// JogReverse starts a continuous reverse jog.
func (c *Controller) JogReverse() bool { return c.send("J-") }

// Stop halts any motion.
func (c *Controller) Stop() bool { return c.send("STOP") }

// Home re-zeroes the feeder.
func (c *Controller) Home() bool {
	if !c.send("HOME") {
		return false
	}
	c.mu.Lock()
	c.position = 0
	c.mu.Unlock()
	return true
}

// QueryPosition asks the device for a POS: report.
func (c *Controller) QueryPosition() bool { return c.send("POS") }

// MoveTo feeds or retracts to reach the target position. Targets within
// a hundredth of a millimeter are treated as already reached.
func (c *Controller) MoveTo(target float64) bool {
	delta := target - c.Position()
	if delta > -positionEpsilon && delta < positionEpsilon {
		return true
	}
	if delta > 0 {
		return c.Feed(delta)
	}
	return c.Retract(-delta)
}

func (c *Controller) send(cmd string) bool {
	if !c.Connected() {
		return false
	}
	c.writeMu.Lock()
	err := c.tr.WriteLine(wire.Terminate(cmd))
	c.writeMu.Unlock()
	if err != nil {
		c.lost(err)
		return false
	}
	return true
}

func (c *Controller) lost(err error) {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()
	if wasConnected {
		c.log.Warn("connection lost", "err", err)
	}
}

func (c *Controller) readLoop(done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		if !c.Connected() {
			return
		}
		line, err := c.tr.ReadLine(drainInterval)
		if err != nil {
			c.lost(err)
			return
		}
		if line != "" {
			c.apply(line)
		}
	}
}

func (c *Controller) apply(line string) {
	rest, ok := strings.CutPrefix(line, "POS:")
	if !ok {
		return
	}
	pos, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.position = pos
	c.mu.Unlock()
}

// formatMM renders a distance rounded to a hundredth of a millimeter,
// without trailing zeros, so whole millimeters go out as "F5" rather
// than "F5.000000".
func formatMM(mm float64) string {
	return strconv.FormatFloat(math.Round(mm*100)/100, 'f', -1, 64)
}
