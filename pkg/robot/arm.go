package robot

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/wire"
)

// drainInterval is the poll window of the background feedback reader. A
// pending move request is picked up within one interval.
const drainInterval = 50 * time.Millisecond

// telemetryPollInterval is how long the link may stay quiet before the
// reader queries positions itself. Jogs and moves produce their own
// feedback; the poll covers an arm standing still.
const telemetryPollInterval = time.Second

// pollReplyWindow bounds the wait for a position-query reply. The reply
// must be consumed before any move exchange starts, or it would be read
// as the move acknowledgement.
const pollReplyWindow = 250 * time.Millisecond

// DefaultMoveTimeout bounds the wait for a blocking move acknowledgement.
const DefaultMoveTimeout = 60 * time.Second

// MoveStatus classifies the firmware's reply to a blocking move.
type MoveStatus int

const (
	MoveOK MoveStatus = iota
	MoveTimeout
	MoveDeviceError
	MoveConnectionLost
	MoveNotConnected
)

func (s MoveStatus) String() string {
	switch s {
	case MoveOK:
		return "ok"
	case MoveTimeout:
		return "timeout"
	case MoveDeviceError:
		return "device error"
	case MoveConnectionLost:
		return "connection lost"
	case MoveNotConnected:
		return "not connected"
	}
	return "unknown"
}

// MoveResult is the classified outcome of one blocking move. Reply holds
// the raw acknowledgement line; for MoveDeviceError it is the error
// payload verbatim.
type MoveResult struct {
	Status MoveStatus
	Reply  string
}

// OK reports whether the move completed.
func (r MoveResult) OK() bool { return r.Status == MoveOK }

func (r MoveResult) String() string {
	if r.Status != MoveOK && r.Reply != "" {
		return r.Status.String() + ": " + r.Reply
	}
	return r.Status.String()
}

// moveRequest hands the port to the reader goroutine for one exclusive
// write-then-read exchange while draining is suspended.
type moveRequest struct {
	line    string
	timeout time.Duration
	reply   chan moveReply
}

type moveReply struct {
	line string
	err  error
}

// Arm is one robot device attached over a line transport. A background
// reader drains telemetry into the state cache; blocking moves are handed
// to that same goroutine through a request channel, so exactly one reader
// ever touches the port and a stray telemetry line can never be consumed
// as a move acknowledgement.
type Arm struct {
	name string
	tr   Transport
	log  *slog.Logger

	writeMu sync.Mutex // serializes raw writes
	moveMu  sync.Mutex // single outstanding MoveAndWait per arm

	mu    sync.RWMutex
	state State
	done  chan struct{}

	moveCh chan *moveRequest
}

// NewArm creates an arm session over the given transport. The link is not
// opened until Connect. A nil logger falls back to slog.Default.
func NewArm(name string, tr Transport, log *slog.Logger) *Arm {
	if log == nil {
		log = slog.Default()
	}
	return &Arm{
		name:   name,
		tr:     tr,
		log:    log.With("device", name),
		moveCh: make(chan *moveRequest),
	}
}

// Name returns the device label the arm was created with.
func (a *Arm) Name() string { return a.name }

// Connect opens the transport and starts the feedback drain.
func (a *Arm) Connect() error {
	a.mu.Lock()
	if a.state.Connected {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if err := a.tr.Open(); err != nil {
		return err
	}

	a.mu.Lock()
	a.state = State{Connected: true}
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go a.readLoop(done)
	a.log.Info("connected")
	return nil
}

// Close stops any jog, halts the drain and closes the transport. Closing
// an already closed or lost link is a no-op.
func (a *Arm) Close() error {
	if a.Connected() {
		a.Stop()
	}

	a.mu.Lock()
	a.state.Connected = false
	done := a.done
	a.done = nil
	a.mu.Unlock()

	if done != nil {
		close(done)
	}
	if !a.tr.IsOpen() {
		return nil
	}
	err := a.tr.Close()
	a.log.Info("disconnected")
	return err
}

// Connected reports whether the session considers the link up.
func (a *Arm) Connected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Connected
}

// State returns a copy of the last-known device state.
func (a *Arm) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Snapshot returns the current positions for waypoint capture.
func (a *Arm) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Snapshot
}

// Send writes a fire-and-forget command line. It reports false when the
// arm is not connected or the write failed; a write failure marks the arm
// disconnected.
func (a *Arm) Send(cmd string) bool {
	if !a.Connected() {
		return false
	}
	if err := a.write(cmd); err != nil {
		a.lost(err)
		return false
	}
	return true
}

// Stop halts all jogging motion.
func (a *Arm) Stop() bool { return a.Send(wire.CmdStop) }

// EmergencyStop issues the firmware's emergency stop. It is an ordinary
// fire-and-forget write and is safe from any goroutine at any time,
// including while a MoveAndWait is outstanding.
func (a *Arm) EmergencyStop() bool { return a.Send(wire.CmdEmergencyStop) }

// QueryPosition asks the firmware to report positions; the reply arrives
// as a telemetry line through the drain.
func (a *Arm) QueryPosition() bool { return a.Send(wire.CmdQueryPosition) }

// MoveAndWait sends a blocking move command and waits for the single
// acknowledgement line. For the duration of the exchange the background
// drain is suspended: the request is executed on the reader goroutine,
// which clears pending input, writes the command, then reads exactly one
// line with the given timeout. Callers must not overlap MoveAndWait calls
// on one arm; the session serializes them regardless.
func (a *Arm) MoveAndWait(cmd string, timeout time.Duration) MoveResult {
	if timeout <= 0 {
		timeout = DefaultMoveTimeout
	}

	a.moveMu.Lock()
	defer a.moveMu.Unlock()

	a.mu.RLock()
	connected, done := a.state.Connected, a.done
	a.mu.RUnlock()
	if !connected || done == nil {
		return MoveResult{Status: MoveNotConnected}
	}

	req := &moveRequest{line: cmd, timeout: timeout, reply: make(chan moveReply, 1)}
	select {
	case a.moveCh <- req:
	case <-done:
		return MoveResult{Status: MoveNotConnected}
	}

	var rep moveReply
	select {
	case rep = <-req.reply:
	case <-done:
		return MoveResult{Status: MoveNotConnected}
	}
	if rep.err != nil {
		a.lost(rep.err)
		return MoveResult{Status: MoveConnectionLost, Reply: rep.err.Error()}
	}
	return a.classify(rep.line)
}

func (a *Arm) classify(line string) MoveResult {
	switch {
	case line == "":
		return MoveResult{Status: MoveTimeout}
	case strings.HasPrefix(line, "E"):
		return MoveResult{Status: MoveDeviceError, Reply: line}
	default:
		a.mu.Lock()
		a.state.LastFeedback = line
		a.mu.Unlock()
		return MoveResult{Status: MoveOK, Reply: line}
	}
}

func (a *Arm) write(cmd string) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.tr.WriteLine(wire.Terminate(cmd))
}

// lost marks the device disconnected after a transport failure and wakes
// anyone parked on the move handshake. During an orderly Close the flag
// is already down and this is a no-op.
func (a *Arm) lost(err error) {
	a.mu.Lock()
	wasConnected := a.state.Connected
	a.state.Connected = false
	done := a.done
	a.done = nil
	a.mu.Unlock()
	if done != nil {
		close(done)
	}
	if wasConnected {
		a.log.Warn("connection lost", "error", err)
	}
}

// readLoop owns all reads from the transport. It alternates between short
// telemetry polls and serving move requests until the done channel closes
// or the link fails. On a quiet link it issues GP queries and waits for
// the reply in place, on this same goroutine.
func (a *Arm) readLoop(done chan struct{}) {
	lastSeen := time.Now()
	for {
		select {
		case <-done:
			return
		case req := <-a.moveCh:
			req.reply <- a.exchange(req)
			lastSeen = time.Now()
			continue
		default:
		}

		if !a.Connected() {
			return
		}

		window := drainInterval
		if time.Since(lastSeen) >= telemetryPollInterval {
			if !a.Send(wire.CmdQueryPosition) {
				return
			}
			window = pollReplyWindow
			lastSeen = time.Now()
		}
		line, err := a.tr.ReadLine(window)
		if err != nil {
			a.lost(err)
			return
		}
		if line != "" {
			a.apply(line)
			lastSeen = time.Now()
		}
	}
}

// exchange performs the exclusive move handshake on the reader goroutine.
func (a *Arm) exchange(req *moveRequest) moveReply {
	if err := a.tr.ResetInput(); err != nil {
		return moveReply{err: err}
	}
	if err := a.write(req.line); err != nil {
		return moveReply{err: err}
	}
	line, err := a.tr.ReadLine(req.timeout)
	if err != nil {
		return moveReply{err: err}
	}
	return moveReply{line: line}
}

// apply folds one drained line into the state cache. Non-telemetry lines
// still refresh the diagnostic raw feedback.
func (a *Arm) apply(line string) {
	fb, ok := wire.DecodeFeedback(line)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.LastFeedback = line
	if !ok {
		return
	}
	for i, r := range fb.Joints {
		if r.OK {
			a.state.Joints[i] = r.Value
		}
	}
	for i, r := range fb.Cartesian {
		if r.OK {
			a.state.Cartesian[i] = r.Value
		}
	}
	if fb.Track.OK {
		a.state.Track = fb.Track.Value
	}
}
