package pathway

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/motion"
	"github.com/gwillem/armctl/pkg/robot"
)

// PlayState is the playback lifecycle: Idle -> Playing -> Idle.
type PlayState int

const (
	Idle PlayState = iota
	Playing
)

func (s PlayState) String() string {
	if s == Playing {
		return "Playing"
	}
	return "Idle"
}

// Mover is the slice of the motion session playback needs.
type Mover interface {
	MoveToPose(d motion.Device, snap robot.Snapshot, timeout time.Duration) robot.MoveResult
	FeedTo(target float64) bool
}

// RunLog records playback runs for later inspection. Implementations
// must tolerate being called from the playback worker.
type RunLog interface {
	Begin(pathway, pathwayID, mode string, loop bool) (int64, error)
	Finish(id int64, status, detail string, waypoints int) error
}

// Run outcome statuses recorded in the RunLog.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const DefaultMoveTimeout = 60 * time.Second

// ErrBusy is returned by Start while a playback run is active.
var ErrBusy = errors.New("playback already running")

// ErrEmpty is returned by Start for a pathway without waypoints.
var ErrEmpty = errors.New("pathway has no waypoints")

// Options tune one playback run.
type Options struct {
	Loop    bool
	Timeout time.Duration // per-move, DefaultMoveTimeout if zero
}

// Player drives one pathway at a time through a Mover. A single worker
// issues all blocking moves; cancellation is cooperative and takes
// effect at waypoint and per-robot boundaries only, so a stop request
// may be delayed by up to one move timeout.
type Player struct {
	mover Mover
	runs  RunLog // may be nil
	log   *slog.Logger

	mu      sync.Mutex
	state   PlayState
	cancel  chan struct{}
	done    chan struct{}
	lastErr error
}

// NewPlayer creates a player over the mover. runs may be nil to skip
// run journaling.
func NewPlayer(m Mover, runs RunLog, log *slog.Logger) *Player {
	if log == nil {
		log = slog.Default()
	}
	return &Player{
		mover: m,
		runs:  runs,
		log:   log,
	}
}

// State returns the current lifecycle state.
func (p *Player) State() PlayState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the failure that ended the most recent run, if any.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Done returns a channel closed when the current run finishes. Returns
// a closed channel if nothing is running.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.done
}

// Start spawns the playback worker. Only one run may be active; stop
// the current one first.
func (p *Player) Start(pw *Pathway, opts Options) error {
	if pw == nil || len(pw.Waypoints) == 0 {
		return ErrEmpty
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultMoveTimeout
	}

	p.mu.Lock()
	if p.state == Playing {
		p.mu.Unlock()
		return ErrBusy
	}
	p.state = Playing
	p.lastErr = nil
	p.cancel = make(chan struct{})
	p.done = make(chan struct{})
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	go p.run(pw, opts, cancel, done)
	return nil
}

// Stop requests cancellation. Safe to call at any time, from any
// goroutine, including when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Playing || p.cancel == nil {
		return
	}
	select {
	case <-p.cancel:
	default:
		close(p.cancel)
	}
}

// Wait blocks until the current run finishes.
func (p *Player) Wait() {
	<-p.Done()
}

func (p *Player) run(pw *Pathway, opts Options, cancel, done chan struct{}) {
	var (
		status   = StatusCompleted
		detail   string
		finished int
	)

	runID := p.begin(pw, opts)
	defer func() {
		p.finish(runID, status, detail, finished)
		p.mu.Lock()
		p.state = Idle
		p.cancel = nil
		p.done = nil
		p.mu.Unlock()
		close(done)
	}()

	p.log.Info("playback started", "pathway", pw.Name, "waypoints", len(pw.Waypoints), "loop", opts.Loop)

	for {
		for i, wp := range pw.Waypoints {
			if cancelled(cancel) {
				status = StatusCancelled
				p.log.Info("playback cancelled", "pathway", pw.Name, "waypoint", i+1)
				return
			}

			// Feeder runs ahead of the arms, never awaited and never a
			// reason to abort.
			p.mover.FeedTo(wp.FeederPos)

			if wp.Robot1 != nil {
				if err := p.moveStep(motion.DeviceR1, *wp.Robot1, opts.Timeout, i); err != nil {
					status, detail = StatusFailed, err.Error()
					return
				}
			}
			if cancelled(cancel) {
				status = StatusCancelled
				p.log.Info("playback cancelled", "pathway", pw.Name, "waypoint", i+1)
				return
			}
			if wp.Robot2 != nil {
				if err := p.moveStep(motion.DeviceR2, *wp.Robot2, opts.Timeout, i); err != nil {
					status, detail = StatusFailed, err.Error()
					return
				}
			}

			finished++
			p.log.Info("waypoint reached", "pathway", pw.Name, "waypoint", i+1, "of", len(pw.Waypoints))
		}

		if !opts.Loop {
			return
		}
		// Loop restarts at the first waypoint without dropping out of
		// Playing.
	}
}

func (p *Player) moveStep(d motion.Device, snap robot.Snapshot, timeout time.Duration, idx int) error {
	res := p.mover.MoveToPose(d, snap, timeout)
	if res.OK() {
		return nil
	}
	err := fmt.Errorf("waypoint %d %s: %s", idx+1, d, res)
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
	p.log.Warn("playback aborted", "err", err)
	return err
}

func (p *Player) begin(pw *Pathway, opts Options) int64 {
	if p.runs == nil {
		return 0
	}
	id, err := p.runs.Begin(pw.Name, pw.ID, string(pw.RobotMode), opts.Loop)
	if err != nil {
		p.log.Warn("run journal begin failed", "err", err)
		return 0
	}
	return id
}

func (p *Player) finish(id int64, status, detail string, waypoints int) {
	if p.runs == nil || id == 0 {
		return
	}
	if err := p.runs.Finish(id, status, detail, waypoints); err != nil {
		p.log.Warn("run journal finish failed", "err", err)
	}
}

func cancelled(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
