// Package teleop turns gamepad input into jog commands for the arms.
package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/motion"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/wire"
)

const speedStepInterval = 150 * time.Millisecond

// State represents the current state of the teleop session.
type State struct {
	Mode       Mode
	Targets    motion.TargetSet
	Speed      int
	Smoothness int
	Action     string
	Robot1     robot.State
	Robot2     robot.State
	FeederPos  float64
	Timestamp  time.Time
}

// Controller consumes a gamepad event stream and drives the motion
// session. It owns the single active jog: stick jogs come through the
// arbiter, discrete buttons start and stop their own jogs directly.
type Controller struct {
	session *motion.Session
	events  <-chan InputEvent
	hz      int

	mu      sync.RWMutex
	running bool
	stateCh chan State
	logCh   chan string

	arbiter Arbiter
	mode    Mode
	targets motion.TargetSet
	stick   StickEvent

	current      motion.Intent
	currentStick bool
	action       string

	lastSpeedChange time.Time
}

// Config holds configuration for the controller.
type Config struct {
	Session *motion.Session
	Events  <-chan InputEvent
	Hz      int
}

// NewController creates a new teleop controller over an existing motion
// session and input stream.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("teleop: no motion session")
	}
	if cfg.Events == nil {
		return nil, fmt.Errorf("teleop: no input stream")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	return &Controller{
		session: cfg.Session,
		events:  cfg.Events,
		hz:      cfg.Hz,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
		action:  "IDLE",
	}, nil
}

// Close stops the control loop and halts any running jog.
func (c *Controller) Close() error {
	c.mu.Lock()
	wasRunning := c.running
	c.running = false
	c.mu.Unlock()
	if wasRunning {
		c.session.StopAll()
	}
	return nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the evaluation frequency.
func (c *Controller) Hz() int {
	return c.hz
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start begins the control loop. Blocks until the context is done or
// the event stream closes.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.log("Teleoperation started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case ev, ok := <-c.events:
			if !ok {
				c.shutdown()
				return nil
			}
			c.handleEvent(ev)
		case <-ticker.C:
			c.step()
		}
	}
}

func (c *Controller) handleEvent(ev InputEvent) {
	switch e := ev.(type) {
	case StickEvent:
		c.stick = e
	case TriggerEvent:
		c.handleTriggers(e, time.Now())
	case ButtonEvent:
		if e.Pressed {
			c.handlePress(e.Button)
		} else {
			c.handleRelease(e.Button)
		}
	}
}

// step runs one arbiter evaluation over the latest stick sample and
// publishes state.
func (c *Controller) step() {
	intent, ok := c.arbiter.Evaluate(c.stick.LX, c.stick.LY, c.stick.RX, c.stick.RY, c.mode, time.Now())
	if ok {
		if _, isStop := intent.(motion.Stop); isStop {
			// A stick falling back to center only cancels a jog the
			// stick itself started, never a held button jog.
			if c.current != nil && c.currentStick {
				c.stopAll()
			}
		} else {
			c.startJog(intent, true)
		}
	}
	c.publish()
}

func (c *Controller) handlePress(b Button) {
	switch b {
	case ButtonBack:
		c.targets = c.targets.Next()
		c.log("Switched to: %s", c.targets)
		c.stopAll()
	case ButtonStart:
		c.session.EmergencyStop()
		c.current = nil
		c.arbiter.Reset()
		c.action = "EMERGENCY STOP"
		c.log("!!! EMERGENCY STOP ALL !!!")
	case ButtonA:
		c.mode = ModeJoint
		c.stopAll()
		c.log("Movement mode: %s", c.mode)
	case ButtonB:
		c.mode = ModeCartesian
		c.stopAll()
		c.log("Movement mode: %s", c.mode)
	case ButtonX:
		c.startJog(motion.TrackJog{Dir: -1}, false)
	case ButtonY:
		c.startJog(motion.TrackJog{Dir: 1}, false)
	case ButtonLB:
		c.startJog(motion.FeederJog{Dir: -1}, false)
	case ButtonRB:
		c.startJog(motion.FeederJog{Dir: 1}, false)
	case DpadUp, DpadDown, DpadLeft, DpadRight:
		c.startJog(c.dpadIntent(b), false)
	}
}

func (c *Controller) handleRelease(b Button) {
	switch b {
	case ButtonX, ButtonY, ButtonLB, ButtonRB, DpadUp, DpadDown, DpadLeft, DpadRight:
		c.stopAll()
	}
}

// dpadIntent maps the d-pad onto the axes the sticks don't cover.
func (c *Controller) dpadIntent(b Button) motion.Intent {
	if c.mode == ModeJoint {
		switch b {
		case DpadUp:
			return motion.JointJog{Joint: 5, Dir: -1}
		case DpadDown:
			return motion.JointJog{Joint: 5, Dir: 1}
		case DpadLeft:
			return motion.JointJog{Joint: 6, Dir: -1}
		default:
			return motion.JointJog{Joint: 6, Dir: 1}
		}
	}
	switch b {
	case DpadUp:
		return motion.CartesianJog{Axis: wire.AxisRx, Dir: 1}
	case DpadDown:
		return motion.CartesianJog{Axis: wire.AxisRx, Dir: -1}
	case DpadLeft:
		return motion.CartesianJog{Axis: wire.AxisRy, Dir: -1}
	default:
		return motion.CartesianJog{Axis: wire.AxisRy, Dir: 1}
	}
}

func (c *Controller) handleTriggers(e TriggerEvent, now time.Time) {
	if now.Sub(c.lastSpeedChange) < speedStepInterval {
		return
	}
	old := c.session.Speed()
	var speed int
	if e.Right > 0.2 {
		speed = c.session.AdjustSpeed(5)
	} else if e.Left > 0.2 {
		speed = c.session.AdjustSpeed(-5)
	} else {
		return
	}
	if speed == old {
		return
	}
	c.lastSpeedChange = now
	c.log("Speed: %d%%", speed)

	// A running arm jog picks up the new speed immediately.
	switch c.current.(type) {
	case motion.JointJog, motion.TrackJog, motion.CartesianJog:
		c.session.Jog(c.targets, c.current)
	}
}

func (c *Controller) startJog(intent motion.Intent, fromStick bool) {
	if fromStick && c.current != nil && c.current != intent {
		c.session.StopAll()
	}
	res := c.session.Jog(c.targets, intent)
	c.current = intent
	c.currentStick = fromStick
	c.action = "Jogging " + intent.String()
	for name, ok := range res {
		if !ok {
			c.log("%s: jog %s failed", name, intent)
		}
	}
}

func (c *Controller) stopAll() {
	c.session.StopAll()
	c.current = nil
	c.currentStick = false
	c.arbiter.Reset()
	c.action = "IDLE"
}

func (c *Controller) publish() {
	st := State{
		Mode:       c.mode,
		Targets:    c.targets,
		Speed:      c.session.Speed(),
		Smoothness: c.session.Smoothness(),
		Action:     c.action,
		Timestamp:  time.Now(),
	}
	if arm := c.session.Arm(motion.DeviceR1); arm != nil {
		st.Robot1 = arm.State()
	}
	if arm := c.session.Arm(motion.DeviceR2); arm != nil {
		st.Robot2 = arm.State()
	}
	if fc := c.session.Feeder(); fc != nil {
		st.FeederPos = fc.Position()
	}
	c.sendState(st)
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	c.session.StopAll()
	c.log("Teleoperation stopped")
}
