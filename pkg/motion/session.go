package motion

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/feeder"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/wire"
)

// Device identifies one of the two arms.
type Device int

const (
	DeviceR1 Device = iota
	DeviceR2
)

func (d Device) String() string {
	if d == DeviceR2 {
		return "robot2"
	}
	return "robot1"
}

// TargetSet selects which arms receive jog and move commands.
type TargetSet int

const (
	TargetR1 TargetSet = iota
	TargetR2
	TargetBoth
)

func (t TargetSet) String() string {
	switch t {
	case TargetR2:
		return "Robot 2"
	case TargetBoth:
		return "Both Robots"
	default:
		return "Robot 1"
	}
}

// Next cycles Robot 1 -> Robot 2 -> Both -> Robot 1.
func (t TargetSet) Next() TargetSet {
	return (t + 1) % 3
}

// Includes reports whether the set covers the given device.
func (t TargetSet) Includes(d Device) bool {
	switch t {
	case TargetR1:
		return d == DeviceR1
	case TargetR2:
		return d == DeviceR2
	default:
		return true
	}
}

// Devices lists the devices covered by the set, robot-1 first.
func (t TargetSet) Devices() []Device {
	switch t {
	case TargetR1:
		return []Device{DeviceR1}
	case TargetR2:
		return []Device{DeviceR2}
	default:
		return []Device{DeviceR1, DeviceR2}
	}
}

// Scale maps a user-facing speed percentage to the device's native
// range: max(1, round(pct*25/100)). Zero and negative clamp to 1.
func Scale(pct int) int {
	v := int(math.Round(float64(pct) * 25.0 / 100.0))
	if v < 1 {
		return 1
	}
	return v
}

// Accel maps a smoothness percentage to device accel/decel units.
// Higher smoothness means gentler ramps: 100 -> 1, 50 -> 13, 1 -> 25.
func Accel(pct int) int {
	return 26 - Scale(pct)
}

// Session owns the shared speed/smoothness settings and routes intents
// to whichever devices are connected. Any of the devices may be nil.
type Session struct {
	log *slog.Logger

	mu         sync.RWMutex
	arms       [2]*robot.Arm
	feeder     *feeder.Controller
	speed      int
	smoothness int
}

// NewSession creates a session over the given devices, any of which may
// be nil. Speed defaults to 25%, smoothness to 50%.
func NewSession(r1, r2 *robot.Arm, fc *feeder.Controller, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		log:        log,
		arms:       [2]*robot.Arm{r1, r2},
		feeder:     fc,
		speed:      25,
		smoothness: 50,
	}
}

// Arm returns the arm for the device, or nil if none was configured.
func (s *Session) Arm(d Device) *robot.Arm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d < 0 || int(d) >= len(s.arms) {
		return nil
	}
	return s.arms[d]
}

// Feeder returns the tube feeder, or nil if none was configured.
func (s *Session) Feeder() *feeder.Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeder
}

// Speed returns the current speed percentage.
func (s *Session) Speed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speed
}

// SetSpeed clamps to 1-100 and returns the applied value.
func (s *Session) SetSpeed(pct int) int {
	pct = clampPct(pct)
	s.mu.Lock()
	s.speed = pct
	s.mu.Unlock()
	return pct
}

// AdjustSpeed shifts the speed by delta, clamped to 1-100, and returns
// the new value.
func (s *Session) AdjustSpeed(delta int) int {
	s.mu.Lock()
	s.speed = clampPct(s.speed + delta)
	v := s.speed
	s.mu.Unlock()
	return v
}

// Smoothness returns the current smoothness percentage.
func (s *Session) Smoothness() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.smoothness
}

// SetSmoothness clamps to 1-100 and returns the applied value.
func (s *Session) SetSmoothness(pct int) int {
	pct = clampPct(pct)
	s.mu.Lock()
	s.smoothness = pct
	s.mu.Unlock()
	return pct
}

func clampPct(v int) int {
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// wireParams returns the device-unit speed, accel and decel derived
// from the current percentages.
func (s *Session) wireParams() (speed, accel, decel int) {
	s.mu.RLock()
	sp, sm := s.speed, s.smoothness
	s.mu.RUnlock()
	a := Accel(sm)
	return Scale(sp), a, a
}

// Jog dispatches the intent as fire-and-forget commands. Arm jogs go to
// every connected device in the target set; feeder jogs ignore the set;
// Stop halts every connected device. Returns per-device success.
func (s *Session) Jog(targets TargetSet, in Intent) map[string]bool {
	switch v := in.(type) {
	case Stop:
		return s.StopAll()
	case FeederJog:
		fc := s.Feeder()
		ok := false
		if fc != nil {
			if v.Dir > 0 {
				ok = fc.JogForward()
			} else {
				ok = fc.JogReverse()
			}
		}
		return map[string]bool{"feeder": ok}
	case JointJog:
		sp, ac, dc := s.wireParams()
		return s.sendToTargets(targets, wire.JointJog(v.Joint, v.Dir, sp, ac, dc))
	case TrackJog:
		sp, ac, dc := s.wireParams()
		return s.sendToTargets(targets, wire.JointJog(wire.TrackJoint, v.Dir, sp, ac, dc))
	case CartesianJog:
		sp, ac, dc := s.wireParams()
		return s.sendToTargets(targets, wire.CartesianJog(v.Axis, v.Dir, sp, ac, dc))
	default:
		return map[string]bool{}
	}
}

func (s *Session) sendToTargets(targets TargetSet, cmd string) map[string]bool {
	out := make(map[string]bool)
	for _, d := range targets.Devices() {
		arm := s.Arm(d)
		if arm == nil || !arm.Connected() {
			continue
		}
		out[arm.Name()] = arm.Send(cmd)
	}
	return out
}

// StopAll halts jogging on every connected device, feeder included.
func (s *Session) StopAll() map[string]bool {
	out := make(map[string]bool)
	for _, d := range []Device{DeviceR1, DeviceR2} {
		arm := s.Arm(d)
		if arm == nil || !arm.Connected() {
			continue
		}
		out[arm.Name()] = arm.Stop()
	}
	if fc := s.Feeder(); fc != nil && fc.Connected() {
		out["feeder"] = fc.Stop()
	}
	return out
}

// EmergencyStop fires ES at every connected arm and halts the feeder.
// Best-effort per device, never waits for acknowledgement.
func (s *Session) EmergencyStop() {
	s.log.Warn("emergency stop all")
	for _, d := range []Device{DeviceR1, DeviceR2} {
		if arm := s.Arm(d); arm != nil && arm.Connected() {
			arm.EmergencyStop()
		}
	}
	if fc := s.Feeder(); fc != nil && fc.Connected() {
		fc.Stop()
	}
}

// MoveToPose drives one device to the stored snapshot and blocks for
// the acknowledgement. A snapshot with any non-zero cartesian component
// moves by pose; otherwise it moves by joint angles.
func (s *Session) MoveToPose(d Device, snap robot.Snapshot, timeout time.Duration) robot.MoveResult {
	arm := s.Arm(d)
	if arm == nil || !arm.Connected() {
		return robot.MoveResult{Status: robot.MoveNotConnected}
	}
	sp, ac, dc := s.wireParams()
	var cmd string
	if snap.HasPose() {
		cmd = wire.MovePose(snap.Cartesian, sp, ac, dc)
	} else {
		cmd = wire.MoveJoints(snap.Joints, sp, ac, dc)
	}
	return arm.MoveAndWait(cmd, timeout)
}

// FeedTo drives the feeder to an absolute position, fire-and-forget.
func (s *Session) FeedTo(target float64) bool {
	fc := s.Feeder()
	if fc == nil || !fc.Connected() {
		return false
	}
	return fc.MoveTo(target)
}
