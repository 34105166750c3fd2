// Package pathway records, persists and plays back sequences of arm
// poses. Each pathway is one JSON file holding an ordered list of
// waypoints with optional per-robot snapshots and an absolute feeder
// position.
package pathway

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/armctl/pkg/motion"
	"github.com/gwillem/armctl/pkg/robot"
)

// RobotMode records which arms a pathway was captured for.
type RobotMode string

const (
	ModeR1   RobotMode = "r1"
	ModeR2   RobotMode = "r2"
	ModeBoth RobotMode = "both"
)

// Targets maps the stored mode back onto a motion target set.
func (m RobotMode) Targets() motion.TargetSet {
	switch m {
	case ModeR2:
		return motion.TargetR2
	case ModeBoth:
		return motion.TargetBoth
	default:
		return motion.TargetR1
	}
}

// ModeForTargets records a target set as a pathway mode.
func ModeForTargets(t motion.TargetSet) RobotMode {
	switch t {
	case motion.TargetR2:
		return ModeR2
	case motion.TargetBoth:
		return ModeBoth
	default:
		return ModeR1
	}
}

// Waypoint is one captured step: a snapshot per active robot plus the
// absolute feeder position at capture time.
type Waypoint struct {
	Robot1    *robot.Snapshot `json:"robot1,omitempty"`
	Robot2    *robot.Snapshot `json:"robot2,omitempty"`
	FeederPos float64         `json:"feeder_position"`
}

// HasSnapshot reports whether at least one robot snapshot is present.
// A waypoint without any is not playable and must not be stored.
func (w Waypoint) HasSnapshot() bool {
	return w.Robot1 != nil || w.Robot2 != nil
}

// Pathway is the persisted record.
type Pathway struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	RobotMode RobotMode  `json:"robot_mode"`
	Waypoints []Waypoint `json:"waypoints"`
	Created   string     `json:"created"`
}

// ErrNoSnapshot is returned when appending a waypoint that references
// no robot at all.
var ErrNoSnapshot = errors.New("waypoint has no robot snapshot")

// Recorder accumulates waypoints during a live session. Waypoints are
// immutable once appended; only the most recent can be removed.
type Recorder struct {
	mu        sync.Mutex
	waypoints []Waypoint
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append adds a waypoint to the end of the sequence.
func (r *Recorder) Append(w Waypoint) error {
	if !w.HasSnapshot() {
		return ErrNoSnapshot
	}
	r.mu.Lock()
	r.waypoints = append(r.waypoints, w)
	r.mu.Unlock()
	return nil
}

// RemoveLast pops the most recently added waypoint.
func (r *Recorder) RemoveLast() (Waypoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.waypoints) == 0 {
		return Waypoint{}, false
	}
	w := r.waypoints[len(r.waypoints)-1]
	r.waypoints = r.waypoints[:len(r.waypoints)-1]
	return w, true
}

// Clear drops the whole sequence.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.waypoints = nil
	r.mu.Unlock()
}

// Len returns the number of recorded waypoints.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waypoints)
}

// Waypoints returns a copy of the recorded sequence in insertion order.
func (r *Recorder) Waypoints() []Waypoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Waypoint, len(r.waypoints))
	copy(out, r.waypoints)
	return out
}

// Pathway freezes the recording into a named, persistable record.
func (r *Recorder) Pathway(name string, mode RobotMode) (*Pathway, error) {
	wps := r.Waypoints()
	if len(wps) == 0 {
		return nil, fmt.Errorf("pathway %q: no waypoints recorded", name)
	}
	return &Pathway{
		ID:        uuid.NewString(),
		Name:      name,
		RobotMode: mode,
		Waypoints: wps,
		Created:   time.Now().Format(time.RFC3339),
	}, nil
}
