package teleop

import (
	"math"
	"time"

	"github.com/gwillem/armctl/pkg/motion"
	"github.com/gwillem/armctl/pkg/wire"
)

// Mode selects how stick input maps onto the arm.
type Mode int

const (
	ModeJoint Mode = iota
	ModeCartesian
)

func (m Mode) String() string {
	if m == ModeCartesian {
		return "Cartesian"
	}
	return "Joint"
}

const (
	// Deadzone is the stick magnitude below which an axis reads as zero.
	Deadzone = 0.25

	// A held stick re-emits its jog at this interval so firmware that
	// times out an idle jog command keeps moving.
	resendInterval = 500 * time.Millisecond
)

// Arbiter reduces raw stick positions to at most one jog intent per
// evaluation. The strongest axis wins; ties break in fixed order
// lx, ly, rx, ry. Not safe for concurrent use.
type Arbiter struct {
	last   motion.Intent
	lastAt time.Time
	active bool
}

// Reset clears the remembered intent, so the next non-zero evaluation
// emits again regardless of history.
func (a *Arbiter) Reset() {
	a.last = nil
	a.active = false
}

// Active reports whether the last emitted intent was a stick jog.
func (a *Arbiter) Active() bool { return a.active }

// Evaluate applies deadzone and priority to one stick sample and
// returns the intent to dispatch, if any. A transition to all-zero
// emits Stop exactly once; identical intents are re-emitted only after
// the resend interval has elapsed.
func (a *Arbiter) Evaluate(lx, ly, rx, ry float64, mode Mode, now time.Time) (motion.Intent, bool) {
	if math.Abs(lx) < Deadzone {
		lx = 0
	}
	if math.Abs(ly) < Deadzone {
		ly = 0
	}
	if math.Abs(rx) < Deadzone {
		rx = 0
	}
	if math.Abs(ry) < Deadzone {
		ry = 0
	}

	if lx == 0 && ly == 0 && rx == 0 && ry == 0 {
		if !a.active {
			return nil, false
		}
		a.last = motion.Stop{}
		a.lastAt = now
		a.active = false
		return motion.Stop{}, true
	}

	intent := pickIntent(lx, ly, rx, ry, mode)
	if intent == a.last && now.Sub(a.lastAt) < resendInterval {
		return nil, false
	}
	a.last = intent
	a.lastAt = now
	a.active = true
	return intent, true
}

func pickIntent(lx, ly, rx, ry float64, mode Mode) motion.Intent {
	alx, aly, arx, ary := math.Abs(lx), math.Abs(ly), math.Abs(rx), math.Abs(ry)

	if mode == ModeJoint {
		switch {
		case alx >= aly && alx >= arx && alx >= ary:
			return motion.JointJog{Joint: 1, Dir: sign(lx)}
		case aly >= arx && aly >= ary:
			return motion.JointJog{Joint: 2, Dir: sign(ly)}
		case arx >= ary:
			return motion.JointJog{Joint: 3, Dir: sign(rx)}
		default:
			return motion.JointJog{Joint: 4, Dir: sign(ry)}
		}
	}

	switch {
	case alx >= aly && alx >= arx && alx >= ary:
		return motion.CartesianJog{Axis: wire.AxisY, Dir: sign(lx)}
	case aly >= arx && aly >= ary:
		return motion.CartesianJog{Axis: wire.AxisX, Dir: sign(ly)}
	case arx >= ary:
		return motion.CartesianJog{Axis: wire.AxisRz, Dir: sign(rx)}
	default:
		return motion.CartesianJog{Axis: wire.AxisZ, Dir: sign(ry)}
	}
}

func sign(v float64) int {
	if v > 0 {
		return 1
	}
	return -1
}
