package teleop

import (
	"testing"
	"time"

	"github.com/gwillem/armctl/pkg/motion"
	"github.com/gwillem/armctl/pkg/wire"
)

func TestArbiterAxisMapping(t *testing.T) {
	tests := []struct {
		name           string
		lx, ly, rx, ry float64
		mode           Mode
		want           motion.Intent
	}{
		{"lx joint", 0.5, 0, 0, 0, ModeJoint, motion.JointJog{Joint: 1, Dir: 1}},
		{"lx negative", -0.5, 0, 0, 0, ModeJoint, motion.JointJog{Joint: 1, Dir: -1}},
		{"ly joint", 0, 0.8, 0, 0, ModeJoint, motion.JointJog{Joint: 2, Dir: 1}},
		{"rx joint", 0, 0, -0.9, 0, ModeJoint, motion.JointJog{Joint: 3, Dir: -1}},
		{"ry joint", 0, 0, 0, 0.7, ModeJoint, motion.JointJog{Joint: 4, Dir: 1}},
		{"strongest wins", 0.3, -0.9, 0, 0, ModeJoint, motion.JointJog{Joint: 2, Dir: -1}},
		{"tie goes to lx", 0.5, -0.5, 0.5, 0.5, ModeJoint, motion.JointJog{Joint: 1, Dir: 1}},
		{"tie goes to ly over rx", 0, 0.5, -0.5, 0.5, ModeJoint, motion.JointJog{Joint: 2, Dir: 1}},
		{"lx cartesian", 0.5, 0, 0, 0, ModeCartesian, motion.CartesianJog{Axis: wire.AxisY, Dir: 1}},
		{"ly cartesian", 0, -0.8, 0, 0, ModeCartesian, motion.CartesianJog{Axis: wire.AxisX, Dir: -1}},
		{"rx cartesian", 0, 0, 0.6, 0, ModeCartesian, motion.CartesianJog{Axis: wire.AxisRz, Dir: 1}},
		{"ry cartesian", 0, 0, 0, -0.6, ModeCartesian, motion.CartesianJog{Axis: wire.AxisZ, Dir: -1}},
	}

	for _, tt := range tests {
		var a Arbiter
		got, ok := a.Evaluate(tt.lx, tt.ly, tt.rx, tt.ry, tt.mode, time.Now())
		if !ok {
			t.Errorf("%s: no intent emitted", tt.name)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestArbiterIdleEmitsNothing(t *testing.T) {
	var a Arbiter
	if _, ok := a.Evaluate(0, 0, 0, 0, ModeJoint, time.Now()); ok {
		t.Error("idle sticks on a fresh arbiter should not emit")
	}
	if _, ok := a.Evaluate(0.1, 0.1, 0.1, 0.1, ModeJoint, time.Now()); ok {
		t.Error("sub-deadzone input on a fresh arbiter should not emit")
	}
}

func TestArbiterStopOnReturnToCenter(t *testing.T) {
	var a Arbiter
	now := time.Now()

	if _, ok := a.Evaluate(0.5, 0, 0, 0, ModeJoint, now); !ok {
		t.Fatal("expected jog")
	}

	got, ok := a.Evaluate(0.1, 0.1, 0.1, 0.1, ModeJoint, now)
	if !ok {
		t.Fatal("expected Stop on return below deadzone")
	}
	if _, isStop := got.(motion.Stop); !isStop {
		t.Fatalf("got %v, want Stop", got)
	}

	// Stop fires once, not every idle tick.
	if _, ok := a.Evaluate(0, 0, 0, 0, ModeJoint, now); ok {
		t.Error("idle after Stop should not emit again")
	}
}

func TestArbiterHeldStickResends(t *testing.T) {
	var a Arbiter
	now := time.Now()

	if _, ok := a.Evaluate(0.5, 0, 0, 0, ModeJoint, now); !ok {
		t.Fatal("expected first emit")
	}
	if _, ok := a.Evaluate(0.5, 0, 0, 0, ModeJoint, now.Add(100*time.Millisecond)); ok {
		t.Error("identical intent inside resend window should not emit")
	}
	got, ok := a.Evaluate(0.5, 0, 0, 0, ModeJoint, now.Add(600*time.Millisecond))
	if !ok {
		t.Fatal("held stick should re-emit after the resend interval")
	}
	if got != (motion.JointJog{Joint: 1, Dir: 1}) {
		t.Errorf("re-emit got %v", got)
	}
}

func TestArbiterDirectionChangeEmitsImmediately(t *testing.T) {
	var a Arbiter
	now := time.Now()

	a.Evaluate(0.5, 0, 0, 0, ModeJoint, now)
	got, ok := a.Evaluate(-0.5, 0, 0, 0, ModeJoint, now.Add(10*time.Millisecond))
	if !ok {
		t.Fatal("direction flip should emit without waiting")
	}
	if got != (motion.JointJog{Joint: 1, Dir: -1}) {
		t.Errorf("got %v, want J1-", got)
	}
}

func TestArbiterResetForcesReemit(t *testing.T) {
	var a Arbiter
	now := time.Now()

	a.Evaluate(0.5, 0, 0, 0, ModeJoint, now)
	a.Reset()
	if _, ok := a.Evaluate(0.5, 0, 0, 0, ModeJoint, now.Add(time.Millisecond)); !ok {
		t.Error("after Reset the same input should emit again")
	}
}
