// Package motion turns jog intents and stored poses into wire commands
// for one or two arms plus an optional tube feeder, applying the shared
// speed and smoothness settings.
package motion

import (
	"fmt"

	"github.com/gwillem/armctl/pkg/wire"
)

// Intent is a closed set of motion requests. Exactly one non-Stop intent
// is active system-wide at any instant.
type Intent interface {
	fmt.Stringer
	intent()
}

// JointJog is a continuous jog of one main joint (1-6).
type JointJog struct {
	Joint int
	Dir   int // +1 or -1
}

// TrackJog is a continuous jog of the linear track.
type TrackJog struct {
	Dir int
}

// CartesianJog is a continuous jog along one cartesian axis.
type CartesianJog struct {
	Axis wire.Axis
	Dir  int
}

// FeederJog is a continuous jog of the tube feeder.
type FeederJog struct {
	Dir int
}

// Stop ends whatever jog is running.
type Stop struct{}

func (JointJog) intent()     {}
func (TrackJog) intent()     {}
func (CartesianJog) intent() {}
func (FeederJog) intent()    {}
func (Stop) intent()         {}

func (j JointJog) String() string {
	return fmt.Sprintf("J%d%s", j.Joint, dirSign(j.Dir))
}

func (t TrackJog) String() string {
	return "J7" + dirSign(t.Dir)
}

func (c CartesianJog) String() string {
	return c.Axis.String() + dirSign(c.Dir)
}

func (f FeederJog) String() string {
	return "feeder" + dirSign(f.Dir)
}

func (Stop) String() string { return "stop" }

func dirSign(dir int) string {
	if dir > 0 {
		return "+"
	}
	return "-"
}
