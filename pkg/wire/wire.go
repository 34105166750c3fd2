// Package wire implements the line-oriented command protocol spoken by
// AR-style arm controllers, plus the decoder for their telemetry lines.
package wire

// NumJoints is the number of main arm joints.
const NumJoints = 6

// TrackJoint is the joint number the firmware assigns to the linear track.
const TrackJoint = 7

// Axis identifies a cartesian axis. The numeric values are the wire ids
// used by cartesian jog commands.
type Axis int

const (
	AxisX  Axis = 1
	AxisY  Axis = 2
	AxisZ  Axis = 3
	AxisRx Axis = 4
	AxisRy Axis = 5
	AxisRz Axis = 6
)

// String returns the axis label as it appears in move commands.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	case AxisRx:
		return "Rx"
	case AxisRy:
		return "Ry"
	case AxisRz:
		return "Rz"
	}
	return "?"
}

// AllAxes returns the cartesian axes in wire-id order.
func AllAxes() []Axis {
	return []Axis{AxisX, AxisY, AxisZ, AxisRx, AxisRy, AxisRz}
}
