package wire

import (
	"fmt"
	"strings"
)

// Single-letter commands understood by the firmware.
const (
	CmdStop          = "S"
	CmdEmergencyStop = "ES"
	CmdQueryPosition = "GP"
)

// JointJog encodes a live joint-jog command for joints 1-6, or the linear
// track as joint 7. The code embeds the direction: J1- = 10, J1+ = 11,
// J2- = 20, and so on. Speed, accel and decel are in the device's native
// 1-25 range.
func JointJog(joint, direction, speed, accel, decel int) string {
	code := joint * 10
	if direction > 0 {
		code++
	}
	return fmt.Sprintf("LJ%dS%dA%dD%d", code, speed, accel, decel)
}

// CartesianJog encodes a live cartesian jog command. The code embeds the
// axis wire id and direction the same way JointJog does.
func CartesianJog(axis Axis, direction, speed, accel, decel int) string {
	code := int(axis) * 10
	if direction > 0 {
		code++
	}
	return fmt.Sprintf("LC%dS%dA%dD%d", code, speed, accel, decel)
}

// MovePose encodes a blocking move to a cartesian pose. The cartesian array
// is ordered X, Y, Z, Rx, Ry, Rz; on the wire the rotation fields appear in
// reverse (Rz, Ry, Rx). The firmware acknowledges with one line when the
// move completes.
func MovePose(cartesian [6]float64, speed, accel, decel int) string {
	return fmt.Sprintf("MJX%.3fY%.3fZ%.3fRz%.3fRy%.3fRx%.3fSp%dAc%dDc%dRm100W0Lm000000",
		cartesian[0], cartesian[1], cartesian[2],
		cartesian[5], cartesian[4], cartesian[3],
		speed, accel, decel)
}

// MoveJoints encodes a blocking move to a set of joint angles, mirroring
// MovePose's trailer. Used when a stored pose has no cartesian snapshot.
func MoveJoints(joints [6]float64, speed, accel, decel int) string {
	return fmt.Sprintf("RJA%.3fB%.3fC%.3fD%.3fE%.3fF%.3fSp%dAc%dDc%dRm100W0Lm000000",
		joints[0], joints[1], joints[2], joints[3], joints[4], joints[5],
		speed, accel, decel)
}

// Terminate appends the trailing line feed if the command does not already
// end with one. Every line on the wire is LF-terminated.
func Terminate(cmd string) string {
	if strings.HasSuffix(cmd, "\n") {
		return cmd
	}
	return cmd + "\n"
}
