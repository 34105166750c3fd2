package wire

import "testing"

const canonicalLine = "A1.10B2.20C3.30D4.40E5.50F6.60G100.00H200.00I300.00J10.00K20.00L30.00MP55.50Q0.00"

func TestDecodeFeedbackCanonical(t *testing.T) {
	fb, ok := DecodeFeedback(canonicalLine)
	if !ok {
		t.Fatal("canonical line not recognized as telemetry")
	}

	wantJoints := [6]float64{1.1, 2.2, 3.3, 4.4, 5.5, 6.6}
	for i, want := range wantJoints {
		if !fb.Joints[i].OK {
			t.Errorf("joint %d not decoded", i+1)
			continue
		}
		if fb.Joints[i].Value != want {
			t.Errorf("joint %d = %v, want %v", i+1, fb.Joints[i].Value, want)
		}
	}

	// X, Y, Z, Rx, Ry, Rz (wire carries rotations as Rz, Ry, Rx)
	wantCart := [6]float64{100, 200, 300, 30, 20, 10}
	for i, want := range wantCart {
		if !fb.Cartesian[i].OK {
			t.Errorf("cartesian %d not decoded", i)
			continue
		}
		if fb.Cartesian[i].Value != want {
			t.Errorf("cartesian %d = %v, want %v", i, fb.Cartesian[i].Value, want)
		}
	}

	if !fb.Track.OK || fb.Track.Value != 55.5 {
		t.Errorf("track = %+v, want 55.5", fb.Track)
	}
}

func TestDecodeFeedbackMissingMarker(t *testing.T) {
	// No F marker: joint 6 has no value, and joint 5 loses its terminator.
	line := "A1.10B2.20C3.30D4.40E5.50G100.00H200.00I300.00J10.00K20.00L30.00M"
	fb, ok := DecodeFeedback(line)
	if !ok {
		t.Fatal("line not recognized as telemetry")
	}
	if fb.Joints[5].OK {
		t.Error("joint 6 decoded despite missing F marker")
	}
	if fb.Joints[4].OK {
		t.Error("joint 5 decoded despite unterminated field")
	}
	if !fb.Joints[0].OK || fb.Joints[0].Value != 1.1 {
		t.Errorf("joint 1 = %+v, want 1.1", fb.Joints[0])
	}
	if !fb.Cartesian[0].OK || fb.Cartesian[0].Value != 100 {
		t.Errorf("X = %+v, want 100", fb.Cartesian[0])
	}
}

func TestDecodeFeedbackNonNumeric(t *testing.T) {
	line := "AxyzB2.20C3.30D4.40E5.50F6.60G1.00H2.00I3.00J4.00K5.00L6.00M"
	fb, ok := DecodeFeedback(line)
	if !ok {
		t.Fatal("line not recognized as telemetry")
	}
	if fb.Joints[0].OK {
		t.Error("joint 1 decoded from non-numeric text")
	}
	if !fb.Joints[1].OK || fb.Joints[1].Value != 2.2 {
		t.Errorf("joint 2 = %+v, want 2.2", fb.Joints[1])
	}
}

func TestDecodeFeedbackNotTelemetry(t *testing.T) {
	for _, line := range []string{"", "hello", "Done", "B5.0C6.0", "E21 limit"} {
		if _, ok := DecodeFeedback(line); ok {
			t.Errorf("DecodeFeedback(%q) accepted as telemetry", line)
		}
	}
}

func TestDecodeFeedbackOutOfOrderMarkers(t *testing.T) {
	// B before A: recognized as telemetry but the A field has no valid span.
	fb, ok := DecodeFeedback("B5.0A3.0C6.0")
	if !ok {
		t.Fatal("line not recognized as telemetry")
	}
	if fb.Joints[0].OK {
		t.Error("joint 1 decoded from inverted marker order")
	}
}

func TestDecodeFeedbackTrackOnlyPair(t *testing.T) {
	fb, ok := DecodeFeedback("A1.0B2.0P12.75Q")
	if !ok {
		t.Fatal("line not recognized as telemetry")
	}
	if !fb.Track.OK || fb.Track.Value != 12.75 {
		t.Errorf("track = %+v, want 12.75", fb.Track)
	}
}
