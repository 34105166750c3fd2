package wire

import (
	"strconv"
	"strings"
)

// Reading is one optionally-present telemetry field. OK is false when the
// field's marker was missing, unterminated, or its text was not numeric.
type Reading struct {
	Value float64
	OK    bool
}

// Feedback holds the fields recovered from one telemetry line. Cartesian
// is ordered X, Y, Z, Rx, Ry, Rz regardless of wire order.
type Feedback struct {
	Joints    [6]Reading
	Cartesian [6]Reading
	Track     Reading
}

// DecodeFeedback parses a telemetry line of the form
//
//	A{j1}B{j2}C{j3}D{j4}E{j5}F{j6}G{X}H{Y}I{Z}J{Rz}K{Ry}L{Rx}M...P{track}Q...
//
// Each value is the substring strictly between its marker and the marker
// that canonically follows it. A field whose marker is absent, whose
// terminating marker is absent or out of order, or whose text does not
// parse as a float is simply left unset; decoding never fails. Lines
// lacking both the A and B markers are not telemetry at all and ok is
// false.
func DecodeFeedback(line string) (fb Feedback, ok bool) {
	a := strings.IndexByte(line, 'A')
	b := strings.IndexByte(line, 'B')
	if a < 0 || b < 0 {
		return fb, false
	}

	c := strings.IndexByte(line, 'C')
	d := strings.IndexByte(line, 'D')
	e := strings.IndexByte(line, 'E')
	f := strings.IndexByte(line, 'F')
	g := strings.IndexByte(line, 'G')
	h := strings.IndexByte(line, 'H')
	i := strings.IndexByte(line, 'I')
	j := strings.IndexByte(line, 'J')
	k := strings.IndexByte(line, 'K')
	l := strings.IndexByte(line, 'L')
	m := strings.IndexByte(line, 'M')
	p := strings.IndexByte(line, 'P')
	q := strings.IndexByte(line, 'Q')

	fb.Joints[0] = field(line, a, b)
	fb.Joints[1] = field(line, b, c)
	fb.Joints[2] = field(line, c, d)
	fb.Joints[3] = field(line, d, e)
	fb.Joints[4] = field(line, e, f)
	fb.Joints[5] = field(line, f, g)

	fb.Cartesian[0] = field(line, g, h) // X
	fb.Cartesian[1] = field(line, h, i) // Y
	fb.Cartesian[2] = field(line, i, j) // Z
	fb.Cartesian[5] = field(line, j, k) // Rz
	fb.Cartesian[4] = field(line, k, l) // Ry
	fb.Cartesian[3] = field(line, l, m) // Rx

	fb.Track = field(line, p, q)

	return fb, true
}

func field(line string, start, end int) Reading {
	if start < 0 || end <= start {
		return Reading{}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(line[start+1:end]), 64)
	if err != nil {
		return Reading{}
	}
	return Reading{Value: v, OK: true}
}
