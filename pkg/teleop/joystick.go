package teleop

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xcafed00d/joystick"
)

// Linux js axis layout for an Xbox-class pad.
const (
	axisLX = 0
	axisLY = 1
	axisLT = 2
	axisRX = 3
	axisRY = 4
	axisRT = 5
	axisHX = 6
	axisHY = 7
)

// Button bit positions in the js report.
var buttonBits = map[uint]Button{
	0: ButtonA,
	1: ButtonB,
	2: ButtonX,
	3: ButtonY,
	4: ButtonLB,
	5: ButtonRB,
	6: ButtonBack,
	7: ButtonStart,
}

const hatThreshold = 16000

// Source polls one gamepad and publishes typed input events. The event
// channel closes when the poll loop exits.
type Source struct {
	js  joystick.Joystick
	hz  int
	log *slog.Logger
	out chan InputEvent

	prevButtons uint32
	prevHatX    int
	prevHatY    int
	prevStick   [4]int
	haveStick   bool
}

// OpenSource opens gamepad id (0 for the first pad) and prepares the
// event stream. Run must be called to start polling.
func OpenSource(id, hz int, log *slog.Logger) (*Source, error) {
	if log == nil {
		log = slog.Default()
	}
	js, err := joystick.Open(id)
	if err != nil {
		return nil, fmt.Errorf("open gamepad %d: %w", id, err)
	}
	if hz <= 0 {
		hz = 60
	}
	return &Source{
		js:  js,
		hz:  hz,
		log: log.With("device", "gamepad"),
		out: make(chan InputEvent, 64),
	}, nil
}

// Name returns the pad's reported name.
func (s *Source) Name() string { return s.js.Name() }

// Events returns the stream consumed by the controller.
func (s *Source) Events() <-chan InputEvent { return s.out }

// Run polls the pad until the context is done or the device fails.
// The event channel is closed on exit.
func (s *Source) Run(ctx context.Context) error {
	defer close(s.out)
	defer s.js.Close()

	s.log.Info("polling", "name", s.js.Name(), "axes", s.js.AxisCount(), "buttons", s.js.ButtonCount())

	ticker := time.NewTicker(time.Second / time.Duration(s.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			state, err := s.js.Read()
			if err != nil {
				s.log.Warn("gamepad read failed", "err", err)
				return err
			}
			s.emit(ctx, state)
		}
	}
}

func (s *Source) emit(ctx context.Context, st joystick.State) {
	for bit, btn := range buttonBits {
		mask := uint32(1) << bit
		was := s.prevButtons&mask != 0
		is := st.Buttons&mask != 0
		if was != is {
			s.send(ctx, ButtonEvent{Button: btn, Pressed: is})
		}
	}
	s.prevButtons = st.Buttons

	hatX, hatY := axis(st, axisHX), axis(st, axisHY)
	s.emitHat(ctx, &s.prevHatX, hatX, DpadLeft, DpadRight)
	s.emitHat(ctx, &s.prevHatY, hatY, DpadUp, DpadDown)

	// Sticks are emitted on change only so another event source (the
	// keyboard) is not drowned out by a resting pad. Up on the physical
	// stick reads negative from the driver.
	raw := [4]int{axis(st, axisLX), axis(st, axisLY), axis(st, axisRX), axis(st, axisRY)}
	if !s.haveStick || raw != s.prevStick {
		s.prevStick = raw
		s.haveStick = true
		s.send(ctx, StickEvent{
			LX: norm(raw[0]),
			LY: -norm(raw[1]),
			RX: norm(raw[2]),
			RY: -norm(raw[3]),
		})
	}

	// Triggers are sampled every tick; a held trigger keeps stepping the
	// speed at the controller's rate limit.
	s.send(ctx, TriggerEvent{
		Left:  trigger(axis(st, axisLT)),
		Right: trigger(axis(st, axisRT)),
	})
}

// emitHat turns a hat axis into press/release pairs for its two
// directions.
func (s *Source) emitHat(ctx context.Context, prev *int, v int, neg, pos Button) {
	dir := 0
	if v < -hatThreshold {
		dir = -1
	} else if v > hatThreshold {
		dir = 1
	}
	if dir == *prev {
		return
	}
	switch *prev {
	case -1:
		s.send(ctx, ButtonEvent{Button: neg, Pressed: false})
	case 1:
		s.send(ctx, ButtonEvent{Button: pos, Pressed: false})
	}
	switch dir {
	case -1:
		s.send(ctx, ButtonEvent{Button: neg, Pressed: true})
	case 1:
		s.send(ctx, ButtonEvent{Button: pos, Pressed: true})
	}
	*prev = dir
}

func (s *Source) send(ctx context.Context, ev InputEvent) {
	select {
	case s.out <- ev:
	case <-ctx.Done():
	}
}

func axis(st joystick.State, idx int) int {
	if idx >= len(st.AxisData) {
		return 0
	}
	return st.AxisData[idx]
}

func norm(v int) float64 {
	f := float64(v) / 32767.0
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}

// trigger maps the driver's resting -32767 .. pulled 32767 range onto
// 0..1.
func trigger(v int) float64 {
	f := (float64(v) + 32767.0) / 65534.0
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
