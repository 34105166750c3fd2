package teleop

import (
	"context"
	"testing"

	"github.com/0xcafed00d/joystick"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restingState is a pad with centered sticks, released triggers and no
// buttons held.
func restingState() joystick.State {
	ax := make([]int, 8)
	ax[axisLT] = -32767
	ax[axisRT] = -32767
	return joystick.State{AxisData: ax}
}

func testSource() *Source {
	return &Source{out: make(chan InputEvent, 64)}
}

func drain(ch chan InputEvent) []InputEvent {
	var out []InputEvent
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func buttonEvents(evs []InputEvent) []ButtonEvent {
	var out []ButtonEvent
	for _, ev := range evs {
		if b, ok := ev.(ButtonEvent); ok {
			out = append(out, b)
		}
	}
	return out
}

func stickEvents(evs []InputEvent) []StickEvent {
	var out []StickEvent
	for _, ev := range evs {
		if s, ok := ev.(StickEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestNormClampsDriverRange(t *testing.T) {
	assert.Equal(t, 0.0, norm(0))
	assert.InDelta(t, 1.0, norm(32767), 0.001)
	assert.InDelta(t, -1.0, norm(-32767), 0.001)
	assert.Equal(t, 1.0, norm(40000))
	assert.Equal(t, -1.0, norm(-40000))
}

func TestTriggerMapsRestingToZero(t *testing.T) {
	assert.Equal(t, 0.0, trigger(-32767))
	assert.InDelta(t, 0.5, trigger(0), 0.001)
	assert.InDelta(t, 1.0, trigger(32767), 0.001)
	assert.Equal(t, 0.0, trigger(-40000))
	assert.Equal(t, 1.0, trigger(40000))
}

func TestSourceEmitsButtonEdges(t *testing.T) {
	ctx := context.Background()
	s := testSource()

	st := restingState()
	s.emit(ctx, st)
	drain(s.out)

	// Press A: exactly one press event.
	st.Buttons = 1 << 0
	s.emit(ctx, st)
	btns := buttonEvents(drain(s.out))
	require.Len(t, btns, 1)
	assert.Equal(t, ButtonEvent{Button: ButtonA, Pressed: true}, btns[0])

	// Held: no repeat.
	s.emit(ctx, st)
	assert.Empty(t, buttonEvents(drain(s.out)))

	// Release.
	st.Buttons = 0
	s.emit(ctx, st)
	btns = buttonEvents(drain(s.out))
	require.Len(t, btns, 1)
	assert.Equal(t, ButtonEvent{Button: ButtonA, Pressed: false}, btns[0])
}

func TestSourceEmitsHatAsDpadButtons(t *testing.T) {
	ctx := context.Background()
	s := testSource()

	st := restingState()
	s.emit(ctx, st)
	drain(s.out)

	st.AxisData[axisHX] = -32767
	s.emit(ctx, st)
	btns := buttonEvents(drain(s.out))
	require.Len(t, btns, 1)
	assert.Equal(t, ButtonEvent{Button: DpadLeft, Pressed: true}, btns[0])

	// Flip straight across: release left, press right.
	st.AxisData[axisHX] = 32767
	s.emit(ctx, st)
	btns = buttonEvents(drain(s.out))
	require.Len(t, btns, 2)
	assert.Equal(t, ButtonEvent{Button: DpadLeft, Pressed: false}, btns[0])
	assert.Equal(t, ButtonEvent{Button: DpadRight, Pressed: true}, btns[1])

	st.AxisData[axisHX] = 0
	s.emit(ctx, st)
	btns = buttonEvents(drain(s.out))
	require.Len(t, btns, 1)
	assert.Equal(t, ButtonEvent{Button: DpadRight, Pressed: false}, btns[0])
}

func TestSourceEmitsSticksOnChangeOnly(t *testing.T) {
	ctx := context.Background()
	s := testSource()

	st := restingState()
	s.emit(ctx, st)
	require.Len(t, stickEvents(drain(s.out)), 1, "first poll reports the resting pad once")

	s.emit(ctx, st)
	assert.Empty(t, stickEvents(drain(s.out)))

	// Stick up reads negative from the driver and must come out positive.
	st.AxisData[axisLY] = -32767
	s.emit(ctx, st)
	sticks := stickEvents(drain(s.out))
	require.Len(t, sticks, 1)
	assert.InDelta(t, 1.0, sticks[0].LY, 0.001)
	assert.Equal(t, 0.0, sticks[0].LX)
}

func TestSourceEmitsTriggersEveryTick(t *testing.T) {
	ctx := context.Background()
	s := testSource()

	st := restingState()
	s.emit(ctx, st)
	s.emit(ctx, st)

	var trigs int
	for _, ev := range drain(s.out) {
		if tr, ok := ev.(TriggerEvent); ok {
			trigs++
			assert.Equal(t, 0.0, tr.Left)
			assert.Equal(t, 0.0, tr.Right)
		}
	}
	assert.Equal(t, 2, trigs)
}
