package teleop

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armctl/pkg/feeder"
	"github.com/gwillem/armctl/pkg/motion"
	"github.com/gwillem/armctl/pkg/robot"
)

type fakeTransport struct {
	mu     sync.Mutex
	open   bool
	writes []string
}

func (f *fakeTransport) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, line)
	return nil
}

func (f *fakeTransport) ReadLine(timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	time.Sleep(timeout)
	return "", nil
}

func (f *fakeTransport) ResetInput() error { return nil }

func (f *fakeTransport) BytesAvailable() bool { return false }

func (f *fakeTransport) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeTransport) last() string {
	s := f.sent()
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

type testRig struct {
	ctrl *Controller
	tr1  *fakeTransport
	tr2  *fakeTransport
	trF  *fakeTransport
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	g := &testRig{
		tr1: &fakeTransport{},
		tr2: &fakeTransport{},
		trF: &fakeTransport{},
	}
	r1 := robot.NewArm("robot1", g.tr1, nil)
	r2 := robot.NewArm("robot2", g.tr2, nil)
	fc := feeder.NewController("feeder", g.trF, nil)
	require.NoError(t, r1.Connect())
	require.NoError(t, r2.Connect())
	require.NoError(t, fc.Connect())
	t.Cleanup(func() {
		r1.Close()
		r2.Close()
		fc.Close()
	})

	session := motion.NewSession(r1, r2, fc, nil)
	events := make(chan InputEvent)
	ctrl, err := NewController(Config{Session: session, Events: events})
	require.NoError(t, err)
	g.ctrl = ctrl
	return g
}

func TestControllerStickJogGoesToTargetSet(t *testing.T) {
	g := newTestRig(t)

	g.ctrl.handleEvent(StickEvent{LX: 0.8})
	g.ctrl.step()

	assert.Equal(t, "LJ11S6A13D13\n", g.tr1.last())
	assert.Empty(t, g.tr2.sent(), "default target set is robot 1 only")
	assert.Equal(t, "Jogging J1+", g.ctrl.action)
}

func TestControllerStickReleaseStopsAll(t *testing.T) {
	g := newTestRig(t)

	g.ctrl.handleEvent(StickEvent{LX: 0.8})
	g.ctrl.step()
	g.ctrl.handleEvent(StickEvent{})
	g.ctrl.step()

	assert.Equal(t, "S\n", g.tr1.last())
	assert.Equal(t, "S\n", g.tr2.last(), "stop goes to every device")
	assert.Equal(t, "STOP\n", g.trF.last())
	assert.Equal(t, "IDLE", g.ctrl.action)
}

func TestControllerButtonJogSurvivesStickCenter(t *testing.T) {
	g := newTestRig(t)

	g.ctrl.handleEvent(StickEvent{LX: 0.8})
	g.ctrl.step()
	g.ctrl.handleEvent(ButtonEvent{Button: DpadUp, Pressed: true})
	require.Equal(t, "LJ50S6A13D13\n", g.tr1.last(), "d-pad up jogs J5-")

	g.ctrl.handleEvent(StickEvent{})
	g.ctrl.step()

	assert.Equal(t, "LJ50S6A13D13\n", g.tr1.last(), "idle stick must not cancel a held button jog")
}

func TestControllerDpadFollowsMode(t *testing.T) {
	g := newTestRig(t)

	g.ctrl.handleEvent(ButtonEvent{Button: ButtonB, Pressed: true})
	g.ctrl.handleEvent(ButtonEvent{Button: DpadUp, Pressed: true})
	assert.Equal(t, "LC41S6A13D13\n", g.tr1.last(), "cartesian d-pad up jogs Rx+")

	g.ctrl.handleEvent(ButtonEvent{Button: DpadUp, Pressed: false})
	assert.Equal(t, "S\n", g.tr1.last())

	g.ctrl.handleEvent(ButtonEvent{Button: ButtonA, Pressed: true})
	g.ctrl.handleEvent(ButtonEvent{Button: DpadRight, Pressed: true})
	assert.Equal(t, "LJ61S6A13D13\n", g.tr1.last(), "joint d-pad right jogs J6+")
}

func TestControllerTrackAndFeederButtons(t *testing.T) {
	g := newTestRig(t)

	g.ctrl.handleEvent(ButtonEvent{Button: ButtonY, Pressed: true})
	assert.Equal(t, "LJ71S6A13D13\n", g.tr1.last())

	g.ctrl.handleEvent(ButtonEvent{Button: ButtonX, Pressed: true})
	assert.Equal(t, "LJ70S6A13D13\n", g.tr1.last())

	g.ctrl.handleEvent(ButtonEvent{Button: ButtonRB, Pressed: true})
	assert.Equal(t, "J+\n", g.trF.last())

	g.ctrl.handleEvent(ButtonEvent{Button: ButtonLB, Pressed: true})
	assert.Equal(t, "J-\n", g.trF.last())

	g.ctrl.handleEvent(ButtonEvent{Button: ButtonLB, Pressed: false})
	assert.Equal(t, "STOP\n", g.trF.last())
	assert.Nil(t, g.ctrl.current)
}

func TestControllerCycleTargets(t *testing.T) {
	g := newTestRig(t)

	g.ctrl.handleEvent(ButtonEvent{Button: ButtonBack, Pressed: true})
	assert.Equal(t, motion.TargetR2, g.ctrl.targets)
	assert.Equal(t, "S\n", g.tr1.last(), "cycling targets stops any jog")

	g.ctrl.handleEvent(StickEvent{LX: 0.8})
	g.ctrl.step()
	assert.Equal(t, "LJ11S6A13D13\n", g.tr2.last())

	g.ctrl.handleEvent(ButtonEvent{Button: ButtonBack, Pressed: true})
	assert.Equal(t, motion.TargetBoth, g.ctrl.targets)
}

func TestControllerEmergencyStop(t *testing.T) {
	g := newTestRig(t)

	g.ctrl.handleEvent(StickEvent{LX: 0.8})
	g.ctrl.step()
	g.ctrl.handleEvent(ButtonEvent{Button: ButtonStart, Pressed: true})

	assert.Equal(t, "ES\n", g.tr1.last())
	assert.Equal(t, "ES\n", g.tr2.last())
	assert.Equal(t, "STOP\n", g.trF.last())
	assert.Nil(t, g.ctrl.current)
	assert.Equal(t, "EMERGENCY STOP", g.ctrl.action)
}

func TestControllerTriggerSpeedSteps(t *testing.T) {
	g := newTestRig(t)
	now := time.Now()

	g.ctrl.handleTriggers(TriggerEvent{Right: 0.9}, now)
	assert.Equal(t, 30, g.ctrl.session.Speed())

	// Rate limited inside the window.
	g.ctrl.handleTriggers(TriggerEvent{Right: 0.9}, now.Add(50*time.Millisecond))
	assert.Equal(t, 30, g.ctrl.session.Speed())

	g.ctrl.handleTriggers(TriggerEvent{Right: 0.9}, now.Add(200*time.Millisecond))
	assert.Equal(t, 35, g.ctrl.session.Speed())

	g.ctrl.handleTriggers(TriggerEvent{Left: 0.9}, now.Add(400*time.Millisecond))
	assert.Equal(t, 30, g.ctrl.session.Speed())
}

func TestControllerTriggerReissuesActiveJog(t *testing.T) {
	g := newTestRig(t)

	g.ctrl.handleEvent(StickEvent{LX: 0.8})
	g.ctrl.step()
	require.Equal(t, "LJ11S6A13D13\n", g.tr1.last())

	g.ctrl.handleTriggers(TriggerEvent{Right: 0.9}, time.Now())

	// Speed 30% -> 8 device units, re-issued without a new stick event.
	assert.Equal(t, "LJ11S8A13D13\n", g.tr1.last())
}
