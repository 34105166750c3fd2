package teleop

// Button identifies a gamepad control.
type Button int

const (
	ButtonA Button = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonLB
	ButtonRB
	ButtonBack
	ButtonStart
	DpadUp
	DpadDown
	DpadLeft
	DpadRight
)

var buttonNames = map[Button]string{
	ButtonA:     "A",
	ButtonB:     "B",
	ButtonX:     "X",
	ButtonY:     "Y",
	ButtonLB:    "LB",
	ButtonRB:    "RB",
	ButtonBack:  "Back",
	ButtonStart: "Start",
	DpadUp:      "DpadUp",
	DpadDown:    "DpadDown",
	DpadLeft:    "DpadLeft",
	DpadRight:   "DpadRight",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return "?"
}

// InputEvent is one piece of gamepad input. Sources push these into the
// controller's event stream; the controller is the only consumer.
type InputEvent interface{ inputEvent() }

// StickEvent carries both stick positions, normalized to [-1, 1].
type StickEvent struct {
	LX, LY, RX, RY float64
}

// TriggerEvent carries both trigger positions, normalized to [0, 1].
type TriggerEvent struct {
	Left, Right float64
}

// ButtonEvent is a press or release of a single button.
type ButtonEvent struct {
	Button  Button
	Pressed bool
}

func (StickEvent) inputEvent()   {}
func (TriggerEvent) inputEvent() {}
func (ButtonEvent) inputEvent()  {}
