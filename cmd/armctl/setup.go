package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.bug.st/serial"

	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/wire"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const probeTimeout = 2 * time.Second

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("armctl Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	// Step 1: Scan ports
	devices := scanPorts()
	if len(devices) == 0 {
		fmt.Println("No arms or feeders found.")
		fmt.Println("Make sure your devices are connected and powered on.")
		os.Exit(1)
	}

	// Step 2: Assign roles
	cfg := robot.DefaultConfig()
	assignDevices(cfg, devices)

	if !cfg.Robot1.IsSet() && !cfg.Robot2.IsSet() {
		fmt.Println()
		fmt.Println("At least one arm is required.")
		os.Exit(1)
	}

	// Step 3: Motion defaults
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Motion Defaults ━━━"))
	fmt.Println()
	tuneDefaults(cfg)

	if err := cfg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", robot.DefaultConfigFile)
	fmt.Println()
	fmt.Println("Start operating with: " + headerStyle.Render("armctl operate"))

	return nil
}

type deviceKind int

const (
	kindUnknown deviceKind = iota
	kindArm
	kindFeeder
)

type foundDevice struct {
	port   string
	kind   deviceKind
	joints [6]float64
	pos    float64
}

func scanPorts() []foundDevice {
	fmt.Println("Scanning serial ports...")
	fmt.Println()

	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []foundDevice

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		dev, ok := probePort(port)
		if !ok {
			continue
		}

		switch dev.kind {
		case kindArm:
			fmt.Printf("  Found arm on %s (J1=%.1f J2=%.1f J3=%.1f)\n",
				port, dev.joints[0], dev.joints[1], dev.joints[2])
		case kindFeeder:
			fmt.Printf("  Found feeder on %s (position %.2f mm)\n", port, dev.pos)
		}
		found = append(found, dev)
	}

	return found
}

// probePort asks an unknown device for its position report. Arms answer
// a GP query with a telemetry line, feeders answer POS with POS:{mm}.
func probePort(port string) (foundDevice, bool) {
	dev := foundDevice{port: port}

	tr := robot.NewSerialPort(port, robot.DefaultBaudRate)
	if err := tr.Open(); err != nil {
		return dev, false
	}
	defer tr.Close()

	if fb, ok := queryArm(tr); ok {
		dev.kind = kindArm
		for i, r := range fb.Joints {
			dev.joints[i] = r.Value
		}
		return dev, true
	}

	if pos, ok := queryFeeder(tr); ok {
		dev.kind = kindFeeder
		dev.pos = pos
		return dev, true
	}

	return dev, false
}

func queryArm(tr *robot.SerialPort) (wire.Feedback, bool) {
	tr.ResetInput()
	if err := tr.WriteLine(wire.Terminate(wire.CmdQueryPosition)); err != nil {
		return wire.Feedback{}, false
	}
	line, err := tr.ReadLine(probeTimeout)
	if err != nil || line == "" {
		return wire.Feedback{}, false
	}
	return wire.DecodeFeedback(line)
}

func queryFeeder(tr *robot.SerialPort) (float64, bool) {
	tr.ResetInput()
	if err := tr.WriteLine(wire.Terminate("POS")); err != nil {
		return 0, false
	}
	line, err := tr.ReadLine(probeTimeout)
	if err != nil {
		return 0, false
	}
	if v, ok := strings.CutPrefix(line, "POS:"); ok {
		pos, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return pos, true
		}
	}
	return 0, false
}

func assignDevices(cfg *robot.Config, devices []foundDevice) {
	for _, dev := range devices {
		switch dev.kind {
		case kindArm:
			role := askArmRole(dev, !cfg.Robot1.IsSet(), !cfg.Robot2.IsSet())
			switch role {
			case "robot1":
				cfg.Robot1 = robot.DeviceConfig{Port: dev.port}
			case "robot2":
				cfg.Robot2 = robot.DeviceConfig{Port: dev.port}
			}
		case kindFeeder:
			if cfg.Feeder.IsSet() {
				continue
			}
			if askKeepFeeder(dev) {
				cfg.Feeder = robot.DeviceConfig{Port: dev.port}
			}
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Devices assigned:"))
	if cfg.Robot1.IsSet() {
		fmt.Printf("  Robot 1: %s\n", cfg.Robot1.Port)
	}
	if cfg.Robot2.IsSet() {
		fmt.Printf("  Robot 2: %s\n", cfg.Robot2.Port)
	}
	if cfg.Feeder.IsSet() {
		fmt.Printf("  Feeder:  %s\n", cfg.Feeder.Port)
	}
}

func askArmRole(dev foundDevice, needR1, needR2 bool) string {
	if !needR1 && !needR2 {
		return ""
	}

	var options []huh.Option[string]
	if needR1 {
		options = append(options, huh.NewOption("Robot 1 (primary)", "robot1"))
	}
	if needR2 {
		options = append(options, huh.NewOption("Robot 2 (secondary)", "robot2"))
	}
	options = append(options, huh.NewOption("Skip this arm", "skip"))

	var role string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Which robot is on %s?", dev.port)).
				Description(fmt.Sprintf("Reported joints: %.1f %.1f %.1f %.1f %.1f %.1f",
					dev.joints[0], dev.joints[1], dev.joints[2],
					dev.joints[3], dev.joints[4], dev.joints[5])).
				Options(options...).
				Value(&role),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	if role == "skip" {
		return ""
	}
	return role
}

func askKeepFeeder(dev foundDevice) bool {
	use := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Use the feeder on %s?", dev.port)).
				Affirmative("Yes").
				Negative("Skip").
				Value(&use),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return use
}

func tuneDefaults(cfg *robot.Config) {
	speed := strconv.Itoa(cfg.Speed)
	smooth := strconv.Itoa(cfg.Smoothness)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Default speed (1-100%)").
				Validate(validatePct).
				Value(&speed),
			huh.NewInput().
				Title("Default smoothness (1-100%)").
				Description("Higher values give gentler acceleration ramps").
				Validate(validatePct).
				Value(&smooth),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	cfg.Speed, _ = strconv.Atoi(strings.TrimSpace(speed))
	cfg.Smoothness, _ = strconv.Atoi(strings.TrimSpace(smooth))
}

func validatePct(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 1 || v > 100 {
		return fmt.Errorf("enter a number between 1 and 100")
	}
	return nil
}
