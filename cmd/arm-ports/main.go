package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/wire"
)

// arm-ports probes every serial port and reports what answers, without
// touching the saved configuration. Use it when setup finds nothing.

const probeTimeout = 2 * time.Second

func main() {
	fmt.Println("armctl Port Scanner")
	fmt.Println("━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		os.Exit(1)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		os.Exit(1)
	}

	found := 0
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		fmt.Printf("%s\n", port)

		tr := robot.NewSerialPort(port, robot.DefaultBaudRate)
		if err := tr.Open(); err != nil {
			fmt.Printf("  cannot open: %v\n", err)
			continue
		}

		if fb, ok := queryArm(tr); ok {
			fmt.Println("  AR4 arm")
			fmt.Printf("    joints  %s\n", fmtReadings(fb.Joints))
			fmt.Printf("    pose    %s\n", fmtReadings(fb.Cartesian))
			if fb.Track.OK {
				fmt.Printf("    track   %.2f mm\n", fb.Track.Value)
			}
			found++
		} else if pos, ok := queryFeeder(tr); ok {
			fmt.Printf("  tube feeder at %.2f mm\n", pos)
			found++
		} else {
			fmt.Println("  no response")
		}
		tr.Close()
	}

	fmt.Println()
	if found == 0 {
		fmt.Println("No AR4 arms or feeders found.")
		fmt.Println("Make sure the devices are connected and powered on.")
		os.Exit(1)
	}

	fmt.Printf("Found %d device(s).\n", found)
	fmt.Println()
	fmt.Println("Assign roles and save the configuration with:")
	fmt.Println("  armctl setup")
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

func fmtReadings(rs [6]wire.Reading) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		if r.OK {
			parts[i] = fmt.Sprintf("%8.2f", r.Value)
		} else {
			parts[i] = fmt.Sprintf("%8s", "-")
		}
	}
	return strings.Join(parts, " ")
}
