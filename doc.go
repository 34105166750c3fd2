// Package armctl provides motion control for AR4-class robot arms.
//
// It drives one or two arms and a tube feeder over line-oriented serial,
// with gamepad and keyboard jogging, waypoint recording, and pathway
// playback.
//
// # Installation
//
//	go install github.com/gwillem/armctl/cmd/armctl@latest
//
// # Usage
//
// First, run setup to detect your devices and save the configuration:
//
//	armctl setup
//
// Then start live operation:
//
//	armctl operate
//
// Recorded pathways can be replayed without the TUI:
//
//	armctl play <name>
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/armctl: CLI with setup, operate, play, pathways and history commands
//   - cmd/arm-ports: standalone serial port scanner
//   - pkg/wire: AR4 command encoding and telemetry decoding
//   - pkg/robot: serial transport, device state, and the move handshake
//   - pkg/feeder: tube feeder controller
//   - pkg/motion: session-level jog and move fan-out across devices
//   - pkg/teleop: gamepad input and the jog arbiter
//   - pkg/pathway: waypoint recording, storage, and playback
//   - pkg/journal: playback run log in SQLite
//   - pkg/logging: slog handlers for the CLI and the TUI log pane
package armctl
