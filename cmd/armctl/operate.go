package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/armctl/pkg/journal"
	"github.com/gwillem/armctl/pkg/logging"
	"github.com/gwillem/armctl/pkg/motion"
	"github.com/gwillem/armctl/pkg/pathway"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/teleop"
)

type OperateCommand struct {
	Hz        int  `long:"hz" default:"60" description:"Control loop frequency"`
	Gamepad   int  `long:"gamepad" default:"0" description:"Gamepad device id"`
	NoGamepad bool `long:"no-gamepad" description:"Keyboard control only"`
}

const (
	headerHeight = 3 // title + status + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	helpHeight   = 1 // key help row
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// keyHold is how long a key-driven jog persists past its last repeat.
// It must cover the terminal's initial key-repeat delay.
const keyHold = 600 * time.Millisecond

// Joint colors - distinct colors for each joint
var jointColors = map[int]string{
	1: "196", // red
	2: "208", // orange
	3: "226", // yellow
	4: "46",  // green
	5: "51",  // cyan
	6: "201", // magenta
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// keypad synthesizes gamepad events from terminal keys. Terminals only
// deliver repeats, never releases, so held keys expire after keyHold.
type keypad struct {
	lx, ly, rx, ry float64
	stickAt        time.Time
	dirty          bool
	held           map[teleop.Button]time.Time
}

func newKeypad() *keypad {
	return &keypad{held: make(map[teleop.Button]time.Time)}
}

// handleKey applies one jog key, returning the events to emit. Keys it
// does not own return ok=false.
func (k *keypad) handleKey(key string, now time.Time) ([]teleop.InputEvent, bool) {
	hold := func(b teleop.Button) ([]teleop.InputEvent, bool) {
		var evs []teleop.InputEvent
		if _, held := k.held[b]; !held {
			evs = append(evs, teleop.ButtonEvent{Button: b, Pressed: true})
		}
		k.held[b] = now
		return evs, true
	}

	switch key {
	case "up":
		k.ly = 1
	case "down":
		k.ly = -1
	case "left":
		k.lx = -1
	case "right":
		k.lx = 1
	case "k":
		k.ry = 1
	case "j":
		k.ry = -1
	case "h":
		k.rx = -1
	case "l":
		k.rx = 1
	case "t":
		return hold(teleop.ButtonY)
	case "g":
		return hold(teleop.ButtonX)
	case "f":
		return hold(teleop.ButtonRB)
	case "r":
		return hold(teleop.ButtonLB)
	case "pgup":
		return hold(teleop.DpadUp)
	case "pgdown":
		return hold(teleop.DpadDown)
	case "home":
		return hold(teleop.DpadLeft)
	case "end":
		return hold(teleop.DpadRight)
	default:
		return nil, false
	}

	k.stickAt = now
	k.dirty = true
	return []teleop.InputEvent{teleop.StickEvent{LX: k.lx, LY: k.ly, RX: k.rx, RY: k.ry}}, true
}

// sweep expires stale keys and returns the release events to emit.
func (k *keypad) sweep(now time.Time) []teleop.InputEvent {
	var evs []teleop.InputEvent
	if k.dirty && now.Sub(k.stickAt) > keyHold {
		k.lx, k.ly, k.rx, k.ry = 0, 0, 0, 0
		k.dirty = false
		evs = append(evs, teleop.StickEvent{})
	}
	for b, at := range k.held {
		if now.Sub(at) > keyHold {
			delete(k.held, b)
			evs = append(evs, teleop.ButtonEvent{Button: b, Pressed: false})
		}
	}
	return evs
}

type operateModel struct {
	ctrl    *teleop.Controller
	events  chan<- teleop.InputEvent
	rec     *pathway.Recorder
	store   *pathway.Store
	player  *pathway.Player
	devLogs <-chan string
	timeout time.Duration

	chart      *streamlinechart.Model
	keys       *keypad
	width      int
	height     int
	logs       []string
	state      teleop.State
	haveState  bool
	lastJoints [6]float64
	haveJoints bool
	playing    bool
	quitting   bool
}

func (m *operateModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *operateModel) logf(format string, args ...any) {
	m.addLog(fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...)))
}

func (m *operateModel) send(ev teleop.InputEvent) {
	select {
	case m.events <- ev:
	default:
	}
}

// Messages from the controller and devices
type stateMsg teleop.State
type logMsg string
type devLogMsg string
type tickMsg time.Time
type playDoneMsg struct{ err error }

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func waitForDeviceLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return devLogMsg(<-ch)
	}
}

func sweepTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForPlayer(p *pathway.Player) tea.Cmd {
	return func() tea.Msg {
		p.Wait()
		return playDoneMsg{err: p.Err()}
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *operateModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - helpHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *operateModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialOperateModel(ctrl *teleop.Controller, events chan<- teleop.InputEvent,
	store *pathway.Store, player *pathway.Player, devLogs <-chan string, timeout time.Duration) operateModel {

	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-185, 185),
	)

	// Set up data set styles for each joint
	for j := 1; j <= 6; j++ {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j]))
		chart.SetDataSetStyles(jointName(j), runes.ThinLineStyle, style)
	}

	return operateModel{
		ctrl:    ctrl,
		events:  events,
		rec:     pathway.NewRecorder(),
		store:   store,
		player:  player,
		devLogs: devLogs,
		timeout: timeout,
		chart:   &chart,
		keys:    newKeypad(),
	}
}

func jointName(j int) string {
	return fmt.Sprintf("J%d", j)
}

func (m operateModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
		waitForDeviceLog(m.devLogs),
		sweepTick(),
	)
}

func (m operateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		m.state = teleop.State(msg)
		m.haveState = true
		if snap, ok := m.chartSource(); ok && m.hasMovement(snap.Joints) {
			for j := 1; j <= 6; j++ {
				m.chart.PushDataSet(jointName(j), snap.Joints[j-1])
			}
			m.chart.DrawAll()
			m.lastJoints = snap.Joints
			m.haveJoints = true
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case devLogMsg:
		m.addLog(string(msg))
		return m, waitForDeviceLog(m.devLogs)

	case tickMsg:
		for _, ev := range m.keys.sweep(time.Now()) {
			m.send(ev)
		}
		return m, sweepTick()

	case playDoneMsg:
		m.playing = false
		if msg.err != nil {
			m.logf("Playback failed: %v", msg.err)
		} else {
			m.logf("Playback finished")
		}
		return m, nil
	}

	return m, nil
}

func (m operateModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.player.Stop()
		return m, tea.Quit
	case "e":
		// The emergency stop reaches the devices even during playback.
		m.player.Stop()
		m.send(teleop.ButtonEvent{Button: teleop.ButtonStart, Pressed: true})
		m.send(teleop.ButtonEvent{Button: teleop.ButtonStart, Pressed: false})
		return m, nil
	}

	if m.playing {
		switch key {
		case "p", "esc":
			m.player.Stop()
			m.logf("Stopping after current move...")
		}
		return m, nil
	}

	if evs, ok := m.keys.handleKey(key, time.Now()); ok {
		for _, ev := range evs {
			m.send(ev)
		}
		return m, nil
	}

	switch key {
	case "a":
		m.tapButton(teleop.ButtonA)
	case "b":
		m.tapButton(teleop.ButtonB)
	case "tab":
		m.tapButton(teleop.ButtonBack)
	case "+", "=":
		m.send(teleop.TriggerEvent{Right: 1})
		m.send(teleop.TriggerEvent{})
	case "-", "_":
		m.send(teleop.TriggerEvent{Left: 1})
		m.send(teleop.TriggerEvent{})
	case " ":
		m.captureWaypoint()
	case "u", "backspace":
		if _, ok := m.rec.RemoveLast(); ok {
			m.logf("Removed last waypoint (%d left)", m.rec.Len())
		}
	case "x":
		m.rec.Clear()
		m.logf("Recording cleared")
	case "s":
		m.savePathway()
	case "p":
		return m.startPlayback()
	}
	return m, nil
}

func (m *operateModel) tapButton(b teleop.Button) {
	m.send(teleop.ButtonEvent{Button: b, Pressed: true})
	m.send(teleop.ButtonEvent{Button: b, Pressed: false})
}

func (m *operateModel) captureWaypoint() {
	if !m.haveState {
		m.logf("No telemetry yet")
		return
	}
	wp := pathway.Waypoint{FeederPos: m.state.FeederPos}
	if m.state.Targets.Includes(motion.DeviceR1) && m.state.Robot1.Connected {
		s := m.state.Robot1.Snapshot
		wp.Robot1 = &s
	}
	if m.state.Targets.Includes(motion.DeviceR2) && m.state.Robot2.Connected {
		s := m.state.Robot2.Snapshot
		wp.Robot2 = &s
	}
	if err := m.rec.Append(wp); err != nil {
		m.logf("Capture failed: no connected robot in %s", m.state.Targets)
		return
	}
	m.logf("Waypoint %d captured", m.rec.Len())
}

func (m *operateModel) savePathway() {
	name := "recording-" + time.Now().Format("20060102-150405")
	pw, err := m.rec.Pathway(name, pathway.ModeForTargets(m.state.Targets))
	if err != nil {
		m.logf("Nothing to save: no waypoints recorded")
		return
	}
	if err := m.store.Save(pw); err != nil {
		m.logf("Save failed: %v", err)
		return
	}
	m.logf("Saved %q (%d waypoints)", name, len(pw.Waypoints))
}

func (m operateModel) startPlayback() (tea.Model, tea.Cmd) {
	pw, err := m.rec.Pathway("live session", pathway.ModeForTargets(m.state.Targets))
	if err != nil {
		m.logf("Nothing to play: no waypoints recorded")
		return m, nil
	}
	if err := m.player.Start(pw, pathway.Options{Timeout: m.timeout}); err != nil {
		m.logf("Playback: %v", err)
		return m, nil
	}
	m.playing = true
	m.logf("Playing %d waypoints...", len(pw.Waypoints))
	return m, waitForPlayer(m.player)
}

// chartSource picks the robot whose joints feed the chart.
func (m *operateModel) chartSource() (robot.Snapshot, bool) {
	if m.state.Robot1.Connected {
		return m.state.Robot1.Snapshot, true
	}
	if m.state.Robot2.Connected {
		return m.state.Robot2.Snapshot, true
	}
	return robot.Snapshot{}, false
}

// hasMovement checks if any joint has changed from the last sample
func (m *operateModel) hasMovement(joints [6]float64) bool {
	if !m.haveJoints {
		return true // first reading, consider it movement
	}
	return joints != m.lastJoints
}

func (m operateModel) View() string {
	if m.quitting {
		return "Operation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("armctl Operate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	// Help
	sb.WriteString(statusStyle.Render("arrows/hjkl jog · a/b mode · tab target · pgup/pgdn+home/end wrist · t/g track · f/r feeder · +/- speed · space waypoint · u undo · s save · p play · e STOP · q quit"))
	sb.WriteString("\n")

	return sb.String()
}

func (m operateModel) renderStatus() string {
	if !m.haveState {
		return statusStyle.Render("waiting for telemetry...")
	}
	conn := func(c bool) string {
		if c {
			return successStyle.Render("●")
		}
		return statusStyle.Render("○")
	}
	parts := []string{
		fmt.Sprintf("Mode: %s", m.state.Mode),
		fmt.Sprintf("Target: %s", m.state.Targets),
		fmt.Sprintf("Speed: %d%%", m.state.Speed),
		fmt.Sprintf("Smooth: %d%%", m.state.Smoothness),
		fmt.Sprintf("R1 %s R2 %s", conn(m.state.Robot1.Connected), conn(m.state.Robot2.Connected)),
		fmt.Sprintf("Feeder: %.2fmm", m.state.FeederPos),
		fmt.Sprintf("Waypoints: %d", m.rec.Len()),
		m.state.Action,
	}
	if m.playing {
		parts = append(parts, successStyle.Render("PLAYING"))
	}
	return statusStyle.Render(strings.Join(parts, "  |  "))
}

func renderLegend() string {
	var items []string
	for j := 1; j <= 6; j++ {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+jointName(j))
	}
	return strings.Join(items, "  ")
}

func forwardEvents(ctx context.Context, in <-chan teleop.InputEvent, out chan<- teleop.InputEvent, pass func(teleop.InputEvent) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if !pass(ev) {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *OperateCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "No configuration found. Run 'armctl setup' first.")
		os.Exit(1)
	}
	if !cfg.Robot1.IsSet() && !cfg.Robot2.IsSet() {
		fmt.Fprintln(os.Stderr, "No arms configured. Run 'armctl setup' first.")
		os.Exit(1)
	}
	fmt.Printf("Loaded configuration from %s\n", robot.DefaultConfigFile)

	// Device logs land in the TUI's log pane.
	devLogs := make(chan string, 64)
	logger := slog.New(logging.NewChannelHandler(devLogs, slog.LevelInfo))

	session, cleanup, err := buildSession(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	events := make(chan teleop.InputEvent, 64)
	ctrl, err := teleop.NewController(teleop.Config{Session: session, Events: events, Hz: c.Hz})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create controller: %v\n", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs pathway.RunLog
	if jrnl, err := journal.Open(ctx, cfg.JournalPath); err != nil {
		fmt.Fprintf(os.Stderr, "Run journal disabled: %v\n", err)
	} else {
		runs = jrnl
		defer jrnl.Close()
	}

	player := pathway.NewPlayer(session, runs, logger)
	store := pathway.NewStore(cfg.PathwayDir)

	if !c.NoGamepad {
		src, err := teleop.OpenSource(c.Gamepad, c.Hz, logger)
		if err != nil {
			fmt.Printf("No gamepad found (%v), keyboard control only\n", err)
		} else {
			fmt.Printf("Gamepad: %s\n", src.Name())
			go src.Run(ctx)
			// During playback the pad is muted except for the
			// emergency stop.
			go forwardEvents(ctx, src.Events(), events, func(ev teleop.InputEvent) bool {
				if player.State() != pathway.Playing {
					return true
				}
				be, ok := ev.(teleop.ButtonEvent)
				return ok && be.Button == teleop.ButtonStart
			})
		}
	}

	// Start controller in background
	go func() {
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			fmt.Fprintf(os.Stderr, "Controller error: %v\n", err)
		}
	}()

	// Run TUI
	m := initialOperateModel(ctrl, events, store, player, devLogs, cfg.MoveTimeout())
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	player.Stop()
	return nil
}
