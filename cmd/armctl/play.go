package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gwillem/armctl/pkg/journal"
	"github.com/gwillem/armctl/pkg/logging"
	"github.com/gwillem/armctl/pkg/pathway"
	"github.com/gwillem/armctl/pkg/robot"
)

type PlayCommand struct {
	Loop bool   `long:"loop" description:"Repeat the pathway until interrupted"`
	Cron string `long:"cron" description:"Run on a cron schedule, e.g. '*/15 * * * *'"`
	Args struct {
		Name string `positional-arg-name:"pathway" required:"true" description:"Name of a stored pathway"`
	} `positional-args:"true"`
}

func (c *PlayCommand) Execute(args []string) error {
	if c.Loop && c.Cron != "" {
		return fmt.Errorf("--loop and --cron are mutually exclusive")
	}

	cfg, err := robot.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "No configuration found. Run 'armctl setup' first.")
		os.Exit(1)
	}

	store := pathway.NewStore(cfg.PathwayDir)
	pw, err := store.Load(c.Args.Name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load pathway: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, slog.LevelInfo)

	session, cleanup, err := buildSession(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	// Fail before the first waypoint, not at it.
	for _, d := range pw.RobotMode.Targets().Devices() {
		if arm := session.Arm(d); arm == nil || !arm.Connected() {
			fmt.Fprintf(os.Stderr, "Pathway %q needs %s, which is not connected\n", pw.Name, d)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runs pathway.RunLog
	if jrnl, err := journal.Open(ctx, cfg.JournalPath); err != nil {
		fmt.Fprintf(os.Stderr, "Run journal disabled: %v\n", err)
	} else {
		runs = jrnl
		defer jrnl.Close()
	}

	player := pathway.NewPlayer(session, runs, logger)
	opts := pathway.Options{Loop: c.Loop, Timeout: cfg.MoveTimeout()}

	if c.Cron != "" {
		return c.runScheduled(ctx, player, pw, opts, logger)
	}
	return runOnce(ctx, player, pw, opts)
}

func runOnce(ctx context.Context, player *pathway.Player, pw *pathway.Pathway, opts pathway.Options) error {
	if opts.Loop {
		fmt.Printf("Looping %q (%d waypoints), ctrl-c to stop\n", pw.Name, len(pw.Waypoints))
	} else {
		fmt.Printf("Playing %q (%d waypoints)\n", pw.Name, len(pw.Waypoints))
	}

	if err := player.Start(pw, opts); err != nil {
		return err
	}
	go func() {
		select {
		case <-ctx.Done():
			player.Stop()
		case <-player.Done():
		}
	}()
	player.Wait()

	if err := player.Err(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		fmt.Println("Playback stopped")
		return nil
	}
	fmt.Println("Playback completed")
	return nil
}

// runScheduled fires the pathway on a standard five-field cron
// schedule. A firing that lands while the previous run is still going
// is skipped, not queued.
func (c *PlayCommand) runScheduled(ctx context.Context, player *pathway.Player, pw *pathway.Pathway, opts pathway.Options, logger *slog.Logger) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(c.Cron)
	if err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.Cron, err)
	}

	fmt.Printf("Scheduling %q on %q, ctrl-c to stop\n", pw.Name, c.Cron)
	for {
		next := schedule.Next(time.Now())
		logger.Info("next run scheduled", "pathway", pw.Name, "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			player.Stop()
			player.Wait()
			fmt.Println("Scheduler stopped")
			return nil
		case <-timer.C:
		}

		if err := player.Start(pw, opts); err != nil {
			if errors.Is(err, pathway.ErrBusy) {
				logger.Warn("scheduled run skipped, previous run still active", "pathway", pw.Name)
			} else {
				logger.Warn("scheduled run skipped", "err", err)
			}
			continue
		}
		go reportRun(player, player.Done(), pw.Name, logger)
	}
}

// reportRun logs the outcome of one scheduled run once it ends.
func reportRun(player *pathway.Player, done <-chan struct{}, name string, logger *slog.Logger) {
	<-done
	if err := player.Err(); err != nil {
		logger.Error("scheduled run failed", "pathway", name, "err", err)
		return
	}
	logger.Info("scheduled run finished", "pathway", name)
}
