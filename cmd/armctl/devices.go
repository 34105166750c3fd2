package main

import (
	"fmt"
	"log/slog"

	"github.com/gwillem/armctl/pkg/feeder"
	"github.com/gwillem/armctl/pkg/motion"
	"github.com/gwillem/armctl/pkg/robot"
)

// buildSession connects to every configured device and wraps them in a
// motion session. Devices that fail to connect are logged and left out;
// at least one must come up. The returned func closes all connections.
func buildSession(cfg *robot.Config, log *slog.Logger) (*motion.Session, func(), error) {
	var (
		r1, r2  *robot.Arm
		fc      *feeder.Controller
		closers []func()
	)

	connectArm := func(name string, dc robot.DeviceConfig) *robot.Arm {
		if !dc.IsSet() {
			return nil
		}
		arm := robot.NewArm(name, robot.NewSerialPort(dc.Port, dc.Baud), log)
		if err := arm.Connect(); err != nil {
			log.Warn("arm unavailable", "arm", name, "port", dc.Port, "err", err)
			return nil
		}
		log.Info("arm connected", "arm", name, "port", dc.Port)
		closers = append(closers, func() { arm.Close() })
		return arm
	}

	r1 = connectArm("robot1", cfg.Robot1)
	r2 = connectArm("robot2", cfg.Robot2)

	if cfg.Feeder.IsSet() {
		baud := cfg.Feeder.Baud
		if baud <= 0 {
			baud = feeder.DefaultBaudRate
		}
		f := feeder.NewController("feeder", robot.NewSerialPort(cfg.Feeder.Port, baud), log)
		if err := f.Connect(); err != nil {
			log.Warn("feeder unavailable", "port", cfg.Feeder.Port, "err", err)
		} else {
			log.Info("feeder connected", "port", cfg.Feeder.Port)
			fc = f
			closers = append(closers, func() { f.Close() })
		}
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if r1 == nil && r2 == nil && fc == nil {
		cleanup()
		return nil, nil, fmt.Errorf("no devices reachable, check connections or re-run 'armctl setup'")
	}

	session := motion.NewSession(r1, r2, fc, log)
	session.SetSpeed(cfg.Speed)
	session.SetSmoothness(cfg.Smoothness)
	return session, cleanup, nil
}
