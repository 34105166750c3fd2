package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Setup    SetupCommand    `command:"setup" description:"Scan serial ports and write the device configuration"`
	Operate  OperateCommand  `command:"operate" alias:"op" description:"Start live operation (gamepad and keyboard jogging)"`
	Play     PlayCommand     `command:"play" description:"Play back a stored pathway"`
	Pathways PathwaysCommand `command:"pathways" alias:"pw" description:"List, inspect and delete stored pathways"`
	History  HistoryCommand  `command:"history" description:"Show recent playback runs"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armctl - Motion control CLI for AR4-class robot arms"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
