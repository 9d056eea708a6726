package main

import (
	"github.com/urfave/cli/v2"

	"github.com/gbakit/gbasave/cmd/gbasave/console"
	"github.com/gbakit/gbasave/flash"
)

var eraseCmd = cli.Command{
	Name:  "erase",
	Usage: "erase the whole flash chip",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "yes",
			Usage: "skip the confirmation prompt",
		},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("erase the entire flash chip?")
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if answer != console.Yes {
				console.PInfof(console.PictoStop, "erase aborted")
				return nil
			}
		}

		ports, closeBackend, err := openPorts(c)
		if err != nil {
			return console.Exit(1, "backend error: %s", console.Red(err))
		}
		defer func() { _ = closeBackend() }()

		dev, err := flash.Identify(ports)
		if err != nil {
			return console.Exit(1, "identification error: %s", console.Red(err))
		}
		console.Debugf("identified %s", dev.DeviceName())
		if err := dev.Reset(); err != nil {
			return console.Exit(1, "erase error: %s", console.Red(err))
		}
		if err := closeBackend(); err != nil {
			return console.Exit(1, "erase error: %s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "flash chip erased")
		return nil
	},
}
