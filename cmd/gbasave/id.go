package main

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/gbakit/gbasave/cmd/gbasave/console"
	"github.com/gbakit/gbasave/flash"
)

var idCmd = cli.Command{
	Name:  "id",
	Usage: "identify the flash chip on the cartridge",
	Action: func(c *cli.Context) error {
		ports, closeBackend, err := openPorts(c)
		if err != nil {
			return console.Exit(1, "backend error: %s", console.Red(err))
		}
		defer func() { _ = closeBackend() }()

		dev, err := flash.Identify(ports)
		if err != nil {
			var unknown flash.UnknownDeviceIDError
			if errors.As(err, &unknown) {
				return console.Exit(1, "unrecognized flash chip: %s", console.Red(err))
			}
			return console.Exit(1, "identification error: %s", console.Red(err))
		}
		console.PInfof(console.PictoChip, "flash chip: %s", console.White(dev.DeviceName()))
		return closeBackend()
	},
}
