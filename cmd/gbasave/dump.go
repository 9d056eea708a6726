package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/cmd/gbasave/console"
	"github.com/gbakit/gbasave/eeprom"
	"github.com/gbakit/gbasave/flash"
	"github.com/gbakit/gbasave/sram"
)

var dumpCmd = cli.Command{
	Name:  "dump",
	Usage: "read the whole backup memory into a file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "memory",
			Usage: "backup memory type: sram, eeprom512, eeprom8k or flash",
			Value: "sram",
		},
		&cli.StringFlag{
			Name:     "out",
			Usage:    "output file",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		ports, closeBackend, err := openPorts(c)
		if err != nil {
			return console.Exit(1, "backend error: %s", console.Red(err))
		}
		defer func() { _ = closeBackend() }()

		rd, size, err := backupReader(c.String("memory"), ports)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}

		buf := make([]byte, size)
		if _, err := io.ReadFull(rd, buf); err != nil {
			return console.Exit(1, "dump error: %s", console.Red(err))
		}
		if err := closeBackend(); err != nil {
			return console.Exit(1, "dump error: %s", console.Red(err))
		}
		if err := os.WriteFile(c.String("out"), buf, 0o644); err != nil {
			return console.Exit(1, "write error: %s", console.Red(err))
		}
		console.PInfof(console.PictoDisk, "dumped %d bytes to %s", size, console.White(c.String("out")))
		return nil
	},
}

// backupReader builds a full-range reader over the selected backup memory.
func backupReader(memory string, ports gbasave.Ports) (io.Reader, int, error) {
	switch memory {
	case "sram":
		return sram.New(ports).Reader(gbasave.Full()), sram.Capacity, nil
	case "eeprom512":
		return eeprom.New512B(ports).Reader(gbasave.Full()), eeprom.Capacity512B, nil
	case "eeprom8k":
		return eeprom.New8K(ports).Reader(gbasave.Full()), eeprom.Capacity8K, nil
	case "flash":
		dev, err := flash.Identify(ports)
		if err != nil {
			return nil, 0, fmt.Errorf("identification error: %w", err)
		}
		console.Debugf("identified %s", dev.DeviceName())
		switch d := dev.(type) {
		case *flash.Flash64K:
			return d.Reader(gbasave.Full()), flash.Capacity64K, nil
		case *flash.Flash64KAtmel:
			return d.Reader(gbasave.Full()), flash.Capacity64K, nil
		case *flash.Flash128K:
			return d.Reader(gbasave.Full()), flash.Capacity128K, nil
		}
		return nil, 0, fmt.Errorf("unsupported flash variant %s", dev.DeviceName())
	}
	return nil, 0, fmt.Errorf("unknown memory type %q", memory)
}
