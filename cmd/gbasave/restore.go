package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/cmd/gbasave/console"
	"github.com/gbakit/gbasave/eeprom"
	"github.com/gbakit/gbasave/flash"
	"github.com/gbakit/gbasave/sram"
)

var restoreCmd = cli.Command{
	Name:  "restore",
	Usage: "write a save file back to the backup memory",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "memory",
			Usage: "backup memory type: sram, eeprom512, eeprom8k or flash",
			Value: "sram",
		},
		&cli.StringFlag{
			Name:     "in",
			Usage:    "save file to restore",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "yes",
			Usage: "skip the confirmation prompt",
		},
	},
	Action: func(c *cli.Context) error {
		data, err := os.ReadFile(c.String("in"))
		if err != nil {
			return console.Exit(1, "read error: %s", console.Red(err))
		}

		if !c.Bool("yes") {
			answer, err := console.YesOrNo(fmt.Sprintf("overwrite the cartridge save with %s?", c.String("in")))
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if answer != console.Yes {
				console.PInfof(console.PictoStop, "restore aborted")
				return nil
			}
		}

		ports, closeBackend, err := openPorts(c)
		if err != nil {
			return console.Exit(1, "backend error: %s", console.Red(err))
		}
		defer func() { _ = closeBackend() }()

		if err := restore(c.String("memory"), ports, data); err != nil {
			return console.Exit(1, "restore error: %s", console.Red(err))
		}
		if err := closeBackend(); err != nil {
			return console.Exit(1, "restore error: %s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "restored %d bytes from %s", len(data), console.White(c.String("in")))
		return nil
	},
}

// writeCloser is the shape shared by all backup writers.
type writeCloser interface {
	Write(p []byte) (int, error)
	Close() error
}

func restore(memory string, ports gbasave.Ports, data []byte) error {
	var (
		w    writeCloser
		size int
	)
	switch memory {
	case "sram":
		w, size = sram.New(ports).Writer(gbasave.Full()), sram.Capacity
	case "eeprom512":
		w, size = eeprom.New512B(ports).Writer(gbasave.Full()), eeprom.Capacity512B
	case "eeprom8k":
		w, size = eeprom.New8K(ports).Writer(gbasave.Full()), eeprom.Capacity8K
	case "flash":
		dev, err := flash.Identify(ports)
		if err != nil {
			return fmt.Errorf("identification error: %w", err)
		}
		console.Debugf("identified %s", dev.DeviceName())
		switch d := dev.(type) {
		case *flash.Flash64K:
			// Written memory cannot be rewritten without an erase first.
			if err := d.EraseSectors(gbasave.Full()); err != nil {
				return err
			}
			w, size = d.Writer(gbasave.Full()), flash.Capacity64K
		case *flash.Flash64KAtmel:
			w, size = d.Writer(gbasave.Full()), flash.Capacity64K
		case *flash.Flash128K:
			if err := d.EraseSectors(gbasave.Full()); err != nil {
				return err
			}
			w, size = d.Writer(gbasave.Full()), flash.Capacity128K
		default:
			return fmt.Errorf("unsupported flash variant %s", dev.DeviceName())
		}
	default:
		return fmt.Errorf("unknown memory type %q", memory)
	}

	if len(data) != size {
		return fmt.Errorf("save file is %d bytes, the %s memory holds %d", len(data), memory, size)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
