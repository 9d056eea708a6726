package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/gbakit/gbasave"
	"github.com/gbakit/gbasave/adapter"
	"github.com/gbakit/gbasave/linkcart"
	"github.com/gbakit/gbasave/memsim"
)

// config is the optional yaml configuration file. Command line flags take
// precedence over it.
type config struct {
	Backend string `yaml:"backend"`
	Serial  struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"serial"`
	USB struct {
		Device int `yaml:"device"`
	} `yaml:"usb"`
	Sim struct {
		Chip    string `yaml:"chip"`
		FlashID uint16 `yaml:"flash_id"`
	} `yaml:"sim"`
}

func loadConfig(path string) (config, error) {
	cfg := config{Backend: "usb"}
	cfg.Sim.Chip = "sram"
	cfg.Sim.FlashID = memsim.IDSST64K
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// openPorts resolves the configured backend into a bus capability. The
// returned closer releases the backend and reports any transport error
// latched during the session.
func openPorts(c *cli.Context) (gbasave.Ports, func() error, error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if b := c.String("backend"); b != "" {
		cfg.Backend = b
	}
	if p := c.String("serial-port"); p != "" {
		cfg.Serial.Port = p
	}

	switch cfg.Backend {
	case "sim":
		cart := memsim.New(simOptions(cfg)...)
		return cart, func() error { return nil }, nil
	case "serial":
		if cfg.Serial.Port == "" {
			return nil, nil, fmt.Errorf("serial backend needs a port (--serial-port or config)")
		}
		var opts []linkcart.Option
		if cfg.Serial.Baud != 0 {
			opts = append(opts, linkcart.WithBaudRate(cfg.Serial.Baud))
		}
		cart, err := linkcart.Open(cfg.Serial.Port, opts...)
		if err != nil {
			return nil, nil, err
		}
		return cart, func() error {
			if err := cart.Err(); err != nil {
				_ = cart.Close()
				return err
			}
			return cart.Close()
		}, nil
	case "usb":
		dongle, err := adapter.Open(cfg.USB.Device)
		if err != nil {
			return nil, nil, err
		}
		return dongle, func() error {
			if err := dongle.Err(); err != nil {
				_ = dongle.Close()
				return err
			}
			return dongle.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func simOptions(cfg config) []memsim.Option {
	switch cfg.Sim.Chip {
	case "flash":
		return []memsim.Option{memsim.WithFlash(cfg.Sim.FlashID)}
	case "eeprom512":
		return []memsim.Option{memsim.WithEeprom512B()}
	case "eeprom8k":
		return []memsim.Option{memsim.WithEeprom8K()}
	default:
		return []memsim.Option{memsim.WithSram()}
	}
}
