package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/NieRVoid/ld2450-driver/internal/serialmux"
)

type fileConfig struct {
	BaudRate int    `toml:"baud_rate"`
	DataBits int    `toml:"data_bits"`
	StopBits int    `toml:"stop_bits"`
	Parity   string `toml:"parity"`
}

// loadPortOptions reads serial port options from a TOML file. Fields
// absent from the file keep the driver defaults (256000 8N1).
func loadPortOptions(path string) (serialmux.PortOptions, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serialmux.PortOptions{}, fmt.Errorf("load port config: %w", err)
	}

	var opts serialmux.PortOptions
	if meta.IsDefined("baud_rate") {
		opts.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("data_bits") {
		opts.DataBits = raw.DataBits
	}
	if meta.IsDefined("stop_bits") {
		opts.StopBits = raw.StopBits
	}
	if meta.IsDefined("parity") {
		opts.Parity = raw.Parity
	}

	if _, err := opts.Normalize(); err != nil {
		return serialmux.PortOptions{}, fmt.Errorf("invalid port config: %w", err)
	}
	return opts, nil
}
